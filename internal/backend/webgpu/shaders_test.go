package webgpu

import (
	"strconv"
	"strings"
	"testing"

	"github.com/born-ml/lookback/internal/scan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeometry(t *testing.T) {
	tests := []struct {
		capacity, threads, items int
	}{
		{2, 2, 1},
		{4, 4, 1},
		{256, 256, 1},
		{1024, 256, 4},
	}
	for _, tt := range tests {
		threads, items := geometry(tt.capacity)
		assert.Equal(t, tt.threads, threads, "capacity %d", tt.capacity)
		assert.Equal(t, tt.items, items, "capacity %d", tt.capacity)
		assert.Equal(t, tt.capacity, threads*items)
	}
}

func TestShaderSource(t *testing.T) {
	for _, k := range []kernel{kernelLookBack, kernelReduce, kernelAddPrefix} {
		for _, elem := range []string{"f32", "i32", "u32"} {
			src := shaderSource(k, elem, 1024)
			assert.NotContains(t, src, "{{", "%s/%s", k, elem)
			assert.Contains(t, src, "@compute @workgroup_size(256)")
			assert.Contains(t, src, "const CAPACITY: u32 = 1024u;")
			assert.Contains(t, src, "const ITEMS: u32 = 4u;")
			assert.Contains(t, src, "array<"+elem+">")
			assert.Equal(t, 1, strings.Count(src, "fn main("))
		}
	}

	lookback := shaderSource(kernelLookBack, "f32", 128)
	assert.Contains(t, lookback, "atomicAdd(&control[0], 1u)")
	assert.Contains(t, lookback, "array<f32, 128>")

	add := shaderSource(kernelAddPrefix, "u32", 64)
	assert.NotContains(t, add, "scan_block")
	assert.Contains(t, add, "var<storage, read> upper")
}

// The kernels and the host share the tag encoding.
func TestShaderTagEncoding(t *testing.T) {
	src := shaderSource(kernelLookBack, "f32", 4)
	for _, tt := range []struct {
		name string
		tag  scan.Tag
	}{
		{"UNINITIALIZED", scan.Uninitialized},
		{"AGGREGATE_KNOWN", scan.AggregateKnown},
		{"AGGREGATE_ZERO", scan.AggregateZero},
		{"PREFIX_KNOWN", scan.GlobalPrefixKnown},
		{"PREFIX_ZERO", scan.GlobalPrefixZero},
	} {
		assert.Contains(t, src, "const "+tt.name+": u32 = "+strconv.Itoa(int(tt.tag))+"u;")
	}
}

func TestShaderName(t *testing.T) {
	assert.Equal(t, "lookback_f32_256", shaderName(kernelLookBack, "f32", 256))
	assert.Equal(t, "add_prefix_u32_4", shaderName(kernelAddPrefix, "u32", 4))
}

func TestKindOf(t *testing.T) {
	f, err := kindOf[float32]()
	require.NoError(t, err)
	assert.Equal(t, "f32", f.wgsl)
	assert.Equal(t, 1.5, f.decode(0x3fc00000))

	i, err := kindOf[int32]()
	require.NoError(t, err)
	assert.Equal(t, "i32", i.wgsl)
	assert.Equal(t, -1.0, i.decode(0xffffffff))

	u, err := kindOf[uint32]()
	require.NoError(t, err)
	assert.Equal(t, float64(0xffffffff), u.decode(0xffffffff))

	_, err = kindOf[float64]()
	assert.ErrorIs(t, err, ErrUnsupportedElement)
	_, err = kindOf[int64]()
	assert.ErrorIs(t, err, ErrUnsupportedElement)
}
