package cpu

import (
	"runtime"

	"github.com/born-ml/lookback/internal/parallel"
	"golang.org/x/sys/cpu"
)

// Info describes the host the CPU backend runs on.
type Info struct {
	Architecture string
	NumCPU       int
	Workers      int // 0 = one goroutine per workgroup
	HasSSE2      bool
	HasAVX2      bool
	HasAVX512    bool
	HasNEON      bool
}

// DetectInfo reports the features of the current process.
func DetectInfo(cfg parallel.Config) Info {
	workers := cfg.NumWorkers
	if !cfg.Enabled {
		workers = 1
	}
	return Info{
		Architecture: runtime.GOARCH,
		NumCPU:       runtime.NumCPU(),
		Workers:      workers,
		HasSSE2:      cpu.X86.HasSSE2,
		HasAVX2:      cpu.X86.HasAVX2,
		HasAVX512:    cpu.X86.HasAVX512,
		HasNEON:      cpu.ARM64.HasASIMD,
	}
}

// Features lists the detected SIMD features by name.
func (i Info) Features() []string {
	var out []string
	if i.HasSSE2 {
		out = append(out, "sse2")
	}
	if i.HasAVX2 {
		out = append(out, "avx2")
	}
	if i.HasAVX512 {
		out = append(out, "avx512")
	}
	if i.HasNEON {
		out = append(out, "neon")
	}
	return out
}
