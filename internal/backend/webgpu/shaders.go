package webgpu

import (
	"strconv"
	"strings"
)

// WGSL compute kernels of the scan. The element type, workgroup size and
// per-thread item count are substituted per pipeline.

// workgroupSize is the largest number of threads per workgroup.
const workgroupSize = 256

// State Cells are four u32 words: tag, aggregate, inclusive prefix and
// exclusive prefix. Payload words are stored before the tag.
const (
	cellWords  = 4
	cellBytes  = cellWords * 4
	paramBytes = 16
)

// The control buffer of a look-back level: claim counter, stalled block + 1,
// the predecessor it waited on, and the spins spent.
const (
	ctrlNext = iota
	ctrlStalled
	ctrlWaiting
	ctrlSpins
	ctrlWords
)

const controlBytes = ctrlWords * 4

// cellWGSL declares the State Cell layout, the tag encoding and the dispatch
// parameters shared by every kernel.
const cellWGSL = `
const UNINITIALIZED: u32 = 0u;
const AGGREGATE_KNOWN: u32 = 1u;
const AGGREGATE_ZERO: u32 = 2u;
const PREFIX_KNOWN: u32 = 3u;
const PREFIX_ZERO: u32 = 4u;

const WG: u32 = {{WG}}u;
const ITEMS: u32 = {{ITEMS}}u;
const CAPACITY: u32 = {{CAPACITY}}u;

struct Cell {
    tag: atomic<u32>,
    aggregate: atomic<u32>,
    inclusive: atomic<u32>,
    exclusive: atomic<u32>,
}

struct Params {
    size: u32,
    base: u32,
    spin_limit: u32,
    claim: u32,
}

fn publish_aggregate(b: u32, aggregate: {{T}}) {
    atomicStore(&cells[b].aggregate, bitcast<u32>(aggregate));
    atomicStore(&cells[b].tag, select(AGGREGATE_KNOWN, AGGREGATE_ZERO, aggregate == {{T}}(0)));
}

fn publish_prefix(b: u32, exclusive: {{T}}, inclusive: {{T}}) {
    atomicStore(&cells[b].exclusive, bitcast<u32>(exclusive));
    atomicStore(&cells[b].inclusive, bitcast<u32>(inclusive));
    atomicStore(&cells[b].tag, select(PREFIX_KNOWN, PREFIX_ZERO, inclusive == {{T}}(0)));
}
`

// blockScanWGSL scans one block in workgroup memory. Thread t owns ITEMS
// consecutive elements.
const blockScanWGSL = `
var<workgroup> partial: array<{{T}}, {{WG}}>;

// scan_block leaves each thread's run holding its local inclusive scan and
// partial holding the inclusive scan of the run sums. It returns the block
// aggregate.
fn scan_block(b: u32, tid: u32) -> {{T}} {
    let base = b * CAPACITY + tid * ITEMS;
    var sum = {{T}}(0);
    for (var k = 0u; k < ITEMS; k = k + 1u) {
        let idx = base + k;
        if (idx < params.size) {
            sum = sum + data[idx];
            data[idx] = sum;
        }
    }
    partial[tid] = sum;
    workgroupBarrier();

    for (var offset = 1u; offset < WG; offset = offset << 1u) {
        var v = {{T}}(0);
        if (tid >= offset) {
            v = partial[tid - offset];
        }
        workgroupBarrier();
        partial[tid] = partial[tid] + v;
        workgroupBarrier();
    }
    return partial[WG - 1u];
}

// finish_block adds prefix and the sums of the preceding runs to this
// thread's run.
fn finish_block(b: u32, tid: u32, prefix: {{T}}) {
    var offset = prefix;
    if (tid > 0u) {
        offset = offset + partial[tid - 1u];
    }
    let base = b * CAPACITY + tid * ITEMS;
    for (var k = 0u; k < ITEMS; k = k + 1u) {
        let idx = base + k;
        if (idx < params.size) {
            data[idx] = data[idx] + offset;
        }
    }
}
`

// lookbackShader resolves a whole level in one dispatch. Lane 0 claims the
// logical block, publishes its aggregate, walks back over the predecessors
// and publishes the prefix.
const lookbackShader = `
@group(0) @binding(0) var<storage, read_write> data: array<{{T}}>;
@group(0) @binding(1) var<storage, read_write> cells: array<Cell>;
@group(0) @binding(3) var<storage, read_write> control: array<atomic<u32>, 4>;
@group(0) @binding(4) var<uniform> params: Params;

var<workgroup> block_id: u32;
var<workgroup> block_prefix: {{T}};

fn look_back(b: u32) -> {{T}} {
    var prefix = {{T}}(0);
    var j = b;
    var spins = 0u;
    loop {
        if (j == 0u) {
            break;
        }
        let p = j - 1u;
        let tag = atomicLoad(&cells[p].tag);
        if (tag == PREFIX_KNOWN) {
            prefix = prefix + bitcast<{{T}}>(atomicLoad(&cells[p].inclusive));
            break;
        }
        if (tag == PREFIX_ZERO) {
            break;
        }
        if (tag == AGGREGATE_KNOWN) {
            prefix = prefix + bitcast<{{T}}>(atomicLoad(&cells[p].aggregate));
            j = p;
            continue;
        }
        if (tag == AGGREGATE_ZERO) {
            j = p;
            continue;
        }
        spins = spins + 1u;
        if (spins >= params.spin_limit) {
            if (atomicCompareExchangeWeak(&control[1], 0u, b + 1u).exchanged) {
                atomicStore(&control[2], p);
                atomicStore(&control[3], spins);
            }
            break;
        }
    }
    return prefix;
}

@compute @workgroup_size({{WG}})
fn main(
    @builtin(local_invocation_id) local_id: vec3<u32>,
    @builtin(workgroup_id) group_id: vec3<u32>
) {
    let tid = local_id.x;
    if (tid == 0u) {
        let claimed = atomicAdd(&control[0], 1u);
        block_id = select(group_id.x, claimed, params.claim != 0u);
    }
    let b = workgroupUniformLoad(&block_id);

    let aggregate = scan_block(b, tid);
    if (tid == 0u) {
        publish_aggregate(b, aggregate);
        let exclusive = look_back(b);
        publish_prefix(b, exclusive, exclusive + aggregate);
        block_prefix = exclusive;
    }
    let prefix = workgroupUniformLoad(&block_prefix);
    finish_block(b, tid, prefix);
}
`

// reduceShader scans each block locally and writes its aggregate to the next
// level.
const reduceShader = `
@group(0) @binding(0) var<storage, read_write> data: array<{{T}}>;
@group(0) @binding(1) var<storage, read_write> cells: array<Cell>;
@group(0) @binding(2) var<storage, read_write> upper: array<{{T}}>;
@group(0) @binding(4) var<uniform> params: Params;

@compute @workgroup_size({{WG}})
fn main(
    @builtin(local_invocation_id) local_id: vec3<u32>,
    @builtin(workgroup_id) group_id: vec3<u32>
) {
    let tid = local_id.x;
    let b = params.base + group_id.x;
    let aggregate = scan_block(b, tid);
    finish_block(b, tid, {{T}}(0));
    if (tid == 0u) {
        upper[b] = aggregate;
        publish_aggregate(b, aggregate);
    }
}
`

// addPrefixShader applies the prefixes resolved by the level above. upper
// holds the inclusive scan of this level's aggregates.
const addPrefixShader = `
@group(0) @binding(0) var<storage, read_write> data: array<{{T}}>;
@group(0) @binding(1) var<storage, read_write> cells: array<Cell>;
@group(0) @binding(2) var<storage, read> upper: array<{{T}}>;
@group(0) @binding(4) var<uniform> params: Params;

@compute @workgroup_size({{WG}})
fn main(
    @builtin(local_invocation_id) local_id: vec3<u32>,
    @builtin(workgroup_id) group_id: vec3<u32>
) {
    let tid = local_id.x;
    let b = params.base + group_id.x;
    var exclusive = {{T}}(0);
    if (b > 0u) {
        exclusive = upper[b - 1u];
    }
    if (tid == 0u) {
        publish_prefix(b, exclusive, upper[b]);
    }
    let base = b * CAPACITY + tid * ITEMS;
    for (var k = 0u; k < ITEMS; k = k + 1u) {
        let idx = base + k;
        if (idx < params.size) {
            data[idx] = data[idx] + exclusive;
        }
    }
}
`

// kernel names one of the three scan kernels.
type kernel string

const (
	kernelLookBack  kernel = "lookback"
	kernelReduce    kernel = "reduce"
	kernelAddPrefix kernel = "add_prefix"
)

// geometry splits a block of capacity elements over a workgroup.
func geometry(capacity int) (threads, items int) {
	threads = min(capacity, workgroupSize)
	return threads, capacity / threads
}

// shaderName is the cache key of a specialised kernel.
func shaderName(k kernel, elem string, capacity int) string {
	return string(k) + "_" + elem + "_" + strconv.Itoa(capacity)
}

// shaderSource specialises kernel k for the element type and block capacity.
func shaderSource(k kernel, elem string, capacity int) string {
	threads, items := geometry(capacity)
	body := lookbackShader
	prelude := cellWGSL + blockScanWGSL
	switch k {
	case kernelReduce:
		body = reduceShader
	case kernelAddPrefix:
		body, prelude = addPrefixShader, cellWGSL
	}
	return strings.NewReplacer(
		"{{T}}", elem,
		"{{WG}}", strconv.Itoa(threads),
		"{{ITEMS}}", strconv.Itoa(items),
		"{{CAPACITY}}", strconv.Itoa(capacity),
	).Replace(prelude + body)
}
