//go:build windows

package webgpu

// workgroupSize is the number of threads per workgroup.
const workgroupSize = 256

// maxWorkgroupsPerDim is the WebGPU limit on workgroups along one dispatch axis.
const maxWorkgroupsPerDim = 65535

// poolParams mirrors the Params struct shared by the pooling shaders.
// Every field is a u32, so the struct packs without padding.
const poolParamsShader = `
struct Params {
    height: u32,
    width: u32,
    out_height: u32,
    out_width: u32,
    pool_h: u32,
    pool_w: u32,
    stride_y: u32,
    stride_x: u32,
    pad_top: u32,
    pad_left: u32,
    method: u32,
    area: u32,
    count: u32,
    row_pitch: u32,
}
`

// poolForwardShader computes one output cell per thread.
// Cells are stored height fastest, one H*W plane after another.
const poolForwardShader = poolParamsShader + `
@group(0) @binding(0) var<storage, read> input: array<f32>;
@group(0) @binding(1) var<storage, read_write> output: array<f32>;
@group(0) @binding(2) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
    let idx = gid.x + gid.y * params.row_pitch;
    if (idx >= params.count) {
        return;
    }

    let oy = i32(idx % params.out_height);
    let t = idx / params.out_height;
    let ox = i32(t % params.out_width);
    let plane = t / params.out_width;

    let h = i32(params.height);
    let w = i32(params.width);
    let base = plane * params.height * params.width;

    let y1 = max(oy * i32(params.stride_y) - i32(params.pad_top), 0);
    let y2 = min(oy * i32(params.stride_y) - i32(params.pad_top) + i32(params.pool_h), h);
    let x1 = max(ox * i32(params.stride_x) - i32(params.pad_left), 0);
    let x2 = min(ox * i32(params.stride_x) - i32(params.pad_left) + i32(params.pool_w), w);

    if (params.method == 0u) {
        var best = input[base + u32(y1 + h * x1)];
        for (var x = x1; x < x2; x = x + 1) {
            for (var y = y1; y < y2; y = y + 1) {
                let v = input[base + u32(y + h * x)];
                if (v > best) {
                    best = v;
                }
            }
        }
        output[idx] = best;
        return;
    }

    var acc: f32 = 0.0;
    for (var x = x1; x < x2; x = x + 1) {
        for (var y = y1; y < y2; y = y + 1) {
            acc = acc + input[base + u32(y + h * x)];
        }
    }
    var divisor = f32(params.pool_h * params.pool_w);
    if (params.area == 1u) {
        divisor = f32((y2 - y1) * (x2 - x1));
    }
    output[idx] = acc / divisor;
}
`

// poolBackwardShader computes one input cell per thread by gathering over
// every window that covers it, so no two threads write the same cell.
// Max windows recompute their argmax with the forward scan order.
const poolBackwardShader = poolParamsShader + `
@group(0) @binding(0) var<storage, read> input: array<f32>;
@group(0) @binding(1) var<storage, read> der_output: array<f32>;
@group(0) @binding(2) var<storage, read_write> der_input: array<f32>;
@group(0) @binding(3) var<uniform> params: Params;

fn first_window(i: i32, pool: i32, stride: i32, pad: i32) -> i32 {
    let n = i + pad - pool + 1;
    if (n <= 0) {
        return 0;
    }
    return (n + stride - 1) / stride;
}

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
    let idx = gid.x + gid.y * params.row_pitch;
    if (idx >= params.count) {
        return;
    }

    let h = i32(params.height);
    let w = i32(params.width);
    let sy = i32(params.stride_y);
    let sx = i32(params.stride_x);
    let py = i32(params.pad_top);
    let px = i32(params.pad_left);
    let ph = i32(params.pool_h);
    let pw = i32(params.pool_w);

    let y = i32(idx % params.height);
    let t = idx / params.height;
    let x = i32(t % params.width);
    let plane = t / params.width;
    let base = plane * params.height * params.width;
    let out_base = plane * params.out_height * params.out_width;
    let self_offset = y + h * x;

    let oy1 = first_window(y, ph, sy, py);
    let oy2 = min((y + py) / sy + 1, i32(params.out_height));
    let ox1 = first_window(x, pw, sx, px);
    let ox2 = min((x + px) / sx + 1, i32(params.out_width));

    var acc: f32 = 0.0;
    for (var ox = ox1; ox < ox2; ox = ox + 1) {
        for (var oy = oy1; oy < oy2; oy = oy + 1) {
            let grad = der_output[out_base + u32(oy + i32(params.out_height) * ox)];
            let y1 = max(oy * sy - py, 0);
            let y2 = min(oy * sy - py + ph, h);
            let x1 = max(ox * sx - px, 0);
            let x2 = min(ox * sx - px + pw, w);

            if (params.method == 0u) {
                var best_offset = y1 + h * x1;
                var best = input[base + u32(best_offset)];
                for (var wx = x1; wx < x2; wx = wx + 1) {
                    for (var wy = y1; wy < y2; wy = wy + 1) {
                        let v = input[base + u32(wy + h * wx)];
                        if (v > best) {
                            best = v;
                            best_offset = wy + h * wx;
                        }
                    }
                }
                if (best_offset == self_offset) {
                    acc = acc + grad;
                }
            } else {
                var divisor = f32(ph * pw);
                if (params.area == 1u) {
                    divisor = f32((y2 - y1) * (x2 - x1));
                }
                acc = acc + grad / divisor;
            }
        }
    }
    der_input[idx] = der_input[idx] + acc;
}
`
