package renderer

// BuiltinPipelineKey is the key the built-in instanced pipeline is registered
// under. Entities without a custom-shader component are drawn with it.
const BuiltinPipelineKey = "builtin_instanced"

// builtinShaderSource is the WGSL for the built-in instanced pipeline. Each
// instance reads its model matrix from the shared transform storage buffer
// via the instance_index builtin; DrawIndexed's firstInstance offsets that
// index, which is how a batch addresses its region of the buffer. Shading is
// a fixed-direction lambert term over the material texture.
const builtinShaderSource = `
struct Camera {
    view_proj: mat4x4<f32>,
};

@group(0) @binding(0) var<uniform> camera: Camera;
@group(0) @binding(1) var<storage, read> transforms: array<mat4x4<f32>>;

@group(1) @binding(0) var base_texture: texture_2d<f32>;
@group(1) @binding(1) var base_sampler: sampler;

struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) normal: vec3<f32>,
    @location(1) uv: vec2<f32>,
};

@vertex
fn vs_main(
    @builtin(instance_index) instance: u32,
    @location(0) position: vec3<f32>,
    @location(1) normal: vec3<f32>,
    @location(2) uv: vec2<f32>,
) -> VertexOutput {
    let model = transforms[instance];
    var out: VertexOutput;
    out.position = camera.view_proj * model * vec4<f32>(position, 1.0);
    out.normal = normalize((model * vec4<f32>(normal, 0.0)).xyz);
    out.uv = uv;
    return out;
}

const LIGHT_DIR: vec3<f32> = vec3<f32>(0.5, 0.7, 0.5);
const AMBIENT: f32 = 0.25;

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    let albedo = textureSample(base_texture, base_sampler, in.uv);
    let diffuse = max(dot(in.normal, normalize(LIGHT_DIR)), 0.0);
    let shade = AMBIENT + (1.0 - AMBIENT) * diffuse;
    return vec4<f32>(albedo.rgb * shade, albedo.a);
}
`
