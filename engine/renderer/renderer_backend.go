package renderer

import (
	"github.com/strata3d/strata/common"
)

// RendererBackendType identifies the GPU backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU RendererBackendType = iota
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// MSAASampleCount controls the number of samples used for multisample anti-aliasing (MSAA).
// Only specific power-of-two values are valid for GPU hardware. WebGPU guarantees support for
// 1 (off) and 4; higher values (8, 16) are adapter-dependent and may not be available.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing (sample count 1).
	MSAAOff MSAASampleCount = 1

	// MSAA4x enables 4× multisample anti-aliasing. This is the default.
	MSAA4x MSAASampleCount = 4

	// MSAA8x enables 8× multisample anti-aliasing. Adapter-dependent; not all hardware supports this.
	MSAA8x MSAASampleCount = 8

	// MSAA16x enables 16× multisample anti-aliasing. Adapter-dependent; not all hardware supports this.
	MSAA16x MSAASampleCount = 16
)

// RendererBackend is the GPU-facing half of the renderer. It owns the device,
// the shared instance and camera buffers, per-mesh vertex/index buffers,
// per-material texture bind groups, and the pipeline objects, keyed by the
// same string ids the Renderer facade uses. The facade never touches GPU
// handles directly, which keeps the frame logic testable against an
// in-memory backend.
type RendererBackend interface {
	// ConfigureSurface (re)configures the swapchain for a new surface size.
	// Called once at startup and again on every window resize.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	ConfigureSurface(width, height int)

	// SetPresentMode sets the surface present mode which controls how frames
	// are delivered to the display. A ConfigureSurface call is required
	// afterwards for the new mode to take effect.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)

	// InitMeshBuffers creates the GPU vertex and index buffers for a mesh id
	// from raw byte data. Calling it again for an id that already has
	// buffers replaces them.
	//
	// Parameters:
	//   - id: the mesh identifier
	//   - vertexData: interleaved vertex bytes
	//   - indexData: uint32 index bytes
	//   - indexCount: the number of indices, used by DrawIndexed
	//
	// Returns:
	//   - error: an error if buffer creation fails
	InitMeshBuffers(id string, vertexData, indexData []byte, indexCount uint32) error

	// HasMeshBuffers reports whether a mesh id already has GPU buffers.
	//
	// Parameters:
	//   - id: the mesh identifier
	//
	// Returns:
	//   - bool: true if buffers exist for the id
	HasMeshBuffers(id string) bool

	// InitMaterial creates the GPU texture and material bind group for a
	// material id from staged RGBA8 pixel data.
	//
	// Parameters:
	//   - id: the material identifier
	//   - data: the staged pixel data
	//
	// Returns:
	//   - error: an error if texture or bind group creation fails
	InitMaterial(id string, data common.TextureStagingData) error

	// HasMaterial reports whether a material id already has a bind group.
	//
	// Parameters:
	//   - id: the material identifier
	//
	// Returns:
	//   - bool: true if a bind group exists for the id
	HasMaterial(id string) bool

	// EnsureInstanceCapacity grows the shared instance transform buffer so it
	// can hold at least the given number of instances. The buffer never
	// shrinks. Growing discards the old contents and invalidates the global
	// bind group, which is recreated against the new buffer; the caller must
	// rewrite the full buffer afterwards.
	//
	// Parameters:
	//   - instances: the required instance count
	//
	// Returns:
	//   - bool: true if the buffer grew
	//   - error: an error if buffer or bind group creation fails
	EnsureInstanceCapacity(instances uint32) (bool, error)

	// InstanceCapacity returns the current instance capacity of the shared
	// transform buffer.
	InstanceCapacity() uint32

	// WriteInstanceBuffer writes instance transform bytes into the shared
	// buffer starting at the given instance index.
	//
	// Parameters:
	//   - firstInstance: the destination instance index
	//   - data: the transform bytes (a multiple of 64)
	WriteInstanceBuffer(firstInstance uint32, data []byte)

	// WriteCameraBuffer writes the camera uniform (a single column-major
	// view-projection matrix, 64 bytes).
	//
	// Parameters:
	//   - data: the uniform bytes
	WriteCameraBuffer(data []byte)

	// RegisterRenderPipeline compiles a WGSL module and creates a render
	// pipeline under the given key. All pipelines share the same two-group
	// layout: group 0 is the camera uniform plus the instance transform
	// storage buffer, group 1 is the material texture plus sampler. Entry
	// points are vs_main and fs_main.
	//
	// Parameters:
	//   - key: the pipeline cache key
	//   - source: the WGSL source code
	//
	// Returns:
	//   - error: an error if shader or pipeline creation fails
	RegisterRenderPipeline(key, source string) error

	// HasPipeline reports whether a pipeline key has been registered.
	//
	// Parameters:
	//   - key: the pipeline cache key
	//
	// Returns:
	//   - bool: true if the pipeline exists
	HasPipeline(key string) bool

	// BeginFrame acquires the swapchain texture and begins the main render
	// pass with the global bind group set. Must be paired with EndFrame.
	//
	// Returns:
	//   - error: an error if the swapchain texture could not be acquired
	BeginFrame() error

	// SetPipeline binds a registered pipeline on the current render pass.
	//
	// Parameters:
	//   - key: the pipeline cache key
	//
	// Returns:
	//   - error: an error if the key is not registered
	SetPipeline(key string) error

	// SetMesh binds a mesh's vertex and index buffers on the current render
	// pass. Subsequent DrawIndexed calls use this mesh's index count.
	//
	// Parameters:
	//   - id: the mesh identifier
	//
	// Returns:
	//   - error: an error if the id has no buffers
	SetMesh(id string) error

	// SetMaterial binds a material's bind group on the current render pass.
	//
	// Parameters:
	//   - id: the material identifier
	//
	// Returns:
	//   - error: an error if the id has no bind group
	SetMaterial(id string) error

	// DrawIndexed encodes one instanced draw of the currently bound mesh.
	// firstInstance offsets the instance_index builtin, which is how batches
	// address their region of the shared transform buffer.
	//
	// Parameters:
	//   - instanceCount: the number of instances to draw
	//   - firstInstance: the first instance index
	DrawIndexed(instanceCount, firstInstance uint32)

	// EndFrame ends the render pass and submits the command buffer to the
	// GPU queue. Does not present — call Present afterwards.
	EndFrame()

	// Present presents the surface to the display and releases the swapchain
	// texture. Must be called once per frame after EndFrame.
	Present()
}
