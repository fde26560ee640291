// Package renderer draws batched scene content through a GPU backend. The
// Renderer facade owns the batch layout, lazy mesh/material uploads, the
// grow-only shared instance buffer, and the per-frame draw sequence; the
// RendererBackend owns the GPU handles. One bad entity never halts a frame:
// missing meshes and pipelines are skipped with a one-time diagnostic.
package renderer

import (
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/chewxy/math32"

	"github.com/strata3d/strata/common"
	"github.com/strata3d/strata/engine/batch"
	"github.com/strata3d/strata/engine/entity"
	"github.com/strata3d/strata/engine/mesh"
	"github.com/strata3d/strata/engine/texture"
	"github.com/strata3d/strata/engine/window"
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	backend  RendererBackend
	meshes   mesh.Registry
	textures texture.Registry
	builder  batch.Builder

	layout     batch.Layout
	haveLayout bool

	pipelineKeys map[string]struct{}
	// materialFor caches texture-id resolution (including the primitive
	// fallback) so the registry's missing-texture diagnostic fires once.
	materialFor map[string]string
	warned      map[string]struct{}

	cameraSig string

	fovY, near, far float32

	// Pre-creation config collected from builder options
	backendType          RendererBackendType
	initialCapacity      uint32
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
	pendingMSAA          *MSAASampleCount
}

// Renderer is the high-level rendering API: scene content registered as a
// static/non-static partition is laid out into batches, uploaded into the
// shared instance buffer, and drawn with one instanced call per batch.
type Renderer interface {
	// UploadMesh creates GPU buffers for a registered mesh. Idempotent: a
	// mesh that already has buffers is left untouched, so callers may invoke
	// it every frame.
	//
	// Parameters:
	//   - id: the mesh identifier in the mesh registry
	//
	// Returns:
	//   - error: an error if the id is unregistered or buffer creation fails
	UploadMesh(id string) error

	// EnsureCapacity grows the shared instance buffer to hold at least the
	// given number of instances. The buffer never shrinks. Growth discards
	// the buffer contents and invalidates the dependent bind group; the next
	// full scene registration rewrites everything.
	//
	// Parameters:
	//   - instances: the required instance count
	//
	// Returns:
	//   - error: an error if buffer creation fails
	EnsureCapacity(instances uint32) error

	// Capacity returns the current instance capacity of the shared buffer.
	Capacity() uint32

	// RegisterPipeline compiles WGSL source into a render pipeline cached
	// under the given key. Keys that are already registered are skipped to
	// avoid duplicate GPU resource creation.
	//
	// Parameters:
	//   - key: the pipeline cache key
	//   - source: the WGSL source (vs_main / fs_main entry points, shared
	//     two-group layout)
	//
	// Returns:
	//   - error: an error if shader or pipeline creation fails
	RegisterPipeline(key, source string) error

	// RegisterSceneObjectsSeparated lays out a frame's visible entities into
	// the shared instance buffer. With rebuildStatic true (or on the first
	// call) the full layout is rebuilt and the whole buffer rewritten; with
	// rebuildStatic false only the non-static region is recomposed and
	// rewritten, keeping the static prefix untouched. A partial update that
	// outgrows the buffer falls back to a full rebuild, since growth
	// discards the static region.
	//
	// Parameters:
	//   - static: the frame's visible static entities
	//   - nonStatic: the frame's visible non-static entities
	//   - rebuildStatic: true to force a full layout rebuild
	//
	// Returns:
	//   - error: an error if buffer growth fails
	RegisterSceneObjectsSeparated(static, nonStatic []entity.Entity, rebuildStatic bool) error

	// RegisterCamera derives the view-projection matrix from a camera
	// entity's transform and writes the camera uniform. The write is
	// memoized on a signature of (position, rotation, aspect): repeated
	// calls with an unchanged camera cost a string comparison.
	//
	// Parameters:
	//   - cam: the camera entity (nil logs and returns)
	//   - aspect: the surface width/height ratio
	RegisterCamera(cam entity.Entity, aspect float32)

	// Layout returns the batch layout of the last registered scene content.
	Layout() batch.Layout

	// Render draws one frame: the built-in pipeline draws every batch (mesh
	// bound once per distinct mesh id), then custom-pipeline entities draw
	// one by one, then the frame is submitted and presented. Batches whose
	// mesh is missing and custom draws whose pipeline is missing are skipped
	// with a one-time diagnostic.
	//
	// Returns:
	//   - error: an error if the swapchain texture could not be acquired
	Render() error

	// Resize reconfigures the backend surface for a new window size.
	//
	// Parameters:
	//   - width: the new surface width in pixels
	//   - height: the new surface height in pixels
	Resize(width, height int)

	// SetPresentMode sets the surface present mode. A Resize call is
	// required afterwards for the new mode to take effect.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer backed by the given backend type, drawing
// to the given window and sourcing geometry and textures from the given
// registries. The built-in instanced pipeline is registered during
// construction; failures there are fatal since nothing can be drawn
// without a device.
//
// Parameters:
//   - backendType: the type of rendering backend to use (e.g., WGPU)
//   - win: the window providing the surface descriptor and initial size
//   - meshes: the mesh registry to upload geometry from
//   - textures: the texture registry to upload material textures from
//   - options: variadic list of RendererBuilderOption functions
//
// Returns:
//   - Renderer: a new Renderer configured with the specified options
func NewRenderer(backendType RendererBackendType, win window.Window, meshes mesh.Registry, textures texture.Registry, options ...RendererBuilderOption) Renderer {
	r := newRendererCore(meshes, textures, options...)
	r.backendType = backendType

	msaa := MSAA4x
	if r.pendingMSAA != nil {
		msaa = *r.pendingMSAA
	}

	switch backendType {
	case BackendTypeWGPU:
		fallthrough
	default:
		r.backend = newWGPUBackend(win.SurfaceDescriptor(), r.forceFallbackAdapter, msaa, r.initialCapacity)
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}
	r.backend.ConfigureSurface(win.Width(), win.Height())

	if err := r.RegisterPipeline(BuiltinPipelineKey, builtinShaderSource); err != nil {
		panic(err)
	}
	return r
}

// newRendererCore assembles a renderer without a backend. NewRenderer
// attaches the GPU backend; tests attach an in-memory one.
func newRendererCore(meshes mesh.Registry, textures texture.Registry, options ...RendererBuilderOption) *renderer {
	r := &renderer{
		mu:              &sync.Mutex{},
		meshes:          meshes,
		textures:        textures,
		pipelineKeys:    make(map[string]struct{}),
		materialFor:     make(map[string]string),
		warned:          make(map[string]struct{}),
		fovY:            math32.Pi / 3,
		near:            0.1,
		far:             1000,
		initialCapacity: 1024,
	}
	for _, opt := range options {
		opt(r)
	}
	if r.builder == nil {
		r.builder = batch.NewBuilder()
	}
	return r
}

func (r *renderer) UploadMesh(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.uploadMeshLocked(id)
}

func (r *renderer) uploadMeshLocked(id string) error {
	if r.backend.HasMeshBuffers(id) {
		return nil
	}
	m, ok := r.meshes.GetMesh(id)
	if !ok {
		return fmt.Errorf("mesh %q not registered", id)
	}
	vertexData := common.SliceToBytes(m.Interleaved())
	indexData := common.SliceToBytes(m.Indices)
	if err := r.backend.InitMeshBuffers(id, vertexData, indexData, uint32(len(m.Indices))); err != nil {
		return fmt.Errorf("failed to upload mesh %q: %w", id, err)
	}
	return nil
}

func (r *renderer) EnsureCapacity(instances uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ensureCapacityLocked(instances)
}

func (r *renderer) ensureCapacityLocked(instances uint32) error {
	grown, err := r.backend.EnsureInstanceCapacity(instances)
	if err != nil {
		return fmt.Errorf("failed to grow instance buffer to %d instances: %w", instances, err)
	}
	if grown {
		log.Printf("[Renderer] instance buffer grown to %d instances", r.backend.InstanceCapacity())
	}
	return nil
}

func (r *renderer) Capacity() uint32 {
	return r.backend.InstanceCapacity()
}

func (r *renderer) RegisterPipeline(key, source string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.pipelineKeys[key]; exists {
		return nil
	}
	if err := r.backend.RegisterRenderPipeline(key, source); err != nil {
		return fmt.Errorf("failed to register pipeline %q: %w", key, err)
	}
	r.pipelineKeys[key] = struct{}{}
	return nil
}

func (r *renderer) RegisterSceneObjectsSeparated(static, nonStatic []entity.Entity, rebuildStatic bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.haveLayout || rebuildStatic {
		return r.rebuildFullLocked(static, nonStatic)
	}

	nl := r.builder.BuildNonStatic(nonStatic, r.layout.NonStaticBase)
	needed := r.layout.NonStaticBase + uint32(len(nl.Transforms)/batch.StrideFloats)
	if needed > r.backend.InstanceCapacity() {
		// Growing discards the static region, so a partial update that
		// outgrows the buffer becomes a full rebuild.
		return r.rebuildFullLocked(static, nonStatic)
	}

	if len(nl.Transforms) > 0 {
		r.backend.WriteInstanceBuffer(r.layout.NonStaticBase, common.SliceToBytes(nl.Transforms))
	}

	custom := make([]batch.CustomDraw, 0, len(r.layout.Custom)+len(nl.Custom))
	for _, cd := range r.layout.Custom {
		if cd.Index < r.layout.NonStaticBase {
			custom = append(custom, cd)
		}
	}
	custom = append(custom, nl.Custom...)

	r.layout.NonStatic = nl.Batches
	r.layout.Custom = custom
	return nil
}

func (r *renderer) rebuildFullLocked(static, nonStatic []entity.Entity) error {
	l := r.builder.Build(static, nonStatic)
	total := uint32(len(l.Transforms) / batch.StrideFloats)

	if total > 0 {
		if err := r.ensureCapacityLocked(total); err != nil {
			return err
		}
		r.backend.WriteInstanceBuffer(0, common.SliceToBytes(l.Transforms))
	}

	r.layout = l
	r.haveLayout = true
	return nil
}

func (r *renderer) RegisterCamera(cam entity.Entity, aspect float32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cam == nil {
		r.warnOnce("camera:nil", "[Renderer] RegisterCamera: nil camera entity")
		return
	}

	pos := cam.Position()
	rot := cam.Rotation()
	sig := fmt.Sprintf("%v|%v|%v", pos, rot, aspect)
	if sig == r.cameraSig {
		return
	}

	invRot := cam.RequestInverseRotation()

	var view, proj, viewProj [16]float32
	common.ViewFromRotationPosition(view[:], invRot[:], [3]float32{pos[0], pos[1], pos[2]})
	common.Perspective(proj[:], r.fovY, aspect, r.near, r.far)
	common.Mul4(viewProj[:], proj[:], view[:])

	r.backend.WriteCameraBuffer(common.SliceToBytes(viewProj[:]))
	r.cameraSig = sig
}

func (r *renderer) Layout() batch.Layout {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.layout
}

func (r *renderer) Render() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.backend.BeginFrame(); err != nil {
		return fmt.Errorf("failed to begin frame: %w", err)
	}
	r.drawBatchesLocked()
	r.drawCustomLocked()
	r.backend.EndFrame()
	r.backend.Present()
	return nil
}

// drawItem pairs a batch with its key for draw-order sorting.
type drawItem struct {
	key batch.Key
	b   batch.Batch
}

func (r *renderer) drawBatchesLocked() {
	items := make([]drawItem, 0, len(r.layout.Static)+len(r.layout.NonStatic))
	for k, b := range r.layout.Static {
		items = append(items, drawItem{key: k, b: b})
	}
	for k, b := range r.layout.NonStatic {
		items = append(items, drawItem{key: k, b: b})
	}
	if len(items) == 0 {
		return
	}

	// Sorting by mesh id first means each distinct mesh binds once per frame.
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.key.MeshID != b.key.MeshID {
			return a.key.MeshID < b.key.MeshID
		}
		if a.key.MaterialID != b.key.MaterialID {
			return a.key.MaterialID < b.key.MaterialID
		}
		return a.b.Base < b.b.Base
	})

	if err := r.backend.SetPipeline(BuiltinPipelineKey); err != nil {
		r.warnOnce("pipeline:"+BuiltinPipelineKey, "[Renderer] %v, skipping batches", err)
		return
	}

	boundMesh := ""
	boundMaterial := ""
	for _, it := range items {
		if it.key.MeshID != boundMesh {
			if !r.bindMeshLocked(it.key.MeshID) {
				boundMesh = ""
				continue
			}
			boundMesh = it.key.MeshID
		}
		if it.key.MaterialID != boundMaterial {
			r.bindMaterialLocked(it.key.MaterialID)
			boundMaterial = it.key.MaterialID
		}
		r.backend.DrawIndexed(it.b.Count, it.b.Base)
	}
}

func (r *renderer) drawCustomLocked() {
	if len(r.layout.Custom) == 0 {
		return
	}

	customs := make([]batch.CustomDraw, len(r.layout.Custom))
	copy(customs, r.layout.Custom)
	sort.Slice(customs, func(i, j int) bool {
		return customs[i].Index < customs[j].Index
	})

	for _, cd := range customs {
		if _, registered := r.pipelineKeys[cd.PipelineKey]; !registered {
			r.warnOnce("pipeline:"+cd.PipelineKey, "[Renderer] pipeline %q not registered, skipping entity %q", cd.PipelineKey, cd.EntityID)
			continue
		}
		if len(cd.AuxBuffers) > 0 {
			r.warnOnce("aux:"+cd.PipelineKey, "[Renderer] pipeline %q declares aux buffers, which the shared pipeline layout does not carry; ignoring", cd.PipelineKey)
		}
		if err := r.backend.SetPipeline(cd.PipelineKey); err != nil {
			r.warnOnce("pipeline:"+cd.PipelineKey, "[Renderer] %v, skipping entity %q", err, cd.EntityID)
			continue
		}
		if !r.bindMeshLocked(cd.MeshID) {
			continue
		}
		r.bindMaterialLocked(cd.MaterialID)
		r.backend.DrawIndexed(1, cd.Index)
	}
}

// bindMeshLocked lazily uploads and binds a mesh, reporting false (with a
// one-time diagnostic) when the mesh cannot be drawn.
func (r *renderer) bindMeshLocked(id string) bool {
	if err := r.uploadMeshLocked(id); err != nil {
		r.warnOnce("mesh:"+id, "[Renderer] %v, skipping draws for mesh %q", err, id)
		return false
	}
	if err := r.backend.SetMesh(id); err != nil {
		r.warnOnce("mesh:"+id, "[Renderer] %v, skipping draws for mesh %q", err, id)
		return false
	}
	return true
}

// bindMaterialLocked lazily uploads and binds a material, resolving unknown
// texture ids to the primitive fallback.
func (r *renderer) bindMaterialLocked(id string) {
	resolved, ok := r.materialFor[id]
	if !ok {
		data, res := r.textures.GetTexture(id)
		resolved = res
		r.materialFor[id] = res
		if !r.backend.HasMaterial(res) {
			if err := r.backend.InitMaterial(res, data); err != nil {
				r.warnOnce("material:"+res, "[Renderer] %v", err)
			}
		}
	}
	if err := r.backend.SetMaterial(resolved); err != nil {
		r.warnOnce("material:"+resolved, "[Renderer] %v", err)
	}
}

func (r *renderer) Resize(width, height int) {
	r.backend.ConfigureSurface(width, height)
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) warnOnce(key, format string, args ...any) {
	if _, seen := r.warned[key]; seen {
		return
	}
	r.warned[key] = struct{}{}
	log.Printf(format, args...)
}
