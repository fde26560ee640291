package renderer

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata3d/strata/common"
	"github.com/strata3d/strata/engine/batch"
	"github.com/strata3d/strata/engine/component"
	"github.com/strata3d/strata/engine/entity"
	"github.com/strata3d/strata/engine/mesh"
	"github.com/strata3d/strata/engine/texture"
)

// instanceWrite records one WriteInstanceBuffer call.
type instanceWrite struct {
	firstInstance uint32
	byteLen       int
}

// drawCall records one DrawIndexed call with the state bound at the time.
type drawCall struct {
	pipeline      string
	mesh          string
	material      string
	instanceCount uint32
	firstInstance uint32
}

// memoryBackend is an in-memory RendererBackend that records every call so
// tests can assert on the exact frame sequence without a GPU.
type memoryBackend struct {
	capacity uint32

	meshes    map[string]bool
	materials map[string]bool
	pipelines map[string]bool

	boundPipeline string
	boundMesh     string
	boundMaterial string

	instanceWrites []instanceWrite
	cameraWrites   int
	meshInits      []string
	growths        int
	draws          []drawCall
	frames         int
	presents       int
}

var _ RendererBackend = &memoryBackend{}

func newMemoryBackend(capacity uint32) *memoryBackend {
	return &memoryBackend{
		capacity:  capacity,
		meshes:    make(map[string]bool),
		materials: make(map[string]bool),
		pipelines: make(map[string]bool),
	}
}

func (m *memoryBackend) ConfigureSurface(width, height int) {}
func (m *memoryBackend) SetPresentMode(mode PresentMode)    {}

func (m *memoryBackend) InitMeshBuffers(id string, vertexData, indexData []byte, indexCount uint32) error {
	m.meshes[id] = true
	m.meshInits = append(m.meshInits, id)
	return nil
}

func (m *memoryBackend) HasMeshBuffers(id string) bool {
	return m.meshes[id]
}

func (m *memoryBackend) InitMaterial(id string, data common.TextureStagingData) error {
	m.materials[id] = true
	return nil
}

func (m *memoryBackend) HasMaterial(id string) bool {
	return m.materials[id]
}

func (m *memoryBackend) EnsureInstanceCapacity(instances uint32) (bool, error) {
	if instances <= m.capacity {
		return false, nil
	}
	m.capacity = max(instances, m.capacity*2)
	m.growths++
	return true, nil
}

func (m *memoryBackend) InstanceCapacity() uint32 {
	return m.capacity
}

func (m *memoryBackend) WriteInstanceBuffer(firstInstance uint32, data []byte) {
	m.instanceWrites = append(m.instanceWrites, instanceWrite{firstInstance: firstInstance, byteLen: len(data)})
}

func (m *memoryBackend) WriteCameraBuffer(data []byte) {
	m.cameraWrites++
}

func (m *memoryBackend) RegisterRenderPipeline(key, source string) error {
	m.pipelines[key] = true
	return nil
}

func (m *memoryBackend) HasPipeline(key string) bool {
	return m.pipelines[key]
}

func (m *memoryBackend) BeginFrame() error {
	m.frames++
	return nil
}

func (m *memoryBackend) SetPipeline(key string) error {
	if !m.pipelines[key] {
		return fmt.Errorf("pipeline %q not registered", key)
	}
	m.boundPipeline = key
	return nil
}

func (m *memoryBackend) SetMesh(id string) error {
	if !m.meshes[id] {
		return fmt.Errorf("mesh %q has no buffers", id)
	}
	m.boundMesh = id
	return nil
}

func (m *memoryBackend) SetMaterial(id string) error {
	if !m.materials[id] {
		return fmt.Errorf("material %q has no bind group", id)
	}
	m.boundMaterial = id
	return nil
}

func (m *memoryBackend) DrawIndexed(instanceCount, firstInstance uint32) {
	m.draws = append(m.draws, drawCall{
		pipeline:      m.boundPipeline,
		mesh:          m.boundMesh,
		material:      m.boundMaterial,
		instanceCount: instanceCount,
		firstInstance: firstInstance,
	})
}

func (m *memoryBackend) EndFrame() {}

func (m *memoryBackend) Present() {
	m.presents++
}

// testRenderer assembles a renderer over the memory backend with a cube and a
// sphere registered.
func testRenderer(t *testing.T, capacity uint32, options ...RendererBuilderOption) (*renderer, *memoryBackend) {
	t.Helper()

	meshes := mesh.NewRegistry()
	meshes.Register(mesh.Cube("cube", 1))
	meshes.Register(mesh.UVSphere("sphere", 1, 8, 6))
	textures := texture.NewRegistry()
	textures.Register("checker", texture.Checker(4, 2, [4]byte{255, 255, 255, 255}, [4]byte{0, 0, 0, 255}))

	r := newRendererCore(meshes, textures, options...)
	backend := newMemoryBackend(capacity)
	r.backend = backend
	require.NoError(t, r.RegisterPipeline(BuiltinPipelineKey, builtinShaderSource))
	return r, backend
}

func drawableEntity(id, meshID, textureID string, x float32) entity.Entity {
	return entity.New(id,
		entity.WithPosition(x, 0, 0),
		entity.WithComponents(component.NewMeshComponent(meshID, textureID)),
	)
}

func TestUploadMeshIdempotent(t *testing.T) {
	r, backend := testRenderer(t, 16)

	require.NoError(t, r.UploadMesh("cube"))
	require.NoError(t, r.UploadMesh("cube"))

	assert.Equal(t, []string{"cube"}, backend.meshInits)
}

func TestUploadMeshUnregistered(t *testing.T) {
	r, _ := testRenderer(t, 16)

	err := r.UploadMesh("nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

func TestEnsureCapacityGrowOnly(t *testing.T) {
	r, backend := testRenderer(t, 16)

	require.NoError(t, r.EnsureCapacity(8))
	assert.Equal(t, uint32(16), r.Capacity())
	assert.Zero(t, backend.growths)

	require.NoError(t, r.EnsureCapacity(20))
	assert.Equal(t, uint32(32), r.Capacity())
	assert.Equal(t, 1, backend.growths)

	require.NoError(t, r.EnsureCapacity(100))
	assert.Equal(t, uint32(100), r.Capacity())
}

func TestRegisterPipelineDuplicateSkipped(t *testing.T) {
	r, backend := testRenderer(t, 16)

	require.NoError(t, r.RegisterPipeline("glow", "shader source"))
	require.NoError(t, r.RegisterPipeline("glow", "different source"))

	assert.True(t, backend.HasPipeline("glow"))
	assert.Len(t, backend.pipelines, 2) // builtin + glow
}

func TestRegisterCameraMemoized(t *testing.T) {
	r, backend := testRenderer(t, 16)
	cam := entity.New("camera", entity.WithPosition(0, 5, 10))

	r.RegisterCamera(cam, 16.0/9.0)
	r.RegisterCamera(cam, 16.0/9.0)
	assert.Equal(t, 1, backend.cameraWrites)

	cam.SetPosition(1, 5, 10)
	r.RegisterCamera(cam, 16.0/9.0)
	assert.Equal(t, 2, backend.cameraWrites)

	// A changed aspect invalidates the signature too.
	r.RegisterCamera(cam, 4.0/3.0)
	assert.Equal(t, 3, backend.cameraWrites)
}

func TestRegisterCameraNilDoesNotWrite(t *testing.T) {
	r, backend := testRenderer(t, 16)

	r.RegisterCamera(nil, 16.0/9.0)

	assert.Zero(t, backend.cameraWrites)
}

func TestRegisterSceneObjectsFullRebuild(t *testing.T) {
	r, backend := testRenderer(t, 16)

	static := []entity.Entity{
		drawableEntity("s1", "cube", "checker", 1),
		drawableEntity("s2", "cube", "checker", 2),
	}
	nonStatic := []entity.Entity{
		drawableEntity("n1", "sphere", "checker", 3),
	}

	require.NoError(t, r.RegisterSceneObjectsSeparated(static, nonStatic, true))

	require.Len(t, backend.instanceWrites, 1)
	assert.Equal(t, uint32(0), backend.instanceWrites[0].firstInstance)
	assert.Equal(t, 3*batch.StrideFloats*4, backend.instanceWrites[0].byteLen)

	layout := r.Layout()
	assert.Equal(t, uint32(2), layout.NonStaticBase)
	assert.Len(t, layout.Indices, 3)
}

func TestRegisterSceneObjectsPartialWritesAtBase(t *testing.T) {
	r, backend := testRenderer(t, 16)

	static := []entity.Entity{
		drawableEntity("s1", "cube", "checker", 1),
		drawableEntity("s2", "cube", "checker", 2),
	}
	nonStatic := []entity.Entity{
		drawableEntity("n1", "sphere", "checker", 3),
		drawableEntity("n2", "sphere", "checker", 4),
	}

	require.NoError(t, r.RegisterSceneObjectsSeparated(static, nonStatic, true))
	require.NoError(t, r.RegisterSceneObjectsSeparated(static, nonStatic, false))

	require.Len(t, backend.instanceWrites, 2)
	partial := backend.instanceWrites[1]
	assert.Equal(t, uint32(2), partial.firstInstance)
	assert.Equal(t, 2*batch.StrideFloats*4, partial.byteLen)
}

func TestRegisterSceneObjectsFirstCallIgnoresPartialFlag(t *testing.T) {
	r, backend := testRenderer(t, 16)

	nonStatic := []entity.Entity{drawableEntity("n1", "cube", "checker", 1)}

	// No layout exists yet, so even rebuildStatic=false must do a full build.
	require.NoError(t, r.RegisterSceneObjectsSeparated(nil, nonStatic, false))

	require.Len(t, backend.instanceWrites, 1)
	assert.Equal(t, uint32(0), backend.instanceWrites[0].firstInstance)
}

func TestPartialUpdateOutgrowingCapacityFallsBackToFullRebuild(t *testing.T) {
	r, backend := testRenderer(t, 2)

	static := []entity.Entity{drawableEntity("s1", "cube", "checker", 1)}
	nonStatic := []entity.Entity{drawableEntity("n1", "sphere", "checker", 2)}

	require.NoError(t, r.RegisterSceneObjectsSeparated(static, nonStatic, true))
	assert.Zero(t, backend.growths)

	// Two more non-static entities exceed the capacity of 2; a partial write
	// would target a region the grown buffer no longer holds.
	grownNonStatic := []entity.Entity{
		drawableEntity("n1", "sphere", "checker", 2),
		drawableEntity("n2", "sphere", "checker", 3),
		drawableEntity("n3", "sphere", "checker", 4),
	}
	require.NoError(t, r.RegisterSceneObjectsSeparated(static, grownNonStatic, false))

	assert.Equal(t, 1, backend.growths)
	// The fallback write covers the whole buffer from instance 0.
	last := backend.instanceWrites[len(backend.instanceWrites)-1]
	assert.Equal(t, uint32(0), last.firstInstance)
	assert.Equal(t, 4*batch.StrideFloats*4, last.byteLen)
}

func TestRenderDrawsBatchesWithFirstInstance(t *testing.T) {
	r, backend := testRenderer(t, 16)

	static := []entity.Entity{
		drawableEntity("s1", "cube", "checker", 1),
		drawableEntity("s2", "cube", "checker", 2),
		drawableEntity("s3", "sphere", "checker", 3),
	}
	nonStatic := []entity.Entity{
		drawableEntity("n1", "cube", "checker", 4),
	}

	require.NoError(t, r.RegisterSceneObjectsSeparated(static, nonStatic, true))
	require.NoError(t, r.Render())

	require.Len(t, backend.draws, 3)
	for _, d := range backend.draws {
		assert.Equal(t, BuiltinPipelineKey, d.pipeline)
	}

	// Draws are ordered by mesh id, so both cube batches precede the sphere.
	assert.Equal(t, "cube", backend.draws[0].mesh)
	assert.Equal(t, drawCall{BuiltinPipelineKey, "cube", "checker", 2, 0}, backend.draws[0])
	assert.Equal(t, drawCall{BuiltinPipelineKey, "cube", "checker", 1, 3}, backend.draws[1])
	assert.Equal(t, drawCall{BuiltinPipelineKey, "sphere", "checker", 1, 2}, backend.draws[2])

	// Each distinct mesh uploads once despite multiple batches.
	assert.Equal(t, []string{"cube", "sphere"}, backend.meshInits)
	assert.Equal(t, 1, backend.frames)
	assert.Equal(t, 1, backend.presents)
}

func TestRenderCustomDraws(t *testing.T) {
	r, backend := testRenderer(t, 16)
	require.NoError(t, r.RegisterPipeline("glow", "source"))

	static := []entity.Entity{
		drawableEntity("s1", "cube", "checker", 1),
		entity.New("g1",
			entity.WithPosition(2, 0, 0),
			entity.WithComponents(
				component.NewMeshComponent("sphere", "checker"),
				component.NewCustomShader("glow", nil),
			),
		),
	}

	require.NoError(t, r.RegisterSceneObjectsSeparated(static, nil, true))
	require.NoError(t, r.Render())

	require.Len(t, backend.draws, 2)
	assert.Equal(t, drawCall{BuiltinPipelineKey, "cube", "checker", 1, 0}, backend.draws[0])
	assert.Equal(t, drawCall{"glow", "sphere", "checker", 1, 1}, backend.draws[1])
}

func TestRenderSkipsMissingMesh(t *testing.T) {
	r, backend := testRenderer(t, 16)

	static := []entity.Entity{
		drawableEntity("s1", "ghost", "checker", 1),
		drawableEntity("s2", "cube", "checker", 2),
	}

	require.NoError(t, r.RegisterSceneObjectsSeparated(static, nil, true))
	require.NoError(t, r.Render())

	// The ghost batch is skipped; the cube batch still draws and the frame
	// still presents.
	require.Len(t, backend.draws, 1)
	assert.Equal(t, "cube", backend.draws[0].mesh)
	assert.Equal(t, 1, backend.presents)

	// A second frame does not re-log or panic.
	require.NoError(t, r.Render())
	assert.Equal(t, 2, backend.presents)
}

func TestRenderSkipsUnregisteredCustomPipeline(t *testing.T) {
	r, backend := testRenderer(t, 16)

	static := []entity.Entity{
		entity.New("g1",
			entity.WithComponents(
				component.NewMeshComponent("cube", "checker"),
				component.NewCustomShader("never_registered", nil),
			),
		),
	}

	require.NoError(t, r.RegisterSceneObjectsSeparated(static, nil, true))
	require.NoError(t, r.Render())

	assert.Empty(t, backend.draws)
	assert.Equal(t, 1, backend.presents)
}

func TestRenderMissingTextureFallsBackToPrimitive(t *testing.T) {
	r, backend := testRenderer(t, 16)

	static := []entity.Entity{
		drawableEntity("s1", "cube", "no_such_texture", 1),
	}

	require.NoError(t, r.RegisterSceneObjectsSeparated(static, nil, true))
	require.NoError(t, r.Render())

	require.Len(t, backend.draws, 1)
	assert.Equal(t, texture.PrimitiveID, backend.draws[0].material)
}

// failingBackend wraps memoryBackend to make BeginFrame fail.
type failingBackend struct {
	*memoryBackend
}

func (f *failingBackend) BeginFrame() error {
	return errors.New("surface lost")
}

func TestRenderPropagatesBeginFrameError(t *testing.T) {
	r, backend := testRenderer(t, 16)
	r.backend = &failingBackend{memoryBackend: backend}

	err := r.Render()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to begin frame")
	assert.Zero(t, backend.presents)
}
