package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata3d/strata/common"
	"github.com/strata3d/strata/engine/component"
)

// startRecorder records the owner id its Start hook received.
type startRecorder struct {
	startedOn string
}

func (s *startRecorder) Name() string { return "start_recorder" }

func (s *startRecorder) Start(owner component.Owner) {
	s.startedOn = owner.ID()
}

// ticker counts Update invocations.
type ticker struct {
	ticks int
}

func (c *ticker) Name() string { return "ticker" }

func (c *ticker) Update(owner component.Owner, deltaTime float32) {
	c.ticks++
}

func TestNewDefaults(t *testing.T) {
	e := New("e")

	assert.Equal(t, "e", e.ID())
	assert.Equal(t, [4]float32{0, 0, 0, 1}, e.Position())
	assert.Equal(t, [4]float32{1, 1, 1, 1}, e.Scale())
	assert.Equal(t, common.IdentityMatrix(), e.Rotation())
	assert.True(t, e.IsStatic())
	assert.Nil(t, e.ChunkKey())
}

func TestOptionsApply(t *testing.T) {
	var rot [16]float32
	common.RotationY(rot[:], 1)

	e := New("e",
		WithPosition(1, 2, 3),
		WithRotation(rot),
		WithScale(2, 2, 2),
	)

	assert.Equal(t, [4]float32{1, 2, 3, 1}, e.Position())
	assert.Equal(t, rot, e.Rotation())
	assert.Equal(t, [4]float32{2, 2, 2, 1}, e.Scale())
}

func TestStaticReclassification(t *testing.T) {
	e := New("e")
	require.True(t, e.IsStatic())

	e.AddComponent(component.NewMeshComponent("cube", "checker"))
	assert.True(t, e.IsStatic(), "mesh components carry no Updatable capability")

	e.AddComponent(component.NewRotator([3]float32{0, 1, 0}, 1))
	assert.False(t, e.IsStatic())
}

func TestConstructionComponentsClassify(t *testing.T) {
	e := New("e", WithComponents(component.NewRotator([3]float32{0, 1, 0}, 1)))
	assert.False(t, e.IsStatic(), "components attached via options must classify the entity")
}

func TestStartableFiresOnAttach(t *testing.T) {
	viaAdd := &startRecorder{}
	e := New("e")
	e.AddComponent(viaAdd)
	assert.Equal(t, "e", viaAdd.startedOn)

	viaOption := &startRecorder{}
	New("f", WithComponents(viaOption))
	assert.Equal(t, "f", viaOption.startedOn)
}

func TestRunComponentsInvokesUpdatables(t *testing.T) {
	tick := &ticker{}
	e := New("e", WithComponents(
		component.NewMeshComponent("cube", "checker"),
		tick,
	))

	e.RunComponents(0.016)
	e.RunComponents(0.016)

	assert.Equal(t, 2, tick.ticks)
}

func TestGetComponentFirstMatch(t *testing.T) {
	first := component.NewMeshComponent("cube", "checker")
	second := component.NewMeshComponent("sphere", "rust")
	e := New("e", WithComponents(first, second))

	got, ok := GetComponent[component.MeshProviding](e)
	require.True(t, ok)
	assert.Equal(t, "cube", got.MeshID())

	_, ok = GetComponent[component.ShaderProviding](e)
	assert.False(t, ok)
}

func TestInverseRotationCaching(t *testing.T) {
	e := New("e")

	// Identity rotation inverts to identity.
	assert.Equal(t, common.IdentityMatrix(), e.RequestInverseRotation())

	var rot [16]float32
	common.RotationY(rot[:], 0.7)
	e.SetRotation(rot)

	inv := e.RequestInverseRotation()

	// R * R⁻¹ must be (numerically) the identity.
	var product [16]float32
	common.Mul4(product[:], rot[:], inv[:])
	ident := common.IdentityMatrix()
	for i := range product {
		assert.InDelta(t, ident[i], product[i], 1e-5, "element %d", i)
	}

	// Repeated requests return the cached value without recomputation.
	assert.Equal(t, inv, e.RequestInverseRotation())
}

func TestInverseRotationSingularFallsBackToIdentity(t *testing.T) {
	e := New("e")
	e.SetRotation([16]float32{}) // all zeros, determinant zero

	assert.Equal(t, common.IdentityMatrix(), e.RequestInverseRotation())
}

func TestChunkKeyRoundTrip(t *testing.T) {
	e := New("e")

	key := ChunkKey{X: 1, Y: -2, Z: 3}
	e.SetChunkKey(&key)
	require.NotNil(t, e.ChunkKey())
	assert.Equal(t, key, *e.ChunkKey())

	e.SetChunkKey(nil)
	assert.Nil(t, e.ChunkKey())
}
