package component

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata3d/strata/common"
)

// stubOwner is a minimal Owner for exercising components without the entity
// package (which would create an import cycle in these tests).
type stubOwner struct {
	id       string
	position [4]float32
	rotation [16]float32
	scale    [4]float32
}

func newStubOwner(id string) *stubOwner {
	return &stubOwner{
		id:       id,
		position: [4]float32{0, 0, 0, 1},
		rotation: common.IdentityMatrix(),
		scale:    [4]float32{1, 1, 1, 1},
	}
}

func (s *stubOwner) ID() string                  { return s.id }
func (s *stubOwner) Position() [4]float32        { return s.position }
func (s *stubOwner) SetPosition(x, y, z float32) { s.position = [4]float32{x, y, z, 1} }
func (s *stubOwner) Rotation() [16]float32       { return s.rotation }
func (s *stubOwner) SetRotation(m [16]float32)   { s.rotation = m }
func (s *stubOwner) Scale() [4]float32           { return s.scale }
func (s *stubOwner) SetScale(x, y, z float32)    { s.scale = [4]float32{x, y, z, 1} }

// stubInput is a scriptable InputSource.
type stubInput struct {
	keys map[int]bool
	dx   float32
	dy   float32
}

func (s *stubInput) KeyDown(code int) bool { return s.keys[code] }

func (s *stubInput) MouseDelta() (float32, float32) {
	dx, dy := s.dx, s.dy
	s.dx, s.dy = 0, 0
	return dx, dy
}

func TestMeshComponentLODSelection(t *testing.T) {
	m := NewMeshComponent("cube", "checker", WithLODMesh("cube_low"))

	assert.Equal(t, "cube", m.MeshID())
	assert.Equal(t, "checker", m.TextureID())
	assert.False(t, m.LODEnabled())

	m.SetLODEnabled(true)
	assert.True(t, m.LODEnabled())
	assert.Equal(t, "cube_low", m.MeshID())

	m.SetLODEnabled(false)
	assert.Equal(t, "cube", m.MeshID())
}

func TestMeshComponentLODWithoutAlternate(t *testing.T) {
	m := NewMeshComponent("cube", "checker")

	m.SetLODEnabled(true)
	assert.Equal(t, "cube", m.MeshID(), "enabling LOD with no alternate mesh is a no-op for MeshID")
}

func TestRotatorAccumulatesRotation(t *testing.T) {
	r := NewRotator([3]float32{0, 1, 0}, math32.Pi/2) // quarter turn per second
	owner := newStubOwner("e")

	// Two half-second updates compose to a quarter turn around Y.
	r.Update(owner, 0.5)
	r.Update(owner, 0.5)

	var want [16]float32
	common.RotationY(want[:], math32.Pi/2)
	for i := range want {
		assert.InDelta(t, want[i], owner.rotation[i], 1e-5, "element %d", i)
	}
}

func TestRotatorSetSpeed(t *testing.T) {
	r := NewRotator([3]float32{1, 0, 0}, 1)
	assert.Equal(t, float32(1), r.Speed())
	assert.Equal(t, [3]float32{1, 0, 0}, r.Axis())

	r.SetSpeed(0)
	owner := newStubOwner("e")
	before := owner.rotation
	r.Update(owner, 1)
	assert.Equal(t, before, owner.rotation, "zero speed leaves rotation unchanged")
}

func TestFreecamRequiresInput(t *testing.T) {
	assert.Panics(t, func() {
		NewFreecam(nil, 1, 1)
	})
}

func TestFreecamMovesAlongCameraAxes(t *testing.T) {
	input := &stubInput{keys: map[int]bool{common.KeyW: true}}
	f := NewFreecam(input, 10, 0.01)
	owner := newStubOwner("camera")

	f.Update(owner, 0.5)

	// W with identity rotation moves along -Z at moveSpeed.
	assert.InDelta(t, 0, owner.position[0], 1e-6)
	assert.InDelta(t, -5, owner.position[2], 1e-6)

	// Shift quadruples the step.
	input.keys[common.KeyLeftShift] = true
	f.Update(owner, 0.5)
	assert.InDelta(t, -25, owner.position[2], 1e-5)
}

func TestFreecamMouseLook(t *testing.T) {
	input := &stubInput{keys: map[int]bool{}, dx: 100, dy: 0}
	f := NewFreecam(input, 10, math32.Pi/200)
	owner := newStubOwner("camera")

	f.Update(owner, 0.016)

	// 100 px at π/200 rad/px yaws by -π/2.
	var want [16]float32
	common.RotationY(want[:], -math32.Pi/2)
	for i := range want {
		assert.InDelta(t, want[i], owner.rotation[i], 1e-5, "element %d", i)
	}

	// No further delta leaves the rotation untouched.
	before := owner.rotation
	f.Update(owner, 0.016)
	assert.Equal(t, before, owner.rotation)
}

func TestFreecamPitchClamped(t *testing.T) {
	input := &stubInput{keys: map[int]bool{}, dx: 0, dy: -10000}
	f := NewFreecam(input, 10, 0.01)
	owner := newStubOwner("camera")

	f.Update(owner, 0.016)

	// A huge upward mouse sweep clamps pitch short of the pole; the rotation
	// must remain invertible.
	inv := make([]float32, 16)
	rot := owner.rotation
	require.True(t, common.Invert4(inv, rot[:]))
}
