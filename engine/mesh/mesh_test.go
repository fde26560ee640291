package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRoundTrip(t *testing.T) {
	r := NewRegistry()

	r.Register(Cube("cube", 1))

	m, ok := r.GetMesh("cube")
	require.True(t, ok)
	assert.Equal(t, "cube", m.ID)

	_, ok = r.GetMesh("absent")
	assert.False(t, ok)

	assert.ElementsMatch(t, []string{"cube"}, r.Meshes())
}

func TestRegistryReplace(t *testing.T) {
	r := NewRegistry()

	r.Register(Cube("cube", 1))
	r.Register(Cube("cube", 2))

	m, ok := r.GetMesh("cube")
	require.True(t, ok)
	assert.Equal(t, float32(-1), m.Positions[0], "replacement stores the larger cube")
	assert.Len(t, r.Meshes(), 1)
}

func TestCubeGeometry(t *testing.T) {
	m := Cube("cube", 2)

	assert.Equal(t, 24, m.VertexCount())
	assert.Len(t, m.Indices, 36)
	assert.Len(t, m.Normals, 24*3)
	assert.Len(t, m.UVs, 24*2)

	// Every corner sits at ±half the edge length.
	for _, p := range m.Positions {
		assert.InDelta(t, 1, abs(p), 1e-6)
	}

	// Indices stay within the vertex range.
	for _, idx := range m.Indices {
		assert.Less(t, idx, uint32(24))
	}
}

func TestUVSphereGeometry(t *testing.T) {
	m := UVSphere("sphere", 2, 8, 6)

	wantVerts := (8 + 1) * (6 + 1)
	assert.Equal(t, wantVerts, m.VertexCount())
	assert.Len(t, m.Indices, 8*6*6)

	// Every vertex lies on the sphere and its normal is unit length.
	for i := 0; i < m.VertexCount(); i++ {
		px, py, pz := m.Positions[i*3], m.Positions[i*3+1], m.Positions[i*3+2]
		assert.InDelta(t, 4, px*px+py*py+pz*pz, 1e-4)

		nx, ny, nz := m.Normals[i*3], m.Normals[i*3+1], m.Normals[i*3+2]
		assert.InDelta(t, 1, nx*nx+ny*ny+nz*nz, 1e-5)
	}
}

func TestUVSphereClampsDegenerateArguments(t *testing.T) {
	m := UVSphere("sphere", 1, 1, 0)

	// Minimums of 3 segments and 2 rings.
	assert.Equal(t, (3+1)*(2+1), m.VertexCount())
}

func TestInterleavedLayout(t *testing.T) {
	m := Mesh{
		ID:        "tri",
		Positions: []float32{1, 2, 3, 4, 5, 6},
		Normals:   []float32{0, 1, 0, 0, 0, 1},
		UVs:       []float32{0.5, 0.25, 0.75, 1},
		Indices:   []uint32{0, 1, 0},
	}

	got := m.Interleaved()
	want := []float32{
		1, 2, 3, 0, 1, 0, 0.5, 0.25,
		4, 5, 6, 0, 0, 1, 0.75, 1,
	}
	assert.Equal(t, want, got)
}

func TestInterleavedZeroFillsMissingStreams(t *testing.T) {
	m := Mesh{
		ID:        "bare",
		Positions: []float32{1, 2, 3},
	}

	got := m.Interleaved()
	assert.Equal(t, []float32{1, 2, 3, 0, 0, 0, 0, 0}, got)
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
