// Package mesh holds the CPU-side geometry registry. Meshes are registered
// once by id and treated as immutable afterwards; the renderer uploads them
// to the GPU lazily and keys its vertex/index buffers by the same id.
package mesh

import (
	"log"
	"sync"

	"github.com/chewxy/math32"
)

// Mesh is an immutable triangle mesh: separate position/normal/uv streams
// plus a triangle index list. Positions and Normals hold three floats per
// vertex, UVs two.
type Mesh struct {
	ID        string
	Positions []float32
	Normals   []float32
	UVs       []float32
	Indices   []uint32
}

// VertexCount returns the number of vertices in the position stream.
func (m Mesh) VertexCount() int {
	return len(m.Positions) / 3
}

// InterleavedStride is the float count of one interleaved vertex:
// position (3), normal (3), uv (2).
const InterleavedStride = 8

// Interleaved packs the mesh's streams into the vertex layout the render
// pipelines consume: [px py pz nx ny nz u v] per vertex. Missing normal or
// uv streams are zero-filled.
//
// Returns:
//   - []float32: the interleaved vertex data
func (m Mesh) Interleaved() []float32 {
	count := m.VertexCount()
	out := make([]float32, count*InterleavedStride)
	for i := 0; i < count; i++ {
		base := i * InterleavedStride
		copy(out[base:base+3], m.Positions[i*3:i*3+3])
		if len(m.Normals) >= (i+1)*3 {
			copy(out[base+3:base+6], m.Normals[i*3:i*3+3])
		}
		if len(m.UVs) >= (i+1)*2 {
			copy(out[base+6:base+8], m.UVs[i*2:i*2+2])
		}
	}
	return out
}

// registry is the implementation of the Registry interface.
type registry struct {
	mu     sync.RWMutex
	meshes map[string]Mesh
}

// Registry stores meshes by id. Thread-safe; registration after the render
// loop starts is supported, uploads happen on first use.
type Registry interface {
	// Register stores a mesh under its ID. Re-registering an id replaces the
	// stored mesh but does NOT re-upload GPU copies already made from the
	// old data.
	//
	// Parameters:
	//   - m: the mesh to store
	Register(m Mesh)

	// GetMesh retrieves a mesh by id.
	//
	// Parameters:
	//   - id: the mesh identifier
	//
	// Returns:
	//   - Mesh: the stored mesh (zero value if absent)
	//   - bool: true if the id was registered
	GetMesh(id string) (Mesh, bool)

	// Meshes returns the ids of all registered meshes, in no particular
	// order.
	Meshes() []string
}

var _ Registry = &registry{}

// NewRegistry creates an empty mesh registry.
//
// Returns:
//   - Registry: the newly created registry
func NewRegistry() Registry {
	return &registry{
		meshes: make(map[string]Mesh),
	}
}

func (r *registry) Register(m Mesh) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.meshes[m.ID]; exists {
		log.Printf("[Mesh] mesh %q already registered, replacing", m.ID)
	}
	r.meshes[m.ID] = m
}

func (r *registry) GetMesh(id string) (Mesh, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.meshes[id]
	return m, ok
}

func (r *registry) Meshes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.meshes))
	for id := range r.meshes {
		ids = append(ids, id)
	}
	return ids
}

// Cube builds an axis-aligned cube with per-face normals and uvs, centered
// at the origin with the given edge length.
//
// Parameters:
//   - id: the mesh identifier
//   - size: the edge length in world units
//
// Returns:
//   - Mesh: the cube mesh
func Cube(id string, size float32) Mesh {
	h := size / 2

	// 6 faces, 4 vertices each; normals per face.
	faces := [6]struct {
		normal  [3]float32
		corners [4][3]float32
	}{
		{[3]float32{0, 0, 1}, [4][3]float32{{-h, -h, h}, {h, -h, h}, {h, h, h}, {-h, h, h}}},
		{[3]float32{0, 0, -1}, [4][3]float32{{h, -h, -h}, {-h, -h, -h}, {-h, h, -h}, {h, h, -h}}},
		{[3]float32{1, 0, 0}, [4][3]float32{{h, -h, h}, {h, -h, -h}, {h, h, -h}, {h, h, h}}},
		{[3]float32{-1, 0, 0}, [4][3]float32{{-h, -h, -h}, {-h, -h, h}, {-h, h, h}, {-h, h, -h}}},
		{[3]float32{0, 1, 0}, [4][3]float32{{-h, h, h}, {h, h, h}, {h, h, -h}, {-h, h, -h}}},
		{[3]float32{0, -1, 0}, [4][3]float32{{-h, -h, -h}, {h, -h, -h}, {h, -h, h}, {-h, -h, h}}},
	}
	faceUVs := [4][2]float32{{0, 1}, {1, 1}, {1, 0}, {0, 0}}

	m := Mesh{ID: id}
	for f, face := range faces {
		for v, corner := range face.corners {
			m.Positions = append(m.Positions, corner[0], corner[1], corner[2])
			m.Normals = append(m.Normals, face.normal[0], face.normal[1], face.normal[2])
			m.UVs = append(m.UVs, faceUVs[v][0], faceUVs[v][1])
		}
		base := uint32(f * 4)
		m.Indices = append(m.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	return m
}

// UVSphere builds a latitude/longitude sphere centered at the origin.
//
// Parameters:
//   - id: the mesh identifier
//   - radius: the sphere radius in world units
//   - segments: longitudinal subdivisions (minimum 3)
//   - rings: latitudinal subdivisions (minimum 2)
//
// Returns:
//   - Mesh: the sphere mesh
func UVSphere(id string, radius float32, segments, rings int) Mesh {
	segments = max(segments, 3)
	rings = max(rings, 2)

	m := Mesh{ID: id}
	for r := 0; r <= rings; r++ {
		phi := math32.Pi * float32(r) / float32(rings)
		for s := 0; s <= segments; s++ {
			theta := 2 * math32.Pi * float32(s) / float32(segments)
			nx := math32.Sin(phi) * math32.Cos(theta)
			ny := math32.Cos(phi)
			nz := math32.Sin(phi) * math32.Sin(theta)
			m.Positions = append(m.Positions, nx*radius, ny*radius, nz*radius)
			m.Normals = append(m.Normals, nx, ny, nz)
			m.UVs = append(m.UVs, float32(s)/float32(segments), float32(r)/float32(rings))
		}
	}
	stride := uint32(segments + 1)
	for r := 0; r < rings; r++ {
		for s := 0; s < segments; s++ {
			a := uint32(r)*stride + uint32(s)
			b := a + stride
			m.Indices = append(m.Indices, a, b, a+1, a+1, b, b+1)
		}
	}
	return m
}
