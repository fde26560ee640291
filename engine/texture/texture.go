// Package texture holds the CPU-side texture registry. Pixel data is staged
// as RGBA8; the renderer uploads textures lazily and substitutes the
// built-in primitive texture when an entity references an unknown id.
package texture

import (
	"log"
	"sync"

	"github.com/strata3d/strata/common"
)

// PrimitiveID is the id of the built-in fallback texture, a single opaque
// white pixel. It is registered in every registry and cannot be removed.
const PrimitiveID = "primitive"

// registry is the implementation of the Registry interface.
type registry struct {
	mu       sync.RWMutex
	textures map[string]common.TextureStagingData
}

// Registry stores staged texture data by id. Thread-safe.
type Registry interface {
	// Register stores texture pixel data under an id. Re-registering an id
	// replaces the stored data but does NOT re-upload GPU copies already
	// made from the old data.
	//
	// Parameters:
	//   - id: the texture identifier
	//   - data: the staged RGBA8 pixel data
	Register(id string, data common.TextureStagingData)

	// GetTexture retrieves staged texture data by id, falling back to the
	// primitive texture (with a logged diagnostic) when the id is unknown.
	//
	// Parameters:
	//   - id: the texture identifier
	//
	// Returns:
	//   - common.TextureStagingData: the staged data
	//   - string: the id actually resolved (the input id or PrimitiveID)
	GetTexture(id string) (common.TextureStagingData, string)

	// Textures returns the ids of all registered textures, in no particular
	// order.
	Textures() []string
}

var _ Registry = &registry{}

// NewRegistry creates a texture registry pre-populated with the primitive
// fallback texture.
//
// Returns:
//   - Registry: the newly created registry
func NewRegistry() Registry {
	return &registry{
		textures: map[string]common.TextureStagingData{
			PrimitiveID: {
				Pixels: []byte{0xff, 0xff, 0xff, 0xff},
				Width:  1,
				Height: 1,
			},
		},
	}
}

func (r *registry) Register(id string, data common.TextureStagingData) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.textures[id]; exists {
		log.Printf("[Texture] texture %q already registered, replacing", id)
	}
	r.textures[id] = data
}

func (r *registry) GetTexture(id string) (common.TextureStagingData, string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if data, ok := r.textures[id]; ok {
		return data, id
	}
	log.Printf("[Texture] texture %q not registered, using primitive", id)
	return r.textures[PrimitiveID], PrimitiveID
}

func (r *registry) Textures() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.textures))
	for id := range r.textures {
		ids = append(ids, id)
	}
	return ids
}

// Checker builds a two-color checkerboard texture, useful for examples and
// debugging uv layouts.
//
// Parameters:
//   - size: the texture edge length in pixels
//   - cells: the number of checker cells per edge
//   - a, b: the two RGBA cell colors
//
// Returns:
//   - common.TextureStagingData: the staged checkerboard
func Checker(size, cells uint32, a, b [4]byte) common.TextureStagingData {
	if cells == 0 {
		cells = 1
	}
	cell := max(size/cells, 1)
	pixels := make([]byte, size*size*4)
	for y := uint32(0); y < size; y++ {
		for x := uint32(0); x < size; x++ {
			c := a
			if ((x/cell)+(y/cell))%2 == 1 {
				c = b
			}
			off := (y*size + x) * 4
			copy(pixels[off:off+4], c[:])
		}
	}
	return common.TextureStagingData{Pixels: pixels, Width: size, Height: size}
}
