package scene

// Config carries the spatial-indexing and culling parameters for a scene
// model. It is passed explicitly at construction; there are no process-wide
// tunables.
type Config struct {
	// ChunkSize is the edge length of a cubic spatial bucket in world units.
	ChunkSize float32

	// RenderDistance is the visibility radius in chunks. Chunks whose
	// offset from the camera chunk satisfies dx²+dy²+dz² ≤ RenderDistance²
	// are candidates — a sphere of chunks, not a cube.
	RenderDistance int

	// SoftCulling enables the coarse directional reject: candidate chunk
	// offsets pointing away from the camera-forward vector are discarded.
	// Enabling it forces a fresh visibility scan every query, because the
	// result depends on orientation, not just the camera's chunk.
	SoftCulling bool

	// MaxObjects is the initial instance capacity the renderer allocates
	// for this scene's transform buffer. The buffer grows past this on
	// demand and never shrinks.
	MaxObjects int
}

// DefaultConfig returns the configuration used when fields are left zero.
//
// Returns:
//   - Config: chunk size 10, render distance 4, soft culling off, 1024 objects
func DefaultConfig() Config {
	return Config{
		ChunkSize:      10,
		RenderDistance: 4,
		SoftCulling:    false,
		MaxObjects:     1024,
	}
}

// withDefaults fills zero-valued fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.ChunkSize <= 0 {
		c.ChunkSize = def.ChunkSize
	}
	if c.RenderDistance <= 0 {
		c.RenderDistance = def.RenderDistance
	}
	if c.MaxObjects <= 0 {
		c.MaxObjects = def.MaxObjects
	}
	return c
}
