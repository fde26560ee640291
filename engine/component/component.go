// Package component defines the closed capability set for entity behaviors.
// A component declares what it can do by implementing zero or more of the
// capability interfaces (Startable, Updatable, MeshProviding,
// ShaderProviding); the entity runtime and the renderer dispatch on
// capability presence, never on structural inspection.
package component

// Owner is the view of an owning entity that components receive at call
// time. Components never store a back-reference to their entity; the owner
// is passed into every hook invocation.
type Owner interface {
	// ID returns the owning entity's unique identifier.
	ID() string

	// Position returns the entity's position (x, y, z, w).
	Position() [4]float32

	// SetPosition mutates the entity's position.
	//
	// Parameters:
	//   - x, y, z: new position components
	SetPosition(x, y, z float32)

	// Rotation returns the entity's rotation matrix (column-major).
	Rotation() [16]float32

	// SetRotation replaces the entity's rotation matrix and marks the
	// entity's cached inverse rotation dirty.
	//
	// Parameters:
	//   - m: the new rotation matrix (column-major)
	SetRotation(m [16]float32)

	// Scale returns the entity's scale (x, y, z, w).
	Scale() [4]float32

	// SetScale mutates the entity's scale.
	//
	// Parameters:
	//   - x, y, z: new scale factors
	SetScale(x, y, z float32)
}

// Component is the common interface for all entity behaviors. Concrete
// behavior comes from the optional capability interfaces below; Component
// itself only identifies the component for diagnostics.
type Component interface {
	// Name returns a short identifier for this component kind, used in
	// diagnostics.
	Name() string
}

// Startable is the capability for components that run a hook once, at the
// moment they are attached to an entity.
type Startable interface {
	// Start is invoked immediately when the component is attached.
	//
	// Parameters:
	//   - owner: the entity the component was attached to
	Start(owner Owner)
}

// Updatable is the capability for components that mutate state every frame.
// An entity with at least one Updatable component is classified non-static.
type Updatable interface {
	// Update advances the component by one tick. Components are free to
	// mutate the owner's position, rotation, and scale.
	//
	// Parameters:
	//   - owner: the entity that owns this component
	//   - deltaTime: elapsed time since the last update in seconds
	Update(owner Owner, deltaTime float32)
}

// MeshProviding is the capability for components that bind a mesh and
// material to their entity, making it drawable.
type MeshProviding interface {
	// MeshID returns the id of the mesh to draw for the owning entity.
	MeshID() string

	// TextureID returns the id of the texture/material to draw with.
	TextureID() string
}

// BufferSpec describes one auxiliary GPU buffer a custom-shader component
// requires, keyed by bind group binding index.
type BufferSpec struct {
	// Binding is the bind group binding index for this buffer.
	Binding int
	// Size is the buffer size in bytes.
	Size uint64
	// Label is a debug label for the buffer.
	Label string
}

// ShaderProviding is the capability for components that draw their entity
// with an alternate render pipeline instead of the shared batch pipeline.
type ShaderProviding interface {
	// PipelineKey returns the key of the registered render pipeline to use.
	PipelineKey() string

	// AuxBuffers returns the auxiliary buffer specifications this pipeline
	// requires, or nil if none.
	AuxBuffers() []BufferSpec
}
