// Package entity implements positioned scene objects that own an ordered
// collection of components. Entities cache two derived values: the inverse
// of their rotation matrix (lazily, behind a dirty flag) and their static
// classification (eagerly, recomputed on every component attach).
package entity

import (
	"log"

	"github.com/strata3d/strata/common"
	"github.com/strata3d/strata/engine/component"
)

// ChunkKey identifies the spatial bucket an entity currently occupies:
// the integer triple (⌊x/S⌋, ⌊y/S⌋, ⌊z/S⌋) for chunk size S.
type ChunkKey struct {
	X, Y, Z int32
}

// entity is the implementation of the Entity interface.
type entity struct {
	id       string
	position [4]float32
	rotation [16]float32
	scale    [4]float32

	components []component.Component

	invRotation      [16]float32
	invRotationDirty bool

	static bool

	chunkKey *ChunkKey
}

// Entity is a positioned scene object owning zero or more components.
// Once registered with a scene model, the model owns the entity exclusively;
// position changes must go through the model's SetPosition so the chunk
// index stays consistent.
type Entity interface {
	// ID returns the entity's unique identifier.
	ID() string

	// Position returns the entity's position (x, y, z, w).
	Position() [4]float32

	// SetPosition mutates the entity's position. This does NOT update any
	// chunk index; scene-registered entities must be moved through the
	// scene model instead.
	//
	// Parameters:
	//   - x, y, z: new position components
	SetPosition(x, y, z float32)

	// Rotation returns the entity's rotation matrix (column-major).
	Rotation() [16]float32

	// SetRotation replaces the rotation matrix and marks the cached inverse
	// rotation dirty.
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

	// AddComponent attaches a component, invoking its Startable hook (if
	// any) immediately with this entity as owner, then recomputes the
	// cached static classification. Components of the same concrete type
	// may coexist (list semantics); attach order is update order.
	//
	// Parameters:
	//   - c: the component to attach
	AddComponent(c component.Component)

	// Components returns the attached components in attach order.
	Components() []component.Component

	// RunComponents invokes the Updatable hook on every attached component
	// in attach order. Components may mutate this entity's transform.
	//
	// Parameters:
	//   - deltaTime: elapsed time since the last update in seconds
	RunComponents(deltaTime float32)

	// IsStatic reports the cached static classification: true iff no
	// attached component exposes the Updatable capability. Recomputed on
	// every AddComponent.
	IsStatic() bool

	// RequestInverseRotation returns the cached inverse of the rotation
	// matrix, recomputing it only when the dirty flag is set. A singular
	// rotation falls back to the identity matrix with a logged diagnostic.
	RequestInverseRotation() [16]float32

	// MarkInverseRotationDirty flags the inverse-rotation cache for
	// recomputation. SetRotation does this automatically; callers that
	// obtain and re-set a mutated matrix by other means must call it
	// explicitly.
	MarkInverseRotationDirty()

	// ChunkKey returns the entity's current chunk key, or nil if the entity
	// is not registered with a scene model.
	ChunkKey() *ChunkKey

	// SetChunkKey records the entity's current chunk key. Called by the
	// scene model; not intended for direct use.
	//
	// Parameters:
	//   - key: the new chunk key, or nil to clear
	SetChunkKey(key *ChunkKey)
}

var _ Entity = &entity{}
var _ component.Owner = &entity{}

// New creates an Entity with the given id and options applied. The entity
// starts at the origin with identity rotation and unit scale, and is
// classified static until an Updatable component is attached.
//
// Parameters:
//   - id: the unique entity identifier
//   - options: functional options to configure the entity
//
// Returns:
//   - Entity: the newly created entity
func New(id string, options ...Option) Entity {
	e := &entity{
		id:               id,
		position:         [4]float32{0, 0, 0, 1},
		rotation:         common.IdentityMatrix(),
		scale:            [4]float32{1, 1, 1, 1},
		invRotation:      common.IdentityMatrix(),
		invRotationDirty: false,
		static:           true,
	}
	for _, opt := range options {
		opt(e)
	}
	// Options may have attached components or replaced the rotation;
	// settle both caches.
	e.reclassify()
	e.invRotationDirty = true
	return e
}

// GetComponent returns the first attached component assignable to T, in
// attach order. The zero value and false are returned when no component
// matches.
//
// Parameters:
//   - e: the entity to search
//
// Returns:
//   - T: the first matching component, or the zero value
//   - bool: true if a match was found
func GetComponent[T any](e Entity) (T, bool) {
	for _, c := range e.Components() {
		if t, ok := c.(T); ok {
			return t, true
		}
	}
	var zero T
	return zero, false
}

func (e *entity) ID() string {
	return e.id
}

func (e *entity) Position() [4]float32 {
	return e.position
}

func (e *entity) SetPosition(x, y, z float32) {
	e.position[0], e.position[1], e.position[2] = x, y, z
}

func (e *entity) Rotation() [16]float32 {
	return e.rotation
}

func (e *entity) SetRotation(m [16]float32) {
	e.rotation = m
	e.invRotationDirty = true
}

func (e *entity) Scale() [4]float32 {
	return e.scale
}

func (e *entity) SetScale(x, y, z float32) {
	e.scale[0], e.scale[1], e.scale[2] = x, y, z
}

func (e *entity) AddComponent(c component.Component) {
	e.components = append(e.components, c)
	if s, ok := c.(component.Startable); ok {
		s.Start(e)
	}
	e.reclassify()
}

func (e *entity) Components() []component.Component {
	return e.components
}

func (e *entity) RunComponents(deltaTime float32) {
	for _, c := range e.components {
		if u, ok := c.(component.Updatable); ok {
			u.Update(e, deltaTime)
		}
	}
}

func (e *entity) IsStatic() bool {
	return e.static
}

func (e *entity) RequestInverseRotation() [16]float32 {
	if e.invRotationDirty {
		if !common.Invert4(e.invRotation[:], e.rotation[:]) {
			log.Printf("[Entity] %q has a singular rotation matrix, using identity inverse", e.id)
			common.Identity(e.invRotation[:])
		}
		e.invRotationDirty = false
	}
	return e.invRotation
}

func (e *entity) MarkInverseRotationDirty() {
	e.invRotationDirty = true
}

func (e *entity) ChunkKey() *ChunkKey {
	return e.chunkKey
}

func (e *entity) SetChunkKey(key *ChunkKey) {
	e.chunkKey = key
}

// reclassify recomputes the static flag: static iff no attached component
// exposes the Updatable capability.
func (e *entity) reclassify() {
	for _, c := range e.components {
		if _, ok := c.(component.Updatable); ok {
			e.static = false
			return
		}
	}
	e.static = true
}
