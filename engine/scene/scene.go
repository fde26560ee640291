// Package scene implements the retained scene model: an id-keyed entity
// registry, a chunk index for spatial lookup, camera-relative visibility
// queries, and the static/non-static partition consumed by the renderer.
package scene

import (
	"log"
	"sort"
	"sync"

	"github.com/strata3d/strata/common"
	"github.com/strata3d/strata/engine/component"
	"github.com/strata3d/strata/engine/entity"
)

// canonicalForward is the forward axis in camera space; the camera-forward
// world vector is this axis rotated by the inverse of the camera's rotation.
var canonicalForward = [3]float32{0, 0, -1}

// Separated is the static/non-static partition of a frame's visible,
// drawable entities. Static ∪ NonStatic equals the drawable visible set and
// the two slices are disjoint.
type Separated struct {
	Static    []entity.Entity
	NonStatic []entity.Entity
}

// model is the implementation of the Model interface.
type model struct {
	mu sync.RWMutex

	cfg Config

	entities map[string]entity.Entity
	chunks   map[entity.ChunkKey]map[string]struct{}

	// Visible-set memoization, keyed by the camera's chunk. Invalidated
	// only when the camera crosses a chunk boundary (or when soft culling
	// forces a fresh scan each query).
	cachedCameraChunk *entity.ChunkKey
	cachedVisible     []entity.Entity
}

// Model owns all entities of a scene. It maintains the chunk index, answers
// visibility queries, and partitions visible entities for the renderer.
// Registered entities must be moved through SetPosition so the chunk index
// stays consistent. Thread-safe for the tick/render goroutine pair.
type Model interface {
	// Config returns the configuration the model was constructed with
	// (defaults applied).
	Config() Config

	// AddEntity creates an entity with the given id and options, assigns it
	// to a chunk from its initial position, and registers it. An existing
	// entity with the same id is replaced.
	//
	// Parameters:
	//   - id: the unique entity identifier
	//   - options: entity construction options (position, components, ...)
	//
	// Returns:
	//   - entity.Entity: the newly registered entity
	AddEntity(id string, options ...entity.Option) entity.Entity

	// RemoveEntity removes an entity from both the id registry and its
	// chunk bucket. Unknown ids are ignored.
	//
	// Parameters:
	//   - id: the entity identifier to remove
	RemoveEntity(id string)

	// Entity retrieves a registered entity by id, or nil if not found.
	//
	// Parameters:
	//   - id: the entity identifier
	//
	// Returns:
	//   - entity.Entity: the entity or nil
	Entity(id string) entity.Entity

	// Count returns the number of registered entities.
	Count() int

	// ChunkCount returns the number of non-empty chunk buckets.
	ChunkCount() int

	// SetPosition mutates an entity's position and keeps the chunk index
	// consistent: when the chunk key changes, the id moves buckets and the
	// emptied bucket is deleted. Unknown ids log and return.
	//
	// Parameters:
	//   - id: the entity identifier
	//   - x, y, z: the new position
	SetPosition(id string, x, y, z float32)

	// Update advances every non-static entity's components by deltaTime.
	// Static entities have no Updatable components and are skipped.
	//
	// Parameters:
	//   - deltaTime: elapsed time since the last tick in seconds
	Update(deltaTime float32)

	// GetVisibleObjects returns the entities to hand to the renderer this
	// frame. With a missing camera id every registered entity is returned —
	// rendering never blocks on a missing camera. With soft culling
	// disabled the result is memoized by camera chunk: consecutive calls
	// with the camera in the same chunk return the identical cached slice.
	//
	// Parameters:
	//   - cameraID: id of the camera entity
	//
	// Returns:
	//   - []entity.Entity: the visible entities
	GetVisibleObjects(cameraID string) []entity.Entity

	// GetObjectsSeparated applies the visibility query, keeps drawable
	// entities (those with a mesh-providing component), and partitions
	// them by cached static classification.
	//
	// Parameters:
	//   - cameraID: id of the camera entity
	//
	// Returns:
	//   - Separated: the static/non-static partition
	GetObjectsSeparated(cameraID string) Separated
}

var _ Model = &model{}

// NewModel creates a scene model with the given configuration. Zero-valued
// config fields fall back to DefaultConfig.
//
// Parameters:
//   - cfg: spatial-indexing and culling configuration
//
// Returns:
//   - Model: the newly created scene model
func NewModel(cfg Config) Model {
	return &model{
		cfg:      cfg.withDefaults(),
		entities: make(map[string]entity.Entity),
		chunks:   make(map[entity.ChunkKey]map[string]struct{}),
	}
}

func (m *model) Config() Config {
	return m.cfg
}

func (m *model) AddEntity(id string, options ...entity.Option) entity.Entity {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entities[id]; exists {
		log.Printf("[Scene] entity %q already registered, replacing", id)
		m.removeLocked(id)
	}

	e := entity.New(id, options...)
	key := m.chunkFor(e.Position())
	m.entities[id] = e
	m.bucketInsert(key, id)
	e.SetChunkKey(&key)
	return e
}

func (m *model) RemoveEntity(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(id)
}

func (m *model) Entity(id string) entity.Entity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entities[id]
}

func (m *model) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entities)
}

func (m *model) ChunkCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks)
}

func (m *model) SetPosition(id string, x, y, z float32) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entities[id]
	if !ok {
		log.Printf("[Scene] SetPosition: unknown entity %q", id)
		return
	}

	e.SetPosition(x, y, z)
	newKey := m.chunkFor(e.Position())
	old := e.ChunkKey()
	if old != nil && *old == newKey {
		return
	}

	if old != nil {
		m.bucketRemove(*old, id)
	}
	m.bucketInsert(newKey, id)
	e.SetChunkKey(&newKey)
}

func (m *model) Update(deltaTime float32) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.entities {
		if e.IsStatic() {
			continue
		}
		e.RunComponents(deltaTime)
	}
}

func (m *model) GetVisibleObjects(cameraID string) []entity.Entity {
	m.mu.Lock()
	defer m.mu.Unlock()

	cam, ok := m.entities[cameraID]
	if !ok {
		// Never block rendering on a missing camera: return everything.
		return m.allEntitiesSorted()
	}

	camPos := cam.Position()
	camChunk := m.chunkFor(camPos)

	if !m.cfg.SoftCulling && m.cachedCameraChunk != nil && *m.cachedCameraChunk == camChunk {
		return m.cachedVisible
	}

	invRot := cam.RequestInverseRotation()
	forward := common.TransformDirection(invRot[:], canonicalForward)

	d := m.cfg.RenderDistance
	maxSq := int32(d * d)

	var ids []string
	for dx := -d; dx <= d; dx++ {
		for dy := -d; dy <= d; dy++ {
			for dz := -d; dz <= d; dz++ {
				distSq := int32(dx*dx + dy*dy + dz*dz)
				if distSq > maxSq {
					continue
				}
				if m.cfg.SoftCulling {
					// Chunk-granularity reject: offsets pointing away from
					// the camera-forward vector lie behind the camera.
					dot := float32(dx)*forward[0] + float32(dy)*forward[1] + float32(dz)*forward[2]
					if dot < 0 {
						continue
					}
				}
				key := entity.ChunkKey{
					X: camChunk.X + int32(dx),
					Y: camChunk.Y + int32(dy),
					Z: camChunk.Z + int32(dz),
				}
				for id := range m.chunks[key] {
					ids = append(ids, id)
				}
			}
		}
	}

	// Deterministic output order keeps batch layouts stable across frames
	// with an unchanged scene.
	sort.Strings(ids)

	visible := make([]entity.Entity, 0, len(ids))
	for _, id := range ids {
		if e, live := m.entities[id]; live {
			visible = append(visible, e)
		}
	}

	m.cachedCameraChunk = &camChunk
	m.cachedVisible = visible
	return visible
}

func (m *model) GetObjectsSeparated(cameraID string) Separated {
	visible := m.GetVisibleObjects(cameraID)

	var sep Separated
	for _, e := range visible {
		if _, drawable := entity.GetComponent[component.MeshProviding](e); !drawable {
			continue
		}
		if e.IsStatic() {
			sep.Static = append(sep.Static, e)
		} else {
			sep.NonStatic = append(sep.NonStatic, e)
		}
	}
	return sep
}

// chunkFor maps a world position to its chunk key.
func (m *model) chunkFor(pos [4]float32) entity.ChunkKey {
	return entity.ChunkKey{
		X: common.FloorDiv(pos[0], m.cfg.ChunkSize),
		Y: common.FloorDiv(pos[1], m.cfg.ChunkSize),
		Z: common.FloorDiv(pos[2], m.cfg.ChunkSize),
	}
}

func (m *model) bucketInsert(key entity.ChunkKey, id string) {
	bucket, ok := m.chunks[key]
	if !ok {
		bucket = make(map[string]struct{})
		m.chunks[key] = bucket
	}
	bucket[id] = struct{}{}
}

// bucketRemove drops an id from a chunk bucket, deleting the bucket when it
// empties so sparse worlds stay bounded.
func (m *model) bucketRemove(key entity.ChunkKey, id string) {
	bucket, ok := m.chunks[key]
	if !ok {
		return
	}
	delete(bucket, id)
	if len(bucket) == 0 {
		delete(m.chunks, key)
	}
}

func (m *model) removeLocked(id string) {
	e, ok := m.entities[id]
	if !ok {
		return
	}
	if key := e.ChunkKey(); key != nil {
		m.bucketRemove(*key, id)
	}
	e.SetChunkKey(nil)
	delete(m.entities, id)
}

func (m *model) allEntitiesSorted() []entity.Entity {
	ids := make([]string, 0, len(m.entities))
	for id := range m.entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	all := make([]entity.Entity, 0, len(ids))
	for _, id := range ids {
		all = append(all, m.entities[id])
	}
	return all
}
