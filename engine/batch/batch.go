// Package batch groups drawable entities into draw-compatible batches and
// lays their composed transforms out in a shared per-instance buffer. Static
// entities occupy a contiguous prefix of the buffer; non-static entities
// occupy the suffix starting at the layout's NonStaticBase, which lets the
// renderer rewrite only the non-static region when static data is unchanged.
package batch

import (
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"

	"github.com/strata3d/strata/common"
	"github.com/strata3d/strata/engine/component"
	"github.com/strata3d/strata/engine/entity"
)

// StrideFloats is the number of float32 values one instance occupies in the
// shared transform buffer (one column-major 4x4 matrix).
const StrideFloats = 16

// Key identifies a draw-compatible batch: entities sharing a mesh and
// material are drawn with a single instanced call.
type Key struct {
	MeshID     string
	MaterialID string
}

// Batch is one instanced draw: Count instances starting at instance index
// Base in the shared transform buffer.
type Batch struct {
	Base  uint32
	Count uint32
}

// CustomDraw records an entity drawn with its own pipeline instead of the
// shared batch pipeline. The entity's transform still lives in the shared
// buffer at Index.
type CustomDraw struct {
	EntityID    string
	MeshID      string
	MaterialID  string
	PipelineKey string
	AuxBuffers  []component.BufferSpec
	Index       uint32
}

// Layout is the full result of a batch build: the transform buffer contents,
// the static and non-static batch maps (kept separate so batches of the same
// key stay numerically distinguishable), the boundary between the two
// regions, every entity's assigned instance index, and the custom draws.
type Layout struct {
	Transforms    []float32
	Static        map[Key]Batch
	NonStatic     map[Key]Batch
	NonStaticBase uint32
	Indices       map[string]uint32
	Custom        []CustomDraw
}

// NonStaticLayout is the result of a partial rebuild covering only the
// non-static region. Transforms holds that region's matrices (to be written
// at byte offset NonStaticBase * stride); Batches and Custom replace the
// previous frame's non-static batch map and custom draws, since group
// membership and order can change between frames.
type NonStaticLayout struct {
	Transforms []float32
	Batches    map[Key]Batch
	Custom     []CustomDraw
}

// builder is the implementation of the Builder interface.
type builder struct {
	pool              worker.DynamicWorkerPool
	workers           int
	parallelThreshold int
}

// Builder turns a partitioned entity set into a batch layout. Builders are
// reusable across frames; matrix composition parallelizes across a bounded
// worker pool once the entity count crosses the configured threshold (each
// worker writes a disjoint region of the output buffer).
type Builder interface {
	// Build lays out the full transform buffer for a frame: static entities
	// first, grouped by (mesh, material) in first-appearance order, then
	// non-static entities continuing from NonStaticBase. Entities whose
	// first shader-providing component names a custom pipeline are assigned
	// indices at the end of their region and reported as custom draws
	// instead of joining a batch.
	//
	// Parameters:
	//   - static: the frame's visible static entities
	//   - nonStatic: the frame's visible non-static entities
	//
	// Returns:
	//   - Layout: the complete buffer layout
	Build(static, nonStatic []entity.Entity) Layout

	// BuildNonStatic rebuilds only the non-static region, using the same
	// grouping order as Build, for a partial buffer upload. The base must
	// be the NonStaticBase of the layout whose static region is being kept.
	//
	// Parameters:
	//   - nonStatic: the frame's visible non-static entities
	//   - base: the first instance index of the non-static region
	//
	// Returns:
	//   - NonStaticLayout: the non-static region's matrices, batches, and custom draws
	BuildNonStatic(nonStatic []entity.Entity, base uint32) NonStaticLayout
}

var _ Builder = &builder{}

// NewBuilder creates a batch Builder with the given options.
//
// Parameters:
//   - options: functional options (worker count, parallel threshold)
//
// Returns:
//   - Builder: the newly created builder
func NewBuilder(options ...BuilderOption) Builder {
	b := &builder{
		workers:           max(runtime.NumCPU()-1, 1),
		parallelThreshold: 4096,
	}
	for _, opt := range options {
		opt(b)
	}
	// Queue size of 256 accommodates typical region-split task counts with
	// headroom; idle workers exit after a second.
	b.pool = worker.NewDynamicWorkerPool(b.workers, 256, 1*time.Second)
	return b
}

// assignment pairs an entity with its assigned instance index for the
// compose pass.
type assignment struct {
	e     entity.Entity
	index uint32
}

func (b *builder) Build(static, nonStatic []entity.Entity) Layout {
	layout := Layout{
		Static:    make(map[Key]Batch),
		NonStatic: make(map[Key]Batch),
		Indices:   make(map[string]uint32),
	}

	var assignments []assignment

	next := b.layoutRegion(static, 0, layout.Static, &layout, &assignments)
	layout.NonStaticBase = next
	total := b.layoutRegion(nonStatic, next, layout.NonStatic, &layout, &assignments)

	layout.Transforms = make([]float32, int(total)*StrideFloats)
	b.compose(layout.Transforms, 0, assignments)
	return layout
}

func (b *builder) BuildNonStatic(nonStatic []entity.Entity, base uint32) NonStaticLayout {
	scratch := Layout{
		Indices: make(map[string]uint32),
	}
	batches := make(map[Key]Batch)

	var assignments []assignment
	next := b.layoutRegion(nonStatic, base, batches, &scratch, &assignments)

	out := NonStaticLayout{
		Transforms: make([]float32, int(next-base)*StrideFloats),
		Batches:    batches,
		Custom:     scratch.Custom,
	}
	b.compose(out.Transforms, base, assignments)
	return out
}

// layoutRegion groups one partition's entities by batch key in
// first-appearance order, assigns contiguous instance indices starting at
// base (batched entities first, custom-pipeline entities after), and records
// batches, per-entity indices, and custom draws. Returns the next free
// instance index.
func (b *builder) layoutRegion(entities []entity.Entity, base uint32, batches map[Key]Batch, layout *Layout, assignments *[]assignment) uint32 {
	type group struct {
		key     Key
		members []entity.Entity
	}
	var groups []group
	groupIdx := make(map[Key]int)
	var custom []entity.Entity

	for _, e := range entities {
		mesh, ok := entity.GetComponent[component.MeshProviding](e)
		if !ok {
			// Callers hand us drawable entities; tolerate strays.
			continue
		}
		if _, isCustom := entity.GetComponent[component.ShaderProviding](e); isCustom {
			custom = append(custom, e)
			continue
		}
		key := Key{MeshID: mesh.MeshID(), MaterialID: mesh.TextureID()}
		idx, seen := groupIdx[key]
		if !seen {
			idx = len(groups)
			groupIdx[key] = idx
			groups = append(groups, group{key: key})
		}
		groups[idx].members = append(groups[idx].members, e)
	}

	next := base
	for _, g := range groups {
		batches[g.key] = Batch{Base: next, Count: uint32(len(g.members))}
		for _, e := range g.members {
			layout.Indices[e.ID()] = next
			*assignments = append(*assignments, assignment{e: e, index: next})
			next++
		}
	}

	for _, e := range custom {
		mesh, _ := entity.GetComponent[component.MeshProviding](e)
		shader, _ := entity.GetComponent[component.ShaderProviding](e)
		layout.Indices[e.ID()] = next
		layout.Custom = append(layout.Custom, CustomDraw{
			EntityID:    e.ID(),
			MeshID:      mesh.MeshID(),
			MaterialID:  mesh.TextureID(),
			PipelineKey: shader.PipelineKey(),
			AuxBuffers:  shader.AuxBuffers(),
			Index:       next,
		})
		*assignments = append(*assignments, assignment{e: e, index: next})
		next++
	}

	return next
}

// compose writes each assigned entity's TRS matrix into dst. The buffer
// starts at instance index base, so an assignment's slot is
// (index - base) * StrideFloats. Above the parallel threshold the work is
// split across the worker pool; every task writes a disjoint region and a
// WaitGroup provides the frame barrier.
func (b *builder) compose(dst []float32, base uint32, assignments []assignment) {
	if len(assignments) < b.parallelThreshold {
		for _, a := range assignments {
			composeInto(dst, base, a)
		}
		return
	}

	var wg sync.WaitGroup
	chunk := (len(assignments) + b.workers - 1) / b.workers
	taskID := 0
	for start := 0; start < len(assignments); start += chunk {
		end := min(start+chunk, len(assignments))
		span := assignments[start:end]

		wg.Add(1)
		id := taskID
		taskID++
		b.pool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				for _, a := range span {
					composeInto(dst, base, a)
				}
				return nil, nil
			},
		})
	}
	wg.Wait()
}

func composeInto(dst []float32, base uint32, a assignment) {
	pos := a.e.Position()
	rot := a.e.Rotation()
	scale := a.e.Scale()
	offset := int(a.index-base) * StrideFloats
	common.Compose(
		dst[offset:offset+StrideFloats],
		[3]float32{pos[0], pos[1], pos[2]},
		rot[:],
		[3]float32{scale[0], scale[1], scale[2]},
	)
}
