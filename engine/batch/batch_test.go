package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata3d/strata/common"
	"github.com/strata3d/strata/engine/component"
	"github.com/strata3d/strata/engine/entity"
)

func drawable(id, meshID, textureID string, x float32) entity.Entity {
	return entity.New(id,
		entity.WithPosition(x, 0, 0),
		entity.WithComponents(component.NewMeshComponent(meshID, textureID)),
	)
}

func custom(id, meshID, textureID, pipelineKey string, x float32) entity.Entity {
	return entity.New(id,
		entity.WithPosition(x, 0, 0),
		entity.WithComponents(
			component.NewMeshComponent(meshID, textureID),
			component.NewCustomShader(pipelineKey, nil),
		),
	)
}

func TestBuildAssignsContiguousIndices(t *testing.T) {
	b := NewBuilder()

	static := []entity.Entity{
		drawable("s1", "cube", "checker", 1),
		drawable("s2", "sphere", "checker", 2),
		drawable("s3", "cube", "checker", 3),
	}
	nonStatic := []entity.Entity{
		drawable("n1", "cube", "rust", 4),
		drawable("n2", "cube", "rust", 5),
	}

	layout := b.Build(static, nonStatic)

	require.Len(t, layout.Indices, 5)
	assert.Equal(t, uint32(3), layout.NonStaticBase)
	assert.Len(t, layout.Transforms, 5*StrideFloats)

	seen := make(map[uint32]bool)
	for id, idx := range layout.Indices {
		assert.False(t, seen[idx], "index %d assigned twice (entity %q)", idx, id)
		seen[idx] = true
		assert.Less(t, idx, uint32(5))
	}
}

func TestBuildGroupsByMeshAndMaterial(t *testing.T) {
	b := NewBuilder()

	static := []entity.Entity{
		drawable("a", "cube", "checker", 0),
		drawable("b", "sphere", "checker", 0),
		drawable("c", "cube", "checker", 0),
		drawable("d", "cube", "rust", 0),
	}

	layout := b.Build(static, nil)

	require.Len(t, layout.Static, 3)
	cubes := layout.Static[Key{MeshID: "cube", MaterialID: "checker"}]
	spheres := layout.Static[Key{MeshID: "sphere", MaterialID: "checker"}]
	rust := layout.Static[Key{MeshID: "cube", MaterialID: "rust"}]

	// First-appearance order: cube/checker, then sphere/checker, then cube/rust.
	assert.Equal(t, Batch{Base: 0, Count: 2}, cubes)
	assert.Equal(t, Batch{Base: 2, Count: 1}, spheres)
	assert.Equal(t, Batch{Base: 3, Count: 1}, rust)

	// Members of the same batch occupy the batch's contiguous index range.
	assert.Equal(t, uint32(0), layout.Indices["a"])
	assert.Equal(t, uint32(1), layout.Indices["c"])
	assert.Equal(t, uint32(2), layout.Indices["b"])
	assert.Equal(t, uint32(3), layout.Indices["d"])
}

func TestBuildStaticPrefixPrecedesNonStatic(t *testing.T) {
	b := NewBuilder()

	static := []entity.Entity{
		drawable("s1", "cube", "checker", 0),
		drawable("s2", "cube", "checker", 0),
	}
	nonStatic := []entity.Entity{
		drawable("n1", "cube", "checker", 0),
	}

	layout := b.Build(static, nonStatic)

	assert.Equal(t, uint32(2), layout.NonStaticBase)
	for _, batch := range layout.Static {
		assert.Less(t, batch.Base, layout.NonStaticBase)
		assert.LessOrEqual(t, batch.Base+batch.Count, layout.NonStaticBase)
	}
	for _, batch := range layout.NonStatic {
		assert.GreaterOrEqual(t, batch.Base, layout.NonStaticBase)
	}

	// Same key on both sides of the boundary stays in two distinct batches.
	assert.Equal(t, Batch{Base: 0, Count: 2}, layout.Static[Key{MeshID: "cube", MaterialID: "checker"}])
	assert.Equal(t, Batch{Base: 2, Count: 1}, layout.NonStatic[Key{MeshID: "cube", MaterialID: "checker"}])
}

func TestBuildCustomDrawsFollowBatchedEntities(t *testing.T) {
	b := NewBuilder()

	static := []entity.Entity{
		custom("glow", "sphere", "checker", "glow_pipeline", 1),
		drawable("s1", "cube", "checker", 0),
		drawable("s2", "cube", "checker", 0),
	}

	layout := b.Build(static, nil)

	require.Len(t, layout.Custom, 1)
	cd := layout.Custom[0]
	assert.Equal(t, "glow", cd.EntityID)
	assert.Equal(t, "sphere", cd.MeshID)
	assert.Equal(t, "checker", cd.MaterialID)
	assert.Equal(t, "glow_pipeline", cd.PipelineKey)

	// Custom entities take indices after the region's batched entities even
	// when they appear first in the input.
	assert.Equal(t, uint32(2), cd.Index)
	assert.Equal(t, uint32(2), layout.Indices["glow"])
	assert.Equal(t, uint32(3), layout.NonStaticBase)
}

func TestBuildSkipsEntitiesWithoutMesh(t *testing.T) {
	b := NewBuilder()

	static := []entity.Entity{
		entity.New("bare"),
		drawable("s1", "cube", "checker", 0),
	}

	layout := b.Build(static, nil)

	assert.Len(t, layout.Indices, 1)
	assert.NotContains(t, layout.Indices, "bare")
	assert.Equal(t, uint32(1), layout.NonStaticBase)
}

func TestBuildComposesTransforms(t *testing.T) {
	b := NewBuilder()

	e := entity.New("e",
		entity.WithPosition(3, -2, 7),
		entity.WithScale(2, 2, 2),
		entity.WithComponents(component.NewMeshComponent("cube", "checker")),
	)
	var rot [16]float32
	common.RotationY(rot[:], 0.5)
	e.SetRotation(rot)

	layout := b.Build([]entity.Entity{e}, nil)

	want := make([]float32, StrideFloats)
	common.Compose(want, [3]float32{3, -2, 7}, rot[:], [3]float32{2, 2, 2})
	assert.Equal(t, want, layout.Transforms[:StrideFloats])
}

func TestBuildNonStaticMatchesFullBuildRegion(t *testing.T) {
	b := NewBuilder()

	static := []entity.Entity{
		drawable("s1", "cube", "checker", 10),
		drawable("s2", "cube", "checker", 11),
	}
	nonStatic := []entity.Entity{
		drawable("n1", "cube", "rust", 1),
		drawable("n2", "sphere", "rust", 2),
		custom("n3", "sphere", "rust", "glow", 3),
	}

	full := b.Build(static, nonStatic)
	partial := b.BuildNonStatic(nonStatic, full.NonStaticBase)

	assert.Equal(t, full.NonStatic, partial.Batches)
	require.Len(t, partial.Custom, 1)
	assert.Equal(t, full.Custom, partial.Custom)

	base := int(full.NonStaticBase) * StrideFloats
	assert.Equal(t, full.Transforms[base:], partial.Transforms)
}

func TestComposeParallelMatchesSerial(t *testing.T) {
	entities := make([]entity.Entity, 100)
	for i := range entities {
		entities[i] = drawable("e"+string(rune('0'+i%10))+string(rune('a'+i/10)), "cube", "checker", float32(i))
	}

	serial := NewBuilder(WithParallelThreshold(1 << 20)).Build(entities, nil)
	parallel := NewBuilder(WithWorkers(4), WithParallelThreshold(1)).Build(entities, nil)

	assert.Equal(t, serial.Transforms, parallel.Transforms)
	assert.Equal(t, serial.Static, parallel.Static)
	assert.Equal(t, serial.Indices, parallel.Indices)
}

func TestBuildEmptyInput(t *testing.T) {
	b := NewBuilder()

	layout := b.Build(nil, nil)

	assert.Empty(t, layout.Transforms)
	assert.Empty(t, layout.Static)
	assert.Empty(t, layout.NonStatic)
	assert.Empty(t, layout.Custom)
	assert.Equal(t, uint32(0), layout.NonStaticBase)
}
