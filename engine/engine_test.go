package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/strata3d/strata/engine/component"
	"github.com/strata3d/strata/engine/entity"
	"github.com/strata3d/strata/engine/scene"
)

func staticSet(ids ...string) scene.Separated {
	sep := scene.Separated{}
	for _, id := range ids {
		sep.Static = append(sep.Static, entity.New(id,
			entity.WithComponents(component.NewMeshComponent("cube", "checker")),
		))
	}
	return sep
}

func TestStaticSignatureStableForSameSet(t *testing.T) {
	a := staticSignature(staticSet("a", "b", "c"))
	b := staticSignature(staticSet("a", "b", "c"))
	assert.Equal(t, a, b)
}

func TestStaticSignatureChangesWithMembership(t *testing.T) {
	base := staticSignature(staticSet("a", "b"))

	assert.NotEqual(t, base, staticSignature(staticSet("a")))
	assert.NotEqual(t, base, staticSignature(staticSet("a", "b", "c")))
	assert.NotEqual(t, base, staticSignature(staticSet("b", "a")), "order participates in the signature")

	// The separator keeps adjacent ids from gluing together.
	assert.NotEqual(t, staticSignature(staticSet("ab")), staticSignature(staticSet("a", "b")))
}

func TestStaticSignatureIgnoresNonStatic(t *testing.T) {
	sep := staticSet("a")
	sep.NonStatic = append(sep.NonStatic, entity.New("spinner",
		entity.WithComponents(
			component.NewMeshComponent("cube", "checker"),
			component.NewRotator([3]float32{0, 1, 0}, 1),
		),
	))

	assert.Equal(t, staticSignature(staticSet("a")), staticSignature(sep))
}

func TestSetTickRateBeforeRun(t *testing.T) {
	e := NewEngine().(*engine)

	e.SetTickRate(120)
	assert.Equal(t, time.Second/120, e.engineTickRate)

	e.SetTickRate(0)
	assert.Equal(t, time.Second/60, e.engineTickRate, "non-positive rates fall back to 60Hz")
}

func TestWithTickRateOption(t *testing.T) {
	e := NewEngine(WithTickRate(30)).(*engine)
	assert.Equal(t, time.Second/30, e.engineTickRate)

	e = NewEngine(WithTickRate(-1)).(*engine)
	assert.Equal(t, time.Second/60, e.engineTickRate)
}

func TestWithRenderFrameLimitOption(t *testing.T) {
	e := NewEngine(WithRenderFrameLimit(144)).(*engine)
	assert.Equal(t, time.Second/144, e.renderFrameLimit)

	e = NewEngine(WithRenderFrameLimit(0)).(*engine)
	assert.Equal(t, time.Duration(0), e.renderFrameLimit)
}
