package renderer

import (
	"github.com/strata3d/strata/engine/batch"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - RendererBuilderOption: a function that applies the present mode option to a renderer
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingPresentMode = &mode
	}
}

// WithMSAA sets the multisample anti-aliasing sample count for the renderer.
// When not specified, the default is MSAA4x. Use MSAAOff to disable MSAA entirely.
// Higher values (MSAA8x, MSAA16x) are adapter-dependent and may not be supported
// by all hardware.
//
// Parameters:
//   - count: the MSAASampleCount to use (MSAAOff, MSAA4x, MSAA8x, or MSAA16x)
//
// Returns:
//   - RendererBuilderOption: a function that applies the MSAA option to a renderer
func WithMSAA(count MSAASampleCount) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingMSAA = &count
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe). Useful for benchmarking CPU vs GPU rendering performance.
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - RendererBuilderOption: a function that applies the force software renderer option to a renderer
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = force
	}
}

// WithInitialCapacity sets the instance count the shared transform buffer is
// created with. The buffer still grows on demand past this; it never shrinks.
//
// Parameters:
//   - instances: the initial instance capacity
//
// Returns:
//   - RendererBuilderOption: a function that applies the capacity option to a renderer
func WithInitialCapacity(instances uint32) RendererBuilderOption {
	return func(r *renderer) {
		if instances > 0 {
			r.initialCapacity = instances
		}
	}
}

// WithBatchBuilder replaces the renderer's default batch builder, for tuning
// the worker count or parallel threshold of transform composition.
//
// Parameters:
//   - b: the batch builder to use
//
// Returns:
//   - RendererBuilderOption: a function that applies the batch builder option to a renderer
func WithBatchBuilder(b batch.Builder) RendererBuilderOption {
	return func(r *renderer) {
		r.builder = b
	}
}

// WithPerspective overrides the projection parameters used when deriving the
// camera uniform.
//
// Parameters:
//   - fovY: the vertical field of view in radians
//   - near: the near clip distance
//   - far: the far clip distance
//
// Returns:
//   - RendererBuilderOption: a function that applies the perspective option to a renderer
func WithPerspective(fovY, near, far float32) RendererBuilderOption {
	return func(r *renderer) {
		r.fovY = fovY
		r.near = near
		r.far = far
	}
}
