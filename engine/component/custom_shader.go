package component

// customShader is the implementation of the CustomShader interface.
type customShader struct {
	pipelineKey string
	auxBuffers  []BufferSpec
}

// CustomShader routes its entity through an alternate render pipeline
// instead of the shared instanced batch pipeline. The entity still receives
// an index in the shared transform buffer; the renderer draws it
// individually with the named pipeline. CustomShader has no Updatable
// capability and does not affect static classification.
type CustomShader interface {
	Component
	ShaderProviding
}

var _ CustomShader = &customShader{}

// NewCustomShader creates a CustomShader component for the given pipeline.
//
// Parameters:
//   - pipelineKey: key of a pipeline registered on the renderer
//   - auxBuffers: auxiliary buffer specifications the pipeline requires (may be nil)
//
// Returns:
//   - CustomShader: the newly created component
func NewCustomShader(pipelineKey string, auxBuffers []BufferSpec) CustomShader {
	return &customShader{
		pipelineKey: pipelineKey,
		auxBuffers:  auxBuffers,
	}
}

func (c *customShader) Name() string {
	return "custom_shader"
}

func (c *customShader) PipelineKey() string {
	return c.pipelineKey
}

func (c *customShader) AuxBuffers() []BufferSpec {
	return c.auxBuffers
}
