package component

// meshComponent is the implementation of the MeshComponent interface.
type meshComponent struct {
	meshID     string
	textureID  string
	lodMeshID  string
	lodEnabled bool
}

// MeshComponent binds a mesh and texture to an entity, making it drawable.
// It optionally carries an alternate low-detail mesh id; when the LOD toggle
// is enabled, MeshID reports the alternate id instead. The toggle is flipped
// by callers — no distance heuristic lives in the component.
//
// MeshComponent exposes no Updatable capability, so an entity whose only
// component is a MeshComponent is classified static.
type MeshComponent interface {
	Component
	MeshProviding

	// LODEnabled reports whether the low-detail mesh is currently selected.
	LODEnabled() bool

	// SetLODEnabled selects between the primary and low-detail mesh ids.
	// Enabling LOD with no alternate mesh configured is a no-op for MeshID.
	//
	// Parameters:
	//   - enabled: true to report the low-detail mesh id from MeshID
	SetLODEnabled(enabled bool)
}

var _ MeshComponent = &meshComponent{}

// NewMeshComponent creates a MeshComponent for the given mesh and texture.
//
// Parameters:
//   - meshID: the mesh registry id to draw
//   - textureID: the texture registry id to draw with
//   - options: functional options (e.g. WithLODMesh)
//
// Returns:
//   - MeshComponent: the newly created component
func NewMeshComponent(meshID, textureID string, options ...MeshComponentOption) MeshComponent {
	m := &meshComponent{
		meshID:    meshID,
		textureID: textureID,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// MeshComponentOption is a functional option for configuring a MeshComponent.
type MeshComponentOption func(*meshComponent)

// WithLODMesh is an option builder that sets the alternate low-detail mesh id.
//
// Parameters:
//   - meshID: the low-detail mesh registry id
//
// Returns:
//   - MeshComponentOption: a function that applies the LOD mesh option
func WithLODMesh(meshID string) MeshComponentOption {
	return func(m *meshComponent) {
		m.lodMeshID = meshID
	}
}

func (m *meshComponent) Name() string {
	return "mesh"
}

func (m *meshComponent) MeshID() string {
	if m.lodEnabled && m.lodMeshID != "" {
		return m.lodMeshID
	}
	return m.meshID
}

func (m *meshComponent) TextureID() string {
	return m.textureID
}

func (m *meshComponent) LODEnabled() bool {
	return m.lodEnabled
}

func (m *meshComponent) SetLODEnabled(enabled bool) {
	m.lodEnabled = enabled
}
