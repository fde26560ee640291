package entity

import (
	"github.com/strata3d/strata/engine/component"
)

// Option is a functional option for configuring an Entity via New.
type Option func(*entity)

// WithPosition is an option builder that sets the entity's initial position.
//
// Parameters:
//   - x, y, z: initial position components
//
// Returns:
//   - Option: a function that applies the position option
func WithPosition(x, y, z float32) Option {
	return func(e *entity) {
		e.position = [4]float32{x, y, z, 1}
	}
}

// WithRotation is an option builder that sets the entity's initial rotation
// matrix.
//
// Parameters:
//   - m: the rotation matrix (column-major)
//
// Returns:
//   - Option: a function that applies the rotation option
func WithRotation(m [16]float32) Option {
	return func(e *entity) {
		e.rotation = m
	}
}

// WithScale is an option builder that sets the entity's initial scale.
//
// Parameters:
//   - x, y, z: initial scale factors
//
// Returns:
//   - Option: a function that applies the scale option
func WithScale(x, y, z float32) Option {
	return func(e *entity) {
		e.scale = [4]float32{x, y, z, 1}
	}
}

// WithComponents is an option builder that attaches components during
// construction. Startable hooks fire in attach order as the option applies.
//
// Parameters:
//   - components: the components to attach
//
// Returns:
//   - Option: a function that applies the components option
func WithComponents(components ...component.Component) Option {
	return func(e *entity) {
		for _, c := range components {
			e.components = append(e.components, c)
			if s, ok := c.(component.Startable); ok {
				s.Start(e)
			}
		}
	}
}
