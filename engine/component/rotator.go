package component

import (
	"github.com/strata3d/strata/common"
)

// rotator is the implementation of the Rotator interface.
type rotator struct {
	axis  [3]float32
	speed float32 // radians per second
}

// Rotator continuously rotates its entity around a fixed axis. Because it
// exposes the Updatable capability, any entity carrying a Rotator is
// classified non-static.
type Rotator interface {
	Component
	Updatable

	// Axis returns the rotation axis.
	Axis() [3]float32

	// Speed returns the angular speed in radians per second.
	Speed() float32

	// SetSpeed sets the angular speed in radians per second.
	//
	// Parameters:
	//   - speed: the new angular speed
	SetSpeed(speed float32)
}

var _ Rotator = &rotator{}

// NewRotator creates a Rotator around the given axis.
//
// Parameters:
//   - axis: the rotation axis (need not be normalized)
//   - speed: angular speed in radians per second
//
// Returns:
//   - Rotator: the newly created component
func NewRotator(axis [3]float32, speed float32) Rotator {
	return &rotator{
		axis:  axis,
		speed: speed,
	}
}

func (r *rotator) Name() string {
	return "rotator"
}

func (r *rotator) Axis() [3]float32 {
	return r.axis
}

func (r *rotator) Speed() float32 {
	return r.speed
}

func (r *rotator) SetSpeed(speed float32) {
	r.speed = speed
}

func (r *rotator) Update(owner Owner, deltaTime float32) {
	var delta [16]float32
	common.RotationAxis(delta[:], r.axis, r.speed*deltaTime)

	current := owner.Rotation()
	var next [16]float32
	common.Mul4(next[:], delta[:], current[:])
	owner.SetRotation(next)
}
