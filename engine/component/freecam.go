package component

import (
	"github.com/chewxy/math32"

	"github.com/strata3d/strata/common"
)

// InputSource is the polled input surface a Freecam reads each update.
// engine/window provides an implementation backed by GLFW callbacks; tests
// provide stubs.
type InputSource interface {
	// KeyDown reports whether the given virtual key is currently held.
	//
	// Parameters:
	//   - code: the virtual key code (see common key codes)
	//
	// Returns:
	//   - bool: true if the key is held
	KeyDown(code int) bool

	// MouseDelta returns the mouse movement since the previous call and
	// resets the accumulator.
	//
	// Returns:
	//   - dx, dy: mouse movement in pixels
	MouseDelta() (dx, dy float32)
}

// freecam is the implementation of the Freecam interface.
type freecam struct {
	input     InputSource
	moveSpeed float32 // world units per second
	lookSpeed float32 // radians per pixel

	yaw   float32
	pitch float32
}

// Freecam drives its entity's position and rotation from keyboard and mouse
// input: WASD pans on the camera plane, Q/E moves vertically, and mouse
// movement adjusts yaw and pitch. It exposes the Updatable capability, so a
// camera entity carrying a Freecam is non-static.
type Freecam interface {
	Component
	Updatable
}

var _ Freecam = &freecam{}

// NewFreecam creates a Freecam reading from the given input source.
//
// Parameters:
//   - input: the polled input surface (must not be nil)
//   - moveSpeed: movement speed in world units per second
//   - lookSpeed: look sensitivity in radians per pixel
//
// Returns:
//   - Freecam: the newly created component
func NewFreecam(input InputSource, moveSpeed, lookSpeed float32) Freecam {
	if input == nil {
		panic("component: NewFreecam requires a non-nil InputSource")
	}
	return &freecam{
		input:     input,
		moveSpeed: moveSpeed,
		lookSpeed: lookSpeed,
	}
}

func (f *freecam) Name() string {
	return "freecam"
}

func (f *freecam) Update(owner Owner, deltaTime float32) {
	dx, dy := f.input.MouseDelta()
	if dx != 0 || dy != 0 {
		f.yaw -= dx * f.lookSpeed
		f.pitch -= dy * f.lookSpeed

		// Clamp pitch short of the poles to keep the basis well-formed.
		limit := math32.Pi/2 - 0.01
		if f.pitch > limit {
			f.pitch = limit
		}
		if f.pitch < -limit {
			f.pitch = -limit
		}

		var yawM, pitchM, rot [16]float32
		common.RotationY(yawM[:], f.yaw)
		common.RotationAxis(pitchM[:], [3]float32{1, 0, 0}, f.pitch)
		common.Mul4(rot[:], yawM[:], pitchM[:])
		var next [16]float32
		copy(next[:], rot[:])
		owner.SetRotation(next)
	}

	var move [3]float32
	if f.input.KeyDown(common.KeyW) {
		move[2] -= 1
	}
	if f.input.KeyDown(common.KeyS) {
		move[2] += 1
	}
	if f.input.KeyDown(common.KeyA) {
		move[0] -= 1
	}
	if f.input.KeyDown(common.KeyD) {
		move[0] += 1
	}
	if f.input.KeyDown(common.KeyE) {
		move[1] += 1
	}
	if f.input.KeyDown(common.KeyQ) {
		move[1] -= 1
	}
	if move == [3]float32{} {
		return
	}

	step := f.moveSpeed * deltaTime
	if f.input.KeyDown(common.KeyLeftShift) {
		step *= 4
	}

	// Move along the camera's own axes so W always means "forward".
	rot := owner.Rotation()
	world := common.TransformDirection(rot[:], move)
	pos := owner.Position()
	owner.SetPosition(pos[0]+world[0]*step, pos[1]+world[1]*step, pos[2]+world[2]*step)
}
