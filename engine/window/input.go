package window

import (
	"sync"
)

// InputState accumulates window key and mouse events into polled state for
// per-frame consumers. It satisfies the input-source contract the Freecam
// component expects: key queries by code and a mouse delta that drains on
// read. Thread-safe; events arrive on the message-loop thread while the
// tick goroutine polls.
type InputState struct {
	mu sync.Mutex

	keys map[int]bool

	lastX, lastY float32
	hasLast      bool
	dx, dy       float32
}

// NewInputState creates an InputState and registers it on the window's key
// and mouse callbacks. Attaching replaces any callbacks already set.
//
// Parameters:
//   - w: the window to attach to
//
// Returns:
//   - *InputState: the attached input state
func NewInputState(w Window) *InputState {
	s := &InputState{
		keys: make(map[int]bool),
	}

	w.SetKeyDownCallback(func(keyCode uint32) {
		s.mu.Lock()
		s.keys[int(keyCode)] = true
		s.mu.Unlock()
	})
	w.SetKeyUpCallback(func(keyCode uint32) {
		s.mu.Lock()
		delete(s.keys, int(keyCode))
		s.mu.Unlock()
	})
	w.SetMouseMoveCallback(func(x, y int32) {
		s.mu.Lock()
		fx, fy := float32(x), float32(y)
		if s.hasLast {
			s.dx += fx - s.lastX
			s.dy += fy - s.lastY
		}
		s.lastX, s.lastY = fx, fy
		s.hasLast = true
		s.mu.Unlock()
	})

	return s
}

// KeyDown reports whether the key with the given code is currently held.
//
// Parameters:
//   - code: the virtual key code
//
// Returns:
//   - bool: true if the key is held
func (s *InputState) KeyDown(code int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys[code]
}

// MouseDelta returns the mouse movement accumulated since the previous call
// and resets the accumulator.
//
// Returns:
//   - float32: horizontal movement in pixels
//   - float32: vertical movement in pixels
func (s *InputState) MouseDelta() (float32, float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dx, dy := s.dx, s.dy
	s.dx, s.dy = 0, 0
	return dx, dy
}
