// Package engine coordinates the tick, render, and window threads around one
// scene model and one renderer. The tick goroutine advances entity components
// at a fixed (dynamically adjustable) rate; the render goroutine queries the
// visible set, registers it with the renderer, and draws. The two loops share
// nothing but the thread-safe model and renderer.
package engine

import (
	"hash/fnv"
	"log"
	"sync"
	"time"

	"github.com/strata3d/strata/engine/profiler"
	"github.com/strata3d/strata/engine/renderer"
	"github.com/strata3d/strata/engine/scene"
	"github.com/strata3d/strata/engine/window"
)

// engine implements the Engine interface.
// Coordinates tick, render, and window threads.
type engine struct {
	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window window.Window

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)

	model    scene.Model
	renderer renderer.Renderer
	cameraID string

	// aspectMu guards the surface aspect ratio, written by the resize
	// callback on the message-loop thread and read by the render goroutine.
	aspectMu sync.Mutex
	aspect   float32

	// lastStaticSig is the signature of the previous frame's visible static
	// set; a change forces a full batch layout rebuild.
	lastStaticSig uint64
	haveStaticSig bool

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
}

// Engine is the main entry point: it owns the tick and render loops and the
// window message loop.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Model returns the scene model the engine drives.
	//
	// Returns:
	//   - scene.Model: the scene model
	Model() scene.Model

	// Renderer returns the renderer the engine draws through.
	//
	// Returns:
	//   - renderer.Renderer: the renderer
	Renderer() renderer.Renderer

	// SetCameraID sets the id of the entity whose transform drives the
	// visibility query and the camera uniform.
	//
	// Parameters:
	//   - id: the camera entity id
	SetCameraID(id string)

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in ticks per second.
	// The tick callback and scene update run at this rate.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers a function called each engine tick after the
	// scene model has been updated. Use it for game logic and input.
	//
	// Parameters:
	//   - callback: function receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers a function called each render frame after
	// the scene has been drawn.
	//
	// Parameters:
	//   - callback: function receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames
	// per second. Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Run starts the tick and render goroutines and blocks in the window
	// message loop until the window closes.
	Run()

	// Quit signals all engine goroutines to stop and shuts down the engine.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine instance with the provided options.
// A window, scene model, and renderer must be supplied via options before Run.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		tickRateChannel:  make(chan time.Duration, 1),
		quitChannel:      make(chan struct{}),
		profiler:         profiler.NewProfiler(),
		profilingEnabled: false,
		engineTickRate:   time.Second / 60,
		aspect:           16.0 / 9.0,
	}

	for _, opt := range options {
		opt(e)
	}

	if e.window != nil {
		e.setAspect(float32(e.window.Width()) / float32(e.window.Height()))
		e.window.SetResizeCallback(func(width, height int) {
			if width <= 0 || height <= 0 {
				return
			}
			if e.renderer != nil {
				e.renderer.Resize(width, height)
			}
			e.setAspect(float32(width) / float32(height))
		})
	}

	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Model() scene.Model {
	return e.model
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) SetCameraID(id string) {
	e.cameraID = id
}

func (e *engine) Run() {
	e.handle()
	e.window.ProcessMessages()
	e.signalQuit()
	e.wg.Wait()
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running = false
		close(e.quitChannel)
	})
}

// handle launches the tick and render goroutines.
// Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle() {
	e.running = true
	e.wg.Add(2)
	go e.handleTick()
	go e.handleRender()
}

// handleTick runs the fixed-rate tick loop in its own goroutine.
// Advances the scene model and fires the tick callback at the configured
// rate, listening for dynamic rate changes via tickRateChannel. Exits when
// the quit channel is closed.
func (e *engine) handleTick() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.model != nil {
				e.model.Update(dt)
			}
			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleRender runs the uncapped (or frame-limited) render loop in its own
// goroutine: visibility query, partition registration, camera registration,
// draw. Recovers from panics to avoid crashing the process and signals quit
// on recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("render goroutine recovered from panic: %v", r)
			e.signalQuit()
		}
	}()

	lastRender := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
			now := time.Now()
			dt := float32(now.Sub(lastRender).Seconds())
			lastRender = now

			e.renderFrame()

			if e.renderCallback != nil {
				e.renderCallback(dt)
			}

			if e.profilingEnabled && e.profiler != nil {
				e.profiler.Tick()
			}

			// Frame rate limiting
			if e.renderFrameLimit > 0 {
				elapsed := time.Since(lastRender)
				if remaining := e.renderFrameLimit - elapsed; remaining > 0 {
					time.Sleep(remaining)
				}
			}
		}
	}
}

// renderFrame executes one frame: partition the visible set, register it
// (rebuilding the static region only when the visible static set changed),
// update the camera uniform, and draw.
func (e *engine) renderFrame() {
	if e.model == nil || e.renderer == nil {
		return
	}

	sep := e.model.GetObjectsSeparated(e.cameraID)

	sig := staticSignature(sep)
	rebuildStatic := !e.haveStaticSig || sig != e.lastStaticSig
	e.lastStaticSig = sig
	e.haveStaticSig = true

	if err := e.renderer.RegisterSceneObjectsSeparated(sep.Static, sep.NonStatic, rebuildStatic); err != nil {
		log.Printf("[Engine] failed to register scene objects: %v", err)
		return
	}

	e.renderer.RegisterCamera(e.model.Entity(e.cameraID), e.getAspect())

	if err := e.renderer.Render(); err != nil {
		log.Printf("[Engine] failed to render frame: %v", err)
	}
}

// staticSignature hashes the visible static set's ids in order. The render
// loop compares it across frames to decide when the static batch prefix must
// be rebuilt.
func staticSignature(sep scene.Separated) uint64 {
	h := fnv.New64a()
	for _, e := range sep.Static {
		h.Write([]byte(e.ID()))
		h.Write([]byte{0})
	}
	return h.Sum64()
}

func (e *engine) setAspect(aspect float32) {
	e.aspectMu.Lock()
	e.aspect = aspect
	e.aspectMu.Unlock()
}

func (e *engine) getAspect() float32 {
	e.aspectMu.Lock()
	defer e.aspectMu.Unlock()
	return e.aspect
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetTickRate sets the engine tick rate in ticks per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Second / time.Duration(fps)

	if e.running {
		// Non-blocking send - if the channel holds a pending value, replace it
		select {
		case e.tickRateChannel <- newRate:
		default:
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
	} else {
		e.engineTickRate = newRate
	}
}

// SetTickCallback registers the function called each engine tick.
func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

// SetRenderCallback registers the function called each render frame.
func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Second / time.Duration(fps)
}
