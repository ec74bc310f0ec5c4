// render_engine.go - the render role's public contract and main loop
// (spec §4.4, §5). This is the only file the UI role talks to; every
// vk.* detail lives behind vulkanRenderer in render_vulkan.go.

package main

import (
	"log"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// sceneFIFO is the scene hand-off queue: lossless, FIFO, unbounded (spec
// §5 - every submitted scene must eventually be hot-swapped in, none may
// be silently dropped the way stale camera/sky updates are).
type sceneFIFO struct {
	mu    sync.Mutex
	items []*BuiltScenePackage
}

func (q *sceneFIFO) push(p *BuiltScenePackage) {
	q.mu.Lock()
	q.items = append(q.items, p)
	q.mu.Unlock()
}

func (q *sceneFIFO) pop() (*BuiltScenePackage, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	p := q.items[0]
	q.items = q.items[1:]
	return p, true
}

// drainToLast holds at most the most recently pushed value; every push
// before the next drain is lost. Used for the camera and sky queues, which
// the spec defines as drain-to-last rather than FIFO: the render loop only
// ever needs the newest camera pose, not a backlog of stale ones.
type drainToLast[T any] struct {
	mu    sync.Mutex
	value T
	has   bool
}

func (d *drainToLast[T]) push(v T) {
	d.mu.Lock()
	d.value = v
	d.has = true
	d.mu.Unlock()
}

func (d *drainToLast[T]) drain() (v T, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.has {
		return v, false
	}
	v, d.has = d.value, false
	return v, true
}

// RenderEngine owns the GPU device (via gpu) and runs its main loop on a
// dedicated, OS-thread-locked goroutine so every Vulkan call after
// construction is issued from that one thread. The device itself is created
// by NewRenderEngine on the caller's goroutine, before the loop starts.
type RenderEngine struct {
	gpu *vulkanRenderer

	scenes  sceneFIFO
	cameras drainToLast[Camera]
	skies   drainToLast[bool]
	frames  FrameSlot

	running atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	haveCamera bool
	lastCamera Camera
	lastSky    bool
}

// NewRenderEngine brings up the GPU device synchronously (so startup
// failures surface to the caller before Start is ever invoked) and returns
// an engine ready to Start.
func NewRenderEngine(width, height int, shaderPath string) (*RenderEngine, error) {
	gpu, err := newVulkanRenderer(width, height, shaderPath)
	if err != nil {
		return nil, err
	}
	return &RenderEngine{gpu: gpu}, nil
}

// SubmitScene enqueues a freshly built scene package for hot-swap on the
// render loop's next iteration. Never drops a submission.
func (e *RenderEngine) SubmitScene(pkg *BuiltScenePackage) { e.scenes.push(pkg) }

// SubmitCamera pushes a new camera pose; only the most recent pending push
// survives to the next loop iteration.
func (e *RenderEngine) SubmitCamera(c Camera) { e.cameras.push(c) }

// SubmitSky pushes the sky-enabled flag; drain-to-last like the camera.
func (e *RenderEngine) SubmitSky(enabled bool) { e.skies.push(enabled) }

// Frames is the render→UI frame hand-off; the UI role polls Take on it.
func (e *RenderEngine) Frames() *FrameSlot { return &e.frames }

// Start launches the main loop goroutine. Must not be called twice without
// an intervening Stop.
func (e *RenderEngine) Start() {
	e.stopCh = make(chan struct{})
	e.doneCh = make(chan struct{})
	e.running.Store(true)
	go e.loop()
}

// Stop signals the loop to exit and blocks until it has torn the GPU
// device down.
func (e *RenderEngine) Stop() {
	if !e.running.Load() {
		return
	}
	close(e.stopCh)
	<-e.doneCh
}

func (e *RenderEngine) loop() {
	defer close(e.doneCh)
	defer e.running.Store(false)
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer e.gpu.Destroy()

	for {
		select {
		case <-e.stopCh:
			return
		default:
		}

		if pkg, ok := e.scenes.pop(); ok {
			if err := e.gpu.HotSwapScene(pkg); err != nil {
				log.Printf("render: scene hot-swap failed, stopping: %v", err)
				return
			}
		}

		if cam, ok := e.cameras.drain(); ok {
			e.lastCamera, e.haveCamera = cam, true
		}
		if sky, ok := e.skies.drain(); ok {
			e.lastSky = sky
		}

		if !e.haveCamera {
			time.Sleep(time.Millisecond)
			continue
		}

		e.gpu.WriteCameraUniform(e.lastCamera, e.lastSky)
		pixels, err := e.gpu.RenderFrame()
		if err != nil {
			log.Printf("render: frame failed, stopping: %v", err)
			return
		}
		e.frames.Publish(pixels, e.gpu.width, e.gpu.height)
	}
}
