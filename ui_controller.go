// ui_controller.go - the UI role (spec §4.5, §5): owns the Scene, Camera
// and sky flag, the only actor allowed to mutate any of them. Drives
// input, ticks the camera's accumulation counter, and kicks off ephemeral
// scene builds without ever touching a vk.* symbol directly.

package main

import (
	"log"
	"time"
)

const (
	cameraMoveUnitsPerSecond = 4.0
	uiTickRate               = 60
)

// UIController is single-goroutine: every field it owns is read and
// written only from Run's goroutine. Scene builds run on a worker
// goroutine but report back over buildDoneCh rather than mutating shared
// state directly.
type UIController struct {
	scene      *Scene
	camera     Camera
	skyEnabled bool

	loader MeshLoader
	engine *RenderEngine
	ui     UIFrontend

	buildInProgress bool
	buildDoneCh     chan *BuiltScenePackage
}

func NewUIController(scene *Scene, camera Camera, engine *RenderEngine, ui UIFrontend, loader MeshLoader) *UIController {
	return &UIController{
		scene: scene, camera: camera, engine: engine, ui: ui, loader: loader,
		buildDoneCh: make(chan *BuiltScenePackage, 1),
	}
}

// Run drives the fixed-tick loop until the frontend reports a quit event
// or stops running. Per spec §4.4: every tick submits the current camera
// and sky state (even if unchanged - the render role drains to last, so a
// redundant submission costs nothing) and drains the frame slot exactly
// once.
func (c *UIController) Run() {
	ticker := time.NewTicker(time.Second / uiTickRate)
	defer ticker.Stop()
	last := time.Now()
	resetPending := false

	for c.ui.IsRunning() {
		select {
		case pkg := <-c.buildDoneCh:
			c.buildInProgress = false
			if pkg != nil {
				c.engine.SubmitScene(pkg)
				c.camera.FrameCount = 0
				resetPending = true
			}

		case now := <-ticker.C:
			dt := float32(now.Sub(last).Seconds())
			last = now

			quit, reset := c.handleEvents()
			if quit {
				return
			}
			if c.applyMovement(dt) {
				c.camera.FrameCount = 0
				c.camera.Recompute()
			} else if reset || resetPending {
				c.camera.FrameCount = 0
			} else if !c.buildInProgress {
				c.camera.FrameCount++
			}
			resetPending = false

			c.engine.SubmitCamera(c.camera)
			c.engine.SubmitSky(c.skyEnabled)

			if pixels, w, h, ok := c.engine.Frames().Take(); ok {
				if err := c.ui.PresentFrame(pixels, w, h); err != nil {
					log.Printf("ui: present frame: %v", err)
				}
			}
		}
	}
}

func (c *UIController) handleEvents() (quit, reset bool) {
	for _, ev := range c.ui.PollInput() {
		switch ev.Key {
		case KeyQuit:
			return true, reset
		case KeyToggleSky:
			c.skyEnabled = !c.skyEnabled
			reset = true
		case KeyScreenshot:
			c.saveScreenshot()
		}
	}
	return false, reset
}

// screenshotSaver is implemented by frontends that can dump their current
// frame to disk (currently only EbitenFrontend); headless builds simply
// have no screenshot action available.
type screenshotSaver interface {
	SaveScreenshot() (string, error)
}

func (c *UIController) saveScreenshot() {
	s, ok := c.ui.(screenshotSaver)
	if !ok {
		return
	}
	path, err := s.SaveScreenshot()
	if err != nil {
		log.Printf("ui: screenshot failed: %v", err)
		return
	}
	log.Printf("ui: screenshot saved to %s", path)
}

// applyMovement reads the held-key state for continuous WASD/QE camera
// motion scaled by dt, and reports whether the camera actually moved (the
// caller resets FrameCount on any movement - spec §4.3 accumulation reset).
func (c *UIController) applyMovement(dt float32) (moved bool) {
	step := cameraMoveUnitsPerSecond * dt
	forward := c.camera.LookAt.Sub(c.camera.Origin).Unit()
	right := forward.Cross(c.camera.VUp).Unit()
	up := c.camera.VUp.Unit()

	apply := func(delta Vec3) {
		c.camera.Origin = c.camera.Origin.Add(delta)
		c.camera.LookAt = c.camera.LookAt.Add(delta)
		moved = true
	}
	if c.ui.IsKeyDown(KeyForward) {
		apply(forward.Scale(step))
	}
	if c.ui.IsKeyDown(KeyBack) {
		apply(forward.Scale(-step))
	}
	if c.ui.IsKeyDown(KeyStrafeRight) {
		apply(right.Scale(step))
	}
	if c.ui.IsKeyDown(KeyStrafeLeft) {
		apply(right.Scale(-step))
	}
	if c.ui.IsKeyDown(KeyUp) {
		apply(up.Scale(step))
	}
	if c.ui.IsKeyDown(KeyDown) {
		apply(up.Scale(-step))
	}
	return moved
}

// RebuildScene snapshots the current Scene and kicks off an asynchronous
// build. A build already in flight makes this a no-op: edits made while it
// runs are not part of that build, and no further build is started for
// them when it completes; they are picked up by the build that the next
// call after completion starts.
func (c *UIController) RebuildScene() {
	if c.buildInProgress {
		return
	}
	c.buildInProgress = true
	snapshot := c.scene.Snapshot()

	go func() {
		pkg, err := BuildScene(snapshot, c.loader, nil)
		if err != nil {
			log.Printf("ui: scene build failed: %v", err)
			pkg = nil
		}
		c.buildDoneCh <- pkg
	}()
}

// AddInstance appends inst to the scene and triggers a rebuild.
func (c *UIController) AddInstance(inst ModelInstance) int {
	idx := c.scene.Add(inst)
	c.RebuildScene()
	return idx
}

// RemoveInstance removes the instance at i and triggers a rebuild.
func (c *UIController) RemoveInstance(i int) {
	c.scene.Remove(i)
	c.RebuildScene()
}
