// ui_frontend_ebiten.go - the windowed UI frontend, adapted from
// EbitenOutput's Update/Draw/Layout/vsyncChan structure: same
// bufferMutex-guarded frame buffer and first-Draw vsync handshake, but
// camera-motion key polling instead of keyboard-to-terminal-byte
// translation, since this frontend drives a 3D camera, not a terminal.

package main

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// EbitenFrontend presents render engine output in a resizable window and
// reports WASD/QE camera motion plus an F2 screenshot hotkey back to the
// UI controller.
type EbitenFrontend struct {
	running   bool
	window    *ebiten.Image
	width     int
	height    int
	vsyncChan chan struct{}

	mu          sync.RWMutex
	frameBuffer []byte
	events      []InputEvent
}

// NewEbitenFrontend constructs an idle frontend; Start opens the window.
func NewEbitenFrontend() *EbitenFrontend {
	return &EbitenFrontend{vsyncChan: make(chan struct{}, 1)}
}


func (f *EbitenFrontend) Start(width, height int, title string) error {
	if f.running {
		return nil
	}
	f.width, f.height = width, height
	f.frameBuffer = make([]byte, width*height*4)
	f.running = true

	ebiten.SetWindowSize(width, height)
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowResizable(true)
	ebiten.SetRunnableOnUnfocused(true)
	ebiten.SetVsyncEnabled(true)

	go func() {
		if err := ebiten.RunGame(f); err != nil {
			fmt.Printf("ebiten frontend exited: %v\n", err)
		}
	}()

	<-f.vsyncChan // wait for the first Draw so Start doesn't race window creation
	return nil
}

func (f *EbitenFrontend) Stop() error {
	f.running = false
	return nil
}

func (f *EbitenFrontend) IsRunning() bool { return f.running }

func (f *EbitenFrontend) PresentFrame(pixels []byte, width, height int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if width != f.width || height != f.height || len(f.frameBuffer) != len(pixels) {
		return fmt.Errorf("presented frame is %dx%d, frontend is %dx%d", width, height, f.width, f.height)
	}
	copy(f.frameBuffer, pixels)
	return nil
}

func (f *EbitenFrontend) PollInput() []InputEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	events := f.events
	f.events = nil
	return events
}

var movementKeys = map[InputKey]ebiten.Key{
	KeyForward:    ebiten.KeyW,
	KeyBack:       ebiten.KeyS,
	KeyStrafeLeft: ebiten.KeyA,
	KeyStrafeRight: ebiten.KeyD,
	KeyUp:         ebiten.KeyE,
	KeyDown:       ebiten.KeyQ,
}

func (f *EbitenFrontend) IsKeyDown(key InputKey) bool {
	ek, ok := movementKeys[key]
	if !ok {
		return false
	}
	return ebiten.IsKeyPressed(ek)
}

// Update satisfies ebiten.Game; it only records discrete events (the
// continuous movement keys are read on demand via IsKeyDown instead).
func (f *EbitenFrontend) Update() error {
	if ebiten.IsWindowBeingClosed() || !f.running {
		f.mu.Lock()
		f.events = append(f.events, InputEvent{Key: KeyQuit})
		f.mu.Unlock()
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyTab) {
		f.mu.Lock()
		f.events = append(f.events, InputEvent{Key: KeyToggleSky})
		f.mu.Unlock()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF2) {
		f.mu.Lock()
		f.events = append(f.events, InputEvent{Key: KeyScreenshot})
		f.mu.Unlock()
	}
	return nil
}

func (f *EbitenFrontend) Draw(screen *ebiten.Image) {
	if f.window == nil {
		f.window = ebiten.NewImage(f.width, f.height)
	}
	f.mu.RLock()
	f.window.WritePixels(f.frameBuffer)
	f.mu.RUnlock()
	screen.DrawImage(f.window, nil)

	select {
	case f.vsyncChan <- struct{}{}:
	default:
	}
}

func (f *EbitenFrontend) Layout(_, _ int) (int, int) {
	return f.width, f.height
}

// SaveScreenshot writes the current frame buffer to a timestamped PNG in
// the working directory, for the F2 hotkey's follow-up action.
func (f *EbitenFrontend) SaveScreenshot() (string, error) {
	f.mu.RLock()
	buf := make([]byte, len(f.frameBuffer))
	copy(buf, f.frameBuffer)
	w, h := f.width, f.height
	f.mu.RUnlock()

	img := &image.NRGBA{Pix: buf, Stride: w * 4, Rect: image.Rect(0, 0, w, h)}
	var out bytes.Buffer
	if err := png.Encode(&out, img); err != nil {
		return "", fmt.Errorf("encode screenshot: %w", err)
	}
	name := fmt.Sprintf("vkpath-%d.png", time.Now().UnixNano())
	if err := os.WriteFile(name, out.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write screenshot: %w", err)
	}
	return name, nil
}
