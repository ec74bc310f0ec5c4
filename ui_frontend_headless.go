// ui_frontend_headless.go - the headless/CI frontend, adapted from the
// teacher's terminal raw-mode input idiom but driving camera keys instead
// of forwarding terminal bytes to an emulated keyboard port. Presents no
// window; PresentFrame just records the latest frame for inspection.

package main

import (
	"bufio"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

// heldKeyTimeout is how long a raw-mode keypress counts as "held" for
// IsKeyDown, since a terminal gives discrete byte reads, not key-up events.
const heldKeyTimeout = 200 * time.Millisecond

// HeadlessFrontend reads single-byte WASD/QE/sky/quit/screenshot commands
// from stdin in raw mode. Used for CI and scripted runs where no window
// system is available.
type HeadlessFrontend struct {
	running    bool
	oldState   *term.State
	width      int
	height     int

	mu          sync.Mutex
	events      []InputEvent
	heldUntil   map[InputKey]time.Time
	lastFrame   []byte
}

func NewHeadlessFrontend() *HeadlessFrontend {
	return &HeadlessFrontend{heldUntil: map[InputKey]time.Time{}}
}


var headlessKeyMap = map[byte]InputKey{
	'w': KeyForward, 's': KeyBack,
	'a': KeyStrafeLeft, 'd': KeyStrafeRight,
	'e': KeyUp, 'q': KeyDown,
	'o': KeyToggleSky, 'p': KeyScreenshot,
	'x': KeyQuit, 0x1b: KeyQuit,
}

func (f *HeadlessFrontend) Start(width, height int, title string) error {
	if f.running {
		return nil
	}
	f.width, f.height = width, height
	f.running = true

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		state, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("headless frontend start: %w", err)
		}
		f.oldState = state
		go f.readLoop()
	}
	return nil
}

func (f *HeadlessFrontend) readLoop() {
	reader := bufio.NewReader(os.Stdin)
	for f.running {
		b, err := reader.ReadByte()
		if err != nil {
			return
		}
		key, ok := headlessKeyMap[b]
		if !ok {
			continue
		}
		f.mu.Lock()
		f.heldUntil[key] = time.Now().Add(heldKeyTimeout)
		if key == KeyToggleSky || key == KeyScreenshot || key == KeyQuit {
			f.events = append(f.events, InputEvent{Key: key})
		}
		f.mu.Unlock()
	}
}

func (f *HeadlessFrontend) Stop() error {
	f.running = false
	if f.oldState != nil {
		term.Restore(int(os.Stdin.Fd()), f.oldState)
	}
	return nil
}

func (f *HeadlessFrontend) IsRunning() bool { return f.running }

func (f *HeadlessFrontend) PresentFrame(pixels []byte, width, height int) error {
	f.mu.Lock()
	f.lastFrame = pixels
	f.mu.Unlock()
	return nil
}

func (f *HeadlessFrontend) PollInput() []InputEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	events := f.events
	f.events = nil
	return events
}

func (f *HeadlessFrontend) IsKeyDown(key InputKey) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	until, ok := f.heldUntil[key]
	return ok && time.Now().Before(until)
}
