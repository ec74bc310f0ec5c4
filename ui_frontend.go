// ui_frontend.go - the UI role's display/input abstraction (spec §4.5,
// §6). Collapses the teacher's GUIFrontend (window lifecycle) and
// VideoOutput (frame presentation) into one interface: this domain has a
// single frontend per process, not a pluggable GUI-toolkit-vs-video-backend
// pair, so one interface captures both halves of that contract.

package main

// InputKey enumerates the keys the UI controller reacts to: camera
// movement (WASD forward/strafe, QE up/down), sky toggle, and a
// screenshot hotkey.
type InputKey int

const (
	KeyForward InputKey = iota
	KeyBack
	KeyStrafeLeft
	KeyStrafeRight
	KeyUp
	KeyDown
	KeyToggleSky
	KeyScreenshot
	KeyQuit
)

// InputEvent is a single discrete key-down, reported once per physical
// press (not repeated while held - continuous motion is handled by the UI
// controller polling IsKeyDown itself between PollInput calls).
type InputEvent struct {
	Key InputKey
}

// UIFrontend is implemented once per build (ebiten-windowed or
// term-headless). The UI controller drives it from its own tick loop;
// PresentFrame is called with whatever the render engine's frame slot
// last handed over, Start/Stop bracket the frontend's lifetime.
type UIFrontend interface {
	Start(width, height int, title string) error
	Stop() error

	// PollInput drains discrete key-down events since the last call.
	PollInput() []InputEvent
	// IsKeyDown reports whether a movement key is currently held, for
	// continuous WASD-style camera motion rather than one-shot events.
	IsKeyDown(key InputKey) bool

	PresentFrame(pixels []byte, width, height int) error
	IsRunning() bool
}

// newUIFrontend picks the windowed or terminal frontend per the -headless
// flag (spec §1 Configuration): both are always compiled in, so a render
// host with no window system still builds and tests cleanly, it just
// never calls the windowed frontend's Start.
func newUIFrontend(headless bool) UIFrontend {
	if headless {
		return NewHeadlessFrontend()
	}
	return NewEbitenFrontend()
}
