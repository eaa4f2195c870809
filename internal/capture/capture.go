// Package capture defines the desktop primitives the tracker depends on:
// enumerating windows and grabbing the screen.
//
// Each platform-specific implementation lives in its own subpackage and
// satisfies one of these interfaces, so the engine never shells out itself.
package capture

import (
	"context"
	"errors"
	"time"
)

// ErrUnsupported is returned when the display server has no implementation.
var ErrUnsupported = errors.New("unsupported display server")

// Window is one top-level window. Only Title is required by detection;
// the rest is best-effort context for analysis.
type Window struct {
	Title   string `json:"title"`
	Class   string `json:"class,omitempty"`
	PID     int    `json:"pid,omitempty"`
	Focused bool   `json:"focused,omitempty"`
}

// WindowLister enumerates open windows, focused window first when known.
type WindowLister interface {
	ListWindows(ctx context.Context) ([]Window, error)
}

// Frame is one screen capture.
type Frame struct {
	Timestamp time.Time
	Data      []byte
	Format    string
	Width     int
	Height    int
}

// ScreenCapturer grabs the current screen contents.
type ScreenCapturer interface {
	CaptureScreen(ctx context.Context) (*Frame, error)
}

// Focused returns the focused window, or the first one if none is marked.
func Focused(windows []Window) (Window, bool) {
	for _, w := range windows {
		if w.Focused {
			return w, true
		}
	}
	if len(windows) > 0 {
		return windows[0], true
	}
	return Window{}, false
}
