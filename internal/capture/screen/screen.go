// Package screen grabs screenshots for productivity analysis.
//
// On Wayland compositors we use grim, which writes PNG to stdout.
// On X11 scrot needs a file, so it goes through a temp file.
// On macOS screencapture does the same.
package screen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/Atharva-Kanherkar/attentive/internal/capture"
	"github.com/Atharva-Kanherkar/attentive/internal/platform"
)

// Capturer implements capture.ScreenCapturer.
type Capturer struct {
	platform *platform.Platform

	// CaptureAllMonitors captures every output instead of the focused one.
	CaptureAllMonitors bool
}

// New creates a screen Capturer.
func New(plat *platform.Platform) *Capturer {
	return &Capturer{platform: plat}
}

// Name returns the capturer identifier.
func (c *Capturer) Name() string {
	return "screen"
}

// Available checks if screen capture is possible.
func (c *Capturer) Available() bool {
	return c.platform.CanCaptureScreen()
}

// CaptureScreen takes a screenshot.
func (c *Capturer) CaptureScreen(ctx context.Context) (*capture.Frame, error) {
	var data []byte
	var err error

	switch c.platform.DisplayServer {
	case platform.DisplayServerHyprland, platform.DisplayServerSway, platform.DisplayServerWayland:
		data, err = c.captureGrim(ctx)
	case platform.DisplayServerX11:
		data, err = captureToFile(ctx, "scrot", "--overwrite")
	case platform.DisplayServerMacOS:
		data, err = captureToFile(ctx, "screencapture", "-x", "-t", "png")
	default:
		return nil, fmt.Errorf("%w: %s", capture.ErrUnsupported, c.platform.DisplayServer)
	}
	if err != nil {
		return nil, err
	}

	return NewFrame(data), nil
}

// NewFrame wraps PNG bytes, reading dimensions when the data decodes.
func NewFrame(data []byte) *capture.Frame {
	frame := &capture.Frame{
		Timestamp: time.Now(),
		Data:      data,
		Format:    "png",
	}
	if cfg, err := png.DecodeConfig(bytes.NewReader(data)); err == nil {
		frame.Width = cfg.Width
		frame.Height = cfg.Height
	}
	return frame
}

type hyprMonitor struct {
	Name    string `json:"name"`
	Focused bool   `json:"focused"`
}

func (c *Capturer) captureGrim(ctx context.Context) ([]byte, error) {
	args := []string{"-"}
	if !c.CaptureAllMonitors && c.platform.DisplayServer == platform.DisplayServerHyprland {
		if name := focusedMonitor(ctx); name != "" {
			args = []string{"-o", name, "-"}
		}
	}

	cmd := exec.CommandContext(ctx, "grim", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("grim failed: %w (stderr: %s)", err, stderr.String())
	}
	return stdout.Bytes(), nil
}

// focusedMonitor asks Hyprland which output has focus. Falls back to all
// outputs on any error.
func focusedMonitor(ctx context.Context) string {
	out, err := exec.CommandContext(ctx, "hyprctl", "monitors", "-j").Output()
	if err != nil {
		return ""
	}
	var monitors []hyprMonitor
	if err := json.Unmarshal(out, &monitors); err != nil {
		return ""
	}
	for _, m := range monitors {
		if m.Focused {
			return m.Name
		}
	}
	return ""
}

func captureToFile(ctx context.Context, tool string, args ...string) ([]byte, error) {
	dir, err := os.MkdirTemp("", "attentive-capture")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "screen.png")
	cmd := exec.CommandContext(ctx, tool, append(args, path)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s failed: %w (stderr: %s)", tool, err, stderr.String())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s output: %w", tool, err)
	}
	return data, nil
}
