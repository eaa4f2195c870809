package screen

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"

	"github.com/Atharva-Kanherkar/attentive/internal/capture"
	"github.com/Atharva-Kanherkar/attentive/internal/platform"
)

func TestNewFrameReadsDimensions(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 32, 18))); err != nil {
		t.Fatalf("encode: %v", err)
	}

	frame := NewFrame(buf.Bytes())
	if frame.Width != 32 || frame.Height != 18 {
		t.Errorf("unexpected dimensions %dx%d", frame.Width, frame.Height)
	}
	if frame.Format != "png" || frame.Timestamp.IsZero() {
		t.Errorf("unexpected frame: %+v", frame)
	}

	junk := NewFrame([]byte("not a png"))
	if junk.Width != 0 || junk.Height != 0 {
		t.Error("undecodable data should leave dimensions zero")
	}
}

func TestCaptureUnsupported(t *testing.T) {
	c := New(&platform.Platform{DisplayServer: platform.DisplayServerUnknown})
	if c.Available() {
		t.Error("unknown display server should not be available")
	}
	if _, err := c.CaptureScreen(context.Background()); !errors.Is(err, capture.ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
}
