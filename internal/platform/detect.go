// Package platform handles detection of the operating system and display server.
//
// Different platforms need different tools to:
// - List open windows (hyprctl on Hyprland, swaymsg on Sway, wmctrl on X11)
// - Capture screenshots (grim on Wayland, scrot on X11, screencapture on macOS)
// - Show desktop notifications (notify-send on Linux)
package platform

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// DisplayServer represents the display server type.
type DisplayServer string

const (
	DisplayServerHyprland DisplayServer = "hyprland"
	DisplayServerSway     DisplayServer = "sway"
	DisplayServerWayland  DisplayServer = "wayland" // Generic Wayland (GNOME, KDE)
	DisplayServerX11      DisplayServer = "x11"
	DisplayServerMacOS    DisplayServer = "macos"
	DisplayServerUnknown  DisplayServer = "unknown"
)

// Platform holds information about the detected platform.
type Platform struct {
	// OS is the operating system: "linux", "darwin" (macOS), "windows"
	OS string

	DisplayServer DisplayServer

	// Available tools
	HasHyprctl    bool // Hyprland window listing
	HasSwaymsg    bool // Sway window tree
	HasGrim       bool // Wayland screenshot
	HasWmctrl     bool // X11 window listing
	HasXdotool    bool // X11 active window
	HasScrot      bool // X11 screenshot
	HasNotifySend bool // desktop notifications
	HasScreencap  bool // macOS screencapture
	HasOsascript  bool // macOS window titles
}

// String returns a human-readable description of the platform.
func (p *Platform) String() string {
	return fmt.Sprintf("%s/%s", p.OS, p.DisplayServer)
}

// Detect figures out what platform we're running on.
func Detect() (*Platform, error) {
	p := &Platform{
		OS:            runtime.GOOS,
		DisplayServer: detectDisplayServer(),
	}

	p.HasHyprctl = commandExists("hyprctl")
	p.HasSwaymsg = commandExists("swaymsg")
	p.HasGrim = commandExists("grim")
	p.HasWmctrl = commandExists("wmctrl")
	p.HasXdotool = commandExists("xdotool")
	p.HasScrot = commandExists("scrot")
	p.HasNotifySend = commandExists("notify-send")
	p.HasScreencap = commandExists("screencapture")
	p.HasOsascript = commandExists("osascript")

	return p, nil
}

func detectDisplayServer() DisplayServer {
	if runtime.GOOS == "darwin" {
		return DisplayServerMacOS
	}

	// Hyprland sets HYPRLAND_INSTANCE_SIGNATURE
	if os.Getenv("HYPRLAND_INSTANCE_SIGNATURE") != "" {
		return DisplayServerHyprland
	}
	if os.Getenv("SWAYSOCK") != "" {
		return DisplayServerSway
	}

	sessionType := os.Getenv("XDG_SESSION_TYPE")
	if sessionType == "wayland" || os.Getenv("WAYLAND_DISPLAY") != "" {
		return DisplayServerWayland
	}
	if sessionType == "x11" || os.Getenv("DISPLAY") != "" {
		return DisplayServerX11
	}

	return DisplayServerUnknown
}

// commandExists checks if a command is available in PATH.
func commandExists(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}

// IsWayland returns true if we're on any Wayland compositor.
func (p *Platform) IsWayland() bool {
	switch p.DisplayServer {
	case DisplayServerHyprland, DisplayServerSway, DisplayServerWayland:
		return true
	default:
		return false
	}
}

// CanListWindows returns true if we have a tool that enumerates windows.
func (p *Platform) CanListWindows() bool {
	switch p.DisplayServer {
	case DisplayServerHyprland:
		return p.HasHyprctl
	case DisplayServerSway:
		return p.HasSwaymsg
	case DisplayServerX11:
		return p.HasWmctrl
	case DisplayServerMacOS:
		return p.HasOsascript
	default:
		return false
	}
}

// CanCaptureScreen returns true if we have tools to capture screenshots.
func (p *Platform) CanCaptureScreen() bool {
	switch p.DisplayServer {
	case DisplayServerHyprland, DisplayServerSway, DisplayServerWayland:
		return p.HasGrim
	case DisplayServerX11:
		return p.HasScrot
	case DisplayServerMacOS:
		return p.HasScreencap
	default:
		return false
	}
}

// SupportedFeatures returns a human-readable list of what we can capture.
func (p *Platform) SupportedFeatures() []string {
	var features []string
	if p.CanListWindows() {
		features = append(features, "document detection")
	}
	if p.CanCaptureScreen() {
		features = append(features, "screen analysis")
	}
	if p.HasNotifySend {
		features = append(features, "desktop notifications")
	}
	if len(features) == 0 {
		return []string{"none - missing required tools"}
	}
	return features
}

// CheckRequirements lists missing tools with install hints.
func (p *Platform) CheckRequirements() []string {
	var missing []string

	switch p.DisplayServer {
	case DisplayServerHyprland:
		if !p.HasGrim {
			missing = append(missing, "grim (install: sudo pacman -S grim)")
		}
	case DisplayServerSway, DisplayServerWayland:
		if !p.HasGrim {
			missing = append(missing, "grim (install: sudo pacman -S grim)")
		}
		if p.DisplayServer == DisplayServerSway && !p.HasSwaymsg {
			missing = append(missing, "swaymsg (install: sudo pacman -S sway)")
		}
	case DisplayServerX11:
		if !p.HasWmctrl {
			missing = append(missing, "wmctrl (install: sudo pacman -S wmctrl)")
		}
		if !p.HasScrot {
			missing = append(missing, "scrot (install: sudo pacman -S scrot)")
		}
	}

	if p.OS == "linux" && !p.HasNotifySend {
		missing = append(missing, "notify-send (install: sudo pacman -S libnotify)")
	}

	return missing
}
