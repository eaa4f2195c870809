// Package window lists open windows on the desktop.
//
// Each display server has its own tool:
// - Hyprland: hyprctl clients -j
// - Sway: swaymsg -t get_tree
// - X11: wmctrl -l -p -x (plus xdotool for the focused window)
// - macOS: osascript against System Events
//
// Parsing is kept in pure functions so it can be tested without a desktop.
package window

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"github.com/Atharva-Kanherkar/attentive/internal/capture"
	"github.com/Atharva-Kanherkar/attentive/internal/platform"
)

// Lister implements capture.WindowLister.
type Lister struct {
	platform *platform.Platform
}

// New creates a Lister for the detected platform.
func New(plat *platform.Platform) *Lister {
	return &Lister{platform: plat}
}

// Name returns the lister identifier.
func (l *Lister) Name() string {
	return "window"
}

// Available checks if window listing is possible on this system.
func (l *Lister) Available() bool {
	return l.platform.CanListWindows()
}

// ListWindows returns the open windows, focused first when known.
func (l *Lister) ListWindows(ctx context.Context) ([]capture.Window, error) {
	switch l.platform.DisplayServer {
	case platform.DisplayServerHyprland:
		out, err := exec.CommandContext(ctx, "hyprctl", "clients", "-j").Output()
		if err != nil {
			return nil, fmt.Errorf("hyprctl failed: %w", err)
		}
		return ParseHyprlandClients(out)
	case platform.DisplayServerSway:
		out, err := exec.CommandContext(ctx, "swaymsg", "-t", "get_tree").Output()
		if err != nil {
			return nil, fmt.Errorf("swaymsg failed: %w", err)
		}
		return ParseSwayTree(out)
	case platform.DisplayServerX11:
		return l.listX11(ctx)
	case platform.DisplayServerMacOS:
		out, err := exec.CommandContext(ctx, "osascript", "-e", macOSScript).Output()
		if err != nil {
			return nil, fmt.Errorf("osascript failed: %w", err)
		}
		return ParseMacOSWindows(out), nil
	default:
		return nil, fmt.Errorf("%w: %s", capture.ErrUnsupported, l.platform.DisplayServer)
	}
}

// HyprlandClient is one entry of `hyprctl clients -j`.
type HyprlandClient struct {
	Address        string `json:"address"`
	Class          string `json:"class"`
	Title          string `json:"title"`
	PID            int    `json:"pid"`
	Mapped         bool   `json:"mapped"`
	Hidden         bool   `json:"hidden"`
	FocusHistoryID int    `json:"focusHistoryID"`
}

// ParseHyprlandClients decodes hyprctl output, most recently focused first.
func ParseHyprlandClients(data []byte) ([]capture.Window, error) {
	var clients []HyprlandClient
	if err := json.Unmarshal(data, &clients); err != nil {
		return nil, fmt.Errorf("failed to parse hyprctl output: %w", err)
	}

	// focusHistoryID 0 is the focused window, -1 means never focused
	sort.SliceStable(clients, func(i, j int) bool {
		a, b := clients[i].FocusHistoryID, clients[j].FocusHistoryID
		if a < 0 {
			return false
		}
		if b < 0 {
			return true
		}
		return a < b
	})

	windows := make([]capture.Window, 0, len(clients))
	for _, c := range clients {
		if !c.Mapped || c.Hidden {
			continue
		}
		windows = append(windows, capture.Window{
			Title:   c.Title,
			Class:   c.Class,
			PID:     c.PID,
			Focused: c.FocusHistoryID == 0,
		})
	}
	return windows, nil
}

type swayNode struct {
	Name          string     `json:"name"`
	Type          string     `json:"type"`
	Focused       bool       `json:"focused"`
	PID           int        `json:"pid"`
	AppID         string     `json:"app_id"`
	Nodes         []swayNode `json:"nodes"`
	FloatingNodes []swayNode `json:"floating_nodes"`
	WindowProps   *struct {
		Class string `json:"class"`
	} `json:"window_properties"`
}

// ParseSwayTree walks the sway layout tree and collects view nodes.
func ParseSwayTree(data []byte) ([]capture.Window, error) {
	var root swayNode
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse sway tree: %w", err)
	}

	var windows []capture.Window
	var walk func(n swayNode)
	walk = func(n swayNode) {
		if (n.Type == "con" || n.Type == "floating_con") && n.PID > 0 {
			class := n.AppID
			if class == "" && n.WindowProps != nil {
				class = n.WindowProps.Class
			}
			w := capture.Window{Title: n.Name, Class: class, PID: n.PID, Focused: n.Focused}
			if w.Focused {
				windows = append([]capture.Window{w}, windows...)
			} else {
				windows = append(windows, w)
			}
		}
		for _, c := range n.Nodes {
			walk(c)
		}
		for _, c := range n.FloatingNodes {
			walk(c)
		}
	}
	walk(root)
	return windows, nil
}

func (l *Lister) listX11(ctx context.Context) ([]capture.Window, error) {
	out, err := exec.CommandContext(ctx, "wmctrl", "-l", "-p", "-x").Output()
	if err != nil {
		return nil, fmt.Errorf("wmctrl failed: %w", err)
	}

	active := ""
	if l.platform.HasXdotool {
		if id, err := exec.CommandContext(ctx, "xdotool", "getactivewindow").Output(); err == nil {
			active = strings.TrimSpace(string(id))
		}
	}
	return ParseWmctrl(out, active), nil
}

// ParseWmctrl decodes `wmctrl -l -p -x` output. activeID is the decimal
// window id reported by xdotool, or empty.
//
// Line format: <hex id> <desktop> <pid> <instance.class> <host> <title...>
func ParseWmctrl(data []byte, activeID string) []capture.Window {
	var activeHex uint64
	hasActive := false
	if activeID != "" {
		if v, err := strconv.ParseUint(activeID, 10, 64); err == nil {
			activeHex, hasActive = v, true
		}
	}

	var windows []capture.Window
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 5 {
			continue
		}
		// desktop -1 marks sticky panels and docks
		if fields[1] == "-1" {
			continue
		}

		w := capture.Window{Class: fields[3]}
		if i := strings.LastIndex(fields[3], "."); i >= 0 {
			w.Class = fields[3][i+1:]
		}
		w.PID, _ = strconv.Atoi(fields[2])
		if len(fields) > 5 {
			w.Title = strings.Join(fields[5:], " ")
		}
		if hasActive {
			if id, err := strconv.ParseUint(strings.TrimPrefix(fields[0], "0x"), 16, 64); err == nil && id == activeHex {
				w.Focused = true
			}
		}

		if w.Focused {
			windows = append([]capture.Window{w}, windows...)
		} else {
			windows = append(windows, w)
		}
	}
	return windows
}

// macOSScript prints "app\ttitle" per window, frontmost app first.
const macOSScript = `
set output to ""
tell application "System Events"
	set frontApp to name of first application process whose frontmost is true
	repeat with p in (application processes whose background only is false)
		set appName to name of p
		repeat with w in windows of p
			set output to output & appName & tab & (name of w) & tab & (appName is frontApp) & linefeed
		end repeat
	end repeat
end tell
return output`

// ParseMacOSWindows decodes the osascript output.
func ParseMacOSWindows(data []byte) []capture.Window {
	var windows []capture.Window
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		parts := strings.Split(scanner.Text(), "\t")
		if len(parts) < 2 {
			continue
		}
		w := capture.Window{Class: parts[0], Title: parts[1]}
		if len(parts) > 2 && parts[2] == "true" {
			w.Focused = true
			windows = append([]capture.Window{w}, windows...)
			continue
		}
		windows = append(windows, w)
	}
	return windows
}
