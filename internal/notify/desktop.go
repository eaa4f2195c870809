// Package notify pushes tracking events to the user: desktop notifications
// via notify-send and live updates to websocket clients.
package notify

import (
	"fmt"
	"log"
	"os/exec"
	"sync"
	"time"
)

// Urgency levels for desktop notifications.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyNormal   Urgency = "normal"
	UrgencyCritical Urgency = "critical"
)

// DesktopNotifier sends desktop notifications via notify-send.
type DesktopNotifier struct {
	appName  string
	expireMs int
	run      func(name string, args ...string) error

	once      sync.Once
	available bool
}

// NewDesktopNotifier creates a notifier. Notifications expire after
// expire; zero leaves it to the notification daemon.
func NewDesktopNotifier(expire time.Duration) *DesktopNotifier {
	return &DesktopNotifier{
		appName:  "Attentive",
		expireMs: int(expire / time.Millisecond),
		run: func(name string, args ...string) error {
			return exec.Command(name, args...).Run()
		},
	}
}

// Available checks if notify-send is available. The lookup is cached.
func (n *DesktopNotifier) Available() bool {
	n.once.Do(func() {
		_, err := exec.LookPath("notify-send")
		n.available = err == nil
	})
	return n.available
}

// Send sends a desktop notification. Without notify-send it does nothing.
func (n *DesktopNotifier) Send(title, body string, urgency Urgency) error {
	if !n.Available() {
		return nil
	}
	return n.run("notify-send", n.args(title, body, urgency)...)
}

// SendAsync sends in the background and logs failures, for callers that
// must not block.
func (n *DesktopNotifier) SendAsync(title, body string, urgency Urgency) {
	go func() {
		if err := n.Send(title, body, urgency); err != nil {
			log.Printf("[notify] Desktop notification failed: %v", err)
		}
	}()
}

func (n *DesktopNotifier) args(title, body string, urgency Urgency) []string {
	args := []string{
		"--app-name=" + n.appName,
		"--urgency=" + string(urgency),
	}
	switch urgency {
	case UrgencyCritical:
		args = append(args, "--icon=dialog-warning")
	default:
		args = append(args, "--icon=dialog-information")
	}
	if n.expireMs > 0 {
		args = append(args, fmt.Sprintf("--expire-time=%d", n.expireMs))
	}
	return append(args, title, body)
}
