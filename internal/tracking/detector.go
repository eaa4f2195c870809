package tracking

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Atharva-Kanherkar/attentive/internal/capture"
)

// DefaultDetectionInterval is the polling cadence of the detector.
const DefaultDetectionInterval = 3 * time.Second

// Enricher adds metadata for a detected file name, e.g. its path on disk.
type Enricher interface {
	Enrich(ctx context.Context, fileName string) map[string]string
}

// Detector polls windows and drives the lifecycle on title changes.
type Detector struct {
	lister     capture.WindowLister
	classifier *Classifier
	lifecycle  *Lifecycle
	enricher   Enricher
	interval   time.Duration

	// tickMu keeps ticks serial even when Tick is called outside Run.
	tickMu sync.Mutex

	mu         sync.RWMutex
	lastSignal *Signal
}

// NewDetector wires a detector. enricher may be nil.
func NewDetector(lister capture.WindowLister, classifier *Classifier, lifecycle *Lifecycle, enricher Enricher, interval time.Duration) *Detector {
	if interval <= 0 {
		interval = DefaultDetectionInterval
	}
	return &Detector{
		lister:     lister,
		classifier: classifier,
		lifecycle:  lifecycle,
		enricher:   enricher,
		interval:   interval,
	}
}

// LastSignal returns the last signal that led to an open session, or nil.
func (d *Detector) LastSignal() *Signal {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.lastSignal == nil {
		return nil
	}
	sig := *d.lastSignal
	return &sig
}

// Reset forgets the last signal, so the next detection opens a session.
func (d *Detector) Reset() {
	d.mu.Lock()
	d.lastSignal = nil
	d.mu.Unlock()
}

func (d *Detector) setLastSignal(sig *Signal) {
	d.mu.Lock()
	d.lastSignal = sig
	d.mu.Unlock()
}

// Tick runs one detection pass. A listing failure skips the pass with no
// transition. The last signal only advances when the transition it
// triggered succeeded, so failed writes are retried on the next tick.
func (d *Detector) Tick(ctx context.Context) error {
	d.tickMu.Lock()
	defer d.tickMu.Unlock()

	windows, err := d.lister.ListWindows(ctx)
	if err != nil {
		return fmt.Errorf("failed to list windows: %w", err)
	}

	sig, found := d.classifier.Detect(windows)
	last := d.LastSignal()

	switch {
	case found && last != nil && last.Title == sig.Title:
		return nil

	case found:
		var meta map[string]string
		if d.enricher != nil && sig.FileName != "" {
			meta = d.enricher.Enrich(ctx, sig.FileName)
		}
		if _, err := d.lifecycle.Open(ctx, sig, meta); err != nil {
			return err
		}
		d.setLastSignal(&sig)

	case last != nil:
		if _, err := d.lifecycle.Close(ctx); err != nil {
			return err
		}
		d.setLastSignal(nil)
	}
	return nil
}

// Run polls until ctx is cancelled. The first pass runs immediately.
// Each pass runs detached from ctx so a pass in flight at shutdown
// completes its writes.
func (d *Detector) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.safeTick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.safeTick(ctx)
		}
	}
}

func (d *Detector) safeTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[detector] tick panicked: %v", r)
		}
	}()
	if err := d.Tick(context.WithoutCancel(ctx)); err != nil {
		log.Printf("[detector] %v", err)
	}
}
