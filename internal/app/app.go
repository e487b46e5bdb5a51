// Package app runs the classification loop over the engine's output stream and
// publishes what it finds.
package app

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/abhinaya/internal/capture"
	"github.com/ayusman/abhinaya/internal/events"
	"github.com/ayusman/abhinaya/internal/face"
	"github.com/ayusman/abhinaya/internal/gesture"
	"github.com/ayusman/abhinaya/internal/logging"
	"github.com/ayusman/abhinaya/internal/store"
	"github.com/ayusman/abhinaya/internal/timeutil"
)

// DefaultPollInterval is the wait after a read that found no new row.
const DefaultPollInterval = 10 * time.Millisecond

// Stopper ends the upstream producer. Cancelling Run calls it.
type Stopper interface {
	Stop() error
}

// RunRecorder persists run summaries.
type RunRecorder interface {
	Start(ctx context.Context, run *store.Run) error
	Finish(ctx context.Context, id string, endedAt time.Time, c store.RunCounters) error
}

// Config holds everything one run needs.
type Config struct {
	Source   capture.Source
	Upstream capture.Upstream
	// Stopper is optional; without it cancellation waits for the upstream to exit.
	Stopper Stopper

	Layout   face.Layout
	Detector gesture.DetectorConfig

	PollInterval time.Duration
	Clock        timeutil.Clock

	Sink events.Sink
	Log  logrus.FieldLogger

	// Runs is optional. Mode, Variant and SourceName describe the run record.
	Runs       RunRecorder
	Mode       string
	Variant    string
	SourceName string
}

// Status is a point-in-time view of the loop for the API and tray.
type Status struct {
	Running     bool               `json:"running"`
	Enabled     bool               `json:"enabled"`
	RunID       string             `json:"run_id,omitempty"`
	StartedAt   time.Time          `json:"started_at,omitempty"`
	Expressions bool               `json:"expressions"`
	Expression  gesture.Expression `json:"expression"`
	Lines       int                `json:"lines"`
	Skipped     int                `json:"skipped"`
	Detector    gesture.Stats      `json:"detector"`
	PoseSums    gesture.Values     `json:"pose_sums,omitempty"`
	ShapeSums   gesture.Values     `json:"shape_sums,omitempty"`
	LastEvent   *gesture.Event     `json:"last_event,omitempty"`
}

// App owns the Detector and the loop that feeds it.
type App struct {
	config   Config
	detector *gesture.Detector
	clock    timeutil.Clock
	log      logrus.FieldLogger

	mu      sync.RWMutex
	enabled bool
	status  Status
}

// New creates an App. Missing optional parts get defaults.
func New(config Config) *App {
	if config.Clock == nil {
		config.Clock = timeutil.RealClock{}
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.Log == nil {
		config.Log = logging.Discard()
	}
	if config.Sink == nil {
		config.Sink = events.Multi{}
	}
	if config.Detector.Now == nil {
		config.Detector.Now = config.Clock.Now
	}

	a := &App{
		config:   config,
		detector: gesture.NewDetector(config.Detector),
		clock:    config.Clock,
		log:      config.Log,
		enabled:  true,
	}
	a.status.Enabled = true
	a.status.Expressions = a.detector.Expressions()
	a.status.Expression = a.detector.Expression()
	return a
}

// SetEnabled mutes or resumes event delivery. Classification keeps running
// while muted so the windows stay coherent.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
	a.status.Enabled = enabled
}

// IsEnabled returns whether events are delivered.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// Status returns a snapshot of the loop state.
func (a *App) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s := a.status
	if s.LastEvent != nil {
		ev := *s.LastEvent
		s.LastEvent = &ev
	}
	return s
}

func (a *App) updateStatus(fn func(s *Status)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fn(&a.status)
}
