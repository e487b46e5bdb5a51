package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/abhinaya/internal/face"
	"github.com/ayusman/abhinaya/internal/gesture"
	"github.com/ayusman/abhinaya/internal/store"
)

// Run consumes rows until the upstream stops running, then emits the terminal
// "Program ended" event. Cancelling ctx stops the upstream through the
// configured Stopper; the loop itself only ever checks liveness.
//
// Run returns an error only when the source fails. Unparseable rows are
// skipped and sink failures are logged.
func (a *App) Run(ctx context.Context) error {
	runID := a.startRun(ctx)
	a.updateStatus(func(s *Status) {
		s.Running = true
		s.RunID = runID
		s.StartedAt = a.clock.Now()
	})

	done := make(chan struct{})
	defer close(done)
	go a.stopOnCancel(ctx, done)

	log := a.log.WithField("run", runID)
	log.Info("classification started")

	var runErr error
	lines, skipped := 0, 0
	for a.config.Upstream.Running() {
		line, ok, err := a.config.Source.ReadLine()
		if err != nil {
			runErr = fmt.Errorf("read frame: %w", err)
			break
		}
		if !ok {
			a.clock.Sleep(a.config.PollInterval)
			continue
		}
		lines++

		frame, err := face.Decode(line, a.config.Layout)
		if errors.Is(err, face.ErrEmptyLine) {
			a.clock.Sleep(a.config.PollInterval)
			continue
		}
		if err != nil {
			skipped++
			log.WithField("line", lines).WithError(err).Debug("skipping row")
			a.updateStatus(func(s *Status) {
				s.Lines = lines
				s.Skipped = skipped
			})
			continue
		}

		evs := a.detector.Process(frame)
		a.publishProgress(lines, skipped)
		for _, ev := range evs {
			a.deliver(ctx, ev)
		}
	}

	// The terminal event must reach sinks even when ctx is already cancelled.
	endCtx := context.WithoutCancel(ctx)
	a.deliver(endCtx, gesture.EndedEvent(a.detector.LastTimestamp(), a.clock.Now()))

	stats := a.detector.Stats()
	a.updateStatus(func(s *Status) { s.Running = false })
	a.finishRun(endCtx, runID, skipped, stats)

	fields := logrus.Fields{
		"lines":     lines,
		"skipped":   skipped,
		"frames":    stats.Frames,
		"gated":     stats.Gated,
		"regressed": stats.Regressed,
		"events":    stats.Events,
	}
	if runErr != nil {
		log.WithFields(fields).WithError(runErr).Error("classification stopped")
		return runErr
	}
	log.WithFields(fields).Info("classification finished")
	return nil
}

func (a *App) stopOnCancel(ctx context.Context, done <-chan struct{}) {
	select {
	case <-done:
	case <-ctx.Done():
		if a.config.Stopper == nil {
			return
		}
		a.log.Info("stopping upstream")
		if err := a.config.Stopper.Stop(); err != nil {
			a.log.WithError(err).Warn("failed to stop upstream")
		}
	}
}

func (a *App) publishProgress(lines, skipped int) {
	stats := a.detector.Stats()
	expr := a.detector.Expression()
	pose := a.detector.PoseSums()
	shape := a.detector.ShapeSums()

	a.updateStatus(func(s *Status) {
		s.Lines = lines
		s.Skipped = skipped
		s.Detector = stats
		s.Expression = expr
		s.PoseSums = pose
		s.ShapeSums = shape
	})
}

// deliver hands ev to the sink. Classification events are dropped while
// delivery is disabled; the terminal event always goes out.
func (a *App) deliver(ctx context.Context, ev gesture.Event) {
	a.updateStatus(func(s *Status) { s.LastEvent = &ev })

	if ev.Kind != gesture.KindLifecycle && !a.IsEnabled() {
		return
	}
	if err := a.config.Sink.Emit(ctx, ev); err != nil {
		a.log.WithFields(logrus.Fields{
			"event": ev.Label,
			"ts":    ev.Timestamp,
		}).WithError(err).Warn("event delivery failed")
	}
}

func (a *App) startRun(ctx context.Context) string {
	if a.config.Runs == nil {
		return ""
	}
	run := &store.Run{
		Mode:      a.config.Mode,
		Variant:   a.config.Variant,
		Source:    a.config.SourceName,
		StartedAt: a.clock.Now(),
	}
	if err := a.config.Runs.Start(ctx, run); err != nil {
		a.log.WithError(err).Warn("failed to record run start")
		return ""
	}
	return run.ID
}

func (a *App) finishRun(ctx context.Context, runID string, skipped int, stats gesture.Stats) {
	if a.config.Runs == nil || runID == "" {
		return
	}
	err := a.config.Runs.Finish(ctx, runID, a.clock.Now(), store.RunCounters{
		Frames:    stats.Frames,
		Skipped:   skipped,
		Gated:     stats.Gated,
		Regressed: stats.Regressed,
		Events:    stats.Events,
	})
	if err != nil {
		a.log.WithError(err).Warn("failed to record run finish")
	}
}
