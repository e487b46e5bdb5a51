package plugin

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/ayusman/abhinaya/internal/gesture"
	"github.com/ayusman/abhinaya/internal/store"
)

// ActionLookup finds the action bound to a label. It returns nil, nil when
// nothing is bound.
type ActionLookup interface {
	GetByLabel(ctx context.Context, label string) (*store.Action, error)
}

// Registry finds plugins by name.
type Registry interface {
	Get(name string) (*Plugin, error)
}

// Runner executes a plugin request.
type Runner interface {
	Execute(ctx context.Context, plugin *Plugin, req *Request) (*Response, error)
}

// DispatchStats counts dispatcher outcomes.
type DispatchStats struct {
	Dispatched int64 `json:"dispatched"`
	Throttled  int64 `json:"throttled"`
	Failed     int64 `json:"failed"`
}

// Dispatcher runs the action bound to each classification event. Plugins run
// asynchronously so a slow plugin never stalls the frame loop; a token bucket
// drops actions that arrive faster than the configured rate.
type Dispatcher struct {
	actions ActionLookup
	plugins Registry
	runner  Runner
	limiter *rate.Limiter
	log     logrus.FieldLogger

	wg         sync.WaitGroup
	dispatched atomic.Int64
	throttled  atomic.Int64
	failed     atomic.Int64
}

// NewDispatcher creates a Dispatcher. A nil limiter disables throttling.
func NewDispatcher(actions ActionLookup, plugins Registry, runner Runner, limiter *rate.Limiter, log logrus.FieldLogger) *Dispatcher {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 0)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Dispatcher{
		actions: actions,
		plugins: plugins,
		runner:  runner,
		limiter: limiter,
		log:     log,
	}
}

// Emit looks up the action for ev and starts it. Lifecycle events and labels
// without an enabled action are ignored.
func (d *Dispatcher) Emit(ctx context.Context, ev gesture.Event) error {
	if ev.Kind == gesture.KindLifecycle {
		return nil
	}

	action, err := d.actions.GetByLabel(ctx, ev.Label)
	if err != nil {
		return fmt.Errorf("lookup action for %q: %w", ev.Label, err)
	}
	if action == nil || !action.Enabled {
		return nil
	}

	plug, err := d.plugins.Get(action.PluginName)
	if err != nil {
		return fmt.Errorf("action %s: %w: %s", action.ID, err, action.PluginName)
	}
	if !plug.Manifest.HasAction(action.ActionName) {
		return fmt.Errorf("plugin %s has no action %q", action.PluginName, action.ActionName)
	}

	log := d.log.WithFields(logrus.Fields{
		"event":  ev.Label,
		"plugin": action.PluginName,
		"action": action.ActionName,
	})

	if !d.limiter.Allow() {
		d.throttled.Add(1)
		log.Warn("plugin action throttled")
		return nil
	}

	req := &Request{
		Action:    action.ActionName,
		Event:     ev.Label,
		Kind:      string(ev.Kind),
		Text:      ev.Text,
		Timestamp: ev.Timestamp,
		Config:    action.Config,
	}

	d.dispatched.Add(1)
	d.wg.Add(1)
	// The plugin outlives the loop's cancellation; the executor timeout bounds it.
	runCtx := context.WithoutCancel(ctx)
	go func() {
		defer d.wg.Done()
		d.run(runCtx, plug, req, log)
	}()
	return nil
}

func (d *Dispatcher) run(ctx context.Context, plug *Plugin, req *Request, log logrus.FieldLogger) {
	resp, err := d.runner.Execute(ctx, plug, req)
	if err != nil {
		d.failed.Add(1)
		log.WithError(err).Error("plugin action failed")
		return
	}
	if !resp.Success {
		d.failed.Add(1)
		log.WithField("plugin_error", resp.Error).Warn("plugin reported failure")
		return
	}
	log.Debug("plugin action done")
}

// Wait blocks until every started action has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Stats returns a snapshot of the counters.
func (d *Dispatcher) Stats() DispatchStats {
	return DispatchStats{
		Dispatched: d.dispatched.Load(),
		Throttled:  d.throttled.Load(),
		Failed:     d.failed.Load(),
	}
}
