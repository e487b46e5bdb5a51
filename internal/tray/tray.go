// Package tray provides a system tray indicator for the classifier.
package tray

import (
	"context"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/abhinaya/internal/gesture"
)

// Tray shows the last event and the current expression, and lets the user
// mute delivery or quit.
type Tray struct {
	onToggle func(enabled bool)
	onQuit   func()
	current  func() bool
	enabled  bool
	last     string
	expr     gesture.Expression
	mu       sync.RWMutex

	menuToggle     *systray.MenuItem
	menuLastEvent  *systray.MenuItem
	menuExpression *systray.MenuItem
}

// New creates a new Tray instance with enabled state set to true by default.
func New() *Tray {
	return &Tray{
		enabled: true,
		expr:    gesture.ExpressionNeutral,
	}
}

// OnToggle sets the callback function to be called when the enabled state is toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// TrackEnabled makes toggling flip the state reported by fn rather than the
// tray's own copy, which goes stale when delivery is muted elsewhere.
func (t *Tray) TrackEnabled(fn func() bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until Quit is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit removes the tray icon and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("Abhinaya")
	systray.SetTooltip("Abhinaya head gesture and expression classifier")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle event delivery")
	systray.AddSeparator()

	t.menuLastEvent = systray.AddMenuItem(lastTitle(t.last), "Last classification")
	t.menuLastEvent.Disable()
	t.menuExpression = systray.AddMenuItem(expressionTitle(t.expr), "Current expression")
	t.menuExpression.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Stop classification and quit")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) handleToggle() {
	t.mu.RLock()
	current := t.current
	t.mu.RUnlock()

	enabled := !t.IsEnabled()
	if current != nil {
		enabled = !current()
	}

	t.mu.Lock()
	t.enabled = enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetEnabled shows the delivery state without calling the toggle callback.
func (t *Tray) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.enabled = enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
}

// Emit records ev in the menu. Tray implements events.Sink.
func (t *Tray) Emit(_ context.Context, ev gesture.Event) error {
	t.SetLastEvent(ev)
	return nil
}

// SetLastEvent updates the last event and, for expression events, the
// current expression.
func (t *Tray) SetLastEvent(ev gesture.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.last = ev.Text
	if ev.Kind == gesture.KindExpression {
		t.expr = gesture.Expression(ev.Label)
	}

	if t.menuLastEvent != nil {
		t.menuLastEvent.SetTitle(lastTitle(t.last))
	}
	if t.menuExpression != nil {
		t.menuExpression.SetTitle(expressionTitle(t.expr))
	}
}

// SetExpression shows e. Falling back to neutral produces no event, so the
// caller refreshes this from the loop status.
func (t *Tray) SetExpression(e gesture.Expression) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.expr = e
	if t.menuExpression != nil {
		t.menuExpression.SetTitle(expressionTitle(t.expr))
	}
}

// LastEvent returns the text of the last event shown.
func (t *Tray) LastEvent() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.last
}

// Expression returns the expression shown.
func (t *Tray) Expression() gesture.Expression {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.expr
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Enabled"
	}
	return "○ Muted"
}

func lastTitle(text string) string {
	if text == "" {
		return "Last: none"
	}
	return "Last: " + text
}

func expressionTitle(e gesture.Expression) string {
	return "Expression: " + string(e)
}
