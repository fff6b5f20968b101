package dispatcher

import (
	"errors"

	"github.com/OCAP2/indicator/pkg/core"
)

var errNoTarget = errors.New("event carries no target")

// BindListener routes the target lifecycle events to l. The handlers are
// deferred, so l is only called from Pump and owners may raise events from
// any goroutine.
func BindListener(d *Dispatcher, l core.TargetListener, opts ...Option) {
	opts = append([]Option{Deferred()}, opts...)

	d.Register(EventTargetEnabled, func(e Event) error {
		if e.Target == nil {
			return errNoTarget
		}
		l.OnTargetEnabled(e.Target)
		return nil
	}, opts...)

	d.Register(EventTargetDisabled, func(e Event) error {
		if e.Target == nil {
			return errNoTarget
		}
		l.OnTargetDisabled(e.Target)
		return nil
	}, opts...)
}

// Enable raises EventTargetEnabled for t.
func (d *Dispatcher) Enable(t core.Target) error {
	return d.Dispatch(Event{Name: EventTargetEnabled, Target: t})
}

// Disable raises EventTargetDisabled for t.
func (d *Dispatcher) Disable(t core.Target) error {
	return d.Dispatch(Event{Name: EventTargetDisabled, Target: t})
}
