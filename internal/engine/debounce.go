package engine

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/zoobzio/clockz"
)

// Debouncer coalesces a burst of change notifications into a single
// delayed reconciliation pass. Each notification appends its identifier
// to the pending set and re-arms the window (trailing edge); when the
// window elapses uninterrupted, fire is invoked with the accumulated set
// and the pending set is discarded, leftovers included.
type Debouncer struct {
	window time.Duration
	clock  clockz.Clock
	logger *logrus.Logger
	fire   func(ctx context.Context, changed *ChangedSet)
}

// NewDebouncer builds a debouncer invoking fire after each quiet window.
func NewDebouncer(window time.Duration, clock clockz.Clock, logger *logrus.Logger, fire func(ctx context.Context, changed *ChangedSet)) *Debouncer {
	return &Debouncer{window: window, clock: clock, logger: logger, fire: fire}
}

// Run consumes notifications until ctx is done or the channel closes.
// fire runs on this goroutine, so passes never overlap.
func (d *Debouncer) Run(ctx context.Context, notifications <-chan string) error {
	var (
		timer   clockz.Timer
		pending *ChangedSet
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		var timerC <-chan time.Time
		if timer != nil {
			timerC = timer.C()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()

		case id, ok := <-notifications:
			if !ok {
				return nil
			}
			if pending == nil {
				pending = NewChangedSet()
			}
			pending.Add(id)
			d.logger.WithField("changed", id).Debug("configuration change noted")

			if timer == nil {
				timer = d.clock.NewTimer(d.window)
				continue
			}
			if !timer.Stop() {
				select {
				case <-timer.C():
				default:
				}
			}
			timer.Reset(d.window)

		case <-timerC:
			// A fired timer cannot be re-armed with Reset on a fake
			// clock; drop it so the next notification allocates a
			// fresh one.
			timer.Stop()
			timer = nil
			if pending == nil {
				continue
			}
			d.logger.WithField("pending", pending.Len()).Debug("debounce window elapsed, reconciling")
			d.fire(ctx, pending)
			pending = nil
		}
	}
}
