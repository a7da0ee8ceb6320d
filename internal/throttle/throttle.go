// Package throttle paces outbound requests to respect upstream rate limits.
package throttle

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// Throttle blocks until the next request may be sent.
type Throttle interface {
	Wait(ctx context.Context) error
}

// Interval lets one request through per interval. The first request passes immediately.
type Interval struct {
	limiter *rate.Limiter
}

// NewInterval creates a fixed-interval gate. A non-positive interval disables pacing.
func NewInterval(every time.Duration) *Interval {
	limit := rate.Inf
	if every > 0 {
		limit = rate.Every(every)
	}
	return &Interval{limiter: rate.NewLimiter(limit, 1)}
}

// Wait blocks until the gate opens or ctx is done.
func (i *Interval) Wait(ctx context.Context) error {
	if err := i.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "wait for request slot")
	}
	return nil
}

// None never blocks.
type None struct{}

func (None) Wait(context.Context) error { return nil }
