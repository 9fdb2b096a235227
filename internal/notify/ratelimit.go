// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package notify

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ManuGH/uprightd/internal/log"
	"github.com/ManuGH/uprightd/internal/metrics"
)

// RateLimited gates a Notifier with a token bucket so an alert storm cannot
// flood the desktop. Suppressed notifications are dropped silently (the
// contract is fire-and-forget) and counted.
type RateLimited struct {
	next    Notifier
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewRateLimited wraps next with the given refill rate and burst.
func NewRateLimited(next Notifier, r rate.Limit, burst int) *RateLimited {
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(r, burst),
		logger:  log.WithComponent("notify"),
	}
}

func (n *RateLimited) Notify(ctx context.Context, title, body string) error {
	if !n.limiter.Allow() {
		metrics.IncNotification("desktop", "suppressed")
		n.logger.Debug().
			Str("title", title).
			Str(log.FieldEvent, "notify.suppressed").
			Msg("notification suppressed by rate limit")
		return nil
	}
	if err := n.next.Notify(ctx, title, body); err != nil {
		metrics.IncNotification("desktop", "error")
		return err
	}
	metrics.IncNotification("desktop", "sent")
	return nil
}

var _ Notifier = (*RateLimited)(nil)
