package tracking

import (
	"context"
	"fmt"
	"time"

	"bucheron/internal/domain"

	"go.uber.org/zap"
)

const (
	DefaultInterval       = 30 * time.Second
	DefaultMaxInterval    = 5 * time.Minute
	DefaultMultiplier     = 2.0
	DefaultMaxAttempts    = 20
	DefaultRequestTimeout = 10 * time.Second
)

type Outcome string

const (
	// OutcomeResolved means the order no longer needs polling.
	OutcomeResolved  Outcome = "resolved"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeExhausted Outcome = "exhausted"
)

type FetchFunc func(ctx context.Context) (*domain.Order, error)

// UpdateFunc receives every order that differs from the previous one seen.
// Returning an error stops the poller.
type UpdateFunc func(o *domain.Order) error

// Poller refreshes an order on a schedule. Ticks never overlap: each fetch
// runs with its own timeout and finishes before the next wait starts.
type Poller struct {
	Interval       time.Duration
	MaxInterval    time.Duration
	Multiplier     float64
	MaxAttempts    int
	RequestTimeout time.Duration

	logger *zap.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewPoller(interval, maxInterval time.Duration, maxAttempts int, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if maxInterval < interval {
		maxInterval = interval
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Poller{
		Interval:       interval,
		MaxInterval:    maxInterval,
		Multiplier:     DefaultMultiplier,
		MaxAttempts:    maxAttempts,
		RequestTimeout: DefaultRequestTimeout,
		logger:         logger,
		sleep:          sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Run polls until the order is resolved, ctx is cancelled or the attempts run
// out. last is the order the caller already shows and may be nil. The wait
// grows by Multiplier after every failed or unchanged fetch, up to MaxInterval,
// and goes back to Interval when something changes.
func (p *Poller) Run(ctx context.Context, last *domain.Order, fetch FetchFunc, onUpdate UpdateFunc) (Outcome, error) {
	if last != nil && !NeedsPolling(*last) {
		return OutcomeResolved, nil
	}

	prev := ""
	if last != nil {
		prev = fingerprint(*last)
	}
	wait := p.Interval

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := p.sleep(ctx, wait); err != nil {
			return OutcomeCancelled, nil
		}

		tickCtx, cancel := context.WithTimeout(ctx, p.RequestTimeout)
		order, err := fetch(tickCtx)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				return OutcomeCancelled, nil
			}
			p.logger.Warn("order poll failed", zap.Int("attempt", attempt), zap.Error(err))
			wait = p.next(wait)
			continue
		}

		fp := fingerprint(*order)
		if fp == prev {
			wait = p.next(wait)
		} else {
			prev = fp
			wait = p.Interval
			if err := onUpdate(order); err != nil {
				return OutcomeCancelled, err
			}
		}

		if !NeedsPolling(*order) {
			p.logger.Debug("order poll resolved", zap.String("orderNumber", order.OrderNumber), zap.Int("attempt", attempt))
			return OutcomeResolved, nil
		}
	}

	return OutcomeExhausted, nil
}

func (p *Poller) next(d time.Duration) time.Duration {
	n := time.Duration(float64(d) * p.Multiplier)
	if n > p.MaxInterval {
		return p.MaxInterval
	}
	return n
}

func fingerprint(o domain.Order) string {
	return fmt.Sprintf("%s|%s|%t|%t|%d", o.Status, o.PaymentStatus, o.BankDetails != nil, o.ReceiptUploaded, len(o.StatusHistory))
}
