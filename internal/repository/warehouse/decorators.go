package warehouse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/smartcity/vnweather/internal/domain"
	"github.com/smartcity/vnweather/internal/log"
)

// Query outcomes reported to a QueryObserver
const (
	OutcomeOK          = "ok"
	OutcomeUnavailable = "unavailable"
	OutcomeFailed      = "failed"
)

// QueryObserver receives one event per warehouse query
type QueryObserver interface {
	ObserveQuery(id domain.QueryID, outcome string, elapsed time.Duration)
}

// Outcome classifies a warehouse error for metrics
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, domain.ErrQueryFailed):
		return OutcomeFailed
	default:
		return OutcomeUnavailable
	}
}

type instrumented struct {
	next     domain.Warehouse
	observer QueryObserver
	now      func() time.Time
}

// Instrument reports the latency and outcome of every query to observer
func Instrument(next domain.Warehouse, observer QueryObserver) domain.Warehouse {
	return &instrumented{next: next, observer: observer, now: time.Now}
}

func (w *instrumented) Query(ctx context.Context, q domain.Query) (*domain.Table, error) {
	start := w.now()
	t, err := w.next.Query(ctx, q)
	elapsed := w.now().Sub(start)
	w.observer.ObserveQuery(q.ID, Outcome(err), elapsed)

	if err != nil {
		log.Warnw("warehouse query failed", "query", q.ID, "location", q.Location, "elapsed", elapsed, "error", err)
	} else {
		log.Debugw("warehouse query", "query", q.ID, "location", q.Location, "rows", t.Len(), "elapsed", elapsed)
	}
	return t, err
}

func (w *instrumented) Health(ctx context.Context) error {
	return w.next.Health(ctx)
}

type breaker struct {
	next domain.Warehouse
	cb   *gobreaker.CircuitBreaker
}

// WithBreaker stops calling next after failures consecutive connectivity
// failures and fails fast for cooldown. Rejected queries do not count.
// Nothing is retried.
func WithBreaker(next domain.Warehouse, name string, failures uint32, cooldown time.Duration) domain.Warehouse {
	if name == "" {
		name = "warehouse"
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warnw("warehouse circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrQueryFailed)
		},
	})
	return &breaker{next: next, cb: cb}
}

func (w *breaker) Query(ctx context.Context, q domain.Query) (*domain.Table, error) {
	v, err := w.cb.Execute(func() (interface{}, error) {
		return w.next.Query(ctx, q)
	})
	if err != nil {
		return nil, breakerError(err)
	}
	return v.(*domain.Table), nil
}

func (w *breaker) Health(ctx context.Context) error {
	_, err := w.cb.Execute(func() (interface{}, error) {
		return nil, w.next.Health(ctx)
	})
	if err != nil {
		return breakerError(err)
	}
	return nil
}

func breakerError(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("warehouse: %w: %v", domain.ErrWarehouseUnavailable, err)
	}
	return err
}

type timeout struct {
	next    domain.Warehouse
	timeout time.Duration
}

// WithTimeout bounds every call to next
func WithTimeout(next domain.Warehouse, d time.Duration) domain.Warehouse {
	return &timeout{next: next, timeout: d}
}

func (w *timeout) Query(ctx context.Context, q domain.Query) (*domain.Table, error) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	return w.next.Query(ctx, q)
}

func (w *timeout) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	return w.next.Health(ctx)
}
