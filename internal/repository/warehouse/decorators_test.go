package warehouse

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcity/vnweather/internal/domain"
)

type fakeWarehouse struct {
	mu       sync.Mutex
	calls    int
	err      error
	block    bool
	deadline bool
}

func (f *fakeWarehouse) Query(ctx context.Context, q domain.Query) (*domain.Table, error) {
	f.mu.Lock()
	f.calls++
	_, f.deadline = ctx.Deadline()
	err, block := f.err, f.block
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, fmt.Errorf("%w: %v", domain.ErrWarehouseUnavailable, ctx.Err())
	}
	if err != nil {
		return nil, err
	}
	return domain.NewTable("x"), nil
}

func (f *fakeWarehouse) Health(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func (f *fakeWarehouse) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeWarehouse) SetErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

type observation struct {
	id      domain.QueryID
	outcome string
}

type observations struct {
	events []observation
}

func (o *observations) ObserveQuery(id domain.QueryID, outcome string, elapsed time.Duration) {
	o.events = append(o.events, observation{id: id, outcome: outcome})
}

var probe = domain.Query{ID: domain.QueryDailyObservations, Location: "Ha Noi City", Limit: 7}

func TestOutcome(t *testing.T) {
	assert.Equal(t, OutcomeOK, Outcome(nil))
	assert.Equal(t, OutcomeFailed, Outcome(fmt.Errorf("x: %w", domain.ErrQueryFailed)))
	assert.Equal(t, OutcomeUnavailable, Outcome(fmt.Errorf("x: %w", domain.ErrWarehouseUnavailable)))
	assert.Equal(t, OutcomeUnavailable, Outcome(context.DeadlineExceeded))
}

func TestWithBreaker_OpensOnConnectivityFailures(t *testing.T) {
	fake := &fakeWarehouse{err: domain.ErrWarehouseUnavailable}
	wh := WithBreaker(fake, "test", 2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := wh.Query(ctx, probe)
		assert.True(t, errors.Is(err, domain.ErrWarehouseUnavailable))
	}
	assert.Equal(t, 2, fake.Calls())

	// open: fails fast without reaching the backend
	_, err := wh.Query(ctx, probe)
	assert.True(t, errors.Is(err, domain.ErrWarehouseUnavailable))
	assert.Equal(t, 2, fake.Calls())

	err = wh.Health(ctx)
	assert.True(t, errors.Is(err, domain.ErrWarehouseUnavailable))
	assert.Equal(t, 2, fake.Calls())
}

func TestWithBreaker_RejectedQueriesDoNotTrip(t *testing.T) {
	fake := &fakeWarehouse{err: domain.ErrQueryFailed}
	wh := WithBreaker(fake, "test", 2, time.Minute)

	for i := 0; i < 5; i++ {
		_, err := wh.Query(context.Background(), probe)
		assert.True(t, errors.Is(err, domain.ErrQueryFailed))
	}
	assert.Equal(t, 5, fake.Calls())
}

func TestWithBreaker_RecoversAfterCooldown(t *testing.T) {
	fake := &fakeWarehouse{err: domain.ErrWarehouseUnavailable}
	wh := WithBreaker(fake, "test", 1, 20*time.Millisecond)
	ctx := context.Background()

	_, err := wh.Query(ctx, probe)
	require.Error(t, err)
	_, err = wh.Query(ctx, probe)
	require.Error(t, err)
	assert.Equal(t, 1, fake.Calls())

	fake.SetErr(nil)
	time.Sleep(40 * time.Millisecond)

	table, err := wh.Query(ctx, probe)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, table.Columns)
	assert.Equal(t, 2, fake.Calls())
}

func TestWithTimeout(t *testing.T) {
	fake := &fakeWarehouse{block: true}
	wh := WithTimeout(fake, 10*time.Millisecond)

	start := time.Now()
	_, err := wh.Query(context.Background(), probe)
	assert.True(t, errors.Is(err, domain.ErrWarehouseUnavailable))
	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, fake.deadline)
}

func TestInstrument(t *testing.T) {
	fake := &fakeWarehouse{}
	obs := &observations{}
	wh := Instrument(fake, obs)
	ctx := context.Background()

	_, err := wh.Query(ctx, probe)
	require.NoError(t, err)

	fake.SetErr(fmt.Errorf("boom: %w", domain.ErrWarehouseUnavailable))
	_, err = wh.Query(ctx, probe)
	require.Error(t, err)

	// health checks are not query events
	_ = wh.Health(ctx)

	assert.Equal(t, []observation{
		{id: domain.QueryDailyObservations, outcome: OutcomeOK},
		{id: domain.QueryDailyObservations, outcome: OutcomeUnavailable},
	}, obs.events)
}
