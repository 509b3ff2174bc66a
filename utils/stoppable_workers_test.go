package utils

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"
	"go.viam.com/test"
	"go.viam.com/utils/testutils"
)

func TestStoppableWorkers(t *testing.T) {
	started := make(chan struct{})
	var stopped atomic.Bool
	workers := NewStoppableWorkers(func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		stopped.Store(true)
	})
	<-started
	workers.Stop()
	test.That(t, stopped.Load(), test.ShouldBeTrue)
	test.That(t, workers.Context().Err(), test.ShouldNotBeNil)

	t.Run("adding after stop is a no-op", func(t *testing.T) {
		var ran atomic.Bool
		workers.AddWorkers(func(context.Context) { ran.Store(true) })
		workers.Stop()
		test.That(t, ran.Load(), test.ShouldBeFalse)
	})
}

func TestStoppableWorkersParentContext(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	workers := NewStoppableWorkersWithContext(parent, func(ctx context.Context) { <-ctx.Done() })
	cancel()
	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		test.That(tb, workers.Context().Err(), test.ShouldNotBeNil)
	})
	workers.Stop()
}

func TestTickerWorker(t *testing.T) {
	mock := clock.NewMock()
	var ticks atomic.Int64
	workers := NewStoppableWorkers(TickerWorker(mock, 10*time.Millisecond, func(context.Context, time.Time) {
		ticks.Inc()
	}))
	defer workers.Stop()

	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		mock.Add(10 * time.Millisecond)
		test.That(tb, ticks.Load(), test.ShouldBeGreaterThanOrEqualTo, 3)
	})
}
