package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"
	"go.viam.com/test"
	"go.viam.com/utils/testutils"

	"go.viam.com/sysid/logging"
)

const period = 10 * time.Millisecond

func TestNew(t *testing.T) {
	logger := logging.NewTestLogger(t)
	_, err := New(0, nil, func(context.Context) {}, logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "positive")
	_, err = New(period, nil, nil, logger)
	test.That(t, err, test.ShouldNotBeNil)
}

func run(t *testing.T, s *Scheduler) (context.CancelFunc, *sync.WaitGroup) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Run(ctx)
	}()
	return cancel, &wg
}

func TestRunSteps(t *testing.T) {
	logger := logging.NewTestLogger(t)
	mock := clock.NewMock()
	var count atomic.Int64
	s, err := New(period, mock, func(context.Context) { count.Inc() }, logger)
	test.That(t, err, test.ShouldBeNil)

	cancel, wg := run(t, s)
	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		mock.Add(period)
		test.That(tb, count.Load(), test.ShouldBeGreaterThanOrEqualTo, 3)
	})
	cancel()
	wg.Wait()

	stats := s.Stats()
	test.That(t, stats.Steps, test.ShouldEqual, uint64(count.Load()))
	test.That(t, stats.Overruns, test.ShouldEqual, uint64(0))

	// nothing runs after Run returns
	steps := count.Load()
	mock.Add(5 * period)
	test.That(t, count.Load(), test.ShouldEqual, steps)
}

func TestRunCancelled(t *testing.T) {
	logger := logging.NewTestLogger(t)
	var count atomic.Int64
	s, err := New(period, clock.NewMock(), func(context.Context) { count.Inc() }, logger)
	test.That(t, err, test.ShouldBeNil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Run(ctx)
	test.That(t, count.Load(), test.ShouldEqual, 0)
}

func TestOverrun(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	mock := clock.NewMock()
	started := make(chan int64, 2)
	release := make(chan struct{})
	var count atomic.Int64
	s, err := New(period, mock, func(context.Context) {
		n := count.Inc()
		started <- n
		if n == 1 {
			<-release
		}
	}, logger)
	test.That(t, err, test.ShouldBeNil)

	cancel, wg := run(t, s)
	// tick until the first step is holding
	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		mock.Add(period)
		test.That(tb, len(started), test.ShouldEqual, 1)
	})
	test.That(t, <-started, test.ShouldEqual, int64(1))
	mock.Add(period + 5*time.Millisecond)
	close(release)

	// the tick buffered during the long step runs the second one right away
	select {
	case n := <-started:
		test.That(t, n, test.ShouldEqual, int64(2))
	case <-time.After(5 * time.Second):
		t.Fatal("second step never ran")
	}
	cancel()
	wg.Wait()

	stats := s.Stats()
	test.That(t, stats.Steps, test.ShouldEqual, uint64(2))
	test.That(t, stats.Overruns, test.ShouldEqual, uint64(1))
	test.That(t, stats.MeanStep, test.ShouldBeGreaterThan, 0)
	test.That(t, logs.FilterMessage("step overran its period").Len(), test.ShouldEqual, 1)
}
