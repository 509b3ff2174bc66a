// Package scheduler runs a step function at a fixed period.
package scheduler

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"go.viam.com/sysid/logging"
	"go.viam.com/sysid/utils"
)

const (
	overrunLogEvery = 100
	stepWindow      = 100
)

// Stats counts the steps run so far.
type Stats struct {
	Steps    uint64
	Overruns uint64
	// MeanStep is the average duration of recent steps.
	MeanStep time.Duration
}

// A Scheduler calls its step once per period. Steps never overlap; a tick that arrives while a
// step is still running is dropped.
type Scheduler struct {
	period time.Duration
	clock  clock.Clock
	step   func(context.Context)
	logger logging.Logger

	steps    atomic.Uint64
	overruns atomic.Uint64
	stepTime *utils.RollingAverage
	throttle *utils.Throttle
}

// New returns a scheduler. A nil clock uses the wall clock.
func New(period time.Duration, clk clock.Clock, step func(context.Context), logger logging.Logger) (*Scheduler, error) {
	if period <= 0 {
		return nil, errors.Errorf("period must be positive, got %v", period)
	}
	if step == nil {
		return nil, errors.New("scheduler needs a step")
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Scheduler{
		period:   period,
		clock:    clk,
		step:     step,
		logger:   logger,
		stepTime: utils.NewRollingAverage(stepWindow),
		throttle: utils.NewThrottle(overrunLogEvery),
	}, nil
}

// Run steps until ctx is done. Cancellation is only observed between steps.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := s.clock.Ticker(s.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		start := s.clock.Now()
		s.step(ctx)
		s.steps.Inc()
		elapsed := s.clock.Since(start)
		s.stepTime.Add(float64(elapsed))
		if elapsed > s.period {
			s.overruns.Inc()
			if ok, suppressed := s.throttle.Allow(); ok {
				s.logger.Warnw("step overran its period", "elapsed", elapsed, "period", s.period, "suppressed", suppressed)
			}
		}
	}
}

// Stats returns the counters so far.
func (s *Scheduler) Stats() Stats {
	return Stats{
		Steps:    s.steps.Load(),
		Overruns: s.overruns.Load(),
		MeanStep: time.Duration(s.stepTime.Average()),
	}
}
