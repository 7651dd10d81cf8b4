package worker

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog/log"
)

// SweepRunner expires overdue holds and reports how many it reclaimed.
type SweepRunner interface {
	ExpireDue(ctx context.Context) (int, error)
}

// Sweeper runs the expiration sweep on a fixed cadence.
type Sweeper struct {
	runner   SweepRunner
	interval time.Duration
	clock    clock.Clock

	done chan struct{}
	wg   sync.WaitGroup
}

// NewSweeper creates a Sweeper that runs every interval.
func NewSweeper(runner SweepRunner, interval time.Duration, clk clock.Clock) *Sweeper {
	return &Sweeper{
		runner:   runner,
		interval: interval,
		clock:    clk,
		done:     make(chan struct{}),
	}
}

// Start launches the sweep loop in its own goroutine.
func (s *Sweeper) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := s.clock.Ticker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.done:
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()
}

// Stop terminates the loop and waits for any in-progress sweep to finish.
func (s *Sweeper) Stop() {
	close(s.done)
	s.wg.Wait()
}

func (s *Sweeper) sweep(ctx context.Context) {
	expired, err := s.runner.ExpireDue(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Expiration sweep failed")
		return
	}
	if expired > 0 {
		log.Info().Int("expired", expired).Msg("Expiration sweep completed")
	}
}
