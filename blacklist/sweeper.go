package blacklist

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper periodically deletes expired revocation entries. One sweeper is
// owned by the process, not by request handlers; overlapping runs are safe
// because the delete is predicate-based and idempotent.
type Sweeper struct {
	registry  *Registry
	interval  time.Duration
	logger    zerolog.Logger
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewSweeper starts a background sweep loop with the given interval
// (defaulting to one hour when non-positive).
func NewSweeper(registry *Registry, interval time.Duration, logger zerolog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}

	s := &Sweeper{
		registry: registry,
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
	}

	s.wg.Add(1)
	go s.run()

	return s
}

func (s *Sweeper) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.registry.SweepExpired(context.Background(), time.Now()); err != nil {
				s.logger.Error().Err(err).Msg("blacklist sweep failed")
			}
		case <-s.done:
			return
		}
	}
}

// Close stops the sweep loop and waits for an in-flight sweep to finish.
func (s *Sweeper) Close() {
	if s == nil {
		return
	}
	s.closeOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
	})
}
