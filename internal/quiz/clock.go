package quiz

import (
	"time"

	"mathquiz/internal/domain"
)

// The session clock counts observed ticks rather than wall-clock deltas, so
// elapsed time is immune to system clock adjustments. The ticker goroutine is
// bound to the Active phase: startClockLocked runs on entry, stopClockLocked
// on every exit path (submit, visibility loss, restart, shutdown).

func (s *Session) startClockLocked() {
	s.stopClockLocked()
	stop := make(chan struct{})
	s.stopClock = stop

	go func() {
		ticker := time.NewTicker(s.tickEvery)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.Tick()
			}
		}
	}()
}

func (s *Session) stopClockLocked() {
	if s.stopClock != nil {
		close(s.stopClock)
		s.stopClock = nil
	}
}

// Tick advances elapsed time by one second while Active. Ticks racing the
// Active→Summary transition lose at the lock and are ignored, so no tick is
// ever observed after termination.
func (s *Session) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.PhaseActive {
		return
	}
	s.elapsed++
	s.broadcastLocked()
}
