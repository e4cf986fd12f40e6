package editor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// DefaultAutosaveInterval is the tick period of the autosave scheduler.
const DefaultAutosaveInterval = 5 * time.Second

// ErrFlushInFlight is returned by SaveNow when a flush is already running.
var ErrFlushInFlight = errors.New("a save is already in progress")

const flushTimeout = 30 * time.Second

// Scheduler drives periodic flushes of the store through the gateway.
//
// At most one flush runs at a time. A tick that fires while a flush is
// outstanding is skipped, not queued; the next tick picks the work up. Clean
// ticks are no-ops unless the gateway still owes the remote store an upload.
type Scheduler struct {
	store    *Store
	gw       *Gateway
	interval time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	flushing bool
}

// NewScheduler creates a stopped scheduler. interval <= 0 selects the
// default.
func NewScheduler(store *Store, gw *Gateway, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultAutosaveInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{store: store, gw: gw, interval: interval, logger: logger}
}

// Start begins ticking. Starting an already running scheduler restarts it;
// two tickers never run concurrently.
func (s *Scheduler) Start() {
	s.Stop()
	s.mu.Lock()
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	done := make(chan struct{})
	s.done = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		t := time.NewTicker(s.interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.tick()
			}
		}
	}()
}

// Stop halts ticking and returns only once the ticker goroutine has exited.
// No tick fires after Stop returns; a flush already handed to the gateway
// runs to completion on its own timeout. Stopping a stopped scheduler is a
// no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the scheduler is ticking.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

func (s *Scheduler) tick() {
	if !s.store.AutosaveEnabled() {
		return
	}
	if !s.store.Dirty() && !s.gw.PendingSync(s.store.ProjectID()) {
		return
	}
	if err := s.flushOnce(); err != nil && !errors.Is(err, ErrFlushInFlight) {
		s.logger.Error("autosave failed", "err", err)
	}
}

// SaveNow performs an explicit, synchronous save regardless of the autosave
// setting. It shares the single-flight guard with the ticker.
func (s *Scheduler) SaveNow() error {
	return s.flushOnce()
}

func (s *Scheduler) flushOnce() error {
	if !s.tryAcquire() {
		return ErrFlushInFlight
	}
	defer s.release()

	snap, seq := s.store.Snapshot()
	if snap == nil {
		return nil
	}
	// Deliberately not tied to the scheduler lifetime: a flush started
	// before Stop must be allowed to finish.
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	version, err := s.gw.Flush(ctx, snap)
	if err != nil {
		return err
	}
	s.store.MarkSaved(snap.ID, seq, version)
	return nil
}

func (s *Scheduler) tryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flushing {
		return false
	}
	s.flushing = true
	return true
}

func (s *Scheduler) release() {
	s.mu.Lock()
	s.flushing = false
	s.mu.Unlock()
}
