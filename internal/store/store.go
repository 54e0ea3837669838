package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/garnizeh/ats/pkg/models"
)

var ErrClosed = errors.New("store closed")

// Fetcher lists applicants; *atsapi.Client satisfies it.
type Fetcher interface {
	ListApplicants(ctx context.Context, q url.Values) ([]models.Applicant, error)
}

// Snapshot is the result of the latest refresh. After a failed refresh
// Applicants still holds the last good list and Err records the failure.
type Snapshot struct {
	Applicants []models.Applicant
	FetchedAt  time.Time
	Err        error
	Version    uint64
}

// Store is the single shared, unfiltered applicant list. Every view that
// needs the full list reads it from here and the poller and the status
// workflow both refresh it.
type Store struct {
	fetch  Fetcher
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	snap    Snapshot
	subs    map[int]chan Snapshot
	nextSub int
	waiters []chan error
	running bool
	closed  bool
}

func New(f Fetcher, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Store{
		fetch:  f,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		subs:   map[int]chan Snapshot{},
	}
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Refresh fetches the list and waits for the result. Calls that overlap are
// served by a single fetch that starts after the call was made.
func (s *Store) Refresh(ctx context.Context) error {
	done := make(chan error, 1)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.waiters = append(s.waiters, done)
	if !s.running {
		s.running = true
		s.wg.Add(1)
		go s.loop()
	}
	s.mu.Unlock()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) loop() {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		if len(s.waiters) == 0 {
			s.running = false
			s.mu.Unlock()
			return
		}
		batch := s.waiters
		s.waiters = nil
		s.mu.Unlock()

		list, err := s.fetch.ListApplicants(s.ctx, nil)

		s.mu.Lock()
		next := s.snap
		next.Version++
		if err != nil {
			next.Err = err
			s.logger.Warn("store: refresh failed, keeping previous list", "err", err, "waiters", len(batch))
		} else {
			if list == nil {
				list = []models.Applicant{}
			}
			next.Applicants = list
			next.FetchedAt = time.Now()
			next.Err = nil
		}
		s.snap = next
		s.broadcast(next)
		s.mu.Unlock()

		for _, w := range batch {
			w <- err
		}
	}
}

// broadcast must be called with s.mu held. Slow subscribers only ever see
// the latest snapshot.
func (s *Store) broadcast(snap Snapshot) {
	for _, ch := range s.subs {
		offer(ch, snap)
	}
}

func offer(ch chan Snapshot, snap Snapshot) {
	select {
	case ch <- snap:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}

// Subscribe returns a channel receiving every new snapshot, starting with
// the current one if a fetch already happened. The channel is closed by the
// returned cancel func or by Close.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	if s.snap.Version > 0 {
		ch <- s.snap
	}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

// Close cancels an in-flight fetch, waits for it and closes every
// subscription.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()

	s.mu.Lock()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	s.mu.Unlock()
}
