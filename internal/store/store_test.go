package store_test

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/garnizeh/ats/internal/store"
	"github.com/garnizeh/ats/pkg/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeFetcher struct {
	calls   int32
	gate    chan struct{}
	mu      sync.Mutex
	results [][]models.Applicant
	errs    []error
}

func (f *fakeFetcher) ListApplicants(ctx context.Context, q url.Values) ([]models.Applicant, error) {
	n := int(atomic.AddInt32(&f.calls, 1)) - 1
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var err error
	if n < len(f.errs) {
		err = f.errs[n]
	}
	if err != nil {
		return nil, err
	}
	if n < len(f.results) {
		return f.results[n], nil
	}
	return []models.Applicant{{ID: int64(n + 1), Status: models.StatusNew}}, nil
}

func TestRefresh_UpdatesSnapshotAndSubscribers(t *testing.T) {
	f := &fakeFetcher{results: [][]models.Applicant{{{ID: 1, Name: "Ada", Status: models.StatusNew}}}}
	s := store.New(f, nil)
	defer s.Close()

	ch, unsubscribe := s.Subscribe()
	defer unsubscribe()

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	snap := s.Snapshot()
	if len(snap.Applicants) != 1 || snap.Applicants[0].Name != "Ada" || snap.FetchedAt.IsZero() || snap.Err != nil {
		t.Fatalf("unexpected snapshot %#v", snap)
	}

	select {
	case got := <-ch:
		if got.Version != snap.Version {
			t.Fatalf("subscriber got version %d want %d", got.Version, snap.Version)
		}
	case <-time.After(time.Second):
		t.Fatalf("subscriber was not notified")
	}
}

func TestRefresh_FailureKeepsPreviousList(t *testing.T) {
	boom := errors.New("collaborator down")
	f := &fakeFetcher{errs: []error{nil, boom}}
	s := store.New(f, nil)
	defer s.Close()

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("first Refresh: %v", err)
	}
	if err := s.Refresh(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	snap := s.Snapshot()
	if len(snap.Applicants) != 1 || !errors.Is(snap.Err, boom) {
		t.Fatalf("expected previous list and recorded error, got %#v", snap)
	}

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("third Refresh: %v", err)
	}
	if s.Snapshot().Err != nil {
		t.Fatalf("a successful refresh must clear the error")
	}
}

func TestRefresh_CoalescesConcurrentCalls(t *testing.T) {
	f := &fakeFetcher{gate: make(chan struct{})}
	s := store.New(f, nil)
	defer s.Close()

	// first call starts a fetch that blocks on the gate
	first := make(chan error, 1)
	go func() { first <- s.Refresh(context.Background()) }()
	waitFor(t, func() bool { return atomic.LoadInt32(&f.calls) == 1 })

	// these arrive while the fetch is in flight and share the next one
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Refresh(context.Background()); err != nil {
				t.Errorf("Refresh: %v", err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(f.gate)

	if err := <-first; err != nil {
		t.Fatalf("first Refresh: %v", err)
	}
	wg.Wait()

	if n := atomic.LoadInt32(&f.calls); n != 2 {
		t.Fatalf("expected 2 fetches for 6 overlapping refreshes, got %d", n)
	}
}

func TestRefresh_CallerContext(t *testing.T) {
	f := &fakeFetcher{gate: make(chan struct{})}
	s := store.New(f, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Refresh(ctx) }()
	waitFor(t, func() bool { return atomic.LoadInt32(&f.calls) == 1 })
	cancel()

	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	// Close aborts the blocked fetch and waits for the loop
	s.Close()
	if err := s.Refresh(context.Background()); !errors.Is(err, store.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestSubscribe_LatestWinsAndClose(t *testing.T) {
	f := &fakeFetcher{}
	s := store.New(f, nil)

	ch, unsubscribe := s.Subscribe()
	for i := 0; i < 3; i++ {
		if err := s.Refresh(context.Background()); err != nil {
			t.Fatalf("Refresh: %v", err)
		}
	}

	got := <-ch
	if got.Version != 3 {
		t.Fatalf("slow subscriber should see the latest snapshot, got version %d", got.Version)
	}

	late, unsubscribeLate := s.Subscribe()
	if snap := <-late; snap.Version != 3 {
		t.Fatalf("late subscriber should get the current snapshot, got %d", snap.Version)
	}
	unsubscribeLate()
	if _, ok := <-late; ok {
		t.Fatalf("expected closed channel after unsubscribe")
	}

	s.Close()
	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel after Close")
	}
	unsubscribe()
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}
