package views

import (
	"context"
	"sync"

	"github.com/garnizeh/ats/internal/store"
	"github.com/garnizeh/ats/pkg/models"
)

// PreviewSize is how many new applicants the badge dropdown lists.
const PreviewSize = 5

// Badge is the new-applicant counter and its preview.
type Badge struct {
	Count   int
	Preview []models.Applicant
}

// DeriveBadge counts applicants with status new and keeps the first
// PreviewSize of them in collaborator order.
func DeriveBadge(list []models.Applicant) Badge {
	b := Badge{Preview: []models.Applicant{}}
	for _, a := range list {
		if a.Status != models.StatusNew {
			continue
		}
		b.Count++
		if len(b.Preview) < PreviewSize {
			b.Preview = append(b.Preview, a)
		}
	}
	return b
}

// Subscriber is the shared store as seen by the badge.
type Subscriber interface {
	Subscribe() (<-chan store.Snapshot, func())
}

// Notifications keeps the badge in step with the shared store.
type Notifications struct {
	src Subscriber

	mu       sync.RWMutex
	badge    Badge
	onChange func(Badge)
}

func NewNotifications(src Subscriber) *Notifications {
	return &Notifications{src: src, badge: Badge{Preview: []models.Applicant{}}}
}

func (n *Notifications) Badge() Badge {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.badge
}

// OnChange registers fn to be called with every new badge.
func (n *Notifications) OnChange(fn func(Badge)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onChange = fn
}

// Run consumes store snapshots until ctx is done or the store closes.
func (n *Notifications) Run(ctx context.Context) error {
	ch, unsubscribe := n.src.Subscribe()
	defer unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap, ok := <-ch:
			if !ok {
				return nil
			}
			n.apply(snap)
		}
	}
}

func (n *Notifications) apply(snap store.Snapshot) {
	b := DeriveBadge(snap.Applicants)
	n.mu.Lock()
	n.badge = b
	fn := n.onChange
	n.mu.Unlock()
	if fn != nil {
		fn(b)
	}
}
