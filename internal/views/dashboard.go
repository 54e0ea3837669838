package views

import (
	"context"
	"fmt"
	"sync"

	"github.com/garnizeh/ats/pkg/models"
)

type StatsSource interface {
	DashboardStats(ctx context.Context) (models.DashboardStats, error)
}

// Dashboard shows the server-computed statistics snapshot.
type Dashboard struct {
	api StatsSource

	mu    sync.RWMutex
	stats models.DashboardStats
	err   error
}

func NewDashboard(api StatsSource) *Dashboard {
	return &Dashboard{api: api, stats: models.DashboardStats{RecentApplicants: []models.Applicant{}}}
}

// Load fetches the snapshot. A failure leaves an empty dashboard.
func (d *Dashboard) Load(ctx context.Context) error {
	stats, err := d.api.DashboardStats(ctx)
	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil {
		d.stats = models.DashboardStats{RecentApplicants: []models.Applicant{}}
		d.err = err
		return fmt.Errorf("load dashboard: %w", err)
	}
	d.stats = stats
	d.err = nil
	return nil
}

func (d *Dashboard) Refresh(ctx context.Context) error { return d.Load(ctx) }

func (d *Dashboard) Stats() models.DashboardStats {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.stats
}

func (d *Dashboard) Err() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.err
}
