package usecase

import (
	"context"
	"time"

	"Symbiotic/internal/domain/models"
	domrepo "Symbiotic/internal/domain/repository"
	"Symbiotic/pkg/logger"
)

// DefaultRefreshInterval matches the dashboard's auto-refresh.
const DefaultRefreshInterval = 60 * time.Second

// Broadcaster delivers snapshots to subscribed clients.
type Broadcaster interface {
	// Users returns the ids with at least one live subscriber; "" is the anonymous view.
	Users() []string
	Broadcast(userID string, snap *models.DashboardSnapshot)
}

// Refresher periodically rebuilds snapshots for subscribed users.
type Refresher struct {
	uc       *DashboardUseCase
	hub      Broadcaster
	pub      domrepo.SnapshotPublisher
	interval time.Duration
	log      *logger.Logger
}

func NewRefresher(uc *DashboardUseCase, hub Broadcaster, pub domrepo.SnapshotPublisher, interval time.Duration, l *logger.Logger) *Refresher {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	if l == nil {
		l = logger.Nop()
	}
	return &Refresher{uc: uc, hub: hub, pub: pub, interval: interval, log: l}
}

// Run refreshes on every tick until ctx is done.
func (r *Refresher) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	r.log.Info("dashboard refresher started", logger.Duration("interval_ms", r.interval))
	for {
		select {
		case <-ctx.Done():
			r.log.Info("dashboard refresher stopped")
			return
		case <-t.C:
			r.RefreshOnce(ctx)
		}
	}
}

// RefreshOnce refreshes every subscribed user once and returns how many were delivered.
func (r *Refresher) RefreshOnce(ctx context.Context) int {
	n := 0
	for _, userID := range r.hub.Users() {
		snap, err := r.uc.Refresh(ctx, DefaultParams(userID))
		if err != nil {
			r.log.Warn("refresh aborted", logger.String("user_id", userID), logger.Error(err))
			return n
		}
		r.hub.Broadcast(userID, snap)
		n++
		if r.pub == nil {
			continue
		}
		if err := r.pub.Publish(ctx, models.NewSnapshotEvent(snap)); err != nil {
			r.log.Error("publish snapshot event failed", logger.String("user_id", userID), logger.Error(err))
		}
	}
	return n
}
