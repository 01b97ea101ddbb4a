package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	domrepo "Symbiotic/internal/domain/repository"
	pkgkafka "Symbiotic/pkg/kafka"
	"Symbiotic/pkg/logger"
)

// CacheInvalidationHandler drops cached collections when the backend announces a change.
// Message schema: {"table": "market_data"}; an empty table clears everything.
type CacheInvalidationHandler struct {
	topic string
	inv   domrepo.Invalidator
	log   *logger.Logger
}

func NewCacheInvalidationHandler(topic string, inv domrepo.Invalidator, l *logger.Logger) *CacheInvalidationHandler {
	if l == nil {
		l = logger.Nop()
	}
	return &CacheInvalidationHandler{topic: topic, inv: inv, log: l}
}

func (h *CacheInvalidationHandler) Topic() string { return h.topic }

func (h *CacheInvalidationHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Table string `json:"table"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return pkgkafka.Permanent(fmt.Errorf("decode invalidation: %w", err))
	}
	if m.Table != "" && !slices.Contains(domrepo.Tables, m.Table) {
		// nothing cached under it; retrying would not help
		h.log.Warn("invalidation for unknown table ignored", logger.String("table", m.Table))
		return nil
	}
	if err := h.inv.Invalidate(ctx, m.Table); err != nil {
		return fmt.Errorf("invalidate %q: %w", m.Table, err)
	}
	h.log.Debug("cache invalidated", logger.String("table", m.Table))
	return nil
}

var _ pkgkafka.MessageHandler = (*CacheInvalidationHandler)(nil)
