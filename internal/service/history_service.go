package service

import (
	"context"

	"github.com/mailpilot/mailpilot/internal/model"
)

// HistoryReader reads the send history
type HistoryReader interface {
	List(ctx context.Context, ownerID string, limit int) ([]model.DeliveryLog, error)
	Stats(ctx context.Context, ownerID string) (model.DeliveryStats, error)
}

const maxHistoryLimit = 1000

// HistoryService exposes the owner's delivery history
type HistoryService struct {
	store HistoryReader
}

// NewHistoryService creates a HistoryService
func NewHistoryService(store HistoryReader) *HistoryService {
	return &HistoryService{store: store}
}

// List returns entries newest first. limit is clamped to 1..1000.
func (s *HistoryService) List(ctx context.Context, ownerID string, limit int) ([]model.DeliveryLog, error) {
	if limit <= 0 || limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	logs, err := s.store.List(ctx, ownerID, limit)
	if err != nil {
		return nil, err
	}
	if logs == nil {
		logs = []model.DeliveryLog{}
	}
	return logs, nil
}

// Stats returns per-status counts
func (s *HistoryService) Stats(ctx context.Context, ownerID string) (model.DeliveryStats, error) {
	return s.store.Stats(ctx, ownerID)
}
