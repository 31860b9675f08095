package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tmn08/ward-supply/internal/core/domain"
	"github.com/tmn08/ward-supply/internal/logging"
	"github.com/tmn08/ward-supply/internal/port"
)

// InventoryService covers the non-transfer inventory surface: ward stock
// views and inward supply entry.
type InventoryService struct {
	inventory port.InventoryStore
	logger    *logrus.Logger
	now       func() time.Time
}

func NewInventoryService(inventory port.InventoryStore) *InventoryService {
	return &InventoryService{
		inventory: inventory,
		logger:    logging.Logger(),
		now:       time.Now,
	}
}

// RecordInwardSupply registers an incoming batch at a location. The write is
// an atomic upsert-increment, so concurrent arrivals for the same pair never
// lose updates. A zero expiry defaults to one year out.
func (s *InventoryService) RecordInwardSupply(ctx context.Context, actor domain.Actor, locationID int64, drugName string, qty int, expiry time.Time) (*domain.InventoryRecord, error) {
	if drugName == "" || qty <= 0 {
		return nil, ErrInvalidRequest
	}
	if expiry.IsZero() {
		expiry = s.now().AddDate(1, 0, 0)
	}

	rec, err := s.inventory.UpsertIncrement(ctx, locationID, drugName, qty, expiry)
	if err != nil {
		return nil, fmt.Errorf("record inward supply: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"actor_id":    actor.ID,
		"location_id": locationID,
		"drug_name":   drugName,
		"qty":         qty,
	}).Info("inward supply recorded")
	return rec, nil
}

// LocationStock returns every record held at one location.
func (s *InventoryService) LocationStock(ctx context.Context, locationID int64) ([]domain.InventoryRecord, error) {
	return s.inventory.ScanByLocation(ctx, locationID)
}

// Locations returns the location reference data.
func (s *InventoryService) Locations(ctx context.Context) ([]domain.Location, error) {
	return s.inventory.Locations(ctx)
}
