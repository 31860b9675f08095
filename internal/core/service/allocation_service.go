package service

import (
	"context"
	"fmt"

	"github.com/tmn08/ward-supply/internal/core/domain"
	"github.com/tmn08/ward-supply/internal/metrics"
	"github.com/tmn08/ward-supply/internal/port"
)

const (
	SourceCentralSupply    = "Central Supply"
	SourceSurplusRebalance = "Surplus Rebalance"
)

// Source is where a stock request can be fulfilled from.
type Source struct {
	LocationID   int64  `json:"location_id"`
	LocationName string `json:"location_name"`
	Kind         string `json:"kind"`
}

// AllocationPolicy tunes source selection. The zero value keeps the historical
// behavior: the fallback tier may pick a location that cannot fully cover the
// requested quantity.
type AllocationPolicy struct {
	RequireFullCover bool
}

// AllocationService finds a source location for a drug shortage. It is a pure
// read over the inventory store and holds no state of its own.
type AllocationService struct {
	inventory port.InventoryStore
	policy    AllocationPolicy
}

func NewAllocationService(inventory port.InventoryStore, policy AllocationPolicy) *AllocationService {
	return &AllocationService{inventory: inventory, policy: policy}
}

// LocateSource prefers a warehouse that can fully cover the request ("Central
// Supply"); failing that it falls back to the richest non-requesting location
// ("Surplus Rebalance").
func (s *AllocationService) LocateSource(ctx context.Context, drugName string, requestedQty int, requestingLocationID int64) (*Source, error) {
	if drugName == "" || requestedQty <= 0 {
		return nil, ErrInvalidRequest
	}

	stock, err := s.inventory.ScanByDrug(ctx, drugName)
	if err != nil {
		return nil, fmt.Errorf("scan stock for %q: %w", drugName, err)
	}
	if len(stock) == 0 {
		metrics.AllocationFailures.WithLabelValues("unavailable").Inc()
		return nil, ErrDrugUnavailable
	}

	for _, row := range stock {
		if row.LocationType == domain.LocationWarehouse && row.Quantity >= requestedQty {
			return &Source{
				LocationID:   row.LocationID,
				LocationName: row.LocationName,
				Kind:         SourceCentralSupply,
			}, nil
		}
	}

	// No warehouse can cover the request: pick the richest peer.
	var best *domain.DrugStock
	maxAvailable := 0
	for i := range stock {
		row := &stock[i]
		if row.Quantity > maxAvailable {
			maxAvailable = row.Quantity
		}
		if row.LocationID == requestingLocationID {
			continue
		}
		if s.policy.RequireFullCover && row.Quantity < requestedQty {
			continue
		}
		if best == nil || row.Quantity > best.Quantity {
			best = row
		}
	}
	if best == nil {
		metrics.AllocationFailures.WithLabelValues("insufficient").Inc()
		return nil, &InsufficientStockError{MaxAvailable: maxAvailable}
	}

	return &Source{
		LocationID:   best.LocationID,
		LocationName: best.LocationName,
		Kind:         SourceSurplusRebalance,
	}, nil
}
