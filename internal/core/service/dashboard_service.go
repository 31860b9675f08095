package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tmn08/ward-supply/internal/core/domain"
	"github.com/tmn08/ward-supply/internal/port"
)

const recentActivityLimit = 10

// unitValueEstimate is the flat per-unit value used for the dashboard's
// estimated stock value.
var unitValueEstimate = decimal.NewFromInt(125)

type DashboardStats struct {
	TotalStock     int                   `json:"total_stock"`
	LowStockCount  int                   `json:"low_stock_count"`
	EstimatedValue decimal.Decimal       `json:"estimated_value"`
	RecentActivity []domain.TransferTask `json:"recent_activity"`
}

// DashboardService aggregates network-wide statistics for the overview page.
type DashboardService struct {
	inventory port.InventoryStore
	ledger    port.TransferLedger
}

func NewDashboardService(inventory port.InventoryStore, ledger port.TransferLedger) *DashboardService {
	return &DashboardService{inventory: inventory, ledger: ledger}
}

func (s *DashboardService) Stats(ctx context.Context) (*DashboardStats, error) {
	records, err := s.inventory.ScanAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan inventory: %w", err)
	}

	total := 0
	low := 0
	for _, rec := range records {
		total += rec.Quantity
		if rec.Quantity < domain.LowStockThreshold {
			low++
		}
	}

	recent, err := s.ledger.Recent(ctx, recentActivityLimit)
	if err != nil {
		return nil, fmt.Errorf("recent transfers: %w", err)
	}

	return &DashboardStats{
		TotalStock:     total,
		LowStockCount:  low,
		EstimatedValue: unitValueEstimate.Mul(decimal.NewFromInt(int64(total))),
		RecentActivity: recent,
	}, nil
}
