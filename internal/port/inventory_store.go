package port

import (
	"context"
	"time"

	"github.com/tmn08/ward-supply/internal/core/domain"
)

type InventoryStore interface {
	// Get returns the record for one (location, drug) pair, or nil when absent
	Get(ctx context.Context, locationID int64, drugName string) (*domain.InventoryRecord, error)

	// ScanByDrug returns all positive-quantity records for a drug across the
	// network, joined with their locations
	ScanByDrug(ctx context.Context, drugName string) ([]domain.DrugStock, error)

	// ScanByLocation returns every record held at one location
	ScanByLocation(ctx context.Context, locationID int64) ([]domain.InventoryRecord, error)

	// ScanAll returns every record in the network
	ScanAll(ctx context.Context) ([]domain.InventoryRecord, error)

	// Locations returns the location reference data
	Locations(ctx context.Context) ([]domain.Location, error)

	// UpsertIncrement atomically adds delta to the pair's quantity, creating
	// the record with the given expiry when it does not exist yet
	UpsertIncrement(ctx context.Context, locationID int64, drugName string, delta int, expiry time.Time) (*domain.InventoryRecord, error)

	// DecrementClamped atomically subtracts qty from the pair's quantity,
	// flooring at zero; a missing record is a no-op
	DecrementClamped(ctx context.Context, locationID int64, drugName string, qty int) error

	// Insert creates a record for a pair that must not exist yet
	Insert(ctx context.Context, rec domain.InventoryRecord) (*domain.InventoryRecord, error)
}
