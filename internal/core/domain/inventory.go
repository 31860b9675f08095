package domain

import "time"

// LowStockThreshold marks a record as needing restock on dashboards.
const LowStockThreshold = 10

// InventoryRecord is the quantity of one drug at one location. At most one
// record exists per (location, drug) pair; quantity never goes negative and
// records are never deleted.
type InventoryRecord struct {
	ID         int64     `json:"id"`
	LocationID int64     `json:"location_id"`
	DrugName   string    `json:"drug_name"`
	Quantity   int       `json:"quantity"`
	ExpiryDate time.Time `json:"expiry_date"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DrugStock is an inventory record joined with its location, as returned by
// drug-wide scans.
type DrugStock struct {
	InventoryRecord
	LocationName string       `json:"location_name"`
	LocationType LocationType `json:"location_type"`
}
