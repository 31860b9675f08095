package domain

type LocationType string

const (
	LocationWarehouse LocationType = "warehouse"
	LocationWard      LocationType = "ward"
)

// Location is immutable reference data, seeded outside this service.
type Location struct {
	ID   int64        `json:"id"`
	Name string       `json:"name"`
	Type LocationType `json:"type"`
}
