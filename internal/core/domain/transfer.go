package domain

import "time"

type TransferStatus string

const (
	TransferPending   TransferStatus = "pending"
	TransferInTransit TransferStatus = "in_transit"
	TransferDelivered TransferStatus = "delivered"
)

// TransferTask moves a quantity of one drug between two locations. The
// lifecycle is linear: pending -> in_transit -> delivered, and delivered is
// terminal.
type TransferTask struct {
	ID             string         `json:"id"`
	DrugName       string         `json:"drug_name"`
	Qty            int            `json:"qty"`
	FromLocationID int64          `json:"from_location_id"`
	ToLocationID   int64          `json:"to_location_id"`
	Status         TransferStatus `json:"status"`
	RequestedBy    string         `json:"requested_by"`
	PerformedBy    *string        `json:"performed_by,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

type EventType string

const (
	EventInsert EventType = "insert"
	EventUpdate EventType = "update"
)

// TaskEvent is a ledger change notification. The transport is at-least-once
// and unordered; consumers reconcile by task id.
type TaskEvent struct {
	Type EventType    `json:"type"`
	Task TransferTask `json:"task"`
}
