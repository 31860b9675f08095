package port

import (
	"context"

	"github.com/tmn08/ward-supply/internal/core/domain"
)

type TransferLedger interface {
	// Insert appends a new task to the ledger
	Insert(ctx context.Context, task domain.TransferTask) (domain.TransferTask, error)

	// Get returns one task by id, or nil when absent
	Get(ctx context.Context, id string) (*domain.TransferTask, error)

	// ScanByStatus returns tasks in any of the given statuses, newest first
	ScanByStatus(ctx context.Context, statuses ...domain.TransferStatus) ([]domain.TransferTask, error)

	// ConditionalUpdateStatus moves a task from expected to next in a single
	// conditional write, stamping performedBy when non-nil. Returns false when
	// the task is missing or its status no longer matches expected.
	ConditionalUpdateStatus(ctx context.Context, id string, expected, next domain.TransferStatus, performedBy *string) (bool, error)

	// Recent returns the most recently created tasks regardless of status
	Recent(ctx context.Context, limit int) ([]domain.TransferTask, error)
}
