package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tmn08/ward-supply/internal/core/domain"
	"github.com/tmn08/ward-supply/internal/logging"
	"github.com/tmn08/ward-supply/internal/metrics"
	"github.com/tmn08/ward-supply/internal/port"
)

// TransferService owns the transfer-task lifecycle: creation, porter
// acceptance, and completion with its inventory side effects. All state lives
// in the ledger and inventory stores; every transition is a single conditional
// write there.
type TransferService struct {
	ledger    port.TransferLedger
	inventory port.InventoryStore
	cache     port.CacheStore
	bus       port.EventBus
	logger    *logrus.Logger
	now       func() time.Time
}

func NewTransferService(ledger port.TransferLedger, inventory port.InventoryStore, cache port.CacheStore, bus port.EventBus) *TransferService {
	return &TransferService{
		ledger:    ledger,
		inventory: inventory,
		cache:     cache,
		bus:       bus,
		logger:    logging.Logger(),
		now:       time.Now,
	}
}

// RequestTransfer inserts a pending task. Source stock is not reserved at
// creation; it is reconciled when the porter confirms delivery.
func (s *TransferService) RequestTransfer(ctx context.Context, actor domain.Actor, drugName string, qty int, fromLocationID, toLocationID int64) (domain.TransferTask, error) {
	if drugName == "" || qty <= 0 || fromLocationID == toLocationID {
		return domain.TransferTask{}, ErrInvalidRequest
	}

	idempotencyKey := fmt.Sprintf("transfer:%s:%s:%d", actor.ID, drugName, toLocationID)
	ok, err := s.cache.SetIdempotency(ctx, idempotencyKey)
	if err != nil {
		return domain.TransferTask{}, fmt.Errorf("idempotency check failed: %w", err)
	}
	if !ok {
		return domain.TransferTask{}, ErrDuplicateRequest
	}

	now := s.now()
	task := domain.TransferTask{
		ID:             uuid.New().String(),
		DrugName:       drugName,
		Qty:            qty,
		FromLocationID: fromLocationID,
		ToLocationID:   toLocationID,
		Status:         domain.TransferPending,
		RequestedBy:    actor.ID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	created, err := s.ledger.Insert(ctx, task)
	if err != nil {
		return domain.TransferTask{}, fmt.Errorf("insert transfer: %w", err)
	}
	metrics.TransfersCreated.Inc()

	s.publish(ctx, domain.TaskEvent{Type: domain.EventInsert, Task: created})
	return created, nil
}

// AcceptTransfer moves a pending task to in_transit. Losing the race to
// another porter surfaces as ErrInvalidTransition, which callers should treat
// as a normal outcome.
func (s *TransferService) AcceptTransfer(ctx context.Context, actor domain.Actor, taskID string) error {
	if actor.Role != domain.RolePorter {
		return ErrRoleForbidden
	}

	ok, err := s.ledger.ConditionalUpdateStatus(ctx, taskID, domain.TransferPending, domain.TransferInTransit, nil)
	if err != nil {
		return fmt.Errorf("accept transfer: %w", err)
	}
	if !ok {
		return s.transitionFailure(ctx, taskID)
	}
	metrics.TransfersAccepted.Inc()

	if task, err := s.ledger.Get(ctx, taskID); err == nil && task != nil {
		s.publish(ctx, domain.TaskEvent{Type: domain.EventUpdate, Task: *task})
	}
	return nil
}

// CompleteTransfer moves an in_transit task to delivered and reconciles
// inventory at both ends. The status compare-and-set is the serialization
// point, so the inventory mutation happens exactly once per task.
func (s *TransferService) CompleteTransfer(ctx context.Context, actor domain.Actor, taskID string) error {
	if actor.Role != domain.RolePorter {
		return ErrRoleForbidden
	}

	task, err := s.ledger.Get(ctx, taskID)
	if err != nil {
		return fmt.Errorf("load transfer: %w", err)
	}
	if task == nil {
		return ErrTaskNotFound
	}

	ok, err := s.ledger.ConditionalUpdateStatus(ctx, taskID, domain.TransferInTransit, domain.TransferDelivered, &actor.ID)
	if err != nil {
		return fmt.Errorf("complete transfer: %w", err)
	}
	if !ok {
		return ErrInvalidTransition
	}
	metrics.TransfersDelivered.Inc()

	expiry := s.now().AddDate(1, 0, 0)
	if _, err := s.inventory.UpsertIncrement(ctx, task.ToLocationID, task.DrugName, task.Qty, expiry); err != nil {
		// The status write already landed; surface the failure without undoing it.
		return fmt.Errorf("credit destination stock: %w", err)
	}

	// The source was never reserved, so its stock may have drained below the
	// transferred quantity in the meantime; the debit clamps at zero.
	if err := s.inventory.DecrementClamped(ctx, task.FromLocationID, task.DrugName, task.Qty); err != nil {
		s.logger.WithFields(logrus.Fields{
			"task_id":     taskID,
			"location_id": task.FromLocationID,
			"drug_name":   task.DrugName,
		}).WithError(err).Warn("source stock decrement failed")
	}

	task.Status = domain.TransferDelivered
	task.PerformedBy = &actor.ID
	task.UpdatedAt = s.now()
	s.publish(ctx, domain.TaskEvent{Type: domain.EventUpdate, Task: *task})
	return nil
}

// ActiveTasks returns pending and in_transit tasks, newest first.
func (s *TransferService) ActiveTasks(ctx context.Context) ([]domain.TransferTask, error) {
	return s.ledger.ScanByStatus(ctx, domain.TransferPending, domain.TransferInTransit)
}

func (s *TransferService) transitionFailure(ctx context.Context, taskID string) error {
	task, err := s.ledger.Get(ctx, taskID)
	if err != nil {
		return fmt.Errorf("load transfer after failed transition: %w", err)
	}
	if task == nil {
		return ErrTaskNotFound
	}
	return ErrInvalidTransition
}

func (s *TransferService) publish(ctx context.Context, ev domain.TaskEvent) {
	if err := s.bus.PublishTaskEvent(ctx, ev); err != nil {
		s.logger.WithFields(logrus.Fields{
			"task_id": ev.Task.ID,
			"type":    ev.Type,
		}).WithError(err).Warn("publish task event failed")
	}
}
