package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/tmn08/ward-supply/internal/core/domain"
)

// MySQLLedger implements port.TransferLedger on the transfers table. Status
// transitions are conditional updates checked via RowsAffected, so a stale
// transition never overwrites a newer one.
type MySQLLedger struct {
	db *sql.DB
}

func NewMySQLLedger(db *sql.DB) *MySQLLedger {
	return &MySQLLedger{db: db}
}

const transferColumns = "id, drug_name, qty, from_location_id, to_location_id, status, requested_by, performed_by, created_at, updated_at"

func (m *MySQLLedger) Insert(ctx context.Context, task domain.TransferTask) (domain.TransferTask, error) {
	err := withRetry(ctx, func() error {
		_, err := m.db.ExecContext(ctx, `
			INSERT INTO transfers (`+transferColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			task.ID, task.DrugName, task.Qty, task.FromLocationID, task.ToLocationID,
			task.Status, task.RequestedBy, task.PerformedBy, task.CreatedAt, task.UpdatedAt,
		)
		return err
	})
	if err != nil {
		return domain.TransferTask{}, fmt.Errorf("insert transfer: %w", err)
	}
	return task, nil
}

func (m *MySQLLedger) Get(ctx context.Context, id string) (*domain.TransferTask, error) {
	var task domain.TransferTask
	err := withRetry(ctx, func() error {
		return m.db.QueryRowContext(ctx, `
			SELECT `+transferColumns+` FROM transfers WHERE id = ?`, id,
		).Scan(&task.ID, &task.DrugName, &task.Qty, &task.FromLocationID, &task.ToLocationID,
			&task.Status, &task.RequestedBy, &task.PerformedBy, &task.CreatedAt, &task.UpdatedAt)
	})

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query transfer: %w", err)
	}
	return &task, nil
}

func (m *MySQLLedger) ScanByStatus(ctx context.Context, statuses ...domain.TransferStatus) ([]domain.TransferTask, error) {
	if len(statuses) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(statuses)), ",")
	args := make([]any, len(statuses))
	for i, s := range statuses {
		args[i] = s
	}

	tasks, err := m.scanTasks(ctx, `
		SELECT `+transferColumns+` FROM transfers
		WHERE status IN (`+placeholders+`)
		ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("scan transfers by status: %w", err)
	}
	return tasks, nil
}

// ConditionalUpdateStatus is the compare-and-set every transition goes
// through: the WHERE clause pins the expected prior status and RowsAffected
// reports whether this caller won.
func (m *MySQLLedger) ConditionalUpdateStatus(ctx context.Context, id string, expected, next domain.TransferStatus, performedBy *string) (bool, error) {
	var won bool
	err := withRetry(ctx, func() error {
		result, err := m.db.ExecContext(ctx, `
			UPDATE transfers
			SET status = ?, performed_by = COALESCE(?, performed_by), updated_at = NOW()
			WHERE id = ? AND status = ?`,
			next, performedBy, id, expected,
		)
		if err != nil {
			return err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		won = rows > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("update transfer status: %w", err)
	}
	return won, nil
}

func (m *MySQLLedger) Recent(ctx context.Context, limit int) ([]domain.TransferTask, error) {
	tasks, err := m.scanTasks(ctx, `
		SELECT `+transferColumns+` FROM transfers
		ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("scan recent transfers: %w", err)
	}
	return tasks, nil
}

func (m *MySQLLedger) scanTasks(ctx context.Context, query string, args ...any) ([]domain.TransferTask, error) {
	var tasks []domain.TransferTask
	err := withRetry(ctx, func() error {
		rows, err := m.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		tasks = tasks[:0]
		for rows.Next() {
			var task domain.TransferTask
			if err := rows.Scan(&task.ID, &task.DrugName, &task.Qty, &task.FromLocationID,
				&task.ToLocationID, &task.Status, &task.RequestedBy, &task.PerformedBy,
				&task.CreatedAt, &task.UpdatedAt); err != nil {
				return err
			}
			tasks = append(tasks, task)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}
