package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tmn08/ward-supply/internal/core/domain"
)

// MySQLInventory implements port.InventoryStore on the inventory and
// locations tables. Quantity mutations are single atomic statements, never
// read-modify-write.
type MySQLInventory struct {
	db *sql.DB
}

func NewMySQLInventory(db *sql.DB) *MySQLInventory {
	return &MySQLInventory{db: db}
}

const inventoryColumns = "id, location_id, drug_name, quantity, expiry_date, created_at, updated_at"

func (m *MySQLInventory) Get(ctx context.Context, locationID int64, drugName string) (*domain.InventoryRecord, error) {
	var rec domain.InventoryRecord
	err := withRetry(ctx, func() error {
		return m.db.QueryRowContext(ctx, `
			SELECT `+inventoryColumns+`
			FROM inventory WHERE location_id = ? AND drug_name = ?`,
			locationID, drugName,
		).Scan(&rec.ID, &rec.LocationID, &rec.DrugName, &rec.Quantity,
			&rec.ExpiryDate, &rec.CreatedAt, &rec.UpdatedAt)
	})

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	return &rec, nil
}

func (m *MySQLInventory) ScanByDrug(ctx context.Context, drugName string) ([]domain.DrugStock, error) {
	var stock []domain.DrugStock
	err := withRetry(ctx, func() error {
		rows, err := m.db.QueryContext(ctx, `
			SELECT i.id, i.location_id, i.drug_name, i.quantity, i.expiry_date,
			       i.created_at, i.updated_at, l.name, l.type
			FROM inventory i
			JOIN locations l ON l.id = i.location_id
			WHERE i.drug_name = ? AND i.quantity > 0`,
			drugName,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		stock = stock[:0]
		for rows.Next() {
			var row domain.DrugStock
			if err := rows.Scan(&row.ID, &row.LocationID, &row.DrugName, &row.Quantity,
				&row.ExpiryDate, &row.CreatedAt, &row.UpdatedAt,
				&row.LocationName, &row.LocationType); err != nil {
				return err
			}
			stock = append(stock, row)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("scan inventory by drug: %w", err)
	}
	return stock, nil
}

func (m *MySQLInventory) ScanByLocation(ctx context.Context, locationID int64) ([]domain.InventoryRecord, error) {
	records, err := m.scanRecords(ctx, `
		SELECT `+inventoryColumns+`
		FROM inventory WHERE location_id = ? ORDER BY quantity ASC`, locationID)
	if err != nil {
		return nil, fmt.Errorf("scan inventory by location: %w", err)
	}
	return records, nil
}

func (m *MySQLInventory) ScanAll(ctx context.Context) ([]domain.InventoryRecord, error) {
	records, err := m.scanRecords(ctx, `SELECT `+inventoryColumns+` FROM inventory`)
	if err != nil {
		return nil, fmt.Errorf("scan inventory: %w", err)
	}
	return records, nil
}

func (m *MySQLInventory) Locations(ctx context.Context) ([]domain.Location, error) {
	var locations []domain.Location
	err := withRetry(ctx, func() error {
		rows, err := m.db.QueryContext(ctx, `SELECT id, name, type FROM locations ORDER BY id`)
		if err != nil {
			return err
		}
		defer rows.Close()

		locations = locations[:0]
		for rows.Next() {
			var loc domain.Location
			if err := rows.Scan(&loc.ID, &loc.Name, &loc.Type); err != nil {
				return err
			}
			locations = append(locations, loc)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("query locations: %w", err)
	}
	return locations, nil
}

// UpsertIncrement adds delta to the pair's quantity in one statement; the
// unique (location_id, drug_name) key turns a concurrent first arrival into
// an increment instead of a duplicate row.
func (m *MySQLInventory) UpsertIncrement(ctx context.Context, locationID int64, drugName string, delta int, expiry time.Time) (*domain.InventoryRecord, error) {
	err := withRetry(ctx, func() error {
		_, err := m.db.ExecContext(ctx, `
			INSERT INTO inventory (location_id, drug_name, quantity, expiry_date, created_at, updated_at)
			VALUES (?, ?, ?, ?, NOW(), NOW())
			ON DUPLICATE KEY UPDATE quantity = quantity + VALUES(quantity), updated_at = NOW()`,
			locationID, drugName, delta, expiry,
		)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("upsert inventory: %w", err)
	}
	return m.Get(ctx, locationID, drugName)
}

func (m *MySQLInventory) DecrementClamped(ctx context.Context, locationID int64, drugName string, qty int) error {
	err := withRetry(ctx, func() error {
		_, err := m.db.ExecContext(ctx, `
			UPDATE inventory
			SET quantity = GREATEST(quantity - ?, 0), updated_at = NOW()
			WHERE location_id = ? AND drug_name = ?`,
			qty, locationID, drugName,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("decrement inventory: %w", err)
	}
	return nil
}

func (m *MySQLInventory) Insert(ctx context.Context, rec domain.InventoryRecord) (*domain.InventoryRecord, error) {
	err := withRetry(ctx, func() error {
		_, err := m.db.ExecContext(ctx, `
			INSERT INTO inventory (location_id, drug_name, quantity, expiry_date, created_at, updated_at)
			VALUES (?, ?, ?, ?, NOW(), NOW())`,
			rec.LocationID, rec.DrugName, rec.Quantity, rec.ExpiryDate,
		)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("insert inventory: %w", err)
	}
	return m.Get(ctx, rec.LocationID, rec.DrugName)
}

func (m *MySQLInventory) scanRecords(ctx context.Context, query string, args ...any) ([]domain.InventoryRecord, error) {
	var records []domain.InventoryRecord
	err := withRetry(ctx, func() error {
		rows, err := m.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		records = records[:0]
		for rows.Next() {
			var rec domain.InventoryRecord
			if err := rows.Scan(&rec.ID, &rec.LocationID, &rec.DrugName, &rec.Quantity,
				&rec.ExpiryDate, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
				return err
			}
			records = append(records, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}
