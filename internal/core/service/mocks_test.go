package service

import (
	"context"
	"sync"
	"time"

	"github.com/tmn08/ward-supply/internal/core/domain"
)

// In-memory store doubles mirroring the SQL adapters' semantics, shared by
// the service tests in this package.

type mockInventory struct {
	mu        sync.Mutex
	nextID    int64
	records   []domain.InventoryRecord
	locations map[int64]domain.Location
}

func newMockInventory() *mockInventory {
	return &mockInventory{locations: make(map[int64]domain.Location)}
}

func (m *mockInventory) addLocation(id int64, name string, typ domain.LocationType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations[id] = domain.Location{ID: id, Name: name, Type: typ}
}

func (m *mockInventory) addStock(locationID int64, drugName string, qty int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.records = append(m.records, domain.InventoryRecord{
		ID:         m.nextID,
		LocationID: locationID,
		DrugName:   drugName,
		Quantity:   qty,
		ExpiryDate: time.Now().AddDate(1, 0, 0),
	})
}

func (m *mockInventory) find(locationID int64, drugName string) *domain.InventoryRecord {
	for i := range m.records {
		if m.records[i].LocationID == locationID && m.records[i].DrugName == drugName {
			return &m.records[i]
		}
	}
	return nil
}

func (m *mockInventory) Get(ctx context.Context, locationID int64, drugName string) (*domain.InventoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec := m.find(locationID, drugName); rec != nil {
		out := *rec
		return &out, nil
	}
	return nil, nil
}

func (m *mockInventory) ScanByDrug(ctx context.Context, drugName string) ([]domain.DrugStock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var stock []domain.DrugStock
	for _, rec := range m.records {
		if rec.DrugName != drugName || rec.Quantity <= 0 {
			continue
		}
		loc := m.locations[rec.LocationID]
		stock = append(stock, domain.DrugStock{
			InventoryRecord: rec,
			LocationName:    loc.Name,
			LocationType:    loc.Type,
		})
	}
	return stock, nil
}

func (m *mockInventory) ScanByLocation(ctx context.Context, locationID int64) ([]domain.InventoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var records []domain.InventoryRecord
	for _, rec := range m.records {
		if rec.LocationID == locationID {
			records = append(records, rec)
		}
	}
	return records, nil
}

func (m *mockInventory) ScanAll(ctx context.Context) ([]domain.InventoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.InventoryRecord(nil), m.records...), nil
}

func (m *mockInventory) Locations(ctx context.Context) ([]domain.Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var locations []domain.Location
	for _, loc := range m.locations {
		locations = append(locations, loc)
	}
	return locations, nil
}

func (m *mockInventory) UpsertIncrement(ctx context.Context, locationID int64, drugName string, delta int, expiry time.Time) (*domain.InventoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec := m.find(locationID, drugName); rec != nil {
		rec.Quantity += delta
		out := *rec
		return &out, nil
	}
	m.nextID++
	rec := domain.InventoryRecord{
		ID:         m.nextID,
		LocationID: locationID,
		DrugName:   drugName,
		Quantity:   delta,
		ExpiryDate: expiry,
	}
	m.records = append(m.records, rec)
	return &rec, nil
}

func (m *mockInventory) DecrementClamped(ctx context.Context, locationID int64, drugName string, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec := m.find(locationID, drugName); rec != nil {
		rec.Quantity -= qty
		if rec.Quantity < 0 {
			rec.Quantity = 0
		}
	}
	return nil
}

func (m *mockInventory) Insert(ctx context.Context, rec domain.InventoryRecord) (*domain.InventoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	rec.ID = m.nextID
	m.records = append(m.records, rec)
	return &rec, nil
}

type mockLedger struct {
	mu    sync.Mutex
	tasks map[string]domain.TransferTask
	order []string // insertion order, oldest first
}

func newMockLedger() *mockLedger {
	return &mockLedger{tasks: make(map[string]domain.TransferTask)}
}

func (m *mockLedger) Insert(ctx context.Context, task domain.TransferTask) (domain.TransferTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[task.ID] = task
	m.order = append(m.order, task.ID)
	return task, nil
}

func (m *mockLedger) Get(ctx context.Context, id string) (*domain.TransferTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if task, ok := m.tasks[id]; ok {
		return &task, nil
	}
	return nil, nil
}

func (m *mockLedger) ScanByStatus(ctx context.Context, statuses ...domain.TransferStatus) ([]domain.TransferTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var tasks []domain.TransferTask
	for i := len(m.order) - 1; i >= 0; i-- {
		task := m.tasks[m.order[i]]
		for _, s := range statuses {
			if task.Status == s {
				tasks = append(tasks, task)
				break
			}
		}
	}
	return tasks, nil
}

func (m *mockLedger) ConditionalUpdateStatus(ctx context.Context, id string, expected, next domain.TransferStatus, performedBy *string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok || task.Status != expected {
		return false, nil
	}
	task.Status = next
	if performedBy != nil {
		task.PerformedBy = performedBy
	}
	task.UpdatedAt = time.Now()
	m.tasks[id] = task
	return true, nil
}

func (m *mockLedger) Recent(ctx context.Context, limit int) ([]domain.TransferTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var tasks []domain.TransferTask
	for i := len(m.order) - 1; i >= 0 && len(tasks) < limit; i-- {
		tasks = append(tasks, m.tasks[m.order[i]])
	}
	return tasks, nil
}

type mockCache struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newMockCache() *mockCache {
	return &mockCache{keys: make(map[string]bool)}
}

func (m *mockCache) SetIdempotency(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

type mockBus struct {
	mu     sync.Mutex
	events []domain.TaskEvent
}

func newMockBus() *mockBus {
	return &mockBus{}
}

func (m *mockBus) PublishTaskEvent(ctx context.Context, ev domain.TaskEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *mockBus) SubscribeTaskEvents(ctx context.Context) (<-chan domain.TaskEvent, func(), error) {
	ch := make(chan domain.TaskEvent)
	return ch, func() { close(ch) }, nil
}

func (m *mockBus) RecentEvents(ctx context.Context, limit int) ([]domain.TaskEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var events []domain.TaskEvent
	for i := len(m.events) - 1; i >= 0 && len(events) < limit; i-- {
		events = append(events, m.events[i])
	}
	return events, nil
}

func (m *mockBus) published() []domain.TaskEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.TaskEvent(nil), m.events...)
}
