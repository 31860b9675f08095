package storage

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tmn08/ward-supply/internal/core/domain"
)

func seedTask(t *testing.T, ledger *MySQLLedger, status domain.TransferStatus) domain.TransferTask {
	t.Helper()
	now := time.Now()
	task := domain.TransferTask{
		ID:             uuid.New().String(),
		DrugName:       testDrug("ledger"),
		Qty:            20,
		FromLocationID: testWarehouseID,
		ToLocationID:   testWardID,
		Status:         status,
		RequestedBy:    "nurse-test",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	created, err := ledger.Insert(context.Background(), task)
	if err != nil {
		t.Fatalf("seed task failed: %v", err)
	}
	return created
}

func TestLedgerInsertAndGet(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ledger := NewMySQLLedger(db)
	task := seedTask(t, ledger, domain.TransferPending)

	stored, err := ledger.Get(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stored == nil {
		t.Fatal("expected task, got nil")
	}
	if stored.Status != domain.TransferPending {
		t.Errorf("expected pending, got %s", stored.Status)
	}
	if stored.PerformedBy != nil {
		t.Errorf("expected nil performed_by, got %v", stored.PerformedBy)
	}
}

func TestLedgerGet_NotFound(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ledger := NewMySQLLedger(db)
	task, err := ledger.Get(context.Background(), uuid.New().String())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task != nil {
		t.Error("expected nil for missing task")
	}
}

func TestConditionalUpdateStatus(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	ledger := NewMySQLLedger(db)
	task := seedTask(t, ledger, domain.TransferPending)

	ok, err := ledger.ConditionalUpdateStatus(ctx, task.ID, domain.TransferPending, domain.TransferInTransit, nil)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if !ok {
		t.Fatal("expected transition to succeed")
	}

	// Stale expectation: the task is no longer pending.
	ok, err = ledger.ConditionalUpdateStatus(ctx, task.ID, domain.TransferPending, domain.TransferInTransit, nil)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if ok {
		t.Error("stale transition must not win")
	}

	porterID := "porter-test"
	ok, err = ledger.ConditionalUpdateStatus(ctx, task.ID, domain.TransferInTransit, domain.TransferDelivered, &porterID)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if !ok {
		t.Fatal("expected delivery transition to succeed")
	}

	stored, _ := ledger.Get(ctx, task.ID)
	if stored.Status != domain.TransferDelivered {
		t.Errorf("expected delivered, got %s", stored.Status)
	}
	if stored.PerformedBy == nil || *stored.PerformedBy != porterID {
		t.Errorf("expected performed_by %q, got %v", porterID, stored.PerformedBy)
	}
}

func TestConditionalUpdateStatus_MissingTask(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ledger := NewMySQLLedger(db)
	ok, err := ledger.ConditionalUpdateStatus(context.Background(), uuid.New().String(),
		domain.TransferPending, domain.TransferInTransit, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected false for missing task")
	}
}

func TestConditionalUpdateStatus_Concurrent(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	ledger := NewMySQLLedger(db)
	task := seedTask(t, ledger, domain.TransferPending)

	racers := 20
	var wins atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := ledger.ConditionalUpdateStatus(ctx, task.ID, domain.TransferPending, domain.TransferInTransit, nil)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Errorf("expected exactly 1 winner, got %d", wins.Load())
	}
}

func TestScanByStatus(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	ledger := NewMySQLLedger(db)
	pending := seedTask(t, ledger, domain.TransferPending)
	delivered := seedTask(t, ledger, domain.TransferDelivered)

	tasks, err := ledger.ScanByStatus(ctx, domain.TransferPending, domain.TransferInTransit)
	if err != nil {
		t.Fatalf("ScanByStatus failed: %v", err)
	}

	foundPending := false
	for _, task := range tasks {
		if task.ID == delivered.ID {
			t.Error("delivered task must not appear in active scan")
		}
		if task.ID == pending.ID {
			foundPending = true
		}
	}
	if !foundPending {
		t.Error("pending task missing from active scan")
	}
}

func TestScanByStatus_NoStatuses(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ledger := NewMySQLLedger(db)
	tasks, err := ledger.ScanByStatus(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tasks != nil {
		t.Errorf("expected nil, got %v", tasks)
	}
}

func TestRecent_RespectsLimit(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ledger := NewMySQLLedger(db)
	for i := 0; i < 3; i++ {
		seedTask(t, ledger, domain.TransferPending)
	}

	tasks, err := ledger.Recent(context.Background(), 2)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(tasks) != 2 {
		t.Errorf("expected 2 tasks, got %d", len(tasks))
	}
}
