package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"

	"github.com/tmn08/ward-supply/internal/adapter/storage"
	"github.com/tmn08/ward-supply/internal/core/domain"
	"github.com/tmn08/ward-supply/internal/core/service"
)

// Contention driver: races many porters on a single pending task and checks
// that the compare-and-set lets exactly one of them win, then completes the
// delivery and checks the inventory reconciliation at both ends.
const (
	drugName     = "stress-test-adrenaline"
	sourceStock  = 50
	transferQty  = 20
	porterCount  = 25
	warehouseID  = 1
	icuWardID    = 2
)

func main() {
	ctx := context.Background()

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		mysqlDSN = "root:root@tcp(localhost:3306)/wardsupply?parseTime=true"
	}
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		log.Fatalf("failed to open mysql: %v", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping mysql: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer rdb.Close()

	// Clear previous test data
	rdb.Del(ctx, fmt.Sprintf("transfer:nurse-stress:%s:%d", drugName, icuWardID))
	db.ExecContext(ctx, `DELETE FROM transfers WHERE drug_name = ?`, drugName)
	db.ExecContext(ctx, `DELETE FROM inventory WHERE drug_name = ?`, drugName)
	db.ExecContext(ctx, `INSERT IGNORE INTO locations (id, name, type) VALUES (?, 'Central Warehouse', 'warehouse')`, warehouseID)
	db.ExecContext(ctx, `INSERT IGNORE INTO locations (id, name, type) VALUES (?, 'ICU Ward', 'ward')`, icuWardID)

	inventoryStore := storage.NewMySQLInventory(db)
	ledger := storage.NewMySQLLedger(db)
	bus := storage.NewRedisBus(rdb)
	transfers := service.NewTransferService(ledger, inventoryStore, bus, bus)

	// Seed source stock and one pending task.
	expiry := time.Now().AddDate(1, 0, 0)
	if _, err := inventoryStore.UpsertIncrement(ctx, warehouseID, drugName, sourceStock, expiry); err != nil {
		log.Fatalf("failed to seed stock: %v", err)
	}

	nurse := domain.Actor{ID: "nurse-stress", Role: domain.RoleNurse}
	task, err := transfers.RequestTransfer(ctx, nurse, drugName, transferQty, warehouseID, icuWardID)
	if err != nil {
		log.Fatalf("failed to create transfer: %v", err)
	}

	// Race porters on the accept.
	var acceptWins atomic.Int32
	var lostRace atomic.Int32
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < porterCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			porter := domain.Actor{ID: fmt.Sprintf("porter-%d", id), Role: domain.RolePorter}
			err := transfers.AcceptTransfer(ctx, porter, task.ID)
			switch {
			case err == nil:
				acceptWins.Add(1)
			case errors.Is(err, service.ErrInvalidTransition):
				lostRace.Add(1)
			default:
				log.Printf("porter %d: unexpected error: %v", id, err)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	// One porter finishes the delivery.
	porter := domain.Actor{ID: "porter-final", Role: domain.RolePorter}
	if err := transfers.CompleteTransfer(ctx, porter, task.ID); err != nil {
		log.Fatalf("failed to complete transfer: %v", err)
	}

	// Read back both ends.
	source, _ := inventoryStore.Get(ctx, warehouseID, drugName)
	dest, _ := inventoryStore.Get(ctx, icuWardID, drugName)

	fmt.Println("========== CONTENTION TEST RESULTS ==========")
	fmt.Printf("Porters racing:    %d\n", porterCount)
	fmt.Printf("Accept wins:       %d\n", acceptWins.Load())
	fmt.Printf("Lost the race:     %d\n", lostRace.Load())
	fmt.Printf("Duration:          %v\n", elapsed)
	fmt.Println("=============================================")

	pass := true
	if acceptWins.Load() != 1 || lostRace.Load() != int32(porterCount-1) {
		pass = false
		fmt.Printf("FAIL: expected exactly 1 accept win, got %d\n", acceptWins.Load())
	} else {
		fmt.Println("PASS: exactly one porter won the accept")
	}

	if source == nil || source.Quantity != sourceStock-transferQty {
		pass = false
		fmt.Printf("FAIL: expected source stock %d, got %+v\n", sourceStock-transferQty, source)
	} else {
		fmt.Printf("PASS: source stock decremented to %d\n", source.Quantity)
	}

	if dest == nil || dest.Quantity != transferQty {
		pass = false
		fmt.Printf("FAIL: expected destination stock %d, got %+v\n", transferQty, dest)
	} else {
		fmt.Printf("PASS: destination stock credited to %d\n", dest.Quantity)
	}

	if !pass {
		os.Exit(1)
	}
}
