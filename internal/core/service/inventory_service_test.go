package service

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRecordInwardSupply_CreatesAndIncrements(t *testing.T) {
	inv := allocationFixture()
	svc := NewInventoryService(inv)

	expiry := time.Date(2027, time.June, 1, 0, 0, 0, 0, time.UTC)
	rec, err := svc.RecordInwardSupply(context.Background(), nurse, icuWardID, "Paracetamol", 100, expiry)
	if err != nil {
		t.Fatalf("RecordInwardSupply failed: %v", err)
	}
	if rec.Quantity != 100 {
		t.Errorf("expected quantity 100, got %d", rec.Quantity)
	}
	if !rec.ExpiryDate.Equal(expiry) {
		t.Errorf("expected expiry %v, got %v", expiry, rec.ExpiryDate)
	}

	// A second batch for the same pair increments instead of duplicating.
	rec, err = svc.RecordInwardSupply(context.Background(), nurse, icuWardID, "Paracetamol", 25, expiry)
	if err != nil {
		t.Fatalf("second RecordInwardSupply failed: %v", err)
	}
	if rec.Quantity != 125 {
		t.Errorf("expected quantity 125, got %d", rec.Quantity)
	}
}

func TestRecordInwardSupply_DefaultExpiry(t *testing.T) {
	inv := allocationFixture()
	svc := NewInventoryService(inv)
	fixedNow := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixedNow }

	rec, err := svc.RecordInwardSupply(context.Background(), nurse, icuWardID, "Paracetamol", 10, time.Time{})
	if err != nil {
		t.Fatalf("RecordInwardSupply failed: %v", err)
	}
	if want := fixedNow.AddDate(1, 0, 0); !rec.ExpiryDate.Equal(want) {
		t.Errorf("expected default expiry %v, got %v", want, rec.ExpiryDate)
	}
}

func TestRecordInwardSupply_Invalid(t *testing.T) {
	svc := NewInventoryService(allocationFixture())

	if _, err := svc.RecordInwardSupply(context.Background(), nurse, icuWardID, "", 10, time.Time{}); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("empty drug name: expected ErrInvalidRequest, got %v", err)
	}
	if _, err := svc.RecordInwardSupply(context.Background(), nurse, icuWardID, "Paracetamol", 0, time.Time{}); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("zero qty: expected ErrInvalidRequest, got %v", err)
	}
}
