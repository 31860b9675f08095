package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRequest    = errors.New("invalid request")
	ErrDrugUnavailable   = errors.New("drug unavailable in network")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrDuplicateRequest  = errors.New("duplicate request")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrTaskNotFound      = errors.New("transfer task not found")
	ErrRoleForbidden     = errors.New("actor role not permitted")
)

// InsufficientStockError carries the largest single-location quantity found,
// so the requester can be told what is actually available.
type InsufficientStockError struct {
	MaxAvailable int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: max available %d", e.MaxAvailable)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
