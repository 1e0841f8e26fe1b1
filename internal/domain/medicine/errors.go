package medicine

import (
	"errors"
	"fmt"
)

var (
	ErrMedicineNotFound  = errors.New("medicine not found")
	ErrMedicineInUse     = errors.New("medicine is referenced by prescriptions or orders")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// InsufficientStockError reports how much stock was on hand when a request could not be met.
type InsufficientStockError struct {
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock. Available: %d", e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
