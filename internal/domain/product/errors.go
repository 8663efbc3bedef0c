package product

import (
	"fmt"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is returned by the store when a requested product does not
	// exist.
	ErrNotFound = errors.New("product not found")
	// ErrCodeConflict is returned by the store when a product code is
	// already in use.
	ErrCodeConflict = errors.New("product code already exists")
	// ErrCategoryNotFound is returned when a product references a category
	// that does not exist.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrPriceOutOfRange is returned for base prices rejected by CheckPrice.
	ErrPriceOutOfRange = errors.New("price out of range")
)

// NotFoundError indicates that no product carries the given code.
type NotFoundError struct {
	Code string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.Code)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// RateUnavailableError indicates that the exchange rate could not be
// obtained, so no price could be derived.
type RateUnavailableError struct {
	Base  string
	Quote string
	Err   error
}

func (e *RateUnavailableError) Error() string {
	return fmt.Sprintf("exchange rate %s/%s unavailable: %v", e.Base, e.Quote, e.Err)
}

func (e *RateUnavailableError) Unwrap() error { return e.Err }

// CodesExhaustedError indicates that no free product code was found within
// the attempt budget.
type CodesExhaustedError struct {
	Attempts int
}

func (e *CodesExhaustedError) Error() string {
	return fmt.Sprintf("no free product code after %d attempts", e.Attempts)
}

// StorageError wraps a failure of the underlying store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
