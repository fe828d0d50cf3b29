package service

import (
	"errors"
	"fmt"

	"furniture-erp/internal/importer"
	"furniture-erp/internal/production"
	"furniture-erp/internal/store"
)

var (
	// ErrNotFound is returned when a customer, order or product does not exist
	ErrNotFound = store.ErrNotFound
	// ErrValidation wraps every rejected request payload
	ErrValidation = errors.New("validation failed")
	// ErrConflict is returned when another writer holds the order
	ErrConflict = errors.New("conflict")
	// ErrForbidden is returned when the caller lacks a permission
	ErrForbidden = errors.New("forbidden")
)

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// domainError lifts rule errors from the production and importer packages
// onto the service sentinels.
func domainError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrDuplicate):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	case errors.Is(err, production.ErrLineNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, production.ErrInvalidFragments),
		errors.Is(err, production.ErrPipelineFinished),
		errors.Is(err, importer.ErrTooShort),
		errors.Is(err, importer.ErrMissingColumns):
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return err
}
