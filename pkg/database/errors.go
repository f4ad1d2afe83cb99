package database

import (
	"strings"

	"github.com/lib/pq"
	"github.com/stockflow/stockflow-backend/pkg/errors"
)

// MapPQError converts a PostgreSQL constraint violation to an AppError with
// a meaningful message. Any other error, including nil, passes through
// unchanged so callers can return its result directly.
func MapPQError(err error) error {
	pqErr, ok := err.(*pq.Error)
	if !ok {
		return err
	}

	switch pqErr.Code {
	// Check constraint violation (23514)
	case "23514":
		return mapCheckConstraint(pqErr)

	// Unique constraint violation (23505)
	case "23505":
		return errors.Conflict(formatConstraintMessage(pqErr))

	// Foreign key violation (23503)
	case "23503":
		return errors.BadRequest("referenced record does not exist")

	// Not null violation (23502)
	case "23502":
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return errors.Validation(map[string]string{
			col: "must not be empty",
		})

	default:
		return err
	}
}

// mapCheckConstraint maps specific CHECK constraint names to user-friendly messages.
func mapCheckConstraint(pqErr *pq.Error) *errors.AppError {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "quantity_non_negative"):
		return errors.InsufficientStock("stock balance would become negative")

	case strings.Contains(constraint, "reserved_within_quantity"):
		return errors.InsufficientStock("reserved quantity exceeds on-hand quantity")

	case strings.Contains(constraint, "movement_quantity_positive"):
		return errors.Validation(map[string]string{
			"quantity": "must be greater than zero",
		})

	case strings.Contains(constraint, "status_valid"):
		return errors.Validation(map[string]string{
			"status": "is not a valid status for this document",
		})

	default:
		return errors.BadRequest("data validation failed: " + constraint)
	}
}

// formatConstraintMessage creates a user-friendly message for unique constraint violations.
func formatConstraintMessage(pqErr *pq.Error) string {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "serial_number"):
		return "a unit with this serial number already exists"
	case strings.Contains(constraint, "document_number"):
		return "a document with this number already exists"
	case strings.Contains(constraint, "product_bin"):
		return "an inventory row for this product and bin already exists"
	case strings.Contains(constraint, "batch_number"):
		return "a batch with this number already exists at this bin"
	default:
		return "a record with these values already exists"
	}
}
