package domain

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/stockflow/stockflow-backend/pkg/errors"
)

// EnsureSerialCount checks that a tracked line carries exactly one serial
// number per unit.
func EnsureSerialCount(quantity decimal.Decimal, serials []string) error {
	if !quantity.IsInteger() {
		return errors.ValidationMsg("tracked products require a whole-number quantity")
	}
	want := quantity.IntPart()
	if int64(len(serials)) != want {
		return errors.ValidationMsg(fmt.Sprintf("expected %d serial numbers, got %d", want, len(serials)))
	}
	seen := make(map[string]struct{}, len(serials))
	for _, s := range serials {
		if s == "" {
			return errors.ValidationMsg("serial numbers must not be empty")
		}
		if _, dup := seen[s]; dup {
			return errors.ValidationMsg(fmt.Sprintf("duplicate serial number %q on one line", s))
		}
		seen[s] = struct{}{}
	}
	return nil
}

// EnsureBatchFields rejects an expiry or manufacture date without a batch
// number to attach it to.
func EnsureBatchFields(batchNumber *string, hasDates bool) error {
	if hasDates && (batchNumber == nil || *batchNumber == "") {
		return errors.ValidationMsg("expiry or manufacture date requires a batch number")
	}
	return nil
}

// EnsurePositiveQuantity rejects zero and negative line quantities.
func EnsurePositiveQuantity(q decimal.Decimal) error {
	if !q.IsPositive() {
		return errors.ValidationMsg("quantity must be positive")
	}
	return nil
}

// RoundUpToMultiple rounds q up to the next multiple of m. A multiple of
// zero or less leaves q unchanged.
func RoundUpToMultiple(q decimal.Decimal, m decimal.Decimal) decimal.Decimal {
	if !m.IsPositive() {
		return q
	}
	rem := q.Mod(m)
	if rem.IsZero() {
		return q
	}
	return q.Sub(rem).Add(m)
}
