package pricing

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/amjewellery633-lang/AM-JEWEL-ERP/internal/domain"
)

var (
	ErrNonPositiveWeight    = errors.New("weight must be greater than zero")
	ErrNonPositiveRate      = errors.New("rate must be greater than zero")
	ErrNegativeMaking       = errors.New("making charge cannot be negative")
	ErrLineTotalMismatch    = errors.New("line total does not match weight, rate and making")
	ErrMissingItemName      = errors.New("item name is required")
	ErrUnknownMetal         = errors.New("unknown metal type")
)

// LineError names the offending field of a line that failed validation.
type LineError struct {
	Field string
	Err   error
}

func (e *LineError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *LineError) Unwrap() error {
	return e.Err
}

func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// RoundWeight rounds grams to the milligram precision weights are stored at.
func RoundWeight(d decimal.Decimal) decimal.Decimal {
	return d.Round(3)
}

// LineValue prices a bill line: round2(weight * rate) + making.
func LineValue(weight, rate, making decimal.Decimal) (decimal.Decimal, error) {
	if !weight.IsPositive() {
		return decimal.Zero, &LineError{Field: "weight", Err: ErrNonPositiveWeight}
	}
	if !rate.IsPositive() {
		return decimal.Zero, &LineError{Field: "rate", Err: ErrNonPositiveRate}
	}
	if making.IsNegative() {
		return decimal.Zero, &LineError{Field: "making_charges", Err: ErrNegativeMaking}
	}
	return Round2(weight.Mul(rate)).Add(making), nil
}

// MetalValue prices weighed metal with no making charge, as used for
// exchange credits and purchase slip lines.
func MetalValue(weight, rate decimal.Decimal) (decimal.Decimal, error) {
	if !weight.IsPositive() {
		return decimal.Zero, &LineError{Field: "weight", Err: ErrNonPositiveWeight}
	}
	if !rate.IsPositive() {
		return decimal.Zero, &LineError{Field: "rate", Err: ErrNonPositiveRate}
	}
	return Round2(weight.Mul(rate)), nil
}

// ValidateLine checks a draft line as it would be persisted. LineTotal must
// equal LineValue of the line's weight, rate and making.
func ValidateLine(item domain.DraftItem) error {
	if strings.TrimSpace(item.ItemName) == "" {
		return &LineError{Field: "item_name", Err: ErrMissingItemName}
	}
	if item.MetalType != "" && !item.MetalType.Valid() {
		return &LineError{Field: "metal_type", Err: ErrUnknownMetal}
	}
	if !item.Weight.IsPositive() {
		return &LineError{Field: "weight", Err: ErrNonPositiveWeight}
	}
	if !item.RatePerGram.IsPositive() {
		return &LineError{Field: "rate", Err: ErrNonPositiveRate}
	}
	if item.MakingCharges.IsNegative() {
		return &LineError{Field: "making_charges", Err: ErrNegativeMaking}
	}
	value, err := LineValue(item.Weight, item.RatePerGram, item.MakingCharges)
	if err != nil {
		return err
	}
	if !item.LineTotal.Equal(value) {
		return &LineError{Field: "line_total", Err: ErrLineTotalMismatch}
	}
	return nil
}

// SumLines adds up line totals.
func SumLines(items []domain.DraftItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal)
	}
	return total
}
