package totals

import (
	"errors"

	"github.com/shopspring/decimal"
)

type Mode string

const (
	ModeAuto   Mode = "AUTO"
	ModeLocked Mode = "LOCKED"
)

var ErrNonPositiveTotal = errors.New("total must be greater than zero")

// Tracker decides whether a transaction total follows its line items or is
// pinned by the operator.
type Tracker struct {
	mode  Mode
	total decimal.Decimal
	sum   decimal.Decimal
}

// NewAuto starts a fresh transaction whose total follows sum.
func NewAuto(sum decimal.Decimal) *Tracker {
	return &Tracker{mode: ModeAuto, total: sum, sum: sum}
}

// LoadPersisted starts from a stored transaction. The stored total is
// authoritative until the operator unlocks.
func LoadPersisted(total, sum decimal.Decimal) *Tracker {
	return &Tracker{mode: ModeLocked, total: total, sum: sum}
}

// ItemsChanged records a new line-item sum after an add, remove or edit.
func (t *Tracker) ItemsChanged(sum decimal.Decimal) {
	t.sum = sum
	if t.mode == ModeAuto {
		t.total = sum
	}
}

// SetManual pins the total to a value typed by the operator.
func (t *Tracker) SetManual(total decimal.Decimal) error {
	if !total.IsPositive() {
		return ErrNonPositiveTotal
	}
	t.mode = ModeLocked
	t.total = total
	return nil
}

// Unlock discards the pin and recomputes from the current line items.
func (t *Tracker) Unlock() {
	t.mode = ModeAuto
	t.total = t.sum
}

func (t *Tracker) Mode() Mode {
	return t.mode
}

func (t *Tracker) Locked() bool {
	return t.mode == ModeLocked
}

func (t *Tracker) Total() decimal.Decimal {
	return t.total
}

func (t *Tracker) LineSum() decimal.Decimal {
	return t.sum
}
