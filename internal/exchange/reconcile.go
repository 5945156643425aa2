package exchange

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/amjewellery633-lang/AM-JEWEL-ERP/internal/domain"
	"github.com/amjewellery633-lang/AM-JEWEL-ERP/internal/pricing"
)

// RateMetal is the metal whose daily rate prices old gold when the operator
// leaves the rate blank.
const RateMetal = domain.MetalGold

var (
	ErrForeignRow   = errors.New("exchange row does not belong to this bill")
	ErrDuplicateRow = errors.New("exchange row appears more than once")
)

// RowError locates a failing exchange row. Op is "validate", "delete",
// "update" or "insert"; Index is the draft position, or -1 for deletes.
type RowError struct {
	Op    string
	Index int
	ID    int64
	Err   error
}

func (e *RowError) Error() string {
	if e.ID != 0 {
		return fmt.Sprintf("exchange %s row %d (id %d): %v", e.Op, e.Index, e.ID, e.Err)
	}
	return fmt.Sprintf("exchange %s row %d: %v", e.Op, e.Index, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// Writer is the slice of store.Repository reconciliation needs.
type Writer interface {
	ListExchangeIDsByBill(ctx context.Context, billID int64) ([]int64, error)
	CreateExchange(ctx context.Context, exchange domain.OldGoldExchange) (*domain.OldGoldExchange, error)
	UpdateExchange(ctx context.Context, exchange domain.OldGoldExchange) (*domain.OldGoldExchange, error)
	DeleteExchange(ctx context.Context, id int64) error
}

// PlannedRow is a draft row with its position in the draft.
type PlannedRow struct {
	Index int
	Row   domain.DraftExchange
}

// Plan is the diff between a bill's persisted exchange rows and a draft.
type Plan struct {
	Deletes []int64
	Updates []PlannedRow
	Inserts []PlannedRow
}

// BuildPlan partitions draft rows into updates and inserts and collects the
// persisted ids the draft no longer carries. A persisted id outside
// existingIDs, or repeated in the draft, is rejected.
func BuildPlan(existingIDs []int64, draft []domain.DraftExchange) (Plan, error) {
	var plan Plan
	current := make(map[int64]struct{}, len(draft))

	for i, row := range draft {
		if row.PersistedID == nil {
			plan.Inserts = append(plan.Inserts, PlannedRow{Index: i, Row: row})
			continue
		}
		id := *row.PersistedID
		if !slices.Contains(existingIDs, id) {
			return Plan{}, &RowError{Op: "validate", Index: i, ID: id, Err: ErrForeignRow}
		}
		if _, seen := current[id]; seen {
			return Plan{}, &RowError{Op: "validate", Index: i, ID: id, Err: ErrDuplicateRow}
		}
		current[id] = struct{}{}
		plan.Updates = append(plan.Updates, PlannedRow{Index: i, Row: row})
	}

	for _, id := range existingIDs {
		if _, kept := current[id]; !kept {
			plan.Deletes = append(plan.Deletes, id)
		}
	}
	return plan, nil
}

// Record converts a priced draft row into a stored exchange. The weight is
// rounded to its stored precision and the total recomputed from it.
func Record(billID *int64, row domain.DraftExchange) (domain.OldGoldExchange, error) {
	row.Weight = pricing.RoundWeight(row.Weight)
	total, err := pricing.MetalValue(row.Weight, row.RatePerGram)
	if err != nil {
		return domain.OldGoldExchange{}, err
	}
	particulars := strings.TrimSpace(row.Particulars)
	if particulars == "" {
		particulars = DefaultParticulars
	}
	hsn := strings.TrimSpace(row.HSNCode)
	if hsn == "" {
		hsn = domain.DefaultExchangeHSN
	}

	record := domain.OldGoldExchange{
		BillID:      billID,
		Weight:      row.Weight,
		Purity:      strings.TrimSpace(row.Purity),
		RatePerGram: row.RatePerGram,
		TotalValue:  total,
		Particulars: particulars,
		HSNCode:     hsn,
		Notes:       EncodeNotes(particulars, hsn),
	}
	if row.PersistedID != nil {
		record.ID = *row.PersistedID
	}
	return record, nil
}

// Validate checks every draft row can be recorded.
func Validate(draft []domain.DraftExchange) error {
	for i, row := range draft {
		if _, err := Record(nil, row); err != nil {
			return &RowError{Op: "validate", Index: i, Err: err}
		}
	}
	return nil
}

// Credit sums the recomputed values of the draft rows.
func Credit(draft []domain.DraftExchange) decimal.Decimal {
	total := decimal.Zero
	for _, row := range draft {
		if value, err := pricing.MetalValue(pricing.RoundWeight(row.Weight), row.RatePerGram); err == nil {
			total = total.Add(value)
		}
	}
	return total
}

type Result struct {
	Deleted  int
	Updated  int
	Inserted int
	Rows     []domain.OldGoldExchange
}

// Reconcile makes the bill's persisted exchange rows equal the draft:
// deletes first, then updates, then inserts. Rows comes back in draft order.
// Standalone exchanges are never read or written.
func Reconcile(ctx context.Context, w Writer, billID int64, draft []domain.DraftExchange) (Result, error) {
	existingIDs, err := w.ListExchangeIDsByBill(ctx, billID)
	if err != nil {
		return Result{}, fmt.Errorf("list exchanges for bill %d: %w", billID, err)
	}
	plan, err := BuildPlan(existingIDs, draft)
	if err != nil {
		return Result{}, err
	}
	return Apply(ctx, w, billID, plan, len(draft))
}

func Apply(ctx context.Context, w Writer, billID int64, plan Plan, size int) (Result, error) {
	result := Result{Rows: make([]domain.OldGoldExchange, size)}

	for _, id := range plan.Deletes {
		if err := w.DeleteExchange(ctx, id); err != nil {
			return result, &RowError{Op: "delete", Index: -1, ID: id, Err: err}
		}
		result.Deleted++
	}

	owner := billID
	for _, entry := range plan.Updates {
		record, err := Record(&owner, entry.Row)
		if err != nil {
			return result, &RowError{Op: "update", Index: entry.Index, ID: *entry.Row.PersistedID, Err: err}
		}
		saved, err := w.UpdateExchange(ctx, record)
		if err != nil {
			return result, &RowError{Op: "update", Index: entry.Index, ID: record.ID, Err: err}
		}
		result.Rows[entry.Index] = *saved
		result.Updated++
	}

	for _, entry := range plan.Inserts {
		record, err := Record(&owner, entry.Row)
		if err != nil {
			return result, &RowError{Op: "insert", Index: entry.Index, Err: err}
		}
		saved, err := w.CreateExchange(ctx, record)
		if err != nil {
			return result, &RowError{Op: "insert", Index: entry.Index, Err: err}
		}
		result.Rows[entry.Index] = *saved
		result.Inserted++
	}
	return result, nil
}
