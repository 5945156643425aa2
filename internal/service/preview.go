package service

import (
	"context"
	"errors"

	"github.com/amjewellery633-lang/AM-JEWEL-ERP/internal/billing"
	"github.com/amjewellery633-lang/AM-JEWEL-ERP/internal/domain"
	"github.com/amjewellery633-lang/AM-JEWEL-ERP/internal/exchange"
	"github.com/amjewellery633-lang/AM-JEWEL-ERP/internal/pricing"
	"github.com/amjewellery633-lang/AM-JEWEL-ERP/internal/store"
	"github.com/amjewellery633-lang/AM-JEWEL-ERP/internal/totals"
)

// PreviewTransaction prices a draft the way the billing form shows it,
// without writing anything.
func (s *Service) PreviewTransaction(ctx context.Context, req domain.TransactionDraft) (domain.TransactionPreview, error) {
	day := s.today()
	var existing *domain.Bill
	if req.BillID != nil {
		bill, err := s.repo.GetBill(ctx, *req.BillID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.TransactionPreview{}, invalid("bill_id", "bill not found")
			}
			return domain.TransactionPreview{}, err
		}
		day = store.DateOnly(bill.BillDate)
		existing = bill
	}

	draft, err := s.openDraft(ctx, s.resolver.NewSession(day), existing, req)
	if err != nil {
		return domain.TransactionPreview{}, err
	}

	return domain.TransactionPreview{
		Items:          draft.Items(),
		Exchanges:      draft.Exchanges(),
		LineSum:        draft.LineSum(),
		Total:          draft.Total(),
		TotalLocked:    draft.Locked(),
		ExchangeCredit: draft.ExchangeCredit(),
		NetPayable:     draft.NetPayable(),
	}, nil
}

// openDraft applies req to the saved state of existing, or to an empty draft
// for a new sale. Line totals and exchange values come out recomputed.
func (s *Service) openDraft(ctx context.Context, session *pricing.Session, existing *domain.Bill, req domain.TransactionDraft) (*billing.Draft, error) {
	draft := billing.New(session)
	if existing != nil {
		saved, err := s.LoadDraft(ctx, existing.ID)
		if err != nil {
			return nil, err
		}
		draft = billing.Load(session, saved)
	}
	if err := draft.Apply(ctx, req); err != nil {
		return nil, applyValidation(err)
	}
	return draft, nil
}

func applyValidation(err error) error {
	var applyErr *billing.ApplyError
	if !errors.As(err, &applyErr) {
		return err
	}
	switch {
	case errors.Is(err, totals.ErrNonPositiveTotal):
		return invalid("total", "locked total must be greater than zero")
	case errors.Is(err, exchange.ErrForeignRow), errors.Is(err, exchange.ErrDuplicateRow):
		return invalidAt("exchanges", applyErr.Index, applyErr.Err.Error())
	}
	var lineErr *pricing.LineError
	if errors.As(err, &lineErr) {
		return invalidAt(applyErr.Field+"."+lineErr.Field, applyErr.Index, lineErr.Err.Error())
	}
	return applyErr.Err
}
