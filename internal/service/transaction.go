package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/amjewellery633-lang/AM-JEWEL-ERP/internal/domain"
	"github.com/amjewellery633-lang/AM-JEWEL-ERP/internal/exchange"
	"github.com/amjewellery633-lang/AM-JEWEL-ERP/internal/pricing"
	"github.com/amjewellery633-lang/AM-JEWEL-ERP/internal/store"
	"github.com/amjewellery633-lang/AM-JEWEL-ERP/internal/xid"
)

var hundred = decimal.NewFromInt(100)

// assembly is a validated draft ready to be written.
type assembly struct {
	existing     *domain.Bill
	customerID   int64
	newCustomer  *domain.Customer
	items        []domain.BillItem
	rewriteItems bool
	exchanges    []domain.DraftExchange
	bill         domain.Bill
	booking      *domain.AdvanceBooking
	layaway      *domain.LayawayTransaction
}

// SaveTransaction validates the whole draft, then writes the bill, its
// items, exchange rows and any booking or layaway payment as one unit.
func (s *Service) SaveTransaction(ctx context.Context, actor domain.Actor, draft domain.TransactionDraft) (domain.TransactionResponse, error) {
	if strings.TrimSpace(actor.Username) == "" {
		return domain.TransactionResponse{}, invalid("actor", "staff identity is required")
	}

	plan, err := s.assemble(ctx, draft)
	if err != nil {
		return domain.TransactionResponse{}, err
	}

	var billID int64
	err = s.repo.WithinTx(ctx, func(repo store.Repository) error {
		id, err := s.write(ctx, repo, actor, plan)
		billID = id
		return err
	})
	if err != nil {
		var stageErr *StageError
		if errors.As(err, &stageErr) {
			log.Printf("[service] WARN: save transaction failed stage=%s index=%d: %v", stageErr.Stage, stageErr.Index, stageErr.Err)
		}
		var validation *ValidationError
		if errors.As(err, &validation) {
			return domain.TransactionResponse{}, validation
		}
		return domain.TransactionResponse{}, err
	}

	action := "transaction_create"
	if plan.existing != nil {
		action = "transaction_update"
	}
	s.logAudit(ctx, actor, action, "bill", fmt.Sprint(billID), fmt.Sprintf("status=%s,grand_total=%s,exchanges=%d", plan.bill.Status, plan.bill.GrandTotal, len(plan.exchanges)))

	return s.GetTransaction(ctx, billID)
}

func (s *Service) assemble(ctx context.Context, draft domain.TransactionDraft) (*assembly, error) {
	plan := &assembly{}

	if draft.BillID != nil {
		existing, err := s.repo.GetBill(ctx, *draft.BillID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, invalid("bill_id", "bill not found")
			}
			return nil, err
		}
		if existing.Status == domain.BillStatusCancelled {
			return nil, invalid("bill_id", "cancelled bills cannot be edited")
		}
		if draft.NewCustomer != nil || (draft.CustomerID != 0 && draft.CustomerID != existing.CustomerID) {
			return nil, invalid("customer_id", "customer cannot be changed on an existing bill")
		}
		plan.existing = existing
		plan.customerID = existing.CustomerID
	} else {
		switch {
		case draft.CustomerID != 0:
			if _, err := s.repo.GetCustomer(ctx, draft.CustomerID); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return nil, invalid("customer_id", "customer not found")
				}
				return nil, err
			}
			plan.customerID = draft.CustomerID
		case draft.NewCustomer != nil:
			customer, err := customerFromRequest(*draft.NewCustomer)
			if err != nil {
				return nil, err
			}
			plan.newCustomer = &customer
		default:
			return nil, invalid("customer", "select a customer or enter a new one")
		}
	}

	if len(draft.Items) == 0 {
		return nil, invalid("items", "at least one item is required")
	}

	day := s.today()
	if plan.existing != nil {
		day = store.DateOnly(plan.existing.BillDate)
	}
	session := s.resolver.NewSession(day)

	working, err := s.openDraft(ctx, session, plan.existing, draft)
	if err != nil {
		return nil, err
	}
	priced := working.Snapshot()
	for i, item := range priced.Items {
		if err := pricing.ValidateLine(item); err != nil {
			return nil, lineValidation(err, i)
		}
	}
	if err := exchange.Validate(priced.Exchanges); err != nil {
		return nil, exchangeValidation(err)
	}
	plan.exchanges = priced.Exchanges

	bill, err := s.priceBill(priced)
	if err != nil {
		return nil, err
	}

	plan.rewriteItems = true
	if plan.existing != nil {
		bill.ID = plan.existing.ID
		bill.BillNo = plan.existing.BillNo
		bill.BillDate = plan.existing.BillDate
		bill.CustomerID = plan.existing.CustomerID
		bill.CreatedBy = plan.existing.CreatedBy
		bill.Status = plan.existing.Status

		if plan.existing.Status == domain.BillStatusFinal {
			persisted, err := s.repo.ListBillItems(ctx, plan.existing.ID)
			if err != nil {
				return nil, err
			}
			if !sameItems(persisted, priced.Items) || !bill.Subtotal.Equal(plan.existing.Subtotal) ||
				!bill.Discount.Equal(plan.existing.Discount) || bill.SaleType != plan.existing.SaleType {
				return nil, invalid("items", "final bills accept exchange and booking changes only")
			}
			// Keep the stored tax split; the GST rate may have been reconfigured since.
			bill = *plan.existing
			bill.TotalLocked = priced.TotalLocked
			plan.rewriteItems = false
		}
	}
	if draft.Finalize {
		bill.Status = domain.BillStatusFinal
	} else if bill.Status == "" {
		bill.Status = domain.BillStatusDraft
	}
	plan.bill = bill
	plan.items = toBillItems(priced.Items)

	if err := s.planBooking(ctx, plan, draft.Booking); err != nil {
		return nil, err
	}
	if err := s.planLayaway(ctx, plan, draft.Layaway); err != nil {
		return nil, err
	}
	return plan, nil
}

// priceBill derives discount, tax split and grand total from the priced
// draft's pre-tax total.
func (s *Service) priceBill(draft domain.TransactionDraft) (domain.Bill, error) {
	saleType := strings.TrimSpace(draft.SaleType)
	if saleType == "" {
		saleType = domain.SaleTypeGST
	}
	if saleType != domain.SaleTypeGST && saleType != domain.SaleTypeNonGST {
		return domain.Bill{}, invalid("sale_type", "must be gst or non_gst")
	}

	subtotal := pricing.Round2(draft.Total)
	discount := pricing.Round2(draft.Discount)
	if discount.IsNegative() || discount.GreaterThan(subtotal) {
		return domain.Bill{}, invalid("discount", "must be between zero and the total")
	}
	taxable := subtotal.Sub(discount)

	bill := domain.Bill{
		Subtotal:    subtotal,
		Discount:    discount,
		CGST:        decimal.Zero,
		SGST:        decimal.Zero,
		IGST:        decimal.Zero,
		SaleType:    saleType,
		TotalLocked: draft.TotalLocked,
	}
	tax := decimal.Zero
	if saleType == domain.SaleTypeGST {
		tax = pricing.Round2(taxable.Mul(s.saleGST).Div(hundred))
		if draft.Interstate {
			bill.IGST = tax
		} else {
			bill.CGST = pricing.Round2(tax.Div(decimal.NewFromInt(2)))
			bill.SGST = tax.Sub(bill.CGST)
		}
	}
	bill.GrandTotal = taxable.Add(tax)
	return bill, nil
}

func (s *Service) planBooking(ctx context.Context, plan *assembly, terms *domain.BookingTerms) error {
	var current *domain.AdvanceBooking
	if plan.existing != nil {
		found, err := s.repo.GetAdvanceBookingByBill(ctx, plan.existing.ID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		current = found
	}

	if terms == nil {
		if current == nil || current.Status != domain.BookingStatusActive {
			return nil
		}
		if current.AdvanceAmount.GreaterThan(plan.bill.GrandTotal) {
			return invalid("booking.advance_amount", "advance exceeds the new bill total")
		}
		updated := *current
		updated.TotalAmount = plan.bill.GrandTotal
		plan.booking = &updated
		return nil
	}

	if current != nil && current.Status != domain.BookingStatusActive {
		return invalid("booking", "booking is "+current.Status+" and cannot be changed")
	}
	if !terms.AdvanceAmount.IsPositive() {
		return invalid("booking.advance_amount", "must be greater than zero")
	}
	if terms.AdvanceAmount.GreaterThan(plan.bill.GrandTotal) {
		return invalid("booking.advance_amount", "cannot exceed the bill total")
	}
	if strings.TrimSpace(terms.DeliveryDate) == "" {
		return invalid("booking.delivery_date", "is required")
	}
	delivery, err := time.Parse(dateLayout, strings.TrimSpace(terms.DeliveryDate))
	if err != nil {
		return invalid("booking.delivery_date", "must be YYYY-MM-DD")
	}

	booking := domain.AdvanceBooking{
		BookingDate:     s.today(),
		DeliveryDate:    delivery,
		AdvanceAmount:   terms.AdvanceAmount,
		TotalAmount:     plan.bill.GrandTotal,
		ItemDescription: strings.TrimSpace(terms.ItemDescription),
		CustomerNotes:   strings.TrimSpace(terms.CustomerNotes),
		Status:          domain.BookingStatusActive,
	}
	if current != nil {
		booking.ID = current.ID
		booking.BillID = current.BillID
		booking.BookingDate = current.BookingDate
	}
	plan.booking = &booking
	return nil
}

func (s *Service) planLayaway(ctx context.Context, plan *assembly, req *domain.LayawayPaymentRequest) error {
	if req == nil {
		return nil
	}
	paid := decimal.Zero
	if plan.existing != nil {
		history, err := s.repo.ListLayawayTransactions(ctx, plan.existing.ID)
		if err != nil {
			return err
		}
		paid = sumPayments(history)
	}
	txn, err := s.layawayPayment(*req, plan.bill.GrandTotal, paid)
	if err != nil {
		return err
	}
	plan.layaway = &txn
	return nil
}

func (s *Service) layawayPayment(req domain.LayawayPaymentRequest, grandTotal decimal.Decimal, paid decimal.Decimal) (domain.LayawayTransaction, error) {
	if !req.Amount.IsPositive() {
		return domain.LayawayTransaction{}, invalid("layaway.amount", "must be greater than zero")
	}
	if req.Amount.GreaterThan(clampZero(grandTotal.Sub(paid))) {
		return domain.LayawayTransaction{}, invalid("layaway.amount", "exceeds the remaining amount")
	}
	method := strings.TrimSpace(req.PaymentMethod)
	if method == "" {
		return domain.LayawayTransaction{}, invalid("layaway.payment_method", "is required")
	}
	date, err := parseDate(req.PaymentDate, s.today())
	if err != nil {
		return domain.LayawayTransaction{}, invalid("layaway.payment_date", "must be YYYY-MM-DD")
	}
	return domain.LayawayTransaction{
		PaymentDate:     date,
		Amount:          req.Amount,
		PaymentMethod:   method,
		ReferenceNumber: strings.TrimSpace(req.ReferenceNumber),
		Notes:           strings.TrimSpace(req.Notes),
	}, nil
}

// write runs the save stages against repo, which is bound to one unit of work.
func (s *Service) write(ctx context.Context, repo store.Repository, actor domain.Actor, plan *assembly) (int64, error) {
	customerID := plan.customerID
	if plan.newCustomer != nil {
		created, err := repo.CreateCustomer(ctx, *plan.newCustomer)
		if err != nil {
			return 0, &StageError{Stage: "customer", Index: -1, Err: err}
		}
		customerID = created.ID
	}

	bill := plan.bill
	var saved *domain.Bill
	if plan.existing == nil {
		day := s.today()
		seq, err := repo.NextBillSequence(ctx, SaleBillPrefix, day)
		if err != nil {
			return 0, &StageError{Stage: "bill", Index: -1, Err: err}
		}
		bill.BillNo = xid.BillNumber(SaleBillPrefix, day, seq)
		bill.BillDate = day
		bill.CustomerID = customerID
		bill.CreatedBy = actor.Username
		saved, err = repo.CreateBill(ctx, bill)
		if err != nil {
			return 0, &StageError{Stage: "bill", Index: -1, Err: err}
		}
	} else {
		var err error
		saved, err = repo.UpdateBill(ctx, bill)
		if err != nil {
			return 0, &StageError{Stage: "bill", Index: -1, Err: err}
		}
	}

	if plan.rewriteItems {
		if _, err := repo.ReplaceBillItems(ctx, saved.ID, plan.items); err != nil {
			return saved.ID, &StageError{Stage: "items", Index: -1, Err: err}
		}
	}

	if _, err := exchange.Reconcile(ctx, repo, saved.ID, plan.exchanges); err != nil {
		var rowErr *exchange.RowError
		if errors.As(err, &rowErr) {
			if errors.Is(err, exchange.ErrForeignRow) || errors.Is(err, exchange.ErrDuplicateRow) {
				return saved.ID, invalidAt("exchanges", rowErr.Index, rowErr.Err.Error())
			}
			return saved.ID, &StageError{Stage: "exchanges", Index: rowErr.Index, Err: err}
		}
		return saved.ID, &StageError{Stage: "exchanges", Index: -1, Err: err}
	}

	if plan.booking != nil {
		booking := *plan.booking
		var err error
		if booking.ID == 0 {
			booking.BillID = saved.ID
			_, err = repo.CreateAdvanceBooking(ctx, booking)
		} else {
			_, err = repo.UpdateAdvanceBooking(ctx, booking)
		}
		if err != nil {
			return saved.ID, &StageError{Stage: "booking", Index: -1, Err: err}
		}
	}

	if plan.layaway != nil {
		txn := *plan.layaway
		txn.BillID = saved.ID
		if _, err := repo.AppendLayawayTransaction(ctx, txn); err != nil {
			return saved.ID, &StageError{Stage: "layaway", Index: -1, Err: err}
		}
	}
	return saved.ID, nil
}

// GetTransaction loads a bill with everything attached to it.
func (s *Service) GetTransaction(ctx context.Context, billID int64) (domain.TransactionResponse, error) {
	bill, err := s.repo.GetBill(ctx, billID)
	if err != nil {
		return domain.TransactionResponse{}, err
	}
	items, err := s.repo.ListBillItems(ctx, billID)
	if err != nil {
		return domain.TransactionResponse{}, err
	}
	rows, err := s.repo.ListExchangesByBill(ctx, billID)
	if err != nil {
		return domain.TransactionResponse{}, err
	}

	credit := decimal.Zero
	for i := range rows {
		rows[i].Particulars, rows[i].HSNCode = exchange.Describe(rows[i])
		credit = credit.Add(rows[i].TotalValue)
	}

	resp := domain.TransactionResponse{
		Bill:           *bill,
		Items:          items,
		Exchanges:      rows,
		ExchangeCredit: credit,
		NetPayable:     clampZero(bill.GrandTotal.Sub(credit)),
	}

	booking, err := s.repo.GetAdvanceBookingByBill(ctx, billID)
	switch {
	case err == nil:
		due := booking.AmountDue()
		resp.Booking = booking
		resp.AmountDue = &due
	case !errors.Is(err, store.ErrNotFound):
		return domain.TransactionResponse{}, err
	}

	payments, err := s.repo.ListLayawayTransactions(ctx, billID)
	if err != nil {
		return domain.TransactionResponse{}, err
	}
	if len(payments) > 0 {
		remaining := clampZero(bill.GrandTotal.Sub(sumPayments(payments)))
		resp.Layaway = payments
		resp.Remaining = &remaining
	}
	return resp, nil
}

// LoadDraft rebuilds the working draft of a saved bill. The total comes
// back locked at its persisted value.
func (s *Service) LoadDraft(ctx context.Context, billID int64) (domain.TransactionDraft, error) {
	resp, err := s.GetTransaction(ctx, billID)
	if err != nil {
		return domain.TransactionDraft{}, err
	}
	id := resp.Bill.ID
	draft := domain.TransactionDraft{
		BillID:      &id,
		CustomerID:  resp.Bill.CustomerID,
		TotalLocked: true,
		Total:       resp.Bill.Subtotal,
		Discount:    resp.Bill.Discount,
		SaleType:    resp.Bill.SaleType,
		Interstate:  resp.Bill.IGST.IsPositive(),
		Items:       make([]domain.DraftItem, 0, len(resp.Items)),
		Exchanges:   make([]domain.DraftExchange, 0, len(resp.Exchanges)),
	}
	for _, item := range resp.Items {
		draft.Items = append(draft.Items, domain.DraftItem{
			ItemName:      item.ItemName,
			Weight:        item.Weight,
			MetalType:     item.MetalType,
			Purity:        item.Purity,
			RatePerGram:   item.RatePerGram,
			MakingCharges: item.MakingCharges,
			HSNCode:       item.HSNCode,
			Barcode:       item.Barcode,
			LineTotal:     item.LineTotal,
		})
	}
	for _, row := range resp.Exchanges {
		rowID := row.ID
		draft.Exchanges = append(draft.Exchanges, domain.DraftExchange{
			PersistedID: &rowID,
			Weight:      row.Weight,
			Purity:      row.Purity,
			RatePerGram: row.RatePerGram,
			TotalValue:  row.TotalValue,
			Particulars: row.Particulars,
			HSNCode:     row.HSNCode,
		})
	}
	if resp.Booking != nil {
		draft.Booking = &domain.BookingTerms{
			DeliveryDate:    resp.Booking.DeliveryDate.Format(dateLayout),
			AdvanceAmount:   resp.Booking.AdvanceAmount,
			ItemDescription: resp.Booking.ItemDescription,
			CustomerNotes:   resp.Booking.CustomerNotes,
		}
	}
	return draft, nil
}

// UpdateBookingStatus moves an active booking to fulfilled or cancelled.
// The manager PIN for cancellation is checked by the caller.
func (s *Service) UpdateBookingStatus(ctx context.Context, actor domain.Actor, billID int64, status string) (domain.AdvanceBooking, error) {
	status = strings.TrimSpace(status)
	if status != domain.BookingStatusFulfilled && status != domain.BookingStatusCancelled {
		return domain.AdvanceBooking{}, invalid("booking_status", "must be fulfilled or cancelled")
	}

	var updated *domain.AdvanceBooking
	err := s.repo.WithinTx(ctx, func(repo store.Repository) error {
		booking, err := repo.GetAdvanceBookingByBill(ctx, billID)
		if err != nil {
			return err
		}
		if booking.Status != domain.BookingStatusActive {
			return invalid("booking_status", "booking is already "+booking.Status)
		}
		booking.Status = status
		updated, err = repo.UpdateAdvanceBooking(ctx, *booking)
		return err
	})
	if err != nil {
		return domain.AdvanceBooking{}, err
	}
	s.logAudit(ctx, actor, "booking_"+status, "bill", fmt.Sprint(billID), "advance="+updated.AdvanceAmount.String())
	return *updated, nil
}

// AppendLayawayPayment records an installment against a bill. Payments
// beyond the remaining amount are rejected.
func (s *Service) AppendLayawayPayment(ctx context.Context, actor domain.Actor, billID int64, req domain.LayawayPaymentRequest) (domain.LayawayStatement, error) {
	var saved *domain.LayawayTransaction
	err := s.repo.WithinTx(ctx, func(repo store.Repository) error {
		bill, err := repo.GetBill(ctx, billID)
		if err != nil {
			return err
		}
		if bill.Status == domain.BillStatusCancelled {
			return invalid("bill_id", "bill is cancelled")
		}
		history, err := repo.ListLayawayTransactions(ctx, billID)
		if err != nil {
			return err
		}
		txn, err := s.layawayPayment(req, bill.GrandTotal, sumPayments(history))
		if err != nil {
			return err
		}
		txn.BillID = billID
		saved, err = repo.AppendLayawayTransaction(ctx, txn)
		return err
	})
	if err != nil {
		return domain.LayawayStatement{}, err
	}
	s.logAudit(ctx, actor, "layaway_payment", "bill", fmt.Sprint(billID), fmt.Sprintf("amount=%s,method=%s", saved.Amount, saved.PaymentMethod))
	return s.LayawayStatement(ctx, billID)
}

func (s *Service) LayawayStatement(ctx context.Context, billID int64) (domain.LayawayStatement, error) {
	bill, err := s.repo.GetBill(ctx, billID)
	if err != nil {
		return domain.LayawayStatement{}, err
	}
	payments, err := s.repo.ListLayawayTransactions(ctx, billID)
	if err != nil {
		return domain.LayawayStatement{}, err
	}
	paid := sumPayments(payments)
	return domain.LayawayStatement{
		BillID:          bill.ID,
		BillNo:          bill.BillNo,
		GrandTotal:      bill.GrandTotal,
		TotalPaid:       paid,
		RemainingAmount: clampZero(bill.GrandTotal.Sub(paid)),
		Transactions:    payments,
	}, nil
}

func sumPayments(payments []domain.LayawayTransaction) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total
}

func toBillItems(items []domain.DraftItem) []domain.BillItem {
	out := make([]domain.BillItem, len(items))
	for i, item := range items {
		out[i] = domain.BillItem{
			ItemName:      item.ItemName,
			Weight:        item.Weight,
			MetalType:     item.MetalType,
			Purity:        strings.TrimSpace(item.Purity),
			RatePerGram:   item.RatePerGram,
			MakingCharges: item.MakingCharges,
			HSNCode:       item.HSNCode,
			Barcode:       strings.TrimSpace(item.Barcode),
			LineTotal:     item.LineTotal,
		}
	}
	return out
}

func sameItems(persisted []domain.BillItem, draft []domain.DraftItem) bool {
	if len(persisted) != len(draft) {
		return false
	}
	for i, item := range persisted {
		d := draft[i]
		if item.ItemName != d.ItemName || item.MetalType != d.MetalType ||
			!item.Weight.Equal(d.Weight) || !item.RatePerGram.Equal(d.RatePerGram) ||
			!item.MakingCharges.Equal(d.MakingCharges) || !item.LineTotal.Equal(d.LineTotal) {
			return false
		}
	}
	return true
}

func lineValidation(err error, index int) error {
	var lineErr *pricing.LineError
	if errors.As(err, &lineErr) {
		return invalidAt("items."+lineErr.Field, index, lineErr.Err.Error())
	}
	return invalidAt("items", index, err.Error())
}

func exchangeValidation(err error) error {
	var rowErr *exchange.RowError
	if !errors.As(err, &rowErr) {
		return invalid("exchanges", err.Error())
	}
	var lineErr *pricing.LineError
	if errors.As(rowErr.Err, &lineErr) {
		return invalidAt("exchanges."+lineErr.Field, rowErr.Index, lineErr.Err.Error())
	}
	return invalidAt("exchanges", rowErr.Index, rowErr.Err.Error())
}
