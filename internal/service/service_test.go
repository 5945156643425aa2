package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/amjewellery633-lang/AM-JEWEL-ERP/internal/domain"
	"github.com/amjewellery633-lang/AM-JEWEL-ERP/internal/pricing"
	"github.com/amjewellery633-lang/AM-JEWEL-ERP/internal/store"
	"github.com/amjewellery633-lang/AM-JEWEL-ERP/internal/store/memory"
)

var (
	clock = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	staff = domain.Actor{Username: "staff", Role: "staff"}
	admin = domain.Actor{Username: "admin", Role: "admin"}
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestService(t *testing.T, repo store.Repository) *Service {
	t.Helper()
	return New(repo, pricing.NewResolver(repo, nil, 0), Options{
		SaleGSTPercent:     decimal.NewFromInt(3),
		PurchaseGSTPercent: decimal.NewFromInt(18),
		Now:                func() time.Time { return clock },
	})
}

func seedShop(t *testing.T) (*memory.Store, *domain.Customer) {
	t.Helper()
	ctx := context.Background()
	repo := memory.New()
	customer, err := repo.CreateCustomer(ctx, domain.Customer{Name: "Lakshmi", Phone: "9876543210"})
	if err != nil {
		t.Fatalf("create customer failed: %v", err)
	}
	day := store.DateOnly(clock)
	for metal, rate := range map[domain.MetalType]string{
		domain.MetalGold:    "7200",
		domain.MetalGold916: "6600",
	} {
		if err := repo.UpsertMetalRate(ctx, domain.MetalRate{MetalType: metal, EffectiveDate: day, RatePerGram: dec(rate)}); err != nil {
			t.Fatalf("seed rate failed: %v", err)
		}
	}
	return repo, customer
}

func twoItemDraft(customerID int64) domain.TransactionDraft {
	return domain.TransactionDraft{
		CustomerID: customerID,
		SaleType:   domain.SaleTypeNonGST,
		Items: []domain.DraftItem{
			{ItemName: "Bangle", Weight: dec("3.5"), MetalType: domain.MetalGold916, RatePerGram: dec("6000"), MakingCharges: dec("200")},
			{ItemName: "Stud", Weight: dec("1.0"), MetalType: domain.MetalGold916, RatePerGram: dec("6000")},
		},
	}
}

func requireValidation(t *testing.T, err error, field string) {
	t.Helper()
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected validation error on %s, got %v", field, err)
	}
	if validation.Field != field {
		t.Fatalf("expected validation error on %s, got %s", field, validation.Field)
	}
	if !errors.Is(err, store.ErrInvalidTransaction) {
		t.Fatalf("validation error should unwrap to ErrInvalidTransaction")
	}
}

func TestSaveTransactionAutoTotalThenLockedEdit(t *testing.T) {
	repo, customer := seedShop(t)
	svc := newTestService(t, repo)
	ctx := context.Background()

	resp, err := svc.SaveTransaction(ctx, staff, twoItemDraft(customer.ID))
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !resp.Bill.Subtotal.Equal(dec("27200")) || !resp.Bill.GrandTotal.Equal(dec("27200")) {
		t.Fatalf("expected 27200, got subtotal=%s grand=%s", resp.Bill.Subtotal, resp.Bill.GrandTotal)
	}
	if resp.Bill.TotalLocked {
		t.Fatalf("auto total should not be locked")
	}
	if resp.Bill.BillNo != "AM-SALE-20240315-0001" {
		t.Fatalf("unexpected bill number %q", resp.Bill.BillNo)
	}
	if resp.Bill.CreatedBy != "staff" {
		t.Fatalf("expected created_by staff, got %q", resp.Bill.CreatedBy)
	}
	if len(resp.Items) != 2 || !resp.Items[0].LineTotal.Equal(dec("21200")) || resp.Items[0].HSNCode != domain.DefaultItemHSN {
		t.Fatalf("unexpected items %+v", resp.Items)
	}

	draft, err := svc.LoadDraft(ctx, resp.Bill.ID)
	if err != nil {
		t.Fatalf("load draft failed: %v", err)
	}
	if !draft.TotalLocked || !draft.Total.Equal(dec("27200")) {
		t.Fatalf("loaded draft should be locked at 27200, got %v %s", draft.TotalLocked, draft.Total)
	}

	draft.Items = append(draft.Items, domain.DraftItem{ItemName: "Chain", Weight: dec("2"), MetalType: domain.MetalGold916, RatePerGram: dec("6000")})
	draft.Total = dec("25000")
	edited, err := svc.SaveTransaction(ctx, staff, draft)
	if err != nil {
		t.Fatalf("edit failed: %v", err)
	}
	if !edited.Bill.Subtotal.Equal(dec("25000")) || !edited.Bill.TotalLocked {
		t.Fatalf("expected locked 25000, got %s locked=%v", edited.Bill.Subtotal, edited.Bill.TotalLocked)
	}
	if len(edited.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(edited.Items))
	}
	if edited.Bill.BillNo != resp.Bill.BillNo {
		t.Fatalf("bill number changed on edit")
	}

	draft.TotalLocked = false
	unlocked, err := svc.SaveTransaction(ctx, staff, draft)
	if err != nil {
		t.Fatalf("unlock save failed: %v", err)
	}
	if !unlocked.Bill.Subtotal.Equal(dec("39200")) || unlocked.Bill.TotalLocked {
		t.Fatalf("unlock should recompute to 39200, got %s", unlocked.Bill.Subtotal)
	}
}

func TestSaveTransactionRecomputesSentLineTotal(t *testing.T) {
	repo, customer := seedShop(t)
	svc := newTestService(t, repo)
	ctx := context.Background()

	draft := twoItemDraft(customer.ID)
	draft.Items[0].LineTotal = dec("1")
	draft.Items[1].LineTotal = dec("99999")

	preview, err := svc.PreviewTransaction(ctx, draft)
	if err != nil {
		t.Fatalf("preview failed: %v", err)
	}
	resp, err := svc.SaveTransaction(ctx, staff, draft)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !resp.Items[0].LineTotal.Equal(dec("21200")) || !resp.Items[1].LineTotal.Equal(dec("6000")) {
		t.Fatalf("line totals must be recomputed, got %s and %s", resp.Items[0].LineTotal, resp.Items[1].LineTotal)
	}
	if !resp.Bill.Subtotal.Equal(dec("27200")) || !resp.Bill.Subtotal.Equal(preview.Total) {
		t.Fatalf("saved subtotal %s should match preview %s", resp.Bill.Subtotal, preview.Total)
	}

	loaded, err := svc.LoadDraft(ctx, resp.Bill.ID)
	if err != nil {
		t.Fatalf("load draft failed: %v", err)
	}
	loaded.Items[0].LineTotal = dec("5")
	edited, err := svc.SaveTransaction(ctx, staff, loaded)
	if err != nil {
		t.Fatalf("edit failed: %v", err)
	}
	if !edited.Items[0].LineTotal.Equal(dec("21200")) {
		t.Fatalf("edit kept a sent line total %s", edited.Items[0].LineTotal)
	}
}

func TestSaveTransactionRoundsWeights(t *testing.T) {
	repo, customer := seedShop(t)
	svc := newTestService(t, repo)
	ctx := context.Background()

	draft := twoItemDraft(customer.ID)
	draft.Items = draft.Items[:1]
	draft.Items[0].Weight = dec("1.23456")
	draft.Items[0].MakingCharges = decimal.Zero
	draft.Exchanges = []domain.DraftExchange{{Weight: dec("0.0996"), RatePerGram: dec("6000")}}

	resp, err := svc.SaveTransaction(ctx, staff, draft)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !resp.Items[0].Weight.Equal(dec("1.235")) || !resp.Items[0].LineTotal.Equal(dec("7410")) {
		t.Fatalf("expected 1.235 g at 7410, got %s at %s", resp.Items[0].Weight, resp.Items[0].LineTotal)
	}
	if !resp.Exchanges[0].Weight.Equal(dec("0.1")) || !resp.Exchanges[0].TotalValue.Equal(dec("600")) {
		t.Fatalf("expected exchange 0.1 g at 600, got %+v", resp.Exchanges[0])
	}

	loaded, err := svc.LoadDraft(ctx, resp.Bill.ID)
	if err != nil {
		t.Fatalf("load draft failed: %v", err)
	}
	if _, err := svc.SaveTransaction(ctx, staff, loaded); err != nil {
		t.Fatalf("resave of stored weights failed: %v", err)
	}
}

func TestSaveTransactionSplitsGST(t *testing.T) {
	repo, customer := seedShop(t)
	svc := newTestService(t, repo)
	ctx := context.Background()

	draft := twoItemDraft(customer.ID)
	draft.SaleType = ""
	resp, err := svc.SaveTransaction(ctx, staff, draft)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if resp.Bill.SaleType != domain.SaleTypeGST {
		t.Fatalf("expected gst default, got %q", resp.Bill.SaleType)
	}
	if !resp.Bill.CGST.Equal(dec("408")) || !resp.Bill.SGST.Equal(dec("408")) || !resp.Bill.IGST.IsZero() {
		t.Fatalf("unexpected intra-state split %s/%s/%s", resp.Bill.CGST, resp.Bill.SGST, resp.Bill.IGST)
	}
	if !resp.Bill.GrandTotal.Equal(dec("28016")) {
		t.Fatalf("expected 28016, got %s", resp.Bill.GrandTotal)
	}

	draft.Interstate = true
	draft.Discount = dec("200")
	inter, err := svc.SaveTransaction(ctx, staff, draft)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !inter.Bill.IGST.Equal(dec("810")) || !inter.Bill.CGST.IsZero() || !inter.Bill.GrandTotal.Equal(dec("27810")) {
		t.Fatalf("unexpected inter-state bill %+v", inter.Bill)
	}
}

func TestSaveTransactionResolvesPublishedRate(t *testing.T) {
	repo, customer := seedShop(t)
	svc := newTestService(t, repo)
	ctx := context.Background()

	yesterday := store.DateOnly(clock).AddDate(0, 0, -1)
	if err := repo.UpsertMetalRate(ctx, domain.MetalRate{MetalType: domain.MetalSilver92, EffectiveDate: yesterday, RatePerGram: dec("88")}); err != nil {
		t.Fatalf("seed rate failed: %v", err)
	}

	draft := domain.TransactionDraft{
		CustomerID: customer.ID,
		SaleType:   domain.SaleTypeNonGST,
		Items: []domain.DraftItem{
			{ItemName: "Ring", Weight: dec("2"), MetalType: domain.MetalGold916},
			{ItemName: "Anklet", Weight: dec("10"), MetalType: domain.MetalSilver92, MakingCharges: dec("150")},
		},
	}
	resp, err := svc.SaveTransaction(ctx, staff, draft)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !resp.Items[0].RatePerGram.Equal(dec("6600")) || !resp.Items[0].LineTotal.Equal(dec("13200")) {
		t.Fatalf("expected today's rate on ring, got %+v", resp.Items[0])
	}
	if !resp.Items[1].RatePerGram.Equal(dec("88")) || !resp.Items[1].LineTotal.Equal(dec("1030")) {
		t.Fatalf("expected previous rate on anklet, got %+v", resp.Items[1])
	}

	draft.Items = []domain.DraftItem{{ItemName: "Toe ring", Weight: dec("5"), MetalType: domain.MetalSilver70}}
	_, err = svc.SaveTransaction(ctx, staff, draft)
	requireValidation(t, err, "items.rate")
}

func TestSaveTransactionValidationGate(t *testing.T) {
	repo, customer := seedShop(t)
	svc := newTestService(t, repo)
	ctx := context.Background()

	cases := []struct {
		name  string
		actor domain.Actor
		edit  func(*domain.TransactionDraft)
		field string
	}{
		{"missing actor", domain.Actor{}, func(*domain.TransactionDraft) {}, "actor"},
		{"no customer", staff, func(d *domain.TransactionDraft) { d.CustomerID = 0 }, "customer"},
		{"unknown customer", staff, func(d *domain.TransactionDraft) { d.CustomerID = 999 }, "customer_id"},
		{"new customer without phone", staff, func(d *domain.TransactionDraft) {
			d.CustomerID = 0
			d.NewCustomer = &domain.CustomerCreateRequest{Name: "Meena"}
		}, "customer.phone"},
		{"no items", staff, func(d *domain.TransactionDraft) { d.Items = nil }, "items"},
		{"zero weight", staff, func(d *domain.TransactionDraft) { d.Items[1].Weight = decimal.Zero }, "items.weight"},
		{"blank name", staff, func(d *domain.TransactionDraft) { d.Items[0].ItemName = " " }, "items.item_name"},
		{"negative making", staff, func(d *domain.TransactionDraft) { d.Items[0].MakingCharges = dec("-1") }, "items.making_charges"},
		{"locked zero total", staff, func(d *domain.TransactionDraft) { d.TotalLocked = true }, "total"},
		{"discount above total", staff, func(d *domain.TransactionDraft) { d.Discount = dec("30000") }, "discount"},
		{"bad sale type", staff, func(d *domain.TransactionDraft) { d.SaleType = "export" }, "sale_type"},
		{"advance above total", staff, func(d *domain.TransactionDraft) {
			d.Booking = &domain.BookingTerms{DeliveryDate: "2024-04-01", AdvanceAmount: dec("30000")}
		}, "booking.advance_amount"},
		{"booking without delivery", staff, func(d *domain.TransactionDraft) {
			d.Booking = &domain.BookingTerms{AdvanceAmount: dec("5000")}
		}, "booking.delivery_date"},
		{"layaway above total", staff, func(d *domain.TransactionDraft) {
			d.Layaway = &domain.LayawayPaymentRequest{Amount: dec("27201"), PaymentMethod: "cash"}
		}, "layaway.amount"},
		{"exchange without weight", staff, func(d *domain.TransactionDraft) {
			d.Exchanges = []domain.DraftExchange{{RatePerGram: dec("6000")}}
		}, "exchanges.weight"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			draft := twoItemDraft(customer.ID)
			tc.edit(&draft)
			_, err := svc.SaveTransaction(ctx, tc.actor, draft)
			requireValidation(t, err, tc.field)
		})
	}

	seq, err := repo.NextBillSequence(ctx, SaleBillPrefix, clock)
	if err != nil {
		t.Fatalf("sequence failed: %v", err)
	}
	if seq != 1 {
		t.Fatalf("rejected drafts must not write, sequence=%d", seq)
	}
}

func TestSaveTransactionReconcilesExchanges(t *testing.T) {
	repo, customer := seedShop(t)
	svc := newTestService(t, repo)
	ctx := context.Background()

	standalone, err := svc.CreateExchange(ctx, staff, domain.ExchangeEntry{Weight: dec("1"), RatePerGram: dec("6000")})
	if err != nil {
		t.Fatalf("standalone create failed: %v", err)
	}

	draft := twoItemDraft(customer.ID)
	draft.Exchanges = []domain.DraftExchange{
		{DraftKey: "a", Weight: dec("1.5"), Purity: "22K", RatePerGram: dec("6332"), Particulars: "Chain repair"},
		{DraftKey: "b", Weight: dec("2")},
	}
	resp, err := svc.SaveTransaction(ctx, staff, draft)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if len(resp.Exchanges) != 2 {
		t.Fatalf("expected 2 exchanges, got %d", len(resp.Exchanges))
	}
	if !resp.ExchangeCredit.Equal(dec("23898")) {
		t.Fatalf("expected credit 9498+14400, got %s", resp.ExchangeCredit)
	}
	if !resp.NetPayable.Equal(dec("3302")) {
		t.Fatalf("expected net payable 3302, got %s", resp.NetPayable)
	}
	firstIDs, _ := repo.ListExchangeIDsByBill(ctx, resp.Bill.ID)

	loaded, err := svc.LoadDraft(ctx, resp.Bill.ID)
	if err != nil {
		t.Fatalf("load draft failed: %v", err)
	}
	if _, err := svc.SaveTransaction(ctx, staff, loaded); err != nil {
		t.Fatalf("resave failed: %v", err)
	}
	againIDs, _ := repo.ListExchangeIDsByBill(ctx, resp.Bill.ID)
	if len(againIDs) != 2 || againIDs[0] != firstIDs[0] || againIDs[1] != firstIDs[1] {
		t.Fatalf("unchanged draft should keep rows, before=%v after=%v", firstIDs, againIDs)
	}

	loaded.Exchanges = append(loaded.Exchanges[:1], domain.DraftExchange{DraftKey: "c", Weight: dec("0.5"), RatePerGram: dec("7000")})
	edited, err := svc.SaveTransaction(ctx, staff, loaded)
	if err != nil {
		t.Fatalf("edit failed: %v", err)
	}
	if len(edited.Exchanges) != 2 || edited.Exchanges[0].ID != firstIDs[0] {
		t.Fatalf("unexpected exchanges after edit %+v", edited.Exchanges)
	}
	if _, err := repo.GetExchange(ctx, firstIDs[1]); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("dropped row should be deleted, got %v", err)
	}
	if _, err := repo.GetExchange(ctx, standalone.ID); err != nil {
		t.Fatalf("standalone exchange must survive: %v", err)
	}

	foreign := standalone.ID
	loaded.Exchanges = append(loaded.Exchanges, domain.DraftExchange{PersistedID: &foreign, Weight: dec("1"), RatePerGram: dec("6000")})
	_, err = svc.SaveTransaction(ctx, staff, loaded)
	requireValidation(t, err, "exchanges")
}

type failingBookings struct {
	store.Repository
}

func (f failingBookings) WithinTx(ctx context.Context, fn func(store.Repository) error) error {
	return f.Repository.WithinTx(ctx, func(repo store.Repository) error {
		return fn(failingBookings{Repository: repo})
	})
}

func (failingBookings) CreateAdvanceBooking(context.Context, domain.AdvanceBooking) (*domain.AdvanceBooking, error) {
	return nil, errors.New("disk full")
}

func TestSaveTransactionRollsBackOnStageFailure(t *testing.T) {
	repo, _ := seedShop(t)
	svc := newTestService(t, failingBookings{Repository: repo})
	ctx := context.Background()

	draft := twoItemDraft(0)
	draft.NewCustomer = &domain.CustomerCreateRequest{Name: "Meena", Phone: "9000000001"}
	draft.Exchanges = []domain.DraftExchange{{Weight: dec("1"), RatePerGram: dec("6000")}}
	draft.Booking = &domain.BookingTerms{DeliveryDate: "2024-04-01", AdvanceAmount: dec("5000")}

	_, err := svc.SaveTransaction(ctx, staff, draft)
	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != "booking" {
		t.Fatalf("expected booking stage error, got %v", err)
	}

	customers, _ := repo.FindCustomersByPhone(ctx, "9000000001")
	if len(customers) != 0 {
		t.Fatalf("customer insert should be rolled back")
	}
	exchanges, _ := repo.ListExchanges(ctx, nil, nil)
	if len(exchanges) != 0 {
		t.Fatalf("exchange inserts should be rolled back, got %d", len(exchanges))
	}
	seq, _ := repo.NextBillSequence(ctx, SaleBillPrefix, clock)
	if seq != 1 {
		t.Fatalf("bill number should be rolled back, sequence=%d", seq)
	}
}

func TestSaveTransactionEditRules(t *testing.T) {
	repo, customer := seedShop(t)
	svc := newTestService(t, repo)
	ctx := context.Background()

	draft := twoItemDraft(customer.ID)
	draft.Finalize = true
	resp, err := svc.SaveTransaction(ctx, staff, draft)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if resp.Bill.Status != domain.BillStatusFinal {
		t.Fatalf("expected final, got %s", resp.Bill.Status)
	}

	other, err := repo.CreateCustomer(ctx, domain.Customer{Name: "Ravi", Phone: "9000000002"})
	if err != nil {
		t.Fatalf("create customer failed: %v", err)
	}
	loaded, _ := svc.LoadDraft(ctx, resp.Bill.ID)
	loaded.CustomerID = other.ID
	_, err = svc.SaveTransaction(ctx, staff, loaded)
	requireValidation(t, err, "customer_id")

	loaded, _ = svc.LoadDraft(ctx, resp.Bill.ID)
	loaded.Items[0].MakingCharges = dec("500")
	loaded.Items[0].LineTotal = decimal.Zero
	_, err = svc.SaveTransaction(ctx, staff, loaded)
	requireValidation(t, err, "items")

	loaded, _ = svc.LoadDraft(ctx, resp.Bill.ID)
	loaded.Exchanges = []domain.DraftExchange{{Weight: dec("1"), RatePerGram: dec("6000")}}
	edited, err := svc.SaveTransaction(ctx, staff, loaded)
	if err != nil {
		t.Fatalf("exchange-only edit of a final bill failed: %v", err)
	}
	if edited.Bill.Status != domain.BillStatusFinal || len(edited.Exchanges) != 1 {
		t.Fatalf("unexpected final bill after edit %+v", edited)
	}
}

func TestBookingAmountDueAndStatus(t *testing.T) {
	repo, customer := seedShop(t)
	svc := newTestService(t, repo)
	ctx := context.Background()

	draft := twoItemDraft(customer.ID)
	draft.Booking = &domain.BookingTerms{DeliveryDate: "2024-04-01", AdvanceAmount: dec("5000"), ItemDescription: "Bridal set"}
	resp, err := svc.SaveTransaction(ctx, staff, draft)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if resp.Booking == nil || resp.AmountDue == nil || !resp.AmountDue.Equal(dec("22200")) {
		t.Fatalf("expected amount due 22200, got %+v", resp.AmountDue)
	}
	if resp.Booking.Status != domain.BookingStatusActive || !resp.Booking.TotalAmount.Equal(dec("27200")) {
		t.Fatalf("unexpected booking %+v", resp.Booking)
	}

	// Dropping an item re-totals the booking.
	loaded, _ := svc.LoadDraft(ctx, resp.Bill.ID)
	loaded.Items = loaded.Items[:1]
	loaded.TotalLocked = false
	loaded.Booking = nil
	edited, err := svc.SaveTransaction(ctx, staff, loaded)
	if err != nil {
		t.Fatalf("edit failed: %v", err)
	}
	if !edited.Booking.TotalAmount.Equal(dec("21200")) || !edited.AmountDue.Equal(dec("16200")) {
		t.Fatalf("booking should follow the bill total, got %+v", edited.Booking)
	}

	if _, err := svc.UpdateBookingStatus(ctx, staff, resp.Bill.ID, "reopened"); err == nil {
		t.Fatalf("unknown status should be rejected")
	}
	booking, err := svc.UpdateBookingStatus(ctx, staff, resp.Bill.ID, domain.BookingStatusCancelled)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if booking.Status != domain.BookingStatusCancelled {
		t.Fatalf("expected cancelled, got %s", booking.Status)
	}
	_, err = svc.UpdateBookingStatus(ctx, staff, resp.Bill.ID, domain.BookingStatusFulfilled)
	requireValidation(t, err, "booking_status")
}

func TestLayawayPayments(t *testing.T) {
	repo, customer := seedShop(t)
	svc := newTestService(t, repo)
	ctx := context.Background()

	draft := twoItemDraft(customer.ID)
	draft.Layaway = &domain.LayawayPaymentRequest{Amount: dec("7200"), PaymentMethod: "cash"}
	resp, err := svc.SaveTransaction(ctx, staff, draft)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if resp.Remaining == nil || !resp.Remaining.Equal(dec("20000")) {
		t.Fatalf("expected remaining 20000, got %v", resp.Remaining)
	}

	statement, err := svc.AppendLayawayPayment(ctx, staff, resp.Bill.ID, domain.LayawayPaymentRequest{Amount: dec("15000"), PaymentMethod: "upi", ReferenceNumber: "UPI-1"})
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if !statement.TotalPaid.Equal(dec("22200")) || !statement.RemainingAmount.Equal(dec("5000")) || len(statement.Transactions) != 2 {
		t.Fatalf("unexpected statement %+v", statement)
	}

	_, err = svc.AppendLayawayPayment(ctx, staff, resp.Bill.ID, domain.LayawayPaymentRequest{Amount: dec("5000.01"), PaymentMethod: "cash"})
	requireValidation(t, err, "layaway.amount")

	_, err = svc.AppendLayawayPayment(ctx, staff, 404, domain.LayawayPaymentRequest{Amount: dec("1"), PaymentMethod: "cash"})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStandaloneExchangeLedger(t *testing.T) {
	repo, customer := seedShop(t)
	svc := newTestService(t, repo)
	ctx := context.Background()

	created, err := svc.CreateExchange(ctx, staff, domain.ExchangeEntry{Weight: dec("1.5"), Purity: "22K", Particulars: "Chain repair"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !created.RatePerGram.Equal(dec("7200")) || !created.TotalValue.Equal(dec("10800")) {
		t.Fatalf("blank rate should use the gold rate, got %+v", created)
	}
	if created.Notes != "Description: Chain repair | HSN Code: 7113" || created.BillID != nil {
		t.Fatalf("unexpected stored row %+v", created)
	}

	updated, err := svc.UpdateExchange(ctx, staff, created.ID, domain.ExchangeEntry{Weight: dec("2"), RatePerGram: dec("6000")})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if !updated.TotalValue.Equal(dec("12000")) || updated.Particulars != "Old Gold Exchange" {
		t.Fatalf("unexpected update %+v", updated)
	}

	draft := twoItemDraft(customer.ID)
	draft.Exchanges = []domain.DraftExchange{{Weight: dec("1"), RatePerGram: dec("6000"), Particulars: "Broken bangle"}}
	if _, err := svc.SaveTransaction(ctx, staff, draft); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	all, err := svc.ListExchanges(ctx, domain.ExchangeListRequest{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all.Exchanges) != 2 || !all.TotalWeight.Equal(dec("3")) || !all.TotalValue.Equal(dec("18000")) {
		t.Fatalf("unexpected listing %+v", all)
	}

	byCustomer, err := svc.ListExchanges(ctx, domain.ExchangeListRequest{Search: "lakSHMI"})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(byCustomer.Exchanges) != 1 || byCustomer.Exchanges[0].Particulars != "Broken bangle" {
		t.Fatalf("unexpected search result %+v", byCustomer.Exchanges)
	}

	_, err = svc.ListExchanges(ctx, domain.ExchangeListRequest{StartDate: "2024-03-20", EndDate: "2024-03-10"})
	requireValidation(t, err, "end_date")

	if err := svc.DeleteExchange(ctx, staff, created.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := svc.DeleteExchange(ctx, staff, created.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestCreatePurchaseBill(t *testing.T) {
	repo, customer := seedShop(t)
	svc := newTestService(t, repo)
	ctx := context.Background()

	bill, err := svc.CreatePurchaseBill(ctx, staff, domain.PurchaseBillRequest{
		VendorID:    customer.ID,
		PaymentMode: "cash",
		Items: []domain.PurchaseItem{
			{Weight: dec("10"), Purity: "22K", RatePerGram: dec("6000")},
		},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if bill.BillNo != "AM-PURCHASE-20240315-0001" || bill.StaffID != "staff" {
		t.Fatalf("unexpected header %+v", bill)
	}
	if !bill.TotalAmount.Equal(dec("60000")) || !bill.CGST.Equal(dec("5400")) || !bill.SGST.Equal(dec("5400")) || !bill.GrandTotal.Equal(dec("70800")) {
		t.Fatalf("unexpected amounts %+v", bill)
	}
	if bill.Items[0].HSNCode != domain.DefaultExchangeHSN {
		t.Fatalf("expected default hsn, got %q", bill.Items[0].HSNCode)
	}

	missing := int64(404)
	_, err = svc.CreatePurchaseBill(ctx, staff, domain.PurchaseBillRequest{
		VendorID: customer.ID, PaymentMode: "cash", SaleBillID: &missing,
		Items: []domain.PurchaseItem{{Weight: dec("1"), RatePerGram: dec("6000")}},
	})
	requireValidation(t, err, "sale_bill_id")

	_, err = svc.CreatePurchaseBill(ctx, staff, domain.PurchaseBillRequest{
		VendorID: customer.ID, PaymentMode: "cash",
		Items: []domain.PurchaseItem{{Weight: dec("1")}},
	})
	requireValidation(t, err, "items.rate")

	rounded, err := svc.CreatePurchaseBill(ctx, staff, domain.PurchaseBillRequest{
		VendorID: customer.ID, PaymentMode: "cash",
		Items: []domain.PurchaseItem{{Weight: dec("2.0005"), RatePerGram: dec("6000")}},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !rounded.Items[0].Weight.Equal(dec("2.001")) || !rounded.Items[0].Amount.Equal(dec("12006")) {
		t.Fatalf("expected 2.001 g at 12006, got %+v", rounded.Items[0])
	}
}

func TestRatesAndAdminOperations(t *testing.T) {
	repo, _ := seedShop(t)
	svc := newTestService(t, repo)
	ctx := context.Background()

	if _, err := svc.PublishRate(ctx, staff, domain.MetalRateRequest{MetalType: domain.MetalGold, RatePerGram: dec("7300")}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("staff must not publish rates, got %v", err)
	}
	if _, err := svc.PublishRate(ctx, admin, domain.MetalRateRequest{MetalType: domain.MetalGold, RatePerGram: dec("7300")}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	board, err := svc.RateBoard(ctx, "")
	if err != nil {
		t.Fatalf("rate board failed: %v", err)
	}
	if len(board) != len(domain.MetalTypes) {
		t.Fatalf("expected every metal on the board, got %d", len(board))
	}
	if !board[0].Rate.Equal(dec("7300")) || board[0].Source != pricing.SourceToday {
		t.Fatalf("unexpected gold entry %+v", board[0])
	}
	for _, entry := range board {
		if entry.Metal == domain.MetalSelamSilver && entry.Resolved() {
			t.Fatalf("selam silver has no rate and should be unresolved")
		}
	}

	next, err := svc.ResolveRate(ctx, domain.MetalGold916, "2024-03-16")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if next.Source != pricing.SourcePrevious || !next.Rate.Equal(dec("6600")) {
		t.Fatalf("expected fallback to the 15th, got %+v", next)
	}

	if _, err := svc.CreateInventoryItem(ctx, staff, domain.InventoryItem{Barcode: "X", ItemName: "Y"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("staff must not create inventory, got %v", err)
	}
	if _, err := svc.CreateInventoryItem(ctx, admin, domain.InventoryItem{Barcode: "AMJ-RING-002", ItemName: "Ring", MetalType: domain.MetalGold916}); err != nil {
		t.Fatalf("inventory create failed: %v", err)
	}
	item, found, err := svc.LookupBarcode(ctx, "AMJ-RING-002")
	if err != nil || !found || item.HSNCode != domain.DefaultItemHSN {
		t.Fatalf("unexpected lookup %+v %v %v", item, found, err)
	}
	if _, found, err := svc.LookupBarcode(ctx, "NOPE"); err != nil || found {
		t.Fatalf("miss should be found=false without error")
	}

	logs, err := svc.ListAuditLogs(ctx, admin, "", 50)
	if err != nil {
		t.Fatalf("audit list failed: %v", err)
	}
	if len(logs) < 2 {
		t.Fatalf("expected rate and inventory audit entries, got %d", len(logs))
	}
	if _, err := svc.ListAuditLogs(ctx, staff, "", 50); !errors.Is(err, ErrForbidden) {
		t.Fatalf("staff must not read audit logs")
	}
}

func TestPreviewTransaction(t *testing.T) {
	repo, customer := seedShop(t)
	svc := newTestService(t, repo)
	ctx := context.Background()

	draft := twoItemDraft(customer.ID)
	draft.Items[0].RatePerGram = decimal.Zero
	draft.Exchanges = []domain.DraftExchange{{Weight: dec("1")}}
	preview, err := svc.PreviewTransaction(ctx, draft)
	if err != nil {
		t.Fatalf("preview failed: %v", err)
	}
	if !preview.Items[0].RatePerGram.Equal(dec("6600")) || !preview.Total.Equal(dec("29300")) {
		t.Fatalf("unexpected preview %+v", preview)
	}
	if preview.Exchanges[0].DraftKey == "" || !preview.NetPayable.Equal(dec("22100")) {
		t.Fatalf("unexpected exchange preview %+v", preview.Exchanges)
	}

	draft.TotalLocked = true
	_, err = svc.PreviewTransaction(ctx, draft)
	requireValidation(t, err, "total")

	seq, _ := repo.NextBillSequence(ctx, SaleBillPrefix, clock)
	if seq != 1 {
		t.Fatalf("preview must not write")
	}
}
