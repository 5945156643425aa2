package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/amjewellery633-lang/AM-JEWEL-ERP/internal/domain"
	"github.com/amjewellery633-lang/AM-JEWEL-ERP/internal/pricing"
	"github.com/amjewellery633-lang/AM-JEWEL-ERP/internal/store"
	"github.com/amjewellery633-lang/AM-JEWEL-ERP/internal/xid"
)

// CreatePurchaseBill records a pink-slip purchase of metal from a customer.
// Tax is split evenly between CGST and SGST at the purchase GST rate.
func (s *Service) CreatePurchaseBill(ctx context.Context, actor domain.Actor, req domain.PurchaseBillRequest) (domain.PurchaseBill, error) {
	if strings.TrimSpace(actor.Username) == "" {
		return domain.PurchaseBill{}, invalid("actor", "staff identity is required")
	}
	if req.VendorID == 0 {
		return domain.PurchaseBill{}, invalid("customer_id", "is required")
	}
	if len(req.Items) == 0 {
		return domain.PurchaseBill{}, invalid("items", "at least one item is required")
	}
	paymentMode := strings.TrimSpace(req.PaymentMode)
	if paymentMode == "" {
		return domain.PurchaseBill{}, invalid("payment_mode", "is required")
	}
	day, err := parseDate(req.BillDate, s.today())
	if err != nil {
		return domain.PurchaseBill{}, invalid("bill_date", "must be YYYY-MM-DD")
	}

	items := make([]domain.PurchaseItem, len(req.Items))
	total := decimal.Zero
	for i, item := range req.Items {
		item.Weight = pricing.RoundWeight(item.Weight)
		amount, err := pricing.MetalValue(item.Weight, item.RatePerGram)
		if err != nil {
			return domain.PurchaseBill{}, lineValidation(err, i)
		}
		item.Amount = amount
		item.Purity = strings.TrimSpace(item.Purity)
		item.Code = strings.TrimSpace(item.Code)
		item.HSNCode = strings.TrimSpace(item.HSNCode)
		if item.HSNCode == "" {
			item.HSNCode = domain.DefaultExchangeHSN
		}
		items[i] = item
		total = total.Add(amount)
	}

	half := pricing.Round2(total.Mul(s.purchaseGST).Div(decimal.NewFromInt(2)).Div(hundred))
	bill := domain.PurchaseBill{
		BillDate:         day,
		VendorID:         req.VendorID,
		StaffID:          actor.Username,
		Particulars:      strings.TrimSpace(req.Particulars),
		PaymentMode:      paymentMode,
		PaymentReference: strings.TrimSpace(req.PaymentReference),
		SaleBillID:       req.SaleBillID,
		Remark:           strings.TrimSpace(req.Remark),
		Items:            items,
		TotalAmount:      total,
		CGST:             half,
		SGST:             half,
		GrandTotal:       total.Add(half).Add(half),
	}

	var created *domain.PurchaseBill
	err = s.repo.WithinTx(ctx, func(repo store.Repository) error {
		if _, err := repo.GetCustomer(ctx, req.VendorID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return invalid("customer_id", "customer not found")
			}
			return err
		}
		if req.SaleBillID != nil {
			if _, err := repo.GetBill(ctx, *req.SaleBillID); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return invalid("sale_bill_id", "sale bill not found")
				}
				return err
			}
		}
		seq, err := repo.NextBillSequence(ctx, PurchaseBillPrefix, day)
		if err != nil {
			return err
		}
		bill.BillNo = xid.BillNumber(PurchaseBillPrefix, day, seq)
		created, err = repo.CreatePurchaseBill(ctx, bill)
		return err
	})
	if err != nil {
		return domain.PurchaseBill{}, err
	}

	s.logAudit(ctx, actor, "purchase_create", "purchase_bill", fmt.Sprint(created.ID), fmt.Sprintf("bill_no=%s,grand_total=%s", created.BillNo, created.GrandTotal))
	return *created, nil
}

func (s *Service) GetPurchaseBill(ctx context.Context, id int64) (domain.PurchaseBill, error) {
	bill, err := s.repo.GetPurchaseBill(ctx, id)
	if err != nil {
		return domain.PurchaseBill{}, err
	}
	return *bill, nil
}
