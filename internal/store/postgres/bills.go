package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/amjewellery633-lang/AM-JEWEL-ERP/internal/domain"
	"github.com/amjewellery633-lang/AM-JEWEL-ERP/internal/store"
)

const billColumns = `id, bill_no, bill_date, customer_id, subtotal, discount, cgst, sgst, igst,
	grand_total, sale_type, status, total_locked, created_by, created_at, updated_at`

func scanBill(row rowScanner) (*domain.Bill, error) {
	var b domain.Bill
	err := row.Scan(&b.ID, &b.BillNo, &b.BillDate, &b.CustomerID, &b.Subtotal, &b.Discount, &b.CGST, &b.SGST, &b.IGST,
		&b.GrandTotal, &b.SaleType, &b.Status, &b.TotalLocked, &b.CreatedBy, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	b.BillDate = store.DateOnly(b.BillDate)
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
	return &b, nil
}

func (s *Store) CreateBill(ctx context.Context, bill domain.Bill) (*domain.Bill, error) {
	if bill.BillNo == "" {
		return nil, store.ErrInvalidTransaction
	}
	saved, err := scanBill(s.q.QueryRowContext(ctx, `
		INSERT INTO bills (
			bill_no, bill_date, customer_id, subtotal, discount, cgst, sgst, igst,
			grand_total, sale_type, status, total_locked, created_by
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING `+billColumns,
		bill.BillNo, store.DateOnly(bill.BillDate), bill.CustomerID, bill.Subtotal, bill.Discount, bill.CGST, bill.SGST, bill.IGST,
		bill.GrandTotal, bill.SaleType, bill.Status, bill.TotalLocked, bill.CreatedBy))
	if err != nil {
		return nil, mapWriteError(err)
	}
	return saved, nil
}

// UpdateBill rewrites totals and status. Number, date, customer and author
// are fixed at creation.
func (s *Store) UpdateBill(ctx context.Context, bill domain.Bill) (*domain.Bill, error) {
	saved, err := scanBill(s.q.QueryRowContext(ctx, `
		UPDATE bills
		SET subtotal = $2, discount = $3, cgst = $4, sgst = $5, igst = $6, grand_total = $7,
			sale_type = $8, status = $9, total_locked = $10, updated_at = now()
		WHERE id = $1
		RETURNING `+billColumns,
		bill.ID, bill.Subtotal, bill.Discount, bill.CGST, bill.SGST, bill.IGST, bill.GrandTotal,
		bill.SaleType, bill.Status, bill.TotalLocked))
	if err != nil {
		return nil, mapWriteError(err)
	}
	return saved, nil
}

func (s *Store) GetBill(ctx context.Context, id int64) (*domain.Bill, error) {
	return scanBill(s.q.QueryRowContext(ctx, `SELECT `+billColumns+` FROM bills WHERE id = $1`, id))
}

func (s *Store) DeleteBill(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM bills WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (s *Store) ReplaceBillItems(ctx context.Context, billID int64, items []domain.BillItem) ([]domain.BillItem, error) {
	saved := make([]domain.BillItem, 0, len(items))
	err := s.inTx(ctx, func(q querier) error {
		var exists bool
		if err := q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM bills WHERE id = $1)`, billID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return store.ErrNotFound
		}
		if _, err := q.ExecContext(ctx, `DELETE FROM bill_items WHERE bill_id = $1`, billID); err != nil {
			return err
		}
		for i, item := range items {
			item.BillID = billID
			item.SerialNo = i + 1
			err := q.QueryRowContext(ctx, `
				INSERT INTO bill_items (
					bill_id, sl_no, item_name, weight, metal_type, purity, rate,
					making_charges, hsn_code, barcode, line_total
				)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
				RETURNING id
			`, item.BillID, item.SerialNo, item.ItemName, item.Weight, string(item.MetalType), item.Purity, item.RatePerGram,
				item.MakingCharges, item.HSNCode, item.Barcode, item.LineTotal).Scan(&item.ID)
			if err != nil {
				return mapWriteError(err)
			}
			saved = append(saved, item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (s *Store) ListBillItems(ctx context.Context, billID int64) ([]domain.BillItem, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, bill_id, sl_no, item_name, weight, metal_type, purity, rate,
			making_charges, hsn_code, barcode, line_total
		FROM bill_items
		WHERE bill_id = $1
		ORDER BY sl_no
	`, billID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.BillItem, 0, 8)
	for rows.Next() {
		var item domain.BillItem
		var metal string
		if err := rows.Scan(&item.ID, &item.BillID, &item.SerialNo, &item.ItemName, &item.Weight, &metal, &item.Purity, &item.RatePerGram,
			&item.MakingCharges, &item.HSNCode, &item.Barcode, &item.LineTotal); err != nil {
			return nil, err
		}
		item.MetalType = domain.MetalType(metal)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const exchangeColumns = `id, bill_id, weight, purity, rate_per_gram, total_value, particulars, hsn_code, notes, created_at`

func scanExchange(row rowScanner, extra ...any) (*domain.OldGoldExchange, error) {
	var e domain.OldGoldExchange
	var billID sql.NullInt64
	var notes sql.NullString
	dest := append([]any{&e.ID, &billID, &e.Weight, &e.Purity, &e.RatePerGram, &e.TotalValue, &e.Particulars, &e.HSNCode, &notes, &e.CreatedAt}, extra...)
	err := row.Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	e.BillID = idPtr(billID)
	e.Notes = notes.String
	e.CreatedAt = e.CreatedAt.UTC()
	return &e, nil
}

func (s *Store) CreateExchange(ctx context.Context, exchange domain.OldGoldExchange) (*domain.OldGoldExchange, error) {
	saved, err := scanExchange(s.q.QueryRowContext(ctx, `
		INSERT INTO old_gold_exchanges (bill_id, weight, purity, rate_per_gram, total_value, particulars, hsn_code, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING `+exchangeColumns,
		nullID(exchange.BillID), exchange.Weight, exchange.Purity, exchange.RatePerGram, exchange.TotalValue,
		exchange.Particulars, exchange.HSNCode, nullIfEmpty(exchange.Notes)))
	if err != nil {
		return nil, mapWriteError(err)
	}
	return saved, nil
}

// UpdateExchange rewrites the valuation and description; the owning bill
// is left as stored.
func (s *Store) UpdateExchange(ctx context.Context, exchange domain.OldGoldExchange) (*domain.OldGoldExchange, error) {
	saved, err := scanExchange(s.q.QueryRowContext(ctx, `
		UPDATE old_gold_exchanges
		SET weight = $2, purity = $3, rate_per_gram = $4, total_value = $5,
			particulars = $6, hsn_code = $7, notes = $8
		WHERE id = $1
		RETURNING `+exchangeColumns,
		exchange.ID, exchange.Weight, exchange.Purity, exchange.RatePerGram, exchange.TotalValue,
		exchange.Particulars, exchange.HSNCode, nullIfEmpty(exchange.Notes)))
	if err != nil {
		return nil, mapWriteError(err)
	}
	return saved, nil
}

func (s *Store) DeleteExchange(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM old_gold_exchanges WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (s *Store) GetExchange(ctx context.Context, id int64) (*domain.OldGoldExchange, error) {
	return scanExchange(s.q.QueryRowContext(ctx, `SELECT `+exchangeColumns+` FROM old_gold_exchanges WHERE id = $1`, id))
}

func (s *Store) ListExchangeIDsByBill(ctx context.Context, billID int64) ([]int64, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT id FROM old_gold_exchanges WHERE bill_id = $1 ORDER BY id`, billID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int64, 0, 4)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Store) ListExchangesByBill(ctx context.Context, billID int64) ([]domain.OldGoldExchange, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+exchangeColumns+`
		FROM old_gold_exchanges
		WHERE bill_id = $1
		ORDER BY id
	`, billID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	exchanges := make([]domain.OldGoldExchange, 0, 4)
	for rows.Next() {
		e, err := scanExchange(rows)
		if err != nil {
			return nil, err
		}
		exchanges = append(exchanges, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return exchanges, nil
}

func (s *Store) ListExchanges(ctx context.Context, from *time.Time, to *time.Time) ([]domain.ExchangeListing, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT e.id, e.bill_id, e.weight, e.purity, e.rate_per_gram, e.total_value, e.particulars, e.hsn_code, e.notes, e.created_at,
			COALESCE(b.bill_no, ''), b.bill_date, COALESCE(c.name, ''), COALESCE(c.phone, '')
		FROM old_gold_exchanges e
		LEFT JOIN bills b ON b.id = e.bill_id
		LEFT JOIN customers c ON c.id = b.customer_id
		WHERE ($1::timestamptz IS NULL OR e.created_at >= $1)
			AND ($2::timestamptz IS NULL OR e.created_at < $2)
		ORDER BY e.created_at DESC, e.id DESC
	`, nullTime(from), nullTime(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	listings := make([]domain.ExchangeListing, 0, 64)
	for rows.Next() {
		var listing domain.ExchangeListing
		var billDate sql.NullTime
		e, err := scanExchange(rows, &listing.BillNo, &billDate, &listing.CustomerName, &listing.CustomerPhone)
		if err != nil {
			return nil, err
		}
		listing.OldGoldExchange = *e
		if billDate.Valid {
			d := store.DateOnly(billDate.Time)
			listing.BillDate = &d
		}
		listings = append(listings, listing)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return listings, nil
}

const bookingColumns = `id, bill_id, booking_date, delivery_date, advance_amount, total_amount,
	item_description, customer_notes, booking_status`

func scanBooking(row rowScanner) (*domain.AdvanceBooking, error) {
	var b domain.AdvanceBooking
	err := row.Scan(&b.ID, &b.BillID, &b.BookingDate, &b.DeliveryDate, &b.AdvanceAmount, &b.TotalAmount,
		&b.ItemDescription, &b.CustomerNotes, &b.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	b.BookingDate = store.DateOnly(b.BookingDate)
	b.DeliveryDate = store.DateOnly(b.DeliveryDate)
	return &b, nil
}

func (s *Store) CreateAdvanceBooking(ctx context.Context, booking domain.AdvanceBooking) (*domain.AdvanceBooking, error) {
	saved, err := scanBooking(s.q.QueryRowContext(ctx, `
		INSERT INTO advance_bookings (
			bill_id, booking_date, delivery_date, advance_amount, total_amount,
			item_description, customer_notes, booking_status
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING `+bookingColumns,
		booking.BillID, store.DateOnly(booking.BookingDate), store.DateOnly(booking.DeliveryDate), booking.AdvanceAmount, booking.TotalAmount,
		booking.ItemDescription, booking.CustomerNotes, booking.Status))
	if err != nil {
		return nil, mapWriteError(err)
	}
	return saved, nil
}

func (s *Store) UpdateAdvanceBooking(ctx context.Context, booking domain.AdvanceBooking) (*domain.AdvanceBooking, error) {
	saved, err := scanBooking(s.q.QueryRowContext(ctx, `
		UPDATE advance_bookings
		SET delivery_date = $2, advance_amount = $3, total_amount = $4,
			item_description = $5, customer_notes = $6, booking_status = $7
		WHERE id = $1
		RETURNING `+bookingColumns,
		booking.ID, store.DateOnly(booking.DeliveryDate), booking.AdvanceAmount, booking.TotalAmount,
		booking.ItemDescription, booking.CustomerNotes, booking.Status))
	if err != nil {
		return nil, mapWriteError(err)
	}
	return saved, nil
}

func (s *Store) GetAdvanceBookingByBill(ctx context.Context, billID int64) (*domain.AdvanceBooking, error) {
	return scanBooking(s.q.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM advance_bookings WHERE bill_id = $1`, billID))
}

func (s *Store) AppendLayawayTransaction(ctx context.Context, txn domain.LayawayTransaction) (*domain.LayawayTransaction, error) {
	if !txn.Amount.IsPositive() {
		return nil, store.ErrInvalidTransaction
	}
	err := s.q.QueryRowContext(ctx, `
		INSERT INTO layaway_transactions (bill_id, payment_date, amount, payment_method, reference_number, notes)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id, created_at
	`, txn.BillID, store.DateOnly(txn.PaymentDate), txn.Amount, txn.PaymentMethod, txn.ReferenceNumber, txn.Notes).Scan(&txn.ID, &txn.CreatedAt)
	if err != nil {
		return nil, mapWriteError(err)
	}
	txn.PaymentDate = store.DateOnly(txn.PaymentDate)
	txn.CreatedAt = txn.CreatedAt.UTC()
	return &txn, nil
}

func (s *Store) ListLayawayTransactions(ctx context.Context, billID int64) ([]domain.LayawayTransaction, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, bill_id, payment_date, amount, payment_method, reference_number, notes, created_at
		FROM layaway_transactions
		WHERE bill_id = $1
		ORDER BY payment_date, id
	`, billID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txns := make([]domain.LayawayTransaction, 0, 8)
	for rows.Next() {
		var t domain.LayawayTransaction
		if err := rows.Scan(&t.ID, &t.BillID, &t.PaymentDate, &t.Amount, &t.PaymentMethod, &t.ReferenceNumber, &t.Notes, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.PaymentDate = store.DateOnly(t.PaymentDate)
		t.CreatedAt = t.CreatedAt.UTC()
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return txns, nil
}

const inventoryColumns = `barcode, item_name, category, weight, purity, metal_type, making_charges, hsn_code`

func scanInventoryItem(row rowScanner) (*domain.InventoryItem, error) {
	var item domain.InventoryItem
	var metal string
	err := row.Scan(&item.Barcode, &item.ItemName, &item.Category, &item.Weight, &item.Purity, &metal, &item.MakingCharges, &item.HSNCode)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	item.MetalType = domain.MetalType(metal)
	return &item, nil
}

func (s *Store) CreateInventoryItem(ctx context.Context, item domain.InventoryItem) (*domain.InventoryItem, error) {
	item.Barcode = strings.TrimSpace(item.Barcode)
	if item.Barcode == "" || strings.TrimSpace(item.ItemName) == "" {
		return nil, store.ErrInvalidTransaction
	}
	saved, err := scanInventoryItem(s.q.QueryRowContext(ctx, `
		INSERT INTO inventory_items (barcode, item_name, category, weight, purity, metal_type, making_charges, hsn_code)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING `+inventoryColumns,
		item.Barcode, item.ItemName, item.Category, item.Weight, item.Purity, string(item.MetalType), item.MakingCharges, item.HSNCode))
	if err != nil {
		return nil, mapWriteError(err)
	}
	return saved, nil
}

func (s *Store) GetInventoryItemByBarcode(ctx context.Context, barcode string) (*domain.InventoryItem, error) {
	return scanInventoryItem(s.q.QueryRowContext(ctx, `SELECT `+inventoryColumns+` FROM inventory_items WHERE barcode = $1`, strings.TrimSpace(barcode)))
}

func (s *Store) ListInventoryItems(ctx context.Context) ([]domain.InventoryItem, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+inventoryColumns+` FROM inventory_items ORDER BY barcode`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.InventoryItem, 0, 64)
	for rows.Next() {
		item, err := scanInventoryItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CreatePurchaseBill(ctx context.Context, bill domain.PurchaseBill) (*domain.PurchaseBill, error) {
	err := s.inTx(ctx, func(q querier) error {
		err := q.QueryRowContext(ctx, `
			INSERT INTO purchase_bills (
				bill_no, bill_date, customer_id, staff_id, particulars, payment_mode, payment_reference,
				sale_bill_id, remark, total_amount, cgst, sgst, grand_total
			)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
			RETURNING id, created_at
		`, bill.BillNo, store.DateOnly(bill.BillDate), bill.VendorID, bill.StaffID, bill.Particulars, bill.PaymentMode, bill.PaymentReference,
			nullID(bill.SaleBillID), bill.Remark, bill.TotalAmount, bill.CGST, bill.SGST, bill.GrandTotal).Scan(&bill.ID, &bill.CreatedAt)
		if err != nil {
			return mapWriteError(err)
		}
		for i, item := range bill.Items {
			if _, err := q.ExecContext(ctx, `
				INSERT INTO purchase_bill_items (purchase_bill_id, line_no, hsn_code, code, weight, purity, rate, amount)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			`, bill.ID, i+1, item.HSNCode, item.Code, item.Weight, item.Purity, item.RatePerGram, item.Amount); err != nil {
				return mapWriteError(err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	bill.BillDate = store.DateOnly(bill.BillDate)
	bill.CreatedAt = bill.CreatedAt.UTC()
	return &bill, nil
}

func (s *Store) GetPurchaseBill(ctx context.Context, id int64) (*domain.PurchaseBill, error) {
	var bill domain.PurchaseBill
	var saleBillID sql.NullInt64
	err := s.q.QueryRowContext(ctx, `
		SELECT id, bill_no, bill_date, customer_id, staff_id, particulars, payment_mode, payment_reference,
			sale_bill_id, remark, total_amount, cgst, sgst, grand_total, created_at
		FROM purchase_bills
		WHERE id = $1
	`, id).Scan(&bill.ID, &bill.BillNo, &bill.BillDate, &bill.VendorID, &bill.StaffID, &bill.Particulars, &bill.PaymentMode, &bill.PaymentReference,
		&saleBillID, &bill.Remark, &bill.TotalAmount, &bill.CGST, &bill.SGST, &bill.GrandTotal, &bill.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	bill.SaleBillID = idPtr(saleBillID)
	bill.BillDate = store.DateOnly(bill.BillDate)
	bill.CreatedAt = bill.CreatedAt.UTC()

	rows, err := s.q.QueryContext(ctx, `
		SELECT hsn_code, code, weight, purity, rate, amount
		FROM purchase_bill_items
		WHERE purchase_bill_id = $1
		ORDER BY line_no
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bill.Items = make([]domain.PurchaseItem, 0, 4)
	for rows.Next() {
		var item domain.PurchaseItem
		if err := rows.Scan(&item.HSNCode, &item.Code, &item.Weight, &item.Purity, &item.RatePerGram, &item.Amount); err != nil {
			return nil, err
		}
		bill.Items = append(bill.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &bill, nil
}

func nullTime(val *time.Time) any {
	if val == nil {
		return nil
	}
	return *val
}
