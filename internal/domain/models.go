package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type MetalType string

const (
	MetalGold        MetalType = "gold"
	MetalGold916     MetalType = "gold_916"
	MetalGold750     MetalType = "gold_750"
	MetalSilver92    MetalType = "silver_92"
	MetalSilver70    MetalType = "silver_70"
	MetalSelamSilver MetalType = "selam_silver"
)

// MetalTypes lists every metal that carries its own daily rate.
var MetalTypes = []MetalType{
	MetalGold,
	MetalGold916,
	MetalGold750,
	MetalSilver92,
	MetalSilver70,
	MetalSelamSilver,
}

func (m MetalType) Valid() bool {
	for _, known := range MetalTypes {
		if m == known {
			return true
		}
	}
	return false
}

const (
	SaleTypeGST    = "gst"
	SaleTypeNonGST = "non_gst"

	BillStatusDraft     = "draft"
	BillStatusFinal     = "final"
	BillStatusCancelled = "cancelled"

	BookingStatusActive    = "active"
	BookingStatusFulfilled = "fulfilled"
	BookingStatusCancelled = "cancelled"

	DefaultItemHSN     = "711319"
	DefaultExchangeHSN = "7113"
)

type Actor struct {
	Username string
	Role     string
}

type Customer struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
	Notes   string `json:"notes,omitempty"`
}

type CustomerCreateRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
	Notes   string `json:"notes,omitempty"`
}

type MetalRate struct {
	MetalType     MetalType       `json:"metal_type"`
	EffectiveDate time.Time       `json:"effective_date"`
	RatePerGram   decimal.Decimal `json:"rate_per_gram"`
}

type MetalRateRequest struct {
	MetalType     MetalType       `json:"metal_type"`
	EffectiveDate string          `json:"effective_date"`
	RatePerGram   decimal.Decimal `json:"rate_per_gram"`
}

type Bill struct {
	ID          int64           `json:"id"`
	BillNo      string          `json:"bill_no"`
	BillDate    time.Time       `json:"bill_date"`
	CustomerID  int64           `json:"customer_id"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Discount    decimal.Decimal `json:"discount"`
	CGST        decimal.Decimal `json:"cgst"`
	SGST        decimal.Decimal `json:"sgst"`
	IGST        decimal.Decimal `json:"igst"`
	GrandTotal  decimal.Decimal `json:"grand_total"`
	SaleType    string          `json:"sale_type"`
	Status      string          `json:"status"`
	TotalLocked bool            `json:"total_locked"`
	CreatedBy   string          `json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type BillItem struct {
	ID            int64           `json:"id"`
	BillID        int64           `json:"bill_id"`
	SerialNo      int             `json:"sl_no"`
	ItemName      string          `json:"item_name"`
	Weight        decimal.Decimal `json:"weight"`
	MetalType     MetalType       `json:"metal_type"`
	Purity        string          `json:"purity,omitempty"`
	RatePerGram   decimal.Decimal `json:"rate"`
	MakingCharges decimal.Decimal `json:"making_charges"`
	HSNCode       string          `json:"hsn_code"`
	Barcode       string          `json:"barcode,omitempty"`
	LineTotal     decimal.Decimal `json:"line_total"`
}

type OldGoldExchange struct {
	ID          int64           `json:"id"`
	BillID      *int64          `json:"bill_id,omitempty"`
	Weight      decimal.Decimal `json:"weight"`
	Purity      string          `json:"purity,omitempty"`
	RatePerGram decimal.Decimal `json:"rate_per_gram"`
	TotalValue  decimal.Decimal `json:"total_value"`
	Particulars string          `json:"particulars"`
	HSNCode     string          `json:"hsn_code"`
	Notes       string          `json:"notes,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ExchangeListing is an exchange row joined with its bill and customer, if any.
type ExchangeListing struct {
	OldGoldExchange
	BillNo        string     `json:"bill_no,omitempty"`
	BillDate      *time.Time `json:"bill_date,omitempty"`
	CustomerName  string     `json:"customer_name,omitempty"`
	CustomerPhone string     `json:"customer_phone,omitempty"`
}

type ExchangeListRequest struct {
	Search    string `json:"search"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type ExchangeListResponse struct {
	Exchanges   []ExchangeListing `json:"exchanges"`
	TotalWeight decimal.Decimal   `json:"total_weight"`
	TotalValue  decimal.Decimal   `json:"total_value"`
}

// ExchangeEntry is the operator-facing input for a standalone exchange.
type ExchangeEntry struct {
	Weight      decimal.Decimal `json:"weight"`
	Purity      string          `json:"purity,omitempty"`
	RatePerGram decimal.Decimal `json:"rate_per_gram"`
	Particulars string          `json:"particulars,omitempty"`
	HSNCode     string          `json:"hsn_code,omitempty"`
}

type AdvanceBooking struct {
	ID              int64           `json:"id"`
	BillID          int64           `json:"bill_id"`
	BookingDate     time.Time       `json:"booking_date"`
	DeliveryDate    time.Time       `json:"delivery_date"`
	AdvanceAmount   decimal.Decimal `json:"advance_amount"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	ItemDescription string          `json:"item_description,omitempty"`
	CustomerNotes   string          `json:"customer_notes,omitempty"`
	Status          string          `json:"booking_status"`
}

// AmountDue never goes below zero; advance > total is rejected separately.
func (b AdvanceBooking) AmountDue() decimal.Decimal {
	return AmountDue(b.TotalAmount, b.AdvanceAmount)
}

func AmountDue(total, advance decimal.Decimal) decimal.Decimal {
	due := total.Sub(advance)
	if due.IsNegative() {
		return decimal.Zero
	}
	return due
}

type LayawayTransaction struct {
	ID              int64           `json:"id"`
	BillID          int64           `json:"bill_id"`
	PaymentDate     time.Time       `json:"payment_date"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentMethod   string          `json:"payment_method"`
	ReferenceNumber string          `json:"reference_number,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

type LayawayPaymentRequest struct {
	PaymentDate     string          `json:"payment_date,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentMethod   string          `json:"payment_method"`
	ReferenceNumber string          `json:"reference_number,omitempty"`
	Notes           string          `json:"notes,omitempty"`
}

type LayawayStatement struct {
	BillID          int64                `json:"bill_id"`
	BillNo          string               `json:"bill_no"`
	GrandTotal      decimal.Decimal      `json:"grand_total"`
	TotalPaid       decimal.Decimal      `json:"total_paid"`
	RemainingAmount decimal.Decimal      `json:"remaining_amount"`
	Transactions    []LayawayTransaction `json:"transactions"`
}

type InventoryItem struct {
	Barcode       string          `json:"barcode"`
	ItemName      string          `json:"item_name"`
	Category      string          `json:"category"`
	Weight        decimal.Decimal `json:"weight"`
	Purity        string          `json:"purity,omitempty"`
	MetalType     MetalType       `json:"metal_type"`
	MakingCharges decimal.Decimal `json:"making_charges"`
	HSNCode       string          `json:"hsn_code,omitempty"`
}

type PurchaseItem struct {
	HSNCode     string          `json:"hsn_code,omitempty"`
	Code        string          `json:"code,omitempty"`
	Weight      decimal.Decimal `json:"weight"`
	Purity      string          `json:"purity"`
	RatePerGram decimal.Decimal `json:"rate"`
	Amount      decimal.Decimal `json:"amount"`
}

type PurchaseBill struct {
	ID               int64           `json:"id"`
	BillNo           string          `json:"bill_no"`
	BillDate         time.Time       `json:"bill_date"`
	VendorID         int64           `json:"customer_id"`
	StaffID          string          `json:"staff_id"`
	Particulars      string          `json:"particulars,omitempty"`
	PaymentMode      string          `json:"payment_mode"`
	PaymentReference string          `json:"payment_reference,omitempty"`
	SaleBillID       *int64          `json:"sale_bill_id,omitempty"`
	Remark           string          `json:"remark,omitempty"`
	Items            []PurchaseItem  `json:"items"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	CGST             decimal.Decimal `json:"cgst"`
	SGST             decimal.Decimal `json:"sgst"`
	GrandTotal       decimal.Decimal `json:"grand_total"`
	CreatedAt        time.Time       `json:"created_at"`
}

type PurchaseBillRequest struct {
	BillDate         string         `json:"bill_date,omitempty"`
	VendorID         int64          `json:"customer_id"`
	Particulars      string         `json:"particulars,omitempty"`
	PaymentMode      string         `json:"payment_mode"`
	PaymentReference string         `json:"payment_reference,omitempty"`
	SaleBillID       *int64         `json:"sale_bill_id,omitempty"`
	Remark           string         `json:"remark,omitempty"`
	Items            []PurchaseItem `json:"items"`
}

type AuditLog struct {
	ID            string    `json:"id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

type UserAccount struct {
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type StaffUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type StaffCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}
