package domain

import (
	"github.com/shopspring/decimal"
)

// TransactionDraft is the operator's working copy of a sale: bill header,
// items, exchange credits and optional booking or layaway terms.
type TransactionDraft struct {
	BillID      *int64                 `json:"bill_id,omitempty"`
	CustomerID  int64                  `json:"customer_id,omitempty"`
	NewCustomer *CustomerCreateRequest `json:"new_customer,omitempty"`
	Items       []DraftItem            `json:"items"`
	Exchanges   []DraftExchange        `json:"exchanges,omitempty"`
	TotalLocked bool                   `json:"total_locked"`
	Total       decimal.Decimal        `json:"total"`
	Discount    decimal.Decimal        `json:"discount"`
	SaleType    string                 `json:"sale_type,omitempty"`
	Interstate  bool                   `json:"interstate,omitempty"`
	Finalize    bool                   `json:"finalize,omitempty"`
	Booking     *BookingTerms          `json:"booking,omitempty"`
	Layaway     *LayawayPaymentRequest `json:"layaway,omitempty"`
}

type DraftItem struct {
	ItemName      string          `json:"item_name"`
	Weight        decimal.Decimal `json:"weight"`
	MetalType     MetalType       `json:"metal_type"`
	Purity        string          `json:"purity,omitempty"`
	RatePerGram   decimal.Decimal `json:"rate"`
	MakingCharges decimal.Decimal `json:"making_charges"`
	HSNCode       string          `json:"hsn_code,omitempty"`
	Barcode       string          `json:"barcode,omitempty"`
	LineTotal     decimal.Decimal `json:"line_total"`
}

// DraftExchange is an exchange row in a draft. PersistedID is set only for
// rows loaded from the store; DraftKey identifies rows created in the session.
type DraftExchange struct {
	PersistedID *int64          `json:"id,omitempty"`
	DraftKey    string          `json:"draft_key,omitempty"`
	Weight      decimal.Decimal `json:"weight"`
	Purity      string          `json:"purity,omitempty"`
	RatePerGram decimal.Decimal `json:"rate_per_gram"`
	TotalValue  decimal.Decimal `json:"total_value"`
	Particulars string          `json:"particulars,omitempty"`
	HSNCode     string          `json:"hsn_code,omitempty"`
}

type BookingTerms struct {
	DeliveryDate    string          `json:"delivery_date"`
	AdvanceAmount   decimal.Decimal `json:"advance_amount"`
	ItemDescription string          `json:"item_description,omitempty"`
	CustomerNotes   string          `json:"customer_notes,omitempty"`
}

type TransactionResponse struct {
	Bill           Bill                 `json:"bill"`
	Items          []BillItem           `json:"items"`
	Exchanges      []OldGoldExchange    `json:"exchanges"`
	ExchangeCredit decimal.Decimal      `json:"exchange_credit"`
	NetPayable     decimal.Decimal      `json:"net_payable"`
	Booking        *AdvanceBooking      `json:"booking,omitempty"`
	AmountDue      *decimal.Decimal     `json:"amount_due,omitempty"`
	Layaway        []LayawayTransaction `json:"layaway,omitempty"`
	Remaining      *decimal.Decimal     `json:"remaining_amount,omitempty"`
}

type BookingStatusRequest struct {
	Status     string `json:"booking_status"`
	ManagerPIN string `json:"manager_pin,omitempty"`
}

type BarcodeLookupResponse struct {
	Found bool           `json:"found"`
	Stale bool           `json:"stale"`
	Item  *InventoryItem `json:"item,omitempty"`
}

// TransactionPreview is the priced state of a draft before it is saved.
type TransactionPreview struct {
	Items          []DraftItem     `json:"items"`
	Exchanges      []DraftExchange `json:"exchanges"`
	LineSum        decimal.Decimal `json:"line_sum"`
	Total          decimal.Decimal `json:"total"`
	TotalLocked    bool            `json:"total_locked"`
	ExchangeCredit decimal.Decimal `json:"exchange_credit"`
	NetPayable     decimal.Decimal `json:"net_payable"`
}
