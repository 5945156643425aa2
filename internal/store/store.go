package store

import (
	"context"
	"errors"
	"time"

	"github.com/amjewellery633-lang/AM-JEWEL-ERP/internal/domain"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrConflict           = errors.New("conflict")
)

type Repository interface {
	// WithinTx runs fn against a repository bound to one unit of work.
	// Any error returned by fn discards every write made through it.
	WithinTx(ctx context.Context, fn func(repo Repository) error) error

	FindCustomersByPhone(ctx context.Context, phone string) ([]domain.Customer, error)
	GetCustomer(ctx context.Context, id int64) (*domain.Customer, error)
	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)

	UpsertMetalRate(ctx context.Context, rate domain.MetalRate) error
	GetMetalRate(ctx context.Context, metal domain.MetalType, date time.Time) (*domain.MetalRate, error)
	GetLatestMetalRateBefore(ctx context.Context, metal domain.MetalType, date time.Time) (*domain.MetalRate, error)
	ListMetalRates(ctx context.Context, date time.Time) ([]domain.MetalRate, error)

	NextBillSequence(ctx context.Context, prefix string, date time.Time) (int, error)
	CreateBill(ctx context.Context, bill domain.Bill) (*domain.Bill, error)
	UpdateBill(ctx context.Context, bill domain.Bill) (*domain.Bill, error)
	GetBill(ctx context.Context, id int64) (*domain.Bill, error)
	DeleteBill(ctx context.Context, id int64) error
	ReplaceBillItems(ctx context.Context, billID int64, items []domain.BillItem) ([]domain.BillItem, error)
	ListBillItems(ctx context.Context, billID int64) ([]domain.BillItem, error)

	CreateExchange(ctx context.Context, exchange domain.OldGoldExchange) (*domain.OldGoldExchange, error)
	UpdateExchange(ctx context.Context, exchange domain.OldGoldExchange) (*domain.OldGoldExchange, error)
	DeleteExchange(ctx context.Context, id int64) error
	GetExchange(ctx context.Context, id int64) (*domain.OldGoldExchange, error)
	ListExchangeIDsByBill(ctx context.Context, billID int64) ([]int64, error)
	ListExchangesByBill(ctx context.Context, billID int64) ([]domain.OldGoldExchange, error)
	ListExchanges(ctx context.Context, from *time.Time, to *time.Time) ([]domain.ExchangeListing, error)

	CreateAdvanceBooking(ctx context.Context, booking domain.AdvanceBooking) (*domain.AdvanceBooking, error)
	UpdateAdvanceBooking(ctx context.Context, booking domain.AdvanceBooking) (*domain.AdvanceBooking, error)
	GetAdvanceBookingByBill(ctx context.Context, billID int64) (*domain.AdvanceBooking, error)

	AppendLayawayTransaction(ctx context.Context, txn domain.LayawayTransaction) (*domain.LayawayTransaction, error)
	ListLayawayTransactions(ctx context.Context, billID int64) ([]domain.LayawayTransaction, error)

	CreateInventoryItem(ctx context.Context, item domain.InventoryItem) (*domain.InventoryItem, error)
	GetInventoryItemByBarcode(ctx context.Context, barcode string) (*domain.InventoryItem, error)
	ListInventoryItems(ctx context.Context) ([]domain.InventoryItem, error)

	CreatePurchaseBill(ctx context.Context, bill domain.PurchaseBill) (*domain.PurchaseBill, error)
	GetPurchaseBill(ctx context.Context, id int64) (*domain.PurchaseBill, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
}

// DateOnly truncates t to midnight UTC; rates and bill dates are day-granular.
func DateOnly(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
