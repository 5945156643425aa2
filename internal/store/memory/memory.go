package memory

import (
	"cmp"
	"context"
	"log"
	"maps"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/amjewellery633-lang/AM-JEWEL-ERP/internal/domain"
	"github.com/amjewellery633-lang/AM-JEWEL-ERP/internal/store"
	"github.com/amjewellery633-lang/AM-JEWEL-ERP/internal/xid"
)

type rateKey struct {
	metal domain.MetalType
	date  time.Time
}

type state struct {
	nextID        int64
	customers     map[int64]domain.Customer
	rates         map[rateKey]domain.MetalRate
	billSequences map[string]int
	bills         map[int64]domain.Bill
	billItems     map[int64][]domain.BillItem
	exchanges     map[int64]domain.OldGoldExchange
	bookings      map[int64]domain.AdvanceBooking
	layaway       map[int64][]domain.LayawayTransaction
	inventory     map[string]domain.InventoryItem
	purchaseBills map[int64]domain.PurchaseBill
	auditLogs     []domain.AuditLog
	users         map[string]domain.UserAccount
}

func newState() *state {
	return &state{
		customers:     make(map[int64]domain.Customer),
		rates:         make(map[rateKey]domain.MetalRate),
		billSequences: make(map[string]int),
		bills:         make(map[int64]domain.Bill),
		billItems:     make(map[int64][]domain.BillItem),
		exchanges:     make(map[int64]domain.OldGoldExchange),
		bookings:      make(map[int64]domain.AdvanceBooking),
		layaway:       make(map[int64][]domain.LayawayTransaction),
		inventory:     make(map[string]domain.InventoryItem),
		purchaseBills: make(map[int64]domain.PurchaseBill),
		auditLogs:     make([]domain.AuditLog, 0, 128),
		users:         make(map[string]domain.UserAccount),
	}
}

func (st *state) clone() *state {
	cp := &state{
		nextID:        st.nextID,
		customers:     maps.Clone(st.customers),
		rates:         maps.Clone(st.rates),
		billSequences: maps.Clone(st.billSequences),
		bills:         maps.Clone(st.bills),
		billItems:     make(map[int64][]domain.BillItem, len(st.billItems)),
		exchanges:     maps.Clone(st.exchanges),
		bookings:      maps.Clone(st.bookings),
		layaway:       make(map[int64][]domain.LayawayTransaction, len(st.layaway)),
		inventory:     maps.Clone(st.inventory),
		purchaseBills: make(map[int64]domain.PurchaseBill, len(st.purchaseBills)),
		auditLogs:     slices.Clone(st.auditLogs),
		users:         maps.Clone(st.users),
	}
	for id, items := range st.billItems {
		cp.billItems[id] = slices.Clone(items)
	}
	for id, txns := range st.layaway {
		cp.layaway[id] = slices.Clone(txns)
	}
	for id, bill := range st.purchaseBills {
		bill.Items = slices.Clone(bill.Items)
		cp.purchaseBills[id] = bill
	}
	return cp
}

func (st *state) newID() int64 {
	st.nextID++
	return st.nextID
}

type Store struct {
	mu sync.RWMutex
	st *state
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD and SEED_STAFF_PASSWORD.
// If unset, dev defaults are used with a warning. These accounts are never
// used in production (the backend uses PostgreSQL when DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	staffPwd := envOr("SEED_STAFF_PASSWORD", "staff123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_STAFF_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_STAFF_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"staff", staffPwd, "staff"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// New returns an empty store with no accounts.
func New() *Store {
	return &Store{st: newState()}
}

// NewSeeded returns a store with dev accounts, a walk-in customer, a few
// barcode templates and today's rates.
func NewSeeded() *Store {
	st := newState()
	st.users = seedUsers()

	walkIn := domain.Customer{ID: st.newID(), Name: "Walk-in Customer", Phone: "0000000000"}
	st.customers[walkIn.ID] = walkIn

	for _, item := range []domain.InventoryItem{
		{Barcode: "AMJ-RING-001", ItemName: "Gold Ring", Category: "ring", Weight: decimal.RequireFromString("3.500"), Purity: "22K", MetalType: domain.MetalGold916, MakingCharges: decimal.NewFromInt(200), HSNCode: domain.DefaultItemHSN},
		{Barcode: "AMJ-CHAIN-001", ItemName: "Gold Chain", Category: "chain", Weight: decimal.RequireFromString("10.250"), Purity: "22K", MetalType: domain.MetalGold916, MakingCharges: decimal.NewFromInt(850), HSNCode: domain.DefaultItemHSN},
		{Barcode: "AMJ-ANKLET-001", ItemName: "Silver Anklet", Category: "anklet", Weight: decimal.RequireFromString("25.000"), Purity: "92.5", MetalType: domain.MetalSilver92, MakingCharges: decimal.NewFromInt(150), HSNCode: domain.DefaultItemHSN},
	} {
		st.inventory[item.Barcode] = item
	}

	today := store.DateOnly(time.Now())
	for metal, rate := range map[domain.MetalType]int64{
		domain.MetalGold:        7200,
		domain.MetalGold916:     6600,
		domain.MetalGold750:     5400,
		domain.MetalSilver92:    88,
		domain.MetalSilver70:    67,
		domain.MetalSelamSilver: 60,
	} {
		st.rates[rateKey{metal: metal, date: today}] = domain.MetalRate{MetalType: metal, EffectiveDate: today, RatePerGram: decimal.NewFromInt(rate)}
	}

	return &Store{st: st}
}

// WithinTx runs fn against a private copy of the state and publishes the copy
// only when fn succeeds. The store is locked for the duration.
func (s *Store) WithinTx(ctx context.Context, fn func(repo store.Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	scoped := &Store{st: s.st.clone()}
	if err := fn(scoped); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.st = scoped.st
	return nil
}

func (s *Store) FindCustomersByPhone(_ context.Context, phone string) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	phone = strings.TrimSpace(phone)
	result := make([]domain.Customer, 0, 2)
	for _, customer := range s.st.customers {
		if customer.Phone == phone {
			result = append(result, customer)
		}
	}
	slices.SortFunc(result, func(a, b domain.Customer) int { return cmp.Compare(a.ID, b.ID) })
	return result, nil
}

func (s *Store) GetCustomer(_ context.Context, id int64) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customer, ok := s.st.customers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &customer, nil
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(customer.Name) == "" || strings.TrimSpace(customer.Phone) == "" {
		return nil, store.ErrInvalidTransaction
	}
	customer.ID = s.st.newID()
	s.st.customers[customer.ID] = customer
	return &customer, nil
}

func (s *Store) UpsertMetalRate(_ context.Context, rate domain.MetalRate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !rate.MetalType.Valid() || !rate.RatePerGram.IsPositive() {
		return store.ErrInvalidTransaction
	}
	rate.EffectiveDate = store.DateOnly(rate.EffectiveDate)
	s.st.rates[rateKey{metal: rate.MetalType, date: rate.EffectiveDate}] = rate
	return nil
}

func (s *Store) GetMetalRate(_ context.Context, metal domain.MetalType, date time.Time) (*domain.MetalRate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rate, ok := s.st.rates[rateKey{metal: metal, date: store.DateOnly(date)}]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &rate, nil
}

func (s *Store) GetLatestMetalRateBefore(_ context.Context, metal domain.MetalType, date time.Time) (*domain.MetalRate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	day := store.DateOnly(date)
	var latest *domain.MetalRate
	for key, rate := range s.st.rates {
		if key.metal != metal || !key.date.Before(day) {
			continue
		}
		if latest == nil || key.date.After(latest.EffectiveDate) {
			found := rate
			latest = &found
		}
	}
	if latest == nil {
		return nil, store.ErrNotFound
	}
	return latest, nil
}

func (s *Store) ListMetalRates(_ context.Context, date time.Time) ([]domain.MetalRate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	day := store.DateOnly(date)
	result := make([]domain.MetalRate, 0, len(domain.MetalTypes))
	for _, metal := range domain.MetalTypes {
		if rate, ok := s.st.rates[rateKey{metal: metal, date: day}]; ok {
			result = append(result, rate)
		}
	}
	return result, nil
}

func (s *Store) NextBillSequence(_ context.Context, prefix string, date time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := prefix + "|" + store.DateOnly(date).Format("20060102")
	s.st.billSequences[key]++
	return s.st.billSequences[key], nil
}

func (s *Store) CreateBill(_ context.Context, bill domain.Bill) (*domain.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if bill.BillNo == "" {
		return nil, store.ErrInvalidTransaction
	}
	if _, ok := s.st.customers[bill.CustomerID]; !ok {
		return nil, store.ErrInvalidTransaction
	}
	for _, existing := range s.st.bills {
		if existing.BillNo == bill.BillNo {
			return nil, store.ErrConflict
		}
	}
	now := time.Now().UTC()
	bill.ID = s.st.newID()
	bill.CreatedAt = now
	bill.UpdatedAt = now
	s.st.bills[bill.ID] = bill
	return &bill, nil
}

func (s *Store) UpdateBill(_ context.Context, bill domain.Bill) (*domain.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.st.bills[bill.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	// Number, date, customer and author are fixed at creation.
	bill.BillNo = existing.BillNo
	bill.BillDate = existing.BillDate
	bill.CustomerID = existing.CustomerID
	bill.CreatedBy = existing.CreatedBy
	bill.CreatedAt = existing.CreatedAt
	bill.UpdatedAt = time.Now().UTC()
	s.st.bills[bill.ID] = bill
	return &bill, nil
}

func (s *Store) GetBill(_ context.Context, id int64) (*domain.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bill, ok := s.st.bills[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &bill, nil
}

func (s *Store) DeleteBill(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.st.bills[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.st.bills, id)
	delete(s.st.billItems, id)
	delete(s.st.layaway, id)
	for bookingID, booking := range s.st.bookings {
		if booking.BillID == id {
			delete(s.st.bookings, bookingID)
		}
	}
	for exchangeID, row := range s.st.exchanges {
		if row.BillID != nil && *row.BillID == id {
			row.BillID = nil
			s.st.exchanges[exchangeID] = row
		}
	}
	return nil
}

func (s *Store) ReplaceBillItems(_ context.Context, billID int64, items []domain.BillItem) ([]domain.BillItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.st.bills[billID]; !ok {
		return nil, store.ErrNotFound
	}
	saved := make([]domain.BillItem, 0, len(items))
	for i, item := range items {
		if !item.Weight.IsPositive() || !item.LineTotal.IsPositive() {
			return nil, store.ErrInvalidTransaction
		}
		item.ID = s.st.newID()
		item.BillID = billID
		item.SerialNo = i + 1
		saved = append(saved, item)
	}
	s.st.billItems[billID] = saved
	return slices.Clone(saved), nil
}

func (s *Store) ListBillItems(_ context.Context, billID int64) ([]domain.BillItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.st.bills[billID]; !ok {
		return nil, store.ErrNotFound
	}
	items := slices.Clone(s.st.billItems[billID])
	if items == nil {
		items = []domain.BillItem{}
	}
	return items, nil
}

func (s *Store) CreateExchange(_ context.Context, row domain.OldGoldExchange) (*domain.OldGoldExchange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if row.BillID != nil {
		if _, ok := s.st.bills[*row.BillID]; !ok {
			return nil, store.ErrInvalidTransaction
		}
	}
	row.ID = s.st.newID()
	row.BillID = cloneID(row.BillID)
	row.CreatedAt = time.Now().UTC()
	s.st.exchanges[row.ID] = row
	return &row, nil
}

func (s *Store) UpdateExchange(_ context.Context, row domain.OldGoldExchange) (*domain.OldGoldExchange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.st.exchanges[row.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	existing.Weight = row.Weight
	existing.Purity = row.Purity
	existing.RatePerGram = row.RatePerGram
	existing.TotalValue = row.TotalValue
	existing.Particulars = row.Particulars
	existing.HSNCode = row.HSNCode
	existing.Notes = row.Notes
	s.st.exchanges[row.ID] = existing
	return &existing, nil
}

func (s *Store) DeleteExchange(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.st.exchanges[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.st.exchanges, id)
	return nil
}

func (s *Store) GetExchange(_ context.Context, id int64) (*domain.OldGoldExchange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.st.exchanges[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &row, nil
}

func (s *Store) ListExchangeIDsByBill(_ context.Context, billID int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, 0, 4)
	for id, row := range s.st.exchanges {
		if row.BillID != nil && *row.BillID == billID {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func (s *Store) ListExchangesByBill(_ context.Context, billID int64) ([]domain.OldGoldExchange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]domain.OldGoldExchange, 0, 4)
	for _, row := range s.st.exchanges {
		if row.BillID != nil && *row.BillID == billID {
			rows = append(rows, row)
		}
	}
	slices.SortFunc(rows, func(a, b domain.OldGoldExchange) int { return cmp.Compare(a.ID, b.ID) })
	return rows, nil
}

func (s *Store) ListExchanges(_ context.Context, from *time.Time, to *time.Time) ([]domain.ExchangeListing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.ExchangeListing, 0, len(s.st.exchanges))
	for _, row := range s.st.exchanges {
		if from != nil && row.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && !row.CreatedAt.Before(*to) {
			continue
		}
		listing := domain.ExchangeListing{OldGoldExchange: row}
		if row.BillID != nil {
			if bill, ok := s.st.bills[*row.BillID]; ok {
				billDate := bill.BillDate
				listing.BillNo = bill.BillNo
				listing.BillDate = &billDate
				if customer, ok := s.st.customers[bill.CustomerID]; ok {
					listing.CustomerName = customer.Name
					listing.CustomerPhone = customer.Phone
				}
			}
		}
		result = append(result, listing)
	}
	slices.SortFunc(result, func(a, b domain.ExchangeListing) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return result, nil
}

func (s *Store) CreateAdvanceBooking(_ context.Context, booking domain.AdvanceBooking) (*domain.AdvanceBooking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.st.bills[booking.BillID]; !ok {
		return nil, store.ErrInvalidTransaction
	}
	for _, existing := range s.st.bookings {
		if existing.BillID == booking.BillID {
			return nil, store.ErrConflict
		}
	}
	booking.ID = s.st.newID()
	s.st.bookings[booking.ID] = booking
	return &booking, nil
}

func (s *Store) UpdateAdvanceBooking(_ context.Context, booking domain.AdvanceBooking) (*domain.AdvanceBooking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.st.bookings[booking.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	booking.BillID = existing.BillID
	booking.BookingDate = existing.BookingDate
	s.st.bookings[booking.ID] = booking
	return &booking, nil
}

func (s *Store) GetAdvanceBookingByBill(_ context.Context, billID int64) (*domain.AdvanceBooking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, booking := range s.st.bookings {
		if booking.BillID == billID {
			return &booking, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) AppendLayawayTransaction(_ context.Context, txn domain.LayawayTransaction) (*domain.LayawayTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.st.bills[txn.BillID]; !ok {
		return nil, store.ErrInvalidTransaction
	}
	if !txn.Amount.IsPositive() {
		return nil, store.ErrInvalidTransaction
	}
	txn.ID = s.st.newID()
	txn.CreatedAt = time.Now().UTC()
	s.st.layaway[txn.BillID] = append(s.st.layaway[txn.BillID], txn)
	return &txn, nil
}

func (s *Store) ListLayawayTransactions(_ context.Context, billID int64) ([]domain.LayawayTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txns := slices.Clone(s.st.layaway[billID])
	if txns == nil {
		txns = []domain.LayawayTransaction{}
	}
	slices.SortStableFunc(txns, func(a, b domain.LayawayTransaction) int {
		return a.PaymentDate.Compare(b.PaymentDate)
	})
	return txns, nil
}

func (s *Store) CreateInventoryItem(_ context.Context, item domain.InventoryItem) (*domain.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item.Barcode = strings.TrimSpace(item.Barcode)
	if item.Barcode == "" || strings.TrimSpace(item.ItemName) == "" {
		return nil, store.ErrInvalidTransaction
	}
	if _, exists := s.st.inventory[item.Barcode]; exists {
		return nil, store.ErrConflict
	}
	s.st.inventory[item.Barcode] = item
	return &item, nil
}

func (s *Store) GetInventoryItemByBarcode(_ context.Context, barcode string) (*domain.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.st.inventory[strings.TrimSpace(barcode)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &item, nil
}

func (s *Store) ListInventoryItems(_ context.Context) ([]domain.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := slices.Collect(maps.Values(s.st.inventory))
	slices.SortFunc(items, func(a, b domain.InventoryItem) int { return strings.Compare(a.Barcode, b.Barcode) })
	return items, nil
}

func (s *Store) CreatePurchaseBill(_ context.Context, bill domain.PurchaseBill) (*domain.PurchaseBill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.st.customers[bill.VendorID]; !ok {
		return nil, store.ErrInvalidTransaction
	}
	for _, existing := range s.st.purchaseBills {
		if existing.BillNo == bill.BillNo {
			return nil, store.ErrConflict
		}
	}
	bill.ID = s.st.newID()
	bill.Items = slices.Clone(bill.Items)
	bill.CreatedAt = time.Now().UTC()
	s.st.purchaseBills[bill.ID] = bill
	return &bill, nil
}

func (s *Store) GetPurchaseBill(_ context.Context, id int64) (*domain.PurchaseBill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bill, ok := s.st.purchaseBills[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	bill.Items = slices.Clone(bill.Items)
	return &bill, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.st.auditLogs = append(s.st.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AuditLog, 0, 64)
	for _, entry := range s.st.auditLogs {
		if entry.CreatedAt.Before(from) || !entry.CreatedAt.Before(to) {
			continue
		}
		result = append(result, entry)
	}

	slices.SortFunc(result, func(a, b domain.AuditLog) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidTransaction
	}
	if _, exists := s.st.users[username]; exists {
		return store.ErrConflict
	}
	user.Username = username
	if user.Role == "" {
		user.Role = "staff"
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true
	s.st.users[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := slices.Collect(maps.Values(s.st.users))
	slices.SortFunc(users, func(a, b domain.UserAccount) int { return strings.Compare(a.Username, b.Username) })
	return users, nil
}

func cloneID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

var _ store.Repository = (*Store)(nil)
