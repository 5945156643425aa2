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
	"github.com/amjewellery633-lang/AM-JEWEL-ERP/internal/pricing"
	"github.com/amjewellery633-lang/AM-JEWEL-ERP/internal/store"
	"github.com/amjewellery633-lang/AM-JEWEL-ERP/internal/xid"
)

const (
	SaleBillPrefix     = "AM-SALE"
	PurchaseBillPrefix = "AM-PURCHASE"

	dateLayout = "2006-01-02"
)

var (
	DefaultSaleGSTPercent     = decimal.NewFromInt(3)
	DefaultPurchaseGSTPercent = decimal.NewFromInt(18)
)

// Options tunes a Service. Zero GST percentages fall back to the defaults.
type Options struct {
	SaleGSTPercent     decimal.Decimal
	PurchaseGSTPercent decimal.Decimal
	// Now is the clock used for bill, booking and payment dates.
	Now func() time.Time
}

type Service struct {
	repo        store.Repository
	resolver    *pricing.Resolver
	saleGST     decimal.Decimal
	purchaseGST decimal.Decimal
	now         func() time.Time
}

func New(repo store.Repository, resolver *pricing.Resolver, opts Options) *Service {
	if resolver == nil {
		resolver = pricing.NewResolver(repo, nil, 0)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.SaleGSTPercent.IsZero() {
		opts.SaleGSTPercent = DefaultSaleGSTPercent
	}
	if opts.PurchaseGSTPercent.IsZero() {
		opts.PurchaseGSTPercent = DefaultPurchaseGSTPercent
	}
	return &Service{
		repo:        repo,
		resolver:    resolver,
		saleGST:     opts.SaleGSTPercent,
		purchaseGST: opts.PurchaseGSTPercent,
		now:         opts.Now,
	}
}

func (s *Service) today() time.Time {
	return store.DateOnly(s.now())
}

func (s *Service) FindCustomers(ctx context.Context, phone string) ([]domain.Customer, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, invalid("phone", "is required")
	}
	return s.repo.FindCustomersByPhone(ctx, phone)
}

func (s *Service) CreateCustomer(ctx context.Context, actor domain.Actor, req domain.CustomerCreateRequest) (domain.Customer, error) {
	customer, err := customerFromRequest(req)
	if err != nil {
		return domain.Customer{}, err
	}
	created, err := s.repo.CreateCustomer(ctx, customer)
	if err != nil {
		return domain.Customer{}, err
	}
	s.logAudit(ctx, actor, "customer_create", "customer", fmt.Sprint(created.ID), "phone="+created.Phone)
	return *created, nil
}

func customerFromRequest(req domain.CustomerCreateRequest) (domain.Customer, error) {
	customer := domain.Customer{
		Name:    strings.TrimSpace(req.Name),
		Phone:   strings.TrimSpace(req.Phone),
		Email:   strings.TrimSpace(req.Email),
		Address: strings.TrimSpace(req.Address),
		Notes:   strings.TrimSpace(req.Notes),
	}
	if customer.Name == "" {
		return domain.Customer{}, invalid("customer.name", "is required")
	}
	if customer.Phone == "" {
		return domain.Customer{}, invalid("customer.phone", "is required")
	}
	return customer, nil
}

// PublishRate records the daily rate for a metal.
func (s *Service) PublishRate(ctx context.Context, actor domain.Actor, req domain.MetalRateRequest) (domain.MetalRate, error) {
	if actor.Role != "admin" {
		return domain.MetalRate{}, ErrForbidden
	}
	if !req.MetalType.Valid() {
		return domain.MetalRate{}, invalid("metal_type", "unknown metal type")
	}
	if !req.RatePerGram.IsPositive() {
		return domain.MetalRate{}, invalid("rate_per_gram", "must be greater than zero")
	}
	date, err := parseDate(req.EffectiveDate, s.today())
	if err != nil {
		return domain.MetalRate{}, invalid("effective_date", "must be YYYY-MM-DD")
	}

	rate := domain.MetalRate{MetalType: req.MetalType, EffectiveDate: date, RatePerGram: req.RatePerGram}
	if err := s.repo.UpsertMetalRate(ctx, rate); err != nil {
		return domain.MetalRate{}, err
	}
	s.resolver.Forget(ctx, rate.MetalType, date)
	s.logAudit(ctx, actor, "rate_publish", "metal_rate", string(rate.MetalType), fmt.Sprintf("date=%s,rate=%s", date.Format(dateLayout), rate.RatePerGram))
	return rate, nil
}

// RateBoard resolves every metal's rate for a date, with fallback, as the
// billing screen shows it.
func (s *Service) RateBoard(ctx context.Context, date string) ([]pricing.Resolution, error) {
	day, err := parseDate(date, s.today())
	if err != nil {
		return nil, invalid("date", "must be YYYY-MM-DD")
	}
	session := s.resolver.NewSession(day)
	if err := session.Prefetch(ctx, domain.MetalTypes...); err != nil {
		return nil, err
	}
	board := make([]pricing.Resolution, 0, len(domain.MetalTypes))
	for _, metal := range domain.MetalTypes {
		res, err := session.Rate(ctx, metal)
		if err != nil {
			return nil, err
		}
		board = append(board, res)
	}
	return board, nil
}

func (s *Service) ResolveRate(ctx context.Context, metal domain.MetalType, date string) (pricing.Resolution, error) {
	day, err := parseDate(date, s.today())
	if err != nil {
		return pricing.Resolution{}, invalid("date", "must be YYYY-MM-DD")
	}
	res, err := s.resolver.Published(ctx, metal, day)
	if errors.Is(err, pricing.ErrUnknownMetal) {
		return pricing.Resolution{}, invalid("metal_type", "unknown metal type")
	}
	return res, err
}

func (s *Service) CreateInventoryItem(ctx context.Context, actor domain.Actor, item domain.InventoryItem) (domain.InventoryItem, error) {
	if actor.Role != "admin" {
		return domain.InventoryItem{}, ErrForbidden
	}
	item.Barcode = strings.TrimSpace(item.Barcode)
	item.ItemName = strings.TrimSpace(item.ItemName)
	if item.Barcode == "" {
		return domain.InventoryItem{}, invalid("barcode", "is required")
	}
	if item.ItemName == "" {
		return domain.InventoryItem{}, invalid("item_name", "is required")
	}
	if item.MetalType != "" && !item.MetalType.Valid() {
		return domain.InventoryItem{}, invalid("metal_type", "unknown metal type")
	}
	if item.Weight.IsNegative() || item.MakingCharges.IsNegative() {
		return domain.InventoryItem{}, invalid("weight", "weight and making charges cannot be negative")
	}
	if item.HSNCode == "" {
		item.HSNCode = domain.DefaultItemHSN
	}

	created, err := s.repo.CreateInventoryItem(ctx, item)
	if err != nil {
		return domain.InventoryItem{}, err
	}
	s.logAudit(ctx, actor, "inventory_create", "inventory_item", created.Barcode, "name="+created.ItemName)
	return *created, nil
}

func (s *Service) ListInventoryItems(ctx context.Context) ([]domain.InventoryItem, error) {
	return s.repo.ListInventoryItems(ctx)
}

// LookupBarcode reports a miss as found=false rather than an error.
func (s *Service) LookupBarcode(ctx context.Context, barcode string) (*domain.InventoryItem, bool, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return nil, false, nil
	}
	item, err := s.repo.GetInventoryItemByBarcode(ctx, barcode)
	if errors.Is(err, store.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return item, true, nil
}

func (s *Service) ListAuditLogs(ctx context.Context, actor domain.Actor, date string, limit int) ([]domain.AuditLog, error) {
	if actor.Role != "admin" {
		return nil, ErrForbidden
	}
	day, err := parseDate(date, s.today())
	if err != nil {
		return nil, invalid("date", "must be YYYY-MM-DD")
	}
	return s.repo.ListAuditLogs(ctx, day, day.Add(24*time.Hour), limit)
}

func (s *Service) logAudit(ctx context.Context, actor domain.Actor, action string, entityType string, entityID string, detail string) {
	if actor.Username == "" {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     s.now().UTC(),
	}); err != nil {
		log.Printf("[audit] WARN: failed to write audit log action=%s entity=%s/%s: %v", action, entityType, entityID, err)
	}
}

func parseDate(value string, fallback time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, err
	}
	return parsed, nil
}

func clampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
