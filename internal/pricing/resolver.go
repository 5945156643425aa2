package pricing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/amjewellery633-lang/AM-JEWEL-ERP/internal/cache"
	"github.com/amjewellery633-lang/AM-JEWEL-ERP/internal/domain"
	"github.com/amjewellery633-lang/AM-JEWEL-ERP/internal/store"
)

type Source string

const (
	SourceManual     Source = "manual"
	SourceToday      Source = "today"
	SourcePrevious   Source = "previous"
	SourceUnresolved Source = "unresolved"
)

type Resolution struct {
	Metal         domain.MetalType `json:"metal_type"`
	Rate          decimal.Decimal  `json:"rate_per_gram"`
	Source        Source           `json:"source"`
	EffectiveDate *time.Time       `json:"effective_date,omitempty"`
}

func (r Resolution) Resolved() bool {
	return r.Source != SourceUnresolved
}

// RateReader is the slice of store.Repository the resolver needs.
type RateReader interface {
	GetMetalRate(ctx context.Context, metal domain.MetalType, date time.Time) (*domain.MetalRate, error)
	GetLatestMetalRateBefore(ctx context.Context, metal domain.MetalType, date time.Time) (*domain.MetalRate, error)
}

type Resolver struct {
	rates    RateReader
	cache    cache.RateCache
	cacheTTL time.Duration
}

func NewResolver(rates RateReader, rateCache cache.RateCache, cacheTTL time.Duration) *Resolver {
	if rateCache == nil {
		rateCache = cache.NoopRateCache{}
	}
	return &Resolver{rates: rates, cache: rateCache, cacheTTL: cacheTTL}
}

// Resolve returns the rate for one line or exchange entry. A positive manual
// rate is used verbatim; otherwise the published rate for date applies.
func (r *Resolver) Resolve(ctx context.Context, metal domain.MetalType, manual decimal.Decimal, date time.Time) (Resolution, error) {
	if manual.IsPositive() {
		return Resolution{Metal: metal, Rate: manual, Source: SourceManual}, nil
	}
	return r.Published(ctx, metal, date)
}

// Published looks up the rate published for date, falling back to the most
// recent earlier rate. A metal with no rate at all resolves to zero.
func (r *Resolver) Published(ctx context.Context, metal domain.MetalType, date time.Time) (Resolution, error) {
	if !metal.Valid() {
		return Resolution{}, fmt.Errorf("%w: %q", ErrUnknownMetal, metal)
	}
	day := store.DateOnly(date)
	key := cache.RateKey(metal, day)

	cached, ok, err := r.cache.Get(ctx, key)
	if err != nil {
		log.Printf("[rates] WARN: cache read %s failed: %v", key, err)
	} else if ok {
		return fromPublished(metal, day, cached), nil
	}

	rate, err := r.rates.GetMetalRate(ctx, metal, day)
	if errors.Is(err, store.ErrNotFound) {
		rate, err = r.rates.GetLatestMetalRateBefore(ctx, metal, day)
	}
	if errors.Is(err, store.ErrNotFound) || (err == nil && !rate.RatePerGram.IsPositive()) {
		return Resolution{Metal: metal, Rate: decimal.Zero, Source: SourceUnresolved}, nil
	}
	if err != nil {
		return Resolution{}, fmt.Errorf("resolve %s rate: %w", metal, err)
	}

	// A fallback would go stale once a rate between the two days is published.
	if store.DateOnly(rate.EffectiveDate).Equal(day) {
		if err := r.cache.Set(ctx, key, rate, r.cacheTTL); err != nil {
			log.Printf("[rates] WARN: cache write %s failed: %v", key, err)
		}
	}
	return fromPublished(metal, day, rate), nil
}

// Forget drops the cached lookup for (metal, date) after a rate is published.
// Only exact-day rates are cached, so no other key can hold the old value.
func (r *Resolver) Forget(ctx context.Context, metal domain.MetalType, date time.Time) {
	key := cache.RateKey(metal, store.DateOnly(date))
	if err := r.cache.Delete(ctx, key); err != nil {
		log.Printf("[rates] WARN: cache delete %s failed: %v", key, err)
	}
}

func fromPublished(metal domain.MetalType, day time.Time, rate *domain.MetalRate) Resolution {
	effective := store.DateOnly(rate.EffectiveDate)
	source := SourcePrevious
	if effective.Equal(day) {
		source = SourceToday
	}
	return Resolution{
		Metal:         metal,
		Rate:          rate.RatePerGram,
		Source:        source,
		EffectiveDate: &effective,
	}
}
