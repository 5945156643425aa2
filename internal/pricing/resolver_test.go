package pricing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/amjewellery633-lang/AM-JEWEL-ERP/internal/cache"
	"github.com/amjewellery633-lang/AM-JEWEL-ERP/internal/domain"
	"github.com/amjewellery633-lang/AM-JEWEL-ERP/internal/store"
)

type fakeRates struct {
	mu    sync.Mutex
	rates []domain.MetalRate
	calls int
	err   error
}

func (f *fakeRates) GetMetalRate(_ context.Context, metal domain.MetalType, date time.Time) (*domain.MetalRate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	for _, rate := range f.rates {
		if rate.MetalType == metal && rate.EffectiveDate.Equal(date) {
			found := rate
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeRates) GetLatestMetalRateBefore(_ context.Context, metal domain.MetalType, date time.Time) (*domain.MetalRate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var best *domain.MetalRate
	for _, rate := range f.rates {
		if rate.MetalType != metal || !rate.EffectiveDate.Before(date) {
			continue
		}
		if best == nil || rate.EffectiveDate.After(best.EffectiveDate) {
			found := rate
			best = &found
		}
	}
	if best == nil {
		return nil, store.ErrNotFound
	}
	return best, nil
}

type mapCache struct {
	mu      sync.Mutex
	entries map[string]domain.MetalRate
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string]domain.MetalRate)}
}

func (c *mapCache) Get(_ context.Context, key string) (*domain.MetalRate, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rate, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	return &rate, true, nil
}

func (c *mapCache) Set(_ context.Context, key string, value *domain.MetalRate, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = *value
	return nil
}

func (c *mapCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seededRates() *fakeRates {
	return &fakeRates{rates: []domain.MetalRate{
		{MetalType: domain.MetalGold916, EffectiveDate: day(2024, 3, 10), RatePerGram: decimal.NewFromInt(5900)},
		{MetalType: domain.MetalGold916, EffectiveDate: day(2024, 3, 12), RatePerGram: decimal.NewFromInt(6000)},
		{MetalType: domain.MetalGold916, EffectiveDate: day(2024, 3, 15), RatePerGram: decimal.NewFromInt(6100)},
		{MetalType: domain.MetalSilver92, EffectiveDate: day(2024, 3, 1), RatePerGram: decimal.NewFromInt(80)},
	}}
}

func TestResolveManualRateWins(t *testing.T) {
	resolver := NewResolver(seededRates(), nil, time.Minute)

	res, err := resolver.Resolve(context.Background(), domain.MetalGold916, decimal.NewFromInt(6500), day(2024, 3, 15))
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if res.Source != SourceManual || !res.Rate.Equal(decimal.NewFromInt(6500)) {
		t.Fatalf("expected manual 6500, got %+v", res)
	}
}

func TestResolveFallbackOrder(t *testing.T) {
	resolver := NewResolver(seededRates(), nil, time.Minute)
	ctx := context.Background()

	cases := []struct {
		name   string
		metal  domain.MetalType
		date   time.Time
		want   int64
		source Source
	}{
		{"today", domain.MetalGold916, day(2024, 3, 12), 6000, SourceToday},
		{"most recent prior", domain.MetalGold916, day(2024, 3, 14), 6000, SourcePrevious},
		{"prior skips older", domain.MetalGold916, day(2024, 3, 20), 6100, SourcePrevious},
		{"older metal", domain.MetalSilver92, day(2024, 3, 15), 80, SourcePrevious},
		{"nothing published", domain.MetalSelamSilver, day(2024, 3, 15), 0, SourceUnresolved},
		{"before first rate", domain.MetalGold916, day(2024, 3, 1), 0, SourceUnresolved},
	}
	for _, tc := range cases {
		res, err := resolver.Resolve(ctx, tc.metal, decimal.Zero, tc.date)
		if err != nil {
			t.Fatalf("%s: resolve failed: %v", tc.name, err)
		}
		if res.Source != tc.source || !res.Rate.Equal(decimal.NewFromInt(tc.want)) {
			t.Fatalf("%s: expected %d from %s, got %+v", tc.name, tc.want, tc.source, res)
		}
		if res.Resolved() != (tc.source != SourceUnresolved) {
			t.Fatalf("%s: unexpected resolved flag", tc.name)
		}
	}
}

func TestResolveIgnoresTimeOfDay(t *testing.T) {
	resolver := NewResolver(seededRates(), nil, time.Minute)
	res, err := resolver.Published(context.Background(), domain.MetalGold916, time.Date(2024, 3, 12, 17, 45, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if res.Source != SourceToday {
		t.Fatalf("expected today's rate, got %+v", res)
	}
}

func TestResolveRejectsUnknownMetal(t *testing.T) {
	resolver := NewResolver(seededRates(), nil, time.Minute)
	if _, err := resolver.Published(context.Background(), "platinum", day(2024, 3, 12)); !errors.Is(err, ErrUnknownMetal) {
		t.Fatalf("expected ErrUnknownMetal, got %v", err)
	}
}

func TestResolvePropagatesStoreFailure(t *testing.T) {
	rates := seededRates()
	rates.err = errors.New("connection refused")
	resolver := NewResolver(rates, nil, time.Minute)
	if _, err := resolver.Published(context.Background(), domain.MetalGold916, day(2024, 3, 12)); err == nil {
		t.Fatalf("expected store failure to surface")
	}
}

func TestResolverUsesCacheAndForget(t *testing.T) {
	rates := seededRates()
	rateCache := newMapCache()
	resolver := NewResolver(rates, rateCache, time.Minute)
	ctx := context.Background()
	target := day(2024, 3, 12)

	for i := 0; i < 3; i++ {
		if _, err := resolver.Published(ctx, domain.MetalGold916, target); err != nil {
			t.Fatalf("resolve failed: %v", err)
		}
	}
	if rates.calls != 1 {
		t.Fatalf("expected one store lookup, got %d", rates.calls)
	}
	if _, ok, _ := rateCache.Get(ctx, cache.RateKey(domain.MetalGold916, target)); !ok {
		t.Fatalf("expected cached entry")
	}

	resolver.Forget(ctx, domain.MetalGold916, target)
	if _, err := resolver.Published(ctx, domain.MetalGold916, target); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if rates.calls != 2 {
		t.Fatalf("expected a fresh lookup after forget, got %d calls", rates.calls)
	}
}

func TestSessionMemoizesAndPrefetches(t *testing.T) {
	rates := seededRates()
	session := NewResolver(rates, nil, time.Minute).NewSession(day(2024, 3, 15))
	ctx := context.Background()

	if err := session.Prefetch(ctx, domain.MetalGold916, domain.MetalSilver92, domain.MetalSelamSilver); err != nil {
		t.Fatalf("prefetch failed: %v", err)
	}
	callsAfterPrefetch := rates.calls

	res, err := session.Resolve(ctx, domain.MetalSilver92, decimal.Zero)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if !res.Rate.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("expected silver 80, got %s", res.Rate)
	}
	if rates.calls != callsAfterPrefetch {
		t.Fatalf("expected memoized lookup, store calls went %d -> %d", callsAfterPrefetch, rates.calls)
	}

	manual, err := session.Resolve(ctx, domain.MetalSilver92, decimal.NewFromInt(85))
	if err != nil || manual.Source != SourceManual {
		t.Fatalf("expected manual override, got %+v err=%v", manual, err)
	}
}

func TestSessionPrefetchFailsOnUnknownMetal(t *testing.T) {
	session := NewResolver(seededRates(), nil, time.Minute).NewSession(day(2024, 3, 15))
	if err := session.Prefetch(context.Background(), domain.MetalGold, "bronze"); !errors.Is(err, ErrUnknownMetal) {
		t.Fatalf("expected ErrUnknownMetal, got %v", err)
	}
}

func TestResolverDoesNotCacheFallback(t *testing.T) {
	rates := seededRates()
	rateCache := newMapCache()
	resolver := NewResolver(rates, rateCache, time.Hour)
	ctx := context.Background()
	target := day(2024, 3, 20)

	res, err := resolver.Published(ctx, domain.MetalGold916, target)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if res.Source != SourcePrevious || !res.Rate.Equal(decimal.NewFromInt(6100)) {
		t.Fatalf("expected previous 6100, got %+v", res)
	}
	if _, ok, _ := rateCache.Get(ctx, cache.RateKey(domain.MetalGold916, target)); ok {
		t.Fatalf("fallback rate should not be cached under the requested day")
	}

	rates.mu.Lock()
	rates.rates = append(rates.rates, domain.MetalRate{MetalType: domain.MetalGold916, EffectiveDate: day(2024, 3, 18), RatePerGram: decimal.NewFromInt(6250)})
	rates.mu.Unlock()
	resolver.Forget(ctx, domain.MetalGold916, day(2024, 3, 18))

	res, err = resolver.Published(ctx, domain.MetalGold916, target)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if !res.Rate.Equal(decimal.NewFromInt(6250)) {
		t.Fatalf("expected the newly published 6250, got %+v", res)
	}
}
