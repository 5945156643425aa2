package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/amjewellery633-lang/AM-JEWEL-ERP/internal/domain"
)

// RateCache holds published metal rates keyed by metal and target date.
type RateCache interface {
	Get(ctx context.Context, key string) (*domain.MetalRate, bool, error)
	Set(ctx context.Context, key string, value *domain.MetalRate, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

func RateKey(metal domain.MetalType, date time.Time) string {
	return fmt.Sprintf("rate:%s:%s", metal, date.UTC().Format("2006-01-02"))
}

type NoopRateCache struct{}

func (NoopRateCache) Get(_ context.Context, _ string) (*domain.MetalRate, bool, error) {
	return nil, false, nil
}

func (NoopRateCache) Set(_ context.Context, _ string, _ *domain.MetalRate, _ time.Duration) error {
	return nil
}

func (NoopRateCache) Delete(_ context.Context, _ string) error {
	return nil
}
