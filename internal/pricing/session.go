package pricing

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/amjewellery633-lang/AM-JEWEL-ERP/internal/domain"
)

// Session memoizes published rates per metal for one editing session.
// Rates already copied onto lines are never revisited.
type Session struct {
	resolver *Resolver
	date     time.Time

	mu        sync.Mutex
	published map[domain.MetalType]Resolution
}

func (r *Resolver) NewSession(date time.Time) *Session {
	return &Session{
		resolver:  r,
		date:      date,
		published: make(map[domain.MetalType]Resolution),
	}
}

func (s *Session) Date() time.Time {
	return s.date
}

func (s *Session) Rate(ctx context.Context, metal domain.MetalType) (Resolution, error) {
	s.mu.Lock()
	if res, ok := s.published[metal]; ok {
		s.mu.Unlock()
		return res, nil
	}
	s.mu.Unlock()

	res, err := s.resolver.Published(ctx, metal, s.date)
	if err != nil {
		return Resolution{}, err
	}

	s.mu.Lock()
	s.published[metal] = res
	s.mu.Unlock()
	return res, nil
}

func (s *Session) Resolve(ctx context.Context, metal domain.MetalType, manual decimal.Decimal) (Resolution, error) {
	if manual.IsPositive() {
		return Resolution{Metal: metal, Rate: manual, Source: SourceManual}, nil
	}
	return s.Rate(ctx, metal)
}

// Prefetch resolves the given metals concurrently.
func (s *Session) Prefetch(ctx context.Context, metals ...domain.MetalType) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, metal := range metals {
		g.Go(func() error {
			_, err := s.Rate(gctx, metal)
			return err
		})
	}
	return g.Wait()
}
