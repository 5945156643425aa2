package lookup

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/amjewellery633-lang/AM-JEWEL-ERP/internal/domain"
)

const DefaultDebounce = 300 * time.Millisecond

type Finder interface {
	LookupBarcode(ctx context.Context, barcode string) (*domain.InventoryItem, bool, error)
}

// Searcher serves barcode lookups for one operator. Only the most recent
// call's result is delivered; earlier calls come back marked stale.
type Searcher struct {
	finder   Finder
	debounce time.Duration
	seq      atomic.Uint64
}

func NewSearcher(finder Finder, debounce time.Duration) *Searcher {
	return &Searcher{finder: finder, debounce: debounce}
}

func (s *Searcher) Lookup(ctx context.Context, barcode string) (domain.BarcodeLookupResponse, error) {
	ticket := s.seq.Add(1)
	barcode = strings.TrimSpace(barcode)

	if s.debounce > 0 {
		timer := time.NewTimer(s.debounce)
		select {
		case <-ctx.Done():
			timer.Stop()
			return domain.BarcodeLookupResponse{}, ctx.Err()
		case <-timer.C:
		}
	}
	if s.seq.Load() != ticket {
		return domain.BarcodeLookupResponse{Stale: true}, nil
	}
	if barcode == "" {
		return domain.BarcodeLookupResponse{}, nil
	}

	item, found, err := s.finder.LookupBarcode(ctx, barcode)
	if s.seq.Load() != ticket {
		return domain.BarcodeLookupResponse{Stale: true}, nil
	}
	if err != nil {
		return domain.BarcodeLookupResponse{}, err
	}
	return domain.BarcodeLookupResponse{Found: found, Item: item}, nil
}

// Pool keeps one Searcher per operator so that one cashier's typing never
// supersedes another's.
type Pool struct {
	finder   Finder
	debounce time.Duration

	mu        sync.Mutex
	searchers map[string]*Searcher
}

func NewPool(finder Finder, debounce time.Duration) *Pool {
	return &Pool{finder: finder, debounce: debounce, searchers: make(map[string]*Searcher)}
}

func (p *Pool) For(operator string) *Searcher {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s, ok := p.searchers[operator]; ok {
		return s
	}
	s := NewSearcher(p.finder, p.debounce)
	p.searchers[operator] = s
	return s
}
