package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/amjewellery633-lang/AM-JEWEL-ERP/internal/domain"
	"github.com/amjewellery633-lang/AM-JEWEL-ERP/internal/exchange"
)

// CreateExchange records an old-gold purchase that is not tied to a bill.
func (s *Service) CreateExchange(ctx context.Context, actor domain.Actor, entry domain.ExchangeEntry) (domain.OldGoldExchange, error) {
	record, err := s.standaloneRecord(ctx, nil, entry)
	if err != nil {
		return domain.OldGoldExchange{}, err
	}
	created, err := s.repo.CreateExchange(ctx, record)
	if err != nil {
		return domain.OldGoldExchange{}, err
	}
	s.logAudit(ctx, actor, "exchange_create", "exchange", fmt.Sprint(created.ID), "total="+created.TotalValue.String())
	return *created, nil
}

// UpdateExchange rewrites an exchange row in place. The bill it belongs to,
// if any, does not change.
func (s *Service) UpdateExchange(ctx context.Context, actor domain.Actor, id int64, entry domain.ExchangeEntry) (domain.OldGoldExchange, error) {
	existing, err := s.repo.GetExchange(ctx, id)
	if err != nil {
		return domain.OldGoldExchange{}, err
	}
	record, err := s.standaloneRecord(ctx, &id, entry)
	if err != nil {
		return domain.OldGoldExchange{}, err
	}
	record.BillID = existing.BillID
	record.CreatedAt = existing.CreatedAt

	updated, err := s.repo.UpdateExchange(ctx, record)
	if err != nil {
		return domain.OldGoldExchange{}, err
	}
	s.logAudit(ctx, actor, "exchange_update", "exchange", fmt.Sprint(id), "total="+updated.TotalValue.String())
	return *updated, nil
}

func (s *Service) DeleteExchange(ctx context.Context, actor domain.Actor, id int64) error {
	if err := s.repo.DeleteExchange(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, actor, "exchange_delete", "exchange", fmt.Sprint(id), "")
	return nil
}

func (s *Service) standaloneRecord(ctx context.Context, id *int64, entry domain.ExchangeEntry) (domain.OldGoldExchange, error) {
	row := domain.DraftExchange{
		PersistedID: id,
		Weight:      entry.Weight,
		Purity:      entry.Purity,
		RatePerGram: entry.RatePerGram,
		Particulars: entry.Particulars,
		HSNCode:     entry.HSNCode,
	}
	if !row.RatePerGram.IsPositive() {
		res, err := s.resolver.Published(ctx, exchange.RateMetal, s.today())
		if err != nil {
			return domain.OldGoldExchange{}, err
		}
		row.RatePerGram = res.Rate
	}
	if err := exchange.Validate([]domain.DraftExchange{row}); err != nil {
		return domain.OldGoldExchange{}, exchangeValidation(err)
	}
	return exchange.Record(nil, row)
}

// ListExchanges filters the whole exchange ledger, bill-linked and
// standalone, by date range and a case-insensitive search term.
func (s *Service) ListExchanges(ctx context.Context, req domain.ExchangeListRequest) (domain.ExchangeListResponse, error) {
	filter, err := s.exchangeFilter(req)
	if err != nil {
		return domain.ExchangeListResponse{}, err
	}
	rows, err := s.repo.ListExchanges(ctx, filter.from, filter.to)
	if err != nil {
		return domain.ExchangeListResponse{}, err
	}

	resp := domain.ExchangeListResponse{
		Exchanges:   make([]domain.ExchangeListing, 0, len(rows)),
		TotalWeight: decimal.Zero,
		TotalValue:  decimal.Zero,
	}
	for _, row := range rows {
		row.Particulars, row.HSNCode = exchange.Describe(row.OldGoldExchange)
		if !filter.matches(row) {
			continue
		}
		resp.Exchanges = append(resp.Exchanges, row)
		resp.TotalWeight = resp.TotalWeight.Add(row.Weight)
		resp.TotalValue = resp.TotalValue.Add(row.TotalValue)
	}
	return resp, nil
}

type listFilter struct {
	search string
	from   *time.Time
	to     *time.Time
}

func (s *Service) exchangeFilter(req domain.ExchangeListRequest) (listFilter, error) {
	var filter listFilter
	filter.search = strings.ToLower(strings.TrimSpace(req.Search))
	if value := strings.TrimSpace(req.StartDate); value != "" {
		start, err := time.Parse(dateLayout, value)
		if err != nil {
			return listFilter{}, invalid("start_date", "must be YYYY-MM-DD")
		}
		filter.from = &start
	}
	if value := strings.TrimSpace(req.EndDate); value != "" {
		end, err := time.Parse(dateLayout, value)
		if err != nil {
			return listFilter{}, invalid("end_date", "must be YYYY-MM-DD")
		}
		// inclusive
		end = end.AddDate(0, 0, 1)
		filter.to = &end
	}
	if filter.from != nil && filter.to != nil && !filter.from.Before(*filter.to) {
		return listFilter{}, invalid("end_date", "must not be before start_date")
	}
	return filter, nil
}

func (f listFilter) matches(row domain.ExchangeListing) bool {
	if f.search == "" {
		return true
	}
	for _, field := range []string{row.BillNo, row.CustomerName, row.CustomerPhone, row.Particulars, row.Purity} {
		if strings.Contains(strings.ToLower(field), f.search) {
			return true
		}
	}
	return false
}
