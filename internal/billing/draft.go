package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/amjewellery633-lang/AM-JEWEL-ERP/internal/domain"
	"github.com/amjewellery633-lang/AM-JEWEL-ERP/internal/exchange"
	"github.com/amjewellery633-lang/AM-JEWEL-ERP/internal/pricing"
	"github.com/amjewellery633-lang/AM-JEWEL-ERP/internal/totals"
)

var (
	ErrNoSuchItem     = errors.New("no such item")
	ErrNoSuchExchange = errors.New("no such exchange row")
)

// Draft is an operator's working copy of a sale. Line totals and the
// transaction total are kept current after every edit.
type Draft struct {
	session   *pricing.Session
	header    domain.TransactionDraft
	items     []domain.DraftItem
	exchanges []domain.DraftExchange
	tracker   *totals.Tracker
}

// New starts an empty draft priced against session's date.
func New(session *pricing.Session) *Draft {
	return &Draft{session: session, tracker: totals.NewAuto(decimal.Zero)}
}

// Load resumes a saved transaction. Its total starts locked at the stored
// value; exchange rows keep their persisted ids.
func Load(session *pricing.Session, saved domain.TransactionDraft) *Draft {
	d := &Draft{session: session, header: saved}
	d.items = append(d.items, saved.Items...)
	d.exchanges = append(d.exchanges, saved.Exchanges...)
	for i := range d.exchanges {
		if d.exchanges[i].PersistedID == nil && d.exchanges[i].DraftKey == "" {
			d.exchanges[i].DraftKey = uuid.NewString()
		}
	}
	d.tracker = totals.LoadPersisted(saved.Total, pricing.SumLines(d.items))
	return d
}

// ApplyError locates the request row that could not be applied. Field is
// "items", "exchanges" or "total"; Index is -1 for the total.
type ApplyError struct {
	Field string
	Index int
	Err   error
}

func (e *ApplyError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("%s[%d]: %v", e.Field, e.Index, e.Err)
}

func (e *ApplyError) Unwrap() error {
	return e.Err
}

// Apply brings the draft in line with a full request from the billing form.
// Lines are edited in place by position; exchange rows are matched by
// persisted id, rows the request drops are removed, and the result follows
// the request's row order. Line totals are always recomputed.
func (d *Draft) Apply(ctx context.Context, req domain.TransactionDraft) error {
	d.header = req

	for i, item := range req.Items {
		var err error
		if i < len(d.items) {
			err = d.UpdateItem(ctx, i, item)
		} else {
			_, err = d.AddItem(ctx, item)
		}
		if err != nil {
			return &ApplyError{Field: "items", Index: i, Err: err}
		}
	}
	for len(d.items) > len(req.Items) {
		if err := d.RemoveItem(len(d.items) - 1); err != nil {
			return &ApplyError{Field: "items", Index: len(d.items) - 1, Err: err}
		}
	}

	if err := d.applyExchanges(ctx, req.Exchanges); err != nil {
		return err
	}

	if req.TotalLocked {
		if err := d.SetManualTotal(req.Total); err != nil {
			return &ApplyError{Field: "total", Index: -1, Err: err}
		}
	} else {
		d.Unlock()
	}
	return nil
}

func (d *Draft) applyExchanges(ctx context.Context, rows []domain.DraftExchange) error {
	kept := make(map[string]bool, len(rows))
	for i, row := range rows {
		if row.PersistedID == nil {
			continue
		}
		key := fmt.Sprint(*row.PersistedID)
		if d.exchangeIndex(key) < 0 {
			return &ApplyError{Field: "exchanges", Index: i, Err: exchange.ErrForeignRow}
		}
		if kept[key] {
			return &ApplyError{Field: "exchanges", Index: i, Err: exchange.ErrDuplicateRow}
		}
		kept[key] = true
	}

	for _, current := range d.Exchanges() {
		if current.PersistedID == nil {
			continue
		}
		if key := fmt.Sprint(*current.PersistedID); !kept[key] {
			if err := d.RemoveExchange(key); err != nil {
				return err
			}
		}
	}
	// Unsaved rows from an earlier session are re-keyed.
	for _, current := range d.Exchanges() {
		if current.PersistedID == nil {
			if err := d.RemoveExchange(current.DraftKey); err != nil {
				return err
			}
		}
	}

	keys := make([]string, len(rows))
	for i, row := range rows {
		if row.PersistedID != nil {
			keys[i] = fmt.Sprint(*row.PersistedID)
			if err := d.UpdateExchange(ctx, keys[i], row); err != nil {
				return &ApplyError{Field: "exchanges", Index: i, Err: err}
			}
			continue
		}
		row.DraftKey = ""
		key, err := d.AddExchange(ctx, row)
		if err != nil {
			return &ApplyError{Field: "exchanges", Index: i, Err: err}
		}
		keys[i] = key
	}

	ordered := make([]domain.DraftExchange, len(keys))
	for i, key := range keys {
		ordered[i] = d.exchanges[d.exchangeIndex(key)]
	}
	d.exchanges = ordered
	return nil
}

// AddItem appends a line. A line without a rate takes the published rate
// for its metal.
func (d *Draft) AddItem(ctx context.Context, item domain.DraftItem) (int, error) {
	if err := d.price(ctx, &item, true); err != nil {
		return 0, err
	}
	d.items = append(d.items, item)
	d.tracker.ItemsChanged(pricing.SumLines(d.items))
	return len(d.items) - 1, nil
}

// UpdateItem replaces a line's inputs and recomputes it. Changing the metal
// re-resolves the rate unless a rate was entered with the change.
func (d *Draft) UpdateItem(ctx context.Context, index int, item domain.DraftItem) error {
	if index < 0 || index >= len(d.items) {
		return ErrNoSuchItem
	}
	metalChanged := item.MetalType != d.items[index].MetalType
	if metalChanged && item.RatePerGram.Equal(d.items[index].RatePerGram) {
		item.RatePerGram = decimal.Zero
	}
	if err := d.price(ctx, &item, metalChanged || !item.RatePerGram.IsPositive()); err != nil {
		return err
	}
	d.items[index] = item
	d.tracker.ItemsChanged(pricing.SumLines(d.items))
	return nil
}

func (d *Draft) RemoveItem(index int) error {
	if index < 0 || index >= len(d.items) {
		return ErrNoSuchItem
	}
	d.items = append(d.items[:index], d.items[index+1:]...)
	d.tracker.ItemsChanged(pricing.SumLines(d.items))
	return nil
}

func (d *Draft) price(ctx context.Context, item *domain.DraftItem, resolve bool) error {
	if item.MetalType != "" && !item.MetalType.Valid() {
		return &pricing.LineError{Field: "metal_type", Err: pricing.ErrUnknownMetal}
	}
	if resolve && !item.RatePerGram.IsPositive() && item.MetalType != "" {
		res, err := d.session.Rate(ctx, item.MetalType)
		if err != nil {
			return err
		}
		item.RatePerGram = res.Rate
	}
	item.ItemName = strings.TrimSpace(item.ItemName)
	item.HSNCode = strings.TrimSpace(item.HSNCode)
	if item.HSNCode == "" {
		item.HSNCode = domain.DefaultItemHSN
	}
	item.Weight = pricing.RoundWeight(item.Weight)
	// Incomplete lines count as zero until weight and rate are entered.
	value, err := pricing.LineValue(item.Weight, item.RatePerGram, item.MakingCharges)
	if err != nil {
		item.LineTotal = decimal.Zero
		return nil
	}
	item.LineTotal = value
	return nil
}

// AddExchange appends an old-gold row and returns its draft key. A row
// without a rate takes the gold rate.
func (d *Draft) AddExchange(ctx context.Context, row domain.DraftExchange) (string, error) {
	if err := d.priceExchange(ctx, &row); err != nil {
		return "", err
	}
	if row.PersistedID == nil && row.DraftKey == "" {
		row.DraftKey = uuid.NewString()
	}
	d.exchanges = append(d.exchanges, row)
	return row.DraftKey, nil
}

// UpdateExchange edits the row identified by key, which is a draft key or
// the decimal form of a persisted id.
func (d *Draft) UpdateExchange(ctx context.Context, key string, row domain.DraftExchange) error {
	index := d.exchangeIndex(key)
	if index < 0 {
		return ErrNoSuchExchange
	}
	current := d.exchanges[index]
	row.PersistedID = current.PersistedID
	row.DraftKey = current.DraftKey
	if err := d.priceExchange(ctx, &row); err != nil {
		return err
	}
	d.exchanges[index] = row
	return nil
}

func (d *Draft) RemoveExchange(key string) error {
	index := d.exchangeIndex(key)
	if index < 0 {
		return ErrNoSuchExchange
	}
	d.exchanges = append(d.exchanges[:index], d.exchanges[index+1:]...)
	return nil
}

func (d *Draft) exchangeIndex(key string) int {
	for i, row := range d.exchanges {
		if row.DraftKey != "" && row.DraftKey == key {
			return i
		}
		if row.PersistedID != nil && fmt.Sprint(*row.PersistedID) == key {
			return i
		}
	}
	return -1
}

func (d *Draft) priceExchange(ctx context.Context, row *domain.DraftExchange) error {
	row.Weight = pricing.RoundWeight(row.Weight)
	if !row.RatePerGram.IsPositive() {
		res, err := d.session.Rate(ctx, exchange.RateMetal)
		if err != nil {
			return err
		}
		row.RatePerGram = res.Rate
	}
	value, err := pricing.MetalValue(row.Weight, row.RatePerGram)
	if err != nil {
		row.TotalValue = decimal.Zero
		return nil
	}
	row.TotalValue = value
	return nil
}

// SetManualTotal pins the pre-tax total.
func (d *Draft) SetManualTotal(total decimal.Decimal) error {
	return d.tracker.SetManual(total)
}

func (d *Draft) Unlock() {
	d.tracker.Unlock()
}

func (d *Draft) Locked() bool {
	return d.tracker.Locked()
}

func (d *Draft) Total() decimal.Decimal {
	return d.tracker.Total()
}

func (d *Draft) LineSum() decimal.Decimal {
	return d.tracker.LineSum()
}

func (d *Draft) ExchangeCredit() decimal.Decimal {
	return exchange.Credit(d.exchanges)
}

// NetPayable is the pre-tax total less exchange credit, never negative.
func (d *Draft) NetPayable() decimal.Decimal {
	net := d.Total().Sub(d.ExchangeCredit())
	if net.IsNegative() {
		return decimal.Zero
	}
	return net
}

func (d *Draft) Items() []domain.DraftItem {
	return append([]domain.DraftItem(nil), d.items...)
}

func (d *Draft) Exchanges() []domain.DraftExchange {
	return append([]domain.DraftExchange(nil), d.exchanges...)
}

// Snapshot returns the draft in the form accepted by the transaction save.
func (d *Draft) Snapshot() domain.TransactionDraft {
	out := d.header
	out.Items = d.Items()
	out.Exchanges = d.Exchanges()
	out.TotalLocked = d.tracker.Locked()
	out.Total = d.tracker.Total()
	return out
}
