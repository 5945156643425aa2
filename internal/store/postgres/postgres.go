package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/amjewellery633-lang/AM-JEWEL-ERP/internal/domain"
	"github.com/amjewellery633-lang/AM-JEWEL-ERP/internal/store"
	"github.com/amjewellery633-lang/AM-JEWEL-ERP/internal/xid"
)

//go:embed schema.sql
var schemaSQL string

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

type Store struct {
	db *sql.DB
	q  querier
	// bound is set on stores handed out by WithinTx.
	bound bool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, q: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates any missing tables. Statements are idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schemaSQL)
	return err
}

// WithinTx runs fn in one serializable transaction. Calls on an already
// bound store join the outer transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(repo store.Repository) error) error {
	if s.bound {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&Store{db: s.db, q: tx, bound: true}); err != nil {
		return err
	}
	return tx.Commit()
}

// inTx runs a multi-statement write atomically, reusing the bound
// transaction when there is one.
func (s *Store) inTx(ctx context.Context, fn func(q querier) error) error {
	if s.bound {
		return fn(s.q)
	}
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) FindCustomersByPhone(ctx context.Context, phone string) ([]domain.Customer, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, name, phone, email, address, notes
		FROM customers
		WHERE phone = $1
		ORDER BY id
	`, strings.TrimSpace(phone))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 2)
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Address, &c.Notes); err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

func (s *Store) GetCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	var c domain.Customer
	err := s.q.QueryRowContext(ctx, `
		SELECT id, name, phone, email, address, notes
		FROM customers
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Address, &c.Notes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if strings.TrimSpace(customer.Name) == "" || strings.TrimSpace(customer.Phone) == "" {
		return nil, store.ErrInvalidTransaction
	}
	err := s.q.QueryRowContext(ctx, `
		INSERT INTO customers (name, phone, email, address, notes)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id
	`, customer.Name, customer.Phone, customer.Email, customer.Address, customer.Notes).Scan(&customer.ID)
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (s *Store) UpsertMetalRate(ctx context.Context, rate domain.MetalRate) error {
	if !rate.MetalType.Valid() || !rate.RatePerGram.IsPositive() {
		return store.ErrInvalidTransaction
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO metal_rates (metal_type, effective_date, rate_per_gram, updated_at)
		VALUES ($1,$2,$3,now())
		ON CONFLICT (metal_type, effective_date)
		DO UPDATE SET rate_per_gram = EXCLUDED.rate_per_gram, updated_at = now()
	`, string(rate.MetalType), store.DateOnly(rate.EffectiveDate), rate.RatePerGram)
	return err
}

func (s *Store) GetMetalRate(ctx context.Context, metal domain.MetalType, date time.Time) (*domain.MetalRate, error) {
	return s.scanRate(s.q.QueryRowContext(ctx, `
		SELECT metal_type, effective_date, rate_per_gram
		FROM metal_rates
		WHERE metal_type = $1 AND effective_date = $2
	`, string(metal), store.DateOnly(date)))
}

func (s *Store) GetLatestMetalRateBefore(ctx context.Context, metal domain.MetalType, date time.Time) (*domain.MetalRate, error) {
	return s.scanRate(s.q.QueryRowContext(ctx, `
		SELECT metal_type, effective_date, rate_per_gram
		FROM metal_rates
		WHERE metal_type = $1 AND effective_date < $2
		ORDER BY effective_date DESC
		LIMIT 1
	`, string(metal), store.DateOnly(date)))
}

func (s *Store) scanRate(row rowScanner) (*domain.MetalRate, error) {
	var rate domain.MetalRate
	var metal string
	err := row.Scan(&metal, &rate.EffectiveDate, &rate.RatePerGram)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	rate.MetalType = domain.MetalType(metal)
	rate.EffectiveDate = store.DateOnly(rate.EffectiveDate)
	return &rate, nil
}

func (s *Store) ListMetalRates(ctx context.Context, date time.Time) ([]domain.MetalRate, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT metal_type, effective_date, rate_per_gram
		FROM metal_rates
		WHERE effective_date = $1
		ORDER BY metal_type
	`, store.DateOnly(date))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rates := make([]domain.MetalRate, 0, len(domain.MetalTypes))
	for rows.Next() {
		rate, err := s.scanRate(rows)
		if err != nil {
			return nil, err
		}
		rates = append(rates, *rate)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rates, nil
}

func (s *Store) NextBillSequence(ctx context.Context, prefix string, date time.Time) (int, error) {
	var seq int
	err := s.q.QueryRowContext(ctx, `
		INSERT INTO bill_sequences (prefix, bill_day, last_value)
		VALUES ($1,$2,1)
		ON CONFLICT (prefix, bill_day)
		DO UPDATE SET last_value = bill_sequences.last_value + 1
		RETURNING last_value
	`, prefix, store.DateOnly(date)).Scan(&seq)
	return seq, err
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO audit_logs (
			id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, entry.ID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.q.QueryContext(ctx, `
		SELECT id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE created_at >= $1
			AND created_at < $2
		ORDER BY created_at DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.ActorUsername, &entry.ActorRole, &entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidTransaction
	}
	if user.Role == "" {
		user.Role = "staff"
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO app_users (username, password, role, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,now())
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM app_users
		ORDER BY username ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func expectAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}

// mapWriteError turns constraint violations into store sentinels.
func mapWriteError(err error) error {
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return store.ErrConflict
	case isForeignKeyViolation(err):
		return store.ErrInvalidTransaction
	default:
		return err
	}
}

func nullID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func idPtr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	id := v.Int64
	return &id
}

var _ store.Repository = (*Store)(nil)
