package httpapi

import (
	"context"
	"errors"
	"log"
	"slices"
	"strings"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/amjewellery633-lang/AM-JEWEL-ERP/internal/domain"
)

const (
	roleAdmin = "admin"
	roleStaff = "staff"

	tokenIssuer     = "am-jewel-erp"
	defaultTokenTTL = 8 * time.Hour
)

var (
	errBadCredentials = errors.New("invalid credentials")
	errInactive       = errors.New("account is inactive")
)

// UserStore persists staff accounts. Passwords are bcrypt hashes.
type UserStore interface {
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
}

// AuthManager issues and checks staff tokens. Accounts are cached from the
// user store and re-read before every sign-in.
type AuthManager struct {
	secret  []byte
	ttl     time.Duration
	pinHash []byte
	store   UserStore

	mu       sync.RWMutex
	accounts map[string]domain.UserAccount
}

type staffClaims struct {
	jwtlib.RegisteredClaims
	Role string `json:"role"`
}

// NewAuthManager hashes the manager PIN up front. An empty PIN disables
// booking cancellation.
func NewAuthManager(secret string, ttl time.Duration, managerPIN string, store UserStore) *AuthManager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	a := &AuthManager{
		secret:   []byte(secret),
		ttl:      ttl,
		store:    store,
		accounts: make(map[string]domain.UserAccount),
	}
	if pin := strings.TrimSpace(managerPIN); pin != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("[auth] WARN: manager PIN not usable: %v", err)
		}
		a.pinHash = hash
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a.reload(ctx)
	return a
}

func (a *AuthManager) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	a.reload(ctx)
	username := normalizeUsername(req.Username)

	a.mu.RLock()
	account, ok := a.accounts[username]
	a.mu.RUnlock()
	if !ok || req.Password == "" || bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(req.Password)) != nil {
		return domain.LoginResponse{}, errBadCredentials
	}
	if !account.Active {
		return domain.LoginResponse{}, errInactive
	}

	now := time.Now().UTC()
	expiresAt := now.Add(a.ttl)
	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, staffClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   username,
			Issuer:    tokenIssuer,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
		},
		Role: account.Role,
	}).SignedString(a.secret)
	if err != nil {
		return domain.LoginResponse{}, err
	}
	return domain.LoginResponse{
		AccessToken: token,
		Role:        account.Role,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	}, nil
}

func (a *AuthManager) ParseToken(raw string) (domain.Actor, error) {
	claims := &staffClaims{}
	_, err := jwtlib.ParseWithClaims(raw, claims, func(*jwtlib.Token) (any, error) {
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}), jwtlib.WithIssuer(tokenIssuer))
	if err != nil {
		return domain.Actor{}, errors.New("invalid or expired token")
	}
	if claims.Subject == "" {
		return domain.Actor{}, errors.New("invalid token subject")
	}
	return domain.Actor{Username: claims.Subject, Role: claims.Role}, nil
}

// ValidateManagerPIN gates booking cancellation.
func (a *AuthManager) ValidateManagerPIN(pin string) bool {
	pin = strings.TrimSpace(pin)
	if pin == "" || len(a.pinHash) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword(a.pinHash, []byte(pin)) == nil
}

func (a *AuthManager) CreateStaff(ctx context.Context, req domain.StaffCreateRequest) (domain.StaffUser, error) {
	a.reload(ctx)
	username, err := validateStaff(req)
	if err != nil {
		return domain.StaffUser{}, err
	}

	a.mu.RLock()
	_, taken := a.accounts[username]
	a.mu.RUnlock()
	if taken {
		return domain.StaffUser{}, errors.New("username already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.StaffUser{}, errors.New("failed to hash password")
	}
	account := domain.UserAccount{
		Username:  username,
		Password:  string(hash),
		Role:      roleStaff,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if a.store != nil {
		if err := a.store.CreateUser(ctx, account); err != nil {
			return domain.StaffUser{}, err
		}
	}

	a.mu.Lock()
	a.accounts[username] = account
	a.mu.Unlock()
	return staffUser(account), nil
}

// ListStaff returns staff accounts by username; admins are left out.
func (a *AuthManager) ListStaff(ctx context.Context) []domain.StaffUser {
	a.reload(ctx)
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]domain.StaffUser, 0, len(a.accounts))
	for _, account := range a.accounts {
		if account.Role == roleStaff {
			out = append(out, staffUser(account))
		}
	}
	slices.SortFunc(out, func(x, y domain.StaffUser) int {
		return strings.Compare(x.Username, y.Username)
	})
	return out
}

// reload replaces the account cache with the store's accounts. Accounts
// whose password is not a bcrypt hash cannot sign in and are skipped.
func (a *AuthManager) reload(ctx context.Context) {
	if a.store == nil {
		return
	}
	users, err := a.store.ListUsers(ctx)
	if err != nil {
		log.Printf("[auth] WARN: list users failed: %v", err)
		return
	}

	accounts := make(map[string]domain.UserAccount, len(users))
	for _, user := range users {
		user.Username = normalizeUsername(user.Username)
		if user.Username == "" {
			continue
		}
		if _, err := bcrypt.Cost([]byte(user.Password)); err != nil {
			log.Printf("[auth] WARN: account %q has no password hash; sign-in disabled", user.Username)
			continue
		}
		accounts[user.Username] = user
	}

	a.mu.Lock()
	a.accounts = accounts
	a.mu.Unlock()
}

func validateStaff(req domain.StaffCreateRequest) (string, error) {
	username := normalizeUsername(req.Username)
	switch {
	case len(username) < 4:
		return "", errors.New("username must be at least 4 characters")
	case strings.ContainsAny(username, " \t\r\n"):
		return "", errors.New("username must not contain spaces")
	case len(strings.TrimSpace(req.Password)) < 6:
		return "", errors.New("password must be at least 6 characters")
	}
	return username, nil
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func staffUser(account domain.UserAccount) domain.StaffUser {
	return domain.StaffUser{
		Username:  account.Username,
		Role:      account.Role,
		Active:    account.Active,
		CreatedAt: account.CreatedAt,
	}
}
