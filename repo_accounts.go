package auth

import (
	"context"
	"database/sql"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Accounts is the persistence surface the server side authenticator needs.
type Accounts interface {
	IdentityProvider

	Create(ctx context.Context, account *Account) (*Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	TrackAttemptedLogin(ctx context.Context, account *Account) error
	TrackSuccessfulLogin(ctx context.Context, account *Account) error
}

type accounts struct {
	db  *bun.DB
	now func() time.Time
}

// AccountsOption customizes the repository.
type AccountsOption func(*accounts)

// WithAccountsClock injects a custom clock (useful for tests).
func WithAccountsClock(clock func() time.Time) AccountsOption {
	return func(r *accounts) {
		if clock != nil {
			r.now = clock
		}
	}
}

// NewAccountsRepository returns the bun backed Accounts implementation.
func NewAccountsRepository(db *bun.DB, opts ...AccountsOption) Accounts {
	r := &accounts{db: db, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// InitAccountsTable creates the accounts table when missing.
func InitAccountsTable(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().
		Model((*Account)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create accounts table")
	}
	return nil
}

func (r *accounts) Create(ctx context.Context, account *Account) (*Account, error) {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	account.EnsureStatus()

	if _, err := r.db.NewInsert().Model(account).Exec(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create account")
	}
	return account, nil
}

func (r *accounts) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	account := &Account{}
	err := r.db.NewSelect().
		Model(account).
		Where("acc.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, r.mapLookupError(err)
	}
	return account, nil
}

// FindByIdentifier resolves an account by email, case insensitive.
func (r *accounts) FindByIdentifier(ctx context.Context, identifier string) (*Account, error) {
	account := &Account{}
	err := r.db.NewSelect().
		Model(account).
		Where("LOWER(acc.email) = ?", strings.ToLower(strings.TrimSpace(identifier))).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, r.mapLookupError(err)
	}
	return account, nil
}

func (r *accounts) FindByPhoneNumber(ctx context.Context, phoneNumber string) (*Account, error) {
	account := &Account{}
	err := r.db.NewSelect().
		Model(account).
		Where("acc.phone_number = ?", phoneNumber).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, r.mapLookupError(err)
	}
	return account, nil
}

// VerifyIdentity resolves the account and checks the password, tracking the
// attempt either way.
func (r *accounts) VerifyIdentity(ctx context.Context, identifier, password string) (*Account, error) {
	account, err := r.FindByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}

	if err := CompareSecretAndHash(password, account.PasswordHash); err != nil {
		if trackErr := r.TrackAttemptedLogin(ctx, account); trackErr != nil {
			return nil, trackErr
		}
		return nil, err
	}

	if err := r.TrackSuccessfulLogin(ctx, account); err != nil {
		return nil, err
	}

	return account, nil
}

// VerifyAccessKey resolves a company account by access key id and checks the
// key secret against its hash.
func (r *accounts) VerifyAccessKey(ctx context.Context, keyID, keySecret string) (*Account, error) {
	account := &Account{}
	err := r.db.NewSelect().
		Model(account).
		Where("acc.access_key_id = ?", keyID).
		Where("acc.role = ?", string(RoleCompany)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, r.mapLookupError(err)
	}

	if err := CompareSecretAndHash(keySecret, account.AccessKeyHash); err != nil {
		if trackErr := r.TrackAttemptedLogin(ctx, account); trackErr != nil {
			return nil, trackErr
		}
		return nil, err
	}

	if err := r.TrackSuccessfulLogin(ctx, account); err != nil {
		return nil, err
	}

	return account, nil
}

func (r *accounts) TrackAttemptedLogin(ctx context.Context, account *Account) error {
	now := r.now()
	account.LoginAttempts++
	account.LoginAttemptAt = &now

	_, err := r.db.NewUpdate().
		Model(account).
		Column("login_attempts", "login_attempt_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to track login attempt")
	}
	return nil
}

func (r *accounts) TrackSuccessfulLogin(ctx context.Context, account *Account) error {
	now := r.now()
	account.LoginAttempts = 0
	account.LoggedInAt = &now

	_, err := r.db.NewUpdate().
		Model(account).
		Column("login_attempts", "loggedin_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to track login")
	}
	return nil
}

func (r *accounts) mapLookupError(err error) error {
	if err == sql.ErrNoRows {
		return ErrIdentityNotFound
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, "account lookup failed")
}

var _ Accounts = (*accounts)(nil)
