package auth

import (
	"context"
	"database/sql"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// credentialSlotKey is the single durable key holding the raw credential.
// No other durable client side auth state exists.
const credentialSlotKey = "session.credential"

type credentialRow struct {
	bun.BaseModel `bun:"table:credential_slots,alias:cred"`
	Slot          string     `bun:"slot,pk"`
	Credential    string     `bun:"credential,notnull"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp"`
}

// BunStore is a CredentialStore persisted through bun, typically over the
// sqlite shim so the slot survives a full process restart.
type BunStore struct {
	db   *bun.DB
	slot string
}

// NewBunStore returns a durable store bound to the fixed credential slot.
func NewBunStore(db *bun.DB) *BunStore {
	return &BunStore{db: db, slot: credentialSlotKey}
}

// Init creates the backing table when missing.
func (s *BunStore) Init(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*credentialRow)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create credential slot table")
	}
	return nil
}

// Save implements CredentialStore. Last write wins.
func (s *BunStore) Save(ctx context.Context, credential Credential) error {
	now := time.Now()
	row := &credentialRow{
		Slot:       s.slot,
		Credential: credential,
		UpdatedAt:  &now,
	}

	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (slot) DO UPDATE").
		Set("credential = EXCLUDED.credential").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist credential")
	}
	return nil
}

// Load implements CredentialStore. An empty slot is not an error.
func (s *BunStore) Load(ctx context.Context) (Credential, bool, error) {
	row := &credentialRow{}
	err := s.db.NewSelect().
		Model(row).
		Where("slot = ?", s.slot).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load credential")
	}
	if row.Credential == "" {
		return "", false, nil
	}
	return row.Credential, true, nil
}

// Clear implements CredentialStore. Clearing an empty slot succeeds.
func (s *BunStore) Clear(ctx context.Context) error {
	_, err := s.db.NewDelete().
		Model((*credentialRow)(nil)).
		Where("slot = ?", s.slot).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to clear credential")
	}
	return nil
}

var _ CredentialStore = (*BunStore)(nil)
