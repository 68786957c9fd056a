package auth

import (
	"context"
	"sync"
)

// CredentialStore persists the current credential across process restarts.
// A single fixed slot, last write wins. Absent is a normal, expected state:
// the host environment may wipe the slot at any time.
//
// Only one logical writer exists per application instance (the Manager), so
// implementations need no coordination beyond their own internal safety.
type CredentialStore interface {
	Save(ctx context.Context, credential Credential) error
	Load(ctx context.Context) (Credential, bool, error)
	Clear(ctx context.Context) error
}

// MemoryStore is a volatile CredentialStore for tests and embedded use.
type MemoryStore struct {
	mu         sync.RWMutex
	credential Credential
	present    bool
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save implements CredentialStore.
func (m *MemoryStore) Save(_ context.Context, credential Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credential = credential
	m.present = true
	return nil
}

// Load implements CredentialStore.
func (m *MemoryStore) Load(_ context.Context) (Credential, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.present {
		return "", false, nil
	}
	return m.credential, true, nil
}

// Clear implements CredentialStore.
func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credential = ""
	m.present = false
	return nil
}

var _ CredentialStore = (*MemoryStore)(nil)
