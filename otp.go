package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"math/big"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/nyaruka/phonenumbers"
)

const (
	defaultCodeLength = 6
	defaultCodeTTL    = 5 * time.Minute
)

// CodeStore keeps issued one time codes server side until they are consumed
// or expire. Codes are single use: Consume removes the code it returns.
type CodeStore interface {
	Save(ctx context.Context, phoneNumber, code string, ttl time.Duration) error
	Consume(ctx context.Context, phoneNumber string) (string, bool, error)
}

// NormalizePhoneNumber validates raw and canonicalizes it to E.164 so the
// code store and the accounts table agree on the key.
func NormalizePhoneNumber(raw, defaultRegion string) (string, error) {
	parsed, err := phonenumbers.Parse(raw, defaultRegion)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryBadInput, "unparseable phone number").
			WithCode(goerrors.CodeBadRequest)
	}
	if !phonenumbers.IsValidNumber(parsed) {
		return "", goerrors.New("invalid phone number", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}
	return phonenumbers.Format(parsed, phonenumbers.E164), nil
}

// OneTimeCodes issues and verifies server side login codes for the customer
// flow. Codes never leave the server through this package; delivery (SMS) is
// a separate concern.
type OneTimeCodes struct {
	store  CodeStore
	ttl    time.Duration
	length int
	region string
	logger Logger
}

// OneTimeCodesOption customizes the service.
type OneTimeCodesOption func(*OneTimeCodes)

// WithCodeTTL overrides the default five minute code lifetime.
func WithCodeTTL(ttl time.Duration) OneTimeCodesOption {
	return func(o *OneTimeCodes) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithCodeLength overrides the default six digit code length.
func WithCodeLength(length int) OneTimeCodesOption {
	return func(o *OneTimeCodes) {
		if length > 0 {
			o.length = length
		}
	}
}

// WithCodeRegion sets the default region for national phone numbers.
func WithCodeRegion(region string) OneTimeCodesOption {
	return func(o *OneTimeCodes) {
		if region != "" {
			o.region = region
		}
	}
}

// WithCodeLogger overrides the logger.
func WithCodeLogger(logger Logger) OneTimeCodesOption {
	return func(o *OneTimeCodes) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewOneTimeCodes returns a code service backed by the given store.
func NewOneTimeCodes(store CodeStore, opts ...OneTimeCodesOption) *OneTimeCodes {
	o := &OneTimeCodes{
		store:  store,
		ttl:    defaultCodeTTL,
		length: defaultCodeLength,
		region: "US",
		logger: defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// Issue generates a fresh code for the phone number and stores it with a TTL,
// replacing any outstanding code. The normalized number and the code are
// returned so the caller can hand them to a delivery channel.
func (o *OneTimeCodes) Issue(ctx context.Context, phoneNumber string) (normalized, code string, err error) {
	normalized, err = NormalizePhoneNumber(phoneNumber, o.region)
	if err != nil {
		return "", "", err
	}

	code, err = generateNumericCode(o.length)
	if err != nil {
		return "", "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate login code")
	}

	if err = o.store.Save(ctx, normalized, code, o.ttl); err != nil {
		return "", "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store login code")
	}

	return normalized, code, nil
}

// Verify consumes the outstanding code for the phone number and compares it
// in constant time. A missing, expired, or mismatched code all answer with
// the same rejection.
func (o *OneTimeCodes) Verify(ctx context.Context, phoneNumber, code string) (string, error) {
	normalized, err := NormalizePhoneNumber(phoneNumber, o.region)
	if err != nil {
		return "", err
	}

	issued, found, err := o.store.Consume(ctx, normalized)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read login code")
	}
	if !found {
		return "", ErrLoginCodeMismatch
	}

	if subtle.ConstantTimeCompare([]byte(issued), []byte(code)) != 1 {
		return "", ErrLoginCodeMismatch
	}

	return normalized, nil
}

func generateNumericCode(length int) (string, error) {
	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}

// MemoryCodeStore is a volatile CodeStore for tests and single node setups.
type MemoryCodeStore struct {
	mu    sync.Mutex
	now   func() time.Time
	codes map[string]memoryCode
}

type memoryCode struct {
	code      string
	expiresAt time.Time
}

// NewMemoryCodeStore returns an empty in-process code store.
func NewMemoryCodeStore() *MemoryCodeStore {
	return &MemoryCodeStore{
		now:   time.Now,
		codes: map[string]memoryCode{},
	}
}

// Save implements CodeStore.
func (m *MemoryCodeStore) Save(_ context.Context, phoneNumber, code string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[phoneNumber] = memoryCode{code: code, expiresAt: m.now().Add(ttl)}
	return nil
}

// Consume implements CodeStore.
func (m *MemoryCodeStore) Consume(_ context.Context, phoneNumber string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.codes[phoneNumber]
	if !ok {
		return "", false, nil
	}
	delete(m.codes, phoneNumber)

	if m.now().After(entry.expiresAt) {
		return "", false, nil
	}
	return entry.code, true, nil
}

var _ CodeStore = (*MemoryCodeStore)(nil)
