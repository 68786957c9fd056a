package auth

import (
	"context"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const textCodeInvalidTransition = "INVALID_SESSION_TRANSITION"

// ErrInvalidTransition is returned when a requested status change is not allowed.
var ErrInvalidTransition = goerrors.New("invalid session transition", goerrors.CategoryValidation).
	WithTextCode(textCodeInvalidTransition).
	WithCode(goerrors.CodeBadRequest)

// ManagerOption customizes Manager construction.
type ManagerOption func(*Manager)

// WithManagerLogger overrides the default logger.
func WithManagerLogger(logger Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithManagerClock injects a custom clock (useful for tests).
func WithManagerClock(clock func() time.Time) ManagerOption {
	return func(m *Manager) {
		if clock != nil {
			m.now = clock
		}
	}
}

// WithManagerActivitySink sets the ActivitySink used to publish auth events.
func WithManagerActivitySink(sink ActivitySink) ManagerOption {
	return func(m *Manager) {
		m.activitySink = normalizeActivitySink(sink)
	}
}

// WithManagerCodec overrides the credential codec.
func WithManagerCodec(codec *Codec) ManagerOption {
	return func(m *Manager) {
		if codec != nil {
			m.codec = codec
		}
	}
}

// Manager owns the session. It is the only writer: every other component
// reads snapshots or requests transitions through the operations below.
//
// Construct one Manager per application instance at startup and pass it down
// explicitly; there is no package level instance.
type Manager struct {
	store        CredentialStore
	client       AuthClient
	codec        *Codec
	logger       Logger
	now          func() time.Time
	activitySink ActivitySink

	mu          sync.Mutex
	session     Session
	resolved    bool
	transitions map[Status]map[Status]struct{}

	subMu       sync.Mutex
	subscribers map[int]func(Session)
	nextSubID   int
}

// NewManager returns a Manager in the Loading state. Call Resolve once at
// startup before consulting Session from any guard.
func NewManager(store CredentialStore, client AuthClient, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:        store,
		client:       client,
		codec:        NewCodec(),
		logger:       defLogger{},
		now:          time.Now,
		activitySink: noopActivitySink{},
		session:      Session{Status: StatusLoading},
		transitions: map[Status]map[Status]struct{}{
			StatusLoading: {
				StatusAuthenticated:   {},
				StatusUnauthenticated: {},
			},
			StatusUnauthenticated: {
				StatusAuthenticated:   {},
				StatusUnauthenticated: {},
			},
			StatusAuthenticated: {
				StatusAuthenticated:   {},
				StatusUnauthenticated: {},
			},
		},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return m
}

// Session returns an immutable snapshot of the current state.
func (m *Manager) Session() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// Subscribe registers fn to run after every transition with the new snapshot.
// The returned function removes the subscription.
func (m *Manager) Subscribe(fn func(Session)) func() {
	if fn == nil {
		return func() {}
	}

	m.subMu.Lock()
	defer m.subMu.Unlock()
	if m.subscribers == nil {
		m.subscribers = map[int]func(Session){}
	}
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn

	return func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		delete(m.subscribers, id)
	}
}

// Resolve runs the startup resolution exactly once: it reads the stored
// credential, decodes it, checks the embedded expiry against the clock and
// settles the session on Authenticated or Unauthenticated. Repeat calls
// return the already resolved snapshot; there is no way back to Loading.
func (m *Manager) Resolve(ctx context.Context) Session {
	m.mu.Lock()
	if m.resolved {
		snapshot := m.session
		m.mu.Unlock()
		return snapshot
	}
	m.resolved = true
	m.mu.Unlock()

	credential, present, err := m.store.Load(ctx)
	if err != nil {
		m.logger.Warn("session resolve: store read failed: %v", err)
		return m.dropCredential(ctx, EventCredentialInvalid, false)
	}

	if !present {
		// Absent is a normal state, nothing to clear.
		return m.dropCredential(ctx, EventCredentialInvalid, false)
	}

	identity, err := m.codec.Decode(credential)
	if err != nil {
		m.logger.Info("session resolve: stored credential undecodable, clearing")
		return m.dropCredential(ctx, EventCredentialInvalid, true)
	}

	expiry, err := m.codec.Expiry(credential)
	if err != nil {
		m.logger.Info("session resolve: stored credential missing expiry, clearing")
		return m.dropCredential(ctx, EventCredentialInvalid, true)
	}

	if !expiry.After(m.now()) {
		m.emit(ctx, ActivityEvent{
			EventType: ActivityEventCredentialExpired,
			SubjectID: identity.SubjectID,
		})
		return m.dropCredential(ctx, EventCredentialExpired, true)
	}

	snapshot := m.transition(Session{
		Status:     StatusAuthenticated,
		Identity:   identity,
		Credential: credential,
		ExpiresAt:  expiry,
	})

	m.emit(ctx, ActivityEvent{
		EventType: ActivityEventSessionResolved,
		SubjectID: identity.SubjectID,
		ToStatus:  StatusAuthenticated,
	})

	return snapshot
}

// Login runs the primary subject/secret flow. On success the credential is
// persisted and the session becomes Authenticated; the returned session lets
// the caller navigate to the identity's landing route. On failure the error
// is surfaced and neither the status nor the store are touched: a failed
// fresh login must not corrupt an unrelated existing session.
func (m *Manager) Login(ctx context.Context, payload LoginPayload) (Session, error) {
	result, err := m.client.Authenticate(ctx, payload)
	if err != nil {
		return m.rejectLogin(ctx, err, map[string]any{"identifier": payload.GetIdentifier()})
	}
	return m.finishLogin(ctx, result)
}

// LoginWithAccessKey runs the supplier company flow (access key id + secret).
// It funnels into the same transitions as Login.
func (m *Manager) LoginWithAccessKey(ctx context.Context, payload AccessKeyPayload) (Session, error) {
	result, err := m.client.AuthenticateAccessKey(ctx, payload)
	if err != nil {
		return m.rejectLogin(ctx, err, map[string]any{"key_id": payload.GetKeyID()})
	}
	return m.finishLogin(ctx, result)
}

// RequestLoginCode asks the server to issue a one time login code for the
// customer flow. The code is generated and verified server side.
func (m *Manager) RequestLoginCode(ctx context.Context, phoneNumber string) error {
	if err := m.client.RequestLoginCode(ctx, phoneNumber); err != nil {
		m.logger.Info("login code request failed: %v", err)
		return err
	}
	m.emit(ctx, ActivityEvent{EventType: ActivityEventCodeRequested})
	return nil
}

// LoginWithCode runs the customer one time code flow, funnelling into the
// same transitions as Login.
func (m *Manager) LoginWithCode(ctx context.Context, payload CodePayload) (Session, error) {
	result, err := m.client.AuthenticateCode(ctx, payload)
	if err != nil {
		return m.rejectLogin(ctx, err, map[string]any{"phone_number": payload.GetPhoneNumber()})
	}
	return m.finishLogin(ctx, result)
}

// Logout unconditionally clears the store and settles on Unauthenticated.
// It always succeeds and is idempotent when already unauthenticated.
func (m *Manager) Logout(ctx context.Context) Session {
	before := m.Session()
	snapshot := m.dropCredential(ctx, EventLogout, true)

	m.emit(ctx, ActivityEvent{
		EventType:  ActivityEventLogout,
		SubjectID:  before.Identity.SubjectID,
		FromStatus: before.Status,
		ToStatus:   StatusUnauthenticated,
	})

	return snapshot
}

// Expire is the centralized reconciliation entry point: the gateway invokes
// it whenever a protected call answers with an invalid/expired credential, so
// the policy lives in one place instead of being duplicated per screen.
func (m *Manager) Expire(ctx context.Context) Session {
	before := m.Session()
	if before.Status == StatusUnauthenticated {
		return before
	}

	snapshot := m.dropCredential(ctx, EventCredentialExpired, true)

	m.emit(ctx, ActivityEvent{
		EventType:  ActivityEventCredentialExpired,
		SubjectID:  before.Identity.SubjectID,
		FromStatus: before.Status,
		ToStatus:   StatusUnauthenticated,
	})

	return snapshot
}

func (m *Manager) finishLogin(ctx context.Context, result *LoginResult) (Session, error) {
	if result == nil || result.Credential == "" {
		return m.rejectLogin(ctx, errWithMetadata(ErrTransportFailure, map[string]any{
			"reason": "empty login result",
		}), nil)
	}

	identity := result.Identity
	if identity.IsZero() {
		// Identity travels inside the credential, recompute when the
		// endpoint did not spell it out.
		decoded, err := m.codec.Decode(result.Credential)
		if err != nil {
			return m.rejectLogin(ctx, err, nil)
		}
		identity = decoded
	}

	expiry, err := m.codec.Expiry(result.Credential)
	if err != nil {
		return m.rejectLogin(ctx, err, map[string]any{"subject_id": identity.SubjectID})
	}

	if err := m.store.Save(ctx, result.Credential); err != nil {
		m.logger.Error("login: credential persist failed: %v", err)
		return m.rejectLogin(ctx, err, map[string]any{"subject_id": identity.SubjectID})
	}

	snapshot := m.transition(Session{
		Status:     StatusAuthenticated,
		Identity:   identity,
		Credential: result.Credential,
		ExpiresAt:  expiry,
	})

	m.emit(ctx, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		SubjectID: identity.SubjectID,
		ToStatus:  StatusAuthenticated,
	})

	return snapshot, nil
}

// rejectLogin surfaces the failure without mutating status or store.
func (m *Manager) rejectLogin(ctx context.Context, err error, metadata map[string]any) (Session, error) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["error"] = err.Error()

	m.logger.Info("login rejected: %v", err)
	m.emit(ctx, ActivityEvent{
		EventType: ActivityEventLoginFailure,
		Metadata:  metadata,
	})

	return m.Session(), err
}

// dropCredential settles on Unauthenticated, optionally clearing the store.
func (m *Manager) dropCredential(ctx context.Context, event Event, clear bool) Session {
	if clear {
		if err := m.store.Clear(ctx); err != nil {
			// A failed clear must not keep a dead session alive.
			m.logger.Warn("session %s: store clear failed: %v", event, err)
		}
	}

	return m.transition(Session{Status: StatusUnauthenticated})
}

func (m *Manager) transition(next Session) Session {
	m.mu.Lock()
	from := m.session.Status
	if !m.canTransition(from, next.Status) {
		// The table covers every reachable pair; hitting this is a
		// programming error, keep the current state.
		m.logger.Error("%s: %s -> %s", ErrInvalidTransition.Message, from, next.Status)
		snapshot := m.session
		m.mu.Unlock()
		return snapshot
	}
	m.resolved = true
	m.session = next
	m.mu.Unlock()

	m.notify(next)
	return next
}

func (m *Manager) canTransition(from, to Status) bool {
	if allowed, ok := m.transitions[from]; ok {
		_, exists := allowed[to]
		return exists
	}
	return false
}

func (m *Manager) notify(snapshot Session) {
	m.subMu.Lock()
	subs := make([]func(Session), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		subs = append(subs, fn)
	}
	m.subMu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
}

func (m *Manager) emit(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = m.now()
	}

	sink := normalizeActivitySink(m.activitySink)
	if err := sink.Record(ctx, event); err != nil {
		m.logger.Warn("activity sink record error: %v", err)
	}
}
