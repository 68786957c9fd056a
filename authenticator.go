package auth

import (
	"context"
	"time"
)

// CodeDeliverer hands an issued one time code to a delivery channel (SMS
// gateway, messaging queue). The code must never be echoed back to the
// requesting client.
type CodeDeliverer func(ctx context.Context, phoneNumber, code string) error

// Auther is the server side authenticator: it verifies identities against
// the accounts store, enforces the account status gate, and issues signed
// credentials. It satisfies AuthClient so in-process callers (and tests) use
// the same contract as the wire client.
type Auther struct {
	provider     IdentityProvider
	tokenService TokenService
	codes        *OneTimeCodes
	deliver      CodeDeliverer
	logger       Logger
	activitySink ActivitySink
}

// NewAuthenticator returns a new Auther.
func NewAuthenticator(provider IdentityProvider, tokenService TokenService, codes *OneTimeCodes) *Auther {
	return &Auther{
		provider:     provider,
		tokenService: tokenService,
		codes:        codes,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}
}

// WithLogger overrides the logger.
func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithCodeDeliverer configures how issued login codes reach the customer.
func (s *Auther) WithCodeDeliverer(deliver CodeDeliverer) *Auther {
	s.deliver = deliver
	return s
}

// Authenticate verifies a subject/secret pair and issues a credential.
func (s *Auther) Authenticate(ctx context.Context, payload LoginPayload) (*LoginResult, error) {
	account, err := s.provider.VerifyIdentity(ctx, payload.GetIdentifier(), payload.GetPassword())
	if err != nil {
		s.emitFailure(ctx, map[string]any{"identifier": payload.GetIdentifier(), "error": err.Error()})
		return nil, err
	}

	return s.issue(ctx, account)
}

// AuthenticateAccessKey verifies a company access key pair and issues a
// credential, funnelling into the same issuance path as Authenticate.
func (s *Auther) AuthenticateAccessKey(ctx context.Context, payload AccessKeyPayload) (*LoginResult, error) {
	account, err := s.provider.VerifyAccessKey(ctx, payload.GetKeyID(), payload.GetKeySecret())
	if err != nil {
		s.emitFailure(ctx, map[string]any{"key_id": payload.GetKeyID(), "error": err.Error()})
		return nil, err
	}

	return s.issue(ctx, account)
}

// RequestLoginCode issues a server side one time code for the phone number
// and hands it to the delivery channel. An unknown number is reported to the
// caller the same way a known one is, only without delivery, so the endpoint
// does not leak which numbers hold accounts.
func (s *Auther) RequestLoginCode(ctx context.Context, phoneNumber string) error {
	normalized, code, err := s.codes.Issue(ctx, phoneNumber)
	if err != nil {
		return err
	}

	if _, err := s.provider.FindByPhoneNumber(ctx, normalized); err != nil {
		s.logger.Info("login code requested for unknown number")
		return nil
	}

	s.emit(ctx, ActivityEvent{EventType: ActivityEventCodeRequested})

	if s.deliver == nil {
		s.logger.Warn("no code deliverer configured, issued code will expire unused")
		return nil
	}

	if err := s.deliver(ctx, normalized, code); err != nil {
		s.logger.Error("login code delivery failed: %v", err)
		return errWithMetadata(ErrTransportFailure, map[string]any{
			"reason": "code delivery failed",
		})
	}

	return nil
}

// AuthenticateCode verifies a one time code and issues a credential.
func (s *Auther) AuthenticateCode(ctx context.Context, payload CodePayload) (*LoginResult, error) {
	normalized, err := s.codes.Verify(ctx, payload.GetPhoneNumber(), payload.GetCode())
	if err != nil {
		s.emitFailure(ctx, map[string]any{"error": err.Error()})
		return nil, err
	}

	account, err := s.provider.FindByPhoneNumber(ctx, normalized)
	if err != nil {
		s.emitFailure(ctx, map[string]any{"error": err.Error()})
		return nil, err
	}

	return s.issue(ctx, account)
}

func (s *Auther) issue(ctx context.Context, account *Account) (*LoginResult, error) {
	if account == nil {
		s.emitFailure(ctx, map[string]any{"error": ErrIdentityNotFound.Error()})
		return nil, ErrIdentityNotFound
	}

	if err := statusAuthError(account.Status); err != nil {
		s.logger.Warn("login blocked due to account status: %s", account.Status)
		s.emitFailure(ctx, map[string]any{
			"subject_id": account.ID.String(),
			"status":     string(account.Status),
			"error":      err.Error(),
		})
		return nil, err
	}

	credential, err := s.tokenService.Generate(account)
	if err != nil {
		s.emitFailure(ctx, map[string]any{
			"subject_id": account.ID.String(),
			"error":      err.Error(),
		})
		return nil, err
	}

	s.emit(ctx, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		SubjectID: account.ID.String(),
	})

	return &LoginResult{
		Credential: credential,
		Identity: Identity{
			SubjectID:   account.ID.String(),
			DisplayName: account.DisplayName(),
			Role:        account.Role,
			Attributes:  account.CredentialAttributes(),
		},
	}, nil
}

func (s *Auther) emitFailure(ctx context.Context, metadata map[string]any) {
	s.emit(ctx, ActivityEvent{
		EventType: ActivityEventLoginFailure,
		Metadata:  metadata,
	})
}

func (s *Auther) emit(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	sink := normalizeActivitySink(s.activitySink)
	if err := sink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error: %v", err)
	}
}

var _ AuthClient = (*Auther)(nil)
