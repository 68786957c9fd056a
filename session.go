package auth

import (
	"fmt"
	"time"
)

// Status is the coarse session state owned by the Manager.
type Status string

const (
	// StatusLoading is the initial state, held only during the startup
	// resolution window.
	StatusLoading Status = "loading"
	// StatusAuthenticated means a structurally valid, unexpired credential
	// and its decoded identity are present.
	StatusAuthenticated Status = "authenticated"
	// StatusUnauthenticated means no usable credential exists.
	StatusUnauthenticated Status = "unauthenticated"
)

// Event is a session transition trigger.
type Event string

const (
	// EventLoginSuccess carries a fresh credential and identity.
	EventLoginSuccess Event = "login.success"
	// EventAuthenticationRejected records a declined login attempt. It never
	// moves the session away from its pre-call state.
	EventAuthenticationRejected Event = "login.rejected"
	// EventCredentialExpired drops an expired credential.
	EventCredentialExpired Event = "credential.expired"
	// EventCredentialInvalid drops an absent or undecodable credential.
	EventCredentialInvalid Event = "credential.invalid"
	// EventLogout is the user initiated teardown.
	EventLogout Event = "logout"
)

// Session is an immutable snapshot of the current auth state. Invariant:
// Status is StatusAuthenticated iff Credential and Identity are both present
// and the credential's expiry was in the future at last check.
type Session struct {
	Status     Status
	Identity   Identity
	Credential Credential
	// ExpiresAt mirrors the credential's embedded expiry for display purposes.
	ExpiresAt time.Time
}

// Authenticated reports whether the snapshot holds a live identity.
func (s Session) Authenticated() bool {
	return s.Status == StatusAuthenticated
}

// Resolved reports whether startup resolution has completed.
func (s Session) Resolved() bool {
	return s.Status != StatusLoading
}

func (s Session) String() string {
	if s.Status != StatusAuthenticated {
		return fmt.Sprintf("session status=%s", s.Status)
	}
	return fmt.Sprintf("session status=%s subject=%s role=%s", s.Status, s.Identity.SubjectID, s.Identity.Role)
}
