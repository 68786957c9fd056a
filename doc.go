// Package auth implements the session core for the shopgrid platform: opaque
// credential decoding, durable credential storage, the session state machine,
// route guarding, and an authenticated request gateway.
//
// Session lifecycle:
//   - A Manager owns one Session. It boots in StatusLoading, resolves the
//     persisted credential exactly once via Resolve, and then moves between
//     StatusAuthenticated and StatusUnauthenticated on login, logout, and
//     expiry events. Subscribers observe every settled snapshot.
//   - CredentialStore is a single slot: MemoryStore for tests and short-lived
//     processes, BunStore for durable persistence. Failed logins never touch
//     the slot or the current session.
//
// Route guarding:
//   - Decide is the pure policy: wait while loading, redirect to login while
//     signed out (capturing the rejected route), render when the role
//     requirement is met, and fail soft to the identity's fixed landing page
//     otherwise. The middleware/routeguard package carries decisions out for
//     fiber applications.
//
// Credentials:
//   - Codec performs structural decoding only and never verifies signatures;
//     verification belongs to TokenValidator implementations (TokenServiceImpl
//     for local HMAC keys, JWKSValidator for remote key sets).
//   - Gateway attaches the bearer credential to outbound requests and funnels
//     every 401 through Manager.Expire so expiry is reconciled in one place.
//
// Server side, Auther verifies identities against an IdentityProvider, issues
// signed credentials, and runs the one-time login code flow backed by a
// CodeStore. The Controller exposes these operations over HTTP.
package auth
