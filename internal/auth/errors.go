package auth

import "errors"

// Verification failures are deliberately not surfaced individually to API
// callers: the HTTP layer collapses every one of them into a generic 401 so
// that token validity cannot be probed. The distinct values exist for logs
// and tests only.
var (
	ErrNoPrincipal     = errors.New("auth: no authenticated principal")
	ErrNoSecret        = errors.New("auth: jwt secret not configured")
	ErrMalformed       = errors.New("auth: malformed token")
	ErrBadSignature    = errors.New("auth: bad token signature")
	ErrExpired         = errors.New("auth: token expired")
	ErrNotYetValid     = errors.New("auth: token not yet valid")
	ErrWrongType       = errors.New("auth: unexpected token type")
	ErrRevoked         = errors.New("auth: token revoked")
	ErrSubjectMismatch = errors.New("auth: subject mismatch")

	// ErrNotAllowed is a policy decision, not a secret-dependent check, and
	// is the one failure that maps to 403 instead of 401.
	ErrNotAllowed = errors.New("auth: caller not allowed")
)
