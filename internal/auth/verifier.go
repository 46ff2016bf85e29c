package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/token-service/internal/domain"
)

// GlobalRevocationJTI is the synthetic record ID holding the system-wide
// issued-at cutoff.
const GlobalRevocationJTI = "__global_revoke__"

// UserRevocationJTI returns the synthetic record ID holding the issued-at
// cutoff for a single user.
func UserRevocationJTI(userID int64) string {
	return fmt.Sprintf("__user_revoked_%d", userID)
}

// RevocationStore is the durable record of revoked token IDs and cutoff
// markers. Add must upsert on JTI so repeated revocations stay idempotent.
// DeleteExpired prunes rows whose token already expired on its own; marker
// rows are excluded from pruning.
type RevocationStore interface {
	Add(ctx context.Context, record domain.RevokedToken) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	MarkerRevokedAt(ctx context.Context, jti string) (int64, bool, error)
	DeleteExpired(ctx context.Context, now int64) (int64, error)
}

// Verifier decodes tokens and enforces every validity rule: signature,
// lifetime, type tag, revocation state and (on the authentication path)
// subject identity. A store failure rejects the token; verification never
// fails open.
type Verifier struct {
	settings Settings
	store    RevocationStore
	now      func() time.Time
}

// NewVerifier builds a Verifier.
func NewVerifier(settings Settings, store RevocationStore) *Verifier {
	return &Verifier{settings: settings, store: store, now: time.Now}
}

// Verify decodes raw and runs all checks except the subject-username match.
// expected may be empty to accept either type, which also tolerates legacy
// tokens issued before type tagging; pass a concrete type everywhere else.
func (v *Verifier) Verify(ctx context.Context, raw string, expected domain.TokenType) (*Claims, error) {
	secret, err := v.settings.Get(ctx, SettingSecret, "")
	if err != nil {
		return nil, err
	}
	if secret == "" {
		return nil, ErrNoSecret
	}

	claims, err := decodeHS256(raw, secret, v.now)
	if err != nil {
		return nil, err
	}

	if expected != "" && claims.TokenType != expected {
		return nil, ErrWrongType
	}

	if err := v.checkRevocation(ctx, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyForUser is the authentication-facing path: on top of Verify, the
// caller-supplied username must match the token subject.
func (v *Verifier) VerifyForUser(ctx context.Context, raw, username string) (*Claims, error) {
	claims, err := v.Verify(ctx, raw, domain.TokenTypeAccess)
	if err != nil {
		return nil, err
	}
	if claims.Data.Username == "" || claims.Data.Username != username {
		return nil, ErrSubjectMismatch
	}
	return claims, nil
}

// checkRevocation rejects the token when its JTI was revoked directly, or
// when a per-user or global cutoff marker covers its issue time. Cutoffs are
// boundary-inclusive: a token issued at exactly the marker time is revoked.
func (v *Verifier) checkRevocation(ctx context.Context, claims *Claims) error {
	if claims.ID != "" {
		revoked, err := v.store.IsRevoked(ctx, claims.ID)
		if err != nil {
			return err
		}
		if revoked {
			return ErrRevoked
		}
	}

	var issuedAt int64
	if claims.IssuedAt != nil {
		issuedAt = claims.IssuedAt.Unix()
	}

	for _, marker := range []string{UserRevocationJTI(claims.Data.ID), GlobalRevocationJTI} {
		revokedAt, found, err := v.store.MarkerRevokedAt(ctx, marker)
		if err != nil {
			return err
		}
		if found && revokedAt >= issuedAt {
			return ErrRevoked
		}
	}
	return nil
}

// decodeHS256 parses and validates the token structure, signature and
// lifetime. The library accepts a token at the exact expiry instant; the
// explicit check below rejects it, so exp is the first invalid moment.
func decodeHS256(raw, secret string, now func() time.Time) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(now),
	)

	parsed, err := parser.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrMalformed
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrBadSignature
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, ErrNotYetValid
		default:
			return nil, ErrMalformed
		}
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrMalformed
	}
	if claims.ExpiresAt == nil || !now().Before(claims.ExpiresAt.Time) {
		return nil, ErrExpired
	}
	return claims, nil
}
