package auth

import (
	"context"
	"time"

	"github.com/spec-kit/token-service/internal/domain"
)

// markerRetention keeps cutoff markers queryable long past any token
// lifetime. Cleanup never touches markers; this window bounds how long the
// rows linger in the table at all.
const markerRetention = 365 * 24 * time.Hour

// RevocationManager owns all writes to the revocation store.
type RevocationManager struct {
	settings Settings
	store    RevocationStore
	now      func() time.Time
}

// NewRevocationManager builds a RevocationManager.
func NewRevocationManager(settings Settings, store RevocationStore) *RevocationManager {
	return &RevocationManager{settings: settings, store: store, now: time.Now}
}

// RevokeToken revokes a single token by its JTI and returns the written
// record. The token's signature must verify; revoking a garbage string fails
// without side effects. Non-admin callers may only revoke their own tokens.
// Revoking twice is harmless: the store upserts on JTI.
func (m *RevocationManager) RevokeToken(ctx context.Context, raw string, caller domain.Principal) (domain.RevokedToken, error) {
	secret, err := m.settings.Get(ctx, SettingSecret, "")
	if err != nil {
		return domain.RevokedToken{}, err
	}
	if secret == "" {
		return domain.RevokedToken{}, ErrNoSecret
	}

	claims, err := decodeHS256(raw, secret, m.now)
	if err != nil {
		return domain.RevokedToken{}, err
	}
	if claims.ID == "" {
		return domain.RevokedToken{}, ErrMalformed
	}

	if claims.Data.ID != caller.ID && !caller.IsAdmin() {
		return domain.RevokedToken{}, ErrNotAllowed
	}

	tokenType := string(claims.TokenType)
	if tokenType == "" {
		tokenType = string(domain.TokenTypeAccess)
	}

	record := domain.RevokedToken{
		JTI:       claims.ID,
		UserID:    claims.Data.ID,
		TokenType: tokenType,
		RevokedAt: m.now().Unix(),
		ExpiresAt: claims.ExpiresAt.Unix(),
	}
	if err := m.store.Add(ctx, record); err != nil {
		return domain.RevokedToken{}, err
	}
	return record, nil
}

// RevokeUserTokens invalidates every token for userID issued at or before
// now. Tokens issued afterwards stay valid, so re-issuing right after a mass
// revoke works. Admin only.
func (m *RevocationManager) RevokeUserTokens(ctx context.Context, userID int64, caller domain.Principal) error {
	if !caller.IsAdmin() {
		return ErrNotAllowed
	}

	now := m.now()
	return m.store.Add(ctx, domain.RevokedToken{
		JTI:       UserRevocationJTI(userID),
		UserID:    userID,
		TokenType: "all",
		RevokedAt: now.Unix(),
		ExpiresAt: now.Add(markerRetention).Unix(),
	})
}

// RevokeAllTokens invalidates every token in the system issued at or before
// now. Admin only.
func (m *RevocationManager) RevokeAllTokens(ctx context.Context, caller domain.Principal) error {
	if !caller.IsAdmin() {
		return ErrNotAllowed
	}

	now := m.now()
	return m.store.Add(ctx, domain.RevokedToken{
		JTI:       GlobalRevocationJTI,
		UserID:    0,
		TokenType: "all",
		RevokedAt: now.Unix(),
		ExpiresAt: now.Add(markerRetention).Unix(),
	})
}

// CleanupExpired removes revocation records whose token already expired on
// its own; such rows are redundant because expiry verification rejects the
// token anyway. Marker rows are spared by the store.
func (m *RevocationManager) CleanupExpired(ctx context.Context) (int64, error) {
	return m.store.DeleteExpired(ctx, m.now().Unix())
}
