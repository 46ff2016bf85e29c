package auth

import (
	"context"
	"time"

	"github.com/spec-kit/token-service/internal/domain"
)

// Exchanger trades a valid refresh token for a new token pair.
//
// Refresh tokens rotate: the spent token's JTI is revoked in the same call,
// before the new pair is returned, so there is no window in which both
// refresh tokens are usable.
type Exchanger struct {
	verifier *Verifier
	issuer   *Issuer
	store    RevocationStore
	now      func() time.Time
}

// NewExchanger builds an Exchanger.
func NewExchanger(verifier *Verifier, issuer *Issuer, store RevocationStore) *Exchanger {
	return &Exchanger{verifier: verifier, issuer: issuer, store: store, now: time.Now}
}

// Refresh verifies rawRefresh as a refresh token, reconstructs the principal
// from its subject claim, and mints a fresh pair. No independent subject
// check happens here: the principal is derived from the token itself, and is
// returned alongside the pair for callers that need the subject identity.
func (e *Exchanger) Refresh(ctx context.Context, rawRefresh string) (domain.TokenPair, domain.Principal, error) {
	claims, err := e.verifier.Verify(ctx, rawRefresh, domain.TokenTypeRefresh)
	if err != nil {
		return domain.TokenPair{}, domain.Principal{}, err
	}

	principal := claims.Principal()
	pair, err := e.issuer.IssueTokenPair(ctx, principal)
	if err != nil {
		return domain.TokenPair{}, domain.Principal{}, err
	}

	// Retire the spent refresh token. On failure the new pair is withheld,
	// so the old token stays the only valid one.
	if claims.ID != "" {
		record := domain.RevokedToken{
			JTI:       claims.ID,
			UserID:    claims.Data.ID,
			TokenType: string(domain.TokenTypeRefresh),
			RevokedAt: e.now().Unix(),
			ExpiresAt: claims.ExpiresAt.Unix(),
		}
		if err := e.store.Add(ctx, record); err != nil {
			return domain.TokenPair{}, domain.Principal{}, err
		}
	}
	return pair, principal, nil
}
