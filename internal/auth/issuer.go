package auth

import (
	"context"
	"strconv"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/token-service/internal/domain"
)

// Default token lifetimes, used when the corresponding setting is unset or
// not a positive integer. Legacy single-token deployments shipped a 3 day
// access lifetime; dual-token mode keeps access tokens short-lived and
// relies on the refresh token for longevity.
const (
	DefaultAccessTTL  = time.Hour
	DefaultRefreshTTL = 30 * 24 * time.Hour
)

// Issuer produces signed access and refresh tokens.
type Issuer struct {
	claims   *ClaimBuilder
	settings Settings
}

// NewIssuer builds an Issuer.
func NewIssuer(claims *ClaimBuilder, settings Settings) *Issuer {
	return &Issuer{claims: claims, settings: settings}
}

// IssueAccessToken mints a short-lived access token for principal.
func (i *Issuer) IssueAccessToken(ctx context.Context, principal domain.Principal) (string, error) {
	return i.issue(ctx, principal, domain.TokenTypeAccess, SettingAccessExpiration, DefaultAccessTTL)
}

// IssueRefreshToken mints a long-lived refresh token for principal.
func (i *Issuer) IssueRefreshToken(ctx context.Context, principal domain.Principal) (string, error) {
	return i.issue(ctx, principal, domain.TokenTypeRefresh, SettingRefreshExpiration, DefaultRefreshTTL)
}

// IssueTokenPair mints both tokens. This is the entry point callers use on
// login; the single-token flow is legacy and not offered here.
func (i *Issuer) IssueTokenPair(ctx context.Context, principal domain.Principal) (domain.TokenPair, error) {
	access, err := i.IssueAccessToken(ctx, principal)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, err := i.IssueRefreshToken(ctx, principal)
	if err != nil {
		return domain.TokenPair{}, err
	}
	return domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (i *Issuer) issue(ctx context.Context, principal domain.Principal, tokenType domain.TokenType, ttlKey string, fallback time.Duration) (string, error) {
	secret, err := EnsureSecret(ctx, i.settings)
	if err != nil {
		return "", err
	}

	claims, err := i.claims.BuildBase(ctx, principal)
	if err != nil {
		return "", err
	}

	jti, err := newJTI()
	if err != nil {
		return "", err
	}

	claims.TokenType = tokenType
	claims.ID = jti
	claims.ExpiresAt = jwt.NewNumericDate(claims.IssuedAt.Time.Add(i.ttl(ctx, ttlKey, fallback)))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func (i *Issuer) ttl(ctx context.Context, key string, fallback time.Duration) time.Duration {
	raw, err := i.settings.Get(ctx, key, "")
	if err != nil || raw == "" {
		return fallback
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs <= 0 {
		return fallback
	}
	return time.Duration(secs) * time.Second
}
