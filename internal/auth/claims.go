package auth

import (
	"context"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/token-service/internal/domain"
)

// Settings supplies runtime JWT configuration backed by the settings table.
type Settings interface {
	Get(ctx context.Context, key, fallback string) (string, error)
	Save(ctx context.Context, values map[string]string) error
}

// Setting keys recognized by the token engine.
const (
	SettingSecret            = "jwt_secret"
	SettingIssuer            = "jwt_issuer"
	SettingAudience          = "jwt_audience"
	SettingApplicationURL    = "application_url"
	SettingAccessExpiration  = "jwt_access_expiration"
	SettingRefreshExpiration = "jwt_refresh_expiration"
)

// SubjectData identifies the token holder inside the payload.
type SubjectData struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Claims is the JWT payload shared by access and refresh tokens. Tokens
// issued before type tagging existed carry an empty type field.
type Claims struct {
	TokenType domain.TokenType `json:"type,omitempty"`
	Data      SubjectData      `json:"data"`
	jwt.RegisteredClaims
}

// Principal reconstructs the caller identity carried by the token.
func (c *Claims) Principal() domain.Principal {
	return domain.Principal{ID: c.Data.ID, Username: c.Data.Username}
}

// ClaimBuilder assembles the claim set shared by both token types.
type ClaimBuilder struct {
	settings Settings
	baseURL  string
	now      func() time.Time
}

// NewClaimBuilder builds a ClaimBuilder. baseURL is the deployment's own
// address, used as the last fallback for issuer and audience.
func NewClaimBuilder(settings Settings, baseURL string) *ClaimBuilder {
	return &ClaimBuilder{settings: settings, baseURL: baseURL, now: time.Now}
}

// BuildBase returns the common claims for a token issued to principal right
// now. Issuer and audience fall back from their dedicated settings to
// application_url to the deployment base URL.
func (b *ClaimBuilder) BuildBase(ctx context.Context, principal domain.Principal) (*Claims, error) {
	if principal.ID == 0 || principal.Username == "" {
		return nil, ErrNoPrincipal
	}

	appURL, err := b.settings.Get(ctx, SettingApplicationURL, "")
	if err != nil {
		return nil, err
	}
	if appURL == "" {
		appURL = b.baseURL
	}

	issuer, err := b.settings.Get(ctx, SettingIssuer, "")
	if err != nil {
		return nil, err
	}
	if issuer == "" {
		issuer = appURL
	}

	audience, err := b.settings.Get(ctx, SettingAudience, "")
	if err != nil {
		return nil, err
	}
	if audience == "" {
		audience = appURL
	}

	now := b.now()
	return &Claims{
		Data: SubjectData{ID: principal.ID, Username: principal.Username},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}, nil
}
