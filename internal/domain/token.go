package domain

// TokenType tags a token as access or refresh.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// TokenPair bundles the two tokens handed out on login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// RevokedToken is a row in jwt_revoked_tokens. Regular rows are keyed by a
// real token ID; marker rows use a synthetic JTI and represent an issued-at
// cutoff for a single user or the whole system.
type RevokedToken struct {
	JTI       string `json:"jti"`
	UserID    int64  `json:"user_id"`
	TokenType string `json:"token_type"`
	RevokedAt int64  `json:"revoked_at"`
	ExpiresAt int64  `json:"expires_at"`
}
