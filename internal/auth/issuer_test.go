package auth

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"testing"
	"time"

	"github.com/spec-kit/token-service/internal/domain"
)

func TestIssueTokenPair(t *testing.T) {
	eng := newEngineWithSecret(t)
	ctx := context.Background()

	pair, err := eng.issuer.IssueTokenPair(ctx, testPrincipal)
	if err != nil {
		t.Fatalf("IssueTokenPair: %v", err)
	}

	access, err := eng.verifier.Verify(ctx, pair.AccessToken, domain.TokenTypeAccess)
	if err != nil {
		t.Fatalf("verify access: %v", err)
	}
	refresh, err := eng.verifier.Verify(ctx, pair.RefreshToken, domain.TokenTypeRefresh)
	if err != nil {
		t.Fatalf("verify refresh: %v", err)
	}

	for _, claims := range []*Claims{access, refresh} {
		if claims.Data.ID != testPrincipal.ID || claims.Data.Username != testPrincipal.Username {
			t.Fatalf("subject = %+v, want %+v", claims.Data, testPrincipal)
		}
		if len(claims.ID) != 32 {
			t.Fatalf("jti length = %d, want 32", len(claims.ID))
		}
		if _, err := hex.DecodeString(claims.ID); err != nil {
			t.Fatalf("jti not hex: %q", claims.ID)
		}
		if claims.NotBefore.Time.After(claims.IssuedAt.Time) || claims.IssuedAt.Time.After(claims.ExpiresAt.Time) {
			t.Fatalf("timestamp invariant violated: nbf=%v iat=%v exp=%v",
				claims.NotBefore.Time, claims.IssuedAt.Time, claims.ExpiresAt.Time)
		}
	}

	if access.ID == refresh.ID {
		t.Fatal("access and refresh share a jti")
	}
	if access.TokenType != domain.TokenTypeAccess || refresh.TokenType != domain.TokenTypeRefresh {
		t.Fatalf("type tags: access=%q refresh=%q", access.TokenType, refresh.TokenType)
	}
}

func TestIssueDefaultLifetimes(t *testing.T) {
	eng := newEngineWithSecret(t)
	ctx := context.Background()

	pair, err := eng.issuer.IssueTokenPair(ctx, testPrincipal)
	if err != nil {
		t.Fatalf("IssueTokenPair: %v", err)
	}

	access, _ := eng.verifier.Verify(ctx, pair.AccessToken, domain.TokenTypeAccess)
	if got := access.ExpiresAt.Time.Sub(access.IssuedAt.Time); got != DefaultAccessTTL {
		t.Fatalf("access ttl = %v, want %v", got, DefaultAccessTTL)
	}

	refresh, _ := eng.verifier.Verify(ctx, pair.RefreshToken, domain.TokenTypeRefresh)
	if got := refresh.ExpiresAt.Time.Sub(refresh.IssuedAt.Time); got != DefaultRefreshTTL {
		t.Fatalf("refresh ttl = %v, want %v", got, DefaultRefreshTTL)
	}
}

func TestIssueConfiguredLifetime(t *testing.T) {
	eng := newEngineWithSecret(t)
	eng.settings.values[SettingAccessExpiration] = "120"
	ctx := context.Background()

	token, err := eng.issuer.IssueAccessToken(ctx, testPrincipal)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	claims, err := eng.verifier.Verify(ctx, token, domain.TokenTypeAccess)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got := claims.ExpiresAt.Time.Sub(claims.IssuedAt.Time); got != 2*time.Minute {
		t.Fatalf("ttl = %v, want 2m", got)
	}
}

func TestIssueInvalidLifetimeFallsBack(t *testing.T) {
	for _, value := range []string{"not-a-number", "0", "-30"} {
		eng := newEngineWithSecret(t)
		eng.settings.values[SettingAccessExpiration] = value

		token, err := eng.issuer.IssueAccessToken(context.Background(), testPrincipal)
		if err != nil {
			t.Fatalf("IssueAccessToken(%q): %v", value, err)
		}
		claims, err := eng.verifier.Verify(context.Background(), token, domain.TokenTypeAccess)
		if err != nil {
			t.Fatalf("verify(%q): %v", value, err)
		}
		if got := claims.ExpiresAt.Time.Sub(claims.IssuedAt.Time); got != DefaultAccessTTL {
			t.Fatalf("ttl for %q = %v, want default", value, got)
		}
	}
}

func TestSecretAutoProvisioning(t *testing.T) {
	eng := newEngine(t, nil) // no secret configured
	ctx := context.Background()

	token, err := eng.issuer.IssueAccessToken(ctx, testPrincipal)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	secret := eng.settings.values[SettingSecret]
	if secret == "" {
		t.Fatal("secret not persisted")
	}
	raw, err := base64.RawURLEncoding.DecodeString(secret)
	if err != nil {
		t.Fatalf("secret not base64url: %v", err)
	}
	if len(raw) != 32 {
		t.Fatalf("secret length = %d bytes, want 32", len(raw))
	}

	// The provisioned secret must verify the token it signed.
	if _, err := eng.verifier.Verify(ctx, token, domain.TokenTypeAccess); err != nil {
		t.Fatalf("verify with provisioned secret: %v", err)
	}

	// A second issuance reuses the stored secret.
	if _, err := eng.issuer.IssueAccessToken(ctx, testPrincipal); err != nil {
		t.Fatalf("second IssueAccessToken: %v", err)
	}
	if eng.settings.saves != 1 {
		t.Fatalf("saves = %d, want 1", eng.settings.saves)
	}
}
