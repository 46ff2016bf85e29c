package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
)

// GenerateSecret returns a new random 256-bit signing secret, base64url
// encoded without padding.
func GenerateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// EnsureSecret loads the signing secret, provisioning and persisting a fresh
// one when none is configured yet. Two concurrent first callers may each
// provision a secret; the last write wins and either value is a valid key,
// so the race is tolerated rather than locked around.
func EnsureSecret(ctx context.Context, settings Settings) (string, error) {
	secret, err := settings.Get(ctx, SettingSecret, "")
	if err != nil {
		return "", err
	}
	if secret != "" {
		return secret, nil
	}

	secret, err = GenerateSecret()
	if err != nil {
		return "", err
	}
	if err := settings.Save(ctx, map[string]string{SettingSecret: secret}); err != nil {
		return "", err
	}
	return secret, nil
}

// newJTI returns a 128-bit random token ID, hex encoded (32 chars).
func newJTI() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
