package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/token-service/internal/domain"
)

const testBaseURL = "http://token-service.local/"

var testPrincipal = domain.Principal{ID: 42, Username: "alice", Role: domain.RoleUser}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeSettings struct {
	mu      sync.Mutex
	values  map[string]string
	getErr  error
	saveErr error
	saves   int
}

func newFakeSettings(values map[string]string) *fakeSettings {
	if values == nil {
		values = make(map[string]string)
	}
	return &fakeSettings{values: values}
}

func (f *fakeSettings) Get(_ context.Context, key, fallback string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return "", f.getErr
	}
	if value, ok := f.values[key]; ok && value != "" {
		return value, nil
	}
	return fallback, nil
}

func (f *fakeSettings) Save(_ context.Context, values map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	for key, value := range values {
		f.values[key] = value
	}
	return nil
}

type fakeStore struct {
	mu        sync.Mutex
	records   map[string]domain.RevokedToken
	addErr    error
	lookupErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]domain.RevokedToken)}
}

func (f *fakeStore) Add(_ context.Context, record domain.RevokedToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return f.addErr
	}
	f.records[record.JTI] = record
	return nil
}

func (f *fakeStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupErr != nil {
		return false, f.lookupErr
	}
	_, ok := f.records[jti]
	return ok, nil
}

func (f *fakeStore) MarkerRevokedAt(_ context.Context, jti string) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupErr != nil {
		return 0, false, f.lookupErr
	}
	record, ok := f.records[jti]
	if !ok {
		return 0, false, nil
	}
	return record.RevokedAt, true, nil
}

func (f *fakeStore) DeleteExpired(_ context.Context, now int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for jti, record := range f.records {
		if len(jti) >= 2 && jti[:2] == "__" {
			continue
		}
		if record.ExpiresAt < now {
			delete(f.records, jti)
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

// engine wires the full token lifecycle against in-memory collaborators and
// a controllable clock.
type engine struct {
	clock     *fakeClock
	settings  *fakeSettings
	store     *fakeStore
	builder   *ClaimBuilder
	issuer    *Issuer
	verifier  *Verifier
	exchanger *Exchanger
	manager   *RevocationManager
}

func newEngine(t *testing.T, settingValues map[string]string) *engine {
	t.Helper()

	clock := newFakeClock()
	settings := newFakeSettings(settingValues)
	store := newFakeStore()

	builder := NewClaimBuilder(settings, testBaseURL)
	builder.now = clock.Now

	verifier := NewVerifier(settings, store)
	verifier.now = clock.Now

	issuer := NewIssuer(builder, settings)

	exchanger := NewExchanger(verifier, issuer, store)
	exchanger.now = clock.Now

	manager := NewRevocationManager(settings, store)
	manager.now = clock.Now

	return &engine{
		clock:     clock,
		settings:  settings,
		store:     store,
		builder:   builder,
		issuer:    issuer,
		verifier:  verifier,
		exchanger: exchanger,
		manager:   manager,
	}
}

func jwtDate(t time.Time) *jwt.NumericDate {
	return jwt.NewNumericDate(t)
}

func signClaims(t *testing.T, claims *Claims, secret string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign claims: %v", err)
	}
	return token
}

func newEngineWithSecret(t *testing.T) *engine {
	t.Helper()
	secret, err := GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret: %v", err)
	}
	return newEngine(t, map[string]string{SettingSecret: secret})
}
