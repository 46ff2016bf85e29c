package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/token-service/internal/auth"
	"github.com/spec-kit/token-service/internal/domain"
	"github.com/spec-kit/token-service/internal/events"
	"github.com/spec-kit/token-service/internal/observability"
	apperrors "github.com/spec-kit/token-service/pkg/util/errorutil"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[int64]*domain.User
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[int64]*domain.User)}
	for _, user := range users {
		repo.users[user.ID] = user
	}
	return repo
}

func (f *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserRepo) UpdateFields(_ context.Context, id int64, fields map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	for name, value := range fields {
		switch name {
		case "username":
			user.Username = value
		case "name":
			user.Name = value
		case "email":
			user.Email = value
		case "theme":
			user.Theme = value
		case "timezone":
			user.Timezone = value
		case "language":
			user.Language = value
		case "filter":
			user.Filter = value
		}
	}
	return nil
}

func (f *fakeUserRepo) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.PasswordHash = passwordHash
	return nil
}

type metadataKey struct {
	userID int64
	name   string
}

type fakeMetadataRepo struct {
	mu     sync.Mutex
	values map[metadataKey]string
}

func newFakeMetadataRepo() *fakeMetadataRepo {
	return &fakeMetadataRepo{values: make(map[metadataKey]string)}
}

func (f *fakeMetadataRepo) GetAll(_ context.Context, userID int64) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	values := make(map[string]string)
	for key, value := range f.values {
		if key.userID == userID {
			values[key.name] = value
		}
	}
	return values, nil
}

func (f *fakeMetadataRepo) Get(_ context.Context, userID int64, name, fallback string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if value, ok := f.values[metadataKey{userID, name}]; ok {
		return value, nil
	}
	return fallback, nil
}

func (f *fakeMetadataRepo) Save(_ context.Context, userID int64, values map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for name, value := range values {
		f.values[metadataKey{userID, name}] = value
	}
	return nil
}

func (f *fakeMetadataRepo) Remove(_ context.Context, userID int64, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := metadataKey{userID, name}
	if _, ok := f.values[key]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.values, key)
	return nil
}

type avatarRecord struct {
	image       []byte
	contentType string
}

type fakeAvatarRepo struct {
	mu      sync.Mutex
	avatars map[int64]avatarRecord
}

func newFakeAvatarRepo() *fakeAvatarRepo {
	return &fakeAvatarRepo{avatars: make(map[int64]avatarRecord)}
}

func (f *fakeAvatarRepo) Upsert(_ context.Context, userID int64, image []byte, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.avatars[userID] = avatarRecord{image: image, contentType: contentType}
	return nil
}

func (f *fakeAvatarRepo) Get(_ context.Context, userID int64) ([]byte, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.avatars[userID]
	if !ok {
		return nil, "", pgx.ErrNoRows
	}
	return record.image, record.contentType, nil
}

func (f *fakeAvatarRepo) Remove(_ context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.avatars[userID]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.avatars, userID)
	return nil
}

type memSettings struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemSettings() *memSettings {
	return &memSettings{values: make(map[string]string)}
}

func (s *memSettings) Get(_ context.Context, key, fallback string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if value, ok := s.values[key]; ok && value != "" {
		return value, nil
	}
	return fallback, nil
}

func (s *memSettings) Save(_ context.Context, values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, value := range values {
		s.values[key] = value
	}
	return nil
}

type memStore struct {
	mu      sync.Mutex
	records map[string]domain.RevokedToken
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]domain.RevokedToken)}
}

func (s *memStore) Add(_ context.Context, record domain.RevokedToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.JTI] = record
	return nil
}

func (s *memStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[jti]
	return ok, nil
}

func (s *memStore) MarkerRevokedAt(_ context.Context, jti string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[jti]
	if !ok {
		return 0, false, nil
	}
	return record.RevokedAt, true, nil
}

func (s *memStore) ListByUser(_ context.Context, userID int64) ([]domain.RevokedToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var records []domain.RevokedToken
	for _, record := range s.records {
		if record.UserID == userID {
			records = append(records, record)
		}
	}
	return records, nil
}

func (s *memStore) DeleteExpired(_ context.Context, now int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for jti, record := range s.records {
		if len(jti) >= 2 && jti[:2] == "__" {
			continue
		}
		if record.ExpiresAt < now {
			delete(s.records, jti)
			count++
		}
	}
	return count, nil
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) last(t *testing.T) events.Event {
	t.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.events) == 0 {
		t.Fatal("no events published")
	}
	return d.events[len(d.events)-1]
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.events)
}

// tokenHarness wires a TokenService against in-memory collaborators.
type tokenHarness struct {
	service    *TokenService
	users      *fakeUserRepo
	verifier   *auth.Verifier
	dispatcher *recordingDispatcher
	metrics    *observability.Metrics
}

func newTokenHarness(t *testing.T, users ...*domain.User) *tokenHarness {
	t.Helper()

	settings := newMemSettings()
	store := newMemStore()
	repo := newFakeUserRepo(users...)

	builder := auth.NewClaimBuilder(settings, "http://token-service.local/")
	issuer := auth.NewIssuer(builder, settings)
	verifier := auth.NewVerifier(settings, store)
	exchanger := auth.NewExchanger(verifier, issuer, store)
	revoker := auth.NewRevocationManager(settings, store)

	dispatcher := &recordingDispatcher{}
	metrics := observability.NewMetrics()

	service := NewTokenService(TokenDependencies{
		UserRepo:       repo,
		RevocationRepo: store,
		Issuer:         issuer,
		Exchanger:      exchanger,
		Revoker:        revoker,
		Dispatcher:     dispatcher,
		Metrics:        metrics,
		Logger:         zap.NewNop(),
	})

	return &tokenHarness{
		service:    service,
		users:      repo,
		verifier:   verifier,
		dispatcher: dispatcher,
		metrics:    metrics,
	}
}

func newUserHarness(t *testing.T, users ...*domain.User) (*UserService, *fakeUserRepo, *fakeMetadataRepo, *fakeAvatarRepo, *recordingDispatcher) {
	t.Helper()

	repo := newFakeUserRepo(users...)
	metadata := newFakeMetadataRepo()
	avatars := newFakeAvatarRepo()
	dispatcher := &recordingDispatcher{}

	service := NewUserService(UserDependencies{
		UserRepo:     repo,
		MetadataRepo: metadata,
		AvatarRepo:   avatars,
		Dispatcher:   dispatcher,
		Logger:       zap.NewNop(),
		BcryptCost:   0, // clamped up to the bcrypt default
	})
	return service, repo, metadata, avatars, dispatcher
}

func testUser(t *testing.T, id int64, username, password string, role domain.Role) *domain.User {
	t.Helper()
	hash, err := auth.HashPassword(password, 0)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	return &domain.User{
		ID:           id,
		Username:     username,
		Name:         username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
}

func assertDomainCode(t *testing.T, err error, code string) {
	t.Helper()
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError %s, got %v", code, err)
	}
	if domainErr.Code != code {
		t.Fatalf("code = %s, want %s (err: %v)", domainErr.Code, code, err)
	}
}
