package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/token-service/internal/auth"
	"github.com/spec-kit/token-service/internal/domain"
	"github.com/spec-kit/token-service/internal/events"
	"github.com/spec-kit/token-service/internal/observability"
	"github.com/spec-kit/token-service/internal/repository"
	apperrors "github.com/spec-kit/token-service/pkg/util/errorutil"
)

// TokenService coordinates the token lifecycle: login issuance, refresh
// exchange and revocation. Every authentication failure surfaces as the same
// generic unauthorized error.
type TokenService struct {
	users       repository.UserRepository
	revocations repository.RevocationRepository
	issuer      *auth.Issuer
	exchanger   *auth.Exchanger
	revoker     *auth.RevocationManager
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics
	logger      *zap.Logger
}

// TokenDependencies bundles collaborator requirements.
type TokenDependencies struct {
	UserRepo       repository.UserRepository
	RevocationRepo repository.RevocationRepository
	Issuer         *auth.Issuer
	Exchanger      *auth.Exchanger
	Revoker        *auth.RevocationManager
	Dispatcher     events.Dispatcher
	Metrics        *observability.Metrics
	Logger         *zap.Logger
}

// NewTokenService builds the service.
func NewTokenService(deps TokenDependencies) *TokenService {
	return &TokenService{
		users:       deps.UserRepo,
		revocations: deps.RevocationRepo,
		issuer:      deps.Issuer,
		exchanger:   deps.Exchanger,
		revoker:     deps.Revoker,
		dispatcher:  deps.Dispatcher,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
	}
}

// Login authenticates username/password and issues a token pair.
func (s *TokenService) Login(ctx context.Context, username, password string) (*domain.User, domain.TokenPair, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.TokenPair{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, domain.TokenPair{}, err
	}
	if !user.IsActive {
		return nil, domain.TokenPair{}, apperrors.NewUnauthorized("invalid credentials")
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		s.metrics.RecordTokenOp("login", false)
		return nil, domain.TokenPair{}, apperrors.NewUnauthorized("invalid credentials")
	}

	principal := domain.Principal{ID: user.ID, Username: user.Username, Role: user.Role}
	pair, err := s.issuer.IssueTokenPair(ctx, principal)
	if err != nil {
		s.metrics.RecordTokenOp("login", false)
		return nil, domain.TokenPair{}, err
	}

	s.metrics.RecordTokenOp("login", true)
	s.publish(ctx, events.EventTokenPairIssued, user.ID, user.ID, nil)
	return user, pair, nil
}

// Refresh exchanges a refresh token for a new pair.
func (s *TokenService) Refresh(ctx context.Context, rawRefresh string) (domain.TokenPair, error) {
	pair, principal, err := s.exchanger.Refresh(ctx, rawRefresh)
	if err != nil {
		s.metrics.RecordTokenOp("refresh", false)
		return domain.TokenPair{}, apperrors.NewUnauthorized("invalid credentials")
	}

	s.metrics.RecordTokenOp("refresh", true)
	s.publish(ctx, events.EventTokenRefreshed, principal.ID, principal.ID, nil)
	return pair, nil
}

// Revoke invalidates a single token. Callers may revoke their own tokens;
// administrators may revoke anyone's.
func (s *TokenService) Revoke(ctx context.Context, raw string, caller domain.Principal) error {
	record, err := s.revoker.RevokeToken(ctx, raw, caller)
	if err != nil {
		s.metrics.RecordTokenOp("revoke", false)
		if errors.Is(err, auth.ErrNotAllowed) {
			return apperrors.NewForbidden("forbidden")
		}
		return apperrors.NewUnauthorized("invalid credentials")
	}

	s.metrics.RecordTokenOp("revoke", true)
	s.publish(ctx, events.EventTokenRevoked, record.UserID, caller.ID, events.TokenRevokedPayload{
		JTI:       record.JTI,
		TokenType: record.TokenType,
	})
	return nil
}

// RevokeUser invalidates every outstanding token for userID. Admin only.
func (s *TokenService) RevokeUser(ctx context.Context, userID int64, caller domain.Principal) error {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewNotFound("user", nil)
		}
		return err
	}

	if err := s.revoker.RevokeUserTokens(ctx, userID, caller); err != nil {
		if errors.Is(err, auth.ErrNotAllowed) {
			return apperrors.NewForbidden("forbidden")
		}
		return err
	}

	s.publish(ctx, events.EventUserTokensRevoked, userID, caller.ID, nil)
	return nil
}

// RevokeAll invalidates every outstanding token system-wide. Admin only.
func (s *TokenService) RevokeAll(ctx context.Context, caller domain.Principal) error {
	if err := s.revoker.RevokeAllTokens(ctx, caller); err != nil {
		if errors.Is(err, auth.ErrNotAllowed) {
			return apperrors.NewForbidden("forbidden")
		}
		return err
	}

	s.publish(ctx, events.EventAllTokensRevoked, 0, caller.ID, nil)
	return nil
}

// ListRevoked returns the revocation records for a single user, newest
// first. Admin only.
func (s *TokenService) ListRevoked(ctx context.Context, userID int64, caller domain.Principal) ([]domain.RevokedToken, error) {
	if !caller.IsAdmin() {
		return nil, apperrors.NewForbidden("forbidden")
	}
	records, err := s.revocations.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return records, nil
}

// Cleanup prunes revocation records for naturally expired tokens.
func (s *TokenService) Cleanup(ctx context.Context) (int64, error) {
	return s.revoker.CleanupExpired(ctx)
}

func (s *TokenService) publish(ctx context.Context, eventType events.EventType, userID, actorID int64, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		ActorID:   actorID,
		Timestamp: time.Now(),
		Payload:   payload,
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event publish failed", zap.String("event_type", string(eventType)), zap.Error(err))
	}
}
