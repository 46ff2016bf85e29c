package service

import (
	"context"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/token-service/internal/auth"
	"github.com/spec-kit/token-service/internal/domain"
	"github.com/spec-kit/token-service/internal/events"
	"github.com/spec-kit/token-service/internal/repository"
	apperrors "github.com/spec-kit/token-service/pkg/util/errorutil"
)

// profileFields is the whitelist of user columns writable through the
// profile API.
var profileFields = map[string]struct{}{
	"username": {},
	"name":     {},
	"email":    {},
	"theme":    {},
	"timezone": {},
	"language": {},
	"filter":   {},
}

// maxAvatarBytes bounds decoded avatar uploads.
const maxAvatarBytes = 1 << 20

var allowedAvatarTypes = map[string]struct{}{
	"image/png":  {},
	"image/jpeg": {},
	"image/gif":  {},
}

// Profile is the field subset returned by profile reads.
type Profile struct {
	ID       int64       `json:"id"`
	Username string      `json:"username"`
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Theme    string      `json:"theme"`
	Timezone string      `json:"timezone"`
	Language string      `json:"language"`
	Filter   string      `json:"filter"`
	Role     domain.Role `json:"role"`
	IsActive bool        `json:"is_active"`
}

// UserService exposes the per-field user-data operations. Every operation is
// gated by the same rule: the caller must be the target user or an
// administrator.
type UserService struct {
	users      repository.UserRepository
	metadata   repository.MetadataRepository
	avatars    repository.AvatarRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	bcryptCost int
}

// UserDependencies bundles collaborator requirements.
type UserDependencies struct {
	UserRepo     repository.UserRepository
	MetadataRepo repository.MetadataRepository
	AvatarRepo   repository.AvatarRepository
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	BcryptCost   int
}

// NewUserService builds the service.
func NewUserService(deps UserDependencies) *UserService {
	return &UserService{
		users:      deps.UserRepo,
		metadata:   deps.MetadataRepo,
		avatars:    deps.AvatarRepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		bcryptCost: deps.BcryptCost,
	}
}

// canAccess enforces the owner-or-admin rule shared by every operation here.
func canAccess(caller domain.Principal, targetUserID int64) error {
	if caller.ID == targetUserID || caller.IsAdmin() {
		return nil
	}
	return apperrors.NewForbidden("forbidden")
}

// GetProfile returns the profile field set for userID.
func (s *UserService) GetProfile(ctx context.Context, userID int64, caller domain.Principal) (*Profile, error) {
	if err := canAccess(caller, userID); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &Profile{
		ID:       user.ID,
		Username: user.Username,
		Name:     user.Name,
		Email:    user.Email,
		Theme:    user.Theme,
		Timezone: user.Timezone,
		Language: user.Language,
		Filter:   user.Filter,
		Role:     user.Role,
		IsActive: user.IsActive,
	}, nil
}

// UpdateProfile applies whitelisted field updates to userID. Unknown fields
// are rejected rather than ignored, so callers learn about typos.
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, fields map[string]string, caller domain.Principal) error {
	if err := canAccess(caller, userID); err != nil {
		return err
	}
	if len(fields) == 0 {
		return apperrors.NewValidationError("no fields to update", nil)
	}
	for name := range fields {
		if _, ok := profileFields[name]; !ok {
			return apperrors.NewValidationError("field not allowed", map[string]any{"field": name})
		}
	}

	if err := s.users.UpdateFields(ctx, userID, fields); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// GetAllMetadata returns every metadata entry for userID.
func (s *UserService) GetAllMetadata(ctx context.Context, userID int64, caller domain.Principal) (map[string]string, error) {
	if err := canAccess(caller, userID); err != nil {
		return nil, err
	}
	values, err := s.metadata.GetAll(ctx, userID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return values, nil
}

// GetMetadata returns one metadata value, or the empty string when unset.
func (s *UserService) GetMetadata(ctx context.Context, userID int64, name string, caller domain.Principal) (string, error) {
	if err := canAccess(caller, userID); err != nil {
		return "", err
	}
	value, err := s.metadata.Get(ctx, userID, name, "")
	if err != nil {
		return "", apperrors.MapError(err)
	}
	return value, nil
}

// SaveMetadata upserts the given metadata entries for userID.
func (s *UserService) SaveMetadata(ctx context.Context, userID int64, values map[string]string, caller domain.Principal) error {
	if err := canAccess(caller, userID); err != nil {
		return err
	}
	if len(values) == 0 {
		return apperrors.NewValidationError("no values to save", nil)
	}
	if err := s.metadata.Save(ctx, userID, values); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// RemoveMetadata deletes one metadata entry.
func (s *UserService) RemoveMetadata(ctx context.Context, userID int64, name string, caller domain.Principal) error {
	if err := canAccess(caller, userID); err != nil {
		return err
	}
	if err := s.metadata.Remove(ctx, userID, name); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// UploadAvatar validates and stores a base64-encoded avatar image.
func (s *UserService) UploadAvatar(ctx context.Context, userID int64, encoded string, caller domain.Principal) error {
	if err := canAccess(caller, userID); err != nil {
		return err
	}

	image, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return apperrors.NewValidationError("invalid image encoding", nil)
	}
	if len(image) == 0 || len(image) > maxAvatarBytes {
		return apperrors.NewValidationError("invalid image size", nil)
	}
	contentType := http.DetectContentType(image)
	if _, ok := allowedAvatarTypes[contentType]; !ok {
		return apperrors.NewValidationError("unsupported image type", map[string]any{"content_type": contentType})
	}

	if err := s.avatars.Upsert(ctx, userID, image, contentType); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// GetAvatar returns the stored avatar bytes and content type.
func (s *UserService) GetAvatar(ctx context.Context, userID int64, caller domain.Principal) ([]byte, string, error) {
	if err := canAccess(caller, userID); err != nil {
		return nil, "", err
	}
	image, contentType, err := s.avatars.Get(ctx, userID)
	if err != nil {
		return nil, "", apperrors.MapError(err)
	}
	return image, contentType, nil
}

// RemoveAvatar deletes the stored avatar.
func (s *UserService) RemoveAvatar(ctx context.Context, userID int64, caller domain.Principal) error {
	if err := canAccess(caller, userID); err != nil {
		return err
	}
	if err := s.avatars.Remove(ctx, userID); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// ChangePassword verifies the caller's current password before storing the
// new hash. Callers can only change their own password through this path.
func (s *UserService) ChangePassword(ctx context.Context, caller domain.Principal, currentPassword, newPassword string) error {
	if newPassword == "" {
		return apperrors.NewValidationError("new password required", nil)
	}

	user, err := s.users.GetByID(ctx, caller.ID)
	if err != nil {
		return apperrors.MapError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return apperrors.NewUnauthorized("invalid credentials")
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, caller.ID, hash); err != nil {
		return apperrors.MapError(err)
	}

	s.publishPasswordChanged(ctx, caller.ID, caller.ID)
	return nil
}

// ResetPassword sets a new password without knowing the current one.
// Admin only.
func (s *UserService) ResetPassword(ctx context.Context, userID int64, newPassword string, caller domain.Principal) error {
	if !caller.IsAdmin() {
		return apperrors.NewForbidden("forbidden")
	}
	if newPassword == "" {
		return apperrors.NewValidationError("new password required", nil)
	}

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return apperrors.MapError(err)
	}

	s.publishPasswordChanged(ctx, userID, caller.ID)
	return nil
}

func (s *UserService) publishPasswordChanged(ctx context.Context, userID, actorID int64) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventPasswordChanged,
		UserID:    userID,
		ActorID:   actorID,
		Timestamp: time.Now(),
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event publish failed", zap.Error(err))
	}
}
