package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/token-service/internal/api/dto"
	"github.com/spec-kit/token-service/internal/auth"
	"github.com/spec-kit/token-service/internal/domain"
	"github.com/spec-kit/token-service/internal/service"
	apperrors "github.com/spec-kit/token-service/pkg/util/errorutil"
)

// UsersHandler exposes the per-field user-data endpoints.
type UsersHandler struct {
	users *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(users *service.UserService) *UsersHandler {
	return &UsersHandler{users: users}
}

func callerAndTarget(c *fiber.Ctx) (domain.Principal, int64, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return domain.Principal{}, 0, apperrors.NewUnauthorized("invalid credentials")
	}
	userID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return domain.Principal{}, 0, fiber.NewError(http.StatusBadRequest, "invalid user id")
	}
	return principal, userID, nil
}

// GetProfile handles GET /users/:id/profile.
func (h *UsersHandler) GetProfile(c *fiber.Ctx) error {
	principal, userID, err := callerAndTarget(c)
	if err != nil {
		return err
	}

	profile, err := h.users.GetProfile(c.UserContext(), userID, principal)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": profile})
}

// UpdateProfile handles PUT /users/:id/profile.
func (h *UsersHandler) UpdateProfile(c *fiber.Ctx) error {
	principal, userID, err := callerAndTarget(c)
	if err != nil {
		return err
	}

	var req dto.ProfileUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	if err := h.users.UpdateProfile(c.UserContext(), userID, req.Fields(), principal); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"updated": true}})
}

// GetAllMetadata handles GET /users/:id/metadata.
func (h *UsersHandler) GetAllMetadata(c *fiber.Ctx) error {
	principal, userID, err := callerAndTarget(c)
	if err != nil {
		return err
	}

	values, err := h.users.GetAllMetadata(c.UserContext(), userID, principal)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": values})
}

// GetMetadata handles GET /users/:id/metadata/:name.
func (h *UsersHandler) GetMetadata(c *fiber.Ctx) error {
	principal, userID, err := callerAndTarget(c)
	if err != nil {
		return err
	}

	value, err := h.users.GetMetadata(c.UserContext(), userID, c.Params("name"), principal)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"value": value}})
}

// SaveMetadata handles PUT /users/:id/metadata.
func (h *UsersHandler) SaveMetadata(c *fiber.Ctx) error {
	principal, userID, err := callerAndTarget(c)
	if err != nil {
		return err
	}

	var req dto.MetadataSaveRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	if err := h.users.SaveMetadata(c.UserContext(), userID, req.Values, principal); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"saved": true}})
}

// RemoveMetadata handles DELETE /users/:id/metadata/:name.
func (h *UsersHandler) RemoveMetadata(c *fiber.Ctx) error {
	principal, userID, err := callerAndTarget(c)
	if err != nil {
		return err
	}

	if err := h.users.RemoveMetadata(c.UserContext(), userID, c.Params("name"), principal); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"removed": true}})
}

// UploadAvatar handles PUT /users/:id/avatar.
func (h *UsersHandler) UploadAvatar(c *fiber.Ctx) error {
	principal, userID, err := callerAndTarget(c)
	if err != nil {
		return err
	}

	var req dto.AvatarUploadRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Image == "" {
		return fiber.NewError(http.StatusBadRequest, "image required")
	}

	if err := h.users.UploadAvatar(c.UserContext(), userID, req.Image, principal); err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": fiber.Map{"uploaded": true}})
}

// GetAvatar handles GET /users/:id/avatar.
func (h *UsersHandler) GetAvatar(c *fiber.Ctx) error {
	principal, userID, err := callerAndTarget(c)
	if err != nil {
		return err
	}

	image, contentType, err := h.users.GetAvatar(c.UserContext(), userID, principal)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, contentType)
	return c.Send(image)
}

// RemoveAvatar handles DELETE /users/:id/avatar.
func (h *UsersHandler) RemoveAvatar(c *fiber.Ctx) error {
	principal, userID, err := callerAndTarget(c)
	if err != nil {
		return err
	}

	if err := h.users.RemoveAvatar(c.UserContext(), userID, principal); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"removed": true}})
}

// ChangePassword handles PUT /users/password.
func (h *UsersHandler) ChangePassword(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("invalid credentials")
	}

	var req dto.PasswordChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	if err := h.users.ChangePassword(c.UserContext(), principal, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"changed": true}})
}

// ResetPassword handles PUT /users/:id/password (admin).
func (h *UsersHandler) ResetPassword(c *fiber.Ctx) error {
	principal, userID, err := callerAndTarget(c)
	if err != nil {
		return err
	}

	var req dto.PasswordResetRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	if err := h.users.ResetPassword(c.UserContext(), userID, req.NewPassword, principal); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"reset": true}})
}
