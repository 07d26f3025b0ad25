package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/aloha-admin/internal/middleware"
	"github.com/iliyamo/aloha-admin/internal/service"
)

// ProfileHandler serves the caller's own record.
type ProfileHandler struct {
	Users *service.UserService
}

func NewProfileHandler(u *service.UserService) *ProfileHandler {
	return &ProfileHandler{Users: u}
}

func (h *ProfileHandler) Me(c echo.Context) error {
	claims, err := middleware.ClaimsFrom(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	u, err := h.Users.Me(ctx, claims.SubjectID())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

// UpdateMe applies a partial update. Absent fields keep their value.
func (h *ProfileHandler) UpdateMe(c echo.Context) error {
	claims, err := middleware.ClaimsFrom(c)
	if err != nil {
		return err
	}
	var req profileReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	u, err := h.Users.UpdateProfile(ctx, claims.SubjectID(), service.ProfileUpdate{
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Password:        req.Password,
		CurrentPassword: req.CurrentPassword,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}
