package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/aloha-admin/internal/service"
)

// AdminHandler serves the admin-only identity listing.
type AdminHandler struct {
	Users *service.UserService
}

func NewAdminHandler(u *service.UserService) *AdminHandler {
	return &AdminHandler{Users: u}
}

// ListUsers: GET /v1/admin/users?limit=&offset=
func (h *AdminHandler) ListUsers(c echo.Context) error {
	limit, err := queryInt(c, "limit", service.DefaultPageSize)
	if err != nil {
		return err
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	users, err := h.Users.List(ctx, limit, offset)
	if err != nil {
		return err
	}
	if limit > service.MaxPageSize {
		limit = service.MaxPageSize
	}
	return c.JSON(http.StatusOK, usersResp{Users: users, Limit: limit, Offset: offset})
}

func queryInt(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, &service.ValidationError{Field: name, Reason: "must be a non-negative integer"}
	}
	return n, nil
}
