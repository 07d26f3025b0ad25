package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/aloha-admin/internal/middleware"
	"github.com/iliyamo/aloha-admin/internal/service"
)

// requestTimeout bounds the store calls a single request may make.
const requestTimeout = 5 * time.Second

// AuthHandler exposes the session lifecycle over HTTP.
type AuthHandler struct {
	Sessions *service.SessionService
}

func NewAuthHandler(s *service.SessionService) *AuthHandler {
	return &AuthHandler{Sessions: s}
}

// Register: create the identity and return its first pair.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	s, err := h.Sessions.Register(ctx, service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, authResp{User: s.User, pairResp: toPair(s.Tokens)})
}

// Login: verify credentials and return a new pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	s, err := h.Sessions.Login(ctx, req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, authResp{User: s.User, pairResp: toPair(s.Tokens)})
}

// Refresh: redeem a refresh token once for a new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	pair, err := h.Sessions.Refresh(ctx, strings.TrimSpace(req.RefreshToken))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toPair(pair))
}

// Logout: revoke the bearer access token and, if sent, the refresh token.
// Runs behind JWTAuth.
func (h *AuthHandler) Logout(c echo.Context) error {
	claims, err := middleware.ClaimsFrom(c)
	if err != nil {
		return err
	}
	var req logoutReq
	if err := c.Bind(&req); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	err = h.Sessions.Logout(ctx, service.LogoutInput{
		SubjectID:    claims.SubjectID(),
		AccessToken:  middleware.TokenFrom(c),
		RefreshToken: strings.TrimSpace(req.RefreshToken),
	})
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
