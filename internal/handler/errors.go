package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/aloha-admin/internal/auth"
	"github.com/iliyamo/aloha-admin/internal/obs"
	"github.com/iliyamo/aloha-admin/internal/service"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

const (
	msgLogin       = "please log in again"
	msgDenied      = "access denied"
	msgUnavailable = "service temporarily unavailable, please retry later"
	msgInternal    = "internal server error"
)

// Status maps err to an HTTP status and the body clients see. Store and
// unknown failures never expose their detail.
func Status(err error) (int, errorBody) {
	switch kind := auth.KindOf(err); kind {
	case auth.KindInvalidCredentials:
		return http.StatusUnauthorized, errorBody{string(kind), "invalid email or password"}
	case auth.KindTokenMissing, auth.KindTokenInvalid, auth.KindTokenExpired, auth.KindTokenRevoked:
		return http.StatusUnauthorized, errorBody{string(kind), msgLogin}
	case auth.KindAlreadyExists:
		return http.StatusConflict, errorBody{string(kind), "email already registered"}
	case auth.KindInsufficientPermissions:
		return http.StatusForbidden, errorBody{string(kind), msgDenied}
	case auth.KindStoreUnavailable:
		return http.StatusServiceUnavailable, errorBody{string(kind), msgUnavailable}
	}

	var verr *service.ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest, errorBody{"invalid_request", verr.Error()}
	}
	var fields validator.ValidationErrors
	if errors.As(err, &fields) && len(fields) > 0 {
		return http.StatusBadRequest, errorBody{"invalid_request", describe(fields[0])}
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code := strings.ReplaceAll(strings.ToLower(http.StatusText(he.Code)), " ", "_")
		return he.Code, errorBody{code, fmt.Sprint(he.Message)}
	}
	return http.StatusInternalServerError, errorBody{"internal", msgInternal}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + ": required"
	case "email":
		return fe.Field() + ": must be a valid address"
	case "min":
		return fmt.Sprintf("%s: must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s: must be at most %s characters", fe.Field(), fe.Param())
	}
	return fe.Field() + ": invalid"
}

// ErrorHandler renders every error returned by handlers and middleware.
func ErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	log = obs.OrNop(log)
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, body := Status(err)
		if status >= http.StatusInternalServerError {
			log.Error("request failed",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.Int("status", status),
				zap.Error(err))
		}
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, body)
	}
}
