package handler

import (
	"reflect"
	"strings"
	"time"

	"github.com/iliyamo/aloha-admin/internal/auth"
	"github.com/iliyamo/aloha-admin/internal/model"
)

type registerReq struct {
	// Format is checked by the service after trimming and lower-casing.
	Email     string `json:"email" validate:"required"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	FirstName string `json:"firstName" validate:"max=100"`
	LastName  string `json:"lastName" validate:"max=100"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type logoutReq struct {
	RefreshToken string `json:"refresh_token"`
}

type profileReq struct {
	FirstName       *string `json:"firstName" validate:"omitempty,max=100"`
	LastName        *string `json:"lastName" validate:"omitempty,max=100"`
	Password        *string `json:"password" validate:"omitempty,min=8,max=72"`
	CurrentPassword string  `json:"currentPassword"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type pairResp struct {
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

type authResp struct {
	User model.User `json:"user"`
	pairResp
}

type usersResp struct {
	Users  []model.User `json:"users"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

func toPair(p auth.TokenPair) pairResp {
	return pairResp{
		Access:  tokenPart{Token: p.Access.Value, Expires: p.Access.ExpiresAt},
		Refresh: tokenPart{Token: p.Refresh.Value, Expires: p.Refresh.ExpiresAt},
	}
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" || name == "" {
		return f.Name
	}
	return name
}
