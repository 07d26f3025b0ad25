package auth

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{ErrInvalidCredentials, KindInvalidCredentials},
		{fmt.Errorf("login: %w", ErrInvalidCredentials), KindInvalidCredentials},
		{ErrTokenRevoked, KindTokenRevoked},
		{&ExpiredError{ExpiredAt: time.Now()}, KindTokenExpired},
		{&PermissionError{Required: []string{"admin"}, Actual: "user"}, KindInsufficientPermissions},
		{Unavailable("identity", errors.New("dial tcp: refused")), KindStoreUnavailable},
		{errors.New("boom"), KindUnknown},
		{nil, KindUnknown},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, KindOf(tc.err), "err=%v", tc.err)
	}
}

func TestVariantsMatchSentinels(t *testing.T) {
	assert.ErrorIs(t, &ExpiredError{}, ErrTokenExpired)
	assert.ErrorIs(t, &PermissionError{}, ErrInsufficientPermissions)

	cause := errors.New("connection reset")
	err := Unavailable("revocation", cause)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrTokenInvalid)
}

func TestUnavailable_Nil(t *testing.T) {
	assert.NoError(t, Unavailable("identity", nil))
}
