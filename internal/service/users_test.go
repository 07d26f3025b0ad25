package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/aloha-admin/internal/auth"
	"github.com/iliyamo/aloha-admin/internal/model"
	"github.com/iliyamo/aloha-admin/internal/queue"
)

func strp(s string) *string { return &s }

func newUserFixture(t *testing.T) (*fixture, *UserService) {
	t.Helper()
	f := newFixture(t)
	return f, NewUserService(f.users, UserOptions{Hasher: testHasher, Events: f.events})
}

func TestMe(t *testing.T) {
	f, users := newUserFixture(t)
	s := f.register(t, "ada@example.com", "correct horse")

	me, err := users.Me(context.Background(), s.User.ID)
	require.NoError(t, err)
	assert.Equal(t, s.User.ID, me.ID)
	assert.Empty(t, me.PasswordHash)

	_, err = users.Me(context.Background(), "missing")
	require.ErrorIs(t, err, auth.ErrTokenInvalid)
}

func TestUpdateProfile_Names(t *testing.T) {
	f, users := newUserFixture(t)
	s := f.register(t, "ada@example.com", "correct horse")

	u, err := users.UpdateProfile(context.Background(), s.User.ID, ProfileUpdate{FirstName: strp("  Augusta ")})
	require.NoError(t, err)
	assert.Equal(t, "Augusta", u.FirstName)
	assert.Equal(t, "Lovelace", u.LastName, "nil fields are untouched")
	assert.NotContains(t, f.events.types(), queue.EventPasswordChanged)
}

func TestUpdateProfile_Password(t *testing.T) {
	f, users := newUserFixture(t)
	s := f.register(t, "ada@example.com", "correct horse")
	ctx := context.Background()

	_, err := users.UpdateProfile(ctx, s.User.ID, ProfileUpdate{Password: strp("battery staple"), CurrentPassword: "nope"})
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, err = users.UpdateProfile(ctx, s.User.ID, ProfileUpdate{Password: strp("short"), CurrentPassword: "correct horse"})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "password", verr.Field)

	_, err = users.UpdateProfile(ctx, s.User.ID, ProfileUpdate{Password: strp("battery staple"), CurrentPassword: "correct horse"})
	require.NoError(t, err)
	assert.Contains(t, f.events.types(), queue.EventPasswordChanged)

	_, err = f.sessions.Login(ctx, "ada@example.com", "correct horse")
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)
	_, err = f.sessions.Login(ctx, "ada@example.com", "battery staple")
	require.NoError(t, err)
}

func TestUpdateProfile_StoreDown(t *testing.T) {
	f, users := newUserFixture(t)
	s := f.register(t, "ada@example.com", "correct horse")
	f.users.fail = errDB

	_, err := users.UpdateProfile(context.Background(), s.User.ID, ProfileUpdate{FirstName: strp("x")})
	require.ErrorIs(t, err, auth.ErrStoreUnavailable)
}

func TestList_ClampsAndStripsDigests(t *testing.T) {
	f, _ := newUserFixture(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < MaxPageSize+5; i++ {
		u := model.User{
			ID:           fmt.Sprintf("u-%03d", i),
			Email:        fmt.Sprintf("u%03d@example.com", i),
			PasswordHash: "digest",
			Role:         model.RoleUser,
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, f.users.Create(context.Background(), &u))
	}
	users := NewUserService(f.users, UserOptions{Hasher: testHasher})

	page, err := users.List(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Len(t, page, DefaultPageSize)
	assert.Equal(t, fmt.Sprintf("u-%03d", MaxPageSize+4), page[0].ID, "newest first")
	for _, u := range page {
		assert.Empty(t, u.PasswordHash)
	}

	page, err = users.List(context.Background(), 1000, -3)
	require.NoError(t, err)
	assert.Len(t, page, MaxPageSize)

	f.users.fail = errDB
	_, err = users.List(context.Background(), 10, 0)
	require.ErrorIs(t, err, auth.ErrStoreUnavailable)
}
