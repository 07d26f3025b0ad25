package revocation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/aloha-admin/internal/auth"
)

// downStore fails every call the way an unreachable Redis would.
type downStore struct{}

var errDown = auth.Unavailable(storeName, errors.New("dial tcp 127.0.0.1:6379: connect: connection refused"))

func (downStore) Blacklist(context.Context, Record) error { return errDown }
func (downStore) Claim(context.Context, Record) (bool, error) { return false, errDown }
func (downStore) IsBlacklisted(context.Context, string) (bool, error) { return false, errDown }

func TestList_FailOpen(t *testing.T) {
	l := NewList(downStore{}, Options{Enabled: true, FailOpen: true})
	ctx := context.Background()
	rec := Record{Token: "t", UserID: "u", Type: auth.KindAccess, ExpiresAt: time.Now().Add(time.Minute)}

	revoked, err := l.IsBlacklisted(ctx, "t")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, l.Blacklist(ctx, rec))

	won, err := l.Claim(ctx, rec)
	require.NoError(t, err)
	assert.True(t, won)
}

func TestList_FailClosed(t *testing.T) {
	l := NewList(downStore{}, Options{Enabled: true, FailOpen: false})
	ctx := context.Background()
	rec := Record{Token: "t", UserID: "u", Type: auth.KindRefresh, ExpiresAt: time.Now().Add(time.Minute)}

	_, err := l.IsBlacklisted(ctx, "t")
	require.ErrorIs(t, err, auth.ErrStoreUnavailable)

	require.ErrorIs(t, l.Blacklist(ctx, rec), auth.ErrStoreUnavailable)

	won, err := l.Claim(ctx, rec)
	require.ErrorIs(t, err, auth.ErrStoreUnavailable)
	assert.False(t, won)
}

func TestList_DisabledNeverRevokes(t *testing.T) {
	s, _ := newRedisStore(t)
	l := NewList(s, Options{Enabled: false})
	ctx := context.Background()

	require.NoError(t, l.Blacklist(ctx, record("tok", time.Hour)))
	revoked, err := l.IsBlacklisted(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, revoked)
	assert.False(t, l.Enabled())
}

func TestList_NilStoreIsDisabled(t *testing.T) {
	l := NewList(nil, Options{Enabled: true})
	assert.False(t, l.Enabled())
	revoked, err := l.IsBlacklisted(context.Background(), "tok")
	require.NoError(t, err)
	assert.False(t, revoked)
}
