package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/aloha-admin/internal/auth"
	"github.com/iliyamo/aloha-admin/internal/model"
	"github.com/iliyamo/aloha-admin/internal/queue"
	"github.com/iliyamo/aloha-admin/internal/repository"
	"github.com/iliyamo/aloha-admin/internal/revocation"
)

var (
	testSecret = []byte("0123456789abcdef0123456789abcdef")
	testHasher = auth.Hasher{Cost: bcrypt.MinCost}
	errDB      = errors.New("dial tcp 127.0.0.1:3306: connect: connection refused")
)

// memUsers is an in-memory UserStore that enforces unique emails like the real table.
type memUsers struct {
	mu   sync.Mutex
	byID map[string]model.User
	fail error
}

func newMemUsers() *memUsers { return &memUsers{byID: map[string]model.User{}} }

func (m *memUsers) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return repository.ErrEmailExists
		}
	}
	m.byID[u.ID] = *u
	return nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return model.User{}, m.fail
	}
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (m *memUsers) GetByID(_ context.Context, id string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return model.User{}, m.fail
	}
	u, ok := m.byID[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) Update(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	if _, ok := m.byID[u.ID]; !ok {
		return repository.ErrNotFound
	}
	m.byID[u.ID] = *u
	return nil
}

func (m *memUsers) List(_ context.Context, limit, offset int) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	out := make([]model.User, 0, len(m.byID))
	for _, u := range m.byID {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return []model.User{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memUsers) delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
}

func (m *memUsers) setRole(id string, role model.Role) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.byID[id]
	u.Role = role
	m.byID[id] = u
}

// recorder collects published events.
type recorder struct {
	mu     sync.Mutex
	events []queue.AuthEvent
	err    error
}

func (r *recorder) Publish(_ context.Context, ev queue.AuthEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recorder) types() []queue.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]queue.EventType, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	users    *memUsers
	codec    *auth.Codec
	list     *revocation.List
	store    *revocation.RedisStore
	mr       *miniredis.Miniredis
	events   *recorder
	sessions *SessionService
}

type fixtureOpt func(*revocation.Options, *SessionOptions)

func failClosed() fixtureOpt {
	return func(r *revocation.Options, _ *SessionOptions) { r.FailOpen = false }
}

func keepRefreshOnLogout() fixtureOpt {
	return func(_ *revocation.Options, s *SessionOptions) { s.LogoutRevokesRefresh = false }
}

func newFixture(t *testing.T, opts ...fixtureOpt) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	codec, err := auth.NewCodec(testSecret, auth.CodecOptions{})
	require.NoError(t, err)

	revOpts := revocation.Options{Enabled: true, FailOpen: true}
	sessOpts := SessionOptions{Hasher: testHasher, LogoutRevokesRefresh: true}
	for _, o := range opts {
		o(&revOpts, &sessOpts)
	}

	store := revocation.NewRedisStore(rdb, "", time.Now)
	list := revocation.NewList(store, revOpts)
	events := &recorder{}
	sessOpts.Events = events
	users := newMemUsers()

	svc, err := NewSessionService(users, codec, list, sessOpts)
	require.NoError(t, err)
	return &fixture{users: users, codec: codec, list: list, store: store, mr: mr, events: events, sessions: svc}
}

func (f *fixture) register(t *testing.T, email, password string) Session {
	t.Helper()
	s, err := f.sessions.Register(context.Background(), RegisterInput{
		Email: email, Password: password, FirstName: "Ada", LastName: "Lovelace",
	})
	require.NoError(t, err)
	return s
}
