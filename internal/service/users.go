package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/aloha-admin/internal/auth"
	"github.com/iliyamo/aloha-admin/internal/model"
	"github.com/iliyamo/aloha-admin/internal/obs"
	"github.com/iliyamo/aloha-admin/internal/queue"
	"github.com/iliyamo/aloha-admin/internal/repository"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ProfileUpdate carries the fields a caller may change on their own record.
// Nil fields are left untouched. Changing Password requires CurrentPassword.
type ProfileUpdate struct {
	FirstName       *string
	LastName        *string
	Password        *string
	CurrentPassword string
}

type UserOptions struct {
	Hasher  auth.Hasher
	Events  queue.Publisher
	Logger  *zap.Logger
	Metrics *obs.Metrics
	Now     func() time.Time
}

// UserService reads and edits identity records on behalf of an
// authenticated caller.
type UserService struct {
	users   UserStore
	hasher  auth.Hasher
	events  queue.Publisher
	log     *zap.Logger
	metrics *obs.Metrics
	now     func() time.Time
}

func NewUserService(users UserStore, opts UserOptions) *UserService {
	if opts.Hasher.Cost == 0 {
		opts.Hasher = auth.NewHasher(auth.DefaultBcryptCost)
	}
	if opts.Events == nil {
		opts.Events = queue.Noop{}
	}
	if opts.Now == nil {
		opts.Now = defaultNow
	}
	return &UserService{
		users:   users,
		hasher:  opts.Hasher,
		events:  opts.Events,
		log:     obs.OrNop(opts.Logger).Named("users"),
		metrics: opts.Metrics,
		now:     opts.Now,
	}
}

// Me returns the caller's own record. A subject whose record is gone is
// treated as holding an invalid token.
func (s *UserService) Me(ctx context.Context, id string) (model.User, error) {
	u, err := s.load(ctx, id)
	if err != nil {
		return model.User{}, err
	}
	return u.Public(), nil
}

func (s *UserService) UpdateProfile(ctx context.Context, id string, in ProfileUpdate) (model.User, error) {
	u, err := s.load(ctx, id)
	if err != nil {
		return model.User{}, err
	}

	if in.FirstName != nil {
		v := strings.TrimSpace(*in.FirstName)
		if err := validateName("firstName", v); err != nil {
			return model.User{}, err
		}
		u.FirstName = v
	}
	if in.LastName != nil {
		v := strings.TrimSpace(*in.LastName)
		if err := validateName("lastName", v); err != nil {
			return model.User{}, err
		}
		u.LastName = v
	}

	passwordChanged := false
	if in.Password != nil {
		if err := validatePassword(*in.Password); err != nil {
			return model.User{}, err
		}
		if !s.hasher.Verify(in.CurrentPassword, u.PasswordHash) {
			s.metrics.Operation("password_change", string(auth.KindInvalidCredentials))
			return model.User{}, auth.ErrInvalidCredentials
		}
		digest, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return model.User{}, err
		}
		u.PasswordHash = digest
		passwordChanged = true
	}

	u.UpdatedAt = s.now()
	if err := s.users.Update(ctx, &u); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, auth.ErrTokenInvalid
		}
		return model.User{}, auth.Unavailable(identityStore, err)
	}

	if passwordChanged {
		s.metrics.Operation("password_change", "ok")
		s.log.Info("password changed", zap.String("user_id", u.ID))
		ev := queue.AuthEvent{Type: queue.EventPasswordChanged, UserID: u.ID, Email: u.Email, OccurredAt: s.now()}
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		defer cancel()
		if err := s.events.Publish(pctx, ev); err != nil {
			s.log.Warn("publish auth event failed", zap.String("type", string(ev.Type)), zap.Error(err))
		}
	}
	return u.Public(), nil
}

// List returns one page of identities newest first. limit is
// clamped to [1, MaxPageSize]; zero selects DefaultPageSize.
func (s *UserService) List(ctx context.Context, limit, offset int) ([]model.User, error) {
	switch {
	case limit <= 0:
		limit = DefaultPageSize
	case limit > MaxPageSize:
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	users, err := s.users.List(ctx, limit, offset)
	if err != nil {
		return nil, auth.Unavailable(identityStore, err)
	}
	for i := range users {
		users[i] = users[i].Public()
	}
	return users, nil
}

func (s *UserService) load(ctx context.Context, id string) (model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, auth.ErrTokenInvalid
	}
	if err != nil {
		return model.User{}, auth.Unavailable(identityStore, err)
	}
	return u, nil
}
