package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/aloha-admin/internal/auth"
	"github.com/iliyamo/aloha-admin/internal/model"
	"github.com/iliyamo/aloha-admin/internal/obs"
	"github.com/iliyamo/aloha-admin/internal/queue"
	"github.com/iliyamo/aloha-admin/internal/repository"
	"github.com/iliyamo/aloha-admin/internal/revocation"
)

// publishTimeout bounds how long a session operation waits on the broker,
// dial included.
const publishTimeout = 2 * time.Second

// Session is the result of a successful login or registration. User never
// carries the password digest.
type Session struct {
	User   model.User
	Tokens auth.TokenPair
}

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// LogoutInput identifies the session being ended. RefreshToken is optional;
// when present and the service is configured to, it is revoked as well.
type LogoutInput struct {
	SubjectID    string
	AccessToken  string
	RefreshToken string
}

type SessionOptions struct {
	Hasher               auth.Hasher
	LogoutRevokesRefresh bool
	Events               queue.Publisher
	Logger               *zap.Logger
	Metrics              *obs.Metrics
	Now                  func() time.Time
}

// SessionService runs login, registration, refresh rotation and logout.
type SessionService struct {
	users                UserStore
	codec                *auth.Codec
	revoked              Revocations
	hasher               auth.Hasher
	logoutRevokesRefresh bool
	events               queue.Publisher
	log                  *zap.Logger
	metrics              *obs.Metrics
	now                  func() time.Time

	// dummyDigest is compared against when the email is unknown so both
	// login failures cost one bcrypt verification.
	dummyDigest string
}

func NewSessionService(users UserStore, codec *auth.Codec, revoked Revocations, opts SessionOptions) (*SessionService, error) {
	if users == nil || codec == nil || revoked == nil {
		return nil, errors.New("session service: nil dependency")
	}
	if opts.Hasher.Cost == 0 {
		opts.Hasher = auth.NewHasher(auth.DefaultBcryptCost)
	}
	if opts.Events == nil {
		opts.Events = queue.Noop{}
	}
	if opts.Now == nil {
		opts.Now = defaultNow
	}
	dummy, err := opts.Hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, err
	}
	return &SessionService{
		users:                users,
		codec:                codec,
		revoked:              revoked,
		hasher:               opts.Hasher,
		logoutRevokesRefresh: opts.LogoutRevokesRefresh,
		events:               opts.Events,
		log:                  obs.OrNop(opts.Logger).Named("session"),
		metrics:              opts.Metrics,
		now:                  opts.Now,
		dummyDigest:          dummy,
	}, nil
}

// Login verifies email and password and issues a fresh token pair. An
// unknown email and a wrong password fail with the same error.
func (s *SessionService) Login(ctx context.Context, email, password string) (Session, error) {
	u, err := s.users.GetByEmail(ctx, repository.NormalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		s.hasher.Verify(password, s.dummyDigest)
		return Session{}, s.fail("login", auth.ErrInvalidCredentials)
	}
	if err != nil {
		return Session{}, s.fail("login", auth.Unavailable(identityStore, err))
	}
	if !s.hasher.Verify(password, u.PasswordHash) {
		return Session{}, s.fail("login", auth.ErrInvalidCredentials)
	}

	pair, err := s.codec.Pair(subjectOf(u))
	if err != nil {
		return Session{}, s.fail("login", err)
	}
	s.succeed(ctx, "login", queue.EventLogin, u)
	return Session{User: u.Public(), Tokens: pair}, nil
}

// Register creates an identity with role user and issues its first pair.
func (s *SessionService) Register(ctx context.Context, in RegisterInput) (Session, error) {
	email := repository.NormalizeEmail(in.Email)
	if err := validateEmail(email); err != nil {
		return Session{}, s.fail("register", err)
	}
	if err := validatePassword(in.Password); err != nil {
		return Session{}, s.fail("register", err)
	}
	first, last := strings.TrimSpace(in.FirstName), strings.TrimSpace(in.LastName)
	if err := validateName("firstName", first); err != nil {
		return Session{}, s.fail("register", err)
	}
	if err := validateName("lastName", last); err != nil {
		return Session{}, s.fail("register", err)
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return Session{}, s.fail("register", err)
	}
	now := s.now()
	u := model.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: digest,
		FirstName:    first,
		LastName:     last,
		Role:         model.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, &u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return Session{}, s.fail("register", auth.ErrAlreadyExists)
		}
		return Session{}, s.fail("register", auth.Unavailable(identityStore, err))
	}

	pair, err := s.codec.Pair(subjectOf(u))
	if err != nil {
		return Session{}, s.fail("register", err)
	}
	s.succeed(ctx, "register", queue.EventUserRegistered, u)
	return Session{User: u.Public(), Tokens: pair}, nil
}

// Refresh exchanges a refresh token for a new pair. The identity is loaded
// first so an identity store outage leaves the token redeemable. The token
// is then claimed in the revocation list with a single set-if-absent right
// before anything is issued, so each refresh token is redeemable once: a
// replay, or the loser of two concurrent redemptions, gets ErrTokenRevoked.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error) {
	claims, err := s.codec.Verify(refreshToken)
	if err != nil {
		return auth.TokenPair{}, s.fail("refresh", err)
	}

	// The pair is minted from the current record so role changes and
	// deleted accounts take effect at the next refresh.
	u, err := s.users.GetByID(ctx, claims.SubjectID())
	if errors.Is(err, repository.ErrNotFound) {
		return auth.TokenPair{}, s.fail("refresh", auth.ErrTokenInvalid)
	}
	if err != nil {
		return auth.TokenPair{}, s.fail("refresh", auth.Unavailable(identityStore, err))
	}

	won, err := s.revoked.Claim(ctx, revocation.Record{
		Token:     refreshToken,
		UserID:    claims.SubjectID(),
		Type:      auth.KindRefresh,
		ExpiresAt: claims.Expiry(),
	})
	if err != nil {
		return auth.TokenPair{}, s.fail("refresh", err)
	}
	if !won {
		s.log.Warn("refresh token replayed", zap.String("user_id", claims.SubjectID()))
		s.publish(ctx, queue.AuthEvent{Type: queue.EventRefreshReuse, UserID: claims.SubjectID(), Email: claims.Email})
		return auth.TokenPair{}, s.fail("refresh", auth.ErrTokenRevoked)
	}

	pair, err := s.codec.Pair(subjectOf(u))
	if err != nil {
		return auth.TokenPair{}, s.fail("refresh", err)
	}
	s.succeed(ctx, "refresh", queue.EventRefreshed, u)
	return pair, nil
}

// Logout blacklists the caller's access token for the rest of its natural
// life and, when configured and supplied, the matching refresh token. Both
// tokens are checked before either is written.
func (s *SessionService) Logout(ctx context.Context, in LogoutInput) error {
	access, live, err := s.ownedToken(in.AccessToken, in.SubjectID)
	if err != nil {
		return s.fail("logout", err)
	}
	records := make([]revocation.Record, 0, 2)
	if live {
		records = append(records, revocation.Record{
			Token: in.AccessToken, UserID: in.SubjectID, Type: auth.KindAccess, ExpiresAt: access.Expiry(),
		})
	}

	if in.RefreshToken != "" && s.logoutRevokesRefresh {
		refresh, live, err := s.ownedToken(in.RefreshToken, in.SubjectID)
		if err != nil {
			return s.fail("logout", err)
		}
		if live {
			records = append(records, revocation.Record{
				Token: in.RefreshToken, UserID: in.SubjectID, Type: auth.KindRefresh, ExpiresAt: refresh.Expiry(),
			})
		}
	}

	for _, rec := range records {
		if err := s.revoked.Blacklist(ctx, rec); err != nil {
			return s.fail("logout", err)
		}
	}
	s.succeed(ctx, "logout", queue.EventLogout, model.User{ID: in.SubjectID, Email: access.Email})
	return nil
}

// ownedToken verifies raw and checks it was issued to subjectID. live is
// false for a token that has already expired: such a token needs no record.
func (s *SessionService) ownedToken(raw, subjectID string) (claims auth.Claims, live bool, err error) {
	claims, err = s.codec.Verify(raw)
	if errors.Is(err, auth.ErrTokenExpired) {
		return auth.Claims{}, false, nil
	}
	if err != nil {
		return auth.Claims{}, false, err
	}
	if claims.SubjectID() != subjectID {
		return auth.Claims{}, false, auth.ErrTokenInvalid
	}
	return claims, true, nil
}

func (s *SessionService) succeed(ctx context.Context, op string, ev queue.EventType, u model.User) {
	s.metrics.Operation(op, "ok")
	s.log.Info("auth."+op, zap.String("user_id", u.ID))
	s.publish(ctx, queue.AuthEvent{Type: ev, UserID: u.ID, Email: u.Email})
}

func (s *SessionService) fail(op string, err error) error {
	result := string(auth.KindOf(err))
	if result == "" {
		result = "error"
	}
	s.metrics.Operation(op, result)
	if auth.KindOf(err) == auth.KindStoreUnavailable {
		s.log.Error("auth."+op+" failed", zap.Error(err))
	} else {
		s.log.Debug("auth."+op+" rejected", zap.String("kind", result))
	}
	return err
}

func (s *SessionService) publish(ctx context.Context, ev queue.AuthEvent) {
	ev.OccurredAt = s.now()
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.events.Publish(pctx, ev); err != nil {
		s.log.Warn("publish auth event failed", zap.String("type", string(ev.Type)), zap.Error(err))
	}
}
