package revocation

import (
	"context"

	"go.uber.org/zap"

	"github.com/iliyamo/aloha-admin/internal/obs"
)

// Options controls how a List treats its store.
type Options struct {
	// Enabled false replaces the store with Disabled.
	Enabled bool
	// FailOpen treats an unreachable store as "not revoked" and lets writes
	// fail silently. When false, store failures surface as StoreUnavailable.
	FailOpen bool
	Logger   *zap.Logger
	Metrics  *obs.Metrics
}

// List is the revocation list the session service and the request
// authenticator share. It applies the availability policy in one place.
type List struct {
	store    Store
	enabled  bool
	failOpen bool
	log      *zap.Logger
	metrics  *obs.Metrics
}

func NewList(store Store, opts Options) *List {
	if !opts.Enabled || store == nil {
		store = Disabled{}
		opts.Enabled = false
	}
	return &List{
		store:    store,
		enabled:  opts.Enabled,
		failOpen: opts.FailOpen,
		log:      obs.OrNop(opts.Logger).Named("revocation"),
		metrics:  opts.Metrics,
	}
}

func (l *List) Enabled() bool { return l.enabled }
func (l *List) FailOpen() bool { return l.failOpen }

func (l *List) policy() string {
	if l.failOpen {
		return "fail_open"
	}
	return "fail_closed"
}

func (l *List) recovered(op string, err error, fields ...zap.Field) {
	l.metrics.StoreError(op, l.policy())
	l.log.Warn("revocation store unavailable",
		append(fields, zap.String("op", op), zap.String("policy", l.policy()), zap.Error(err))...)
}

func (l *List) Blacklist(ctx context.Context, rec Record) error {
	err := l.store.Blacklist(ctx, rec)
	if err == nil {
		return nil
	}
	l.recovered("blacklist", err, zap.String("user_id", rec.UserID), zap.String("type", string(rec.Type)))
	if l.failOpen {
		return nil
	}
	return err
}

func (l *List) Claim(ctx context.Context, rec Record) (bool, error) {
	ok, err := l.store.Claim(ctx, rec)
	if err == nil {
		return ok, nil
	}
	l.recovered("claim", err, zap.String("user_id", rec.UserID), zap.String("type", string(rec.Type)))
	if l.failOpen {
		return true, nil
	}
	return false, err
}

func (l *List) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	revoked, err := l.store.IsBlacklisted(ctx, token)
	if err == nil {
		return revoked, nil
	}
	l.recovered("is_blacklisted", err)
	if l.failOpen {
		return false, nil
	}
	return false, err
}
