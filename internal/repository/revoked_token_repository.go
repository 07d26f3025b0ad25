package repository

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/iliyamo/aloha-admin/internal/auth"
	"github.com/iliyamo/aloha-admin/internal/revocation"
)

const revocationStore = "revocation"

// RevokedTokenRepo is a revocation.Store on the identity database. Only a
// SHA-256 digest of each token is stored. Rows outlive their token until
// Purge removes them; lookups ignore expired rows.
type RevokedTokenRepo struct {
	DB  *sql.DB
	now func() time.Time
}

func NewRevokedTokenRepo(db *sql.DB, now func() time.Time) *RevokedTokenRepo {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &RevokedTokenRepo{DB: db, now: now}
}

func tokenDigest(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Blacklist records rec. Revoking an already revoked or expired token is a
// no-op.
func (r *RevokedTokenRepo) Blacklist(ctx context.Context, rec revocation.Record) error {
	now := r.now()
	if !rec.ExpiresAt.After(now) {
		return nil
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT IGNORE INTO revoked_tokens (token_hash, user_id, token_type, expires_at, revoked_at) VALUES (?,?,?,?,?)",
		tokenDigest(rec.Token), rec.UserID, string(rec.Type), rec.ExpiresAt.UTC(), now)
	return auth.Unavailable(revocationStore, err)
}

// Claim inserts rec unless a row for the token exists. The primary key makes
// the insert the single point of decision between concurrent callers.
func (r *RevokedTokenRepo) Claim(ctx context.Context, rec revocation.Record) (bool, error) {
	now := r.now()
	if !rec.ExpiresAt.After(now) {
		return true, nil
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO revoked_tokens (token_hash, user_id, token_type, expires_at, revoked_at) VALUES (?,?,?,?,?)",
		tokenDigest(rec.Token), rec.UserID, string(rec.Type), rec.ExpiresAt.UTC(), now)
	if isDuplicate(err) {
		return false, nil
	}
	if err != nil {
		return false, auth.Unavailable(revocationStore, err)
	}
	return true, nil
}

func (r *RevokedTokenRepo) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM revoked_tokens WHERE token_hash=? AND expires_at > ? LIMIT 1",
		tokenDigest(token), r.now()).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, auth.Unavailable(revocationStore, err)
	}
	return true, nil
}

// Purge deletes rows whose token has expired and returns how many went.
func (r *RevokedTokenRepo) Purge(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM revoked_tokens WHERE expires_at <= ?", r.now())
	if err != nil {
		return 0, fmt.Errorf("purge revoked tokens: %w", err)
	}
	return res.RowsAffected()
}
