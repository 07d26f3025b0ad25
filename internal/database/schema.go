package database

import (
	"context"
	"database/sql"
	"fmt"
)

// usersDDL creates the identity table. Email uniqueness is enforced by the
// index; emails are stored normalized so the unique check is
// case-insensitive in practice.
const usersDDL = `CREATE TABLE IF NOT EXISTS users (
	id            CHAR(36)               NOT NULL,
	email         VARCHAR(255)           NOT NULL,
	password_hash VARCHAR(255)           NOT NULL,
	first_name    VARCHAR(100)           NOT NULL DEFAULT '',
	last_name     VARCHAR(100)           NOT NULL DEFAULT '',
	role          ENUM('user','admin')   NOT NULL DEFAULT 'user',
	created_at    DATETIME(3)            NOT NULL,
	updated_at    DATETIME(3)            NOT NULL,
	PRIMARY KEY (id),
	UNIQUE KEY uq_users_email (email),
	KEY idx_users_created_at (created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

// revokedTokensDDL backs the MySQL revocation store. token_hash is the
// SHA-256 of the token, so the primary key doubles as the claim guard.
const revokedTokensDDL = `CREATE TABLE IF NOT EXISTS revoked_tokens (
	token_hash CHAR(64)                  NOT NULL,
	user_id    CHAR(36)                  NOT NULL,
	token_type ENUM('access','refresh')  NOT NULL,
	expires_at DATETIME(3)               NOT NULL,
	revoked_at DATETIME(3)               NOT NULL,
	PRIMARY KEY (token_hash),
	KEY idx_revoked_tokens_expires_at (expires_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

// EnsureSchema creates the tables the service needs when they are missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, usersDDL); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	if _, err := db.ExecContext(ctx, revokedTokensDDL); err != nil {
		return fmt.Errorf("create revoked_tokens table: %w", err)
	}
	return nil
}
