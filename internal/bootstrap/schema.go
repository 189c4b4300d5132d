package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Statements run in order on startup. Everything is idempotent so restarts
// are safe against an existing schema.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS companies (
		id BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL DEFAULT '',
		phone TEXT,
		email TEXT,
		password_hash TEXT NOT NULL,
		is_email_verified BOOLEAN NOT NULL DEFAULT false,
		is_phone_verified BOOLEAN NOT NULL DEFAULT false,
		is_active BOOLEAN NOT NULL DEFAULT true,
		access_token TEXT,
		refresh_token TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CHECK (phone IS NOT NULL OR email IS NOT NULL)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_phone_key ON users (phone) WHERE phone IS NOT NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_email_key ON users (email) WHERE email IS NOT NULL`,
	`CREATE TABLE IF NOT EXISTS memberships (
		id BIGINT PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		company_id BIGINT NOT NULL REFERENCES companies (id) ON DELETE CASCADE,
		role TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (user_id, company_id)
	)`,
	`CREATE TABLE IF NOT EXISTS temp_otps (
		id BIGINT PRIMARY KEY,
		phone TEXT,
		email TEXT,
		code TEXT NOT NULL,
		is_verified BOOLEAN NOT NULL DEFAULT false,
		expires_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CHECK (phone IS NOT NULL OR email IS NOT NULL)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS temp_otps_phone_key ON temp_otps (phone) WHERE phone IS NOT NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS temp_otps_email_key ON temp_otps (email) WHERE email IS NOT NULL`,
}

// EnsureSchema applies the schema on startup before the HTTP server accepts
// traffic.
func EnsureSchema(lc fx.Lifecycle, pool *pgxpool.Pool, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return ensureSchema(ctx, pool, logger)
		},
	})
}

func ensureSchema(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}

	if logger != nil {
		logger.Info("database schema ensured")
	}
	return nil
}
