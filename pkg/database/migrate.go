package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is the checkout data model. Statements are idempotent so Migrate
// can run on every startup.
//
// total_stock and qty carry CHECK constraints as a last line of defense;
// the engines never rely on them, all stock math happens under row locks.
const schema = `
CREATE TABLE IF NOT EXISTS products (
	id UUID PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	total_stock INTEGER NOT NULL CHECK (total_stock >= 0),
	price NUMERIC(10,2) NOT NULL CHECK (price >= 0),
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS holds (
	id UUID PRIMARY KEY,
	product_id UUID NOT NULL REFERENCES products(id),
	qty INTEGER NOT NULL CHECK (qty > 0),
	status VARCHAR(16) NOT NULL DEFAULT 'pending',
	expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_holds_status_expires_at ON holds(status, expires_at);

CREATE TABLE IF NOT EXISTS orders (
	id UUID PRIMARY KEY,
	hold_id UUID NOT NULL UNIQUE REFERENCES holds(id),
	status VARCHAR(16) NOT NULL DEFAULT 'pending',
	total_amount NUMERIC(10,2) NOT NULL,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS webhook_logs (
	idempotency_key VARCHAR(255) PRIMARY KEY,
	response_body TEXT NOT NULL,
	response_status_code INTEGER NOT NULL,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS pending_webhooks (
	id UUID PRIMARY KEY,
	hold_id UUID NOT NULL UNIQUE REFERENCES holds(id),
	status VARCHAR(16) NOT NULL,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);
`

// Migrate creates the checkout schema if it does not exist yet.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
