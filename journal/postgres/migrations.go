package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the IAP journal (PostgreSQL).
var Migrations = migrate.NewGroup("iap")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_iap_transactions",
			Version: "20250301000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS iap_transactions (
    id          TEXT PRIMARY KEY,
    product_id  TEXT NOT NULL DEFAULT '',
    store       TEXT NOT NULL DEFAULT '',
    kind        TEXT NOT NULL DEFAULT '',
    success     BOOLEAN NOT NULL DEFAULT FALSE,
    restored    BOOLEAN NOT NULL DEFAULT FALSE,
    price       JSONB NOT NULL DEFAULT '{}',
    reason      TEXT NOT NULL DEFAULT '',
    occurred_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_iap_txn_product ON iap_transactions (product_id);
CREATE INDEX IF NOT EXISTS idx_iap_txn_occurred ON iap_transactions (occurred_at);
CREATE INDEX IF NOT EXISTS idx_iap_txn_success ON iap_transactions (success, product_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS iap_transactions`)
				return err
			},
		},
	)
}
