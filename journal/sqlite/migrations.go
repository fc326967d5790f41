package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the IAP journal (SQLite).
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
    success     INTEGER NOT NULL DEFAULT 0,
    restored    INTEGER NOT NULL DEFAULT 0,
    price       TEXT NOT NULL DEFAULT '{}',
    reason      TEXT NOT NULL DEFAULT '',
    occurred_at TEXT NOT NULL DEFAULT (datetime('now')),
    created_at  TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
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
