package store

import (
	"context"
	"database/sql"
	"strings"
)

// schema contains the DDL for the instance catalogue.
// Each statement uses IF NOT EXISTS for idempotency.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS instances (
		id           TEXT PRIMARY KEY,
		name         TEXT NOT NULL DEFAULT '',
		content_hash TEXT NOT NULL,
		document     TEXT NOT NULL,
		created_at   TEXT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_instances_content_hash ON instances(content_hash)`,
	`CREATE INDEX IF NOT EXISTS idx_instances_created_at ON instances(created_at)`,
}

// alterStatements are column additions that need special handling since
// SQLite doesn't support IF NOT EXISTS for ALTER TABLE ADD COLUMN.
var alterStatements = []struct {
	table    string
	column   string
	alterSQL string
	indexSQL string // Optional index to create after column is added
}{
	{
		table:    "instances",
		column:   "satellites",
		alterSQL: "ALTER TABLE instances ADD COLUMN satellites INTEGER NOT NULL DEFAULT 0",
	},
	{
		table:    "instances",
		column:   "users",
		alterSQL: "ALTER TABLE instances ADD COLUMN users INTEGER NOT NULL DEFAULT 0",
	},
	{
		table:    "instances",
		column:   "requests",
		alterSQL: "ALTER TABLE instances ADD COLUMN requests INTEGER NOT NULL DEFAULT 0",
	},
	{
		table:    "instances",
		column:   "name",
		alterSQL: "ALTER TABLE instances ADD COLUMN name TEXT NOT NULL DEFAULT ''",
		indexSQL: "CREATE INDEX IF NOT EXISTS idx_instances_name ON instances(name)",
	},
}

// migrate executes all schema DDL statements, alter migrations, and post-migration indexes.
func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	for _, alter := range alterStatements {
		if err := addColumnIfNotExists(ctx, db, alter.table, alter.column, alter.alterSQL); err != nil {
			return err
		}
		if alter.indexSQL != "" {
			if _, err := db.ExecContext(ctx, alter.indexSQL); err != nil {
				return err
			}
		}
	}

	return nil
}

// addColumnIfNotExists adds a column to a table if it doesn't already exist.
func addColumnIfNotExists(ctx context.Context, db *sql.DB, table, column, alterSQL string) error {
	rows, err := db.QueryContext(ctx, "PRAGMA table_info("+table+")")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue *string
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return err
		}
		if strings.EqualFold(name, column) {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	_, err = db.ExecContext(ctx, alterSQL)
	return err
}
