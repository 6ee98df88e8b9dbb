package store

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=rwc&_journal_mode=WAL&_foreign_keys=on",
		filepath.Join(t.TempDir(), "store_test.db"))
	d, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	// Schema matches the migrations in internal/db.
	_, err = d.Exec(`
		CREATE TABLE categories (
			category_id INTEGER PRIMARY KEY AUTOINCREMENT,
			name        TEXT    NOT NULL UNIQUE
		);

		CREATE TABLE receipts (
			receipt_id     INTEGER  PRIMARY KEY AUTOINCREMENT,
			extracted_text TEXT     NOT NULL,
			title          TEXT     NOT NULL,
			description    TEXT     NOT NULL,
			vendor         TEXT     NOT NULL,
			state          TEXT     NOT NULL,
			city           TEXT     NOT NULL,
			country        TEXT     NOT NULL,
			image_url      TEXT     NOT NULL,
			tax            REAL     NOT NULL,
			total          REAL     NOT NULL,
			purchase_date  DATETIME NOT NULL,
			created_at     DATETIME NOT NULL,
			updated_at     DATETIME NOT NULL,
			category_id    INTEGER  NOT NULL DEFAULT 0
		);
		CREATE INDEX idx_receipts_category_id ON receipts(category_id);
	`)
	require.NoError(t, err)

	return d
}
