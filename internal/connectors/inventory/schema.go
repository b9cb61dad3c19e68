package inventory

import (
	"context"
	"database/sql"
)

var sqliteSchema = []string{
	`PRAGMA foreign_keys=ON;`,
	`
CREATE TABLE IF NOT EXISTS stores (
  id INTEGER PRIMARY KEY,
  name TEXT NOT NULL,
  city TEXT NOT NULL DEFAULT ''
);
`,
	`
CREATE TABLE IF NOT EXISTS products (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  store_id INTEGER NOT NULL REFERENCES stores(id),
  style_code TEXT NOT NULL,
  barcode TEXT NOT NULL DEFAULT '',
  article_name TEXT NOT NULL,
  category TEXT NOT NULL,
  department_name TEXT NOT NULL DEFAULT '',
  supplier_name TEXT NOT NULL DEFAULT '',
  image_url TEXT,
  mrp REAL NOT NULL DEFAULT 0,
  price REAL NOT NULL DEFAULT 0,
  UNIQUE(store_id, style_code)
);
`,
	`CREATE INDEX IF NOT EXISTS idx_style ON products(style_code);`,
	`
CREATE TABLE IF NOT EXISTS inventory (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  store_id INTEGER NOT NULL REFERENCES stores(id),
  product_id INTEGER NOT NULL REFERENCES products(id),
  quantity INTEGER NOT NULL,
  cost_price REAL NOT NULL,
  current_price REAL NOT NULL DEFAULT 0,
  lifecycle_start_date DATE NOT NULL
);
`,
	`CREATE INDEX IF NOT EXISTS idx_store_product ON inventory(store_id, product_id);`,
}

// EnsureSQLiteSchema creates the inventory tables when they are missing.
// MySQL and Postgres deployments own their schema through migrations.
func EnsureSQLiteSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range sqliteSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
