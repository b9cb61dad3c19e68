package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"go-aging-risk-dashboard/internal/config"
)

// ErrInvalidQuery marks caller input the store refuses before touching the database.
var ErrInvalidQuery = errors.New("invalid inventory query")

// Store reads inventory, product and store tables for the dashboard views.
type Store struct {
	db           *sql.DB
	driver       string
	queryTimeout time.Duration
	now          func() time.Time
}

// ServiceStats is a lightweight database probe used by the readiness endpoint.
type ServiceStats struct {
	Driver         string `json:"driver"`
	PingMS         int64  `json:"ping_ms"`
	InventoryRows  int64  `json:"inventory_rows"`
	ProductRows    int64  `json:"product_rows"`
	OpenConns      int    `json:"open_connections"`
	InUseConns     int    `json:"in_use_connections"`
	WaitCount      int64  `json:"wait_count"`
	WaitDurationMS int64  `json:"wait_duration_ms"`
}

// NewStore opens the configured backend and verifies connectivity.
func NewStore(cfg config.Config) (*Store, error) {
	driverName, dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}

	if cfg.DBDriver == config.DriverSQLite {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		db.SetConnMaxLifetime(5 * time.Minute)
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DBConnTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if cfg.DBDriver == config.DriverSQLite {
		if err := EnsureSQLiteSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return newStore(db, cfg.DBDriver, cfg.DBQueryTimeout), nil
}

// NewStoreFromDB wraps an already opened database handle.
func NewStoreFromDB(db *sql.DB, driver string, queryTimeout time.Duration) *Store {
	return newStore(db, driver, queryTimeout)
}

func newStore(db *sql.DB, driver string, queryTimeout time.Duration) *Store {
	if queryTimeout <= 0 {
		queryTimeout = 10 * time.Second
	}
	return &Store{db: db, driver: driver, queryTimeout: queryTimeout, now: time.Now}
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ServiceStats pings the database and counts the core tables.
func (s *Store) ServiceStats(ctx context.Context) (*ServiceStats, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	start := time.Now()
	if err := s.db.PingContext(ctx); err != nil {
		return nil, err
	}
	out := &ServiceStats{Driver: s.driver, PingMS: time.Since(start).Milliseconds()}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM inventory`).Scan(&out.InventoryRows); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&out.ProductRows); err != nil {
		return nil, err
	}

	dbStats := s.db.Stats()
	out.OpenConns = dbStats.OpenConnections
	out.InUseConns = dbStats.InUse
	out.WaitCount = dbStats.WaitCount
	out.WaitDurationMS = dbStats.WaitDuration.Milliseconds()
	return out, nil
}

// rebind rewrites '?' placeholders to the positional form Postgres expects.
func (s *Store) rebind(query string) string {
	if s.driver != config.DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// parseDate accepts the representations the supported drivers return for DATE columns.
func parseDate(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case []byte:
		return parseDateString(string(t))
	case string:
		return parseDateString(t)
	default:
		return time.Time{}, false
	}
}

func parseDateString(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	if len(raw) >= 10 {
		if t, err := time.Parse("2006-01-02", raw[:10]); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func unitPrice(mrp, fallback float64) float64 {
	if mrp > 0 {
		return mrp
	}
	return fallback
}

func formatStoreID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func wrapQueryErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}
