package inventory

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-aging-risk-dashboard/internal/aging"
	"go-aging-risk-dashboard/internal/config"
)

var fixedToday = time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "inventory.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	require.NoError(t, EnsureSQLiteSchema(ctx, db))

	daysAgo := func(n int) string { return fixedToday.AddDate(0, 0, -n).Format(time.DateOnly) }
	stmts := []struct {
		q    string
		args []any
	}{
		{`INSERT INTO stores (id, name) VALUES (1, 'North'), (2, 'South'), (42, 'Central')`, nil},
		{`INSERT INTO products (id, store_id, style_code, article_name, category, department_name, supplier_name, mrp) VALUES (1, 1, 'D-1', 'Red Dress', 'dress', 'Women', 'Acme', 100)`, nil},
		{`INSERT INTO products (id, store_id, style_code, article_name, category, department_name, supplier_name, mrp) VALUES (2, 2, 'S-1', 'Silk Saree', 'saree', 'Ethnic', 'Loom', 0)`, nil},
		{`INSERT INTO products (id, store_id, style_code, article_name, category, department_name, supplier_name, mrp) VALUES (3, 42, 'D-2', 'Blue Dress', 'dress', 'Women', 'Acme', 100)`, nil},
		{`INSERT INTO inventory (store_id, product_id, quantity, cost_price, current_price, lifecycle_start_date) VALUES (1, 1, 2, 50, 90, ?)`, []any{daysAgo(400)}},
		{`INSERT INTO inventory (store_id, product_id, quantity, cost_price, current_price, lifecycle_start_date) VALUES (2, 2, 10, 30, 35, ?)`, []any{daysAgo(10)}},
		{`INSERT INTO inventory (store_id, product_id, quantity, cost_price, current_price, lifecycle_start_date) VALUES (42, 3, 1, 60, 80, ?)`, []any{daysAgo(200)}},
	}
	for _, s := range stmts {
		_, err := db.ExecContext(ctx, s.q, s.args...)
		require.NoError(t, err, s.q)
	}

	store := NewStoreFromDB(db, config.DriverSQLite, 5*time.Second)
	store.now = func() time.Time { return fixedToday }
	return store
}

func TestStoreSummary_Unfiltered(t *testing.T) {
	store := newTestStore(t)

	sum, err := store.StoreSummary(context.Background(), SummaryFilter{})
	require.NoError(t, err)

	assert.Equal(t, "2025-06-30", sum.Date)
	assert.Equal(t, 3, sum.StoreCountTotal)
	assert.Equal(t, 3, sum.StoreCountQuery)
	assert.Equal(t, 2, sum.StoreCount)

	require.Len(t, sum.AgingResults, 3)
	assert.Equal(t, int64(2), sum.AgingResults[0].StoreID)
	assert.InDelta(t, 300, sum.AgingResults[0].Healthy, 0.001)
	assert.Equal(t, int64(1), sum.AgingResults[1].StoreID)
	assert.InDelta(t, 200, sum.AgingResults[1].VeryDanger, 0.001)
	assert.Equal(t, int64(42), sum.AgingResults[2].StoreID)
	assert.InDelta(t, 100, sum.AgingResults[2].RateRevised, 0.001)

	require.Len(t, sum.Results, 2)
	assert.InDelta(t, 200, sum.Results[0].Critical, 0.001)
	assert.InDelta(t, 100, sum.Results[1].Early, 0.001)

	assert.Equal(t, map[string]int{"HEALTHY": 1, "TRANSFER": 0, "RR_TT": 1, "VERY_DANGER": 1}, sum.StatusCounts)
}

func TestStoreSummary_Filters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sum, err := store.StoreSummary(ctx, SummaryFilter{Statuses: []aging.Status{aging.VeryDanger}})
	require.NoError(t, err)
	require.Len(t, sum.AgingResults, 1)
	assert.Equal(t, int64(1), sum.AgingResults[0].StoreID)
	assert.Equal(t, 3, sum.StoreCountTotal)
	assert.Equal(t, 1, sum.StoreCountQuery)
	assert.Equal(t, 1, sum.StatusCounts["VERY_DANGER"])
	assert.Equal(t, 0, sum.StatusCounts["HEALTHY"])

	sum, err = store.StoreSummary(ctx, SummaryFilter{Query: "42"})
	require.NoError(t, err)
	require.Len(t, sum.AgingResults, 1)
	assert.Equal(t, int64(42), sum.AgingResults[0].StoreID)

	sum, err = store.StoreSummary(ctx, SummaryFilter{Query: "4"})
	require.NoError(t, err)
	assert.Empty(t, sum.AgingResults)
	assert.Empty(t, sum.Results)
}

func TestInventoryByStatus(t *testing.T) {
	store := newTestStore(t)

	res, err := store.InventoryByStatus(context.Background(), StatusQuery{
		Statuses: []aging.Status{aging.VeryDanger, aging.RateRevised},
		Limit:    1,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalCount)
	assert.Equal(t, 1, res.Count)
	assert.True(t, res.Limited)
	assert.InDelta(t, 3, res.TotalQty, 0.001)
	assert.InDelta(t, 300, res.TotalValue, 0.001)
	require.Len(t, res.Results, 1)
	assert.Equal(t, int64(1), res.Results[0].StoreID)
	assert.Equal(t, 400, res.Results[0].AgeDays)
	require.NotNil(t, res.Results[0].DangerLevel)
	assert.Equal(t, "CRITICAL", *res.Results[0].DangerLevel)

	storeID := int64(2)
	res, err = store.InventoryByStatus(context.Background(), StatusQuery{StoreID: &storeID, Limit: 50})
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "HEALTHY", res.Results[0].AgingStatus)
	assert.InDelta(t, 35, res.Results[0].ItemMRP, 0.001)
	assert.Nil(t, res.Results[0].DangerLevel)

	_, err = store.InventoryByStatus(context.Background(), StatusQuery{Limit: 0})
	require.ErrorIs(t, err, ErrInvalidQuery)
}

func TestSearch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	res, err := store.Search(ctx, SearchQuery{Query: "DRESS"})
	require.NoError(t, err)
	require.Equal(t, 2, res.Count)
	assert.Equal(t, "Blue Dress", res.Results[0].ArticleName)
	assert.Equal(t, "Red Dress", res.Results[1].ArticleName)

	res, err = store.Search(ctx, SearchQuery{Query: "saree", AlertOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Count)

	res, err = store.Search(ctx, SearchQuery{Departments: []string{"ethnic"}})
	require.NoError(t, err)
	require.Equal(t, 1, res.Count)
	assert.Equal(t, "S-1", res.Results[0].StyleCode)

	_, err = store.Search(ctx, SearchQuery{Query: "a"})
	require.ErrorIs(t, err, ErrInvalidQuery)

	_, err = store.Search(ctx, SearchQuery{})
	require.ErrorIs(t, err, ErrInvalidQuery)
}

func TestServiceStats(t *testing.T) {
	store := newTestStore(t)

	stats, err := store.ServiceStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.InventoryRows)
	assert.Equal(t, int64(3), stats.ProductRows)
	assert.Equal(t, config.DriverSQLite, stats.Driver)
}

func TestRebind(t *testing.T) {
	pg := &Store{driver: config.DriverPostgres}
	assert.Equal(t, "a = $1 AND b = $2", pg.rebind("a = ? AND b = ?"))

	my := &Store{driver: config.DriverMySQL}
	assert.Equal(t, "a = ?", my.rebind("a = ?"))
}

func TestParseDate(t *testing.T) {
	for _, v := range []any{"2024-03-01", []byte("2024-03-01"), "2024-03-01T00:00:00Z", "2024-03-01 10:11:12", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)} {
		got, ok := parseDate(v)
		require.True(t, ok, "%v", v)
		assert.Equal(t, "2024-03-01", got.Format(time.DateOnly))
	}
	_, ok := parseDate(nil)
	assert.False(t, ok)
	_, ok = parseDate("  ")
	assert.False(t, ok)
}
