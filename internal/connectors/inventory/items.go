package inventory

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"go-aging-risk-dashboard/internal/aging"
)

// Item is one inventory line joined with its product.
type Item struct {
	StyleCode          string  `json:"style_code"`
	ArticleName        string  `json:"article_name"`
	Category           string  `json:"category"`
	DepartmentName     string  `json:"department_name"`
	SupplierName       string  `json:"supplier_name"`
	StoreID            int64   `json:"store_id"`
	Quantity           float64 `json:"quantity"`
	AgeDays            int     `json:"age_days"`
	Days               int     `json:"days"`
	ItemMRP            float64 `json:"item_mrp"`
	AgingStatus        string  `json:"aging_status"`
	DangerLevel        *string `json:"danger_level"`
	LifecycleStartDate string  `json:"lifecycle_start_date"`
}

// StatusQuery selects items whose aging status is one of Statuses.
type StatusQuery struct {
	Statuses []aging.Status
	Query    string
	StoreID  *int64
	Limit    int
}

// StatusResult is the inventory-by-status payload.
type StatusResult struct {
	Count      int     `json:"count"`
	TotalCount int     `json:"total_count"`
	TotalQty   float64 `json:"total_qty"`
	TotalValue float64 `json:"total_value"`
	Limited    bool    `json:"limited"`
	Results    []Item  `json:"results"`
}

// SearchQuery is a free-text inventory search.
type SearchQuery struct {
	Query       string
	StoreID     *int64
	Departments []string
	AlertOnly   bool
}

// SearchResult is the inventory search payload.
type SearchResult struct {
	Count   int    `json:"count"`
	Results []Item `json:"results"`
}

// InventoryByStatus lists items for the selected statuses, oldest first.
// Totals cover every match; Results is capped at Limit.
func (s *Store) InventoryByStatus(ctx context.Context, q StatusQuery) (*StatusResult, error) {
	if q.Limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", ErrInvalidQuery)
	}
	var conds []string
	var args []any
	if q.StoreID != nil {
		conds = append(conds, "i.store_id = ?")
		args = append(args, *q.StoreID)
	}

	items, err := s.queryItems(ctx, conds, args)
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(q.Statuses))
	for _, st := range q.Statuses {
		wanted[string(st)] = true
	}

	matched := make([]Item, 0, len(items))
	out := &StatusResult{}
	for _, it := range items {
		if len(wanted) > 0 && !wanted[it.AgingStatus] {
			continue
		}
		if !aging.MatchStoreQuery(formatStoreID(it.StoreID), q.Query) {
			continue
		}
		matched = append(matched, it)
		out.TotalQty += it.Quantity
		out.TotalValue += it.Quantity * it.ItemMRP
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].AgeDays != matched[j].AgeDays {
			return matched[i].AgeDays > matched[j].AgeDays
		}
		return matched[i].StoreID < matched[j].StoreID
	})

	out.TotalCount = len(matched)
	if len(matched) > q.Limit {
		matched = matched[:q.Limit]
		out.Limited = true
	}
	out.Results = matched
	out.Count = len(matched)
	return out, nil
}

// Search matches style code or article name, optionally narrowed by store,
// departments and alert visibility.
func (s *Store) Search(ctx context.Context, q SearchQuery) (*SearchResult, error) {
	query := strings.TrimSpace(q.Query)
	if query != "" && len([]rune(query)) < 2 {
		return nil, fmt.Errorf("%w: query must be at least 2 characters", ErrInvalidQuery)
	}
	if query == "" && q.StoreID == nil && len(q.Departments) == 0 {
		return nil, fmt.Errorf("%w: provide a search query, store or department filter", ErrInvalidQuery)
	}

	var conds []string
	var args []any
	if query != "" {
		like := "%" + strings.ToLower(query) + "%"
		conds = append(conds, "(LOWER(p.style_code) LIKE ? OR LOWER(p.article_name) LIKE ?)")
		args = append(args, like, like)
	}
	if q.StoreID != nil {
		conds = append(conds, "i.store_id = ?")
		args = append(args, *q.StoreID)
	}
	if len(q.Departments) > 0 {
		parts := make([]string, 0, len(q.Departments))
		for _, d := range q.Departments {
			parts = append(parts, "LOWER(p.department_name) = ?")
			args = append(args, strings.ToLower(strings.TrimSpace(d)))
		}
		conds = append(conds, "("+strings.Join(parts, " OR ")+")")
	}

	items, err := s.queryItems(ctx, conds, args)
	if err != nil {
		return nil, err
	}

	out := &SearchResult{Results: make([]Item, 0, len(items))}
	for _, it := range items {
		if q.AlertOnly && it.DangerLevel == nil {
			continue
		}
		out.Results = append(out.Results, it)
	}
	sort.SliceStable(out.Results, func(i, j int) bool {
		if out.Results[i].ArticleName != out.Results[j].ArticleName {
			return out.Results[i].ArticleName < out.Results[j].ArticleName
		}
		return out.Results[i].StoreID < out.Results[j].StoreID
	})
	out.Count = len(out.Results)
	return out, nil
}

func (s *Store) queryItems(ctx context.Context, conds []string, args []any) ([]Item, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, "\n  AND ")
	}
	query := fmt.Sprintf(`
SELECT
  p.style_code,
  p.article_name,
  p.category,
  p.department_name,
  p.supplier_name,
  p.mrp,
  i.store_id,
  i.quantity,
  i.current_price,
  i.lifecycle_start_date
FROM inventory i
JOIN products p
  ON p.id = i.product_id
%s
ORDER BY i.id;
`, where)

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, wrapQueryErr("inventory items", err)
	}
	defer rows.Close()

	today := s.now()
	out := make([]Item, 0)
	for rows.Next() {
		var (
			it           Item
			category     sql.NullString
			department   sql.NullString
			supplier     sql.NullString
			mrp          sql.NullFloat64
			currentPrice sql.NullFloat64
			startRaw     any
		)
		if err := rows.Scan(&it.StyleCode, &it.ArticleName, &category, &department, &supplier, &mrp, &it.StoreID, &it.Quantity, &currentPrice, &startRaw); err != nil {
			return nil, wrapQueryErr("inventory items scan", err)
		}
		it.Category = category.String
		it.DepartmentName = department.String
		it.SupplierName = supplier.String
		it.ItemMRP = unitPrice(mrp.Float64, currentPrice.Float64)

		start, ok := parseDate(startRaw)
		if !ok {
			continue
		}
		it.LifecycleStartDate = start.Format(time.DateOnly)
		it.AgeDays = aging.AgeInDays(start, today)
		it.Days = it.AgeDays
		it.AgingStatus = string(aging.Classify(it.Category, it.AgeDays))
		if level, ok := aging.RiskLevel(it.AgeDays); ok {
			l := string(level)
			it.DangerLevel = &l
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapQueryErr("inventory items rows", err)
	}
	return out, nil
}
