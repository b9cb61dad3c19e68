package inventory

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"go-aging-risk-dashboard/internal/aging"
)

// RiskRow is the alert-visible capital for one store, split by risk level.
type RiskRow struct {
	StoreID            int64   `json:"store_id"`
	Early              float64 `json:"EARLY"`
	High               float64 `json:"HIGH"`
	Critical           float64 `json:"CRITICAL"`
	TotalDangerCapital float64 `json:"total_danger_capital"`
}

// AgingRow is the capital for one store, split by aging status.
type AgingRow struct {
	StoreID           int64   `json:"store_id"`
	Healthy           float64 `json:"HEALTHY"`
	Transfer          float64 `json:"TRANSFER"`
	RateRevised       float64 `json:"RR_TT"`
	VeryDanger        float64 `json:"VERY_DANGER"`
	TotalAgingCapital float64 `json:"total_aging_capital"`
}

func (r *AgingRow) value(s aging.Status) float64 {
	switch s {
	case aging.Healthy:
		return r.Healthy
	case aging.Transfer:
		return r.Transfer
	case aging.RateRevised:
		return r.RateRevised
	case aging.VeryDanger:
		return r.VeryDanger
	}
	return 0
}

func (r *AgingRow) add(s aging.Status, capital float64) {
	switch s {
	case aging.Healthy:
		r.Healthy += capital
	case aging.Transfer:
		r.Transfer += capital
	case aging.RateRevised:
		r.RateRevised += capital
	case aging.VeryDanger:
		r.VeryDanger += capital
	}
	r.TotalAgingCapital += capital
}

func (r *RiskRow) add(l aging.Level, capital float64) {
	switch l {
	case aging.Early:
		r.Early += capital
	case aging.High:
		r.High += capital
	case aging.Critical:
		r.Critical += capital
	}
	r.TotalDangerCapital += capital
}

// SummaryFilter narrows the store summary. The zero value returns every store.
type SummaryFilter struct {
	Query    string
	Statuses []aging.Status
}

// Summary is the store-wise risk and aging payload.
type Summary struct {
	Date            string         `json:"date"`
	StoreCount      int            `json:"store_count"`
	StoreCountTotal int            `json:"store_count_total"`
	StoreCountQuery int            `json:"store_count_query"`
	StatusCounts    map[string]int `json:"status_counts"`
	Results         []RiskRow      `json:"results"`
	AgingResults    []AgingRow     `json:"aging_results"`
}

// StoreSummary aggregates capital per store. Risk rows only cover
// alert-visible items; aging rows cover every dated item.
func (s *Store) StoreSummary(ctx context.Context, filter SummaryFilter) (*Summary, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
SELECT
  i.store_id,
  i.quantity,
  i.cost_price,
  COALESCE(p.mrp, 0),
  i.lifecycle_start_date,
  COALESCE(p.category, '')
FROM inventory i
LEFT JOIN products p
  ON p.id = i.product_id
ORDER BY i.store_id, i.id;
`)
	if err != nil {
		return nil, wrapQueryErr("store summary", err)
	}
	defer rows.Close()

	today := s.now()
	riskByStore := make(map[int64]*RiskRow)
	agingByStore := make(map[int64]*AgingRow)
	order := make([]int64, 0)
	seen := make(map[int64]bool)

	for rows.Next() {
		var (
			storeID   int64
			quantity  float64
			costPrice float64
			mrp       float64
			startRaw  any
			category  sql.NullString
		)
		if err := rows.Scan(&storeID, &quantity, &costPrice, &mrp, &startRaw, &category); err != nil {
			return nil, wrapQueryErr("store summary scan", err)
		}
		start, ok := parseDate(startRaw)
		if !ok {
			continue
		}
		if !seen[storeID] {
			seen[storeID] = true
			order = append(order, storeID)
		}

		capital := quantity * unitPrice(mrp, costPrice)
		age := aging.AgeInDays(start, today)

		if level, ok := aging.RiskLevel(age); ok {
			row, exists := riskByStore[storeID]
			if !exists {
				row = &RiskRow{StoreID: storeID}
				riskByStore[storeID] = row
			}
			row.add(level, capital)
		}

		row, exists := agingByStore[storeID]
		if !exists {
			row = &AgingRow{StoreID: storeID}
			agingByStore[storeID] = row
		}
		row.add(aging.Classify(category.String, age), capital)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapQueryErr("store summary rows", err)
	}

	out := &Summary{
		Date:            today.Format(time.DateOnly),
		StoreCountTotal: len(order),
		StatusCounts:    make(map[string]int, len(aging.Statuses)),
		Results:         make([]RiskRow, 0, len(riskByStore)),
		AgingResults:    make([]AgingRow, 0, len(agingByStore)),
	}
	for _, st := range aging.Statuses {
		out.StatusCounts[string(st)] = 0
	}

	for _, storeID := range order {
		agingRow := agingByStore[storeID]
		if !matchSummaryFilter(storeID, agingRow, filter) {
			continue
		}
		out.StoreCountQuery++
		if risk := riskByStore[storeID]; risk != nil {
			out.Results = append(out.Results, *risk)
		}
		if agingRow != nil {
			out.AgingResults = append(out.AgingResults, *agingRow)
			for _, st := range aging.Statuses {
				if agingRow.value(st) > 0 {
					out.StatusCounts[string(st)]++
				}
			}
		}
	}
	out.StoreCount = len(out.Results)

	sort.SliceStable(out.AgingResults, func(i, j int) bool {
		return out.AgingResults[i].TotalAgingCapital > out.AgingResults[j].TotalAgingCapital
	})
	return out, nil
}

func matchSummaryFilter(storeID int64, row *AgingRow, filter SummaryFilter) bool {
	if !aging.MatchStoreQuery(formatStoreID(storeID), filter.Query) {
		return false
	}
	if len(filter.Statuses) == 0 {
		return true
	}
	if row == nil {
		return false
	}
	for _, st := range filter.Statuses {
		if row.value(st) > 0 {
			return true
		}
	}
	return false
}
