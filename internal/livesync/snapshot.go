package livesync

import (
	"sort"
	"strings"

	"go-aging-risk-dashboard/internal/aging"
	"go-aging-risk-dashboard/internal/apiclient"
)

// RiskCounters is the alert-visible capital of a store by risk level.
type RiskCounters struct {
	Early    float64
	High     float64
	Critical float64
	Capital  float64
}

// AgingCounters is the capital of a store by aging status.
type AgingCounters struct {
	Healthy     float64
	Transfer    float64
	RateRevised float64
	VeryDanger  float64
	Capital     float64
}

// Value returns the counter for s.
func (a AgingCounters) Value(s aging.Status) float64 {
	switch s {
	case aging.Healthy:
		return a.Healthy
	case aging.Transfer:
		return a.Transfer
	case aging.RateRevised:
		return a.RateRevised
	case aging.VeryDanger:
		return a.VeryDanger
	}
	return 0
}

// StoreRecord merges the risk and aging rows of one store.
type StoreRecord struct {
	ID         string
	Risk       RiskCounters
	Aging      AgingCounters
	TotalValue float64
}

// Snapshot is an ordered list of store records, highest capital first.
// A snapshot is never modified after it is built.
type Snapshot []StoreRecord

// BuildSnapshot merges risk and aging rows by store id. Rows without a
// store id are dropped; a store missing from one side gets zero counters.
func BuildSnapshot(risk, agingRows []apiclient.Row) Snapshot {
	order := make([]string, 0, len(risk)+len(agingRows))
	seen := make(map[string]bool)
	riskByID := make(map[string]RiskCounters)
	agingByID := make(map[string]AgingCounters)

	track := func(id string) {
		if !seen[id] {
			seen[id] = true
			order = append(order, id)
		}
	}

	for _, row := range risk {
		id := storeID(row)
		if id == "" {
			continue
		}
		track(id)
		riskByID[id] = RiskCounters{
			Early:    ToNumber(row["EARLY"]),
			High:     ToNumber(row["HIGH"]),
			Critical: ToNumber(row["CRITICAL"]),
			Capital:  ToNumber(row["total_danger_capital"]),
		}
	}
	for _, row := range agingRows {
		id := storeID(row)
		if id == "" {
			continue
		}
		track(id)
		agingByID[id] = AgingCounters{
			Healthy:     ToNumber(row["HEALTHY"]),
			Transfer:    ToNumber(row["TRANSFER"]),
			RateRevised: ToNumber(row["RR_TT"]),
			VeryDanger:  ToNumber(row["VERY_DANGER"]),
			Capital:     ToNumber(row["total_aging_capital"]),
		}
	}

	out := make(Snapshot, 0, len(order))
	for _, id := range order {
		a := agingByID[id]
		out = append(out, StoreRecord{
			ID:         id,
			Risk:       riskByID[id],
			Aging:      a,
			TotalValue: a.Capital,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalValue > out[j].TotalValue
	})
	return out
}

func storeID(row apiclient.Row) string {
	if row == nil {
		return ""
	}
	return strings.TrimSpace(text(row["store_id"]))
}
