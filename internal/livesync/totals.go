package livesync

import "go-aging-risk-dashboard/internal/aging"

// Totals summarizes a list of store records.
type Totals struct {
	Count int
	Aging AgingCounters
	Risk  RiskCounters
	// ActiveCounts is the number of stores with a nonzero value per status.
	ActiveCounts map[aging.Status]int
}

// ComputeTotals reduces stores into category sums and active store counts.
func ComputeTotals(stores []StoreRecord) Totals {
	t := Totals{
		Count:        len(stores),
		ActiveCounts: make(map[aging.Status]int, len(aging.Statuses)),
	}
	for _, s := range aging.Statuses {
		t.ActiveCounts[s] = 0
	}
	for _, store := range stores {
		t.Aging.Healthy += store.Aging.Healthy
		t.Aging.Transfer += store.Aging.Transfer
		t.Aging.RateRevised += store.Aging.RateRevised
		t.Aging.VeryDanger += store.Aging.VeryDanger
		t.Aging.Capital += store.TotalValue

		t.Risk.Early += store.Risk.Early
		t.Risk.High += store.Risk.High
		t.Risk.Critical += store.Risk.Critical
		t.Risk.Capital += store.Risk.Capital

		for _, s := range aging.Statuses {
			if store.Aging.Value(s) > 0 {
				t.ActiveCounts[s]++
			}
		}
	}
	return t
}

// AverageCapital is the mean aging capital per store.
func (t Totals) AverageCapital() float64 {
	if t.Count == 0 {
		return 0
	}
	return t.Aging.Capital / float64(t.Count)
}

// Share returns the percentage of total capital held in status s.
func (t Totals) Share(s aging.Status) float64 {
	if t.Aging.Capital <= 0 {
		return 0
	}
	p := t.Aging.Value(s) / t.Aging.Capital * 100
	if p > 100 {
		return 100
	}
	return p
}
