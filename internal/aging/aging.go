// Package aging holds the inventory aging vocabulary shared by the API and
// the watch console: status tags, risk levels and the rules that derive
// them from a lifecycle start date.
package aging

import (
	"fmt"
	"strings"
	"time"
)

// Status is an aging bucket. It doubles as a filter tag.
type Status string

const (
	Healthy     Status = "HEALTHY"
	Transfer    Status = "TRANSFER"
	RateRevised Status = "RR_TT"
	VeryDanger  Status = "VERY_DANGER"
)

// Statuses lists every aging status in display order.
var Statuses = []Status{Healthy, Transfer, RateRevised, VeryDanger}

// Label returns the human readable name of s.
func (s Status) Label() string {
	switch s {
	case Healthy:
		return "Healthy"
	case Transfer:
		return "Transfer"
	case RateRevised:
		return "Rate revised"
	case VeryDanger:
		return "Very danger"
	default:
		return string(s)
	}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Level is an alert-visible risk level.
type Level string

const (
	Early    Level = "EARLY"
	High     Level = "HIGH"
	Critical Level = "CRITICAL"
)

// Levels lists every risk level from least to most severe.
var Levels = []Level{Early, High, Critical}

// ParseStatus normalizes a single tag.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown aging status %q", raw)
	}
	return s, nil
}

// ParseStatusList parses a comma-separated tag list. Empty entries are
// skipped and duplicates collapse; order follows Statuses.
func ParseStatusList(raw string) ([]Status, error) {
	seen := make(map[Status]bool)
	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		s, err := ParseStatus(part)
		if err != nil {
			return nil, err
		}
		seen[s] = true
	}
	out := make([]Status, 0, len(seen))
	for _, s := range Statuses {
		if seen[s] {
			out = append(out, s)
		}
	}
	return out, nil
}

// JoinStatuses renders tags as the comma-separated wire form.
func JoinStatuses(tags []Status) string {
	parts := make([]string, 0, len(tags))
	for _, t := range tags {
		parts = append(parts, string(t))
	}
	return strings.Join(parts, ",")
}

// IsNumericQuery reports whether q is made only of ASCII digits.
func IsNumericQuery(q string) bool {
	q = strings.TrimSpace(q)
	if q == "" {
		return false
	}
	for _, r := range q {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// MatchStoreQuery applies the store search rule shared by the API and the
// console fallback: a numeric query must equal the store id, any other
// query is a case-insensitive substring match. An empty query matches.
func MatchStoreQuery(storeID, query string) bool {
	q := strings.TrimSpace(query)
	if q == "" {
		return true
	}
	if IsNumericQuery(q) {
		return strings.TrimSpace(storeID) == q
	}
	return strings.Contains(strings.ToLower(storeID), strings.ToLower(q))
}

// AgeInDays returns whole days between start and today.
func AgeInDays(start, today time.Time) int {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(s).Hours() / 24)
}

// RiskLevel classifies an item age. Items younger than 180 days carry no level.
func RiskLevel(ageDays int) (Level, bool) {
	switch {
	case ageDays >= 365:
		return Critical, true
	case ageDays >= 250:
		return High, true
	case ageDays >= 180:
		return Early, true
	default:
		return "", false
	}
}

type threshold struct {
	maxAge int
	status Status
}

var categoryRules = map[string][]threshold{
	"dress":          {{90, Healthy}, {180, Transfer}, {365, RateRevised}},
	"dress material": {{90, Healthy}, {180, Transfer}, {365, RateRevised}},
	"lehenga":        {{250, Healthy}, {365, Transfer}},
	"saree":          {{365, Healthy}},
}

const defaultCategory = "dress"

// Classify returns the aging status for a product category and age.
// Unknown categories use the dress thresholds.
func Classify(category string, ageDays int) Status {
	rules, ok := categoryRules[strings.ToLower(strings.TrimSpace(category))]
	if !ok {
		rules = categoryRules[defaultCategory]
	}
	for _, r := range rules {
		if ageDays <= r.maxAge {
			return r.status
		}
	}
	return VeryDanger
}
