package livesync

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"go-aging-risk-dashboard/internal/apiclient"
)

// Placeholder is shown for absent optional values.
const Placeholder = "--"

// ToNumber coerces v to a finite float. Missing, non-numeric and
// non-finite values become 0.
func ToNumber(v any) float64 {
	var f float64
	switch t := v.(type) {
	case nil:
		return 0
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int32:
		f = float64(t)
	case int64:
		f = float64(t)
	case uint:
		f = float64(t)
	case uint32:
		f = float64(t)
	case uint64:
		f = float64(t)
	case *float64:
		if t == nil {
			return 0
		}
		f = *t
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		f = parsed
	case bool:
		if t {
			return 1
		}
		return 0
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// FormatNumber rounds v and groups thousands.
func FormatNumber(v any) string {
	r := math.Round(ToNumber(v))
	if math.Abs(r) >= 1<<63 {
		return humanize.Commaf(r)
	}
	return humanize.Comma(int64(r))
}

// FormatOptional formats v, or returns Placeholder when v is absent.
func FormatOptional(v any) string {
	switch t := v.(type) {
	case nil:
		return Placeholder
	case string:
		if t == "" {
			return Placeholder
		}
	case *float64:
		if t == nil {
			return Placeholder
		}
	}
	return FormatNumber(v)
}

// InventoryItem is a strictly typed inventory row. Optional numbers are nil
// when the server omitted them.
type InventoryItem struct {
	StyleCode   string
	ArticleName string
	Category    string
	Department  string
	Supplier    string
	StoreID     string
	Quantity    *float64
	Days        *float64
	MRP         *float64
	Status      string
	DangerLevel string
}

// NormalizeItem maps a loosely typed row to an InventoryItem.
func NormalizeItem(row apiclient.Row) InventoryItem {
	return InventoryItem{
		StyleCode:   text(row["style_code"]),
		ArticleName: text(row["article_name"]),
		Category:    text(row["category"]),
		Department:  text(firstPresent(row, "department_name", "department")),
		Supplier:    text(firstPresent(row, "supplier_name", "supplier")),
		StoreID:     strings.TrimSpace(text(row["store_id"])),
		Quantity:    optionalNumber(firstPresent(row, "quantity", "qty")),
		Days:        optionalNumber(firstPresent(row, "age_days", "days")),
		MRP:         optionalNumber(firstPresent(row, "item_mrp", "mrp")),
		Status:      text(row["aging_status"]),
		DangerLevel: text(row["danger_level"]),
	}
}

// NormalizeItems drops nil rows.
func NormalizeItems(rows []apiclient.Row) []InventoryItem {
	out := make([]InventoryItem, 0, len(rows))
	for _, row := range rows {
		if row == nil {
			continue
		}
		out = append(out, NormalizeItem(row))
	}
	return out
}

func firstPresent(row apiclient.Row, keys ...string) any {
	for _, k := range keys {
		if v, ok := row[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func optionalNumber(v any) *float64 {
	if v == nil {
		return nil
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return nil
	}
	f := ToNumber(v)
	return &f
}

// text renders scalar JSON values as strings.
func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
