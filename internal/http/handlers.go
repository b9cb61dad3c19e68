package http

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"strconv"
	"strings"
	"time"

	"go-aging-risk-dashboard/internal/aging"
	"go-aging-risk-dashboard/internal/connectors/inventory"
)

var errDBDisabled = map[string]any{
	"error": "database integration disabled (set APP_DB_ENABLED=true)",
}

func storeSummaryHandler(store *inventory.Store, m *metrics) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if store == nil {
			writeJSON(w, nethttp.StatusServiceUnavailable, errDBDisabled)
			return
		}

		statuses, err := aging.ParseStatusList(r.URL.Query().Get("status"))
		if err != nil {
			writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}

		start := time.Now()
		summary, err := store.StoreSummary(r.Context(), inventory.SummaryFilter{
			Query:    r.URL.Query().Get("query"),
			Statuses: statuses,
		})
		m.observeQuery("StoreSummary", start, err)
		if err != nil {
			writeStoreError(w, err, "failed to load store summary")
			return
		}
		writeJSON(w, nethttp.StatusOK, summary)
	}
}

func inventoryByStatusHandler(defaultLimit, maxLimit int, store *inventory.Store, m *metrics) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if store == nil {
			writeJSON(w, nethttp.StatusServiceUnavailable, errDBDisabled)
			return
		}

		q := r.URL.Query()
		statuses, err := aging.ParseStatusList(q.Get("status"))
		if err != nil {
			writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}
		storeID, err := parseStoreID(q.Get("store_id"))
		if err != nil {
			writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}
		limit, err := parseLimit(q.Get("limit"), defaultLimit, maxLimit)
		if err != nil {
			writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}

		start := time.Now()
		result, err := store.InventoryByStatus(r.Context(), inventory.StatusQuery{
			Statuses: statuses,
			Query:    q.Get("query"),
			StoreID:  storeID,
			Limit:    limit,
		})
		m.observeQuery("InventoryByStatus", start, err)
		if err != nil {
			writeStoreError(w, err, "failed to load inventory")
			return
		}
		writeJSON(w, nethttp.StatusOK, result)
	}
}

func searchInventoryHandler(store *inventory.Store, m *metrics) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if store == nil {
			writeJSON(w, nethttp.StatusServiceUnavailable, errDBDisabled)
			return
		}

		q := r.URL.Query()
		storeID, err := parseStoreID(q.Get("store_id"))
		if err != nil {
			writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}
		alertOnly := false
		if raw := strings.TrimSpace(q.Get("alert_only")); raw != "" {
			alertOnly, err = strconv.ParseBool(raw)
			if err != nil {
				writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": "invalid alert_only, expected true or false"})
				return
			}
		}

		start := time.Now()
		result, err := store.Search(r.Context(), inventory.SearchQuery{
			Query:       q.Get("query"),
			StoreID:     storeID,
			Departments: splitCSV(q.Get("department")),
			AlertOnly:   alertOnly,
		})
		m.observeQuery("Search", start, err)
		if err != nil {
			writeStoreError(w, err, "inventory search failed")
			return
		}
		writeJSON(w, nethttp.StatusOK, result)
	}
}

// writeStoreError maps store failures onto status codes. Validation errors
// carry their own message; everything else gets the generic one.
func writeStoreError(w nethttp.ResponseWriter, err error, generic string) {
	switch {
	case errors.Is(err, inventory.ErrInvalidQuery):
		writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": err.Error()})
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, nethttp.ErrHandlerTimeout):
		writeJSON(w, nethttp.StatusGatewayTimeout, map[string]any{"error": generic})
	default:
		writeJSON(w, nethttp.StatusInternalServerError, map[string]any{"error": generic})
	}
}

func parseStoreID(raw string) (*int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid store_id %q", raw)
	}
	return &id, nil
}

func parseLimit(raw string, defaultLimit, maxLimit int) (int, error) {
	if maxLimit <= 0 {
		maxLimit = 2000
	}
	if defaultLimit <= 0 || defaultLimit > maxLimit {
		defaultLimit = min(200, maxLimit)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > maxLimit {
		return 0, fmt.Errorf("invalid limit, expected 1..%d", maxLimit)
	}
	return limit, nil
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
