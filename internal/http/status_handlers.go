package http

import (
	"context"
	nethttp "net/http"
	"time"

	"go-aging-risk-dashboard/internal/connectors/inventory"
)

func servicesStatusHandler(store *inventory.Store, m *metrics) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
		defer cancel()

		writeJSON(w, nethttp.StatusOK, map[string]any{
			"generated_at": time.Now().UTC(),
			"services": map[string]any{
				"database": databaseStatus(ctx, store, m),
			},
		})
	}
}

// readyHandler reports 503 while an enabled database cannot be reached.
func readyHandler(store *inventory.Store, m *metrics) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		db := databaseStatus(ctx, store, m)
		if db["enabled"] == true && db["ok"] != true {
			writeJSON(w, nethttp.StatusServiceUnavailable, map[string]any{
				"status":   "not_ready",
				"database": db,
			})
			return
		}
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"status":   "ready",
			"database": db,
		})
	}
}

func databaseStatus(ctx context.Context, store *inventory.Store, m *metrics) map[string]any {
	if store == nil {
		return map[string]any{"enabled": false, "ok": false, "error": "database integration disabled"}
	}

	start := time.Now()
	stats, err := store.ServiceStats(ctx)
	m.observeQuery("ServiceStats", start, err)
	if err != nil {
		return map[string]any{"enabled": true, "ok": false, "error": err.Error()}
	}
	return map[string]any{"enabled": true, "ok": true, "stats": stats}
}
