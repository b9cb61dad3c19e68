package livesync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-aging-risk-dashboard/internal/aging"
	"go-aging-risk-dashboard/internal/apiclient"
)

const minSearchRunes = 2

// syncInventory makes the inventory view follow the store filter f.
// An empty filter releases a synced view back to manual mode. Nothing
// happens once storeEpoch has been superseded.
func (c *Controller) syncInventory(ctx context.Context, f FilterState, storeEpoch uint64) {
	c.mu.Lock()
	if !c.storeEpoch.IsCurrent(storeEpoch) {
		// A newer store filter already owns the inventory view.
		c.mu.Unlock()
		c.metrics.staleResult("inventory_sync")
		return
	}
	if f.Empty() {
		if c.inventory.Mode == ModeStatusSynced {
			// Supersede any synced request still in flight.
			c.inventoryEpoch.Begin()
			c.resetInventoryLocked(ModeManual, textInventoryPrompt)
			c.renderLocked()
		}
		c.mu.Unlock()
		return
	}

	epoch := c.inventoryEpoch.Begin()
	c.inventory.Mode = ModeStatusSynced
	c.inventory.Loading = true
	c.inventory.Status = textLoadingItems
	c.renderLocked()
	c.mu.Unlock()

	q := apiclient.InventoryQuery{Status: f.StatusParam(), Limit: c.inventoryLimit}
	if query := f.TrimmedQuery(); aging.IsNumericQuery(query) {
		q.StoreID = query
	} else {
		q.Query = query
	}

	start := time.Now()
	fetchCtx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	payload, err := c.src.InventoryByStatus(fetchCtx, q)
	cancel()
	elapsed := time.Since(start)

	c.mu.Lock()
	if !c.inventoryEpoch.IsCurrent(epoch) {
		c.mu.Unlock()
		c.metrics.observeFetch("inventory", "stale", elapsed)
		c.metrics.staleResult("inventory")
		return
	}
	if errors.Is(err, apiclient.ErrUnauthorized) {
		c.mu.Unlock()
		c.metrics.observeFetch("inventory", "unauthorized", elapsed)
		c.session.Unauthorized()
		return
	}
	if err != nil || payload == nil {
		c.logger.Warn("inventory sync failed", "status", q.Status, "store_id", q.StoreID, "error", err)
		c.resetInventoryLocked(ModeStatusSynced, failureText(err, textInventoryFailed))
		c.renderLocked()
		c.mu.Unlock()
		c.metrics.observeFetch("inventory", "error", elapsed)
		return
	}

	items := NormalizeItems(payload.Results)
	c.inventory.Loading = false
	c.inventory.Items = items
	c.inventory.Count = len(items)
	c.inventory.TotalCount = len(items)
	if payload.TotalCount != nil {
		c.inventory.TotalCount = *payload.TotalCount
	}
	c.inventory.TotalQty = numberOr(payload.TotalQty)
	c.inventory.TotalValue = numberOr(payload.TotalValue)
	c.inventory.Limited = payload.Limited
	c.inventory.Status = syncedStatusText(len(items), c.inventory.TotalCount, payload.Limited)
	c.renderLocked()
	c.mu.Unlock()
	c.metrics.observeFetch("inventory", "ok", elapsed)
}

// ManualSearch runs an explicit inventory search. It switches the view to
// manual mode and supersedes any synced request in flight.
func (c *Controller) ManualSearch(ctx context.Context, query, storeID string) {
	query = strings.TrimSpace(query)
	storeID = strings.TrimSpace(storeID)

	c.mu.Lock()
	if len([]rune(query)) < minSearchRunes && storeID == "" {
		c.inventory.Loading = false
		c.inventory.Items = nil
		c.inventory.Count = 0
		c.inventory.TotalCount = 0
		c.inventory.Status = textSearchPrompt
		c.renderLocked()
		c.mu.Unlock()
		return
	}

	epoch := c.inventoryEpoch.Begin()
	c.inventory.Mode = ModeManual
	c.inventory.Loading = true
	c.inventory.Status = textSearching
	alertOnly := c.inventory.AlertOnly
	c.renderLocked()
	c.mu.Unlock()

	start := time.Now()
	fetchCtx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	payload, err := c.src.SearchInventory(fetchCtx, apiclient.SearchQuery{Query: query, StoreID: storeID, AlertOnly: alertOnly})
	cancel()
	elapsed := time.Since(start)

	c.mu.Lock()
	if !c.inventoryEpoch.IsCurrent(epoch) {
		c.mu.Unlock()
		c.metrics.observeFetch("search", "stale", elapsed)
		c.metrics.staleResult("inventory")
		return
	}
	if errors.Is(err, apiclient.ErrUnauthorized) {
		c.mu.Unlock()
		c.metrics.observeFetch("search", "unauthorized", elapsed)
		c.session.Unauthorized()
		return
	}
	if err != nil || payload == nil {
		c.logger.Warn("inventory search failed", "query", query, "store_id", storeID, "error", err)
		c.resetInventoryLocked(ModeManual, failureText(err, textSearchFailed))
		c.renderLocked()
		c.mu.Unlock()
		c.metrics.observeFetch("search", "error", elapsed)
		return
	}

	items := NormalizeItems(payload.Results)
	count := payload.Count
	if count == 0 {
		count = len(items)
	}
	c.inventory.Loading = false
	c.inventory.Items = items
	c.inventory.Count = len(items)
	c.inventory.TotalCount = count
	c.inventory.TotalQty = 0
	c.inventory.TotalValue = 0
	c.inventory.Limited = false
	c.inventory.Status = fmt.Sprintf("Found %d items.", count)
	c.renderLocked()
	c.mu.Unlock()
	c.metrics.observeFetch("search", "ok", elapsed)
}

func (c *Controller) resetInventoryLocked(mode InventoryMode, status string) {
	c.inventory = InventoryView{
		Mode:      mode,
		AlertOnly: c.inventory.AlertOnly,
		Status:    status,
	}
}

// failureText prefers the server's own message for a rejected request.
func failureText(err error, fallback string) string {
	var se *apiclient.StatusError
	if errors.As(err, &se) && se.Message != "" && se.Code < 500 {
		return se.Message
	}
	return fallback
}

func syncedStatusText(shown, total int, limited bool) string {
	if limited {
		return fmt.Sprintf("Showing %d of %d items.", shown, total)
	}
	return fmt.Sprintf("Found %d items.", shown)
}

func numberOr(n *json.Number) float64 {
	if n == nil {
		return 0
	}
	return ToNumber(*n)
}
