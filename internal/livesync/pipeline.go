package livesync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-aging-risk-dashboard/internal/apiclient"
)

// ScheduleFilters debounces a filter change into one ApplyFilters call.
func (c *Controller) ScheduleFilters(ctx context.Context) {
	c.mu.Lock()
	c.phase = PhaseDebouncing
	c.renderLocked()
	c.mu.Unlock()

	c.debouncer.Schedule(func() {
		if ctx.Err() != nil {
			return
		}
		c.ApplyFilters(ctx)
	})
}

// ApplyFilters runs the store filter pipeline for the current filter state
// and then cascades into the inventory sync. It blocks until both settle or
// are superseded.
func (c *Controller) ApplyFilters(ctx context.Context) {
	c.mu.Lock()
	epoch := c.storeEpoch.Begin()
	f := c.filter.Clone()

	if f.Empty() {
		c.installLocked(c.base, nil, len(c.base), PhaseApplied, "", f)
		c.renderLocked()
		c.mu.Unlock()
		c.metrics.shortCircuit()
		c.syncInventory(ctx, f, epoch)
		return
	}

	c.phase = PhaseFetching
	c.tableStatus = textFiltering
	c.renderLocked()
	c.mu.Unlock()

	start := time.Now()
	fetchCtx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	payload, err := c.src.Summary(fetchCtx, apiclient.SummaryQuery{Query: f.TrimmedQuery(), Status: f.StatusParam()})
	cancel()
	elapsed := time.Since(start)

	c.mu.Lock()
	if !c.storeEpoch.IsCurrent(epoch) {
		c.mu.Unlock()
		c.metrics.observeFetch("summary", "stale", elapsed)
		c.metrics.staleResult("store")
		return
	}
	if errors.Is(err, apiclient.ErrUnauthorized) {
		c.mu.Unlock()
		c.metrics.observeFetch("summary", "unauthorized", elapsed)
		c.session.Unauthorized()
		return
	}
	if ctx.Err() != nil {
		c.mu.Unlock()
		return
	}

	if err != nil || payload == nil {
		c.logger.Warn("store filter fetch failed, filtering cached snapshot",
			"query", f.TrimmedQuery(), "status", f.StatusParam(), "error", err)
		c.installLocked(FilterSnapshot(c.base, f), nil, len(c.base), PhaseFallingBack, textCachedResults, f)
		c.toastLocked(textCachedResults, ToastError)
		c.renderLocked()
		c.mu.Unlock()
		c.metrics.observeFetch("summary", "error", elapsed)
		c.metrics.fallback()
	} else {
		total := len(c.base)
		if payload.StoreCountTotal != nil {
			total = *payload.StoreCountTotal
		}
		c.installLocked(BuildSnapshot(payload.Results, payload.AgingResults), payload.StatusCounts, total, PhaseApplied, "", f)
		c.renderLocked()
		c.mu.Unlock()
		c.metrics.observeFetch("summary", "ok", elapsed)
	}

	c.syncInventory(ctx, f, epoch)
}

// Refresh pulls the unfiltered summary, installs it as the cached snapshot
// and re-applies the current filter against it.
func (c *Controller) Refresh(ctx context.Context, notify bool) error {
	c.mu.Lock()
	epoch := c.refreshEpoch.Begin()
	c.tableStatus = textLoadingData
	c.renderLocked()
	c.mu.Unlock()

	start := time.Now()
	fetchCtx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	payload, err := c.src.Summary(fetchCtx, apiclient.SummaryQuery{})
	cancel()
	elapsed := time.Since(start)

	c.mu.Lock()
	if !c.refreshEpoch.IsCurrent(epoch) {
		c.mu.Unlock()
		c.metrics.observeFetch("refresh", "stale", elapsed)
		c.metrics.staleResult("refresh")
		return nil
	}
	if errors.Is(err, apiclient.ErrUnauthorized) {
		c.mu.Unlock()
		c.metrics.observeFetch("refresh", "unauthorized", elapsed)
		c.session.Unauthorized()
		return err
	}
	if err != nil || payload == nil {
		if err == nil {
			err = apiclient.ErrEmptyPayload
		}
		c.tableStatus = textLoadFailed
		c.toastLocked("Failed to load dashboard data", ToastError)
		c.renderLocked()
		c.mu.Unlock()
		c.metrics.observeFetch("refresh", "error", elapsed)
		return fmt.Errorf("refresh summary: %w", err)
	}
	c.base = BuildSnapshot(payload.Results, payload.AgingResults)
	c.baseDate = payload.Date
	c.mu.Unlock()
	c.metrics.observeFetch("refresh", "ok", elapsed)

	c.ApplyFilters(ctx)

	c.mu.Lock()
	if c.phase.Settled() {
		c.tableStatus = fmt.Sprintf("Updated %s.", c.clock())
	}
	if notify {
		c.toastLocked("Dashboard refreshed", ToastSuccess)
	}
	c.renderLocked()
	c.mu.Unlock()
	return nil
}

// RefreshHealth probes the API health endpoint and records its latency.
func (c *Controller) RefreshHealth(ctx context.Context, notify bool) error {
	c.mu.Lock()
	epoch := c.healthEpoch.Begin()
	c.health.Message = textHealthChecking
	c.renderLocked()
	c.mu.Unlock()

	start := time.Now()
	fetchCtx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	payload, err := c.src.Health(fetchCtx)
	cancel()
	latency := time.Since(start)

	if errors.Is(err, apiclient.ErrUnauthorized) {
		c.metrics.observeFetch("health", "unauthorized", latency)
		c.session.Unauthorized()
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.healthEpoch.IsCurrent(epoch) {
		c.metrics.observeFetch("health", "stale", latency)
		c.metrics.staleResult("health")
		return nil
	}
	if err != nil || payload == nil {
		if err == nil {
			err = apiclient.ErrEmptyPayload
		}
		c.health.Checked = true
		c.health.OK = false
		c.health.Message = textHealthFailed
		c.toastLocked("Failed to load system health", ToastError)
		c.renderLocked()
		c.metrics.observeFetch("health", "error", latency)
		return fmt.Errorf("health probe: %w", err)
	}

	state := "Degraded"
	if payload.Status == "ok" {
		state = "Online"
	}
	c.health = HealthView{
		Checked:     true,
		OK:          payload.Status == "ok",
		State:       state,
		App:         orPlaceholder(payload.App),
		Environment: orPlaceholder(payload.Environment),
		Time:        orPlaceholder(payload.Time),
		Latency:     latency,
		Message:     fmt.Sprintf("Updated %s.", c.clock()),
	}
	if notify {
		c.toastLocked("System health refreshed", ToastSuccess)
	}
	c.renderLocked()
	c.metrics.observeFetch("health", "ok", latency)
	return nil
}

func orPlaceholder(s string) string {
	if s == "" {
		return Placeholder
	}
	return s
}
