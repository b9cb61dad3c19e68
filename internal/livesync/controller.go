// Package livesync keeps the store summary view and the dependent inventory
// view consistent while filters change, requests race, a live ticker
// re-pulls data and the API may be unreachable.
//
// All view state lives in a Controller and is mutated under its mutex.
// Network calls run outside the lock; every result carries an epoch that
// must still be current when the lock is re-taken, otherwise it is dropped.
package livesync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go-aging-risk-dashboard/internal/aging"
	"go-aging-risk-dashboard/internal/apiclient"
)

// DataSource is the dashboard API as seen by the controller.
type DataSource interface {
	Summary(ctx context.Context, q apiclient.SummaryQuery) (*apiclient.SummaryPayload, error)
	InventoryByStatus(ctx context.Context, q apiclient.InventoryQuery) (*apiclient.InventoryPayload, error)
	SearchInventory(ctx context.Context, q apiclient.SearchQuery) (*apiclient.SearchPayload, error)
	Health(ctx context.Context) (*apiclient.HealthPayload, error)
}

// Renderer receives every view change. Render is called with the
// controller lock held and must not call back into the controller.
type Renderer interface {
	Render(View)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(View)

func (f RendererFunc) Render(v View) { f(v) }

// SessionHandler is told when the API rejects the session.
type SessionHandler interface {
	Unauthorized()
}

// SessionFunc adapts a function to SessionHandler.
type SessionFunc func()

func (f SessionFunc) Unauthorized() { f() }

// Phase is the filter pipeline state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseDebouncing
	PhaseFetching
	PhaseApplied
	PhaseFallingBack
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseDebouncing:
		return "debouncing"
	case PhaseFetching:
		return "fetching"
	case PhaseApplied:
		return "applied"
	case PhaseFallingBack:
		return "falling_back"
	default:
		return "unknown"
	}
}

// Settled reports whether no filter operation is pending.
func (p Phase) Settled() bool {
	return p == PhaseIdle || p == PhaseApplied || p == PhaseFallingBack
}

// InventoryMode tells whether the inventory view follows the store filter.
type InventoryMode int

const (
	ModeManual InventoryMode = iota
	ModeStatusSynced
)

func (m InventoryMode) String() string {
	if m == ModeStatusSynced {
		return "status_synced"
	}
	return "manual"
}

// Status and notice texts.
const (
	textFiltering       = "Filtering stores..."
	textLoadingData     = "Loading data..."
	textLoadFailed      = "Failed to load dashboard data."
	textNoMatches       = "No stores match the current filters."
	textReady           = "Ready."
	textCachedResults   = "Showing cached results."
	textInventoryPrompt = "Select a status tag or search a store to load inventory."
	textSearchPrompt    = "Enter at least 2 characters to search inventory."
	textSearching       = "Searching inventory..."
	textLoadingItems    = "Loading inventory..."
	textSearchFailed    = "Inventory search failed."
	textInventoryFailed = "Failed to load inventory."
	textHealthChecking  = "Checking system health..."
	textHealthFailed    = "Failed to load system health."
)

// ToastLevel is the tone of a transient notification.
type ToastLevel string

const (
	ToastSuccess ToastLevel = "success"
	ToastError   ToastLevel = "error"
)

// Toast is a transient notification. Seq increases with every toast.
type Toast struct {
	Seq     uint64
	Message string
	Level   ToastLevel
}

// InventoryView is the inventory detail panel.
type InventoryView struct {
	Mode       InventoryMode
	AlertOnly  bool
	Loading    bool
	Status     string
	Items      []InventoryItem
	Count      int
	TotalCount int
	TotalQty   float64
	TotalValue float64
	Limited    bool
}

// HealthView is the system health readout.
type HealthView struct {
	Checked     bool
	OK          bool
	State       string
	App         string
	Environment string
	Time        string
	Latency     time.Duration
	Message     string
}

// View is an immutable copy of everything a renderer shows.
type View struct {
	Phase        Phase
	Filter       FilterState
	Date         string
	AllCount     int
	Stores       Snapshot
	Totals       Totals
	ActiveCounts map[aging.Status]int
	FilterStatus string
	TableStatus  string
	Notice       string
	Inventory    InventoryView
	Health       HealthView
	Live         bool
	Toast        *Toast
}

// Options configures a Controller. Zero values take defaults.
type Options struct {
	Logger         *slog.Logger
	Metrics        *Metrics
	Session        SessionHandler
	Debounce       time.Duration
	FetchTimeout   time.Duration
	PollInterval   time.Duration
	InventoryLimit int
	Now            func() time.Time
}

const (
	DefaultDebounce       = 220 * time.Millisecond
	DefaultFetchTimeout   = 15 * time.Second
	DefaultPollInterval   = 60 * time.Second
	DefaultInventoryLimit = 200
)

// Controller owns the filter state, the cached snapshot, the epoch streams
// and the inventory mode for one console session.
type Controller struct {
	src            DataSource
	renderer       Renderer
	session        SessionHandler
	logger         *slog.Logger
	metrics        *Metrics
	now            func() time.Time
	fetchTimeout   time.Duration
	inventoryLimit int
	debouncer      *Debouncer
	supervisor     *Supervisor

	storeEpoch     EpochStream
	inventoryEpoch EpochStream
	refreshEpoch   EpochStream
	healthEpoch    EpochStream

	mu           sync.Mutex
	filter       FilterState
	base         Snapshot
	baseDate     string
	visible      Snapshot
	totals       Totals
	activeCounts map[aging.Status]int
	shownTotal   int
	phase        Phase
	filterStatus string
	tableStatus  string
	notice       string
	inventory    InventoryView
	health       HealthView
	live         bool
	toast        *Toast
	toastSeq     uint64
}

// New builds a controller. renderer may be nil.
func New(src DataSource, renderer Renderer, opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Session == nil {
		opts.Session = SessionFunc(func() {})
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.InventoryLimit <= 0 {
		opts.InventoryLimit = DefaultInventoryLimit
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if renderer == nil {
		renderer = RendererFunc(func(View) {})
	}

	c := &Controller{
		src:            src,
		renderer:       renderer,
		session:        opts.Session,
		logger:         opts.Logger,
		metrics:        opts.Metrics,
		now:            opts.Now,
		fetchTimeout:   opts.FetchTimeout,
		inventoryLimit: opts.InventoryLimit,
		debouncer:      NewDebouncer(opts.Debounce),
		filter:         NewFilterState(""),
		base:           Snapshot{},
		visible:        Snapshot{},
		phase:          PhaseIdle,
		filterStatus:   "Loading store data...",
		tableStatus:    "Loading store data...",
		inventory:      InventoryView{Mode: ModeManual, Status: textInventoryPrompt},
		health:         unknownHealth(),
	}
	c.totals = ComputeTotals(c.visible)
	c.activeCounts = c.totals.ActiveCounts
	c.supervisor = NewSupervisor(opts.PollInterval, c.liveTick)
	return c
}

func unknownHealth() HealthView {
	return HealthView{State: Placeholder, App: Placeholder, Environment: Placeholder, Time: Placeholder}
}

// Seed installs a pre-fetched unfiltered summary and filters it locally.
func (c *Controller) Seed(p *apiclient.SummaryPayload) {
	if p == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.base = BuildSnapshot(p.Results, p.AgingResults)
	c.baseDate = p.Date
	f := c.filter.Clone()
	c.installLocked(FilterSnapshot(c.base, f), nil, len(c.base), PhaseApplied, "", f)
	c.renderLocked()
}

// View returns the current view.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// Filter returns a copy of the filter state.
func (c *Controller) Filter() FilterState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter.Clone()
}

// VisibleStores returns the stores currently shown.
func (c *Controller) VisibleStores() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visible
}

// InventoryResults returns the inventory items currently shown.
func (c *Controller) InventoryResults() []InventoryItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inventory.Items
}

// SetQuery replaces the search text and schedules the pipeline.
func (c *Controller) SetQuery(ctx context.Context, q string) {
	c.mu.Lock()
	c.filter.Query = q
	c.mu.Unlock()
	c.ScheduleFilters(ctx)
}

// ToggleTag flips one status tag and schedules the pipeline.
func (c *Controller) ToggleTag(ctx context.Context, s aging.Status) {
	c.mu.Lock()
	if c.filter.HasTag(s) {
		delete(c.filter.Tags, s)
	} else {
		c.filter.Tags[s] = struct{}{}
	}
	c.mu.Unlock()
	c.ScheduleFilters(ctx)
}

// SetTags replaces the tag selection and schedules the pipeline.
func (c *Controller) SetTags(ctx context.Context, tags ...aging.Status) {
	c.mu.Lock()
	c.filter = NewFilterState(c.filter.Query, tags...)
	c.mu.Unlock()
	c.ScheduleFilters(ctx)
}

// SetFilter replaces query and tags together and applies immediately,
// cancelling any pending debounce.
func (c *Controller) SetFilter(ctx context.Context, query string, tags ...aging.Status) {
	c.debouncer.Stop()
	c.mu.Lock()
	c.filter = NewFilterState(query, tags...)
	c.mu.Unlock()
	c.ApplyFilters(ctx)
}

// ResetFilters clears the query and tags and applies immediately.
func (c *Controller) ResetFilters(ctx context.Context) {
	c.debouncer.Stop()
	c.mu.Lock()
	c.filter = NewFilterState("")
	c.toastLocked("Filters cleared", ToastSuccess)
	c.mu.Unlock()
	c.ApplyFilters(ctx)
}

// ToggleAlertOnly flips the alert-only flag used by manual searches.
func (c *Controller) ToggleAlertOnly() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inventory.AlertOnly = !c.inventory.AlertOnly
	c.renderLocked()
	return c.inventory.AlertOnly
}

// Notify shows a toast raised outside the controller, such as an export result.
func (c *Controller) Notify(msg string, level ToastLevel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.toastLocked(msg, level)
	c.renderLocked()
}

// Live reports whether the live supervisor is enabled.
func (c *Controller) Live() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.live
}

// SetLive starts or stops the live supervisor.
func (c *Controller) SetLive(ctx context.Context, enabled bool) {
	c.mu.Lock()
	c.live = enabled
	c.renderLocked()
	c.mu.Unlock()

	if enabled {
		c.supervisor.Start(ctx)
	} else {
		c.supervisor.Stop()
	}
}

// ToggleLive flips the live state.
func (c *Controller) ToggleLive(ctx context.Context) bool {
	enabled := !c.Live()
	c.SetLive(ctx, enabled)
	return enabled
}

// Close stops the supervisor and any pending debounce.
func (c *Controller) Close() {
	c.debouncer.Stop()
	c.supervisor.Stop()
}

// installLocked replaces the visible rows and everything derived from them.
func (c *Controller) installLocked(rows Snapshot, statusCounts map[string]int, total int, phase Phase, notice string, f FilterState) {
	c.visible = rows
	c.totals = ComputeTotals(rows)
	c.activeCounts = c.totals.ActiveCounts
	if statusCounts != nil {
		counts := make(map[aging.Status]int, len(aging.Statuses))
		for _, s := range aging.Statuses {
			counts[s] = statusCounts[string(s)]
		}
		c.activeCounts = counts
	}
	c.shownTotal = total
	c.phase = phase
	c.notice = notice
	c.filterStatus = filterStatusText(len(rows), total, f)
	if len(rows) == 0 {
		c.tableStatus = textNoMatches
	} else {
		c.tableStatus = textReady
	}
}

func (c *Controller) toastLocked(msg string, level ToastLevel) {
	c.toastSeq++
	c.toast = &Toast{Seq: c.toastSeq, Message: msg, Level: level}
}

func (c *Controller) viewLocked() View {
	counts := make(map[aging.Status]int, len(c.activeCounts))
	for k, v := range c.activeCounts {
		counts[k] = v
	}
	v := View{
		Phase:        c.phase,
		Filter:       c.filter.Clone(),
		Date:         c.baseDate,
		AllCount:     c.shownTotal,
		Stores:       c.visible,
		Totals:       c.totals,
		ActiveCounts: counts,
		FilterStatus: c.filterStatus,
		TableStatus:  c.tableStatus,
		Notice:       c.notice,
		Inventory:    c.inventory,
		Health:       c.health,
		Live:         c.live,
	}
	if c.toast != nil {
		t := *c.toast
		v.Toast = &t
	}
	return v
}

func (c *Controller) renderLocked() {
	c.renderer.Render(c.viewLocked())
}

func (c *Controller) clock() string {
	return c.now().Format("15:04:05")
}
