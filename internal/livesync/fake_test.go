package livesync

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go-aging-risk-dashboard/internal/apiclient"
)

// fakeCall is one blocked DataSource call waiting for a reply.
type fakeCall struct {
	kind      string
	summary   apiclient.SummaryQuery
	inventory apiclient.InventoryQuery
	search    apiclient.SearchQuery
	reply     chan fakeReply
}

type fakeReply struct {
	summary   *apiclient.SummaryPayload
	inventory *apiclient.InventoryPayload
	search    *apiclient.SearchPayload
	health    *apiclient.HealthPayload
	err       error
}

func (c *fakeCall) respond(r fakeReply) { c.reply <- r }

// fakeSource hands every call to the test through calls and blocks until
// the test replies or the call context ends.
type fakeSource struct {
	calls chan *fakeCall
}

func newFakeSource() *fakeSource {
	return &fakeSource{calls: make(chan *fakeCall, 32)}
}

func (f *fakeSource) do(ctx context.Context, c *fakeCall) fakeReply {
	c.reply = make(chan fakeReply, 1)
	f.calls <- c
	select {
	case r := <-c.reply:
		return r
	case <-ctx.Done():
		return fakeReply{err: ctx.Err()}
	}
}

func (f *fakeSource) Summary(ctx context.Context, q apiclient.SummaryQuery) (*apiclient.SummaryPayload, error) {
	r := f.do(ctx, &fakeCall{kind: "summary", summary: q})
	return r.summary, r.err
}

func (f *fakeSource) InventoryByStatus(ctx context.Context, q apiclient.InventoryQuery) (*apiclient.InventoryPayload, error) {
	r := f.do(ctx, &fakeCall{kind: "inventory", inventory: q})
	return r.inventory, r.err
}

func (f *fakeSource) SearchInventory(ctx context.Context, q apiclient.SearchQuery) (*apiclient.SearchPayload, error) {
	r := f.do(ctx, &fakeCall{kind: "search", search: q})
	return r.search, r.err
}

func (f *fakeSource) Health(ctx context.Context) (*apiclient.HealthPayload, error) {
	r := f.do(ctx, &fakeCall{kind: "health"})
	return r.health, r.err
}

func (f *fakeSource) next(t *testing.T, kind string) *fakeCall {
	t.Helper()
	select {
	case c := <-f.calls:
		require.Equal(t, kind, c.kind)
		return c
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s call", kind)
		return nil
	}
}

func (f *fakeSource) requireNoCall(t *testing.T) {
	t.Helper()
	select {
	case c := <-f.calls:
		t.Fatalf("unexpected %s call", c.kind)
	default:
	}
}

// recorder keeps every rendered view.
type recorder struct {
	mu    sync.Mutex
	views []View
}

func (r *recorder) Render(v View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = append(r.views, v)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

type sessionCounter struct {
	mu sync.Mutex
	n  int
}

func (s *sessionCounter) Unauthorized() {
	s.mu.Lock()
	s.n++
	s.mu.Unlock()
}

func (s *sessionCounter) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

func newTestController(t *testing.T, src DataSource, opts Options) (*Controller, *recorder) {
	t.Helper()
	if opts.Debounce == 0 {
		opts.Debounce = time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Date(2025, 6, 30, 9, 30, 0, 0, time.UTC) }
	}
	rec := &recorder{}
	c := New(src, rec, opts)
	t.Cleanup(c.Close)
	return c, rec
}

func num(v float64) json.Number {
	b, _ := json.Marshal(v)
	return json.Number(b)
}

func agingRow(id string, healthy, transfer, rr, vd float64) apiclient.Row {
	return apiclient.Row{
		"store_id":            json.Number(id),
		"HEALTHY":             num(healthy),
		"TRANSFER":            num(transfer),
		"RR_TT":               num(rr),
		"VERY_DANGER":         num(vd),
		"total_aging_capital": num(healthy + transfer + rr + vd),
	}
}

func riskRow(id string, early, high, critical float64) apiclient.Row {
	return apiclient.Row{
		"store_id":             id,
		"EARLY":                num(early),
		"HIGH":                 num(high),
		"CRITICAL":             num(critical),
		"total_danger_capital": num(early + high + critical),
	}
}

func summaryOf(agingRows ...apiclient.Row) *apiclient.SummaryPayload {
	return &apiclient.SummaryPayload{Date: "2025-06-30", AgingResults: agingRows}
}

func storeIDs(s Snapshot) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, r.ID)
	}
	return out
}

// runAsync runs fn in a goroutine and returns a channel closed when it returns.
func runAsync(fn func()) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	return done
}

func wait(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("operation did not finish")
	}
}
