package tui

import (
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"go-aging-risk-dashboard/internal/livesync"
)

// Renderer bridges controller renders into the bubbletea loop. Render never
// blocks: it keeps only the latest view and leaves at most one wake-up
// pending, so bursts of renders collapse into one repaint.
type Renderer struct {
	latest  atomic.Pointer[livesync.View]
	updates chan struct{}
}

func NewRenderer() *Renderer {
	return &Renderer{updates: make(chan struct{}, 1)}
}

func (r *Renderer) Render(v livesync.View) {
	r.latest.Store(&v)
	select {
	case r.updates <- struct{}{}:
	default:
	}
}

// Latest returns the most recent view, if any.
func (r *Renderer) Latest() (livesync.View, bool) {
	p := r.latest.Load()
	if p == nil {
		return livesync.View{}, false
	}
	return *p, true
}

type viewMsg livesync.View

// wait blocks until the next render and delivers the latest view.
func (r *Renderer) wait() tea.Cmd {
	return func() tea.Msg {
		<-r.updates
		v, _ := r.Latest()
		return viewMsg(v)
	}
}
