package presenter

import (
	"sync"
	"time"

	"github.com/soocke/fieldcam-go/domain/recording"
)

// StateView sets the state label in the view.
type StateView interface{ SetStateLabel(string) }

// StatePresenter receives session transitions and reflects the latest one in
// the view on the next Tick.
type StatePresenter struct {
	view StateView

	mu      sync.Mutex
	latest  recording.State
	pending []recording.State
	shown   bool
}

func NewStatePresenter(view StateView) *StatePresenter {
	return &StatePresenter{view: view}
}

// OnState queues a transition. It is a recording.StateListener and runs on
// the session goroutine, so it only records the state.
func (p *StatePresenter) OnState(_, next recording.State) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.pending = append(p.pending, next)
	p.mu.Unlock()
}

// Tick updates the view with the most recent queued state and clears the queue.
func (p *StatePresenter) Tick(now time.Time) {
	if p == nil || p.view == nil {
		return
	}
	p.mu.Lock()
	var (
		last recording.State
		have bool
	)
	if n := len(p.pending); n > 0 {
		last, have = p.pending[n-1], true
		p.pending = p.pending[:0]
	}
	p.mu.Unlock()
	if !p.shown {
		p.shown = true
		if !have {
			last, have = recording.StateIdle, true
		}
		p.latest = last
		p.view.SetStateLabel("State: " + last.String())
		return
	}
	if have && last != p.latest {
		p.latest = last
		p.view.SetStateLabel("State: " + last.String())
	}
}
