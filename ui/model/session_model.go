package model

import (
	"sync/atomic"
	"time"
)

// SessionModel tracks the duration of the current take and the recorded
// time accumulated across takes in one preview window, plus the photo count.
// Paused time is not counted. The zero value is ready to use.
type SessionModel struct {
	takeOpen    bool
	running     bool
	since       time.Time
	take        time.Duration
	accumulated time.Duration
	photos      atomic.Int64
}

// NewSessionModel returns a pointer to a ready-to-use SessionModel.
func NewSessionModel() *SessionModel { return &SessionModel{} }

// OnTick updates the model from the recorder state at now. active is true
// while a take exists (recording or paused). A new take resets the take
// duration; the finished take stays visible until then.
// Call periodically (for example, from a presenter tick).
func (m *SessionModel) OnTick(active, paused bool, now time.Time) {
	if m == nil {
		return
	}
	if active && !m.takeOpen {
		m.takeOpen = true
		m.take = 0
	}
	if active && !paused {
		if !m.running {
			m.running = true
			m.since = now
		} else {
			m.advance(now)
		}
	} else if m.running {
		m.advance(now)
		m.running = false
	}
	if !active {
		m.takeOpen = false
	}
}

func (m *SessionModel) advance(now time.Time) {
	d := now.Sub(m.since)
	m.take += d
	m.accumulated += d
	m.since = now
}

// Values returns the current take duration and the total recorded duration.
func (m *SessionModel) Values() (take, total time.Duration) {
	if m == nil {
		return 0, 0
	}
	return m.take, m.accumulated
}

// PhotoTaken counts one saved snapshot.
func (m *SessionModel) PhotoTaken() {
	if m != nil {
		m.photos.Add(1)
	}
}

// Photos returns the number of saved snapshots.
func (m *SessionModel) Photos() int {
	if m == nil {
		return 0
	}
	return int(m.photos.Load())
}
