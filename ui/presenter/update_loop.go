package presenter

import "time"

// Loop aggregates feature presenters and drives periodic updates.
//
// Each Tick advances the recording (the host frame clock), then refreshes
// the preview and status presenters and invokes the scheduler callback.
// The zero value is usable (methods are nil-safe).
type Loop struct {
	Recording *RecordingPresenter
	Preview   *PreviewPresenter
	Session   *SessionPresenter
	State     *StatePresenter
	Schedule  func()
	Now       func() time.Time
}

func NewLoop(rec *RecordingPresenter, prev *PreviewPresenter, sess *SessionPresenter, state *StatePresenter, schedule func()) *Loop {
	return &Loop{Recording: rec, Preview: prev, Session: sess, State: state, Schedule: schedule}
}

func (l *Loop) Tick() {
	if l == nil {
		return
	}
	now := time.Now()
	if l.Now != nil {
		now = l.Now()
	}
	if l.Recording != nil {
		l.Recording.Tick(now)
	}
	if l.Preview != nil {
		l.Preview.Tick(now)
	}
	if l.State != nil {
		l.State.Tick(now)
	}
	if l.Session != nil {
		l.Session.Tick(now)
	}
	if l.Schedule != nil {
		l.Schedule()
	}
}
