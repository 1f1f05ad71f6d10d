package presenter

import (
	"time"

	"github.com/soocke/fieldcam-go/domain/recording"
	"github.com/soocke/fieldcam-go/ui/model"
)

// RecorderState reports the state of the current recording, StateIdle when
// there is none.
type RecorderState interface {
	RecordingState() recording.State
}

// SessionView displays formatted take and total durations and the photo count.
type SessionView interface {
	SetSession(take, total time.Duration)
	SetPhotos(n int)
}

// SessionPresenter formats durations from the model to the view.
type SessionPresenter struct {
	sess *model.SessionModel
	rec  RecorderState
	view SessionView
}

// NewSessionPresenter returns a new SessionPresenter.
func NewSessionPresenter(sess *model.SessionModel, rec RecorderState, view SessionView) *SessionPresenter {
	return &SessionPresenter{sess: sess, rec: rec, view: view}
}

// Tick advances the session model and pushes values to the view.
func (p *SessionPresenter) Tick(now time.Time) {
	if p == nil || p.sess == nil || p.rec == nil || p.view == nil {
		return
	}
	st := p.rec.RecordingState()
	active := st == recording.StateRecording || st == recording.StatePaused
	p.sess.OnTick(active, st == recording.StatePaused, now)
	take, total := p.sess.Values()
	p.view.SetSession(take, total)
	p.view.SetPhotos(p.sess.Photos())
}
