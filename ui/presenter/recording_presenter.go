package presenter

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/soocke/fieldcam-go/domain/artifact"
	"github.com/soocke/fieldcam-go/domain/recording"
	"github.com/soocke/fieldcam-go/ui/model"
)

// Recorder narrows what the presenter needs from the studio.
type Recorder interface {
	StartRecording(ctx context.Context, clock recording.Clock) (*recording.Session, error)
	PauseRecording() error
	ResumeRecording() error
	StopRecording() (artifact.Artifact, string, error)
	TakePhoto(ctx context.Context) (artifact.Artifact, string, error)
	TickRecording(now time.Time) bool
	RecordingState() recording.State
}

// RecordingView enables buttons for the recorder state and shows status text.
type RecordingView interface {
	SetControls(state recording.State, busy bool)
	ShowMessage(msg string)
}

type outcome struct {
	msg   string
	photo bool
}

// RecordingPresenter owns the Photo/Record/Pause/Stop buttons and is the
// host frame clock: every Tick composes one recorded frame. Photo and Stop
// may block on location or the encoder, so they run off the Tk thread and
// report back through Tick.
type RecordingPresenter struct {
	ctx     context.Context
	rec     Recorder
	view    RecordingView
	sess    *model.SessionModel
	onState recording.StateListener

	results   chan outcome
	photoBusy atomic.Bool
	stopBusy  atomic.Bool

	shown     bool
	lastState recording.State
	lastBusy  bool
}

func NewRecordingPresenter(ctx context.Context, rec Recorder, view RecordingView, sess *model.SessionModel, onState recording.StateListener) *RecordingPresenter {
	return &RecordingPresenter{ctx: ctx, rec: rec, view: view, sess: sess, onState: onState, results: make(chan outcome, 8)}
}

func (p *RecordingPresenter) ready() bool {
	return p != nil && p.rec != nil && p.view != nil
}

// Record starts a new take driven by Tick.
func (p *RecordingPresenter) Record() {
	if !p.ready() || p.stopBusy.Load() {
		return
	}
	if p.rec.RecordingState() != recording.StateIdle {
		return
	}
	sess, err := p.rec.StartRecording(p.ctx, nil)
	if err != nil {
		p.view.ShowMessage("Record failed: " + err.Error())
		return
	}
	if sess != nil && p.onState != nil {
		p.onState(recording.StateIdle, sess.State())
		sess.AddListener(p.onState)
	}
	p.view.ShowMessage("Recording")
}

// TogglePause pauses a running take or resumes a paused one.
func (p *RecordingPresenter) TogglePause() {
	if !p.ready() {
		return
	}
	var err error
	switch p.rec.RecordingState() {
	case recording.StateRecording:
		err = p.rec.PauseRecording()
	case recording.StatePaused:
		err = p.rec.ResumeRecording()
	default:
		return
	}
	if err != nil {
		p.view.ShowMessage(err.Error())
	}
}

// Stop finalizes the take in the background.
func (p *RecordingPresenter) Stop() {
	if !p.ready() {
		return
	}
	st := p.rec.RecordingState()
	if st != recording.StateRecording && st != recording.StatePaused {
		return
	}
	if !p.stopBusy.CompareAndSwap(false, true) {
		return
	}
	go func() {
		art, path, err := p.rec.StopRecording()
		p.stopBusy.Store(false)
		switch {
		case err != nil && path != "":
			p.results <- outcome{msg: savedMessage(art, path) + ", incomplete: " + err.Error()}
		case err != nil:
			p.results <- outcome{msg: "Stop failed: " + err.Error()}
		default:
			p.results <- outcome{msg: savedMessage(art, path)}
		}
	}()
}

// Photo takes a snapshot in the background.
func (p *RecordingPresenter) Photo() {
	if !p.ready() {
		return
	}
	if !p.photoBusy.CompareAndSwap(false, true) {
		return
	}
	go func() {
		art, path, err := p.rec.TakePhoto(p.ctx)
		p.photoBusy.Store(false)
		if err != nil {
			p.results <- outcome{msg: "Photo failed: " + err.Error()}
			return
		}
		p.results <- outcome{msg: savedMessage(art, path), photo: true}
	}()
}

func savedMessage(art artifact.Artifact, path string) string {
	name := art.SuggestedName
	if path != "" {
		name = filepath.Base(path)
	}
	return fmt.Sprintf("Saved %s (%s)", name, humanize.Bytes(uint64(len(art.Payload))))
}

// Tick drives one recorded frame, then reflects finished background work
// and control state in the view.
func (p *RecordingPresenter) Tick(now time.Time) {
	if !p.ready() {
		return
	}
	p.rec.TickRecording(now)
drain:
	for {
		select {
		case r := <-p.results:
			if r.photo {
				p.sess.PhotoTaken()
			}
			p.view.ShowMessage(r.msg)
		default:
			break drain
		}
	}
	st := p.rec.RecordingState()
	busy := p.stopBusy.Load()
	if !p.shown || st != p.lastState || busy != p.lastBusy {
		p.shown, p.lastState, p.lastBusy = true, st, busy
		p.view.SetControls(st, busy)
	}
}
