package view

import (
	"fmt"
	"time"

	//lint:ignore ST1001 Dot import for concise Tk widget DSL.
	. "modernc.org/tk9.0"
)

// SessionStats shows the take and total recorded durations and the photo count.
type SessionStats interface {
	SetTake(d time.Duration)
	SetTotal(d time.Duration)
	SetPhotos(n int)
}

type sessionStats struct {
	takeLbl   *LabelWidget
	totalLbl  *LabelWidget
	photosLbl *LabelWidget
}

// NewSessionStats creates the three labels in one grid row starting at
// (row, startCol). If parent is nil, labels are positioned relative to the App root.
func NewSessionStats(parent *FrameWidget, row, startCol int) SessionStats {
	s := &sessionStats{sessionLabel(), sessionLabel(), sessionLabel()}
	for i, l := range []*LabelWidget{s.takeLbl, s.totalLbl, s.photosLbl} {
		if parent != nil {
			Grid(l, In(parent), Row(row), Column(startCol+i), Sticky("w"), Padx("0.2m"))
		} else {
			Grid(l, Row(row), Column(startCol+i), Sticky("w"), Padx("0.2m"))
		}
	}
	s.SetTake(0)
	s.SetTotal(0)
	s.SetPhotos(0)
	return s
}

func sessionLabel() *LabelWidget { return Label(Width(14)) }

func clock(d time.Duration) string {
	seconds := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// SetTake updates the current take duration.
func (s *sessionStats) SetTake(d time.Duration) {
	if s == nil || s.takeLbl == nil {
		return
	}
	s.takeLbl.Configure(Txt("Take: " + clock(d)))
}

// SetTotal updates the total recorded duration.
func (s *sessionStats) SetTotal(d time.Duration) {
	if s == nil || s.totalLbl == nil {
		return
	}
	s.totalLbl.Configure(Txt("Total: " + clock(d)))
}

// SetPhotos updates the saved photo count.
func (s *sessionStats) SetPhotos(n int) {
	if s == nil || s.photosLbl == nil {
		return
	}
	s.photosLbl.Configure(Txt(fmt.Sprintf("Photos: %d", n)))
}
