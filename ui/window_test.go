package ui

import (
	"testing"
	"time"
)

func TestFrameTick(t *testing.T) {
	cases := []struct {
		fps  float64
		want time.Duration
	}{
		{fps: 10, want: 100 * time.Millisecond},
		{fps: 25, want: 40 * time.Millisecond},
		{fps: 120, want: minTick},
		{fps: 0, want: previewInterval},
	}
	for _, tc := range cases {
		if got := frameTick(tc.fps); got != tc.want {
			t.Errorf("frameTick(%v) = %v, want %v", tc.fps, got, tc.want)
		}
	}
}
