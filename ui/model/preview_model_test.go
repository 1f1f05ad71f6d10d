package model

import "testing"

func TestPreviewModel_Clamps(t *testing.T) {
	var m PreviewModel
	if m.Zoom() != 1 {
		t.Fatalf("zero value should be 1x, got %v", m.Zoom())
	}
	if z := m.Step(1); z != 1.25 {
		t.Fatalf("expected 1.25, got %v", z)
	}
	if z := m.Step(-10); z != MinVisualZoom {
		t.Fatalf("expected clamp to min, got %v", z)
	}
	if z := m.SetZoom(9); z != MaxVisualZoom {
		t.Fatalf("expected clamp to max, got %v", z)
	}
}
