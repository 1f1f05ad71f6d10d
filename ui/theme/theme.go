package theme

// Styles for the capture window on top of the azure base theme. Dark mode
// is meant for night or low light, where a bright window would dazzle.

import (
	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// Colors is the set one mode paints with.
type Colors struct {
	Bg      string
	Surface string
	Record  string // record button, recording state
	Stop    string
	Accent  string // zoom readout
	OnColor string // text on colored buttons and labels
}

var (
	light = Colors{
		Bg:      "#f7f9fb",
		Surface: "#ffffff",
		Record:  "#dc2626",
		Stop:    "#334155",
		Accent:  "#2563eb",
		OnColor: "white",
	}
	dark = Colors{
		Bg:      "#0f172a",
		Surface: "#1e293b",
		Record:  "#ef4444",
		Stop:    "#64748b",
		Accent:  "#60a5fa",
		OnColor: "#f1f5f9",
	}
)

// Style names used with Style(...).
const (
	StylePrimaryButton = "record.TButton"
	StyleDangerButton  = "stop.TButton"
	StyleAccentLabel   = "zoom.TLabel"
	StyleStateLabel    = "state.TLabel"
)

var darkMode bool

// Current returns the colors of the active mode.
func Current() Colors { return colorsFor(darkMode) }

func colorsFor(isDark bool) Colors {
	if isDark {
		return dark
	}
	return light
}

// InitStyles applies the styles for the current mode.
func InitStyles() { apply(Current()) }

// ToggleDark flips dark mode, reapplies the styles and returns the new mode.
func ToggleDark() bool {
	darkMode = !darkMode
	apply(Current())
	return darkMode
}

func apply(p Colors) {
	_ = ActivateTheme("azure light")
	App.Configure(Background(p.Bg))

	StyleConfigure(StylePrimaryButton,
		Background(p.Record),
		Foreground(p.OnColor),
		Padding("4p 3p"),
		Borderwidth(1),
		Relief("ridge"),
	)
	StyleConfigure(StyleDangerButton,
		Background(p.Stop),
		Foreground(p.OnColor),
		Padding("4p 3p"),
		Borderwidth(1),
		Relief("ridge"),
	)
	StyleConfigure(StyleAccentLabel,
		Foreground(p.Accent),
		Background(p.Surface),
		Padding("2p 1p"),
	)
	StyleConfigure(StyleStateLabel,
		Foreground(p.OnColor),
		Background(p.Record),
		Padding("4p 2p"),
		Borderwidth(1),
		Relief("groove"),
	)
}
