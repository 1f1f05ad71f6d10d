package view

import (
	"log/slog"
	"strings"

	"github.com/soocke/fieldcam-go/config"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// LabelsPanel is the overlay label form: product, farmer, caption and logo
// file. Apply pushes the edits into the live overlay and persists them.
type LabelsPanel interface {
	Build(startRow int) (endRow int) // constructs widgets starting at startRow, returns next free row
	ApplyChanges()
}

type labelsPanel struct {
	cfg      *config.Config
	cfgPath  string
	logger   *slog.Logger
	onApply  func(*config.Config)
	applyBtn *ButtonWidget
	widgets  map[string]*TextWidget // keyed by internal field id
}

// NewLabelsPanel creates the view bound to cfg. onApply receives the
// validated copy after every apply.
func NewLabelsPanel(cfg *config.Config, cfgPath string, logger *slog.Logger, onApply func(*config.Config)) LabelsPanel {
	return &labelsPanel{cfg: cfg, cfgPath: cfgPath, logger: logger, onApply: onApply, widgets: make(map[string]*TextWidget)}
}

func (v *labelsPanel) Build(startRow int) (row int) {
	c := v.cfg
	row = startRow
	makeRow := func(id, label, value string) {
		lbl := Label(Txt(label), Anchor("w"))
		Grid(lbl, Row(row), Column(0), Sticky("w"), Padx("0.4m"), Pady("0.15m"))
		w := Text(Height(1), Width(32))
		Grid(w, Row(row), Column(1), Columnspan(3), Sticky("we"), Padx("0.4m"), Pady("0.15m"))
		w.Delete("1.0", END)
		w.Insert("1.0", value)
		v.widgets[id] = w
		row++
	}
	makeRow("product", "Product", c.ProductName)
	makeRow("farmer", "Name", c.FarmerName)
	makeRow("caption", "Caption", c.Caption)
	makeRow("logo", "Logo file", c.LogoPath)
	v.applyBtn = Button(Txt("Apply Labels"), Command(func() { v.ApplyChanges() }))
	Grid(v.applyBtn, Row(row), Column(0), Columnspan(4), Sticky("we"), Padx("0.4m"), Pady("0.3m"))
	row++
	return row
}

func (v *labelsPanel) text(id string) (string, bool) {
	w := v.widgets[id]
	if w == nil {
		return "", false
	}
	return strings.TrimSpace(strings.Join(w.Get("1.0", END), "")), true
}

func (v *labelsPanel) ApplyChanges() {
	if v.cfg == nil {
		return
	}
	cfg := *v.cfg // copy
	for id, dst := range map[string]*string{
		"product": &cfg.ProductName,
		"farmer":  &cfg.FarmerName,
		"caption": &cfg.Caption,
		"logo":    &cfg.LogoPath,
	} {
		if s, ok := v.text(id); ok {
			*dst = s
		}
	}
	if err := cfg.Validate(); err != nil {
		if v.logger != nil {
			v.logger.Warn("labels rejected", "error", err)
		}
		return
	}
	*v.cfg = cfg
	if v.onApply != nil {
		v.onApply(&cfg)
	}
	if v.cfgPath == "" {
		return
	}
	if err := v.cfg.Save(v.cfgPath); err != nil {
		if v.logger != nil {
			v.logger.Error("config save failed", "error", err)
		}
	} else if v.logger != nil {
		v.logger.Info("config saved", "path", v.cfgPath)
	}
}
