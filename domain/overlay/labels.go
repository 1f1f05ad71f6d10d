package overlay

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	DefaultProductName = "Product"
	DefaultFarmerName  = "Name"
	DefaultCaption     = "VHUMI.IN"
	maxLabelRunes      = 64
)

// Labels holds the user-editable text fields. Writers are UI handlers and the
// config watcher; readers are compose calls.
type Labels struct {
	mu      sync.RWMutex
	product string
	farmer  string
	caption string
}

func NewLabels(product, farmer, caption string) *Labels {
	l := &Labels{}
	l.Set(product, farmer)
	l.SetCaption(caption)
	return l
}

// Set replaces both names. Blank values fall back to the defaults at read time.
func (l *Labels) Set(product, farmer string) {
	product, farmer = Normalize(product), Normalize(farmer)
	l.mu.Lock()
	l.product, l.farmer = product, farmer
	l.mu.Unlock()
}

func (l *Labels) SetCaption(caption string) {
	caption = Normalize(caption)
	l.mu.Lock()
	l.caption = caption
	l.mu.Unlock()
}

// Snapshot returns the effective product, farmer and caption text.
func (l *Labels) Snapshot() (product, farmer, caption string) {
	l.mu.RLock()
	product, farmer, caption = l.product, l.farmer, l.caption
	l.mu.RUnlock()
	if product == "" {
		product = DefaultProductName
	}
	if farmer == "" {
		farmer = DefaultFarmerName
	}
	return product, farmer, caption
}

// Normalize folds compatibility forms, strips control characters and trims
// the label so it renders on one footer line.
func Normalize(s string) string {
	t := transform.Chain(norm.NFKC, runes.Remove(runes.In(unicode.Cc)))
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	out = strings.TrimSpace(out)
	if r := []rune(out); len(r) > maxLabelRunes {
		out = string(r[:maxLabelRunes])
	}
	return out
}
