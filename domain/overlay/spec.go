package overlay

import (
	"errors"
	"fmt"
	"image"
	"math"
	"time"
)

// ErrLocationUnavailable reports that no position fix could be obtained.
var ErrLocationUnavailable = errors.New("overlay: location unavailable")

// TimestampLayout is the footer timestamp format.
const TimestampLayout = "2006-01-02 15:04:05"

// Position is one geolocation fix.
type Position struct {
	Lat      float64
	Lon      float64
	Accuracy float64 // metres, 0 when unknown
	FixedAt  time.Time
}

// Valid reports whether the coordinates are finite and in range.
func (p Position) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// Spec is everything drawn on top of one frame. A Spec is built for a single
// compose call and must not be modified afterwards.
type Spec struct {
	ProductName string
	FarmerName  string
	Position    *Position
	Timestamp   time.Time
	Logo        image.Image
	Caption     string
}

// FooterLines returns the footer text block, top line first.
func (s Spec) FooterLines() []string {
	loc := "Lat: --, Lon: --"
	if s.Position != nil {
		loc = fmt.Sprintf("Lat: %.5f, Lon: %.5f", s.Position.Lat, s.Position.Lon)
	}
	return []string{
		"Product: " + s.ProductName,
		"Name: " + s.FarmerName,
		loc,
		"Timestamp: " + s.Timestamp.Format(TimestampLayout),
	}
}
