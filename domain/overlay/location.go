package overlay

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// LocationSource produces a position fix. Locate may block until ctx ends.
type LocationSource interface {
	Locate(ctx context.Context) (Position, error)
}

// StaticLocation always reports the same coordinates.
type StaticLocation struct {
	Lat float64
	Lon float64
}

func (s StaticLocation) Locate(ctx context.Context) (Position, error) {
	if err := ctx.Err(); err != nil {
		return Position{}, err
	}
	p := Position{Lat: s.Lat, Lon: s.Lon, FixedAt: time.Now()}
	if !p.Valid() {
		return Position{}, fmt.Errorf("static %v,%v out of range: %w", s.Lat, s.Lon, ErrLocationUnavailable)
	}
	return p, nil
}

// FailingLocation never produces a fix. Delay simulates a slow receiver.
type FailingLocation struct {
	Delay time.Duration
}

func (f FailingLocation) Locate(ctx context.Context) (Position, error) {
	if f.Delay > 0 {
		t := time.NewTimer(f.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return Position{}, ctx.Err()
		case <-t.C:
		}
	}
	return Position{}, ErrLocationUnavailable
}

// NMEALocation reads GGA/RMC sentences from a GPS serial device or log file
// and returns the first valid fix.
type NMEALocation struct {
	Path string
	Open func(path string) (io.ReadCloser, error)
}

func (n NMEALocation) Locate(ctx context.Context) (Position, error) {
	open := n.Open
	if open == nil {
		open = func(p string) (io.ReadCloser, error) { return os.Open(p) }
	}
	rc, err := open(n.Path)
	if err != nil {
		return Position{}, fmt.Errorf("nmea open %s: %v: %w", n.Path, err, ErrLocationUnavailable)
	}
	type result struct {
		pos Position
		err error
	}
	out := make(chan result, 1)
	go func() {
		pos, err := ScanNMEA(rc)
		out <- result{pos, err}
	}()
	select {
	case <-ctx.Done():
		// Closing unblocks the scanner on tty reads.
		rc.Close()
		<-out
		return Position{}, ctx.Err()
	case r := <-out:
		rc.Close()
		return r.pos, r.err
	}
}

// ScanNMEA returns the first valid fix in r.
func ScanNMEA(r io.Reader) (Position, error) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		pos, ok := ParseNMEA(sc.Text())
		if ok {
			return pos, nil
		}
	}
	if err := sc.Err(); err != nil {
		return Position{}, fmt.Errorf("nmea read: %v: %w", err, ErrLocationUnavailable)
	}
	return Position{}, ErrLocationUnavailable
}

// ParseNMEA decodes one $xxGGA or $xxRMC sentence carrying a fix.
func ParseNMEA(line string) (Position, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") {
		return Position{}, false
	}
	body := line[1:]
	if i := strings.IndexByte(body, '*'); i >= 0 {
		want, err := strconv.ParseUint(body[i+1:], 16, 8)
		if err != nil || nmeaChecksum(body[:i]) != byte(want) {
			return Position{}, false
		}
		body = body[:i]
	}
	f := strings.Split(body, ",")
	if len(f[0]) < 5 {
		return Position{}, false
	}
	var latF, latH, lonF, lonH string
	switch f[0][2:] {
	case "GGA":
		// quality 0 means no fix
		if len(f) < 7 || f[6] == "" || f[6] == "0" {
			return Position{}, false
		}
		latF, latH, lonF, lonH = f[2], f[3], f[4], f[5]
	case "RMC":
		if len(f) < 7 || f[2] != "A" {
			return Position{}, false
		}
		latF, latH, lonF, lonH = f[3], f[4], f[5], f[6]
	default:
		return Position{}, false
	}
	lat, ok1 := nmeaDegrees(latF, latH, 2)
	lon, ok2 := nmeaDegrees(lonF, lonH, 3)
	if !ok1 || !ok2 {
		return Position{}, false
	}
	p := Position{Lat: lat, Lon: lon, FixedAt: time.Now()}
	return p, p.Valid()
}

func nmeaChecksum(s string) byte {
	var c byte
	for i := 0; i < len(s); i++ {
		c ^= s[i]
	}
	return c
}

// nmeaDegrees converts ddmm.mmmm / dddmm.mmmm with hemisphere to decimal degrees.
func nmeaDegrees(v, hemi string, degDigits int) (float64, bool) {
	if len(v) <= degDigits {
		return 0, false
	}
	deg, err := strconv.ParseFloat(v[:degDigits], 64)
	if err != nil {
		return 0, false
	}
	min, err := strconv.ParseFloat(v[degDigits:], 64)
	if err != nil || min >= 60 {
		return 0, false
	}
	d := deg + min/60
	switch hemi {
	case "N", "E":
	case "S", "W":
		d = -d
	default:
		return 0, false
	}
	return d, true
}
