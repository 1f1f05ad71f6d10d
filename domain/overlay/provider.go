package overlay

import (
	"context"
	"fmt"
	"time"
)

// Policy selects how Fresh obtains the position.
type Policy int

const (
	// PolicyPerSnapshot fetches a new fix on every Fresh call.
	PolicyPerSnapshot Policy = iota
	// PolicyInterval serves the refresher's cached fix.
	PolicyInterval
)

func (p Policy) String() string {
	switch p {
	case PolicyPerSnapshot:
		return "per_snapshot"
	case PolicyInterval:
		return "interval"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ParsePolicy maps config strings onto a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "per_snapshot":
		return PolicyPerSnapshot, nil
	case "interval":
		return PolicyInterval, nil
	}
	return 0, fmt.Errorf("overlay: unknown location policy %q", s)
}

// Provider assembles a fresh Spec for every compose call.
type Provider struct {
	Labels    *Labels
	Logos     *LogoStore
	Refresher *Refresher

	policy     Policy
	requireFix bool
	now        func() time.Time
}

// ProviderOptions configures snapshot behaviour of a Provider.
type ProviderOptions struct {
	Policy     Policy
	RequireFix bool
	Now        func() time.Time
}

func NewProvider(labels *Labels, logos *LogoStore, refresher *Refresher, opts ProviderOptions) *Provider {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	if labels == nil {
		labels = NewLabels("", "", "")
	}
	return &Provider{
		Labels:     labels,
		Logos:      logos,
		Refresher:  refresher,
		policy:     opts.Policy,
		requireFix: opts.RequireFix,
		now:        now,
	}
}

// Policy returns the snapshot location policy.
func (p *Provider) Policy() Policy { return p.policy }

// Current builds a Spec from cached state only. It never blocks.
func (p *Provider) Current(now time.Time) Spec {
	var pos *Position
	if p.Refresher != nil {
		if last, ok := p.Refresher.Last(); ok {
			pos = &last
		}
	}
	return p.build(now, pos)
}

// Now builds a Spec stamped with the provider clock.
func (p *Provider) Now() Spec { return p.Current(p.now()) }

// Fresh builds a Spec for a one-shot capture. Under PolicyPerSnapshot it
// waits for a new fix bounded by ctx. When the fetch fails and a fix is
// required the result is ErrLocationUnavailable; otherwise the last-known fix
// is used, possibly none.
func (p *Provider) Fresh(ctx context.Context) (Spec, error) {
	if p.policy == PolicyInterval || p.Refresher == nil {
		spec := p.Current(p.now())
		if spec.Position == nil && p.requireFix {
			return Spec{}, ErrLocationUnavailable
		}
		return spec, nil
	}
	pos, err := p.Refresher.RefreshNow(ctx)
	if err != nil {
		if p.requireFix {
			return Spec{}, fmt.Errorf("overlay: fresh fix: %w: %w", ErrLocationUnavailable, err)
		}
		return p.Current(p.now()), nil
	}
	return p.build(p.now(), &pos), nil
}

func (p *Provider) build(now time.Time, pos *Position) Spec {
	product, farmer, caption := p.Labels.Snapshot()
	spec := Spec{
		ProductName: product,
		FarmerName:  farmer,
		Position:    pos,
		Timestamp:   now,
		Caption:     caption,
	}
	if p.Logos != nil {
		spec.Logo = p.Logos.Current()
	}
	return spec
}
