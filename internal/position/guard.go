package position

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"prefcore/internal/domain"
)

// VenueErrorPolicy selects guard behavior when the account fetch failed.
type VenueErrorPolicy string

const (
	// PolicySkip leaves the action set untouched and marks the guard unknown.
	PolicySkip VenueErrorPolicy = "skip"
	// PolicyBlock removes every action until a fetch succeeds.
	PolicyBlock VenueErrorPolicy = "block"
)

// GuardConfig holds the guard limits.
type GuardConfig struct {
	ExposureDivisor  int64            // MAXALW = avg daily volume / this
	DailyAddCap      int64            // max net adds per session
	ShortPaceCap     int64            // max absolute net change per horizon
	ShortPaceHorizon time.Duration    // e.g. 3h
	OnVenueError     VenueErrorPolicy // skip | block
}

// qtySample is one observed current quantity, for the short-horizon pace
// check.
type qtySample struct {
	qty int64
	at  time.Time
}

// GuardEngine evaluates every symbol's exposure against the configured caps.
// Each failed check removes the corresponding action from the allowed set;
// the guard never submits or cancels anything itself.
type GuardEngine struct {
	cfg GuardConfig
	now func() time.Time

	mu      sync.Mutex
	samples map[string][]qtySample
}

// NewGuardEngine creates a GuardEngine.
func NewGuardEngine(cfg GuardConfig) *GuardEngine {
	return &GuardEngine{cfg: cfg, now: time.Now, samples: make(map[string][]qtySample)}
}

// Observe records a symbol's current quantity for the pace history. Called
// once per cycle after the account fetch.
func (g *GuardEngine) Observe(symbol string, currentQty int64) {
	sym := strings.ToUpper(symbol)
	now := g.now()
	cutoff := now.Add(-g.cfg.ShortPaceHorizon)

	g.mu.Lock()
	defer g.mu.Unlock()

	h := append(g.samples[sym], qtySample{qty: currentQty, at: now})
	for len(h) > 0 && h[0].at.Before(cutoff) {
		h = h[1:]
	}
	g.samples[sym] = h
}

func absQty(q int64) int64 {
	if q < 0 {
		return -q
	}
	return q
}

// growthAction is the action that would move a position further from flat.
func growthAction(qty int64) domain.ActionKind {
	if qty < 0 {
		return domain.ActionSell
	}
	return domain.ActionBuy
}

// shortPaceDelta is the net quantity change over the retained horizon.
func (g *GuardEngine) shortPaceDelta(symbol string) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	h := g.samples[strings.ToUpper(symbol)]
	if len(h) < 2 {
		return 0
	}
	return h[len(h)-1].qty - h[0].qty
}

// Evaluate runs every check for one symbol. venueOK is false when this
// cycle's account fetch failed; the configured policy then decides between
// skipping the tightening and hard-blocking.
func (g *GuardEngine) Evaluate(ref domain.ReferenceRecord, snap domain.PositionSnapshot, venueOK bool) domain.GuardResult {
	res := domain.GuardResult{
		Symbol:  snap.Symbol,
		Allowed: domain.AllActions,
	}
	if ref.AvgDailyVolume > 0 && g.cfg.ExposureDivisor > 0 {
		res.MaxAllowed = ref.AvgDailyVolume / g.cfg.ExposureDivisor
	}

	if !venueOK {
		if g.cfg.OnVenueError == PolicyBlock {
			res.Status = domain.GuardBlocked
			res.Allowed = 0
			res.Reason = "account fetch failed, blocking until venue recovers"
			return res
		}
		res.Status = domain.GuardUnknown
		res.Reason = "account fetch failed, tightening skipped"
		return res
	}

	var reasons []string

	// The cap applies to exposure in either direction: a long over the cap
	// loses buying, a short over the cap loses selling.
	if res.MaxAllowed > 0 {
		if absQty(snap.CurrentQty) > res.MaxAllowed {
			res.CurrentExceeded = true
			res.Allowed = res.Allowed.Without(growthAction(snap.CurrentQty))
			reasons = append(reasons, fmt.Sprintf("current %d over cap %d", snap.CurrentQty, res.MaxAllowed))
		}
		if absQty(snap.PotentialQty) > res.MaxAllowed {
			res.PotentialExceeded = true
			res.Allowed = res.Allowed.Without(growthAction(snap.PotentialQty))
			reasons = append(reasons, fmt.Sprintf("potential %d over cap %d", snap.PotentialQty, res.MaxAllowed))
		}
	}

	if g.cfg.DailyAddCap > 0 && snap.CurrentQty-snap.StartOfDayQty >= g.cfg.DailyAddCap {
		res.DailyPaceExceeded = true
		res.Allowed = res.Allowed.Without(domain.ActionBuy)
		reasons = append(reasons, fmt.Sprintf("added %d today, cap %d", snap.CurrentQty-snap.StartOfDayQty, g.cfg.DailyAddCap))
	}

	if g.cfg.ShortPaceCap > 0 {
		delta := g.shortPaceDelta(snap.Symbol)
		if delta >= g.cfg.ShortPaceCap {
			res.ShortPaceExceeded = true
			res.Allowed = res.Allowed.Without(domain.ActionBuy)
			reasons = append(reasons, fmt.Sprintf("bought %d inside %s, cap %d", delta, g.cfg.ShortPaceHorizon, g.cfg.ShortPaceCap))
		} else if -delta >= g.cfg.ShortPaceCap {
			res.ShortPaceExceeded = true
			res.Allowed = res.Allowed.Without(domain.ActionSell)
			reasons = append(reasons, fmt.Sprintf("sold %d inside %s, cap %d", -delta, g.cfg.ShortPaceHorizon, g.cfg.ShortPaceCap))
		}
	}

	if snap.OpenBuyQty > 0 && snap.OpenSellQty == 0 {
		res.CrossDirBlocked = true
		res.Allowed = res.Allowed.Without(domain.ActionSell)
		reasons = append(reasons, fmt.Sprintf("%d open buy qty blocks selling", snap.OpenBuyQty))
	}
	if snap.OpenSellQty > 0 && snap.OpenBuyQty == 0 {
		res.CrossDirBlocked = true
		res.Allowed = res.Allowed.Without(domain.ActionBuy)
		reasons = append(reasons, fmt.Sprintf("%d open sell qty blocks buying", snap.OpenSellQty))
	}

	switch {
	case res.Allowed == domain.AllActions:
		res.Status = domain.GuardClear
		res.Reason = "all checks passed"
	case res.Allowed == 0:
		res.Status = domain.GuardBlocked
		res.Reason = strings.Join(reasons, "; ")
	default:
		res.Status = domain.GuardTightened
		res.Reason = strings.Join(reasons, "; ")
	}
	return res
}
