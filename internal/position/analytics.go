package position

import (
	"fmt"

	"prefcore/internal/domain"
)

// ExposureRatio is potential quantity over the exposure cap. Zero cap yields
// zero ratio.
func ExposureRatio(snap domain.PositionSnapshot, maxAllowed int64) float64 {
	if maxAllowed <= 0 {
		return 0
	}
	return float64(snap.PotentialQty) / float64(maxAllowed)
}

// Mode classification thresholds on the exposure ratio.
const (
	accumulateBelow = 0.5
	holdBelow       = 1.0
)

// ClassifyMode maps the guard outcome and exposure ratio to an exposure
// mode. A blocked guard freezes the symbol regardless of exposure.
func ClassifyMode(guard domain.GuardResult, snap domain.PositionSnapshot) domain.ExposureMode {
	if guard.Status == domain.GuardBlocked {
		return domain.ModeFrozen
	}
	ratio := ExposureRatio(snap, guard.MaxAllowed)
	switch {
	case ratio < accumulateBelow:
		return domain.ModeAccumulate
	case ratio < holdBelow:
		return domain.ModeHold
	default:
		return domain.ModeReduce
	}
}

// InterpretSignal labels the combined deviation signals for display. A
// positive deviation means the last trade is above the window reference.
func InterpretSignal(concDev, vwapDev float64, concOK, vwapOK bool) string {
	switch {
	case !concOK && !vwapOK:
		return "no signal"
	case concOK && vwapOK && concDev > 0 && vwapDev > 0:
		return fmt.Sprintf("rich on both windows (+%.2f/+%.2f)", concDev, vwapDev)
	case concOK && vwapOK && concDev < 0 && vwapDev < 0:
		return fmt.Sprintf("cheap on both windows (%.2f/%.2f)", concDev, vwapDev)
	default:
		return "mixed"
	}
}
