package httpapi

import (
	"prefcore/internal/domain"
)

// ViewsResponse is the full merged-view listing.
type ViewsResponse struct {
	Count int                 `json:"count"`
	Views []domain.MergedView `json:"views"`
}

// WindowsResponse carries every rolling window for one symbol.
type WindowsResponse struct {
	Symbol        string                    `json:"symbol"`
	Concentration []ConcentrationWindowJSON `json:"concentration"`
	VWAP          []domain.VWAPWindow       `json:"vwap"`
}

// ConcentrationWindowJSON adds a human-readable horizon to the window.
type ConcentrationWindowJSON struct {
	Horizon          string  `json:"horizon"`
	Price            float64 `json:"price"`
	ConcentrationPct float64 `json:"concentrationPct"`
	PrintCount       int     `json:"printCount"`
	QualifyingCount  int     `json:"qualifyingCount"`
	TotalVolume      int64   `json:"totalVolume"`
	Valid            bool    `json:"valid"`
}

// QueueEntryJSON is one live queue slot with its age spelled out.
type QueueEntryJSON struct {
	Symbol     string           `json:"symbol"`
	Plan       domain.OrderPlan `json:"plan"`
	Position   int              `json:"position"`
	AgeSeconds float64          `json:"ageSeconds"`
}

// QueueResponse lists the live order queue in queue order.
type QueueResponse struct {
	Count   int              `json:"count"`
	Entries []QueueEntryJSON `json:"entries"`
}

// SubmitRequest asks for a queued plan to be approved and routed.
type SubmitRequest struct {
	Symbol     string `json:"symbol"`
	ApprovedBy string `json:"approvedBy"`
}

// SubmitResponse reports what the execution router did.
type SubmitResponse struct {
	Symbol  string          `json:"symbol"`
	Mode    domain.ExecMode `json:"mode"`
	Skipped bool            `json:"skipped"`
	OrderID string          `json:"orderId,omitempty"`
}

func convertConcentration(w domain.ConcentrationWindow) ConcentrationWindowJSON {
	return ConcentrationWindowJSON{
		Horizon:          w.Horizon.String(),
		Price:            w.Price,
		ConcentrationPct: w.ConcentrationPct,
		PrintCount:       w.PrintCount,
		QualifyingCount:  w.QualifyingCount,
		TotalVolume:      w.TotalVolume,
		Valid:            w.Valid,
	}
}

func convertQueueEntry(e domain.QueueEntry, position int, ageSeconds float64) QueueEntryJSON {
	return QueueEntryJSON{
		Symbol:     e.Symbol,
		Plan:       e.Plan,
		Position:   position,
		AgeSeconds: ageSeconds,
	}
}
