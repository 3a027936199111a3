// Package domain defines the shared types flowing through the decision core:
// live market data, reference data, derived scores, rolling-window analytics,
// and the per-cycle decision artifacts (intents, plans, queue entries, guard
// and gate results).
package domain

import "time"

// ---------------------------------------------------------------------------
// Enums
// ---------------------------------------------------------------------------

// Side is the order side of a plan or open order.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// ActionKind is a discrete action the guard can permit or remove.
type ActionKind uint8

const (
	ActionBuy ActionKind = 1 << iota
	ActionSell
)

// ActionSet is a bitmask of permitted actions.
type ActionSet uint8

// AllActions permits both buying and selling.
const AllActions = ActionSet(ActionBuy | ActionSell)

// Has reports whether the action is permitted.
func (s ActionSet) Has(a ActionKind) bool { return s&ActionSet(a) != 0 }

// Without returns the set with the given action removed.
func (s ActionSet) Without(a ActionKind) ActionSet { return s &^ ActionSet(a) }

// ComputeStatus is the tri-state result of a derived computation. Collecting
// means required inputs are not yet bootstrapped; Failed means the last
// attempt errored and the previous record (if any) is being retained. A
// Computed zero is always distinguishable from a missing value.
type ComputeStatus uint8

const (
	StatusCollecting ComputeStatus = iota
	StatusComputed
	StatusFailed
)

func (s ComputeStatus) String() string {
	switch s {
	case StatusComputed:
		return "computed"
	case StatusFailed:
		return "failed"
	default:
		return "collecting"
	}
}

// SymbolState classifies a symbol's tradability for the current cycle.
type SymbolState string

const (
	StateIdle          SymbolState = "idle"       // no live data yet
	StateCollecting    SymbolState = "collecting" // live data present, prev close or scores missing
	StateTradeable     SymbolState = "tradeable"
	StateBlockedSpread SymbolState = "blocked_spread" // spread above the configured ceiling
	StateBlockedStale  SymbolState = "blocked_stale"  // last update older than the staleness window
)

// IntentKind is the discrete trading disposition for a symbol, prior to
// concrete sizing.
type IntentKind string

const (
	IntentWait      IntentKind = "wait"
	IntentBuyBid    IntentKind = "buy_bid"
	IntentBuyFront  IntentKind = "buy_front"
	IntentSellAsk   IntentKind = "sell_ask"
	IntentSellFront IntentKind = "sell_front"
)

// Actionable reports whether the intent proposes an order at all.
func (k IntentKind) Actionable() bool { return k != IntentWait && k != "" }

// Side returns the order side an actionable intent maps to.
func (k IntentKind) Side() Side {
	switch k {
	case IntentBuyBid, IntentBuyFront:
		return SideBuy
	case IntentSellAsk, IntentSellFront:
		return SideSell
	}
	return ""
}

// GuardStatus summarises a guard evaluation.
type GuardStatus string

const (
	GuardClear     GuardStatus = "clear"
	GuardTightened GuardStatus = "tightened" // one or more actions removed
	GuardBlocked   GuardStatus = "blocked"   // no actions permitted
	GuardUnknown   GuardStatus = "unknown"   // venue fetch failed, tightening skipped
)

// ExposureMode classifies how aggressively a symbol may be traded given its
// current exposure relative to the cap.
type ExposureMode string

const (
	ModeAccumulate ExposureMode = "accumulate"
	ModeHold       ExposureMode = "hold"
	ModeReduce     ExposureMode = "reduce"
	ModeFrozen     ExposureMode = "frozen"
)

// ExecMode selects between previewing and actually routing orders.
type ExecMode string

const (
	ExecPreview ExecMode = "preview"
	ExecLive    ExecMode = "live"
)

// ---------------------------------------------------------------------------
// Score variants
// ---------------------------------------------------------------------------

// Variant identifies one of the six passive order-side pricing variants.
type Variant int

const (
	VariantBidBuy Variant = iota
	VariantFrontBuy
	VariantAskBuy
	VariantAskSell
	VariantFrontSell
	VariantBidSell

	NumVariants = 6
)

var variantNames = [NumVariants]string{
	"bid_buy", "front_buy", "ask_buy", "ask_sell", "front_sell", "bid_sell",
}

func (v Variant) String() string {
	if v < 0 || v >= NumVariants {
		return "unknown"
	}
	return variantNames[v]
}

// Side returns which order side the variant prices.
func (v Variant) Side() Side {
	if v <= VariantAskBuy {
		return SideBuy
	}
	return SideSell
}

// BuyVariants and SellVariants enumerate the variants per side.
var (
	BuyVariants  = []Variant{VariantBidBuy, VariantFrontBuy, VariantAskBuy}
	SellVariants = []Variant{VariantAskSell, VariantFrontSell, VariantBidSell}
)

// ---------------------------------------------------------------------------
// Market data inputs
// ---------------------------------------------------------------------------

// Quote is a live top-of-book update. It carries no previous close; that is
// bootstrapped separately per symbol.
type Quote struct {
	Symbol    string
	Bid       float64
	Ask       float64
	Last      float64
	Volume    int64
	Timestamp time.Time
}

// TradePrint is a single trade print. Prints are ephemeral: they live only
// inside the bounded per-symbol ring buffers of the aggregation engines.
type TradePrint struct {
	Symbol    string
	Price     float64
	Size      int64
	Timestamp time.Time
	Venue     string
}

// ReferenceRecord holds the static per-symbol attributes loaded at startup.
// Immutable per session except via an explicit reload.
type ReferenceRecord struct {
	Symbol           string
	BenchmarkGroup   string  // selects the tracking-basket formula
	FundamentalScore float64 // e.g. 1000-based quality score
	AvgDailyVolume   int64
	GroupKey         string // peer group for rank normalisation
}

// LiveSnapshot is the mutable per-symbol quote state. PrevClose is set once
// by the bootstrap path and never overwritten from the live stream.
type LiveSnapshot struct {
	Symbol       string
	Bid          float64
	Ask          float64
	Last         float64
	Spread       float64
	PrevClose    float64
	HasPrevClose bool
	Volume       int64
	UpdatedAt    time.Time
}

// ---------------------------------------------------------------------------
// Derived records
// ---------------------------------------------------------------------------

// BenchmarkResult is the tracking-basket delta for a symbol's benchmark
// group. Status is Collecting until every contributing basket instrument has
// a bootstrapped previous close; Chg/ChgPct are only meaningful when
// Status == StatusComputed.
type BenchmarkResult struct {
	Chg    float64
	ChgPct float64
	Status ComputeStatus
}

// DerivedScoreRecord caches the per-variant passive reference prices,
// cheap/expensive deltas, and composite scores for one symbol.
type DerivedScoreRecord struct {
	Symbol       string
	RefPrices    [NumVariants]float64
	Deltas       [NumVariants]float64
	Composites   [NumVariants]float64
	BenchmarkChg float64
	Status       ComputeStatus
	UpdatedAt    time.Time
}

// RankRecord holds group-relative normalisation of the composite aggregates.
// Percentiles are in [0,100]; RawBuy/RawSell are 1-based positions within the
// peer group (1 = best for the respective side).
type RankRecord struct {
	Symbol   string
	GroupKey string
	BuyAgg   float64
	SellAgg  float64
	RawBuy   int
	RawSell  int
	BuyPct   float64
	SellPct  float64
	Status   ComputeStatus
}

// ConcentrationWindow is the rolling trade-concentration analysis for one
// horizon. Valid is false for an empty window; the numeric fields are then
// meaningless rather than zero-computed.
type ConcentrationWindow struct {
	Horizon          time.Duration
	Price            float64 // volume-weighted modal price
	ConcentrationPct float64 // modal volume share of total window volume
	PrintCount       int     // all prints in the window
	QualifyingCount  int     // prints at the modal price
	TotalVolume      int64
	Valid            bool
	ComputedAt       time.Time
}

// VWAPWindow is a day-horizon VWAP excluding outlier-size prints.
type VWAPWindow struct {
	Days          int
	VWAP          float64
	Volume        int64
	PrintCount    int
	ExcludedCount int // prints dropped by the outlier-size filter
	Valid         bool
}

// ---------------------------------------------------------------------------
// Position and guard
// ---------------------------------------------------------------------------

// BrokerPosition is one held position as reported by the venue.
type BrokerPosition struct {
	Symbol string
	Qty    int64 // signed, negative for short
}

// BrokerOrder is one open order as reported by the venue.
type BrokerOrder struct {
	Symbol string
	Side   Side
	Qty    int64 // unfilled quantity
}

// AccountState is the venue's positions and open orders, fetched once per
// cycle and shared across all symbols.
type AccountState struct {
	Positions []BrokerPosition
	Orders    []BrokerOrder
	FetchedAt time.Time
}

// PositionSnapshot is the per-symbol exposure picture derived from the
// once-per-cycle venue fetch. PotentialQty = CurrentQty + OpenBuyQty −
// OpenSellQty, always.
type PositionSnapshot struct {
	Symbol        string
	StartOfDayQty int64
	CurrentQty    int64
	OpenBuyQty    int64
	OpenSellQty   int64
	PotentialQty  int64
}

// GuardResult is the outcome of a position-guard evaluation.
type GuardResult struct {
	Symbol            string
	Status            GuardStatus
	MaxAllowed        int64 // MAXALW = avg daily volume / exposure divisor
	CurrentExceeded   bool
	PotentialExceeded bool
	DailyPaceExceeded bool
	ShortPaceExceeded bool
	CrossDirBlocked   bool
	Allowed           ActionSet
	Reason            string
}

// ---------------------------------------------------------------------------
// Decision artifacts (per-cycle, never persisted beyond the latest value)
// ---------------------------------------------------------------------------

// Intent is the discrete trading disposition derived from state and scores.
type Intent struct {
	Symbol string
	Kind   IntentKind
	Reason string
}

// OrderPlan is a concrete sized proposal. Actionable is false when the plan
// is a placeholder (wait, or confirmation signal missing).
type OrderPlan struct {
	Symbol     string
	Actionable bool
	Side       Side
	Price      float64
	Size       int64
	Reason     string
}

// QueueEntry is a live queue slot. At most one exists per symbol.
type QueueEntry struct {
	Symbol     string
	Plan       OrderPlan
	EnqueuedAt time.Time
	Seq        int64
}

// EnqueueResult reports the outcome of an enqueue call.
type EnqueueResult struct {
	Position int           // 1-based position in the queue
	Age      time.Duration // age of the entry occupying the slot
	Replaced bool          // true when an existing entry was replaced
}

// GateResult is the structured allow/block outcome of the order gate. A
// silent allow is forbidden: Reason is always populated.
type GateResult struct {
	Symbol  string
	Allowed bool
	Reason  string
}

// ApprovedIntent is the externally-approved execution record. The gate never
// submits on its own; only an ApprovedIntent may reach the execution router.
type ApprovedIntent struct {
	Symbol     string
	Plan       OrderPlan
	ApprovedBy string
	ApprovedAt time.Time
}

// ExecutionResult reports what the execution router did with an approved
// intent. In preview mode every call is reported as skipped.
type ExecutionResult struct {
	Symbol  string
	Mode    ExecMode
	Skipped bool
	OrderID string
}

// ---------------------------------------------------------------------------
// Merged view
// ---------------------------------------------------------------------------

// MergedView is the single per-symbol contract all consumers depend on:
// reference + live + derived + decision + risk fields for one symbol as of
// the latest completed cycle.
type MergedView struct {
	Symbol    string          `json:"symbol"`
	Reference ReferenceRecord `json:"reference"`
	Live      LiveSnapshot    `json:"live"`
	Benchmark BenchmarkResult `json:"benchmark"`

	Scores DerivedScoreRecord `json:"scores"`
	Rank   RankRecord         `json:"rank"`

	Concentration ConcentrationWindow `json:"concentration"` // most recent horizon
	ConcDeviation float64             `json:"conc_deviation"`
	VWAPDeviation float64             `json:"vwap_deviation"`
	Signal        string              `json:"signal"` // interpreted deviation label

	State       SymbolState `json:"state"`
	StateReason string      `json:"state_reason"`
	Transition  string      `json:"transition,omitempty"`

	Intent Intent     `json:"intent"`
	Plan   OrderPlan  `json:"plan"`
	Gate   GateResult `json:"gate"`

	Position PositionSnapshot `json:"position"`
	Guard    GuardResult      `json:"guard"`
	Mode     ExposureMode     `json:"mode"`

	UpdatedAt time.Time `json:"updated_at"`
}
