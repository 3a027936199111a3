package score

import (
	"fmt"
	"sort"

	"prefcore/internal/domain"
)

// AggregateFn collapses the per-variant composite scores of one side into a
// single number. The slice is never empty.
type AggregateFn func(vals []float64) float64

// Built-in aggregation strategies.
func AggregateMean(vals []float64) float64 {
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func AggregateMin(vals []float64) float64 {
	min := vals[0]
	for _, v := range vals[1:] {
		if v < min {
			min = v
		}
	}
	return min
}

func AggregateMax(vals []float64) float64 {
	max := vals[0]
	for _, v := range vals[1:] {
		if v > max {
			max = v
		}
	}
	return max
}

// AggregationStrategy resolves a configured strategy name.
func AggregationStrategy(name string) (AggregateFn, error) {
	switch name {
	case "", "mean":
		return AggregateMean, nil
	case "min":
		return AggregateMin, nil
	case "max":
		return AggregateMax, nil
	}
	return nil, fmt.Errorf("unknown rank aggregation %q", name)
}

// RankEngine normalises composite scores within peer groups. Symbols sharing
// a group key are ranked against each other only; a symbol whose score record
// is not yet computed is excluded from its group and carries a Collecting
// rank.
type RankEngine struct {
	agg AggregateFn
}

// NewRankEngine creates a RankEngine with the given aggregation strategy.
func NewRankEngine(agg AggregateFn) *RankEngine {
	if agg == nil {
		agg = AggregateMean
	}
	return &RankEngine{agg: agg}
}

// sideAggregate collapses one side's composites for a record.
func (r *RankEngine) sideAggregate(rec domain.DerivedScoreRecord, variants []domain.Variant) float64 {
	vals := make([]float64, len(variants))
	for i, v := range variants {
		vals[i] = rec.Composites[v]
	}
	return r.agg(vals)
}

// Compute ranks every computed record within its peer group. groupKeys maps
// symbol to its peer-group key. Raw ranks are 1-based: raw buy rank 1 is the
// cheapest symbol in its group, raw sell rank 1 the most expensive.
// Percentiles are 0-100, with 100 the strongest candidate on that side; a
// single-symbol group ranks at 50.
func (r *RankEngine) Compute(records map[string]domain.DerivedScoreRecord, groupKeys map[string]string) map[string]domain.RankRecord {
	type member struct {
		symbol  string
		buyAgg  float64
		sellAgg float64
	}

	out := make(map[string]domain.RankRecord, len(records))
	groups := make(map[string][]member)

	for sym, rec := range records {
		if rec.Status != domain.StatusComputed {
			out[sym] = domain.RankRecord{Symbol: sym, Status: domain.StatusCollecting}
			continue
		}
		key := groupKeys[sym]
		groups[key] = append(groups[key], member{
			symbol:  sym,
			buyAgg:  r.sideAggregate(rec, domain.BuyVariants),
			sellAgg: r.sideAggregate(rec, domain.SellVariants),
		})
	}

	for key, members := range groups {
		n := len(members)

		// Buy side: higher aggregate means cheaper, rank 1 is best to buy.
		sort.Slice(members, func(i, j int) bool { return members[i].buyAgg > members[j].buyAgg })
		buyRank := make(map[string]int, n)
		for i, m := range members {
			buyRank[m.symbol] = i + 1
		}

		// Sell side: lower aggregate means more expensive, rank 1 is best to sell.
		sort.Slice(members, func(i, j int) bool { return members[i].sellAgg < members[j].sellAgg })
		for i, m := range members {
			rr := domain.RankRecord{
				Symbol:   m.symbol,
				GroupKey: key,
				BuyAgg:   m.buyAgg,
				SellAgg:  m.sellAgg,
				RawBuy:   buyRank[m.symbol],
				RawSell:  i + 1,
				Status:   domain.StatusComputed,
			}
			if n > 1 {
				rr.BuyPct = float64(n-buyRank[m.symbol]) / float64(n-1) * 100
				rr.SellPct = float64(n-rr.RawSell) / float64(n-1) * 100
			} else {
				rr.BuyPct = 50
				rr.SellPct = 50
			}
			out[m.symbol] = rr
		}
	}

	return out
}
