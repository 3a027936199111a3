package benchmark

import (
	"math"
	"testing"

	"prefcore/internal/domain"
)

type fakeBasket map[string]domain.LiveSnapshot

func (f fakeBasket) BasketSnapshot() map[string]domain.LiveSnapshot {
	return map[string]domain.LiveSnapshot(f)
}

func snap(last, prev float64) domain.LiveSnapshot {
	return domain.LiveSnapshot{Last: last, PrevClose: prev, HasPrevClose: true}
}

func TestComputeWeightedDelta(t *testing.T) {
	basket := fakeBasket{
		InstPFF: snap(31.50, 31.40), // +0.10
		InstTLT: snap(92.00, 92.50), // -0.50
	}
	e := New(basket)

	r := e.Compute("FIXED") // 0.6×PFF + 0.4×TLT
	if r.Status != domain.StatusComputed {
		t.Fatalf("status = %v, want computed", r.Status)
	}
	want := 0.6*0.10 + 0.4*(-0.50)
	if math.Abs(r.Chg-want) > 1e-9 {
		t.Errorf("Chg = %v, want %v", r.Chg, want)
	}

	wantPct := 0.6*(0.10/31.40*100) + 0.4*(-0.50/92.50*100)
	if math.Abs(r.ChgPct-wantPct) > 1e-9 {
		t.Errorf("ChgPct = %v, want %v", r.ChgPct, wantPct)
	}
}

func TestComputeCollectingWhenInputMissing(t *testing.T) {
	// TLT present but without a bootstrapped previous close.
	basket := fakeBasket{
		InstPFF: snap(31.50, 31.40),
		InstTLT: {Symbol: InstTLT, Last: 92.00},
	}
	e := New(basket)

	r := e.Compute("FIXED")
	if r.Status != domain.StatusCollecting {
		t.Fatalf("status = %v, want collecting when a basket input is unbootstrapped", r.Status)
	}
	if r.Chg != 0 || r.ChgPct != 0 {
		t.Errorf("collecting result carries values: %+v", r)
	}

	// A formula not touching TLT still computes.
	if r := e.Compute("DEFAULT"); r.Status != domain.StatusComputed {
		t.Errorf("DEFAULT status = %v, want computed", r.Status)
	}
}

func TestComputeUnknownGroupUsesDefault(t *testing.T) {
	basket := fakeBasket{InstPFF: snap(31.50, 31.40)}
	e := New(basket)

	unknown := e.Compute("NO-SUCH-GROUP")
	def := e.Compute(DefaultGroup)
	if unknown != def {
		t.Errorf("unknown group = %+v, default = %+v; want identical", unknown, def)
	}

	// Case-insensitive tags.
	lower := e.Compute("default")
	if lower != def {
		t.Errorf("lower-case tag = %+v, want %+v", lower, def)
	}
}

func TestFormulaWeightsSumToOne(t *testing.T) {
	for group, terms := range formulas {
		sum := 0.0
		for _, trm := range terms {
			sum += trm.weight
		}
		if math.Abs(sum-1.0) > 1e-9 {
			t.Errorf("group %s weights sum to %v, want 1.0", group, sum)
		}
	}
}
