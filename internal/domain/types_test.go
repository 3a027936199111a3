package domain

import (
	"testing"
	"time"
)

func TestActionSet(t *testing.T) {
	s := AllActions
	if !s.Has(ActionBuy) || !s.Has(ActionSell) {
		t.Fatal("AllActions should permit buy and sell")
	}

	s = s.Without(ActionBuy)
	if s.Has(ActionBuy) {
		t.Error("Without(ActionBuy) still permits buy")
	}
	if !s.Has(ActionSell) {
		t.Error("Without(ActionBuy) should not affect sell")
	}

	s = s.Without(ActionSell)
	if s.Has(ActionSell) || s.Has(ActionBuy) {
		t.Error("empty set should permit nothing")
	}
}

func TestVariantSides(t *testing.T) {
	for _, v := range BuyVariants {
		if v.Side() != SideBuy {
			t.Errorf("variant %s: Side() = %q, want buy", v, v.Side())
		}
	}
	for _, v := range SellVariants {
		if v.Side() != SideSell {
			t.Errorf("variant %s: Side() = %q, want sell", v, v.Side())
		}
	}
	if len(BuyVariants)+len(SellVariants) != NumVariants {
		t.Errorf("variant lists cover %d variants, want %d",
			len(BuyVariants)+len(SellVariants), NumVariants)
	}
}

func TestIntentKind(t *testing.T) {
	if IntentWait.Actionable() {
		t.Error("wait intent should not be actionable")
	}
	if !IntentBuyFront.Actionable() {
		t.Error("buy_front intent should be actionable")
	}
	if IntentBuyFront.Side() != SideBuy {
		t.Errorf("buy_front side = %q, want buy", IntentBuyFront.Side())
	}
	if IntentSellAsk.Side() != SideSell {
		t.Errorf("sell_ask side = %q, want sell", IntentSellAsk.Side())
	}
}

func TestComputeStatusString(t *testing.T) {
	if StatusCollecting.String() != "collecting" {
		t.Errorf("StatusCollecting = %q", StatusCollecting.String())
	}
	if StatusComputed.String() != "computed" {
		t.Errorf("StatusComputed = %q", StatusComputed.String())
	}
	if StatusFailed.String() != "failed" {
		t.Errorf("StatusFailed = %q", StatusFailed.String())
	}
}

func TestZeroValues(t *testing.T) {
	// Zero-value snapshot must read as "not bootstrapped", not "prev close 0".
	snap := LiveSnapshot{}
	if snap.HasPrevClose {
		t.Error("zero-value LiveSnapshot should not claim a previous close")
	}

	// Zero-value windows must read as invalid, never as a computed empty.
	cw := ConcentrationWindow{}
	if cw.Valid {
		t.Error("zero-value ConcentrationWindow should be invalid")
	}
	vw := VWAPWindow{}
	if vw.Valid {
		t.Error("zero-value VWAPWindow should be invalid")
	}

	// Real construction sanity.
	p := TradePrint{Symbol: "ABR-PD", Price: 24.90, Size: 300, Timestamp: time.Now(), Venue: "N"}
	if p.Symbol != "ABR-PD" || p.Size != 300 {
		t.Error("TradePrint fields not preserved")
	}
}
