package game

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestOperationDuration(t *testing.T) {
	// 2 ha at rate 1.5 works out to 40 seconds.
	if got := OperationDuration(20_000, 1.5); got != 40 {
		t.Fatalf("duration = %d, want 40", got)
	}
	if got := OperationDuration(10_000, 1.0); got != 30 {
		t.Fatalf("duration = %d, want 30", got)
	}
	// Partial seconds are floored.
	if got := OperationDuration(10_000, 4.0); got != 7 {
		t.Fatalf("duration = %d, want 7", got)
	}
}

func TestOperationDurationBadEfficiency(t *testing.T) {
	want := OperationDuration(10_000, 1.0)
	if got := OperationDuration(10_000, 0); got != want {
		t.Fatalf("zero efficiency duration = %d, want %d", got, want)
	}
	if got := OperationDuration(10_000, -3); got != want {
		t.Fatalf("negative efficiency duration = %d, want %d", got, want)
	}
}

func TestDemandMultiplier(t *testing.T) {
	if got := DemandMultiplier(0); got != 1.0 {
		t.Fatalf("multiplier(0) = %v, want 1.0", got)
	}
	if got := DemandMultiplier(25); got != 1.25 {
		t.Fatalf("multiplier(25) = %v, want 1.25", got)
	}
	// 1% per neighbor caps at 3x.
	if got := DemandMultiplier(500); got != 3.0 {
		t.Fatalf("multiplier(500) = %v, want 3.0", got)
	}
}

func TestDynamicLandPrice(t *testing.T) {
	base := decimal.NewFromInt(10_000)
	if got := DynamicLandPrice(base, 0); !got.Equal(base) {
		t.Fatalf("price with no neighbors = %s, want %s", got, base)
	}
	want := decimal.NewFromInt(11_000)
	if got := DynamicLandPrice(base, 10); !got.Equal(want) {
		t.Fatalf("price with 10 neighbors = %s, want %s", got, want)
	}
	capped := decimal.NewFromInt(30_000)
	if got := DynamicLandPrice(base, 1000); !got.Equal(capped) {
		t.Fatalf("capped price = %s, want %s", got, capped)
	}
}

func TestSeedRequirementKg(t *testing.T) {
	if got := SeedRequirementKg(20_000, 60); got != 120 {
		t.Fatalf("requirement = %d, want 120", got)
	}
	// Partial hectares round up.
	if got := SeedRequirementKg(15_000, 60); got != 90 {
		t.Fatalf("requirement = %d, want 90", got)
	}
	if got := SeedRequirementKg(100, 60); got != 1 {
		t.Fatalf("requirement = %d, want 1", got)
	}
}

func TestHarvestYieldKg(t *testing.T) {
	if got := HarvestYieldKg(20_000, 3500, 1.0); got != 7000 {
		t.Fatalf("yield = %d, want 7000", got)
	}
	lo := HarvestYieldKg(20_000, 3500, YieldRollMin)
	hi := HarvestYieldKg(20_000, 3500, YieldRollMax)
	if lo != 5600 || hi != 8400 {
		t.Fatalf("yield bounds = %d..%d, want 5600..8400", lo, hi)
	}
}

func TestRepairCost(t *testing.T) {
	price := decimal.NewFromInt(150_000)
	if got, want := RepairCost(price, 0.5), decimal.NewFromInt(7_500); !got.Equal(want) {
		t.Fatalf("repair cost = %s, want %s", got, want)
	}
	if got, want := RepairCost(price, 1.0), decimal.NewFromInt(15_000); !got.Equal(want) {
		t.Fatalf("repair cost at full wear = %s, want %s", got, want)
	}
	// Fractional costs round up.
	odd := decimal.NewFromInt(333)
	if got, want := RepairCost(odd, 0.1), decimal.NewFromInt(4); !got.Equal(want) {
		t.Fatalf("repair cost = %s, want %s", got, want)
	}
}

func TestFluctuatedPriceClamps(t *testing.T) {
	base := decimal.NewFromInt(100)
	if got, want := FluctuatedPrice(base, 0.10), decimal.NewFromInt(110); !got.Equal(want) {
		t.Fatalf("fluctuated = %s, want %s", got, want)
	}
	// Out-of-band fluctuations clamp to [0.5*base, 1.5*base].
	if got, want := FluctuatedPrice(base, -0.9), decimal.NewFromInt(50); !got.Equal(want) {
		t.Fatalf("floor clamp = %s, want %s", got, want)
	}
	if got, want := FluctuatedPrice(base, 2.0), decimal.NewFromInt(150); !got.Equal(want) {
		t.Fatalf("ceil clamp = %s, want %s", got, want)
	}
}

func TestPriceTrend(t *testing.T) {
	old := decimal.NewFromInt(100)
	if got := PriceTrend(decimal.NewFromInt(106), old); got != TrendUp {
		t.Fatalf("trend = %s, want up", got)
	}
	if got := PriceTrend(decimal.NewFromInt(94), old); got != TrendDown {
		t.Fatalf("trend = %s, want down", got)
	}
	if got := PriceTrend(decimal.NewFromInt(103), old); got != TrendStable {
		t.Fatalf("trend = %s, want stable", got)
	}
	// The 5% boundary itself is stable.
	if got := PriceTrend(decimal.NewFromInt(105), old); got != TrendStable {
		t.Fatalf("trend at boundary = %s, want stable", got)
	}
}

func TestClampWear(t *testing.T) {
	if got := ClampWear(0.97, WearPerOperation); got != 1.0 {
		t.Fatalf("wear = %v, want 1.0", got)
	}
	if got := ClampWear(0.5, WearPerOperation); got != 0.53 {
		t.Fatalf("wear = %v, want 0.53", got)
	}
	if got := ClampWear(0.01, -0.5); got != 0 {
		t.Fatalf("wear = %v, want 0", got)
	}
}

func TestGeneratedLandPrice(t *testing.T) {
	raw := GeneratedLandPrice(10_000, ConditionRaw)
	cleared := GeneratedLandPrice(10_000, ConditionCleared)
	plowed := GeneratedLandPrice(10_000, ConditionPlowed)
	if !cleared.GreaterThan(raw) || !plowed.GreaterThan(cleared) {
		t.Fatalf("prices not ordered: raw=%s cleared=%s plowed=%s", raw, cleared, plowed)
	}
	if got, want := raw, decimal.NewFromInt(25_000); !got.Equal(want) {
		t.Fatalf("raw price = %s, want %s", got, want)
	}
}

func TestRollCondition(t *testing.T) {
	if got := rollCondition(0.0); got != ConditionRaw {
		t.Fatalf("roll 0.0 = %s, want raw", got)
	}
	if got := rollCondition(0.69); got != ConditionRaw {
		t.Fatalf("roll 0.69 = %s, want raw", got)
	}
	if got := rollCondition(0.75); got != ConditionCleared {
		t.Fatalf("roll 0.75 = %s, want cleared", got)
	}
	if got := rollCondition(0.95); got != ConditionPlowed {
		t.Fatalf("roll 0.95 = %s, want plowed", got)
	}
}
