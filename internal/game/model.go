package game

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

// Parcel conditions, in farming order. Harvest is the one transition
// that moves backwards: mature -> cleared.
const (
	ConditionRaw     = "raw"
	ConditionCleared = "cleared"
	ConditionPlowed  = "plowed"
	ConditionGrowing = "growing"
	ConditionMature  = "mature"
)

const (
	StatusAvailable = "available"
	StatusOwned     = "owned"
)

const (
	ActionClean   = "clean"
	ActionPlow    = "plow"
	ActionSow     = "sow"
	ActionHarvest = "harvest"

	// OpGrow marks the seed-defined growth window that follows a
	// finished sow. It is not startable by players.
	OpGrow = "grow"
)

const (
	ItemTractor   = "tractor"
	ItemImplement = "implement"
	ItemHeavy     = "heavy"
	ItemSeed      = "seed"
	ItemProduce   = "produce"
)

const (
	CategoryPlow    = "plow"
	CategorySeeder  = "seeder"
	CategoryCleaner = "cleaner"

	OperationCleaning   = "cleaning"
	OperationHarvesting = "harvesting"
)

const (
	SqmPerHa = 10_000.0

	// Base work rate: 30 seconds per hectare at efficiency 1.0.
	BaseSecondsPerHa = 30.0

	DemandStepPerNeighbor = 0.01
	DemandMultiplierCap   = 3.0
	DemandRadiusMeters    = 50_000.0

	WearPerOperation = 0.03
	MaxWear          = 1.0
	RepairCostRate   = 0.10

	MarketMaxFluctuation = 0.15
	MarketFloorRatio     = 0.5
	MarketCeilRatio      = 1.5
	TrendUpRatio         = 1.05
	TrendDownRatio       = 0.95

	YieldRollMin = 0.8
	YieldRollMax = 1.2
)

var StarterMoney = decimal.NewFromInt(200_000)

const (
	TrendUp     = "up"
	TrendDown   = "down"
	TrendStable = "stable"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrLandNotFound        = errors.New("land not found")
	ErrItemNotFound        = errors.New("item not found")
	ErrNotOwner            = errors.New("not the owner of this land")
	ErrAlreadyOwned        = errors.New("land already owned")
	ErrOperationInProgress = errors.New("operation in progress")
	ErrInvalidCondition    = errors.New("invalid land condition for this action")
	ErrWrongEquipment      = errors.New("wrong equipment for this action")
	ErrInsufficientPower   = errors.New("insufficient tractor power")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrInsufficientSeeds   = errors.New("insufficient seeds in silo")
	ErrInsufficientStock   = errors.New("insufficient stock in silo")
	ErrAlreadyAttached     = errors.New("implement already attached")
	ErrNoRepairNeeded      = errors.New("equipment has no wear to repair")
	ErrTxConflict          = errors.New("transaction conflict, retry")
)

func AreaHa(areaSqm float64) float64 {
	return areaSqm / SqmPerHa
}

// OperationDuration returns the work time in seconds for a parcel of
// areaSqm at the given effective rate (hectares per unit time). A
// non-positive efficiency is treated as 1 so a bad stat block can never
// divide by zero.
func OperationDuration(areaSqm, efficiency float64) int64 {
	if efficiency <= 0 {
		efficiency = 1
	}
	return int64(math.Floor(AreaHa(areaSqm) * BaseSecondsPerHa / efficiency))
}

// DemandMultiplier grows 1% per owned neighbor, capped at 3x.
func DemandMultiplier(soldNeighbors int) float64 {
	m := 1 + float64(soldNeighbors)*DemandStepPerNeighbor
	return math.Min(m, DemandMultiplierCap)
}

func DynamicLandPrice(basePrice decimal.Decimal, soldNeighbors int) decimal.Decimal {
	return basePrice.Mul(decimal.NewFromFloat(DemandMultiplier(soldNeighbors))).Round(2)
}

// SeedRequirementKg rounds up: a partial hectare still consumes a full
// planting pass.
func SeedRequirementKg(areaSqm, usageKgPerHa float64) int64 {
	return int64(math.Ceil(AreaHa(areaSqm) * usageKgPerHa))
}

// HarvestYieldKg applies the random roll (uniform in
// [YieldRollMin, YieldRollMax]) to the per-hectare yield and floors to
// whole kilograms.
func HarvestYieldKg(areaSqm, yieldKgPerHa, roll float64) int64 {
	return int64(math.Floor(AreaHa(areaSqm) * yieldKgPerHa * roll))
}

// RepairCost is 10% of the catalog price scaled by current wear,
// rounded up to the next whole unit of money.
func RepairCost(basePrice decimal.Decimal, wear float64) decimal.Decimal {
	return basePrice.Mul(decimal.NewFromFloat(RepairCostRate * wear)).Ceil()
}

// FluctuatedPrice applies a fluctuation in [-MarketMaxFluctuation,
// +MarketMaxFluctuation] to the base price and clamps the result to
// [0.5*base, 1.5*base].
func FluctuatedPrice(basePrice decimal.Decimal, fluctuation float64) decimal.Decimal {
	next := basePrice.Mul(decimal.NewFromFloat(1 + fluctuation))
	floor := basePrice.Mul(decimal.NewFromFloat(MarketFloorRatio))
	ceil := basePrice.Mul(decimal.NewFromFloat(MarketCeilRatio))
	return decimal.Min(ceil, decimal.Max(floor, next)).Round(2)
}

// PriceTrend compares the new price against the previous current price:
// up above +5%, down below -5%, stable in between.
func PriceTrend(newPrice, oldPrice decimal.Decimal) string {
	switch {
	case newPrice.GreaterThan(oldPrice.Mul(decimal.NewFromFloat(TrendUpRatio))):
		return TrendUp
	case newPrice.LessThan(oldPrice.Mul(decimal.NewFromFloat(TrendDownRatio))):
		return TrendDown
	default:
		return TrendStable
	}
}

// ClampWear accumulates operation wear and never exceeds MaxWear.
func ClampWear(current, delta float64) float64 {
	w := current + delta
	if w > MaxWear {
		return MaxWear
	}
	if w < 0 {
		return 0
	}
	return w
}
