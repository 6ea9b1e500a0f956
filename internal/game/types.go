package game

import (
	"time"

	"github.com/shopspring/decimal"
)

// StatBlock is the catalog stat payload stored as jsonb. Fields are
// populated per item type: hp/speed_multiplier for tractors,
// req_hp/efficiency/operation for implements, hp/efficiency/operation
// for heavy machinery, the crop fields for seeds, sell_price for
// produce.
type StatBlock struct {
	HP              float64 `json:"hp,omitempty"`
	SpeedMultiplier float64 `json:"speed_multiplier,omitempty"`
	ReqHP           float64 `json:"req_hp,omitempty"`
	Efficiency      float64 `json:"efficiency,omitempty"`
	Operation       string  `json:"operation,omitempty"`
	GrowthTime      int64   `json:"growth_time,omitempty"`
	YieldKgHa       float64 `json:"yield_kg_ha,omitempty"`
	SeedUsageKgHa   float64 `json:"seed_usage_kg_ha,omitempty"`
	SellPrice       float64 `json:"sell_price,omitempty"`
}

type CatalogItem struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Type     string          `json:"type"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"`
	Stats    StatBlock       `json:"stats"`
}

type Profile struct {
	UserID   int64           `json:"user_id"`
	Username string          `json:"username"`
	Money    decimal.Decimal `json:"money"`
	Diamonds int64           `json:"diamonds"`
	Lands    int64           `json:"lands"`
}

type LandView struct {
	ID            int64           `json:"id"`
	OwnerID       *int64          `json:"owner_id,omitempty"`
	AreaSqm       float64         `json:"area_sqm"`
	Condition     string          `json:"condition"`
	Price         decimal.Decimal `json:"price"`
	Status        string          `json:"status"`
	OperationType *string         `json:"operation_type,omitempty"`
	OperationEnd  *time.Time      `json:"operation_end,omitempty"`
	CurrentCropID *int64          `json:"current_crop_id,omitempty"`
}

type PriceQuote struct {
	LandID           int64           `json:"land_id"`
	BasePrice        decimal.Decimal `json:"base_price"`
	FinalPrice       decimal.Decimal `json:"final_price"`
	DemandMultiplier float64         `json:"demand_multiplier"`
	SoldNeighbors    int             `json:"sold_neighbors"`
}

type PurchaseResult struct {
	LandID     int64           `json:"land_id"`
	PricePaid  decimal.Decimal `json:"price_paid"`
	NewBalance decimal.Decimal `json:"new_balance"`
}

type StartActionInput struct {
	UserID     int64
	LandID     int64
	Action     string
	ToolInvID  int64
	SeedItemID int64 // sow only
}

type StartActionResult struct {
	LandID          int64     `json:"land_id"`
	Action          string    `json:"action"`
	DurationSeconds int64     `json:"duration_seconds"`
	EndsAt          time.Time `json:"ends_at"`
}

type FinishResult struct {
	Completed    bool       `json:"completed"`
	NewCondition string     `json:"new_condition,omitempty"`
	GrowthEndsAt *time.Time `json:"growth_ends_at,omitempty"`
	YieldKg      int64      `json:"yield_kg,omitempty"`
	ProduceID    int64      `json:"produce_id,omitempty"`
}

type MaturationResult struct {
	Matured int64 `json:"matured"`
}

type InventoryItemView struct {
	ID         int64     `json:"id"`
	ItemID     int64     `json:"item_id"`
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	Category   string    `json:"category"`
	Quantity   int64     `json:"quantity"`
	InstanceID *string   `json:"instance_id,omitempty"`
	AttachedTo *string   `json:"attached_to,omitempty"`
	Wear       float64   `json:"wear"`
	Stats      StatBlock `json:"stats"`
}

type BuyItemResult struct {
	ItemID     int64           `json:"item_id"`
	Quantity   int64           `json:"quantity"`
	TotalCost  decimal.Decimal `json:"total_cost"`
	NewBalance decimal.Decimal `json:"new_balance"`
}

type RepairResult struct {
	InventoryID int64           `json:"inventory_id"`
	Cost        decimal.Decimal `json:"cost"`
	NewBalance  decimal.Decimal `json:"new_balance"`
}

type SiloEntry struct {
	ItemID     int64  `json:"item_id"`
	Name       string `json:"name"`
	Category   string `json:"category"`
	QuantityKg int64  `json:"quantity_kg"`
}

type SiloView struct {
	Seeds   []SiloEntry `json:"seeds"`
	Produce []SiloEntry `json:"produce"`
}

type MarketPriceView struct {
	ItemID       int64           `json:"item_id"`
	Name         string          `json:"name"`
	Category     string          `json:"category"`
	BasePrice    decimal.Decimal `json:"base_price"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	Trend        string          `json:"trend"`
	AvailableKg  int64           `json:"available_kg"`
}

type SellResult struct {
	ItemID     int64           `json:"item_id"`
	QuantityKg int64           `json:"quantity_kg"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalValue decimal.Decimal `json:"total_value"`
	NewBalance decimal.Decimal `json:"new_balance"`
}

const (
	BucketSeeds   = "seeds"
	BucketProduce = "produce"
)
