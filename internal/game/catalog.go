package game

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func catalogItemTx(ctx context.Context, q rowQuerier, itemID int64) (CatalogItem, error) {
	var item CatalogItem
	var statsRaw []byte
	err := q.QueryRow(ctx, `
		SELECT id, name, type, category, price, stats
		FROM game.items
		WHERE id = $1
	`, itemID).Scan(&item.ID, &item.Name, &item.Type, &item.Category, &item.Price, &statsRaw)
	if err == pgx.ErrNoRows {
		return item, fmt.Errorf("%w: item %d", ErrItemNotFound, itemID)
	}
	if err != nil {
		return item, err
	}
	if err := json.Unmarshal(statsRaw, &item.Stats); err != nil {
		return item, fmt.Errorf("decode item stats: %w", err)
	}
	return item, nil
}

// Shop lists the purchasable catalog: everything except produce, which
// only ever enters the game through a harvest.
func (s *Service) Shop(ctx context.Context) ([]CatalogItem, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, type, category, price, stats
		FROM game.items
		WHERE type <> $1
		ORDER BY type, price
	`, ItemProduce)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CatalogItem
	for rows.Next() {
		var item CatalogItem
		var statsRaw []byte
		if err := rows.Scan(&item.ID, &item.Name, &item.Type, &item.Category, &item.Price, &statsRaw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(statsRaw, &item.Stats); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

type seedCatalogRow struct {
	Name     string
	Type     string
	Category string
	Price    int64
	Stats    StatBlock
}

// SeedDefaults populates the immutable catalog and the market price
// table on first boot. Idempotent: a non-empty catalog is left alone.
func (s *Service) SeedDefaults(ctx context.Context) error {
	var count int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(1) FROM game.items`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	seed := []seedCatalogRow{
		{"Light Tractor 75hp", ItemTractor, "small", 150_000, StatBlock{HP: 75, SpeedMultiplier: 1.0}},
		{"Mid Tractor 150hp", ItemTractor, "medium", 350_000, StatBlock{HP: 150, SpeedMultiplier: 1.5}},
		{"Heavy Tractor 370hp", ItemTractor, "large", 1_200_000, StatBlock{HP: 370, SpeedMultiplier: 2.5}},

		{"Disc Plow", ItemImplement, CategoryPlow, 45_000, StatBlock{ReqHP: 70, Efficiency: 1.0, Operation: "plowing"}},
		{"Heavy Harrow Plow", ItemImplement, CategoryPlow, 120_000, StatBlock{ReqHP: 200, Efficiency: 2.5, Operation: "plowing"}},
		{"Precision Seeder", ItemImplement, CategorySeeder, 85_000, StatBlock{ReqHP: 90, Efficiency: 1.5, Operation: "sowing"}},
		{"Large-Scale Seeder", ItemImplement, CategorySeeder, 450_000, StatBlock{ReqHP: 300, Efficiency: 4.0, Operation: "sowing"}},
		{"Hydraulic Brush Cutter", ItemImplement, CategoryCleaner, 25_000, StatBlock{ReqHP: 50, Efficiency: 0.8, Operation: OperationCleaning}},

		{"Harvester S400", ItemHeavy, "harvester", 900_000, StatBlock{HP: 300, Efficiency: 2.0, Operation: OperationHarvesting}},
		{"Forestry Excavator", ItemHeavy, "deforester", 600_000, StatBlock{HP: 200, Efficiency: 1.5, Operation: OperationCleaning}},

		{"Soybean Seed", ItemSeed, "soybean", 5, StatBlock{GrowthTime: 120, YieldKgHa: 3500, SeedUsageKgHa: 60, SellPrice: 3.5}},
		{"Corn Seed", ItemSeed, "corn", 3, StatBlock{GrowthTime: 180, YieldKgHa: 9000, SeedUsageKgHa: 20, SellPrice: 1.2}},

		{"Soybeans", ItemProduce, "soybean", 0, StatBlock{SellPrice: 3.5}},
		{"Corn", ItemProduce, "corn", 0, StatBlock{SellPrice: 1.2}},
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, row := range seed {
		stats, err := json.Marshal(row.Stats)
		if err != nil {
			return err
		}
		var itemID int64
		err = tx.QueryRow(ctx, `
			INSERT INTO game.items (name, type, category, price, stats)
			VALUES ($1, $2, $3, $4, $5::jsonb)
			RETURNING id
		`, row.Name, row.Type, row.Category, decimal.NewFromInt(row.Price), string(stats)).Scan(&itemID)
		if err != nil {
			return err
		}
		if row.Type == ItemProduce {
			base := decimal.NewFromFloat(row.Stats.SellPrice)
			if _, err := tx.Exec(ctx, `
				INSERT INTO game.market_prices (item_id, base_price, current_price, trend)
				VALUES ($1, $2, $2, $3)
			`, itemID, base, TrendStable); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	s.log.Info("catalog seeded", "items", len(seed))
	return nil
}

var conditionPriceMultiplier = map[string]float64{
	ConditionRaw:     1.0,
	ConditionCleared: 1.3,
	ConditionPlowed:  1.6,
}

// LandUnitPrice is the base land value per square meter used by the
// generator stand-in.
var LandUnitPrice = decimal.NewFromFloat(2.5)

// rollCondition picks an initial parcel condition with the generator's
// 70/20/10 weighting.
func rollCondition(roll float64) string {
	switch {
	case roll < 0.70:
		return ConditionRaw
	case roll < 0.90:
		return ConditionCleared
	default:
		return ConditionPlowed
	}
}

// GeneratedLandPrice is area times unit price times the condition
// multiplier: already-worked land sells for more.
func GeneratedLandPrice(areaSqm float64, condition string) decimal.Decimal {
	mult, ok := conditionPriceMultiplier[condition]
	if !ok {
		mult = 1.0
	}
	return LandUnitPrice.Mul(decimal.NewFromFloat(areaSqm * mult)).Round(2)
}

// SeedLands is a development stand-in for the external land-generation
// pipeline: it scatters parcels around a center coordinate with the
// generator's condition weights and pricing rule. Idempotent on a
// non-empty registry.
func (s *Service) SeedLands(ctx context.Context, count int, centerLat, centerLon float64) error {
	var existing int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(1) FROM game.lands`).Scan(&existing); err != nil {
		return err
	}
	if existing > 0 || count <= 0 {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		areaSqm := 5_000 + s.nextFloat()*95_000
		condition := rollCondition(s.nextFloat())
		price := GeneratedLandPrice(areaSqm, condition)
		lat := centerLat + (s.nextFloat()-0.5)
		lon := centerLon + (s.nextFloat()-0.5)
		geom := fmt.Sprintf("POINT(%.6f %.6f)", lon, lat)
		if _, err := tx.Exec(ctx, `
			INSERT INTO game.lands (area_sqm, condition, price, status, geom)
			VALUES ($1, $2, $3, $4, $5)
		`, areaSqm, condition, price, StatusAvailable, geom); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	s.log.Info("lands seeded", "count", count)
	return nil
}
