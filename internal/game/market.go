package game

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// MarketPrices returns the price board with the caller's sellable
// stock joined in. Pass userID 0 for an anonymous board.
func (s *Service) MarketPrices(ctx context.Context, userID int64) ([]MarketPriceView, error) {
	rows, err := s.db.Query(ctx, `
		SELECT mp.item_id, it.name, it.category,
		       mp.base_price, mp.current_price, mp.trend,
		       COALESCE(sl.quantity_kg, 0)
		FROM game.market_prices mp
		JOIN game.items it ON it.id = mp.item_id
		LEFT JOIN game.silo sl
		       ON sl.item_id = mp.item_id AND sl.bucket = $1 AND sl.user_id = $2
		ORDER BY it.name
	`, BucketProduce, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MarketPriceView
	for rows.Next() {
		var v MarketPriceView
		if err := rows.Scan(&v.ItemID, &v.Name, &v.Category,
			&v.BasePrice, &v.CurrentPrice, &v.Trend, &v.AvailableKg); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// SellProduce sells kg of a produce item from the silo at the current
// market price. The price row is read inside the transaction, so the
// amount credited is the price at commit time, not at request time.
func (s *Service) SellProduce(ctx context.Context, userID, itemID, kg int64) (SellResult, error) {
	var out SellResult
	out.ItemID = itemID
	out.QuantityKg = kg
	if kg <= 0 {
		return out, fmt.Errorf("quantity must be > 0")
	}

	err := s.withTx(ctx, func(tx pgx.Tx) error {
		money, err := lockPlayer(ctx, tx, userID)
		if err != nil {
			return err
		}

		have, err := siloQuantityForUpdateTx(ctx, tx, userID, BucketProduce, itemID)
		if err != nil {
			return err
		}
		if have < kg {
			return fmt.Errorf("%w: selling %d kg, silo has %d kg", ErrInsufficientStock, kg, have)
		}

		var unitPrice decimal.Decimal
		err = tx.QueryRow(ctx, `
			SELECT current_price FROM game.market_prices WHERE item_id = $1
		`, itemID).Scan(&unitPrice)
		if err == pgx.ErrNoRows {
			return fmt.Errorf("%w: item %d is not traded", ErrItemNotFound, itemID)
		}
		if err != nil {
			return err
		}

		if err := debitSiloTx(ctx, tx, userID, BucketProduce, itemID, kg); err != nil {
			return err
		}

		total := unitPrice.Mul(decimal.NewFromInt(kg)).Round(2)
		newBalance := money.Add(total)
		if _, err := tx.Exec(ctx, `
			UPDATE game.players SET money = $1 WHERE id = $2
		`, newBalance, userID); err != nil {
			return err
		}
		if err := appendLedgerEntries(ctx, tx, userID, "sell_produce", total); err != nil {
			return err
		}

		out.UnitPrice = unitPrice
		out.TotalValue = total
		out.NewBalance = newBalance
		return nil
	})
	if err != nil {
		return out, err
	}
	s.log.Info("produce sold", "user_id", userID, "item_id", itemID,
		"kg", kg, "total", out.TotalValue.String())
	return out, nil
}

// UpdatePrices runs one market tick: every traded item gets a fresh
// fluctuation off its base price, clamped to the band, with the trend
// flag set against the previous current price.
func (s *Service) UpdatePrices(ctx context.Context) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT item_id, base_price, current_price
			FROM game.market_prices
			ORDER BY item_id
			FOR UPDATE
		`)
		if err != nil {
			return err
		}
		type priceRow struct {
			itemID  int64
			base    decimal.Decimal
			current decimal.Decimal
		}
		var prices []priceRow
		for rows.Next() {
			var p priceRow
			if err := rows.Scan(&p.itemID, &p.base, &p.current); err != nil {
				rows.Close()
				return err
			}
			prices = append(prices, p)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, p := range prices {
			next := FluctuatedPrice(p.base, s.fluctuationRoll())
			trend := PriceTrend(next, p.current)
			if _, err := tx.Exec(ctx, `
				UPDATE game.market_prices
				SET current_price = $1, trend = $2, last_update = now()
				WHERE item_id = $3
			`, next, trend, p.itemID); err != nil {
				return err
			}
		}
		s.log.Debug("market tick", "items", len(prices))
		return nil
	})
}
