package game

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// GetInventory returns the user's machinery and seed stacks with
// catalog data joined in.
func (s *Service) GetInventory(ctx context.Context, userID int64) ([]InventoryItemView, error) {
	rows, err := s.db.Query(ctx, `
		SELECT i.id, i.item_id, it.name, it.type, it.category,
		       i.quantity, i.instance_id, i.attached_to, i.wear, it.stats
		FROM game.inventory i
		JOIN game.items it ON it.id = i.item_id
		WHERE i.user_id = $1
		ORDER BY it.type, i.id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []InventoryItemView
	for rows.Next() {
		var v InventoryItemView
		var statsRaw []byte
		if err := rows.Scan(&v.ID, &v.ItemID, &v.Name, &v.Type, &v.Category,
			&v.Quantity, &v.InstanceID, &v.AttachedTo, &v.Wear, &statsRaw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(statsRaw, &v.Stats); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// BuyItem purchases quantity units of a catalog item. Machinery lands
// in the inventory as one row per unit, each with its own instance id
// and zero wear. Seeds skip the inventory entirely and are credited to
// the silo's seed bucket in kilograms, in the same transaction as the
// payment.
func (s *Service) BuyItem(ctx context.Context, userID, itemID, quantity int64) (BuyItemResult, error) {
	var out BuyItemResult
	out.ItemID = itemID
	out.Quantity = quantity
	if quantity <= 0 {
		return out, fmt.Errorf("quantity must be > 0")
	}

	err := s.withTx(ctx, func(tx pgx.Tx) error {
		money, err := lockPlayer(ctx, tx, userID)
		if err != nil {
			return err
		}
		item, err := catalogItemTx(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if item.Type == ItemProduce {
			return fmt.Errorf("%w: %s is not for sale", ErrItemNotFound, item.Name)
		}

		total := item.Price.Mul(decimal.NewFromInt(quantity))
		if money.LessThan(total) {
			return fmt.Errorf("%w: %s costs %s, balance %s", ErrInsufficientFunds, item.Name, total, money)
		}
		newBalance := money.Sub(total)
		if _, err := tx.Exec(ctx, `
			UPDATE game.players SET money = $1 WHERE id = $2
		`, newBalance, userID); err != nil {
			return err
		}

		if item.Type == ItemSeed {
			if err := creditSiloTx(ctx, tx, userID, BucketSeeds, item.ID, quantity); err != nil {
				return err
			}
		} else {
			for i := int64(0); i < quantity; i++ {
				if _, err := tx.Exec(ctx, `
					INSERT INTO game.inventory (user_id, item_id, quantity, instance_id, wear)
					VALUES ($1, $2, 1, $3, 0)
				`, userID, item.ID, uuid.NewString()); err != nil {
					return err
				}
			}
		}

		if err := appendLedgerEntries(ctx, tx, userID, "buy_item", total.Neg()); err != nil {
			return err
		}
		out.TotalCost = total
		out.NewBalance = newBalance
		return nil
	})
	if err != nil {
		return out, err
	}
	s.log.Info("item purchased", "user_id", userID, "item_id", itemID,
		"quantity", quantity, "cost", out.TotalCost.String())
	return out, nil
}

// EquipImplement attaches an owned implement to an owned tractor. A
// tractor carries at most one implement, and an implement hangs off at
// most one tractor; the power requirement is checked against the
// tractor's horsepower.
func (s *Service) EquipImplement(ctx context.Context, userID, implementInvID, tractorInvID int64) error {
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		imp, err := lockInventoryRowTx(ctx, tx, userID, implementInvID)
		if err != nil {
			return err
		}
		if imp.itemType != ItemImplement {
			return fmt.Errorf("%w: %s is not an implement", ErrWrongEquipment, imp.name)
		}
		if imp.attachedTo != nil {
			return fmt.Errorf("%w: %s", ErrAlreadyAttached, imp.name)
		}

		tractor, err := lockInventoryRowTx(ctx, tx, userID, tractorInvID)
		if err != nil {
			return err
		}
		if tractor.itemType != ItemTractor {
			return fmt.Errorf("%w: %s is not a tractor", ErrWrongEquipment, tractor.name)
		}
		if tractor.instanceID == nil {
			return fmt.Errorf("%w: tractor has no instance id", ErrWrongEquipment)
		}

		var occupied int
		if err := tx.QueryRow(ctx, `
			SELECT COUNT(1) FROM game.inventory
			WHERE user_id = $1 AND attached_to = $2
		`, userID, *tractor.instanceID).Scan(&occupied); err != nil {
			return err
		}
		if occupied > 0 {
			return fmt.Errorf("%w: %s already carries an implement", ErrAlreadyAttached, tractor.name)
		}

		if tractor.stats.HP < imp.stats.ReqHP {
			return fmt.Errorf("%w: %s needs %.0f hp, %s has %.0f hp",
				ErrInsufficientPower, imp.name, imp.stats.ReqHP, tractor.name, tractor.stats.HP)
		}

		_, err = tx.Exec(ctx, `
			UPDATE game.inventory SET attached_to = $1 WHERE id = $2
		`, *tractor.instanceID, implementInvID)
		return err
	})
	if err != nil {
		return err
	}
	s.log.Info("implement equipped", "user_id", userID,
		"implement_inv_id", implementInvID, "tractor_inv_id", tractorInvID)
	return nil
}

// UnequipImplement detaches an implement from whatever it is attached
// to. Detaching an already loose implement is a no-op.
func (s *Service) UnequipImplement(ctx context.Context, userID, implementInvID int64) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		imp, err := lockInventoryRowTx(ctx, tx, userID, implementInvID)
		if err != nil {
			return err
		}
		if imp.itemType != ItemImplement {
			return fmt.Errorf("%w: %s is not an implement", ErrWrongEquipment, imp.name)
		}
		if imp.attachedTo == nil {
			return nil
		}
		_, err = tx.Exec(ctx, `
			UPDATE game.inventory SET attached_to = NULL WHERE id = $1
		`, implementInvID)
		return err
	})
}

// RepairEquipment resets a machine's wear to zero for a price
// proportional to both the catalog price and the accumulated wear.
func (s *Service) RepairEquipment(ctx context.Context, userID, invID int64) (RepairResult, error) {
	var out RepairResult
	out.InventoryID = invID
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		money, err := lockPlayer(ctx, tx, userID)
		if err != nil {
			return err
		}
		row, err := lockInventoryRowTx(ctx, tx, userID, invID)
		if err != nil {
			return err
		}
		if row.wear <= 0 {
			return ErrNoRepairNeeded
		}

		cost := RepairCost(row.price, row.wear)
		if money.LessThan(cost) {
			return fmt.Errorf("%w: repair costs %s, balance %s", ErrInsufficientFunds, cost, money)
		}
		newBalance := money.Sub(cost)
		if _, err := tx.Exec(ctx, `
			UPDATE game.players SET money = $1 WHERE id = $2
		`, newBalance, userID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE game.inventory SET wear = 0 WHERE id = $1
		`, invID); err != nil {
			return err
		}
		if err := appendLedgerEntries(ctx, tx, userID, "repair_equipment", cost.Neg()); err != nil {
			return err
		}
		out.Cost = cost
		out.NewBalance = newBalance
		return nil
	})
	if err != nil {
		return out, err
	}
	s.log.Info("equipment repaired", "user_id", userID, "inventory_id", invID, "cost", out.Cost.String())
	return out, nil
}

type inventoryRow struct {
	id         int64
	itemID     int64
	name       string
	itemType   string
	price      decimal.Decimal
	stats      StatBlock
	instanceID *string
	attachedTo *string
	wear       float64
}

func lockInventoryRowTx(ctx context.Context, tx pgx.Tx, userID, invID int64) (inventoryRow, error) {
	var r inventoryRow
	var statsRaw []byte
	err := tx.QueryRow(ctx, `
		SELECT i.id, i.item_id, it.name, it.type, it.price,
		       it.stats, i.instance_id, i.attached_to, i.wear
		FROM game.inventory i
		JOIN game.items it ON it.id = i.item_id
		WHERE i.id = $1 AND i.user_id = $2
		FOR UPDATE OF i
	`, invID, userID).Scan(&r.id, &r.itemID, &r.name, &r.itemType, &r.price,
		&statsRaw, &r.instanceID, &r.attachedTo, &r.wear)
	if err == pgx.ErrNoRows {
		return r, fmt.Errorf("%w: inventory %d", ErrItemNotFound, invID)
	}
	if err != nil {
		return r, err
	}
	if err := json.Unmarshal(statsRaw, &r.stats); err != nil {
		return r, fmt.Errorf("decode inventory stats: %w", err)
	}
	return r, nil
}
