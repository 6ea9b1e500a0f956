package game

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// The silo is a keyed ledger: one row per (user, bucket, item) with a
// strictly positive quantity. Reaching zero deletes the row, so
// existence checks double as "has any stock" checks.

func validBucket(bucket string) error {
	if bucket != BucketSeeds && bucket != BucketProduce {
		return fmt.Errorf("%w: unknown silo bucket %q", ErrItemNotFound, bucket)
	}
	return nil
}

// siloQuantityForUpdateTx locks the silo row (if any) and returns the
// stored quantity, zero when absent.
func siloQuantityForUpdateTx(ctx context.Context, tx pgx.Tx, userID int64, bucket string, itemID int64) (int64, error) {
	var qty int64
	err := tx.QueryRow(ctx, `
		SELECT quantity_kg FROM game.silo
		WHERE user_id = $1 AND bucket = $2 AND item_id = $3
		FOR UPDATE
	`, userID, bucket, itemID).Scan(&qty)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	return qty, err
}

func creditSiloTx(ctx context.Context, tx pgx.Tx, userID int64, bucket string, itemID, kg int64) error {
	if kg <= 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO game.silo (user_id, bucket, item_id, quantity_kg)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, bucket, item_id)
		DO UPDATE SET quantity_kg = game.silo.quantity_kg + EXCLUDED.quantity_kg
	`, userID, bucket, itemID, kg)
	return err
}

// debitSiloTx removes kg from a silo row the caller has already locked
// and verified. The row is deleted when it would hit zero.
func debitSiloTx(ctx context.Context, tx pgx.Tx, userID int64, bucket string, itemID, kg int64) error {
	cmd, err := tx.Exec(ctx, `
		DELETE FROM game.silo
		WHERE user_id = $1 AND bucket = $2 AND item_id = $3 AND quantity_kg = $4
	`, userID, bucket, itemID, kg)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() > 0 {
		return nil
	}
	cmd, err = tx.Exec(ctx, `
		UPDATE game.silo
		SET quantity_kg = quantity_kg - $4
		WHERE user_id = $1 AND bucket = $2 AND item_id = $3 AND quantity_kg > $4
	`, userID, bucket, itemID, kg)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: need %d kg", ErrInsufficientStock, kg)
	}
	return nil
}

// AddToSilo credits quantity to a user's silo bucket.
func (s *Service) AddToSilo(ctx context.Context, userID int64, bucket string, itemID, kg int64) error {
	if err := validBucket(bucket); err != nil {
		return err
	}
	if kg <= 0 {
		return fmt.Errorf("quantity must be > 0")
	}
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := lockPlayer(ctx, tx, userID); err != nil {
			return err
		}
		return creditSiloTx(ctx, tx, userID, bucket, itemID, kg)
	})
}

// RemoveFromSilo debits quantity from a user's silo bucket, failing
// with the available amount when the silo is short and leaving state
// unchanged.
func (s *Service) RemoveFromSilo(ctx context.Context, userID int64, bucket string, itemID, kg int64) error {
	if err := validBucket(bucket); err != nil {
		return err
	}
	if kg <= 0 {
		return fmt.Errorf("quantity must be > 0")
	}
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := lockPlayer(ctx, tx, userID); err != nil {
			return err
		}
		have, err := siloQuantityForUpdateTx(ctx, tx, userID, bucket, itemID)
		if err != nil {
			return err
		}
		if have < kg {
			return fmt.Errorf("%w: need %d kg, have %d kg", ErrInsufficientStock, kg, have)
		}
		return debitSiloTx(ctx, tx, userID, bucket, itemID, kg)
	})
}

// GetSilo returns the user's silo contents enriched with catalog names.
func (s *Service) GetSilo(ctx context.Context, userID int64) (SiloView, error) {
	out := SiloView{Seeds: []SiloEntry{}, Produce: []SiloEntry{}}
	rows, err := s.db.Query(ctx, `
		SELECT s.bucket, s.item_id, it.name, it.category, s.quantity_kg
		FROM game.silo s
		JOIN game.items it ON it.id = s.item_id
		WHERE s.user_id = $1
		ORDER BY s.bucket, it.name
	`, userID)
	if err != nil {
		return out, err
	}
	defer rows.Close()
	for rows.Next() {
		var bucket string
		var e SiloEntry
		if err := rows.Scan(&bucket, &e.ItemID, &e.Name, &e.Category, &e.QuantityKg); err != nil {
			return out, err
		}
		switch bucket {
		case BucketSeeds:
			out.Seeds = append(out.Seeds, e)
		case BucketProduce:
			out.Produce = append(out.Produce, e)
		}
	}
	return out, rows.Err()
}
