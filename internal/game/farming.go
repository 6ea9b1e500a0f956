package game

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Capability is the resolved work capability of the selected tool: a
// tractor with its attached implement, or a self-contained heavy
// machine. It replaces per-action type/category string checks.
type Capability struct {
	Efficiency   float64
	MachineInvID int64
}

type machineRow struct {
	invID       int64
	itemName    string
	itemType    string
	stats       StatBlock
	impInvID    *int64
	impCategory *string
	impStats    StatBlock
	hasImp      bool
}

// fetchMachineForUpdate loads the tool inventory row together with the
// implement currently attached to it, locking the tool row.
func fetchMachineForUpdate(ctx context.Context, tx pgx.Tx, userID, toolInvID int64) (machineRow, error) {
	var m machineRow
	var statsRaw, impStatsRaw []byte
	err := tx.QueryRow(ctx, `
		SELECT i.id, it.name, it.type, it.stats,
		       imp_i.id, imp_it.category, imp_it.stats
		FROM game.inventory i
		JOIN game.items it ON it.id = i.item_id
		LEFT JOIN game.inventory imp_i
		       ON imp_i.attached_to = i.instance_id AND imp_i.user_id = i.user_id
		LEFT JOIN game.items imp_it ON imp_it.id = imp_i.item_id
		WHERE i.id = $1 AND i.user_id = $2
		FOR UPDATE OF i
	`, toolInvID, userID).Scan(&m.invID, &m.itemName, &m.itemType, &statsRaw,
		&m.impInvID, &m.impCategory, &impStatsRaw)
	if err == pgx.ErrNoRows {
		return m, fmt.Errorf("%w: tool inventory %d", ErrItemNotFound, toolInvID)
	}
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(statsRaw, &m.stats); err != nil {
		return m, fmt.Errorf("decode tool stats: %w", err)
	}
	if len(impStatsRaw) > 0 {
		if err := json.Unmarshal(impStatsRaw, &m.impStats); err != nil {
			return m, fmt.Errorf("decode implement stats: %w", err)
		}
		m.hasImp = true
	}
	return m, nil
}

// resolveCapability validates the tool against the requested action and
// returns its effective work rate. Implement-based actions require the
// right implement category on the attached implement; clean and harvest
// accept a heavy machine tagged with the matching operation.
func resolveCapability(action string, m machineRow) (Capability, error) {
	tractorRate := func() float64 {
		sm := m.stats.SpeedMultiplier
		if sm <= 0 {
			sm = 1
		}
		return m.impStats.Efficiency * sm
	}
	attachedCategory := ""
	if m.hasImp && m.impCategory != nil {
		attachedCategory = *m.impCategory
	}

	switch action {
	case ActionClean:
		if m.itemType == ItemHeavy && m.stats.Operation == OperationCleaning {
			return Capability{Efficiency: m.stats.Efficiency, MachineInvID: m.invID}, nil
		}
		if m.itemType == ItemTractor && attachedCategory == CategoryCleaner {
			return Capability{Efficiency: tractorRate(), MachineInvID: m.invID}, nil
		}
		return Capability{}, fmt.Errorf("%w: cleaning needs a cleaning machine or a tractor with a cleaner attached, %s will not do", ErrWrongEquipment, m.itemName)
	case ActionPlow:
		if m.itemType == ItemTractor && attachedCategory == CategoryPlow {
			return Capability{Efficiency: tractorRate(), MachineInvID: m.invID}, nil
		}
		return Capability{}, fmt.Errorf("%w: plowing needs a tractor with a plow attached", ErrWrongEquipment)
	case ActionSow:
		if m.itemType == ItemTractor && attachedCategory == CategorySeeder {
			return Capability{Efficiency: tractorRate(), MachineInvID: m.invID}, nil
		}
		return Capability{}, fmt.Errorf("%w: sowing needs a tractor with a seeder attached", ErrWrongEquipment)
	case ActionHarvest:
		if m.itemType == ItemHeavy && m.stats.Operation == OperationHarvesting {
			return Capability{Efficiency: m.stats.Efficiency, MachineInvID: m.invID}, nil
		}
		return Capability{}, fmt.Errorf("%w: harvesting needs a harvester", ErrWrongEquipment)
	default:
		return Capability{}, fmt.Errorf("%w: unknown action %q", ErrInvalidCondition, action)
	}
}

// actionPrecondition is the state table: which parcel condition each
// action may start from.
func actionPrecondition(action, condition string) error {
	ok := false
	switch action {
	case ActionClean:
		ok = condition == ConditionRaw
	case ActionPlow:
		ok = condition == ConditionRaw || condition == ConditionCleared
	case ActionSow:
		ok = condition == ConditionPlowed
	case ActionHarvest:
		ok = condition == ConditionMature
	}
	if !ok {
		return fmt.Errorf("%w: cannot %s land in condition %q", ErrInvalidCondition, action, condition)
	}
	return nil
}

// StartAction begins a timed field operation on an owned parcel. For
// sow the seed requirement is debited from the silo in the same
// transaction; a short silo aborts the whole start.
func (s *Service) StartAction(ctx context.Context, in StartActionInput) (StartActionResult, error) {
	var out StartActionResult
	out.LandID = in.LandID
	out.Action = in.Action

	switch in.Action {
	case ActionClean, ActionPlow, ActionSow, ActionHarvest:
	default:
		return out, fmt.Errorf("%w: unknown action %q", ErrInvalidCondition, in.Action)
	}

	err := s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := lockPlayer(ctx, tx, in.UserID); err != nil {
			return err
		}

		var ownerID *int64
		var condition string
		var areaSqm float64
		var opEnd *time.Time
		err := tx.QueryRow(ctx, `
			SELECT owner_id, condition, area_sqm, operation_end
			FROM game.lands
			WHERE id = $1
			FOR UPDATE
		`, in.LandID).Scan(&ownerID, &condition, &areaSqm, &opEnd)
		if err == pgx.ErrNoRows {
			return ErrLandNotFound
		}
		if err != nil {
			return err
		}
		if ownerID == nil || *ownerID != in.UserID {
			return ErrNotOwner
		}
		now := time.Now().UTC()
		if opEnd != nil && now.Before(*opEnd) {
			return fmt.Errorf("%w: %s remaining", ErrOperationInProgress, opEnd.Sub(now).Round(time.Second))
		}
		if err := actionPrecondition(in.Action, condition); err != nil {
			return err
		}

		machine, err := fetchMachineForUpdate(ctx, tx, in.UserID, in.ToolInvID)
		if err != nil {
			return err
		}
		capability, err := resolveCapability(in.Action, machine)
		if err != nil {
			return err
		}

		var cropID *int64
		if in.Action == ActionSow {
			seed, err := catalogItemTx(ctx, tx, in.SeedItemID)
			if err != nil {
				return err
			}
			if seed.Type != ItemSeed {
				return fmt.Errorf("%w: item %q is not a seed", ErrItemNotFound, seed.Name)
			}
			need := SeedRequirementKg(areaSqm, seed.Stats.SeedUsageKgHa)
			have, err := siloQuantityForUpdateTx(ctx, tx, in.UserID, BucketSeeds, seed.ID)
			if err != nil {
				return err
			}
			if have < need {
				return fmt.Errorf("%w: sowing needs %d kg of %s, silo has %d kg", ErrInsufficientSeeds, need, seed.Name, have)
			}
			if err := debitSiloTx(ctx, tx, in.UserID, BucketSeeds, seed.ID, need); err != nil {
				return err
			}
			cropID = &seed.ID
		}

		duration := OperationDuration(areaSqm, capability.Efficiency)
		end := now.Add(time.Duration(duration) * time.Second)
		if _, err := tx.Exec(ctx, `
			UPDATE game.lands
			SET operation_start = $1, operation_end = $2, operation_type = $3,
			    tool_inv_id = $4, current_crop_id = COALESCE($5, current_crop_id)
			WHERE id = $6
		`, now, end, in.Action, capability.MachineInvID, cropID, in.LandID); err != nil {
			return err
		}

		out.DurationSeconds = duration
		out.EndsAt = end
		return nil
	})
	if err != nil {
		return out, err
	}
	s.log.Info("operation started", "user_id", in.UserID, "land_id", in.LandID,
		"action", in.Action, "duration_s", out.DurationSeconds)
	return out, nil
}

// FinishOperation settles a finished operation window. Calling early,
// or calling again after settlement, is a no-op returning
// completed=false; the caller polls, the server clock decides.
func (s *Service) FinishOperation(ctx context.Context, userID, landID int64) (FinishResult, error) {
	var out FinishResult
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := lockPlayer(ctx, tx, userID); err != nil {
			return err
		}

		var ownerID, cropID, toolInvID *int64
		var condition string
		var areaSqm float64
		var opType *string
		var opEnd *time.Time
		err := tx.QueryRow(ctx, `
			SELECT owner_id, condition, area_sqm, operation_type, operation_end,
			       tool_inv_id, current_crop_id
			FROM game.lands
			WHERE id = $1
			FOR UPDATE
		`, landID).Scan(&ownerID, &condition, &areaSqm, &opType, &opEnd, &toolInvID, &cropID)
		if err == pgx.ErrNoRows {
			return ErrLandNotFound
		}
		if err != nil {
			return err
		}
		if ownerID == nil || *ownerID != userID {
			return ErrNotOwner
		}

		now := time.Now().UTC()
		if opType == nil || opEnd == nil || now.Before(*opEnd) {
			out.Completed = false
			out.NewCondition = condition
			return nil
		}

		switch *opType {
		case ActionClean:
			return s.settleSimpleTx(ctx, tx, landID, toolInvID, ConditionCleared, &out)
		case ActionPlow:
			return s.settleSimpleTx(ctx, tx, landID, toolInvID, ConditionPlowed, &out)
		case ActionSow:
			return s.settleSowTx(ctx, tx, landID, toolInvID, cropID, *opEnd, &out)
		case OpGrow:
			// Equivalent to the maturation sweep, scoped to one parcel.
			return s.settleSimpleTx(ctx, tx, landID, nil, ConditionMature, &out)
		case ActionHarvest:
			return s.settleHarvestTx(ctx, tx, userID, landID, toolInvID, cropID, areaSqm, &out)
		default:
			return fmt.Errorf("%w: unknown operation %q", ErrInvalidCondition, *opType)
		}
	})
	if err != nil {
		return out, err
	}
	if out.Completed {
		s.log.Info("operation finished", "user_id", userID, "land_id", landID,
			"new_condition", out.NewCondition, "yield_kg", out.YieldKg)
	}
	return out, nil
}

func (s *Service) settleSimpleTx(ctx context.Context, tx pgx.Tx, landID int64, toolInvID *int64, newCondition string, out *FinishResult) error {
	if err := wearToolTx(ctx, tx, toolInvID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE game.lands
		SET condition = $1, operation_start = NULL, operation_end = NULL,
		    operation_type = NULL, tool_inv_id = NULL
		WHERE id = $2
	`, newCondition, landID); err != nil {
		return err
	}
	out.Completed = true
	out.NewCondition = newCondition
	return nil
}

// settleSowTx re-arms the operation window as the seed-defined growth
// countdown. Growth is counted from the moment sowing finished, not
// from whenever the player got around to calling finish.
func (s *Service) settleSowTx(ctx context.Context, tx pgx.Tx, landID int64, toolInvID, cropID *int64, sowEnd time.Time, out *FinishResult) error {
	if cropID == nil {
		return fmt.Errorf("%w: sown land has no crop", ErrItemNotFound)
	}
	seed, err := catalogItemTx(ctx, tx, *cropID)
	if err != nil {
		return err
	}
	if err := wearToolTx(ctx, tx, toolInvID); err != nil {
		return err
	}
	growthEnd := sowEnd.Add(time.Duration(seed.Stats.GrowthTime) * time.Second)
	if _, err := tx.Exec(ctx, `
		UPDATE game.lands
		SET condition = $1, operation_start = $2, operation_end = $3,
		    operation_type = $4, tool_inv_id = NULL
		WHERE id = $5
	`, ConditionGrowing, sowEnd, growthEnd, OpGrow, landID); err != nil {
		return err
	}
	out.Completed = true
	out.NewCondition = ConditionGrowing
	out.GrowthEndsAt = &growthEnd
	return nil
}

func (s *Service) settleHarvestTx(ctx context.Context, tx pgx.Tx, userID, landID int64, toolInvID, cropID *int64, areaSqm float64, out *FinishResult) error {
	if cropID == nil {
		return fmt.Errorf("%w: harvested land has no crop", ErrItemNotFound)
	}
	seed, err := catalogItemTx(ctx, tx, *cropID)
	if err != nil {
		return err
	}

	var produceID int64
	err = tx.QueryRow(ctx, `
		SELECT id FROM game.items WHERE type = $1 AND category = $2
	`, ItemProduce, seed.Category).Scan(&produceID)
	if err == pgx.ErrNoRows {
		return fmt.Errorf("%w: no produce item for crop category %q", ErrItemNotFound, seed.Category)
	}
	if err != nil {
		return err
	}

	yieldKg := HarvestYieldKg(areaSqm, seed.Stats.YieldKgHa, s.yieldRoll())
	if err := creditSiloTx(ctx, tx, userID, BucketProduce, produceID, yieldKg); err != nil {
		return err
	}
	if err := wearToolTx(ctx, tx, toolInvID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE game.lands
		SET condition = $1, operation_start = NULL, operation_end = NULL,
		    operation_type = NULL, tool_inv_id = NULL, current_crop_id = NULL
		WHERE id = $2
	`, ConditionCleared, landID); err != nil {
		return err
	}
	out.Completed = true
	out.NewCondition = ConditionCleared
	out.YieldKg = yieldKg
	out.ProduceID = produceID
	return nil
}

// wearToolTx applies operation wear to the machine that did the work.
func wearToolTx(ctx context.Context, tx pgx.Tx, toolInvID *int64) error {
	if toolInvID == nil {
		return nil
	}
	_, err := tx.Exec(ctx, `
		UPDATE game.inventory
		SET wear = LEAST(wear + $1, $2)
		WHERE id = $3
	`, WearPerOperation, MaxWear, *toolInvID)
	return err
}

// CheckMaturation is the bulk growing->mature sweep. It is a single
// guarded UPDATE, so it is safe to run concurrently, repeatedly, and
// from any caller; parcels not in the exact growing-and-expired state
// are untouched.
func (s *Service) CheckMaturation(ctx context.Context) (MaturationResult, error) {
	cmd, err := s.db.Exec(ctx, `
		UPDATE game.lands
		SET condition = $1, operation_start = NULL, operation_end = NULL,
		    operation_type = NULL, tool_inv_id = NULL
		WHERE condition = $2 AND operation_end IS NOT NULL AND operation_end <= now()
	`, ConditionMature, ConditionGrowing)
	if err != nil {
		return MaturationResult{}, err
	}
	n := cmd.RowsAffected()
	if n > 0 {
		s.log.Info("maturation sweep", "matured", n)
	}
	return MaturationResult{Matured: n}, nil
}
