package game

import (
	"errors"
	"testing"
)

func tractorWith(category string, impEff, speedMult float64) machineRow {
	return machineRow{
		invID:       1,
		itemName:    "Test Tractor",
		itemType:    ItemTractor,
		stats:       StatBlock{HP: 150, SpeedMultiplier: speedMult},
		impCategory: &category,
		impStats:    StatBlock{Efficiency: impEff},
		hasImp:      true,
	}
}

func heavyWith(operation string, eff float64) machineRow {
	return machineRow{
		invID:    2,
		itemName: "Test Machine",
		itemType: ItemHeavy,
		stats:    StatBlock{Efficiency: eff, Operation: operation},
	}
}

func TestResolveCapabilityTractor(t *testing.T) {
	cases := []struct {
		action   string
		category string
	}{
		{ActionClean, CategoryCleaner},
		{ActionPlow, CategoryPlow},
		{ActionSow, CategorySeeder},
	}
	for _, tc := range cases {
		capability, err := resolveCapability(tc.action, tractorWith(tc.category, 2.0, 1.5))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.action, err)
		}
		// Implement efficiency times tractor speed multiplier.
		if capability.Efficiency != 3.0 {
			t.Fatalf("%s: efficiency = %v, want 3.0", tc.action, capability.Efficiency)
		}
	}
}

func TestResolveCapabilityBadSpeedMultiplier(t *testing.T) {
	capability, err := resolveCapability(ActionPlow, tractorWith(CategoryPlow, 2.0, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if capability.Efficiency != 2.0 {
		t.Fatalf("efficiency = %v, want 2.0 (multiplier defaults to 1)", capability.Efficiency)
	}
}

func TestResolveCapabilityHeavy(t *testing.T) {
	capability, err := resolveCapability(ActionHarvest, heavyWith(OperationHarvesting, 2.0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if capability.Efficiency != 2.0 {
		t.Fatalf("efficiency = %v, want 2.0", capability.Efficiency)
	}

	capability, err = resolveCapability(ActionClean, heavyWith(OperationCleaning, 1.5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if capability.Efficiency != 1.5 {
		t.Fatalf("efficiency = %v, want 1.5", capability.Efficiency)
	}
}

func TestResolveCapabilityMismatches(t *testing.T) {
	// A harvester cannot plow, a plow tractor cannot harvest, a cleaning
	// machine cannot sow.
	cases := []struct {
		action string
		m      machineRow
	}{
		{ActionPlow, heavyWith(OperationHarvesting, 2.0)},
		{ActionHarvest, tractorWith(CategoryPlow, 2.0, 1.5)},
		{ActionSow, heavyWith(OperationCleaning, 1.5)},
		{ActionClean, tractorWith(CategoryPlow, 2.0, 1.5)},
		{ActionPlow, machineRow{itemType: ItemTractor, itemName: "Bare Tractor"}},
	}
	for _, tc := range cases {
		if _, err := resolveCapability(tc.action, tc.m); !errors.Is(err, ErrWrongEquipment) {
			t.Fatalf("%s on %s %s: err = %v, want ErrWrongEquipment",
				tc.action, tc.m.itemType, tc.m.itemName, err)
		}
	}
}

func TestActionPrecondition(t *testing.T) {
	allowed := map[string][]string{
		ActionClean:   {ConditionRaw},
		ActionPlow:    {ConditionRaw, ConditionCleared},
		ActionSow:     {ConditionPlowed},
		ActionHarvest: {ConditionMature},
	}
	conditions := []string{ConditionRaw, ConditionCleared, ConditionPlowed, ConditionGrowing, ConditionMature}
	for action, oks := range allowed {
		okSet := map[string]bool{}
		for _, c := range oks {
			okSet[c] = true
		}
		for _, c := range conditions {
			err := actionPrecondition(action, c)
			if okSet[c] && err != nil {
				t.Fatalf("%s from %s: unexpected error: %v", action, c, err)
			}
			if !okSet[c] && !errors.Is(err, ErrInvalidCondition) {
				t.Fatalf("%s from %s: err = %v, want ErrInvalidCondition", action, c, err)
			}
		}
	}
}
