// Package strategy classifies onboarding signals into one of four investor
// archetypes and carries each archetype's default portfolio thresholds. The
// classifier is a distinct scoring system from the risk profile score: it
// selects thresholds, not the profile label.
package strategy

import (
	"strings"

	"github.com/patrimoine-app/patrimoine/internal/frtext"
	"github.com/patrimoine-app/patrimoine/internal/model"
)

// archetypeDefaults are process-wide constants, never mutated after init.
// Thresholds loosen monotonically from Defensive to HighVolatility.
var archetypeDefaults = map[model.Archetype]model.StrategyThresholds{
	model.ArchetypeDefensive:      {CashTargetPct: 15, MaxPositionPct: 7, MaxAssetClassPct: 70},
	model.ArchetypeBalanced:       {CashTargetPct: 10, MaxPositionPct: 10, MaxAssetClassPct: 80},
	model.ArchetypeGrowth:         {CashTargetPct: 5, MaxPositionPct: 15, MaxAssetClassPct: 85},
	model.ArchetypeHighVolatility: {CashTargetPct: 2, MaxPositionPct: 25, MaxAssetClassPct: 90},
}

// ArchetypeThresholds returns a copy of the archetype's default thresholds.
// Callers may mutate the returned value freely; unknown archetypes get the
// Balanced defaults.
func ArchetypeThresholds(a model.Archetype) model.StrategyThresholds {
	t, ok := archetypeDefaults[a]
	if !ok {
		return archetypeDefaults[model.ArchetypeBalanced]
	}
	return t
}

// ArchetypeFromLabel maps a legacy free-text risk profile label to an
// archetype by substring. "très dynamique" and "high" are checked before
// "dynamique" and "growth" because the former contain the latter. Returns
// false when the label matches nothing.
func ArchetypeFromLabel(label string) (model.Archetype, bool) {
	s := frtext.Fold(label)
	switch {
	case s == "":
		return "", false
	case strings.Contains(s, "tres dynamique"), strings.Contains(s, "high"):
		return model.ArchetypeHighVolatility, true
	case strings.Contains(s, "prudent"), strings.Contains(s, "defensif"):
		return model.ArchetypeDefensive, true
	case strings.Contains(s, "dynamique"), strings.Contains(s, "growth"):
		return model.ArchetypeGrowth, true
	case strings.Contains(s, "neutre"), strings.Contains(s, "equilibre"), strings.Contains(s, "balanced"):
		return model.ArchetypeBalanced, true
	default:
		return "", false
	}
}
