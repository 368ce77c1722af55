// Package scoring implements the five-dimension risk profile score computed
// from raw onboarding answers. Every function here is total: missing or
// unrecognized input resolves to a documented default, never to an error, so
// the onboarding flow always yields a usable profile.
package scoring

import (
	"math"
	"strings"

	"github.com/patrimoine-app/patrimoine/internal/frtext"
	"github.com/patrimoine-app/patrimoine/internal/model"
)

// Category identifies one table-mapped onboarding question.
type Category string

const (
	CategoryMaxLoss            Category = "max_loss"
	CategoryRiskVision         Category = "risk_vision"
	CategoryVolatilityReaction Category = "volatility_reaction"
	CategoryIncomeStability    Category = "income_stability"
	CategorySafetyMonths       Category = "safety_months"
	CategoryLossImpact         Category = "loss_impact"
	CategoryFOMO               Category = "fomo"
	CategoryEmotionalStability Category = "emotional_stability"
	CategoryGainReaction       Category = "gain_reaction"
)

// table maps exact answer strings to sub-scores in 0-5. The default applies
// to the empty answer and to any answer not in the table; it is part of the
// contract, documented per category below.
type table struct {
	values map[string]int
	def    int
}

var tables = map[Category]table{
	// Default 2: an unknown loss appetite is read as moderately cautious.
	CategoryMaxLoss: {
		values: map[string]int{
			"Aucune perte": 0,
			"5%":           1,
			"10%":          2,
			"15%":          3,
			"20%":          4,
			"30% ou plus":  5,
		},
		def: 2,
	},
	// Default 2.
	CategoryRiskVision: {
		values: map[string]int{
			"Un danger à éviter":        0,
			"Une source d'inquiétude":   1,
			"Un mal nécessaire":         2,
			"Une opportunité de gain":   4,
			"Une chance à saisir":       5,
		},
		def: 2,
	},
	// Default 2.
	CategoryVolatilityReaction: {
		values: map[string]int{
			"Je vends tout":          0,
			"Je vends une partie":    1,
			"J'attends sans bouger":  3,
			"Je renforce ma position": 5,
		},
		def: 2,
	},
	// Default 3: income assumed neither fragile nor rock-solid.
	CategoryIncomeStability: {
		values: map[string]int{
			"Très instables":   0,
			"Plutôt instables": 1,
			"Variables":        2,
			"Plutôt stables":   4,
			"Très stables":     5,
		},
		def: 3,
	},
	// Default 2.
	CategorySafetyMonths: {
		values: map[string]int{
			"Moins de 3 mois":  0,
			"3-6 mois":         2,
			"6-12 mois":        4,
			"Plus de 12 mois":  5,
		},
		def: 2,
	},
	// Default 3.
	CategoryLossImpact: {
		values: map[string]int{
			"Très important": 0,
			"Important":      1,
			"Modéré":         3,
			"Faible":         4,
			"Aucun impact":   5,
		},
		def: 3,
	},
	// Default 2: FOMO frequency unknown is read as "parfois".
	CategoryFOMO: {
		values: map[string]int{
			"Très souvent": 0,
			"Souvent":      1,
			"Parfois":      2,
			"Rarement":     4,
			"Jamais":       5,
		},
		def: 2,
	},
	// Default 3.
	CategoryEmotionalStability: {
		values: map[string]int{
			"Très émotif":  0,
			"Plutôt émotif": 1,
			"Neutre":       3,
			"Plutôt calme": 4,
			"Très calme":   5,
		},
		def: 3,
	},
	// Default 2.
	CategoryGainReaction: {
		values: map[string]int{
			"Je retire tout":         1,
			"Je sécurise une partie": 3,
			"Je laisse courir":       4,
			"J'investis davantage":   5,
			"Je ne sais pas":         2,
		},
		def: 2,
	},
}

// Map translates one onboarding answer into its 0-5 sub-score. Lookups are
// exact-string keyed (whitespace trimmed); anything else falls back to the
// category default. Unknown categories return 3 to stay total.
func Map(cat Category, value string) int {
	t, ok := tables[cat]
	if !ok {
		return 3
	}
	if v, ok := t.values[strings.TrimSpace(value)]; ok {
		return v
	}
	return t.def
}

// HorizonScore buckets the horizon phrase to 0-10. Substring checks run
// most-specific first: "plus de 10 ans" must not fall into a shorter bucket.
// Empty or unmatched input scores 5.
func HorizonScore(horizon string) int {
	s := frtext.Fold(horizon)
	switch {
	case strings.Contains(s, "plus de 10"):
		return 10
	case strings.Contains(s, "5-10"):
		return 8
	case strings.Contains(s, "3-5"):
		return 5
	case strings.Contains(s, "1-2"):
		return 2
	case strings.Contains(s, "moins d'1"), strings.Contains(s, "moins de 1"):
		return 0
	default:
		return 5
	}
}

// KnowledgeScore averages the six 1-5 domain sliders (a missing slider
// counts as 1), scales the mean to a 0-10 base, shifts it by one point for
// the experience bucket, and clamps to [0,10].
func KnowledgeScore(a model.OnboardingAnswers) int {
	sliders := [6]int{
		a.KnowledgeStocks,
		a.KnowledgeBonds,
		a.KnowledgeFunds,
		a.KnowledgeRealEstate,
		a.KnowledgeCrypto,
		a.KnowledgeDerivatives,
	}

	var sum int
	for _, v := range sliders {
		if v < 1 {
			v = 1
		}
		if v > 5 {
			v = 5
		}
		sum += v
	}
	mean := float64(sum) / float64(len(sliders)) // 1..5
	score := (mean - 1) / 4 * 10                 // 0..10

	exp := frtext.Fold(a.ExperienceBucket)
	switch {
	case strings.Contains(exp, "plus d'1 an"), strings.Contains(exp, "more than 1 year"):
		score++
	case strings.Contains(exp, "moins de 6 mois"), strings.Contains(exp, "less than 6 months"):
		score--
	}

	return int(math.Round(clamp(score, 0, 10)))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
