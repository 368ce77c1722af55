package scoring

import (
	"math"

	"github.com/patrimoine-app/patrimoine/internal/model"
)

// Label breakpoints on the 0-100 total, inclusive upper bounds. Fixed, not
// configurable.
const (
	prudentMax   = 30
	neutreMax    = 55
	dynamiqueMax = 75
)

// Score computes the five weighted dimension scores and the aggregate
// profile label from raw onboarding answers. Pure and total: safe for
// concurrent use, never errors, missing answers fall back to the per-category
// defaults documented in the mapping tables.
func Score(a model.OnboardingAnswers) model.RiskProfileResult {
	tolerance := roundMean(6, // 0-30
		Map(CategoryMaxLoss, a.MaxAcceptableLoss),
		Map(CategoryVolatilityReaction, a.VolatilityReaction),
		Map(CategoryRiskVision, a.RiskVision),
	)
	capacity := roundMean(5, // 0-25
		Map(CategoryIncomeStability, a.IncomeStability),
		Map(CategorySafetyMonths, a.SafetyMonths),
		Map(CategoryLossImpact, a.LossImpact),
	)

	// The panic-selling flag contributes 0 or 5, nothing in between. An
	// unanswered flag counts as no history.
	panicScore := 5
	if a.HasPanicSold != nil && *a.HasPanicSold {
		panicScore = 0
	}
	behavior := roundMean(5, // 0-25
		panicScore,
		Map(CategoryFOMO, a.FOMO),
		Map(CategoryEmotionalStability, a.EmotionalStability),
		Map(CategoryGainReaction, a.GainReaction),
	)

	horizon := HorizonScore(a.InvestmentHorizon)
	knowledge := KnowledgeScore(a)

	total := tolerance + capacity + behavior + horizon + knowledge

	return model.RiskProfileResult{
		ScoreTolerance: tolerance,
		ScoreCapacity:  capacity,
		ScoreBehavior:  behavior,
		ScoreHorizon:   horizon,
		ScoreKnowledge: knowledge,
		ScoreTotal:     total,
		RiskProfile:    LabelFor(total),
	}
}

// LabelFor maps a 0-100 total to its French profile tier.
func LabelFor(total int) model.RiskProfileLabel {
	switch {
	case total <= prudentMax:
		return model.RiskProfilePrudent
	case total <= neutreMax:
		return model.RiskProfileNeutre
	case total <= dynamiqueMax:
		return model.RiskProfileDynamique
	default:
		return model.RiskProfileTresDynamik
	}
}

// roundMean averages the sub-scores and scales by weight, rounding half away
// from zero.
func roundMean(weight float64, subs ...int) int {
	var sum int
	for _, v := range subs {
		sum += v
	}
	mean := float64(sum) / float64(len(subs))
	return int(math.Round(mean * weight))
}
