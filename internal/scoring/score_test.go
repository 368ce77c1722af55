package scoring

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/patrimoine-app/patrimoine/internal/model"
)

func TestScoreEmptyAnswers(t *testing.T) {
	t.Parallel()

	got := Score(model.OnboardingAnswers{})

	// Every dimension falls back to its documented default.
	assert.Equal(t, 12, got.ScoreTolerance) // mean(2,2,2) x 6
	assert.Equal(t, 13, got.ScoreCapacity)  // round(mean(3,2,3) x 5)
	assert.Equal(t, 15, got.ScoreBehavior)  // mean(5,2,3,2) x 5
	assert.Equal(t, 5, got.ScoreHorizon)
	assert.Equal(t, 0, got.ScoreKnowledge)
	assert.Equal(t, 45, got.ScoreTotal)
	assert.Equal(t, model.RiskProfileNeutre, got.RiskProfile)
}

func TestScoreTotalIsSumOfDimensions(t *testing.T) {
	t.Parallel()

	yes := true
	answers := []model.OnboardingAnswers{
		{},
		{MaxAcceptableLoss: "30% ou plus", RiskVision: "Une chance à saisir", VolatilityReaction: "Je renforce ma position"},
		{HasPanicSold: &yes, FOMO: "Très souvent", EmotionalStability: "Très émotif"},
		{
			InvestmentHorizon: "Plus de 10 ans",
			KnowledgeStocks:   5, KnowledgeBonds: 4, KnowledgeFunds: 3,
			KnowledgeRealEstate: 2, KnowledgeCrypto: 1, KnowledgeDerivatives: 5,
			ExperienceBucket: "Plus d'1 an",
		},
		{IncomeStability: "Très stables", SafetyMonths: "Plus de 12 mois", LossImpact: "Aucun impact"},
	}

	for i, a := range answers {
		t.Run(fmt.Sprintf("case_%d", i), func(t *testing.T) {
			t.Parallel()
			r := Score(a)

			sum := r.ScoreTolerance + r.ScoreCapacity + r.ScoreBehavior + r.ScoreHorizon + r.ScoreKnowledge
			assert.Equal(t, sum, r.ScoreTotal)

			assert.GreaterOrEqual(t, r.ScoreTolerance, 0)
			assert.LessOrEqual(t, r.ScoreTolerance, 30)
			assert.GreaterOrEqual(t, r.ScoreCapacity, 0)
			assert.LessOrEqual(t, r.ScoreCapacity, 25)
			assert.GreaterOrEqual(t, r.ScoreBehavior, 0)
			assert.LessOrEqual(t, r.ScoreBehavior, 25)
			assert.GreaterOrEqual(t, r.ScoreHorizon, 0)
			assert.LessOrEqual(t, r.ScoreHorizon, 10)
			assert.GreaterOrEqual(t, r.ScoreKnowledge, 0)
			assert.LessOrEqual(t, r.ScoreKnowledge, 10)
		})
	}
}

func TestScoreMaximalAnswers(t *testing.T) {
	t.Parallel()

	no := false
	a := model.OnboardingAnswers{
		MaxAcceptableLoss:  "30% ou plus",
		VolatilityReaction: "Je renforce ma position",
		RiskVision:         "Une chance à saisir",
		IncomeStability:    "Très stables",
		SafetyMonths:       "Plus de 12 mois",
		LossImpact:         "Aucun impact",
		HasPanicSold:       &no,
		FOMO:               "Jamais",
		EmotionalStability: "Très calme",
		GainReaction:       "J'investis davantage",
		InvestmentHorizon:  "Plus de 10 ans",
		KnowledgeStocks:    5, KnowledgeBonds: 5, KnowledgeFunds: 5,
		KnowledgeRealEstate: 5, KnowledgeCrypto: 5, KnowledgeDerivatives: 5,
		ExperienceBucket: "Plus d'1 an",
	}

	got := Score(a)
	assert.Equal(t, 100, got.ScoreTotal)
	assert.Equal(t, model.RiskProfileTresDynamik, got.RiskProfile)
}

func TestScorePanicFlagContribution(t *testing.T) {
	t.Parallel()

	yes, no := true, false

	sold := Score(model.OnboardingAnswers{HasPanicSold: &yes})
	clean := Score(model.OnboardingAnswers{HasPanicSold: &no})
	unanswered := Score(model.OnboardingAnswers{})

	// Flag swings the behavior mean by 5/4 x 5 ~ 6 points.
	assert.Equal(t, clean.ScoreBehavior, unanswered.ScoreBehavior)
	assert.Less(t, sold.ScoreBehavior, clean.ScoreBehavior)
}

func TestLabelBreakpoints(t *testing.T) {
	t.Parallel()

	tests := []struct {
		total int
		want  model.RiskProfileLabel
	}{
		{0, model.RiskProfilePrudent},
		{30, model.RiskProfilePrudent},
		{31, model.RiskProfileNeutre},
		{55, model.RiskProfileNeutre},
		{56, model.RiskProfileDynamique},
		{75, model.RiskProfileDynamique},
		{76, model.RiskProfileTresDynamik},
		{100, model.RiskProfileTresDynamik},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("total_%d", tt.total), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, LabelFor(tt.total))
		})
	}
}
