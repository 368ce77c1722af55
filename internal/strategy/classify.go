package strategy

import (
	"fmt"
	"strings"

	"github.com/patrimoine-app/patrimoine/internal/model"
)

// Classify maps three free-text onboarding signals to an archetype, its
// default thresholds, a confidence level and an ordered reasoning trail.
// Rules are evaluated in fixed priority order and the first match wins; they
// overlap by construction, so reordering them changes results.
//
// Pure and total: absent or unparseable signals fall back to the parser
// defaults and never produce an error.
func Classify(sig model.OnboardingSignals) model.StrategyResult {
	horizonRaw := strings.TrimSpace(sig.InvestmentHorizon)
	lossRaw := strings.TrimSpace(sig.MaxAcceptableLoss)

	horizon := ParseHorizonMonths(sig.InvestmentHorizon)
	loss := ParseLossPct(sig.MaxAcceptableLoss)
	resilience := ParseResilienceMonths(sig.FinancialResilience)

	res := model.StrategyResult{
		Confidence:       model.ConfidenceHigh,
		HorizonMonths:    horizon,
		LossPct:          loss,
		ResilienceMonths: resilience,
	}

	switch {
	// Rule 1: an accepted loss of 45% or more is high volatility, before
	// anything else is considered.
	case loss >= 45:
		res.Archetype = model.ArchetypeHighVolatility
		res.Reasons = append(res.Reasons,
			fmt.Sprintf("Perte maximale acceptée de %d%% : profil haute volatilité", loss))
		if horizon < 60 {
			res.Confidence = model.ConfidenceMedium
			res.Reasons = append(res.Reasons,
				fmt.Sprintf("Horizon de %d mois court pour une stratégie haute volatilité", horizon))
		}

	// Rule 2: any one defensive trigger suffices; every triggering
	// condition is listed, in this order.
	case horizon < 36 || loss <= 15 || resilience < 3:
		res.Archetype = model.ArchetypeDefensive
		if horizon < 36 {
			res.Reasons = append(res.Reasons,
				fmt.Sprintf("Horizon de %d mois inférieur à 3 ans", horizon))
		}
		if loss <= 15 {
			res.Reasons = append(res.Reasons,
				fmt.Sprintf("Perte maximale acceptée de %d%% : tolérance limitée", loss))
		}
		if resilience < 3 {
			res.Reasons = append(res.Reasons,
				fmt.Sprintf("Épargne de sécurité de %d mois insuffisante", resilience))
		}

	// Rule 3: growth needs all three signals at once.
	case horizon > 84 && loss >= 30 && resilience >= 6:
		res.Archetype = model.ArchetypeGrowth
		res.Reasons = append(res.Reasons,
			fmt.Sprintf("Horizon de %d mois, perte acceptée de %d%% et épargne de %d mois : profil croissance",
				horizon, loss, resilience))

	// Rule 4: catch-all.
	default:
		res.Archetype = model.ArchetypeBalanced
		res.Reasons = append(res.Reasons,
			"Signaux intermédiaires : profil équilibré par défaut")
	}

	// Incomplete data always caps confidence, whichever rule fired. Only
	// horizon and max-loss absence count; resilience has a workable default.
	if horizonRaw == "" || lossRaw == "" {
		res.Confidence = model.ConfidenceLow
		res.Reasons = append(res.Reasons,
			"Réponses d'onboarding incomplètes : confiance réduite")
	}

	res.Thresholds = ArchetypeThresholds(res.Archetype)
	return res
}
