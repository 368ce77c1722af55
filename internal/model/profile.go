package model

import "time"

// RiskProfileLabel is the qualitative tier derived from the five-dimension
// score total. Labels are French because the onboarding flow is French.
type RiskProfileLabel string

const (
	RiskProfilePrudent     RiskProfileLabel = "Prudent"
	RiskProfileNeutre      RiskProfileLabel = "Neutre"
	RiskProfileDynamique   RiskProfileLabel = "Dynamique"
	RiskProfileTresDynamik RiskProfileLabel = "Très dynamique"
)

// OnboardingAnswers holds the raw onboarding form answers feeding the risk
// score calculator. Every field is optional: empty strings, nil booleans and
// zero sliders fall back to the documented per-category default, never to an
// error.
type OnboardingAnswers struct {
	// Tolerance signals.
	MaxAcceptableLoss  string `json:"max_acceptable_loss,omitempty"`
	VolatilityReaction string `json:"volatility_reaction,omitempty"`
	RiskVision         string `json:"risk_vision,omitempty"`

	// Capacity signals.
	IncomeStability string `json:"income_stability,omitempty"`
	SafetyMonths    string `json:"safety_months,omitempty"`
	LossImpact      string `json:"loss_impact,omitempty"`

	// Behavior signals. HasPanicSold is tri-state: nil means unanswered.
	HasPanicSold       *bool  `json:"has_panic_sold,omitempty"`
	FOMO               string `json:"fomo,omitempty"`
	EmotionalStability string `json:"emotional_stability,omitempty"`
	GainReaction       string `json:"gain_reaction,omitempty"`

	// Horizon bucket phrase, e.g. "3-5 ans".
	InvestmentHorizon string `json:"investment_horizon,omitempty"`

	// Knowledge sliders, 1-5. Zero means unanswered (treated as 1).
	KnowledgeStocks      int `json:"knowledge_stocks,omitempty"`
	KnowledgeBonds       int `json:"knowledge_bonds,omitempty"`
	KnowledgeFunds       int `json:"knowledge_funds,omitempty"`
	KnowledgeRealEstate  int `json:"knowledge_real_estate,omitempty"`
	KnowledgeCrypto      int `json:"knowledge_crypto,omitempty"`
	KnowledgeDerivatives int `json:"knowledge_derivatives,omitempty"`

	// Experience bucket phrase, e.g. "Plus d'1 an".
	ExperienceBucket string `json:"experience_bucket,omitempty"`
}

// RiskProfileResult is the output of the risk score calculator: five bounded
// dimension scores, their sum, and the derived label.
//
// Invariant: ScoreTotal == ScoreTolerance + ScoreCapacity + ScoreBehavior +
// ScoreHorizon + ScoreKnowledge for every input.
type RiskProfileResult struct {
	ScoreTolerance int `json:"score_tolerance"` // 0-30
	ScoreCapacity  int `json:"score_capacity"`  // 0-25
	ScoreBehavior  int `json:"score_behavior"`  // 0-25
	ScoreHorizon   int `json:"score_horizon"`   // 0-10
	ScoreKnowledge int `json:"score_knowledge"` // 0-10

	ScoreTotal  int              `json:"score_total"` // 0-100
	RiskProfile RiskProfileLabel `json:"risk_profile"`
}

// UserProfile is the persisted profile record, keyed by user id. The
// threshold override fields are nil unless the user customized them; a nil
// override inherits the archetype default for that one field.
type UserProfile struct {
	UserID    string `json:"user_id"`
	FirstName string `json:"first_name,omitempty"`
	Age       int    `json:"age,omitempty"`

	InvestmentHorizon         string `json:"investment_horizon,omitempty"`
	MaxAcceptableLoss         string `json:"max_acceptable_loss,omitempty"`
	FinancialResilienceMonths string `json:"financial_resilience_months,omitempty"`
	IncomeStability           string `json:"income_stability,omitempty"`

	// Legacy free-text label, e.g. "Très dynamique". When present it takes
	// precedence over the classifier's archetype suggestion.
	RiskProfile string `json:"risk_profile,omitempty"`

	ScoreTolerance int `json:"score_tolerance,omitempty"`
	ScoreCapacity  int `json:"score_capacity,omitempty"`
	ScoreBehavior  int `json:"score_behavior,omitempty"`
	ScoreHorizon   int `json:"score_horizon,omitempty"`
	ScoreKnowledge int `json:"score_knowledge,omitempty"`
	ScoreTotal     int `json:"score_total,omitempty"`

	CashTargetPct    *float64 `json:"cash_target_pct,omitempty"`
	MaxPositionPct   *float64 `json:"max_position_pct,omitempty"`
	MaxAssetClassPct *float64 `json:"max_asset_class_pct,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Signals extracts the classifier inputs from the persisted profile.
func (p *UserProfile) Signals() OnboardingSignals {
	return OnboardingSignals{
		InvestmentHorizon:   p.InvestmentHorizon,
		MaxAcceptableLoss:   p.MaxAcceptableLoss,
		FinancialResilience: p.FinancialResilienceMonths,
		IncomeStability:     p.IncomeStability,
	}
}
