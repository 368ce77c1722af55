package model

// Archetype is one of the four investor strategy categories. The enumeration
// is closed: the classifier never emits anything else.
type Archetype string

const (
	ArchetypeDefensive      Archetype = "Defensive"
	ArchetypeBalanced       Archetype = "Balanced"
	ArchetypeGrowth         Archetype = "Growth"
	ArchetypeHighVolatility Archetype = "HighVolatility"
)

// Label returns the French display label for the archetype.
func (a Archetype) Label() string {
	switch a {
	case ArchetypeDefensive:
		return "Défensif"
	case ArchetypeGrowth:
		return "Croissance"
	case ArchetypeHighVolatility:
		return "Haute volatilité"
	default:
		return "Équilibré"
	}
}

// Confidence is the classifier's self-reported certainty in its choice.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// OnboardingSignals are the three free-text inputs the strategy classifier
// parses, plus income stability (confidence only, never archetype choice).
type OnboardingSignals struct {
	InvestmentHorizon   string `json:"investment_horizon,omitempty"`
	MaxAcceptableLoss   string `json:"max_acceptable_loss,omitempty"`
	FinancialResilience string `json:"financial_resilience_months,omitempty"`
	IncomeStability     string `json:"income_stability,omitempty"`
}

// StrategyThresholds are the three portfolio bounds consumed by the decision
// engine. All values are percentages in [0,100] and always present: merging
// user overrides over archetype defaults is field-by-field on this fixed
// shape, never a dynamic object merge.
type StrategyThresholds struct {
	CashTargetPct    float64 `json:"cash_target_pct"`
	MaxPositionPct   float64 `json:"max_position_pct"`
	MaxAssetClassPct float64 `json:"max_asset_class_pct"`
}

// ThresholdPatch is a partial threshold update; nil fields are left alone.
type ThresholdPatch struct {
	CashTargetPct    *float64 `json:"cash_target_pct,omitempty"`
	MaxPositionPct   *float64 `json:"max_position_pct,omitempty"`
	MaxAssetClassPct *float64 `json:"max_asset_class_pct,omitempty"`
}

// Apply returns t with every non-nil patch field overriding the
// corresponding value.
func (p ThresholdPatch) Apply(t StrategyThresholds) StrategyThresholds {
	if p.CashTargetPct != nil {
		t.CashTargetPct = *p.CashTargetPct
	}
	if p.MaxPositionPct != nil {
		t.MaxPositionPct = *p.MaxPositionPct
	}
	if p.MaxAssetClassPct != nil {
		t.MaxAssetClassPct = *p.MaxAssetClassPct
	}
	return t
}

// IsEmpty reports whether the patch changes nothing.
func (p ThresholdPatch) IsEmpty() bool {
	return p.CashTargetPct == nil && p.MaxPositionPct == nil && p.MaxAssetClassPct == nil
}

// StrategyResult is the classifier output: the chosen archetype, a copy of
// its default thresholds, confidence, and the ordered reasoning trail. The
// parsed measures are included for transparency.
type StrategyResult struct {
	Archetype  Archetype          `json:"archetype"`
	Thresholds StrategyThresholds `json:"thresholds"`
	Confidence Confidence         `json:"confidence"`
	Reasons    []string           `json:"reasons"`

	HorizonMonths    int `json:"horizon_months"`
	LossPct          int `json:"loss_pct"`
	ResilienceMonths int `json:"resilience_months"`
}

// UserStrategy is the merged, externally-facing view: effective thresholds
// (user overrides over archetype defaults), the archetype that produced the
// defaults, and profile-completeness flags. It is recomputed on every read,
// never stored.
type UserStrategy struct {
	Thresholds StrategyThresholds `json:"thresholds"`
	Archetype  Archetype          `json:"archetype"`
	Label      string             `json:"label"`

	// Classification is nil when no profile is persisted.
	Classification *StrategyResult `json:"classification,omitempty"`

	ProfileExists   bool `json:"profile_exists"`
	ProfileComplete bool `json:"profile_complete"`
	NeedsOnboarding bool `json:"needs_onboarding"`
}
