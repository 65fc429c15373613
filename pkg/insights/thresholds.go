package insights

// RiskLevel grades the revenue risk of a change.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// UXLevel grades the user-facing effect of a change.
type UXLevel string

const (
	UXPoor      UXLevel = "poor"
	UXDegraded  UXLevel = "degraded"
	UXGood      UXLevel = "good"
	UXExcellent UXLevel = "excellent"
)

// SEOImpact grades the likely search ranking effect of a change.
type SEOImpact string

const (
	SEOPositive SEOImpact = "positive"
	SEONeutral  SEOImpact = "neutral"
	SEONegative SEOImpact = "negative"
)

// VitalRating is the Core Web Vitals classification of a value.
type VitalRating string

const (
	VitalGood             VitalRating = "good"
	VitalNeedsImprovement VitalRating = "needs-improvement"
	VitalPoor             VitalRating = "poor"
)

var vitalRank = map[VitalRating]int{
	VitalGood:             0,
	VitalNeedsImprovement: 1,
	VitalPoor:             2,
}

// RiskBand assigns Level when any signal reaches its threshold. Signals are
// percent degradations after sign normalization; a zero threshold disables
// that signal for the band.
type RiskBand struct {
	Level             RiskLevel `yaml:"level" json:"level"`
	ErrorRateRisePct  float64   `yaml:"error_rate_rise_pct" json:"errorRateRisePct"`
	ThroughputDropPct float64   `yaml:"throughput_drop_pct" json:"throughputDropPct"`
	ResourceRisePct   float64   `yaml:"resource_rise_pct" json:"resourceRisePct"`
}

// UXBand assigns Level when the user-experience delta is at least MinDeltaPct.
type UXBand struct {
	Level       UXLevel `yaml:"level" json:"level"`
	MinDeltaPct float64 `yaml:"min_delta_pct" json:"minDeltaPct"`
}

// VitalThreshold is the "good" ceiling of one Core Web Vital.
type VitalThreshold struct {
	Name      string   `yaml:"name" json:"name"`
	Threshold float64  `yaml:"threshold" json:"threshold"`
	Aliases   []string `yaml:"aliases" json:"aliases"`
}

// Thresholds is the table behind every ordinal label in an ImpactSummary.
type Thresholds struct {
	// RevenueRisk is checked in order; the first matching band wins and
	// RiskLow applies when none match.
	RevenueRisk []RiskBand `yaml:"revenue_risk" json:"revenueRisk"`
	// UserExperience is checked in order; UXPoor applies when none match.
	UserExperience []UXBand `yaml:"user_experience" json:"userExperience"`
	// SEODeltaPct is the average vitals change needed to call SEO impact
	// positive or negative.
	SEODeltaPct float64 `yaml:"seo_delta_pct" json:"seoDeltaPct"`
	// Vitals are rated needs-improvement above Threshold and poor above
	// Threshold*PoorMultiplier.
	Vitals         []VitalThreshold `yaml:"vitals" json:"vitals"`
	PoorMultiplier float64          `yaml:"poor_multiplier" json:"poorMultiplier"`
	// UnknownPctDegradation stands in for the percent change of a worse
	// metric whose baseline was zero.
	UnknownPctDegradation float64 `yaml:"unknown_pct_degradation" json:"unknownPctDegradation"`
}

// DefaultThresholds returns the built-in threshold table.
func DefaultThresholds() Thresholds {
	return Thresholds{
		RevenueRisk: []RiskBand{
			{Level: RiskCritical, ErrorRateRisePct: 50, ThroughputDropPct: 30, ResourceRisePct: 100},
			{Level: RiskHigh, ErrorRateRisePct: 25, ThroughputDropPct: 15, ResourceRisePct: 50},
			{Level: RiskMedium, ErrorRateRisePct: 10, ThroughputDropPct: 5, ResourceRisePct: 25},
		},
		UserExperience: []UXBand{
			{Level: UXExcellent, MinDeltaPct: 20},
			{Level: UXGood, MinDeltaPct: 0},
			{Level: UXDegraded, MinDeltaPct: -20},
		},
		SEODeltaPct: 5,
		Vitals: []VitalThreshold{
			{Name: "fcp", Threshold: 1800, Aliases: []string{"firstcontentfulpaint"}},
			{Name: "lcp", Threshold: 2500, Aliases: []string{"largestcontentfulpaint"}},
			{Name: "ttfb", Threshold: 800, Aliases: []string{"timetofirstbyte"}},
			{Name: "fid", Threshold: 100, Aliases: []string{"firstinputdelay"}},
			{Name: "cls", Threshold: 0.1, Aliases: []string{"cumulativelayoutshift"}},
		},
		PoorMultiplier:        1.5,
		UnknownPctDegradation: 100,
	}
}

// WithDefaults fills empty sections of t from DefaultThresholds.
func (t Thresholds) WithDefaults() Thresholds {
	def := DefaultThresholds()
	if len(t.RevenueRisk) == 0 {
		t.RevenueRisk = def.RevenueRisk
	}
	if len(t.UserExperience) == 0 {
		t.UserExperience = def.UserExperience
	}
	if t.SEODeltaPct <= 0 {
		t.SEODeltaPct = def.SEODeltaPct
	}
	if len(t.Vitals) == 0 {
		t.Vitals = def.Vitals
	}
	if t.PoorMultiplier <= 1 {
		t.PoorMultiplier = def.PoorMultiplier
	}
	if t.UnknownPctDegradation <= 0 {
		t.UnknownPctDegradation = def.UnknownPctDegradation
	}
	return t
}

// rate classifies value against the vital's threshold.
func (v VitalThreshold) rate(value, poorMultiplier float64) VitalRating {
	switch {
	case value > v.Threshold*poorMultiplier:
		return VitalPoor
	case value > v.Threshold:
		return VitalNeedsImprovement
	default:
		return VitalGood
	}
}
