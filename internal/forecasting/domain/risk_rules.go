package forecast

import "fmt"

// RiskFactor names the measurement a risk rule inspects.
type RiskFactor string

const (
	FactorUptime   RiskFactor = "uptime_pct"
	FactorFailures RiskFactor = "failure_count"
	FactorMTBF     RiskFactor = "mtbf_days"
)

// Comparison is the operator of a risk rule.
type Comparison string

const (
	Below   Comparison = "lt"
	AtLeast Comparison = "gte"
)

// RiskRule awards Points when Factor compares true against Threshold.
// Within one factor the first matching rule in table order wins.
type RiskRule struct {
	Tag       string     `yaml:"tag" json:"tag"`
	Factor    RiskFactor `yaml:"factor" json:"factor"`
	Op        Comparison `yaml:"op" json:"op"`
	Threshold float64    `yaml:"threshold" json:"threshold"`
	Points    float64    `yaml:"points" json:"points"`
}

// RuleHit records a rule that contributed to a score.
type RuleHit struct {
	Tag    string     `json:"tag"`
	Factor RiskFactor `json:"factor"`
	Points float64    `json:"points"`
}

var riskFactors = []RiskFactor{FactorUptime, FactorFailures, FactorMTBF}

// DefaultRiskRules is the unit risk table: uptime up to 40 points,
// failures up to 30, MTBF up to 30.
//
// A unit that never failed has MTBF equal to its observed days, so a
// perfect unit with under 7 days of history still takes mtbf_lt_7 and
// lands in the medium tier until more history accrues.
func DefaultRiskRules() []RiskRule {
	return []RiskRule{
		{Tag: "uptime_lt_50", Factor: FactorUptime, Op: Below, Threshold: 50, Points: 40},
		{Tag: "uptime_lt_70", Factor: FactorUptime, Op: Below, Threshold: 70, Points: 30},
		{Tag: "uptime_lt_85", Factor: FactorUptime, Op: Below, Threshold: 85, Points: 20},
		{Tag: "uptime_lt_95", Factor: FactorUptime, Op: Below, Threshold: 95, Points: 10},
		{Tag: "failures_gte_6", Factor: FactorFailures, Op: AtLeast, Threshold: 6, Points: 30},
		{Tag: "failures_gte_4", Factor: FactorFailures, Op: AtLeast, Threshold: 4, Points: 20},
		{Tag: "failures_gte_2", Factor: FactorFailures, Op: AtLeast, Threshold: 2, Points: 10},
		{Tag: "failures_gte_1", Factor: FactorFailures, Op: AtLeast, Threshold: 1, Points: 5},
		{Tag: "mtbf_lt_7", Factor: FactorMTBF, Op: Below, Threshold: 7, Points: 30},
		{Tag: "mtbf_lt_14", Factor: FactorMTBF, Op: Below, Threshold: 14, Points: 20},
		{Tag: "mtbf_lt_30", Factor: FactorMTBF, Op: Below, Threshold: 30, Points: 10},
	}
}

// ScoreAvailability sums the first matching rule of each factor.
func ScoreAvailability(rules []RiskRule, a Availability) (float64, []RuleHit) {
	values := map[RiskFactor]float64{
		FactorUptime:   a.UptimePct,
		FactorFailures: float64(a.Failures),
		FactorMTBF:     a.MTBFDays,
	}
	var (
		score float64
		hits  []RuleHit
	)
	for _, factor := range riskFactors {
		for _, rule := range rules {
			if rule.Factor != factor || !rule.matches(values[factor]) {
				continue
			}
			score += rule.Points
			hits = append(hits, RuleHit{Tag: rule.Tag, Factor: rule.Factor, Points: rule.Points})
			break
		}
	}
	return score, hits
}

func (r RiskRule) matches(v float64) bool {
	switch r.Op {
	case Below:
		return v < r.Threshold
	case AtLeast:
		return v >= r.Threshold
	default:
		return false
	}
}

func validateRiskRules(rules []RiskRule) error {
	if len(rules) == 0 {
		return fmt.Errorf("%w: empty risk rule table", ErrInvalidThresholds)
	}
	seen := make(map[string]struct{}, len(rules))
	for _, rule := range rules {
		if rule.Tag == "" {
			return fmt.Errorf("%w: risk rule without tag", ErrInvalidThresholds)
		}
		if _, dup := seen[rule.Tag]; dup {
			return fmt.Errorf("%w: duplicate risk rule %s", ErrInvalidThresholds, rule.Tag)
		}
		seen[rule.Tag] = struct{}{}
		switch rule.Factor {
		case FactorUptime, FactorFailures, FactorMTBF:
		default:
			return fmt.Errorf("%w: risk rule %s has unknown factor %q", ErrInvalidThresholds, rule.Tag, rule.Factor)
		}
		if rule.Op != Below && rule.Op != AtLeast {
			return fmt.Errorf("%w: risk rule %s has unknown op %q", ErrInvalidThresholds, rule.Tag, rule.Op)
		}
		if rule.Points < 0 {
			return fmt.Errorf("%w: risk rule %s has negative points", ErrInvalidThresholds, rule.Tag)
		}
	}
	return nil
}
