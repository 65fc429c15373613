package insights

import "regexp"

// DirectionRule maps keys matching Pattern to a direction.
type DirectionRule struct {
	Pattern   *regexp.Regexp
	Direction BetterWhen
}

// DefaultDirectionRules is evaluated top to bottom; the first match wins.
// The lower-is-better row is listed for documentation. Keys matching no rule
// fall back to LowerIsBetter as well, which is a chosen default and not a
// statement about what those metrics measure.
var DefaultDirectionRules = []DirectionRule{
	{Pattern: regexp.MustCompile(`(?i)(throughput|rps|tps|success|pass)`), Direction: HigherIsBetter},
	{Pattern: regexp.MustCompile(`(?i)(latency|response|time|p\d+|error|fail|cpu|mem(ory)?)`), Direction: LowerIsBetter},
}

// DirectionResolver classifies metric keys with an ordered rule table.
type DirectionResolver struct {
	rules    []DirectionRule
	fallback BetterWhen
}

// NewDirectionResolver creates a resolver over rules. With no rules it uses
// DefaultDirectionRules.
func NewDirectionResolver(rules ...DirectionRule) *DirectionResolver {
	if len(rules) == 0 {
		rules = DefaultDirectionRules
	}
	return &DirectionResolver{rules: rules, fallback: LowerIsBetter}
}

// BetterWhen returns the direction for key.
func (r *DirectionResolver) BetterWhen(key string) BetterWhen {
	for _, rule := range r.rules {
		if rule.Pattern.MatchString(key) {
			return rule.Direction
		}
	}
	return r.fallback
}

var defaultResolver = NewDirectionResolver()

// ResolveBetterWhen classifies key with the default rules.
func ResolveBetterWhen(key string) BetterWhen {
	return defaultResolver.BetterWhen(key)
}
