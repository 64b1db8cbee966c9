package rules

import (
	"fmt"
	"math"
	"strings"
)

// Metric names a rule quality measure usable as a filter and sort key.
type Metric string

const (
	Support    Metric = "support"
	Confidence Metric = "confidence"
	Lift       Metric = "lift"
	Leverage   Metric = "leverage"
	Conviction Metric = "conviction"
)

// Metrics lists every supported metric.
var Metrics = []Metric{Support, Confidence, Lift, Leverage, Conviction}

// Infinite is the conviction of a rule whose confidence is exactly 1.
var Infinite = math.Inf(1)

// IsInfinite reports whether v is the Infinite sentinel.
func IsInfinite(v float64) bool { return math.IsInf(v, 1) }

// ParseMetric resolves a metric name, ignoring case and surrounding space.
func ParseMetric(s string) (Metric, error) {
	name := Metric(strings.ToLower(strings.TrimSpace(s)))
	for _, m := range Metrics {
		if m == name {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMetric, s)
}
