// Package progress holds the learner-side progress logic: the course
// aggregate, the debounced partial-update emitter and the playback tracker.
package progress

import (
	"math"

	"onlearn-learner/internal/domain"
)

// Aggregate returns floor(mean(progressPercentage)) over the modules, 0 for none.
func Aggregate(modules []domain.ModuleView) int {
	if len(modules) == 0 {
		return 0
	}
	total := 0
	for _, m := range modules {
		total += clampPercent(m.ProgressPercentage)
	}
	return total / len(modules)
}

func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// Authoritative prefers the server's course aggregate over the local one.
// The server value is floored and clamped; nil means the server has none.
func Authoritative(server *float64, local int) int {
	if server == nil || math.IsNaN(*server) || math.IsInf(*server, 0) {
		return local
	}
	return clampPercent(int(math.Floor(*server)))
}
