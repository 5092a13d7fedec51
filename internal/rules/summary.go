package rules

import (
	"math"

	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/domain"
)

// Label thresholds in percent, upper bounds inclusive.
const (
	LightMaxPercent    = 40.0
	ModerateMaxPercent = 70.0
)

// CombineCF folds certainty values with probabilistic OR: cf = cf + v(1-cf).
// Inputs are clamped to [0,1]; the empty fold is 0.
func CombineCF(values ...float64) float64 {
	cf := 0.0
	for _, v := range values {
		cf += clamp01(v) * (1 - cf)
	}
	return cf
}

// Label maps a percentage to Light, Moderate or Severe.
func Label(percent float64) string {
	switch {
	case percent <= LightMaxPercent:
		return domain.LabelLight
	case percent <= ModerateMaxPercent:
		return domain.LabelModerate
	default:
		return domain.LabelSevere
	}
}

type damageGroup struct {
	damage string
	values []float64
	level  domain.Level
}

// Summarize collapses results into the headline conclusion. Results are
// grouped by damage type, each group combined with CombineCF, and the group
// with the highest combined CF is reported with its most severe level.
// The first group encountered wins ties. Returns nil for no results.
func Summarize(results []domain.DiagnosisResult) *domain.DiagnosisSummary {
	if len(results) == 0 {
		return nil
	}

	groups := groupByDamage(results)

	var head *damageGroup
	headCF := -1.0
	for i := range groups {
		if cf := CombineCF(groups[i].values...); cf > headCF {
			head, headCF = &groups[i], cf
		}
	}

	// The label follows the reported percent.
	percent := round(headCF*100, 1)
	return &domain.DiagnosisSummary{
		DamageType: head.damage,
		CFTotal:    round(headCF, 3),
		Percent:    percent,
		Level:      head.level,
		Label:      Label(percent),
	}
}

// groupByDamage groups results in first-seen order.
func groupByDamage(results []domain.DiagnosisResult) []damageGroup {
	index := make(map[string]int)
	var groups []damageGroup
	for _, r := range results {
		i, ok := index[r.Damage]
		if !ok {
			i = len(groups)
			index[r.Damage] = i
			groups = append(groups, damageGroup{damage: r.Damage, level: r.Level})
		}
		g := &groups[i]
		g.values = append(g.values, r.Confidence)
		if r.Level.Priority() > g.level.Priority() {
			g.level = r.Level
		}
	}
	return groups
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
