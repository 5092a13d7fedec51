package rules

import (
	"sort"

	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/domain"
)

// Severity weights used by Defuzzify.
var levelWeights = map[domain.Level]float64{
	domain.LevelA: 0.3,
	domain.LevelB: 0.5,
	domain.LevelC: 0.8,
}

// LevelWeight returns the defuzzification weight of a level, 0 if unknown.
func LevelWeight(l domain.Level) float64 {
	return levelWeights[l]
}

// FuzzyDiagnose evaluates every rule with Mamdani min semantics.
//
// Multi-symptom rules need all symptoms evidenced and take the minimum.
// Single-symptom rules take that symptom's evidence. The operator is not
// consulted and there is no AND-before-OR precedence. Results with
// positive activation are returned by activation, highest first.
func (e *Engine) FuzzyDiagnose(evidence domain.EvidenceMap) []domain.DiagnosisResult {
	var results []domain.DiagnosisResult
	for i := range e.rules {
		rule := &e.rules[i]

		var activation float64
		var matched []int
		switch len(rule.Symptoms) {
		case 0:
			continue
		case 1:
			id := rule.Symptoms[0]
			activation = evidence[id]
			matched = []int{id}
		default:
			cf, ids, ok := conjunction(rule.Symptoms, evidence)
			if !ok {
				continue
			}
			activation, matched = cf, ids
		}

		if activation > 0 {
			results = append(results, newResult(rule, activation, matched))
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Confidence > results[j].Confidence
	})
	return results
}

// Defuzzify returns the activation-weighted mean of the level weights.
// Empty input or zero total activation yields 0.
func Defuzzify(results []domain.DiagnosisResult) float64 {
	var num, den float64
	for _, r := range results {
		num += r.Confidence * LevelWeight(r.Level)
		den += r.Confidence
	}
	if den == 0 {
		return 0
	}
	return num / den
}
