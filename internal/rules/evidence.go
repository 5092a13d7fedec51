package rules

import "github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/domain"

// DeriveEvidence turns answers into per-symptom certainty (cfUser × cfExpert).
// Only catalog symptoms with a strictly positive product get an entry, so an
// unanswered symptom and a "No" answer both leave the map untouched.
func DeriveEvidence(catalog []domain.Symptom, answers domain.Answers) domain.EvidenceMap {
	evidence := make(domain.EvidenceMap, len(answers))
	for _, s := range catalog {
		answer, ok := answers[s.ID]
		if !ok {
			continue
		}
		if cf := answer.Value() * s.CFExpert; cf > 0 {
			evidence[s.ID] = cf
		}
	}
	return evidence
}
