// Package rules provides the certainty-factor diagnosis engine.
//
// Two evaluators run over the same evidence: forward chaining, where AND
// rules take precedence over OR rules, and a Mamdani-style fuzzy evaluator
// that returns every match ranked by activation.
package rules

import (
	"sort"

	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/domain"
	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/knowledge"
)

// Engine evaluates a fixed rule base. It holds no mutable state and is safe
// for concurrent use.
type Engine struct {
	symptoms []domain.Symptom
	rules    []domain.Rule
}

// NewEngine creates an engine over a knowledge base.
func NewEngine(kb *knowledge.Base) *Engine {
	return &Engine{
		symptoms: kb.Symptoms(),
		rules:    kb.Rules(),
	}
}

// Evidence derives the evidence map for a set of answers against the engine's catalog.
func (e *Engine) Evidence(answers domain.Answers) domain.EvidenceMap {
	return DeriveEvidence(e.symptoms, answers)
}

// Diagnose runs forward chaining over the evidence.
//
// AND phase: a rule activates when every symptom is evidenced, with the
// minimum evidence as confidence. If any AND rule activates, only the most
// severe one is returned (earliest wins ties).
//
// OR phase: a rule activates when any symptom is evidenced, with the
// maximum evidence as confidence. All activated rules are returned, most
// severe first, rule-base order within a level.
func (e *Engine) Diagnose(evidence domain.EvidenceMap) []domain.DiagnosisResult {
	var best *domain.DiagnosisResult
	for i := range e.rules {
		rule := &e.rules[i]
		if rule.Operator != domain.OperatorAnd {
			continue
		}
		cf, matched, ok := conjunction(rule.Symptoms, evidence)
		if !ok {
			continue
		}
		if best == nil || rule.Level.Priority() > best.Level.Priority() {
			r := newResult(rule, cf, matched)
			best = &r
		}
	}
	if best != nil {
		return []domain.DiagnosisResult{*best}
	}

	var results []domain.DiagnosisResult
	for i := range e.rules {
		rule := &e.rules[i]
		if rule.Operator != domain.OperatorOr {
			continue
		}
		cf, matched, ok := disjunction(rule.Symptoms, evidence)
		if !ok {
			continue
		}
		results = append(results, newResult(rule, cf, matched))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Level.Priority() > results[j].Level.Priority()
	})
	return results
}

// RulesCount returns the number of loaded rules.
func (e *Engine) RulesCount() int {
	return len(e.rules)
}

// SymptomsCount returns the number of catalog symptoms.
func (e *Engine) SymptomsCount() int {
	return len(e.symptoms)
}

// conjunction returns the minimum evidence when every symptom is evidenced.
func conjunction(symptoms []int, evidence domain.EvidenceMap) (float64, []int, bool) {
	if len(symptoms) == 0 {
		return 0, nil, false
	}
	cf := 1.0
	for _, id := range symptoms {
		v, ok := evidence[id]
		if !ok || v <= 0 {
			return 0, nil, false
		}
		if v < cf {
			cf = v
		}
	}
	return cf, append([]int(nil), symptoms...), true
}

// disjunction returns the maximum evidence when at least one symptom is evidenced.
func disjunction(symptoms []int, evidence domain.EvidenceMap) (float64, []int, bool) {
	cf := 0.0
	var matched []int
	for _, id := range symptoms {
		v, ok := evidence[id]
		if !ok || v <= 0 {
			continue
		}
		matched = append(matched, id)
		if v > cf {
			cf = v
		}
	}
	return cf, matched, len(matched) > 0
}

func newResult(rule *domain.Rule, cf float64, matched []int) domain.DiagnosisResult {
	return domain.DiagnosisResult{
		RuleID:     rule.ID,
		Level:      rule.Level,
		Damage:     rule.Damage,
		Solution:   rule.Solution,
		Confidence: cf,
		Symptoms:   matched,
	}
}
