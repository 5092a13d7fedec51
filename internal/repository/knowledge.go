package repository

import (
	"context"
	"fmt"

	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/domain"
	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/knowledge"
)

// SeedKnowledge writes kb into an empty repository in one transaction. It
// reports whether anything was written; a repository that already holds
// symptoms is left alone.
func SeedKnowledge(ctx context.Context, repo domain.Repository, kb *knowledge.Base) (bool, error) {
	existing, err := repo.ListSymptoms(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to list symptoms: %w", err)
	}
	if len(existing) > 0 {
		return false, nil
	}

	if err := repo.SaveKnowledge(ctx, kb.Symptoms(), kb.Rules()); err != nil {
		return false, fmt.Errorf("failed to seed knowledge: %w", err)
	}
	return true, nil
}

// LoadKnowledge builds a validated knowledge base from the repository.
func LoadKnowledge(ctx context.Context, repo domain.Repository) (*knowledge.Base, error) {
	symptoms, err := repo.ListSymptoms(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list symptoms: %w", err)
	}
	rules, err := repo.ListRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}

	ss := make([]domain.Symptom, len(symptoms))
	for i, s := range symptoms {
		ss[i] = *s
	}
	rs := make([]domain.Rule, len(rules))
	for i, r := range rules {
		rs[i] = *r
	}

	return knowledge.New(ss, rs)
}
