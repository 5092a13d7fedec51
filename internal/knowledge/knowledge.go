// Package knowledge holds the symptom catalog and rule base.
// A Base is immutable after construction and safe to share across goroutines.
package knowledge

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/domain"
)

// ErrInvalidKnowledge is returned when a catalog or rule base fails validation.
var ErrInvalidKnowledge = errors.New("invalid knowledge base")

//go:embed catalog.yaml
var defaultCatalog []byte

// Document is the serialized form of a knowledge base.
type Document struct {
	Version  int              `yaml:"version" json:"version"`
	Symptoms []domain.Symptom `yaml:"symptoms" json:"symptoms"`
	Rules    []domain.Rule    `yaml:"rules" json:"rules"`
}

// Base is the validated symptom catalog and rule base.
type Base struct {
	version  int
	symptoms []domain.Symptom
	rules    []domain.Rule

	symptomIndex map[int]int
	ruleIndex    map[string]int
}

// New validates and builds a Base. Symptoms are kept in id order,
// rules in the order given.
func New(symptoms []domain.Symptom, rules []domain.Rule) (*Base, error) {
	b := &Base{
		version:      1,
		symptoms:     make([]domain.Symptom, len(symptoms)),
		rules:        make([]domain.Rule, len(rules)),
		symptomIndex: make(map[int]int, len(symptoms)),
		ruleIndex:    make(map[string]int, len(rules)),
	}

	copy(b.symptoms, symptoms)
	sort.SliceStable(b.symptoms, func(i, j int) bool {
		return b.symptoms[i].ID < b.symptoms[j].ID
	})

	for i, s := range b.symptoms {
		if _, dup := b.symptomIndex[s.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate symptom id %d", ErrInvalidKnowledge, s.ID)
		}
		if s.CFExpert < 0 || s.CFExpert > 1 {
			return nil, fmt.Errorf("%w: symptom %d cfExpert %.3f outside [0,1]", ErrInvalidKnowledge, s.ID, s.CFExpert)
		}
		b.symptomIndex[s.ID] = i
	}

	for i, r := range rules {
		if r.ID == "" {
			return nil, fmt.Errorf("%w: rule at position %d has no id", ErrInvalidKnowledge, i)
		}
		if _, dup := b.ruleIndex[r.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate rule id %s", ErrInvalidKnowledge, r.ID)
		}
		if !r.Operator.Valid() {
			return nil, fmt.Errorf("%w: rule %s has unknown operator %q", ErrInvalidKnowledge, r.ID, r.Operator)
		}
		if !r.Level.Valid() {
			return nil, fmt.Errorf("%w: rule %s has unknown level %q", ErrInvalidKnowledge, r.ID, r.Level)
		}
		if len(r.Symptoms) == 0 {
			return nil, fmt.Errorf("%w: rule %s references no symptoms", ErrInvalidKnowledge, r.ID)
		}

		r.Symptoms = append([]int(nil), r.Symptoms...)
		b.rules[i] = r
		b.ruleIndex[r.ID] = i
	}

	return b, nil
}

// Parse decodes and validates a YAML knowledge document.
func Parse(data []byte) (*Base, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKnowledge, err)
	}

	b, err := New(doc.Symptoms, doc.Rules)
	if err != nil {
		return nil, err
	}
	if doc.Version > 0 {
		b.version = doc.Version
	}
	return b, nil
}

// LoadFile reads a knowledge document from disk.
func LoadFile(path string) (*Base, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read knowledge file: %w", err)
	}
	return Parse(data)
}

// Default returns the embedded catalog.
func Default() *Base {
	b, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return b
}

// Version returns the document version.
func (b *Base) Version() int {
	return b.version
}

// Symptoms returns the catalog in id order.
func (b *Base) Symptoms() []domain.Symptom {
	out := make([]domain.Symptom, len(b.symptoms))
	copy(out, b.symptoms)
	return out
}

// Symptom looks up a symptom by id.
func (b *Base) Symptom(id int) (domain.Symptom, bool) {
	i, ok := b.symptomIndex[id]
	if !ok {
		return domain.Symptom{}, false
	}
	return b.symptoms[i], true
}

// Rules returns the rule base in evaluation order.
func (b *Base) Rules() []domain.Rule {
	out := make([]domain.Rule, len(b.rules))
	for i, r := range b.rules {
		r.Symptoms = append([]int(nil), r.Symptoms...)
		out[i] = r
	}
	return out
}

// Rule looks up a rule by id.
func (b *Base) Rule(id string) (domain.Rule, bool) {
	i, ok := b.ruleIndex[id]
	if !ok {
		return domain.Rule{}, false
	}
	r := b.rules[i]
	r.Symptoms = append([]int(nil), r.Symptoms...)
	return r, true
}

// UnresolvedSymptoms lists rule references that have no catalog entry.
// They are legal; such symptoms are never evidenced.
func (b *Base) UnresolvedSymptoms() map[string][]int {
	out := make(map[string][]int)
	for _, r := range b.rules {
		for _, id := range r.Symptoms {
			if _, ok := b.symptomIndex[id]; !ok {
				out[r.ID] = append(out[r.ID], id)
			}
		}
	}
	return out
}

// Document returns the serializable form of the base.
func (b *Base) Document() Document {
	return Document{
		Version:  b.version,
		Symptoms: b.Symptoms(),
		Rules:    b.Rules(),
	}
}

// Export encodes the base as YAML.
func (b *Base) Export() ([]byte, error) {
	data, err := yaml.Marshal(b.Document())
	if err != nil {
		return nil, fmt.Errorf("failed to encode knowledge base: %w", err)
	}
	return data, nil
}
