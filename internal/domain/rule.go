package domain

import "fmt"

// Operator combines the symptoms of a rule.
type Operator string

const (
	// OperatorAnd requires every symptom; confidence is the weakest evidence.
	OperatorAnd Operator = "AND"

	// OperatorOr requires any symptom; confidence is the strongest evidence.
	OperatorOr Operator = "OR"
)

// Valid reports whether the operator is known.
func (o Operator) Valid() bool {
	return o == OperatorAnd || o == OperatorOr
}

// Level is the damage severity of a rule.
//
//	A = light
//	B = moderate
//	C = severe
type Level string

const (
	LevelA Level = "A"
	LevelB Level = "B"
	LevelC Level = "C"
)

// Valid reports whether the level is known.
func (l Level) Valid() bool {
	return l == LevelA || l == LevelB || l == LevelC
}

// Priority orders levels by severity. Unknown levels rank below A.
func (l Level) Priority() int {
	switch l {
	case LevelA:
		return 1
	case LevelB:
		return 2
	case LevelC:
		return 3
	default:
		return 0
	}
}

// Label returns the human-readable severity.
func (l Level) Label() string {
	switch l {
	case LevelA:
		return LabelLight
	case LevelB:
		return LabelModerate
	case LevelC:
		return LabelSevere
	default:
		return fmt.Sprintf("Level(%s)", string(l))
	}
}

// Rule is a diagnostic rule of the rule base.
type Rule struct {
	ID       string   `json:"id" yaml:"id"`
	Symptoms []int    `json:"symptoms" yaml:"symptoms"`
	Operator Operator `json:"operator" yaml:"operator"`
	Level    Level    `json:"level" yaml:"level"`
	Damage   string   `json:"damage" yaml:"damage"`
	Solution string   `json:"solution" yaml:"solution"`
}
