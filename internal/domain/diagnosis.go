package domain

import "time"

// Severity labels used by summaries and levels.
const (
	LabelLight    = "Light"
	LabelModerate = "Moderate"
	LabelSevere   = "Severe"
)

// DiagnosisResult is one activated rule.
type DiagnosisResult struct {
	RuleID     string  `json:"ruleId"`
	Level      Level   `json:"level"`
	Damage     string  `json:"damage"`
	Solution   string  `json:"solution"`
	Confidence float64 `json:"confidence"` // 0.0 - 1.0
	Symptoms   []int   `json:"symptoms,omitempty"`
}

// DiagnosisSummary is the headline conclusion of a set of results.
type DiagnosisSummary struct {
	DamageType string  `json:"damageType"`
	CFTotal    float64 `json:"cfTotal"`
	Percent    float64 `json:"percent"`
	Level      Level   `json:"level"`
	Label      string  `json:"label"`
}

// Mode selects the evaluator.
type Mode string

const (
	// ModeForward runs forward chaining with AND-before-OR precedence.
	ModeForward Mode = "forward"

	// ModeFuzzy runs Mamdani-style min/max evaluation with defuzzification.
	ModeFuzzy Mode = "fuzzy"
)

// Valid reports whether the mode is known.
func (m Mode) Valid() bool {
	return m == ModeForward || m == ModeFuzzy
}

// Diagnosis is the complete output of one diagnosis call. It is never stored.
type Diagnosis struct {
	ID          string            `json:"diagnosisId"`
	Mode        Mode              `json:"mode"`
	Evidence    EvidenceMap       `json:"evidence"`
	Results     []DiagnosisResult `json:"results"`
	Summary     *DiagnosisSummary `json:"summary"`
	Defuzzified *float64          `json:"defuzzified,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
	Metadata    DiagnosisMetadata `json:"metadata"`
}

// DiagnosisMetadata contains processing information.
type DiagnosisMetadata struct {
	TraceID        string `json:"traceId,omitempty"`
	RulesEvaluated int    `json:"rulesEvaluated"`
	TotalMs        int64  `json:"totalMs"`
	EngineVersion  string `json:"engineVersion"`
}
