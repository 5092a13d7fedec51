// Package domain defines the core interfaces and types for the motor diagnosis service.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidAnswer is returned when a raw answer string cannot be mapped to a UserAnswer.
var ErrInvalidAnswer = errors.New("invalid answer")

// Symptom is a yes/no/sometimes question with an expert-assigned certainty.
type Symptom struct {
	ID       int     `json:"id" yaml:"id"`
	Question string  `json:"question" yaml:"question"`
	CFExpert float64 `json:"cfExpert" yaml:"cfExpert"` // 0.0 - 1.0
}

// UserAnswer is the user's answer to a symptom question.
type UserAnswer int

const (
	AnswerNo UserAnswer = iota
	AnswerSometimes
	AnswerYes
)

// Value maps an answer to its user certainty.
// Anything outside the enum counts as no evidence.
func (a UserAnswer) Value() float64 {
	switch a {
	case AnswerNo:
		return 0
	case AnswerSometimes:
		return 0.5
	case AnswerYes:
		return 1
	default:
		return 0
	}
}

// String returns the canonical answer name.
func (a UserAnswer) String() string {
	switch a {
	case AnswerNo:
		return "No"
	case AnswerSometimes:
		return "Sometimes"
	case AnswerYes:
		return "Yes"
	default:
		return fmt.Sprintf("UserAnswer(%d)", int(a))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (a UserAnswer) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *UserAnswer) UnmarshalText(text []byte) error {
	parsed, err := ParseUserAnswer(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseUserAnswer converts a form value into a UserAnswer.
// Accepts the canonical names case-insensitively and the Indonesian
// questionnaire labels (Tidak, Jarang, Ya).
func ParseUserAnswer(s string) (UserAnswer, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "no", "tidak":
		return AnswerNo, nil
	case "sometimes", "jarang":
		return AnswerSometimes, nil
	case "yes", "ya":
		return AnswerYes, nil
	default:
		return AnswerNo, fmt.Errorf("%w: %q", ErrInvalidAnswer, s)
	}
}

// Answers maps symptom ID to the user's answer. Unanswered symptoms are absent.
type Answers map[int]UserAnswer

// EvidenceMap maps symptom ID to a derived certainty strictly greater than zero.
type EvidenceMap map[int]float64
