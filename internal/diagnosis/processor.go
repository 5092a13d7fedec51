// Package diagnosis runs one diagnosis request end to end: boundary
// validation, evidence derivation, evaluation and summary.
package diagnosis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/domain"
	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/rules"
)

// EngineVersion is reported in diagnosis metadata.
const EngineVersion = "motordiag-1.0"

var (
	// ErrInvalidMode is returned for an unknown evaluator mode.
	ErrInvalidMode = errors.New("invalid diagnosis mode")

	// ErrInvalidSymptomID is returned when an answer key is not an integer.
	ErrInvalidSymptomID = errors.New("invalid symptom id")
)

var tracer = otel.Tracer("motordiag-diagnosis")

// Processor turns answers into a Diagnosis. It keeps no state between calls.
type Processor struct {
	engine *rules.Engine

	// DefaultMode is used when a request does not name a mode.
	DefaultMode domain.Mode
}

// NewProcessor creates a processor over an engine.
func NewProcessor(engine *rules.Engine, defaultMode domain.Mode) *Processor {
	if !defaultMode.Valid() {
		defaultMode = domain.ModeForward
	}
	return &Processor{
		engine:      engine,
		DefaultMode: defaultMode,
	}
}

// Request contains everything needed for one diagnosis.
type Request struct {
	Mode      domain.Mode
	Answers   domain.Answers
	TraceID   string
	StartTime time.Time
}

// Process evaluates the request. The only error is an unknown mode.
func (p *Processor) Process(ctx context.Context, req *Request) (*domain.Diagnosis, error) {
	mode := req.Mode
	if mode == "" {
		mode = p.DefaultMode
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}

	start := req.StartTime
	if start.IsZero() {
		start = time.Now()
	}

	_, span := tracer.Start(ctx, "diagnosis.process",
		trace.WithAttributes(
			attribute.String("diagnosis.mode", string(mode)),
			attribute.Int("diagnosis.answers", len(req.Answers)),
		),
	)
	defer span.End()

	evidence := p.engine.Evidence(req.Answers)

	d := &domain.Diagnosis{
		ID:        uuid.New().String(),
		Mode:      mode,
		Evidence:  evidence,
		Timestamp: time.Now().UTC(),
	}

	switch mode {
	case domain.ModeFuzzy:
		d.Results = p.engine.FuzzyDiagnose(evidence)
		defuzzified := rules.Defuzzify(d.Results)
		d.Defuzzified = &defuzzified
	default:
		d.Results = p.engine.Diagnose(evidence)
	}
	if d.Results == nil {
		d.Results = []domain.DiagnosisResult{}
	}
	d.Summary = rules.Summarize(d.Results)

	d.Metadata = domain.DiagnosisMetadata{
		TraceID:        req.TraceID,
		RulesEvaluated: p.engine.RulesCount(),
		TotalMs:        time.Since(start).Milliseconds(),
		EngineVersion:  EngineVersion,
	}

	span.SetAttributes(attribute.Int("diagnosis.results", len(d.Results)))
	if d.Summary != nil {
		span.SetAttributes(attribute.String("diagnosis.label", d.Summary.Label))
	}

	return d, nil
}

// ParseAnswers converts raw form answers keyed by symptom id into the
// answer enum. Any malformed key or value is rejected.
func ParseAnswers(raw map[string]string) (domain.Answers, error) {
	answers := make(domain.Answers, len(raw))
	for key, value := range raw {
		id, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSymptomID, key)
		}
		answer, err := domain.ParseUserAnswer(value)
		if err != nil {
			return nil, fmt.Errorf("symptom %d: %w", id, err)
		}
		answers[id] = answer
	}
	return answers, nil
}

// Solutions lists the recommended actions of a diagnosis, most relevant first.
func Solutions(d *domain.Diagnosis) []string {
	var out []string
	seen := make(map[string]bool)
	for _, r := range d.Results {
		if r.Solution == "" || seen[r.Solution] {
			continue
		}
		seen[r.Solution] = true
		out = append(out, r.Solution)
	}
	return out
}
