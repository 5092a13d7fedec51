// Package bus provides event bus implementations for motordiag.
package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/propagation"

	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/domain"
)

var (
	// ErrClosed is returned by operations on a closed bus.
	ErrClosed = errors.New("bus is closed")

	// ErrMotorRequired is returned when a publish has no concrete motor id
	// or a subscription has no motor id at all.
	ErrMotorRequired = errors.New("motor id is required")
)

// Trace context travels in message metadata so async ingestion continues
// the trace of the HTTP request that queued the reading.
var propagator = propagation.TraceContext{}

// New creates a new event bus based on configuration.
// For Community tier: returns ChannelBus.
// For Pro tier: returns NATSBus.
func New(cfg domain.EventBusConfig) (domain.EventBus, error) {
	switch cfg.Type {
	case "channel":
		slog.Debug("using in-process channel bus", "buffer", cfg.ChannelBufferSize)
		return NewChannelBus(cfg.ChannelBufferSize), nil

	case "nats":
		return NewNATSBus(cfg)

	default:
		return nil, fmt.Errorf("unsupported event bus type: %s", cfg.Type)
	}
}

// newMessage builds the envelope shared by every bus implementation.
func newMessage(ctx context.Context, motorID, topic string, payload []byte) (*domain.Message, error) {
	if motorID == "" || motorID == domain.AllMotors {
		return nil, fmt.Errorf("%w: publish to %q", ErrMotorRequired, topic)
	}

	metadata := map[string]string{"content-type": "application/json"}
	propagator.Inject(ctx, propagation.MapCarrier(metadata))

	return &domain.Message{
		ID:        uuid.New().String(),
		MotorID:   motorID,
		Topic:     topic,
		Payload:   payload,
		Metadata:  metadata,
		Timestamp: time.Now().UnixNano(),
	}, nil
}

// messageContext returns ctx carrying the publisher's trace context, if any.
func messageContext(ctx context.Context, msg *domain.Message) context.Context {
	if len(msg.Metadata) == 0 {
		return ctx
	}
	return propagator.Extract(ctx, propagation.MapCarrier(msg.Metadata))
}

// subject maps a motor topic onto a dotted subject. domain.AllMotors stays
// a single-token wildcard; other ids are flattened to one token.
func subject(motorID, topic string) string {
	if motorID != domain.AllMotors {
		motorID = subjectToken.Replace(motorID)
	}
	return "motordiag." + motorID + "." + topic
}

var subjectToken = strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_")
