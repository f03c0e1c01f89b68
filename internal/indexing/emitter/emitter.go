package emitter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vietddude/tokenwatch/internal/core/domain"
	"github.com/vietddude/tokenwatch/internal/indexing/metrics"
)

// Emitter defines the interface for emitting admitted transactions
type Emitter interface {
	// Emit sends a single event
	Emit(ctx context.Context, event *domain.Event) error

	// Close releases the emitter's resources
	Close() error
}

type namedEmitter struct {
	name string
	Emitter
}

// Multi fans an event out to several emitters in registration order. A
// failing emitter does not stop the others.
type Multi struct {
	emitters []namedEmitter
}

// NewMulti creates an empty fan-out emitter.
func NewMulti() *Multi {
	return &Multi{}
}

// Add registers an emitter under name, used for metrics and errors.
func (m *Multi) Add(name string, e Emitter) *Multi {
	m.emitters = append(m.emitters, namedEmitter{name: name, Emitter: e})
	return m
}

// Len returns the number of registered emitters.
func (m *Multi) Len() int {
	return len(m.emitters)
}

func (m *Multi) Emit(ctx context.Context, event *domain.Event) error {
	var errs []error
	for _, e := range m.emitters {
		start := time.Now()
		err := e.Emit(ctx, event)
		metrics.EmitLatency.WithLabelValues(e.name).Observe(time.Since(start).Seconds())
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.name, err))
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) Close() error {
	var errs []error
	for _, e := range m.emitters {
		if err := e.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.name, err))
		}
	}
	return errors.Join(errs...)
}
