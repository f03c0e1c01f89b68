package emitter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vietddude/tokenwatch/internal/core/domain"
)

// Publisher sends an encoded event to a message channel.
type Publisher interface {
	Publish(ctx context.Context, payload []byte) error
	Close() error
}

// Publish encodes events as JSON and hands them to a Publisher.
type Publish struct {
	pub Publisher
}

// NewPublish creates a publishing emitter.
func NewPublish(pub Publisher) *Publish {
	return &Publish{pub: pub}
}

func (p *Publish) Emit(ctx context.Context, event *domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event %d: %w", event.Seq, err)
	}
	return p.pub.Publish(ctx, payload)
}

func (p *Publish) Close() error {
	return p.pub.Close()
}
