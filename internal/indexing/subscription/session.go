package subscription

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"

	"github.com/google/uuid"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/vietddude/tokenwatch/internal/indexing/metrics"
	"github.com/vietddude/tokenwatch/internal/infra/geyser"
)

// Stream is one duplex subscription stream: it accepts one request and
// yields records until it ends. Recv returns io.EOF on a graceful end and
// geyser.ErrStreamClosed once the stream was closed.
type Stream interface {
	Send(req proto.Message) error
	Recv() (protoreflect.Message, error)
	Close() error
}

// Opener opens a fresh stream for every session.
type Opener interface {
	Open(ctx context.Context) (Stream, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context) (Stream, error)

func (f OpenerFunc) Open(ctx context.Context) (Stream, error) { return f(ctx) }

// ClientOpener adapts a geyser client to Opener.
func ClientOpener(c *geyser.Client) Opener {
	return OpenerFunc(func(ctx context.Context) (Stream, error) {
		return c.Open(ctx)
	})
}

// State is the lifecycle of a single session.
type State int

const (
	StateStarting State = iota
	StateStreaming
	StateEnded
	StateClosed
	StateErrored
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateStreaming:
		return "streaming"
	case StateEnded:
		return "ended"
	case StateClosed:
		return "closed"
	case StateErrored:
		return "errored"
	case StateCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Clean reports whether the session terminated without a fault.
func (s State) Clean() bool {
	return s == StateEnded || s == StateClosed
}

// RecordHandler processes one record. Errors and panics are contained to
// the record.
type RecordHandler func(ctx context.Context, sessionID string, record protoreflect.Message) error

// Result is the single outcome of a session.
type Result struct {
	ID      string
	State   State
	Err     error
	Live    bool
	Records uint64
	Failed  uint64
}

// Session holds one stream for the lifetime of one connection attempt.
type Session struct {
	id      string
	state   State
	request proto.Message
	handler RecordHandler
	onLive  func(id string)
}

// NewSession creates a session with a fresh id.
func NewSession(request proto.Message, handler RecordHandler, onLive func(id string)) *Session {
	return &Session{
		id:      uuid.NewString(),
		state:   StateStarting,
		request: request,
		handler: handler,
		onLive:  onLive,
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Run opens a stream, writes the request and processes records until the
// stream terminates. Records are handled one at a time on the calling
// goroutine, so the result is only produced after the last record returned.
func (s *Session) Run(ctx context.Context, opener Opener) Result {
	res := Result{ID: s.id}
	log := slog.With("session", s.id)

	stream, err := opener.Open(ctx)
	if err != nil {
		return s.finish(ctx, res, fmt.Errorf("open stream: %w", err))
	}
	defer stream.Close()

	// Unblock Recv on shutdown.
	stop := context.AfterFunc(ctx, func() { _ = stream.Close() })
	defer stop()

	if err := stream.Send(s.request); err != nil {
		return s.finish(ctx, res, err)
	}
	s.state = StateStreaming
	res.Live = true
	if s.onLive != nil {
		s.onLive(s.id)
	}
	log.Info("Subscription live")

	for {
		record, err := stream.Recv()
		if err != nil {
			return s.finish(ctx, res, err)
		}
		res.Records++
		if err := s.handle(ctx, record); err != nil {
			res.Failed++
			metrics.PipelineErrors.WithLabelValues("record").Inc()
			log.Error("Failed to process record", "error", err)
		}
	}
}

func (s *Session) handle(ctx context.Context, record protoreflect.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			slog.Debug("Record panic", "session", s.id, "stack", string(debug.Stack()))
		}
	}()
	return s.handler(ctx, s.id, record)
}

func (s *Session) finish(ctx context.Context, res Result, err error) Result {
	switch {
	case ctx.Err() != nil:
		s.state = StateCancelled
	case !res.Live:
		// Failing to open or to write the request is a fault whatever the cause.
		s.state = StateErrored
	case errors.Is(err, io.EOF):
		s.state = StateEnded
		err = nil
	case errors.Is(err, geyser.ErrStreamClosed):
		s.state = StateClosed
		err = nil
	default:
		s.state = StateErrored
	}
	res.State = s.state
	res.Err = err
	metrics.SessionsTotal.WithLabelValues(s.state.String()).Inc()
	return res
}
