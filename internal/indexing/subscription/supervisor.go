// Package subscription keeps a Geyser subscription alive.
//
// A Supervisor runs one Session at a time. Each session opens a stream,
// writes the subscription request and feeds every record through the
// extract -> filter -> emit pipeline. Graceful ends reconnect at once;
// failures back off exponentially until the retry ceiling is reached.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"

	"github.com/vietddude/tokenwatch/internal/indexing/emitter"
	"github.com/vietddude/tokenwatch/internal/indexing/extract"
	"github.com/vietddude/tokenwatch/internal/indexing/filter"
	"github.com/vietddude/tokenwatch/internal/indexing/metrics"
	"github.com/vietddude/tokenwatch/internal/indexing/recovery"
)

// ErrMaxRetriesExceeded is returned by Run once consecutive failures reach
// the policy's ceiling.
var ErrMaxRetriesExceeded = errors.New("max retries exceeded")

// Config wires a supervisor.
type Config struct {
	Policy    *recovery.ExponentialBackoff
	Request   proto.Message
	Opener    Opener
	Extractor *extract.Extractor
	Filter    filter.Filter
	Emitter   emitter.Emitter
	Debug     bool

	// Sleep waits between attempts. Defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// Now defaults to time.Now.
	Now func() time.Time
}

// Status is a point-in-time view of the supervisor.
type Status struct {
	Phase        Phase     `json:"phase"`
	Retries      int       `json:"retries"`
	MaxRetries   int       `json:"max_retries"`
	Transactions uint64    `json:"transactions"`
	Sessions     uint64    `json:"sessions"`
	SessionID    string    `json:"session_id,omitempty"`
	LastRecord   time.Time `json:"last_record,omitzero"`
	LastError    string    `json:"last_error,omitempty"`
}

// Supervisor owns the reconnect loop and the process-lifetime counters.
type Supervisor struct {
	policy    *recovery.ExponentialBackoff
	request   proto.Message
	opener    Opener
	extractor *extract.Extractor
	filter    filter.Filter
	emitter   emitter.Emitter
	debug     bool
	sleep     func(ctx context.Context, d time.Duration) error
	now       func() time.Time

	mu        sync.RWMutex
	machine   *Machine
	sessionID string
	lastErr   error

	transactions atomic.Uint64
	sessions     atomic.Uint64
	lastRecord   atomic.Int64
}

// New validates cfg and creates a supervisor.
func New(cfg Config) (*Supervisor, error) {
	switch {
	case cfg.Request == nil:
		return nil, errors.New("subscription request is required")
	case cfg.Opener == nil:
		return nil, errors.New("stream opener is required")
	case cfg.Filter == nil:
		return nil, errors.New("filter is required")
	case cfg.Emitter == nil:
		return nil, errors.New("emitter is required")
	}
	if cfg.Policy == nil {
		cfg.Policy = recovery.DefaultBackoff()
	}
	if cfg.Extractor == nil {
		cfg.Extractor = extract.New()
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepContext
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Supervisor{
		policy:    cfg.Policy,
		request:   cfg.Request,
		opener:    cfg.Opener,
		extractor: cfg.Extractor,
		filter:    cfg.Filter,
		emitter:   cfg.Emitter,
		debug:     cfg.Debug,
		sleep:     cfg.Sleep,
		now:       cfg.Now,
		machine:   NewMachine(cfg.Policy),
	}, nil
}

// Run supervises sessions until ctx is cancelled (nil) or the retry ceiling
// is reached (ErrMaxRetriesExceeded).
func (s *Supervisor) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			s.fire(EventStop)
			return nil
		}

		if _, err := s.fire(EventAttempt); err != nil {
			return err
		}
		session := NewSession(s.request, s.handleRecord, s.onLive)
		s.sessions.Add(1)
		s.setSession(session.ID())

		res := session.Run(ctx, s.opener)

		switch {
		case res.State == StateCancelled:
			s.fire(EventStop)
			slog.Info("Subscription stopped", "session", res.ID, "records", res.Records)
			return nil

		case res.State.Clean():
			if _, err := s.fire(EventClean); err != nil {
				return err
			}
			slog.Warn("Stream "+res.State.String()+", reconnecting", "session", res.ID, "records", res.Records)

		default:
			t, err := s.fire(EventFault)
			if err != nil {
				return err
			}
			s.setError(res.Err)
			metrics.RetryCount.Set(float64(t.Retries))

			if t.To == PhaseFatal {
				slog.Error("Max retries reached, giving up",
					"attempts", t.Retries,
					"error", res.Err,
					"code", status.Code(res.Err).String(),
				)
				return fmt.Errorf("%w after %d attempts: %w", ErrMaxRetriesExceeded, t.Retries, res.Err)
			}

			slog.Warn("Stream error, retrying",
				"attempt", t.Retries,
				"max", s.policy.MaxAttempts,
				"delay", t.Delay,
				"error", res.Err,
				"code", status.Code(res.Err).String(),
			)
			metrics.BackoffDelay.Set(t.Delay.Seconds())

			if err := s.sleep(ctx, t.Delay); err != nil {
				s.fire(EventStop)
				return nil
			}
			if _, err := s.fire(EventWake); err != nil {
				return err
			}
		}
	}
}

func (s *Supervisor) onLive(id string) {
	if _, err := s.fire(EventLive); err != nil {
		slog.Error("Unexpected live event", "session", id, "error", err)
	}
	metrics.RetryCount.Set(0)
}

func (s *Supervisor) fire(ev Event) (Transition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Fire(ev)
}

func (s *Supervisor) setSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionID = id
}

func (s *Supervisor) setError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
}

// Transactions returns the lifetime count of admitted transactions.
func (s *Supervisor) Transactions() uint64 {
	return s.transactions.Load()
}

// Status returns a snapshot for health reporting.
func (s *Supervisor) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		Phase:        s.machine.Phase(),
		Retries:      s.machine.Retries(),
		MaxRetries:   s.policy.MaxAttempts,
		Transactions: s.transactions.Load(),
		Sessions:     s.sessions.Load(),
		SessionID:    s.sessionID,
	}
	if ns := s.lastRecord.Load(); ns > 0 {
		st.LastRecord = time.Unix(0, ns).UTC()
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
