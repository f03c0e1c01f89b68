package subscription

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/vietddude/tokenwatch/internal/infra/geyser/geysertest"
)

func openerOf(s *geysertest.Stream) Opener {
	return OpenerFunc(func(ctx context.Context) (Stream, error) { return s, nil })
}

func newTestSession(handler RecordHandler, onLive func(string)) *Session {
	if handler == nil {
		handler = func(context.Context, string, protoreflect.Message) error { return nil }
	}
	return NewSession(dynamicpb.NewMessage(geysertest.Schema().Request), handler, onLive)
}

func TestSession_TerminalStates(t *testing.T) {
	tests := []struct {
		name    string
		last    geysertest.Step
		state   State
		wantErr bool
	}{
		{"graceful end", geysertest.End(), StateEnded, false},
		{"closed", geysertest.Closed(), StateClosed, false},
		{"transport error", geysertest.Fail(errTransport), StateErrored, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stream := geysertest.NewStream(geysertest.Record(geysertest.SlotUpdate(1)), tt.last)

			res := newTestSession(nil, nil).Run(context.Background(), openerOf(stream))

			assert.Equal(t, tt.state, res.State)
			assert.True(t, res.Live)
			assert.Equal(t, uint64(1), res.Records)
			assert.Equal(t, tt.wantErr, res.Err != nil)
			assert.True(t, stream.IsClosed())
		})
	}
}

func TestSession_SendFailureIsAFault(t *testing.T) {
	for _, sendErr := range []error{errTransport, io.EOF} {
		var live bool
		stream := geysertest.NewStream(geysertest.End()).FailSend(sendErr)

		res := newTestSession(nil, func(string) { live = true }).Run(context.Background(), openerOf(stream))

		assert.Equal(t, StateErrored, res.State, "send error %v", sendErr)
		assert.ErrorIs(t, res.Err, sendErr)
		assert.False(t, res.Live)
		assert.False(t, live)
	}
}

func TestSession_OpenFailure(t *testing.T) {
	opener := OpenerFunc(func(ctx context.Context) (Stream, error) {
		return nil, errors.New("no route")
	})

	res := newTestSession(nil, nil).Run(context.Background(), opener)

	assert.Equal(t, StateErrored, res.State)
	assert.ErrorContains(t, res.Err, "no route")
}

func TestSession_LiveAfterSend(t *testing.T) {
	stream := geysertest.NewStream()
	var liveID string
	s := newTestSession(nil, func(id string) {
		liveID = id
		assert.Len(t, stream.Sent(), 1, "request written before going live")
	})

	res := s.Run(context.Background(), openerOf(stream))

	assert.Equal(t, s.ID(), liveID)
	assert.Equal(t, res.ID, liveID)
}

func TestSession_RecordFailuresAreIsolated(t *testing.T) {
	var handled int
	handler := func(ctx context.Context, id string, record protoreflect.Message) error {
		handled++
		switch handled {
		case 2:
			panic("bad record")
		case 3:
			return errors.New("bad record")
		}
		return nil
	}
	stream := geysertest.NewStream(
		geysertest.Record(geysertest.SlotUpdate(1)),
		geysertest.Record(geysertest.SlotUpdate(2)),
		geysertest.Record(geysertest.SlotUpdate(3)),
		geysertest.Record(geysertest.SlotUpdate(4)),
		geysertest.End(),
	)

	res := newTestSession(handler, nil).Run(context.Background(), openerOf(stream))

	assert.Equal(t, StateEnded, res.State)
	assert.Equal(t, 4, handled)
	assert.Equal(t, uint64(4), res.Records)
	assert.Equal(t, uint64(2), res.Failed)
}

func TestSession_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	handler := func(context.Context, string, protoreflect.Message) error {
		cancel()
		return nil
	}
	stream := geysertest.NewStream(geysertest.Record(geysertest.SlotUpdate(1)), geysertest.Fail(errTransport))

	res := newTestSession(handler, nil).Run(ctx, openerOf(stream))

	require.Equal(t, StateCancelled, res.State)
	assert.True(t, stream.IsClosed())
}
