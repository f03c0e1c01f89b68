package control

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/vietddude/tokenwatch/internal/core/config"
	"github.com/vietddude/tokenwatch/internal/indexing/health"
	"github.com/vietddude/tokenwatch/internal/indexing/subscription"
	"github.com/vietddude/tokenwatch/internal/infra/geyser"
	"github.com/vietddude/tokenwatch/internal/infra/geyser/geysertest"
)

const (
	tokenProgram = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	wallet       = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
)

// onceOpener serves the given streams and cancels the run afterwards.
type onceOpener struct {
	mu      sync.Mutex
	streams []*geysertest.Stream
	cancel  context.CancelFunc
}

func (o *onceOpener) Open(ctx context.Context) (subscription.Stream, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.streams) == 0 {
		o.cancel()
		return nil, context.Canceled
	}
	s := o.streams[0]
	o.streams = o.streams[1:]
	return s, nil
}

func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Geyser.Endpoint = "localhost:10000"
	cfg.Server.Port = 0
	cfg.Storage.Driver = config.StorageMemory
	cfg.Display.Timezone = "UTC"
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestWatcher_Lifecycle(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sig := geysertest.Key("5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW")
	opener := &onceOpener{
		cancel: cancel,
		streams: []*geysertest.Stream{geysertest.NewStream(
			geysertest.Record(geysertest.SlotUpdate(99)),
			geysertest.Record(geysertest.TransactionUpdate(100, [][]byte{sig}, geysertest.Keys(wallet, tokenProgram))),
			geysertest.Record(geysertest.TransactionUpdate(101, [][]byte{sig}, geysertest.Keys(wallet))),
			geysertest.End(),
		)},
	}

	var out bytes.Buffer
	w, err := NewWatcher(ctx, Config{App: testConfig(t), Out: &out, Opener: opener})
	require.NoError(t, err)
	require.NotNil(t, w.repo)
	assert.Nil(t, w.pruner)
	assert.Equal(t, 2, w.emitters.Len())

	require.NoError(t, w.Run(ctx))

	assert.Equal(t, uint64(1), w.Supervisor().Transactions())
	assert.Contains(t, out.String(), "Token Transaction Details #1")
	assert.Contains(t, out.String(), "Token Program")
	assert.NotContains(t, out.String(), "#2")

	count, err := w.repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	report := w.Health().CheckHealth(context.Background())
	require.NotNil(t, report.Storage)
	assert.Equal(t, int64(1), report.Storage.Transactions)
	assert.NotEqual(t, health.StatusCritical, report.SystemStatus)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	assert.NoError(t, w.Stop(stopCtx))
}

func TestWatcher_NoStorage(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Driver = config.StorageNone

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, err := NewWatcher(ctx, Config{App: cfg, Out: &bytes.Buffer{}, Opener: &onceOpener{cancel: cancel}})
	require.NoError(t, err)
	assert.Nil(t, w.repo)
	assert.Equal(t, 1, w.emitters.Len())

	require.NoError(t, w.Run(ctx))
	assert.Nil(t, w.Health().CheckHealth(context.Background()).Storage)
	assert.NoError(t, w.Stop(context.Background()))
}

func TestWatcher_RequiresConfig(t *testing.T) {
	_, err := NewWatcher(context.Background(), Config{})
	assert.Error(t, err)
}

func TestWatcher_UnknownStorage(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Driver = "sqlite"

	_, err := NewWatcher(context.Background(), Config{App: cfg, Opener: &onceOpener{}})
	assert.ErrorContains(t, err, "unknown storage driver")
}

// blockingStream delivers nothing until it is closed.
type blockingStream struct {
	closed chan struct{}
	once   sync.Once
}

func newBlockingStream() *blockingStream {
	return &blockingStream{closed: make(chan struct{})}
}

func (s *blockingStream) Send(proto.Message) error { return nil }

func (s *blockingStream) Recv() (protoreflect.Message, error) {
	<-s.closed
	return nil, geyser.ErrStreamClosed
}

func (s *blockingStream) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

func TestWatcher_GracefulShutdown(t *testing.T) {
	stream := newBlockingStream()
	opener := subscription.OpenerFunc(func(ctx context.Context) (subscription.Stream, error) {
		return stream, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	w, err := NewWatcher(ctx, Config{App: testConfig(t), Out: &bytes.Buffer{}, Opener: opener})
	require.NoError(t, err)

	runErr := make(chan error, 1)
	go func() {
		runErr <- w.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		return w.Supervisor().Status().Phase == subscription.PhaseAttempting && w.Supervisor().Status().Sessions == 1
	}, time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-runErr:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	assert.NoError(t, w.Stop(stopCtx))
}
