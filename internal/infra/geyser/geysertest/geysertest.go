// Package geysertest provides a scripted Subscribe stream and record builders
// for tests. Nothing here touches the network.
package geysertest

import (
	"io"
	"sync"

	"github.com/mr-tron/base58"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/vietddude/tokenwatch/internal/infra/geyser"
)

// Step is one scripted Recv result.
type Step struct {
	Record protoreflect.Message
	Err    error
}

// Record delivers a record.
func Record(m protoreflect.Message) Step { return Step{Record: m} }

// End ends the stream gracefully.
func End() Step { return Step{Err: io.EOF} }

// Closed reports a local close.
func Closed() Step { return Step{Err: geyser.ErrStreamClosed} }

// Fail reports a transport error.
func Fail(err error) Step { return Step{Err: err} }

// Stream replays its steps in order and ends with io.EOF once they run out.
type Stream struct {
	mu      sync.Mutex
	steps   []Step
	sendErr error
	sent    []proto.Message
	closed  bool
}

// NewStream creates a scripted stream.
func NewStream(steps ...Step) *Stream {
	return &Stream{steps: steps}
}

// FailSend makes Send return err.
func (s *Stream) FailSend(err error) *Stream {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sendErr = err
	return s
}

func (s *Stream) Send(req proto.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, req)
	return nil
}

func (s *Stream) Recv() (protoreflect.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.steps) == 0 {
		return nil, io.EOF
	}
	step := s.steps[0]
	s.steps = s.steps[1:]
	return step.Record, step.Err
}

func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Sent returns the requests written so far.
func (s *Stream) Sent() []proto.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]proto.Message(nil), s.sent...)
}

// IsClosed reports whether Close was called.
func (s *Stream) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Schema returns the protocol schema or panics.
func Schema() *geyser.Schema {
	s, err := geyser.LoadSchema()
	if err != nil {
		panic(err)
	}
	return s
}

// Key decodes a base58 address into raw bytes or panics.
func Key(address string) []byte {
	b, err := base58.Decode(address)
	if err != nil {
		panic(err)
	}
	return b
}

// Keys decodes several base58 addresses.
func Keys(addresses ...string) [][]byte {
	out := make([][]byte, 0, len(addresses))
	for _, a := range addresses {
		out = append(out, Key(a))
	}
	return out
}

// TransactionUpdate builds a transaction update. A nil signatures or
// accountKeys slice leaves that field unset.
func TransactionUpdate(slot uint64, signatures [][]byte, accountKeys [][]byte) protoreflect.Message {
	update := Schema().NewUpdate()
	txUpdate := mutable(update, "transaction")
	set(txUpdate, "slot", protoreflect.ValueOfUint64(slot))

	info := mutable(txUpdate, "transaction")
	tx := mutable(info, "transaction")
	appendBytes(tx, "signatures", signatures)
	if accountKeys != nil {
		appendBytes(mutable(tx, "message"), "account_keys", accountKeys)
	}
	return update
}

// EmptyTransactionUpdate builds a transaction update without a payload body.
func EmptyTransactionUpdate() protoreflect.Message {
	update := Schema().NewUpdate()
	mutable(update, "transaction")
	return update
}

// BlockUpdate builds a block update.
func BlockUpdate(slot uint64, blockhash string, parentSlot uint64, parentBlockhash string) protoreflect.Message {
	update := Schema().NewUpdate()
	block := mutable(update, "block")
	set(block, "slot", protoreflect.ValueOfUint64(slot))
	set(block, "blockhash", protoreflect.ValueOfString(blockhash))
	set(block, "parent_slot", protoreflect.ValueOfUint64(parentSlot))
	set(block, "parent_blockhash", protoreflect.ValueOfString(parentBlockhash))
	return update
}

// SlotUpdate builds a slot update.
func SlotUpdate(slot uint64) protoreflect.Message {
	update := Schema().NewUpdate()
	set(mutable(update, "slot"), "slot", protoreflect.ValueOfUint64(slot))
	return update
}

// PingUpdate builds a server ping.
func PingUpdate() protoreflect.Message {
	update := Schema().NewUpdate()
	mutable(update, "ping")
	return update
}

// EmptyUpdate builds an update without any payload.
func EmptyUpdate() protoreflect.Message {
	return Schema().NewUpdate()
}

func mutable(m protoreflect.Message, name string) protoreflect.Message {
	return m.Mutable(field(m, name)).Message()
}

func set(m protoreflect.Message, name string, v protoreflect.Value) {
	m.Set(field(m, name), v)
}

func appendBytes(m protoreflect.Message, name string, values [][]byte) {
	if values == nil {
		return
	}
	list := m.Mutable(field(m, name)).List()
	for _, v := range values {
		list.Append(protoreflect.ValueOfBytes(v))
	}
}

func field(m protoreflect.Message, name string) protoreflect.FieldDescriptor {
	fd := m.Descriptor().Fields().ByName(protoreflect.Name(name))
	if fd == nil {
		panic("geysertest: unknown field " + name)
	}
	return fd
}
