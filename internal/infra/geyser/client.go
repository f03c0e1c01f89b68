// Package geyser implements the Yellowstone Geyser subscription transport.
//
// This package contains:
//   - Schema: runtime descriptors for the subscription protocol
//   - Client: a shared gRPC connection that opens Subscribe streams
//   - Stream: one bidirectional Subscribe call
//   - record accessors that read loosely shaped updates without panicking
package geyser

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// ErrStreamClosed is returned by Recv once the stream was closed locally.
var ErrStreamClosed = errors.New("geyser: stream closed")

// ErrMissingEndpoint is returned when no endpoint is configured.
var ErrMissingEndpoint = errors.New("geyser: endpoint is required")

// Config holds the transport settings.
type Config struct {
	Endpoint         string        `yaml:"endpoint"`
	Token            string        `yaml:"token"`
	KeepAlive        time.Duration `yaml:"keepalive"`
	KeepAliveTimeout time.Duration `yaml:"keepalive_timeout"`
	MaxRecvMsgSize   int           `yaml:"max_recv_msg_size"`
}

// Client opens Subscribe streams over one shared connection.
type Client struct {
	schema *Schema
	conn   *grpc.ClientConn
	token  string
	desc   *grpc.StreamDesc
}

// NewClient creates a client. The connection is established lazily by the
// first Open.
func NewClient(cfg Config, schema *Schema) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, ErrMissingEndpoint
	}

	target, opts := dialOptions(cfg)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create grpc client for %s: %w", target, err)
	}

	return &Client{
		schema: schema,
		conn:   conn,
		token:  cfg.Token,
		desc: &grpc.StreamDesc{
			StreamName:    string(schema.Subscribe.Name()),
			ServerStreams: true,
			ClientStreams: true,
		},
	}, nil
}

func dialOptions(cfg Config) (string, []grpc.DialOption) {
	target := cfg.Endpoint
	var opts []grpc.DialOption

	if strings.HasPrefix(target, "https://") || strings.HasSuffix(target, ":443") {
		creds := credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
		opts = append(opts, grpc.WithTransportCredentials(creds))
		target = strings.TrimPrefix(target, "https://")
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
		target = strings.TrimPrefix(target, "http://")
	}
	target = strings.TrimSuffix(target, "/")

	keepAlive := cfg.KeepAlive
	if keepAlive <= 0 {
		keepAlive = 10 * time.Second
	}
	timeout := cfg.KeepAliveTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	opts = append(opts, grpc.WithKeepaliveParams(keepalive.ClientParameters{
		Time:                keepAlive,
		Timeout:             timeout,
		PermitWithoutStream: true,
	}))

	maxRecv := cfg.MaxRecvMsgSize
	if maxRecv <= 0 {
		maxRecv = 1 << 30
	}
	opts = append(opts, grpc.WithDefaultCallOptions(grpc.MaxCallRecvMsgSize(maxRecv)))

	return target, opts
}

// Open starts a Subscribe call. The stream lives until Close is called, the
// server ends it or ctx is cancelled.
func (c *Client) Open(ctx context.Context) (*Stream, error) {
	if c.token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "x-token", c.token)
	}
	streamCtx, cancel := context.WithCancel(ctx)

	cs, err := c.conn.NewStream(streamCtx, c.desc, c.schema.MethodPath())
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open subscribe stream: %w", err)
	}
	return &Stream{cs: cs, cancel: cancel, update: c.schema.Update}, nil
}

// Close releases the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Stream is one bidirectional Subscribe call.
type Stream struct {
	cs     grpc.ClientStream
	cancel context.CancelFunc
	update protoreflect.MessageDescriptor
	closed atomic.Bool
}

// Send writes a subscription request and waits for the transport to accept it.
func (s *Stream) Send(req proto.Message) error {
	if err := s.cs.SendMsg(req); err != nil {
		if errors.Is(err, io.EOF) {
			// The real cause is reported by RecvMsg.
			if rerr := s.cs.RecvMsg(dynamicpb.NewMessage(s.update)); rerr != nil && !errors.Is(rerr, io.EOF) {
				err = rerr
			}
		}
		return fmt.Errorf("failed to send subscribe request: %w", err)
	}
	return nil
}

// Recv blocks for the next record. io.EOF marks a graceful end.
func (s *Stream) Recv() (protoreflect.Message, error) {
	msg := dynamicpb.NewMessage(s.update)
	if err := s.cs.RecvMsg(msg); err != nil {
		if s.closed.Load() {
			return nil, ErrStreamClosed
		}
		return nil, err
	}
	return msg, nil
}

// Close half-closes the stream and cancels the call. It is idempotent.
func (s *Stream) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	err := s.cs.CloseSend()
	s.cancel()
	return err
}
