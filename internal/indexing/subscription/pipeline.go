package subscription

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/vietddude/tokenwatch/internal/core/domain"
	"github.com/vietddude/tokenwatch/internal/indexing/metrics"
	"github.com/vietddude/tokenwatch/internal/infra/geyser"
)

// handleRecord routes one record: transactions go through
// extract -> filter -> emit, blocks are logged, everything else is counted.
func (s *Supervisor) handleRecord(ctx context.Context, sessionID string, record protoreflect.Message) error {
	kind, payload := geyser.Payload(record)
	metrics.RecordsReceived.WithLabelValues(kind).Inc()
	s.lastRecord.Store(s.now().UnixNano())

	if s.debug && record != nil && record.IsValid() {
		slog.Debug("Received record", "session", sessionID, "kind", kind,
			"data", protojson.Format(record.Interface()))
	}

	switch kind {
	case geyser.KindTransaction:
		return s.handleTransaction(ctx, sessionID, record)
	case geyser.KindBlock:
		logBlock(payload)
	case geyser.KindSlot:
		slot := geyser.Uint64Field(payload, "slot")
		metrics.LastSlot.Set(float64(slot))
		slog.Debug("Slot", "slot", slot)
	default:
		slog.Debug("Skipping record", "kind", kind)
	}
	return nil
}

func (s *Supervisor) handleTransaction(ctx context.Context, sessionID string, record protoreflect.Message) error {
	summary := s.extractor.Extract(record)
	if summary.Slot > 0 {
		metrics.LastSlot.Set(float64(summary.Slot))
	}
	if !s.filter.Admit(summary) {
		return nil
	}

	programs, others := s.filter.Partition(summary.Accounts)
	seq := s.transactions.Add(1)
	metrics.TransactionsAdmitted.Inc()

	event := &domain.Event{
		Seq:       seq,
		SessionID: sessionID,
		Summary:   summary,
		Programs:  programs,
		Others:    others,
		EmittedAt: s.now().UTC(),
	}
	if err := s.emitter.Emit(ctx, event); err != nil {
		metrics.PipelineErrors.WithLabelValues("emit").Inc()
		return fmt.Errorf("emit transaction #%d (%s): %w", seq, summary.SignatureOr("N/A"), err)
	}
	return nil
}

func logBlock(block protoreflect.Message) {
	slog.Info("Block",
		"slot", geyser.Uint64Field(block, "slot"),
		"blockhash", geyser.StringField(block, "blockhash"),
		"parent_slot", geyser.Uint64Field(block, "parent_slot"),
		"parent_blockhash", geyser.StringField(block, "parent_blockhash"),
	)
}
