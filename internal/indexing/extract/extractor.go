// Package extract turns raw subscription records into transaction summaries.
package extract

import (
	"time"

	"github.com/mr-tron/base58"
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/vietddude/tokenwatch/internal/core/domain"
	"github.com/vietddude/tokenwatch/internal/infra/geyser"
)

// Extractor reads transaction records. It never fails: anything missing or
// shaped unexpectedly degrades to an absent signature and an empty account list.
type Extractor struct {
	now func() time.Time
}

// New creates an extractor stamping summaries with the wall clock.
func New() *Extractor {
	return &Extractor{now: time.Now}
}

// NewWithClock creates an extractor with a custom clock.
func NewWithClock(now func() time.Time) *Extractor {
	return &Extractor{now: now}
}

// Extract builds a summary from an update record. The path read is
// transaction -> transaction (info) -> transaction -> {signatures, message.account_keys}.
func (e *Extractor) Extract(update protoreflect.Message) *domain.TransactionSummary {
	summary := domain.NewTransactionSummary(e.now())

	kind, payload := geyser.Payload(update)
	if kind != geyser.KindTransaction || payload == nil {
		return summary
	}
	summary.Slot = geyser.Uint64Field(payload, "slot")

	info := geyser.MessageField(payload, "transaction")
	tx := geyser.MessageField(info, "transaction")
	if tx == nil {
		return summary
	}

	// Only the first (fee payer) signature is kept.
	if sig, ok := firstEncoded(tx, "signatures"); ok {
		summary.Signature = &sig
	}

	if keys := encodedList(geyser.MessageField(tx, "message"), "account_keys"); len(keys) > 0 {
		summary.SetAccounts(keys)
	}
	return summary
}

func firstEncoded(m protoreflect.Message, name string) (string, bool) {
	list, fd := geyser.ListField(m, name)
	if list == nil || list.Len() == 0 {
		return "", false
	}
	s, ok := encode(list.Get(0), fd)
	return s, ok && s != ""
}

// encodedList reads a repeated bytes or string field as base58 strings in
// wire order. Empty elements are dropped.
func encodedList(m protoreflect.Message, name string) []string {
	list, fd := geyser.ListField(m, name)
	if list == nil || list.Len() == 0 {
		return nil
	}

	out := make([]string, 0, list.Len())
	for i := 0; i < list.Len(); i++ {
		s, ok := encode(list.Get(i), fd)
		if !ok {
			return nil
		}
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func encode(v protoreflect.Value, fd protoreflect.FieldDescriptor) (string, bool) {
	switch fd.Kind() {
	case protoreflect.BytesKind:
		b := v.Bytes()
		if len(b) == 0 {
			return "", true
		}
		return base58.Encode(b), true
	case protoreflect.StringKind:
		return v.String(), true
	}
	return "", false
}
