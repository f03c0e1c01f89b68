package extract

import (
	"bytes"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/vietddude/tokenwatch/internal/infra/geyser/geysertest"
)

const (
	tokenProgram  = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	systemProgram = "11111111111111111111111111111111"
	wrappedSOL    = "So11111111111111111111111111111111111111112"
)

var fixedNow = time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

func newTestExtractor() *Extractor {
	return NewWithClock(func() time.Time { return fixedNow })
}

func TestExtract_FullTransaction(t *testing.T) {
	first := bytes.Repeat([]byte{7}, 64)
	second := bytes.Repeat([]byte{9}, 64)
	record := geysertest.TransactionUpdate(
		321,
		[][]byte{first, second},
		geysertest.Keys(wrappedSOL, tokenProgram, systemProgram),
	)

	summary := newTestExtractor().Extract(record)

	require.NotNil(t, summary.Signature)
	assert.Equal(t, base58.Encode(first), *summary.Signature)
	assert.Equal(t, uint64(321), summary.Slot)
	assert.Equal(t, []string{wrappedSOL, tokenProgram, systemProgram}, summary.Accounts)
	assert.Equal(t, summary.Accounts, summary.ProgramIDs)
	assert.Equal(t, fixedNow, summary.Timestamp)
}

func TestExtract_ProgramIDsAreACopy(t *testing.T) {
	record := geysertest.TransactionUpdate(1, nil, geysertest.Keys(tokenProgram))

	summary := newTestExtractor().Extract(record)
	summary.ProgramIDs[0] = "changed"

	assert.Equal(t, tokenProgram, summary.Accounts[0])
}

func TestExtract_DegradesOnMissingFields(t *testing.T) {
	tests := []struct {
		name   string
		record protoreflect.Message
	}{
		{"nil record", nil},
		{"no payload", geysertest.EmptyUpdate()},
		{"transaction without body", geysertest.EmptyTransactionUpdate()},
		{"no signatures and no account keys", geysertest.TransactionUpdate(5, nil, nil)},
		{"empty lists", geysertest.TransactionUpdate(5, [][]byte{}, [][]byte{})},
		{"empty signature bytes", geysertest.TransactionUpdate(5, [][]byte{{}}, nil)},
		{"block record", geysertest.BlockUpdate(10, "hash", 9, "parent")},
		{"slot record", geysertest.SlotUpdate(10)},
		{"ping record", geysertest.PingUpdate()},
		{"foreign message", dynamicpb.NewMessage(geysertest.Schema().Request)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary := newTestExtractor().Extract(tt.record)

			require.NotNil(t, summary)
			assert.Nil(t, summary.Signature)
			assert.NotNil(t, summary.Accounts)
			assert.Empty(t, summary.Accounts)
			assert.Empty(t, summary.ProgramIDs)
			assert.Equal(t, fixedNow, summary.Timestamp)
		})
	}
}

func TestExtract_SignatureWithoutAccounts(t *testing.T) {
	sig := bytes.Repeat([]byte{1}, 64)
	summary := newTestExtractor().Extract(geysertest.TransactionUpdate(2, [][]byte{sig}, nil))

	require.NotNil(t, summary.Signature)
	assert.Equal(t, base58.Encode(sig), *summary.Signature)
	assert.Empty(t, summary.Accounts)
}

func TestExtract_AccountsWithoutSignature(t *testing.T) {
	summary := newTestExtractor().Extract(geysertest.TransactionUpdate(2, nil, geysertest.Keys(tokenProgram)))

	assert.Nil(t, summary.Signature)
	assert.Equal(t, []string{tokenProgram}, summary.Accounts)
}

func TestExtract_FreshTimestampPerRecord(t *testing.T) {
	calls := 0
	e := NewWithClock(func() time.Time {
		calls++
		return fixedNow.Add(time.Duration(calls) * time.Second)
	})

	a := e.Extract(geysertest.EmptyUpdate())
	b := e.Extract(geysertest.EmptyUpdate())

	assert.True(t, b.Timestamp.After(a.Timestamp))
	assert.Equal(t, "2024-05-01T12:30:01Z", a.ISOTimestamp())
}
