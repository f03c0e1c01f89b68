package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/tokenwatch/internal/core/domain"
)

func TestJSONList_Value(t *testing.T) {
	v, err := jsonList(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)

	v, err = jsonList{"a", "b"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `["a","b"]`, v)
}

func TestJSONList_Scan(t *testing.T) {
	var l jsonList
	require.NoError(t, l.Scan([]byte(`["x"]`)))
	assert.Equal(t, []string{"x"}, l.strings())

	require.NoError(t, l.Scan(`["y","z"]`))
	assert.Equal(t, []string{"y", "z"}, l.strings())

	require.NoError(t, l.Scan(nil))
	assert.Equal(t, []string{}, l.strings())

	assert.Error(t, l.Scan(42))
}

func TestTxRow_UnsignedEventKeepsNullSignature(t *testing.T) {
	summary := domain.NewTransactionSummary(time.Unix(1700000000, 0))
	summary.SetAccounts([]string{"acc"})
	row := fromDomain(&domain.Event{Seq: 3, Summary: summary})

	assert.Nil(t, row.Signature)

	back := row.toDomain()
	assert.Nil(t, back.Summary.Signature)
	assert.Equal(t, uint64(3), back.Seq)
	assert.Equal(t, []string{"acc"}, back.Summary.Accounts)
	assert.Equal(t, []string{}, back.Programs)
}

func TestNewDB_RejectsUnknownDriver(t *testing.T) {
	_, err := NewDB(t.Context(), Config{URL: "postgres://localhost/none", Driver: "mysql"})
	assert.ErrorContains(t, err, "unsupported postgres driver")
}
