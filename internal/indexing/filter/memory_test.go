package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vietddude/tokenwatch/internal/core/domain"
)

const (
	tokenProgram    = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	metadataProgram = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"
	systemProgram   = "11111111111111111111111111111111"
	wrappedSOL      = "So11111111111111111111111111111111111111112"
	walletA         = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
)

func summaryOf(accounts ...string) *domain.TransactionSummary {
	s := domain.NewTransactionSummary(time.Time{})
	s.SetAccounts(accounts)
	return s
}

func TestProgramFilter(t *testing.T) {
	f := NewProgramFilter([]string{tokenProgram, metadataProgram, tokenProgram})

	assert.True(t, f.Contains(tokenProgram))
	assert.False(t, f.Contains(walletA))
	assert.Equal(t, 2, f.Size())
	assert.Equal(t, []string{tokenProgram, metadataProgram}, f.Addresses())
}

func TestProgramFilter_CaseSensitive(t *testing.T) {
	f := NewProgramFilter([]string{tokenProgram})

	assert.False(t, f.Contains("tokenkegqfezyinwajbnbgkpfxcwubvf9ss623vq5da"))
}

func TestProgramFilter_Admit(t *testing.T) {
	f := NewProgramFilter([]string{tokenProgram, metadataProgram})

	tests := []struct {
		name     string
		summary  *domain.TransactionSummary
		expected bool
	}{
		{"single hit", summaryOf(walletA, tokenProgram), true},
		{"both programs", summaryOf(metadataProgram, tokenProgram), true},
		{"disjoint", summaryOf(walletA, systemProgram, wrappedSOL), false},
		{"no accounts", summaryOf(), false},
		{"nil summary", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, f.Admit(tt.summary))
		})
	}
}

func TestProgramFilter_AdmitIsPermutationInvariant(t *testing.T) {
	f := NewProgramFilter([]string{tokenProgram})

	for _, accounts := range [][]string{
		{walletA, systemProgram, tokenProgram, wrappedSOL},
		{walletA, systemProgram, wrappedSOL},
	} {
		want := f.Admit(summaryOf(accounts...))
		permute(accounts, 0, func(p []string) {
			assert.Equal(t, want, f.Admit(summaryOf(p...)), "permutation %v", p)
		})
	}
}

func TestProgramFilter_Partition(t *testing.T) {
	f := NewProgramFilter([]string{tokenProgram, metadataProgram})

	programs, others := f.Partition([]string{
		walletA, metadataProgram, tokenProgram, systemProgram, metadataProgram, wrappedSOL,
	})

	assert.Equal(t, []string{metadataProgram, tokenProgram}, programs)
	assert.Equal(t, []string{walletA, systemProgram, wrappedSOL}, others)
}

func TestProgramFilter_PartitionEmpty(t *testing.T) {
	programs, others := NewProgramFilter(nil).Partition(nil)

	assert.NotNil(t, programs)
	assert.NotNil(t, others)
	assert.Empty(t, programs)
	assert.Empty(t, others)
}

func TestNewRegistryFilter(t *testing.T) {
	r := domain.NewRegistry([]domain.Program{
		{Address: tokenProgram, Name: "Token Program"},
		{Address: metadataProgram, Name: "Token Metadata Program"},
	})

	f := NewRegistryFilter(r)

	assert.True(t, f.Contains(tokenProgram))
	assert.True(t, f.Contains(metadataProgram))
	assert.Equal(t, 2, f.Size())
}

// permute calls fn with a copy of every ordering of s.
func permute(s []string, k int, fn func([]string)) {
	if k == len(s) {
		fn(append([]string(nil), s...))
		return
	}
	for i := k; i < len(s); i++ {
		s[k], s[i] = s[i], s[k]
		permute(s, k+1, fn)
		s[k], s[i] = s[i], s[k]
	}
}
