package domain

import (
	"slices"
	"time"
)

// TransactionSummary is the typed view of a transaction wire record.
//
// Accounts keeps the on-wire order of the message account keys. ProgramIDs is
// a copy of Accounts: the stream only carries the account key list, so every
// account is a program candidate. Membership tests against the allow-list use
// Accounts.
type TransactionSummary struct {
	Signature  *string   `json:"signature"   bson:"signature"`
	Slot       uint64    `json:"slot"        bson:"slot"`
	Timestamp  time.Time `json:"timestamp"   bson:"timestamp"`
	Accounts   []string  `json:"accounts"    bson:"accounts"`
	ProgramIDs []string  `json:"program_ids" bson:"program_ids"`
}

// NewTransactionSummary returns an empty summary stamped with now.
func NewTransactionSummary(now time.Time) *TransactionSummary {
	return &TransactionSummary{
		Timestamp:  now.UTC(),
		Accounts:   []string{},
		ProgramIDs: []string{},
	}
}

// SetAccounts replaces the account list and the program candidate list.
func (t *TransactionSummary) SetAccounts(accounts []string) {
	t.Accounts = accounts
	t.ProgramIDs = slices.Clone(accounts)
}

// SignatureOr returns the signature or fallback when it is absent.
func (t *TransactionSummary) SignatureOr(fallback string) string {
	if t.Signature == nil {
		return fallback
	}
	return *t.Signature
}

// ISOTimestamp formats the extraction time as ISO-8601.
func (t *TransactionSummary) ISOTimestamp() string {
	return t.Timestamp.Format(time.RFC3339Nano)
}
