// Package filter decides which transactions are of interest.
package filter

import "github.com/vietddude/tokenwatch/internal/core/domain"

// Filter defines the interface for transaction admission.
type Filter interface {
	// Contains checks if an address is on the allow-list
	Contains(address string) bool

	// Admit reports whether a summary touches at least one allow-listed address
	Admit(summary *domain.TransactionSummary) bool

	// Partition splits accounts into allow-listed and other addresses
	Partition(accounts []string) (programs, others []string)

	// Size returns the number of allow-listed addresses
	Size() int
}
