package filter

import (
	"github.com/vietddude/tokenwatch/internal/core/domain"
)

// ProgramFilter implements Filter over a fixed allow-list held in a map.
// It is immutable after construction and safe for concurrent use. Addresses
// are base58 and compared case-sensitively.
type ProgramFilter struct {
	addresses map[string]struct{}
	ordered   []string
}

// NewProgramFilter creates a filter over the given addresses. Duplicates
// collapse; the first occurrence fixes the order reported by Addresses.
func NewProgramFilter(addresses []string) *ProgramFilter {
	f := &ProgramFilter{addresses: make(map[string]struct{}, len(addresses))}
	for _, addr := range addresses {
		if _, ok := f.addresses[addr]; ok {
			continue
		}
		f.addresses[addr] = struct{}{}
		f.ordered = append(f.ordered, addr)
	}
	return f
}

// NewRegistryFilter creates a filter over every address in the registry.
func NewRegistryFilter(r *domain.Registry) *ProgramFilter {
	return NewProgramFilter(r.Addresses())
}

// Contains checks if an address is on the allow-list.
func (f *ProgramFilter) Contains(address string) bool {
	_, exists := f.addresses[address]
	return exists
}

// Admit reports whether the summary's accounts hit the allow-list.
func (f *ProgramFilter) Admit(summary *domain.TransactionSummary) bool {
	if summary == nil {
		return false
	}
	for _, addr := range summary.Accounts {
		if f.Contains(addr) {
			return true
		}
	}
	return false
}

// Partition returns the unique allow-listed accounts in first-seen order and
// every remaining account in wire order. It is for display only.
func (f *ProgramFilter) Partition(accounts []string) (programs, others []string) {
	programs = []string{}
	others = []string{}
	seen := make(map[string]struct{})
	for _, addr := range accounts {
		if !f.Contains(addr) {
			others = append(others, addr)
			continue
		}
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		programs = append(programs, addr)
	}
	return programs, others
}

// Size returns the number of allow-listed addresses.
func (f *ProgramFilter) Size() int {
	return len(f.addresses)
}

// Addresses returns the allow-listed addresses in insertion order.
func (f *ProgramFilter) Addresses() []string {
	return append([]string(nil), f.ordered...)
}
