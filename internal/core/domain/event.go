package domain

import "time"

// Event is an admitted transaction ready to be rendered and stored.
type Event struct {
	// Seq is the lifetime sequence number, starting at 1.
	Seq       uint64              `json:"seq"        bson:"seq"`
	SessionID string              `json:"session_id" bson:"session_id"`
	Summary   *TransactionSummary `json:"summary"    bson:"summary"`
	// Programs holds the allow-listed accounts, unique, in first-seen order.
	Programs []string `json:"programs" bson:"programs"`
	// Others holds the accounts that are not allow-listed.
	Others    []string  `json:"others"     bson:"others"`
	EmittedAt time.Time `json:"emitted_at" bson:"emitted_at"`
}

// Signature returns the transaction signature, or "" when absent.
func (e *Event) Signature() string {
	if e.Summary == nil {
		return ""
	}
	return e.Summary.SignatureOr("")
}
