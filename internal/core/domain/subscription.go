package domain

// Commitment is a ledger finality tier.
type Commitment string

const (
	CommitmentProcessed Commitment = "processed"
	CommitmentConfirmed Commitment = "confirmed"
	CommitmentFinalized Commitment = "finalized"
)

// Valid reports whether c is empty or one of the known tiers.
func (c Commitment) Valid() bool {
	switch c {
	case "", CommitmentProcessed, CommitmentConfirmed, CommitmentFinalized:
		return true
	}
	return false
}

// SubscribeRequest is the declarative filter configuration sent once per
// session. It is built at startup and reused unchanged on every reconnect.
type SubscribeRequest struct {
	Accounts           map[string]AccountsFilter     `yaml:"accounts"`
	Slots              map[string]SlotsFilter        `yaml:"slots"`
	Transactions       map[string]TransactionsFilter `yaml:"transactions"`
	TransactionsStatus map[string]TransactionsFilter `yaml:"transactions_status"`
	Blocks             map[string]BlocksFilter       `yaml:"blocks"`
	BlocksMeta         map[string]BlocksMetaFilter   `yaml:"blocks_meta"`
	Entry              map[string]EntryFilter        `yaml:"entry"`
	Commitment         Commitment                    `yaml:"commitment"`
	AccountsDataSlice  []DataSlice                   `yaml:"accounts_data_slice"`
	Ping               *Ping                         `yaml:"ping"`
}

// IsEmpty reports whether no filter group is configured.
func (r SubscribeRequest) IsEmpty() bool {
	return len(r.Accounts) == 0 && len(r.Slots) == 0 && len(r.Transactions) == 0 &&
		len(r.TransactionsStatus) == 0 && len(r.Blocks) == 0 && len(r.BlocksMeta) == 0 &&
		len(r.Entry) == 0
}

type AccountsFilter struct {
	Account              []string `yaml:"account"`
	Owner                []string `yaml:"owner"`
	NonemptyTxnSignature *bool    `yaml:"nonempty_txn_signature"`
}

type SlotsFilter struct {
	FilterByCommitment *bool `yaml:"filter_by_commitment"`
	InterslotUpdates   *bool `yaml:"interslot_updates"`
}

type TransactionsFilter struct {
	Vote            *bool    `yaml:"vote"`
	Failed          *bool    `yaml:"failed"`
	Signature       string   `yaml:"signature"`
	AccountInclude  []string `yaml:"account_include"`
	AccountExclude  []string `yaml:"account_exclude"`
	AccountRequired []string `yaml:"account_required"`
}

type BlocksFilter struct {
	AccountInclude      []string `yaml:"account_include"`
	IncludeTransactions *bool    `yaml:"include_transactions"`
	IncludeAccounts     *bool    `yaml:"include_accounts"`
	IncludeEntries      *bool    `yaml:"include_entries"`
}

type BlocksMetaFilter struct{}

type EntryFilter struct{}

// DataSlice limits the account data returned by account updates.
type DataSlice struct {
	Offset uint64 `yaml:"offset"`
	Length uint64 `yaml:"length"`
}

// Ping is the keep-alive marker carried by the request.
type Ping struct {
	ID int32 `yaml:"id"`
}
