package geyser

import (
	"fmt"
	"slices"
	"strings"

	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/vietddude/tokenwatch/internal/core/domain"
)

// BuildRequest converts the declarative request into its wire form. The
// result is built once and sent unchanged on every session.
func (s *Schema) BuildRequest(req domain.SubscribeRequest) (*dynamicpb.Message, error) {
	msg := dynamicpb.NewMessage(s.Request)

	setGroups(msg, "accounts", req.Accounts, func(m protoreflect.Message, f domain.AccountsFilter) {
		setStrings(m, "account", f.Account)
		setStrings(m, "owner", f.Owner)
		setBool(m, "nonempty_txn_signature", f.NonemptyTxnSignature)
	})
	setGroups(msg, "slots", req.Slots, func(m protoreflect.Message, f domain.SlotsFilter) {
		setBool(m, "filter_by_commitment", f.FilterByCommitment)
		setBool(m, "interslot_updates", f.InterslotUpdates)
	})
	setGroups(msg, "transactions", req.Transactions, fillTransactions)
	setGroups(msg, "transactions_status", req.TransactionsStatus, fillTransactions)
	setGroups(msg, "blocks", req.Blocks, func(m protoreflect.Message, f domain.BlocksFilter) {
		setStrings(m, "account_include", f.AccountInclude)
		setBool(m, "include_transactions", f.IncludeTransactions)
		setBool(m, "include_accounts", f.IncludeAccounts)
		setBool(m, "include_entries", f.IncludeEntries)
	})
	setGroups(msg, "blocks_meta", req.BlocksMeta, func(protoreflect.Message, domain.BlocksMetaFilter) {})
	setGroups(msg, "entry", req.Entry, func(protoreflect.Message, domain.EntryFilter) {})

	if req.Commitment != "" {
		level, err := s.commitmentValue(req.Commitment)
		if err != nil {
			return nil, err
		}
		msg.Set(fieldOf(msg, "commitment"), protoreflect.ValueOfEnum(level))
	}

	if len(req.AccountsDataSlice) > 0 {
		list := msg.Mutable(fieldOf(msg, "accounts_data_slice")).List()
		for _, slice := range req.AccountsDataSlice {
			v := list.NewElement()
			v.Message().Set(fieldOf(v.Message(), "offset"), protoreflect.ValueOfUint64(slice.Offset))
			v.Message().Set(fieldOf(v.Message(), "length"), protoreflect.ValueOfUint64(slice.Length))
			list.Append(v)
		}
	}

	if req.Ping != nil {
		ping := msg.Mutable(fieldOf(msg, "ping")).Message()
		ping.Set(fieldOf(ping, "id"), protoreflect.ValueOfInt32(req.Ping.ID))
	}

	return msg, nil
}

func (s *Schema) commitmentValue(c domain.Commitment) (protoreflect.EnumNumber, error) {
	v := s.Commitment.Values().ByName(protoreflect.Name(strings.ToUpper(string(c))))
	if v == nil {
		return 0, fmt.Errorf("unknown commitment level %q", c)
	}
	return v.Number(), nil
}

func fillTransactions(m protoreflect.Message, f domain.TransactionsFilter) {
	setBool(m, "vote", f.Vote)
	setBool(m, "failed", f.Failed)
	if f.Signature != "" {
		m.Set(fieldOf(m, "signature"), protoreflect.ValueOfString(f.Signature))
	}
	setStrings(m, "account_include", f.AccountInclude)
	setStrings(m, "account_exclude", f.AccountExclude)
	setStrings(m, "account_required", f.AccountRequired)
}

// setGroups fills a map<string, Filter> field in key order.
func setGroups[T any](msg protoreflect.Message, name string, groups map[string]T, fill func(protoreflect.Message, T)) {
	if len(groups) == 0 {
		return
	}
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	m := msg.Mutable(fieldOf(msg, name)).Map()
	for _, k := range keys {
		v := m.NewValue()
		fill(v.Message(), groups[k])
		m.Set(protoreflect.ValueOfString(k).MapKey(), v)
	}
}

func setStrings(m protoreflect.Message, name string, values []string) {
	if len(values) == 0 {
		return
	}
	list := m.Mutable(fieldOf(m, name)).List()
	for _, v := range values {
		list.Append(protoreflect.ValueOfString(v))
	}
}

func setBool(m protoreflect.Message, name string, v *bool) {
	if v == nil {
		return
	}
	m.Set(fieldOf(m, name), protoreflect.ValueOfBool(*v))
}

// fieldOf resolves a field the schema is known to declare.
func fieldOf(m protoreflect.Message, name string) protoreflect.FieldDescriptor {
	fd := m.Descriptor().Fields().ByName(protoreflect.Name(name))
	if fd == nil {
		panic(fmt.Sprintf("geyser: %s has no field %q", m.Descriptor().FullName(), name))
	}
	return fd
}
