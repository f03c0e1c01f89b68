package geyser

import (
	"fmt"
	"strings"
	"sync"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
)

const (
	geyserPackage  = "geyser"
	storagePackage = "solana.storage.ConfirmedBlock"

	requestName    protoreflect.FullName = "geyser.SubscribeRequest"
	updateName     protoreflect.FullName = "geyser.SubscribeUpdate"
	commitmentName protoreflect.FullName = "geyser.CommitmentLevel"
	serviceName    protoreflect.FullName = "geyser.Geyser"
)

// Schema holds the descriptors of the Geyser subscription protocol.
//
// Only the messages this client reads or writes are described, using the
// upstream field numbers. Fields that are not described are kept as unknown
// fields when a record is decoded and are ignored by the extractor.
type Schema struct {
	files      *protoregistry.Files
	Request    protoreflect.MessageDescriptor
	Update     protoreflect.MessageDescriptor
	Commitment protoreflect.EnumDescriptor
	Subscribe  protoreflect.MethodDescriptor
}

var (
	schemaOnce sync.Once
	schema     *Schema
	schemaErr  error
)

// LoadSchema builds the protocol descriptors once per process.
func LoadSchema() (*Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = buildSchema()
	})
	return schema, schemaErr
}

// MethodPath returns the full gRPC path of the Subscribe method.
func (s *Schema) MethodPath() string {
	return fmt.Sprintf("/%s/%s", s.Subscribe.Parent().FullName(), s.Subscribe.Name())
}

// Message looks up a message descriptor by full name.
func (s *Schema) Message(name protoreflect.FullName) (protoreflect.MessageDescriptor, error) {
	d, err := s.files.FindDescriptorByName(name)
	if err != nil {
		return nil, fmt.Errorf("descriptor %s: %w", name, err)
	}
	md, ok := d.(protoreflect.MessageDescriptor)
	if !ok {
		return nil, fmt.Errorf("descriptor %s is not a message", name)
	}
	return md, nil
}

// NewUpdate returns an empty, mutable SubscribeUpdate record.
func (s *Schema) NewUpdate() *dynamicpb.Message {
	return dynamicpb.NewMessage(s.Update)
}

func buildSchema() (*Schema, error) {
	files, err := protodesc.NewFiles(&descriptorpb.FileDescriptorSet{
		File: []*descriptorpb.FileDescriptorProto{storageFile(), geyserFile()},
	})
	if err != nil {
		return nil, fmt.Errorf("build geyser descriptors: %w", err)
	}

	s := &Schema{files: files}
	if s.Request, err = s.Message(requestName); err != nil {
		return nil, err
	}
	if s.Update, err = s.Message(updateName); err != nil {
		return nil, err
	}

	d, err := files.FindDescriptorByName(commitmentName)
	if err != nil {
		return nil, fmt.Errorf("descriptor %s: %w", commitmentName, err)
	}
	s.Commitment = d.(protoreflect.EnumDescriptor)

	d, err = files.FindDescriptorByName(serviceName)
	if err != nil {
		return nil, fmt.Errorf("descriptor %s: %w", serviceName, err)
	}
	s.Subscribe = d.(protoreflect.ServiceDescriptor).Methods().ByName("Subscribe")
	if s.Subscribe == nil {
		return nil, fmt.Errorf("service %s has no Subscribe method", serviceName)
	}
	return s, nil
}

func storageFile() *descriptorpb.FileDescriptorProto {
	return &descriptorpb.FileDescriptorProto{
		Name:    proto.String("solana-storage.proto"),
		Package: proto.String(storagePackage),
		Syntax:  proto.String("proto3"),
		MessageType: []*descriptorpb.DescriptorProto{
			message("Transaction").
				add(repeated(scalar("signatures", 1, bytesType))).
				add(object("message", 2, storageRef("Message"))).
				build(),
			message("Message").
				add(object("header", 1, storageRef("MessageHeader"))).
				add(repeated(scalar("account_keys", 2, bytesType))).
				add(scalar("recent_blockhash", 3, bytesType)).
				add(repeated(object("instructions", 4, storageRef("CompiledInstruction")))).
				add(scalar("versioned", 5, boolType)).
				build(),
			message("MessageHeader").
				add(scalar("num_required_signatures", 1, uint32Type)).
				add(scalar("num_readonly_signed_accounts", 2, uint32Type)).
				add(scalar("num_readonly_unsigned_accounts", 3, uint32Type)).
				build(),
			message("CompiledInstruction").
				add(scalar("program_id_index", 1, uint32Type)).
				add(scalar("accounts", 2, bytesType)).
				add(scalar("data", 3, bytesType)).
				build(),
			message("TransactionError").
				add(scalar("err", 1, bytesType)).
				build(),
			message("TransactionStatusMeta").
				add(object("err", 1, storageRef("TransactionError"))).
				add(scalar("fee", 2, uint64Type)).
				add(repeated(scalar("pre_balances", 3, uint64Type))).
				add(repeated(scalar("post_balances", 4, uint64Type))).
				add(repeated(scalar("log_messages", 6, stringType))).
				build(),
			message("UnixTimestamp").
				add(scalar("timestamp", 1, int64Type)).
				build(),
			message("BlockHeight").
				add(scalar("block_height", 1, uint64Type)).
				build(),
		},
	}
}

func geyserFile() *descriptorpb.FileDescriptorProto {
	return &descriptorpb.FileDescriptorProto{
		Name:       proto.String("geyser.proto"),
		Package:    proto.String(geyserPackage),
		Syntax:     proto.String("proto3"),
		Dependency: []string{"solana-storage.proto"},
		EnumType: []*descriptorpb.EnumDescriptorProto{
			enum("CommitmentLevel", "PROCESSED", "CONFIRMED", "FINALIZED"),
			enum("SlotStatus",
				"SLOT_PROCESSED", "SLOT_CONFIRMED", "SLOT_FINALIZED", "SLOT_FIRST_SHRED_RECEIVED",
				"SLOT_COMPLETED", "SLOT_CREATED_BANK", "SLOT_DEAD"),
		},
		MessageType: []*descriptorpb.DescriptorProto{
			message("SubscribeRequest").
				mapOf("accounts", 1, geyserRef("SubscribeRequestFilterAccounts")).
				mapOf("slots", 2, geyserRef("SubscribeRequestFilterSlots")).
				mapOf("transactions", 3, geyserRef("SubscribeRequestFilterTransactions")).
				mapOf("transactions_status", 10, geyserRef("SubscribeRequestFilterTransactions")).
				mapOf("blocks", 4, geyserRef("SubscribeRequestFilterBlocks")).
				mapOf("blocks_meta", 5, geyserRef("SubscribeRequestFilterBlocksMeta")).
				mapOf("entry", 8, geyserRef("SubscribeRequestFilterEntry")).
				optional(enumField("commitment", 6, geyserRef("CommitmentLevel"))).
				add(repeated(object("accounts_data_slice", 7, geyserRef("SubscribeRequestAccountsDataSlice")))).
				optional(object("ping", 9, geyserRef("SubscribeRequestPing"))).
				optional(scalar("from_slot", 11, uint64Type)).
				build(),
			message("SubscribeRequestFilterAccounts").
				add(repeated(scalar("account", 2, stringType))).
				add(repeated(scalar("owner", 3, stringType))).
				optional(scalar("nonempty_txn_signature", 5, boolType)).
				build(),
			message("SubscribeRequestFilterSlots").
				optional(scalar("filter_by_commitment", 1, boolType)).
				optional(scalar("interslot_updates", 2, boolType)).
				build(),
			message("SubscribeRequestFilterTransactions").
				add(repeated(scalar("account_include", 3, stringType))).
				add(repeated(scalar("account_exclude", 4, stringType))).
				add(repeated(scalar("account_required", 6, stringType))).
				optional(scalar("vote", 1, boolType)).
				optional(scalar("failed", 2, boolType)).
				optional(scalar("signature", 5, stringType)).
				build(),
			message("SubscribeRequestFilterBlocks").
				add(repeated(scalar("account_include", 1, stringType))).
				optional(scalar("include_transactions", 2, boolType)).
				optional(scalar("include_accounts", 3, boolType)).
				optional(scalar("include_entries", 4, boolType)).
				build(),
			message("SubscribeRequestFilterBlocksMeta").build(),
			message("SubscribeRequestFilterEntry").build(),
			message("SubscribeRequestAccountsDataSlice").
				add(scalar("offset", 1, uint64Type)).
				add(scalar("length", 2, uint64Type)).
				build(),
			message("SubscribeRequestPing").
				add(scalar("id", 1, int32Type)).
				build(),
			message("SubscribeUpdate").
				add(repeated(scalar("filters", 1, stringType))).
				oneof("update_oneof",
					object("account", 2, geyserRef("SubscribeUpdateAccount")),
					object("slot", 3, geyserRef("SubscribeUpdateSlot")),
					object("transaction", 4, geyserRef("SubscribeUpdateTransaction")),
					object("transaction_status", 10, geyserRef("SubscribeUpdateTransactionStatus")),
					object("block", 5, geyserRef("SubscribeUpdateBlock")),
					object("ping", 6, geyserRef("SubscribeUpdatePing")),
					object("pong", 9, geyserRef("SubscribeUpdatePong")),
					object("block_meta", 7, geyserRef("SubscribeUpdateBlockMeta")),
					object("entry", 8, geyserRef("SubscribeUpdateEntry")),
				).
				build(),
			message("SubscribeUpdateAccount").
				add(object("account", 1, geyserRef("SubscribeUpdateAccountInfo"))).
				add(scalar("slot", 2, uint64Type)).
				add(scalar("is_startup", 3, boolType)).
				build(),
			message("SubscribeUpdateAccountInfo").
				add(scalar("pubkey", 1, bytesType)).
				add(scalar("lamports", 2, uint64Type)).
				add(scalar("owner", 3, bytesType)).
				add(scalar("executable", 4, boolType)).
				add(scalar("rent_epoch", 5, uint64Type)).
				add(scalar("data", 6, bytesType)).
				add(scalar("write_version", 7, uint64Type)).
				optional(scalar("txn_signature", 8, bytesType)).
				build(),
			message("SubscribeUpdateSlot").
				add(scalar("slot", 1, uint64Type)).
				add(enumField("status", 3, geyserRef("SlotStatus"))).
				optional(scalar("parent", 2, uint64Type)).
				optional(scalar("dead_error", 4, stringType)).
				build(),
			message("SubscribeUpdateTransaction").
				add(object("transaction", 1, geyserRef("SubscribeUpdateTransactionInfo"))).
				add(scalar("slot", 2, uint64Type)).
				build(),
			message("SubscribeUpdateTransactionInfo").
				add(scalar("signature", 1, bytesType)).
				add(scalar("is_vote", 2, boolType)).
				add(object("transaction", 3, storageRef("Transaction"))).
				add(object("meta", 4, storageRef("TransactionStatusMeta"))).
				add(scalar("index", 5, uint64Type)).
				build(),
			message("SubscribeUpdateTransactionStatus").
				add(scalar("slot", 1, uint64Type)).
				add(scalar("signature", 2, bytesType)).
				add(scalar("is_vote", 3, boolType)).
				add(scalar("index", 4, uint64Type)).
				add(object("err", 5, storageRef("TransactionError"))).
				build(),
			message("SubscribeUpdateBlock").
				add(scalar("slot", 1, uint64Type)).
				add(scalar("blockhash", 2, stringType)).
				add(object("block_time", 4, storageRef("UnixTimestamp"))).
				add(object("block_height", 5, storageRef("BlockHeight"))).
				add(repeated(object("transactions", 6, geyserRef("SubscribeUpdateTransactionInfo")))).
				add(scalar("parent_slot", 7, uint64Type)).
				add(scalar("parent_blockhash", 8, stringType)).
				add(scalar("executed_transaction_count", 9, uint64Type)).
				build(),
			message("SubscribeUpdateBlockMeta").
				add(scalar("slot", 1, uint64Type)).
				add(scalar("blockhash", 2, stringType)).
				add(object("block_time", 4, storageRef("UnixTimestamp"))).
				add(object("block_height", 5, storageRef("BlockHeight"))).
				add(scalar("parent_slot", 6, uint64Type)).
				add(scalar("parent_blockhash", 7, stringType)).
				add(scalar("executed_transaction_count", 8, uint64Type)).
				build(),
			message("SubscribeUpdateEntry").
				add(scalar("slot", 1, uint64Type)).
				add(scalar("index", 2, uint64Type)).
				add(scalar("num_hashes", 3, uint64Type)).
				add(scalar("hash", 4, bytesType)).
				add(scalar("executed_transaction_count", 5, uint64Type)).
				build(),
			message("SubscribeUpdatePing").build(),
			message("SubscribeUpdatePong").
				add(scalar("id", 1, int32Type)).
				build(),
		},
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name: proto.String("Geyser"),
			Method: []*descriptorpb.MethodDescriptorProto{{
				Name:            proto.String("Subscribe"),
				InputType:       proto.String(geyserRef("SubscribeRequest")),
				OutputType:      proto.String(geyserRef("SubscribeUpdate")),
				ClientStreaming: proto.Bool(true),
				ServerStreaming: proto.Bool(true),
			}},
		}},
	}
}

// Descriptor construction helpers.

const (
	boolType   = descriptorpb.FieldDescriptorProto_TYPE_BOOL
	bytesType  = descriptorpb.FieldDescriptorProto_TYPE_BYTES
	stringType = descriptorpb.FieldDescriptorProto_TYPE_STRING
	int32Type  = descriptorpb.FieldDescriptorProto_TYPE_INT32
	int64Type  = descriptorpb.FieldDescriptorProto_TYPE_INT64
	uint32Type = descriptorpb.FieldDescriptorProto_TYPE_UINT32
	uint64Type = descriptorpb.FieldDescriptorProto_TYPE_UINT64
)

func geyserRef(name string) string  { return "." + geyserPackage + "." + name }
func storageRef(name string) string { return "." + storagePackage + "." + name }

type messageBuilder struct {
	msg       *descriptorpb.DescriptorProto
	synthetic []*descriptorpb.FieldDescriptorProto
}

func message(name string) *messageBuilder {
	return &messageBuilder{msg: &descriptorpb.DescriptorProto{Name: proto.String(name)}}
}

func (b *messageBuilder) add(f *descriptorpb.FieldDescriptorProto) *messageBuilder {
	b.msg.Field = append(b.msg.Field, f)
	return b
}

// optional declares a proto3 optional field. Its synthetic oneof is appended
// in build, after every real oneof.
func (b *messageBuilder) optional(f *descriptorpb.FieldDescriptorProto) *messageBuilder {
	f.Proto3Optional = proto.Bool(true)
	b.synthetic = append(b.synthetic, f)
	return b
}

func (b *messageBuilder) oneof(name string, fields ...*descriptorpb.FieldDescriptorProto) *messageBuilder {
	idx := int32(len(b.msg.OneofDecl))
	b.msg.OneofDecl = append(b.msg.OneofDecl, &descriptorpb.OneofDescriptorProto{Name: proto.String(name)})
	for _, f := range fields {
		f.OneofIndex = proto.Int32(idx)
		b.msg.Field = append(b.msg.Field, f)
	}
	return b
}

// mapOf declares map<string, valueType> with its generated entry message.
func (b *messageBuilder) mapOf(name string, number int32, valueType string) *messageBuilder {
	entry := mapEntryName(name)
	b.msg.NestedType = append(b.msg.NestedType, &descriptorpb.DescriptorProto{
		Name: proto.String(entry),
		Field: []*descriptorpb.FieldDescriptorProto{
			scalar("key", 1, stringType),
			object("value", 2, valueType),
		},
		Options: &descriptorpb.MessageOptions{MapEntry: proto.Bool(true)},
	})
	ref := geyserRef(b.msg.GetName() + "." + entry)
	return b.add(repeated(object(name, number, ref)))
}

func (b *messageBuilder) build() *descriptorpb.DescriptorProto {
	for _, f := range b.synthetic {
		idx := int32(len(b.msg.OneofDecl))
		b.msg.OneofDecl = append(b.msg.OneofDecl, &descriptorpb.OneofDescriptorProto{
			Name: proto.String("_" + f.GetName()),
		})
		f.OneofIndex = proto.Int32(idx)
		b.msg.Field = append(b.msg.Field, f)
	}
	b.synthetic = nil
	return b.msg
}

func scalar(name string, number int32, typ descriptorpb.FieldDescriptorProto_Type) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(name),
		Number: proto.Int32(number),
		Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:   typ.Enum(),
	}
}

func object(name string, number int32, typeName string) *descriptorpb.FieldDescriptorProto {
	f := scalar(name, number, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE)
	f.TypeName = proto.String(typeName)
	return f
}

func enumField(name string, number int32, typeName string) *descriptorpb.FieldDescriptorProto {
	f := scalar(name, number, descriptorpb.FieldDescriptorProto_TYPE_ENUM)
	f.TypeName = proto.String(typeName)
	return f
}

func repeated(f *descriptorpb.FieldDescriptorProto) *descriptorpb.FieldDescriptorProto {
	f.Label = descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum()
	return f
}

func enum(name string, values ...string) *descriptorpb.EnumDescriptorProto {
	e := &descriptorpb.EnumDescriptorProto{Name: proto.String(name)}
	for i, v := range values {
		e.Value = append(e.Value, &descriptorpb.EnumValueDescriptorProto{
			Name:   proto.String(v),
			Number: proto.Int32(int32(i)),
		})
	}
	return e
}

// mapEntryName mirrors protoc: accounts_data -> AccountsDataEntry.
func mapEntryName(field string) string {
	var sb strings.Builder
	upper := true
	for _, r := range field {
		if r == '_' {
			upper = true
			continue
		}
		if upper && 'a' <= r && r <= 'z' {
			r -= 'a' - 'A'
		}
		upper = false
		sb.WriteRune(r)
	}
	sb.WriteString("Entry")
	return sb.String()
}
