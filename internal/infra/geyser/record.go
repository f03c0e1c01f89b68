package geyser

import (
	"google.golang.org/protobuf/reflect/protoreflect"
)

// Record kinds, named after the update_oneof members.
const (
	KindTransaction       = "transaction"
	KindTransactionStatus = "transaction_status"
	KindAccount           = "account"
	KindSlot              = "slot"
	KindBlock             = "block"
	KindBlockMeta         = "block_meta"
	KindEntry             = "entry"
	KindPing              = "ping"
	KindPong              = "pong"
	KindUnknown           = "unknown"
)

// Payload returns the kind of an update and the message it carries. Records
// whose payload is missing or not described by the schema are KindUnknown with
// a nil payload.
func Payload(update protoreflect.Message) (string, protoreflect.Message) {
	if update == nil || !update.IsValid() {
		return KindUnknown, nil
	}
	od := update.Descriptor().Oneofs().ByName("update_oneof")
	if od == nil {
		return KindUnknown, nil
	}
	fd := update.WhichOneof(od)
	if fd == nil || fd.Kind() != protoreflect.MessageKind {
		return KindUnknown, nil
	}
	return string(fd.Name()), update.Get(fd).Message()
}

// The accessors below never panic on shape mismatches: a missing message, an
// undeclared field or a field of another kind reads as absent.

// MessageField returns the singular message field name, or nil.
func MessageField(m protoreflect.Message, name string) protoreflect.Message {
	fd := lookup(m, name)
	if fd == nil || fd.IsList() || fd.IsMap() || fd.Kind() != protoreflect.MessageKind {
		return nil
	}
	if !m.Has(fd) {
		return nil
	}
	return m.Get(fd).Message()
}

// ListField returns the repeated field name and its descriptor, or nil.
func ListField(m protoreflect.Message, name string) (protoreflect.List, protoreflect.FieldDescriptor) {
	fd := lookup(m, name)
	if fd == nil || !fd.IsList() {
		return nil, nil
	}
	return m.Get(fd).List(), fd
}

// Uint64Field returns an unsigned 64-bit scalar, or 0.
func Uint64Field(m protoreflect.Message, name string) uint64 {
	fd := lookup(m, name)
	if fd == nil || fd.Cardinality() == protoreflect.Repeated {
		return 0
	}
	switch fd.Kind() {
	case protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		return m.Get(fd).Uint()
	}
	return 0
}

// StringField returns a singular string scalar, or "".
func StringField(m protoreflect.Message, name string) string {
	fd := lookup(m, name)
	if fd == nil || fd.Cardinality() == protoreflect.Repeated || fd.Kind() != protoreflect.StringKind {
		return ""
	}
	return m.Get(fd).String()
}

func lookup(m protoreflect.Message, name string) protoreflect.FieldDescriptor {
	if m == nil || !m.IsValid() {
		return nil
	}
	return m.Descriptor().Fields().ByName(protoreflect.Name(name))
}
