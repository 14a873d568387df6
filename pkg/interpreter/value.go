package interpreter

import (
	"fmt"

	"aotc/pkg/shadowstack"
)

type ValueKind int

const (
	KindVoid ValueKind = iota
	KindInt
	KindAddr  // raw address: function symbols, null
	KindCell  // pointer to activation storage
	KindFrame // pointer into a shadow frame record
	KindEnv
)

func (k ValueKind) String() string {
	switch k {
	case KindVoid:
		return "void"
	case KindInt:
		return "int"
	case KindAddr:
		return "address"
	case KindCell:
		return "cell pointer"
	case KindFrame:
		return "frame pointer"
	case KindEnv:
		return "env"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// WholeRecord is the Field of a pointer to an entire shadow frame record.
const WholeRecord = -1

// Value is a runtime value of the interpreted program.
type Value struct {
	Kind  ValueKind
	I64   int64
	Addr  uint64
	Cell  *Cell
	Frame shadowstack.FrameRef
	Field int // record field for KindFrame, WholeRecord for the record itself
	Env   *shadowstack.Env
}

// Cell is storage reserved by an alloca. Struct allocations have one
// child cell per field.
type Cell struct {
	Val    Value
	Fields []*Cell
}

// Int creates an integer value
func Int(i int64) Value {
	return Value{Kind: KindInt, I64: i}
}

// Addr creates a raw address value
func Addr(a uint64) Value {
	return Value{Kind: KindAddr, Addr: a}
}

// EnvValue wraps an execution context so it can be passed as an argument.
func EnvValue(env *shadowstack.Env) Value {
	return Value{Kind: KindEnv, Env: env}
}

func framePtr(ref shadowstack.FrameRef, field int) Value {
	if ref.IsNil() && field == WholeRecord {
		return Addr(0)
	}
	return Value{Kind: KindFrame, Frame: ref, Field: field}
}

func cellPtr(c *Cell) Value {
	return Value{Kind: KindCell, Cell: c}
}

// IsNull reports whether v is the null pointer
func (v Value) IsNull() bool {
	return v.Kind == KindAddr && v.Addr == 0
}

// String renders the value as a string.
func (v Value) String() string {
	switch v.Kind {
	case KindVoid:
		return "void"
	case KindInt:
		return fmt.Sprintf("%d", v.I64)
	case KindAddr:
		if v.Addr == 0 {
			return "null"
		}
		return fmt.Sprintf("%#x", v.Addr)
	case KindCell:
		return fmt.Sprintf("cell(%p)", v.Cell)
	case KindFrame:
		if v.Field == WholeRecord {
			return v.Frame.String()
		}
		return fmt.Sprintf("%s.%d", v.Frame, v.Field)
	case KindEnv:
		return "env"
	default:
		return "<invalid>"
	}
}

// Truthy reports whether an i1 condition holds.
func (v Value) Truthy() (bool, error) {
	if v.Kind != KindInt {
		return false, fmt.Errorf("cannot use %s as a condition", v.Kind)
	}
	return v.I64 != 0, nil
}

// wrap truncates i to bits and sign-extends it back.
func wrap(i int64, bits int) int64 {
	if bits <= 0 || bits >= 64 {
		return i
	}
	shift := 64 - bits
	return (i << shift) >> shift
}
