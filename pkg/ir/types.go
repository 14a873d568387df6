package ir

import (
	"fmt"
	"strings"
)

// Type is an IR type.
type Type interface {
	String() string
}

// IntType is an integer type of a fixed bit width.
type IntType struct {
	Bits int
}

func (t *IntType) String() string {
	return fmt.Sprintf("i%d", t.Bits)
}

// Commonly used integer types
var (
	I1  = &IntType{Bits: 1}
	I8  = &IntType{Bits: 8}
	I32 = &IntType{Bits: 32}
	I64 = &IntType{Bits: 64}
)

// IntOf returns the shared integer type for the given width
func IntOf(bits int) *IntType {
	switch bits {
	case 1:
		return I1
	case 8:
		return I8
	case 32:
		return I32
	case 64:
		return I64
	}
	return &IntType{Bits: bits}
}

type voidType struct{}

func (voidType) String() string { return "void" }

// Void is the type of calls and functions that produce no value.
var Void Type = voidType{}

// PointerType points to a value of Elem.
type PointerType struct {
	Elem Type
}

func (t *PointerType) String() string {
	if ft, ok := t.Elem.(*FunctionType); ok {
		return ft.String() + "*"
	}
	return t.Elem.String() + "*"
}

// PointerTo returns a pointer type to elem
func PointerTo(elem Type) *PointerType {
	return &PointerType{Elem: elem}
}

// I8Ptr is the opaque byte pointer used for raw addresses.
var I8Ptr = PointerTo(I8)

// StructType is a named aggregate. Fields may refer back to the struct
// itself through a pointer, so they are assigned after construction.
type StructType struct {
	Name   string
	Fields []Type
}

// NewStruct creates a named struct type with no fields
func NewStruct(name string) *StructType {
	return &StructType{Name: name}
}

func (t *StructType) String() string {
	return "%" + t.Name
}

// Definition renders the body of the type for a module-level type declaration.
func (t *StructType) Definition() string {
	fields := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		fields[i] = f.String()
	}
	return "{ " + strings.Join(fields, ", ") + " }"
}

// OpaqueType is a named type whose body is owned by the runtime.
type OpaqueType struct {
	Name string
}

func (t *OpaqueType) String() string {
	return "%" + t.Name
}

// Definition renders the body of the type for a module-level type declaration.
func (t *OpaqueType) Definition() string {
	return "opaque"
}

// NamedType is a type that must be declared at module level.
type NamedType interface {
	Type
	Definition() string
}

// FunctionType is the signature of a function.
type FunctionType struct {
	Ret    Type
	Params []Type
}

func (t *FunctionType) String() string {
	params := make([]string, len(t.Params))
	for i, p := range t.Params {
		params[i] = p.String()
	}
	return t.Ret.String() + " (" + strings.Join(params, ", ") + ")"
}

// SameType reports whether two types are structurally equal. Named types
// compare by name.
func SameType(a, b Type) bool {
	switch at := a.(type) {
	case *IntType:
		bt, ok := b.(*IntType)
		return ok && at.Bits == bt.Bits
	case *PointerType:
		bt, ok := b.(*PointerType)
		return ok && SameType(at.Elem, bt.Elem)
	case *StructType:
		bt, ok := b.(*StructType)
		return ok && at.Name == bt.Name
	case *OpaqueType:
		bt, ok := b.(*OpaqueType)
		return ok && at.Name == bt.Name
	case *FunctionType:
		bt, ok := b.(*FunctionType)
		if !ok || len(at.Params) != len(bt.Params) || !SameType(at.Ret, bt.Ret) {
			return false
		}
		for i := range at.Params {
			if !SameType(at.Params[i], bt.Params[i]) {
				return false
			}
		}
		return true
	case voidType:
		_, ok := b.(voidType)
		return ok
	}
	return false
}
