package ir

import (
	"strconv"
)

// Value is an operand of an instruction.
type Value interface {
	Type() Type
	// Ref renders the value as it appears when used as an operand.
	Ref() string
}

// Variable is a named SSA value local to a function.
type Variable struct {
	Name string
	Typ  Type
}

func (v *Variable) Type() Type  { return v.Typ }
func (v *Variable) Ref() string { return "%" + quoteName(v.Name) }

// IntConst is an integer constant.
type IntConst struct {
	Typ *IntType
	V   int64
}

// NewInt creates an integer constant of the given type
func NewInt(t *IntType, v int64) *IntConst {
	return &IntConst{Typ: t, V: v}
}

func (c *IntConst) Type() Type  { return c.Typ }
func (c *IntConst) Ref() string { return strconv.FormatInt(c.V, 10) }

// NullConst is the null pointer of a pointer type.
type NullConst struct {
	Typ *PointerType
}

func (c *NullConst) Type() Type  { return c.Typ }
func (c *NullConst) Ref() string { return "null" }

// FunctionRef refers to a function symbol, defined or declared.
type FunctionRef struct {
	Name string
	Typ  *FunctionType
}

// NewFunctionRef creates a reference to the named function symbol
func NewFunctionRef(name string, typ *FunctionType) *FunctionRef {
	return &FunctionRef{Name: name, Typ: typ}
}

// Type returns the pointer-to-function type of the symbol.
func (f *FunctionRef) Type() Type  { return PointerTo(f.Typ) }
func (f *FunctionRef) Ref() string { return "@" + strconv.Quote(f.Name) }

// typed renders "<type> <ref>"
func typed(v Value) string {
	return v.Type().String() + " " + v.Ref()
}

// quoteName quotes local names that are not plain identifiers.
func quoteName(name string) string {
	if name == "" {
		return `""`
	}
	for _, r := range name {
		plain := r == '_' || r == '.' || r == '$' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !plain {
			return strconv.Quote(name)
		}
	}
	return name
}
