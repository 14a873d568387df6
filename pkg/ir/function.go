package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// BasicBlock is a labelled, ordered list of instructions ending in a
// terminator.
type BasicBlock struct {
	Label        string
	Instructions []Instruction
}

// NewBasicBlock creates an empty block
func NewBasicBlock(label string) *BasicBlock {
	return &BasicBlock{Label: label}
}

// Ref renders the block as a branch operand
func (b *BasicBlock) Ref() string {
	return "%" + quoteName(b.Label)
}

// Add appends instructions to the end of the block
func (b *BasicBlock) Add(insts ...Instruction) {
	b.Instructions = append(b.Instructions, insts...)
}

// Insert places inst at index i, shifting later instructions down.
func (b *BasicBlock) Insert(i int, inst Instruction) {
	if i < 0 || i > len(b.Instructions) {
		panic(fmt.Sprintf("ir: insert index %d out of range [0, %d] in block %s", i, len(b.Instructions), b.Label))
	}
	b.Instructions = append(b.Instructions, nil)
	copy(b.Instructions[i+1:], b.Instructions[i:])
	b.Instructions[i] = inst
}

// Terminator returns the block's last instruction if it is a terminator
func (b *BasicBlock) Terminator() Terminator {
	if len(b.Instructions) == 0 {
		return nil
	}
	t, _ := b.Instructions[len(b.Instructions)-1].(Terminator)
	return t
}

// MethodInfo describes the source method a function was compiled from.
type MethodInfo struct {
	Native   bool // implemented outside the bytecode (bridged)
	Abstract bool // declared without an implementation
	Bodyless bool // no bytecode body was materialized
}

func (m MethodInfo) IsNative() bool   { return m.Native }
func (m MethodInfo) IsAbstract() bool { return m.Abstract }

// HasBody reports whether the method has a materialized instruction body.
func (m MethodInfo) HasBody() bool {
	return !m.Native && !m.Abstract && !m.Bodyless
}

// Function is one compiled function.
type Function struct {
	Name   string
	Typ    *FunctionType
	Params []*Variable
	Blocks []*BasicBlock
	Method MethodInfo

	names map[string]int // taken local names -> next suffix
}

// NewFunction creates a function with the given parameter names. The
// parameter count must match the signature.
func NewFunction(name string, typ *FunctionType, paramNames ...string) *Function {
	if len(paramNames) != len(typ.Params) {
		panic(fmt.Sprintf("ir: function %s has %d params but %d names", name, len(typ.Params), len(paramNames)))
	}
	fn := &Function{
		Name:  name,
		Typ:   typ,
		names: make(map[string]int),
	}
	for i, p := range paramNames {
		fn.Params = append(fn.Params, fn.NewVariable(p, typ.Params[i]))
	}
	return fn
}

// NewVariable creates a local variable with a name unique within the
// function. A taken name gets a numeric suffix.
func (f *Function) NewVariable(name string, typ Type) *Variable {
	if f.names == nil {
		f.names = make(map[string]int)
	}
	unique := name
	for {
		if _, taken := f.names[unique]; !taken {
			break
		}
		n := f.names[name]
		f.names[name] = n + 1
		unique = name + strconv.Itoa(n)
	}
	f.names[unique] = 1
	return &Variable{Name: unique, Typ: typ}
}

// Reserve marks a name as taken without creating a variable. Parsers use
// it for names that appear in the source.
func (f *Function) Reserve(name string) bool {
	if f.names == nil {
		f.names = make(map[string]int)
	}
	if _, taken := f.names[name]; taken {
		return false
	}
	f.names[name] = 1
	return true
}

// NewBlock appends a new empty block
func (f *Function) NewBlock(label string) *BasicBlock {
	bb := NewBasicBlock(label)
	f.Blocks = append(f.Blocks, bb)
	return bb
}

// Block returns the block with the given label
func (f *Function) Block(label string) *BasicBlock {
	for _, bb := range f.Blocks {
		if bb.Label == label {
			return bb
		}
	}
	return nil
}

// ParameterRef returns the i-th parameter as an operand.
func (f *Function) ParameterRef(i int) Value {
	return f.Params[i]
}

// Ref returns a reference to the function's own symbol
func (f *Function) Ref() *FunctionRef {
	return NewFunctionRef(f.Name, f.Typ)
}

// Signature returns the function type as written in a pointer cast
func (f *Function) Signature() string {
	return f.Typ.String()
}

// String renders the function definition
func (f *Function) String() string {
	var b strings.Builder

	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = typed(p)
	}

	b.WriteString("define ")
	if f.Method.Native {
		b.WriteString("native ")
	}
	if f.Method.Abstract {
		b.WriteString("abstract ")
	}
	if f.Method.Bodyless {
		b.WriteString("bodyless ")
	}
	fmt.Fprintf(&b, "%s %s(%s)", f.Typ.Ret, f.Ref().Ref(), strings.Join(params, ", "))

	if len(f.Blocks) == 0 {
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(" {\n")
	for i, bb := range f.Blocks {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(quoteName(bb.Label) + ":\n")
		for _, inst := range bb.Instructions {
			b.WriteString("    " + inst.String() + "\n")
		}
	}
	b.WriteString("}\n")

	return b.String()
}
