package ir

import (
	"fmt"
	"strings"
)

type Operation string

// List of IR operations
const (
	OpAlloca      Operation = "alloca"
	OpCall        Operation = "call"
	OpStore       Operation = "store"
	OpLoad        Operation = "load"
	OpGEP         Operation = "getelementptr"
	OpBitcast     Operation = "bitcast"
	OpAdd         Operation = "add"
	OpSub         Operation = "sub"
	OpMul         Operation = "mul"
	OpSDiv        Operation = "sdiv"
	OpSRem        Operation = "srem"
	OpICmp        Operation = "icmp"
	OpComposite   Operation = "composite"
	OpRet         Operation = "ret"
	OpBr          Operation = "br"
	OpThrow       Operation = "throw"
	OpUnreachable Operation = "unreachable"
)

// Predicate is the comparison performed by an ICmp.
type Predicate string

const (
	PredEQ  Predicate = "eq"
	PredNE  Predicate = "ne"
	PredSLT Predicate = "slt"
	PredSLE Predicate = "sle"
	PredSGT Predicate = "sgt"
	PredSGE Predicate = "sge"
)

// Instruction is a single IR instruction.
type Instruction interface {
	Op() Operation
	String() string
}

// Terminator is an instruction that ends a basic block.
type Terminator interface {
	Instruction
	Successors() []*BasicBlock
}

// IsReturn reports whether inst is a normal-return terminator.
func IsReturn(inst Instruction) bool {
	_, ok := inst.(*Ret)
	return ok
}

// IsTerminator reports whether inst ends a basic block.
func IsTerminator(inst Instruction) bool {
	_, ok := inst.(Terminator)
	return ok
}

// Alloca reserves activation-scoped storage for one value of Typ.
type Alloca struct {
	Result *Variable
	Typ    Type
}

// NewAlloca creates an alloca whose result is a pointer to typ
func NewAlloca(result *Variable, typ Type) *Alloca {
	return &Alloca{Result: result, Typ: typ}
}

func (i *Alloca) Op() Operation { return OpAlloca }
func (i *Alloca) String() string {
	return fmt.Sprintf("%s = alloca %s", i.Result.Ref(), i.Typ)
}

// Call invokes Callee. Result is nil for void calls.
type Call struct {
	Result *Variable
	Callee *FunctionRef
	Args   []Value
}

// NewCall creates a call instruction that discards any result
func NewCall(callee *FunctionRef, args ...Value) *Call {
	return &Call{Callee: callee, Args: args}
}

func (i *Call) Op() Operation { return OpCall }
func (i *Call) String() string {
	args := make([]string, len(i.Args))
	for n, a := range i.Args {
		args[n] = typed(a)
	}
	call := fmt.Sprintf("call %s %s(%s)", i.Callee.Typ.Ret, i.Callee.Ref(), strings.Join(args, ", "))
	if i.Result != nil {
		return i.Result.Ref() + " = " + call
	}
	return call
}

// Store writes Val through Ptr.
type Store struct {
	Val Value
	Ptr Value
}

func (i *Store) Op() Operation { return OpStore }
func (i *Store) String() string {
	return fmt.Sprintf("store %s, %s", typed(i.Val), typed(i.Ptr))
}

// Load reads the value behind Ptr.
type Load struct {
	Result *Variable
	Ptr    Value
}

func (i *Load) Op() Operation { return OpLoad }
func (i *Load) String() string {
	return fmt.Sprintf("%s = load %s", i.Result.Ref(), typed(i.Ptr))
}

// GetElementPtr computes the address of field Field of the struct behind Base.
type GetElementPtr struct {
	Result *Variable
	Base   Value
	Field  int
}

func (i *GetElementPtr) Op() Operation { return OpGEP }
func (i *GetElementPtr) String() string {
	return fmt.Sprintf("%s = getelementptr %s, i32 0, i32 %d", i.Result.Ref(), typed(i.Base), i.Field)
}

// Bitcast reinterprets Val as type To.
type Bitcast struct {
	Result *Variable
	Val    Value
	To     Type
}

func (i *Bitcast) Op() Operation { return OpBitcast }
func (i *Bitcast) String() string {
	return fmt.Sprintf("%s = bitcast %s to %s", i.Result.Ref(), typed(i.Val), i.To)
}

// BinOp is an integer arithmetic instruction.
type BinOp struct {
	Result *Variable
	Kind   Operation
	X, Y   Value
}

func (i *BinOp) Op() Operation { return i.Kind }
func (i *BinOp) String() string {
	return fmt.Sprintf("%s = %s %s, %s", i.Result.Ref(), i.Kind, typed(i.X), i.Y.Ref())
}

// ICmp compares two integers, producing an i1.
type ICmp struct {
	Result *Variable
	Pred   Predicate
	X, Y   Value
}

func (i *ICmp) Op() Operation { return OpICmp }
func (i *ICmp) String() string {
	return fmt.Sprintf("%s = icmp %s %s, %s", i.Result.Ref(), i.Pred, typed(i.X), i.Y.Ref())
}

// Composite groups an ordered sequence of instructions that occupies a
// single slot in its block. None of its members may be a terminator.
type Composite struct {
	Label        string
	Instructions []Instruction
}

func (i *Composite) Op() Operation { return OpComposite }
func (i *Composite) String() string {
	lines := make([]string, 0, len(i.Instructions)+1)
	if i.Label != "" {
		lines = append(lines, "; "+i.Label)
	}
	for _, inst := range i.Instructions {
		lines = append(lines, inst.String())
	}
	return strings.Join(lines, "\n    ")
}

// Ret returns from the function. Val is nil for void returns.
type Ret struct {
	Val Value
}

func (i *Ret) Op() Operation { return OpRet }
func (i *Ret) Successors() []*BasicBlock { return nil }
func (i *Ret) String() string {
	if i.Val == nil {
		return "ret void"
	}
	return "ret " + typed(i.Val)
}

// Br transfers control to Target.
type Br struct {
	Target *BasicBlock
}

func (i *Br) Op() Operation { return OpBr }
func (i *Br) Successors() []*BasicBlock { return []*BasicBlock{i.Target} }
func (i *Br) String() string {
	return "br label " + i.Target.Ref()
}

// CondBr transfers control to Then if Cond is true, Else otherwise.
type CondBr struct {
	Cond       Value
	Then, Else *BasicBlock
}

func (i *CondBr) Op() Operation { return OpBr }
func (i *CondBr) Successors() []*BasicBlock { return []*BasicBlock{i.Then, i.Else} }
func (i *CondBr) String() string {
	return fmt.Sprintf("br %s, label %s, label %s", typed(i.Cond), i.Then.Ref(), i.Else.Ref())
}

// Throw raises Val as an exception. Control leaves the function through
// stack unwinding, not through a return.
type Throw struct {
	Val Value
}

func (i *Throw) Op() Operation { return OpThrow }
func (i *Throw) Successors() []*BasicBlock { return nil }
func (i *Throw) String() string {
	return "throw " + typed(i.Val)
}

// Unreachable marks a point control never reaches.
type Unreachable struct{}

func (i *Unreachable) Op() Operation { return OpUnreachable }
func (i *Unreachable) Successors() []*BasicBlock { return nil }
func (i *Unreachable) String() string { return "unreachable" }
