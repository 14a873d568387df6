package shadowframe

import (
	"fmt"

	"aotc/pkg/ir"
)

// Violation classifies a malformed instruction graph.
type Violation string

const (
	NoBlocks             Violation = "function has no basic blocks"
	NoEnvParameter       Violation = "function has no environment parameter"
	MissingTerminator    Violation = "block does not end in a terminator"
	EarlyTerminator      Violation = "terminator is not the last instruction of its block"
	EntryHasPredecessors Violation = "entry block is the target of a branch"
)

// InternalCompilerError reports an instruction graph that violates the
// contract of the stage that built it. It is never recoverable: the
// function must not be emitted.
type InternalCompilerError struct {
	Function  string
	Block     string // empty when the violation is not block specific
	Index     int    // instruction index within Block, -1 if not applicable
	Violation Violation
}

func (e *InternalCompilerError) Error() string {
	msg := fmt.Sprintf("internal compiler error in %s", e.Function)
	if e.Block != "" {
		msg += fmt.Sprintf(", block %s", e.Block)
		if e.Index >= 0 {
			msg += fmt.Sprintf(", instruction %d", e.Index)
		}
	}
	return msg + ": " + string(e.Violation)
}

func newICE(fn *ir.Function, bb *ir.BasicBlock, index int, v Violation) *InternalCompilerError {
	err := &InternalCompilerError{Function: fn.Name, Index: index, Violation: v}
	if bb != nil {
		err.Block = bb.Label
	}
	return err
}

// validate checks the structural contract the pass relies on. It runs
// before any mutation so a bad graph is never half instrumented.
func validate(fn *ir.Function) error {
	if len(fn.Blocks) == 0 {
		return newICE(fn, nil, -1, NoBlocks)
	}
	if len(fn.Params) == 0 || !ir.SameType(fn.Params[0].Type(), EnvPtr) {
		return newICE(fn, nil, -1, NoEnvParameter)
	}

	entry := fn.Blocks[0]
	for _, bb := range fn.Blocks {
		last := len(bb.Instructions) - 1
		for i, inst := range bb.Instructions {
			if ir.IsTerminator(inst) && i != last {
				return newICE(fn, bb, i, EarlyTerminator)
			}
		}
		if bb.Terminator() == nil {
			return newICE(fn, bb, last, MissingTerminator)
		}
		for _, succ := range bb.Terminator().Successors() {
			if succ == entry {
				return newICE(fn, bb, last, EntryHasPredecessors)
			}
		}
	}

	return nil
}
