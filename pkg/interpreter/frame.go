package interpreter

import (
	"errors"

	"aotc/pkg/ir"
	"aotc/pkg/shadowstack"
	"aotc/pkg/stack"
)

// activation is one executing call.
type activation struct {
	fn     *ir.Function
	vars   map[*ir.Variable]Value
	frames []shadowstack.FrameRef // shadow frame records allocated by this call
}

// thread is the state of one Invoke: a single execution context and the
// calls active in it.
type thread struct {
	it          *Interpreter
	env         *shadowstack.Env
	activations *stack.Stack[*activation]
	steps       int
}

func newThread(it *Interpreter, env *shadowstack.Env) *thread {
	return &thread{
		it:          it,
		env:         env,
		activations: stack.New[*activation](),
	}
}

func (t *thread) enter(fn *ir.Function) *activation {
	act := &activation{fn: fn, vars: make(map[*ir.Variable]Value)}
	t.activations.Push(act)
	return act
}

// leave ends the innermost call and releases its frame records, whether
// the call returned or is being unwound.
func (t *thread) leave() error {
	act, ok := t.activations.Pop()
	if !ok {
		return nil
	}
	var errs []error
	for _, ref := range act.frames {
		errs = append(errs, t.env.Arena().Release(ref))
	}
	return errors.Join(errs...)
}

func (t *thread) tick() error {
	if t.it.maxSteps > 0 && t.steps >= t.it.maxSteps {
		return ErrMaxStepsExceeded
	}
	t.steps++
	return nil
}
