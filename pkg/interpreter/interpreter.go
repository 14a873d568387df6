// Package interpreter executes IR modules against a shadow stack runtime.
// It is the reference semantics for instrumented code: shadow frame
// records live in the execution context's arena and the push and pop
// primitives drive its environment link.
package interpreter

import (
	"errors"
	"fmt"
	"io"
	"os"

	"aotc/internal/plugin/shadowframe"
	"aotc/pkg/ir"
	"aotc/pkg/shadowstack"
)

var (
	ErrMaxStepsExceeded = errors.New("maximum steps exceeded")
	ErrUnknownFunction  = errors.New("unknown function")
	ErrAbstractMethod   = errors.New("call to abstract method")
	ErrNoReturn         = errors.New("control fell off the end of a block")
	ErrUnreachable      = errors.New("reached unreachable")
	ErrDivisionByZero   = errors.New("division by zero")
	ErrBadPointer       = errors.New("invalid pointer")
	ErrArity            = errors.New("wrong number of arguments")
)

// CodeBase is the address of the first function. Functions are laid out
// CodeStride bytes apart in module order.
const (
	CodeBase   uint64 = 0x1000
	CodeStride uint64 = 0x10
)

// Native implements a function that has no IR body.
type Native func(it *Interpreter, args []Value) (Value, error)

// Interpreter executes the functions of one module. It holds no per-call
// state, so a single Interpreter may serve several execution contexts at
// once, each with its own Env.
type Interpreter struct {
	module  *ir.Module
	out     io.Writer
	natives map[string]Native

	maxSteps int // 0 = unlimited

	addrs   map[string]uint64
	symbols map[uint64]string
}

type Option func(*Interpreter)

// WithWriter sets the output writer for print
func WithWriter(w io.Writer) Option {
	return func(i *Interpreter) { i.out = w }
}

// WithMaxSteps limits the number of instructions one Invoke may execute
func WithMaxSteps(n int) Option {
	return func(i *Interpreter) { i.maxSteps = n }
}

// WithNative registers an implementation for a bodyless function
func WithNative(name string, fn Native) Option {
	return func(i *Interpreter) { i.natives[name] = fn }
}

// NewInterpreter creates an interpreter for m
func NewInterpreter(m *ir.Module, opts ...Option) *Interpreter {
	it := &Interpreter{
		module:  m,
		natives: map[string]Native{"print": nativePrint},
		addrs:   make(map[string]uint64),
		symbols: make(map[uint64]string),
	}

	for idx, fn := range m.Functions {
		addr := CodeBase + CodeStride*uint64(idx)
		it.addrs[fn.Name] = addr
		it.symbols[addr] = fn.Name
	}

	for _, o := range opts {
		o(it)
	}

	if it.out == nil {
		it.out = os.Stdout
	}

	return it
}

// Output returns the output writer used for print
func (i *Interpreter) Output() io.Writer {
	return i.out
}

// Address returns the code address of a defined function
func (i *Interpreter) Address(name string) (uint64, bool) {
	addr, ok := i.addrs[name]
	return addr, ok
}

// Symbolize maps a code address back to its function name. Unknown
// addresses render in hex.
func (i *Interpreter) Symbolize(addr uint64) string {
	if name, ok := i.symbols[addr]; ok {
		return name
	}
	return fmt.Sprintf("%#x", addr)
}

// Invoke calls the named function in the execution context env. When the
// function's first parameter is the environment, env is passed for it and
// args bind the remaining parameters.
func (i *Interpreter) Invoke(env *shadowstack.Env, name string, args ...Value) (Value, error) {
	fn := i.module.Function(name)
	if fn == nil {
		return Value{}, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}

	if len(fn.Params) > 0 && ir.SameType(fn.Params[0].Type(), shadowframe.EnvPtr) &&
		len(args) == len(fn.Params)-1 {
		args = append([]Value{EnvValue(env)}, args...)
	}

	t := newThread(i, env)
	return t.call(fn.Ref(), args)
}

// Exception is a value thrown by the program and not caught before it
// left the outermost call.
type Exception struct {
	Value    Value
	Function string // function that threw
	// Trace is the shadow stack at the throw point, innermost first.
	Trace    shadowstack.StackTrace
	TraceErr error
	// Records holds the same frames in the runtime's binary layout.
	Records  []shadowstack.RawFrame
}

func (e *Exception) Error() string {
	return fmt.Sprintf("uncaught exception %s thrown in %s", e.Value, e.Function)
}
