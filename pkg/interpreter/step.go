package interpreter

import (
	"errors"
	"fmt"

	"aotc/internal/plugin/shadowframe"
	"aotc/pkg/ir"
	"aotc/pkg/shadowstack"
)

// RuntimeError locates a failure inside the interpreted program.
type RuntimeError struct {
	Function string
	Block    string
	Err      error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s, block %s: %v", e.Function, e.Block, e.Err)
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// call dispatches one call: runtime primitives first, then natives, then
// IR bodies.
func (t *thread) call(callee *ir.FunctionRef, args []Value) (ret Value, err error) {
	switch callee.Name {
	case shadowframe.PushFunctionName:
		return Value{}, t.push(args)
	case shadowframe.PopFunctionName:
		return Value{}, t.pop(args)
	}

	fn := t.it.module.Function(callee.Name)
	if fn != nil && fn.Method.Abstract {
		return Value{}, fmt.Errorf("%w: %s", ErrAbstractMethod, callee.Name)
	}
	if fn == nil || len(fn.Blocks) == 0 {
		if native, ok := t.it.natives[callee.Name]; ok {
			return native(t.it, args)
		}
		if fn == nil {
			return Value{}, fmt.Errorf("%w: %s", ErrUnknownFunction, callee.Name)
		}
		return Value{}, fmt.Errorf("%w: %s has no body and no native implementation", ErrUnknownFunction, callee.Name)
	}

	if len(args) != len(fn.Params) {
		return Value{}, fmt.Errorf("%w: %s takes %d, got %d", ErrArity, fn.Name, len(fn.Params), len(args))
	}

	act := t.enter(fn)
	defer func() {
		if lerr := t.leave(); lerr != nil && err == nil {
			err = fmt.Errorf("leaving %s: %w", fn.Name, lerr)
		}
	}()

	for n, p := range fn.Params {
		act.vars[p] = args[n]
	}

	bb := fn.Blocks[0]
	for {
		next, v, err := t.runBlock(act, bb)
		if err != nil {
			return Value{}, err
		}
		if next == nil {
			return v, nil
		}
		bb = next
	}
}

// runBlock executes bb. It returns the successor block, or a nil block and
// the return value once the function returns.
func (t *thread) runBlock(act *activation, bb *ir.BasicBlock) (*ir.BasicBlock, Value, error) {
	locate := func(err error) error {
		var exc *Exception
		var rte *RuntimeError
		if errors.As(err, &exc) || errors.As(err, &rte) || errors.Is(err, ErrMaxStepsExceeded) {
			return err
		}
		return &RuntimeError{Function: act.fn.Name, Block: bb.Label, Err: err}
	}

	for _, inst := range bb.Instructions {
		if err := t.tick(); err != nil {
			return nil, Value{}, err
		}

		switch inst := inst.(type) {
		case *ir.Ret:
			if inst.Val == nil {
				return nil, Value{}, nil
			}
			v, err := t.eval(act, inst.Val)
			if err != nil {
				return nil, Value{}, locate(err)
			}
			return nil, v, nil

		case *ir.Br:
			return inst.Target, Value{}, nil

		case *ir.CondBr:
			c, err := t.eval(act, inst.Cond)
			if err != nil {
				return nil, Value{}, locate(err)
			}
			ok, err := c.Truthy()
			if err != nil {
				return nil, Value{}, locate(err)
			}
			if ok {
				return inst.Then, Value{}, nil
			}
			return inst.Else, Value{}, nil

		case *ir.Throw:
			return nil, Value{}, locate(t.throw(act, inst))

		case *ir.Unreachable:
			return nil, Value{}, locate(ErrUnreachable)

		default:
			if err := t.exec(act, inst); err != nil {
				return nil, Value{}, locate(err)
			}
		}
	}

	return nil, Value{}, locate(ErrNoReturn)
}

// exec runs a non-terminator instruction
func (t *thread) exec(act *activation, inst ir.Instruction) error {
	switch inst := inst.(type) {
	case *ir.Alloca:
		if st, ok := inst.Typ.(*ir.StructType); ok && st.Name == shadowframe.FrameType.Name {
			ref := t.env.Arena().Alloc()
			act.frames = append(act.frames, ref)
			act.vars[inst.Result] = framePtr(ref, WholeRecord)
			return nil
		}
		act.vars[inst.Result] = cellPtr(newCell(inst.Typ))

	case *ir.Call:
		args := make([]Value, len(inst.Args))
		for n, a := range inst.Args {
			v, err := t.eval(act, a)
			if err != nil {
				return err
			}
			args[n] = v
		}
		v, err := t.call(inst.Callee, args)
		if err != nil {
			return err
		}
		if inst.Result != nil {
			act.vars[inst.Result] = v
		}

	case *ir.Store:
		v, err := t.eval(act, inst.Val)
		if err != nil {
			return err
		}
		ptr, err := t.eval(act, inst.Ptr)
		if err != nil {
			return err
		}
		return t.store(ptr, v)

	case *ir.Load:
		ptr, err := t.eval(act, inst.Ptr)
		if err != nil {
			return err
		}
		v, err := t.load(ptr)
		if err != nil {
			return err
		}
		act.vars[inst.Result] = v

	case *ir.GetElementPtr:
		base, err := t.eval(act, inst.Base)
		if err != nil {
			return err
		}
		v, err := gep(base, inst.Field)
		if err != nil {
			return err
		}
		act.vars[inst.Result] = v

	case *ir.Bitcast:
		v, err := t.eval(act, inst.Val)
		if err != nil {
			return err
		}
		act.vars[inst.Result] = v

	case *ir.BinOp:
		x, y, bits, err := t.intOperands(act, inst.X, inst.Y)
		if err != nil {
			return err
		}
		v, err := arith(inst.Kind, x, y, bits)
		if err != nil {
			return err
		}
		act.vars[inst.Result] = v

	case *ir.ICmp:
		x, y, _, err := t.intOperands(act, inst.X, inst.Y)
		if err != nil {
			return err
		}
		v, err := compare(inst.Pred, x, y)
		if err != nil {
			return err
		}
		act.vars[inst.Result] = v

	case *ir.Composite:
		for n, child := range inst.Instructions {
			if ir.IsTerminator(child) {
				return fmt.Errorf("terminator %s inside composite at %d", child.Op(), n)
			}
			if n > 0 {
				if err := t.tick(); err != nil {
					return err
				}
			}
			if err := t.exec(act, child); err != nil {
				return err
			}
		}

	default:
		return fmt.Errorf("unsupported instruction %s", inst.Op())
	}

	return nil
}

func (t *thread) eval(act *activation, v ir.Value) (Value, error) {
	switch v := v.(type) {
	case *ir.Variable:
		val, ok := act.vars[v]
		if !ok {
			return Value{}, fmt.Errorf("%s used before definition", v.Ref())
		}
		return val, nil
	case *ir.IntConst:
		return Int(wrap(v.V, v.Typ.Bits)), nil
	case *ir.NullConst:
		return Addr(0), nil
	case *ir.FunctionRef:
		addr, ok := t.it.Address(v.Name)
		if !ok {
			return Value{}, fmt.Errorf("%w: %s has no address", ErrUnknownFunction, v.Name)
		}
		return Addr(addr), nil
	}
	return Value{}, fmt.Errorf("unsupported operand %T", v)
}

func (t *thread) intOperands(act *activation, xv, yv ir.Value) (x, y int64, bits int, err error) {
	it, ok := xv.Type().(*ir.IntType)
	if !ok {
		return 0, 0, 0, fmt.Errorf("integer operation on %s", xv.Type())
	}
	a, err := t.eval(act, xv)
	if err != nil {
		return 0, 0, 0, err
	}
	b, err := t.eval(act, yv)
	if err != nil {
		return 0, 0, 0, err
	}
	if a.Kind != KindInt || b.Kind != KindInt {
		return 0, 0, 0, fmt.Errorf("integer operation on %s and %s", a.Kind, b.Kind)
	}
	return a.I64, b.I64, it.Bits, nil
}

func arith(op ir.Operation, x, y int64, bits int) (Value, error) {
	var r int64
	switch op {
	case ir.OpAdd:
		r = x + y
	case ir.OpSub:
		r = x - y
	case ir.OpMul:
		r = x * y
	case ir.OpSDiv:
		if y == 0 {
			return Value{}, ErrDivisionByZero
		}
		r = x / y
	case ir.OpSRem:
		if y == 0 {
			return Value{}, ErrDivisionByZero
		}
		r = x % y
	default:
		return Value{}, fmt.Errorf("unsupported arithmetic %s", op)
	}
	return Int(wrap(r, bits)), nil
}

func compare(pred ir.Predicate, x, y int64) (Value, error) {
	var r bool
	switch pred {
	case ir.PredEQ:
		r = x == y
	case ir.PredNE:
		r = x != y
	case ir.PredSLT:
		r = x < y
	case ir.PredSLE:
		r = x <= y
	case ir.PredSGT:
		r = x > y
	case ir.PredSGE:
		r = x >= y
	default:
		return Value{}, fmt.Errorf("unsupported comparison %s", pred)
	}
	if r {
		return Int(1), nil
	}
	return Int(0), nil
}

// throw captures the shadow stack as it stands at the throw point. The
// exception then unwinds every active call without running any more of
// their code.
func (t *thread) throw(act *activation, inst *ir.Throw) error {
	v, err := t.eval(act, inst.Val)
	if err != nil {
		return err
	}
	trace, terr := t.env.StackTrace(t.it.Symbolize)
	records, _ := t.env.Snapshot()
	return &Exception{Value: v, Function: act.fn.Name, Trace: trace, TraceErr: terr, Records: records}
}

func (t *thread) push(args []Value) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: %s takes 2, got %d", ErrArity, shadowframe.PushFunctionName, len(args))
	}
	env, err := envArg(args[0])
	if err != nil {
		return err
	}
	if args[1].Kind != KindFrame || args[1].Field != WholeRecord {
		return fmt.Errorf("%w: push of %s", ErrBadPointer, args[1].Kind)
	}
	return env.Push(args[1].Frame)
}

func (t *thread) pop(args []Value) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: %s takes 1, got %d", ErrArity, shadowframe.PopFunctionName, len(args))
	}
	env, err := envArg(args[0])
	if err != nil {
		return err
	}
	return env.Pop()
}

func envArg(v Value) (*shadowstack.Env, error) {
	if v.Kind != KindEnv || v.Env == nil {
		return nil, fmt.Errorf("%w: expected env, got %s", ErrBadPointer, v.Kind)
	}
	return v.Env, nil
}
