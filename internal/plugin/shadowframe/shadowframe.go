// Package shadowframe instruments compiled functions to maintain a shadow
// call stack at runtime.
//
// Every eligible function gets, at the front of its entry block:
//
//	%__shadowFrame = alloca %ShadowFrame
//	call void @"_bcPushShadowFrame"(%Env* %env, %ShadowFrame* %__shadowFrame)
//	; store own address into field 1, -1 into field 2
//
// and a call to @"_bcPopShadowFrame" directly before each ret.
//
// Known gaps:
//   - exits through exception unwinding get no pop, so the environment's
//     top frame is left pointing at a finished activation until an
//     ancestor pushes or pops
//   - the line field is never updated and stays -1
package shadowframe

import (
	"sync/atomic"

	"aotc/internal/config"
	"aotc/internal/plugin"
	"aotc/pkg/ir"
	"aotc/pkg/shadowstack"
)

const (
	// FrameVarName is the local holding the function's shadow frame.
	FrameVarName = "__shadowFrame"

	PushFunctionName = "_bcPushShadowFrame"
	PopFunctionName  = "_bcPopShadowFrame"
)

var (
	// EnvType is the runtime's per-context environment, opaque to
	// generated code.
	EnvType = &ir.OpaqueType{Name: "Env"}
	EnvPtr  = ir.PointerTo(EnvType)

	// FrameType mirrors shadowstack.Layout.
	FrameType    = frameType()
	FramePtrType = ir.PointerTo(FrameType)

	PushShadowFrame = ir.NewFunctionRef(PushFunctionName, &ir.FunctionType{Ret: ir.Void, Params: []ir.Type{EnvPtr, FramePtrType}})
	PopShadowFrame  = ir.NewFunctionRef(PopFunctionName, &ir.FunctionType{Ret: ir.Void, Params: []ir.Type{EnvPtr}})
)

func frameType() *ir.StructType {
	t := ir.NewStruct("ShadowFrame")
	for _, f := range shadowstack.Layout.Fields {
		switch {
		case f.Name == "previous":
			t.Fields = append(t.Fields, ir.PointerTo(t))
		case f.Kind == shadowstack.KindPointer:
			t.Fields = append(t.Fields, ir.I8Ptr)
		case f.Kind == shadowstack.KindInt32:
			t.Fields = append(t.Fields, ir.I32)
		}
	}
	return t
}

// Stats counts what the pass did. Safe to read while the pass runs.
type Stats struct {
	Instrumented atomic.Int64
	Skipped      atomic.Int64
	PopsInserted atomic.Int64
}

// Pass is the shadow frame instrumentation pass.
type Pass struct {
	Stats Stats
}

// New creates the pass
func New() *Pass {
	return &Pass{}
}

func (p *Pass) Name() string { return "shadowframe" }

// Eligible reports whether a function compiled from method gets a shadow
// frame under cfg.
func Eligible(cfg *config.Config, method plugin.Method) bool {
	return skipReason(cfg, method) == ""
}

func skipReason(cfg *config.Config, method plugin.Method) string {
	switch {
	case !cfg.LineNumbersEnabled():
		return "line numbers disabled"
	case method.IsNative():
		return "native method"
	case method.IsAbstract():
		return "abstract method"
	case !method.HasBody():
		return "no body"
	}
	return ""
}

// AfterFunctionBuilt instruments fn in place. Ineligible functions are
// left untouched. A malformed graph yields an *InternalCompilerError and
// fn is not modified.
func (p *Pass) AfterFunctionBuilt(ctx *plugin.Context, fn *ir.Function) error {
	if reason := skipReason(ctx.Config, ctx.Method); reason != "" {
		p.Stats.Skipped.Add(1)
		if ctx.Log != nil {
			ctx.Log.Debug("Skipping shadow frame", "reason", reason)
		}
		return nil
	}

	if instrumented(fn) {
		p.Stats.Skipped.Add(1)
		if ctx.Log != nil {
			ctx.Log.Debug("Skipping shadow frame", "reason", "already instrumented")
		}
		return nil
	}

	if err := validate(fn); err != nil {
		return err
	}

	if ctx.Module != nil {
		ctx.Module.AddType(EnvType)
		ctx.Module.AddType(FrameType)
		ctx.Module.Declare(PushShadowFrame)
		ctx.Module.Declare(PopShadowFrame)
	}

	env := fn.ParameterRef(0)
	instrumentEntry(fn, env)
	pops := instrumentExits(fn, env)

	p.Stats.Instrumented.Add(1)
	p.Stats.PopsInserted.Add(int64(pops))
	if ctx.Log != nil {
		ctx.Log.Debug("Inserted shadow frame", "pops", pops)
	}

	return nil
}

// instrumented reports whether fn already starts with a shadow frame
// allocation followed by the push, as in re-read compiler output.
func instrumented(fn *ir.Function) bool {
	if len(fn.Blocks) == 0 || len(fn.Blocks[0].Instructions) < 2 {
		return false
	}
	insts := fn.Blocks[0].Instructions

	alloca, ok := insts[0].(*ir.Alloca)
	if !ok {
		return false
	}
	st, ok := alloca.Typ.(*ir.StructType)
	if !ok || st.Name != FrameType.Name {
		return false
	}
	call, ok := insts[1].(*ir.Call)
	return ok && call.Callee.Name == PushFunctionName
}

// instrumentEntry puts allocation, push and field initialization, in that
// order, at the front of the entry block. Push runs before initialization
// so that it observes the caller's frame as the current top.
func instrumentEntry(fn *ir.Function, env ir.Value) {
	entry := fn.Blocks[0]

	frame := fn.NewVariable(FrameVarName, FramePtrType)
	entry.Insert(0, ir.NewAlloca(frame, FrameType))
	entry.Insert(1, ir.NewCall(PushShadowFrame, env, frame))
	entry.Insert(2, initFrame(fn, frame))
}

// initFrame stores the function's own address and the unknown-line
// sentinel into the frame.
func initFrame(fn *ir.Function, frame *ir.Variable) *ir.Composite {
	addr := fn.NewVariable("funcAddr", ir.I8Ptr)
	addrField := fn.NewVariable(FrameVarName+"_funcAddr", ir.PointerTo(ir.I8Ptr))
	lineField := fn.NewVariable(FrameVarName+"_lineNumber", ir.PointerTo(ir.I32))

	return &ir.Composite{
		Label: "init shadow frame",
		Instructions: []ir.Instruction{
			&ir.Bitcast{Result: addr, Val: fn.Ref(), To: ir.I8Ptr},
			&ir.GetElementPtr{Result: addrField, Base: frame, Field: shadowstack.FieldFunction},
			&ir.Store{Val: addr, Ptr: addrField},
			&ir.GetElementPtr{Result: lineField, Base: frame, Field: shadowstack.FieldLine},
			&ir.Store{Val: ir.NewInt(ir.I32, int64(shadowstack.UnknownLine)), Ptr: lineField},
		},
	}
}

type insertionPoint struct {
	block *ir.BasicBlock
	index int
}

// instrumentExits places a pop directly before every return. Points are
// collected first and applied afterwards, highest index first, so no
// insertion shifts a pending one.
func instrumentExits(fn *ir.Function, env ir.Value) int {
	var points []insertionPoint
	for _, bb := range fn.Blocks {
		for i, inst := range bb.Instructions {
			if ir.IsReturn(inst) {
				points = append(points, insertionPoint{block: bb, index: i})
				break
			}
		}
	}

	for n := len(points) - 1; n >= 0; n-- {
		pt := points[n]
		pt.block.Insert(pt.index, ir.NewCall(PopShadowFrame, env))
	}

	// TODO: pop on unwind edges once calls carry landing pads

	return len(points)
}
