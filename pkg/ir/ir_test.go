package ir_test

import (
	"strings"
	"testing"

	"aotc/pkg/ir"
)

func envPtr() *ir.PointerType {
	return ir.PointerTo(&ir.OpaqueType{Name: "Env"})
}

func TestTypeStrings(t *testing.T) {
	node := ir.NewStruct("Node")
	node.Fields = []ir.Type{ir.PointerTo(node), ir.I32}

	tests := []struct {
		typ      ir.Type
		expected string
	}{
		{ir.I1, "i1"},
		{ir.IntOf(16), "i16"},
		{ir.Void, "void"},
		{ir.I8Ptr, "i8*"},
		{ir.PointerTo(ir.I8Ptr), "i8**"},
		{node, "%Node"},
		{envPtr(), "%Env*"},
		{&ir.FunctionType{Ret: ir.I32, Params: []ir.Type{envPtr(), ir.I32}}, "i32 (%Env*, i32)"},
		{ir.PointerTo(&ir.FunctionType{Ret: ir.Void}), "void ()*"},
	}

	for _, test := range tests {
		if got := test.typ.String(); got != test.expected {
			t.Errorf("expected %s, got %s", test.expected, got)
		}
	}

	if got := node.Definition(); got != "{ %Node*, i32 }" {
		t.Errorf("unexpected struct definition %s", got)
	}
}

func TestSameType(t *testing.T) {
	tests := []struct {
		a, b     ir.Type
		expected bool
	}{
		{ir.I32, ir.IntOf(32), true},
		{ir.I32, ir.I64, false},
		{envPtr(), envPtr(), true},
		{envPtr(), ir.I8Ptr, false},
		{ir.NewStruct("A"), ir.NewStruct("A"), true},
		{ir.NewStruct("A"), &ir.OpaqueType{Name: "A"}, false},
		{ir.Void, ir.Void, true},
		{&ir.FunctionType{Ret: ir.Void, Params: []ir.Type{ir.I32}}, &ir.FunctionType{Ret: ir.Void, Params: []ir.Type{ir.I32}}, true},
		{&ir.FunctionType{Ret: ir.Void, Params: []ir.Type{ir.I32}}, &ir.FunctionType{Ret: ir.Void}, false},
	}

	for _, test := range tests {
		if got := ir.SameType(test.a, test.b); got != test.expected {
			t.Errorf("SameType(%s, %s): expected %v, got %v", test.a, test.b, test.expected, got)
		}
	}
}

func TestInsert(t *testing.T) {
	bb := ir.NewBasicBlock("entry")
	bb.Add(&ir.Unreachable{})
	bb.Insert(0, &ir.Ret{})
	bb.Insert(1, &ir.Throw{Val: ir.NewInt(ir.I32, 1)})
	bb.Insert(3, &ir.Ret{Val: ir.NewInt(ir.I32, 2)})

	expected := []string{"ret void", "throw i32 1", "unreachable", "ret i32 2"}
	if len(bb.Instructions) != len(expected) {
		t.Fatalf("expected %d instructions, got %d", len(expected), len(bb.Instructions))
	}
	for i, e := range expected {
		if got := bb.Instructions[i].String(); got != e {
			t.Errorf("instruction %d: expected %q, got %q", i, e, got)
		}
	}
}

func TestInsertOutOfRange(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("expected a panic")
		}
	}()
	ir.NewBasicBlock("entry").Insert(1, &ir.Ret{})
}

func TestTerminator(t *testing.T) {
	bb := ir.NewBasicBlock("entry")
	if bb.Terminator() != nil {
		t.Errorf("empty block has a terminator")
	}
	bb.Add(&ir.Ret{})
	if bb.Terminator() == nil {
		t.Errorf("ret not recognized as terminator")
	}
	bb.Add(ir.NewAlloca(&ir.Variable{Name: "x", Typ: ir.PointerTo(ir.I32)}, ir.I32))
	if bb.Terminator() != nil {
		t.Errorf("block ending in alloca has a terminator")
	}

	if !ir.IsReturn(&ir.Ret{}) || ir.IsReturn(&ir.Throw{}) || ir.IsReturn(&ir.Br{}) {
		t.Errorf("only ret is a return")
	}
	if !ir.IsTerminator(&ir.Throw{}) || !ir.IsTerminator(&ir.Unreachable{}) || ir.IsTerminator(&ir.Composite{}) {
		t.Errorf("terminator classification is wrong")
	}
}

func TestNewVariable(t *testing.T) {
	fn := ir.NewFunction("f", &ir.FunctionType{Ret: ir.Void, Params: []ir.Type{envPtr(), ir.I32}}, "env", "x")

	names := []string{"x", "x", "y", "x", "env"}
	expected := []string{"x1", "x2", "y", "x3", "env1"}
	for i, name := range names {
		if got := fn.NewVariable(name, ir.I32).Name; got != expected[i] {
			t.Errorf("NewVariable(%s) #%d: expected %s, got %s", name, i, expected[i], got)
		}
	}

	if fn.Reserve("y") {
		t.Errorf("reserved a taken name")
	}
	if !fn.Reserve("z") {
		t.Errorf("could not reserve a free name")
	}
	if got := fn.NewVariable("z", ir.I32).Name; got != "z1" {
		t.Errorf("expected z1, got %s", got)
	}
}

func TestNewFunctionArity(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("expected a panic")
		}
	}()
	ir.NewFunction("f", &ir.FunctionType{Ret: ir.Void, Params: []ir.Type{ir.I32}})
}

func TestMethodInfo(t *testing.T) {
	tests := []struct {
		info     ir.MethodInfo
		expected bool
	}{
		{ir.MethodInfo{}, true},
		{ir.MethodInfo{Native: true}, false},
		{ir.MethodInfo{Abstract: true}, false},
		{ir.MethodInfo{Bodyless: true}, false},
	}
	for _, test := range tests {
		if got := test.info.HasBody(); got != test.expected {
			t.Errorf("%+v: expected HasBody %v, got %v", test.info, test.expected, got)
		}
	}
}

func TestFunctionString(t *testing.T) {
	fn := ir.NewFunction("Main.run", &ir.FunctionType{Ret: ir.I32, Params: []ir.Type{envPtr(), ir.I32}}, "env", "odd name")
	entry := fn.NewBlock("entry")
	done := fn.NewBlock("done")

	sum := fn.NewVariable("sum", ir.I32)
	cmp := fn.NewVariable("c", ir.I1)
	entry.Add(
		&ir.BinOp{Result: sum, Kind: ir.OpAdd, X: fn.Params[1], Y: ir.NewInt(ir.I32, 1)},
		&ir.ICmp{Result: cmp, Pred: ir.PredSGT, X: sum, Y: ir.NewInt(ir.I32, 0)},
		&ir.CondBr{Cond: cmp, Then: done, Else: done},
	)
	done.Add(&ir.Ret{Val: sum})

	expected := `define i32 @"Main.run"(%Env* %env, i32 %"odd name") {
entry:
    %sum = add i32 %"odd name", 1
    %c = icmp sgt i32 %sum, 0
    br i1 %c, label %done, label %done

done:
    ret i32 %sum
}
`
	if got := fn.String(); got != expected {
		t.Errorf("expected:\n%s\ngot:\n%s", expected, got)
	}

	decl := ir.NewFunction("Sys.time", &ir.FunctionType{Ret: ir.I64, Params: []ir.Type{envPtr()}}, "env")
	decl.Method.Native = true
	if got := decl.String(); got != "define native i64 @\"Sys.time\"(%Env* %env)\n" {
		t.Errorf("unexpected bodyless rendering %q", got)
	}
}

func TestMemoryInstructionStrings(t *testing.T) {
	frameT := ir.NewStruct("ShadowFrame")
	frameT.Fields = []ir.Type{ir.PointerTo(frameT), ir.I8Ptr, ir.I32}
	frame := &ir.Variable{Name: "fr", Typ: ir.PointerTo(frameT)}
	field := &ir.Variable{Name: "f1", Typ: ir.PointerTo(ir.I8Ptr)}
	addr := &ir.Variable{Name: "a", Typ: ir.I8Ptr}
	fnRef := ir.NewFunctionRef("g", &ir.FunctionType{Ret: ir.Void})

	tests := []struct {
		inst     ir.Instruction
		expected string
	}{
		{ir.NewAlloca(frame, frameT), "%fr = alloca %ShadowFrame"},
		{&ir.GetElementPtr{Result: field, Base: frame, Field: 1}, "%f1 = getelementptr %ShadowFrame* %fr, i32 0, i32 1"},
		{&ir.Bitcast{Result: addr, Val: fnRef, To: ir.I8Ptr}, `%a = bitcast void ()* @"g" to i8*`},
		{&ir.Store{Val: addr, Ptr: field}, "store i8* %a, i8** %f1"},
		{&ir.Load{Result: addr, Ptr: field}, "%a = load i8** %f1"},
		{&ir.Store{Val: &ir.NullConst{Typ: ir.I8Ptr}, Ptr: field}, "store i8* null, i8** %f1"},
		{ir.NewCall(fnRef), `call void @"g"()`},
		{
			&ir.Composite{Label: "init", Instructions: []ir.Instruction{
				&ir.Store{Val: addr, Ptr: field},
				&ir.Store{Val: addr, Ptr: field},
			}},
			"; init\n    store i8* %a, i8** %f1\n    store i8* %a, i8** %f1",
		},
	}

	for _, test := range tests {
		if got := test.inst.String(); got != test.expected {
			t.Errorf("expected %q, got %q", test.expected, got)
		}
	}
}

func TestModuleString(t *testing.T) {
	m := ir.NewModule()
	env := &ir.OpaqueType{Name: "Env"}
	m.AddType(env)
	m.AddType(&ir.OpaqueType{Name: "Env"})
	m.AddType(ir.NewStruct("Box"))

	pop := ir.NewFunctionRef("pop", &ir.FunctionType{Ret: ir.Void, Params: []ir.Type{ir.PointerTo(env)}})
	m.Declare(pop)
	m.Declare(ir.NewFunctionRef("pop", &ir.FunctionType{Ret: ir.I32}))

	fn := ir.NewFunction("main", &ir.FunctionType{Ret: ir.Void})
	fn.NewBlock("entry").Add(&ir.Ret{})
	m.AddFunction(fn)

	if got, _ := m.Declaration("pop"); got != pop {
		t.Errorf("first declaration was replaced")
	}
	if got, _ := m.Type("Env"); got != env {
		t.Errorf("first type was replaced")
	}

	expected := strings.Join([]string{
		"%Box = type {  }",
		"%Env = type opaque",
		"",
		`declare void @"pop"(%Env*)`,
		"",
		`define void @"main"() {`,
		"entry:",
		"    ret void",
		"}",
		"",
	}, "\n")
	if got := m.String(); got != expected {
		t.Errorf("expected:\n%s\ngot:\n%s", expected, got)
	}
}
