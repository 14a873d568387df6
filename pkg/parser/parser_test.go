package parser_test

import (
	"strings"
	"testing"

	"aotc/pkg/color"
	"aotc/pkg/ir"
	"aotc/pkg/lexer"
	"aotc/pkg/parser"
)

func init() {
	color.EnableColor(false)
}

func parse(src string) (*ir.Module, []string) {
	p := parser.NewParser(lexer.NewLexer(src))
	m := p.Parse()
	return m, p.Errors()
}

func TestRoundTrip(t *testing.T) {
	src := `%Env = type opaque
%Pair = type { i32, i64 }

declare void @"print"(i32)

define i32 @"Main.max"(%Env* %env, i32 %a, i32 %b) {
entry:
    %c = icmp sgt i32 %a, %b
    br i1 %c, label %left, label %right

left:
    ret i32 %a

right:
    ret i32 %b
}

define native i64 @"Sys.time"(%Env* %env)

define abstract void @"Shape.draw"(%Env* %env)
`
	m, errs := parse(src)
	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	if got := m.String(); got != src {
		t.Errorf("expected:\n%s\ngot:\n%s", src, got)
	}
}

func TestMethodModifiers(t *testing.T) {
	m, errs := parse(`
define native i64 @"Sys.time"(%Env* %env)
define abstract void @"Shape.draw"(%Env* %env)
define bodyless void @"Lazy.init"(%Env* %env)
define void @plain(%Env* %env) {
    ret void
}`)
	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	tests := []struct {
		name     string
		expected ir.MethodInfo
		blocks   int
	}{
		{"Sys.time", ir.MethodInfo{Native: true}, 0},
		{"Shape.draw", ir.MethodInfo{Abstract: true}, 0},
		{"Lazy.init", ir.MethodInfo{Bodyless: true}, 0},
		{"plain", ir.MethodInfo{}, 1},
	}
	for _, test := range tests {
		fn := m.Function(test.name)
		if fn == nil {
			t.Errorf("%s: not defined", test.name)
			continue
		}
		if fn.Method != test.expected {
			t.Errorf("%s: expected %+v, got %+v", test.name, test.expected, fn.Method)
		}
		if len(fn.Blocks) != test.blocks {
			t.Errorf("%s: expected %d blocks, got %d", test.name, test.blocks, len(fn.Blocks))
		}
	}
}

func TestImplicitEntryAndForwardReferences(t *testing.T) {
	m, errs := parse(`
define i32 @f(i32 %x) {
    br label %later
later:
    %y = add i32 %x, 1
    ret i32 %y
}`)
	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	fn := m.Function("f")
	if len(fn.Blocks) != 2 || fn.Blocks[0].Label != "entry" || fn.Blocks[1].Label != "later" {
		t.Fatalf("unexpected blocks:\n%s", fn)
	}
	br := fn.Blocks[0].Instructions[0].(*ir.Br)
	if br.Target != fn.Blocks[1] {
		t.Errorf("forward branch does not target the defined block")
	}

	add := fn.Blocks[1].Instructions[0].(*ir.BinOp)
	if add.X != fn.Params[0] {
		t.Errorf("parameter use is not the parameter")
	}
	ret := fn.Blocks[1].Instructions[1].(*ir.Ret)
	if ret.Val != add.Result {
		t.Errorf("use of %%y is not its definition")
	}
}

func TestUndefinedCalleesAreDeclared(t *testing.T) {
	m, errs := parse(`
define void @f(%Env* %env) {
    %t = call i64 @"Sys.time"(%Env* %env)
    call void @g()
    call void @print(i64 %t)
    ret void
}
define void @g() {
    ret void
}`)
	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	decl, ok := m.Declaration("Sys.time")
	if !ok {
		t.Fatalf("Sys.time not declared")
	}
	if got := decl.Typ.String(); got != "i64 (%Env*)" {
		t.Errorf("declared as %s", got)
	}
	if _, ok := m.Declaration("print"); !ok {
		t.Errorf("print not declared")
	}
	if _, ok := m.Declaration("g"); ok {
		t.Errorf("defined function g was declared")
	}
}

func TestInstrumentedSyntax(t *testing.T) {
	src := `%ShadowFrame = type { %ShadowFrame*, i8*, i32 }

define void @f(%Env* %env) {
    %fr = alloca %ShadowFrame
    ; init shadow frame
    %addr = bitcast void (%Env*)* @f to i8*
    %p = getelementptr %ShadowFrame* %fr, i32 0, i32 1
    store i8* %addr, i8** %p
    %l = getelementptr %ShadowFrame* %fr, i32 0, i32 2
    store i32 -1, i32* %l
    ret void
}`
	m, errs := parse(src)
	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	insts := m.Function("f").Blocks[0].Instructions
	bc := insts[1].(*ir.Bitcast)
	ref, ok := bc.Val.(*ir.FunctionRef)
	if !ok || ref.Name != "f" {
		t.Fatalf("bitcast of %s", bc.Val.Ref())
	}
	if got := bc.Val.Type().String(); got != "void (%Env*)*" {
		t.Errorf("function pointer typed %s", got)
	}

	gep := insts[2].(*ir.GetElementPtr)
	if gep.Field != 1 || gep.Result.Type().String() != "i8**" {
		t.Errorf("unexpected %s of type %s", gep, gep.Result.Type())
	}
	gep = insts[4].(*ir.GetElementPtr)
	if gep.Field != 2 || gep.Result.Type().String() != "i32*" {
		t.Errorf("unexpected %s of type %s", gep, gep.Result.Type())
	}
	if _, ok := m.Declaration("f"); ok {
		t.Errorf("self reference was declared")
	}
}

func TestErrors(t *testing.T) {
	tests := []struct {
		description string
		src         string
		expected    string
	}{
		{"unknown instruction", "define void @f() {\n    frob i32 1\n}", "Unknown instruction `frob`"},
		{"redefinition", "define void @f() {\n    %x = add i32 1, 2\n    %x = add i32 1, 2\n    ret void\n}", "Redefinition of `%x`"},
		{"undefined local", "define i32 @f() {\n    ret i32 %nope\n}", "Undefined local `%nope`"},
		{"undefined label", "define void @f() {\n    br label %nowhere\n}", "Undefined label `nowhere`"},
		{"duplicate label", "define void @f() {\na:\n    ret void\na:\n    ret void\n}", "Duplicate label `a`"},
		{"type mismatch", "define i32 @f(i32 %x) {\n    ret i64 %x\n}", "Type mismatch for `%x`"},
		{"missing parenthesis", "define void @f( {\n}", "Expected type"},
		{"local as function name", "define void %f() {\n}", "Function names start with @, not %"},
		{"function redefinition", "define void @f()\ndefine void @f()", "Redefinition of function `f`"},
		{"named void result", "define void @f() {\n    %x = call void @g()\n    ret void\n}", "Cannot name the result of a void call"},
		{"bad field", "%P = type { i32 }\ndefine void @f(%P* %p) {\n    %q = getelementptr %P* %p, i32 0, i32 3\n    ret void\n}", "Field `3` out of range"},
		{"illegal character", "define void @f() {\n    ret void #\n}", "Illegal character `#`"},
		{"garbage at top level", "ret void", "Unexpected `ret` at top level"},
		{"integer width", "define i128 @f()", "Unsupported integer type `i128`"},
	}

	for _, test := range tests {
		_, errs := parse(test.src)
		if len(errs) == 0 {
			t.Errorf("%s: expected an error", test.description)
			continue
		}
		if !strings.Contains(strings.Join(errs, "\n"), test.expected) {
			t.Errorf("%s: expected %q in %v", test.description, test.expected, errs)
		}
	}
}

func TestRecoversAfterError(t *testing.T) {
	m, errs := parse(`
define void @bad() {
    frob
}

define void @good() {
    ret void
}`)
	if len(errs) != 1 {
		t.Errorf("expected 1 error, got %v", errs)
	}
	if m.Function("bad") != nil {
		t.Errorf("function with an error was kept")
	}
	if m.Function("good") == nil {
		t.Errorf("parsing did not resume after the error")
	}
}

func TestErrorPosition(t *testing.T) {
	_, errs := parse("define void @f() {\n    frob\n}")
	if len(errs) == 0 || !strings.Contains(errs[0], "Line: 2, Column 5") {
		t.Errorf("unexpected position in %v", errs)
	}
}
