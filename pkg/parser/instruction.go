package parser

import (
	"aotc/pkg/color"
	"aotc/pkg/ir"
	"aotc/pkg/lexer"
	"fmt"
	"strconv"
)

var binaryOps = map[string]ir.Operation{
	"add":  ir.OpAdd,
	"sub":  ir.OpSub,
	"mul":  ir.OpMul,
	"sdiv": ir.OpSDiv,
	"srem": ir.OpSRem,
}

var predicates = map[string]ir.Predicate{
	"eq":  ir.PredEQ,
	"ne":  ir.PredNE,
	"slt": ir.PredSLT,
	"sle": ir.PredSLE,
	"sgt": ir.PredSGT,
	"sge": ir.PredSGE,
}

// parseInstruction parses one instruction, with or without a result
func (p *Parser) parseInstruction() ir.Instruction {
	if p.currentToken.Type == lexer.LOCAL {
		result := p.currentToken
		p.nextToken()
		p.expect(lexer.ASSIGN, "=")
		return p.parseValueInstruction(result)
	}

	op := p.currentToken
	if op.Type != lexer.ID {
		p.expectError("instruction")
	}
	p.nextToken()

	switch op.Lexeme {
	case "call":
		// a non-void result may be discarded
		return p.parseCall()
	case "store":
		val := p.parseTypedValue()
		p.expect(lexer.COMMA, ",")
		ptr := p.parseTypedValue()
		return &ir.Store{Val: val, Ptr: ptr}
	case "ret":
		if p.accept(lexer.VOID) {
			return &ir.Ret{}
		}
		return &ir.Ret{Val: p.parseTypedValue()}
	case "br":
		if p.currentToken.Type == lexer.LABEL {
			return &ir.Br{Target: p.blockRef()}
		}
		cond := p.parseTypedValue()
		p.expect(lexer.COMMA, ",")
		then := p.blockRef()
		p.expect(lexer.COMMA, ",")
		els := p.blockRef()
		return &ir.CondBr{Cond: cond, Then: then, Else: els}
	case "throw":
		return &ir.Throw{Val: p.parseTypedValue()}
	case "unreachable":
		return &ir.Unreachable{}
	}

	p.addErrorAt(fmt.Sprintf("Unknown instruction `%s`", color.BlueText(op.Lexeme)), op.Pos)
	panic(bailout{})
}

// parseValueInstruction parses the right-hand side of "%r = ..."
func (p *Parser) parseValueInstruction(result lexer.Token) ir.Instruction {
	op := p.currentToken
	if op.Type != lexer.ID {
		p.expectError("instruction")
	}
	p.nextToken()

	if kind, ok := binaryOps[op.Lexeme]; ok {
		t := p.parseType()
		if _, isInt := t.(*ir.IntType); !isInt {
			p.fail(fmt.Sprintf("Arithmetic on non-integer type %s", t))
		}
		x := p.parseValue(t)
		p.expect(lexer.COMMA, ",")
		y := p.parseValue(t)
		return &ir.BinOp{Result: p.define(result, t), Kind: kind, X: x, Y: y}
	}

	switch op.Lexeme {
	case "icmp":
		predTok := p.expect(lexer.ID, "predicate")
		pred, ok := predicates[predTok.Lexeme]
		if !ok {
			p.addErrorAt(fmt.Sprintf("Unknown comparison `%s`", color.BlueText(predTok.Lexeme)), predTok.Pos)
			panic(bailout{})
		}
		t := p.parseType()
		x := p.parseValue(t)
		p.expect(lexer.COMMA, ",")
		y := p.parseValue(t)
		return &ir.ICmp{Result: p.define(result, ir.I1), Pred: pred, X: x, Y: y}
	case "call":
		call := p.parseCall()
		if ir.SameType(call.Callee.Typ.Ret, ir.Void) {
			p.addErrorAt("Cannot name the result of a void call", result.Pos)
			panic(bailout{})
		}
		call.Result = p.define(result, call.Callee.Typ.Ret)
		return call
	case "alloca":
		t := p.parseType()
		return ir.NewAlloca(p.define(result, ir.PointerTo(t)), t)
	case "getelementptr":
		base := p.parseTypedValue()
		var st *ir.StructType
		if pt, ok := base.Type().(*ir.PointerType); ok {
			st, _ = pt.Elem.(*ir.StructType)
		}
		if st == nil {
			p.fail(fmt.Sprintf("getelementptr on non-struct pointer %s", base.Type()))
		}
		p.expect(lexer.COMMA, ",")
		if zero, ok := p.parseTypedValue().(*ir.IntConst); !ok || zero.V != 0 {
			p.fail("getelementptr only supports a zero leading index")
		}
		p.expect(lexer.COMMA, ",")
		p.parseType()
		fieldTok := p.expect(lexer.NUM, "field index")
		field, err := strconv.Atoi(fieldTok.Lexeme)
		if err != nil || field < 0 || field >= len(st.Fields) {
			p.addErrorAt(fmt.Sprintf("Field `%s` out of range for %s", color.BlueText(fieldTok.Lexeme), st), fieldTok.Pos)
			panic(bailout{})
		}
		return &ir.GetElementPtr{Result: p.define(result, ir.PointerTo(st.Fields[field])), Base: base, Field: field}
	case "bitcast":
		val := p.parseTypedValue()
		p.expect(lexer.TO, "to")
		to := p.parseType()
		return &ir.Bitcast{Result: p.define(result, to), Val: val, To: to}
	case "load":
		ptr := p.parseTypedValue()
		pt, ok := ptr.Type().(*ir.PointerType)
		if !ok {
			p.fail(fmt.Sprintf("Load from non-pointer type %s", ptr.Type()))
		}
		return &ir.Load{Result: p.define(result, pt.Elem), Ptr: ptr}
	}

	p.addErrorAt(fmt.Sprintf("Unknown instruction `%s`", color.BlueText(op.Lexeme)), op.Pos)
	panic(bailout{})
}

// parseCall parses "RT @callee(T v, ...)" after the call keyword
func (p *Parser) parseCall() *ir.Call {
	ret := p.parseReturnType()
	name := p.expect(lexer.GLOBAL, "global").Literal

	p.expect(lexer.LPAREN, "(")
	var args []ir.Value
	if p.currentToken.Type != lexer.RPAREN {
		args = append(args, p.parseTypedValue())
		for p.accept(lexer.COMMA) {
			args = append(args, p.parseTypedValue())
		}
	}
	p.expect(lexer.RPAREN, ")")

	params := make([]ir.Type, len(args))
	for i, a := range args {
		params[i] = a.Type()
	}
	ref := p.symbol(name, &ir.FunctionType{Ret: ret, Params: params})

	return ir.NewCall(ref, args...)
}
