// Package parser reads textual IR into an ir.Module.
package parser

import (
	"aotc/pkg/color"
	"aotc/pkg/ir"
	"aotc/pkg/lexer"
	"fmt"
	"strconv"
)

type Parser struct {
	lexer        *lexer.Lexer // lexer instance
	currentToken lexer.Token  // current token
	module       *ir.Module   // module being built
	errors       []string     // list of errors

	fn      *ir.Function               // function being parsed
	vars    map[string]*ir.Variable    // locals of fn by name
	pending map[string]lexer.Position  // locals used before their definition
	blocks  map[string]*ir.BasicBlock  // blocks of fn by label
	labels  map[string]lexer.Position  // labels branched to but not yet defined
	calls   map[string]*ir.FunctionRef // callees seen in the module
}

// NewParser creates a new parser instance
func NewParser(l *lexer.Lexer) *Parser {
	p := &Parser{
		lexer:  l,
		module: ir.NewModule(),
		errors: []string{},
		calls:  make(map[string]*ir.FunctionRef),
	}

	// Initialize current token
	p.nextToken()

	return p
}

// Parse parses the whole input. Errors are collected; a definition with an
// error is dropped and parsing resumes at the next definition.
func (p *Parser) Parse() *ir.Module {
	for p.currentToken.Type != lexer.EOF {
		p.parseTopLevel()
	}

	// callees without a definition become external declarations
	for name, ref := range p.calls {
		if p.module.Function(name) == nil {
			p.module.Declare(ref)
		}
	}

	return p.module
}

// Module returns the module built so far
func (p *Parser) Module() *ir.Module {
	return p.module
}

func (p *Parser) parseTopLevel() {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(bailout); !ok {
				panic(r)
			}
			p.synchronize()
		}
	}()

	switch p.currentToken.Type {
	case lexer.DEFINE:
		p.parseDefine()
	case lexer.DECLARE:
		p.parseDeclare()
	case lexer.LOCAL:
		p.parseTypeDecl()
	default:
		p.fail(fmt.Sprintf("Unexpected `%s` at top level", color.BlueText(p.currentToken.Lexeme)))
	}
}

// synchronize skips to the start of the next top-level definition
func (p *Parser) synchronize() {
	depth := 0
	for p.currentToken.Type != lexer.EOF {
		switch p.currentToken.Type {
		case lexer.LBRACE:
			depth++
		case lexer.RBRACE:
			depth--
			if depth <= 0 {
				p.nextToken()
				return
			}
		case lexer.DEFINE, lexer.DECLARE:
			if depth <= 0 {
				return
			}
		}
		p.nextToken()
	}
}

// nextToken advances to the next token from the lexer
func (p *Parser) nextToken() {
	p.currentToken = p.lexer.NextToken()
	if p.currentToken.Type == lexer.ILLEGAL {
		p.addError(fmt.Sprintf("Illegal character `%s`", color.BlueText(p.currentToken.Lexeme)))
	}
}

// expect consumes a token of type t or fails
func (p *Parser) expect(t lexer.TokenType, what string) lexer.Token {
	tok := p.currentToken
	if tok.Type != t {
		p.expectError(what)
	}
	p.nextToken()
	return tok
}

// accept consumes a token of type t if present
func (p *Parser) accept(t lexer.TokenType) bool {
	if p.currentToken.Type == t {
		p.nextToken()
		return true
	}
	return false
}

// %Name = type opaque | %Name = type { T, ... }
func (p *Parser) parseTypeDecl() {
	nameTok := p.expect(lexer.LOCAL, "local")
	p.expect(lexer.ASSIGN, "=")
	p.expect(lexer.TYPE, "type")

	if p.accept(lexer.OPAQUE) {
		if _, exists := p.module.Type(nameTok.Literal); !exists {
			p.module.AddType(&ir.OpaqueType{Name: nameTok.Literal})
		}
		return
	}

	st := p.structNamed(nameTok.Literal, nameTok.Pos)
	p.expect(lexer.LBRACE, "{")
	st.Fields = nil
	if p.currentToken.Type != lexer.RBRACE {
		st.Fields = append(st.Fields, p.parseType())
		for p.accept(lexer.COMMA) {
			st.Fields = append(st.Fields, p.parseType())
		}
	}
	p.expect(lexer.RBRACE, "}")
}

// structNamed returns the struct type with the given name, creating it
func (p *Parser) structNamed(name string, pos lexer.Position) *ir.StructType {
	if t, ok := p.module.Type(name); ok {
		st, isStruct := t.(*ir.StructType)
		if !isStruct {
			p.addErrorAt(fmt.Sprintf("Type `%s` redeclared as struct", color.BlueText(name)), pos)
			panic(bailout{})
		}
		return st
	}
	st := ir.NewStruct(name)
	p.module.AddType(st)
	return st
}

// declare RT @name(T, ...)
func (p *Parser) parseDeclare() {
	p.expect(lexer.DECLARE, "declare")
	ret := p.parseReturnType()
	name := p.expect(lexer.GLOBAL, "global").Literal

	p.expect(lexer.LPAREN, "(")
	var params []ir.Type
	if p.currentToken.Type != lexer.RPAREN {
		params = append(params, p.parseType())
		for p.accept(lexer.COMMA) {
			params = append(params, p.parseType())
		}
	}
	p.expect(lexer.RPAREN, ")")

	p.module.Declare(ir.NewFunctionRef(name, &ir.FunctionType{Ret: ret, Params: params}))
}

// define [native] [abstract] [bodyless] RT @name(T %p, ...) [{ blocks }]
func (p *Parser) parseDefine() {
	p.expect(lexer.DEFINE, "define")

	var method ir.MethodInfo
	for {
		switch {
		case p.accept(lexer.NATIVE):
			method.Native = true
			continue
		case p.accept(lexer.ABSTRACT):
			method.Abstract = true
			continue
		case p.accept(lexer.BODYLESS):
			method.Bodyless = true
			continue
		}
		break
	}

	ret := p.parseReturnType()
	namePos := p.currentToken.Pos
	name := p.expect(lexer.GLOBAL, "global").Literal
	if p.module.Function(name) != nil {
		p.addErrorAt(fmt.Sprintf("Redefinition of function `%s`", color.BlueText(name)), namePos)
		panic(bailout{})
	}

	p.expect(lexer.LPAREN, "(")
	var (
		params []ir.Type
		names  []string
	)
	if p.currentToken.Type != lexer.RPAREN {
		for {
			params = append(params, p.parseType())
			names = append(names, p.expect(lexer.LOCAL, "local").Literal)
			if !p.accept(lexer.COMMA) {
				break
			}
		}
	}
	p.expect(lexer.RPAREN, ")")

	fn := ir.NewFunction(name, &ir.FunctionType{Ret: ret, Params: params}, names...)
	fn.Method = method
	p.beginFunction(fn)

	if p.accept(lexer.LBRACE) {
		p.parseBody()
		p.expect(lexer.RBRACE, "}")
		p.endFunction()
	}

	p.module.AddFunction(fn)
}

func (p *Parser) beginFunction(fn *ir.Function) {
	p.fn = fn
	p.vars = make(map[string]*ir.Variable)
	p.pending = make(map[string]lexer.Position)
	p.blocks = make(map[string]*ir.BasicBlock)
	p.labels = make(map[string]lexer.Position)
	for _, param := range fn.Params {
		p.vars[param.Name] = param
	}
}

// endFunction reports names that were used but never defined
func (p *Parser) endFunction() {
	failed := false
	for name, pos := range p.pending {
		p.addErrorAt(fmt.Sprintf("Undefined local `%%%s`", color.BlueText(name)), pos)
		failed = true
	}
	for label, pos := range p.labels {
		p.addErrorAt(fmt.Sprintf("Undefined label `%s`", color.BlueText(label)), pos)
		failed = true
	}
	if failed {
		panic(bailout{})
	}
}

// parseBody parses blocks until the closing brace. A body that does not
// start with a label gets an implicit "entry" block.
func (p *Parser) parseBody() {
	var current *ir.BasicBlock
	for p.currentToken.Type != lexer.RBRACE && p.currentToken.Type != lexer.EOF {
		if p.currentToken.Type == lexer.ID && p.lexer.Peek().Type == lexer.COLON {
			current = p.defineBlock(p.currentToken)
			p.nextToken()
			p.nextToken()
			continue
		}
		if current == nil {
			current = p.defineBlock(lexer.Token{Literal: "entry", Pos: p.currentToken.Pos})
		}
		current.Add(p.parseInstruction())
	}
}

// defineBlock appends the block for a label, reusing one created by a
// forward branch
func (p *Parser) defineBlock(tok lexer.Token) *ir.BasicBlock {
	label := tok.Literal
	bb, seen := p.blocks[label]
	if seen {
		if _, forward := p.labels[label]; !forward {
			p.addErrorAt(fmt.Sprintf("Duplicate label `%s`", color.BlueText(label)), tok.Pos)
			panic(bailout{})
		}
		delete(p.labels, label)
	} else {
		bb = ir.NewBasicBlock(label)
		p.blocks[label] = bb
	}
	p.fn.Blocks = append(p.fn.Blocks, bb)
	return bb
}

// blockRef resolves a branch target, creating it on forward reference
func (p *Parser) blockRef() *ir.BasicBlock {
	p.expect(lexer.LABEL, "label")
	tok := p.expect(lexer.LOCAL, "local")
	if bb, ok := p.blocks[tok.Literal]; ok {
		return bb
	}
	bb := ir.NewBasicBlock(tok.Literal)
	p.blocks[tok.Literal] = bb
	p.labels[tok.Literal] = tok.Pos
	return bb
}

// parseType parses i<N>, void, %Name, each followed by any number of *
func (p *Parser) parseType() ir.Type {
	var t ir.Type
	tok := p.currentToken
	switch tok.Type {
	case lexer.INTTYPE:
		bits, err := strconv.Atoi(tok.Lexeme[1:])
		if err != nil || bits <= 0 || bits > 64 {
			p.fail(fmt.Sprintf("Unsupported integer type `%s`", color.BlueText(tok.Lexeme)))
		}
		t = ir.IntOf(bits)
	case lexer.VOID:
		t = ir.Void
	case lexer.LOCAL:
		t = p.namedType(tok.Literal)
	default:
		p.expectError("type")
	}
	p.nextToken()

	if p.currentToken.Type == lexer.LPAREN {
		t = p.parseFunctionType(t)
	}
	for p.accept(lexer.STAR) {
		t = ir.PointerTo(t)
	}
	return t
}

// parseFunctionType parses "(T, ...)" after a return type
func (p *Parser) parseFunctionType(ret ir.Type) *ir.FunctionType {
	p.expect(lexer.LPAREN, "(")
	ft := &ir.FunctionType{Ret: ret}
	if p.currentToken.Type != lexer.RPAREN {
		ft.Params = append(ft.Params, p.parseType())
		for p.accept(lexer.COMMA) {
			ft.Params = append(ft.Params, p.parseType())
		}
	}
	p.expect(lexer.RPAREN, ")")
	return ft
}

// parseReturnType parses a type that may be void
func (p *Parser) parseReturnType() ir.Type {
	return p.parseType()
}

// namedType resolves %Name; undeclared names are runtime-owned opaque types
func (p *Parser) namedType(name string) ir.Type {
	if t, ok := p.module.Type(name); ok {
		return t
	}
	t := &ir.OpaqueType{Name: name}
	p.module.AddType(t)
	return t
}

// parseValue parses an operand of type t
func (p *Parser) parseValue(t ir.Type) ir.Value {
	tok := p.currentToken
	switch tok.Type {
	case lexer.LOCAL:
		p.nextToken()
		return p.use(tok, t)
	case lexer.NUM:
		it, ok := t.(*ir.IntType)
		if !ok {
			p.fail(fmt.Sprintf("Integer constant for non-integer type %s", t))
		}
		v, err := strconv.ParseInt(tok.Lexeme, 10, 64)
		if err != nil {
			p.fail(fmt.Sprintf("Integer constant `%s` out of range", color.BlueText(tok.Lexeme)))
		}
		p.nextToken()
		return ir.NewInt(it, v)
	case lexer.NULL:
		pt, ok := t.(*ir.PointerType)
		if !ok {
			p.fail(fmt.Sprintf("null for non-pointer type %s", t))
		}
		p.nextToken()
		return &ir.NullConst{Typ: pt}
	case lexer.GLOBAL:
		var ft *ir.FunctionType
		if pt, ok := t.(*ir.PointerType); ok {
			ft, _ = pt.Elem.(*ir.FunctionType)
		}
		if ft == nil {
			p.fail(fmt.Sprintf("Function symbol for non-function-pointer type %s", t))
		}
		p.nextToken()
		return p.symbol(tok.Literal, ft)
	}
	p.expectError("value")
	return nil
}

// symbol records a reference to a function symbol; names without a
// definition are declared once parsing ends
func (p *Parser) symbol(name string, ft *ir.FunctionType) *ir.FunctionRef {
	ref := ir.NewFunctionRef(name, ft)
	if _, seen := p.calls[name]; !seen {
		p.calls[name] = ref
	}
	return ref
}

// parseTypedValue parses "T v"
func (p *Parser) parseTypedValue() ir.Value {
	t := p.parseType()
	return p.parseValue(t)
}

// use resolves a local name, creating a placeholder for forward references
func (p *Parser) use(tok lexer.Token, t ir.Type) *ir.Variable {
	if v, ok := p.vars[tok.Literal]; ok {
		if !ir.SameType(v.Typ, t) {
			p.addErrorAt(fmt.Sprintf("Type mismatch for `%%%s`: declared %s, used as %s", color.BlueText(tok.Literal), v.Typ, t), tok.Pos)
			panic(bailout{})
		}
		return v
	}
	v := &ir.Variable{Name: tok.Literal, Typ: t}
	p.fn.Reserve(tok.Literal)
	p.vars[tok.Literal] = v
	p.pending[tok.Literal] = tok.Pos
	return v
}

// define binds a result name, completing a forward reference if present
func (p *Parser) define(tok lexer.Token, t ir.Type) *ir.Variable {
	if v, ok := p.vars[tok.Literal]; ok {
		if _, forward := p.pending[tok.Literal]; !forward {
			p.addErrorAt(fmt.Sprintf("Redefinition of `%%%s`", color.BlueText(tok.Literal)), tok.Pos)
			panic(bailout{})
		}
		if !ir.SameType(v.Typ, t) {
			p.addErrorAt(fmt.Sprintf("Type mismatch for `%%%s`: used as %s, defined as %s", color.BlueText(tok.Literal), v.Typ, t), tok.Pos)
			panic(bailout{})
		}
		delete(p.pending, tok.Literal)
		return v
	}
	v := &ir.Variable{Name: tok.Literal, Typ: t}
	p.fn.Reserve(tok.Literal)
	p.vars[tok.Literal] = v
	return v
}
