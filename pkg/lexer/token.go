package lexer

import (
	"fmt"
)

type TokenType int
type TokenCategory int

type Token struct {
	Type    TokenType // Type of the token
	Lexeme  string    // Actual string from source code
	Literal string    // Literal value (name without sigil or quotes, number text)
	Pos     Position  // Position in source code
}

// NewToken creates a new Token instance
func NewToken(tokenType TokenType, lexeme string, literal string, Pos Position) Token {
	return Token{
		Type:    tokenType,
		Lexeme:  lexeme,
		Literal: literal,
		Pos:     Pos,
	}
}

const (
	NONE TokenCategory = iota
	KEYWORD
	IDENTIFIER
	LITERAL
	DELIMITER
)

const (
	EOF TokenType = iota // End of file

	DEFINE   // define
	DECLARE  // declare
	NATIVE   // native
	ABSTRACT // abstract
	BODYLESS // bodyless
	TYPE     // type
	OPAQUE   // opaque
	LABEL    // label
	VOID     // void
	NULL     // null
	TO       // to

	INTTYPE // i1, i8, i32, i64
	ID      // bare word (opcodes, predicates, block labels)
	LOCAL   // %name or %"name"
	GLOBAL  // @name or @"name"
	NUM     // integer literal

	ASSIGN // =
	COMMA  // ,
	COLON  // :
	STAR   // *
	LPAREN // (
	RPAREN // )
	LBRACE // {
	RBRACE // }

	ILLEGAL // illegal token
)

var Keywords = map[string]TokenType{
	"define":   DEFINE,
	"declare":  DECLARE,
	"native":   NATIVE,
	"abstract": ABSTRACT,
	"bodyless": BODYLESS,
	"type":     TYPE,
	"opaque":   OPAQUE,
	"label":    LABEL,
	"void":     VOID,
	"null":     NULL,
	"to":       TO,
}

var tokenNames = map[TokenType]string{
	DEFINE:   "define",
	DECLARE:  "declare",
	NATIVE:   "native",
	ABSTRACT: "abstract",
	BODYLESS: "bodyless",
	TYPE:     "type",
	OPAQUE:   "opaque",
	LABEL:    "label",
	VOID:     "void",
	NULL:     "null",
	TO:       "to",
	INTTYPE:  "integer type",
	ID:       "identifier",
	LOCAL:    "local",
	GLOBAL:   "global",
	NUM:      "number",
	ASSIGN:   "=",
	COMMA:    ",",
	COLON:    ":",
	STAR:     "*",
	LPAREN:   "(",
	RPAREN:   ")",
	LBRACE:   "{",
	RBRACE:   "}",
	ILLEGAL:  "illegal",
	EOF:      "end of input",
}

// String returns a string representation of the Token
func (t Token) String() string {
	return fmt.Sprintf("T_{%s, %q, %s}", t.Type, t.Lexeme, t.Pos.String())
}

// String returns a string representation of the TokenType
func (t TokenType) String() string {
	if str, ok := tokenNames[t]; ok {
		return str
	}

	return fmt.Sprintf("UNKNOWN(%d)", int(t))
}

// GetCategory returns the category of the token
func (t TokenType) GetCategory() TokenCategory {
	switch t {
	case DEFINE, DECLARE, NATIVE, ABSTRACT, BODYLESS, TYPE, OPAQUE, LABEL, VOID, NULL, TO, INTTYPE:
		return KEYWORD
	case ID, LOCAL, GLOBAL:
		return IDENTIFIER
	case NUM:
		return LITERAL
	case ASSIGN, COMMA, COLON, STAR, LPAREN, RPAREN, LBRACE, RBRACE:
		return DELIMITER
	default:
		return NONE
	}
}

// IsKeyword checks if the given identifier is a keyword and returns its TokenType if it is
func IsKeyword(identifier string) (TokenType, bool) {
	tokenType, ok := Keywords[identifier]
	return tokenType, ok
}
