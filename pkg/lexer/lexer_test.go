package lexer_test

import (
	"aotc/pkg/lexer"
	"testing"
)

func TestTokens(t *testing.T) {
	input := `define i32 @"Main.add"(%Env* %env, i32 %a) {
entry:
    %sum = add i32 %a, -1 ; trailing comment
    ret i32 %sum
}`
	mylexer := lexer.NewLexer(input)

	expectedTokens := []lexer.TokenType{
		lexer.DEFINE, lexer.INTTYPE, lexer.GLOBAL, lexer.LPAREN,
		lexer.LOCAL, lexer.STAR, lexer.LOCAL, lexer.COMMA, lexer.INTTYPE, lexer.LOCAL, lexer.RPAREN, lexer.LBRACE,
		lexer.ID, lexer.COLON,
		lexer.LOCAL, lexer.ASSIGN, lexer.ID, lexer.INTTYPE, lexer.LOCAL, lexer.COMMA, lexer.NUM,
		lexer.ID, lexer.INTTYPE, lexer.LOCAL,
		lexer.RBRACE,
		lexer.EOF,
	}

	for i, expected := range expectedTokens {
		token := mylexer.NextToken()
		if token.Type != expected {
			t.Errorf("Token %d: expected %s, got %s", i, expected, token.Type)
		}
	}
}

func TestLiterals(t *testing.T) {
	tests := []struct {
		input    string
		expected lexer.TokenType
		literal  string
	}{
		{`@"Main.main"`, lexer.GLOBAL, "Main.main"},
		{`@print`, lexer.GLOBAL, "print"},
		{`%x`, lexer.LOCAL, "x"},
		{`%0`, lexer.LOCAL, "0"},
		{`%"odd name"`, lexer.LOCAL, "odd name"},
		{`-42`, lexer.NUM, "-42"},
		{`i64`, lexer.INTTYPE, "i64"},
		{`slt`, lexer.ID, "slt"},
		{`bodyless`, lexer.BODYLESS, "bodyless"},
	}

	for _, test := range tests {
		tok := lexer.NewLexer(test.input).NextToken()
		if tok.Type != test.expected {
			t.Errorf("Input %s: expected %s, got %s", test.input, test.expected, tok.Type)
		}
		if tok.Literal != test.literal {
			t.Errorf("Input %s: expected literal %q, got %q", test.input, test.literal, tok.Literal)
		}
	}
}

func TestPositions(t *testing.T) {
	input := "; header comment\n  ret void"
	l := lexer.NewLexer(input)

	tok := l.NextToken()
	if tok.Lexeme != "ret" {
		t.Fatalf("expected ret, got %q", tok.Lexeme)
	}
	if tok.Pos.Line != 2 || tok.Pos.Column != 3 {
		t.Errorf("expected position 2:3, got %s", tok.Pos)
	}

	if peek := l.Peek(); peek.Type != lexer.VOID {
		t.Errorf("expected void on peek, got %s", peek.Type)
	}
	if next := l.NextToken(); next.Type != lexer.VOID {
		t.Errorf("expected void after peek, got %s", next.Type)
	}
	if eof := l.NextToken(); eof.Type != lexer.EOF {
		t.Errorf("expected end of input, got %s", eof.Type)
	}
}

func TestIllegal(t *testing.T) {
	tok := lexer.NewLexer("#").NextToken()
	if tok.Type != lexer.ILLEGAL || tok.Lexeme != "#" {
		t.Errorf("expected illegal '#', got %s", tok)
	}
}
