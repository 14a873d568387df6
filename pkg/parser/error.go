package parser

import (
	"aotc/pkg/color"
	"aotc/pkg/lexer"
	"fmt"
)

// bailout aborts the current definition after an error has been recorded
type bailout struct{}

// addError records a parsing error at the current token
func (p *Parser) addError(msg string) {
	p.addErrorAt(msg, p.currentToken.Pos)
}

// addErrorAt records a parsing error at pos
func (p *Parser) addErrorAt(msg string, pos lexer.Position) {
	formatted := color.RedText(msg) + " at " + color.YellowText(fmt.Sprintf("Line: %d, Column %d", pos.Line, pos.Column))
	p.errors = append(p.errors, formatted)
}

// fail records an error and abandons the current definition
func (p *Parser) fail(msg string) {
	p.addError(msg)
	panic(bailout{})
}

// expectError reports a token that does not fit the grammar
func (p *Parser) expectError(expected string) {
	p.fail(p.categorizeError(expected, p.currentToken))
}

// Errors returns the list of parsing errors
func (p *Parser) Errors() []string {
	return p.errors
}

// categorizeError provides a specific error message based on expected symbol and current token
func (p *Parser) categorizeError(expected string, current lexer.Token) string {
	if current.Type == lexer.EOF {
		return "Unexpected end of input, expected " + expected
	}

	switch expected {
	case ")":
		return "Missing closing parenthesis"
	case "}":
		return "Missing closing brace"
	case "(":
		if current.Type == lexer.LBRACE {
			return "Wrong bracket type - expected parenthesis"
		}
		return "Missing opening parenthesis"
	case "=":
		return "Missing assignment operator"
	case ",":
		return "Missing comma"
	case "type":
		return fmt.Sprintf("Expected type, found %s `%s`", current.Type, color.BlueText(current.Lexeme))
	case "global":
		if current.Type == lexer.LOCAL {
			return "Function names start with @, not %"
		}
		return "Expected function name"
	case "local":
		if current.Type == lexer.GLOBAL {
			return "Local names start with %, not @"
		}
		return "Expected local name"
	case "value":
		return fmt.Sprintf("Expected value, found `%s`", color.BlueText(current.Lexeme))
	}

	return fmt.Sprintf("Syntax error: expected %s, found `%s`", expected, color.BlueText(current.Lexeme))
}
