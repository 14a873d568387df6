package lexer

import (
	"regexp"
)

type tokenRegex struct {
	Pattern *regexp.Regexp
	Raw     string
}

func newTokenRegex(raw string) tokenRegex {
	return tokenRegex{regexp.MustCompile(raw), raw}
}

const (
	namePattern   = `[A-Za-z0-9_.$]+`
	quotedPattern = `"([^"\\]|\\.)*"`
)

// Token regex patterns
var tokenRegexes = map[TokenType]tokenRegex{
	INTTYPE: newTokenRegex(`^i\d+\b`),
	ID:      newTokenRegex(`^[A-Za-z_.$][A-Za-z0-9_.$]*`),
	LOCAL:   newTokenRegex(`^%(` + namePattern + `|` + quotedPattern + `)`),
	GLOBAL:  newTokenRegex(`^@(` + namePattern + `|` + quotedPattern + `)`),
	NUM:     newTokenRegex(`^-?\d+`),

	ASSIGN: newTokenRegex(`^=`),
	COMMA:  newTokenRegex(`^,`),
	COLON:  newTokenRegex(`^:`),
	STAR:   newTokenRegex(`^\*`),
	LPAREN: newTokenRegex(`^\(`),
	RPAREN: newTokenRegex(`^\)`),
	LBRACE: newTokenRegex(`^\{`),
	RBRACE: newTokenRegex(`^\}`),
}

var (
	whitespaceRegex = regexp.MustCompile(`^\s+`)
	commentRegex    = regexp.MustCompile(`^;[^\n]*`)
)

// Token precedence order for matching. Keywords are resolved from ID
// matches, so only the sigils and integer types need to come first.
var tokenPrecedenceOrder = []TokenType{
	LOCAL, GLOBAL, INTTYPE, NUM, ID,
	ASSIGN, COMMA, COLON, STAR, LPAREN, RPAREN, LBRACE, RBRACE,
}

// Get the regex pattern for a token type
func (t TokenType) Regex() *regexp.Regexp {
	if regex, ok := tokenRegexes[t]; ok {
		return regex.Pattern
	}

	return nil
}

// Get the raw regex string for a token type
func (t TokenType) RawRegex() string {
	if regex, ok := tokenRegexes[t]; ok {
		return regex.Raw
	}

	return ""
}

// MatchToken matches the first token at the start of the string. Whitespace
// and comments match as EOF with a non-empty lexeme so the caller can skip
// them.
func MatchToken(s string) (TokenType, string, bool) {
	if s == "" {
		return EOF, "", false
	} else if match := whitespaceRegex.FindString(s); match != "" {
		return EOF, match, true
	} else if match := commentRegex.FindString(s); match != "" {
		return EOF, match, true
	}

	for _, tokenType := range tokenPrecedenceOrder {
		if regex, ok := tokenRegexes[tokenType]; ok {
			if match := regex.Pattern.FindString(s); match != "" {
				if tokenType == ID {
					if kw, ok := IsKeyword(match); ok {
						return kw, match, true
					}
				}
				return tokenType, match, true
			}
		}
	}

	return ILLEGAL, string(s[0]), false
}
