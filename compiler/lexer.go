package compiler

import (
	"unicode"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Lexer: tokenizer for co source
// ---------------------------------------------------------------------------

// Lexer tokenizes co source code. Comments run from '#' to end of line.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      rune // current character
	line    int  // current line (1-based)
	col     int  // column of ch (1-based)
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		col:   0,
	}
	l.readChar()
	return l
}

// readChar reads the next character.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.col = 0
	}
	if l.readPos >= len(l.input) {
		l.ch = 0 // EOF
		l.pos = l.readPos
		l.col++
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
	l.ch = r
	l.pos = l.readPos
	l.readPos += size
	l.col++
}

// peekChar returns the next character without consuming it.
func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return r
}

// position returns the position of the current character.
func (l *Lexer) position() Position {
	return Position{
		Offset: l.pos,
		Line:   l.line,
		Column: l.col,
	}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()

	pos := l.position()

	single := func(t TokenType) Token {
		lit := string(l.ch)
		l.readChar()
		return Token{Type: t, Literal: lit, Pos: pos}
	}
	double := func(t TokenType) Token {
		lit := string(l.ch)
		l.readChar()
		lit += string(l.ch)
		l.readChar()
		return Token{Type: t, Literal: lit, Pos: pos}
	}

	switch {
	case l.ch == 0:
		return Token{Type: TokenEOF, Literal: "", Pos: pos}

	case l.ch == '(':
		return single(TokenLParen)
	case l.ch == ')':
		return single(TokenRParen)
	case l.ch == '[':
		return single(TokenLBracket)
	case l.ch == ']':
		return single(TokenRBracket)
	case l.ch == '{':
		return single(TokenLBrace)
	case l.ch == '}':
		return single(TokenRBrace)
	case l.ch == ',':
		return single(TokenComma)
	case l.ch == ':':
		return single(TokenColon)
	case l.ch == '*':
		return single(TokenStar)
	case l.ch == '/':
		return single(TokenSlash)
	case l.ch == '&':
		return single(TokenAmp)
	case l.ch == '|':
		return single(TokenBar)
	case l.ch == '-':
		return single(TokenMinus)

	case l.ch == '+':
		if l.peekChar() == '+' {
			return double(TokenConcat)
		}
		return single(TokenPlus)

	case l.ch == '=':
		if l.peekChar() == '=' {
			return double(TokenEq)
		}
		return single(TokenAssign)

	case l.ch == '!':
		if l.peekChar() == '=' {
			return double(TokenNotEq)
		}
		return single(TokenBang)

	case l.ch == '<':
		if l.peekChar() == '=' {
			return double(TokenLessEq)
		}
		return single(TokenLess)

	case l.ch == '>':
		if l.peekChar() == '=' {
			return double(TokenGreaterEq)
		}
		return single(TokenGreater)

	case l.ch == '\'':
		return l.readCharacter(pos)

	case isDigit(l.ch):
		return l.readNumber(pos)

	case isLetter(l.ch) || l.ch == '_':
		return l.readIdentifier(pos)
	}

	ch := l.ch
	l.readChar()
	return Token{Type: TokenError, Literal: "unexpected character " + quoteRune(ch), Pos: pos}
}

// Tokenize returns every token up to and including EOF or the first error.
func (l *Lexer) Tokenize() []Token {
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF || tok.Type == TokenError {
			return tokens
		}
	}
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch {
		case unicode.IsSpace(l.ch):
			l.readChar()
		case l.ch == '#':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		default:
			return
		}
	}
}

func (l *Lexer) readIdentifier(pos Position) Token {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	lit := l.input[start:l.pos]
	if lit == "_" {
		return Token{Type: TokenUnderscore, Literal: lit, Pos: pos}
	}
	if t, ok := reservedWords[lit]; ok {
		return Token{Type: t, Literal: lit, Pos: pos}
	}
	return Token{Type: TokenIdentifier, Literal: lit, Pos: pos}
}

// readNumber reads an integer or a float. A float needs digits on both
// sides of the dot.
func (l *Lexer) readNumber(pos Position) Token {
	start := l.pos
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
		return Token{Type: TokenFloat, Literal: l.input[start:l.pos], Pos: pos}
	}
	return Token{Type: TokenInteger, Literal: l.input[start:l.pos], Pos: pos}
}

// readCharacter reads a quoted character literal. The token literal is the
// decoded character.
func (l *Lexer) readCharacter(pos Position) Token {
	l.readChar() // opening quote
	var r rune
	switch l.ch {
	case 0, '\n':
		return Token{Type: TokenError, Literal: "unterminated character literal", Pos: pos}
	case '\\':
		l.readChar()
		switch l.ch {
		case 'n':
			r = '\n'
		case 't':
			r = '\t'
		case 'r':
			r = '\r'
		case '0':
			r = 0
		case '\\', '\'':
			r = l.ch
		default:
			return Token{Type: TokenError, Literal: "unknown escape \\" + string(l.ch), Pos: pos}
		}
	default:
		r = l.ch
	}
	l.readChar()
	if l.ch != '\'' {
		return Token{Type: TokenError, Literal: "unterminated character literal", Pos: pos}
	}
	l.readChar()
	return Token{Type: TokenCharacter, Literal: string(r), Pos: pos}
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isLetter(r rune) bool {
	return unicode.IsLetter(r)
}

func quoteRune(r rune) string {
	return "'" + string(r) + "'"
}
