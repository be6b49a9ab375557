package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Token types for the co lexer
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Literals
	TokenInteger    // 42
	TokenFloat      // 3.14
	TokenCharacter  // 'a', '\n'
	TokenIdentifier // foo, xs, A
	TokenUnderscore // _

	// Operators
	TokenPlus      // +
	TokenMinus     // -
	TokenStar      // *
	TokenSlash     // /
	TokenBang      // !
	TokenAmp       // &
	TokenBar       // |
	TokenEq        // ==
	TokenNotEq     // !=
	TokenLess      // <
	TokenLessEq    // <=
	TokenGreater   // >
	TokenGreaterEq // >=
	TokenColon     // :
	TokenConcat    // ++
	TokenAssign    // =

	// Delimiters
	TokenLParen   // (
	TokenRParen   // )
	TokenLBracket // [
	TokenRBracket // ]
	TokenLBrace   // {
	TokenRBrace   // }
	TokenComma    // ,

	// Keywords
	TokenLet
	TokenMain
	TokenDo
	TokenLambda
	TokenIf
	TokenThen
	TokenElse
	TokenFor
	TokenPrint
	TokenRead
	TokenTrue
	TokenFalse
	TokenInt
	TokenFloatType
	TokenChar
	TokenBool
)

var tokenNames = map[TokenType]string{
	TokenEOF:        "EOF",
	TokenError:      "ERROR",
	TokenInteger:    "INTEGER",
	TokenFloat:      "FLOAT",
	TokenCharacter:  "CHARACTER",
	TokenIdentifier: "IDENTIFIER",
	TokenUnderscore: "_",
	TokenPlus:       "+",
	TokenMinus:      "-",
	TokenStar:       "*",
	TokenSlash:      "/",
	TokenBang:       "!",
	TokenAmp:        "&",
	TokenBar:        "|",
	TokenEq:         "==",
	TokenNotEq:      "!=",
	TokenLess:       "<",
	TokenLessEq:     "<=",
	TokenGreater:    ">",
	TokenGreaterEq:  ">=",
	TokenColon:      ":",
	TokenConcat:     "++",
	TokenAssign:     "=",
	TokenLParen:     "(",
	TokenRParen:     ")",
	TokenLBracket:   "[",
	TokenRBracket:   "]",
	TokenLBrace:     "{",
	TokenRBrace:     "}",
	TokenComma:      ",",
	TokenLet:        "let",
	TokenMain:       "main",
	TokenDo:         "do",
	TokenLambda:     "lambda",
	TokenIf:         "if",
	TokenThen:       "then",
	TokenElse:       "else",
	TokenFor:        "for",
	TokenPrint:      "print",
	TokenRead:       "read",
	TokenTrue:       "true",
	TokenFalse:      "false",
	TokenInt:        "int",
	TokenFloatType:  "float",
	TokenChar:       "char",
	TokenBool:       "bool",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// Position is a location in source text.
type Position struct {
	Offset int // byte offset (0-based)
	Line   int // 1-based
	Column int // 1-based
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token represents a lexical token.
type Token struct {
	Type    TokenType
	Literal string   // the raw text
	Pos     Position // start position
}

func (t Token) String() string {
	if t.Type == TokenEOF {
		return "EOF"
	}
	if t.Type == TokenError {
		return fmt.Sprintf("ERROR(%s)", t.Literal)
	}
	if len(t.Literal) > 20 {
		return fmt.Sprintf("%s(%q...)", t.Type, t.Literal[:20])
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
}

// Reserved words mapped to their token types.
var reservedWords = map[string]TokenType{
	"let":    TokenLet,
	"main":   TokenMain,
	"do":     TokenDo,
	"lambda": TokenLambda,
	"if":     TokenIf,
	"then":   TokenThen,
	"else":   TokenElse,
	"for":    TokenFor,
	"print":  TokenPrint,
	"read":   TokenRead,
	"true":   TokenTrue,
	"false":  TokenFalse,
	"int":    TokenInt,
	"float":  TokenFloatType,
	"char":   TokenChar,
	"bool":   TokenBool,
}
