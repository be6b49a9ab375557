package compiler

import (
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/colang/co/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Parser: recursive descent over co syntax, driving the code generator
// ---------------------------------------------------------------------------

// Parser reads tokens and calls into a CodeGenerator as each construct is
// recognized. There is no intermediate tree: quadruples are emitted in a
// single pass. Parsing stops at the first error.
type Parser struct {
	lexer     *Lexer
	gen       *CodeGenerator
	curToken  Token
	peekToken Token
}

// NewParser creates a parser for input that emits into gen.
func NewParser(input string, gen *CodeGenerator) *Parser {
	p := &Parser{
		lexer: NewLexer(input),
		gen:   gen,
	}
	// Read two tokens to fill curToken and peekToken
	p.nextToken()
	p.nextToken()
	return p
}

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.lexer.NextToken()
}

// curTokenIs checks if the current token is of the given type.
func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}

// peekTokenIs checks if the peek token is of the given type.
func (p *Parser) peekTokenIs(t TokenType) bool {
	return p.peekToken.Type == t
}

// expect advances if the current token matches, otherwise fails.
func (p *Parser) expect(t TokenType) error {
	if p.curTokenIs(t) {
		p.nextToken()
		return nil
	}
	return p.unexpected(t.String())
}

// unexpected reports a syntax error at the current token.
func (p *Parser) unexpected(want string) error {
	if p.curTokenIs(TokenError) {
		return newError(ErrSyntax, p.curToken.Pos, "%s", p.curToken.Literal)
	}
	got := p.curToken.Literal
	if p.curTokenIs(TokenEOF) {
		got = "end of input"
	}
	return newError(ErrSyntax, p.curToken.Pos, "expected %s, got %q", want, got)
}

// at records the current token position for generator errors.
func (p *Parser) at() {
	p.gen.SetPos(p.curToken.Pos)
}

// ---------------------------------------------------------------------------
// Program structure
// ---------------------------------------------------------------------------

// ParseProgram parses
//
//	Program = { Definition } "main" "=" "do" { Statement } .
func (p *Parser) ParseProgram() error {
	for p.curTokenIs(TokenLet) {
		if err := p.parseDefinition(); err != nil {
			return err
		}
	}

	if err := p.expect(TokenMain); err != nil {
		return err
	}
	if err := p.expect(TokenAssign); err != nil {
		return err
	}
	if err := p.expect(TokenDo); err != nil {
		return err
	}

	p.gen.BeginMain()
	for !p.curTokenIs(TokenEOF) {
		if err := p.parseStatement(); err != nil {
			return err
		}
	}
	p.gen.Mark(p.curToken.Pos)
	p.gen.EndMain()
	return nil
}

// parseDefinition parses a top-level let: either a constant or a
// pattern-matched function.
func (p *Parser) parseDefinition() error {
	nameTok, err := p.parseLetName()
	if err != nil {
		return err
	}
	if p.curTokenIs(TokenLParen) {
		return p.parseFunctionDefinition(nameTok)
	}
	return p.parseConstant(nameTok)
}

// parseLetName consumes "let" ID and returns the identifier token.
func (p *Parser) parseLetName() (Token, error) {
	if err := p.expect(TokenLet); err != nil {
		return Token{}, err
	}
	if !p.curTokenIs(TokenIdentifier) {
		return Token{}, p.unexpected("identifier")
	}
	nameTok := p.curToken
	p.nextToken()
	return nameTok, nil
}

// parseStatement parses
//
//	Statement = Let | "print" "(" Expr ")" .
func (p *Parser) parseStatement() error {
	switch p.curToken.Type {
	case TokenLet:
		nameTok, err := p.parseLetName()
		if err != nil {
			return err
		}
		return p.parseConstant(nameTok)
	case TokenPrint:
		p.at()
		p.nextToken()
		if err := p.expect(TokenLParen); err != nil {
			return err
		}
		if err := p.parseGroup(p.parseExpr); err != nil {
			return err
		}
		if err := p.expect(TokenRParen); err != nil {
			return err
		}
		return p.gen.GeneratePrint()
	}
	return p.unexpected("let or print")
}

// parseConstant parses the rest of
//
//	Let = "let" ID ":" Type "=" ( Expr | "read" "(" ")" ) .
func (p *Parser) parseConstant(nameTok Token) error {
	if err := p.expect(TokenColon); err != nil {
		return err
	}
	typ, err := p.parseType()
	if err != nil {
		return err
	}
	if err := p.expect(TokenAssign); err != nil {
		return err
	}

	p.gen.SetPos(nameTok.Pos)
	if err := p.gen.NewSymbol(nameTok.Literal, typ); err != nil {
		return err
	}

	if p.curTokenIs(TokenRead) {
		p.nextToken()
		if err := p.expect(TokenLParen); err != nil {
			return err
		}
		if err := p.expect(TokenRParen); err != nil {
			return err
		}
		p.gen.SetPos(nameTok.Pos)
		return p.gen.GenerateRead(nameTok.Literal)
	}

	if err := p.parseGroup(p.parseExpr); err != nil {
		return err
	}
	p.gen.SetPos(nameTok.Pos)
	return p.gen.GenerateAssign(nameTok.Literal)
}

// parseFunctionDefinition parses
//
//	"let" ID "(" [ Type { "," Type } ] ")" ":" Type "=" "{" Case { Case } "}" .
//	Case = "for" [ Pattern { "," Pattern } ] "=" Expr .
func (p *Parser) parseFunctionDefinition(nameTok Token) error {
	params, err := p.parseTypeList(TokenRParen)
	if err != nil {
		return err
	}
	if err := p.expect(TokenColon); err != nil {
		return err
	}
	ret, err := p.parseType()
	if err != nil {
		return err
	}
	if err := p.expect(TokenAssign); err != nil {
		return err
	}
	if err := p.expect(TokenLBrace); err != nil {
		return err
	}

	p.gen.SetPos(nameTok.Pos)
	if err := p.gen.NewSymbol(nameTok.Literal, bytecode.FuncOf(params, ret)); err != nil {
		return err
	}
	if err := p.gen.GenerateCaseFuncStart(params, ret); err != nil {
		return err
	}

	if !p.curTokenIs(TokenFor) {
		return p.unexpected("for")
	}
	for p.curTokenIs(TokenFor) {
		if err := p.parseCase(len(params)); err != nil {
			return err
		}
	}
	if err := p.expect(TokenRBrace); err != nil {
		return err
	}

	p.at()
	p.gen.Mark(p.curToken.Pos)
	if err := p.gen.GenerateCaseFuncEnd(); err != nil {
		return err
	}
	p.gen.SetPos(nameTok.Pos)
	return p.gen.GenerateAssign(nameTok.Literal)
}

func (p *Parser) parseCase(arity int) error {
	caseTok := p.curToken
	p.nextToken() // for
	p.at()
	if err := p.gen.GenerateCaseStart(); err != nil {
		return err
	}

	n := 0
	for !p.curTokenIs(TokenAssign) {
		if n > 0 {
			if err := p.expect(TokenComma); err != nil {
				return err
			}
		}
		if err := p.parsePattern(n); err != nil {
			return err
		}
		n++
	}
	if n != arity {
		return newError(ErrArity, caseTok.Pos, "case has %d patterns, function takes %d", n, arity)
	}
	p.nextToken() // =

	if err := p.parseGroup(p.parseExpr); err != nil {
		return err
	}
	p.gen.SetPos(caseTok.Pos)
	p.gen.Mark(p.curToken.Pos)
	return p.gen.GenerateCaseEnd()
}

// parsePattern parses
//
//	Pattern = ["-"] INT | ["-"] FLOAT | CHAR | "true" | "false" | "[" "]"
//	        | Name [ ":" Name ] .
//	Name    = ID | "_" .
func (p *Parser) parsePattern(i int) error {
	p.at()
	switch p.curToken.Type {
	case TokenUnderscore, TokenIdentifier:
		head := p.curToken
		p.nextToken()
		if !p.curTokenIs(TokenColon) {
			if head.Type == TokenUnderscore {
				return p.gen.BindWildcard(i)
			}
			return p.gen.BindName(i, head.Literal)
		}
		p.nextToken()
		if !p.curTokenIs(TokenIdentifier) && !p.curTokenIs(TokenUnderscore) {
			return p.unexpected("identifier")
		}
		tail := p.curToken.Literal
		p.nextToken()
		return p.gen.BindCons(i, head.Literal, tail)

	case TokenLBracket:
		p.nextToken()
		if err := p.expect(TokenRBracket); err != nil {
			return err
		}
		return p.gen.BindEmptyList(i)

	case TokenMinus, TokenInteger, TokenFloat, TokenCharacter, TokenTrue, TokenFalse:
		if err := p.parseLiteral(); err != nil {
			return err
		}
		return p.gen.BindLiteral(i)
	}
	return p.unexpected("pattern")
}

// parseLiteral pushes a literal, accepting a leading minus on numbers.
func (p *Parser) parseLiteral() error {
	negative := false
	if p.curTokenIs(TokenMinus) {
		negative = true
		p.nextToken()
		if !p.curTokenIs(TokenInteger) && !p.curTokenIs(TokenFloat) {
			return p.unexpected("number")
		}
	}

	tok := p.curToken
	p.gen.SetPos(tok.Pos)
	switch tok.Type {
	case TokenInteger:
		v, err := strconv.ParseInt(tok.Literal, 10, 64)
		if err != nil {
			return newError(ErrSyntax, tok.Pos, "invalid integer %s", tok.Literal)
		}
		if negative {
			v = -v
		}
		p.nextToken()
		return p.gen.PushInt(v)

	case TokenFloat:
		v, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			return newError(ErrSyntax, tok.Pos, "invalid float %s", tok.Literal)
		}
		if negative {
			v = -v
		}
		p.nextToken()
		return p.gen.PushFloat(v)

	case TokenCharacter:
		r, _ := utf8.DecodeRuneInString(tok.Literal)
		p.nextToken()
		return p.gen.PushChar(r)

	case TokenTrue, TokenFalse:
		p.nextToken()
		return p.gen.PushBool(tok.Type == TokenTrue)
	}
	return p.unexpected("literal")
}

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// parseType parses
//
//	Type = "int" | "float" | "char" | "bool" | GENERIC | "[" Type "]"
//	     | "(" [ Type { "," Type } ] ")" ":" Type .
func (p *Parser) parseType() (bytecode.DataType, error) {
	tok := p.curToken
	switch tok.Type {
	case TokenInt:
		p.nextToken()
		return bytecode.Int, nil
	case TokenFloatType:
		p.nextToken()
		return bytecode.Float, nil
	case TokenChar:
		p.nextToken()
		return bytecode.Char, nil
	case TokenBool:
		p.nextToken()
		return bytecode.Bool, nil

	case TokenIdentifier:
		r, size := utf8.DecodeRuneInString(tok.Literal)
		if size == len(tok.Literal) && unicode.IsUpper(r) {
			p.nextToken()
			return bytecode.GenericNamed(r), nil
		}

	case TokenLBracket:
		p.nextToken()
		elem, err := p.parseType()
		if err != nil {
			return bytecode.ErrorType, err
		}
		if err := p.expect(TokenRBracket); err != nil {
			return bytecode.ErrorType, err
		}
		return bytecode.ListOf(elem), nil

	case TokenLParen:
		params, err := p.parseTypeList(TokenRParen)
		if err != nil {
			return bytecode.ErrorType, err
		}
		if err := p.expect(TokenColon); err != nil {
			return bytecode.ErrorType, err
		}
		ret, err := p.parseType()
		if err != nil {
			return bytecode.ErrorType, err
		}
		return bytecode.FuncOf(params, ret), nil
	}
	return bytecode.ErrorType, p.unexpected("type")
}

// parseTypeList parses "(" [ Type { "," Type } ] ")".
func (p *Parser) parseTypeList(closing TokenType) ([]bytecode.DataType, error) {
	if err := p.expect(TokenLParen); err != nil {
		return nil, err
	}
	var types []bytecode.DataType
	for !p.curTokenIs(closing) {
		if len(types) > 0 {
			if err := p.expect(TokenComma); err != nil {
				return nil, err
			}
		}
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	p.nextToken()
	return types, nil
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// parseGroup parses a nested expression behind a placeholder so that the
// operators pending outside it are not applied inside.
func (p *Parser) parseGroup(parse func() error) error {
	p.at()
	p.gen.OpenGroup()
	if err := parse(); err != nil {
		return err
	}
	return p.gen.CloseGroup()
}

// parseExpr parses
//
//	Expr = Lambda | SimpleExp .
func (p *Parser) parseExpr() error {
	if p.curTokenIs(TokenLambda) {
		return p.parseLambda()
	}
	return p.parseSimpleExp()
}

// parseLambda parses
//
//	"lambda" "(" [ ID ":" Type { "," ID ":" Type } ] ")" ":" Type "{" Expr "}" .
func (p *Parser) parseLambda() error {
	lambdaTok := p.curToken
	p.nextToken()
	if err := p.expect(TokenLParen); err != nil {
		return err
	}
	var params []Param
	for !p.curTokenIs(TokenRParen) {
		if len(params) > 0 {
			if err := p.expect(TokenComma); err != nil {
				return err
			}
		}
		if !p.curTokenIs(TokenIdentifier) {
			return p.unexpected("parameter name")
		}
		nameTok := p.curToken
		p.nextToken()
		if err := p.expect(TokenColon); err != nil {
			return err
		}
		t, err := p.parseType()
		if err != nil {
			return err
		}
		params = append(params, Param{Name: nameTok.Literal, Type: t, Pos: nameTok.Pos})
	}
	p.nextToken()
	if err := p.expect(TokenColon); err != nil {
		return err
	}
	ret, err := p.parseType()
	if err != nil {
		return err
	}
	if !p.curTokenIs(TokenLBrace) {
		return p.unexpected("{")
	}

	p.gen.SetPos(lambdaTok.Pos)
	if err := p.gen.GenerateFuncStart(params, ret); err != nil {
		return err
	}
	p.nextToken()
	if err := p.parseGroup(p.parseExpr); err != nil {
		return err
	}
	if err := p.expect(TokenRBrace); err != nil {
		return err
	}
	p.gen.SetPos(lambdaTok.Pos)
	p.gen.Mark(p.curToken.Pos)
	return p.gen.GenerateFuncEnd()
}

// parseSimpleExp parses
//
//	SimpleExp = "if" Exp "then" SimpleExp "else" SimpleExp | Exp .
func (p *Parser) parseSimpleExp() error {
	if !p.curTokenIs(TokenIf) {
		return p.parseExp()
	}
	ifTok := p.curToken
	p.nextToken()
	if err := p.parseGroup(p.parseExp); err != nil {
		return err
	}
	p.gen.SetPos(ifTok.Pos)
	if err := p.gen.GenerateIfStart(); err != nil {
		return err
	}
	if err := p.expect(TokenThen); err != nil {
		return err
	}
	if err := p.parseGroup(p.parseSimpleExp); err != nil {
		return err
	}
	if err := p.gen.GenerateElseStart(); err != nil {
		return err
	}
	if err := p.expect(TokenElse); err != nil {
		return err
	}
	if err := p.parseGroup(p.parseSimpleExp); err != nil {
		return err
	}
	p.gen.SetPos(ifTok.Pos)
	return p.gen.GenerateIfEnd()
}

// binaryLevels lists the left-associative levels from loosest to tightest.
var binaryLevels = []struct {
	prec   int
	tokens []TokenType
}{
	{precOr, []TokenType{TokenBar}},
	{precAnd, []TokenType{TokenAmp}},
	{precRelational, []TokenType{TokenEq, TokenNotEq, TokenLess, TokenLessEq, TokenGreater, TokenGreaterEq}},
	{precAdd, []TokenType{TokenPlus, TokenMinus}},
	{precMultiply, []TokenType{TokenStar, TokenSlash}},
}

// parseExp parses the binary operator levels
//
//	Exp     = AndExp { "|" AndExp } .
//	AndExp  = RelExp { "&" RelExp } .
//	RelExp  = MathExp { RELOP MathExp } .
//	MathExp = Term { ("+" | "-") Term } .
//	Term    = ListExp { ("*" | "/") ListExp } .
func (p *Parser) parseExp() error {
	return p.parseLevel(0)
}

func (p *Parser) parseLevel(level int) error {
	if level == len(binaryLevels) {
		return p.parseListExp()
	}
	if err := p.parseLevel(level + 1); err != nil {
		return err
	}
	lv := binaryLevels[level]
	for p.curIsOneOf(lv.tokens) {
		p.gen.PushOperator(binaryOperators[p.curToken.Type], p.curToken.Pos)
		p.nextToken()
		if err := p.parseLevel(level + 1); err != nil {
			return err
		}
		if err := p.gen.GenerateBinary(lv.prec); err != nil {
			return err
		}
	}
	return nil
}

func (p *Parser) curIsOneOf(types []TokenType) bool {
	for _, t := range types {
		if p.curTokenIs(t) {
			return true
		}
	}
	return false
}

// parseListExp parses the right-associative list level
//
//	ListExp = Factor { (":" | "++") Factor } .
func (p *Parser) parseListExp() error {
	if err := p.parseFactor(); err != nil {
		return err
	}
	for p.curTokenIs(TokenColon) || p.curTokenIs(TokenConcat) {
		p.gen.PushOperator(binaryOperators[p.curToken.Type], p.curToken.Pos)
		p.nextToken()
		if err := p.parseFactor(); err != nil {
			return err
		}
	}
	return p.gen.GenerateBinary(precList)
}

// parseFactor parses
//
//	Factor = [ "+" | "-" | "!" ] Primary .
func (p *Parser) parseFactor() error {
	if op, ok := unaryOperators[p.curToken.Type]; ok {
		opTok := p.curToken
		p.nextToken()
		if err := p.parseFactor(); err != nil {
			return err
		}
		return p.gen.GenerateUnary(op, opTok.Pos)
	}
	return p.parsePrimary()
}

// parsePrimary parses
//
//	Primary = INT | FLOAT | CHAR | "true" | "false" | ID [ "(" [ Args ] ")" ]
//	        | "[" [ Expr { "," Expr } ] "]" | "(" SimpleExp ")" .
func (p *Parser) parsePrimary() error {
	switch p.curToken.Type {
	case TokenInteger, TokenFloat, TokenCharacter, TokenTrue, TokenFalse:
		return p.parseLiteral()

	case TokenIdentifier:
		nameTok := p.curToken
		p.gen.SetPos(nameTok.Pos)
		if err := p.gen.PushName(nameTok.Literal); err != nil {
			return err
		}
		p.nextToken()
		if p.curTokenIs(TokenLParen) {
			return p.parseCall(nameTok)
		}
		return nil

	case TokenLBracket:
		open := p.curToken
		p.nextToken()
		n := 0
		for !p.curTokenIs(TokenRBracket) {
			if n > 0 {
				if err := p.expect(TokenComma); err != nil {
					return err
				}
			}
			if err := p.parseGroup(p.parseExpr); err != nil {
				return err
			}
			n++
		}
		p.nextToken()
		return p.gen.GenerateListLiteral(n, open.Pos)

	case TokenLParen:
		p.nextToken()
		if err := p.parseGroup(p.parseSimpleExp); err != nil {
			return err
		}
		return p.expect(TokenRParen)
	}
	return p.unexpected("expression")
}

// parseCall parses the argument list of a call whose callee is already on
// the operand stack.
func (p *Parser) parseCall(nameTok Token) error {
	p.gen.SetPos(nameTok.Pos)
	if err := p.gen.GenerateCallStart(); err != nil {
		return err
	}
	p.nextToken() // (
	n := 0
	for !p.curTokenIs(TokenRParen) {
		if n > 0 {
			if err := p.expect(TokenComma); err != nil {
				return err
			}
		}
		if err := p.parseGroup(p.parseExpr); err != nil {
			return err
		}
		p.gen.SetPos(nameTok.Pos)
		if err := p.gen.GenerateArgument(); err != nil {
			return err
		}
		n++
	}
	p.nextToken()
	p.gen.SetPos(nameTok.Pos)
	return p.gen.GenerateCallEnd()
}
