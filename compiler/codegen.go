package compiler

import (
	"github.com/tliron/commonlog"

	"github.com/colang/co/pkg/bytecode"
)

var log = commonlog.GetLogger("co.compiler")

// ---------------------------------------------------------------------------
// Code generator: lowers parser callbacks into quadruples
// ---------------------------------------------------------------------------

// Param is a declared function parameter. Pattern-matched functions use
// unnamed params.
type Param struct {
	Name string
	Type bytecode.DataType
	Pos  Position
}

// SymbolInfo describes a declaration, for tooling such as hover.
type SymbolInfo struct {
	Name    string
	Type    bytecode.DataType
	Kind    SymbolKind
	Address int
	Pos     Position
	End     Position // where the declaring scope closes; zero if it never does
	Global  bool
}

type operand struct {
	addr int
	typ  bytecode.DataType
}

type pendingOp struct {
	op  operator
	pos Position
}

// ifState tracks the unified result of an if/else expression.
type ifState struct {
	result int
	typ    bytecode.DataType
}

type callState struct {
	fn   int
	typ  bytecode.DataType
	argc int
}

// funcState tracks a function body being generated.
type funcState struct {
	literal int
	typ     bytecode.DataType
	skip    int // goTo over the body
	entry   int
	params  []int
	outer   ScopeID

	// pattern-matched functions
	result   int
	guards   []int
	endJumps []int
}

// CodeGenerator holds all compilation state. The parser drives it through
// the Push*/Generate* callbacks; every callback returns the first semantic
// error it finds as a *CompileError.
type CodeGenerator struct {
	queue    *bytecode.InstructionQueue
	symbols  *SymbolTable
	scope    ScopeID
	globals  *AddressAllocator
	literals *AddressAllocator
	locals   []*AddressAllocator // one per open frame
	temps    []*AddressAllocator // one per open frame

	operands  []operand
	operators []pendingOp
	jumps     []int
	ifs       []ifState
	calls     []callState
	funcs     []*funcState

	intLits   map[int64]int
	floatLits map[float64]int
	charLits  map[rune]int
	boolLits  map[bool]int
	emptyList int

	program    *bytecode.Program
	declared   []SymbolInfo
	scopeDecls map[ScopeID][]int // indexes into declared
	pos        Position
	mark       Position
}

// NewCodeGenerator creates a generator positioned in the global scope.
func NewCodeGenerator() *CodeGenerator {
	return &CodeGenerator{
		queue:      bytecode.NewInstructionQueue(),
		symbols:    NewSymbolTable(),
		scope:      GlobalScope,
		globals:    NewAllocator(bytecode.SegmentGlobal),
		literals:   NewAllocator(bytecode.SegmentLiteral),
		locals:     []*AddressAllocator{NewAllocator(bytecode.SegmentLocal)},
		temps:      []*AddressAllocator{NewTempAllocator()},
		intLits:    make(map[int64]int),
		floatLits:  make(map[float64]int),
		charLits:   make(map[rune]int),
		boolLits:   make(map[bool]int),
		emptyList:  bytecode.NoAddress,
		program:    bytecode.NewProgram(),
		scopeDecls: make(map[ScopeID][]int),
	}
}

// SetPos records the source position subsequent errors are reported at.
func (g *CodeGenerator) SetPos(pos Position) {
	g.pos = pos
}

// Mark records the position just past the construct being closed. Scopes
// closed after the call end there.
func (g *CodeGenerator) Mark(pos Position) {
	g.mark = pos
}

// endScopes closes every scope from the current one up to, not including,
// outer.
func (g *CodeGenerator) endScopes(outer ScopeID) {
	for s := g.scope; s != outer; {
		for _, i := range g.scopeDecls[s] {
			g.declared[i].End = g.mark
		}
		delete(g.scopeDecls, s)
		parent, ok := g.symbols.Parent(s)
		if !ok {
			return
		}
		s = parent
	}
}

// Symbols returns every declaration seen so far, in source order.
func (g *CodeGenerator) Symbols() []SymbolInfo {
	return g.declared
}

// Queue exposes the instruction queue, mainly for tests.
func (g *CodeGenerator) Queue() *bytecode.InstructionQueue {
	return g.queue
}

func (g *CodeGenerator) errorf(kind error, format string, args ...interface{}) *CompileError {
	return newError(kind, g.pos, format, args...)
}

func (g *CodeGenerator) emit(op bytecode.Opcode, first, second, result int) int {
	idx := g.queue.Emit(op, first, second, result)
	log.Debugf("%04d  %s", idx, g.queue.At(idx))
	return idx
}

func (g *CodeGenerator) patch(idx int) error {
	if err := g.queue.FillResult(idx, g.queue.Len()); err != nil {
		return g.errorf(ErrInternal, "%v", err)
	}
	return nil
}

// --- operand stack ---

func (g *CodeGenerator) push(addr int, t bytecode.DataType) {
	g.operands = append(g.operands, operand{addr: addr, typ: t})
}

func (g *CodeGenerator) pop() (operand, error) {
	if len(g.operands) == 0 {
		return operand{}, g.errorf(ErrInternal, "operand stack underflow")
	}
	o := g.operands[len(g.operands)-1]
	g.operands = g.operands[:len(g.operands)-1]
	return o, nil
}

// --- frames and allocation ---

func (g *CodeGenerator) currentLocals() *AddressAllocator {
	return g.locals[len(g.locals)-1]
}

func (g *CodeGenerator) currentTemps() *AddressAllocator {
	return g.temps[len(g.temps)-1]
}

func (g *CodeGenerator) newTemp(t bytecode.DataType) (int, error) {
	addr, err := g.currentTemps().Next(t)
	if err != nil {
		return bytecode.NoAddress, g.errorf(ErrInternal, "%v", err)
	}
	return addr, nil
}

func (g *CodeGenerator) newLocal(t bytecode.DataType) (int, error) {
	addr, err := g.currentLocals().Next(t)
	if err != nil {
		return bytecode.NoAddress, g.errorf(ErrInternal, "%v", err)
	}
	return addr, nil
}

// recycle frees addr if it is a temporary of the current frame.
func (g *CodeGenerator) recycle(addr int) {
	g.currentTemps().Recycle(addr)
}

func (g *CodeGenerator) pushFrame() {
	g.scope = g.symbols.NewScope(g.scope, true)
	g.locals = append(g.locals, NewAllocator(bytecode.SegmentLocal))
	g.temps = append(g.temps, NewTempAllocator())
}

func (g *CodeGenerator) popFrame() {
	g.locals = g.locals[:len(g.locals)-1]
	g.temps = g.temps[:len(g.temps)-1]
	outer, _ := g.symbols.Parent(g.symbols.Frame(g.scope))
	g.endScopes(outer)
	g.scope = outer
}

// PushScope opens a block scope inside the current frame.
func (g *CodeGenerator) PushScope() {
	g.scope = g.symbols.NewScope(g.scope, false)
}

// PopScope closes the innermost scope.
func (g *CodeGenerator) PopScope() error {
	parent, ok := g.symbols.Parent(g.scope)
	if !ok {
		return g.errorf(ErrInternal, "cannot pop the global scope")
	}
	g.endScopes(parent)
	g.scope = parent
	return nil
}

// BeginMain opens the frame of the main block.
func (g *CodeGenerator) BeginMain() {
	g.pushFrame()
}

// EndMain closes the frame of the main block.
func (g *CodeGenerator) EndMain() {
	g.popFrame()
}

// --- declarations ---

func kindOf(t bytecode.DataType) SymbolKind {
	if t.Kind == bytecode.KindFunc {
		return SymbolFunc
	}
	return SymbolConst
}

func (g *CodeGenerator) declare(name string, t bytecode.DataType, addr int, assigned bool) (*Entry, error) {
	e := &Entry{
		Name:     name,
		Type:     t,
		Kind:     kindOf(t),
		Address:  addr,
		Assigned: assigned,
		Pos:      g.pos,
	}
	if err := g.symbols.Insert(g.scope, e); err != nil {
		return nil, g.errorf(ErrRedeclared, "%v", err)
	}
	if g.scope != GlobalScope {
		g.scopeDecls[g.scope] = append(g.scopeDecls[g.scope], len(g.declared))
	}
	g.declared = append(g.declared, SymbolInfo{
		Name:    name,
		Type:    t,
		Kind:    e.Kind,
		Address: addr,
		Pos:     g.pos,
		Global:  g.scope == GlobalScope,
	})
	return e, nil
}

// NewSymbol declares name with type t in the current scope. The symbol is
// unassigned until GenerateAssign or GenerateRead stores into it.
func (g *CodeGenerator) NewSymbol(name string, t bytecode.DataType) error {
	if t.HasGeneric() {
		return g.errorf(ErrGenericUnsupported, "%q has type %s", name, t)
	}
	alloc := g.currentLocals()
	if g.scope == GlobalScope {
		alloc = g.globals
	}
	addr, err := alloc.Next(t)
	if err != nil {
		return g.errorf(ErrInternal, "%v", err)
	}
	_, err = g.declare(name, t, addr, false)
	return err
}

// lookupDeclared finds a symbol declared in the current scope.
func (g *CodeGenerator) lookupDeclared(name string) (*Entry, error) {
	e, ok := g.symbols.LookupLocal(g.scope, name)
	if !ok {
		return nil, g.errorf(ErrInternal, "%q was not declared before assignment", name)
	}
	return e, nil
}

// --- operands ---

// PushName pushes the address of a visible, assigned symbol. Globals of
// function type may be referenced before assignment so that functions can
// call themselves.
func (g *CodeGenerator) PushName(name string) error {
	e, found, ok := g.symbols.Lookup(g.scope, name)
	if !ok {
		return g.errorf(ErrUndeclared, "%q is not declared", name)
	}
	global := found == GlobalScope
	if !global && g.symbols.Frame(found) != g.symbols.Frame(g.scope) {
		return g.errorf(ErrUndeclared, "%q cannot be captured before it is assigned", name)
	}
	if !e.Assigned && !(global && e.Kind == SymbolFunc) {
		return g.errorf(ErrUndeclared, "%q is used before it is assigned", name)
	}
	g.push(e.Address, e.Type)
	return nil
}

func (g *CodeGenerator) literal(t bytecode.DataType) (int, error) {
	addr, err := g.literals.Next(t)
	if err != nil {
		return bytecode.NoAddress, g.errorf(ErrInternal, "%v", err)
	}
	return addr, nil
}

// PushInt pushes an int literal. Equal literals share one address.
func (g *CodeGenerator) PushInt(v int64) error {
	addr, ok := g.intLits[v]
	if !ok {
		var err error
		if addr, err = g.literal(bytecode.Int); err != nil {
			return err
		}
		g.intLits[v] = addr
		g.program.IntLiterals[addr] = v
	}
	g.push(addr, bytecode.Int)
	return nil
}

// PushFloat pushes a float literal.
func (g *CodeGenerator) PushFloat(v float64) error {
	addr, ok := g.floatLits[v]
	if !ok {
		var err error
		if addr, err = g.literal(bytecode.Float); err != nil {
			return err
		}
		g.floatLits[v] = addr
		g.program.FloatLiterals[addr] = v
	}
	g.push(addr, bytecode.Float)
	return nil
}

// PushChar pushes a char literal.
func (g *CodeGenerator) PushChar(v rune) error {
	addr, ok := g.charLits[v]
	if !ok {
		var err error
		if addr, err = g.literal(bytecode.Char); err != nil {
			return err
		}
		g.charLits[v] = addr
		g.program.CharLiterals[addr] = v
	}
	g.push(addr, bytecode.Char)
	return nil
}

// PushBool pushes a bool literal.
func (g *CodeGenerator) PushBool(v bool) error {
	addr, ok := g.boolLits[v]
	if !ok {
		var err error
		if addr, err = g.literal(bytecode.Bool); err != nil {
			return err
		}
		g.boolLits[v] = addr
		g.program.BoolLiterals[addr] = v
	}
	g.push(addr, bytecode.Bool)
	return nil
}

// PushEmptyList pushes the shared "[]" literal.
func (g *CodeGenerator) PushEmptyList() error {
	if g.emptyList == bytecode.NoAddress {
		addr, err := g.literal(bytecode.ListOf(bytecode.None))
		if err != nil {
			return err
		}
		g.emptyList = addr
		g.program.ListLiterals[addr] = bytecode.EmptyList()
	}
	g.push(g.emptyList, bytecode.ListOf(bytecode.None))
	return nil
}

// --- operators ---

// PushOperator pushes a pending binary operator, or the placeholder that
// opens a nested expression.
func (g *CodeGenerator) PushOperator(op operator, pos Position) {
	g.operators = append(g.operators, pendingOp{op: op, pos: pos})
}

// OpenGroup pushes the placeholder false bottom.
func (g *CodeGenerator) OpenGroup() {
	g.PushOperator(opPlaceholder, g.pos)
}

// CloseGroup pops the placeholder pushed by OpenGroup.
func (g *CodeGenerator) CloseGroup() error {
	return g.PopOperator()
}

// PopOperator removes the placeholder on top of the operator stack.
func (g *CodeGenerator) PopOperator() error {
	n := len(g.operators)
	if n == 0 || g.operators[n-1].op != opPlaceholder {
		return g.errorf(ErrInternal, "unbalanced operator stack")
	}
	g.operators = g.operators[:n-1]
	return nil
}

// GenerateBinary emits every pending operator of precedence prec on top of
// the operator stack. Called after each operand for left-associative levels
// and once after the last operand for right-associative ones.
func (g *CodeGenerator) GenerateBinary(prec int) error {
	for n := len(g.operators); n > 0 && g.operators[n-1].op.precedence() == prec; n = len(g.operators) {
		p := g.operators[n-1]
		g.operators = g.operators[:n-1]
		if err := g.emitBinary(p); err != nil {
			return err
		}
	}
	return nil
}

func (g *CodeGenerator) emitBinary(p pendingOp) error {
	right, err := g.pop()
	if err != nil {
		return err
	}
	left, err := g.pop()
	if err != nil {
		return err
	}
	rt := binaryResultType(p.op, left.typ, right.typ)
	if rt.IsError() {
		return newError(ErrTypeMismatch, p.pos, "operator %s is not defined for %s and %s", p.op, left.typ, right.typ)
	}
	t, err := g.newTemp(rt)
	if err != nil {
		return err
	}
	g.emit(p.op.opcode(), left.addr, right.addr, t)
	g.recycle(right.addr)
	g.recycle(left.addr)
	g.push(t, rt)
	return nil
}

// GenerateUnary applies a prefix operator to the operand on top of the stack.
func (g *CodeGenerator) GenerateUnary(op operator, pos Position) error {
	a, err := g.pop()
	if err != nil {
		return err
	}
	rt := unaryResultType(op, a.typ)
	if rt.IsError() {
		return newError(ErrTypeMismatch, pos, "unary %s is not defined for %s", op, a.typ)
	}
	t, err := g.newTemp(rt)
	if err != nil {
		return err
	}
	g.emit(op.opcode(), a.addr, bytecode.NoAddress, t)
	g.recycle(a.addr)
	g.push(t, rt)
	return nil
}

// GenerateListLiteral folds the top n operands into a list by consing them
// onto "[]" from the right.
func (g *CodeGenerator) GenerateListLiteral(n int, pos Position) error {
	if err := g.PushEmptyList(); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := g.emitBinary(pendingOp{op: opCons, pos: pos}); err != nil {
			return err
		}
	}
	return nil
}

// --- statements ---

// GenerateAssign stores the operand on top of the stack into the symbol
// name declared in the current scope.
func (g *CodeGenerator) GenerateAssign(name string) error {
	e, err := g.lookupDeclared(name)
	if err != nil {
		return err
	}
	v, err := g.pop()
	if err != nil {
		return err
	}
	if !assignable(e.Type, v.typ) {
		return g.errorf(ErrTypeMismatch, "cannot assign %s to %q of type %s", v.typ, name, e.Type)
	}
	g.emit(bytecode.OpAssign, v.addr, bytecode.NoAddress, e.Address)
	g.recycle(v.addr)
	e.Assigned = true
	return nil
}

// GenerateRead reads one line of input into the symbol name.
func (g *CodeGenerator) GenerateRead(name string) error {
	e, err := g.lookupDeclared(name)
	if err != nil {
		return err
	}
	switch e.Type.Kind {
	case bytecode.KindInt, bytecode.KindFloat, bytecode.KindChar, bytecode.KindBool:
	default:
		return g.errorf(ErrTypeMismatch, "read cannot produce a value of type %s", e.Type)
	}
	g.emit(bytecode.OpRead, bytecode.NoAddress, bytecode.NoAddress, e.Address)
	e.Assigned = true
	return nil
}

// GeneratePrint prints the operand on top of the stack.
func (g *CodeGenerator) GeneratePrint() error {
	v, err := g.pop()
	if err != nil {
		return err
	}
	g.emit(bytecode.OpPrint, v.addr, bytecode.NoAddress, bytecode.NoAddress)
	g.recycle(v.addr)
	return nil
}

// --- conditionals ---

// GenerateIfStart consumes the condition and emits the jump to the else
// branch.
func (g *CodeGenerator) GenerateIfStart() error {
	cond, err := g.pop()
	if err != nil {
		return err
	}
	if cond.typ.Kind != bytecode.KindBool {
		return g.errorf(ErrTypeMismatch, "if condition has type %s, want bool", cond.typ)
	}
	g.jumps = append(g.jumps, g.emit(bytecode.OpGoToFalse, cond.addr, bytecode.NoAddress, bytecode.NoAddress))
	g.recycle(cond.addr)
	return nil
}

// GenerateElseStart moves the then value into a fresh result temporary,
// jumps over the else branch and patches the conditional jump.
func (g *CodeGenerator) GenerateElseStart() error {
	v, err := g.pop()
	if err != nil {
		return err
	}
	if len(g.jumps) == 0 {
		return g.errorf(ErrInternal, "else without if")
	}
	r, err := g.newTemp(v.typ)
	if err != nil {
		return err
	}
	g.emit(bytecode.OpAssign, v.addr, bytecode.NoAddress, r)
	g.recycle(v.addr)

	jf := g.jumps[len(g.jumps)-1]
	g.jumps[len(g.jumps)-1] = g.emit(bytecode.OpGoTo, bytecode.NoAddress, bytecode.NoAddress, bytecode.NoAddress)
	if err := g.patch(jf); err != nil {
		return err
	}
	g.ifs = append(g.ifs, ifState{result: r, typ: v.typ})
	return nil
}

// GenerateIfEnd moves the else value into the shared result and patches
// the jump over the else branch.
func (g *CodeGenerator) GenerateIfEnd() error {
	v, err := g.pop()
	if err != nil {
		return err
	}
	if len(g.ifs) == 0 || len(g.jumps) == 0 {
		return g.errorf(ErrInternal, "if end without else")
	}
	st := g.ifs[len(g.ifs)-1]
	g.ifs = g.ifs[:len(g.ifs)-1]

	t, ok := unify(st.typ, v.typ)
	if !ok {
		return g.errorf(ErrTypeMismatch, "if branches have types %s and %s", st.typ, v.typ)
	}
	g.emit(bytecode.OpAssign, v.addr, bytecode.NoAddress, st.result)
	g.recycle(v.addr)

	j := g.jumps[len(g.jumps)-1]
	g.jumps = g.jumps[:len(g.jumps)-1]
	if err := g.patch(j); err != nil {
		return err
	}
	g.push(st.result, t)
	return nil
}

// --- functions ---

// GenerateFuncStart opens a function body. It allocates the function
// literal, opens a new frame holding the parameters, copies every assigned
// symbol of the enclosing frame into the closure with importCon, and emits
// the jump over the body.
func (g *CodeGenerator) GenerateFuncStart(params []Param, ret bytecode.DataType) error {
	types := make([]bytecode.DataType, len(params))
	for i, p := range params {
		if p.Type.HasGeneric() {
			return g.errorf(ErrGenericUnsupported, "parameter %q has type %s", p.Name, p.Type)
		}
		types[i] = p.Type
	}
	if ret.HasGeneric() {
		return g.errorf(ErrGenericUnsupported, "return type %s", ret)
	}
	ft := bytecode.FuncOf(types, ret)
	lit, err := g.literal(ft)
	if err != nil {
		return err
	}

	outer := g.scope
	captures := g.symbols.FrameEntries(outer)
	g.pushFrame()

	fs := &funcState{literal: lit, typ: ft, outer: outer, result: bytecode.NoAddress}
	names := make(map[string]bool)
	for _, p := range params {
		addr, err := g.newLocal(p.Type)
		if err != nil {
			return err
		}
		fs.params = append(fs.params, addr)
		if p.Name == "" {
			continue
		}
		g.pos = p.Pos
		if _, err := g.declare(p.Name, p.Type, addr, true); err != nil {
			return err
		}
		names[p.Name] = true
	}

	for _, e := range captures {
		if !e.Assigned || names[e.Name] {
			continue
		}
		dst, err := g.newLocal(e.Type)
		if err != nil {
			return err
		}
		imported := &Entry{Name: e.Name, Type: e.Type, Kind: e.Kind, Address: dst, Assigned: true, Pos: e.Pos}
		if err := g.symbols.Insert(g.scope, imported); err != nil {
			return g.errorf(ErrInternal, "%v", err)
		}
		g.emit(bytecode.OpImportCon, lit, e.Address, dst)
	}

	fs.skip = g.emit(bytecode.OpGoTo, bytecode.NoAddress, bytecode.NoAddress, bytecode.NoAddress)
	fs.entry = g.queue.Len()
	g.funcs = append(g.funcs, fs)
	log.Debugf("function %s at %d, %d captures", ft, fs.entry, len(captures))
	return nil
}

func (g *CodeGenerator) currentFunc() (*funcState, error) {
	if len(g.funcs) == 0 {
		return nil, g.errorf(ErrInternal, "no function is open")
	}
	return g.funcs[len(g.funcs)-1], nil
}

// GenerateFuncEnd returns the body value, records the frame sizes in the
// function literal and pushes the literal as the value of the expression.
func (g *CodeGenerator) GenerateFuncEnd() error {
	fs, err := g.currentFunc()
	if err != nil {
		return err
	}
	body, err := g.pop()
	if err != nil {
		return err
	}
	if !assignable(fs.typ.ReturnType(), body.typ) {
		return g.errorf(ErrTypeMismatch, "function returns %s but its body has type %s", fs.typ.ReturnType(), body.typ)
	}
	g.emit(bytecode.OpReturn, body.addr, bytecode.NoAddress, bytecode.NoAddress)
	g.recycle(body.addr)
	return g.closeFunction(fs)
}

func (g *CodeGenerator) closeFunction(fs *funcState) error {
	if err := g.patch(fs.skip); err != nil {
		return err
	}
	g.program.FuncLiterals[fs.literal] = bytecode.FuncValue{
		Entry:          fs.entry,
		ParamCount:     len(fs.params),
		ParamAddresses: fs.params,
		TempCounts:     g.currentTemps().HighWater(),
		ConstCounts:    g.currentLocals().HighWater(),
	}
	g.locals = g.locals[:len(g.locals)-1]
	g.temps = g.temps[:len(g.temps)-1]
	g.endScopes(fs.outer)
	g.scope = fs.outer
	g.funcs = g.funcs[:len(g.funcs)-1]
	g.push(fs.literal, fs.typ)
	return nil
}

// GenerateCaseFuncStart opens a pattern-matched function with unnamed
// parameters of the given types.
func (g *CodeGenerator) GenerateCaseFuncStart(types []bytecode.DataType, ret bytecode.DataType) error {
	params := make([]Param, len(types))
	for i, t := range types {
		params[i] = Param{Type: t, Pos: g.pos}
	}
	if err := g.GenerateFuncStart(params, ret); err != nil {
		return err
	}
	fs, _ := g.currentFunc()
	r, err := g.newTemp(ret)
	if err != nil {
		return err
	}
	fs.result = r
	return nil
}

// GenerateCaseStart opens the scope of one "for" case.
func (g *CodeGenerator) GenerateCaseStart() error {
	fs, err := g.currentFunc()
	if err != nil {
		return err
	}
	fs.guards = nil
	g.PushScope()
	return nil
}

func (g *CodeGenerator) caseParam(i int) (*funcState, operand, error) {
	fs, err := g.currentFunc()
	if err != nil {
		return nil, operand{}, err
	}
	if i < 0 || i >= len(fs.params) {
		return nil, operand{}, g.errorf(ErrArity, "case has more patterns than the function has parameters (%d)", len(fs.params))
	}
	return fs, operand{addr: fs.params[i], typ: fs.typ.Params[i]}, nil
}

// guard emits "first op second -> t; goToFalse t" and records the jump so
// that a failed match falls through to the next case.
func (g *CodeGenerator) guard(fs *funcState, op bytecode.Opcode, first, second int) error {
	t, err := g.newTemp(bytecode.Bool)
	if err != nil {
		return err
	}
	g.emit(op, first, second, t)
	fs.guards = append(fs.guards, g.emit(bytecode.OpGoToFalse, t, bytecode.NoAddress, bytecode.NoAddress))
	g.recycle(t)
	return nil
}

// BindName binds name to parameter i.
func (g *CodeGenerator) BindName(i int, name string) error {
	_, p, err := g.caseParam(i)
	if err != nil {
		return err
	}
	_, err = g.declare(name, p.typ, p.addr, true)
	return err
}

// BindWildcard accepts any value for parameter i.
func (g *CodeGenerator) BindWildcard(i int) error {
	_, _, err := g.caseParam(i)
	return err
}

// BindLiteral matches parameter i against the literal on top of the stack.
func (g *CodeGenerator) BindLiteral(i int) error {
	fs, p, err := g.caseParam(i)
	if err != nil {
		return err
	}
	lit, err := g.pop()
	if err != nil {
		return err
	}
	if binaryResultType(opEqual, p.typ, lit.typ).IsError() {
		return g.errorf(ErrTypeMismatch, "pattern of type %s cannot match parameter %d of type %s", lit.typ, i+1, p.typ)
	}
	return g.guard(fs, bytecode.OpEqual, p.addr, lit.addr)
}

// BindEmptyList matches parameter i against "[]".
func (g *CodeGenerator) BindEmptyList(i int) error {
	fs, p, err := g.caseParam(i)
	if err != nil {
		return err
	}
	if p.typ.Kind != bytecode.KindList {
		return g.errorf(ErrTypeMismatch, "[] cannot match parameter %d of type %s", i+1, p.typ)
	}
	if err := g.PushEmptyList(); err != nil {
		return err
	}
	empty, _ := g.pop()
	return g.guard(fs, bytecode.OpEqual, p.addr, empty.addr)
}

// BindCons matches a non-empty list in parameter i, binding its head and
// tail. A name of "_" is matched but not bound.
func (g *CodeGenerator) BindCons(i int, head, tail string) error {
	fs, p, err := g.caseParam(i)
	if err != nil {
		return err
	}
	if p.typ.Kind != bytecode.KindList || p.typ.IsEmptyList() {
		return g.errorf(ErrTypeMismatch, "%s:%s cannot match parameter %d of type %s", head, tail, i+1, p.typ)
	}
	if err := g.PushEmptyList(); err != nil {
		return err
	}
	empty, _ := g.pop()
	if err := g.guard(fs, bytecode.OpNotEqual, p.addr, empty.addr); err != nil {
		return err
	}

	h, err := g.newLocal(p.typ.ElemType())
	if err != nil {
		return err
	}
	g.emit(bytecode.OpNegative, p.addr, bytecode.NoAddress, h)
	t, err := g.newLocal(p.typ)
	if err != nil {
		return err
	}
	g.emit(bytecode.OpPositive, p.addr, bytecode.NoAddress, t)

	if head != "_" {
		if _, err := g.declare(head, p.typ.ElemType(), h, true); err != nil {
			return err
		}
	}
	if tail != "_" {
		_, err = g.declare(tail, p.typ, t, true)
	}
	return err
}

// GenerateCaseEnd stores the case body into the function result, jumps to
// the shared return and patches the guards of this case to fall through to
// the next one.
func (g *CodeGenerator) GenerateCaseEnd() error {
	fs, err := g.currentFunc()
	if err != nil {
		return err
	}
	body, err := g.pop()
	if err != nil {
		return err
	}
	if !assignable(fs.typ.ReturnType(), body.typ) {
		return g.errorf(ErrTypeMismatch, "case has type %s, function returns %s", body.typ, fs.typ.ReturnType())
	}
	g.emit(bytecode.OpAssign, body.addr, bytecode.NoAddress, fs.result)
	g.recycle(body.addr)
	fs.endJumps = append(fs.endJumps, g.emit(bytecode.OpGoTo, bytecode.NoAddress, bytecode.NoAddress, bytecode.NoAddress))
	for _, j := range fs.guards {
		if err := g.patch(j); err != nil {
			return err
		}
	}
	fs.guards = nil
	return g.PopScope()
}

// GenerateCaseFuncEnd emits the no-match trap and the shared return.
func (g *CodeGenerator) GenerateCaseFuncEnd() error {
	fs, err := g.currentFunc()
	if err != nil {
		return err
	}
	g.emit(bytecode.OpNoMatch, bytecode.NoAddress, bytecode.NoAddress, bytecode.NoAddress)
	for _, j := range fs.endJumps {
		if err := g.patch(j); err != nil {
			return err
		}
	}
	g.emit(bytecode.OpReturn, fs.result, bytecode.NoAddress, bytecode.NoAddress)
	return g.closeFunction(fs)
}

// --- calls ---

// GenerateCallStart consumes the callee on top of the stack and emits alloc.
func (g *CodeGenerator) GenerateCallStart() error {
	callee, err := g.pop()
	if err != nil {
		return err
	}
	if callee.typ.Kind != bytecode.KindFunc {
		return g.errorf(ErrInvalidCall, "value of type %s is not a function", callee.typ)
	}
	g.emit(bytecode.OpAlloc, callee.addr, bytecode.NoAddress, bytecode.NoAddress)
	g.calls = append(g.calls, callState{fn: callee.addr, typ: callee.typ})
	return nil
}

// GenerateArgument checks the operand on top of the stack against the next
// parameter and emits arg.
func (g *CodeGenerator) GenerateArgument() error {
	if len(g.calls) == 0 {
		return g.errorf(ErrInternal, "argument outside of a call")
	}
	cs := &g.calls[len(g.calls)-1]
	arg, err := g.pop()
	if err != nil {
		return err
	}
	params := cs.typ.Params
	if cs.argc >= len(params) {
		return g.errorf(ErrArity, "too many arguments, want %d", len(params))
	}
	if !assignable(params[cs.argc], arg.typ) {
		return g.errorf(ErrTypeMismatch, "argument %d has type %s, want %s", cs.argc+1, arg.typ, params[cs.argc])
	}
	g.emit(bytecode.OpArg, arg.addr, bytecode.NoAddress, cs.argc)
	g.recycle(arg.addr)
	cs.argc++
	return nil
}

// GenerateCallEnd emits call and receives the result into a temporary.
func (g *CodeGenerator) GenerateCallEnd() error {
	if len(g.calls) == 0 {
		return g.errorf(ErrInternal, "call end without call start")
	}
	cs := g.calls[len(g.calls)-1]
	g.calls = g.calls[:len(g.calls)-1]
	if cs.argc != len(cs.typ.Params) {
		return g.errorf(ErrArity, "want %d arguments, got %d", len(cs.typ.Params), cs.argc)
	}
	g.emit(bytecode.OpCall, cs.fn, bytecode.NoAddress, bytecode.NoAddress)
	ret := cs.typ.ReturnType()
	t, err := g.newTemp(ret)
	if err != nil {
		return err
	}
	g.emit(bytecode.OpReceiveRes, bytecode.NoAddress, bytecode.NoAddress, t)
	g.push(t, ret)
	return nil
}

// --- output ---

// Finish appends end and returns the program.
func (g *CodeGenerator) Finish() (*bytecode.Program, error) {
	if len(g.operands) != 0 || len(g.funcs) != 0 || len(g.calls) != 0 {
		return nil, g.errorf(ErrInternal, "unbalanced generator state at end of program")
	}
	g.emit(bytecode.OpEnd, bytecode.NoAddress, bytecode.NoAddress, bytecode.NoAddress)
	g.program.Instructions = g.queue.Quadruples()
	if err := g.program.Validate(); err != nil {
		return nil, g.errorf(ErrInternal, "%v", err)
	}
	return g.program, nil
}
