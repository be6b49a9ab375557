package vm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/colang/co/pkg/bytecode"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("co.vm")

// DefaultMaxDepth bounds the call stack when Options.MaxDepth is zero.
const DefaultMaxDepth = 10000

// cancelCheckInterval is how many instructions run between context checks.
const cancelCheckInterval = 1024

// Options configures a VirtualMachine.
type Options struct {
	In       InHandler  // source for read; DefaultInHandler when nil
	Out      OutHandler // sink for print; stdout when nil
	MaxSteps int        // instruction budget; 0 means unlimited
	MaxDepth int        // call depth limit; DefaultMaxDepth when 0
	Trace    bool       // log every instruction at debug level
}

// VirtualMachine runs one program. It is not safe for concurrent use.
type VirtualMachine struct {
	code   []bytecode.Quadruple
	memory *VirtualMemory
	in     InHandler
	out    OutHandler
	opts   Options

	ip    int
	steps int

	// Saved instruction pointers, one per active call.
	calls []int

	// Return register.
	ret Value

	// Pending arguments. Each alloc records where its call's arguments
	// start, so calls nested in argument expressions do not collide.
	args    []Value
	argBase []int
}

// New creates a VM for p after validating it.
func New(p *bytecode.Program, opts Options) (*VirtualMachine, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil program", ErrInvalidProgram)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if opts.In == nil {
		opts.In = DefaultInHandler()
	}
	if opts.Out == nil {
		opts.Out = NewSimpleOutHandler(os.Stdout)
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	vm := &VirtualMachine{
		code:   p.Instructions,
		memory: NewVirtualMemory(p),
		in:     opts.In,
		out:    opts.Out,
		opts:   opts,
	}
	// main runs in the base frame.
	vm.memory.PushLocal(0)
	return vm, nil
}

// Memory exposes the VM's memory for inspection.
func (vm *VirtualMachine) Memory() *VirtualMemory {
	return vm.memory
}

// Steps returns the number of instructions executed so far.
func (vm *VirtualMachine) Steps() int {
	return vm.steps
}

// Run executes the program until end or the first error.
func (vm *VirtualMachine) Run() error {
	return vm.RunContext(context.Background())
}

// RunContext is Run with cancellation.
func (vm *VirtualMachine) RunContext(ctx context.Context) error {
	for {
		if vm.ip < 0 || vm.ip >= len(vm.code) {
			return &RuntimeError{Err: ErrInvalidProgram, IP: vm.ip, Msg: "instruction pointer out of range"}
		}
		q := vm.code[vm.ip]

		if vm.opts.MaxSteps > 0 && vm.steps >= vm.opts.MaxSteps {
			return &RuntimeError{Err: ErrStepLimit, IP: vm.ip, Op: q.Op, Msg: fmt.Sprintf("%d instructions", vm.steps)}
		}
		vm.steps++
		if vm.steps%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if vm.opts.Trace {
			log.Debugf("%04d  %s", vm.ip, q)
		}

		if q.Op == bytecode.OpEnd {
			return nil
		}
		at := vm.ip
		if err := vm.step(q); err != nil {
			var re *RuntimeError
			if errors.As(err, &re) && re.IP < 0 {
				re.IP = at
				re.Op = q.Op
			}
			return err
		}
		vm.ip++
	}
}

// ---------------------------------------------------------------------------
// Operand access
// ---------------------------------------------------------------------------

// load reads an operand.
func (vm *VirtualMachine) load(addr int) (Value, error) {
	return vm.memory.Get(addr)
}

// store writes v to addr, cast to addr's band.
func (vm *VirtualMachine) store(addr int, v Value) error {
	_, band, err := bytecode.Classify(addr)
	if err != nil {
		return errorf(ErrInvalidAddress, "%v", err)
	}
	cv, err := Cast(v, band)
	if err != nil {
		return err
	}
	return vm.memory.Set(addr, cv)
}

func (vm *VirtualMachine) load2(q bytecode.Quadruple) (Value, Value, error) {
	a, err := vm.load(q.First)
	if err != nil {
		return nil, nil, err
	}
	b, err := vm.load(q.Second)
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

func (vm *VirtualMachine) loadList(addr int) (List, error) {
	v, err := vm.load(addr)
	if err != nil {
		return List{}, err
	}
	l, ok := v.(List)
	if !ok {
		return List{}, errorf(ErrType, "%s holds %v, want a list", bytecode.FormatAddress(addr), v)
	}
	return l, nil
}

func (vm *VirtualMachine) loadFunc(addr int) (Func, error) {
	v, err := vm.load(addr)
	if err != nil {
		return Func{}, err
	}
	f, ok := v.(Func)
	if !ok || f.Fn == nil {
		return Func{}, errorf(ErrType, "%s holds %v, want a function", bytecode.FormatAddress(addr), v)
	}
	return f, nil
}

// jump sets ip so that the loop's increment lands on target.
func (vm *VirtualMachine) jump(target int) {
	vm.ip = target - 1
}

// ---------------------------------------------------------------------------
// Dispatch
// ---------------------------------------------------------------------------

func (vm *VirtualMachine) step(q bytecode.Quadruple) error {
	switch q.Op {
	case bytecode.OpAdd, bytecode.OpSubtract, bytecode.OpMultiply, bytecode.OpDivide:
		a, b, err := vm.load2(q)
		if err != nil {
			return err
		}
		r, err := arith(q.Op, a, b)
		if err != nil {
			return err
		}
		return vm.store(q.Result, r)

	case bytecode.OpAnd, bytecode.OpOr:
		a, b, err := vm.load2(q)
		if err != nil {
			return err
		}
		r, err := logic(q.Op, a, b)
		if err != nil {
			return err
		}
		return vm.store(q.Result, r)

	case bytecode.OpEqual, bytecode.OpNotEqual, bytecode.OpLessThan,
		bytecode.OpGreaterThan, bytecode.OpLessEqual, bytecode.OpGreaterEqual:
		a, b, err := vm.load2(q)
		if err != nil {
			return err
		}
		r, err := vm.memory.compare(q.Op, a, b)
		if err != nil {
			return err
		}
		return vm.store(q.Result, r)

	case bytecode.OpNot, bytecode.OpNegative, bytecode.OpPositive:
		a, err := vm.load(q.First)
		if err != nil {
			return err
		}
		r, err := vm.memory.unary(q.Op, a)
		if err != nil {
			return err
		}
		return vm.store(q.Result, r)

	case bytecode.OpAssign:
		a, err := vm.load(q.First)
		if err != nil {
			return err
		}
		return vm.store(q.Result, a)

	case bytecode.OpCons:
		a, err := vm.load(q.First)
		if err != nil {
			return err
		}
		tail, err := vm.loadList(q.Second)
		if err != nil {
			return err
		}
		return vm.store(q.Result, vm.memory.Cons(a, tail))

	case bytecode.OpAppend:
		a, err := vm.loadList(q.First)
		if err != nil {
			return err
		}
		b, err := vm.loadList(q.Second)
		if err != nil {
			return err
		}
		r, err := vm.memory.Append(a, b)
		if err != nil {
			return err
		}
		return vm.store(q.Result, r)

	case bytecode.OpGoTo:
		vm.jump(q.Result)
		return nil

	case bytecode.OpGoToFalse, bytecode.OpGoToTrue:
		v, err := vm.load(q.First)
		if err != nil {
			return err
		}
		cond, ok := v.(Bool)
		if !ok {
			return errorf(ErrType, "jump condition is %v, want a bool", v)
		}
		if bool(cond) == (q.Op == bytecode.OpGoToTrue) {
			vm.jump(q.Result)
		}
		return nil

	case bytecode.OpImportCon:
		return vm.importCon(q)
	case bytecode.OpAlloc:
		if _, err := vm.loadFunc(q.First); err != nil {
			return err
		}
		vm.argBase = append(vm.argBase, len(vm.args))
		return nil
	case bytecode.OpArg:
		return vm.arg(q)
	case bytecode.OpCall:
		return vm.call(q)
	case bytecode.OpReturn:
		return vm.returnFrom(q)
	case bytecode.OpReceiveRes:
		if vm.ret == nil {
			return errorf(ErrInvalidProgram, "receiveRes with no returned value")
		}
		r := vm.ret
		vm.ret = nil
		return vm.store(q.Result, r)

	case bytecode.OpPrint:
		v, err := vm.load(q.First)
		if err != nil {
			return err
		}
		s, err := vm.memory.Format(v)
		if err != nil {
			return err
		}
		vm.out.Write(s + "\n")
		return nil

	case bytecode.OpRead:
		return vm.read(q)

	case bytecode.OpNoMatch:
		return errorf(ErrNoMatch, "no case matches the arguments")
	}
	return errorf(ErrInvalidProgram, "unhandled opcode %s", q.Op)
}

// ---------------------------------------------------------------------------
// Closures and calls
// ---------------------------------------------------------------------------

// importCon captures the value at q.Second into the function literal at
// q.First, to be installed at q.Result when the function is called. The
// literal is replaced by a fresh copy so that closures created earlier keep
// the values they captured.
func (vm *VirtualMachine) importCon(q bytecode.Quadruple) error {
	f, err := vm.loadFunc(q.First)
	if err != nil {
		return err
	}
	src, err := vm.load(q.Second)
	if err != nil {
		return err
	}
	_, band, err := bytecode.Classify(q.Result)
	if err != nil {
		return errorf(ErrInvalidAddress, "%v", err)
	}
	v, err := Cast(src, band)
	if err != nil {
		return err
	}

	fn := *f.Fn
	fn.Context = fn.Context.Clone()
	ctx := &fn.Context
	switch x := v.(type) {
	case Int:
		ctx.Ints[q.Result] = int64(x)
	case Float:
		ctx.Floats[q.Result] = float64(x)
	case Char:
		ctx.Chars[q.Result] = rune(x)
	case Bool:
		ctx.Bools[q.Result] = bool(x)
	case Func:
		ctx.Funcs[q.Result] = *x.Fn
	case List:
		ctx.Lists[q.Result] = bytecode.ListValue(x)
	}
	return vm.memory.Set(q.First, Func{Fn: &fn})
}

func (vm *VirtualMachine) arg(q bytecode.Quadruple) error {
	if len(vm.argBase) == 0 {
		return errorf(ErrInvalidProgram, "arg outside of a call")
	}
	if pos := len(vm.args) - vm.argBase[len(vm.argBase)-1]; q.Result != pos {
		return errorf(ErrInvalidProgram, "argument %d given at position %d", q.Result, pos)
	}
	v, err := vm.load(q.First)
	if err != nil {
		return err
	}
	vm.args = append(vm.args, v)
	return nil
}

func (vm *VirtualMachine) call(q bytecode.Quadruple) error {
	f, err := vm.loadFunc(q.First)
	if err != nil {
		return err
	}
	if len(vm.argBase) == 0 {
		return errorf(ErrInvalidProgram, "call without alloc")
	}
	base := vm.argBase[len(vm.argBase)-1]
	vm.argBase = vm.argBase[:len(vm.argBase)-1]
	args := vm.args[base:]
	fn := f.Fn
	if len(args) != fn.ParamCount || len(fn.ParamAddresses) != fn.ParamCount {
		return errorf(ErrInvalidProgram, "call with %d arguments, function takes %d", len(args), fn.ParamCount)
	}
	if len(vm.calls) >= vm.opts.MaxDepth {
		return errorf(ErrStackOverflow, "depth %d", len(vm.calls))
	}

	vm.memory.PushLocal(fn.FrameSize() + fn.Context.Len())
	for i, addr := range fn.ParamAddresses {
		if err := vm.store(addr, args[i]); err != nil {
			return err
		}
	}
	if err := vm.install(fn.Context); err != nil {
		return err
	}
	vm.args = vm.args[:base]

	log.Debugf("call %04d -> %04d depth %d", vm.ip, fn.Entry, len(vm.calls)+1)
	vm.calls = append(vm.calls, vm.ip)
	vm.jump(fn.Entry)
	return nil
}

// install writes captured values into the new frame.
func (vm *VirtualMachine) install(c bytecode.FuncContext) error {
	for addr, v := range c.Ints {
		if err := vm.memory.Set(addr, Int(v)); err != nil {
			return err
		}
	}
	for addr, v := range c.Floats {
		if err := vm.memory.Set(addr, Float(v)); err != nil {
			return err
		}
	}
	for addr, v := range c.Chars {
		if err := vm.memory.Set(addr, Char(v)); err != nil {
			return err
		}
	}
	for addr, v := range c.Bools {
		if err := vm.memory.Set(addr, Bool(v)); err != nil {
			return err
		}
	}
	for addr, v := range c.Funcs {
		if err := vm.memory.Set(addr, FromFuncValue(v)); err != nil {
			return err
		}
	}
	for addr, v := range c.Lists {
		if err := vm.memory.Set(addr, List(v)); err != nil {
			return err
		}
	}
	return nil
}

// returnFrom leaves the current call. The loop's increment then lands on the
// instruction after the call, which is its receiveRes.
func (vm *VirtualMachine) returnFrom(q bytecode.Quadruple) error {
	if len(vm.calls) == 0 {
		return errorf(ErrInvalidProgram, "ret outside of a call")
	}
	v, err := vm.load(q.First)
	if err != nil {
		return err
	}
	vm.ret = v
	if err := vm.memory.PopLocal(); err != nil {
		return err
	}
	vm.ip = vm.calls[len(vm.calls)-1]
	vm.calls = vm.calls[:len(vm.calls)-1]
	log.Debugf("return to %04d depth %d", vm.ip, len(vm.calls))
	return nil
}

// ---------------------------------------------------------------------------
// Console
// ---------------------------------------------------------------------------

func (vm *VirtualMachine) read(q bytecode.Quadruple) error {
	_, band, err := bytecode.Classify(q.Result)
	if err != nil {
		return errorf(ErrInvalidAddress, "%v", err)
	}
	line, err := vm.in.Get("")
	if err != nil {
		return errorf(ErrRead, "%v", err)
	}
	v, err := parseInput(band, line)
	if err != nil {
		return err
	}
	return vm.store(q.Result, v)
}

// parseInput converts one input line to a value of band.
func parseInput(band bytecode.Band, line string) (Value, error) {
	switch band {
	case bytecode.BandInt:
		n, err := strconv.ParseInt(strings.TrimSpace(line), 10, 64)
		if err != nil {
			return nil, errorf(ErrRead, "%q is not an int", line)
		}
		return Int(n), nil
	case bytecode.BandFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(line), 64)
		if err != nil {
			return nil, errorf(ErrRead, "%q is not a float", line)
		}
		return Float(f), nil
	case bytecode.BandChar:
		r := []rune(strings.TrimRight(line, "\r\n"))
		if len(r) != 1 {
			return nil, errorf(ErrRead, "%q is not a single char", line)
		}
		return Char(r[0]), nil
	case bytecode.BandBool:
		switch strings.TrimSpace(line) {
		case "true":
			return Bool(true), nil
		case "false":
			return Bool(false), nil
		}
		return nil, errorf(ErrRead, "%q is not a bool", line)
	}
	return nil, errorf(ErrType, "cannot read a %s", band)
}
