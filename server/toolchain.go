package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"

	"github.com/colang/co/compiler"
	"github.com/colang/co/pkg/bytecode"
	"github.com/colang/co/vm"
)

// Procedure paths of the toolchain service.
const (
	ToolchainServiceName = "co.v1.ToolchainService"

	CompileProcedure = "/" + ToolchainServiceName + "/Compile"
	CheckProcedure   = "/" + ToolchainServiceName + "/Check"
	RunProcedure     = "/" + ToolchainServiceName + "/Run"
	HistoryProcedure = "/" + ToolchainServiceName + "/History"
)

// DefaultHistoryLimit is used when a History request sets no limit.
const DefaultHistoryLimit = 20

type CompileRequest struct {
	Source string `json:"source"`
}

type CompileResponse struct {
	Program     []byte `json:"program"` // CBOR artifact, base64 in JSON
	Hash        string `json:"hash"`
	Disassembly string `json:"disassembly"`
}

type CheckRequest struct {
	Source string `json:"source"`
}

type CheckResponse struct {
	Valid       bool         `json:"valid"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
	Symbols     []Symbol     `json:"symbols,omitempty"`
}

// Diagnostic is a compile error with a 1-based location.
type Diagnostic struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Symbol is a declaration found while checking.
type Symbol struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Line   int    `json:"line"`
	Col    int    `json:"col"`
	Global bool   `json:"global"`
}

// RunRequest carries either source or a compiled program, plus the lines
// read returns in order.
type RunRequest struct {
	Source   string   `json:"source,omitempty"`
	Program  []byte   `json:"program,omitempty"`
	Input    []string `json:"input,omitempty"`
	MaxSteps int      `json:"maxSteps,omitempty"`
}

type RunResponse struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Output  string `json:"output"`
	Error   string `json:"error,omitempty"`
	Steps   int    `json:"steps"`
}

type HistoryRequest struct {
	Limit int `json:"limit,omitempty"`
}

type HistoryResponse struct {
	Runs []RunRecord `json:"runs"`
}

// ToolchainService compiles, checks and runs co programs over Connect.
type ToolchainService struct {
	worker   *Worker
	history  *RunStore
	maxSteps int
}

// NewToolchainService creates a ToolchainService. history may be nil.
// maxSteps caps every run; requests may only lower it.
func NewToolchainService(worker *Worker, history *RunStore, maxSteps int) *ToolchainService {
	return &ToolchainService{worker: worker, history: history, maxSteps: maxSteps}
}

// NewToolchainServiceHandler builds an HTTP handler for every procedure of
// svc and returns the path to mount it on.
func NewToolchainServiceHandler(svc *ToolchainService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)
	compile := connect.NewUnaryHandler(CompileProcedure, svc.Compile, opts...)
	check := connect.NewUnaryHandler(CheckProcedure, svc.Check, opts...)
	run := connect.NewUnaryHandler(RunProcedure, svc.Run, opts...)
	history := connect.NewUnaryHandler(HistoryProcedure, svc.History, opts...)

	return "/" + ToolchainServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case CompileProcedure:
			compile.ServeHTTP(w, r)
		case CheckProcedure:
			check.ServeHTTP(w, r)
		case RunProcedure:
			run.ServeHTTP(w, r)
		case HistoryProcedure:
			history.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// Compile compiles source into a program artifact.
func (s *ToolchainService) Compile(
	ctx context.Context,
	req *connect.Request[CompileRequest],
) (*connect.Response[CompileResponse], error) {
	source := req.Msg.Source
	if source == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("source is required"))
	}

	prog, err := compiler.Compile(source)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	data, err := bytecode.Marshal(prog)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	h, err := bytecode.Hash(prog)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	return connect.NewResponse(&CompileResponse{
		Program:     data,
		Hash:        hashString(h),
		Disassembly: prog.Disassemble(),
	}), nil
}

// Check compiles source and reports diagnostics and declarations without
// producing a program.
func (s *ToolchainService) Check(
	ctx context.Context,
	req *connect.Request[CheckRequest],
) (*connect.Response[CheckResponse], error) {
	a, err := compiler.Analyze(req.Msg.Source)

	resp := &CheckResponse{Valid: err == nil}
	if err != nil {
		resp.Diagnostics = []Diagnostic{diagnosticFor(err)}
	}
	for _, sym := range a.Symbols {
		resp.Symbols = append(resp.Symbols, Symbol{
			Name:   sym.Name,
			Type:   sym.Type.String(),
			Line:   sym.Pos.Line,
			Col:    sym.Pos.Column,
			Global: sym.Global,
		})
	}
	return connect.NewResponse(resp), nil
}

func diagnosticFor(err error) Diagnostic {
	var ce *compiler.CompileError
	if !errors.As(err, &ce) {
		return Diagnostic{Line: 1, Col: 1, Kind: "error", Message: err.Error()}
	}
	msg := ce.Msg
	if msg == "" {
		msg = ce.Err.Error()
	}
	return Diagnostic{Line: ce.Line, Col: ce.Col, Kind: ce.Err.Error(), Message: msg}
}

// Run executes source or a compiled program on a fresh VM. Compile and
// runtime failures are reported in the response, not as RPC errors.
func (s *ToolchainService) Run(
	ctx context.Context,
	req *connect.Request[RunRequest],
) (*connect.Response[RunResponse], error) {
	msg := req.Msg
	if msg.Source == "" && len(msg.Program) == 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("source or program is required"))
	}
	if msg.Source != "" && len(msg.Program) > 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("source and program are exclusive"))
	}

	resp := &RunResponse{ID: uuid.NewString()}

	prog, err := s.load(msg)
	if err != nil {
		resp.Error = err.Error()
		return connect.NewResponse(resp), nil
	}

	maxSteps := s.maxSteps
	if msg.MaxSteps > 0 && (maxSteps == 0 || msg.MaxSteps < maxSteps) {
		maxSteps = msg.MaxSteps
	}

	result, err := s.worker.Do(ctx, func() (any, error) {
		var out bytes.Buffer
		m, err := vm.New(prog, vm.Options{
			In:       vm.NewSimpleInHandler(strings.NewReader(strings.Join(msg.Input, "\n"))),
			Out:      vm.NewSimpleOutHandler(&out),
			MaxSteps: maxSteps,
		})
		if err != nil {
			return nil, err
		}
		runErr := m.RunContext(ctx)
		return runResult{output: out.String(), steps: m.Steps(), err: runErr}, nil
	})
	if r, ok := result.(runResult); ok {
		resp.Output = r.output
		resp.Steps = r.steps
		err = r.err
	}
	resp.Success = err == nil
	if err != nil {
		resp.Error = err.Error()
	}
	log.Infof("run %s: %d steps, success %v", resp.ID, resp.Steps, resp.Success)

	s.record(prog, resp)
	return connect.NewResponse(resp), nil
}

// runResult is what a run job hands back from the worker goroutine.
type runResult struct {
	output string
	steps  int
	err    error
}

func (s *ToolchainService) load(msg *RunRequest) (*bytecode.Program, error) {
	if msg.Source != "" {
		prog, err := compiler.Compile(msg.Source)
		if err != nil {
			return nil, fmt.Errorf("compile error: %w", err)
		}
		return prog, nil
	}
	return bytecode.Unmarshal(msg.Program)
}

func (s *ToolchainService) record(prog *bytecode.Program, resp *RunResponse) {
	if s.history == nil {
		return
	}
	h, err := bytecode.Hash(prog)
	if err != nil {
		log.Errorf("run %s: hash: %v", resp.ID, err)
		return
	}
	err = s.history.Save(RunRecord{
		ID:          resp.ID,
		Created:     time.Now().UTC(),
		ProgramHash: hashString(h),
		Output:      resp.Output,
		Error:       resp.Error,
		Steps:       resp.Steps,
	})
	if err != nil {
		log.Errorf("run %s: %v", resp.ID, err)
	}
}

// History returns the most recent runs.
func (s *ToolchainService) History(
	ctx context.Context,
	req *connect.Request[HistoryRequest],
) (*connect.Response[HistoryResponse], error) {
	if s.history == nil {
		return nil, connect.NewError(connect.CodeUnimplemented, fmt.Errorf("run history is disabled"))
	}
	limit := req.Msg.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	runs, err := s.history.Recent(limit)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(&HistoryResponse{Runs: runs}), nil
}
