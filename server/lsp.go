package server

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/colang/co/compiler"
	"github.com/colang/co/pkg/bytecode"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "co-lsp"

// keywords offered by completion in addition to declared names.
var keywords = []string{
	"bool", "char", "do", "else", "false", "float", "for", "if", "int",
	"lambda", "let", "main", "print", "read", "then", "true",
}

// document is an open text document and the result of compiling it.
type document struct {
	text     string
	analysis *compiler.Analysis
}

// LspServer publishes compile diagnostics and answers hover, completion
// and definition requests from the declarations of each open document.
type LspServer struct {
	mu   sync.Mutex
	docs map[protocol.DocumentUri]*document

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a new LSP server.
func NewLSP() *LspServer {
	s := &LspServer{
		docs:    make(map[protocol.DocumentUri]*document),
		version: "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion: s.textDocumentCompletion,
		TextDocumentHover:      s.textDocumentHover,
		TextDocumentDefinition: s.textDocumentDefinition,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	commonlog.NewInfoMessage(0, "co LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}
	capabilities.CompletionProvider = &protocol.CompletionOptions{}
	capabilities.HoverProvider = true
	capabilities.DefinitionProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	doc := s.update(params.TextDocument.URI, params.TextDocument.Text)
	s.publish(ctx, params.TextDocument.URI, doc)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) == 0 {
		return nil
	}
	last := params.ContentChanges[len(params.ContentChanges)-1]
	if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
		doc := s.update(params.TextDocument.URI, whole.Text)
		s.publish(ctx, params.TextDocument.URI, doc)
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, uri)
	s.mu.Unlock()

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

// update recompiles text and stores it as the content of uri.
func (s *LspServer) update(uri protocol.DocumentUri, text string) *document {
	a, _ := compiler.Analyze(text)
	doc := &document{text: text, analysis: a}

	s.mu.Lock()
	s.docs[uri] = doc
	s.mu.Unlock()
	return doc
}

func (s *LspServer) lookup(uri protocol.DocumentUri) (*document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[uri]
	return doc, ok
}

func (s *LspServer) publish(ctx *glsp.Context, uri protocol.DocumentUri, doc *document) {
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics(doc),
	})
}

// --- Language features ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	doc, ok := s.lookup(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	prefix := extractPrefix(doc.text, params.Position)
	return complete(doc, prefix), nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	doc, ok := s.lookup(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	sym, ok := resolve(doc, params.Position)
	if !ok {
		return nil, nil
	}

	scope := "local"
	if sym.Global {
		scope = "global"
	}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: fmt.Sprintf("**%s**: `%s`\n\n%s, declared at %d:%d", sym.Name, sym.Type, scope, sym.Pos.Line, sym.Pos.Column),
		},
	}, nil
}

func (s *LspServer) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	doc, ok := s.lookup(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	sym, ok := resolve(doc, params.Position)
	if !ok {
		return nil, nil
	}
	start := toPosition(sym.Pos.Line, sym.Pos.Column)
	end := start
	end.Character += protocol.UInteger(len(sym.Name))
	return []protocol.Location{{
		URI:   params.TextDocument.URI,
		Range: protocol.Range{Start: start, End: end},
	}}, nil
}

// --- Analysis-backed logic ---

// diagnostics converts the compile error of doc, if any.
func diagnostics(doc *document) []protocol.Diagnostic {
	out := []protocol.Diagnostic{}
	if doc.analysis == nil || doc.analysis.Err == nil {
		return out
	}
	d := diagnosticFor(doc.analysis.Err)
	pos := toPosition(d.Line, d.Col)
	severity := protocol.DiagnosticSeverityError
	source := lspName
	return append(out, protocol.Diagnostic{
		Range:    protocol.Range{Start: pos, End: pos},
		Severity: &severity,
		Source:   &source,
		Message:  fmt.Sprintf("%s: %s", d.Kind, d.Message),
	})
}

// resolve finds the declaration the word under pos refers to: the last
// declaration of that name in scope at or before pos, or the first one in
// scope when the word precedes them all.
func resolve(doc *document, pos protocol.Position) (compiler.SymbolInfo, bool) {
	word := extractWord(doc.text, pos)
	if word == "" || doc.analysis == nil {
		return compiler.SymbolInfo{}, false
	}
	at := compiler.Position{Line: int(pos.Line) + 1, Column: int(pos.Character) + 1}
	var found compiler.SymbolInfo
	ok := false
	for _, sym := range doc.analysis.Symbols {
		if sym.Name != word || (sym.End.Line > 0 && !before(at, sym.End)) {
			continue
		}
		declared := !before(at, sym.Pos)
		if !ok || declared {
			found, ok = sym, true
		}
		if !declared {
			break
		}
	}
	return found, ok
}

// before reports whether a precedes b.
func before(a, b compiler.Position) bool {
	return a.Line < b.Line || (a.Line == b.Line && a.Column < b.Column)
}

func complete(doc *document, prefix string) []protocol.CompletionItem {
	var items []protocol.CompletionItem
	seen := make(map[string]bool)

	if doc.analysis != nil {
		for _, sym := range doc.analysis.Symbols {
			if seen[sym.Name] || !strings.HasPrefix(sym.Name, prefix) {
				continue
			}
			seen[sym.Name] = true
			kind := protocol.CompletionItemKindVariable
			if sym.Type.Kind == bytecode.KindFunc {
				kind = protocol.CompletionItemKindFunction
			}
			detail := sym.Type.String()
			name := sym.Name
			items = append(items, protocol.CompletionItem{
				Label:      name,
				Kind:       &kind,
				Detail:     &detail,
				InsertText: &name,
			})
		}
	}
	for _, kw := range keywords {
		if seen[kw] || !strings.HasPrefix(kw, prefix) {
			continue
		}
		kind := protocol.CompletionItemKindKeyword
		name := kw
		items = append(items, protocol.CompletionItem{
			Label:      name,
			Kind:       &kind,
			InsertText: &name,
		})
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].Label < items[j].Label })
	return items
}

// toPosition converts a 1-based line and column to an LSP position.
func toPosition(line, col int) protocol.Position {
	if line < 1 {
		line = 1
	}
	if col < 1 {
		col = 1
	}
	return protocol.Position{Line: protocol.UInteger(line - 1), Character: protocol.UInteger(col - 1)}
}

// --- Text extraction helpers ---

func isIdentChar(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_'
}

// extractPrefix returns the identifier fragment before the cursor.
func extractPrefix(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	start := col
	for start > 0 && isIdentChar(rune(line[start-1])) {
		start--
	}
	return line[start:col]
}

// extractWord returns the full identifier under the cursor.
func extractWord(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	start := col
	for start > 0 && isIdentChar(rune(line[start-1])) {
		start--
	}
	end := col
	for end < len(line) && isIdentChar(rune(line[end])) {
		end++
	}
	return line[start:end]
}

func boolPtr(b bool) *bool {
	return &b
}
