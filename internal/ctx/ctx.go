// Package ctx defines Context, the explicit carrier for the
// process-wide state the teacher keeps in package-level globals and
// channel-backed singletons (hhramberg-go-vslc/src/util: the label
// generator, the output Writer, the perror listener).
//
// spec.md §9 calls this out directly: "Process-wide state (current scope,
// current function, token vector, source stack): factor into a
// CompilerContext passed explicitly. Parser methods take it as receiver;
// emitter methods take it." This package is that object; the parser, the
// IR builder and the WebAssembly emitter thread *Context through instead
// of reaching for package globals, while the lexer, the register
// allocator and the native emitter take their inputs as plain arguments.
package ctx

import (
	"fmt"
	"strings"

	"github.com/jainl28patel/xcc/internal/ast"
	"github.com/jainl28patel/xcc/internal/diag"
	"github.com/jainl28patel/xcc/internal/token"
)

// LabelKind enumerates the generated-label families spec.md's IR builder
// and emitters need (grounded on hhramberg-go-vslc/src/util/label.go's
// label kind table, generalized with the additional kinds a full
// control-flow lowering needs: for-loops, switch dispatch, do-while).
type LabelKind int

const (
	LabelIfElse LabelKind = iota
	LabelIfEnd
	LabelWhileHead
	LabelWhileEnd
	LabelDoHead
	LabelDoCond
	LabelForHead
	LabelForPost
	LabelForEnd
	LabelSwitchCase
	LabelSwitchEnd
	LabelAnd
	LabelOr
	LabelTernary
	LabelCall
)

var labelPrefix = [...]string{
	"Lelse", "Lifend", "Lwhile", "Lwhileend", "Ldo", "Ldocond",
	"Lforhead", "Lforpost", "Lforend", "Lcase", "Lswend",
	"Land", "Lor", "Ltern", "Lcall",
}

// Context carries one translation unit's state through the whole
// pipeline. It is never shared between concurrent compiler invocations
// (spec.md §5): two compiler runs require two Contexts.
type Context struct {
	File string

	Tokens []token.Token // retained in full for arbitrary lookahead (spec.md §3)
	Pos    int           // current lookahead index into Tokens

	Global *ast.Scope
	Cur    *ast.Scope  // current (innermost) scope during parsing
	Fn     *ast.Symbol // current function during parsing/lowering, nil at file scope

	Syms    *ast.SymbolTable
	Strings []string // global string-literal table, indexed by Node.StringIdx

	Diags *diag.Sink

	labelSeq [LabelCall + 1]int

	Verbose bool
}

// New returns a fresh Context for compiling one file.
func New(file string) *Context {
	global := ast.NewScope(nil, ast.GlobalScope)
	return &Context{
		File:   file,
		Global: global,
		Cur:    global,
		Syms:   ast.NewSymbolTable(),
		Diags:  diag.NewSink(),
	}
}

// Peek returns the token at the current lookahead position plus n
// (n=0 is "current token"), or the trailing EOF token if out of range.
func (c *Context) Peek(n int) token.Token {
	i := c.Pos + n
	if i >= len(c.Tokens) {
		return c.Tokens[len(c.Tokens)-1] // EOF is always last
	}
	return c.Tokens[i]
}

// Advance consumes and returns the current token.
func (c *Context) Advance() token.Token {
	t := c.Peek(0)
	if c.Pos < len(c.Tokens)-1 {
		c.Pos++
	}
	return t
}

// PushScope creates and enters a new child scope of Cur.
func (c *Context) PushScope(kind ast.ScopeKind) *ast.Scope {
	s := ast.NewScope(c.Cur, kind)
	c.Cur = s
	return s
}

// PopScope returns to the parent of Cur.
func (c *Context) PopScope() {
	if c.Cur.Parent != nil {
		c.Cur = c.Cur.Parent
	}
}

// InternString returns the index of s in the global string table,
// appending it if not already present.
func (c *Context) InternString(s string) int {
	for i, e := range c.Strings {
		if e == s {
			return i
		}
	}
	c.Strings = append(c.Strings, s)
	return len(c.Strings) - 1
}

// NewLabel returns a fresh, uniquely-numbered assembly/bytecode label of
// kind typ (hhramberg-go-vslc/src/util/label.go's scheme, made a plain
// Context method instead of a goroutine-backed generator).
func (c *Context) NewLabel(typ LabelKind) string {
	n := c.labelSeq[typ]
	c.labelSeq[typ]++
	return fmt.Sprintf(".%s%d", labelPrefix[typ], n)
}

// Pos0 returns the diag.Pos for the current lookahead token, used by the
// parser when reporting a syntax/semantic error pinned to "here."
func (c *Context) Pos0() diag.Pos {
	p := c.Peek(0).Pos
	return diag.Pos{File: p.File, Line: p.Line, Column: p.Column}
}

// FromTokenPos converts a token.Pos to a diag.Pos.
func FromTokenPos(p token.Pos) diag.Pos {
	return diag.Pos{File: p.File, Line: p.Line, Column: p.Column}
}

// DumpTokens renders the token stream, one token per line, grounded on
// hhramberg-go-vslc/src/frontend TokenStream's tabwriter-based dump. No
// driver flag calls it.
func (c *Context) DumpTokens() string {
	var b strings.Builder
	for _, t := range c.Tokens {
		fmt.Fprintf(&b, "%-12s %-10q %s\n", t.Kind, t.Text, t.Pos)
	}
	return b.String()
}
