package emitwasm

import (
	"bytes"

	"github.com/jainl28patel/xcc/internal/ast"
	"github.com/jainl28patel/xcc/internal/ctx"
	"github.com/jainl28patel/xcc/internal/types"
)

// funcBuilder lowers one function body directly from the AST into a flat
// wasm bytecode stream, one statement/expression at a time with a single
// output buffer -- there is no block-graph mid-representation the way
// internal/ir builds one for emitx64 (spec.md §9: the two back ends share
// only the frontend). Structured control flow is tracked with a label
// stack instead: entering a block/loop/if pushes the stack's current
// length, and a later br/br_if computes its relative depth as
// len(labels) - recordedLen - 1, which is correct regardless of how much
// further nesting happened since the label was pushed.
type funcBuilder struct {
	c    *ctx.Context
	sym  *ast.Symbol
	code bytes.Buffer

	locals      map[*ast.VarInfo]int
	globalIndex map[*ast.VarInfo]int
	funcIndex   map[string]int
	localTypes  []byte // one entry per local beyond the parameters

	retLocal int // -1 for a void function
	retType  *types.Type

	// Scratch locals used to emulate `global.tee` (wasm globals have no
	// tee instruction), allocated lazily on first use.
	scratchI32 int
	scratchI64 int

	labels          []int // recorded label-stack depths at push time
	breakTargets    []int // index into labels, one per enclosing loop/switch
	continueTargets []int // index into labels, one per enclosing loop
}

// buildFunction renders sym's body as a Code-section entry: a ULEB128
// local-declaration vector followed by the instruction stream terminated
// by `end` (spec.md §4.6: "Code section, per function: ULEB128 local-decl
// count, (count,type) pairs, instructions, end").
func buildFunction(c *ctx.Context, sym *ast.Symbol, globalIndex map[*ast.VarInfo]int, funcIndex map[string]int) []byte {
	fb := &funcBuilder{
		c:           c,
		sym:         sym,
		locals:      map[*ast.VarInfo]int{},
		globalIndex: globalIndex,
		funcIndex:   funcIndex,
		retLocal:    -1,
		scratchI32:  -1,
		scratchI64:  -1,
	}
	if sym.FuncType.Variadic {
		fb.diagUnsupported(sym.Body, "variadic function %q is not supported by the WebAssembly backend", sym.Name)
	}
	fb.allocLocals()

	outer := fb.pushLabel()
	fb.emitByte(opBlock)
	fb.emitByte(blockTypeEmpty)
	fb.lowerBlockBody(sym.Body)
	fb.popLabel(outer)

	if fb.retLocal >= 0 {
		fb.emitByte(opLocalGet)
		fb.emitULEB(uint64(fb.retLocal))
	}
	fb.emitByte(opEnd)

	var out bytes.Buffer
	putULEB128(&out, uint64(len(fb.localGroups())))
	for _, g := range fb.localGroups() {
		putULEB128(&out, uint64(g.count))
		out.WriteByte(g.vt)
	}
	out.Write(fb.code.Bytes())
	return out.Bytes()
}

type localGroup struct {
	count int
	vt    byte
}

// localGroups run-length-encodes localTypes into (count,type) pairs, the
// format the Code section's local declaration vector requires.
func (fb *funcBuilder) localGroups() []localGroup {
	var groups []localGroup
	for _, vt := range fb.localTypes {
		if len(groups) > 0 && groups[len(groups)-1].vt == vt {
			groups[len(groups)-1].count++
			continue
		}
		groups = append(groups, localGroup{count: 1, vt: vt})
	}
	return groups
}

// allocLocals assigns dense wasm local indices: parameters first (index
// order fixed by the function type), then every declared local in
// first-occurrence tree order, then a return-value local for a non-void
// function (spec.md §4.6: "params occupy the first indices; a
// return-value local is allocated per non-void function").
func (fb *funcBuilder) allocLocals() {
	next := 0
	for _, p := range fb.sym.Params {
		fb.locals[p] = next
		next++
	}
	fb.collectDecls(fb.sym.Body)
	fb.retType = fb.sym.FuncType.Ret
	if fb.retType.Kind != types.Void {
		vt, ok := wasmValtype(fb.retType)
		if !ok {
			fb.diagUnsupported(fb.sym.Body, "return type %s has no WebAssembly representation", fb.retType)
			vt = valI32
		}
		fb.retLocal = len(fb.sym.Params) + len(fb.localTypes)
		fb.localTypes = append(fb.localTypes, vt)
	}
}

// collectDecls walks n's statement tree assigning a local index (and a
// locals-vector slot) to every DeclStmt variable it finds, in source
// order, before any code is emitted -- wasm locals are function-scoped
// (no block-scoped shadowing in the binary format), so a single flat pass
// is enough.
func (fb *funcBuilder) collectDecls(n *ast.Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case ast.Block:
		for _, s := range n.Stmts {
			fb.collectDecls(s)
		}
	case ast.DeclStmt:
		for _, v := range n.Decls {
			vt, ok := wasmValtype(v.Type)
			if !ok {
				fb.diagUnsupported(n, "local %q has type %s with no WebAssembly representation", v.Name, v.Type)
				vt = valI32
			}
			idx := len(fb.sym.Params) + len(fb.localTypes)
			fb.locals[v] = idx
			fb.localTypes = append(fb.localTypes, vt)
		}
	case ast.If:
		fb.collectDecls(n.Then)
		fb.collectDecls(n.Else)
	case ast.While, ast.DoWhile, ast.For:
		fb.collectDecls(n.Init)
		fb.collectDecls(n.Body)
	case ast.Switch:
		for _, s := range n.Stmts {
			fb.collectDecls(s)
		}
	}
}

// scratch returns the index of a lazily-allocated scratch local of the
// given valtype, allocating it (and extending the locals vector) on first
// use. Only two ever exist per function -- one i32, one i64 -- since no
// two global-tee emulations are ever in flight at once within a single
// expression lowering.
func (fb *funcBuilder) scratch(vt byte) int {
	if vt == valI64 {
		if fb.scratchI64 < 0 {
			fb.scratchI64 = len(fb.sym.Params) + len(fb.localTypes)
			fb.localTypes = append(fb.localTypes, valI64)
		}
		return fb.scratchI64
	}
	if fb.scratchI32 < 0 {
		fb.scratchI32 = len(fb.sym.Params) + len(fb.localTypes)
		fb.localTypes = append(fb.localTypes, valI32)
	}
	return fb.scratchI32
}

func (fb *funcBuilder) diagUnsupported(n *ast.Node, format string, args ...interface{}) {
	pos := fb.c.Pos0()
	if n != nil {
		pos = ctx.FromTokenPos(n.Pos)
	}
	fb.c.Diags.Errorf(pos, format, args...)
}

func (fb *funcBuilder) emitByte(b byte) { fb.code.WriteByte(b) }

func (fb *funcBuilder) emitULEB(n uint64) { putULEB128(&fb.code, n) }

func (fb *funcBuilder) emitSLEB(v int64) { putSLEB128(&fb.code, v) }

// pushLabel enters a new structured-control-flow label (block/loop/if),
// recording the label stack's depth *before* the push so a later branch
// can compute its relative depth as len(labels)-recorded-1.
func (fb *funcBuilder) pushLabel() int {
	depth := len(fb.labels)
	fb.labels = append(fb.labels, depth)
	return depth
}

func (fb *funcBuilder) popLabel(mark int) {
	fb.labels = fb.labels[:mark]
	fb.emitByte(opEnd)
}

// relDepth returns the br/br_if operand that reaches the label recorded at
// push-time index `at`.
func (fb *funcBuilder) relDepth(at int) uint64 {
	return uint64(len(fb.labels) - at - 1)
}

// lowerBlockBody lowers a function or compound-statement body's statement
// list directly (no extra wrapping block -- the caller already pushed
// one), matching spec.md §4.6's "post-order expression emission" note.
func (fb *funcBuilder) lowerBlockBody(body *ast.Node) {
	if body == nil {
		return
	}
	for _, s := range body.Stmts {
		fb.lowerStmt(s)
	}
}

func (fb *funcBuilder) lowerStmt(n *ast.Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case ast.Block:
		for _, s := range n.Stmts {
			fb.lowerStmt(s)
		}
	case ast.DeclStmt:
		for _, v := range n.Decls {
			if v.Init == nil {
				continue
			}
			fb.lowerExpr(v.Init)
			fb.setLocal(v)
		}
	case ast.ExprStmt:
		if n.Lhs == nil {
			return
		}
		voidResult := fb.lowerExpr(n.Lhs)
		if !voidResult {
			fb.emitByte(opDrop)
		}
	case ast.If:
		fb.lowerIf(n)
	case ast.While:
		fb.lowerWhile(n)
	case ast.DoWhile:
		fb.lowerDoWhile(n)
	case ast.For:
		fb.lowerFor(n)
	case ast.Switch:
		fb.lowerSwitch(n)
	case ast.Break:
		if len(fb.breakTargets) == 0 {
			fb.diagUnsupported(n, "break outside a loop or switch")
			return
		}
		fb.emitByte(opBr)
		fb.emitULEB(fb.relDepth(fb.breakTargets[len(fb.breakTargets)-1]))
	case ast.Continue:
		if len(fb.continueTargets) == 0 {
			fb.diagUnsupported(n, "continue outside a loop")
			return
		}
		fb.emitByte(opBr)
		fb.emitULEB(fb.relDepth(fb.continueTargets[len(fb.continueTargets)-1]))
	case ast.Return:
		if n.Lhs != nil && fb.retLocal >= 0 {
			fb.lowerExpr(n.Lhs)
			fb.widenTo(n.Lhs.Type, fb.retType)
			fb.emitByte(opLocalSet)
			fb.emitULEB(uint64(fb.retLocal))
		}
		fb.emitByte(opBr)
		fb.emitULEB(fb.relDepth(0))
	case ast.Goto, ast.Label:
		fb.diagUnsupported(n, "goto/label is not supported by the WebAssembly backend")
	case ast.InlineAsm:
		fb.diagUnsupported(n, "inline asm is not supported by the WebAssembly backend")
	}
}

func (fb *funcBuilder) setLocal(v *ast.VarInfo) {
	idx, ok := fb.locals[v]
	if !ok {
		fb.diagUnsupported(nil, "internal: local %q has no assigned index", v.Name)
		return
	}
	fb.emitByte(opLocalSet)
	fb.emitULEB(uint64(idx))
}

// lowerIf lowers to a single structured `if ... else ... end`, relying on
// the wasm `if` opcode's built-in condition pop (spec.md §4.6).
func (fb *funcBuilder) lowerIf(n *ast.Node) {
	fb.lowerCond(n.Cond)
	fb.emitByte(opIf)
	fb.emitByte(blockTypeEmpty)
	mark := fb.pushLabel()
	fb.lowerStmt(n.Then)
	if n.Else != nil {
		fb.emitByte(opElse)
		fb.lowerStmt(n.Else)
	}
	fb.popLabel(mark)
}

// lowerWhile lowers to the canonical `block { loop { br_if cond-false,
// exit; body; br loop } }` shape: the outer block is the break target,
// the loop header is the continue target, and the loop re-enters by
// branching to itself at depth 0 from its own body.
func (fb *funcBuilder) lowerWhile(n *ast.Node) {
	blockMark := fb.pushLabel()
	fb.emitByte(opBlock)
	fb.emitByte(blockTypeEmpty)

	loopMark := fb.pushLabel()
	fb.emitByte(opLoop)
	fb.emitByte(blockTypeEmpty)

	fb.lowerCond(n.Cond)
	fb.negateI32()
	fb.emitByte(opBrIf)
	fb.emitULEB(fb.relDepth(blockMark))

	fb.breakTargets = append(fb.breakTargets, blockMark)
	fb.continueTargets = append(fb.continueTargets, loopMark)
	fb.lowerStmt(n.Body)
	fb.breakTargets = fb.breakTargets[:len(fb.breakTargets)-1]
	fb.continueTargets = fb.continueTargets[:len(fb.continueTargets)-1]

	fb.emitByte(opBr)
	fb.emitULEB(fb.relDepth(loopMark))
	fb.popLabel(loopMark)
	fb.popLabel(blockMark)
}

// lowerDoWhile lowers to `block { loop { body; br_if cond-true, loop } }`:
// the body runs unconditionally once before the first test.
func (fb *funcBuilder) lowerDoWhile(n *ast.Node) {
	blockMark := fb.pushLabel()
	fb.emitByte(opBlock)
	fb.emitByte(blockTypeEmpty)

	loopMark := fb.pushLabel()
	fb.emitByte(opLoop)
	fb.emitByte(blockTypeEmpty)

	fb.breakTargets = append(fb.breakTargets, blockMark)
	fb.continueTargets = append(fb.continueTargets, loopMark)
	fb.lowerStmt(n.Body)
	fb.breakTargets = fb.breakTargets[:len(fb.breakTargets)-1]
	fb.continueTargets = fb.continueTargets[:len(fb.continueTargets)-1]

	fb.lowerCond(n.Cond)
	fb.emitByte(opBrIf)
	fb.emitULEB(fb.relDepth(loopMark))

	fb.popLabel(loopMark)
	fb.popLabel(blockMark)
}

// lowerFor lowers init once, then the same block/loop shape lowerWhile
// uses, with the body wrapped in one more block that is the continue
// target: `continue` branches out of that inner block and lands on the
// post-statement, which then branches back to the loop header (the wasm
// counterpart of the IR builder's own `post` block).
func (fb *funcBuilder) lowerFor(n *ast.Node) {
	if n.Init != nil {
		fb.lowerStmt(n.Init)
	}
	blockMark := fb.pushLabel()
	fb.emitByte(opBlock)
	fb.emitByte(blockTypeEmpty)

	loopMark := fb.pushLabel()
	fb.emitByte(opLoop)
	fb.emitByte(blockTypeEmpty)

	if n.Cond != nil {
		fb.lowerCond(n.Cond)
		fb.negateI32()
		fb.emitByte(opBrIf)
		fb.emitULEB(fb.relDepth(blockMark))
	}

	contMark := fb.pushLabel()
	fb.emitByte(opBlock)
	fb.emitByte(blockTypeEmpty)
	fb.breakTargets = append(fb.breakTargets, blockMark)
	fb.continueTargets = append(fb.continueTargets, contMark)
	fb.lowerStmt(n.Body)
	fb.popLabel(contMark)
	fb.lowerStmt(n.Post)
	fb.breakTargets = fb.breakTargets[:len(fb.breakTargets)-1]
	fb.continueTargets = fb.continueTargets[:len(fb.continueTargets)-1]

	fb.emitByte(opBr)
	fb.emitULEB(fb.relDepth(loopMark))
	fb.popLabel(loopMark)
	fb.popLabel(blockMark)
}

// lowerSwitch lowers the same case-value list the native IR builder
// compiles (spec.md §4.3; internal/ir/builder.go's lowerSwitch) into N
// nested blocks, innermost first, so that popping one block per
// Case/Default marker encountered in n.Stmts order reproduces C
// fallthrough: falling off the end of one case's statements naturally
// reaches the next case's code because the next case's block hasn't
// closed yet. Dispatch is a sequential compare-and-br_if chain against
// the innermost block, not a br_table, mirroring emitx64's own
// compare-chain default for a sparse switch.
func (fb *funcBuilder) lowerSwitch(n *ast.Node) {
	outerMark := fb.pushLabel() // break target
	fb.emitByte(opBlock)
	fb.emitByte(blockTypeEmpty)

	marks := make([]int, len(n.Cases))
	for i := len(n.Cases) - 1; i >= 0; i-- {
		marks[i] = fb.pushLabel()
		fb.emitByte(opBlock)
		fb.emitByte(blockTypeEmpty)
	}

	discVT, _ := wasmValtype(n.Cond.Type)
	eqOp := byte(opI32Eq)
	if discVT == valI64 {
		eqOp = opI64Eq
	}
	defaultIdx := -1
	for i, cn := range n.Cases {
		if cn.Kind == ast.Default {
			defaultIdx = i
			continue
		}
		fb.lowerExpr(n.Cond)
		if discVT == valI64 {
			fb.emitByte(opI64Const)
			fb.emitSLEB(cn.IntVal)
		} else {
			fb.emitByte(opI32Const)
			fb.emitSLEB(cn.IntVal)
		}
		fb.emitByte(eqOp)
		fb.emitByte(opBrIf)
		fb.emitULEB(fb.relDepth(marks[i]))
	}
	if defaultIdx >= 0 {
		fb.emitByte(opBr)
		fb.emitULEB(fb.relDepth(marks[defaultIdx]))
	} else {
		fb.emitByte(opBr)
		fb.emitULEB(fb.relDepth(outerMark))
	}

	fb.breakTargets = append(fb.breakTargets, outerMark)
	ci := 0
	for _, s := range n.Stmts {
		if s.Kind == ast.Case || s.Kind == ast.Default {
			fb.popLabel(marks[ci])
			ci++
			continue
		}
		fb.lowerStmt(s)
	}
	fb.breakTargets = fb.breakTargets[:len(fb.breakTargets)-1]
	for ; ci < len(marks); ci++ {
		fb.popLabel(marks[ci])
	}
	fb.popLabel(outerMark)
}

// lowerCond lowers a condition expression and normalizes it to an i32
// 0/1 truth value for br_if's implicit pop, matching spec.md §4.3's
// pointer/aggregate-compared-against-zero normalization.
func (fb *funcBuilder) lowerCond(n *ast.Node) {
	fb.normalizeBool(n)
}

// normalizeBool lowers n and forces it to an i32 0/1 truth value via a
// double eqz, which also handles the i64->i32 narrowing an `if`/`br_if`
// condition needs (wasm's control-flow test opcodes only accept i32).
func (fb *funcBuilder) normalizeBool(n *ast.Node) {
	fb.lowerExpr(n)
	if isI64(n.Type) {
		fb.emitByte(opI64Eqz)
	} else {
		fb.emitByte(opI32Eqz)
	}
	fb.emitByte(opI32Eqz)
}

// negateI32 logically negates the i32 value currently on the stack top
// (the value is already normalized to 0/1 by lowerCond, so a single eqz
// is a correct boolean not).
func (fb *funcBuilder) negateI32() {
	fb.emitByte(opI32Eqz)
}

