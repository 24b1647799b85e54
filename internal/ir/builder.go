package ir

import (
	"math"

	"github.com/jainl28patel/xcc/internal/ast"
	"github.com/jainl28patel/xcc/internal/ctx"
	"github.com/jainl28patel/xcc/internal/types"
)

// Build lowers a complete translation unit into a Module, one function at a
// time, top-down over statements (spec.md §4.3). Globals and string data
// are collected directly from the symbol table; WebAssembly lowers from
// the AST independently and never touches this package (spec.md §9: "two
// emitters sharing a frontend but not a mid-end").
func Build(c *ctx.Context) *Module {
	mod := &Module{Strings: append([]string(nil), c.Strings...)}
	for _, sym := range c.Syms.InOrder() {
		switch sym.Kind {
		case ast.SymFunc:
			if sym.Body == nil {
				continue // prototype only, nothing to lower
			}
			b := newBuilder(c, mod)
			mod.Funcs = append(mod.Funcs, b.buildFunc(sym))
		case ast.SymGlobalVar:
			mod.Globals = append(mod.Globals, buildGlobal(sym))
		}
	}
	return mod
}

func buildGlobal(sym *ast.Symbol) *GlobalVar {
	v := sym.Var
	align := v.Type.Alignof()
	if align == 0 {
		align = 1
	}
	g := &GlobalVar{Name: v.Name, Size: v.Type.Sizeof(), Align: align, Exported: v.Exported, Imported: !v.IsDefined}
	if v.Init == nil {
		return g
	}
	switch v.Init.Kind {
	case ast.IntLit:
		g.Init = encodeInt(v.Init.IntVal, g.Size)
	case ast.FloatLit:
		g.Init = encodeFloat(v.Init.FloatVal, v.Type.Size)
	case ast.VarRef, ast.Addr:
		// Address-constant initializer (`&other` or a bare array/function
		// name decaying to its address): resolved by name at emit time.
		target := v.Init
		if target.Kind == ast.Addr {
			target = target.Lhs
		}
		if target != nil && target.Var != nil {
			g.InitRef = target.Var.Name
		} else if target != nil {
			g.InitRef = target.Name
		}
	default:
		g.Init = make([]byte, g.Size)
	}
	return g
}

func encodeInt(v int64, size int) []byte {
	b := make([]byte, size)
	for i := 0; i < size; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return b
}

func encodeFloat(v float64, size int) []byte {
	if size == 4 {
		bits := math.Float32bits(float32(v))
		return encodeInt(int64(bits), 4)
	}
	bits := math.Float64bits(v)
	return encodeInt(int64(bits), 8)
}

// builder carries one function's in-progress lowering state: the cursor
// block, the loop/switch exit stacks, and pending forward-goto patches.
type builder struct {
	c   *ctx.Context
	mod *Module
	fn  *Function
	cur *Block

	nextVReg  int
	nextBlock int

	breakStack    []*Block
	continueStack []*Block

	labels      map[string]*Block
	pendingGoto []gotoFixup
}

type gotoFixup struct {
	insn  *Instruction
	label string
}

func newBuilder(c *ctx.Context, mod *Module) *builder {
	return &builder{c: c, mod: mod, labels: map[string]*Block{}}
}

func (b *builder) newBlock(label string) *Block {
	bl := &Block{ID: b.nextBlock, Label: label}
	b.nextBlock++
	return bl
}

func (b *builder) appendBlock(bl *Block) {
	b.fn.Blocks = append(b.fn.Blocks, bl)
}

// switchTo makes bl the cursor, linking a fallthrough edge from the
// previous cursor block if it didn't already end in a branch.
func (b *builder) switchTo(bl *Block) {
	if b.cur != nil && !endsInBranch(b.cur) {
		b.jumpTo(bl)
	}
	b.appendBlock(bl)
	b.cur = bl
}

func endsInBranch(bl *Block) bool {
	if len(bl.Insns) == 0 {
		return false
	}
	op := bl.Insns[len(bl.Insns)-1].Op
	return op == OpBranch || op == OpCondBranch || op == OpTableBranch
}

func (b *builder) jumpTo(target *Block) *Instruction {
	i := &Instruction{Op: OpBranch, Target: target, Dst: -1, A: -1, B: -1}
	b.cur.Succs = append(b.cur.Succs, target)
	target.Preds = append(target.Preds, b.cur)
	return b.emit(i)
}

func (b *builder) condJump(condVReg int, thenB, elseB *Block) *Instruction {
	i := &Instruction{Op: OpCondBranch, Then: thenB, Else: elseB, Dst: -1, A: condVReg, B: -1}
	b.cur.Succs = append(b.cur.Succs, thenB, elseB)
	thenB.Preds = append(thenB.Preds, b.cur)
	elseB.Preds = append(elseB.Preds, b.cur)
	return b.emit(i)
}

func (b *builder) emit(i *Instruction) *Instruction {
	i.ID = len(b.fn.VRegs) // placeholder; renumbered densely after lowering
	b.cur.emit(i)
	return i
}

func (b *builder) newVReg(size, align int, flonum, unsigned bool) int {
	id := b.nextVReg
	b.nextVReg++
	vr := newVReg(id, size, align, flonum, unsigned)
	b.fn.VRegs = append(b.fn.VRegs, vr)
	return id
}

func (b *builder) newVRegFor(t *types.Type) int {
	size, align, flonum, unsigned := vtypeOf(t)
	return b.newVReg(size, align, flonum, unsigned)
}

func (b *builder) buildFunc(sym *ast.Symbol) *Function {
	retSize, _, retFlonum, _ := vtypeOf(sym.FuncType.Ret)
	b.fn = &Function{
		Name:      sym.Name,
		Exported:  sym.Exported,
		RetSize:   retSize,
		RetFlonum: retFlonum,
		RetVoid:   sym.FuncType.Ret.Kind == types.Void,
	}

	entry := b.newBlock(".entry")
	b.appendBlock(entry)
	b.cur = entry
	b.fn.Entry = entry

	for i, p := range sym.Params {
		vr := b.newVRegFor(p.Type)
		vreg := b.fn.VRegs[vr]
		vreg.Param = true
		vreg.ParamIndex = i
		p.VReg = vr
		b.fn.Params = append(b.fn.Params, vr)
	}

	b.lowerStmt(sym.Body)

	// Patch forward gotos now that every label in the function has a block
	// (spec.md §4.3: "unresolved forward gotos are patched after the
	// function body is complete").
	for _, fx := range b.pendingGoto {
		target, ok := b.labels[fx.label]
		if !ok {
			c := b.c
			c.Diags.Errorf(c.Pos0(), "goto to undeclared label %q", fx.label)
			continue
		}
		fx.insn.Target = target
	}

	renumber(b.fn)
	return b.fn
}

// renumber assigns dense, block-order instruction ids, which the register
// allocator uses directly as the live-interval timeline (spec.md §3 "a
// vreg's lifetime begins at its first definition-index").
func renumber(fn *Function) {
	id := 0
	for _, bl := range fn.Blocks {
		for _, in := range bl.Insns {
			in.ID = id
			id++
		}
	}
}

func (b *builder) lowerStmt(n *ast.Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case ast.Block:
		for _, s := range n.Stmts {
			b.lowerStmt(s)
		}
	case ast.DeclStmt:
		for _, v := range n.Decls {
			vr := b.newVRegFor(v.Type)
			v.VReg = vr
			if v.Init != nil {
				val := b.lowerExpr(v.Init)
				b.emit(&Instruction{Op: OpMov, Dst: vr, A: val, B: -1})
			}
		}
	case ast.ExprStmt:
		if n.Lhs != nil {
			b.lowerExpr(n.Lhs)
		}
	case ast.If:
		b.lowerIf(n)
	case ast.While:
		b.lowerWhile(n)
	case ast.DoWhile:
		b.lowerDoWhile(n)
	case ast.For:
		b.lowerFor(n)
	case ast.Switch:
		b.lowerSwitch(n)
	case ast.Break:
		if len(b.breakStack) > 0 {
			b.jumpTo(b.breakStack[len(b.breakStack)-1])
			b.cur = b.newBlock(".afterbreak")
			b.appendBlock(b.cur)
		}
	case ast.Continue:
		if len(b.continueStack) > 0 {
			b.jumpTo(b.continueStack[len(b.continueStack)-1])
			b.cur = b.newBlock(".aftercontinue")
			b.appendBlock(b.cur)
		}
	case ast.Return:
		var v int = -1
		if n.Lhs != nil {
			v = b.lowerExpr(n.Lhs)
		}
		b.emit(&Instruction{Op: OpResult, Dst: -1, A: v, B: -1})
		b.cur = b.newBlock(".afterreturn")
		b.appendBlock(b.cur)
	case ast.Label:
		target, ok := b.labels[n.Label]
		if !ok {
			target = b.newBlock(".L" + n.Label)
			b.labels[n.Label] = target
		}
		b.switchTo(target)
	case ast.Goto:
		target, ok := b.labels[n.Label]
		if ok {
			b.jumpTo(target)
		} else {
			insn := b.jumpTo(b.newBlock(".gotoplaceholder"))
			// Replace the placeholder target once the label block exists.
			insn.Target = nil
			b.pendingGoto = append(b.pendingGoto, gotoFixup{insn: insn, label: n.Label})
		}
		b.cur = b.newBlock(".aftergoto")
		b.appendBlock(b.cur)
	case ast.InlineAsm:
		b.emit(&Instruction{Op: OpInlineAsm, AsmText: n.AsmText, Dst: -1, A: -1, B: -1})
	}
}

func (b *builder) lowerIf(n *ast.Node) {
	thenB := b.newBlock(b.c.NewLabel(ctx.LabelIfElse))
	endB := b.newBlock(b.c.NewLabel(ctx.LabelIfEnd))
	elseB := endB
	if n.Else != nil {
		elseB = b.newBlock(b.c.NewLabel(ctx.LabelIfElse))
	}

	cond := b.lowerCond(n.Cond)
	b.condJump(cond, thenB, elseB)

	b.switchTo(thenB)
	b.lowerStmt(n.Then)
	b.jumpTo(endB)

	if n.Else != nil {
		b.switchTo(elseB)
		b.lowerStmt(n.Else)
		b.jumpTo(endB)
	}

	b.switchTo(endB)
}

func (b *builder) lowerWhile(n *ast.Node) {
	head := b.newBlock(b.c.NewLabel(ctx.LabelWhileHead))
	body := b.newBlock(".whilebody")
	end := b.newBlock(b.c.NewLabel(ctx.LabelWhileEnd))

	b.switchTo(head)
	cond := b.lowerCond(n.Cond)
	b.condJump(cond, body, end)

	b.breakStack = append(b.breakStack, end)
	b.continueStack = append(b.continueStack, head)
	b.switchTo(body)
	b.lowerStmt(n.Body)
	b.jumpTo(head)
	b.breakStack = b.breakStack[:len(b.breakStack)-1]
	b.continueStack = b.continueStack[:len(b.continueStack)-1]

	b.switchTo(end)
}

func (b *builder) lowerDoWhile(n *ast.Node) {
	body := b.newBlock(b.c.NewLabel(ctx.LabelDoHead))
	condB := b.newBlock(b.c.NewLabel(ctx.LabelDoCond))
	end := b.newBlock(".doend")

	b.switchTo(body)
	b.breakStack = append(b.breakStack, end)
	b.continueStack = append(b.continueStack, condB)
	b.lowerStmt(n.Body)
	b.breakStack = b.breakStack[:len(b.breakStack)-1]
	b.continueStack = b.continueStack[:len(b.continueStack)-1]
	b.jumpTo(condB)

	b.switchTo(condB)
	cond := b.lowerCond(n.Cond)
	b.condJump(cond, body, end)

	b.switchTo(end)
}

func (b *builder) lowerFor(n *ast.Node) {
	if n.Init != nil {
		b.lowerStmt(n.Init)
	}
	head := b.newBlock(b.c.NewLabel(ctx.LabelForHead))
	body := b.newBlock(".forbody")
	post := b.newBlock(b.c.NewLabel(ctx.LabelForPost))
	end := b.newBlock(b.c.NewLabel(ctx.LabelForEnd))

	b.switchTo(head)
	if n.Cond != nil {
		cond := b.lowerCond(n.Cond)
		b.condJump(cond, body, end)
	} else {
		b.jumpTo(body)
	}

	b.breakStack = append(b.breakStack, end)
	b.continueStack = append(b.continueStack, post)
	b.switchTo(body)
	b.lowerStmt(n.Body)
	b.jumpTo(post)
	b.breakStack = b.breakStack[:len(b.breakStack)-1]
	b.continueStack = b.continueStack[:len(b.continueStack)-1]

	b.switchTo(post)
	if n.Post != nil {
		b.lowerStmt(n.Post)
	}
	b.jumpTo(head)

	b.switchTo(end)
}

// lowerSwitch compiles the case-value list collected at parse time into a
// compare-and-branch chain (spec.md §4.3); a dense-and-profitable table
// dispatch is the back end's prerogative, not the builder's, so every
// switch lowers uniformly here and emitx64 may later recognize the chain
// shape and rewrite it into a jump table.
func (b *builder) lowerSwitch(n *ast.Node) {
	end := b.newBlock(b.c.NewLabel(ctx.LabelSwitchEnd))
	disc := b.lowerExpr(n.Cond)

	// One block per Case/Default marker, in source order, so statements
	// between two labels fall through naturally via switchTo's implicit
	// fallthrough edge (spec.md §4.3: "switch: all case values collected
	// at parse time; the back-end lowers to a compare-and-branch chain").
	caseBlocks := make([]*Block, len(n.Cases))
	for i := range n.Cases {
		caseBlocks[i] = b.newBlock(b.c.NewLabel(ctx.LabelSwitchCase))
	}
	defaultB := end
	for i, cn := range n.Cases {
		if cn.Kind == ast.Default {
			defaultB = caseBlocks[i]
		}
	}

	dispatch := b.cur
	ci := 0
	for _, cn := range n.Cases {
		if cn.Kind == ast.Default {
			ci++
			continue
		}
		b.cur = dispatch
		cmp := b.newVReg(4, 4, false, false)
		b.emit(&Instruction{Op: OpCompare, Sub: CmpEq, Dst: cmp, A: disc, B: b.constInt(cn.IntVal, n.Cond.Type)})
		fall := b.newBlock(".switchnext")
		b.condJump(cmp, caseBlocks[ci], fall)
		b.appendBlock(fall)
		dispatch = fall
		ci++
	}
	b.cur = dispatch
	b.jumpTo(defaultB)

	b.breakStack = append(b.breakStack, end)
	ci = 0
	for _, s := range n.Stmts {
		if s.Kind == ast.Case || s.Kind == ast.Default {
			b.switchTo(caseBlocks[ci])
			ci++
			continue
		}
		b.lowerStmt(s)
	}
	b.breakStack = b.breakStack[:len(b.breakStack)-1]
	b.jumpTo(end)

	b.switchTo(end)
}

// lowerCond lowers a condition expression to a single vreg with no 0/1
// normalization; the consuming branch tests that vreg against zero.
func (b *builder) lowerCond(n *ast.Node) int {
	return b.lowerExpr(n)
}

func (b *builder) constInt(v int64, t *types.Type) int {
	size, align, flonum, unsigned := vtypeOf(t)
	vr := b.newVReg(size, align, flonum, unsigned)
	reg := b.fn.VRegs[vr]
	reg.IsConst = true
	reg.ConstVal = v
	return vr
}
