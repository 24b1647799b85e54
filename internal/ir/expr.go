package ir

import (
	"github.com/jainl28patel/xcc/internal/ast"
	"github.com/jainl28patel/xcc/internal/types"
)

// lowerExpr lowers one expression, producing a result vreg (spec.md §4.3:
// "each produces a result vreg (except void)"). Returns -1 for a void-typed
// expression (e.g. a call to a void function used as a statement).
func (b *builder) lowerExpr(n *ast.Node) int {
	switch n.Kind {
	case ast.IntLit:
		return b.constValue(n)
	case ast.FloatLit:
		return b.constValue(n)
	case ast.StringLit:
		return b.stringRef(n)
	case ast.VarRef:
		return b.loadVar(n)
	case ast.Deref:
		addr := b.lowerExpr(n.Lhs)
		return b.loadAt(addr, 0, n.Type)
	case ast.Addr:
		return b.lowerAddr(n.Lhs)
	case ast.Member:
		addr, m := b.memberAddr(n)
		return b.loadMember(addr, m, n.Type)
	case ast.Unary:
		return b.lowerUnary(n)
	case ast.Binary:
		return b.lowerBinary(n)
	case ast.LogAnd, ast.LogOr:
		return b.lowerShortCircuit(n)
	case ast.Assign:
		return b.lowerAssign(n)
	case ast.CompoundAssign:
		return b.lowerCompoundAssign(n)
	case ast.PreIncDec:
		return b.lowerIncDec(n, true)
	case ast.PostIncDec:
		return b.lowerIncDec(n, false)
	case ast.Call:
		return b.lowerCall(n)
	case ast.Cast:
		return b.lowerCast(n)
	case ast.Ternary:
		return b.lowerTernary(n)
	case ast.Comma:
		b.lowerExpr(n.Lhs)
		return b.lowerExpr(n.Rhs)
	case ast.CompoundLiteral:
		return b.lowerCompoundLiteral(n)
	case ast.BlockExpr:
		for i, s := range n.Stmts {
			if i == len(n.Stmts)-1 && s.Kind == ast.ExprStmt {
				return b.lowerExpr(s.Lhs)
			}
			b.lowerStmt(s)
		}
		return -1
	}
	return -1
}

func (b *builder) constValue(n *ast.Node) int {
	size, align, flonum, unsigned := vtypeOf(n.Type)
	vr := b.newVReg(size, align, flonum, unsigned)
	reg := b.fn.VRegs[vr]
	reg.IsConst = true
	if n.Kind == ast.FloatLit {
		reg.ConstFlt = n.FloatVal
	} else {
		reg.ConstVal = n.IntVal
	}
	return vr
}

func (b *builder) stringRef(n *ast.Node) int {
	vr := b.newVReg(8, 8, false, false)
	reg := b.fn.VRegs[vr]
	reg.IsStrRef = true
	reg.StrIdx = n.StringIdx
	return vr
}

// loadVar reads a scalar local/global/parameter by value. Aggregates
// (struct/union/array) are never loaded whole into a single vreg; callers
// that need an aggregate's storage use lowerAddr instead (spec.md §4.2
// point 3's array-decay rule and the struct-by-value call-lowering note in
// §4.3 both route through an address, never a byte-for-byte vreg copy).
func (b *builder) loadVar(n *ast.Node) int {
	v := n.Var
	if v == nil {
		// A bare function name decays to its address (spec.md §4.2 point
		// 3's decay rule, extended to function designators).
		return b.globalAddr(n.Name)
	}
	if v.Type.Kind == types.Array || v.Type.IsAggregate() {
		return b.lowerAddr(n)
	}
	if v.Storage == ast.StorageAuto && !v.IsParam {
		return v.VReg
	}
	if v.IsParam {
		return v.VReg
	}
	if v.Storage == ast.StorageEnumMember {
		return b.constIntTyped(v.EnumValue, n.Type)
	}
	// Static locals and globals live at a named address.
	addr := b.globalAddr(v.Name)
	return b.loadAt(addr, 0, n.Type)
}

func (b *builder) constIntTyped(v int64, t *types.Type) int {
	size, align, flonum, unsigned := vtypeOf(t)
	vr := b.newVReg(size, align, flonum, unsigned)
	b.fn.VRegs[vr].IsConst = true
	b.fn.VRegs[vr].ConstVal = v
	return vr
}

func (b *builder) globalAddr(name string) int {
	vr := b.newVReg(8, 8, false, false)
	b.emit(&Instruction{Op: OpBaseOffset, Dst: vr, A: -1, B: -1, Callee: name})
	return vr
}

// lowerAddr computes an lvalue's address without loading through it
// (spec.md §4.2 point 3: address-of requires an lvalue operand).
func (b *builder) lowerAddr(n *ast.Node) int {
	switch n.Kind {
	case ast.VarRef:
		v := n.Var
		if v.Storage == ast.StorageAuto && !v.IsParam {
			vr := b.newVReg(8, 8, false, false)
			b.fn.VRegs[v.VReg].Ref = true
			b.emit(&Instruction{Op: OpStackOffset, Dst: vr, A: v.VReg, B: -1})
			return vr
		}
		return b.globalAddr(v.Name)
	case ast.Deref:
		return b.lowerExpr(n.Lhs)
	case ast.Member:
		addr, _ := b.memberAddr(n)
		return addr
	}
	// Fallback: evaluate and spill to a synthetic temporary (compound
	// literals, string literals used as an array address, etc.).
	return b.lowerExpr(n)
}

func (b *builder) memberAddr(n *ast.Node) (int, *types.Member) {
	var base int
	if n.Lhs.Type.Kind == types.Ptr {
		base = b.lowerExpr(n.Lhs)
	} else {
		base = b.lowerAddr(n.Lhs)
	}
	m := n.MemberInfo
	addr := b.newVReg(8, 8, false, false)
	b.emit(&Instruction{Op: OpImmOffset, Dst: addr, A: base, B: -1, Offset: int64(m.Offset)})
	return addr, m
}

func (b *builder) loadMember(addr int, m *types.Member, t *types.Type) int {
	val := b.loadAt(addr, 0, t)
	if m.Width == 0 {
		return val
	}
	shifted := b.newVRegFor(t)
	b.emit(&Instruction{Op: OpBinary, Sub: Shr, Dst: shifted, A: val, B: b.constIntTyped(int64(m.Position), types.TInt)})
	mask := int64(1)<<uint(m.Width) - 1
	out := b.newVRegFor(t)
	b.emit(&Instruction{Op: OpBinary, Sub: And, Dst: out, A: shifted, B: b.constIntTyped(mask, types.TInt)})
	return out
}

func (b *builder) loadAt(addr int, offset int64, t *types.Type) int {
	size, align, flonum, unsigned := vtypeOf(t)
	dst := b.newVReg(size, align, flonum, unsigned)
	b.emit(&Instruction{Op: OpLoad, Dst: dst, A: addr, B: -1, Offset: offset, DstSize: size, DstFlonum: flonum})
	return dst
}

func (b *builder) storeAt(addr int, offset int64, val int, t *types.Type) {
	size, _, flonum, _ := vtypeOf(t)
	b.emit(&Instruction{Op: OpStore, Dst: -1, A: addr, B: val, Offset: offset, SrcSize: size, SrcFlonum: flonum})
}

func arithOpFor(op ast.BinOp, flonum bool) ArithOp {
	if flonum {
		switch op {
		case ast.OpAdd:
			return FAdd
		case ast.OpSub:
			return FSub
		case ast.OpMul:
			return FMul
		case ast.OpDiv:
			return FDiv
		case ast.OpEq:
			return FCmpEq
		case ast.OpNeq:
			return FCmpNe
		case ast.OpLt:
			return FCmpLt
		case ast.OpLe:
			return FCmpLe
		case ast.OpGt:
			return FCmpGt
		case ast.OpGe:
			return FCmpGe
		}
	}
	switch op {
	case ast.OpAdd:
		return Add
	case ast.OpSub:
		return Sub
	case ast.OpMul:
		return Mul
	case ast.OpDiv:
		return Div
	case ast.OpMod:
		return Mod
	case ast.OpBitAnd:
		return And
	case ast.OpBitOr:
		return Or
	case ast.OpBitXor:
		return Xor
	case ast.OpShl:
		return Shl
	case ast.OpShr:
		return Sar
	case ast.OpEq:
		return CmpEq
	case ast.OpNeq:
		return CmpNe
	case ast.OpLt:
		return CmpLt
	case ast.OpLe:
		return CmpLe
	case ast.OpGt:
		return CmpGt
	case ast.OpGe:
		return CmpGe
	}
	return Add
}

func isCompare(op ast.BinOp) bool {
	switch op {
	case ast.OpEq, ast.OpNeq, ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		return true
	}
	return false
}

func (b *builder) lowerBinary(n *ast.Node) int {
	lhs := b.lowerExpr(n.Lhs)
	rhs := b.lowerExpr(n.Rhs)
	_, _, flonum, unsigned := vtypeOf(n.Lhs.Type)
	sub := arithOpFor(n.Op, flonum)
	if !flonum && unsigned {
		switch sub {
		case Div:
			sub = UDiv
		case Mod:
			sub = UMod
		case Sar:
			sub = Shr // unsigned right shift is logical, not arithmetic
		case CmpLt:
			sub = CmpLtU
		case CmpLe:
			sub = CmpLeU
		case CmpGt:
			sub = CmpGtU
		case CmpGe:
			sub = CmpGeU
		}
	}
	op := OpBinary
	if isCompare(n.Op) {
		op = OpCompare
	}
	dst := b.newVRegFor(n.Type)
	b.emit(&Instruction{Op: op, Sub: sub, Dst: dst, A: lhs, B: rhs})
	return dst
}

func (b *builder) lowerUnary(n *ast.Node) int {
	v := b.lowerExpr(n.Lhs)
	_, _, flonum, _ := vtypeOf(n.Lhs.Type)
	var sub ArithOp
	switch n.Op {
	case ast.OpNeg:
		if flonum {
			sub = FNeg
		} else {
			sub = Neg
		}
	case ast.OpNot:
		sub = Not
	case ast.OpBitNot:
		sub = BitNot
	}
	dst := b.newVRegFor(n.Type)
	b.emit(&Instruction{Op: OpUnary, Sub: sub, Dst: dst, A: v, B: -1})
	return dst
}

// lowerShortCircuit lowers `&&`/`||` into their own branch CFG, with a
// result vreg written on each arm (spec.md §4.3).
func (b *builder) lowerShortCircuit(n *ast.Node) int {
	result := b.newVRegFor(n.Type)
	rhsB := b.newBlock(".scrhs")
	shortB := b.newBlock(".scshort")
	endB := b.newBlock(".scend")

	lhs := b.lowerExpr(n.Lhs)
	if n.Kind == ast.LogAnd {
		b.condJump(lhs, rhsB, shortB)
	} else {
		b.condJump(lhs, shortB, rhsB)
	}

	b.switchTo(shortB)
	shortVal := int64(0)
	if n.Kind == ast.LogOr {
		shortVal = 1
	}
	b.emit(&Instruction{Op: OpMov, Dst: result, A: b.constIntTyped(shortVal, n.Type), B: -1})
	b.jumpTo(endB)

	b.switchTo(rhsB)
	rhs := b.lowerExpr(n.Rhs)
	normalized := b.newVRegFor(n.Type)
	b.emit(&Instruction{Op: OpCompare, Sub: CmpNe, Dst: normalized, A: rhs, B: b.constIntTyped(0, n.Rhs.Type)})
	b.emit(&Instruction{Op: OpMov, Dst: result, A: normalized, B: -1})
	b.jumpTo(endB)

	b.switchTo(endB)
	return result
}

func (b *builder) lowerAssign(n *ast.Node) int {
	val := b.lowerExpr(n.Rhs)
	b.storeToLvalue(n.Lhs, val)
	return val
}

func (b *builder) storeToLvalue(lhs *ast.Node, val int) {
	switch lhs.Kind {
	case ast.VarRef:
		v := lhs.Var
		if v.Storage == ast.StorageAuto && !v.IsParam {
			b.emit(&Instruction{Op: OpMov, Dst: v.VReg, A: val, B: -1})
			return
		}
		if v.IsParam {
			b.emit(&Instruction{Op: OpMov, Dst: v.VReg, A: val, B: -1})
			return
		}
		addr := b.globalAddr(v.Name)
		b.storeAt(addr, 0, val, lhs.Type)
	case ast.Deref:
		addr := b.lowerExpr(lhs.Lhs)
		b.storeAt(addr, 0, val, lhs.Type)
	case ast.Member:
		addr, m := b.memberAddr(lhs)
		if m.Width == 0 {
			b.storeAt(addr, 0, val, lhs.Type)
			return
		}
		b.storeBitfield(addr, m, val)
	}
}

func (b *builder) storeBitfield(addr int, m *types.Member, val int) {
	unit := b.loadAt(addr, 0, m.Type)
	mask := int64(1)<<uint(m.Width) - 1
	shifted := b.newVReg(m.Type.Size, m.Type.Size, false, true)
	b.emit(&Instruction{Op: OpBinary, Sub: Shl, Dst: shifted, A: val, B: b.constIntTyped(int64(m.Position), types.TInt)})
	cleared := b.newVReg(m.Type.Size, m.Type.Size, false, true)
	invMask := ^(mask << uint(m.Position))
	b.emit(&Instruction{Op: OpBinary, Sub: And, Dst: cleared, A: unit, B: b.constIntTyped(invMask, m.Type)})
	merged := b.newVReg(m.Type.Size, m.Type.Size, false, true)
	b.emit(&Instruction{Op: OpBinary, Sub: Or, Dst: merged, A: cleared, B: shifted})
	b.storeAt(addr, 0, merged, m.Type)
}

func (b *builder) lowerCompoundAssign(n *ast.Node) int {
	// Non-var targets compute their address once, load, combine, store
	// (spec.md §4.3).
	if n.Lhs.Kind != ast.VarRef {
		addr := b.lowerAddr(n.Lhs)
		cur := b.loadAt(addr, 0, n.Lhs.Type)
		rhs := b.lowerExpr(n.Rhs)
		combined := b.combine(n.Op, cur, rhs, n.Type)
		b.storeAt(addr, 0, combined, n.Lhs.Type)
		return combined
	}
	cur := b.lowerExpr(n.Lhs)
	rhs := b.lowerExpr(n.Rhs)
	combined := b.combine(n.Op, cur, rhs, n.Type)
	b.storeToLvalue(n.Lhs, combined)
	return combined
}

func (b *builder) combine(op ast.BinOp, lhs, rhs int, t *types.Type) int {
	_, _, flonum, _ := vtypeOf(t)
	dst := b.newVRegFor(t)
	b.emit(&Instruction{Op: OpBinary, Sub: arithOpFor(op, flonum), Dst: dst, A: lhs, B: rhs})
	return dst
}

func (b *builder) lowerIncDec(n *ast.Node, pre bool) int {
	cur := b.lowerExpr(n.Lhs)
	step := int64(1)
	if n.Op == ast.OpSub {
		step = -1
	}
	delta := step
	if n.Lhs.Type.Kind == types.Ptr {
		delta *= int64(n.Lhs.Type.Base().Sizeof())
	}
	next := b.newVRegFor(n.Lhs.Type)
	b.emit(&Instruction{Op: OpBinary, Sub: Add, Dst: next, A: cur, B: b.constIntTyped(delta, n.Lhs.Type)})
	b.storeToLvalue(n.Lhs, next)
	if pre {
		return next
	}
	return cur
}

func (b *builder) lowerCast(n *ast.Node) int {
	src := b.lowerExpr(n.Lhs)
	srcSize, _, srcFlonum, srcUnsigned := vtypeOf(n.Lhs.Type)
	dstSize, dstAlign, dstFlonum, dstUnsigned := vtypeOf(n.CastType)
	if srcSize == dstSize && srcFlonum == dstFlonum && n.Lhs.Type.Kind != types.Array {
		return src
	}
	dst := b.newVReg(dstSize, dstAlign, dstFlonum, dstUnsigned)
	b.emit(&Instruction{
		Op: OpCast, Dst: dst, A: src, B: -1,
		SrcSize: srcSize, SrcFlonum: srcFlonum, SrcUnsigned: srcUnsigned,
		DstSize: dstSize, DstFlonum: dstFlonum,
	})
	return dst
}

func (b *builder) lowerTernary(n *ast.Node) int {
	result := b.newVRegFor(n.Type)
	thenB := b.newBlock(".ternthen")
	elseB := b.newBlock(".ternelse")
	endB := b.newBlock(".ternend")

	cond := b.lowerExpr(n.Cond)
	b.condJump(cond, thenB, elseB)

	b.switchTo(thenB)
	v1 := b.lowerExpr(n.Then)
	b.emit(&Instruction{Op: OpMov, Dst: result, A: v1, B: -1})
	b.jumpTo(endB)

	b.switchTo(elseB)
	v2 := b.lowerExpr(n.Else)
	b.emit(&Instruction{Op: OpMov, Dst: result, A: v2, B: -1})
	b.jumpTo(endB)

	b.switchTo(endB)
	return result
}

func (b *builder) lowerCompoundLiteral(n *ast.Node) int {
	v := n.Hidden
	vr := b.newVRegFor(n.Type)
	v.VReg = vr
	b.fn.VRegs[vr].Ref = true
	addr := b.newVReg(8, 8, false, false)
	b.emit(&Instruction{Op: OpStackOffset, Dst: addr, A: vr, B: -1})
	for i, elemInit := range n.Args {
		val := b.lowerExpr(elemInit)
		off := int64(i) * int64(n.Type.Base().Sizeof())
		b.storeAt(addr, off, val, n.Type.Base())
	}
	return addr
}

// lowerCall implements spec.md §4.3's calling-convention lowering: funarg
// simplification, precall, right-to-left argument evaluation into
// register/stack slots, call, subtract-stack-pointer reversal.
func (b *builder) lowerCall(n *ast.Node) int {
	args := simplifyFunargs(b, n.Args)

	b.emit(&Instruction{Op: OpPrecall, Dst: -1, A: -1, B: -1})

	argVRegs := make([]int, len(args))
	for i := len(args) - 1; i >= 0; i-- {
		argVRegs[i] = b.lowerExpr(args[i])
	}
	for i, av := range argVRegs {
		b.emit(&Instruction{Op: OpPushArg, Dst: -1, A: av, B: -1, ArgIndex: i})
	}

	callee := ""
	indirectOn := -1
	if n.Callee.Kind == ast.VarRef && n.Callee.Var == nil {
		callee = n.Callee.Name
	} else {
		indirectOn = b.lowerExpr(n.Callee)
	}

	retSize, _, retFlonum, _ := vtypeOf(n.Type)
	var dst int = -1
	if n.Type.Kind != types.Void {
		dst = b.newVRegFor(n.Type)
	}
	b.emit(&Instruction{
		Op: OpCall, Dst: dst, A: -1, B: -1,
		Callee: callee, IndirectOn: indirectOn,
		ArgCount: len(args), ResultSize: retSize, ResultFlonum: retFlonum,
	})
	b.emit(&Instruction{Op: OpSubSP, Dst: -1, A: -1, B: -1, Offset: int64(len(args))})
	return dst
}

// simplifyFunargs hoists any argument expression whose evaluation itself
// performs a call, or clobbers fixed argument-passing registers (mul/div),
// into a local temporary evaluated before the call (spec.md §4.3's funarg
// simplification sub-pass), so argument evaluation never nests a call in a
// way that would corrupt the ABI.
func simplifyFunargs(b *builder, args []*ast.Node) []*ast.Node {
	out := make([]*ast.Node, len(args))
	for i, a := range args {
		if containsCallOrClobber(a) {
			val := b.lowerExpr(a)
			tmp := b.newVRegFor(a.Type)
			b.emit(&Instruction{Op: OpMov, Dst: tmp, A: val, B: -1})
			out[i] = &ast.Node{Kind: ast.VarRef, Type: a.Type, Var: &ast.VarInfo{Type: a.Type, VReg: tmp, Storage: ast.StorageAuto}}
		} else {
			out[i] = a
		}
	}
	return out
}

func containsCallOrClobber(n *ast.Node) bool {
	if n == nil {
		return false
	}
	switch n.Kind {
	case ast.Call:
		return true
	case ast.Binary:
		if n.Op == ast.OpMul || n.Op == ast.OpDiv || n.Op == ast.OpMod {
			return true
		}
	}
	return containsCallOrClobber(n.Lhs) || containsCallOrClobber(n.Rhs) ||
		containsCallOrClobber(n.Cond) || containsCallOrClobber(n.Then) || containsCallOrClobber(n.Else)
}
