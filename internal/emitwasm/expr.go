package emitwasm

import (
	"github.com/jainl28patel/xcc/internal/ast"
	"github.com/jainl28patel/xcc/internal/types"
)

// lowerExpr lowers one expression onto the wasm operand stack, reporting
// whether it produced no value (a call to a void function used as a
// statement) -- the wasm analogue of internal/ir/expr.go's "-1 for void"
// convention, since there is no vreg here to leave unset.
func (fb *funcBuilder) lowerExpr(n *ast.Node) bool {
	switch n.Kind {
	case ast.IntLit:
		fb.pushConst(n.IntVal, n.Type)
		return false
	case ast.FloatLit:
		fb.diagUnsupported(n, "floating-point literals are not supported by the WebAssembly backend")
		fb.pushConst(0, n.Type)
		return false
	case ast.StringLit:
		fb.diagUnsupported(n, "string literals are not supported by the WebAssembly backend (no linear memory is declared)")
		fb.emitByte(opI32Const)
		fb.emitSLEB(0)
		return false
	case ast.VarRef:
		return fb.lowerVarRef(n)
	case ast.Deref, ast.Addr, ast.Member, ast.CompoundLiteral:
		fb.diagUnsupported(n, "%s requires a linear-memory model the WebAssembly backend does not provide", n.Kind)
		fb.emitByte(opI32Const)
		fb.emitSLEB(0)
		return false
	case ast.Unary:
		return fb.lowerUnary(n)
	case ast.Binary:
		fb.lowerBinary(n)
		return false
	case ast.LogAnd, ast.LogOr:
		fb.lowerLogical(n)
		return false
	case ast.Assign:
		return fb.lowerAssign(n)
	case ast.CompoundAssign:
		return fb.lowerCompoundAssign(n)
	case ast.PreIncDec:
		return fb.lowerIncDec(n, true)
	case ast.PostIncDec:
		return fb.lowerIncDec(n, false)
	case ast.Call:
		return fb.lowerCall(n)
	case ast.Cast:
		return fb.lowerCast(n)
	case ast.Ternary:
		fb.lowerTernary(n)
		return false
	case ast.Comma:
		if !fb.lowerExpr(n.Lhs) {
			fb.emitByte(opDrop)
		}
		return fb.lowerExpr(n.Rhs)
	case ast.BlockExpr:
		for i, s := range n.Stmts {
			if i == len(n.Stmts)-1 && s.Kind == ast.ExprStmt {
				return fb.lowerExpr(s.Lhs)
			}
			fb.lowerStmt(s)
		}
		return true
	}
	fb.diagUnsupported(n, "unsupported expression kind %s in the WebAssembly backend", n.Kind)
	fb.emitByte(opI32Const)
	fb.emitSLEB(0)
	return false
}

func (fb *funcBuilder) pushConst(v int64, t *types.Type) {
	if isI64(t) {
		fb.emitByte(opI64Const)
	} else {
		fb.emitByte(opI32Const)
	}
	fb.emitSLEB(v)
}

func (fb *funcBuilder) lowerVarRef(n *ast.Node) bool {
	v := n.Var
	if v == nil {
		fb.diagUnsupported(n, "a function designator used as a value is not supported by the WebAssembly backend")
		fb.emitByte(opI32Const)
		fb.emitSLEB(0)
		return false
	}
	if v.Storage == ast.StorageEnumMember {
		fb.pushConst(v.EnumValue, n.Type)
		return false
	}
	if idx, ok := fb.locals[v]; ok {
		fb.emitByte(opLocalGet)
		fb.emitULEB(uint64(idx))
		return false
	}
	if idx, ok := fb.globalIndex[v]; ok {
		fb.emitByte(opGlobalGet)
		fb.emitULEB(uint64(idx))
		return false
	}
	fb.diagUnsupported(n, "variable %q has no WebAssembly storage (an extern global?)", v.Name)
	fb.emitByte(opI32Const)
	fb.emitSLEB(0)
	return false
}

// binClass reports the operand width/signedness lowerBinary and
// lowerCompoundAssign key their opcode choice on; pointers compare and
// add as unsigned i32 addresses.
func binClass(t *types.Type) (wide64, unsigned bool) {
	if t.Kind == types.Ptr {
		return false, true
	}
	return isI64(t), t.Unsigned
}

func binOpcode(op ast.BinOp, wide64, unsigned bool) byte {
	if wide64 {
		switch op {
		case ast.OpAdd:
			return opI64Add
		case ast.OpSub:
			return opI64Sub
		case ast.OpMul:
			return opI64Mul
		case ast.OpDiv:
			if unsigned {
				return opI64DivU
			}
			return opI64DivS
		case ast.OpMod:
			if unsigned {
				return opI64RemU
			}
			return opI64RemS
		case ast.OpBitAnd:
			return opI64And
		case ast.OpBitOr:
			return opI64Or
		case ast.OpBitXor:
			return opI64Xor
		case ast.OpShl:
			return opI64Shl
		case ast.OpShr:
			if unsigned {
				return opI64ShrU
			}
			return opI64ShrS
		case ast.OpEq:
			return opI64Eq
		case ast.OpNeq:
			return opI64Ne
		case ast.OpLt:
			if unsigned {
				return opI64LtU
			}
			return opI64LtS
		case ast.OpLe:
			if unsigned {
				return opI64LeU
			}
			return opI64LeS
		case ast.OpGt:
			if unsigned {
				return opI64GtU
			}
			return opI64GtS
		case ast.OpGe:
			if unsigned {
				return opI64GeU
			}
			return opI64GeS
		}
		return opI64Add
	}
	switch op {
	case ast.OpAdd:
		return opI32Add
	case ast.OpSub:
		return opI32Sub
	case ast.OpMul:
		return opI32Mul
	case ast.OpDiv:
		if unsigned {
			return opI32DivU
		}
		return opI32DivS
	case ast.OpMod:
		if unsigned {
			return opI32RemU
		}
		return opI32RemS
	case ast.OpBitAnd:
		return opI32And
	case ast.OpBitOr:
		return opI32Or
	case ast.OpBitXor:
		return opI32Xor
	case ast.OpShl:
		return opI32Shl
	case ast.OpShr:
		if unsigned {
			return opI32ShrU
		}
		return opI32ShrS
	case ast.OpEq:
		return opI32Eq
	case ast.OpNeq:
		return opI32Ne
	case ast.OpLt:
		if unsigned {
			return opI32LtU
		}
		return opI32LtS
	case ast.OpLe:
		if unsigned {
			return opI32LeU
		}
		return opI32LeS
	case ast.OpGt:
		if unsigned {
			return opI32GtU
		}
		return opI32GtS
	case ast.OpGe:
		if unsigned {
			return opI32GeU
		}
		return opI32GeS
	}
	return opI32Add
}

// lowerBinary evaluates both operands left-to-right and applies the
// opcode binClass/binOpcode select. Pointer arithmetic is not scaled
// here: the parser's buildBinary has already multiplied the integer
// operand of a pointer add/sub by the pointee size, as the native
// backend's lowerBinary also relies on.
func (fb *funcBuilder) lowerBinary(n *ast.Node) {
	fb.lowerExpr(n.Lhs)
	fb.lowerExpr(n.Rhs)
	wide64, unsigned := binClass(n.Lhs.Type)
	fb.emitByte(binOpcode(n.Op, wide64, unsigned))
}

func (fb *funcBuilder) lowerUnary(n *ast.Node) bool {
	switch n.Op {
	case ast.OpNeg:
		fb.pushConst(0, n.Lhs.Type)
		fb.lowerExpr(n.Lhs)
		if isI64(n.Lhs.Type) {
			fb.emitByte(opI64Sub)
		} else {
			fb.emitByte(opI32Sub)
		}
	case ast.OpBitNot:
		fb.lowerExpr(n.Lhs)
		fb.pushConst(-1, n.Lhs.Type)
		if isI64(n.Lhs.Type) {
			fb.emitByte(opI64Xor)
		} else {
			fb.emitByte(opI32Xor)
		}
	case ast.OpNot:
		fb.lowerExpr(n.Lhs)
		if isI64(n.Lhs.Type) {
			fb.emitByte(opI64Eqz)
		} else {
			fb.emitByte(opI32Eqz)
		}
	}
	return false
}

// lowerLogical lowers && / || to a typed if/else that short-circuits the
// right operand's evaluation, the structured-control-flow analogue of
// internal/ir/expr.go's lowerShortCircuit CFG.
func (fb *funcBuilder) lowerLogical(n *ast.Node) {
	fb.normalizeBool(n.Lhs)
	fb.emitByte(opIf)
	fb.emitByte(valI32)
	if n.Kind == ast.LogAnd {
		fb.normalizeBool(n.Rhs)
		fb.emitByte(opElse)
		fb.emitByte(opI32Const)
		fb.emitSLEB(0)
	} else {
		fb.emitByte(opI32Const)
		fb.emitSLEB(1)
		fb.emitByte(opElse)
		fb.normalizeBool(n.Rhs)
	}
	fb.emitByte(opEnd)
}

func (fb *funcBuilder) lowerTernary(n *ast.Node) {
	fb.normalizeBool(n.Cond)
	vt, ok := wasmValtype(n.Type)
	if !ok {
		fb.diagUnsupported(n, "ternary result type %s has no WebAssembly representation", n.Type)
		vt = valI32
	}
	fb.emitByte(opIf)
	fb.emitByte(vt)
	fb.lowerExpr(n.Then)
	fb.emitByte(opElse)
	fb.lowerExpr(n.Else)
	fb.emitByte(opEnd)
}

func (fb *funcBuilder) lowerAssign(n *ast.Node) bool {
	if n.Lhs.Kind != ast.VarRef {
		fb.diagUnsupported(n, "assignment through a non-variable lvalue is not supported by the WebAssembly backend")
		fb.lowerExpr(n.Rhs)
		return false
	}
	v := n.Lhs.Var
	fb.lowerExpr(n.Rhs)
	fb.widenTo(n.Rhs.Type, n.Lhs.Type)
	return fb.storeTee(v, n.Lhs.Type)
}

func (fb *funcBuilder) lowerCompoundAssign(n *ast.Node) bool {
	if n.Lhs.Kind != ast.VarRef {
		fb.diagUnsupported(n, "compound assignment through a non-variable lvalue is not supported by the WebAssembly backend")
		fb.lowerExpr(n.Rhs)
		return false
	}
	v := n.Lhs.Var
	idxLocal, isLocal := fb.locals[v]
	idxGlobal, isGlobal := fb.globalIndex[v]
	if !isLocal && !isGlobal {
		fb.diagUnsupported(n, "variable %q has no WebAssembly storage", v.Name)
		fb.lowerExpr(n.Rhs)
		return false
	}
	if isLocal {
		fb.emitByte(opLocalGet)
		fb.emitULEB(uint64(idxLocal))
	} else {
		fb.emitByte(opGlobalGet)
		fb.emitULEB(uint64(idxGlobal))
	}
	fb.lowerExpr(n.Rhs)
	wide64, unsigned := binClass(n.Lhs.Type)
	fb.emitByte(binOpcode(n.Op, wide64, unsigned))
	return fb.storeTee(v, n.Lhs.Type)
}

// storeTee stores the value currently on the stack into v (local or
// global) and leaves a copy on the stack, the behavior a C assignment
// expression needs to support chains like `a = b = c`. wasm locals have a
// native tee instruction; globals don't, so a global store round-trips
// through a scratch local to get the same effect.
func (fb *funcBuilder) storeTee(v *ast.VarInfo, t *types.Type) bool {
	if idx, ok := fb.locals[v]; ok {
		fb.emitByte(opLocalTee)
		fb.emitULEB(uint64(idx))
		return false
	}
	if idx, ok := fb.globalIndex[v]; ok {
		vt, ok := wasmValtype(t)
		if !ok {
			vt = valI32
		}
		scratch := fb.scratch(vt)
		fb.emitByte(opLocalSet)
		fb.emitULEB(uint64(scratch))
		fb.emitByte(opLocalGet)
		fb.emitULEB(uint64(scratch))
		fb.emitByte(opGlobalSet)
		fb.emitULEB(uint64(idx))
		fb.emitByte(opLocalGet)
		fb.emitULEB(uint64(scratch))
		return false
	}
	fb.diagUnsupported(nil, "variable %q has no WebAssembly storage", v.Name)
	return false
}

func (fb *funcBuilder) lowerIncDec(n *ast.Node, pre bool) bool {
	if n.Lhs.Kind != ast.VarRef {
		fb.diagUnsupported(n, "increment/decrement of a non-variable lvalue is not supported by the WebAssembly backend")
		fb.emitByte(opI32Const)
		fb.emitSLEB(0)
		return false
	}
	v := n.Lhs.Var
	idxLocal, isLocal := fb.locals[v]
	idxGlobal, isGlobal := fb.globalIndex[v]
	if !isLocal && !isGlobal {
		fb.diagUnsupported(n, "variable %q has no WebAssembly storage", v.Name)
		fb.emitByte(opI32Const)
		fb.emitSLEB(0)
		return false
	}
	delta := int64(1)
	if n.Op == ast.OpSub {
		delta = -1
	}
	if n.Lhs.Type.Kind == types.Ptr {
		delta *= int64(n.Lhs.Type.Base().Sizeof())
	}
	wide64 := isI64(n.Lhs.Type)
	addOp := byte(opI32Add)
	if wide64 {
		addOp = opI64Add
	}

	if isLocal {
		if !pre {
			fb.emitByte(opLocalGet)
			fb.emitULEB(uint64(idxLocal))
		}
		fb.emitByte(opLocalGet)
		fb.emitULEB(uint64(idxLocal))
		fb.pushConst(delta, n.Lhs.Type)
		fb.emitByte(addOp)
		if pre {
			fb.emitByte(opLocalTee)
		} else {
			fb.emitByte(opLocalSet)
		}
		fb.emitULEB(uint64(idxLocal))
		return false
	}

	vt, ok := wasmValtype(n.Lhs.Type)
	if !ok {
		vt = valI32
	}
	scratch := fb.scratch(vt)
	if !pre {
		fb.emitByte(opGlobalGet)
		fb.emitULEB(uint64(idxGlobal))
	}
	fb.emitByte(opGlobalGet)
	fb.emitULEB(uint64(idxGlobal))
	fb.pushConst(delta, n.Lhs.Type)
	fb.emitByte(addOp)
	fb.emitByte(opLocalSet)
	fb.emitULEB(uint64(scratch))
	fb.emitByte(opLocalGet)
	fb.emitULEB(uint64(scratch))
	fb.emitByte(opGlobalSet)
	fb.emitULEB(uint64(idxGlobal))
	if pre {
		fb.emitByte(opLocalGet)
		fb.emitULEB(uint64(scratch))
	}
	return false
}

func (fb *funcBuilder) lowerCast(n *ast.Node) bool {
	voidResult := fb.lowerExpr(n.Lhs)
	if n.CastType.Kind == types.Void {
		if !voidResult {
			fb.emitByte(opDrop)
		}
		return true
	}
	if voidResult {
		return true
	}
	fb.widenTo(n.Lhs.Type, n.CastType)
	return false
}

// widenTo converts the value on the stack from src's wasm representation
// to dst's, following spec.md §3's widening rule: narrower-than-i32
// values are already i32, so the only real conversions are the two
// integer-width crossings wasm's MVP numeric set has opcodes for.
func (fb *funcBuilder) widenTo(src, dst *types.Type) {
	srcVT, srcOk := wasmValtype(src)
	dstVT, dstOk := wasmValtype(dst)
	if !srcOk || !dstOk || srcVT == dstVT {
		return
	}
	if dstVT == valI64 && srcVT == valI32 {
		if src.Unsigned {
			fb.emitByte(opI64ExtendI32U)
		} else {
			fb.emitByte(opI64ExtendI32S)
		}
		return
	}
	if dstVT == valI32 && srcVT == valI64 {
		fb.emitByte(opI32WrapI64)
		return
	}
	fb.diagUnsupported(nil, "unsupported WebAssembly value conversion from %s to %s", src, dst)
}

func (fb *funcBuilder) lowerCall(n *ast.Node) bool {
	for _, a := range n.Args {
		fb.lowerExpr(a)
	}
	if n.Callee.Kind == ast.VarRef && n.Callee.Var == nil {
		idx, ok := fb.funcIndex[n.Callee.Name]
		if !ok {
			fb.diagUnsupported(n, "call to undeclared function %q", n.Callee.Name)
			return fb.fallbackCallResult(n.Type)
		}
		fb.emitByte(opCall)
		fb.emitULEB(uint64(idx))
		return n.Type.Kind == types.Void
	}
	fb.diagUnsupported(n, "an indirect call through a function pointer is not supported by the WebAssembly backend")
	return fb.fallbackCallResult(n.Type)
}

func (fb *funcBuilder) fallbackCallResult(t *types.Type) bool {
	if t.Kind == types.Void {
		return true
	}
	fb.pushConst(0, t)
	return false
}
