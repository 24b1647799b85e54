package main

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	xir "github.com/jainl28patel/xcc/internal/ir"
)

// dumpLLVM renders mod as textual LLVM IR via llir/llvm, the
// SPEC_FULL.md §6 "-emit-llvm" path. This is a best-effort translation of
// xcc's register-based native IR, not a second code generator: spec.md
// §8 only requires the result to be well-formed textual IR, not validated
// against an LLVM toolchain (invoking one is out of scope per spec.md
// §1), so operations with no direct analogue here -- raw memory
// addressing, inline asm, an indirect call with no resolvable callee --
// fall back to a zero value or, for a call, a synthesized result rather
// than attempting a full memory model. This keeps -emit-llvm what
// SPEC_FULL.md §6 calls it: "thin cmd/xcc wiring, never compiler core
// logic."
func dumpLLVM(mod *xir.Module) string {
	m := ir.NewModule()
	funcs := make(map[string]*ir.Func, len(mod.Funcs))
	for _, fn := range mod.Funcs {
		funcs[fn.Name] = declareFunc(m, fn)
	}
	for _, fn := range mod.Funcs {
		defineFunc(funcs[fn.Name], fn, funcs)
	}
	return m.String()
}

func llvmIntType(size int) *types.IntType {
	switch {
	case size <= 1:
		return types.I8
	case size <= 2:
		return types.I16
	case size <= 4:
		return types.I32
	default:
		return types.I64
	}
}

func llvmFloatType(size int) *types.FloatType {
	if size <= 4 {
		return types.Float
	}
	return types.Double
}

func llvmType(size int, flonum bool) types.Type {
	if flonum {
		return llvmFloatType(size)
	}
	return llvmIntType(size)
}

func vregType(vr *xir.VReg) types.Type {
	return llvmType(vr.Size, vr.Flonum)
}

func zeroOf(t types.Type) value.Value {
	switch tt := t.(type) {
	case *types.FloatType:
		return constant.NewFloat(tt, 0)
	case *types.IntType:
		return constant.NewInt(tt, 0)
	default:
		return constant.NewInt(types.I64, 0)
	}
}

func declareFunc(m *ir.Module, fn *xir.Function) *ir.Func {
	ret := types.Type(types.Void)
	if !fn.RetVoid {
		ret = llvmType(fn.RetSize, fn.RetFlonum)
	}
	params := make([]*ir.Param, len(fn.Params))
	for i, vid := range fn.Params {
		params[i] = ir.NewParam(fmt.Sprintf("p%d", i), vregType(fn.VRegs[vid]))
	}
	return m.NewFunc(fn.Name, ret, params...)
}

// llvmFuncState threads one xir.Function's translation: a map from its
// blocks to their llir counterparts (built up front, since branches can
// target a block not yet visited), a map from vreg id to the llir value
// currently standing in for it, and the pending push-arg values
// accumulated since the last precall (mirroring internal/ir/expr.go's own
// precall/push-arg/call sequencing one level up).
type llvmFuncState struct {
	fn     *xir.Function
	funcs  map[string]*ir.Func
	blocks map[*xir.Block]*ir.Block
	vals   map[int]value.Value
	args   map[int]value.Value
}

func defineFunc(lf *ir.Func, fn *xir.Function, funcs map[string]*ir.Func) {
	if len(fn.Blocks) == 0 {
		return // import-only declaration: no body to translate
	}
	st := &llvmFuncState{
		fn:     fn,
		funcs:  funcs,
		blocks: make(map[*xir.Block]*ir.Block, len(fn.Blocks)),
		vals:   map[int]value.Value{},
		args:   map[int]value.Value{},
	}
	for _, b := range fn.Blocks {
		st.blocks[b] = lf.NewBlock(b.Label)
	}
	for i, vid := range fn.Params {
		st.vals[vid] = lf.Params[i]
	}
	for _, b := range fn.Blocks {
		st.translateBlock(b)
	}
}

// val resolves a vreg id to an llir value, materializing a constant or
// (for storage this dump doesn't model) a zero value on first reference.
func (st *llvmFuncState) val(vid int) value.Value {
	if vid < 0 {
		return nil
	}
	if v, ok := st.vals[vid]; ok {
		return v
	}
	vr := st.fn.VRegs[vid]
	t := vregType(vr)
	var v value.Value
	if vr.IsConst {
		if vr.Flonum {
			v = constant.NewFloat(t.(*types.FloatType), vr.ConstFlt)
		} else {
			v = constant.NewInt(t.(*types.IntType), vr.ConstVal)
		}
	} else {
		v = zeroOf(t)
	}
	st.vals[vid] = v
	return v
}

func (st *llvmFuncState) translateBlock(b *xir.Block) {
	lb := st.blocks[b]
	for _, in := range b.Insns {
		if st.translateInsn(lb, in) {
			return
		}
	}
	if lb.Term == nil {
		if st.fn.RetVoid {
			lb.NewRet(nil)
		} else {
			lb.NewRet(zeroOf(llvmType(st.fn.RetSize, st.fn.RetFlonum)))
		}
	}
}

// translateInsn lowers one native-IR instruction onto lb, reporting
// whether it emitted a block terminator.
func (st *llvmFuncState) translateInsn(lb *ir.Block, in *xir.Instruction) bool {
	switch in.Op {
	case xir.OpMov:
		st.vals[in.Dst] = st.val(in.A)
	case xir.OpBinary:
		st.vals[in.Dst] = st.binary(lb, in)
	case xir.OpUnary:
		st.vals[in.Dst] = st.unary(lb, in)
	case xir.OpCompare:
		st.vals[in.Dst] = st.compare(lb, in)
	case xir.OpCast:
		st.vals[in.Dst] = st.cast(lb, in)
	case xir.OpPrecall:
		st.args = map[int]value.Value{}
	case xir.OpPushArg:
		st.args[in.ArgIndex] = st.val(in.A)
	case xir.OpCall:
		st.call(lb, in)
	case xir.OpCondBranch:
		lb.NewCondBr(st.val(in.A), st.blocks[in.Then], st.blocks[in.Else])
		return true
	case xir.OpBranch:
		lb.NewBr(st.blocks[in.Target])
		return true
	case xir.OpTableBranch:
		st.tableBranch(lb, in)
		return true
	case xir.OpResult:
		if in.A < 0 {
			lb.NewRet(nil)
		} else {
			lb.NewRet(st.val(in.A))
		}
		return true
	default:
		// OpLoad/OpStore/OpBaseOffset/OpImmOffset/OpStackOffset/OpSubSP/
		// OpInlineAsm/OpLoadSpilled/OpStoreSpilled: no linear-memory model
		// backs this dump (see package doc); a destination, if any, becomes
		// an unmodeled zero rather than stalling translation.
		if in.Dst >= 0 {
			st.vals[in.Dst] = zeroOf(vregType(st.fn.VRegs[in.Dst]))
		}
	}
	return false
}

func (st *llvmFuncState) binary(lb *ir.Block, in *xir.Instruction) value.Value {
	x, y := st.val(in.A), st.val(in.B)
	switch in.Sub {
	case xir.Add:
		return lb.NewAdd(x, y)
	case xir.Sub:
		return lb.NewSub(x, y)
	case xir.Mul:
		return lb.NewMul(x, y)
	case xir.Div:
		return lb.NewSDiv(x, y)
	case xir.UDiv:
		return lb.NewUDiv(x, y)
	case xir.Mod:
		return lb.NewSRem(x, y)
	case xir.UMod:
		return lb.NewURem(x, y)
	case xir.And:
		return lb.NewAnd(x, y)
	case xir.Or:
		return lb.NewOr(x, y)
	case xir.Xor:
		return lb.NewXor(x, y)
	case xir.Shl:
		return lb.NewShl(x, y)
	case xir.Shr:
		return lb.NewLShr(x, y)
	case xir.Sar:
		return lb.NewAShr(x, y)
	case xir.FAdd:
		return lb.NewFAdd(x, y)
	case xir.FSub:
		return lb.NewFSub(x, y)
	case xir.FMul:
		return lb.NewFMul(x, y)
	case xir.FDiv:
		return lb.NewFDiv(x, y)
	default:
		return x
	}
}

func (st *llvmFuncState) unary(lb *ir.Block, in *xir.Instruction) value.Value {
	x := st.val(in.A)
	dst := vregType(st.fn.VRegs[in.Dst])
	switch in.Sub {
	case xir.Neg:
		return lb.NewSub(zeroOf(dst), x)
	case xir.FNeg:
		return lb.NewFNeg(x)
	case xir.BitNot:
		return lb.NewXor(x, constant.NewInt(dst.(*types.IntType), -1))
	case xir.Not:
		cmp := lb.NewICmp(enum.IPredEQ, x, zeroOf(x.Type()))
		return lb.NewZExt(cmp, dst)
	default:
		return x
	}
}

func (st *llvmFuncState) compare(lb *ir.Block, in *xir.Instruction) value.Value {
	x, y := st.val(in.A), st.val(in.B)
	dst := vregType(st.fn.VRegs[in.Dst])
	var cmp value.Value
	switch in.Sub {
	case xir.CmpEq:
		cmp = lb.NewICmp(enum.IPredEQ, x, y)
	case xir.CmpNe:
		cmp = lb.NewICmp(enum.IPredNE, x, y)
	case xir.CmpLt:
		cmp = lb.NewICmp(enum.IPredSLT, x, y)
	case xir.CmpLe:
		cmp = lb.NewICmp(enum.IPredSLE, x, y)
	case xir.CmpGt:
		cmp = lb.NewICmp(enum.IPredSGT, x, y)
	case xir.CmpGe:
		cmp = lb.NewICmp(enum.IPredSGE, x, y)
	case xir.CmpLtU:
		cmp = lb.NewICmp(enum.IPredULT, x, y)
	case xir.CmpLeU:
		cmp = lb.NewICmp(enum.IPredULE, x, y)
	case xir.CmpGtU:
		cmp = lb.NewICmp(enum.IPredUGT, x, y)
	case xir.CmpGeU:
		cmp = lb.NewICmp(enum.IPredUGE, x, y)
	case xir.FCmpEq:
		cmp = lb.NewFCmp(enum.FPredOEQ, x, y)
	case xir.FCmpNe:
		cmp = lb.NewFCmp(enum.FPredONE, x, y)
	case xir.FCmpLt:
		cmp = lb.NewFCmp(enum.FPredOLT, x, y)
	case xir.FCmpLe:
		cmp = lb.NewFCmp(enum.FPredOLE, x, y)
	case xir.FCmpGt:
		cmp = lb.NewFCmp(enum.FPredOGT, x, y)
	case xir.FCmpGe:
		cmp = lb.NewFCmp(enum.FPredOGE, x, y)
	default:
		cmp = lb.NewICmp(enum.IPredEQ, x, y)
	}
	return lb.NewZExt(cmp, dst)
}

func (st *llvmFuncState) cast(lb *ir.Block, in *xir.Instruction) value.Value {
	x := st.val(in.A)
	dst := vregType(st.fn.VRegs[in.Dst])
	switch {
	case in.SrcFlonum && in.DstFlonum:
		switch {
		case in.DstSize > in.SrcSize:
			return lb.NewFPExt(x, dst)
		case in.DstSize < in.SrcSize:
			return lb.NewFPTrunc(x, dst)
		default:
			return x
		}
	case in.SrcFlonum && !in.DstFlonum:
		if in.SrcUnsigned {
			return lb.NewFPToUI(x, dst)
		}
		return lb.NewFPToSI(x, dst)
	case !in.SrcFlonum && in.DstFlonum:
		if in.SrcUnsigned {
			return lb.NewUIToFP(x, dst)
		}
		return lb.NewSIToFP(x, dst)
	default:
		switch {
		case in.DstSize > in.SrcSize:
			if in.SrcUnsigned {
				return lb.NewZExt(x, dst)
			}
			return lb.NewSExt(x, dst)
		case in.DstSize < in.SrcSize:
			return lb.NewTrunc(x, dst)
		default:
			return x
		}
	}
}

func (st *llvmFuncState) call(lb *ir.Block, in *xir.Instruction) {
	args := make([]value.Value, in.ArgCount)
	for i := range args {
		if v, ok := st.args[i]; ok {
			args[i] = v
		} else {
			args[i] = constant.NewInt(types.I64, 0)
		}
	}
	var result value.Value
	if callee, ok := st.funcs[in.Callee]; in.Callee != "" && ok {
		result = lb.NewCall(callee, args...)
	} else if in.Dst >= 0 {
		// Indirect call (Callee == "") or an unresolved name: no
		// function-pointer/table model backs this dump.
		result = zeroOf(vregType(st.fn.VRegs[in.Dst]))
	}
	if in.Dst >= 0 {
		st.vals[in.Dst] = result
	}
}

func (st *llvmFuncState) tableBranch(lb *ir.Block, in *xir.Instruction) {
	def := st.blocks[in.Default]
	if def == nil && len(in.Targets) > 0 {
		def = st.blocks[in.Targets[0]]
	}
	if def == nil {
		lb.NewUnreachable()
		return
	}
	disc := st.val(in.A)
	discType, ok := disc.Type().(*types.IntType)
	if !ok {
		discType = types.I64
	}
	var cases []*ir.Case
	for i, t := range in.Targets {
		if t == nil {
			continue
		}
		cases = append(cases, ir.NewCase(constant.NewInt(discType, in.CaseBase+int64(i)), st.blocks[t]))
	}
	lb.NewSwitch(disc, def, cases...)
}
