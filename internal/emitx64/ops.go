package emitx64

import (
	"fmt"

	"github.com/jainl28patel/xcc/internal/ir"
)

var ccSuffix = map[ir.ArithOp]string{
	ir.CmpEq: "e", ir.CmpNe: "ne",
	ir.CmpLt: "l", ir.CmpLe: "le", ir.CmpGt: "g", ir.CmpGe: "ge",
	ir.CmpLtU: "b", ir.CmpLeU: "be", ir.CmpGtU: "a", ir.CmpGeU: "ae",
	ir.FCmpEq: "e", ir.FCmpNe: "ne", ir.FCmpLt: "b", ir.FCmpLe: "be",
	ir.FCmpGt: "a", ir.FCmpGe: "ae",
}

func emitCompare(w *Writer, fn *ir.Function, in *ir.Instruction) {
	if fn.VRegs[in.A].Flonum {
		w.Ins2("ucomisd", operand(fn, in.B), operand(fn, in.A))
	} else {
		w.Ins2("cmp", operand(fn, in.B), operand(fn, in.A))
	}
	suffix := ccSuffix[in.Sub]
	dst := operand(fn, in.Dst)
	w.Write("\tset%s\t%%al\n", suffix)
	w.Write("\tmovzbl\t%%al, %s\n", dst)
}

var binMnemonic = map[ir.ArithOp]string{
	ir.Add: "add", ir.Sub: "sub", ir.And: "and", ir.Or: "or", ir.Xor: "xor",
	ir.Shl: "shl", ir.Shr: "shr", ir.Sar: "sar",
	ir.FAdd: "addsd", ir.FSub: "subsd", ir.FMul: "mulsd", ir.FDiv: "divsd",
}

func emitBinary(w *Writer, fn *ir.Function, in *ir.Instruction) {
	dst := operand(fn, in.Dst)
	switch in.Sub {
	case ir.Mul:
		w.Ins2("mov", operand(fn, in.A), dst)
		w.Ins2("imul", operand(fn, in.B), dst)
		return
	case ir.Div, ir.Mod:
		w.Ins2("mov", operand(fn, in.A), "%rax")
		w.WriteString("\tcqto\n")
		w.Ins1("idiv", operand(fn, in.B))
		if in.Sub == ir.Div {
			w.Ins2("mov", "%rax", dst)
		} else {
			w.Ins2("mov", "%rdx", dst)
		}
		return
	case ir.UDiv, ir.UMod:
		w.Ins2("mov", operand(fn, in.A), "%rax")
		w.Ins2("xor", "%rdx", "%rdx")
		w.Ins1("div", operand(fn, in.B))
		if in.Sub == ir.UDiv {
			w.Ins2("mov", "%rax", dst)
		} else {
			w.Ins2("mov", "%rdx", dst)
		}
		return
	case ir.Shl, ir.Shr, ir.Sar:
		w.Ins2("mov", operand(fn, in.A), dst)
		w.Ins2("mov", operand(fn, in.B), "%cl")
		w.Ins2(binMnemonic[in.Sub], "%cl", dst)
		return
	}
	mn, ok := binMnemonic[in.Sub]
	if !ok {
		mn = "add"
	}
	w.Ins2("mov", operand(fn, in.A), dst)
	w.Ins2(mn, operand(fn, in.B), dst)
}

func emitUnary(w *Writer, fn *ir.Function, in *ir.Instruction) {
	dst := operand(fn, in.Dst)
	w.Ins2("mov", operand(fn, in.A), dst)
	switch in.Sub {
	case ir.Neg:
		w.Ins1("neg", dst)
	case ir.FNeg:
		w.Ins2("xorpd", "%xmm15", "%xmm15")
		w.Ins2("subsd", dst, "%xmm15")
		w.Ins2("movsd", "%xmm15", dst)
	case ir.Not:
		w.Ins2("cmp", "$0", dst)
		w.Write("\tsete\t%%al\n")
		w.Write("\tmovzbl\t%%al, %s\n", dst)
	case ir.BitNot:
		w.Ins1("not", dst)
	}
}

func emitCast(w *Writer, fn *ir.Function, in *ir.Instruction) {
	dst := operand(fn, in.Dst)
	src := operand(fn, in.A)
	switch {
	case in.SrcFlonum && in.DstFlonum:
		w.Ins2("movsd", src, dst)
	case in.SrcFlonum && !in.DstFlonum:
		w.Ins2("cvttsd2si", src, dst)
	case !in.SrcFlonum && in.DstFlonum:
		w.Ins2("cvtsi2sd", src, dst)
	case in.DstSize > in.SrcSize && in.SrcUnsigned:
		w.Ins2("movzx", src, dst)
	case in.DstSize > in.SrcSize:
		w.Ins2("movsx", src, dst)
	default:
		w.Ins2("mov", src, dst)
	}
}

func emitTableBranch(w *Writer, fn *ir.Function, in *ir.Instruction) {
	// No dense jump-table relocation layer is wired up yet, so a table
	// branch lowers to the same compare-chain a switch without a dense
	// range would use; a future pass can recognize the dense case here.
	for i, t := range in.Targets {
		if t == nil {
			continue
		}
		w.Ins2("cmp", fmt.Sprintf("$%d", in.CaseBase+int64(i)), operand(fn, in.A))
		w.Write("\tje\t%s\n", t.Label)
	}
	if in.Default != nil {
		w.Write("\tjmp\t%s\n", in.Default.Label)
	}
}

func emitLoad(w *Writer, fn *ir.Function, in *ir.Instruction) {
	mem := fmt.Sprintf("%d(%s)", in.Offset, regOnly(fn, in.A))
	mov := "mov"
	if in.DstFlonum {
		mov = "movsd"
	}
	w.Ins2(mov, mem, operand(fn, in.Dst))
}

func emitStore(w *Writer, fn *ir.Function, in *ir.Instruction) {
	mem := fmt.Sprintf("%d(%s)", in.Offset, regOnly(fn, in.A))
	mov := "mov"
	if in.SrcFlonum {
		mov = "movsd"
	}
	w.Ins2(mov, operand(fn, in.B), mem)
}

func emitPushArg(w *Writer, fn *ir.Function, in *ir.Instruction) {
	vr := fn.VRegs[in.A]
	if vr.Flonum {
		if in.ArgIndex < len(SystemVFloatArgs) {
			w.Ins2("movsd", operand(fn, in.A), floatRegName(SystemVFloatArgs[in.ArgIndex]))
			return
		}
	} else if in.ArgIndex < len(SystemVIntArgs) {
		w.Ins2("mov", operand(fn, in.A), intRegName(SystemVIntArgs[in.ArgIndex], 8))
		return
	}
	// Beyond the register-passed arguments: written into the frame's
	// reserved outgoing-argument area, which sits at the bottom of the
	// frame so its offsets from %rsp are small and positive.
	stackIdx := in.ArgIndex - len(SystemVIntArgs)
	if vr.Flonum {
		stackIdx = in.ArgIndex - len(SystemVFloatArgs)
	}
	w.Write("\tmov\t%s, %d(%%rsp)\n", operand(fn, in.A), stackIdx*8)
}

// SystemVIntArgs/SystemVFloatArgs mirror regalloc.SystemVInt/SystemVFloat's
// ArgRegs indices, kept local so ops.go does not need the regalloc import
// just to know the ABI argument slot order.
var SystemVIntArgs = []int{2, 3, 4, 5, 6, 7}
var SystemVFloatArgs = []int{2, 3, 4, 5, 6, 7, 8, 9}

func emitCall(w *Writer, fn *ir.Function, in *ir.Instruction, target Target) {
	if in.Callee != "" {
		w.Write("\tcall\t%s\n", target.Symbol(in.Callee))
	} else {
		w.Write("\tcall\t*%s\n", operand(fn, in.IndirectOn))
	}
	if in.Dst >= 0 {
		dst := operand(fn, in.Dst)
		if in.ResultFlonum {
			w.Ins2("movsd", "%xmm0", dst)
		} else {
			w.Ins2("mov", "%rax", dst)
		}
	}
}

func emitResult(w *Writer, fn *ir.Function, in *ir.Instruction) {
	vr := fn.VRegs[in.A]
	if vr.Flonum {
		w.Ins2("movsd", operand(fn, in.A), "%xmm0")
	} else {
		w.Ins2("mov", operand(fn, in.A), "%rax")
	}
	w.Write("\tjmp\t%s.ret\n", fn.Name)
}
