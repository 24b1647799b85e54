// Package emitx64's function.go walks one allocated ir.Function and emits
// its System-V x86-64 AT&T assembly body (spec.md §4.5): prologue/epilogue
// framing, then a 1-3 instruction expansion per ir.Instruction.
//
// Grounded on hhramberg-go-vslc/src/backend/arm/function.go's genFunction
// shape (stack-adjust computation, argument-spill loop, body walk,
// genReturn), generalized from aarch64's stp/ldp frame convention to
// System-V's push-rbp/mov-rbp,rsp/sub-rsp,N convention.
package emitx64

import (
	"fmt"

	"github.com/jainl28patel/xcc/internal/ir"
	"github.com/jainl28patel/xcc/internal/regalloc"
)

// EmitModule lowers an entire allocated module to assembly text for target.
func EmitModule(mod *ir.Module, target Target, intFile, floatFile regalloc.RegisterFile) string {
	w := &Writer{}
	emitData(w, mod, target)
	target.textSection(w)
	for _, fn := range mod.Funcs {
		emitFunction(w, fn, target, intFile, floatFile)
	}
	return w.String()
}

// frameLayout finalizes a function's stack frame: the outgoing-argument
// area sits closest to %rsp (offsets i*8(%rsp) for the i-th stack arg),
// then the allocator's spill area, then a slot for every address-taken
// (Ref) vreg that was never spilled, the whole thing rounded up to the
// System-V 16-byte stack alignment.
type frameLayout struct {
	size    int
	argArea int // bytes reserved at the bottom of the frame for outgoing stack args
}

func computeFrame(fn *ir.Function) frameLayout {
	maxArgs := 0
	for _, bl := range fn.Blocks {
		for _, in := range bl.Insns {
			if in.Op == ir.OpCall && in.ArgCount > maxArgs {
				maxArgs = in.ArgCount
			}
		}
	}
	argArea := maxArgs * 8

	// Every existing vr.Frame offset (assigned by the allocator's spill
	// materialization, measured from 0) shifts down by argArea so the
	// outgoing-argument area can occupy [0, argArea) nearest %rsp.
	for _, vr := range fn.VRegs {
		if vr.Spilled {
			vr.Frame += argArea
		}
	}

	size := argArea + fn.FrameSize
	for _, vr := range fn.VRegs {
		if vr.Ref && !vr.Spilled {
			slot := vr.Size
			if slot < 8 {
				slot = 8
			}
			vr.Spilled = true // Ref locals always live at a stack home
			vr.Frame = size
			size += slot
		}
	}

	if rem := size % 16; rem != 0 {
		size += 16 - rem
	}
	return frameLayout{size: size, argArea: argArea}
}

func emitFunction(w *Writer, fn *ir.Function, target Target, intFile, floatFile regalloc.RegisterFile) {
	frame := computeFrame(fn)
	sym := target.Symbol(fn.Name)
	if fn.Exported {
		target.globl(w, sym)
	}
	w.Label(sym)
	w.Ins1("push", "%rbp")
	w.Ins2("mov", "%rsp", "%rbp")

	saved := calleeSavedInUse(fn)
	for _, idx := range saved {
		w.Ins1("push", intReg64[idx])
	}
	if frame.size > 0 {
		w.Ins2imm("sub", int64(frame.size), "%rsp")
	}

	spillIncomingParams(w, fn, intFile, floatFile)

	for _, bl := range fn.Blocks {
		w.Label(bl.Label)
		for _, in := range bl.Insns {
			emitInsn(w, fn, in, target, frame)
		}
	}

	w.Label(fn.Name + ".ret")
	// Saved callee registers sit just below %rbp (pushed before the frame's
	// sub $N,%rsp), so rewind %rsp to just past them before popping rather
	// than using `leave`, which would discard them unrestored.
	if len(saved) > 0 {
		w.Write("\tlea\t-%d(%%rbp), %%rsp\n", 8*len(saved))
	} else {
		w.Ins2("mov", "%rbp", "%rsp")
	}
	for i := len(saved) - 1; i >= 0; i-- {
		w.Ins1("pop", intReg64[saved[i]])
	}
	w.Ins1("pop", "%rbp")
	w.WriteString("\tret\n")
}

// calleeSavedInUse reports which callee-saved physical registers (by index
// into intReg64) the allocator actually handed out in this function, so the
// prologue/epilogue only pushes/pops what is live.
func calleeSavedInUse(fn *ir.Function) []int {
	used := map[int]bool{}
	for _, vr := range fn.VRegs {
		if !vr.Spilled && !vr.Flonum && vr.PhysReg >= 0 && calleeSaved[vr.PhysReg] {
			used[vr.PhysReg] = true
		}
	}
	var out []int
	for idx := 0; idx < len(intReg64); idx++ {
		if used[idx] {
			out = append(out, idx)
		}
	}
	return out
}

// spillIncomingParams moves each register-passed parameter from its ABI
// register into wherever the allocator decided it actually lives (its own
// register, if different, or its spill slot), mirroring the teacher's
// argument-to-stack spilling loop in genFunction.
func spillIncomingParams(w *Writer, fn *ir.Function, intFile, floatFile regalloc.RegisterFile) {
	sizeRegs := func(sz int) []string {
		switch sz {
		case 1:
			return intReg8
		case 2:
			return intReg16
		case 4:
			return intReg32
		default:
			return intReg64
		}
	}
	for i, pid := range fn.Params {
		vr := fn.VRegs[pid]
		file := intFile
		var abiReg string
		if vr.Flonum {
			file = floatFile
			if i >= len(file.ArgRegs) {
				continue
			}
			abiReg = floatRegName(file.ArgRegs[i])
		} else {
			if i >= len(file.ArgRegs) {
				continue
			}
			abiReg = sizeRegs(vr.Size)[file.ArgRegs[i]]
		}

		dst := operand(fn, pid)
		if dst == abiReg {
			continue
		}
		mov := "mov"
		if vr.Flonum {
			mov = "movsd"
		}
		w.Ins2(mov, abiReg, dst)
	}
}

func emitInsn(w *Writer, fn *ir.Function, in *ir.Instruction, target Target, frame frameLayout) {
	switch in.Op {
	case ir.OpMov:
		mov := movMnemonic(fn, in.Dst)
		w.Ins2(mov, operand(fn, in.A), operand(fn, in.Dst))

	case ir.OpBinary:
		emitBinary(w, fn, in)

	case ir.OpUnary:
		emitUnary(w, fn, in)

	case ir.OpCompare:
		emitCompare(w, fn, in)

	case ir.OpCondBranch:
		w.Ins2("cmp", "$0", operand(fn, in.A))
		w.Write("\tjne\t%s\n", in.Then.Label)
		w.Write("\tjmp\t%s\n", in.Else.Label)

	case ir.OpBranch:
		w.Write("\tjmp\t%s\n", in.Target.Label)

	case ir.OpTableBranch:
		emitTableBranch(w, fn, in)

	case ir.OpCast:
		emitCast(w, fn, in)

	case ir.OpBaseOffset:
		w.Write("\tlea\t%s(%%rip), %s\n", target.Symbol(in.Callee), operand(fn, in.Dst))

	case ir.OpImmOffset:
		w.Write("\tlea\t%d(%s), %s\n", in.Offset, regOnly(fn, in.A), operand(fn, in.Dst))

	case ir.OpStackOffset:
		vr := fn.VRegs[in.A]
		w.Write("\tlea\t%d(%%rbp), %s\n", slotOffset(vr), operand(fn, in.Dst))

	case ir.OpLoad:
		emitLoad(w, fn, in)

	case ir.OpStore:
		emitStore(w, fn, in)

	case ir.OpPrecall:
		// Argument registers are fixed by the ABI; nothing to reserve up
		// front beyond the outgoing-arg stack area already in the frame.

	case ir.OpPushArg:
		emitPushArg(w, fn, in)

	case ir.OpCall:
		emitCall(w, fn, in, target)

	case ir.OpResult:
		emitResult(w, fn, in)

	case ir.OpSubSP:
		// Outgoing args were written into the frame's pre-reserved area,
		// not pushed, so there is no stack pointer to restore here.

	case ir.OpInlineAsm:
		w.WriteString(in.AsmText)
		if len(in.AsmText) == 0 || in.AsmText[len(in.AsmText)-1] != '\n' {
			w.WriteString("\n")
		}

	case ir.OpLoadSpilled:
		mov := movMnemonic(fn, in.Dst)
		w.Ins2(mov, operand(fn, in.A), operand(fn, in.Dst))

	case ir.OpStoreSpilled:
		mov := movMnemonic(fn, in.B)
		w.Ins2(mov, operand(fn, in.B), operand(fn, in.A))
	}
}

func movMnemonic(fn *ir.Function, vid int) string {
	if vid < 0 {
		return "mov"
	}
	if fn.VRegs[vid].Flonum {
		return "movsd"
	}
	return "mov"
}

// slotOffset is a spilled or address-taken vreg's displacement from %rbp:
// vr.Frame counts bytes of depth below the frame base at which its slot
// begins, so the operand displacement is the negative of the slot's far
// edge.
func slotOffset(vr *ir.VReg) int {
	return -(vr.Frame + vr.Size)
}

// operand renders a vreg as an assembly operand: an immediate for a
// constant, a data reference for a string literal, a register name when
// live in one, or a frame memory operand when spilled.
func operand(fn *ir.Function, vid int) string {
	if vid < 0 {
		return ""
	}
	vr := fn.VRegs[vid]
	if vr.IsConst {
		if vr.Flonum {
			return fmt.Sprintf("$%d", int64(vr.ConstFlt))
		}
		return fmt.Sprintf("$%d", vr.ConstVal)
	}
	if vr.IsStrRef {
		return fmt.Sprintf("%s(%%rip)", strLabel(vr.StrIdx))
	}
	if vr.Spilled {
		return fmt.Sprintf("%d(%%rbp)", slotOffset(vr))
	}
	if vr.Flonum {
		return floatRegName(vr.PhysReg)
	}
	return intRegName(vr.PhysReg, vr.Size)
}

// regOnly is like operand but always renders a 64-bit general register,
// used for address-base operands regardless of the vreg's declared size.
func regOnly(fn *ir.Function, vid int) string {
	vr := fn.VRegs[vid]
	if vr.Spilled {
		return operand(fn, vid)
	}
	return intReg64[vr.PhysReg]
}
