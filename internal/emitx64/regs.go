package emitx64

// Physical integer register names by size class, indexed to match
// regalloc.SystemVInt's index scheme: 0-1 scratch (r10/r11), 2-7 the
// System-V argument registers in ABI order (rdi,rsi,rdx,rcx,r8,r9), 8-13
// further callee-saved/general registers.
var intReg64 = []string{
	"%r10", "%r11",
	"%rdi", "%rsi", "%rdx", "%rcx", "%r8", "%r9",
	"%rbx", "%r12", "%r13", "%r14", "%r15", "%rax",
}

var intReg32 = []string{
	"%r10d", "%r11d",
	"%edi", "%esi", "%edx", "%ecx", "%r8d", "%r9d",
	"%ebx", "%r12d", "%r13d", "%r14d", "%r15d", "%eax",
}

var intReg16 = []string{
	"%r10w", "%r11w",
	"%di", "%si", "%dx", "%cx", "%r8w", "%r9w",
	"%bx", "%r12w", "%r13w", "%r14w", "%r15w", "%ax",
}

var intReg8 = []string{
	"%r10b", "%r11b",
	"%dil", "%sil", "%dl", "%cl", "%r8b", "%r9b",
	"%bl", "%r12b", "%r13b", "%r14b", "%r15b", "%al",
}

var floatReg = []string{
	"%xmm14", "%xmm15",
	"%xmm0", "%xmm1", "%xmm2", "%xmm3", "%xmm4", "%xmm5", "%xmm6", "%xmm7",
	"%xmm8", "%xmm9", "%xmm10", "%xmm11", "%xmm12", "%xmm13",
}

// calleeSaved lists the int register indices (into intReg64) this ABI
// requires the callee to preserve, used by the prologue/epilogue to decide
// what to push/pop when the allocator hands one of them out.
var calleeSaved = map[int]bool{8: true, 9: true, 10: true, 11: true, 12: true}

func intRegName(idx, size int) string {
	switch size {
	case 1:
		return intReg8[idx]
	case 2:
		return intReg16[idx]
	case 4:
		return intReg32[idx]
	default:
		return intReg64[idx]
	}
}

func floatRegName(idx int) string {
	return floatReg[idx]
}
