// Package ir defines the native back-end's intermediate representation:
// virtual registers, the IR instruction tagged union, basic blocks, and the
// per-function/module containers (spec.md §3's VReg/IR instruction/Basic
// Block data model).
//
// Grounded on hhramberg-go-vslc/src/backend/lir's LIR instruction set and
// y1yang0-falcon/src/compile/codegen's Instruction{Op,Result,Args}, merged
// into the single flattened tagged-union shape internal/ast already uses
// for the surface tree, so the same "one struct, a Kind field, named
// operand slots" idiom runs the whole pipeline.
package ir

import "github.com/jainl28patel/xcc/internal/types"

// Op enumerates every IR instruction kind (spec.md §3).
type Op int

const (
	OpLoad Op = iota
	OpStore
	OpMov
	OpBinary
	OpUnary
	OpCompare
	OpCondBranch
	OpBranch
	OpTableBranch
	OpCast
	OpBaseOffset
	OpImmOffset
	OpStackOffset
	OpPrecall
	OpCall
	OpPushArg
	OpResult
	OpSubSP
	OpInlineAsm
	OpLoadSpilled
	OpStoreSpilled
)

var opNames = [...]string{
	"load", "store", "mov", "binary", "unary", "compare", "cjmp", "jmp",
	"tblbr", "cast", "base-off", "imm-off", "stack-off", "precall", "call",
	"push-arg", "result", "sub-sp", "asm", "load-spill", "store-spill",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return "op?"
}

// ArithOp is the concrete binary/unary/compare operator carried by an
// Instruction, mirroring ast.BinOp one level down the pipeline.
type ArithOp int

const (
	Add ArithOp = iota
	Sub
	Mul
	Div
	Mod
	UDiv
	UMod
	And
	Or
	Xor
	Shl
	Shr
	Sar
	Neg
	Not
	BitNot
	CmpEq
	CmpNe
	CmpLt
	CmpLe
	CmpGt
	CmpGe
	CmpLtU
	CmpLeU
	CmpGtU
	CmpGeU
	FAdd
	FSub
	FMul
	FDiv
	FNeg
	FCmpEq
	FCmpNe
	FCmpLt
	FCmpLe
	FCmpGt
	FCmpGe
)

// VReg is a virtual register (spec.md §3): a stable id plus the value-type
// descriptor and allocator bookkeeping fields the register allocator and
// emitter consult.
type VReg struct {
	ID int

	Size      int // byte size
	Align     int
	Unsigned  bool
	Flonum    bool // floating-point class, selects the FP register file
	IsConst   bool
	ConstVal  int64
	ConstFlt  float64

	// IsStrRef marks a vreg as holding the address of an interned string
	// literal (index into Module.Strings) rather than a plain immediate;
	// the emitter loads it with `lea`/a data-section reference instead of
	// a `mov`-immediate.
	IsStrRef bool
	StrIdx   int

	Spilled bool
	NoSpill bool // a fix-up temporary minted during spill materialization; never itself spillable
	Ref     bool // address-taken: must have a stack home even unspilled
	Param   bool
	ParamIndex int // register-passed parameter's ABI slot, valid when Param

	PhysReg int // assigned physical register index, -1 until allocated
	Frame   int // byte offset from frame base, valid once spilled or Ref
}

// Instruction is one IR instruction: a tagged union over Op with up to two
// operand vregs and one destination (spec.md §3).
type Instruction struct {
	ID int // dense index within the function, used as the interval timeline

	Op  Op
	Sub ArithOp

	Dst, A, B int // vreg ids; -1 when unused

	// Branch targets.
	Then, Else *Block
	Target     *Block

	// OpTableBranch: dense case targets indexed by (value - CaseBase).
	CaseBase  int64
	Targets   []*Block
	Default   *Block

	// OpCall.
	Callee     string // direct call target; "" for indirect
	IndirectOn int    // vreg holding the callee address when Callee == ""
	ArgCount   int
	RegArgs    int
	ResultSize int
	ResultFlonum bool

	// OpPushArg.
	ArgIndex int

	// OpBaseOffset/OpImmOffset/OpStackOffset: byte offset applied to A.
	Offset int64

	// OpCast: source/destination value-type description.
	SrcSize, DstSize   int
	SrcFlonum, DstFlonum bool
	SrcUnsigned        bool

	// OpInlineAsm.
	AsmText string
}

// Block is a basic block: a label, its straight-line instruction list, its
// CFG edges, and LiveIn/LiveOut vreg-set fields (spec.md §3). No pass
// computes LiveIn/LiveOut; the allocator builds its intervals from
// instruction def/use positions alone.
type Block struct {
	ID    int
	Label string
	Insns []*Instruction

	Preds, Succs []*Block

	LiveIn, LiveOut map[int]bool
}

func (b *Block) emit(i *Instruction) *Instruction {
	b.Insns = append(b.Insns, i)
	return i
}

// Function is one compiled native function: its vreg table, parameter
// vreg ids in ABI order, and basic blocks in emission order.
type Function struct {
	Name     string
	Exported bool

	VRegs  []*VReg
	Params []int // vreg ids, in declaration order

	Blocks []*Block
	Entry  *Block

	RetSize    int
	RetFlonum  bool
	RetVoid    bool

	FrameSize int // total spill/locals frame size in bytes, set by the allocator
}

// Module is the whole translation unit's native-backend output: every
// defined function plus global variable and string-literal data the
// emitter needs to place in .data/.bss/.rodata.
type Module struct {
	Funcs   []*Function
	Globals []*GlobalVar
	Strings []string
}

// GlobalVar is a file-scope variable's backend-facing description.
type GlobalVar struct {
	Name     string
	Size     int
	Align    int
	Exported bool
	Imported bool // no definition in this translation unit

	// Init holds the flattened constant-initializer bytes, nil for BSS
	// (zero-initialized) storage.
	Init []byte
	// A global pointer initializer pointing at another global/string, by
	// name, with a byte addend; InitRef == "" if Init is a plain blob.
	InitRef    string
	InitAddend int64
}

func newVReg(id, size, align int, flonum, unsigned bool) *VReg {
	return &VReg{ID: id, Size: size, Align: align, Flonum: flonum, Unsigned: unsigned, PhysReg: -1}
}

// vtypeOf derives a VReg's size/align/flonum/unsigned fields from a surface
// type, decaying arrays to pointer width and collapsing aggregates to their
// raw byte size (struct values that must be copied are handled by the
// builder at the call/assignment sites, not here).
func vtypeOf(t *types.Type) (size, align int, flonum, unsigned bool) {
	if t == nil {
		return 8, 8, false, false
	}
	switch t.Kind {
	case types.Float:
		return t.Size, t.Size, true, false
	case types.Array:
		return 8, 8, false, false
	default:
		return t.Sizeof(), t.Alignof(), false, t.Unsigned
	}
}
