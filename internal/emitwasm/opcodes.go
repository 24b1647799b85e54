package emitwasm

// Value types (spec.md §3 "WebAssembly locals narrower than i32 are widened
// to i32 per the WebAssembly MVP numeric type set").
const (
	valI32 byte = 0x7F
	valI64 byte = 0x7E
	valF32 byte = 0x7D
	valF64 byte = 0x7C
)

const funcTypeForm byte = 0x60
const blockTypeEmpty byte = 0x40

// Control.
const (
	opUnreachable = 0x00
	opBlock       = 0x02
	opLoop        = 0x03
	opIf          = 0x04
	opElse        = 0x05
	opEnd         = 0x0B
	opBr          = 0x0C
	opBrIf        = 0x0D
	opReturn      = 0x0F
	opCall        = 0x10
	opDrop        = 0x1A
)

// Variable access.
const (
	opLocalGet  = 0x20
	opLocalSet  = 0x21
	opLocalTee  = 0x22
	opGlobalGet = 0x23
	opGlobalSet = 0x24
)

// Constants.
const (
	opI32Const = 0x41
	opI64Const = 0x42
)

// i32 comparisons.
const (
	opI32Eqz = 0x45
	opI32Eq  = 0x46
	opI32Ne  = 0x47
	opI32LtS = 0x48
	opI32LtU = 0x49
	opI32GtS = 0x4A
	opI32GtU = 0x4B
	opI32LeS = 0x4C
	opI32LeU = 0x4D
	opI32GeS = 0x4E
	opI32GeU = 0x4F
)

// i64 comparisons.
const (
	opI64Eqz = 0x50
	opI64Eq  = 0x51
	opI64Ne  = 0x52
	opI64LtS = 0x53
	opI64LtU = 0x54
	opI64GtS = 0x55
	opI64GtU = 0x56
	opI64LeS = 0x57
	opI64LeU = 0x58
	opI64GeS = 0x59
	opI64GeU = 0x5A
)

// i32 arithmetic.
const (
	opI32Clz    = 0x67
	opI32Add    = 0x6A
	opI32Sub    = 0x6B
	opI32Mul    = 0x6C
	opI32DivS   = 0x6D
	opI32DivU   = 0x6E
	opI32RemS   = 0x6F
	opI32RemU   = 0x70
	opI32And    = 0x71
	opI32Or     = 0x72
	opI32Xor    = 0x73
	opI32Shl    = 0x74
	opI32ShrS   = 0x75
	opI32ShrU   = 0x76
)

// i64 arithmetic.
const (
	opI64Add  = 0x7C
	opI64Sub  = 0x7D
	opI64Mul  = 0x7E
	opI64DivS = 0x7F
	opI64DivU = 0x80
	opI64RemS = 0x81
	opI64RemU = 0x82
	opI64And  = 0x83
	opI64Or   = 0x84
	opI64Xor  = 0x85
	opI64Shl  = 0x86
	opI64ShrS = 0x87
	opI64ShrU = 0x88
)

// Conversions between the two integer widths (spec.md §3's widening rule;
// used when an 8-byte `long` local interoperates with the i32 locals
// everything narrower widens to).
const (
	opI32WrapI64   = 0xA7
	opI64ExtendI32S = 0xAC
	opI64ExtendI32U = 0xAD
)
