// Package emitwasm lowers the AST directly into a WebAssembly binary module
// (spec.md §4.6), bypassing internal/ir and internal/regalloc entirely --
// the second of the "two very different backends" spec.md §1/§9 requires
// sharing only the frontend, never the mid-end.
//
// Grounded structurally on hhramberg-go-vslc's frontend→backend split (one
// AST, multiple backend.Generate implementations) generalized from the
// teacher's single native target to a second, IR-free target, and on
// spec.md §4.6's own description of the module-assembly algorithm (four
// in-memory section buffers, LEB128 throughout, size prefixes computed
// after the body).
package emitwasm

import "bytes"

// putULEB128 appends n's unsigned LEB128 encoding to buf (spec.md §4.6:
// "Integers in signed and unsigned LEB128 ... throughout").
func putULEB128(buf *bytes.Buffer, n uint64) {
	for {
		b := byte(n & 0x7f)
		n >>= 7
		if n != 0 {
			b |= 0x80
		}
		buf.WriteByte(b)
		if n == 0 {
			return
		}
	}
}

// putSLEB128 appends v's signed LEB128 encoding to buf.
func putSLEB128(buf *bytes.Buffer, v int64) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		signBitSet := b&0x40 != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			buf.WriteByte(b)
			return
		}
		buf.WriteByte(b | 0x80)
	}
}

// withSize renders body as a length-prefixed blob: ULEB128(len(body)) then
// body itself (spec.md §4.6: "counts-and-sizes are inserted at the front of
// a buffer after the body is complete").
func withSize(body []byte) []byte {
	var out bytes.Buffer
	putULEB128(&out, uint64(len(body)))
	out.Write(body)
	return out.Bytes()
}

// section ids, canonical order (spec.md §6: "Sections appear in canonical
// id order").
const (
	secType     = 1
	secImport   = 2
	secFunction = 3
	secGlobal   = 6
	secExport   = 7
	secCode     = 10
)

func section(id byte, body []byte) []byte {
	var out bytes.Buffer
	out.WriteByte(id)
	out.Write(withSize(body))
	return out.Bytes()
}
