package emitwasm

import "github.com/jainl28patel/xcc/internal/types"

// wasmValtype maps a surface type to its WebAssembly local/param valtype, or
// reports ok=false for a type this backend does not support (spec.md §4.2's
// expansion: the WebAssembly backend "diagnoses double/float parameters as
// unsupported rather than silently truncating"; the same restriction is
// extended here to aggregates, which have no representation without a
// linear-memory model this module never declares).
func wasmValtype(t *types.Type) (byte, bool) {
	if t == nil {
		return 0, false
	}
	switch t.Kind {
	case types.Void:
		return 0, true // caller must special-case void (no value produced)
	case types.Int, types.Enum:
		if t.Sizeof() > 4 {
			return valI64, true
		}
		return valI32, true // narrower-than-i32 widened per spec.md §3
	case types.Ptr:
		return valI32, true // wasm32 address width; no memory section is declared, so pointer values are opaque i32 payloads only
	case types.Float:
		return 0, false
	case types.Array, types.Struct, types.Union:
		return 0, false
	}
	return 0, false
}

func isI64(t *types.Type) bool {
	v, ok := wasmValtype(t)
	return ok && v == valI64
}
