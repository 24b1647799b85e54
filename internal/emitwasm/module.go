package emitwasm

import (
	"bytes"

	"github.com/jainl28patel/xcc/internal/ast"
	"github.com/jainl28patel/xcc/internal/ctx"
	"github.com/jainl28patel/xcc/internal/diag"
	"github.com/jainl28patel/xcc/internal/types"
)

// magic + version header (spec.md §6: "Header is 8 bytes: magic \0asm +
// version 0x01 0x00 0x00 0x00").
var header = []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}

const importModuleName = "c" // spec.md §6: "fixed module name c"

// typeTable dedups function signatures into the Type section in
// first-encounter order (spec.md §3 invariant: "Function-signature indices
// ... are dense, assigned in first-encounter order"). Because
// internal/types already hash-conses function signatures (InternFunc), two
// symbols with the same signature share one *types.Type pointer, so a
// pointer-keyed map is exactly the structural-equality dedup spec.md §8
// property 2 wants.
type typeTable struct {
	order []*types.Type
	index map[*types.Type]int
}

func newTypeTable() *typeTable {
	return &typeTable{index: map[*types.Type]int{}}
}

func (tt *typeTable) intern(t *types.Type) int {
	if i, ok := tt.index[t]; ok {
		return i
	}
	i := len(tt.order)
	tt.order = append(tt.order, t)
	tt.index[t] = i
	return i
}

func (tt *typeTable) encode() []byte {
	var body bytes.Buffer
	putULEB128(&body, uint64(len(tt.order)))
	for _, t := range tt.order {
		body.WriteByte(funcTypeForm)
		putULEB128(&body, uint64(len(t.Params)))
		for _, p := range t.Params {
			body.WriteByte(sigValtype(p.Type))
		}
		if t.Ret.Kind == types.Void {
			putULEB128(&body, 0)
		} else {
			putULEB128(&body, 1)
			body.WriteByte(sigValtype(t.Ret))
		}
	}
	return body.Bytes()
}

// sigValtype renders a signature-position type, falling back to i32 for an
// unsupported scalar kind (float, aggregate) so the module's Type section
// stays structurally well-formed even for a function this backend can't
// fully lower; the real diagnostic is raised separately when the function
// body itself is built.
func sigValtype(t *types.Type) byte {
	if v, ok := wasmValtype(t); ok && t.Kind != types.Void {
		return v
	}
	return valI32
}

// EmitModule lowers every function and non-extern global in c's symbol
// table into a binary WebAssembly module, exporting the symbols named in
// exports (spec.md §6's `-e<name>[,...]`), mirroring internal/ir.Build's
// own c.Syms.InOrder()-driven traversal rather than walking the AST root
// directly.
func EmitModule(c *ctx.Context, exports []string) ([]byte, error) {
	wantExport := map[string]bool{}
	for _, e := range exports {
		wantExport[e] = true
	}

	tt := newTypeTable()

	var imported, defined []*ast.Symbol
	var globals []*ast.Symbol
	for _, sym := range c.Syms.InOrder() {
		switch sym.Kind {
		case ast.SymFunc:
			// Every declared function is emitted; reachability-based dead
			// code elimination (spec.md §2 step 5) is not implemented by
			// either back end today (see DESIGN.md), so this mirrors
			// emitx64's own all-declared-symbols behavior rather than
			// silently diverging from it.
			tt.intern(sym.FuncType)
			if sym.Imported {
				imported = append(imported, sym)
			} else {
				defined = append(defined, sym)
			}
		case ast.SymGlobalVar:
			if sym.Var.Storage != ast.StorageExtern {
				globals = append(globals, sym)
			}
		}
	}

	funcIndex := map[string]int{}
	idx := 0
	for _, sym := range imported {
		funcIndex[sym.Name] = idx
		idx++
	}
	for _, sym := range defined {
		funcIndex[sym.Name] = idx
		idx++
	}

	var importBody, funcSecBody, globalBody, exportBody, codeBody bytes.Buffer

	putULEB128(&importBody, uint64(len(imported)))
	for _, sym := range imported {
		putName(&importBody, importModuleName)
		putName(&importBody, sym.Name)
		importBody.WriteByte(0x00) // import kind: function
		putULEB128(&importBody, uint64(tt.index[sym.FuncType]))
	}

	putULEB128(&funcSecBody, uint64(len(defined)))
	for _, sym := range defined {
		putULEB128(&funcSecBody, uint64(tt.index[sym.FuncType]))
	}

	putULEB128(&globalBody, uint64(len(globals)))
	for _, sym := range globals {
		v := sym.Var
		vt := sigValtype(v.Type)
		globalBody.WriteByte(vt)
		// No const-qualifier is tracked on VarInfo today (see DESIGN.md);
		// every global is conservatively emitted mutable.
		globalBody.WriteByte(0x01)
		initConst(&globalBody, v, vt)
		globalBody.WriteByte(opEnd)
	}

	var exportNames []string
	for _, sym := range defined {
		if wantExport[sym.Name] {
			exportNames = append(exportNames, sym.Name)
		}
	}
	for _, sym := range imported {
		if wantExport[sym.Name] {
			exportNames = append(exportNames, sym.Name)
		}
	}
	putULEB128(&exportBody, uint64(len(exportNames)))
	for _, name := range exportNames {
		putName(&exportBody, name)
		exportBody.WriteByte(0x00) // export kind: function
		putULEB128(&exportBody, uint64(funcIndex[name]))
	}
	if len(exports) > 0 && len(exportNames) == 0 {
		c.Diags.Errorf(diag.Pos{File: c.File}, "no requested export symbol was found as a defined or imported function")
	}

	globalIndex := map[*ast.VarInfo]int{}
	for i, sym := range globals {
		globalIndex[sym.Var] = i
	}

	putULEB128(&codeBody, uint64(len(defined)))
	for _, sym := range defined {
		body := buildFunction(c, sym, globalIndex, funcIndex)
		codeBody.Write(withSize(body))
	}

	var out bytes.Buffer
	out.Write(header)
	out.Write(section(secType, tt.encode()))
	if len(imported) > 0 {
		out.Write(section(secImport, importBody.Bytes()))
	}
	out.Write(section(secFunction, funcSecBody.Bytes()))
	if len(globals) > 0 {
		out.Write(section(secGlobal, globalBody.Bytes()))
	}
	out.Write(section(secExport, exportBody.Bytes()))
	out.Write(section(secCode, codeBody.Bytes()))
	return out.Bytes(), nil
}

func putName(buf *bytes.Buffer, s string) {
	putULEB128(buf, uint64(len(s)))
	buf.WriteString(s)
}

// initConst renders a global's initializer as a constant expression. Only
// integer literal initializers are supported; anything else (including no
// initializer) falls back to zero, matching spec.md's BSS/zero-init native
// behavior carried over to the one WebAssembly analogue (Global section has
// no separate "uninitialized" state).
func initConst(buf *bytes.Buffer, v *ast.VarInfo, vt byte) {
	var val int64
	if v.Init != nil && v.Init.Kind == ast.IntLit {
		val = v.Init.IntVal
	}
	if vt == valI64 {
		buf.WriteByte(opI64Const)
	} else {
		buf.WriteByte(opI32Const)
	}
	putSLEB128(buf, val)
}
