package ast

import "github.com/jainl28patel/xcc/internal/types"

// ScopeKind discriminates Scope.Kind (spec.md §3).
type ScopeKind int

const (
	GlobalScope ScopeKind = iota
	BlockScope
	FuncParamScope
)

// Scope is a node in the lexical-scope tree: a parent back-reference plus
// an ordered sequence of VarInfo entries. Scopes form a DAG rooted at the
// global scope (spec.md §9 "Cyclic references": "scopes point to parents
// and variable references point to scopes, forming a DAG (not a cycle)").
// Implemented as slice-indexed nodes referenced by pointer rather than by
// arena index, which is simple enough for a single-translation-unit
// compiler and still satisfies the "never own pointers in both
// directions" rule: Scope -> parent only, never parent -> child.
type Scope struct {
	Parent *Scope
	Kind   ScopeKind
	Vars   []*VarInfo

	// Typedef names visible in this scope, consulted by the parser's
	// declaration-vs-expression disambiguation (spec.md §4.2).
	Typedefs map[string]*types.Type

	// Tags (struct/union/enum) declared directly in this scope.
	Tags map[string]*types.Type
}

// NewScope creates a child scope of parent (nil for the global scope).
func NewScope(parent *Scope, kind ScopeKind) *Scope {
	return &Scope{
		Parent:   parent,
		Kind:     kind,
		Typedefs: map[string]*types.Type{},
		Tags:     map[string]*types.Type{},
	}
}

// Declare adds v to this scope's variable list. Callers are responsible
// for checking for redefinition first (spec.md §7 "redefinition").
func (s *Scope) Declare(v *VarInfo) {
	s.Vars = append(s.Vars, v)
}

// Lookup walks the scope chain from s to the root looking for name,
// per spec.md §4.2 "names ... looked up by walking parent links."
func (s *Scope) Lookup(name string) (*VarInfo, bool) {
	for sc := s; sc != nil; sc = sc.Parent {
		for _, v := range sc.Vars {
			if v.Name == name {
				return v, true
			}
		}
	}
	return nil, false
}

// LookupTypedef walks the scope chain looking for a typedef name.
func (s *Scope) LookupTypedef(name string) (*types.Type, bool) {
	for sc := s; sc != nil; sc = sc.Parent {
		if t, ok := sc.Typedefs[name]; ok {
			return t, true
		}
	}
	return nil, false
}

// LookupTag walks the scope chain looking for a struct/union/enum tag.
func (s *Scope) LookupTag(name string) (*types.Type, bool) {
	for sc := s; sc != nil; sc = sc.Parent {
		if t, ok := sc.Tags[name]; ok {
			return t, true
		}
	}
	return nil, false
}

// Root walks to the global scope at the root of the chain.
func (s *Scope) Root() *Scope {
	sc := s
	for sc.Parent != nil {
		sc = sc.Parent
	}
	return sc
}

// Storage classifies a VarInfo's storage duration and linkage.
type Storage int

const (
	StorageAuto Storage = iota
	StorageStatic
	StorageExtern
	StorageEnumMember
)

// FrameInfo records a local variable's assigned stack-frame slot, filled
// in by the native IR builder / register allocator (spec.md §3).
type FrameInfo struct {
	Offset int // byte offset from frame base
	Size   int
}

// VarInfo is one variable declaration (spec.md §3).
type VarInfo struct {
	Name    string
	Type    *types.Type
	Storage Storage

	// Locals: assigned virtual register once the IR builder lowers the
	// enclosing function, and frame placement once the allocator spills
	// or the emitter reserves stack space for address-taken locals.
	VReg  int // -1 until assigned
	Frame *FrameInfo

	// Globals: optional initializer expression tree and link-visibility.
	Init      *Node
	Exported  bool // externally visible (spec.md §6 Export/Import)
	IsDefined bool // false for an extern declaration with no definition

	// StorageEnumMember: the constant value.
	EnumValue int64

	// Function parameter index, valid when this VarInfo is a parameter.
	ParamIndex int
	IsParam    bool
}

// SymKind discriminates global Symbol table entries.
type SymKind int

const (
	SymFunc SymKind = iota
	SymGlobalVar
)

// Symbol is a global symbol-table entry: a function or a file-scope
// variable, plus the bookkeeping the native backend's AST traverser
// (spec.md §2 step 5) needs to mark reachability and resolve forward
// references.
type Symbol struct {
	Name string
	Kind SymKind

	FuncType *types.Type // SymFunc
	Params   []*VarInfo  // SymFunc: in declaration order
	Body     *Node       // SymFunc: the FuncDecl node, nil for a prototype only
	Var      *VarInfo    // SymGlobalVar

	Defined  bool
	Exported bool
	Imported bool // declared but never defined: an import (spec.md §6)

	Reachable bool // set by the AST traverser (spec.md §2 step 5)

	NumLocals int // locals allocated across the whole function body
}

// SymbolTable is the flat global symbol table (spec.md §3 "Scope...
// function table").
type SymbolTable struct {
	order []string
	syms  map[string]*Symbol
}

// NewSymbolTable returns an empty table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{syms: map[string]*Symbol{}}
}

// Declare inserts or returns the existing Symbol for name, preserving
// first-encounter order (spec.md §3 invariant: "Function-signature
// indices and function indices ... are dense, assigned in first-encounter
// order").
func (t *SymbolTable) Declare(name string, kind SymKind) *Symbol {
	if s, ok := t.syms[name]; ok {
		return s
	}
	s := &Symbol{Name: name, Kind: kind}
	t.syms[name] = s
	t.order = append(t.order, name)
	return s
}

// Lookup returns the Symbol for name, if declared.
func (t *SymbolTable) Lookup(name string) (*Symbol, bool) {
	s, ok := t.syms[name]
	return s, ok
}

// InOrder returns every Symbol in first-declaration order.
func (t *SymbolTable) InOrder() []*Symbol {
	out := make([]*Symbol, 0, len(t.order))
	for _, n := range t.order {
		out = append(out, t.syms[n])
	}
	return out
}
