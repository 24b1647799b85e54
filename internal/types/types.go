// Package types implements the canonical type descriptors from spec.md §3:
// a tagged union over void, integer, float, pointer, array, struct/union,
// function and enum, with hash-consed function signatures for O(1)
// signature-index lookup during WebAssembly emission (spec.md §3, §4.6).
//
// Grounded on falcon/src/ast/type.go's small closed TypeKind enum with a
// singleton table of predefined basic types, generalized to the C-subset's
// richer type algebra (pointers, arrays, aggregates, function types).
package types

import (
	"fmt"
	"strings"
)

// Kind discriminates the Type union.
type Kind int

const (
	Void Kind = iota
	Int      // fixed-width integer; see Size/Unsigned
	Float    // f32 or f64; see Size
	Ptr
	Array
	Struct
	Union
	Func
	Enum
)

// Member is one named field of a struct/union type.
type Member struct {
	Name   string
	Type   *Type
	Offset int // byte offset within the aggregate

	// Bitfield, if Width > 0: the bits are packed within a storage unit of
	// the member's own Type, Width is the bit width, Position is the bit
	// offset from the low bit of the containing storage unit.
	Width    int
	Position int
}

// Param is one function parameter's type (name is informational only;
// structural equality for function types ignores parameter names, per
// spec.md §8 property 2).
type Param struct {
	Name string
	Type *Type
}

// Type is the canonical, hash-consed type descriptor.
type Type struct {
	Kind Kind

	// Int / Enum
	Size     int // bytes
	Unsigned bool

	// Float
	// Size reused: 4 => f32, 8 => f64

	// Ptr / Array
	Elem  *Type
	Len   int  // Array only; meaningful only when HasLen is true
	HasLen bool

	// Struct / Union
	Tag     string
	Members []Member
	Align   int

	// Func
	Ret      *Type
	Params   []Param
	Variadic bool

	// Qualifiers are a bitset attached at the *use site*, not here
	// (spec.md §3: "Qualifiers (const) are a bitset attached to the type
	// reference at its use site"); see Qual below and QualRef.
}

// Qual is the const-qualifier bitset attached to a type reference.
type Qual int

const (
	QualNone  Qual = 0
	QualConst Qual = 1 << 0
)

// QualRef pairs a Type with the qualifiers at one use site.
type QualRef struct {
	Type *Type
	Qual Qual
}

func (q QualRef) IsConst() bool { return q.Qual&QualConst != 0 }

// Predefined scalar types. These are canonical: every caller that wants
// "int" gets this exact pointer, which is what lets equality checks for
// non-function types degrade to pointer equality.
var (
	TVoid   = &Type{Kind: Void}
	TBool   = &Type{Kind: Int, Size: 1, Unsigned: true}
	TChar   = &Type{Kind: Int, Size: 1}
	TUChar  = &Type{Kind: Int, Size: 1, Unsigned: true}
	TShort  = &Type{Kind: Int, Size: 2}
	TUShort = &Type{Kind: Int, Size: 2, Unsigned: true}
	TInt    = &Type{Kind: Int, Size: 4}
	TUInt   = &Type{Kind: Int, Size: 4, Unsigned: true}
	TLong   = &Type{Kind: Int, Size: 8}
	TULong  = &Type{Kind: Int, Size: 8, Unsigned: true}
	TFloat  = &Type{Kind: Float, Size: 4}
	TDouble = &Type{Kind: Float, Size: 8}
)

// sigTable hash-conses function signatures by structural identity, so
// repeated declarations of the same signature share one *Type and the
// WebAssembly Type section can deduplicate in O(1) (spec.md §3, §8
// property 2).
var sigTable = map[string]*Type{}

// sigKey renders a structural key for a function type: return type and
// ordered parameter types (names excluded -- they don't affect equality).
func sigKey(ret *Type, params []Param, variadic bool) string {
	var b strings.Builder
	b.WriteString(ret.Mangled())
	b.WriteByte('(')
	for i, p := range params {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(p.Type.Mangled())
	}
	if variadic {
		b.WriteString(",...")
	}
	b.WriteByte(')')
	return b.String()
}

// InternFunc returns the canonical *Type for a function signature, creating
// and caching it on first encounter. First-encounter order is exactly
// what the WebAssembly Type section dedup walk needs (spec.md §4.6).
func InternFunc(ret *Type, params []Param, variadic bool) *Type {
	key := sigKey(ret, params, variadic)
	if t, ok := sigTable[key]; ok {
		return t
	}
	t := &Type{Kind: Func, Ret: ret, Params: append([]Param(nil), params...), Variadic: variadic}
	sigTable[key] = t
	return t
}

// NewPointer returns a pointer-to-elem type. Pointer types are not
// hash-consed (spec.md only requires structural identity for function
// types); a fresh *Type per use site is fine since equality is computed
// structurally by Equal.
func NewPointer(elem *Type) *Type {
	return &Type{Kind: Ptr, Size: 8, Elem: elem}
}

// NewArray returns an array-of-elem type with the given extent; hasLen
// false models the optional-extent array spec.md §3 allows (e.g. `int
// a[]` as an outermost parameter dimension, which decays to a pointer).
func NewArray(elem *Type, length int, hasLen bool) *Type {
	return &Type{Kind: Array, Elem: elem, Len: length, HasLen: hasLen}
}

// Equal reports structural equality. For Func types this is exactly the
// property spec.md §8 wants checked: return type and ordered parameter
// types equal. For every other kind, equality reduces to identical Kind
// plus: Size/Unsigned for Int, Size for Float, Elem for Ptr, Elem and Len
// for Array, a shared non-empty Tag for Struct/Union, Tag for Enum.
func Equal(a, b *Type) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil || a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case Void:
		return true
	case Int:
		return a.Size == b.Size && a.Unsigned == b.Unsigned
	case Float:
		return a.Size == b.Size
	case Ptr:
		return Equal(a.Elem, b.Elem)
	case Array:
		return Equal(a.Elem, b.Elem) && a.Len == b.Len
	case Struct, Union:
		return a.Tag != "" && a.Tag == b.Tag
	case Enum:
		return a.Tag == b.Tag
	case Func:
		if !Equal(a.Ret, b.Ret) || a.Variadic != b.Variadic || len(a.Params) != len(b.Params) {
			return false
		}
		for i := range a.Params {
			if !Equal(a.Params[i].Type, b.Params[i].Type) {
				return false
			}
		}
		return true
	}
	return false
}

// Mangled renders a short structural key usable both for signature
// interning and for diagnostic printing.
func (t *Type) Mangled() string {
	if t == nil {
		return "?"
	}
	switch t.Kind {
	case Void:
		return "v"
	case Int:
		u := "i"
		if t.Unsigned {
			u = "u"
		}
		return fmt.Sprintf("%s%d", u, t.Size*8)
	case Float:
		return fmt.Sprintf("f%d", t.Size*8)
	case Ptr:
		return "p" + t.Elem.Mangled()
	case Array:
		return fmt.Sprintf("a%d%s", t.Len, t.Elem.Mangled())
	case Struct:
		return "s:" + t.Tag
	case Union:
		return "u:" + t.Tag
	case Enum:
		return "e:" + t.Tag
	case Func:
		return sigKey(t.Ret, t.Params, t.Variadic)
	}
	return "?"
}

func (t *Type) String() string {
	switch t.Kind {
	case Void:
		return "void"
	case Int:
		names := map[[2]int]string{
			{1, 0}: "char", {1, 1}: "unsigned char",
			{2, 0}: "short", {2, 1}: "unsigned short",
			{4, 0}: "int", {4, 1}: "unsigned int",
			{8, 0}: "long", {8, 1}: "unsigned long",
		}
		u := 0
		if t.Unsigned {
			u = 1
		}
		if n, ok := names[[2]int{t.Size, u}]; ok {
			return n
		}
		return fmt.Sprintf("int%d", t.Size*8)
	case Float:
		if t.Size == 4 {
			return "float"
		}
		return "double"
	case Ptr:
		return t.Elem.String() + "*"
	case Array:
		if t.HasLen {
			return fmt.Sprintf("%s[%d]", t.Elem, t.Len)
		}
		return t.Elem.String() + "[]"
	case Struct:
		return "struct " + t.Tag
	case Union:
		return "union " + t.Tag
	case Enum:
		return "enum " + t.Tag
	case Func:
		parts := make([]string, len(t.Params))
		for i, p := range t.Params {
			parts[i] = p.Type.String()
		}
		va := ""
		if t.Variadic {
			va = ", ..."
		}
		return fmt.Sprintf("%s(%s%s)", t.Ret, strings.Join(parts, ", "), va)
	}
	return "<?>"
}

// IsInteger, IsFloat, IsArith, IsScalar classify a type for the usual
// arithmetic conversions and lvalue/array-decay rules (spec.md §4.2).
func (t *Type) IsInteger() bool { return t.Kind == Int || t.Kind == Enum }
func (t *Type) IsFloat() bool   { return t.Kind == Float }
func (t *Type) IsArith() bool   { return t.IsInteger() || t.IsFloat() }
func (t *Type) IsPointer() bool { return t.Kind == Ptr }
func (t *Type) IsArray() bool   { return t.Kind == Array }
func (t *Type) IsScalar() bool  { return t.IsArith() || t.IsPointer() }
func (t *Type) IsAggregate() bool {
	return t.Kind == Struct || t.Kind == Union
}

// Base returns the pointee/element type for pointers and arrays, the
// pointer-decayed type array-to-pointer conversion would produce.
func (t *Type) Base() *Type {
	switch t.Kind {
	case Ptr, Array:
		return t.Elem
	}
	return nil
}

// DecayedArray returns the pointer type an array decays to in expression
// context (spec.md §4.2 point 3: "arrays decay to pointers except under
// &, sizeof, and string-literal initialization").
func (t *Type) DecayedArray() *Type {
	if t.Kind == Array {
		return NewPointer(t.Elem)
	}
	return t
}

// Sizeof returns the byte size of t, including aggregate/array sizes.
func (t *Type) Sizeof() int {
	switch t.Kind {
	case Void:
		return 1
	case Int, Float:
		return t.Size
	case Ptr:
		return 8
	case Array:
		n := t.Len
		if !t.HasLen {
			n = 0
		}
		return t.Elem.Sizeof() * n
	case Struct, Union:
		return structSize(t)
	case Enum:
		return 4
	case Func:
		return 1
	}
	return 0
}

func structSize(t *Type) int {
	if len(t.Members) == 0 {
		return 0
	}
	last := t.Members[len(t.Members)-1]
	if t.Kind == Union {
		max := 0
		for _, m := range t.Members {
			if s := m.Type.Sizeof(); s > max {
				max = s
			}
		}
		return alignTo(max, t.Align)
	}
	end := last.Offset + last.Type.Sizeof()
	return alignTo(end, t.Align)
}

func alignTo(n, align int) int {
	if align <= 0 {
		align = 1
	}
	return (n + align - 1) / align * align
}

// Alignof returns the required alignment of t.
func (t *Type) Alignof() int {
	switch t.Kind {
	case Struct, Union:
		return t.Align
	case Array:
		return t.Elem.Alignof()
	default:
		if s := t.Sizeof(); s > 0 {
			return s
		}
		return 1
	}
}

// NewStruct lays out an ordered member list into byte offsets, assigning
// Align as the maximum member alignment (no over-alignment attributes --
// out of scope). Bitfield members pack into the preceding non-bitfield
// storage unit when it has the same Type and room left; spec.md §3 models
// this as {base-kind, width, position} on the member.
func NewStruct(tag string, kind Kind, members []Member) *Type {
	t := &Type{Kind: kind, Tag: tag}
	offset := 0
	align := 1
	bitOffset := 0 // bits consumed in the current storage unit
	var unitType *Type
	for i := range members {
		m := &members[i]
		if a := m.Type.Alignof(); a > align {
			align = a
		}
		if m.Width > 0 {
			unitSize := m.Type.Sizeof() * 8
			if unitType == nil || !Equal(unitType, m.Type) || bitOffset+m.Width > unitSize {
				if unitType != nil {
					offset += unitType.Sizeof()
				}
				offset = alignTo(offset, m.Type.Alignof())
				unitType = m.Type
				bitOffset = 0
			}
			m.Offset = offset
			m.Position = bitOffset
			bitOffset += m.Width
			continue
		}
		if unitType != nil {
			offset += unitType.Sizeof()
			unitType = nil
			bitOffset = 0
		}
		offset = alignTo(offset, m.Type.Alignof())
		m.Offset = offset
		if kind == Struct {
			offset += m.Type.Sizeof()
		}
	}
	if unitType != nil && kind == Struct {
		offset += unitType.Sizeof()
	}
	t.Members = members
	t.Align = align
	return t
}

// FindMember looks up a named member among t's direct members; members of
// anonymous (blank-named) nested aggregates are not searched.
func (t *Type) FindMember(name string) (*Member, bool) {
	for i := range t.Members {
		m := &t.Members[i]
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}
