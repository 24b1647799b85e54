package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEqualScalarsByKindAndSize covers spec.md §8 property 2 for the
// non-function kinds: equality reduces to identical Kind plus the fields
// that distinguish values within that kind.
func TestEqualScalarsByKindAndSize(t *testing.T) {
	assert.True(t, Equal(TInt, TInt))
	assert.True(t, Equal(TInt, &Type{Kind: Int, Size: 4}))
	assert.False(t, Equal(TInt, TUInt), "signedness differs")
	assert.False(t, Equal(TInt, TLong), "size differs")
	assert.True(t, Equal(TFloat, &Type{Kind: Float, Size: 4}))
	assert.False(t, Equal(TFloat, TDouble))
	assert.False(t, Equal(TInt, TFloat), "kind differs")
}

func TestEqualPointerAndArray(t *testing.T) {
	p1 := NewPointer(TInt)
	p2 := NewPointer(TInt)
	assert.True(t, Equal(p1, p2), "pointer equality is structural, not pointer identity")
	assert.False(t, Equal(p1, NewPointer(TLong)))

	a1 := NewArray(TInt, 10, true)
	a2 := NewArray(TInt, 10, true)
	assert.True(t, Equal(a1, a2))
	assert.False(t, Equal(a1, NewArray(TInt, 11, true)), "extent differs")
	assert.False(t, Equal(a1, NewArray(TLong, 10, true)), "element type differs")
}

func TestEqualStructUnionEnumByTag(t *testing.T) {
	s1 := NewStruct("point", Struct, []Member{{Name: "x", Type: TInt}, {Name: "y", Type: TInt}})
	s2 := NewStruct("point", Struct, []Member{{Name: "x", Type: TInt}, {Name: "y", Type: TInt}})
	assert.True(t, Equal(s1, s2), "same tag makes two struct types equal regardless of member identity")
	assert.False(t, Equal(s1, NewStruct("other", Struct, nil)))
	assert.False(t, Equal(&Type{Kind: Struct}, &Type{Kind: Struct}), "anonymous (untagged) structs never compare equal")

	u1 := &Type{Kind: Union, Tag: "u"}
	assert.False(t, Equal(s1, u1), "struct and union with matching tag are still different kinds")

	e1 := &Type{Kind: Enum, Tag: "color"}
	e2 := &Type{Kind: Enum, Tag: "color"}
	assert.True(t, Equal(e1, e2))
}

// TestEqualFuncStructural is the core of spec.md §8 property 2: two
// function types are structurally equal iff return type and ordered
// parameter types are equal; parameter names never participate.
func TestEqualFuncStructural(t *testing.T) {
	f1 := InternFunc(TInt, []Param{{Name: "a", Type: TInt}, {Name: "b", Type: TDouble}}, false)
	f2 := &Type{Kind: Func, Ret: TInt, Params: []Param{{Name: "different_name", Type: TInt}, {Name: "z", Type: TDouble}}}
	assert.True(t, Equal(f1, f2), "parameter names must not affect function-type equality")

	f3 := &Type{Kind: Func, Ret: TInt, Params: []Param{{Type: TInt}}}
	assert.False(t, Equal(f1, f3), "different parameter count")

	f4 := &Type{Kind: Func, Ret: TDouble, Params: f1.Params}
	assert.False(t, Equal(f1, f4), "different return type")

	f5 := &Type{Kind: Func, Ret: TInt, Params: []Param{{Type: TInt}, {Type: TDouble}}, Variadic: true}
	f6 := &Type{Kind: Func, Ret: TInt, Params: []Param{{Type: TInt}, {Type: TDouble}}, Variadic: false}
	assert.False(t, Equal(f5, f6), "variadic flag participates in equality")
}

// TestInternFuncDedupesStructurallyIdenticalSignatures is the WebAssembly
// Type-section-facing half of spec.md §8 property 2: "for any N generated
// functions, the Type section contains exactly the number of
// structurally-distinct signatures" -- InternFunc is the hash-consing step
// that dedup relies on, so interning the same shape twice, even with
// different parameter names, must return the identical *Type pointer.
func TestInternFuncDedupesStructurallyIdenticalSignatures(t *testing.T) {
	sigA := InternFunc(TInt, []Param{{Name: "x", Type: TInt}}, false)
	sigB := InternFunc(TInt, []Param{{Name: "y", Type: TInt}}, false)
	assert.Same(t, sigA, sigB, "identical structural signatures must hash-cons to one *Type")

	sigC := InternFunc(TDouble, []Param{{Name: "x", Type: TInt}}, false)
	assert.NotSame(t, sigA, sigC, "different return type must not collide")

	sigD := InternFunc(TInt, []Param{{Name: "x", Type: TInt}, {Name: "y", Type: TInt}}, false)
	assert.NotSame(t, sigA, sigD, "different arity must not collide")

	distinctShapes := []*Type{
		InternFunc(TVoid, nil, false),
		InternFunc(TInt, []Param{{Type: TInt}}, false),
		InternFunc(TInt, []Param{{Type: TInt}}, true),
	}
	seen := map[*Type]bool{}
	for _, sig := range distinctShapes {
		seen[sig] = true
	}
	assert.Len(t, seen, len(distinctShapes), "each structurally distinct signature interns to its own pointer")

	again := InternFunc(TVoid, nil, false)
	assert.Same(t, distinctShapes[0], again, "re-interning a known shape returns the cached pointer, not a new one")
}

func TestMangledRoundTripsThroughSigKey(t *testing.T) {
	f := InternFunc(TInt, []Param{{Type: TInt}, {Type: TDouble}}, true)
	assert.Equal(t, sigKey(TInt, f.Params, true), f.Mangled())
}

func TestSizeofAndAlignof(t *testing.T) {
	assert.Equal(t, 4, TInt.Sizeof())
	assert.Equal(t, 8, TDouble.Sizeof())
	assert.Equal(t, 8, NewPointer(TInt).Sizeof())
	assert.Equal(t, 40, NewArray(TInt, 10, true).Sizeof())
	assert.Equal(t, 0, NewArray(TInt, -1, false).Sizeof(), "unspecified extent sizes to zero")

	s := NewStruct("s", Struct, []Member{{Name: "a", Type: TChar}, {Name: "b", Type: TInt}})
	require.Len(t, s.Members, 2)
	assert.Equal(t, 0, s.Members[0].Offset)
	assert.Equal(t, 4, s.Members[1].Offset, "int member aligned up past the preceding char")
	assert.Equal(t, 8, s.Sizeof(), "struct size rounds up to its own alignment")
	assert.Equal(t, 4, s.Alignof())

	u := NewStruct("u", Union, []Member{{Name: "a", Type: TChar}, {Name: "b", Type: TLong}})
	assert.Equal(t, 8, u.Sizeof(), "union size is the max member size, aligned")
}

func TestClassifiers(t *testing.T) {
	assert.True(t, TInt.IsInteger())
	assert.True(t, (&Type{Kind: Enum}).IsInteger())
	assert.True(t, TFloat.IsFloat())
	assert.True(t, TInt.IsArith())
	assert.False(t, TInt.IsPointer())
	assert.True(t, NewPointer(TInt).IsPointer())
	assert.True(t, NewPointer(TInt).IsScalar())
	assert.True(t, NewArray(TInt, 4, true).IsArray())
	assert.True(t, (&Type{Kind: Struct}).IsAggregate())
	assert.False(t, TInt.IsAggregate())
}

func TestDecayedArray(t *testing.T) {
	arr := NewArray(TInt, 4, true)
	decayed := arr.DecayedArray()
	require.True(t, decayed.IsPointer())
	assert.True(t, Equal(decayed.Elem, TInt))
	assert.Same(t, TInt, TInt.DecayedArray(), "non-array types pass through DecayedArray unchanged")
}

func TestFindMember(t *testing.T) {
	s := NewStruct("p", Struct, []Member{{Name: "x", Type: TInt}, {Name: "y", Type: TInt}})
	m, ok := s.FindMember("y")
	require.True(t, ok)
	assert.Equal(t, 4, m.Offset)

	_, ok = s.FindMember("z")
	assert.False(t, ok)
}
