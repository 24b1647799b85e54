package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jainl28patel/xcc/internal/ast"
	"github.com/jainl28patel/xcc/internal/ctx"
	"github.com/jainl28patel/xcc/internal/types"
)

func mustParse(t *testing.T, src string) (*ctx.Context, *ast.Node) {
	t.Helper()
	c := ctx.New("t.c")
	root, err := Parse(c, src)
	require.NoError(t, err, "diagnostics: %v", c.Diags.All())
	require.NotNil(t, root)
	return c, root
}

func findFunc(root *ast.Node, name string) *ast.Node {
	for _, n := range root.Stmts {
		if n.Kind == ast.FuncDecl && n.Name == name {
			return n
		}
	}
	return nil
}

func TestParseSimpleFunctionShape(t *testing.T) {
	_, root := mustParse(t, "int main(void) { return 0; }")
	require.Len(t, root.Stmts, 1)
	fn := findFunc(root, "main")
	require.NotNil(t, fn)
	require.NotNil(t, fn.Body)
	assert.Equal(t, ast.Block, fn.Body.Kind)
	require.Len(t, fn.Body.Stmts, 1)
	assert.Equal(t, ast.Return, fn.Body.Stmts[0].Kind)
}

// TestImplicitCastInsertedOnMixedArithmetic is spec.md §8 property 3:
// arithmetic between operands of different rank inserts an implicit EX_CAST
// node around the narrower operand so that every Binary node's Lhs/Rhs
// types already agree after buildBinary runs.
func TestImplicitCastInsertedOnMixedArithmetic(t *testing.T) {
	_, root := mustParse(t, "double f(int x, double y) { return x + y; }")
	fn := findFunc(root, "f")
	require.NotNil(t, fn)
	ret := fn.Body.Stmts[0]
	require.Equal(t, ast.Return, ret.Kind)
	add := ret.Lhs
	require.Equal(t, ast.Binary, add.Kind)
	assert.True(t, types.Equal(add.Type, types.TDouble), "int+double promotes to double")

	require.Equal(t, ast.Cast, add.Lhs.Kind, "the int operand must be wrapped in an implicit cast")
	assert.True(t, add.Lhs.CastIsImplicit)
	assert.True(t, types.Equal(add.Lhs.Type, types.TDouble))

	assert.NotEqual(t, ast.Cast, add.Rhs.Kind, "the already-double operand needs no cast")
}

func TestImplicitCastSkippedWhenTypesAlreadyMatch(t *testing.T) {
	_, root := mustParse(t, "int f(int a, int b) { return a + b; }")
	fn := findFunc(root, "f")
	add := fn.Body.Stmts[0].Lhs
	require.Equal(t, ast.Binary, add.Kind)
	assert.Equal(t, ast.VarRef, add.Lhs.Kind, "operands already of the common type are not wrapped")
	assert.Equal(t, ast.VarRef, add.Rhs.Kind)
}

func TestComparisonResultIsAlwaysInt(t *testing.T) {
	_, root := mustParse(t, "int f(double a, double b) { return a < b; }")
	fn := findFunc(root, "f")
	cmp := fn.Body.Stmts[0].Lhs
	require.Equal(t, ast.Binary, cmp.Kind)
	assert.True(t, types.Equal(cmp.Type, types.TInt), "relational operators yield int regardless of operand type")
	assert.True(t, types.Equal(cmp.Lhs.Type, types.TDouble), "operands are still arithmetic-converted for the comparison")
}

func TestPointerArithmeticScalesByElementSize(t *testing.T) {
	_, root := mustParse(t, "int f(int *p) { return *(p + 1); }")
	fn := findFunc(root, "f")
	ret := fn.Body.Stmts[0]
	deref := ret.Lhs
	require.Equal(t, ast.Deref, deref.Kind)
	add := deref.Lhs
	require.Equal(t, ast.Binary, add.Kind)
	assert.True(t, add.Type.IsPointer())
	require.Equal(t, ast.IntLit, add.Rhs.Kind)
	assert.Equal(t, int64(4), add.Rhs.IntVal, "index 1 scaled by sizeof(int)==4")
}

func TestPointerDifferenceDividesByElementSize(t *testing.T) {
	_, root := mustParse(t, "long f(int *a, int *b) { return a - b; }")
	fn := findFunc(root, "f")
	ret := fn.Body.Stmts[0]
	div := ret.Lhs
	require.Equal(t, ast.Binary, div.Kind)
	assert.Equal(t, ast.OpDiv, div.Op)
	assert.Equal(t, int64(4), div.Rhs.IntVal)
}

func TestArrayDecaysToPointerInExpressionContext(t *testing.T) {
	_, root := mustParse(t, "int f(void) { int a[4]; return a[0]; }")
	fn := findFunc(root, "f")
	require.Len(t, fn.Body.Stmts, 2)
	ret := fn.Body.Stmts[1]
	require.Equal(t, ast.Return, ret.Kind)
	deref := ret.Lhs
	require.Equal(t, ast.Deref, deref.Kind)
	sum := deref.Lhs
	require.Equal(t, ast.Binary, sum.Kind)
	assert.True(t, sum.Type.IsPointer(), "array operand must have decayed to a pointer before the subscript addition")
}

// TestSyntaxErrorResynchronizesAtNextTopLevelConstruct is spec.md §7: a
// malformed top-level declaration is skipped, but the parser keeps going
// and still reports well-formed declarations after it.
func TestSyntaxErrorResynchronizesAtNextTopLevelConstruct(t *testing.T) {
	c := ctx.New("t.c")
	src := "int bad(( ; int ok(void) { return 1; }"
	root, err := Parse(c, src)
	require.Error(t, err)
	require.True(t, c.Diags.HasErrors())
	ok := findFunc(root, "ok")
	assert.NotNil(t, ok, "parser must recover and still see the declaration after the broken one")
}

func TestConstantFoldingOfBinaryExpression(t *testing.T) {
	_, root := mustParse(t, "int f(void) { return 2 + 3; }")
	fn := findFunc(root, "f")
	ret := fn.Body.Stmts[0]
	require.Equal(t, ast.IntLit, ret.Lhs.Kind, "constant subexpressions fold at parse time")
	assert.Equal(t, int64(5), ret.Lhs.IntVal)
}
