package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jainl28patel/xcc/internal/ctx"
	"github.com/jainl28patel/xcc/internal/parser"
)

func buildModule(t *testing.T, src string) (*ctx.Context, *Module) {
	t.Helper()
	c := ctx.New("t.c")
	_, err := parser.Parse(c, src)
	require.NoError(t, err, "diagnostics: %v", c.Diags.All())
	mod := Build(c)
	require.False(t, c.Diags.HasErrors(), "diagnostics: %v", c.Diags.All())
	return c, mod
}

func isTerminator(op Op) bool {
	return op == OpBranch || op == OpCondBranch || op == OpTableBranch || op == OpResult
}

// assertWellFormedCFG checks spec.md §8 property 4: every non-empty block
// ends in a branch or a return, and every branch target resolves to a
// block that is actually part of the function (so no dangling, unpatched
// goto survives past Build).
func assertWellFormedCFG(t *testing.T, fn *Function) {
	t.Helper()
	blockSet := map[*Block]bool{}
	for _, bl := range fn.Blocks {
		blockSet[bl] = true
	}
	for _, bl := range fn.Blocks {
		if len(bl.Insns) == 0 {
			continue // trailing placeholder block; nothing reaches it
		}
		last := bl.Insns[len(bl.Insns)-1]
		assert.True(t, isTerminator(last.Op), "block %s's last instruction must be a terminator, got %v", bl.Label, last.Op)
		switch last.Op {
		case OpBranch:
			require.NotNil(t, last.Target, "unconditional branch in %s has no target", bl.Label)
			assert.True(t, blockSet[last.Target], "branch target in %s is not one of the function's own blocks", bl.Label)
		case OpCondBranch:
			require.NotNil(t, last.Then)
			require.NotNil(t, last.Else)
			assert.True(t, blockSet[last.Then])
			assert.True(t, blockSet[last.Else])
		case OpTableBranch:
			for _, target := range last.Targets {
				if target != nil {
					assert.True(t, blockSet[target])
				}
			}
			if last.Default != nil {
				assert.True(t, blockSet[last.Default])
			}
		}
	}
}

func TestBuildIfElseProducesWellFormedCFG(t *testing.T) {
	_, mod := buildModule(t, `
		int f(int x) {
			if (x > 0) {
				return 1;
			} else {
				return -1;
			}
		}
	`)
	require.Len(t, mod.Funcs, 1)
	assertWellFormedCFG(t, mod.Funcs[0])
}

func TestBuildLoopsProduceWellFormedCFG(t *testing.T) {
	srcs := []string{
		`int f(int n) { int s; s = 0; while (n > 0) { s = s + n; n = n - 1; } return s; }`,
		`int f(int n) { int s; s = 0; do { s = s + n; n = n - 1; } while (n > 0); return s; }`,
		`int f(int n) { int s; for (s = 0; n > 0; n = n - 1) { s = s + n; } return s; }`,
	}
	for _, src := range srcs {
		_, mod := buildModule(t, src)
		require.Len(t, mod.Funcs, 1)
		assertWellFormedCFG(t, mod.Funcs[0])
	}
}

func TestBuildSwitchProducesWellFormedCFG(t *testing.T) {
	_, mod := buildModule(t, `
		int f(int x) {
			switch (x) {
			case 1:
				return 10;
			case 2:
				return 20;
			default:
				return 0;
			}
			return -1;
		}
	`)
	require.Len(t, mod.Funcs, 1)
	assertWellFormedCFG(t, mod.Funcs[0])
}

func TestBuildBreakContinueProduceWellFormedCFG(t *testing.T) {
	_, mod := buildModule(t, `
		int f(int n) {
			int s;
			s = 0;
			while (n > 0) {
				n = n - 1;
				if (n == 5) {
					continue;
				}
				if (n == 2) {
					break;
				}
				s = s + 1;
			}
			return s;
		}
	`)
	require.Len(t, mod.Funcs, 1)
	assertWellFormedCFG(t, mod.Funcs[0])
}

// TestGotoPatchedToDeclaredLabel exercises forward-goto patching: the
// Target field must never be left nil once Build returns successfully.
func TestGotoPatchedToDeclaredLabel(t *testing.T) {
	_, mod := buildModule(t, `
		int f(int x) {
			goto done;
			x = 1;
		done:
			return x;
		}
	`)
	require.Len(t, mod.Funcs, 1)
	assertWellFormedCFG(t, mod.Funcs[0])
}

func TestGotoToUndeclaredLabelIsDiagnosed(t *testing.T) {
	c := ctx.New("t.c")
	_, err := parser.Parse(c, `int f(void) { goto nowhere; return 0; }`)
	require.NoError(t, err)
	Build(c)
	assert.True(t, c.Diags.HasErrors(), "goto to an undeclared label must be reported")
}

func TestBuildRecursiveCallLowersToSelfCall(t *testing.T) {
	_, mod := buildModule(t, `
		int fib(int n) {
			if (n < 2) {
				return n;
			}
			return fib(n - 1) + fib(n - 2);
		}
	`)
	require.Len(t, mod.Funcs, 1)
	fn := mod.Funcs[0]
	assertWellFormedCFG(t, fn)

	calls := 0
	for _, bl := range fn.Blocks {
		for _, in := range bl.Insns {
			if in.Op == OpCall && in.Callee == "fib" {
				calls++
			}
		}
	}
	assert.Equal(t, 2, calls, "fib(n-1)+fib(n-2) must lower to exactly two self-calls")
}

func TestBuildGlobalsCarryInitializers(t *testing.T) {
	_, mod := buildModule(t, `
		int counter = 42;
		int main(void) { return counter; }
	`)
	require.Len(t, mod.Globals, 1)
	g := mod.Globals[0]
	assert.Equal(t, "counter", g.Name)
	require.Len(t, g.Init, 4)
	assert.Equal(t, int64(42), int64(g.Init[0])|int64(g.Init[1])<<8|int64(g.Init[2])<<16|int64(g.Init[3])<<24)
}
