package emitx64

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jainl28patel/xcc/internal/ctx"
	"github.com/jainl28patel/xcc/internal/ir"
	"github.com/jainl28patel/xcc/internal/parser"
	"github.com/jainl28patel/xcc/internal/regalloc"
)

func compile(t *testing.T, src string, target Target) string {
	t.Helper()
	c := ctx.New("t.c")
	_, err := parser.Parse(c, src)
	require.NoError(t, err, "diagnostics: %v", c.Diags.All())
	mod := ir.Build(c)
	require.False(t, c.Diags.HasErrors())
	for _, fn := range mod.Funcs {
		regalloc.Allocate(fn, regalloc.SystemVInt, regalloc.SystemVFloat)
	}
	return EmitModule(mod, target, regalloc.SystemVInt, regalloc.SystemVFloat)
}

// TestEmitModuleIsIdempotent is spec.md §8 property 6: compiling the same
// source through lex/parse/build/allocate/emit twice, independently, must
// produce byte-identical assembly text -- nothing about the pipeline may
// depend on incidental map iteration order or other hidden state. (Calling
// EmitModule a second time on the very same already-emitted *ir.Module is
// not this property: computeFrame's argument-area placement is applied
// in-place on the shared VRegs and is only valid for one emission pass per
// allocation, matching how cmd/xcc always emits a freshly allocated
// module exactly once.)
func TestEmitModuleIsIdempotent(t *testing.T) {
	src := `
		int g;
		int fib(int n) {
			if (n < 2) {
				return n;
			}
			return fib(n - 1) + fib(n - 2);
		}
		int main(void) {
			g = fib(10);
			return g;
		}
	`
	first := compile(t, src, ELF)
	second := compile(t, src, ELF)
	assert.Equal(t, first, second, "compiling identical source twice must be byte-identical")
}

// TestGlobalAssignAndReturnEndToEnd is spec.md §8's native end-to-end
// scenario: `int g; int main(){g=42;return g;}` must produce assembly that
// defines main, refers to g and contains a ret.
func TestGlobalAssignAndReturnEndToEnd(t *testing.T) {
	text := compile(t, `int g; int main(void) { g = 42; return g; }`, ELF)
	assert.Contains(t, text, "main:")
	assert.Contains(t, text, "g")
	assert.Contains(t, text, "ret")
}

func TestELFAndMachOSymbolConventionsDiffer(t *testing.T) {
	elfText := compile(t, `int main(void) { return 0; }`, ELF)
	machoText := compile(t, `int main(void) { return 0; }`, MachO)
	assert.True(t, strings.Contains(elfText, "main:"), "ELF symbols are unprefixed")
	assert.True(t, strings.Contains(machoText, "_main:"), "Mach-O symbols are underscore-prefixed")
}

func TestRecursiveCallEmitsTwoCallInstructions(t *testing.T) {
	text := compile(t, `
		int fib(int n) {
			if (n < 2) {
				return n;
			}
			return fib(n - 1) + fib(n - 2);
		}
	`, ELF)
	assert.Equal(t, 2, strings.Count(text, "call\tfib"), "fib(n-1)+fib(n-2) must lower to exactly two call instructions")
}

func TestEmitModuleProducesTextAndDataSections(t *testing.T) {
	text := compile(t, `int g = 7; int main(void) { return g; }`, ELF)
	assert.Contains(t, text, ".text")
	assert.Contains(t, text, ".data")
}
