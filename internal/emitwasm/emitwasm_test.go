package emitwasm

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jainl28patel/xcc/internal/ctx"
	"github.com/jainl28patel/xcc/internal/parser"
)

// readULEB reproduces a minimal decoder so tests can check putULEB128's
// output round-trips, without depending on any third-party wasm library.
func readULEB(b []byte) (val uint64, n int) {
	var shift uint
	for {
		by := b[n]
		val |= uint64(by&0x7f) << shift
		n++
		if by&0x80 == 0 {
			return val, n
		}
		shift += 7
	}
}

// TestULEB128RoundTripsAndIsMinimalLength is spec.md §8 property 7's
// encoding half: every LEB128 value decodes back to itself and uses the
// canonical (shortest possible) byte count -- no padded continuation
// bytes, which is what a real WebAssembly validator rejects first.
func TestULEB128RoundTripsAndIsMinimalLength(t *testing.T) {
	cases := []uint64{0, 1, 63, 64, 127, 128, 300, 1 << 20, 1 << 35, ^uint64(0)}
	for _, v := range cases {
		var buf bytes.Buffer
		putULEB128(&buf, v)
		got, n := readULEB(buf.Bytes())
		assert.Equal(t, v, got, "value %d", v)
		assert.Equal(t, len(buf.Bytes()), n, "value %d: decoder must consume exactly the encoded bytes", v)

		wantLen := 1
		for x := v >> 7; x != 0; x >>= 7 {
			wantLen++
		}
		assert.Equal(t, wantLen, buf.Len(), "value %d must use the minimal LEB128 byte count", v)
		if buf.Len() > 0 {
			last := buf.Bytes()[buf.Len()-1]
			assert.Zero(t, last&0x80, "final LEB128 byte must not set the continuation bit")
		}
	}
}

func TestSLEB128RoundTrips(t *testing.T) {
	cases := []int64{0, 1, -1, 63, -64, 64, -65, 1000, -1000, 1 << 30, -(1 << 30)}
	for _, v := range cases {
		var buf bytes.Buffer
		putSLEB128(&buf, v)

		var shift uint
		var result int64
		var b byte
		i := 0
		data := buf.Bytes()
		for {
			b = data[i]
			result |= int64(b&0x7f) << shift
			shift += 7
			i++
			if b&0x80 == 0 {
				break
			}
		}
		if shift < 64 && b&0x40 != 0 {
			result |= -1 << shift
		}
		assert.Equal(t, v, result, "value %d", v)
		assert.Equal(t, i, len(data), "decoder must consume exactly the encoded bytes")
	}
}

func TestWithSizePrependsLength(t *testing.T) {
	body := []byte{1, 2, 3, 4, 5}
	out := withSize(body)
	n, consumed := readULEB(out)
	assert.Equal(t, uint64(len(body)), n)
	assert.Equal(t, body, out[consumed:])
}

func emitModule(t *testing.T, src string, exports []string) []byte {
	t.Helper()
	c := ctx.New("t.c")
	_, err := parser.Parse(c, src)
	require.NoError(t, err, "diagnostics: %v", c.Diags.All())
	mod, err := EmitModule(c, exports)
	require.NoError(t, err)
	require.False(t, c.Diags.HasErrors(), "diagnostics: %v", c.Diags.All())
	return mod
}

// TestModuleHasValidHeaderAndCanonicalSectionOrder is spec.md §8 property 7
// structurally: the 8-byte magic+version header, then sections strictly
// increasing by id (the order a real WebAssembly validator requires).
func TestModuleHasValidHeaderAndCanonicalSectionOrder(t *testing.T) {
	mod := emitModule(t, `int f(int x) { return x + 1; }`, []string{"f"})
	require.GreaterOrEqual(t, len(mod), 8)
	assert.Equal(t, []byte{0x00, 0x61, 0x73, 0x6D}, mod[:4], "magic bytes")
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(mod[4:8]), "version")

	pos := 8
	lastID := -1
	for pos < len(mod) {
		id := int(mod[pos])
		pos++
		size, n := readULEB(mod[pos:])
		pos += n
		assert.Greater(t, id, lastID, "section ids must strictly increase (canonical order)")
		lastID = id
		pos += int(size)
	}
	assert.Equal(t, len(mod), pos, "section sizes must exactly partition the remaining module bytes")
}

// TestExportedFunctionAddsOneExportEntry is spec.md §8's WebAssembly
// end-to-end scenario: `f(x)=x+1` exported as `f` produces exactly one
// export entry naming f.
func TestExportedFunctionAddsOneExportEntry(t *testing.T) {
	mod := emitModule(t, `int f(int x) { return x + 1; }`, []string{"f"})
	sec, ok := findSection(mod, secExport)
	require.True(t, ok)
	count, n := readULEB(sec)
	require.Equal(t, uint64(1), count)
	nameLen, n2 := readULEB(sec[n:])
	name := string(sec[n+n2 : n+n2+int(nameLen)])
	assert.Equal(t, "f", name)
}

// TestRecursiveFunctionEmitsTwoSelfCalls mirrors spec.md §8's fib scenario:
// a recursive function's code body contains exactly two `call 0`
// instructions (both referencing its own, sole, function index).
func TestRecursiveFunctionEmitsTwoSelfCalls(t *testing.T) {
	mod := emitModule(t, `
		int fib(int n) {
			if (n < 2) {
				return n;
			}
			return fib(n - 1) + fib(n - 2);
		}
	`, []string{"fib"})
	sec, ok := findSection(mod, secCode)
	require.True(t, ok)
	assert.Equal(t, 2, bytes.Count(sec, []byte{opCall, 0x00}), "fib must call itself (function index 0) exactly twice")
}

// TestDistinctSignaturesDedupIntoOneTypeEach is spec.md §8 property 2's
// WebAssembly-facing half: for N generated functions, the Type section
// contains exactly the number of structurally-distinct signatures.
func TestDistinctSignaturesDedupIntoOneTypeEach(t *testing.T) {
	var src bytes.Buffer
	names := []string{}
	// 40 functions: 20 of shape int(int), 10 of shape int(int,int), 10 of
	// shape void(void) -- three distinct signatures total.
	for i := 0; i < 20; i++ {
		src.WriteString(fnSrc("a", i, "int", "int x"))
		names = append(names, fnName("a", i))
	}
	for i := 0; i < 10; i++ {
		src.WriteString(fnSrc("b", i, "int", "int x, int y"))
		names = append(names, fnName("b", i))
	}
	for i := 0; i < 10; i++ {
		src.WriteString(voidFnSrc("c", i))
		names = append(names, fnName("c", i))
	}

	mod := emitModule(t, src.String(), names)
	sec, ok := findSection(mod, secType)
	require.True(t, ok)
	count, _ := readULEB(sec)
	assert.Equal(t, uint64(3), count, "40 functions across 3 distinct shapes must dedup to exactly 3 Type entries")
}

func fnName(prefix string, i int) string { return prefix + "fn" + itoa(i) }

func fnSrc(prefix string, i int, ret, params string) string {
	return ret + " " + fnName(prefix, i) + "(" + params + ") { return 0; }\n"
}

func voidFnSrc(prefix string, i int) string {
	return "void " + fnName(prefix, i) + "(void) { }\n"
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var digits []byte
	for i > 0 {
		digits = append([]byte{byte('0' + i%10)}, digits...)
		i /= 10
	}
	if neg {
		return "-" + string(digits)
	}
	return string(digits)
}

// findSection scans a module's bytes for the first section with the given
// id, returning its body (not including the id byte or its own size
// prefix).
func findSection(mod []byte, id byte) ([]byte, bool) {
	pos := 8
	for pos < len(mod) {
		sid := mod[pos]
		pos++
		size, n := readULEB(mod[pos:])
		pos += n
		body := mod[pos : pos+int(size)]
		if sid == id {
			return body, true
		}
		pos += int(size)
	}
	return nil, false
}
