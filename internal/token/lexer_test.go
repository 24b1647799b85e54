package token

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// spanConcat reproduces spec.md §8 property 1 ("concatenating tokens'
// source spans in order, with original whitespace between spans,
// reproduces the input exactly") by re-slicing src at each token's
// recorded {line, column} rather than trusting Token.Text verbatim, so the
// test exercises position tracking too.
func spanConcat(t *testing.T, src string, toks []Token) string {
	t.Helper()
	lines := strings.Split(src, "\n")
	var b strings.Builder
	prevLine, prevCol := 1, 1
	for _, tok := range toks {
		if tok.Kind == EOF {
			continue
		}
		for prevLine < tok.Pos.Line {
			b.WriteString(lines[prevLine-1][prevCol-1:])
			b.WriteByte('\n')
			prevLine++
			prevCol = 1
		}
		b.WriteString(lines[tok.Pos.Line-1][prevCol-1 : tok.Pos.Column-1])
		b.WriteString(tok.Text)
		prevCol = tok.Pos.Column + len(tok.Text)
	}
	b.WriteString(lines[prevLine-1][prevCol-1:])
	for prevLine < len(lines) {
		b.WriteByte('\n')
		prevLine++
		b.WriteString(lines[prevLine-1])
	}
	return b.String()
}

func TestLexRoundTrip(t *testing.T) {
	srcs := []string{
		"int main ( void ) { return 0 ; }",
		"int f(int x) {\n  return x + 1;\n}\n",
		"// a comment\nint x = 1; /* block */ int y = 2;",
	}
	for _, src := range srcs {
		toks, err := Lex("t.c", src)
		require.NoError(t, err)
		assert.Equal(t, src, spanConcat(t, src, toks))
	}
}

func TestLexIntLiterals(t *testing.T) {
	cases := []struct {
		src      string
		wantVal  int64
		unsigned bool
		long     bool
	}{
		{"42", 42, false, false},
		{"042", 042, false, false},
		{"0x2A", 0x2A, false, false},
		{"0X2a", 0x2a, false, false},
		{"10u", 10, true, false},
		{"10L", 10, false, true},
		{"10ul", 10, true, true},
		{"10LL", 10, false, true},
	}
	for _, c := range cases {
		toks, err := Lex("t.c", c.src)
		require.NoError(t, err, c.src)
		require.Equal(t, INT_LIT, toks[0].Kind, c.src)
		assert.Equal(t, c.wantVal, toks[0].IntVal, c.src)
		assert.Equal(t, c.unsigned, toks[0].IntSuffix.Unsigned, c.src)
		assert.Equal(t, c.long, toks[0].IntSuffix.Long, c.src)
	}
}

func TestLexFloatLiterals(t *testing.T) {
	cases := []struct {
		src      string
		wantVal  float64
		isSingle bool
	}{
		{"1.5", 1.5, false},
		{"1.5f", 1.5, true},
		{"1e3", 1e3, false},
		{"1.5e-2", 1.5e-2, false},
	}
	for _, c := range cases {
		toks, err := Lex("t.c", c.src)
		require.NoError(t, err, c.src)
		require.Equal(t, FLOAT_LIT, toks[0].Kind, c.src)
		assert.InDelta(t, c.wantVal, toks[0].FloatVal, 1e-9, c.src)
		assert.Equal(t, c.isSingle, toks[0].IsSingle, c.src)
	}
}

func TestLexLongestMatchOperators(t *testing.T) {
	cases := []struct {
		src  string
		kind Kind
	}{
		{"==", EQ}, {"=", ASSIGN},
		{"<<=", SHL_ASSIGN}, {"<<", SHL},
		{"->", ARROW}, {"-", MINUS},
		{"&&", LOGAND}, {"&", AMP},
	}
	for _, c := range cases {
		toks, err := Lex("t.c", c.src)
		require.NoError(t, err, c.src)
		assert.Equal(t, c.kind, toks[0].Kind, c.src)
		assert.Equal(t, len(c.src), len(toks[0].Text), c.src)
	}
}

func TestLexStringEscapes(t *testing.T) {
	toks, err := Lex("t.c", `"ab\ncd"`)
	require.NoError(t, err)
	require.Equal(t, STRING_LIT, toks[0].Kind)
	assert.Equal(t, "ab\ncd", toks[0].StrVal)
}

func TestLexUnrecognizedByteIsFatal(t *testing.T) {
	_, err := Lex("t.c", "int x = `;")
	assert.Error(t, err)
}

func TestLexEOFTerminates(t *testing.T) {
	toks, err := Lex("t.c", "x")
	require.NoError(t, err)
	assert.Equal(t, EOF, toks[len(toks)-1].Kind)
}
