package emitx64

import (
	"fmt"
	"strings"

	"github.com/jainl28patel/xcc/internal/ir"
)

// emitData renders every global variable and interned string literal into
// the appropriate .data/.bss/.rodata section ahead of the .text section.
func emitData(w *Writer, mod *ir.Module, target Target) {
	var defined, bss []*ir.GlobalVar
	for _, g := range mod.Globals {
		if g.Imported {
			continue
		}
		if g.Init == nil && g.InitRef == "" {
			bss = append(bss, g)
		} else {
			defined = append(defined, g)
		}
	}

	if len(defined) > 0 {
		target.dataSection(w)
		for _, g := range defined {
			sym := target.Symbol(g.Name)
			if g.Exported {
				target.globl(w, sym)
			}
			target.Align(w, g.Align)
			w.Label(sym)
			if g.InitRef != "" {
				ref := target.Symbol(g.InitRef)
				if g.InitAddend != 0 {
					w.Directive(".quad %s+%d", ref, g.InitAddend)
				} else {
					w.Directive(".quad %s", ref)
				}
				continue
			}
			emitBytes(w, g.Init)
		}
	}

	if len(bss) > 0 {
		target.bssSection(w)
		for _, g := range bss {
			sym := target.Symbol(g.Name)
			if g.Exported {
				target.globl(w, sym)
			}
			target.Align(w, g.Align)
			w.Label(sym)
			w.Directive(".zero %d", g.Size)
		}
	}

	if len(mod.Strings) > 0 {
		target.rodataSection(w)
		for i, s := range mod.Strings {
			w.Label(strLabel(i))
			w.Directive(".asciz %s", quoteAsm(s))
		}
	}
}

// emitBytes renders a flat constant-initializer byte blob as a run of
// `.byte` directives, grouped eight to a line to keep output readable.
func emitBytes(w *Writer, b []byte) {
	for i := 0; i < len(b); i += 8 {
		end := i + 8
		if end > len(b) {
			end = len(b)
		}
		parts := make([]string, 0, end-i)
		for _, v := range b[i:end] {
			parts = append(parts, fmt.Sprintf("%d", v))
		}
		w.Directive(".byte %s", strings.Join(parts, ", "))
	}
}

// quoteAsm renders a Go string as a double-quoted assembler string literal,
// escaping backslash, quote, and control bytes the assembler cares about.
func quoteAsm(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '\n':
			b.WriteString("\\n")
		case '\t':
			b.WriteString("\\t")
		default:
			if c < 0x20 || c >= 0x7f {
				fmt.Fprintf(&b, "\\%03o", c)
			} else {
				b.WriteByte(c)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}
