package emitx64

import (
	"fmt"
	"strings"
)

// Target distinguishes the two object-file conventions the emitter must
// speak: symbol naming and section/alignment directives differ between
// ELF (Linux) and Mach-O (Darwin) assemblers even though the instruction
// mnemonics are identical (SPEC_FULL.md's domain-stack expansion calls this
// out explicitly as something a complete x86-64 text emitter must handle).
type Target int

const (
	ELF Target = iota
	MachO
)

// ParseTarget maps a `-target` CLI value to a Target, defaulting to ELF.
// Only the OS part before the first '-' is consulted, so "darwin-apple"
// and "darwin" both select Mach-O.
func ParseTarget(s string) Target {
	if i := strings.IndexByte(s, '-'); i >= 0 {
		s = s[:i]
	}
	switch s {
	case "darwin", "macos", "macho":
		return MachO
	default:
		return ELF
	}
}

// Symbol renders a C-level name as the assembler symbol the target expects:
// Mach-O prefixes every external symbol with an underscore, ELF does not.
func (t Target) Symbol(name string) string {
	if t == MachO {
		return "_" + name
	}
	return name
}

// Align renders an alignment directive for n bytes: ELF's .align takes a
// byte count, Mach-O's takes log2 of the byte count.
func (t Target) Align(w *Writer, n int) {
	if n <= 1 {
		return
	}
	if t == MachO {
		shift := 0
		for (1 << uint(shift)) < n {
			shift++
		}
		w.Directive(".align %d", shift)
		return
	}
	w.Directive(".align %d", n)
}

func (t Target) textSection(w *Writer) {
	w.Directive(".text")
}

func (t Target) dataSection(w *Writer) {
	w.Directive(".data")
}

func (t Target) bssSection(w *Writer) {
	if t == MachO {
		w.Directive(".bss")
		return
	}
	w.Directive(".bss")
}

func (t Target) rodataSection(w *Writer) {
	if t == MachO {
		w.Directive(".const")
		return
	}
	w.Directive(".section .rodata")
}

func (t Target) globl(w *Writer, sym string) {
	w.Directive(".globl %s", sym)
}

func strLabel(idx int) string {
	return fmt.Sprintf(".Lstr%d", idx)
}
