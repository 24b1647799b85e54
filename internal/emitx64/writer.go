// Package emitx64 walks a native ir.Module after register allocation and
// emits System-V x86-64 AT&T assembly text (spec.md §4.5).
//
// Grounded on hhramberg-go-vslc/src/util.Writer's instruction-emission
// helper API (Write/Ins1/Ins2/Label/LoadStore) and
// hhramberg-go-vslc/src/backend/arm's genFunction prologue/epilogue shape,
// generalized from aarch64 stp/ldp frame setup to the System-V x86-64
// push-rbp/mov-rbp-rsp convention. The teacher's Writer buffers through a
// channel to support concurrent per-function workers; spec.md §5 makes
// this compiler single-threaded, so Writer here is a plain strings.Builder
// with a similar method surface and no channel.
package emitx64

import (
	"fmt"
	"strings"
)

// Writer accumulates emitted assembly text.
type Writer struct {
	sb strings.Builder
}

// Write appends a formatted line.
func (w *Writer) Write(format string, args ...interface{}) {
	fmt.Fprintf(&w.sb, format, args...)
}

// WriteString appends a plain string verbatim.
func (w *Writer) WriteString(s string) {
	w.sb.WriteString(s)
}

// Ins1 emits a one-operand instruction.
func (w *Writer) Ins1(op, rs1 string) {
	fmt.Fprintf(&w.sb, "\t%s\t%s\n", op, rs1)
}

// Ins2 emits a two-operand instruction (AT&T order: src, dst).
func (w *Writer) Ins2(op, src, dst string) {
	fmt.Fprintf(&w.sb, "\t%s\t%s, %s\n", op, src, dst)
}

// Ins2imm emits a two-operand instruction with a signed immediate source.
func (w *Writer) Ins2imm(op string, imm int64, dst string) {
	fmt.Fprintf(&w.sb, "\t%s\t$%d, %s\n", op, imm, dst)
}

// LoadStore emits a `mov disp(base), reg` or `mov reg, disp(base)` form
// depending on which side the caller already built as a memory operand;
// callers pass the fully-rendered memory operand string.
func (w *Writer) LoadStore(op, reg, mem string) {
	fmt.Fprintf(&w.sb, "\t%s\t%s, %s\n", op, reg, mem)
}

// Label emits a bare `name:` label line.
func (w *Writer) Label(name string) {
	fmt.Fprintf(&w.sb, "%s:\n", name)
}

// Directive emits an assembler directive line (`.globl foo`, `.align 4`, ...).
func (w *Writer) Directive(format string, args ...interface{}) {
	fmt.Fprintf(&w.sb, "\t%s\n", fmt.Sprintf(format, args...))
}

// String returns the accumulated assembly text.
func (w *Writer) String() string {
	return w.sb.String()
}
