// Package diag collects and formats compiler diagnostics.
//
// The teacher (hhramberg-go-vslc) fans error reporting out over channels
// and a goroutine-backed perror listener because it was built to support
// parallel optimisation passes. This compiler is single-threaded end to
// end (spec §5), so the same reporting shape -- accumulate, count, flush
// -- is kept but implemented as plain synchronous slice appends.
package diag

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// Severity classifies a Diagnostic.
type Severity int

const (
	// Error is a semantic or syntactic problem; codegen is skipped for
	// the enclosing function but the rest of the translation unit is
	// still checked.
	Error Severity = iota
	// Fatal aborts translation immediately (lexical and internal
	// assertion failures per spec §7).
	Fatal
)

// Pos is a source location: file, line and column, all 1-based except
// that File may be empty for synthesized diagnostics.
type Pos struct {
	File   string
	Line   int
	Column int
}

// String renders "file:line:column:" or just "file:" if Line is unset.
func (p Pos) String() string {
	if p.Line == 0 {
		return fmt.Sprintf("%s:", p.File)
	}
	return fmt.Sprintf("%s:%d:%d:", p.File, p.Line, p.Column)
}

// Diagnostic is one reported problem, pinned to a source position.
type Diagnostic struct {
	Pos      Pos
	Severity Severity
	Msg      string
	Cause    error // wrapped underlying error, if any, via pkg/errors
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s %s", d.Pos, d.Msg)
}

// Sink accumulates diagnostics for one compiler run. It is owned by a
// single ctx.Context and is never shared across goroutines.
type Sink struct {
	diags []Diagnostic
}

// NewSink returns an empty diagnostic sink.
func NewSink() *Sink {
	return &Sink{diags: make([]Diagnostic, 0, 16)}
}

// Errorf records a non-fatal diagnostic at pos.
func (s *Sink) Errorf(pos Pos, format string, args ...interface{}) {
	s.diags = append(s.diags, Diagnostic{
		Pos:      pos,
		Severity: Error,
		Msg:      fmt.Sprintf(format, args...),
	})
}

// Wrapf records a non-fatal diagnostic at pos and keeps cause, wrapped,
// in its Cause field. Flush prints only position and message; the cause
// is not printed.
func (s *Sink) Wrapf(pos Pos, cause error, format string, args ...interface{}) {
	s.diags = append(s.diags, Diagnostic{
		Pos:      pos,
		Severity: Error,
		Msg:      fmt.Sprintf(format, args...),
		Cause:    errors.Wrap(cause, fmt.Sprintf(format, args...)),
	})
}

// Fatal records a fatal diagnostic. Callers must stop processing the
// translation unit after calling this.
func (s *Sink) Fatal(pos Pos, format string, args ...interface{}) Diagnostic {
	d := Diagnostic{
		Pos:      pos,
		Severity: Fatal,
		Msg:      fmt.Sprintf(format, args...),
	}
	s.diags = append(s.diags, d)
	return d
}

// Len returns the number of accumulated diagnostics.
func (s *Sink) Len() int { return len(s.diags) }

// HasErrors reports whether any diagnostic (of any severity) was
// recorded; codegen must be skipped whenever this is true (spec §7).
func (s *Sink) HasErrors() bool { return len(s.diags) > 0 }

// All returns the accumulated diagnostics in report order.
func (s *Sink) All() []Diagnostic { return s.diags }

// Flush writes every diagnostic to w, one per line, and clears the sink.
func (s *Sink) Flush(w io.Writer) {
	for _, d := range s.diags {
		_, _ = fmt.Fprintln(w, d.Error())
	}
	s.diags = s.diags[:0]
}
