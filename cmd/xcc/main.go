// Command xcc compiles a C-subset translation unit to either native
// x86-64 assembly or a binary WebAssembly module.
//
// Grounded on hhramberg-go-vslc/src/main.go's run(opt)/main() split: a
// pure staged pipeline function that returns an error, and a thin main()
// that parses arguments, opens the output file, calls run, and reports
// failure. The teacher drives an LLVM-IR and a hand-written back end off
// the same opt.LLVM switch; xcc keeps that shape for -emit-llvm.
package main

import (
	"fmt"
	"os"

	"github.com/kr/pretty"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/jainl28patel/xcc/internal/ctx"
	"github.com/jainl28patel/xcc/internal/emitwasm"
	"github.com/jainl28patel/xcc/internal/emitx64"
	"github.com/jainl28patel/xcc/internal/ir"
	"github.com/jainl28patel/xcc/internal/parser"
	"github.com/jainl28patel/xcc/internal/regalloc"
)

var log = logrus.New()

// run executes the compiler pipeline described by opt: read, lex+parse,
// one of {dump AST, dump IR, emit LLVM text, emit WebAssembly, emit
// native assembly}. Diagnostics accumulated on the context are flushed to
// stderr and reported as the returned error; nothing is written to the
// output path if any diagnostic was recorded (spec.md §7).
func run(opt options) error {
	log.SetOutput(os.Stderr)
	if opt.Verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.WarnLevel)
	}

	src, file, err := readSource(opt.Src)
	if err != nil {
		return errors.Wrap(err, "could not read source")
	}

	c := ctx.New(file)
	c.Verbose = opt.Verbose

	log.Debugf("lexing and parsing %s", file)
	root, perr := parser.Parse(c, src)
	if c.Diags.HasErrors() {
		c.Diags.Flush(os.Stderr)
		return fmt.Errorf("translation unit has errors")
	}
	if perr != nil {
		return errors.Wrap(perr, "parse error")
	}

	if opt.DumpAST {
		_, _ = pretty.Println(root)
		return nil
	}

	if len(opt.Exports) > 0 {
		return runWasm(c, opt)
	}

	log.Debug("building native IR")
	mod := ir.Build(c)
	if c.Diags.HasErrors() {
		c.Diags.Flush(os.Stderr)
		return fmt.Errorf("translation unit has errors")
	}

	if opt.DumpIR {
		_, _ = pretty.Println(mod)
		return nil
	}

	if opt.EmitLLVM {
		log.Debug("rendering textual LLVM IR")
		text := dumpLLVM(mod)
		fmt.Println(text)
		return nil
	}

	target := emitx64.ParseTarget(opt.Target)
	log.Debugf("register-allocating for target %v", target)
	for _, fn := range mod.Funcs {
		regalloc.Allocate(fn, regalloc.SystemVInt, regalloc.SystemVFloat)
	}

	log.Debug("emitting native assembly")
	text := emitx64.EmitModule(mod, target, regalloc.SystemVInt, regalloc.SystemVFloat)
	if err := writeOutput(opt.Out, "a.s", []byte(text)); err != nil {
		return err
	}
	return nil
}

// runWasm compiles c's already-parsed translation unit to a binary
// WebAssembly module (spec.md §4.6, §6's `-e<name>[,...]`).
func runWasm(c *ctx.Context, opt options) error {
	log.Debugf("emitting WebAssembly module exporting %v", opt.Exports)
	mod, err := emitwasm.EmitModule(c, opt.Exports)
	if c.Diags.HasErrors() {
		c.Diags.Flush(os.Stderr)
		return fmt.Errorf("translation unit has errors")
	}
	if err != nil {
		return errors.Wrap(err, "WebAssembly emission error")
	}
	return writeOutput(opt.Out, "a.wasm", mod)
}

func main() {
	opt, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "xcc: %s\n", err)
		os.Exit(1)
	}

	if err := run(opt); err != nil {
		fmt.Fprintf(os.Stderr, "xcc: %s\n", err)
		os.Exit(1)
	}
}
