package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
)

// options mirrors hhramberg-go-vslc/src/util.Options' shape: a flat struct
// of driver knobs, hand-parsed from os.Args rather than through the
// standard flag package, since xcc's flags (-e<name>[,...], -vb) don't fit
// flag's one-dash-one-value model any more than the teacher's did.
type options struct {
	Src     string   // input path; "" or "-" means standard input.
	Out     string   // output path; "" selects a target-specific default.
	Exports []string // -e<name>[,...]; selects the WebAssembly backend.
	Target  string   // -target <os-vendor>, passed to emitx64.ParseTarget.

	Verbose  bool // --verbose / -vb
	EmitLLVM bool // -emit-llvm
	DumpAST  bool // --dump-ast
	DumpIR   bool // --dump-ir
}

const appVersion = "xcc compiler 0.1"

// parseArgs parses xcc's command line, grounded on
// hhramberg-go-vslc/src/util/args.go's ParseArgs: a single forward pass
// over args with a switch per flag, positional argument collected last.
func parseArgs(args []string) (options, error) {
	var opt options
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "-h" || a == "--help" || a == "-help":
			printHelp()
			os.Exit(0)
		case a == "-v" || a == "--version":
			fmt.Println(appVersion)
			os.Exit(0)
		case a == "--verbose" || a == "-vb":
			opt.Verbose = true
		case a == "-emit-llvm":
			opt.EmitLLVM = true
		case a == "--dump-ast":
			opt.DumpAST = true
		case a == "--dump-ir":
			opt.DumpIR = true
		case a == "-o":
			if i+1 >= len(args) {
				return opt, fmt.Errorf("got flag %s but no argument", a)
			}
			i++
			opt.Out = args[i]
		case a == "-target":
			if i+1 >= len(args) {
				return opt, fmt.Errorf("got flag %s but no argument", a)
			}
			i++
			opt.Target = args[i]
		case strings.HasPrefix(a, "-e") && a != "-e" && len(a) > 2:
			opt.Exports = append(opt.Exports, strings.Split(a[2:], ",")...)
		case a == "-":
			// Explicit standard-input marker; handled like an empty Src.
		case strings.HasPrefix(a, "-"):
			return opt, fmt.Errorf("unexpected flag: %s", a)
		default:
			if opt.Src != "" {
				return opt, fmt.Errorf("unexpected extra positional argument: %s", a)
			}
			opt.Src = a
		}
	}
	return opt, nil
}

// printHelp prints a usage message, grounded on
// hhramberg-go-vslc/src/util/args.go's printHelp tabwriter layout.
func printHelp() {
	w := tabwriter.NewWriter(os.Stdout, 6, 1, 1, 0, 0)
	_, _ = fmt.Fprintln(w, "usage: xcc [flags] [file]")
	_, _ = fmt.Fprintln(w, "-h, -help, --help\tPrints this help message and exits.")
	_, _ = fmt.Fprintln(w, "-v, --version\tPrints the compiler version and exits.")
	_, _ = fmt.Fprintln(w, "-o <path>\tOutput file path. Defaults to a.s (native) or a.wasm (-e given).")
	_, _ = fmt.Fprintln(w, "-e<name>[,<name>...]\tExport name(s); selects the WebAssembly backend.")
	_, _ = fmt.Fprintln(w, "-target <os-vendor>\tNative output target, e.g. linux-pc or darwin-apple.")
	_, _ = fmt.Fprintln(w, "--verbose, -vb\tPrint progress diagnostics to standard error.")
	_, _ = fmt.Fprintln(w, "-emit-llvm\tDump textual LLVM IR instead of native assembly and exit.")
	_, _ = fmt.Fprintln(w, "--dump-ast\tPretty-print the parsed AST and exit before code generation.")
	_, _ = fmt.Fprintln(w, "--dump-ir\tPretty-print the native IR and exit before register allocation.")
	_ = w.Flush()
}
