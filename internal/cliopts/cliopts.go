// Package cliopts parses the compiler's command line and resolves the FLINTPATH import search path.
package cliopts

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Options carries every recognised command line setting.
type Options struct {
	Src      string // Path to the source file to compile.
	Out      string // Output path override; defaults to the source stem.
	Threads  int    // Worker count override; 0 means the hardware default.
	Test     bool   // Build a test executable instead of the normal entry point.
	EmitIR   bool   // Also write the textual LLIR next to the executable, comments resolved.
	EmitLLVM bool   // Lower through the LLVM path instead of the native LLIR printer.
	Verbose  bool   // Log compiler progress to stdout.
}

// ---------------------
// ----- Constants -----
// ---------------------

// maxThreads bounds the worker count a user may request.
const maxThreads = 64

const appVersion = "flintc 0.1"

// envSearchPath names the environment variable holding the import search directories.
const envSearchPath = "FLINTPATH"

// ---------------------
// ----- Functions -----
// ---------------------

// ParseArgs parses os.Args into Options. The source file is the one non-flag argument.
func ParseArgs() (Options, error) {
	return parse(os.Args[1:])
}

func parse(args []string) (Options, error) {
	opt := Options{}
	for i1 := 0; i1 < len(args); i1++ {
		switch args[i1] {
		case "-h", "--h", "-help", "--help":
			printHelp()
			os.Exit(0)
		case "-v", "--v", "-version", "--version":
			fmt.Println(appVersion)
			os.Exit(0)
		case "--test":
			opt.Test = true
		case "--emit-ir":
			opt.EmitIR = true
		case "--emit-llvm":
			opt.EmitLLVM = true
		case "-vb":
			opt.Verbose = true
		case "--out", "-o":
			if i1+1 >= len(args) {
				return opt, fmt.Errorf("got flag %s but no argument", args[i1])
			}
			if strings.HasPrefix(args[i1+1], "-") {
				return opt, fmt.Errorf("expected output path, got new flag %s", args[i1+1])
			}
			opt.Out = args[i1+1]
			i1++
		case "--threads", "-t":
			if i1+1 >= len(args) {
				return opt, fmt.Errorf("got flag %s but no argument", args[i1])
			}
			t, err := strconv.Atoi(args[i1+1])
			if err != nil {
				return opt, fmt.Errorf("expected integer thread count, got: %s", args[i1+1])
			}
			if t < 1 || t > maxThreads {
				return opt, fmt.Errorf("thread count must be integer in range [1, %d]", maxThreads)
			}
			opt.Threads = t
			i1++
		default:
			if strings.HasPrefix(args[i1], "-") {
				return opt, fmt.Errorf("unexpected flag: %s", args[i1])
			}
			if opt.Src != "" {
				return opt, fmt.Errorf("got a second source file %s, expected exactly one", args[i1])
			}
			opt.Src = args[i1]
		}
	}
	if opt.Src == "" {
		return opt, fmt.Errorf("no source file given")
	}
	if opt.Out == "" {
		opt.Out = strings.TrimSuffix(opt.Src, filepath.Ext(opt.Src))
	}
	return opt, nil
}

// SearchPath returns the FLINTPATH import search directories, always including the directory of the
// compiled source first.
func SearchPath(src string) []string {
	dirs := []string{filepath.Dir(src)}
	if env := os.Getenv(envSearchPath); env != "" {
		dirs = append(dirs, filepath.SplitList(env)...)
	}
	return dirs
}

// printHelp prints a usage message to stdout.
func printHelp() {
	w := tabwriter.NewWriter(os.Stdout, 6, 1, 1, 0, 0)
	_, _ = fmt.Fprintln(w, "<file>\tCompile the given source to an executable with the same stem.")
	_, _ = fmt.Fprintln(w, "--test\tBuild as a test executable running every test definition.")
	_, _ = fmt.Fprintln(w, "--emit-ir\tAlso write textual LLIR next to the executable, metadata resolved to comments.")
	_, _ = fmt.Fprintln(w, "--emit-llvm\tLower through the installed LLVM runtime instead of the native printer.")
	_, _ = fmt.Fprintln(w, "--out <path>, -o\tOverride the output path.")
	_, _ = fmt.Fprintf(w, "--threads <n>, -t\tOverride the worker count. Must be in range [1, %d].\n", maxThreads)
	_, _ = fmt.Fprintln(w, "-vb\tVerbose mode: print compiler progress to stdout.")
	_, _ = fmt.Fprintln(w, "-h, -help\tPrints this help message and exits.")
	_, _ = fmt.Fprintln(w, "-v, -version\tPrints the compiler version and exits.")
	_ = w.Flush()
}
