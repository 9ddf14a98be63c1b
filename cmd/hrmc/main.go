// Command hrmc compiles C-like programs to Human Resource Machine assembly
// and optionally runs them on the accumulator machine.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sanity-io/litter"
	"github.com/tebeka/atexit"

	"github.com/kyberias/HRMC/pkg/asm"
	"github.com/kyberias/HRMC/pkg/compiler"
	"github.com/kyberias/HRMC/pkg/cpu"
)

func main() {
	atexit.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run is main without the process exit, returning the exit status.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("hrmc", flag.ContinueOnError)
	fs.SetOutput(stderr)
	inPath := fs.String("in", "", "source file (.c) or assembly listing (.asm)")
	configPath := fs.String("config", "", "YAML run file")
	outPath := fs.String("out", "", "write the listing to this file instead of stdout")
	input := fs.String("input", "", "comma separated inbox values")
	memory := fs.String("memory", "", "comma separated addr=value memory presets")
	memSize := fs.Int("mem-size", 0, "number of memory cells (default 100)")
	runProgram := fs.Bool("run", false, "run the program after compiling")
	noOpt := fs.Bool("no-opt", false, "skip the peephole optimizer")
	dumpTokens := fs.Bool("dump-tokens", false, "print the token stream")
	dumpAST := fs.Bool("dump-ast", false, "print the syntax tree")
	symbols := fs.Bool("symbols", false, "print the symbol table")
	showTable := fs.Bool("table", false, "print the memory floor after running")
	cols := fs.Int("cols", 0, "floor width for -table (default 10)")
	interactive := fs.Bool("interactive", false, "read inbox values from the terminal")
	maxSteps := fs.Int("max-steps", 0, "fault after this many instructions (0 = unlimited)")
	timeout := fs.Duration("timeout", 0, "stop running after this long (0 = no timeout)")
	snapshotPath := fs.String("snapshot", "", "save the machine state here after running")
	restorePath := fs.String("restore", "", "resume a machine saved with -snapshot")
	verbose := fs.Bool("v", false, "log compiler stages")
	logJSON := fs.Bool("log-json", false, "log as JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	logger := newLogger(stderr, *verbose, *logJSON)

	s, err := loadSettings(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if err := s.override(set, *inPath, *input, *memory, *memSize, *noOpt, *maxSteps, *timeout); err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	if s.source == "" && *restorePath == "" {
		fmt.Fprintln(stderr, "nothing to do: provide -in, -config or -restore")
		fs.Usage()
		return 2
	}

	var (
		prog []asm.Instruction
		syms *compiler.SymbolTable
	)
	if s.source != "" {
		text, err := os.ReadFile(s.source)
		if err != nil {
			fmt.Fprintf(stderr, "failed to read input file %q: %v\n", s.source, err)
			return 1
		}
		src := string(text)

		if isListing(s.source) {
			prog, err = asm.Parse(src)
			if err != nil {
				fmt.Fprintf(stderr, "assembly failed: %v\n", err)
				return 1
			}
		} else {
			res, err := compiler.Compile(src, compiler.Options{
				ZeroNames:  s.zeroNames,
				MemorySize: s.memSize,
				NoOptimize: !s.optimize,
				Logger:     logger,
			})
			if *dumpTokens {
				for _, tok := range res.Tokens {
					fmt.Fprintln(stdout, tok)
				}
			}
			if *dumpAST && res.Program != nil {
				fmt.Fprintln(stdout, litter.Sdump(res.Program))
			}
			if err != nil {
				fmt.Fprint(stderr, compiler.Describe(src, err))
				return 1
			}
			prog, syms = res.Instructions, res.Symbols
			if *symbols {
				fmt.Fprintln(stdout, symbolTable(syms))
			}
		}

		if err := writeListing(*outPath, stdout, prog); err != nil {
			fmt.Fprintf(stderr, "failed to write listing %q: %v\n", *outPath, err)
			return 1
		}
	}

	if !*runProgram && *restorePath == "" {
		return 0
	}

	inbox := cpu.SliceInbox(s.input)
	if *interactive {
		in, closeFn := terminalInbox(stdin, stdout)
		atexit.Register(closeFn)
		defer closeFn()
		inbox = in
	}
	opts := []cpu.Option{cpu.WithInbox(inbox), cpu.WithLogger(logger)}

	var vm *cpu.CPU
	if *restorePath != "" {
		if set["max-steps"] {
			opts = append(opts, cpu.WithStepLimit(s.maxSteps))
		}
		vm, err = cpu.RestoreFromFile(*restorePath, opts...)
	} else {
		if s.memSize > 0 {
			opts = append(opts, cpu.WithMemorySize(s.memSize))
		}
		opts = append(opts, cpu.WithMemory(s.memory), cpu.WithStepLimit(s.maxSteps))
		vm, err = cpu.New(prog, opts...)
	}
	if err != nil {
		fmt.Fprintf(stderr, "failed to load program: %v\n", err)
		return 1
	}

	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	status := 0
	for v, err := range vm.Outputs(ctx) {
		if err != nil {
			fmt.Fprintf(stderr, "run failed: %v\n", err)
			status = 1
			break
		}
		fmt.Fprintf(stdout, "outbox: %d\n", v)
	}
	logger.Debug("run complete", "steps", vm.Steps(), "pc", vm.PC(), "halted", vm.Halted())

	if *showTable {
		fmt.Fprintln(stdout, floorTable(vm.Memory(), *cols, syms))
	}
	if *snapshotPath != "" {
		if err := vm.SnapshotToFile(*snapshotPath); err != nil {
			fmt.Fprintf(stderr, "failed to write snapshot %q: %v\n", *snapshotPath, err)
			return 1
		}
	}
	if status != 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		fmt.Fprintf(stderr, "timed out after %s\n", s.timeout)
	}
	return status
}

func newLogger(w io.Writer, verbose, asJSON bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if asJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func isListing(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".asm", ".hrm":
		return true
	}
	return false
}

func writeListing(path string, stdout io.Writer, prog []asm.Instruction) error {
	listing := asm.Format(prog)
	if path == "" {
		_, err := io.WriteString(stdout, listing)
		return err
	}
	return os.WriteFile(path, []byte(listing), 0o644)
}
