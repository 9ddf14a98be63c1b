// Command hrmdesktop shows a program running on the accumulator machine:
// the memory floor, the inbox and outbox, and the listing around PC.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/kyberias/HRMC/pkg/asm"
	"github.com/kyberias/HRMC/pkg/compiler"
	"github.com/kyberias/HRMC/pkg/config"
)

func main() {
	inPath := flag.String("in", "", "source file (.c) or assembly listing (.asm)")
	configPath := flag.String("config", "", "YAML run file")
	input := flag.String("input", "", "comma separated inbox values")
	cols := flag.Int("cols", 0, "floor width (default 10)")
	delay := flag.Int("delay", 8, "ticks between steps")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg := &config.Config{}
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fail(logger, "failed to load config", err)
		}
	}
	path := cfg.SourcePath()
	if *inPath != "" {
		path = *inPath
	}
	if path == "" {
		fmt.Fprintln(os.Stderr, "usage: hrmdesktop -in program.c [-input 1,2,3]")
		flag.PrintDefaults()
		os.Exit(2)
	}
	inbox := cfg.Input
	if *input != "" {
		var err error
		if inbox, err = parseInts(*input); err != nil {
			fail(logger, "bad -input", err)
		}
	}

	prog, err := load(path, cfg)
	if err != nil {
		fail(logger, "failed to load program", err)
	}
	s, err := newSession(prog, inbox, cfg.MemoryImage(), cfg.Memory.Size, logger)
	if err != nil {
		fail(logger, "failed to start machine", err)
	}

	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(screenWidth, screenHeight)
	ebiten.SetWindowTitle("HRM Desktop - " + filepath.Base(path))
	if err := ebiten.RunGame(NewGame(s, *cols, *delay)); err != nil {
		fail(logger, "game stopped", err)
	}
}

// load compiles a C source or parses a listing, by extension.
func load(path string, cfg *config.Config) ([]asm.Instruction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	src := string(data)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".asm", ".hrm":
		return asm.Parse(src)
	}
	res, err := compiler.Compile(src, compiler.Options{
		ZeroNames:  cfg.ZeroNames,
		MemorySize: cfg.Memory.Size,
		NoOptimize: !cfg.OptimizeEnabled(),
	})
	if err != nil {
		return nil, fmt.Errorf("%s\n%s", path, compiler.Describe(src, err))
	}
	return res.Instructions, nil
}

func parseInts(text string) ([]int, error) {
	var out []int
	for _, field := range strings.Split(text, ",") {
		if field = strings.TrimSpace(field); field == "" {
			continue
		}
		v, err := strconv.Atoi(field)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func fail(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "err", err)
	os.Exit(1)
}
