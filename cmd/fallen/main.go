package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/fallen-lang/fallen/internal/ast"
	"github.com/fallen-lang/fallen/internal/config"
	"github.com/fallen-lang/fallen/internal/lexer"
	"github.com/fallen-lang/fallen/internal/parser"
	"github.com/fallen-lang/fallen/internal/vm"
)

const usage = `usage: fallen [flags] <command> [arguments]

commands:
  run <file> [-- args...]   compile and execute a script
  build <file>              compile and print the bytecode listing
  parse <file>              print the syntax tree
  repl                      start an interactive session

flags:
  --debug                   verbose diagnostics on stderr
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	fs := flag.NewFlagSet("fallen", flag.ContinueOnError)
	debug := fs.Bool("debug", false, "verbose diagnostics")
	fs.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	if err := fs.Parse(argv); err != nil {
		return 2
	}
	args := fs.Args()
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger().
		Level(zerolog.DebugLevel)

	switch cmd := args[0]; cmd {
	case "run":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "fallen run: missing script file")
			return 2
		}
		return cmdRun(args[1], scriptArgs(args[2:]), logger, *debug)
	case "build":
		if len(args) != 2 {
			fmt.Fprintln(os.Stderr, "fallen build: expects exactly one script file")
			return 2
		}
		return cmdBuild(args[1])
	case "parse":
		if len(args) != 2 {
			fmt.Fprintln(os.Stderr, "fallen parse: expects exactly one script file")
			return 2
		}
		return cmdParse(args[1])
	case "repl":
		return cmdRepl(logger)
	default:
		fmt.Fprintf(os.Stderr, "fallen: unknown command %q\n\n%s", cmd, usage)
		return 2
	}
}

// scriptArgs strips the conventional "--" separator before the script's
// own arguments.
func scriptArgs(rest []string) []string {
	if len(rest) > 0 && rest[0] == "--" {
		return rest[1:]
	}
	return rest
}

func compileFile(path string) (*vm.Program, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	tree, err := parser.New(lexer.New(string(src))).Parse()
	if err != nil {
		return nil, err
	}
	return vm.NewCompiler(path).Compile(tree)
}

func cmdRun(path string, scriptArgs []string, logger zerolog.Logger, debug bool) int {
	dir := filepath.Dir(path)
	cfg, err := config.Load(dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	start := time.Now()
	prog, err := compileFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if debug {
		logger.Info().
			Str("file", path).
			Int("instructions", len(prog.Instructions)).
			Dur("elapsed", time.Since(start)).
			Msg("compiled")
	}

	machine := vm.New(prog, vm.Options{
		MaxCallDepth: cfg.Limits.MaxCallDepth,
		MaxSteps:     cfg.Limits.MaxSteps,
		ColorMode:    cfg.Output.Color,
		Logger:       &logger,
		ScriptArgs:   scriptArgs,
		BaseDir:      dir,
	})
	if err := machine.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func cmdBuild(path string) int {
	prog, err := compileFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Print(vm.Disassemble(prog))
	return 0
}

func cmdParse(path string) int {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	tree, err := parser.New(lexer.New(string(src))).Parse()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Print(ast.Dump(tree))
	return 0
}

func cmdRepl(logger zerolog.Logger) int {
	cfg, err := config.Load(".")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if err := runRepl(os.Stdin, os.Stdout, cfg, logger); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
