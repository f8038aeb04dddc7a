package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/fallen-lang/fallen/internal/ast"
	"github.com/fallen-lang/fallen/internal/config"
	"github.com/fallen-lang/fallen/internal/lexer"
	"github.com/fallen-lang/fallen/internal/parser"
	"github.com/fallen-lang/fallen/internal/vm"
)

const (
	replPrompt     = ">> "
	replContPrompt = ".. "
)

// runRepl reads snippets line by line, buffering until every opened
// brace is closed, and executes each snippet against a shared VM so
// definitions persist across inputs.
func runRepl(in io.Reader, out io.Writer, cfg config.Config, logger zerolog.Logger) error {
	fmt.Fprintf(out, "fallen repl (type quit or :q to exit)\n")

	machine := vm.New(vm.NewProgram(), vm.Options{
		MaxCallDepth: cfg.Limits.MaxCallDepth,
		MaxSteps:     cfg.Limits.MaxSteps,
		ColorMode:    cfg.Output.Color,
		Logger:       &logger,
		Stdin:        in,
		Stdout:       out,
	})

	scanner := bufio.NewScanner(in)
	var buf []string
	depth := 0

	for {
		if depth > 0 {
			fmt.Fprint(out, replContPrompt)
		} else {
			fmt.Fprint(out, replPrompt)
		}
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := scanner.Text()

		if depth == 0 && len(buf) == 0 {
			switch strings.TrimSpace(line) {
			case "":
				continue
			case "quit", ":q":
				return nil
			}
		}

		buf = append(buf, line)
		depth += braceDelta(line)
		if depth > 0 {
			continue
		}

		src := strings.Join(buf, "\n")
		buf = buf[:0]
		depth = 0

		tree, err := parseSnippet(src)
		if err != nil {
			fmt.Fprintln(out, err)
			continue
		}
		if err := machine.RunSnippet(tree); err != nil {
			fmt.Fprintln(out, err)
		}
	}
}

// parseSnippet parses the input as statements, falling back to a bare
// expression wrapped in an implicit write call.
func parseSnippet(src string) (*ast.Program, error) {
	tree, stmtErr := parser.New(lexer.New(src)).Parse()
	if stmtErr == nil {
		return tree, nil
	}

	expr, exprErr := parser.New(lexer.New(src)).ParseExpression()
	if exprErr != nil {
		return nil, stmtErr
	}
	call := &ast.Call{Name: "write", Args: []ast.Arg{{Value: expr}}, Line: 1}
	return &ast.Program{Statements: []ast.Statement{
		&ast.ExpressionStatement{Expr: call, Line: 1},
	}}, nil
}

// braceDelta counts the net brace depth of one line, ignoring braces
// inside string literals and comments.
func braceDelta(line string) int {
	delta := 0
	var quote byte
	for i := 0; i < len(line); i++ {
		ch := line[i]
		if quote != 0 {
			if ch == quote {
				quote = 0
			}
			continue
		}
		switch ch {
		case '\'', '"':
			quote = ch
		case '#':
			return delta
		case '{':
			delta++
		case '}':
			delta--
		}
	}
	return delta
}
