package vm

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel conditions reachable through errors.Is on a RuntimeError.
var (
	ErrStackUnderflow = errors.New("stack underflow")
	ErrMaxCallDepth   = errors.New("max call depth exceeded")
	ErrStepLimit      = errors.New("step limit exceeded")
)

// CompileError reports a structural problem caught before execution.
type CompileError struct {
	Message string
	File    string
	Line    int
}

func (e *CompileError) Error() string {
	switch {
	case e.File != "" && e.Line > 0:
		return fmt.Sprintf("compile error at %s:%d: %s", e.File, e.Line, e.Message)
	case e.Line > 0:
		return fmt.Sprintf("compile error at line %d: %s", e.Line, e.Message)
	case e.File != "":
		return fmt.Sprintf("compile error in %s: %s", e.File, e.Message)
	}
	return "compile error: " + e.Message
}

// TraceEntry is one call-stack level of a runtime error, outermost last.
type TraceEntry struct {
	Function string
	File     string
	Line     int // call-site line
}

// RuntimeError carries the failing instruction's location and the call
// stack at the moment of failure.
type RuntimeError struct {
	Message string
	IP      int
	File    string
	Line    int
	Trace   []TraceEntry

	// Sentinel distinguishes limit conditions (ErrStepLimit, ...) for
	// errors.Is; nil for ordinary failures.
	Sentinel error
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString("runtime error: ")
	b.WriteString(e.Message)
	if e.File != "" || e.Line > 0 {
		b.WriteString(fmt.Sprintf(" (%s:%d)", e.File, e.Line))
	}
	for _, t := range e.Trace {
		b.WriteString(fmt.Sprintf("\n  in %s (%s:%d)", t.Function, t.File, t.Line))
	}
	return b.String()
}

func (e *RuntimeError) Unwrap() error { return e.Sentinel }

// ImportError wraps a failure that happened while resolving, compiling or
// executing an imported module.
type ImportError struct {
	Path string
	Err  error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("import %q failed: %s", e.Path, e.Err)
}

func (e *ImportError) Unwrap() error { return e.Err }
