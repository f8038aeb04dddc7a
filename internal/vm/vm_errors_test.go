package vm

import (
	"errors"
	"strings"
	"testing"
)

func runExpectError(t *testing.T, src string, opts Options) *RuntimeError {
	t.Helper()
	_, err := execSource(t, src, opts)
	if err == nil {
		t.Fatalf("expected a runtime error, got none")
	}
	var rerr *RuntimeError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected *RuntimeError, got %T: %v", err, err)
	}
	return rerr
}

func TestRuntimeErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"undefined variable", "write(nope)", "undefined variable: nope"},
		{"undefined function", "x =i nope(1)", "undefined function: nope"},
		{"type mismatch add", "x =i 1 + 'a'", "cannot apply + to integer and text"},
		{"order mismatch", "x =b true < 1", "cannot order boolean and integer"},
		{"non-bool condition", "if 1 {\n write('no')\n}", "condition must be a boolean, got integer"},
		{"non-bool not", "x =b not 1", "not requires a boolean, got integer"},
		{"division by zero", "x =f 1 / 0", "division by zero"},
		{"list index out of range", "l =l [1]\nwrite(l[5])", "list index out of range: 5"},
		{"dict key missing", "d =d {'a': 1}\nwrite(d['b'])", "key not found in dictionary: b"},
		{"remove missing key", "d =d {'a': 1}\nremove d['x']", "key not found in dictionary: x"},
		{"append to non-list", "x =i 1\nx[] = 2", "cannot append to integer"},
		{"iterate non-iterable", "for x in 5 {\n write(x)\n}", "cannot iterate over integer"},
		{"format undefined name", "write('{ghost}')", "undefined variable in format string: ghost"},
		{"missing argument", "func f(a =i) =i {\n return a\n}\nwrite(f())", `missing argument "a" in call to f()`},
		{"unknown parameter", "func f(a =i) =i {\n return a\n}\nwrite(f(b: 1))", `unknown parameter "b" in call to f()`},
		{"duplicate parameter value", "func f(a =i) =i {\n return a\n}\nwrite(f(1, a: 2))", `duplicate value for parameter "a" in call to f()`},
		{"return type mismatch", "func f() =i {\n return 'x'\n}\nwrite(f())", "f() declared return type integer but returned text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rerr := runExpectError(t, tt.src, Options{})
			if rerr.Message != tt.want {
				t.Errorf("got %q, want %q", rerr.Message, tt.want)
			}
		})
	}
}

func TestRuntimeErrorLocation(t *testing.T) {
	src := "x =i 1\nwrite(nope)\n"
	rerr := runExpectError(t, src, Options{})
	if rerr.File != "test.fallen" {
		t.Errorf("file: got %q, want %q", rerr.File, "test.fallen")
	}
	if rerr.Line != 2 {
		t.Errorf("line: got %d, want 2", rerr.Line)
	}
}

func TestRuntimeErrorTrace(t *testing.T) {
	src := `
func inner() =i {
	return nope
}
func outer() =i {
	return inner()
}
write(outer())
`
	rerr := runExpectError(t, src, Options{})
	if len(rerr.Trace) != 2 {
		t.Fatalf("trace length: got %d, want 2", len(rerr.Trace))
	}
	if rerr.Trace[0].Function != "inner" || rerr.Trace[1].Function != "outer" {
		t.Errorf("trace order: got %q then %q", rerr.Trace[0].Function, rerr.Trace[1].Function)
	}
	if !strings.Contains(rerr.Error(), "in inner") || !strings.Contains(rerr.Error(), "in outer") {
		t.Errorf("rendered error missing trace lines: %q", rerr.Error())
	}
}

func TestMaxCallDepth(t *testing.T) {
	src := `
func loop() =i {
	return loop()
}
write(loop())
`
	_, err := execSource(t, src, Options{MaxCallDepth: 25})
	if !errors.Is(err, ErrMaxCallDepth) {
		t.Fatalf("expected ErrMaxCallDepth, got %v", err)
	}
	var rerr *RuntimeError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected *RuntimeError, got %T", err)
	}
	if rerr.Message != "maximum call depth of 25 exceeded" {
		t.Errorf("message: got %q", rerr.Message)
	}
}

func TestStepLimit(t *testing.T) {
	src := "while true {\n x =i 1\n}"
	_, err := execSource(t, src, Options{MaxSteps: 50})
	if !errors.Is(err, ErrStepLimit) {
		t.Fatalf("expected ErrStepLimit, got %v", err)
	}
}

func TestStepLimitDisabledByDefault(t *testing.T) {
	src := `
i =i 0
while i < 1000 {
	i =i i + 1
}
write(i)
`
	if got, want := runSource(t, src), "1000\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
