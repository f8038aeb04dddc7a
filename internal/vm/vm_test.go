package vm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fallen-lang/fallen/internal/lexer"
	"github.com/fallen-lang/fallen/internal/parser"
)

func compileSource(t *testing.T, src string) *Program {
	t.Helper()
	tree, err := parser.New(lexer.New(src)).Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	prog, err := NewCompiler("test.fallen").Compile(tree)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return prog
}

func execSource(t *testing.T, src string, opts Options) (string, error) {
	t.Helper()
	prog := compileSource(t, src)
	var out bytes.Buffer
	opts.Stdout = &out
	if opts.Stdin == nil {
		opts.Stdin = strings.NewReader("")
	}
	if opts.ColorMode == "" {
		opts.ColorMode = "never"
	}
	err := New(prog, opts).Run()
	return out.String(), err
}

func runSource(t *testing.T, src string) string {
	t.Helper()
	out, err := execSource(t, src, Options{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return out
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"write(1 + 2)", "3\n"},
		{"write(7 - 2)", "5\n"},
		{"write(3 * 4)", "12\n"},
		{"write(6 / 3)", "2.0\n"},
		{"write(7 / 2)", "3.5\n"},
		{"write(2 * 3.5)", "7.0\n"},
		{"write(1.5 + 1)", "2.5\n"},
		{"write('ab' + 'cd')", "abcd\n"},
		{"write([1] + [2, 3])", "[1, 2, 3]\n"},
		{"write(-3 + 1)", "-2\n"},
		{"write(2 + 3 * 4)", "14\n"},
		{"write((2 + 3) * 4)", "20\n"},
	}
	for _, tt := range tests {
		if got := runSource(t, tt.src); got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.src, got, tt.want)
		}
	}
}

func TestComparisons(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"write(1 < 2)", "true\n"},
		{"write(2 <= 2)", "true\n"},
		{"write(3 > 4)", "false\n"},
		{"write(1 == 1.0)", "true\n"},
		{"write(1 != 'x')", "true\n"},
		{"write('abc' < 'abd')", "true\n"},
		{"write([1, 2] == [1, 2])", "true\n"},
		{"write({'a': 1} == {'a': 1})", "true\n"},
		{"write(not true)", "false\n"},
	}
	for _, tt := range tests {
		if got := runSource(t, tt.src); got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.src, got, tt.want)
		}
	}
}

func TestVariables(t *testing.T) {
	src := `
x =i 5
x =i x + 1
write(x)
s =s 'hi'
write(s)
`
	if got, want := runSource(t, src), "6\nhi\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestIfElseChain(t *testing.T) {
	src := `
x =i %s
if x < 0 {
	write('neg')
} else if x == 0 {
	write('zero')
} else {
	write('pos')
}
`
	tests := []struct{ val, want string }{
		{"-5", "neg\n"},
		{"0", "zero\n"},
		{"9", "pos\n"},
	}
	for _, tt := range tests {
		code := strings.Replace(src, "%s", tt.val, 1)
		if got := runSource(t, code); got != tt.want {
			t.Errorf("x=%s: got %q, want %q", tt.val, got, tt.want)
		}
	}
}

func TestWhileElse(t *testing.T) {
	src := `
i =i 0
while i < 3 {
	write(i)
	i =i i + 1
}
else {
	write('done')
}
`
	if got, want := runSource(t, src), "0\n1\n2\ndone\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestWhileStopSkipsElse(t *testing.T) {
	src := `
i =i 0
while i < 10 {
	if i == 2 {
		stop
	}
	write(i)
	i =i i + 1
}
else {
	write('never')
}
write('after')
`
	if got, want := runSource(t, src), "0\n1\nafter\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestForLoop(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			"list",
			"for x in [10, 20] {\n write(x)\n}",
			"10\n20\n",
		},
		{
			"text",
			"for ch in 'ab' {\n write(ch)\n}",
			"a\nb\n",
		},
		{
			"dict keys",
			"for k in {'a': 1, 'b': 2} {\n write(k)\n}",
			"a\nb\n",
		},
		{
			"else on natural exit",
			"for x in [1] {\n write(x)\n}\nelse {\n write('end')\n}",
			"1\nend\n",
		},
		{
			"continue",
			"for x in [1, 2, 3] {\n if x == 2 {\n  continue\n }\n write(x)\n}",
			"1\n3\n",
		},
		{
			"stop skips else",
			"for x in [1, 2, 3] {\n stop\n}\nelse {\n write('never')\n}\nwrite('after')",
			"after\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := runSource(t, tt.src); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMatch(t *testing.T) {
	src := `
x =i %s
match x {
	1 { write('one') }
	-2 { write('minus two') }
	else { write('other') }
}
`
	tests := []struct{ val, want string }{
		{"1", "one\n"},
		{"-2", "minus two\n"},
		{"7", "other\n"},
	}
	for _, tt := range tests {
		code := strings.Replace(src, "%s", tt.val, 1)
		if got := runSource(t, code); got != tt.want {
			t.Errorf("x=%s: got %q, want %q", tt.val, got, tt.want)
		}
	}
}

func TestShortCircuitAnd(t *testing.T) {
	src := `
func loud() =b {
	write('called')
	return true
}
x =b false and loud()
write(x)
`
	if got, want := runSource(t, src), "false\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestShortCircuitOr(t *testing.T) {
	src := `
func loud() =b {
	write('called')
	return false
}
x =b true or loud()
write(x)
`
	if got, want := runSource(t, src), "true\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestChainedComparison(t *testing.T) {
	src := `
write(1 < 2 < 3)
write(1 < 5 < 3)
`
	if got, want := runSource(t, src), "true\nfalse\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestChainedComparisonShortCircuits(t *testing.T) {
	src := `
func boom() =i {
	write('boom')
	return 3
}
x =b 2 < 1 < boom()
write(x)
`
	if got, want := runSource(t, src), "false\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFunctionCalls(t *testing.T) {
	src := `
func add(a =i, b =i : 10) =i {
	return a + b
}
write(add(1, 2))
write(add(1))
write(add(a: 2, b: 5))
write(add(1, b: 7))
`
	if got, want := runSource(t, src), "3\n11\n7\n8\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestImplicitNilReturn(t *testing.T) {
	src := `
func noop() {
	x =i 1
}
write(noop())
`
	if got, want := runSource(t, src), "null\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRecursion(t *testing.T) {
	src := `
func fact(n =i) =i {
	if n <= 1 {
		return 1
	}
	return n * fact(n - 1)
}
write(fact(6))
`
	if got, want := runSource(t, src), "720\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFunctionLocalsShadowGlobals(t *testing.T) {
	src := `
g =i 1
func bump() =i {
	g =i 99
	return g
}
write(bump())
write(g)
`
	if got, want := runSource(t, src), "99\n1\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatStrings(t *testing.T) {
	src := `
name =s 'Ada'
n =i 3
write('hi {name}, {n} times')
write('{{name}} stays')
write('{1+} stays too')
`
	want := "hi Ada, 3 times\n{name} stays\n{1+} stays too\n"
	if got := runSource(t, src); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestListOperations(t *testing.T) {
	src := `
l =l [1, 2, 3]
l[0] = 9
l[] = 4
remove l[1]
write(l)
write(l[2])
write(amount(l))
`
	want := "[9, 3, 4]\n4\n3\n"
	if got := runSource(t, src); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDictOperations(t *testing.T) {
	src := `
d =d {'a': 1}
d['b'] = 2
d['a'] = 10
write(d['a'])
write(amount(d))
remove d['a']
write(d)
`
	want := "10\n2\n{\"b\": 2}\n"
	if got := runSource(t, src); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestTextIndexing(t *testing.T) {
	src := `
s =s 'abc'
write(s[1])
write(amount(s))
`
	if got, want := runSource(t, src), "b\n3\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestTraceStatementRuns(t *testing.T) {
	// trace on/off must execute without a configured logger.
	src := `
trace on
x =i 1
trace off
write(x)
`
	if got, want := runSource(t, src), "1\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestReturnTypeAllowsNull(t *testing.T) {
	src := `
func find(x =i) =i {
	if x > 0 {
		return x
	}
}
write(find(-1))
`
	if got, want := runSource(t, src), "null\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestReturnOnEmptyStackYieldsNull(t *testing.T) {
	// Linked or hand-assembled bytecode may return without pushing a
	// value first; the caller then receives null.
	prog := NewProgram()
	dbg := DebugInfo{File: "handmade.fallen", Line: 1}
	prog.Functions["noop"] = &Function{Name: "noop", Entry: 3, File: dbg.File}
	prog.Emit(Instruction{Op: OP_CALL_FUNC, Name: "noop"}, dbg)
	prog.Emit(Instruction{Op: OP_STORE_NAME, Name: "result"}, dbg)
	prog.Emit(Instruction{Op: OP_HALT}, dbg)
	prog.Emit(Instruction{Op: OP_RETURN}, dbg)

	machine := New(prog, Options{ColorMode: "never"})
	if err := machine.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	v, ok := machine.Globals()["result"]
	if !ok || !v.IsNil() {
		t.Errorf("result should be null, got ok=%v value %s", ok, v.Inspect())
	}
}
