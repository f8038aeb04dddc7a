package vm

import (
	"errors"
	"testing"

	"github.com/fallen-lang/fallen/internal/lexer"
	"github.com/fallen-lang/fallen/internal/parser"
)

func compileExpectError(t *testing.T, src string) *CompileError {
	t.Helper()
	tree, err := parser.New(lexer.New(src)).Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	_, err = NewCompiler("test.fallen").Compile(tree)
	if err == nil {
		t.Fatalf("expected a compile error, got none")
	}
	var cerr *CompileError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *CompileError, got %T: %v", err, err)
	}
	return cerr
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			"duplicate function",
			"func f() {\n}\nfunc f() {\n}",
			"function already defined: f",
		},
		{
			"non-literal default",
			"func f(a =i : 1 + 2) {\n}",
			`default value for parameter "a" must be a literal`,
		},
		{
			"duplicate parameter",
			"func f(a =i, a =i) {\n}",
			`duplicate parameter "a" in f()`,
		},
		{
			"export undefined",
			"export ghost",
			"exported name not defined in module: ghost",
		},
		{
			"export inside function",
			"func f() {\n export f\n}\nf()",
			"export is only allowed at top level",
		},
		{
			"stop outside loop",
			"stop",
			"stop used outside of a loop",
		},
		{
			"continue outside loop",
			"continue",
			"continue used outside of a loop",
		},
		{
			"write arity",
			"write(1, 2, 3)",
			"write() expects 1 to 2 arguments, got 3",
		},
		{
			"split arity",
			"x =l split('a')",
			"split() must have exactly 2 argument(s), got 1",
		},
		{
			"builtin named args",
			"write(x: 1)",
			"builtin write() does not accept named arguments",
		},
		{
			"builtin name collision",
			"func write(a =i) =i {\n return a\n}",
			"cannot define write(): the name belongs to a builtin",
		},
		{
			"too many positional args",
			"func f(a =i) =i {\n return a\n}\nwrite(f(1, 2))",
			"f() takes at most 1 argument(s), got 2",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cerr := compileExpectError(t, tt.src)
			if cerr.Message != tt.want {
				t.Errorf("got %q, want %q", cerr.Message, tt.want)
			}
		})
	}
}

func TestCompileLeavesNoUnpatchedJumps(t *testing.T) {
	src := `
func grade(score =i) =s {
	if score >= 90 {
		return 'A'
	} else if score >= 80 {
		return 'B'
	}
	return 'F'
}
total =i 0
for x in [1, 2, 3] {
	if x == 2 {
		continue
	}
	total =i total + x
}
else {
	total =i total + 100
}
while total > 0 {
	total =i total - 1
	if total == 50 {
		stop
	}
}
match total {
	0 { write('zero') }
	else { write(grade(91)) }
}
x =b 1 < 2 < 3 and true or false
`
	prog := compileSource(t, src)
	for i, ins := range prog.Instructions {
		switch ins.Op {
		case OP_JUMP, OP_JUMP_IF_FALSE:
			if ins.Operand == UnpatchedOperand {
				t.Errorf("instruction %d: %s left unpatched", i, ins.Op)
			}
			if ins.Operand < 0 || ins.Operand > len(prog.Instructions) {
				t.Errorf("instruction %d: %s target %d out of range", i, ins.Op, ins.Operand)
			}
		}
	}
}

func TestCompileFunctionMetadata(t *testing.T) {
	src := `
func greet(name =s, punct =s : '!') =s {
	return name + punct
}
write(greet('hi'))
`
	prog := compileSource(t, src)
	fn, ok := prog.Functions["greet"]
	if !ok {
		t.Fatal("greet not registered")
	}
	if fn.Entry == EntryUnset {
		t.Error("greet body never compiled")
	}
	if len(fn.Params) != 2 || fn.Params[0] != "name" || fn.Params[1] != "punct" {
		t.Errorf("params: got %v", fn.Params)
	}
	dflt, ok := fn.Defaults["punct"]
	if !ok || !dflt.IsText() || dflt.Text != "!" {
		t.Errorf("default for punct: got %v", dflt)
	}
	if fn.ReturnType != "s" {
		t.Errorf("return type: got %q", fn.ReturnType)
	}
}

func TestCompileExportsAndGlobals(t *testing.T) {
	src := `
pub =i 1
_priv =i 2
export pub
write(pub)
`
	prog := compileSource(t, src)
	if _, ok := prog.Exports["pub"]; !ok {
		t.Error("pub not exported")
	}
	if !prog.IsPublic("pub") {
		t.Error("pub should be public")
	}
	if prog.IsPublic("_priv") {
		t.Error("_priv should be private under an explicit export list")
	}
}

func TestProgramEndsWithHalt(t *testing.T) {
	prog := compileSource(t, "x =i 1")
	last := prog.Instructions[len(prog.Instructions)-1]
	if last.Op != OP_HALT {
		t.Errorf("last instruction: got %s, want %s", last.Op, OP_HALT)
	}
}
