package vm

import "testing"

func TestAddConstantDedup(t *testing.T) {
	p := NewProgram()
	a := p.AddConstant(IntVal(2))
	b := p.AddConstant(IntVal(2))
	if a != b {
		t.Errorf("equal ints should share a slot: %d vs %d", a, b)
	}
	c := p.AddConstant(TextVal("x"))
	d := p.AddConstant(TextVal("x"))
	if c != d {
		t.Errorf("equal texts should share a slot: %d vs %d", c, d)
	}
	if a == c {
		t.Error("distinct values must not share a slot")
	}
}

func TestAddConstantKeepsIntAndFloatApart(t *testing.T) {
	// 2 and 2.0 are ==-equal in the language but must keep their own
	// representation in the pool.
	p := NewProgram()
	i := p.AddConstant(IntVal(2))
	f := p.AddConstant(FloatVal(2))
	if i == f {
		t.Fatal("int 2 and float 2.0 collapsed into one constant")
	}
	if !p.Constants[i].IsInt() || !p.Constants[f].IsFloat() {
		t.Error("pool entries lost their types")
	}
}

func TestPatch(t *testing.T) {
	p := NewProgram()
	idx := p.Emit(Instruction{Op: OP_JUMP, Operand: UnpatchedOperand}, DebugInfo{})
	p.Patch(idx, 7)
	if p.Instructions[idx].Operand != 7 {
		t.Errorf("operand: got %d, want 7", p.Instructions[idx].Operand)
	}
}

func TestIsPublic(t *testing.T) {
	p := NewProgram()
	p.DefinedGlobals["open"] = struct{}{}
	p.DefinedGlobals["_hidden"] = struct{}{}

	// Without an export list, underscore names are private.
	if !p.IsPublic("open") {
		t.Error("open should be public")
	}
	if p.IsPublic("_hidden") {
		t.Error("_hidden should be private")
	}

	// An explicit export list overrides the underscore rule.
	p.Exports["_hidden"] = struct{}{}
	if !p.IsPublic("_hidden") {
		t.Error("exported _hidden should be public")
	}
	if p.IsPublic("open") {
		t.Error("unexported open should now be private")
	}
}

func TestDebugAt(t *testing.T) {
	p := NewProgram()
	p.Emit(Instruction{Op: OP_HALT}, DebugInfo{File: "a.fallen", Line: 3})
	dbg := p.DebugAt(0)
	if dbg.File != "a.fallen" || dbg.Line != 3 {
		t.Errorf("got %+v", dbg)
	}
	// Out-of-range lookups must not panic.
	if got := p.DebugAt(99); got.Line != 0 {
		t.Errorf("out of range: got %+v", got)
	}
}
