package vm

import (
	"fmt"
	"sort"
	"strings"
)

// Disassemble renders a compiled program as human-readable listing:
// constant pool, function table, then one line per instruction.
func Disassemble(prog *Program) string {
	var b strings.Builder

	b.WriteString("== constants ==\n")
	for i, c := range prog.Constants {
		fmt.Fprintf(&b, "%4d  %s\n", i, c.Inspect())
	}

	b.WriteString("== functions ==\n")
	names := make([]string, 0, len(prog.Functions))
	for name := range prog.Functions {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fn := prog.Functions[name]
		fmt.Fprintf(&b, "%s(%s) entry=%d\n", name, strings.Join(fn.Params, ", "), fn.Entry)
	}

	b.WriteString("== code ==\n")
	lastLine := -1
	for i, ins := range prog.Instructions {
		dbg := prog.DebugAt(i)
		lineCol := "    |"
		if dbg.Line != lastLine {
			lineCol = fmt.Sprintf("%5d", dbg.Line)
			lastLine = dbg.Line
		}
		fmt.Fprintf(&b, "%04d %s  %s%s\n", i, lineCol, ins.Op, operandText(prog, ins))
	}
	return b.String()
}

func operandText(prog *Program, ins Instruction) string {
	switch ins.Op {
	case OP_LOAD_CONST:
		if ins.Operand >= 0 && ins.Operand < len(prog.Constants) {
			return fmt.Sprintf(" %d (%s)", ins.Operand, prog.Constants[ins.Operand].Inspect())
		}
		return fmt.Sprintf(" %d", ins.Operand)
	case OP_JUMP, OP_JUMP_IF_FALSE:
		return fmt.Sprintf(" -> %d", ins.Operand)
	case OP_LOAD_NAME, OP_STORE_NAME, OP_IMPORT:
		return " " + ins.Name
	case OP_CALL_BUILTIN, OP_CALL_FUNC:
		return fmt.Sprintf(" %s argc=%d", ins.Name, ins.Argc)
	case OP_BUILD_LIST, OP_BUILD_DICT:
		return fmt.Sprintf(" n=%d", ins.Argc)
	case OP_SET_TRACE:
		return fmt.Sprintf(" %v", ins.Flag)
	}
	return ""
}
