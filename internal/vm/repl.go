package vm

import (
	"github.com/fallen-lang/fallen/internal/ast"
	"github.com/fallen-lang/fallen/internal/config"
)

// RunSnippet compiles tree and executes it against the VM's live
// globals, keeping functions and variables from earlier snippets
// visible. Unlike imports there is no name rewriting, and redefining a
// function replaces the earlier definition.
func (vm *VM) RunSnippet(tree *ast.Program) error {
	sub, err := NewCompiler(config.ReplSource).Compile(tree)
	if err != nil {
		return err
	}

	constMap := make([]int, len(sub.Constants))
	for i, c := range sub.Constants {
		constMap[i] = vm.prog.AddConstant(c)
	}

	offset := len(vm.prog.Instructions)
	for i, ins := range sub.Instructions {
		switch ins.Op {
		case OP_LOAD_CONST:
			ins.Operand = constMap[ins.Operand]
		case OP_JUMP, OP_JUMP_IF_FALSE:
			ins.Operand += offset
		}
		vm.prog.Emit(ins, sub.Debug[i])
	}

	for name, fn := range sub.Functions {
		vm.prog.Functions[name] = &Function{
			Name:       name,
			Entry:      fn.Entry + offset,
			Params:     fn.Params,
			Defaults:   fn.Defaults,
			ReturnType: fn.ReturnType,
			File:       fn.File,
		}
	}
	for name := range sub.DefinedGlobals {
		vm.prog.DefinedGlobals[name] = struct{}{}
	}
	for name := range sub.Exports {
		vm.prog.Exports[name] = struct{}{}
	}

	return vm.runRange(offset)
}
