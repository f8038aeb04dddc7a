package vm

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/fallen-lang/fallen/internal/config"
	"github.com/fallen-lang/fallen/internal/lexer"
	"github.com/fallen-lang/fallen/internal/parser"
)

// execImport links a module into the running program and executes its
// top-level code. The same (path, alias) pair links and runs once;
// importing it again, including through a cycle, is a no-op.
func (vm *VM) execImport(ip int, ins Instruction) error {
	pathVal, err := vm.pop(ip)
	if err != nil {
		return err
	}
	if !pathVal.IsText() {
		return vm.runtimeError(ip, nil, "import path must be text, got %s", pathVal.TypeName())
	}

	resolved := vm.resolveImport(ip, pathVal.Text)
	key := importKey{path: resolved, alias: ins.Name}
	if vm.loaded[key] || vm.loading[key] {
		return nil
	}
	vm.loading[key] = true
	defer delete(vm.loading, key)

	entry, err := vm.linkModule(resolved, ins.Name)
	if err != nil {
		return &ImportError{Path: pathVal.Text, Err: err}
	}

	// The module body runs under a pseudo-frame whose environment is
	// the globals map, so its top-level stores reach module scope even
	// when the import executes inside a function call.
	vm.frames = append(vm.frames, &Frame{
		name:     config.ModuleFrame,
		file:     vm.prog.DebugAt(ip).File,
		returnIP: ip + 1,
		locals:   vm.globals,
	})
	err = vm.runRange(entry)
	vm.frames = vm.frames[:len(vm.frames)-1]
	if err != nil {
		return &ImportError{Path: pathVal.Text, Err: err}
	}
	vm.loaded[key] = true
	return nil
}

// resolveImport anchors the import path at the importing file's
// directory and appends the source extension when missing.
func (vm *VM) resolveImport(ip int, path string) string {
	if filepath.Ext(path) == "" {
		path += config.SourceFileExt
	}
	if filepath.IsAbs(path) {
		return path
	}
	base := vm.baseDir
	if from := vm.prog.DebugAt(ip).File; from != "" && from != config.ReplSource {
		base = filepath.Dir(from)
	}
	return filepath.Join(base, path)
}

// linkModule compiles path and appends it to the running program,
// rewriting its global names for visibility. Returns the entry point of
// the module's top-level code (its leading jump).
func (vm *VM) linkModule(path, alias string) (int, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	tree, err := parser.New(lexer.New(string(src))).Parse()
	if err != nil {
		return 0, err
	}
	sub, err := NewCompiler(path).Compile(tree)
	if err != nil {
		return 0, err
	}

	// Instance tag keeps two modules' private names from colliding.
	tag := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	rename := make(map[string]string, len(sub.DefinedGlobals))
	for name := range sub.DefinedGlobals {
		switch {
		case !sub.IsPublic(name):
			rename[name] = fmt.Sprintf("__mod_%s_%s", tag, name)
		case alias != "":
			rename[name] = alias + "_" + name
		default:
			rename[name] = name
		}
	}

	for name, linked := range rename {
		if name == linked {
			continue
		}
		if _, taken := vm.prog.DefinedGlobals[linked]; taken {
			return 0, fmt.Errorf("imported name conflicts with existing name: %s", linked)
		}
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
		case OP_LOAD_NAME, OP_STORE_NAME, OP_CALL_FUNC:
			if linked, ok := rename[ins.Name]; ok {
				ins.Name = linked
			}
		}
		vm.prog.Emit(ins, sub.Debug[i])
	}

	for name, fn := range sub.Functions {
		linked := name
		if r, ok := rename[name]; ok {
			linked = r
		}
		if _, exists := vm.prog.Functions[linked]; exists {
			return 0, fmt.Errorf("imported function conflicts with existing function: %s", linked)
		}
		vm.prog.Functions[linked] = &Function{
			Name:       linked,
			Entry:      fn.Entry + offset,
			Params:     fn.Params,
			Defaults:   fn.Defaults,
			ReturnType: fn.ReturnType,
			File:       fn.File,
		}
	}

	for name := range sub.DefinedGlobals {
		linked := name
		if r, ok := rename[name]; ok {
			linked = r
		}
		vm.prog.DefinedGlobals[linked] = struct{}{}
	}

	return offset, nil
}
