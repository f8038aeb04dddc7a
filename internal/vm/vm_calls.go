package vm

// typeTagName maps a declaration tag to the runtime type it requires.
var typeTagName = map[string]string{
	"s": "text",
	"i": "integer",
	"f": "float",
	"b": "boolean",
	"l": "list",
	"d": "dictionary",
}

// matchesTag reports whether v satisfies a declared type tag.
func matchesTag(v Value, tag string) bool {
	switch tag {
	case "s":
		return v.IsText()
	case "i":
		return v.IsInt()
	case "f":
		return v.IsFloat()
	case "b":
		return v.IsBool()
	case "l":
		return v.IsList()
	case "d":
		return v.IsDict()
	}
	return true
}

// execCall binds arguments, pushes a frame, and returns the function's
// entry point as the next instruction pointer.
func (vm *VM) execCall(ip int, ins Instruction) (int, error) {
	fn, ok := vm.prog.Functions[ins.Name]
	if !ok {
		return 0, vm.runtimeError(ip, nil, "undefined function: %s", ins.Name)
	}
	if len(vm.frames) >= vm.maxCallDepth {
		return 0, vm.runtimeError(ip, ErrMaxCallDepth, "maximum call depth of %d exceeded", vm.maxCallDepth)
	}

	if len(vm.stack) < ins.Argc {
		return 0, vm.runtimeError(ip, ErrStackUnderflow, "stack underflow calling %s()", ins.Name)
	}
	args := make([]Value, ins.Argc)
	copy(args, vm.stack[len(vm.stack)-ins.Argc:])
	vm.stack = vm.stack[:len(vm.stack)-ins.Argc]

	locals := make(map[string]Value, len(fn.Params))

	paramSet := make(map[string]bool, len(fn.Params))
	for _, p := range fn.Params {
		paramSet[p] = true
	}

	for i, arg := range args {
		var target string
		if ins.ArgNames != nil && ins.ArgNames[i] != "" {
			target = ins.ArgNames[i]
			if !paramSet[target] {
				return 0, vm.runtimeError(ip, nil, "unknown parameter %q in call to %s()", target, ins.Name)
			}
		} else {
			if i >= len(fn.Params) {
				return 0, vm.runtimeError(ip, nil, "%s() takes at most %d argument(s), got %d", ins.Name, len(fn.Params), ins.Argc)
			}
			target = fn.Params[i]
		}
		if _, dup := locals[target]; dup {
			return 0, vm.runtimeError(ip, nil, "duplicate value for parameter %q in call to %s()", target, ins.Name)
		}
		locals[target] = arg
	}

	for _, p := range fn.Params {
		if _, bound := locals[p]; bound {
			continue
		}
		dflt, ok := fn.Defaults[p]
		if !ok {
			return 0, vm.runtimeError(ip, nil, "missing argument %q in call to %s()", p, ins.Name)
		}
		locals[p] = dflt
	}

	vm.frames = append(vm.frames, &Frame{
		fn:       fn,
		name:     ins.Name,
		file:     fn.File,
		returnIP: ip + 1,
		locals:   locals,
	})
	return fn.Entry, nil
}

// execReturn checks the declared return type, pops the frame, and
// resumes at the call site. The return value stays on the stack.
func (vm *VM) execReturn(ip int) (int, error) {
	if len(vm.frames) == 0 {
		return 0, vm.runtimeError(ip, nil, "return outside of a function")
	}
	frame := vm.frames[len(vm.frames)-1]

	// An empty stack yields null to the caller.
	if len(vm.stack) == 0 {
		vm.stack = append(vm.stack, NilVal())
	}
	ret := vm.stack[len(vm.stack)-1]

	if frame.fn != nil && frame.fn.ReturnType != "" && !ret.IsNil() {
		if !matchesTag(ret, frame.fn.ReturnType) {
			return 0, vm.runtimeError(ip, nil, "%s() declared return type %s but returned %s",
				frame.name, typeTagName[frame.fn.ReturnType], ret.TypeName())
		}
	}

	vm.frames = vm.frames[:len(vm.frames)-1]
	return frame.returnIP, nil
}
