package vm

import "strings"

func (vm *VM) execArith(ip int, op Opcode) error {
	a, b, err := vm.pop2(ip)
	if err != nil {
		return err
	}

	if op == OP_ADD {
		switch {
		case a.IsText() && b.IsText():
			vm.push(TextVal(a.Text + b.Text))
			return nil
		case a.IsList() && b.IsList():
			merged := make([]Value, 0, len(a.List.Items)+len(b.List.Items))
			merged = append(merged, a.List.Items...)
			merged = append(merged, b.List.Items...)
			vm.push(ListVal(&List{Items: merged}))
			return nil
		}
	}

	if !a.IsNumber() || !b.IsNumber() {
		return vm.runtimeError(ip, nil, "cannot apply %s to %s and %s", arithName(op), a.TypeName(), b.TypeName())
	}

	// Integer arithmetic stays integral except division, which always
	// produces a float.
	if a.IsInt() && b.IsInt() && op != OP_DIV {
		x, y := a.AsInt(), b.AsInt()
		switch op {
		case OP_ADD:
			vm.push(IntVal(x + y))
		case OP_SUB:
			vm.push(IntVal(x - y))
		case OP_MUL:
			vm.push(IntVal(x * y))
		}
		return nil
	}

	x, y := a.numeric(), b.numeric()
	switch op {
	case OP_ADD:
		vm.push(FloatVal(x + y))
	case OP_SUB:
		vm.push(FloatVal(x - y))
	case OP_MUL:
		vm.push(FloatVal(x * y))
	case OP_DIV:
		if y == 0 {
			return vm.runtimeError(ip, nil, "division by zero")
		}
		vm.push(FloatVal(x / y))
	}
	return nil
}

func arithName(op Opcode) string {
	switch op {
	case OP_ADD:
		return "+"
	case OP_SUB:
		return "-"
	case OP_MUL:
		return "*"
	case OP_DIV:
		return "/"
	}
	return op.String()
}

func (vm *VM) execCompare(ip int, op Opcode) error {
	a, b, err := vm.pop2(ip)
	if err != nil {
		return err
	}

	switch op {
	case OP_CMP_EQ:
		vm.push(BoolVal(a.Equals(b)))
		return nil
	case OP_CMP_NE:
		vm.push(BoolVal(!a.Equals(b)))
		return nil
	}

	cmp, err := a.Compare(b)
	if err != nil {
		return vm.runtimeError(ip, nil, "%s", err.Error())
	}
	switch op {
	case OP_CMP_LT:
		vm.push(BoolVal(cmp < 0))
	case OP_CMP_LE:
		vm.push(BoolVal(cmp <= 0))
	case OP_CMP_GT:
		vm.push(BoolVal(cmp > 0))
	case OP_CMP_GE:
		vm.push(BoolVal(cmp >= 0))
	}
	return nil
}

func (vm *VM) execBuildList(ip, n int) error {
	if len(vm.stack) < n {
		return vm.runtimeError(ip, ErrStackUnderflow, "stack underflow building list of %d", n)
	}
	items := make([]Value, n)
	copy(items, vm.stack[len(vm.stack)-n:])
	vm.stack = vm.stack[:len(vm.stack)-n]
	vm.push(ListVal(&List{Items: items}))
	return nil
}

func (vm *VM) execBuildDict(ip, n int) error {
	if len(vm.stack) < 2*n {
		return vm.runtimeError(ip, ErrStackUnderflow, "stack underflow building dictionary of %d", n)
	}
	d := NewDict()
	base := len(vm.stack) - 2*n
	for i := 0; i < n; i++ {
		key := vm.stack[base+2*i]
		val := vm.stack[base+2*i+1]
		if !key.IsText() {
			return vm.runtimeError(ip, nil, "dictionary key must be text, got %s", key.TypeName())
		}
		d.Set(key.Text, val)
	}
	vm.stack = vm.stack[:base]
	vm.push(DictVal(d))
	return nil
}

// execListGet is positional access over any iterable: the i-th element
// of a list, the i-th character of a text, or the i-th key of a
// dictionary. It drives for-loop iteration.
func (vm *VM) execListGet(ip int) error {
	container, idx, err := vm.pop2(ip)
	if err != nil {
		return err
	}
	if !idx.IsInt() {
		return vm.runtimeError(ip, nil, "iteration index must be an integer, got %s", idx.TypeName())
	}
	i := int(idx.AsInt())

	switch {
	case container.IsList():
		items := container.List.Items
		if i < 0 || i >= len(items) {
			return vm.runtimeError(ip, nil, "list index out of range: %d", i)
		}
		vm.push(items[i])
	case container.IsText():
		runes := []rune(container.Text)
		if i < 0 || i >= len(runes) {
			return vm.runtimeError(ip, nil, "text index out of range: %d", i)
		}
		vm.push(TextVal(string(runes[i])))
	case container.IsDict():
		keys := container.Dict.Keys()
		if i < 0 || i >= len(keys) {
			return vm.runtimeError(ip, nil, "dictionary index out of range: %d", i)
		}
		vm.push(TextVal(keys[i]))
	default:
		return vm.runtimeError(ip, nil, "cannot iterate over %s", container.TypeName())
	}
	return nil
}

func (vm *VM) execListAppend(ip int) error {
	target, val, err := vm.pop2(ip)
	if err != nil {
		return err
	}
	if !target.IsList() {
		return vm.runtimeError(ip, nil, "cannot append to %s", target.TypeName())
	}
	target.List.Items = append(target.List.Items, val)
	return nil
}

func (vm *VM) execIndexGet(ip int) error {
	container, key, err := vm.pop2(ip)
	if err != nil {
		return err
	}

	switch {
	case container.IsList():
		if !key.IsInt() {
			return vm.runtimeError(ip, nil, "list index must be an integer, got %s", key.TypeName())
		}
		i := int(key.AsInt())
		if i < 0 || i >= len(container.List.Items) {
			return vm.runtimeError(ip, nil, "list index out of range: %d", i)
		}
		vm.push(container.List.Items[i])
	case container.IsText():
		if !key.IsInt() {
			return vm.runtimeError(ip, nil, "text index must be an integer, got %s", key.TypeName())
		}
		i := int(key.AsInt())
		runes := []rune(container.Text)
		if i < 0 || i >= len(runes) {
			return vm.runtimeError(ip, nil, "text index out of range: %d", i)
		}
		vm.push(TextVal(string(runes[i])))
	case container.IsDict():
		if !key.IsText() {
			return vm.runtimeError(ip, nil, "dictionary key must be text, got %s", key.TypeName())
		}
		v, ok := container.Dict.Get(key.Text)
		if !ok {
			return vm.runtimeError(ip, nil, "key not found in dictionary: %s", key.Text)
		}
		vm.push(v)
	default:
		return vm.runtimeError(ip, nil, "cannot index %s", container.TypeName())
	}
	return nil
}

func (vm *VM) execIndexSet(ip int) error {
	val, err := vm.pop(ip)
	if err != nil {
		return err
	}
	container, key, err := vm.pop2(ip)
	if err != nil {
		return err
	}

	switch {
	case container.IsList():
		if !key.IsInt() {
			return vm.runtimeError(ip, nil, "list index must be an integer, got %s", key.TypeName())
		}
		i := int(key.AsInt())
		if i < 0 || i >= len(container.List.Items) {
			return vm.runtimeError(ip, nil, "list index out of range: %d", i)
		}
		container.List.Items[i] = val
	case container.IsDict():
		if !key.IsText() {
			return vm.runtimeError(ip, nil, "dictionary key must be text, got %s", key.TypeName())
		}
		container.Dict.Set(key.Text, val)
	default:
		return vm.runtimeError(ip, nil, "cannot assign into %s", container.TypeName())
	}
	return nil
}

func (vm *VM) execIndexRemove(ip int) error {
	container, key, err := vm.pop2(ip)
	if err != nil {
		return err
	}

	switch {
	case container.IsList():
		if !key.IsInt() {
			return vm.runtimeError(ip, nil, "list index must be an integer, got %s", key.TypeName())
		}
		i := int(key.AsInt())
		items := container.List.Items
		if i < 0 || i >= len(items) {
			return vm.runtimeError(ip, nil, "list index out of range: %d", i)
		}
		container.List.Items = append(items[:i], items[i+1:]...)
	case container.IsDict():
		if !key.IsText() {
			return vm.runtimeError(ip, nil, "dictionary key must be text, got %s", key.TypeName())
		}
		if !container.Dict.Delete(key.Text) {
			return vm.runtimeError(ip, nil, "key not found in dictionary: %s", key.Text)
		}
	default:
		return vm.runtimeError(ip, nil, "cannot remove from %s", container.TypeName())
	}
	return nil
}

// execFormatString expands {name} placeholders against the current
// environment. {{ and }} produce literal braces; anything between
// braces that is not a plain identifier stays untouched.
func (vm *VM) execFormatString(ip int) error {
	v, err := vm.pop(ip)
	if err != nil {
		return err
	}
	if !v.IsText() {
		return vm.runtimeError(ip, nil, "format target must be text, got %s", v.TypeName())
	}

	var out strings.Builder
	s := v.Text
	for i := 0; i < len(s); {
		switch {
		case strings.HasPrefix(s[i:], "{{"):
			out.WriteByte('{')
			i += 2
		case strings.HasPrefix(s[i:], "}}"):
			out.WriteByte('}')
			i += 2
		case s[i] == '{':
			end := strings.IndexByte(s[i:], '}')
			if end < 0 {
				out.WriteString(s[i:])
				i = len(s)
				break
			}
			name := s[i+1 : i+end]
			if !isIdentifier(name) {
				out.WriteString(s[i : i+end+1])
				i += end + 1
				break
			}
			val, ok := vm.lookup(name)
			if !ok {
				return vm.runtimeError(ip, nil, "undefined variable in format string: %s", name)
			}
			out.WriteString(val.Display())
			i += end + 1
		default:
			out.WriteByte(s[i])
			i++
		}
	}

	vm.push(TextVal(out.String()))
	return nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
