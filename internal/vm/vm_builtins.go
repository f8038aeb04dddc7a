package vm

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var ansiColors = map[string]string{
	"black":   "\x1b[30m",
	"red":     "\x1b[31m",
	"green":   "\x1b[32m",
	"yellow":  "\x1b[33m",
	"blue":    "\x1b[34m",
	"magenta": "\x1b[35m",
	"cyan":    "\x1b[36m",
	"white":   "\x1b[37m",
	"reset":   "\x1b[0m",
}

// execBuiltin pops the arguments, runs the builtin, and pushes its
// result. Every builtin pushes exactly one value; output builtins push
// null so standalone calls can POP uniformly.
func (vm *VM) execBuiltin(ip int, ins Instruction) error {
	if len(vm.stack) < ins.Argc {
		return vm.runtimeError(ip, ErrStackUnderflow, "stack underflow calling %s()", ins.Name)
	}
	args := make([]Value, ins.Argc)
	copy(args, vm.stack[len(vm.stack)-ins.Argc:])
	vm.stack = vm.stack[:len(vm.stack)-ins.Argc]

	result, err := vm.callBuiltin(ip, ins.Name, args)
	if err != nil {
		return err
	}
	vm.push(result)
	return nil
}

func (vm *VM) callBuiltin(ip int, name string, args []Value) (Value, error) {
	switch name {
	case "write":
		return vm.builtinWrite(ip, args)
	case "enter":
		return vm.builtinEnter(ip, args)
	case "args":
		items := make([]Value, len(vm.scriptArgs))
		for i, a := range vm.scriptArgs {
			items[i] = TextVal(a)
		}
		return ListVal(&List{Items: items}), nil

	case "conv_int":
		v, err := convInt(args[0])
		if err != nil {
			return Value{}, vm.runtimeError(ip, nil, "%s", err.Error())
		}
		return v, nil
	case "conv_float":
		v, err := convFloat(args[0])
		if err != nil {
			return Value{}, vm.runtimeError(ip, nil, "%s", err.Error())
		}
		return v, nil
	case "conv_str":
		return TextVal(args[0].Display()), nil
	case "conv_bool":
		v, err := convBool(args[0])
		if err != nil {
			return Value{}, vm.runtimeError(ip, nil, "%s", err.Error())
		}
		return v, nil
	case "try_conv_int":
		v, err := convInt(args[0])
		if err != nil {
			return NilVal(), nil
		}
		return v, nil
	case "try_conv_float":
		v, err := convFloat(args[0])
		if err != nil {
			return NilVal(), nil
		}
		return v, nil
	case "try_conv_bool":
		v, err := convBool(args[0])
		if err != nil {
			return NilVal(), nil
		}
		return v, nil

	case "amount":
		switch v := args[0]; {
		case v.IsList():
			return IntVal(int64(len(v.List.Items))), nil
		case v.IsText():
			return IntVal(int64(len([]rune(v.Text)))), nil
		case v.IsDict():
			return IntVal(int64(v.Dict.Len())), nil
		default:
			return Value{}, vm.runtimeError(ip, nil, "cannot take amount of %s", v.TypeName())
		}

	case "del":
		v := args[0]
		if !v.IsList() {
			return Value{}, vm.runtimeError(ip, nil, "del() requires a list, got %s", v.TypeName())
		}
		items := v.List.Items
		if len(items) == 0 {
			return Value{}, vm.runtimeError(ip, nil, "del() on an empty list")
		}
		last := items[len(items)-1]
		v.List.Items = items[:len(items)-1]
		return last, nil

	case "upper":
		if !args[0].IsText() {
			return Value{}, vm.runtimeError(ip, nil, "upper() requires text, got %s", args[0].TypeName())
		}
		return TextVal(strings.ToUpper(args[0].Text)), nil
	case "lower":
		if !args[0].IsText() {
			return Value{}, vm.runtimeError(ip, nil, "lower() requires text, got %s", args[0].TypeName())
		}
		return TextVal(strings.ToLower(args[0].Text)), nil

	case "split":
		if !args[0].IsText() || !args[1].IsText() {
			return Value{}, vm.runtimeError(ip, nil, "split() requires text and text, got %s and %s", args[0].TypeName(), args[1].TypeName())
		}
		parts := strings.Split(args[0].Text, args[1].Text)
		items := make([]Value, len(parts))
		for i, p := range parts {
			items[i] = TextVal(p)
		}
		return ListVal(&List{Items: items}), nil

	case "join":
		if !args[0].IsList() || !args[1].IsText() {
			return Value{}, vm.runtimeError(ip, nil, "join() requires a list and text, got %s and %s", args[0].TypeName(), args[1].TypeName())
		}
		parts := make([]string, len(args[0].List.Items))
		for i, item := range args[0].List.Items {
			parts[i] = item.Display()
		}
		return TextVal(strings.Join(parts, args[1].Text)), nil

	case "replace":
		if !args[0].IsText() || !args[1].IsText() || !args[2].IsText() {
			return Value{}, vm.runtimeError(ip, nil, "replace() requires three text arguments")
		}
		return TextVal(strings.ReplaceAll(args[0].Text, args[1].Text, args[2].Text)), nil

	case "insert":
		if !args[0].IsList() {
			return Value{}, vm.runtimeError(ip, nil, "insert() requires a list, got %s", args[0].TypeName())
		}
		if !args[1].IsInt() {
			return Value{}, vm.runtimeError(ip, nil, "insert() index must be an integer, got %s", args[1].TypeName())
		}
		list := args[0].List
		i := int(args[1].AsInt())
		if i < 0 || i > len(list.Items) {
			return Value{}, vm.runtimeError(ip, nil, "insert() index out of range: %d", i)
		}
		list.Items = append(list.Items, Value{})
		copy(list.Items[i+1:], list.Items[i:])
		list.Items[i] = args[2]
		return args[0], nil

	case "save":
		return vm.builtinSave(ip, args, false, false)
	case "append":
		return vm.builtinSave(ip, args, true, true)
	case "change":
		return vm.builtinSave(ip, args, false, true)
	case "load":
		return vm.builtinLoad(ip, args, false)
	case "read":
		return vm.builtinLoad(ip, args, true)
	}

	return Value{}, vm.runtimeError(ip, nil, "unknown builtin: %s", name)
}

// builtinWrite renders the value, applies color, and prints a line.
// Inline [color] tags are honored when color is enabled and stripped
// otherwise; an optional second argument colors the whole line.
func (vm *VM) builtinWrite(ip int, args []Value) (Value, error) {
	text := args[0].Display()

	if len(args) == 2 {
		if !args[1].IsText() {
			return Value{}, vm.runtimeError(ip, nil, "write() color must be text, got %s", args[1].TypeName())
		}
		code, ok := ansiColors[args[1].Text]
		if !ok || args[1].Text == "reset" {
			return Value{}, vm.runtimeError(ip, nil, "unknown color: %s", args[1].Text)
		}
		if vm.colorEnabled {
			text = code + text + ansiColors["reset"]
		}
	} else {
		text = expandColorTags(text, vm.colorEnabled)
	}

	fmt.Fprintln(vm.stdout, text)
	return NilVal(), nil
}

// expandColorTags rewrites inline [color] markers into ANSI escapes, or
// strips them when color is off. Unknown tags pass through verbatim.
func expandColorTags(s string, enabled bool) string {
	if !strings.ContainsRune(s, '[') {
		return s
	}
	var out strings.Builder
	sawColor := false
	for i := 0; i < len(s); {
		if s[i] != '[' {
			out.WriteByte(s[i])
			i++
			continue
		}
		end := strings.IndexByte(s[i:], ']')
		if end < 0 {
			out.WriteString(s[i:])
			break
		}
		tag := s[i+1 : i+end]
		code, ok := ansiColors[tag]
		if !ok {
			out.WriteString(s[i : i+end+1])
			i += end + 1
			continue
		}
		if enabled {
			out.WriteString(code)
			if tag != "reset" {
				sawColor = true
			} else {
				sawColor = false
			}
		}
		i += end + 1
	}
	if enabled && sawColor {
		out.WriteString(ansiColors["reset"])
	}
	return out.String()
}

func (vm *VM) builtinEnter(ip int, args []Value) (Value, error) {
	if !args[0].IsText() {
		return Value{}, vm.runtimeError(ip, nil, "enter() prompt must be text, got %s", args[0].TypeName())
	}
	fmt.Fprint(vm.stdout, args[0].Text)

	line, err := vm.stdin.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return Value{}, vm.runtimeError(ip, nil, "cannot read input: %s", err.Error())
	}
	if line == "" && errors.Is(err, io.EOF) {
		return Value{}, vm.runtimeError(ip, nil, "unexpected end of input")
	}
	line = strings.TrimRight(line, "\r\n")
	return TextVal(line), nil
}

// resolvePath anchors a relative file path at the script's directory.
func (vm *VM) resolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(vm.baseDir, path)
}

func (vm *VM) builtinSave(ip int, args []Value, appendMode, allowExisting bool) (Value, error) {
	if !args[0].IsText() {
		return Value{}, vm.runtimeError(ip, nil, "file path must be text, got %s", args[0].TypeName())
	}
	if !args[1].IsText() {
		return Value{}, vm.runtimeError(ip, nil, "file content must be text, got %s", args[1].TypeName())
	}
	path := vm.resolvePath(args[0].Text)

	flags := os.O_WRONLY | os.O_CREATE
	switch {
	case appendMode:
		flags |= os.O_APPEND
	case allowExisting:
		flags |= os.O_TRUNC
	default:
		flags |= os.O_EXCL
	}

	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return Value{}, vm.runtimeError(ip, nil, "file already exists: %s", args[0].Text)
		}
		return Value{}, vm.runtimeError(ip, nil, "cannot write file: %s", err.Error())
	}
	_, werr := io.WriteString(f, args[1].Text)
	cerr := f.Close()
	if werr != nil {
		return Value{}, vm.runtimeError(ip, nil, "cannot write file: %s", werr.Error())
	}
	if cerr != nil {
		return Value{}, vm.runtimeError(ip, nil, "cannot write file: %s", cerr.Error())
	}
	return NilVal(), nil
}

func (vm *VM) builtinLoad(ip int, args []Value, asLines bool) (Value, error) {
	if !args[0].IsText() {
		return Value{}, vm.runtimeError(ip, nil, "file path must be text, got %s", args[0].TypeName())
	}
	data, err := os.ReadFile(vm.resolvePath(args[0].Text))
	if err != nil {
		return Value{}, vm.runtimeError(ip, nil, "cannot load file: %s", err.Error())
	}
	text := string(data)
	if !asLines {
		return TextVal(text), nil
	}
	text = strings.TrimSuffix(text, "\n")
	var items []Value
	if text != "" {
		for _, line := range strings.Split(text, "\n") {
			items = append(items, TextVal(strings.TrimSuffix(line, "\r")))
		}
	}
	return ListVal(&List{Items: items}), nil
}

func convInt(v Value) (Value, error) {
	switch {
	case v.IsInt():
		return v, nil
	case v.IsFloat():
		return IntVal(int64(v.AsFloat())), nil
	case v.IsBool():
		if v.AsBool() {
			return IntVal(1), nil
		}
		return IntVal(0), nil
	case v.IsText():
		n, err := strconv.ParseInt(strings.TrimSpace(v.Text), 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("cannot convert %q to integer", v.Text)
		}
		return IntVal(n), nil
	}
	return Value{}, fmt.Errorf("cannot convert %s to integer", v.TypeName())
}

func convFloat(v Value) (Value, error) {
	switch {
	case v.IsFloat():
		return v, nil
	case v.IsInt():
		return FloatVal(float64(v.AsInt())), nil
	case v.IsBool():
		if v.AsBool() {
			return FloatVal(1), nil
		}
		return FloatVal(0), nil
	case v.IsText():
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Text), 64)
		if err != nil {
			return Value{}, fmt.Errorf("cannot convert %q to float", v.Text)
		}
		return FloatVal(f), nil
	}
	return Value{}, fmt.Errorf("cannot convert %s to float", v.TypeName())
}

var boolWords = map[string]bool{
	"true": true, "1": true, "yes": true, "y": true, "on": true,
	"false": false, "0": false, "no": false, "n": false, "off": false,
}

func convBool(v Value) (Value, error) {
	switch {
	case v.IsBool():
		return v, nil
	case v.IsInt():
		return BoolVal(v.AsInt() != 0), nil
	case v.IsFloat():
		return BoolVal(v.AsFloat() != 0), nil
	case v.IsText():
		b, ok := boolWords[strings.ToLower(strings.TrimSpace(v.Text))]
		if !ok {
			return Value{}, fmt.Errorf("cannot convert %q to boolean", v.Text)
		}
		return BoolVal(b), nil
	}
	return Value{}, fmt.Errorf("cannot convert %s to boolean", v.TypeName())
}
