package vm

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/fallen-lang/fallen/internal/config"
)

// Frame is one entry of the call stack.
type Frame struct {
	fn       *Function // nil for the top-level and module frames
	name     string
	file     string
	returnIP int
	locals   map[string]Value
}

// Options configures a VM. The zero value is not usable; use New, which
// applies defaults for unset fields.
type Options struct {
	MaxCallDepth int
	MaxSteps     int
	Stdin        io.Reader
	Stdout       io.Writer
	ColorMode    string // "auto", "always", "never"
	// Logger receives per-instruction events while trace is on; nil
	// discards them.
	Logger     *zerolog.Logger
	ScriptArgs []string
	// BaseDir resolves relative import paths; defaults to the working
	// directory.
	BaseDir string
}

// importKey identifies one linked module instance. The same path under
// a different alias links again as a separate instance.
type importKey struct {
	path  string
	alias string
}

// VM executes a compiled Program.
type VM struct {
	prog    *Program
	stack   []Value
	globals map[string]Value
	frames  []*Frame

	maxCallDepth int
	maxSteps     int
	steps        int
	trace        bool

	stdin        *bufio.Reader
	stdout       io.Writer
	colorEnabled bool
	logger       *zerolog.Logger
	scriptArgs   []string
	baseDir      string

	loaded  map[importKey]bool
	loading map[importKey]bool
}

// New creates a VM for prog.
func New(prog *Program, opts Options) *VM {
	if opts.MaxCallDepth <= 0 {
		opts.MaxCallDepth = config.DefaultMaxCallDepth
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.BaseDir == "" {
		opts.BaseDir = "."
	}
	if opts.Logger == nil {
		nop := zerolog.Nop()
		opts.Logger = &nop
	}

	return &VM{
		prog:         prog,
		stack:        make([]Value, 0, 256),
		globals:      make(map[string]Value),
		maxCallDepth: opts.MaxCallDepth,
		maxSteps:     opts.MaxSteps,
		stdin:        bufio.NewReader(opts.Stdin),
		stdout:       opts.Stdout,
		colorEnabled: resolveColor(opts.ColorMode, opts.Stdout),
		logger:       opts.Logger,
		scriptArgs:   opts.ScriptArgs,
		baseDir:      opts.BaseDir,
		loaded:       make(map[importKey]bool),
		loading:      make(map[importKey]bool),
	}
}

func resolveColor(mode string, out io.Writer) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	f, ok := out.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// Globals returns the global environment. The REPL reads results back
// through it between snippets.
func (vm *VM) Globals() map[string]Value { return vm.globals }

// Program returns the program the VM executes. Linking appends to it.
func (vm *VM) Program() *Program { return vm.prog }

// Run executes the program from instruction 0 until its HALT.
func (vm *VM) Run() error {
	return vm.runRange(0)
}

// runRange executes from ip until a HALT. Linked modules run their own
// range recursively before the importing instruction continues.
func (vm *VM) runRange(ip int) error {
	for {
		if ip < 0 || ip >= len(vm.prog.Instructions) {
			return vm.runtimeError(ip, nil, "instruction pointer out of range: %d", ip)
		}

		if vm.maxSteps > 0 {
			vm.steps++
			if vm.steps > vm.maxSteps {
				return vm.runtimeError(ip, ErrStepLimit, "step limit of %d exceeded", vm.maxSteps)
			}
		}

		ins := vm.prog.Instructions[ip]

		if vm.trace {
			dbg := vm.prog.DebugAt(ip)
			vm.logger.Debug().
				Int("ip", ip).
				Str("op", ins.Op.String()).
				Str("file", dbg.File).
				Int("line", dbg.Line).
				Int("stack", len(vm.stack)).
				Msg("step")
		}

		switch ins.Op {
		case OP_HALT:
			return nil

		case OP_LOAD_CONST:
			if ins.Operand < 0 || ins.Operand >= len(vm.prog.Constants) {
				return vm.runtimeError(ip, nil, "constant index out of range: %d", ins.Operand)
			}
			vm.push(vm.prog.Constants[ins.Operand])

		case OP_LOAD_NAME:
			v, ok := vm.lookup(ins.Name)
			if !ok {
				return vm.runtimeError(ip, nil, "undefined variable: %s", ins.Name)
			}
			vm.push(v)

		case OP_STORE_NAME:
			v, err := vm.pop(ip)
			if err != nil {
				return err
			}
			vm.store(ins.Name, v)

		case OP_POP:
			if _, err := vm.pop(ip); err != nil {
				return err
			}

		case OP_DUP:
			if len(vm.stack) == 0 {
				return vm.runtimeError(ip, ErrStackUnderflow, "stack underflow on DUP")
			}
			vm.push(vm.stack[len(vm.stack)-1])

		case OP_ADD, OP_SUB, OP_MUL, OP_DIV:
			if err := vm.execArith(ip, ins.Op); err != nil {
				return err
			}

		case OP_CMP_EQ, OP_CMP_NE, OP_CMP_LT, OP_CMP_LE, OP_CMP_GT, OP_CMP_GE:
			if err := vm.execCompare(ip, ins.Op); err != nil {
				return err
			}

		case OP_NOT:
			v, err := vm.pop(ip)
			if err != nil {
				return err
			}
			if !v.IsBool() {
				return vm.runtimeError(ip, nil, "not requires a boolean, got %s", v.TypeName())
			}
			vm.push(BoolVal(!v.AsBool()))

		case OP_JUMP:
			ip = ins.Operand
			continue

		case OP_JUMP_IF_FALSE:
			v, err := vm.pop(ip)
			if err != nil {
				return err
			}
			if !v.IsBool() {
				return vm.runtimeError(ip, nil, "condition must be a boolean, got %s", v.TypeName())
			}
			if !v.AsBool() {
				ip = ins.Operand
				continue
			}

		case OP_CALL_BUILTIN:
			if err := vm.execBuiltin(ip, ins); err != nil {
				return err
			}

		case OP_CALL_FUNC:
			next, err := vm.execCall(ip, ins)
			if err != nil {
				return err
			}
			ip = next
			continue

		case OP_RETURN:
			next, err := vm.execReturn(ip)
			if err != nil {
				return err
			}
			ip = next
			continue

		case OP_BUILD_LIST:
			if err := vm.execBuildList(ip, ins.Argc); err != nil {
				return err
			}

		case OP_BUILD_DICT:
			if err := vm.execBuildDict(ip, ins.Argc); err != nil {
				return err
			}

		case OP_LIST_GET:
			if err := vm.execListGet(ip); err != nil {
				return err
			}

		case OP_LIST_APPEND:
			if err := vm.execListAppend(ip); err != nil {
				return err
			}

		case OP_INDEX_GET:
			if err := vm.execIndexGet(ip); err != nil {
				return err
			}

		case OP_INDEX_SET:
			if err := vm.execIndexSet(ip); err != nil {
				return err
			}

		case OP_INDEX_REMOVE:
			if err := vm.execIndexRemove(ip); err != nil {
				return err
			}

		case OP_FORMAT_STRING:
			if err := vm.execFormatString(ip); err != nil {
				return err
			}

		case OP_IMPORT:
			if err := vm.execImport(ip, ins); err != nil {
				return err
			}

		case OP_SET_TRACE:
			vm.trace = ins.Flag

		default:
			return vm.runtimeError(ip, nil, "unknown opcode %d", ins.Op)
		}

		ip++
	}
}

func (vm *VM) push(v Value) {
	vm.stack = append(vm.stack, v)
}

func (vm *VM) pop(ip int) (Value, error) {
	if len(vm.stack) == 0 {
		return Value{}, vm.runtimeError(ip, ErrStackUnderflow, "stack underflow")
	}
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v, nil
}

// pop2 pops b then a, so the caller receives them in push order.
func (vm *VM) pop2(ip int) (a, b Value, err error) {
	b, err = vm.pop(ip)
	if err != nil {
		return
	}
	a, err = vm.pop(ip)
	return
}

// lookup reads a name from the innermost frame's locals, falling back
// to globals. Top-level code reads and writes globals directly.
func (vm *VM) lookup(name string) (Value, bool) {
	if len(vm.frames) > 0 {
		f := vm.frames[len(vm.frames)-1]
		if v, ok := f.locals[name]; ok {
			return v, true
		}
	}
	v, ok := vm.globals[name]
	return v, ok
}

// store writes a name into the current environment: frame locals inside
// a call, globals at top level.
func (vm *VM) store(name string, v Value) {
	if len(vm.frames) > 0 {
		vm.frames[len(vm.frames)-1].locals[name] = v
		return
	}
	vm.globals[name] = v
}

// runtimeError builds a RuntimeError at ip with the current call stack,
// optionally tagged with a sentinel for errors.Is matching.
func (vm *VM) runtimeError(ip int, sentinel error, format string, args ...any) error {
	dbg := vm.prog.DebugAt(ip)
	e := &RuntimeError{
		Message:  fmt.Sprintf(format, args...),
		IP:       ip,
		File:     dbg.File,
		Line:     dbg.Line,
		Sentinel: sentinel,
	}
	for i := len(vm.frames) - 1; i >= 0; i-- {
		f := vm.frames[i]
		e.Trace = append(e.Trace, TraceEntry{
			Function: f.name,
			File:     f.file,
			Line:     vm.prog.DebugAt(f.returnIP - 1).Line,
		})
	}
	return e
}
