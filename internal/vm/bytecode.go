package vm

// UnpatchedOperand marks a forward jump that has not been patched yet.
// The compiler must resolve every one of them before handing the program
// to the VM.
const UnpatchedOperand = -1

// EntryUnset marks a registered function whose body has not been compiled.
const EntryUnset = -1

// Instruction is the normalized instruction record. Operand shape depends
// on the opcode: a constant-pool index or an absolute jump target. Calls
// and aggregate builders carry Argc; CALL_FUNC additionally carries
// ArgNames (parallel to the pushed arguments, "" = positional) when any
// argument was named, or nil when all were positional.
type Instruction struct {
	Op       Opcode
	Operand  int
	Name     string
	Argc     int
	ArgNames []string
	Flag     bool
}

// DebugInfo locates an instruction in its source, for error reporting.
// A zero Line means unknown.
type DebugInfo struct {
	File string
	Line int
}

// Function is one entry of a program's function table.
type Function struct {
	Name       string
	Entry      int // instruction index of the body, EntryUnset until compiled
	Params     []string
	Defaults   map[string]Value // literal default values by parameter name
	ReturnType string           // type tag ("s", "i", ...), "" when undeclared
	File       string           // defining source path
}

// Program is the bytecode artifact shared between the compiler and the VM:
// a deduplicated constant pool, the instruction sequence with parallel debug
// records, the function table, and module metadata used by import linking.
type Program struct {
	Constants    []Value
	Instructions []Instruction
	Debug        []DebugInfo
	Functions    map[string]*Function

	// DefinedGlobals are the top-level names (functions and variables)
	// this program defines; Exports are the names explicitly exported.
	DefinedGlobals map[string]struct{}
	Exports        map[string]struct{}
}

func NewProgram() *Program {
	return &Program{
		Functions:      make(map[string]*Function),
		DefinedGlobals: make(map[string]struct{}),
		Exports:        make(map[string]struct{}),
	}
}

// AddConstant returns the pool index for v, reusing an existing slot when
// an equal constant was added before (linear scan; pools stay small).
func (p *Program) AddConstant(v Value) int {
	for i, c := range p.Constants {
		if c.Type == v.Type && c.Equals(v) {
			return i
		}
	}
	p.Constants = append(p.Constants, v)
	return len(p.Constants) - 1
}

// Emit appends an instruction with its debug record and returns its index
// (callers keep it for jump patching).
func (p *Program) Emit(ins Instruction, dbg DebugInfo) int {
	p.Instructions = append(p.Instructions, ins)
	p.Debug = append(p.Debug, dbg)
	return len(p.Instructions) - 1
}

// Patch sets the operand of a previously emitted jump.
func (p *Program) Patch(index, target int) {
	p.Instructions[index].Operand = target
}

// IsPublic reports whether a top-level name is visible to importers.
// With an export list only listed names are public; without one, any
// defined name not starting with an underscore is.
func (p *Program) IsPublic(name string) bool {
	if len(p.Exports) > 0 {
		_, ok := p.Exports[name]
		return ok
	}
	return len(name) > 0 && name[0] != '_'
}

// DebugAt returns the debug record for an instruction index, tolerating
// out-of-range indexes (returns the zero record).
func (p *Program) DebugAt(index int) DebugInfo {
	if index >= 0 && index < len(p.Debug) {
		return p.Debug[index]
	}
	return DebugInfo{}
}
