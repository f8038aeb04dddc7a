package vm

// Opcode identifies a single VM instruction.
type Opcode uint8

const (
	// Stack
	OP_LOAD_CONST Opcode = iota // push Constants[Operand]
	OP_LOAD_NAME                // push variable Name (local, then global)
	OP_STORE_NAME               // pop into Name in the current environment
	OP_POP                      // discard top of stack
	OP_DUP                      // duplicate top of stack

	// Arithmetic
	OP_ADD
	OP_SUB
	OP_MUL
	OP_DIV // true division: always produces a float

	// Comparison
	OP_CMP_EQ
	OP_CMP_NE
	OP_CMP_LT
	OP_CMP_LE
	OP_CMP_GT
	OP_CMP_GE

	// Logic
	OP_NOT

	// Control flow (Operand is an absolute instruction index)
	OP_JUMP
	OP_JUMP_IF_FALSE // pops a boolean; jumps when false

	// Calls
	OP_CALL_BUILTIN // Name + Argc
	OP_CALL_FUNC    // Name + Argc + optional ArgNames
	OP_RETURN

	// Aggregates
	OP_BUILD_LIST // Argc = element count
	OP_BUILD_DICT // Argc = pair count

	// Indexing
	OP_LIST_GET     // sequence element by integer position (for-loop lowering)
	OP_LIST_APPEND  // append popped value to popped list
	OP_INDEX_GET    // runtime-dispatched: list[int] or dict[text]
	OP_INDEX_SET    // write may introduce a new dict key
	OP_INDEX_REMOVE // read/removal keys must exist

	// Misc
	OP_FORMAT_STRING // expand {name} placeholders in popped text
	OP_IMPORT        // pop text path; Name carries the optional alias
	OP_SET_TRACE     // Flag toggles per-instruction trace logging
	OP_HALT
)

var opcodeNames = [...]string{
	OP_LOAD_CONST:    "LOAD_CONST",
	OP_LOAD_NAME:     "LOAD_NAME",
	OP_STORE_NAME:    "STORE_NAME",
	OP_POP:           "POP",
	OP_DUP:           "DUP",
	OP_ADD:           "ADD",
	OP_SUB:           "SUB",
	OP_MUL:           "MUL",
	OP_DIV:           "DIV",
	OP_CMP_EQ:        "CMP_EQ",
	OP_CMP_NE:        "CMP_NE",
	OP_CMP_LT:        "CMP_LT",
	OP_CMP_LE:        "CMP_LE",
	OP_CMP_GT:        "CMP_GT",
	OP_CMP_GE:        "CMP_GE",
	OP_NOT:           "NOT",
	OP_JUMP:          "JUMP",
	OP_JUMP_IF_FALSE: "JUMP_IF_FALSE",
	OP_CALL_BUILTIN:  "CALL_BUILTIN",
	OP_CALL_FUNC:     "CALL_FUNC",
	OP_RETURN:        "RETURN",
	OP_BUILD_LIST:    "BUILD_LIST",
	OP_BUILD_DICT:    "BUILD_DICT",
	OP_LIST_GET:      "LIST_GET",
	OP_LIST_APPEND:   "LIST_APPEND",
	OP_INDEX_GET:     "INDEX_GET",
	OP_INDEX_SET:     "INDEX_SET",
	OP_INDEX_REMOVE:  "INDEX_REMOVE",
	OP_FORMAT_STRING: "FORMAT_STRING",
	OP_IMPORT:        "IMPORT",
	OP_SET_TRACE:     "SET_TRACE",
	OP_HALT:          "HALT",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return "UNKNOWN"
}
