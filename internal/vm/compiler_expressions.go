package vm

import (
	"strings"

	"github.com/fallen-lang/fallen/internal/ast"
)

// builtinSpec is the compile-time arity contract of one builtin.
type builtinSpec struct {
	minArgs int
	maxArgs int
}

// builtins maps builtin names to their arity. Named arguments are not
// supported on builtins.
var builtins = map[string]builtinSpec{
	"write": {1, 2},
	"enter": {1, 1},
	"args":  {0, 0},

	"conv_int":       {1, 1},
	"conv_float":     {1, 1},
	"conv_str":       {1, 1},
	"conv_bool":      {1, 1},
	"try_conv_int":   {1, 1},
	"try_conv_float": {1, 1},
	"try_conv_bool":  {1, 1},

	"amount":  {1, 1},
	"del":     {1, 1},
	"upper":   {1, 1},
	"lower":   {1, 1},
	"split":   {2, 2},
	"join":    {2, 2},
	"replace": {3, 3},
	"insert":  {3, 3},

	"save":   {2, 2},
	"append": {2, 2},
	"change": {2, 2},
	"load":   {1, 1},
	"read":   {1, 1},
}

// IsBuiltin reports whether name is a builtin function.
func IsBuiltin(name string) bool {
	_, ok := builtins[name]
	return ok
}

var binaryOps = map[string]Opcode{
	"+":  OP_ADD,
	"-":  OP_SUB,
	"*":  OP_MUL,
	"/":  OP_DIV,
	"==": OP_CMP_EQ,
	"!=": OP_CMP_NE,
	"<":  OP_CMP_LT,
	"<=": OP_CMP_LE,
	">":  OP_CMP_GT,
	">=": OP_CMP_GE,
}

func (c *Compiler) compileExpr(expr ast.Expression) error {
	switch e := expr.(type) {
	case *ast.IntLiteral:
		idx := c.prog.AddConstant(IntVal(e.Value))
		c.emit(Instruction{Op: OP_LOAD_CONST, Operand: idx}, e)
		return nil

	case *ast.FloatLiteral:
		idx := c.prog.AddConstant(FloatVal(e.Value))
		c.emit(Instruction{Op: OP_LOAD_CONST, Operand: idx}, e)
		return nil

	case *ast.BoolLiteral:
		idx := c.prog.AddConstant(BoolVal(e.Value))
		c.emit(Instruction{Op: OP_LOAD_CONST, Operand: idx}, e)
		return nil

	case *ast.StringLiteral:
		idx := c.prog.AddConstant(TextVal(e.Value))
		c.emit(Instruction{Op: OP_LOAD_CONST, Operand: idx}, e)
		// Strings with braces go through placeholder expansion at run
		// time; plain strings are loaded as-is.
		if strings.ContainsAny(e.Value, "{}") {
			c.emit(Instruction{Op: OP_FORMAT_STRING}, e)
		}
		return nil

	case *ast.Ident:
		c.emit(Instruction{Op: OP_LOAD_NAME, Name: e.Name}, e)
		return nil

	case *ast.Index:
		c.emit(Instruction{Op: OP_LOAD_NAME, Name: e.Name}, e)
		if err := c.compileExpr(e.Key); err != nil {
			return err
		}
		c.emit(Instruction{Op: OP_INDEX_GET}, e)
		return nil

	case *ast.ListLiteral:
		for _, item := range e.Items {
			if err := c.compileExpr(item); err != nil {
				return err
			}
		}
		c.emit(Instruction{Op: OP_BUILD_LIST, Argc: len(e.Items)}, e)
		return nil

	case *ast.DictLiteral:
		for _, pair := range e.Pairs {
			// Keys load as raw constants, exempt from format expansion.
			idx := c.prog.AddConstant(TextVal(pair.Key.Value))
			c.emit(Instruction{Op: OP_LOAD_CONST, Operand: idx}, pair.Key)
			if err := c.compileExpr(pair.Value); err != nil {
				return err
			}
		}
		c.emit(Instruction{Op: OP_BUILD_DICT, Argc: len(e.Pairs)}, e)
		return nil

	case *ast.Unary:
		if e.Op != "not" {
			return c.errorf(e, "unknown unary operator %q", e.Op)
		}
		if err := c.compileExpr(e.Expr); err != nil {
			return err
		}
		c.emit(Instruction{Op: OP_NOT}, e)
		return nil

	case *ast.Binary:
		switch e.Op {
		case "and":
			return c.compileAnd(e)
		case "or":
			return c.compileOr(e)
		}
		op, ok := binaryOps[e.Op]
		if !ok {
			return c.errorf(e, "unknown binary operator %q", e.Op)
		}
		if err := c.compileExpr(e.Left); err != nil {
			return err
		}
		if err := c.compileExpr(e.Right); err != nil {
			return err
		}
		c.emit(Instruction{Op: op}, e)
		return nil

	case *ast.CompareChain:
		return c.compileCompareChain(e)

	case *ast.Call:
		return c.compileCall(e)
	}

	return c.errorf(expr, "unknown expression node %T", expr)
}

// compileAnd lowers "a and b" with short-circuit: when a is false its
// value is the result and b never evaluates.
func (c *Compiler) compileAnd(e *ast.Binary) error {
	if err := c.compileExpr(e.Left); err != nil {
		return err
	}
	c.emit(Instruction{Op: OP_DUP}, e)
	skip := c.emit(Instruction{Op: OP_JUMP_IF_FALSE, Operand: UnpatchedOperand}, e)
	c.emit(Instruction{Op: OP_POP}, e)
	if err := c.compileExpr(e.Right); err != nil {
		return err
	}
	c.prog.Patch(skip, len(c.prog.Instructions))
	return nil
}

// compileOr lowers "a or b": when a is true its value is the result.
func (c *Compiler) compileOr(e *ast.Binary) error {
	if err := c.compileExpr(e.Left); err != nil {
		return err
	}
	c.emit(Instruction{Op: OP_DUP}, e)
	c.emit(Instruction{Op: OP_NOT}, e)
	skip := c.emit(Instruction{Op: OP_JUMP_IF_FALSE, Operand: UnpatchedOperand}, e)
	c.emit(Instruction{Op: OP_POP}, e)
	if err := c.compileExpr(e.Right); err != nil {
		return err
	}
	c.prog.Patch(skip, len(c.prog.Instructions))
	return nil
}

// compileCompareChain lowers "a < b < c" so each operand evaluates at
// most once and the chain short-circuits on the first false link.
func (c *Compiler) compileCompareChain(e *ast.CompareChain) error {
	leftName := c.newTmp("__cmp_left")
	rightName := c.newTmp("__cmp_right")

	if err := c.compileExpr(e.First); err != nil {
		return err
	}
	c.emit(Instruction{Op: OP_STORE_NAME, Name: leftName}, e)

	var failJumps []int
	for i, op := range e.Ops {
		opcode, ok := binaryOps[op]
		if !ok {
			return c.errorf(e, "unknown comparison operator %q", op)
		}

		if err := c.compileExpr(e.Rest[i]); err != nil {
			return err
		}
		c.emit(Instruction{Op: OP_STORE_NAME, Name: rightName}, e)

		c.emit(Instruction{Op: OP_LOAD_NAME, Name: leftName}, e)
		c.emit(Instruction{Op: OP_LOAD_NAME, Name: rightName}, e)
		c.emit(Instruction{Op: opcode}, e)

		if i < len(e.Ops)-1 {
			c.emit(Instruction{Op: OP_DUP}, e)
			failJumps = append(failJumps, c.emit(Instruction{Op: OP_JUMP_IF_FALSE, Operand: UnpatchedOperand}, e))
			c.emit(Instruction{Op: OP_POP}, e)
			// The right operand becomes the left side of the next link.
			c.emit(Instruction{Op: OP_LOAD_NAME, Name: rightName}, e)
			c.emit(Instruction{Op: OP_STORE_NAME, Name: leftName}, e)
		}
	}

	end := len(c.prog.Instructions)
	for _, j := range failJumps {
		c.prog.Patch(j, end)
	}
	return nil
}

// compileCall compiles a builtin or user function call. Arguments are
// pushed left to right; named-argument binding happens at run time via
// the instruction's ArgNames.
func (c *Compiler) compileCall(e *ast.Call) error {
	sawNamed := false
	for _, arg := range e.Args {
		if arg.Name != "" {
			sawNamed = true
		} else if sawNamed {
			return c.errorf(e, "positional argument after named argument in call to %s()", e.Name)
		}
	}

	for _, arg := range e.Args {
		if err := c.compileExpr(arg.Value); err != nil {
			return err
		}
	}

	if spec, ok := builtins[e.Name]; ok {
		if e.HasNamedArgs() {
			return c.errorf(e, "builtin %s() does not accept named arguments", e.Name)
		}
		n := len(e.Args)
		if n < spec.minArgs || n > spec.maxArgs {
			if spec.minArgs == spec.maxArgs {
				return c.errorf(e, "%s() must have exactly %d argument(s), got %d", e.Name, spec.minArgs, n)
			}
			return c.errorf(e, "%s() expects %d to %d arguments, got %d", e.Name, spec.minArgs, spec.maxArgs, n)
		}
		c.emit(Instruction{Op: OP_CALL_BUILTIN, Name: e.Name, Argc: n}, e)
		return nil
	}

	// Signatures are registered before bodies compile, so calls to
	// functions from the same source unit can be arity-checked here.
	// Calls into imported modules resolve at run time instead.
	if fn, ok := c.prog.Functions[e.Name]; ok && len(e.Args) > len(fn.Params) {
		return c.errorf(e, "%s() takes at most %d argument(s), got %d", e.Name, len(fn.Params), len(e.Args))
	}

	ins := Instruction{Op: OP_CALL_FUNC, Name: e.Name, Argc: len(e.Args)}
	if e.HasNamedArgs() {
		ins.ArgNames = make([]string, len(e.Args))
		for i, arg := range e.Args {
			ins.ArgNames[i] = arg.Name
		}
	}
	c.emit(ins, e)
	return nil
}
