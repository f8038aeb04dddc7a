package vm

import (
	"fmt"

	"github.com/fallen-lang/fallen/internal/ast"
)

// Compiler lowers an ast.Program into a bytecode Program. A compiler is
// single-use: one Compile call per instance.
type Compiler struct {
	prog       *Program
	sourcePath string
	loopStack  []*loopFrame
	inFunction int
	tmpID      int
}

// loopFrame tracks the patch lists of the innermost enclosing loop.
type loopFrame struct {
	continueTarget int
	breakJumps     []int
	continueJumps  []int
}

// NewCompiler creates a compiler attributing debug info to sourcePath
// (may be empty for unnamed units).
func NewCompiler(sourcePath string) *Compiler {
	return &Compiler{prog: NewProgram(), sourcePath: sourcePath}
}

func (c *Compiler) errorf(node ast.Node, format string, args ...any) error {
	line := 0
	if node != nil {
		line = node.Pos()
	}
	return &CompileError{
		Message: fmt.Sprintf(format, args...),
		File:    c.sourcePath,
		Line:    line,
	}
}

func (c *Compiler) debugFor(node ast.Node) DebugInfo {
	dbg := DebugInfo{File: c.sourcePath}
	if node != nil {
		dbg.Line = node.Pos()
	}
	return dbg
}

func (c *Compiler) emit(ins Instruction, node ast.Node) int {
	return c.prog.Emit(ins, c.debugFor(node))
}

func (c *Compiler) newTmp(prefix string) string {
	name := fmt.Sprintf("%s_%d", prefix, c.tmpID)
	c.tmpID++
	return name
}

// Compile lowers the program:
//  1. a placeholder jump over the function bodies,
//  2. pass 1 collects every function signature,
//  3. pass 2 compiles the bodies in declaration order,
//  4. the placeholder is patched to the top-level entry point,
//  5. top-level statements are compiled,
//  6. explicit exports are validated against defined globals,
//  7. a final HALT.
func (c *Compiler) Compile(program *ast.Program) (*Program, error) {
	mainJump := c.emit(Instruction{Op: OP_JUMP, Operand: UnpatchedOperand}, program)

	for _, stmt := range program.Statements {
		fn, ok := stmt.(*ast.FuncDef)
		if !ok {
			continue
		}
		if err := c.registerFunction(fn); err != nil {
			return nil, err
		}
	}

	for _, stmt := range program.Statements {
		if fn, ok := stmt.(*ast.FuncDef); ok {
			if err := c.compileFuncDef(fn); err != nil {
				return nil, err
			}
		}
	}

	c.prog.Patch(mainJump, len(c.prog.Instructions))

	for _, stmt := range program.Statements {
		if _, ok := stmt.(*ast.FuncDef); ok {
			continue
		}
		if err := c.compileStmt(stmt); err != nil {
			return nil, err
		}
	}

	for name := range c.prog.Exports {
		if _, ok := c.prog.DefinedGlobals[name]; !ok {
			return nil, c.errorf(program, "exported name not defined in module: %s", name)
		}
	}

	c.emit(Instruction{Op: OP_HALT}, program)
	return c.prog, nil
}

func (c *Compiler) registerFunction(fn *ast.FuncDef) error {
	if IsBuiltin(fn.Name) {
		return c.errorf(fn, "cannot define %s(): the name belongs to a builtin", fn.Name)
	}
	if _, exists := c.prog.Functions[fn.Name]; exists {
		return c.errorf(fn, "function already defined: %s", fn.Name)
	}

	meta := &Function{
		Name:       fn.Name,
		Entry:      EntryUnset,
		Defaults:   make(map[string]Value),
		ReturnType: fn.ReturnType,
		File:       c.sourcePath,
	}
	seen := make(map[string]bool)
	for _, p := range fn.Params {
		if seen[p.Name] {
			return c.errorf(fn, "duplicate parameter %q in %s()", p.Name, fn.Name)
		}
		seen[p.Name] = true
		meta.Params = append(meta.Params, p.Name)
		if p.Default == nil {
			continue
		}
		if !ast.IsLiteral(p.Default) {
			return c.errorf(fn, "default value for parameter %q must be a literal", p.Name)
		}
		meta.Defaults[p.Name] = literalValue(p.Default)
	}

	c.prog.Functions[fn.Name] = meta
	c.prog.DefinedGlobals[fn.Name] = struct{}{}
	return nil
}

func (c *Compiler) compileFuncDef(fn *ast.FuncDef) error {
	meta := c.prog.Functions[fn.Name]
	if meta.Entry != EntryUnset {
		return c.errorf(fn, "function already compiled: %s", fn.Name)
	}
	meta.Entry = len(c.prog.Instructions)

	c.inFunction++
	err := c.compileBlock(fn.Body)
	c.inFunction--
	if err != nil {
		return err
	}

	// Implicit "return null" when control reaches the end of the body.
	nilIdx := c.prog.AddConstant(NilVal())
	c.emit(Instruction{Op: OP_LOAD_CONST, Operand: nilIdx}, fn)
	c.emit(Instruction{Op: OP_RETURN}, fn)
	return nil
}

func (c *Compiler) compileBlock(block *ast.Block) error {
	for _, stmt := range block.Statements {
		if err := c.compileStmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) compileStmt(stmt ast.Statement) error {
	switch s := stmt.(type) {
	case *ast.Import:
		idx := c.prog.AddConstant(TextVal(s.Path))
		c.emit(Instruction{Op: OP_LOAD_CONST, Operand: idx}, s)
		c.emit(Instruction{Op: OP_IMPORT, Name: s.Alias}, s)
		return nil

	case *ast.Export:
		// Metadata only, no runtime behavior.
		if c.inFunction != 0 {
			return c.errorf(s, "export is only allowed at top level")
		}
		c.prog.Exports[s.Name] = struct{}{}
		return nil

	case *ast.Trace:
		c.emit(Instruction{Op: OP_SET_TRACE, Flag: s.Enabled}, s)
		return nil

	case *ast.Assign:
		if err := c.compileExpr(s.Value); err != nil {
			return err
		}
		c.emit(Instruction{Op: OP_STORE_NAME, Name: s.Name}, s)
		if c.inFunction == 0 {
			c.prog.DefinedGlobals[s.Name] = struct{}{}
		}
		return nil

	case *ast.Return:
		if c.inFunction == 0 {
			return c.errorf(s, "return used outside of a function")
		}
		if s.Value == nil {
			idx := c.prog.AddConstant(NilVal())
			c.emit(Instruction{Op: OP_LOAD_CONST, Operand: idx}, s)
		} else if err := c.compileExpr(s.Value); err != nil {
			return err
		}
		c.emit(Instruction{Op: OP_RETURN}, s)
		return nil

	case *ast.FuncDef:
		// Bodies are compiled in pass 2; nothing to do here.
		return nil

	case *ast.If:
		return c.compileIf(s)

	case *ast.While:
		return c.compileWhile(s)

	case *ast.For:
		return c.compileFor(s)

	case *ast.Match:
		return c.compileMatch(s)

	case *ast.IndexAssign:
		c.emit(Instruction{Op: OP_LOAD_NAME, Name: s.Name}, s)
		if err := c.compileExpr(s.Index); err != nil {
			return err
		}
		if err := c.compileExpr(s.Value); err != nil {
			return err
		}
		c.emit(Instruction{Op: OP_INDEX_SET}, s)
		return nil

	case *ast.Append:
		c.emit(Instruction{Op: OP_LOAD_NAME, Name: s.Name}, s)
		if err := c.compileExpr(s.Value); err != nil {
			return err
		}
		c.emit(Instruction{Op: OP_LIST_APPEND}, s)
		return nil

	case *ast.Remove:
		c.emit(Instruction{Op: OP_LOAD_NAME, Name: s.Name}, s)
		if err := c.compileExpr(s.Index); err != nil {
			return err
		}
		c.emit(Instruction{Op: OP_INDEX_REMOVE}, s)
		return nil

	case *ast.ExpressionStatement:
		call, ok := s.Expr.(*ast.Call)
		if !ok {
			return c.errorf(s, "expression is not allowed as a statement")
		}
		if err := c.compileCall(call); err != nil {
			return err
		}
		// Every call pushes a result; standalone calls discard it.
		c.emit(Instruction{Op: OP_POP}, s)
		return nil

	case *ast.Stop:
		return c.compileStop(s)

	case *ast.Continue:
		return c.compileContinue(s)
	}

	return c.errorf(stmt, "unknown statement node %T", stmt)
}

func (c *Compiler) compileIf(s *ast.If) error {
	if err := c.compileExpr(s.Condition); err != nil {
		return err
	}
	jmpFalse := c.emit(Instruction{Op: OP_JUMP_IF_FALSE, Operand: UnpatchedOperand}, s)

	if err := c.compileBlock(s.Then); err != nil {
		return err
	}
	jmpEnd := c.emit(Instruction{Op: OP_JUMP, Operand: UnpatchedOperand}, s)

	c.prog.Patch(jmpFalse, len(c.prog.Instructions))

	if s.Else != nil {
		// Either a plain else block or a nested if (else-if chain).
		switch e := s.Else.(type) {
		case *ast.Block:
			if err := c.compileBlock(e); err != nil {
				return err
			}
		default:
			if err := c.compileStmt(e); err != nil {
				return err
			}
		}
	}

	c.prog.Patch(jmpEnd, len(c.prog.Instructions))
	return nil
}

// literalValue converts a literal AST expression into a constant Value.
// Callers gate on ast.IsLiteral first.
func literalValue(e ast.Expression) Value {
	switch lit := e.(type) {
	case *ast.IntLiteral:
		return IntVal(lit.Value)
	case *ast.FloatLiteral:
		return FloatVal(lit.Value)
	case *ast.StringLiteral:
		return TextVal(lit.Value)
	case *ast.BoolLiteral:
		return BoolVal(lit.Value)
	}
	return NilVal()
}
