package vm

import "github.com/fallen-lang/fallen/internal/ast"

// compileWhile lowers a while loop with an optional else block. The else
// block runs only when the condition goes false; stop skips past it.
func (c *Compiler) compileWhile(s *ast.While) error {
	loopStart := len(c.prog.Instructions)
	frame := &loopFrame{continueTarget: loopStart}
	c.loopStack = append(c.loopStack, frame)
	defer func() { c.loopStack = c.loopStack[:len(c.loopStack)-1] }()

	if err := c.compileExpr(s.Condition); err != nil {
		return err
	}
	exitJump := c.emit(Instruction{Op: OP_JUMP_IF_FALSE, Operand: UnpatchedOperand}, s)

	if err := c.compileBlock(s.Body); err != nil {
		return err
	}
	c.emit(Instruction{Op: OP_JUMP, Operand: loopStart}, s)

	// Natural exit lands on the else block (if any), stop lands after it.
	c.prog.Patch(exitJump, len(c.prog.Instructions))
	if s.Else != nil {
		if err := c.compileBlock(s.Else); err != nil {
			return err
		}
	}

	loopEnd := len(c.prog.Instructions)
	for _, j := range frame.breakJumps {
		c.prog.Patch(j, loopEnd)
	}
	for _, j := range frame.continueJumps {
		c.prog.Patch(j, frame.continueTarget)
	}
	return nil
}

// compileFor lowers "for x in seq" into an index-driven loop over hidden
// temporaries. continue jumps to the increment step, not the test.
func (c *Compiler) compileFor(s *ast.For) error {
	iterName := c.newTmp("__for_iter")
	idxName := c.newTmp("__for_i")

	if err := c.compileExpr(s.Iterable); err != nil {
		return err
	}
	c.emit(Instruction{Op: OP_STORE_NAME, Name: iterName}, s)

	zeroIdx := c.prog.AddConstant(IntVal(0))
	c.emit(Instruction{Op: OP_LOAD_CONST, Operand: zeroIdx}, s)
	c.emit(Instruction{Op: OP_STORE_NAME, Name: idxName}, s)

	frame := &loopFrame{continueTarget: -1}
	c.loopStack = append(c.loopStack, frame)
	defer func() { c.loopStack = c.loopStack[:len(c.loopStack)-1] }()

	// Test: __for_i < amount(__for_iter)
	loopStart := len(c.prog.Instructions)
	c.emit(Instruction{Op: OP_LOAD_NAME, Name: idxName}, s)
	c.emit(Instruction{Op: OP_LOAD_NAME, Name: iterName}, s)
	c.emit(Instruction{Op: OP_CALL_BUILTIN, Name: "amount", Argc: 1}, s)
	c.emit(Instruction{Op: OP_CMP_LT}, s)
	exitJump := c.emit(Instruction{Op: OP_JUMP_IF_FALSE, Operand: UnpatchedOperand}, s)

	// Bind the loop variable before the body runs.
	c.emit(Instruction{Op: OP_LOAD_NAME, Name: iterName}, s)
	c.emit(Instruction{Op: OP_LOAD_NAME, Name: idxName}, s)
	c.emit(Instruction{Op: OP_LIST_GET}, s)
	c.emit(Instruction{Op: OP_STORE_NAME, Name: s.Var}, s)

	if err := c.compileBlock(s.Body); err != nil {
		return err
	}

	// Increment: __for_i = __for_i + 1
	incr := len(c.prog.Instructions)
	frame.continueTarget = incr
	oneIdx := c.prog.AddConstant(IntVal(1))
	c.emit(Instruction{Op: OP_LOAD_NAME, Name: idxName}, s)
	c.emit(Instruction{Op: OP_LOAD_CONST, Operand: oneIdx}, s)
	c.emit(Instruction{Op: OP_ADD}, s)
	c.emit(Instruction{Op: OP_STORE_NAME, Name: idxName}, s)
	c.emit(Instruction{Op: OP_JUMP, Operand: loopStart}, s)

	c.prog.Patch(exitJump, len(c.prog.Instructions))
	if s.Else != nil {
		if err := c.compileBlock(s.Else); err != nil {
			return err
		}
	}

	loopEnd := len(c.prog.Instructions)
	for _, j := range frame.breakJumps {
		c.prog.Patch(j, loopEnd)
	}
	for _, j := range frame.continueJumps {
		c.prog.Patch(j, frame.continueTarget)
	}
	return nil
}

// compileMatch lowers a match into an equality chain against a hidden
// temporary holding the scrutinee.
func (c *Compiler) compileMatch(s *ast.Match) error {
	tmpName := c.newTmp("__match_tmp")

	if err := c.compileExpr(s.Expr); err != nil {
		return err
	}
	c.emit(Instruction{Op: OP_STORE_NAME, Name: tmpName}, s)

	var endJumps []int
	for _, cs := range s.Cases {
		if !ast.IsLiteral(cs.Literal) {
			return c.errorf(cs.Literal, "match case must be a literal")
		}
		c.emit(Instruction{Op: OP_LOAD_NAME, Name: tmpName}, cs.Literal)
		idx := c.prog.AddConstant(literalValue(cs.Literal))
		c.emit(Instruction{Op: OP_LOAD_CONST, Operand: idx}, cs.Literal)
		c.emit(Instruction{Op: OP_CMP_EQ}, cs.Literal)
		nextCase := c.emit(Instruction{Op: OP_JUMP_IF_FALSE, Operand: UnpatchedOperand}, cs.Literal)

		if err := c.compileBlock(cs.Body); err != nil {
			return err
		}
		endJumps = append(endJumps, c.emit(Instruction{Op: OP_JUMP, Operand: UnpatchedOperand}, cs.Literal))

		c.prog.Patch(nextCase, len(c.prog.Instructions))
	}

	if s.Else != nil {
		if err := c.compileBlock(s.Else); err != nil {
			return err
		}
	}

	end := len(c.prog.Instructions)
	for _, j := range endJumps {
		c.prog.Patch(j, end)
	}
	return nil
}

func (c *Compiler) compileStop(s *ast.Stop) error {
	if len(c.loopStack) == 0 {
		return c.errorf(s, "stop used outside of a loop")
	}
	frame := c.loopStack[len(c.loopStack)-1]
	j := c.emit(Instruction{Op: OP_JUMP, Operand: UnpatchedOperand}, s)
	frame.breakJumps = append(frame.breakJumps, j)
	return nil
}

func (c *Compiler) compileContinue(s *ast.Continue) error {
	if len(c.loopStack) == 0 {
		return c.errorf(s, "continue used outside of a loop")
	}
	frame := c.loopStack[len(c.loopStack)-1]
	j := c.emit(Instruction{Op: OP_JUMP, Operand: UnpatchedOperand}, s)
	frame.continueJumps = append(frame.continueJumps, j)
	return nil
}
