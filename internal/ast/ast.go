// Package ast defines the syntax tree produced by the parser and consumed
// by the bytecode compiler.
package ast

// Node is the base interface for all AST nodes. Pos returns the 1-based
// source line the node starts on, or 0 when unknown.
type Node interface {
	Pos() int
}

// Statement is a Node that represents a statement.
type Statement interface {
	Node
	statementNode()
}

// Expression is a Node that represents an expression.
type Expression interface {
	Node
	expressionNode()
}

// Program is the root node of every parsed source unit.
type Program struct {
	Statements []Statement
}

func (p *Program) Pos() int {
	if len(p.Statements) > 0 {
		return p.Statements[0].Pos()
	}
	return 0
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// Assign is a typed assignment: name =i expr
type Assign struct {
	Name    string
	TypeTag string // "s", "i", "f", "b", "l", "d"
	Value   Expression
	Line    int
}

// IndexAssign writes through an index: name[key] = expr
type IndexAssign struct {
	Name  string
	Index Expression
	Value Expression
	Line  int
}

// Append appends to a sequence: name[] = expr
type Append struct {
	Name  string
	Value Expression
	Line  int
}

// Remove deletes an element: remove name[key]
type Remove struct {
	Name  string
	Index Expression
	Line  int
}

// ExpressionStatement is a standalone call whose result is discarded.
type ExpressionStatement struct {
	Expr Expression
	Line int
}

// If holds a then-block and an optional else branch. Else is either a
// *Block (plain else) or a nested *If (an "else if" chain).
type If struct {
	Condition Expression
	Then      *Block
	Else      Statement
	Line      int
}

// While runs Body while Condition holds. Else, when present, runs once
// when the loop exits via a false condition (not via stop).
type While struct {
	Condition Expression
	Body      *Block
	Else      *Block
	Line      int
}

// For iterates Var over the elements of Iterable. Else follows the same
// rule as While.
type For struct {
	Var      string
	Iterable Expression
	Body     *Block
	Else     *Block
	Line     int
}

// MatchCase is one "literal { block }" arm of a match statement.
type MatchCase struct {
	Literal Expression // literal expression only
	Body    *Block
}

type Match struct {
	Expr  Expression
	Cases []MatchCase
	Else  *Block
	Line  int
}

type Stop struct{ Line int }

type Continue struct{ Line int }

// Param is a single function parameter with its type tag and an optional
// literal default value.
type Param struct {
	Name    string
	TypeTag string
	Default Expression // nil when absent; must be a literal
}

type FuncDef struct {
	Name       string
	Params     []Param
	ReturnType string // "" when undeclared
	Body       *Block
	Line       int
}

type Return struct {
	Value Expression
	Line  int
}

type Import struct {
	Path  string
	Alias string // "" when unaliased
	Line  int
}

type Export struct {
	Name string
	Line int
}

type Trace struct {
	Enabled bool
	Line    int
}

type Block struct {
	Statements []Statement
	Line       int
}

func (s *Assign) statementNode()              {}
func (s *IndexAssign) statementNode()         {}
func (s *Append) statementNode()              {}
func (s *Remove) statementNode()              {}
func (s *ExpressionStatement) statementNode() {}
func (s *If) statementNode()                  {}
func (s *While) statementNode()               {}
func (s *For) statementNode()                 {}
func (s *Match) statementNode()               {}
func (s *Stop) statementNode()                {}
func (s *Continue) statementNode()            {}
func (s *FuncDef) statementNode()             {}
func (s *Return) statementNode()              {}
func (s *Import) statementNode()              {}
func (s *Export) statementNode()              {}
func (s *Trace) statementNode()               {}
func (s *Block) statementNode()               {}

func (s *Assign) Pos() int              { return s.Line }
func (s *IndexAssign) Pos() int         { return s.Line }
func (s *Append) Pos() int              { return s.Line }
func (s *Remove) Pos() int              { return s.Line }
func (s *ExpressionStatement) Pos() int { return s.Line }
func (s *If) Pos() int                  { return s.Line }
func (s *While) Pos() int               { return s.Line }
func (s *For) Pos() int                 { return s.Line }
func (s *Match) Pos() int               { return s.Line }
func (s *Stop) Pos() int                { return s.Line }
func (s *Continue) Pos() int            { return s.Line }
func (s *FuncDef) Pos() int             { return s.Line }
func (s *Return) Pos() int              { return s.Line }
func (s *Import) Pos() int              { return s.Line }
func (s *Export) Pos() int              { return s.Line }
func (s *Trace) Pos() int               { return s.Line }
func (s *Block) Pos() int               { return s.Line }

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

type IntLiteral struct {
	Value int64
	Line  int
}

type FloatLiteral struct {
	Value float64
	Line  int
}

type StringLiteral struct {
	Value string
	Line  int
}

type BoolLiteral struct {
	Value bool
	Line  int
}

type Ident struct {
	Name string
	Line int
}

type Binary struct {
	Left  Expression
	Op    string // "+", "-", "*", "/", "==", "!=", "<", "<=", ">", ">=", "and", "or"
	Right Expression
	Line  int
}

type Unary struct {
	Op   string // "not"
	Expr Expression
	Line int
}

// CompareChain represents a < b < c style chains:
// First (Ops[0]) Rest[0] (Ops[1]) Rest[1] ...
type CompareChain struct {
	First Expression
	Ops   []string
	Rest  []Expression
	Line  int
}

// Arg is one call argument; Name is "" for positional arguments.
type Arg struct {
	Name  string
	Value Expression
}

type Call struct {
	Name string
	Args []Arg
	Line int
}

// HasNamedArgs reports whether any argument is named.
func (c *Call) HasNamedArgs() bool {
	for _, a := range c.Args {
		if a.Name != "" {
			return true
		}
	}
	return false
}

type ListLiteral struct {
	Items []Expression
	Line  int
}

// DictPair is one "key": value entry; keys are string literals.
type DictPair struct {
	Key   *StringLiteral
	Value Expression
}

type DictLiteral struct {
	Pairs []DictPair
	Line  int
}

// Index reads name[key]; dispatches on the container type at run time.
type Index struct {
	Name string
	Key  Expression
	Line int
}

func (e *IntLiteral) expressionNode()    {}
func (e *FloatLiteral) expressionNode()  {}
func (e *StringLiteral) expressionNode() {}
func (e *BoolLiteral) expressionNode()   {}
func (e *Ident) expressionNode()         {}
func (e *Binary) expressionNode()        {}
func (e *Unary) expressionNode()         {}
func (e *CompareChain) expressionNode()  {}
func (e *Call) expressionNode()          {}
func (e *ListLiteral) expressionNode()   {}
func (e *DictLiteral) expressionNode()   {}
func (e *Index) expressionNode()         {}

func (e *IntLiteral) Pos() int    { return e.Line }
func (e *FloatLiteral) Pos() int  { return e.Line }
func (e *StringLiteral) Pos() int { return e.Line }
func (e *BoolLiteral) Pos() int   { return e.Line }
func (e *Ident) Pos() int         { return e.Line }
func (e *Binary) Pos() int        { return e.Line }
func (e *Unary) Pos() int         { return e.Line }
func (e *CompareChain) Pos() int  { return e.Line }
func (e *Call) Pos() int          { return e.Line }
func (e *ListLiteral) Pos() int   { return e.Line }
func (e *DictLiteral) Pos() int   { return e.Line }
func (e *Index) Pos() int         { return e.Line }

// IsLiteral reports whether e is a plain literal expression (the only
// expressions allowed as parameter defaults and match case labels).
func IsLiteral(e Expression) bool {
	switch e.(type) {
	case *IntLiteral, *FloatLiteral, *StringLiteral, *BoolLiteral:
		return true
	}
	return false
}
