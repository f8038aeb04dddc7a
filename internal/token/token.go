// Package token defines the lexical tokens of the Fallen language.
package token

type Type int

const (
	ILLEGAL Type = iota
	EOF
	NEWLINE

	// Identifiers and literals
	IDENT
	INT
	FLOAT
	STRING

	// Keywords
	IF
	ELSE
	WHILE
	FOR
	IN
	MATCH
	FUNC
	RETURN
	IMPORT
	AS
	EXPORT
	TRACE
	AND
	OR
	NOT
	TRUE
	FALSE
	STOP
	CONTINUE
	REMOVE

	// Typed-assignment markers: =s =i =f =b =l =d
	TYPE_STRING
	TYPE_INT
	TYPE_FLOAT
	TYPE_BOOL
	TYPE_LIST
	TYPE_DICT

	// Operators
	ASSIGN // plain '=' (index assignment, append)
	EQ
	NOT_EQ
	LT
	LTE
	GT
	GTE
	PLUS
	MINUS
	STAR
	SLASH

	// Delimiters
	COMMA
	COLON
	LPAREN
	RPAREN
	LBRACE
	RBRACE
	LBRACKET
	RBRACKET
)

// Token is a single lexical unit with its source position (1-based line,
// 1-based column of the first character).
type Token struct {
	Type   Type
	Lexeme string
	Line   int
	Column int
}

var names = map[Type]string{
	ILLEGAL:     "ILLEGAL",
	EOF:         "EOF",
	NEWLINE:     "NEWLINE",
	IDENT:       "IDENT",
	INT:         "INT",
	FLOAT:       "FLOAT",
	STRING:      "STRING",
	IF:          "if",
	ELSE:        "else",
	WHILE:       "while",
	FOR:         "for",
	IN:          "in",
	MATCH:       "match",
	FUNC:        "func",
	RETURN:      "return",
	IMPORT:      "import",
	AS:          "as",
	EXPORT:      "export",
	TRACE:       "trace",
	AND:         "and",
	OR:          "or",
	NOT:         "not",
	TRUE:        "true",
	FALSE:       "false",
	STOP:        "stop",
	CONTINUE:    "continue",
	REMOVE:      "remove",
	TYPE_STRING: "=s",
	TYPE_INT:    "=i",
	TYPE_FLOAT:  "=f",
	TYPE_BOOL:   "=b",
	TYPE_LIST:   "=l",
	TYPE_DICT:   "=d",
	ASSIGN:      "=",
	EQ:          "==",
	NOT_EQ:      "!=",
	LT:          "<",
	LTE:         "<=",
	GT:          ">",
	GTE:         ">=",
	PLUS:        "+",
	MINUS:       "-",
	STAR:        "*",
	SLASH:       "/",
	COMMA:       ",",
	COLON:       ":",
	LPAREN:      "(",
	RPAREN:      ")",
	LBRACE:      "{",
	RBRACE:      "}",
	LBRACKET:    "[",
	RBRACKET:    "]",
}

func (t Type) String() string {
	if s, ok := names[t]; ok {
		return s
	}
	return "UNKNOWN"
}

var keywords = map[string]Type{
	"if":       IF,
	"else":     ELSE,
	"while":    WHILE,
	"for":      FOR,
	"in":       IN,
	"match":    MATCH,
	"func":     FUNC,
	"return":   RETURN,
	"import":   IMPORT,
	"as":       AS,
	"export":   EXPORT,
	"trace":    TRACE,
	"and":      AND,
	"or":       OR,
	"not":      NOT,
	"true":     TRUE,
	"false":    FALSE,
	"stop":     STOP,
	"continue": CONTINUE,
	"remove":   REMOVE,
}

// LookupIdent returns the keyword type for ident, or IDENT.
func LookupIdent(ident string) Type {
	if t, ok := keywords[ident]; ok {
		return t
	}
	return IDENT
}

// IsTypeMarker reports whether t is one of the =x typed-assignment markers.
func (t Type) IsTypeMarker() bool {
	switch t {
	case TYPE_STRING, TYPE_INT, TYPE_FLOAT, TYPE_BOOL, TYPE_LIST, TYPE_DICT:
		return true
	}
	return false
}

// TypeTag returns the single-letter tag ("s", "i", ...) for a type marker.
func (t Type) TypeTag() string {
	switch t {
	case TYPE_STRING:
		return "s"
	case TYPE_INT:
		return "i"
	case TYPE_FLOAT:
		return "f"
	case TYPE_BOOL:
		return "b"
	case TYPE_LIST:
		return "l"
	case TYPE_DICT:
		return "d"
	}
	return ""
}
