// Package lexer turns Fallen source text into a stream of tokens.
//
// Newlines are significant (the parser uses them as statement separators),
// so they are emitted as real tokens rather than skipped.
package lexer

import (
	"unicode"
	"unicode/utf8"

	"github.com/fallen-lang/fallen/internal/token"
)

type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position (after current char)
	ch           rune // current char under examination
	line         int
	column       int
}

func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}

	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = l.readPosition
		l.readPosition++
		l.column++
		return
	}

	r, w := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.position = l.readPosition
	l.readPosition += w
	l.column++
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

// peekChar2 looks two characters ahead (used to disambiguate "=i" from "=input").
func (l *Lexer) peekChar2() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	_, w := utf8.DecodeRuneInString(l.input[l.readPosition:])
	if l.readPosition+w >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition+w:])
	return r
}

func (l *Lexer) NextToken() token.Token {
	l.skipSpaces()

	for l.ch == '#' {
		l.skipComment()
		l.skipSpaces()
	}

	line, col := l.line, l.column

	switch l.ch {
	case 0:
		return token.Token{Type: token.EOF, Line: line, Column: col}
	case '\n':
		l.readChar()
		return token.Token{Type: token.NEWLINE, Lexeme: "\n", Line: line, Column: col}
	case '=':
		return l.readAssignLike(line, col)
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return token.Token{Type: token.NOT_EQ, Lexeme: "!=", Line: line, Column: col}
		}
		lex := string(l.ch)
		l.readChar()
		return token.Token{Type: token.ILLEGAL, Lexeme: lex, Line: line, Column: col}
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return token.Token{Type: token.LTE, Lexeme: "<=", Line: line, Column: col}
		}
		l.readChar()
		return token.Token{Type: token.LT, Lexeme: "<", Line: line, Column: col}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return token.Token{Type: token.GTE, Lexeme: ">=", Line: line, Column: col}
		}
		l.readChar()
		return token.Token{Type: token.GT, Lexeme: ">", Line: line, Column: col}
	case '+':
		l.readChar()
		return token.Token{Type: token.PLUS, Lexeme: "+", Line: line, Column: col}
	case '-':
		l.readChar()
		return token.Token{Type: token.MINUS, Lexeme: "-", Line: line, Column: col}
	case '*':
		l.readChar()
		return token.Token{Type: token.STAR, Lexeme: "*", Line: line, Column: col}
	case '/':
		l.readChar()
		return token.Token{Type: token.SLASH, Lexeme: "/", Line: line, Column: col}
	case ',':
		l.readChar()
		return token.Token{Type: token.COMMA, Lexeme: ",", Line: line, Column: col}
	case ':':
		l.readChar()
		return token.Token{Type: token.COLON, Lexeme: ":", Line: line, Column: col}
	case '(':
		l.readChar()
		return token.Token{Type: token.LPAREN, Lexeme: "(", Line: line, Column: col}
	case ')':
		l.readChar()
		return token.Token{Type: token.RPAREN, Lexeme: ")", Line: line, Column: col}
	case '{':
		l.readChar()
		return token.Token{Type: token.LBRACE, Lexeme: "{", Line: line, Column: col}
	case '}':
		l.readChar()
		return token.Token{Type: token.RBRACE, Lexeme: "}", Line: line, Column: col}
	case '[':
		l.readChar()
		return token.Token{Type: token.LBRACKET, Lexeme: "[", Line: line, Column: col}
	case ']':
		l.readChar()
		return token.Token{Type: token.RBRACKET, Lexeme: "]", Line: line, Column: col}
	case '"', '\'':
		return l.readString(line, col)
	}

	if isIdentStart(l.ch) {
		return l.readIdentifier(line, col)
	}
	if unicode.IsDigit(l.ch) {
		return l.readNumber(line, col)
	}

	lex := string(l.ch)
	l.readChar()
	return token.Token{Type: token.ILLEGAL, Lexeme: lex, Line: line, Column: col}
}

// readAssignLike resolves '=' into ==, a typed marker (=s =i =f =b =l =d),
// or a plain assignment. A marker letter directly followed by another
// identifier character is not a marker ("=speed" lexes as '=' then "speed").
func (l *Lexer) readAssignLike(line, col int) token.Token {
	if l.peekChar() == '=' {
		l.readChar()
		l.readChar()
		return token.Token{Type: token.EQ, Lexeme: "==", Line: line, Column: col}
	}

	if t := markerType(l.peekChar()); t != token.ILLEGAL && !isIdentChar(l.peekChar2()) {
		l.readChar() // consume '='
		l.readChar() // consume marker letter
		return token.Token{Type: t, Lexeme: t.String(), Line: line, Column: col}
	}

	l.readChar()
	return token.Token{Type: token.ASSIGN, Lexeme: "=", Line: line, Column: col}
}

func markerType(ch rune) token.Type {
	switch ch {
	case 's':
		return token.TYPE_STRING
	case 'i':
		return token.TYPE_INT
	case 'f':
		return token.TYPE_FLOAT
	case 'b':
		return token.TYPE_BOOL
	case 'l':
		return token.TYPE_LIST
	case 'd':
		return token.TYPE_DICT
	}
	return token.ILLEGAL
}

func (l *Lexer) readIdentifier(line, col int) token.Token {
	start := l.position
	for isIdentChar(l.ch) {
		l.readChar()
	}
	lex := l.input[start:l.position]
	return token.Token{Type: token.LookupIdent(lex), Lexeme: lex, Line: line, Column: col}
}

func (l *Lexer) readNumber(line, col int) token.Token {
	start := l.position
	typ := token.INT
	for unicode.IsDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && unicode.IsDigit(l.peekChar()) {
		typ = token.FLOAT
		l.readChar()
		for unicode.IsDigit(l.ch) {
			l.readChar()
		}
	}
	return token.Token{Type: typ, Lexeme: l.input[start:l.position], Line: line, Column: col}
}

// readString scans a single- or double-quoted string. No escape sequences:
// the string runs to the matching quote on any line.
func (l *Lexer) readString(line, col int) token.Token {
	quote := l.ch
	l.readChar() // skip opening quote

	start := l.position
	for l.ch != quote && l.ch != 0 {
		l.readChar()
	}
	if l.ch != quote {
		return token.Token{Type: token.ILLEGAL, Lexeme: "unterminated string", Line: line, Column: col}
	}
	lex := l.input[start:l.position]
	l.readChar() // skip closing quote
	return token.Token{Type: token.STRING, Lexeme: lex, Line: line, Column: col}
}

func (l *Lexer) skipSpaces() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' {
		l.readChar()
	}
}

func (l *Lexer) skipComment() {
	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}
}

func isIdentStart(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}

func isIdentChar(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch) || unicode.IsDigit(ch)
}
