package lexer

import (
	"testing"

	"github.com/fallen-lang/fallen/internal/token"
)

func collect(t *testing.T, input string) []token.Token {
	t.Helper()
	l := New(input)
	var toks []token.Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			return toks
		}
		if len(toks) > 1000 {
			t.Fatal("lexer did not reach EOF")
		}
	}
}

func TestTypedAssignmentMarkers(t *testing.T) {
	tests := []struct {
		input string
		want  []token.Type
	}{
		{`x =i 5`, []token.Type{token.IDENT, token.TYPE_INT, token.INT, token.EOF}},
		{`name =s "bob"`, []token.Type{token.IDENT, token.TYPE_STRING, token.STRING, token.EOF}},
		{`r =f 1.5`, []token.Type{token.IDENT, token.TYPE_FLOAT, token.FLOAT, token.EOF}},
		{`ok =b true`, []token.Type{token.IDENT, token.TYPE_BOOL, token.TRUE, token.EOF}},
		{`xs =l [1]`, []token.Type{token.IDENT, token.TYPE_LIST, token.LBRACKET, token.INT, token.RBRACKET, token.EOF}},
		{`m =d {}`, []token.Type{token.IDENT, token.TYPE_DICT, token.LBRACE, token.RBRACE, token.EOF}},
		// '==' must win over '=' + marker letter
		{`a == b`, []token.Type{token.IDENT, token.EQ, token.IDENT, token.EOF}},
		// '=speed' is an assignment followed by an identifier, not '=s' + "peed"
		{`xs[0] =speed`, []token.Type{token.IDENT, token.LBRACKET, token.INT, token.RBRACKET, token.ASSIGN, token.IDENT, token.EOF}},
		{`xs[] = 5`, []token.Type{token.IDENT, token.LBRACKET, token.RBRACKET, token.ASSIGN, token.INT, token.EOF}},
	}

	for _, tt := range tests {
		toks := collect(t, tt.input)
		if len(toks) != len(tt.want) {
			t.Errorf("%q: got %d tokens, want %d (%v)", tt.input, len(toks), len(tt.want), toks)
			continue
		}
		for i, w := range tt.want {
			if toks[i].Type != w {
				t.Errorf("%q: token %d = %v, want %v", tt.input, i, toks[i].Type, w)
			}
		}
	}
}

func TestKeywordsAndOperators(t *testing.T) {
	input := "if else while for in match func return import as export trace and or not stop continue remove\n" +
		"!= < <= > >= + - * / , : ( ) { } [ ]"
	want := []token.Type{
		token.IF, token.ELSE, token.WHILE, token.FOR, token.IN, token.MATCH,
		token.FUNC, token.RETURN, token.IMPORT, token.AS, token.EXPORT,
		token.TRACE, token.AND, token.OR, token.NOT, token.STOP, token.CONTINUE,
		token.REMOVE, token.NEWLINE,
		token.NOT_EQ, token.LT, token.LTE, token.GT, token.GTE,
		token.PLUS, token.MINUS, token.STAR, token.SLASH,
		token.COMMA, token.COLON, token.LPAREN, token.RPAREN,
		token.LBRACE, token.RBRACE, token.LBRACKET, token.RBRACKET,
		token.EOF,
	}

	toks := collect(t, input)
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	for i, w := range want {
		if toks[i].Type != w {
			t.Errorf("token %d = %v, want %v", i, toks[i].Type, w)
		}
	}
}

func TestCommentsAndNewlines(t *testing.T) {
	input := "x =i 1 # trailing comment\n# full line\ny =i 2"
	want := []token.Type{
		token.IDENT, token.TYPE_INT, token.INT, token.NEWLINE,
		token.NEWLINE,
		token.IDENT, token.TYPE_INT, token.INT, token.EOF,
	}
	toks := collect(t, input)
	if len(toks) != len(want) {
		t.Fatalf("got %v", toks)
	}
	for i, w := range want {
		if toks[i].Type != w {
			t.Errorf("token %d = %v, want %v", i, toks[i].Type, w)
		}
	}
}

func TestStringLiterals(t *testing.T) {
	toks := collect(t, `a =s 'single' `+"\n"+`b =s "double"`)
	if toks[2].Type != token.STRING || toks[2].Lexeme != "single" {
		t.Errorf("single-quoted: got %v %q", toks[2].Type, toks[2].Lexeme)
	}
	if toks[6].Type != token.STRING || toks[6].Lexeme != "double" {
		t.Errorf("double-quoted: got %v %q", toks[6].Type, toks[6].Lexeme)
	}

	bad := collect(t, `x =s "unclosed`)
	last := bad[len(bad)-2]
	if last.Type != token.ILLEGAL {
		t.Errorf("unterminated string: got %v, want ILLEGAL", last.Type)
	}
}

func TestPositions(t *testing.T) {
	toks := collect(t, "x =i 1\ny =i 2")
	if toks[0].Line != 1 || toks[0].Column != 1 {
		t.Errorf("x at %d:%d, want 1:1", toks[0].Line, toks[0].Column)
	}
	// y is the first token on line 2
	if toks[4].Lexeme != "y" || toks[4].Line != 2 || toks[4].Column != 1 {
		t.Errorf("y token = %+v, want line 2 column 1", toks[4])
	}
}

func TestNumbers(t *testing.T) {
	toks := collect(t, "1 42 3.14 10.0")
	wantTypes := []token.Type{token.INT, token.INT, token.FLOAT, token.FLOAT, token.EOF}
	wantLex := []string{"1", "42", "3.14", "10.0", ""}
	for i, w := range wantTypes {
		if toks[i].Type != w || toks[i].Lexeme != wantLex[i] {
			t.Errorf("token %d = %v %q, want %v %q", i, toks[i].Type, toks[i].Lexeme, w, wantLex[i])
		}
	}
}
