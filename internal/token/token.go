// Package token defines the lexical token kinds and the Token type shared
// by the lexer and parser.
//
// Grounded on hhramberg-go-vslc/src/frontend/lexer.go's item/itemType
// split, generalized from VSL's handful of keywords to the fuller C-family
// keyword and punctuator set spec.md §4.1 calls for, and on falcon's
// ast/lexer.go token kind table for the punctuator longest-match set.
package token

import "fmt"

// Kind differentiates tokens.
type Kind int

const (
	EOF Kind = iota
	ERROR

	IDENT
	INT_LIT
	FLOAT_LIT
	STRING_LIT
	CHAR_LIT

	// Keywords.
	KW_VOID
	KW_BOOL
	KW_CHAR
	KW_SHORT
	KW_INT
	KW_LONG
	KW_UNSIGNED
	KW_SIGNED
	KW_FLOAT
	KW_DOUBLE
	KW_STRUCT
	KW_UNION
	KW_ENUM
	KW_TYPEDEF
	KW_STATIC
	KW_EXTERN
	KW_CONST
	KW_SIZEOF
	KW_IF
	KW_ELSE
	KW_WHILE
	KW_DO
	KW_FOR
	KW_BREAK
	KW_CONTINUE
	KW_RETURN
	KW_SWITCH
	KW_CASE
	KW_DEFAULT
	KW_GOTO
	KW_ASM

	// Punctuators, longest match first within a given leading byte.
	LPAREN
	RPAREN
	LBRACE
	RBRACE
	LBRACKET
	RBRACKET
	SEMI
	COMMA
	COLON
	QUESTION
	DOT
	ARROW
	ELLIPSIS

	ASSIGN
	ADD_ASSIGN
	SUB_ASSIGN
	MUL_ASSIGN
	DIV_ASSIGN
	MOD_ASSIGN
	AND_ASSIGN
	OR_ASSIGN
	XOR_ASSIGN
	SHL_ASSIGN
	SHR_ASSIGN

	PLUS
	MINUS
	STAR
	SLASH
	PERCENT
	INC
	DEC

	EQ
	NEQ
	LT
	LE
	GT
	GE

	LOGAND
	LOGOR
	NOT

	AMP
	PIPE
	CARET
	TILDE
	SHL
	SHR
)

var names = map[Kind]string{
	EOF: "EOF", ERROR: "ERROR", IDENT: "IDENT", INT_LIT: "INT_LIT",
	FLOAT_LIT: "FLOAT_LIT", STRING_LIT: "STRING_LIT", CHAR_LIT: "CHAR_LIT",
	KW_VOID: "void", KW_BOOL: "bool", KW_CHAR: "char", KW_SHORT: "short",
	KW_INT: "int", KW_LONG: "long", KW_UNSIGNED: "unsigned", KW_SIGNED: "signed",
	KW_FLOAT: "float", KW_DOUBLE: "double", KW_STRUCT: "struct", KW_UNION: "union",
	KW_ENUM: "enum", KW_TYPEDEF: "typedef", KW_STATIC: "static", KW_EXTERN: "extern",
	KW_CONST: "const", KW_SIZEOF: "sizeof", KW_IF: "if", KW_ELSE: "else",
	KW_WHILE: "while", KW_DO: "do", KW_FOR: "for", KW_BREAK: "break",
	KW_CONTINUE: "continue", KW_RETURN: "return", KW_SWITCH: "switch",
	KW_CASE: "case", KW_DEFAULT: "default", KW_GOTO: "goto", KW_ASM: "asm",
	LPAREN: "(", RPAREN: ")", LBRACE: "{", RBRACE: "}", LBRACKET: "[", RBRACKET: "]",
	SEMI: ";", COMMA: ",", COLON: ":", QUESTION: "?", DOT: ".", ARROW: "->",
	ELLIPSIS: "...", ASSIGN: "=", ADD_ASSIGN: "+=", SUB_ASSIGN: "-=",
	MUL_ASSIGN: "*=", DIV_ASSIGN: "/=", MOD_ASSIGN: "%=", AND_ASSIGN: "&=",
	OR_ASSIGN: "|=", XOR_ASSIGN: "^=", SHL_ASSIGN: "<<=", SHR_ASSIGN: ">>=",
	PLUS: "+", MINUS: "-", STAR: "*", SLASH: "/", PERCENT: "%", INC: "++", DEC: "--",
	EQ: "==", NEQ: "!=", LT: "<", LE: "<=", GT: ">", GE: ">=",
	LOGAND: "&&", LOGOR: "||", NOT: "!", AMP: "&", PIPE: "|", CARET: "^",
	TILDE: "~", SHL: "<<", SHR: ">>",
}

// String returns a print-friendly name for the kind.
func (k Kind) String() string {
	if s, ok := names[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Keywords maps a scanned identifier to its keyword Kind. Built once from
// names so `if`, `while`, etc. never drift from their Kind labels.
var Keywords = func() map[string]Kind {
	m := make(map[string]Kind, 32)
	for k := KW_VOID; k <= KW_ASM; k++ {
		m[names[k]] = k
	}
	m["_Bool"] = KW_BOOL
	return m
}()

// IntSuffix records the `u`/`l`/`ll` suffix modifiers recognised on an
// integer literal (spec.md §4.1).
type IntSuffix struct {
	Unsigned bool
	Long     bool // `l` or `ll`
}

// Token is one lexeme plus its resolved value and source span.
type Token struct {
	Kind Kind
	Text string // original source span, verbatim, for lexer round-trip
	Pos  Pos

	// Resolved literal value, populated for INT_LIT/FLOAT_LIT/STRING_LIT/
	// CHAR_LIT/IDENT tokens only.
	IntVal    int64
	IntSuffix IntSuffix
	FloatVal  float64
	IsSingle  bool // float literal carried an `f` suffix
	StrVal    string
}

// Pos is a source location.
type Pos struct {
	File   string
	Line   int
	Column int
}

func (p Pos) String() string {
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

func (t Token) String() string {
	if len(t.Text) > 16 {
		return fmt.Sprintf("%.13q... (%s at %s)", t.Text, t.Kind, t.Pos)
	}
	return fmt.Sprintf("%q (%s at %s)", t.Text, t.Kind, t.Pos)
}
