package parser

import (
	"github.com/pkg/errors"

	"github.com/jainl28patel/xcc/internal/ast"
	"github.com/jainl28patel/xcc/internal/ctx"
	"github.com/jainl28patel/xcc/internal/token"
	"github.com/jainl28patel/xcc/internal/types"
)

// parseDeclSpec parses storage-class + type-specifier + qualifiers into a
// base Type (spec.md §4.2: "Declarations parse a base type (storage-class
// + type-specifier + qualifiers)"). Declarators are applied to this base
// type afterwards by parseDeclarator.
func parseDeclSpec(c *ctx.Context) (ast.Storage, *types.Type, error) {
	storage := ast.StorageAuto
	unsignedSeen, signedSeen := false, false
	longCount := 0
	var kindTok token.Kind = token.EOF

loop:
	for {
		switch c.Peek(0).Kind {
		case token.KW_STATIC:
			storage = ast.StorageStatic
			c.Advance()
		case token.KW_EXTERN:
			storage = ast.StorageExtern
			c.Advance()
		case token.KW_CONST:
			c.Advance() // qualifier recorded at use site only; nothing to do on the base type itself
		case token.KW_UNSIGNED:
			unsignedSeen = true
			c.Advance()
		case token.KW_SIGNED:
			signedSeen = true
			c.Advance()
		case token.KW_LONG:
			longCount++
			c.Advance()
		case token.KW_VOID, token.KW_BOOL, token.KW_CHAR, token.KW_SHORT,
			token.KW_INT, token.KW_FLOAT, token.KW_DOUBLE:
			kindTok = c.Peek(0).Kind
			c.Advance()
		case token.KW_STRUCT, token.KW_UNION:
			t, err := parseAggregate(c, c.Peek(0).Kind == token.KW_UNION)
			if err != nil {
				return storage, nil, err
			}
			return storage, t, nil
		case token.KW_ENUM:
			t, err := parseEnum(c)
			if err != nil {
				return storage, nil, err
			}
			return storage, t, nil
		case token.IDENT:
			if t, ok := c.Cur.LookupTypedef(c.Peek(0).Text); ok {
				c.Advance()
				return storage, t, nil
			}
			break loop
		default:
			break loop
		}
	}

	switch {
	case longCount > 0:
		t := types.TLong
		if unsignedSeen {
			t = types.TULong
		}
		return storage, t, nil
	case kindTok == token.KW_VOID:
		return storage, types.TVoid, nil
	case kindTok == token.KW_BOOL:
		return storage, types.TBool, nil
	case kindTok == token.KW_CHAR:
		if unsignedSeen {
			return storage, types.TUChar, nil
		}
		return storage, types.TChar, nil
	case kindTok == token.KW_SHORT:
		if unsignedSeen {
			return storage, types.TUShort, nil
		}
		return storage, types.TShort, nil
	case kindTok == token.KW_FLOAT:
		return storage, types.TFloat, nil
	case kindTok == token.KW_DOUBLE:
		return storage, types.TDouble, nil
	case kindTok == token.KW_INT, unsignedSeen, signedSeen:
		if unsignedSeen {
			return storage, types.TUInt, nil
		}
		return storage, types.TInt, nil
	}
	return storage, nil, errors.Errorf("%s: expected type specifier, got %s", c.Pos0(), c.Peek(0).Kind)
}

// parseAggregate parses `struct`/`union` Tag { members } or a bare tag
// reference, per spec.md §3's struct/union type variant.
func parseAggregate(c *ctx.Context, isUnion bool) (*types.Type, error) {
	c.Advance() // struct/union
	tag := ""
	if c.Peek(0).Kind == token.IDENT {
		tag = c.Peek(0).Text
		c.Advance()
	}
	if c.Peek(0).Kind != token.LBRACE {
		// Reference to a previously declared tag.
		if tag == "" {
			return nil, errors.New("expected tag or '{' after struct/union")
		}
		if t, ok := c.Cur.LookupTag(tag); ok {
			return t, nil
		}
		// Forward reference: return a placeholder the caller will patch
		// once the full definition is seen is out of scope here; treat as
		// an error, matching spec.md's "undeclared identifier" semantic
		// error class for an unresolved tag.
		return nil, errors.Errorf("undeclared struct/union tag %q", tag)
	}
	c.Advance() // {
	var members []types.Member
	for c.Peek(0).Kind != token.RBRACE {
		_, base, err := parseDeclSpec(c)
		if err != nil {
			return nil, err
		}
		for {
			name, t, _, _, err := parseDeclarator(c, base)
			if err != nil {
				return nil, err
			}
			m := types.Member{Name: name, Type: t}
			if c.Peek(0).Kind == token.COLON {
				c.Advance()
				w, err := parseIntConstExpr(c)
				if err != nil {
					return nil, err
				}
				m.Width = int(w)
			}
			members = append(members, m)
			if c.Peek(0).Kind != token.COMMA {
				break
			}
			c.Advance()
		}
		if !expect(c, token.SEMI) {
			return nil, errors.New("expected ';' after member declaration")
		}
	}
	c.Advance() // }
	kind := types.Struct
	if isUnion {
		kind = types.Union
	}
	t := types.NewStruct(tag, kind, members)
	if tag != "" {
		c.Cur.Tags[tag] = t
	}
	return t, nil
}

// parseEnum parses `enum Tag { A, B = 3, C }`; each constant is entered
// into the current scope as a StorageEnumMember VarInfo (spec.md §3).
func parseEnum(c *ctx.Context) (*types.Type, error) {
	c.Advance() // enum
	tag := ""
	if c.Peek(0).Kind == token.IDENT {
		tag = c.Peek(0).Text
		c.Advance()
	}
	t := &types.Type{Kind: types.Enum, Tag: tag, Size: 4}
	if c.Peek(0).Kind != token.LBRACE {
		if tag == "" {
			return nil, errors.New("expected tag or '{' after enum")
		}
		if existing, ok := c.Cur.LookupTag(tag); ok {
			return existing, nil
		}
		return nil, errors.Errorf("undeclared enum tag %q", tag)
	}
	c.Advance() // {
	next := int64(0)
	for c.Peek(0).Kind != token.RBRACE {
		name := c.Peek(0).Text
		if !expect(c, token.IDENT) {
			return nil, errors.New("expected enum constant name")
		}
		if c.Peek(0).Kind == token.ASSIGN {
			c.Advance()
			v, err := parseIntConstExpr(c)
			if err != nil {
				return nil, err
			}
			next = v
		}
		c.Cur.Declare(&ast.VarInfo{Name: name, Type: t, Storage: ast.StorageEnumMember, EnumValue: next, IsDefined: true})
		next++
		if c.Peek(0).Kind != token.COMMA {
			break
		}
		c.Advance()
	}
	if !expect(c, token.RBRACE) {
		return nil, errors.New("expected '}' to close enum")
	}
	if tag != "" {
		c.Cur.Tags[tag] = t
	}
	return t, nil
}

// parseDeclarator applies pointer/array/function declarator syntax to
// base, outside-in, per the standard C type-construction algorithm
// (spec.md §4.2). Returns the declared name, its fully-constructed type,
// and (for a function declarator) its parameter VarInfo list.
func parseDeclarator(c *ctx.Context, base *types.Type) (name string, declType *types.Type, params []*ast.VarInfo, isFunc bool, err error) {
	t := base
	for c.Peek(0).Kind == token.STAR {
		c.Advance()
		for c.Peek(0).Kind == token.KW_CONST {
			c.Advance()
		}
		t = types.NewPointer(t)
	}

	if c.Peek(0).Kind != token.IDENT {
		return "", nil, nil, false, errors.Errorf("%s: expected declarator name, got %s", c.Pos0(), c.Peek(0).Kind)
	}
	name = c.Peek(0).Text
	c.Advance()

	if c.Peek(0).Kind == token.LPAREN {
		c.Advance()
		params, isFunc, err = parseParamList(c)
		if err != nil {
			return "", nil, nil, false, err
		}
		if !expect(c, token.RPAREN) {
			return "", nil, nil, false, errors.New("expected ')' to close parameter list")
		}
		var ptypes []types.Param
		for _, p := range params {
			ptypes = append(ptypes, types.Param{Name: p.Name, Type: p.Type})
		}
		variadic := isFunc && len(params) > 0 && params[len(params)-1] == nil
		if variadic {
			params = params[:len(params)-1]
		}
		declType = types.InternFunc(t, ptypes, variadic)
		return name, declType, params, true, nil
	}

	for c.Peek(0).Kind == token.LBRACKET {
		c.Advance()
		hasLen := false
		n := 0
		if c.Peek(0).Kind != token.RBRACKET {
			v, err := parseIntConstExpr(c)
			if err != nil {
				return "", nil, nil, false, err
			}
			n, hasLen = int(v), true
		}
		if !expect(c, token.RBRACKET) {
			return "", nil, nil, false, errors.New("expected ']' to close array declarator")
		}
		t = types.NewArray(t, n, hasLen)
	}
	return name, t, nil, false, nil
}

// parseParamList parses a function declarator's parameter list, including
// the trailing `...` varargs marker (represented by a nil sentinel
// appended to params, stripped by the caller).
func parseParamList(c *ctx.Context) ([]*ast.VarInfo, bool, error) {
	var params []*ast.VarInfo
	if c.Peek(0).Kind == token.RPAREN {
		return nil, true, nil
	}
	if c.Peek(0).Kind == token.KW_VOID && c.Peek(1).Kind == token.RPAREN {
		c.Advance()
		return nil, true, nil
	}
	for {
		if c.Peek(0).Kind == token.ELLIPSIS {
			c.Advance()
			params = append(params, nil)
			break
		}
		_, base, err := parseDeclSpec(c)
		if err != nil {
			return nil, false, err
		}
		pname := ""
		pt := base
		if c.Peek(0).Kind == token.STAR || c.Peek(0).Kind == token.IDENT {
			n, dt, _, _, derr := parseDeclarator(c, base)
			if derr == nil {
				pname, pt = n, dt
			}
		}
		if pt.Kind == types.Array {
			// A parameter array decays to a pointer (spec.md §4.2 point 3).
			pt = pt.DecayedArray()
		}
		params = append(params, &ast.VarInfo{Name: pname, Type: pt})
		if c.Peek(0).Kind != token.COMMA {
			break
		}
		c.Advance()
	}
	return params, true, nil
}

// parseIntConstExpr parses and constant-folds an integer constant
// expression, used for array extents, bitfield widths and enum values.
func parseIntConstExpr(c *ctx.Context) (int64, error) {
	n, err := parseAssignExpr(c)
	if err != nil {
		return 0, err
	}
	if n.Kind != ast.IntLit {
		return 0, errors.Errorf("%s: expected a constant integer expression", c.Pos0())
	}
	return n.IntVal, nil
}

// isTypeStart reports whether the current token can begin a declaration
// (used by the statement parser to disambiguate a declaration from an
// expression statement, and by cast-vs-paren-expr disambiguation).
func isTypeStart(c *ctx.Context) bool {
	switch c.Peek(0).Kind {
	case token.KW_VOID, token.KW_BOOL, token.KW_CHAR, token.KW_SHORT, token.KW_INT,
		token.KW_LONG, token.KW_UNSIGNED, token.KW_SIGNED, token.KW_FLOAT, token.KW_DOUBLE,
		token.KW_STRUCT, token.KW_UNION, token.KW_ENUM, token.KW_CONST:
		return true
	case token.IDENT:
		_, ok := c.Cur.LookupTypedef(c.Peek(0).Text)
		return ok
	}
	return false
}
