// Package parser implements the recursive-descent parser and single-pass
// semantic analyzer of spec.md §4.2: one token of lookahead, occasional
// two-token peek for the typedef-name/expression-statement ambiguity, base
// type + declarator parsing, precedence-climbing expressions with implicit
// cast insertion and constant folding performed as each node is built.
//
// Grounded on y1yang0-falcon/src/ast/parser.go's hand-written recursive
// descent shape (falcon has no yacc grammar at all, matching spec.md's
// explicit "hand-written grammar" requirement) and on
// hhramberg-go-vslc/src/ir/nodetype.go's tagged Node for the tree it
// builds. The teacher's own frontend/tree.go drives a goyacc-generated
// parser instead of a hand-written one; that generated table is not part
// of this rewrite; spec.md is explicit that the grammar must be hand
// written, so the falcon repo is the closer model for *this* component
// even though hhramberg-go-vslc remains the overall teacher.
package parser

import (
	"github.com/pkg/errors"

	"github.com/jainl28patel/xcc/internal/ast"
	"github.com/jainl28patel/xcc/internal/ctx"
	"github.com/jainl28patel/xcc/internal/token"
	"github.com/jainl28patel/xcc/internal/types"
)

// Parse lexes src (if c.Tokens is empty) and parses+analyzes a complete
// translation unit, returning the TranslationUnit root node.
//
// Syntactic errors abort parsing of the enclosing top-level construct and
// resynchronize at the next top-level token (spec.md §7); semantic errors
// are recorded on c.Diags and parsing continues.
func Parse(c *ctx.Context, src string) (*ast.Node, error) {
	if len(c.Tokens) == 0 {
		toks, err := token.Lex(c.File, src)
		if err != nil {
			return nil, errors.Wrap(err, "lexical error")
		}
		c.Tokens = toks
	}

	root := &ast.Node{Kind: ast.TranslationUnit, Pos: c.Pos0()}
	for c.Peek(0).Kind != token.EOF {
		before := c.Diags.Len()
		n, err := parseTopLevel(c)
		if err != nil {
			if c.Diags.Len() == before {
				c.Diags.Errorf(c.Pos0(), "%v", err)
			}
			// Resynchronize at the next top-level token or ';' (spec.md §7).
			resync(c)
			continue
		}
		if n != nil {
			root.Stmts = append(root.Stmts, n)
		}
	}
	if c.Diags.HasErrors() {
		return root, errors.New("translation unit has errors")
	}
	return root, nil
}

// resync skips tokens until the next ';' or a token that can start a new
// top-level declaration, so one bad declaration doesn't cascade errors
// through the rest of the file.
func resync(c *ctx.Context) {
	for {
		t := c.Peek(0)
		if t.Kind == token.EOF {
			return
		}
		if t.Kind == token.SEMI {
			c.Advance()
			return
		}
		if t.Kind == token.RBRACE {
			c.Advance()
			return
		}
		c.Advance()
	}
}

// parseTopLevel parses one top-level construct: a typedef, or a
// declaration group that is either one or more global variables or a
// single function (spec.md §4.2 "Declarations parse a base type ...
// followed by one or more declarators").
func parseTopLevel(c *ctx.Context) (*ast.Node, error) {
	if c.Peek(0).Kind == token.KW_TYPEDEF {
		return nil, parseTypedef(c)
	}

	storage, base, err := parseDeclSpec(c)
	if err != nil {
		return nil, err
	}

	if c.Peek(0).Kind == token.SEMI {
		// `struct Foo { ... };` with no declarator: the tag declaration
		// alone is the whole point.
		c.Advance()
		return nil, nil
	}

	name, declType, params, isFunc, err := parseDeclarator(c, base)
	if err != nil {
		return nil, err
	}

	if isFunc {
		return parseFuncDeclOrDef(c, storage, name, declType, params)
	}
	return parseGlobalVarGroup(c, storage, name, declType, base)
}

func parseTypedef(c *ctx.Context) error {
	c.Advance() // typedef
	_, base, err := parseDeclSpec(c)
	if err != nil {
		return err
	}
	name, declType, _, _, err := parseDeclarator(c, base)
	if err != nil {
		return err
	}
	if !expect(c, token.SEMI) {
		return errors.New("expected ';' after typedef")
	}
	c.Cur.Typedefs[name] = declType
	return nil
}

func parseGlobalVarGroup(c *ctx.Context, storage ast.Storage, firstName string, firstType *types.Type, base *types.Type) (*ast.Node, error) {
	group := &ast.Node{Kind: ast.GlobalVarDecl, Pos: c.Pos0()}
	add := func(name string, t *types.Type) error {
		if _, exists := c.Global.Lookup(name); exists && storage != ast.StorageExtern {
			c.Diags.Errorf(c.Pos0(), "redefinition of %q", name)
		}
		v := &ast.VarInfo{Name: name, Type: t, Storage: storage}
		if c.Peek(0).Kind == token.ASSIGN {
			c.Advance()
			init, err := parseAssignExpr(c)
			if err != nil {
				return err
			}
			v.Init = init
			v.IsDefined = true
		} else if storage != ast.StorageExtern {
			v.IsDefined = true
		}
		c.Global.Declare(v)
		sym := c.Syms.Declare(name, ast.SymGlobalVar)
		sym.Var = v
		sym.Defined = v.IsDefined
		group.Decls = append(group.Decls, v)
		return nil
	}
	if err := add(firstName, firstType); err != nil {
		return nil, err
	}
	for c.Peek(0).Kind == token.COMMA {
		c.Advance()
		name, t, _, _, err := parseDeclarator(c, base)
		if err != nil {
			return nil, err
		}
		if err := add(name, t); err != nil {
			return nil, err
		}
	}
	if !expect(c, token.SEMI) {
		return nil, errors.New("expected ';' after global declaration")
	}
	return group, nil
}

func parseFuncDeclOrDef(c *ctx.Context, storage ast.Storage, name string, fnType *types.Type, params []*ast.VarInfo) (*ast.Node, error) {
	sym := c.Syms.Declare(name, ast.SymFunc)
	sym.FuncType = fnType
	sym.Params = params
	sym.Exported = storage != ast.StorageStatic

	if c.Peek(0).Kind == token.SEMI {
		c.Advance()
		sym.Imported = sym.Imported || !sym.Defined
		return nil, nil
	}

	prevFn := c.Fn
	c.Fn = sym
	defer func() { c.Fn = prevFn }()

	paramScope := c.PushScope(ast.FuncParamScope)
	for i, p := range params {
		p.IsParam = true
		p.ParamIndex = i
		paramScope.Declare(p)
	}

	body, err := parseBlock(c)
	c.PopScope()
	if err != nil {
		return nil, err
	}

	sym.Body = body
	sym.Defined = true
	sym.Imported = false

	fn := &ast.Node{Kind: ast.FuncDecl, Pos: c.Pos0(), Name: name, Func: sym, Body: body, Scope: paramScope, Type: fnType}
	return fn, nil
}

// expect consumes the current token if it matches k, else records a
// syntax error pinned to the offending token (spec.md §7) and returns
// false.
func expect(c *ctx.Context, k token.Kind) bool {
	if c.Peek(0).Kind == k {
		c.Advance()
		return true
	}
	c.Diags.Errorf(c.Pos0(), "expected %s, got %s", k, c.Peek(0).Kind)
	return false
}
