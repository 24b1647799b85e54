package parser

import (
	"github.com/pkg/errors"

	"github.com/jainl28patel/xcc/internal/ast"
	"github.com/jainl28patel/xcc/internal/ctx"
	"github.com/jainl28patel/xcc/internal/token"
)

// parseStmt parses one statement (spec.md §3's Statement tagged union).
func parseStmt(c *ctx.Context) (*ast.Node, error) {
	pos := c.Pos0()
	switch c.Peek(0).Kind {
	case token.LBRACE:
		return parseBlock(c)
	case token.KW_IF:
		return parseIf(c)
	case token.KW_WHILE:
		return parseWhile(c)
	case token.KW_DO:
		return parseDoWhile(c)
	case token.KW_FOR:
		return parseFor(c)
	case token.KW_SWITCH:
		return parseSwitch(c)
	case token.KW_BREAK:
		c.Advance()
		if !expect(c, token.SEMI) {
			return nil, errors.New("expected ';' after break")
		}
		return &ast.Node{Kind: ast.Break, Pos: pos}, nil
	case token.KW_CONTINUE:
		c.Advance()
		if !expect(c, token.SEMI) {
			return nil, errors.New("expected ';' after continue")
		}
		return &ast.Node{Kind: ast.Continue, Pos: pos}, nil
	case token.KW_RETURN:
		c.Advance()
		var val *ast.Node
		if c.Peek(0).Kind != token.SEMI {
			v, err := parseExpr(c)
			if err != nil {
				return nil, err
			}
			if c.Fn != nil && c.Fn.FuncType != nil {
				v = convertTo(c, v, c.Fn.FuncType.Ret)
			}
			val = v
		}
		if !expect(c, token.SEMI) {
			return nil, errors.New("expected ';' after return value")
		}
		return &ast.Node{Kind: ast.Return, Pos: pos, Lhs: val}, nil
	case token.KW_GOTO:
		c.Advance()
		name := c.Peek(0).Text
		if !expect(c, token.IDENT) {
			return nil, errors.New("expected label name after goto")
		}
		if !expect(c, token.SEMI) {
			return nil, errors.New("expected ';' after goto")
		}
		return &ast.Node{Kind: ast.Goto, Pos: pos, Label: name}, nil
	case token.KW_ASM:
		return parseInlineAsm(c)
	case token.SEMI:
		c.Advance()
		return &ast.Node{Kind: ast.ExprStmt, Pos: pos}, nil
	case token.IDENT:
		if c.Peek(1).Kind == token.COLON {
			name := c.Peek(0).Text
			c.Advance()
			c.Advance()
			return &ast.Node{Kind: ast.Label, Pos: pos, Label: name}, nil
		}
	}

	if isTypeStart(c) {
		return parseDeclStmt(c)
	}

	e, err := parseExpr(c)
	if err != nil {
		return nil, err
	}
	if !expect(c, token.SEMI) {
		return nil, errors.New("expected ';' after expression statement")
	}
	return &ast.Node{Kind: ast.ExprStmt, Pos: pos, Lhs: e}, nil
}

func parseBlock(c *ctx.Context) (*ast.Node, error) {
	pos := c.Pos0()
	if !expect(c, token.LBRACE) {
		return nil, errors.New("expected '{' to start block")
	}
	scope := c.PushScope(ast.BlockScope)
	var stmts []*ast.Node
	for c.Peek(0).Kind != token.RBRACE && c.Peek(0).Kind != token.EOF {
		s, err := parseStmt(c)
		if err != nil {
			resync(c)
			continue
		}
		if s != nil {
			stmts = append(stmts, s)
		}
	}
	c.PopScope()
	if !expect(c, token.RBRACE) {
		return nil, errors.New("expected '}' to close block")
	}
	return &ast.Node{Kind: ast.Block, Pos: pos, Stmts: stmts, Scope: scope}, nil
}

func parseIf(c *ctx.Context) (*ast.Node, error) {
	pos := c.Pos0()
	c.Advance()
	if !expect(c, token.LPAREN) {
		return nil, errors.New("expected '(' after if")
	}
	cond, err := parseExpr(c)
	if err != nil {
		return nil, err
	}
	if !expect(c, token.RPAREN) {
		return nil, errors.New("expected ')' after if condition")
	}
	then, err := parseStmt(c)
	if err != nil {
		return nil, err
	}
	var els *ast.Node
	if c.Peek(0).Kind == token.KW_ELSE {
		c.Advance()
		els, err = parseStmt(c)
		if err != nil {
			return nil, err
		}
	}
	return &ast.Node{Kind: ast.If, Pos: pos, Cond: cond, Then: then, Else: els}, nil
}

func parseWhile(c *ctx.Context) (*ast.Node, error) {
	pos := c.Pos0()
	c.Advance()
	if !expect(c, token.LPAREN) {
		return nil, errors.New("expected '(' after while")
	}
	cond, err := parseExpr(c)
	if err != nil {
		return nil, err
	}
	if !expect(c, token.RPAREN) {
		return nil, errors.New("expected ')' after while condition")
	}
	body, err := parseStmt(c)
	if err != nil {
		return nil, err
	}
	return &ast.Node{Kind: ast.While, Pos: pos, Cond: cond, Body: body}, nil
}

func parseDoWhile(c *ctx.Context) (*ast.Node, error) {
	pos := c.Pos0()
	c.Advance()
	body, err := parseStmt(c)
	if err != nil {
		return nil, err
	}
	if !expect(c, token.KW_WHILE) {
		return nil, errors.New("expected 'while' after do-body")
	}
	if !expect(c, token.LPAREN) {
		return nil, errors.New("expected '(' after do-while")
	}
	cond, err := parseExpr(c)
	if err != nil {
		return nil, err
	}
	if !expect(c, token.RPAREN) {
		return nil, errors.New("expected ')' after do-while condition")
	}
	if !expect(c, token.SEMI) {
		return nil, errors.New("expected ';' after do-while")
	}
	return &ast.Node{Kind: ast.DoWhile, Pos: pos, Cond: cond, Body: body}, nil
}

func parseFor(c *ctx.Context) (*ast.Node, error) {
	pos := c.Pos0()
	c.Advance()
	if !expect(c, token.LPAREN) {
		return nil, errors.New("expected '(' after for")
	}
	scope := c.PushScope(ast.BlockScope)
	defer c.PopScope()

	var init *ast.Node
	if c.Peek(0).Kind != token.SEMI {
		var err error
		if isTypeStart(c) {
			init, err = parseDeclStmt(c)
			if err != nil {
				return nil, err
			}
		} else {
			e, err2 := parseExpr(c)
			if err2 != nil {
				return nil, err2
			}
			init = &ast.Node{Kind: ast.ExprStmt, Pos: pos, Lhs: e}
			if !expect(c, token.SEMI) {
				return nil, errors.New("expected ';' after for-init")
			}
		}
	} else {
		c.Advance()
	}

	var cond *ast.Node
	if c.Peek(0).Kind != token.SEMI {
		var err error
		cond, err = parseExpr(c)
		if err != nil {
			return nil, err
		}
	}
	if !expect(c, token.SEMI) {
		return nil, errors.New("expected ';' after for-condition")
	}

	var post *ast.Node
	if c.Peek(0).Kind != token.RPAREN {
		e, err := parseExpr(c)
		if err != nil {
			return nil, err
		}
		post = &ast.Node{Kind: ast.ExprStmt, Pos: pos, Lhs: e}
	}
	if !expect(c, token.RPAREN) {
		return nil, errors.New("expected ')' after for-clauses")
	}
	body, err := parseStmt(c)
	if err != nil {
		return nil, err
	}
	return &ast.Node{Kind: ast.For, Pos: pos, Init: init, Cond: cond, Post: post, Body: body, Scope: scope}, nil
}

// parseSwitch collects every case value and the has-default flag at parse
// time (spec.md §3/§4.3: "all case values collected at parse time; the
// back-end lowers to a compare-and-branch chain (or a jump table...)").
func parseSwitch(c *ctx.Context) (*ast.Node, error) {
	pos := c.Pos0()
	c.Advance()
	if !expect(c, token.LPAREN) {
		return nil, errors.New("expected '(' after switch")
	}
	cond, err := parseExpr(c)
	if err != nil {
		return nil, err
	}
	if !expect(c, token.RPAREN) {
		return nil, errors.New("expected ')' after switch condition")
	}
	if !expect(c, token.LBRACE) {
		return nil, errors.New("expected '{' to start switch body")
	}
	sw := &ast.Node{Kind: ast.Switch, Pos: pos, Cond: cond}
	// Case/default labels are kept inline in Stmts, in source order, so
	// fallthrough between cases lowers naturally; CaseValues/HasDefault are
	// a parallel summary collected for the back end's dispatch-chain
	// construction (spec.md §3/§4.3).
	for c.Peek(0).Kind != token.RBRACE && c.Peek(0).Kind != token.EOF {
		switch c.Peek(0).Kind {
		case token.KW_CASE:
			cpos := c.Pos0()
			c.Advance()
			v, err := parseIntConstExpr(c)
			if err != nil {
				return nil, err
			}
			if !expect(c, token.COLON) {
				return nil, errors.New("expected ':' after case value")
			}
			sw.CaseValues = append(sw.CaseValues, v)
			caseNode := &ast.Node{Kind: ast.Case, Pos: cpos, IntVal: v}
			sw.Cases = append(sw.Cases, caseNode)
			sw.Stmts = append(sw.Stmts, caseNode)
		case token.KW_DEFAULT:
			dpos := c.Pos0()
			c.Advance()
			if !expect(c, token.COLON) {
				return nil, errors.New("expected ':' after default")
			}
			sw.HasDefault = true
			defNode := &ast.Node{Kind: ast.Default, Pos: dpos}
			sw.Cases = append(sw.Cases, defNode)
			sw.Stmts = append(sw.Stmts, defNode)
		default:
			s, err := parseStmt(c)
			if err != nil {
				resync(c)
				continue
			}
			sw.Stmts = append(sw.Stmts, s)
		}
	}
	if !expect(c, token.RBRACE) {
		return nil, errors.New("expected '}' to close switch")
	}
	return sw, nil
}

func parseInlineAsm(c *ctx.Context) (*ast.Node, error) {
	pos := c.Pos0()
	c.Advance() // asm
	if !expect(c, token.LPAREN) {
		return nil, errors.New("expected '(' after asm")
	}
	text := c.Peek(0).StrVal
	if !expect(c, token.STRING_LIT) {
		return nil, errors.New("expected string literal in asm(...)")
	}
	if !expect(c, token.RPAREN) {
		return nil, errors.New("expected ')' after asm string")
	}
	if !expect(c, token.SEMI) {
		return nil, errors.New("expected ';' after asm statement")
	}
	// Opaque pass-through operand, per spec.md §9 open question: no
	// clobber/constraint semantics are modeled, only a verbatim string
	// forwarded to the native emitter.
	return &ast.Node{Kind: ast.InlineAsm, Pos: pos, AsmText: text}, nil
}

// parseDeclStmt parses a local variable declaration group (spec.md §3's
// "variable-declaration group").
func parseDeclStmt(c *ctx.Context) (*ast.Node, error) {
	pos := c.Pos0()
	storage, base, err := parseDeclSpec(c)
	if err != nil {
		return nil, err
	}
	decl := &ast.Node{Kind: ast.DeclStmt, Pos: pos}
	for {
		name, t, _, _, derr := parseDeclarator(c, base)
		if derr != nil {
			return nil, derr
		}
		v := &ast.VarInfo{Name: name, Type: t, Storage: storage, VReg: -1}
		if c.Peek(0).Kind == token.ASSIGN {
			c.Advance()
			init, err := parseAssignExpr(c)
			if err != nil {
				return nil, err
			}
			v.Init = convertTo(c, init, t)
			v.IsDefined = true
		}
		if _, exists := localNameExistsInCurScope(c, name); exists {
			c.Diags.Errorf(pos, "redefinition of %q", name)
		}
		c.Cur.Declare(v)
		decl.Decls = append(decl.Decls, v)
		if c.Peek(0).Kind != token.COMMA {
			break
		}
		c.Advance()
	}
	if !expect(c, token.SEMI) {
		return nil, errors.New("expected ';' after declaration")
	}
	return decl, nil
}

func localNameExistsInCurScope(c *ctx.Context, name string) (*ast.VarInfo, bool) {
	for _, v := range c.Cur.Vars {
		if v.Name == name {
			return v, true
		}
	}
	return nil, false
}
