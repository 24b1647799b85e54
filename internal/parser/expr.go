package parser

import (
	"github.com/pkg/errors"

	"github.com/jainl28patel/xcc/internal/ast"
	"github.com/jainl28patel/xcc/internal/ctx"
	"github.com/jainl28patel/xcc/internal/token"
	"github.com/jainl28patel/xcc/internal/types"
)

// parseExpr parses a full comma expression (spec.md §3 "comma").
func parseExpr(c *ctx.Context) (*ast.Node, error) {
	lhs, err := parseAssignExpr(c)
	if err != nil {
		return nil, err
	}
	for c.Peek(0).Kind == token.COMMA {
		pos := c.Pos0()
		c.Advance()
		rhs, err := parseAssignExpr(c)
		if err != nil {
			return nil, err
		}
		lhs = &ast.Node{Kind: ast.Comma, Pos: pos, Lhs: lhs, Rhs: rhs, Type: rhs.Type}
	}
	return lhs, nil
}

var compoundOps = map[token.Kind]ast.BinOp{
	token.ADD_ASSIGN: ast.OpAdd, token.SUB_ASSIGN: ast.OpSub, token.MUL_ASSIGN: ast.OpMul,
	token.DIV_ASSIGN: ast.OpDiv, token.MOD_ASSIGN: ast.OpMod, token.AND_ASSIGN: ast.OpBitAnd,
	token.OR_ASSIGN: ast.OpBitOr, token.XOR_ASSIGN: ast.OpBitXor, token.SHL_ASSIGN: ast.OpShl,
	token.SHR_ASSIGN: ast.OpShr,
}

// parseAssignExpr implements assignment and compound assignment, which
// bind right-to-left below the ternary operator (spec.md §4.2 precedence
// climbing over the standard operator precedences).
func parseAssignExpr(c *ctx.Context) (*ast.Node, error) {
	lhs, err := parseTernary(c)
	if err != nil {
		return nil, err
	}
	if c.Peek(0).Kind == token.ASSIGN {
		pos := c.Pos0()
		c.Advance()
		if !lhs.IsLvalue() {
			c.Diags.Errorf(pos, "left side of assignment is not an lvalue")
		}
		rhs, err := parseAssignExpr(c)
		if err != nil {
			return nil, err
		}
		rhs = convertTo(c, rhs, lhs.Type)
		return &ast.Node{Kind: ast.Assign, Pos: pos, Lhs: lhs, Rhs: rhs, Type: lhs.Type}, nil
	}
	if op, ok := compoundOps[c.Peek(0).Kind]; ok {
		pos := c.Pos0()
		c.Advance()
		if !lhs.IsLvalue() {
			c.Diags.Errorf(pos, "left side of compound assignment is not an lvalue")
		}
		rhs, err := parseAssignExpr(c)
		if err != nil {
			return nil, err
		}
		return &ast.Node{Kind: ast.CompoundAssign, Pos: pos, Op: op, Lhs: lhs, Rhs: rhs, Type: lhs.Type}, nil
	}
	return lhs, nil
}

func parseTernary(c *ctx.Context) (*ast.Node, error) {
	cond, err := parseLogOr(c)
	if err != nil {
		return nil, err
	}
	if c.Peek(0).Kind != token.QUESTION {
		return cond, nil
	}
	pos := c.Pos0()
	c.Advance()
	then, err := parseExpr(c)
	if err != nil {
		return nil, err
	}
	if !expect(c, token.COLON) {
		return nil, errors.New("expected ':' in ternary expression")
	}
	els, err := parseAssignExpr(c)
	if err != nil {
		return nil, err
	}
	rt := commonArithType(then.Type, els.Type)
	then, els = convertTo(c, then, rt), convertTo(c, els, rt)
	if n, ok := foldTernary(cond, then, els); ok {
		return n, nil
	}
	return &ast.Node{Kind: ast.Ternary, Pos: pos, Cond: cond, Then: then, Else: els, Type: rt}, nil
}

func parseLogOr(c *ctx.Context) (*ast.Node, error) {
	lhs, err := parseLogAnd(c)
	if err != nil {
		return nil, err
	}
	for c.Peek(0).Kind == token.LOGOR {
		pos := c.Pos0()
		c.Advance()
		rhs, err := parseLogAnd(c)
		if err != nil {
			return nil, err
		}
		lhs = &ast.Node{Kind: ast.LogOr, Pos: pos, Lhs: lhs, Rhs: rhs, Type: types.TInt}
	}
	return lhs, nil
}

func parseLogAnd(c *ctx.Context) (*ast.Node, error) {
	lhs, err := parseBitOr(c)
	if err != nil {
		return nil, err
	}
	for c.Peek(0).Kind == token.LOGAND {
		pos := c.Pos0()
		c.Advance()
		rhs, err := parseBitOr(c)
		if err != nil {
			return nil, err
		}
		lhs = &ast.Node{Kind: ast.LogAnd, Pos: pos, Lhs: lhs, Rhs: rhs, Type: types.TInt}
	}
	return lhs, nil
}

// binLevel is one precedence level of left-associative binary operators.
type binLevel struct {
	toks map[token.Kind]ast.BinOp
	next func(*ctx.Context) (*ast.Node, error)
}

func parseBitOr(c *ctx.Context) (*ast.Node, error) {
	return parseBinLevel(c, map[token.Kind]ast.BinOp{token.PIPE: ast.OpBitOr}, parseBitXor)
}
func parseBitXor(c *ctx.Context) (*ast.Node, error) {
	return parseBinLevel(c, map[token.Kind]ast.BinOp{token.CARET: ast.OpBitXor}, parseBitAnd)
}
func parseBitAnd(c *ctx.Context) (*ast.Node, error) {
	return parseBinLevel(c, map[token.Kind]ast.BinOp{token.AMP: ast.OpBitAnd}, parseEquality)
}
func parseEquality(c *ctx.Context) (*ast.Node, error) {
	return parseBinLevel(c, map[token.Kind]ast.BinOp{token.EQ: ast.OpEq, token.NEQ: ast.OpNeq}, parseRelational)
}
func parseRelational(c *ctx.Context) (*ast.Node, error) {
	return parseBinLevel(c, map[token.Kind]ast.BinOp{
		token.LT: ast.OpLt, token.LE: ast.OpLe, token.GT: ast.OpGt, token.GE: ast.OpGe,
	}, parseShift)
}
func parseShift(c *ctx.Context) (*ast.Node, error) {
	return parseBinLevel(c, map[token.Kind]ast.BinOp{token.SHL: ast.OpShl, token.SHR: ast.OpShr}, parseAdditive)
}
func parseAdditive(c *ctx.Context) (*ast.Node, error) {
	return parseBinLevel(c, map[token.Kind]ast.BinOp{token.PLUS: ast.OpAdd, token.MINUS: ast.OpSub}, parseMultiplicative)
}
func parseMultiplicative(c *ctx.Context) (*ast.Node, error) {
	return parseBinLevel(c, map[token.Kind]ast.BinOp{
		token.STAR: ast.OpMul, token.SLASH: ast.OpDiv, token.PERCENT: ast.OpMod,
	}, parseCast)
}

func parseBinLevel(c *ctx.Context, ops map[token.Kind]ast.BinOp, next func(*ctx.Context) (*ast.Node, error)) (*ast.Node, error) {
	lhs, err := next(c)
	if err != nil {
		return nil, err
	}
	for {
		op, ok := ops[c.Peek(0).Kind]
		if !ok {
			break
		}
		pos := c.Pos0()
		c.Advance()
		rhs, err := next(c)
		if err != nil {
			return nil, err
		}
		lhs, err = buildBinary(c, pos, op, lhs, rhs)
		if err != nil {
			return nil, err
		}
	}
	return lhs, nil
}

// buildBinary applies pointer-arithmetic scaling and the usual arithmetic
// conversions (spec.md §4.2 points 1-2), inserts the implicit casts the
// conversions require, and folds constant operands (point 5).
func buildBinary(c *ctx.Context, pos token.Pos, op ast.BinOp, lhs, rhs *ast.Node) (*ast.Node, error) {
	lhs = decay(lhs)
	rhs = decay(rhs)

	// Relational/equality operators always yield int, regardless of
	// operand type (still arithmetic-converted for the comparison itself).
	isCompare := op == ast.OpEq || op == ast.OpNeq || op == ast.OpLt || op == ast.OpLe || op == ast.OpGt || op == ast.OpGe

	if (op == ast.OpAdd || op == ast.OpSub) && lhs.Type.IsPointer() && rhs.Type.IsInteger() {
		scaled := scaleByElemSize(c, rhs, lhs.Type.Base())
		return &ast.Node{Kind: ast.Binary, Pos: pos, Op: op, Lhs: lhs, Rhs: scaled, Type: lhs.Type}, nil
	}
	if op == ast.OpAdd && rhs.Type.IsPointer() && lhs.Type.IsInteger() {
		scaled := scaleByElemSize(c, lhs, rhs.Type.Base())
		return &ast.Node{Kind: ast.Binary, Pos: pos, Op: op, Lhs: scaled, Rhs: rhs, Type: rhs.Type}, nil
	}
	if op == ast.OpSub && lhs.Type.IsPointer() && rhs.Type.IsPointer() {
		// Pointer difference divides the byte difference by sizeof(*ptr)
		// and yields a signed integer (spec.md §4.2 point 2).
		diff := &ast.Node{Kind: ast.Binary, Pos: pos, Op: ast.OpSub, Lhs: lhs, Rhs: rhs, Type: types.TLong}
		sz := lhs.Type.Base().Sizeof()
		if sz <= 1 {
			return diff, nil
		}
		divisor := &ast.Node{Kind: ast.IntLit, Pos: pos, IntVal: int64(sz), Type: types.TLong}
		return &ast.Node{Kind: ast.Binary, Pos: pos, Op: ast.OpDiv, Lhs: diff, Rhs: divisor, Type: types.TLong}, nil
	}

	rt := commonArithType(lhs.Type, rhs.Type)
	lhs = convertTo(c, lhs, rt)
	rhs = convertTo(c, rhs, rt)

	resultType := rt
	if isCompare {
		resultType = types.TInt
	}
	n := &ast.Node{Kind: ast.Binary, Pos: pos, Op: op, Lhs: lhs, Rhs: rhs, Type: resultType}
	if folded, ok := foldBinary(n); ok {
		return folded, nil
	}
	return n, nil
}

// scaleByElemSize multiplies an integer operand by sizeof(elem) for
// pointer arithmetic (spec.md §4.2 point 2), constant-folding when idx is
// itself a literal.
func scaleByElemSize(c *ctx.Context, idx *ast.Node, elem *types.Type) *ast.Node {
	sz := elem.Sizeof()
	if sz == 1 {
		return convertTo(c, idx, types.TLong)
	}
	idx = convertTo(c, idx, types.TLong)
	szNode := &ast.Node{Kind: ast.IntLit, Pos: idx.Pos, IntVal: int64(sz), Type: types.TLong}
	n := &ast.Node{Kind: ast.Binary, Pos: idx.Pos, Op: ast.OpMul, Lhs: idx, Rhs: szNode, Type: types.TLong}
	if folded, ok := foldBinary(n); ok {
		return folded
	}
	return n
}

// decay applies array-to-pointer decay in expression context (spec.md
// §4.2 point 3); callers that need the un-decayed type (address-of,
// sizeof) must not call decay.
func decay(n *ast.Node) *ast.Node {
	if n.Type != nil && n.Type.IsArray() {
		return &ast.Node{Kind: ast.Cast, Pos: n.Pos, Lhs: n, CastType: n.Type.DecayedArray(), CastIsImplicit: true, Type: n.Type.DecayedArray()}
	}
	return n
}

// convertTo wraps n in an implicit EX_CAST node to target, unless n is
// already of that type, per spec.md §4.2 point 4: "Implicit cast insertion
// ... so that every EX_CAST node exists in the tree." Constant operands
// fold through the cast immediately.
func convertTo(c *ctx.Context, n *ast.Node, target *types.Type) *ast.Node {
	n = decay(n)
	if n.Type != nil && types.Equal(n.Type, target) {
		return n
	}
	cast := &ast.Node{Kind: ast.Cast, Pos: n.Pos, Lhs: n, CastType: target, CastIsImplicit: true, Type: target}
	if folded, ok := foldCast(cast); ok {
		return folded
	}
	return cast
}

// commonArithType implements the usual arithmetic conversions: float
// beats int, wider beats narrower, unsigned beats signed at equal width.
func commonArithType(a, b *types.Type) *types.Type {
	if a.IsFloat() || b.IsFloat() {
		if (a.IsFloat() && a.Size == 8) || (b.IsFloat() && b.Size == 8) {
			return types.TDouble
		}
		return types.TFloat
	}
	sa, sb := intRank(a), intRank(b)
	if sa < 4 {
		sa = 4
	}
	if sb < 4 {
		sb = 4
	}
	size := sa
	if sb > size {
		size = sb
	}
	unsigned := (a.Unsigned && sa >= sb) || (b.Unsigned && sb >= sa)
	switch {
	case size >= 8:
		if unsigned {
			return types.TULong
		}
		return types.TLong
	default:
		if unsigned {
			return types.TUInt
		}
		return types.TInt
	}
}

func intRank(t *types.Type) int {
	if t.Kind == types.Enum {
		return 4
	}
	return t.Size
}

func parseCast(c *ctx.Context) (*ast.Node, error) {
	if c.Peek(0).Kind == token.LPAREN && isTypeStart2(c) {
		pos := c.Pos0()
		c.Advance()
		_, base, err := parseDeclSpec(c)
		if err != nil {
			return nil, err
		}
		t := applyAbstractDeclarator(c, base)
		if !expect(c, token.RPAREN) {
			return nil, errors.New("expected ')' to close cast type")
		}
		if c.Peek(0).Kind == token.LBRACE {
			return parseCompoundLiteral(c, pos, t)
		}
		operand, err := parseCast(c)
		if err != nil {
			return nil, err
		}
		cast := &ast.Node{Kind: ast.Cast, Pos: pos, Lhs: operand, CastType: t, Type: t}
		if folded, ok := foldCast(cast); ok {
			return folded, nil
		}
		return cast, nil
	}
	return parseUnary(c)
}

// isTypeStart2 peeks one token past '(' to see whether a type specifier
// starts there -- the classic typedef-name / expression ambiguity a cast
// `(T)x` shares with a parenthesized expression `(x)` (spec.md §4.2).
func isTypeStart2(c *ctx.Context) bool {
	save := c.Pos
	c.Advance()
	ok := isTypeStart(c)
	c.Pos = save
	return ok
}

// applyAbstractDeclarator parses the pointer/array suffix of a type name
// with no identifier, as used in casts and sizeof(T).
func applyAbstractDeclarator(c *ctx.Context, base *types.Type) *types.Type {
	t := base
	for c.Peek(0).Kind == token.STAR {
		c.Advance()
		t = types.NewPointer(t)
	}
	for c.Peek(0).Kind == token.LBRACKET {
		c.Advance()
		n := 0
		hasLen := false
		if c.Peek(0).Kind != token.RBRACKET {
			if v, err := parseIntConstExpr(c); err == nil {
				n, hasLen = int(v), true
			}
		}
		expect(c, token.RBRACKET)
		t = types.NewArray(t, n, hasLen)
	}
	return t
}

func parseCompoundLiteral(c *ctx.Context, pos token.Pos, t *types.Type) (*ast.Node, error) {
	args, err := parseInitList(c)
	if err != nil {
		return nil, err
	}
	hidden := &ast.VarInfo{Name: "", Type: t}
	c.Cur.Declare(hidden)
	return &ast.Node{Kind: ast.CompoundLiteral, Pos: pos, Args: args, Hidden: hidden, Type: t}, nil
}

func parseInitList(c *ctx.Context) ([]*ast.Node, error) {
	if !expect(c, token.LBRACE) {
		return nil, errors.New("expected '{' to start initializer list")
	}
	var args []*ast.Node
	for c.Peek(0).Kind != token.RBRACE {
		e, err := parseAssignExpr(c)
		if err != nil {
			return nil, err
		}
		args = append(args, e)
		if c.Peek(0).Kind != token.COMMA {
			break
		}
		c.Advance()
	}
	if !expect(c, token.RBRACE) {
		return nil, errors.New("expected '}' to close initializer list")
	}
	return args, nil
}

func parseUnary(c *ctx.Context) (*ast.Node, error) {
	pos := c.Pos0()
	switch c.Peek(0).Kind {
	case token.PLUS:
		c.Advance()
		return parseCast(c)
	case token.MINUS:
		c.Advance()
		operand, err := parseCast(c)
		if err != nil {
			return nil, err
		}
		operand = decay(operand)
		n := &ast.Node{Kind: ast.Unary, Pos: pos, Op: ast.OpNeg, Lhs: operand, Type: operand.Type}
		if folded, ok := foldUnary(n); ok {
			return folded, nil
		}
		return n, nil
	case token.NOT:
		c.Advance()
		operand, err := parseCast(c)
		if err != nil {
			return nil, err
		}
		n := &ast.Node{Kind: ast.Unary, Pos: pos, Op: ast.OpNot, Lhs: decay(operand), Type: types.TInt}
		if folded, ok := foldUnary(n); ok {
			return folded, nil
		}
		return n, nil
	case token.TILDE:
		c.Advance()
		operand, err := parseCast(c)
		if err != nil {
			return nil, err
		}
		operand = decay(operand)
		n := &ast.Node{Kind: ast.Unary, Pos: pos, Op: ast.OpBitNot, Lhs: operand, Type: operand.Type}
		if folded, ok := foldUnary(n); ok {
			return folded, nil
		}
		return n, nil
	case token.STAR:
		c.Advance()
		operand, err := parseCast(c)
		if err != nil {
			return nil, err
		}
		operand = decay(operand)
		if !operand.Type.IsPointer() {
			c.Diags.Errorf(pos, "cannot dereference non-pointer type %s", operand.Type)
			return &ast.Node{Kind: ast.Deref, Pos: pos, Lhs: operand, Type: types.TInt}, nil
		}
		return &ast.Node{Kind: ast.Deref, Pos: pos, Lhs: operand, Type: operand.Type.Base()}, nil
	case token.AMP:
		c.Advance()
		operand, err := parseUnary(c) // no decay: `&arr` takes array's own address
		if err != nil {
			return nil, err
		}
		if !operand.IsLvalue() {
			c.Diags.Errorf(pos, "cannot take address of non-lvalue")
		}
		return &ast.Node{Kind: ast.Addr, Pos: pos, Lhs: operand, Type: types.NewPointer(operand.Type)}, nil
	case token.INC, token.DEC:
		op := c.Peek(0).Kind
		c.Advance()
		operand, err := parseUnary(c)
		if err != nil {
			return nil, err
		}
		if !operand.IsLvalue() {
			c.Diags.Errorf(pos, "operand of prefix %s must be an lvalue", op)
		}
		delta := ast.OpAdd
		if op == token.DEC {
			delta = ast.OpSub
		}
		return &ast.Node{Kind: ast.PreIncDec, Pos: pos, Op: delta, Lhs: operand, Type: operand.Type}, nil
	case token.KW_SIZEOF:
		c.Advance()
		return parseSizeof(c, pos)
	}
	return parsePostfix(c)
}

func parseSizeof(c *ctx.Context, pos token.Pos) (*ast.Node, error) {
	if c.Peek(0).Kind == token.LPAREN && isTypeStart2(c) {
		c.Advance()
		_, base, err := parseDeclSpec(c)
		if err != nil {
			return nil, err
		}
		t := applyAbstractDeclarator(c, base)
		if !expect(c, token.RPAREN) {
			return nil, errors.New("expected ')' after sizeof type")
		}
		return &ast.Node{Kind: ast.IntLit, Pos: pos, IntVal: int64(t.Sizeof()), Type: types.TULong}, nil
	}
	operand, err := parseUnary(c)
	if err != nil {
		return nil, err
	}
	return &ast.Node{Kind: ast.IntLit, Pos: pos, IntVal: int64(operand.Type.Sizeof()), Type: types.TULong}, nil
}

func parsePostfix(c *ctx.Context) (*ast.Node, error) {
	n, err := parsePrimary(c)
	if err != nil {
		return nil, err
	}
	for {
		pos := c.Pos0()
		switch c.Peek(0).Kind {
		case token.LBRACKET:
			c.Advance()
			idx, err := parseExpr(c)
			if err != nil {
				return nil, err
			}
			if !expect(c, token.RBRACKET) {
				return nil, errors.New("expected ']'")
			}
			sum, err := buildBinary(c, pos, ast.OpAdd, n, idx)
			if err != nil {
				return nil, err
			}
			n = &ast.Node{Kind: ast.Deref, Pos: pos, Lhs: sum, Type: sum.Type.Base()}
		case token.LPAREN:
			c.Advance()
			var args []*ast.Node
			for c.Peek(0).Kind != token.RPAREN {
				a, err := parseAssignExpr(c)
				if err != nil {
					return nil, err
				}
				args = append(args, a)
				if c.Peek(0).Kind != token.COMMA {
					break
				}
				c.Advance()
			}
			if !expect(c, token.RPAREN) {
				return nil, errors.New("expected ')' to close call")
			}
			retType := types.TInt
			if n.Type != nil && n.Type.Kind == types.Func {
				retType = n.Type.Ret
			}
			n = &ast.Node{Kind: ast.Call, Pos: pos, Callee: n, Args: args, Type: retType}
		case token.DOT, token.ARROW:
			isArrow := c.Peek(0).Kind == token.ARROW
			c.Advance()
			fieldPos := c.Pos0()
			field := c.Peek(0).Text
			if !expect(c, token.IDENT) {
				return nil, errors.New("expected member name")
			}
			target := n
			if isArrow {
				target = decay(n)
				target = &ast.Node{Kind: ast.Deref, Pos: pos, Lhs: target, Type: target.Type.Base()}
			}
			if target.Type == nil || !target.Type.IsAggregate() {
				c.Diags.Errorf(fieldPos, "member access on non-aggregate type")
				n = &ast.Node{Kind: ast.Member, Pos: pos, Lhs: target, Name: field, Type: types.TInt}
				continue
			}
			mi, ok := target.Type.FindMember(field)
			if !ok {
				c.Diags.Errorf(fieldPos, "no member named %q", field)
				n = &ast.Node{Kind: ast.Member, Pos: pos, Lhs: target, Name: field, Type: types.TInt}
				continue
			}
			n = &ast.Node{Kind: ast.Member, Pos: pos, Lhs: target, Name: field, MemberInfo: mi, Type: mi.Type}
		case token.INC, token.DEC:
			op := c.Peek(0).Kind
			c.Advance()
			if !n.IsLvalue() {
				c.Diags.Errorf(pos, "operand of postfix %s must be an lvalue", op)
			}
			delta := ast.OpAdd
			if op == token.DEC {
				delta = ast.OpSub
			}
			n = &ast.Node{Kind: ast.PostIncDec, Pos: pos, Op: delta, Lhs: n, Type: n.Type}
		default:
			return n, nil
		}
	}
}

func parsePrimary(c *ctx.Context) (*ast.Node, error) {
	t := c.Peek(0)
	pos := c.Pos0()
	switch t.Kind {
	case token.INT_LIT:
		c.Advance()
		ty := types.TInt
		if t.IntSuffix.Unsigned {
			ty = types.TUInt
		}
		if t.IntSuffix.Long {
			ty = types.TLong
			if t.IntSuffix.Unsigned {
				ty = types.TULong
			}
		}
		return &ast.Node{Kind: ast.IntLit, Pos: pos, IntVal: t.IntVal, Type: ty}, nil
	case token.FLOAT_LIT:
		c.Advance()
		ty := types.TDouble
		if t.IsSingle {
			ty = types.TFloat
		}
		return &ast.Node{Kind: ast.FloatLit, Pos: pos, FloatVal: t.FloatVal, Type: ty}, nil
	case token.CHAR_LIT:
		c.Advance()
		return &ast.Node{Kind: ast.IntLit, Pos: pos, IntVal: t.IntVal, Type: types.TChar}, nil
	case token.STRING_LIT:
		// Adjacent string literals are concatenated at parse time (spec.md
		// §4.1).
		c.Advance()
		s := t.StrVal
		for c.Peek(0).Kind == token.STRING_LIT {
			s += c.Peek(0).StrVal
			c.Advance()
		}
		idx := c.InternString(s)
		return &ast.Node{Kind: ast.StringLit, Pos: pos, StrVal: s, StringIdx: idx, Type: types.NewPointer(types.TChar)}, nil
	case token.IDENT:
		c.Advance()
		if v, ok := c.Cur.Lookup(t.Text); ok {
			if v.Storage == ast.StorageEnumMember {
				return &ast.Node{Kind: ast.IntLit, Pos: pos, IntVal: v.EnumValue, Type: v.Type}, nil
			}
			return &ast.Node{Kind: ast.VarRef, Pos: pos, Name: t.Text, Var: v, Type: v.Type}, nil
		}
		if sym, ok := c.Syms.Lookup(t.Text); ok && sym.Kind == ast.SymFunc {
			return &ast.Node{Kind: ast.VarRef, Pos: pos, Name: t.Text, Type: sym.FuncType}, nil
		}
		c.Diags.Errorf(pos, "undeclared identifier %q", t.Text)
		return &ast.Node{Kind: ast.VarRef, Pos: pos, Name: t.Text, Type: types.TInt}, nil
	case token.LPAREN:
		c.Advance()
		e, err := parseExpr(c)
		if err != nil {
			return nil, err
		}
		if !expect(c, token.RPAREN) {
			return nil, errors.New("expected ')'")
		}
		return e, nil
	}
	return nil, errors.Errorf("%s: unexpected token %s in expression", pos, t.Kind)
}
