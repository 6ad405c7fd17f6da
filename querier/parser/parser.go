package parser

import (
	"fmt"
	"strconv"
	"time"

	"github.com/thisisjab/gelfpush/fault"
	"github.com/thisisjab/gelfpush/querier/ast"
	"github.com/thisisjab/gelfpush/querier/lexer"
	"github.com/thisisjab/gelfpush/querier/token"
)

// Parser turns a query string into an ast.Query. A query is a control
// section followed by an optional filter section after a colon:
//
//	timestamp=2021-04-17,2021-04-18 limit=100 sort=-timestamp : host=edge-1 & fields.ClientCountry=us,de
//
// Control fields are timestamp, limit, cursor, and sort. Filter expressions
// combine comparisons with & and |, negate with !, and group with
// parentheses. The ~= operator is a substring match.
type Parser struct {
	l         *lexer.Lexer
	curToken  token.Token
	peekToken token.Token
}

func New(l *lexer.Lexer) *Parser {
	p := &Parser{
		l: l,
	}

	p.nextToken()
	p.nextToken()

	return p
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) ParseQuery() (*ast.Query, error) {
	q := &ast.Query{}

	for p.curToken.Type != token.EOF && p.curToken.Type != token.COLON {
		if err := p.parseControlStatement(q); err != nil {
			return nil, err
		}
	}

	if p.curToken.Type == token.COLON {
		p.nextToken()

		node, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		q.Node = node

		if p.curToken.Type != token.EOF {
			return nil, badInput("unexpected `%s` after filter expression", p.curToken.Literal)
		}
	}

	return q, nil
}

func (p *Parser) parseControlStatement(q *ast.Query) error {
	if p.curToken.Type != token.IDENT {
		return badInput("expected a control field, got `%s`", p.curToken.Literal)
	}

	name := p.curToken.Literal

	if p.peekToken.Type != token.EQUAL {
		return badInput("expected `=` after `%s`", name)
	}

	p.nextToken()
	p.nextToken()

	switch name {
	case "timestamp":
		return p.parseTimestampControl(q)
	case "limit":
		return p.parseLimitControl(q)
	case "cursor":
		return p.parseCursorControl(q)
	case "sort":
		return p.parseSortControl(q)
	default:
		return badInput("unknown control field `%s`", name)
	}
}

func (p *Parser) parseTimestampControl(q *ast.Query) error {
	if p.curToken.Type != token.STRING {
		return badInput("expected a datetime after `timestamp=`, got `%s`", p.curToken.Literal)
	}

	start, err := parseDatetime(p.curToken.Literal)
	if err != nil {
		return badInput("%v", err)
	}
	q.Start = start
	p.nextToken()

	if p.curToken.Type != token.COMMA {
		return nil
	}
	p.nextToken()

	if p.curToken.Type != token.STRING {
		return badInput("expected a datetime after `,`, got `%s`", p.curToken.Literal)
	}

	end, err := parseDatetime(p.curToken.Literal)
	if err != nil {
		return badInput("%v", err)
	}
	q.End = end
	p.nextToken()

	return nil
}

func (p *Parser) parseLimitControl(q *ast.Query) error {
	if p.curToken.Type != token.INT {
		return badInput("expected an integer after `limit=`, got `%s`", p.curToken.Literal)
	}

	limit, err := strconv.Atoi(p.curToken.Literal)
	if err != nil {
		return badInput("limit `%s` is not a valid integer", p.curToken.Literal)
	}

	q.Limit = limit
	p.nextToken()

	return nil
}

func (p *Parser) parseCursorControl(q *ast.Query) error {
	if p.curToken.Type != token.STRING {
		return badInput("expected a quoted string after `cursor=`, got `%s`", p.curToken.Literal)
	}

	q.Cursor = p.curToken.Literal
	p.nextToken()

	return nil
}

func (p *Parser) parseSortControl(q *ast.Query) error {
	for {
		descending := false
		if p.curToken.Type == token.MINUS {
			descending = true
			p.nextToken()
		}

		if p.curToken.Type != token.IDENT {
			return badInput("expected a field name in `sort=`, got `%s`", p.curToken.Literal)
		}

		q.Sort = append(q.Sort, ast.SortField{Name: p.curToken.Literal, IsDescending: descending})
		p.nextToken()

		if p.curToken.Type != token.COMMA {
			return nil
		}
		p.nextToken()
	}
}

func (p *Parser) parseExpression() (ast.QueryNode, error) {
	return p.parseOr()
}

func (p *Parser) parseOr() (ast.QueryNode, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	if p.curToken.Type != token.OR {
		return left, nil
	}

	children := []ast.QueryNode{left}
	for p.curToken.Type == token.OR {
		p.nextToken()

		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		children = append(children, right)
	}

	return ast.OrNode{Children: children}, nil
}

func (p *Parser) parseAnd() (ast.QueryNode, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	if p.curToken.Type != token.AND {
		return left, nil
	}

	children := []ast.QueryNode{left}
	for p.curToken.Type == token.AND {
		p.nextToken()

		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		children = append(children, right)
	}

	return ast.AndNode{Children: children}, nil
}

func (p *Parser) parseUnary() (ast.QueryNode, error) {
	switch p.curToken.Type {
	case token.NOT:
		p.nextToken()
		child, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.NotNode{Child: child}, nil

	case token.LPAREN:
		p.nextToken()
		node, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if p.curToken.Type != token.RPAREN {
			return nil, badInput("expected `)`, got `%s`", p.curToken.Literal)
		}
		p.nextToken()
		return node, nil
	}

	return p.parseComparison()
}

func (p *Parser) parseComparison() (ast.QueryNode, error) {
	if p.curToken.Type != token.IDENT {
		return nil, badInput("expected a field name, got `%s`", p.curToken.Literal)
	}

	fieldName := p.curToken.Literal
	p.nextToken()

	var op ast.ComparisonOperator
	switch p.curToken.Type {
	case token.EQUAL:
		op = ast.OperatorEq
	case token.NOTEQUAL:
		op = ast.OperatorNe
	case token.GREATER:
		op = ast.OperatorGt
	case token.GREATEREQUAL:
		op = ast.OperatorGte
	case token.LESS:
		op = ast.OperatorLt
	case token.LESSEQUAL:
		op = ast.OperatorLte
	case token.TILDE:
		if p.peekToken.Type != token.EQUAL {
			return nil, badInput("expected `=` after `~`")
		}
		p.nextToken()
		op = ast.OperatorLike
	default:
		return nil, badInput("expected a comparison operator after `%s`, got `%s`", fieldName, p.curToken.Literal)
	}
	p.nextToken()

	value, err := p.parseLiteral()
	if err != nil {
		return nil, err
	}
	p.nextToken()

	// A comma after an equality value turns the comparison into a set
	// membership check: fields.ClientCountry=us,de
	if p.curToken.Type == token.COMMA {
		if op != ast.OperatorEq {
			return nil, badInput("value lists are only supported with `=`")
		}

		values := []any{value}
		for p.curToken.Type == token.COMMA {
			p.nextToken()

			v, err := p.parseLiteral()
			if err != nil {
				return nil, err
			}
			values = append(values, v)
			p.nextToken()
		}

		return ast.ComparisonNode{FieldName: fieldName, Value: values, Operator: ast.OperatorIn}, nil
	}

	return ast.ComparisonNode{FieldName: fieldName, Value: value, Operator: op}, nil
}

func (p *Parser) parseLiteral() (any, error) {
	switch p.curToken.Type {
	case token.INT:
		n, err := strconv.ParseInt(p.curToken.Literal, 10, 64)
		if err != nil {
			return nil, badInput("`%s` is not a valid integer", p.curToken.Literal)
		}
		return n, nil

	case token.DECIMAL:
		f, err := strconv.ParseFloat(p.curToken.Literal, 64)
		if err != nil {
			return nil, badInput("`%s` is not a valid number", p.curToken.Literal)
		}
		return f, nil

	case token.STRING, token.IDENT:
		return p.curToken.Literal, nil

	case token.TRUE:
		return true, nil

	case token.FALSE:
		return false, nil

	case token.MINUS:
		p.nextToken()
		switch p.curToken.Type {
		case token.INT:
			n, err := strconv.ParseInt(p.curToken.Literal, 10, 64)
			if err != nil {
				return nil, badInput("`%s` is not a valid integer", p.curToken.Literal)
			}
			return -n, nil
		case token.DECIMAL:
			f, err := strconv.ParseFloat(p.curToken.Literal, 64)
			if err != nil {
				return nil, badInput("`%s` is not a valid number", p.curToken.Literal)
			}
			return -f, nil
		}
		return nil, badInput("expected a number after `-`, got `%s`", p.curToken.Literal)
	}

	return nil, badInput("expected a value, got `%s`", p.curToken.Literal)
}

func parseDatetime(v string) (time.Time, error) {
	layouts := []string{
		time.RFC3339,          // Handles 2000-10-10T12:20:23Z or with offsets
		"2006-01-02T15:04:05", // 2000-10-10T12:20:23
		"2006-01-02T15:04",    // 2000-10-10T12:20
		"2006-01-02",          // 2000-10-10
	}

	var t time.Time
	var err error

	for _, layout := range layouts {
		t, err = time.Parse(layout, v)
		if err == nil {
			return t, nil
		}
	}

	// If no layouts matched, return the last error or a custom one
	return time.Time{}, fmt.Errorf("failed to parse datetime '%s': %w", v, err)
}

func badInput(format string, args ...any) error {
	return fault.New(fault.BadInputCode, fmt.Sprintf(format, args...))
}
