package sql

import (
	"strconv"
	"strings"
)

// Expr is a scalar expression in a WHERE clause, SET clause, VALUES row
// or select list.
type Expr interface {
	String() string
	expr()
}

// Literal holds nil, int64, float64, string or bool.
type Literal struct {
	Value any
}

type ColumnRef struct {
	Name string
}

// UnaryExpr is a prefix operator: Minus or Not.
type UnaryExpr struct {
	Op      TokenType
	Operand Expr
}

// BinaryExpr covers arithmetic, comparison, concatenation and the
// logical connectives.
type BinaryExpr struct {
	Op    TokenType
	Left  Expr
	Right Expr
}

type IsNullExpr struct {
	Operand Expr
	Not     bool
}

type InExpr struct {
	Operand Expr
	List    []Expr
	Not     bool
}

type LikeExpr struct {
	Operand Expr
	Pattern Expr
	Not     bool
}

func (Literal) expr()    {}
func (ColumnRef) expr()  {}
func (UnaryExpr) expr()  {}
func (BinaryExpr) expr() {}
func (IsNullExpr) expr() {}
func (InExpr) expr()     {}
func (LikeExpr) expr()   {}

func (literal Literal) String() string {
	switch v := literal.Value.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	default:
		return "?"
	}
}

func (column ColumnRef) String() string {
	return column.Name
}

func (unary UnaryExpr) String() string {
	if unary.Op == Not {
		return "NOT " + unary.Operand.String()
	}
	return unary.Op.String() + unary.Operand.String()
}

func (binary BinaryExpr) String() string {
	return wrap(binary.Left, binary.Op) + " " + binary.Op.String() + " " + wrap(binary.Right, binary.Op)
}

func (isNull IsNullExpr) String() string {
	if isNull.Not {
		return isNull.Operand.String() + " IS NOT NULL"
	}
	return isNull.Operand.String() + " IS NULL"
}

func (in InExpr) String() string {
	items := make([]string, len(in.List))
	for i, item := range in.List {
		items[i] = item.String()
	}
	op := " IN ("
	if in.Not {
		op = " NOT IN ("
	}
	return in.Operand.String() + op + strings.Join(items, ", ") + ")"
}

func (like LikeExpr) String() string {
	op := " LIKE "
	if like.Not {
		op = " NOT LIKE "
	}
	return like.Operand.String() + op + like.Pattern.String()
}

// wrap parenthesizes a child binary expression that binds looser than
// its parent so String round-trips through the parser.
func wrap(child Expr, parent TokenType) string {
	if binary, ok := child.(BinaryExpr); ok && precedence(binary.Op) < precedence(parent) {
		return "(" + binary.String() + ")"
	}
	return child.String()
}

func precedence(op TokenType) int {
	switch op {
	case Or:
		return 1
	case And:
		return 2
	case Equals, NotEquals, LessThan, GreaterThan, LessThanOrEqual, GreaterThanOrEqual:
		return 4
	case Plus, Minus, Concat:
		return 5
	case Wildcard, Slash, Percent:
		return 6
	default:
		return 0
	}
}
