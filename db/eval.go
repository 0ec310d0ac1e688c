package db

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/nickyhof/RouteDB/core"
	"github.com/nickyhof/RouteDB/sql"
)

// scope resolves column references while evaluating an expression.
type scope interface {
	lookup(name string) (any, error)
}

// recordScope reads columns of one record. Columns the table declares
// but the record never stored read as NULL.
type recordScope struct {
	table  *core.Table
	values map[string]any
	extra  map[string]any
}

func (s recordScope) lookup(name string) (any, error) {
	if s.table != nil && s.table.ColumnIndex(name) >= 0 {
		return s.values[name], nil
	}
	if value, ok := s.extra[name]; ok {
		return value, nil
	}
	if s.table == nil {
		return nil, fmt.Errorf("%w: %s (no table in scope)", ErrColumnNotFound, name)
	}
	return nil, fmt.Errorf("%w: %s.%s", ErrColumnNotFound, s.table.Name, name)
}

// emptyScope is used for INSERT values, which may not reference columns.
type emptyScope struct{}

func (emptyScope) lookup(name string) (any, error) {
	return nil, fmt.Errorf("%w: %s (column references are not allowed here)", ErrColumnNotFound, name)
}

// evaluate computes an expression with SQL three-valued logic: NULL is
// nil and propagates through operators.
func evaluate(expr sql.Expr, env scope) (any, error) {
	switch e := expr.(type) {
	case sql.Literal:
		return e.Value, nil
	case sql.ColumnRef:
		return env.lookup(e.Name)
	case sql.UnaryExpr:
		return evaluateUnary(e, env)
	case sql.BinaryExpr:
		return evaluateBinary(e, env)
	case sql.IsNullExpr:
		value, err := evaluate(e.Operand, env)
		if err != nil {
			return nil, err
		}
		return (value == nil) != e.Not, nil
	case sql.InExpr:
		return evaluateIn(e, env)
	case sql.LikeExpr:
		return evaluateLike(e, env)
	default:
		return nil, fmt.Errorf("%w: expression %s", ErrUnsupported, expr)
	}
}

func evaluateUnary(e sql.UnaryExpr, env scope) (any, error) {
	value, err := evaluate(e.Operand, env)
	if err != nil || value == nil {
		return nil, err
	}

	switch e.Op {
	case sql.Not:
		b, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: NOT %s", ErrTypeMismatch, core.Format(value))
		}
		return !b, nil
	case sql.Minus:
		switch v := value.(type) {
		case int64:
			return -v, nil
		case float64:
			return -v, nil
		}
		return nil, fmt.Errorf("%w: -%s", ErrTypeMismatch, core.Format(value))
	default:
		return nil, fmt.Errorf("%w: unary %s", ErrUnsupported, e.Op)
	}
}

func evaluateBinary(e sql.BinaryExpr, env scope) (any, error) {
	if e.Op == sql.And || e.Op == sql.Or {
		return evaluateLogical(e, env)
	}

	left, err := evaluate(e.Left, env)
	if err != nil {
		return nil, err
	}
	right, err := evaluate(e.Right, env)
	if err != nil {
		return nil, err
	}
	if left == nil || right == nil {
		return nil, nil
	}

	switch e.Op {
	case sql.Equals:
		return compareValues(left, right, func(c int) bool { return c == 0 }, true)
	case sql.NotEquals:
		return compareValues(left, right, func(c int) bool { return c != 0 }, true)
	case sql.LessThan:
		return compareValues(left, right, func(c int) bool { return c < 0 }, false)
	case sql.LessThanOrEqual:
		return compareValues(left, right, func(c int) bool { return c <= 0 }, false)
	case sql.GreaterThan:
		return compareValues(left, right, func(c int) bool { return c > 0 }, false)
	case sql.GreaterThanOrEqual:
		return compareValues(left, right, func(c int) bool { return c >= 0 }, false)
	case sql.Concat:
		return core.Format(left) + core.Format(right), nil
	case sql.Plus, sql.Minus, sql.Wildcard, sql.Slash, sql.Percent:
		return arithmetic(e.Op, left, right)
	default:
		return nil, fmt.Errorf("%w: operator %s", ErrUnsupported, e.Op)
	}
}

// compareValues applies an ordering predicate. Equality between values of
// different kinds is simply false; ordering them is a type error.
func compareValues(left, right any, predicate func(int) bool, equality bool) (any, error) {
	c, ok := core.Compare(left, right)
	if !ok {
		if equality {
			return predicate(1), nil
		}
		return nil, fmt.Errorf("%w: cannot compare %s with %s", ErrTypeMismatch, core.Format(left), core.Format(right))
	}
	return predicate(c), nil
}

func evaluateLogical(e sql.BinaryExpr, env scope) (any, error) {
	left, err := evaluateBool(e.Left, env)
	if err != nil {
		return nil, err
	}
	// Short-circuit where the result is already decided
	if left != nil {
		if e.Op == sql.And && !*left {
			return false, nil
		}
		if e.Op == sql.Or && *left {
			return true, nil
		}
	}

	right, err := evaluateBool(e.Right, env)
	if err != nil {
		return nil, err
	}
	if right != nil {
		if e.Op == sql.And && !*right {
			return false, nil
		}
		if e.Op == sql.Or && *right {
			return true, nil
		}
	}
	if left == nil || right == nil {
		return nil, nil
	}
	return *right, nil
}

func evaluateBool(expr sql.Expr, env scope) (*bool, error) {
	value, err := evaluate(expr, env)
	if err != nil || value == nil {
		return nil, err
	}
	b, ok := value.(bool)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a boolean", ErrTypeMismatch, core.Format(value))
	}
	return &b, nil
}

func arithmetic(operator sql.TokenType, left, right any) (any, error) {
	li, lInt := left.(int64)
	ri, rInt := right.(int64)
	if lInt && rInt {
		switch operator {
		case sql.Plus:
			return li + ri, nil
		case sql.Minus:
			return li - ri, nil
		case sql.Wildcard:
			return li * ri, nil
		case sql.Slash:
			if ri == 0 {
				return nil, ErrDivisionByZero
			}
			return li / ri, nil
		case sql.Percent:
			if ri == 0 {
				return nil, ErrDivisionByZero
			}
			return li % ri, nil
		}
	}

	lf, lok := toFloat(left)
	rf, rok := toFloat(right)
	if !lok || !rok {
		return nil, fmt.Errorf("%w: %s %s %s", ErrTypeMismatch, core.Format(left), operator, core.Format(right))
	}
	switch operator {
	case sql.Plus:
		return lf + rf, nil
	case sql.Minus:
		return lf - rf, nil
	case sql.Wildcard:
		return lf * rf, nil
	case sql.Slash:
		if rf == 0 {
			return nil, ErrDivisionByZero
		}
		return lf / rf, nil
	case sql.Percent:
		if rf == 0 {
			return nil, ErrDivisionByZero
		}
		return math.Mod(lf, rf), nil
	}
	return nil, fmt.Errorf("%w: operator %s", ErrUnsupported, operator)
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int64:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

func evaluateIn(e sql.InExpr, env scope) (any, error) {
	value, err := evaluate(e.Operand, env)
	if err != nil || value == nil {
		return nil, err
	}

	sawNull := false
	for _, item := range e.List {
		candidate, err := evaluate(item, env)
		if err != nil {
			return nil, err
		}
		if candidate == nil {
			sawNull = true
			continue
		}
		if core.Equal(value, candidate) {
			return !e.Not, nil
		}
	}
	if sawNull {
		return nil, nil
	}
	return e.Not, nil
}

func evaluateLike(e sql.LikeExpr, env scope) (any, error) {
	value, err := evaluate(e.Operand, env)
	if err != nil {
		return nil, err
	}
	pattern, err := evaluate(e.Pattern, env)
	if err != nil {
		return nil, err
	}
	if value == nil || pattern == nil {
		return nil, nil
	}

	s, ok := value.(string)
	p, pok := pattern.(string)
	if !ok || !pok {
		return nil, fmt.Errorf("%w: LIKE needs strings", ErrTypeMismatch)
	}
	return matchLike(s, p) != e.Not, nil
}

// matchLike matches SQL LIKE patterns case-insensitively: % is any run of
// characters and _ is exactly one.
func matchLike(value, pattern string) bool {
	if pattern == "%" {
		return true
	}

	var expr strings.Builder
	expr.WriteString("(?is)^")
	for _, r := range pattern {
		switch r {
		case '%':
			expr.WriteString(".*")
		case '_':
			expr.WriteString(".")
		default:
			expr.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	expr.WriteString("$")

	matched, err := regexp.MatchString(expr.String(), value)
	return err == nil && matched
}

// truthy reports whether a WHERE condition keeps the row. NULL does not.
func truthy(value any) (bool, error) {
	if value == nil {
		return false, nil
	}
	b, ok := value.(bool)
	if !ok {
		return false, fmt.Errorf("%w: condition %s is not a boolean", ErrTypeMismatch, core.Format(value))
	}
	return b, nil
}

// columnRefs lists the column names an expression reads.
func columnRefs(expr sql.Expr) []string {
	var names []string
	var walk func(sql.Expr)
	walk = func(expr sql.Expr) {
		switch e := expr.(type) {
		case sql.ColumnRef:
			names = append(names, e.Name)
		case sql.UnaryExpr:
			walk(e.Operand)
		case sql.BinaryExpr:
			walk(e.Left)
			walk(e.Right)
		case sql.IsNullExpr:
			walk(e.Operand)
		case sql.InExpr:
			walk(e.Operand)
			for _, item := range e.List {
				walk(item)
			}
		case sql.LikeExpr:
			walk(e.Operand)
			walk(e.Pattern)
		}
	}
	if expr != nil {
		walk(expr)
	}
	return names
}
