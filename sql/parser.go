package sql

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/nickyhof/RouteDB/core"
)

type StatementType int

const (
	SelectStatementType StatementType = iota
	InsertStatementType
	UpdateStatementType
	DeleteStatementType
	CreateTableStatementType
	DropTableStatementType
	AlterTableStatementType
	ShowTablesStatementType
	ShowColumnsStatementType
	ShowVersionStatementType
)

func (statementType StatementType) String() string {
	switch statementType {
	case SelectStatementType:
		return "SELECT"
	case InsertStatementType:
		return "INSERT"
	case UpdateStatementType:
		return "UPDATE"
	case DeleteStatementType:
		return "DELETE"
	case CreateTableStatementType:
		return "CREATE TABLE"
	case DropTableStatementType:
		return "DROP TABLE"
	case AlterTableStatementType:
		return "ALTER TABLE"
	case ShowTablesStatementType:
		return "SHOW TABLES"
	case ShowColumnsStatementType:
		return "SHOW COLUMNS"
	case ShowVersionStatementType:
		return "SHOW VERSION"
	default:
		return "UNKNOWN"
	}
}

// Statement is one classified SQL statement. SQL returns the statement
// text as submitted and Tables the names of the tables it references.
type Statement interface {
	Type() StatementType
	SQL() string
	Tables() []string
}

type SelectItem struct {
	Star  bool
	Expr  Expr
	Alias string
}

// Label is the result column name for a non-star item.
func (item SelectItem) Label() string {
	if item.Alias != "" {
		return item.Alias
	}
	return item.Expr.String()
}

type OrderByClause struct {
	Expr       Expr
	Descending bool
}

type SelectStatement struct {
	Text    string
	Table   string
	Items   []SelectItem
	Where   Expr
	OrderBy []OrderByClause
	Limit   int
	Offset  int
}

type InsertStatement struct {
	Text    string
	Table   string
	Columns []string
	Rows    [][]Expr
}

type SetClause struct {
	Column string
	Value  Expr
}

type UpdateStatement struct {
	Text    string
	Table   string
	Updates []SetClause
	Where   Expr
}

type DeleteStatement struct {
	Text  string
	Table string
	Where Expr
}

type CreateTableStatement struct {
	Text        string
	Table       string
	Columns     []core.Column
	Schemaless  bool
	IfNotExists bool
	// Engine is the ENGINE = name directive, empty when absent.
	Engine     string
	engineSpan [2]int
}

type DropTableStatement struct {
	Text     string
	Table    string
	IfExists bool
}

type AlterAction int

const (
	AlterRenameTable AlterAction = iota
	AlterAddColumn
	AlterDropColumn
)

type AlterTableStatement struct {
	Text       string
	Table      string
	Action     AlterAction
	NewName    string
	Column     core.Column
	ColumnName string
}

type ShowTablesStatement struct {
	Text string
}

type ShowColumnsStatement struct {
	Text  string
	Table string
}

type ShowVersionStatement struct {
	Text string
}

func (s SelectStatement) Type() StatementType      { return SelectStatementType }
func (s InsertStatement) Type() StatementType      { return InsertStatementType }
func (s UpdateStatement) Type() StatementType      { return UpdateStatementType }
func (s DeleteStatement) Type() StatementType      { return DeleteStatementType }
func (s CreateTableStatement) Type() StatementType { return CreateTableStatementType }
func (s DropTableStatement) Type() StatementType   { return DropTableStatementType }
func (s AlterTableStatement) Type() StatementType  { return AlterTableStatementType }
func (s ShowTablesStatement) Type() StatementType  { return ShowTablesStatementType }
func (s ShowColumnsStatement) Type() StatementType { return ShowColumnsStatementType }
func (s ShowVersionStatement) Type() StatementType { return ShowVersionStatementType }

func (s SelectStatement) SQL() string      { return s.Text }
func (s InsertStatement) SQL() string      { return s.Text }
func (s UpdateStatement) SQL() string      { return s.Text }
func (s DeleteStatement) SQL() string      { return s.Text }
func (s CreateTableStatement) SQL() string { return s.Text }
func (s DropTableStatement) SQL() string   { return s.Text }
func (s AlterTableStatement) SQL() string  { return s.Text }
func (s ShowTablesStatement) SQL() string  { return s.Text }
func (s ShowColumnsStatement) SQL() string { return s.Text }
func (s ShowVersionStatement) SQL() string { return s.Text }

func (s SelectStatement) Tables() []string {
	if s.Table == "" {
		return nil
	}
	return []string{s.Table}
}

func (s InsertStatement) Tables() []string      { return []string{s.Table} }
func (s UpdateStatement) Tables() []string      { return []string{s.Table} }
func (s DeleteStatement) Tables() []string      { return []string{s.Table} }
func (s CreateTableStatement) Tables() []string { return []string{s.Table} }
func (s DropTableStatement) Tables() []string   { return []string{s.Table} }
func (s AlterTableStatement) Tables() []string  { return []string{s.Table} }
func (s ShowTablesStatement) Tables() []string  { return nil }
func (s ShowColumnsStatement) Tables() []string { return []string{s.Table} }
func (s ShowVersionStatement) Tables() []string { return nil }

// Body returns the statement text without its ENGINE clause, for engines
// that hand the SQL to another database.
func (s CreateTableStatement) Body() string {
	if s.engineSpan[1] == 0 {
		return s.Text
	}
	return strings.TrimSpace(s.Text[:s.engineSpan[0]] + s.Text[s.engineSpan[1]:])
}

type Parser struct {
	lexer *Lexer
	text  string
}

func NewParser(sql string) *Parser {
	text := strings.TrimSpace(sql)
	for strings.HasSuffix(text, ";") {
		text = strings.TrimSpace(strings.TrimSuffix(text, ";"))
	}
	return &Parser{lexer: NewLexer(text), text: text}
}

// Parse classifies a single statement.
func Parse(sql string) (Statement, error) {
	return NewParser(sql).Parse()
}

func (parser *Parser) Parse() (Statement, error) {
	var statement Statement
	var err error

	token := parser.lexer.NextToken()
	switch token.Type {
	case Select:
		statement, err = ParseSelect(parser)
	case Insert:
		statement, err = ParseInsert(parser)
	case Update:
		statement, err = ParseUpdate(parser)
	case Delete:
		statement, err = ParseDelete(parser)
	case Create:
		statement, err = ParseCreateTable(parser)
	case Drop:
		statement, err = ParseDropTable(parser)
	case Alter:
		statement, err = ParseAlter(parser)
	case Show:
		statement, err = ParseShow(parser)
	case EOF:
		return nil, errors.New("empty statement")
	default:
		return nil, fmt.Errorf("unknown statement type: %s", token)
	}
	if err != nil {
		return nil, err
	}

	token = parser.lexer.NextToken()
	if token.Type != EOF {
		return nil, fmt.Errorf("unexpected %s after statement", token)
	}

	return statement, nil
}

func (parser *Parser) accept(tokenType TokenType) bool {
	if parser.lexer.PeekToken().Type == tokenType {
		parser.lexer.NextToken()
		return true
	}
	return false
}

func (parser *Parser) expect(tokenType TokenType, context string) (Token, error) {
	token := parser.lexer.NextToken()
	if token.Type != tokenType {
		return token, fmt.Errorf("expected %s %s, got %s", tokenType, context, token)
	}
	return token, nil
}

func (parser *Parser) tableName(context string) (string, error) {
	token := parser.lexer.NextToken()
	if token.Type != Identifier {
		return "", fmt.Errorf("expected table name %s, got %s", context, token)
	}
	return token.Value, nil
}

// columnName also accepts keywords, since a column position is never
// ambiguous with a keyword once the surrounding clause is known.
func (parser *Parser) columnName(context string) (string, error) {
	token := parser.lexer.NextToken()
	if !token.IsWord() {
		return "", fmt.Errorf("expected column name %s, got %s", context, token)
	}
	return token.Value, nil
}

func ParseSelect(parser *Parser) (Statement, error) {
	selectStatement := SelectStatement{Text: parser.text, Limit: -1}

	for {
		if parser.accept(Wildcard) {
			selectStatement.Items = append(selectStatement.Items, SelectItem{Star: true})
		} else {
			expr, err := parseExpr(parser)
			if err != nil {
				return nil, err
			}
			item := SelectItem{Expr: expr}
			if parser.accept(As) {
				alias, err := parser.columnName("after AS")
				if err != nil {
					return nil, err
				}
				item.Alias = alias
			} else if next := parser.lexer.PeekToken(); next.Type == Identifier {
				parser.lexer.NextToken()
				item.Alias = next.Value
			}
			selectStatement.Items = append(selectStatement.Items, item)
		}

		if !parser.accept(Comma) {
			break
		}
	}

	if parser.accept(From) {
		table, err := parser.tableName("after FROM")
		if err != nil {
			return nil, err
		}
		selectStatement.Table = table
	}

	if parser.accept(Where) {
		where, err := parseExpr(parser)
		if err != nil {
			return nil, err
		}
		selectStatement.Where = where
	}

	if parser.accept(Order) {
		if _, err := parser.expect(By, "after ORDER"); err != nil {
			return nil, err
		}
		for {
			expr, err := parseExpr(parser)
			if err != nil {
				return nil, err
			}
			clause := OrderByClause{Expr: expr}
			if parser.accept(Desc) {
				clause.Descending = true
			} else {
				parser.accept(Asc)
			}
			selectStatement.OrderBy = append(selectStatement.OrderBy, clause)
			if !parser.accept(Comma) {
				break
			}
		}
	}

	if parser.accept(Limit) {
		limit, err := parseCount(parser, "after LIMIT")
		if err != nil {
			return nil, err
		}
		selectStatement.Limit = limit
	}

	if parser.accept(Offset) {
		offset, err := parseCount(parser, "after OFFSET")
		if err != nil {
			return nil, err
		}
		selectStatement.Offset = offset
	}

	return selectStatement, nil
}

func parseCount(parser *Parser, context string) (int, error) {
	token, err := parser.expect(Int, context)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(token.Value)
	if err != nil {
		return 0, fmt.Errorf("invalid number %s: %w", token.Value, err)
	}
	return n, nil
}

func ParseInsert(parser *Parser) (Statement, error) {
	insertStatement := InsertStatement{Text: parser.text}

	if _, err := parser.expect(Into, "after INSERT"); err != nil {
		return nil, err
	}

	table, err := parser.tableName("after INSERT INTO")
	if err != nil {
		return nil, err
	}
	insertStatement.Table = table

	if parser.accept(ParenOpen) {
		for {
			column, err := parser.columnName("in column list")
			if err != nil {
				return nil, err
			}
			insertStatement.Columns = append(insertStatement.Columns, column)

			token := parser.lexer.NextToken()
			if token.Type == Comma {
				continue
			} else if token.Type == ParenClose {
				break
			}
			return nil, errors.New("expected ',' or ')' in column list")
		}
	}

	if _, err := parser.expect(Values, "after table name"); err != nil {
		return nil, err
	}

	for {
		if _, err := parser.expect(ParenOpen, "before values"); err != nil {
			return nil, err
		}

		var row []Expr
		for {
			value, err := parseExpr(parser)
			if err != nil {
				return nil, err
			}
			row = append(row, value)

			token := parser.lexer.NextToken()
			if token.Type == Comma {
				continue
			} else if token.Type == ParenClose {
				break
			}
			return nil, errors.New("expected ',' or ')' in values list")
		}
		insertStatement.Rows = append(insertStatement.Rows, row)

		if !parser.accept(Comma) {
			break
		}
	}

	return insertStatement, nil
}

func ParseUpdate(parser *Parser) (Statement, error) {
	updateStatement := UpdateStatement{Text: parser.text}

	table, err := parser.tableName("after UPDATE")
	if err != nil {
		return nil, err
	}
	updateStatement.Table = table

	if _, err := parser.expect(Set, "after table name"); err != nil {
		return nil, err
	}

	for {
		column, err := parser.columnName("in SET clause")
		if err != nil {
			return nil, err
		}

		if _, err := parser.expect(Equals, "in SET clause"); err != nil {
			return nil, err
		}

		value, err := parseExpr(parser)
		if err != nil {
			return nil, err
		}

		updateStatement.Updates = append(updateStatement.Updates, SetClause{
			Column: column,
			Value:  value,
		})

		if !parser.accept(Comma) {
			break
		}
	}

	if parser.accept(Where) {
		where, err := parseExpr(parser)
		if err != nil {
			return nil, err
		}
		updateStatement.Where = where
	}

	return updateStatement, nil
}

func ParseDelete(parser *Parser) (Statement, error) {
	deleteStatement := DeleteStatement{Text: parser.text}

	if _, err := parser.expect(From, "after DELETE"); err != nil {
		return nil, err
	}

	table, err := parser.tableName("after DELETE FROM")
	if err != nil {
		return nil, err
	}
	deleteStatement.Table = table

	if parser.accept(Where) {
		where, err := parseExpr(parser)
		if err != nil {
			return nil, err
		}
		deleteStatement.Where = where
	}

	return deleteStatement, nil
}

// ParseCreateTable parses:
// CREATE TABLE [IF NOT EXISTS] name [(column type [PRIMARY KEY] [NOT NULL], ...)] [ENGINE = name]
func ParseCreateTable(parser *Parser) (Statement, error) {
	createTableStatement := CreateTableStatement{Text: parser.text}

	if _, err := parser.expect(TableIdentifier, "after CREATE"); err != nil {
		return nil, err
	}

	if parser.accept(If) {
		if _, err := parser.expect(Not, "after IF"); err != nil {
			return nil, err
		}
		if _, err := parser.expect(Exists, "after IF NOT"); err != nil {
			return nil, err
		}
		createTableStatement.IfNotExists = true
	}

	table, err := parser.tableName("after TABLE")
	if err != nil {
		return nil, err
	}
	createTableStatement.Table = table

	if !parser.accept(ParenOpen) {
		createTableStatement.Schemaless = true
	} else if parser.accept(ParenClose) {
		createTableStatement.Schemaless = true
	} else {
		for {
			column, err := parseColumnDefinition(parser)
			if err != nil {
				return nil, err
			}
			for _, existing := range createTableStatement.Columns {
				if existing.Name == column.Name {
					return nil, fmt.Errorf("duplicate column name %s", column.Name)
				}
			}
			createTableStatement.Columns = append(createTableStatement.Columns, column)

			token := parser.lexer.NextToken()
			if token.Type == Comma {
				continue
			} else if token.Type == ParenClose {
				break
			}
			return nil, errors.New("expected ',' or ')' in column list")
		}
	}

	if parser.lexer.PeekToken().Type == Engine {
		engineToken := parser.lexer.NextToken()
		parser.accept(Equals)
		nameToken := parser.lexer.NextToken()
		if nameToken.Type != Identifier && nameToken.Type != String {
			return nil, fmt.Errorf("expected engine name after ENGINE, got %s", nameToken)
		}
		createTableStatement.Engine = nameToken.Value
		createTableStatement.engineSpan = [2]int{engineToken.Pos, nameToken.End}
	}

	return createTableStatement, nil
}

func parseColumnDefinition(parser *Parser) (core.Column, error) {
	name, err := parser.columnName("in column list")
	if err != nil {
		return core.Column{}, err
	}

	token := parser.lexer.NextToken()
	columnType, ok := core.ParseColumnType(token.Value)
	if !token.IsWord() || !ok {
		return core.Column{}, fmt.Errorf("expected column type (INTEGER, FLOAT, BOOLEAN, STRING, TEXT, TIMESTAMP) for %s, got %s", name, token)
	}

	// Length and precision arguments such as VARCHAR(255) are accepted
	// and ignored.
	if parser.accept(ParenOpen) {
		for {
			token := parser.lexer.NextToken()
			if token.Type == ParenClose {
				break
			}
			if token.Type != Int && token.Type != Comma {
				return core.Column{}, fmt.Errorf("unexpected %s in type arguments", token)
			}
		}
	}

	column := core.Column{Name: name, Type: columnType}
	for {
		switch parser.lexer.PeekToken().Type {
		case Primary:
			parser.lexer.NextToken()
			if _, err := parser.expect(Key, "after PRIMARY"); err != nil {
				return core.Column{}, err
			}
			column.PrimaryKey = true
			column.NotNull = true
		case Not:
			parser.lexer.NextToken()
			if _, err := parser.expect(Null, "after NOT"); err != nil {
				return core.Column{}, err
			}
			column.NotNull = true
		case Null:
			parser.lexer.NextToken()
		default:
			return column, nil
		}
	}
}

func ParseDropTable(parser *Parser) (Statement, error) {
	dropTableStatement := DropTableStatement{Text: parser.text}

	if _, err := parser.expect(TableIdentifier, "after DROP"); err != nil {
		return nil, err
	}

	if parser.accept(If) {
		if _, err := parser.expect(Exists, "after IF"); err != nil {
			return nil, err
		}
		dropTableStatement.IfExists = true
	}

	table, err := parser.tableName("after TABLE")
	if err != nil {
		return nil, err
	}
	dropTableStatement.Table = table

	return dropTableStatement, nil
}

func ParseShow(parser *Parser) (Statement, error) {
	token := parser.lexer.NextToken()
	switch token.Type {
	case TablesIdentifier:
		return ShowTablesStatement{Text: parser.text}, nil
	case ColumnsIdentifier:
		if !parser.accept(From) && !parser.accept(In) {
			return nil, errors.New("expected FROM after COLUMNS")
		}
		table, err := parser.tableName("after FROM")
		if err != nil {
			return nil, err
		}
		return ShowColumnsStatement{Text: parser.text, Table: table}, nil
	case Version:
		return ShowVersionStatement{Text: parser.text}, nil
	default:
		return nil, errors.New("expected TABLES, COLUMNS or VERSION after SHOW")
	}
}

// ParseAlter parses ALTER TABLE statements
func ParseAlter(parser *Parser) (Statement, error) {
	alterStatement := AlterTableStatement{Text: parser.text}

	if _, err := parser.expect(TableIdentifier, "after ALTER"); err != nil {
		return nil, err
	}

	table, err := parser.tableName("after TABLE")
	if err != nil {
		return nil, err
	}
	alterStatement.Table = table

	token := parser.lexer.NextToken()
	switch token.Type {
	case Rename:
		if _, err := parser.expect(To, "after RENAME"); err != nil {
			return nil, err
		}
		newName, err := parser.tableName("after RENAME TO")
		if err != nil {
			return nil, err
		}
		alterStatement.Action = AlterRenameTable
		alterStatement.NewName = newName
	case Add:
		parser.accept(ColumnIdentifier)
		column, err := parseColumnDefinition(parser)
		if err != nil {
			return nil, err
		}
		alterStatement.Action = AlterAddColumn
		alterStatement.Column = column
	case Drop:
		parser.accept(ColumnIdentifier)
		column, err := parser.columnName("after DROP COLUMN")
		if err != nil {
			return nil, err
		}
		alterStatement.Action = AlterDropColumn
		alterStatement.ColumnName = column
	default:
		return nil, errors.New("expected RENAME, ADD or DROP after table name")
	}

	return alterStatement, nil
}

func parseExpr(parser *Parser) (Expr, error) {
	return parseOr(parser)
}

func parseOr(parser *Parser) (Expr, error) {
	left, err := parseAnd(parser)
	if err != nil {
		return nil, err
	}
	for parser.accept(Or) {
		right, err := parseAnd(parser)
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: Or, Left: left, Right: right}
	}
	return left, nil
}

func parseAnd(parser *Parser) (Expr, error) {
	left, err := parseNot(parser)
	if err != nil {
		return nil, err
	}
	for parser.accept(And) {
		right, err := parseNot(parser)
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: And, Left: left, Right: right}
	}
	return left, nil
}

func parseNot(parser *Parser) (Expr, error) {
	if parser.accept(Not) {
		operand, err := parseNot(parser)
		if err != nil {
			return nil, err
		}
		return UnaryExpr{Op: Not, Operand: operand}, nil
	}
	return parseComparison(parser)
}

func parseComparison(parser *Parser) (Expr, error) {
	left, err := parseAdditive(parser)
	if err != nil {
		return nil, err
	}

	token := parser.lexer.PeekToken()
	switch token.Type {
	case Equals, NotEquals, LessThan, GreaterThan, LessThanOrEqual, GreaterThanOrEqual:
		parser.lexer.NextToken()
		right, err := parseAdditive(parser)
		if err != nil {
			return nil, err
		}
		return BinaryExpr{Op: token.Type, Left: left, Right: right}, nil
	case Is:
		parser.lexer.NextToken()
		not := parser.accept(Not)
		if _, err := parser.expect(Null, "after IS"); err != nil {
			return nil, err
		}
		return IsNullExpr{Operand: left, Not: not}, nil
	case Not:
		saved := *parser.lexer
		parser.lexer.NextToken()
		next := parser.lexer.PeekToken().Type
		if next != In && next != Like {
			*parser.lexer = saved
			return left, nil
		}
		return parsePostfix(parser, left, true)
	case In, Like:
		return parsePostfix(parser, left, false)
	}

	return left, nil
}

func parsePostfix(parser *Parser, operand Expr, not bool) (Expr, error) {
	token := parser.lexer.NextToken()
	if token.Type == Like {
		pattern, err := parseAdditive(parser)
		if err != nil {
			return nil, err
		}
		return LikeExpr{Operand: operand, Pattern: pattern, Not: not}, nil
	}

	if _, err := parser.expect(ParenOpen, "after IN"); err != nil {
		return nil, err
	}
	in := InExpr{Operand: operand, Not: not}
	for {
		item, err := parseExpr(parser)
		if err != nil {
			return nil, err
		}
		in.List = append(in.List, item)

		token := parser.lexer.NextToken()
		if token.Type == Comma {
			continue
		} else if token.Type == ParenClose {
			break
		}
		return nil, errors.New("expected ',' or ')' in IN list")
	}
	return in, nil
}

func parseAdditive(parser *Parser) (Expr, error) {
	left, err := parseMultiplicative(parser)
	if err != nil {
		return nil, err
	}
	for {
		token := parser.lexer.PeekToken()
		if token.Type != Plus && token.Type != Minus && token.Type != Concat {
			return left, nil
		}
		parser.lexer.NextToken()
		right, err := parseMultiplicative(parser)
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: token.Type, Left: left, Right: right}
	}
}

func parseMultiplicative(parser *Parser) (Expr, error) {
	left, err := parseUnary(parser)
	if err != nil {
		return nil, err
	}
	for {
		token := parser.lexer.PeekToken()
		if token.Type != Wildcard && token.Type != Slash && token.Type != Percent {
			return left, nil
		}
		parser.lexer.NextToken()
		right, err := parseUnary(parser)
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: token.Type, Left: left, Right: right}
	}
}

func parseUnary(parser *Parser) (Expr, error) {
	if parser.accept(Minus) {
		operand, err := parseUnary(parser)
		if err != nil {
			return nil, err
		}
		if literal, ok := operand.(Literal); ok {
			switch v := literal.Value.(type) {
			case int64:
				return Literal{Value: -v}, nil
			case float64:
				return Literal{Value: -v}, nil
			}
		}
		return UnaryExpr{Op: Minus, Operand: operand}, nil
	}
	if parser.accept(Plus) {
		return parseUnary(parser)
	}
	return parsePrimary(parser)
}

func parsePrimary(parser *Parser) (Expr, error) {
	token := parser.lexer.NextToken()
	switch token.Type {
	case Int:
		value, err := strconv.ParseInt(token.Value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("integer out of range: %s", token.Value)
		}
		return Literal{Value: value}, nil
	case Float:
		value, err := strconv.ParseFloat(token.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float: %s", token.Value)
		}
		return Literal{Value: value}, nil
	case String:
		return Literal{Value: token.Value}, nil
	case True:
		return Literal{Value: true}, nil
	case False:
		return Literal{Value: false}, nil
	case Null:
		return Literal{Value: nil}, nil
	case Identifier:
		return ColumnRef{Name: token.Value}, nil
	case ParenOpen:
		expr, err := parseExpr(parser)
		if err != nil {
			return nil, err
		}
		if _, err := parser.expect(ParenClose, "after expression"); err != nil {
			return nil, err
		}
		return expr, nil
	default:
		return nil, fmt.Errorf("unexpected %s in expression", token)
	}
}
