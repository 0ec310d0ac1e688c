package router

import (
	"bytes"
	"encoding/json"

	"github.com/nickyhof/RouteDB/db"
	"github.com/nickyhof/RouteDB/sql"
)

// Payload is the canonical result of one statement. Kind names the
// variant the way the JSON "type" field does.
type Payload interface {
	Kind() string
}

type CreateTable struct{}

type DropTable struct{}

type AlterTable struct{}

type Insert struct {
	Affected int
}

type Update struct {
	Affected int
}

type Delete struct {
	Affected int
}

// Select holds the rows of a query. Labels keeps the column order even
// when there are no rows.
type Select struct {
	Labels []string
	Rows   []Row
}

type ShowTables struct {
	Tables []string
}

type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type ShowColumns struct {
	Columns []ColumnInfo
}

type ShowVersion struct {
	Version string
}

func (CreateTable) Kind() string { return "CREATE TABLE" }
func (DropTable) Kind() string   { return "DROP TABLE" }
func (AlterTable) Kind() string  { return "ALTER TABLE" }
func (Insert) Kind() string      { return "INSERT" }
func (Update) Kind() string      { return "UPDATE" }
func (Delete) Kind() string      { return "DELETE" }
func (Select) Kind() string      { return "SELECT" }
func (ShowTables) Kind() string  { return "SHOW TABLES" }
func (ShowColumns) Kind() string { return "SHOW COLUMNS" }
func (ShowVersion) Kind() string { return "SHOW VERSION" }

type typeOnly struct {
	Type string `json:"type"`
}

type affectedJSON struct {
	Type     string `json:"type"`
	Affected int    `json:"affected"`
}

func (p CreateTable) MarshalJSON() ([]byte, error) { return json.Marshal(typeOnly{p.Kind()}) }
func (p DropTable) MarshalJSON() ([]byte, error)   { return json.Marshal(typeOnly{p.Kind()}) }
func (p AlterTable) MarshalJSON() ([]byte, error)  { return json.Marshal(typeOnly{p.Kind()}) }

func (p Insert) MarshalJSON() ([]byte, error) { return json.Marshal(affectedJSON{p.Kind(), p.Affected}) }
func (p Update) MarshalJSON() ([]byte, error) { return json.Marshal(affectedJSON{p.Kind(), p.Affected}) }
func (p Delete) MarshalJSON() ([]byte, error) { return json.Marshal(affectedJSON{p.Kind(), p.Affected}) }

func (p Select) MarshalJSON() ([]byte, error) {
	rows := p.Rows
	if rows == nil {
		rows = []Row{}
	}
	return json.Marshal(struct {
		Type string `json:"type"`
		Rows []Row  `json:"rows"`
	}{p.Kind(), rows})
}

func (p ShowTables) MarshalJSON() ([]byte, error) {
	tables := p.Tables
	if tables == nil {
		tables = []string{}
	}
	return json.Marshal(struct {
		Type   string   `json:"type"`
		Tables []string `json:"tables"`
	}{p.Kind(), tables})
}

func (p ShowColumns) MarshalJSON() ([]byte, error) {
	columns := p.Columns
	if columns == nil {
		columns = []ColumnInfo{}
	}
	return json.Marshal(struct {
		Type    string       `json:"type"`
		Columns []ColumnInfo `json:"columns"`
	}{p.Kind(), columns})
}

func (p ShowVersion) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    string `json:"type"`
		Version string `json:"version"`
	}{p.Kind(), p.Version})
}

// Field is one column of a Row.
type Field struct {
	Key   string
	Value any
}

// Row maps column labels to values and keeps column order.
type Row []Field

// Get returns the value under key.
func (row Row) Get(key string) (any, bool) {
	for _, field := range row {
		if field.Key == key {
			return field.Value, true
		}
	}
	return nil, false
}

// Map converts the row to a plain map, losing order.
func (row Row) Map() map[string]any {
	m := make(map[string]any, len(row))
	for _, field := range row {
		m[field.Key] = field.Value
	}
	return m
}

func (row Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range row {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(field.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		value, err := json.Marshal(field.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (row Row) String() string {
	b, _ := row.MarshalJSON()
	return string(b)
}

// Build turns an engine's raw result into the payload for statement.
// A result whose shape does not match the statement kind is a
// KindMalformedResult error; it is never coerced.
func Build(statement sql.Statement, result db.Result) (Payload, error) {
	switch statement.Type() {
	case sql.CreateTableStatementType, sql.DropTableStatementType, sql.AlterTableStatementType,
		sql.InsertStatementType, sql.UpdateStatementType, sql.DeleteStatementType:
		commit, err := expect[*db.CommitResult](statement, result)
		if err != nil {
			return nil, err
		}
		return buildCommit(statement.Type(), commit)

	case sql.SelectStatementType:
		query, err := expect[*db.QueryResult](statement, result)
		if err != nil {
			return nil, err
		}
		return buildSelect(query)

	case sql.ShowTablesStatementType:
		tables, err := expect[*db.TablesResult](statement, result)
		if err != nil {
			return nil, err
		}
		return ShowTables{Tables: append([]string{}, tables.Tables...)}, nil

	case sql.ShowColumnsStatementType:
		columns, err := expect[*db.ColumnsResult](statement, result)
		if err != nil {
			return nil, err
		}
		payload := ShowColumns{Columns: make([]ColumnInfo, len(columns.Columns))}
		for i, column := range columns.Columns {
			payload.Columns[i] = ColumnInfo{Name: column.Name, Type: column.Type}
		}
		return payload, nil

	case sql.ShowVersionStatementType:
		version, err := expect[*db.VersionResult](statement, result)
		if err != nil {
			return nil, err
		}
		return ShowVersion{Version: version.Version}, nil

	default:
		return nil, malformedResult("no payload for statement kind %s", statement.Type())
	}
}

// expect asserts the concrete result type a statement kind requires.
func expect[T interface {
	comparable
	db.Result
}](statement sql.Statement, result db.Result) (T, error) {
	var zero T
	if result == nil {
		return zero, malformedResult("%s returned no result", statement.Type())
	}
	typed, ok := result.(T)
	if !ok {
		return zero, malformedResult("%s returned a %s result", statement.Type(), result.Type())
	}
	if typed == zero {
		return zero, malformedResult("%s returned no result", statement.Type())
	}
	return typed, nil
}

func buildCommit(kind sql.StatementType, commit *db.CommitResult) (Payload, error) {
	if commit.TablesCreated < 0 || commit.TablesDeleted < 0 || commit.TablesAltered < 0 ||
		commit.RecordsWritten < 0 || commit.RecordsDeleted < 0 {
		return nil, malformedResult("%s reported a negative count", kind)
	}

	switch kind {
	case sql.CreateTableStatementType:
		return CreateTable{}, nil
	case sql.DropTableStatementType:
		return DropTable{}, nil
	case sql.AlterTableStatementType:
		return AlterTable{}, nil
	case sql.InsertStatementType:
		return Insert{Affected: commit.RecordsWritten}, nil
	case sql.UpdateStatementType:
		return Update{Affected: commit.RecordsWritten}, nil
	default:
		return Delete{Affected: commit.RecordsDeleted}, nil
	}
}

func buildSelect(query *db.QueryResult) (Payload, error) {
	payload := Select{
		Labels: append([]string{}, query.Columns...),
		Rows:   make([]Row, len(query.Rows)),
	}
	for i, values := range query.Rows {
		if len(values) != len(query.Columns) {
			return nil, malformedResult("SELECT row %d has %d values for %d columns", i+1, len(values), len(query.Columns))
		}
		row := make(Row, len(values))
		for j, value := range values {
			row[j] = Field{Key: query.Columns[j], Value: value}
		}
		payload.Rows[i] = row
	}
	return payload, nil
}
