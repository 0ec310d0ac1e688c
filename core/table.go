package core

import "strings"

type ColumnType int

const (
	StringType ColumnType = iota
	IntType
	FloatType
	BoolType
	TextType
	TimestampType
	AnyType
)

func (columnType ColumnType) String() string {
	switch columnType {
	case StringType:
		return "STRING"
	case IntType:
		return "INTEGER"
	case FloatType:
		return "FLOAT"
	case BoolType:
		return "BOOLEAN"
	case TextType:
		return "TEXT"
	case TimestampType:
		return "TIMESTAMP"
	default:
		return "ANY"
	}
}

// ParseColumnType maps a SQL type name onto a ColumnType.
func ParseColumnType(name string) (ColumnType, bool) {
	switch strings.ToUpper(name) {
	case "STRING", "VARCHAR", "CHAR":
		return StringType, true
	case "INT", "INTEGER", "BIGINT", "SMALLINT":
		return IntType, true
	case "FLOAT", "DOUBLE", "REAL", "DECIMAL":
		return FloatType, true
	case "BOOL", "BOOLEAN":
		return BoolType, true
	case "TEXT":
		return TextType, true
	case "TIMESTAMP", "DATETIME":
		return TimestampType, true
	case "ANY":
		return AnyType, true
	default:
		return AnyType, false
	}
}

type Column struct {
	Name       string     `json:"name"`
	Type       ColumnType `json:"type"`
	PrimaryKey bool       `json:"primaryKey,omitempty"`
	NotNull    bool       `json:"notNull,omitempty"`
}

type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
	// Schemaless tables were created without a column list; their
	// columns are learned from INSERT column lists.
	Schemaless bool `json:"schemaless,omitempty"`
}

func (table Table) ColumnIndex(name string) int {
	for i, column := range table.Columns {
		if column.Name == name {
			return i
		}
	}
	return -1
}

func (table Table) ColumnNames() []string {
	names := make([]string, len(table.Columns))
	for i, column := range table.Columns {
		names[i] = column.Name
	}
	return names
}

func (table Table) PrimaryKey() []string {
	var keys []string
	for _, column := range table.Columns {
		if column.PrimaryKey {
			keys = append(keys, column.Name)
		}
	}
	return keys
}

// Record is one stored row. IDs grow monotonically per table and give
// the insertion order.
type Record struct {
	ID     int64          `json:"id"`
	Values map[string]any `json:"values"`
}

func (record Record) Clone() Record {
	values := make(map[string]any, len(record.Values))
	for k, v := range record.Values {
		values[k] = v
	}
	return Record{ID: record.ID, Values: values}
}
