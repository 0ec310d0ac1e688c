package db

import (
	"fmt"
	"strings"
)

type ResultType int

const (
	QueryResultType ResultType = iota
	CommitResultType
	TablesResultType
	ColumnsResultType
	VersionResultType
)

func (resultType ResultType) String() string {
	switch resultType {
	case QueryResultType:
		return "query"
	case CommitResultType:
		return "commit"
	case TablesResultType:
		return "tables"
	case ColumnsResultType:
		return "columns"
	case VersionResultType:
		return "version"
	default:
		return fmt.Sprintf("ResultType(%d)", int(resultType))
	}
}

// Result is the raw outcome of one statement on one engine.
type Result interface {
	Type() ResultType
}

// QueryResult is returned by SELECT. Every row holds one value per
// column, in column order.
type QueryResult struct {
	Revision         string
	Columns          []string
	Rows             [][]any
	RecordsRead      int
	ExecutionTimeSec float64
}

// CommitResult is returned by statements that change tables or records.
type CommitResult struct {
	Revision         string
	TablesCreated    int
	TablesDeleted    int
	TablesAltered    int
	RecordsWritten   int
	RecordsDeleted   int
	ExecutionTimeSec float64
}

// TablesResult is returned by SHOW TABLES.
type TablesResult struct {
	Tables []string
}

type ColumnInfo struct {
	Name string
	Type string
}

// ColumnsResult is returned by SHOW COLUMNS.
type ColumnsResult struct {
	Columns []ColumnInfo
}

// VersionResult is returned by SHOW VERSION.
type VersionResult struct {
	Version string
}

func (result *QueryResult) Type() ResultType   { return QueryResultType }
func (result *CommitResult) Type() ResultType  { return CommitResultType }
func (result *TablesResult) Type() ResultType  { return TablesResultType }
func (result *ColumnsResult) Type() ResultType { return ColumnsResultType }
func (result *VersionResult) Type() ResultType { return VersionResultType }

// FormatDuration formats a duration in seconds in human-readable form
func FormatDuration(secs float64) string {
	if secs < 0.001 {
		return "<1ms"
	} else if secs < 0.01 {
		return fmt.Sprintf("%dms", int(secs*1000))
	} else if secs < 1 {
		ms := secs * 1000
		if ms < 10 {
			return fmt.Sprintf("%.1fms", ms)
		}
		return fmt.Sprintf("%dms", int(ms))
	} else if secs < 60 {
		if secs < 10 {
			return fmt.Sprintf("%.1fs", secs)
		}
		return fmt.Sprintf("%ds", int(secs))
	} else {
		mins := int(secs / 60)
		remainSecs := int(secs) % 60
		if remainSecs == 0 {
			return fmt.Sprintf("%dm", mins)
		}
		return fmt.Sprintf("%dm%ds", mins, remainSecs)
	}
}

func (result *QueryResult) ExecutionTime() string {
	return FormatDuration(result.ExecutionTimeSec)
}

func (result *CommitResult) ExecutionTime() string {
	return FormatDuration(result.ExecutionTimeSec)
}

// Summary is a one-line description of what the statement changed.
func (result *CommitResult) Summary() string {
	var parts []string

	if result.TablesCreated > 0 {
		parts = append(parts, fmt.Sprintf("%d table(s) created", result.TablesCreated))
	}
	if result.TablesDeleted > 0 {
		parts = append(parts, fmt.Sprintf("%d table(s) deleted", result.TablesDeleted))
	}
	if result.TablesAltered > 0 {
		parts = append(parts, fmt.Sprintf("%d table(s) altered", result.TablesAltered))
	}
	if result.RecordsWritten > 0 {
		parts = append(parts, fmt.Sprintf("%d record(s) written", result.RecordsWritten))
	}
	if result.RecordsDeleted > 0 {
		parts = append(parts, fmt.Sprintf("%d record(s) deleted", result.RecordsDeleted))
	}

	if len(parts) == 0 {
		return fmt.Sprintf("OK (%s)", result.ExecutionTime())
	}
	return fmt.Sprintf("%s (%s)", strings.Join(parts, ", "), result.ExecutionTime())
}
