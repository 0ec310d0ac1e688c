package db

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/nickyhof/RouteDB/core"
	"github.com/nickyhof/RouteDB/op"
	"github.com/nickyhof/RouteDB/sql"
)

// Version is reported by SHOW VERSION on built-in engines.
const Version = "0.4.0"

var (
	ErrTableExists    = core.ErrTableExists
	ErrTableNotFound  = core.ErrTableNotFound
	ErrColumnNotFound = core.ErrColumnNotFound
	ErrColumnExists   = core.ErrColumnExists
	ErrTypeMismatch   = core.ErrTypeMismatch

	ErrColumnCount    = errors.New("column count does not match value count")
	ErrConstraint     = errors.New("constraint violation")
	ErrDivisionByZero = errors.New("division by zero")
	ErrUnsupported    = errors.New("unsupported statement")
)

// Engine executes classified statements against a physical Store.
type Engine struct {
	store   op.Store
	version string
}

type Option func(*Engine)

// WithVersion overrides the version reported by SHOW VERSION.
func WithVersion(version string) Option {
	return func(engine *Engine) {
		engine.version = version
	}
}

func NewEngine(store op.Store, opts ...Option) *Engine {
	engine := &Engine{store: store, version: Version}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

func (engine *Engine) Store() op.Store {
	return engine.store
}

// Run parses and executes a single statement.
func (engine *Engine) Run(ctx context.Context, query string) (Result, error) {
	statement, err := sql.Parse(query)
	if err != nil {
		return nil, err
	}
	return engine.Execute(ctx, statement)
}

func (engine *Engine) Execute(ctx context.Context, statement sql.Statement) (Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch s := statement.(type) {
	case sql.SelectStatement:
		return result(engine.executeSelectStatement(s))
	case sql.InsertStatement:
		return result(engine.executeInsertStatement(s))
	case sql.UpdateStatement:
		return result(engine.executeUpdateStatement(s))
	case sql.DeleteStatement:
		return result(engine.executeDeleteStatement(s))
	case sql.CreateTableStatement:
		return result(engine.executeCreateTableStatement(s))
	case sql.DropTableStatement:
		return result(engine.executeDropTableStatement(s))
	case sql.AlterTableStatement:
		return result(engine.executeAlterTableStatement(s))
	case sql.ShowTablesStatement:
		return result(engine.executeShowTablesStatement())
	case sql.ShowColumnsStatement:
		return result(engine.executeShowColumnsStatement(s))
	case sql.ShowVersionStatement:
		return &VersionResult{Version: engine.version}, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, statement.Type())
	}
}

// result keeps a typed nil out of the Result interface on failure.
func result[T Result](r T, err error) (Result, error) {
	if err != nil {
		return nil, err
	}
	return r, nil
}

func checkColumns(table *core.Table, extra map[string]bool, exprs ...sql.Expr) error {
	for _, expr := range exprs {
		for _, name := range columnRefs(expr) {
			if extra[name] {
				continue
			}
			if table == nil {
				return fmt.Errorf("%w: %s (no table in scope)", ErrColumnNotFound, name)
			}
			if table.ColumnIndex(name) < 0 {
				return fmt.Errorf("%w: %s.%s", ErrColumnNotFound, table.Name, name)
			}
		}
	}
	return nil
}

func (engine *Engine) filter(table *core.Table, records []core.Record, where sql.Expr) ([]core.Record, error) {
	if where == nil {
		return records, nil
	}

	var kept []core.Record
	for _, record := range records {
		value, err := evaluate(where, recordScope{table: table, values: record.Values})
		if err != nil {
			return nil, err
		}
		keep, err := truthy(value)
		if err != nil {
			return nil, err
		}
		if keep {
			kept = append(kept, record)
		}
	}
	return kept, nil
}

type selectedRow struct {
	record core.Record
	values []any
	keys   []any
}

func (engine *Engine) executeSelectStatement(statement sql.SelectStatement) (*QueryResult, error) {
	startTime := time.Now()

	var table *core.Table
	records := []core.Record{{Values: map[string]any{}}}
	if statement.Table != "" {
		tableOp, err := op.GetTable(statement.Table, engine.store)
		if err != nil {
			return nil, err
		}
		table = &tableOp.Table
		records, err = tableOp.Records()
		if err != nil {
			return nil, err
		}
	}

	// Determine output columns
	labels := []string{}
	var exprs []sql.Expr
	aliases := map[string]bool{}
	for _, item := range statement.Items {
		if item.Star {
			if table == nil {
				return nil, fmt.Errorf("%w: SELECT * without FROM", ErrUnsupported)
			}
			for _, name := range table.ColumnNames() {
				labels = append(labels, name)
				exprs = append(exprs, sql.ColumnRef{Name: name})
			}
			continue
		}
		labels = append(labels, item.Label())
		exprs = append(exprs, item.Expr)
		if item.Alias != "" {
			aliases[item.Alias] = true
		}
	}

	if err := checkColumns(table, nil, append([]sql.Expr{statement.Where}, exprs...)...); err != nil {
		return nil, err
	}
	for _, clause := range statement.OrderBy {
		if err := checkColumns(table, aliases, clause.Expr); err != nil {
			return nil, err
		}
	}

	records, err := engine.filter(table, records, statement.Where)
	if err != nil {
		return nil, err
	}

	rows := make([]selectedRow, 0, len(records))
	for _, record := range records {
		row := selectedRow{record: record, values: make([]any, len(exprs))}
		for i, expr := range exprs {
			value, err := evaluate(expr, recordScope{table: table, values: record.Values})
			if err != nil {
				return nil, err
			}
			row.values[i] = core.Normalize(value)
		}
		rows = append(rows, row)
	}

	// ORDER BY may name a select alias
	if len(statement.OrderBy) > 0 {
		for i := range rows {
			extra := make(map[string]any, len(aliases))
			for j, item := range statement.Items {
				if item.Alias != "" {
					extra[item.Alias] = rows[i].values[aliasIndex(statement.Items, j, table)]
				}
			}
			env := recordScope{table: table, values: rows[i].record.Values, extra: extra}
			rows[i].keys = make([]any, len(statement.OrderBy))
			for k, clause := range statement.OrderBy {
				value, err := evaluate(clause.Expr, env)
				if err != nil {
					return nil, err
				}
				rows[i].keys[k] = value
			}
		}
		sortRows(rows, statement.OrderBy)
	}

	// Apply OFFSET
	if statement.Offset > 0 {
		if statement.Offset >= len(rows) {
			rows = rows[:0]
		} else {
			rows = rows[statement.Offset:]
		}
	}

	// Apply LIMIT
	if statement.Limit >= 0 && len(rows) > statement.Limit {
		rows = rows[:statement.Limit]
	}

	outputData := make([][]any, len(rows))
	for i, row := range rows {
		outputData[i] = row.values
	}

	return &QueryResult{
		Revision:         op.Revision(engine.store),
		Columns:          labels,
		Rows:             outputData,
		RecordsRead:      len(outputData),
		ExecutionTimeSec: time.Since(startTime).Seconds(),
	}, nil
}

// aliasIndex maps select item j to its output position, accounting for
// star items that expand to several columns.
func aliasIndex(items []sql.SelectItem, j int, table *core.Table) int {
	position := 0
	for i := 0; i < j; i++ {
		if items[i].Star && table != nil {
			position += len(table.Columns)
		} else {
			position++
		}
	}
	return position
}

// sortRows orders rows by their ORDER BY keys. NULL sorts first in
// ascending order; values of different kinds sort by kind.
func sortRows(rows []selectedRow, orderBy []sql.OrderByClause) {
	sort.SliceStable(rows, func(i, j int) bool {
		for k, clause := range orderBy {
			c := orderCompare(rows[i].keys[k], rows[j].keys[k])
			if c == 0 {
				continue
			}
			if clause.Descending {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func orderCompare(a, b any) int {
	if c, ok := core.Compare(a, b); ok {
		return c
	}
	return kindRank(a) - kindRank(b)
}

func kindRank(value any) int {
	switch value.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case int64, float64:
		return 2
	default:
		return 3
	}
}

func (engine *Engine) executeInsertStatement(statement sql.InsertStatement) (*CommitResult, error) {
	startTime := time.Now()

	tableOp, err := op.GetTable(statement.Table, engine.store)
	if err != nil {
		return nil, err
	}

	columns := statement.Columns
	if len(columns) == 0 {
		if tableOp.Table.Schemaless || len(tableOp.Table.Columns) == 0 {
			return nil, fmt.Errorf("%w: INSERT into %s needs a column list", ErrColumnCount, statement.Table)
		}
		columns = tableOp.Table.ColumnNames()
	}

	seen := make(map[string]bool, len(columns))
	for _, column := range columns {
		if seen[column] {
			return nil, fmt.Errorf("%w: column %s listed twice", ErrConstraint, column)
		}
		seen[column] = true
		if tableOp.Table.ColumnIndex(column) < 0 && !tableOp.Table.Schemaless {
			return nil, fmt.Errorf("%w: %s.%s", ErrColumnNotFound, statement.Table, column)
		}
	}

	rows := make([]map[string]any, 0, len(statement.Rows))
	for i, exprs := range statement.Rows {
		if len(exprs) != len(columns) {
			return nil, fmt.Errorf("%w: row %d has %d values for %d columns", ErrColumnCount, i+1, len(exprs), len(columns))
		}
		values := make(map[string]any, len(columns))
		for j, expr := range exprs {
			value, err := evaluate(expr, emptyScope{})
			if err != nil {
				return nil, err
			}
			value, err = coerceColumn(tableOp.Table, columns[j], value)
			if err != nil {
				return nil, err
			}
			values[columns[j]] = value
		}
		if err := checkNotNull(tableOp.Table, values); err != nil {
			return nil, err
		}
		rows = append(rows, values)
	}

	existing, err := tableOp.Records()
	if err != nil {
		return nil, err
	}
	if err := checkPrimaryKey(tableOp.Table, existing, rows); err != nil {
		return nil, err
	}

	if err := tableOp.Learn(columns); err != nil {
		return nil, err
	}
	if len(rows) > 0 {
		if _, err := tableOp.Insert(rows); err != nil {
			return nil, err
		}
	}

	return &CommitResult{
		Revision:         tableOp.Revision(),
		RecordsWritten:   len(rows),
		ExecutionTimeSec: time.Since(startTime).Seconds(),
	}, nil
}

func coerceColumn(table core.Table, column string, value any) (any, error) {
	index := table.ColumnIndex(column)
	if index < 0 {
		return core.Normalize(value), nil
	}
	coerced, err := core.Coerce(value, table.Columns[index].Type)
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", column, err)
	}
	return coerced, nil
}

func checkNotNull(table core.Table, values map[string]any) error {
	for _, column := range table.Columns {
		if (column.NotNull || column.PrimaryKey) && values[column.Name] == nil {
			return fmt.Errorf("%w: %s.%s may not be NULL", ErrConstraint, table.Name, column.Name)
		}
	}
	return nil
}

func primaryKeyOf(values map[string]any, key []string) string {
	parts := make([]string, len(key))
	for i, column := range key {
		value := core.Normalize(values[column])
		parts[i] = fmt.Sprintf("%T:%s", value, core.Format(value))
	}
	return strings.Join(parts, "\x00")
}

// checkPrimaryKey rejects rows whose key is already taken by a kept record
// or by an earlier row of the same batch.
func checkPrimaryKey(table core.Table, kept []core.Record, rows []map[string]any) error {
	key := table.PrimaryKey()
	if len(key) == 0 {
		return nil
	}

	taken := make(map[string]bool, len(kept)+len(rows))
	for _, record := range kept {
		taken[primaryKeyOf(record.Values, key)] = true
	}
	for _, row := range rows {
		k := primaryKeyOf(row, key)
		if taken[k] {
			return fmt.Errorf("%w: duplicate primary key in %s", ErrConstraint, table.Name)
		}
		taken[k] = true
	}
	return nil
}

func (engine *Engine) executeUpdateStatement(statement sql.UpdateStatement) (*CommitResult, error) {
	startTime := time.Now()

	tableOp, err := op.GetTable(statement.Table, engine.store)
	if err != nil {
		return nil, err
	}
	table := &tableOp.Table

	exprs := []sql.Expr{statement.Where}
	for _, update := range statement.Updates {
		if table.ColumnIndex(update.Column) < 0 {
			return nil, fmt.Errorf("%w: %s.%s", ErrColumnNotFound, table.Name, update.Column)
		}
		exprs = append(exprs, update.Value)
	}
	if err := checkColumns(table, nil, exprs...); err != nil {
		return nil, err
	}

	records, err := tableOp.Records()
	if err != nil {
		return nil, err
	}
	matched, err := engine.filter(table, records, statement.Where)
	if err != nil {
		return nil, err
	}

	changed := make([]core.Record, 0, len(matched))
	changedIDs := make(map[int64]bool, len(matched))
	for _, record := range matched {
		updated := record.Clone()
		env := recordScope{table: table, values: record.Values}
		for _, update := range statement.Updates {
			value, err := evaluate(update.Value, env)
			if err != nil {
				return nil, err
			}
			value, err = coerceColumn(*table, update.Column, value)
			if err != nil {
				return nil, err
			}
			updated.Values[update.Column] = value
		}
		if err := checkNotNull(*table, updated.Values); err != nil {
			return nil, err
		}
		changed = append(changed, updated)
		changedIDs[record.ID] = true
	}

	var kept []core.Record
	for _, record := range records {
		if !changedIDs[record.ID] {
			kept = append(kept, record)
		}
	}
	rows := make([]map[string]any, len(changed))
	for i, record := range changed {
		rows[i] = record.Values
	}
	if err := checkPrimaryKey(*table, kept, rows); err != nil {
		return nil, err
	}

	if err := tableOp.Put(changed); err != nil {
		return nil, err
	}

	return &CommitResult{
		Revision:         tableOp.Revision(),
		RecordsWritten:   len(changed),
		ExecutionTimeSec: time.Since(startTime).Seconds(),
	}, nil
}

func (engine *Engine) executeDeleteStatement(statement sql.DeleteStatement) (*CommitResult, error) {
	startTime := time.Now()

	tableOp, err := op.GetTable(statement.Table, engine.store)
	if err != nil {
		return nil, err
	}
	if err := checkColumns(&tableOp.Table, nil, statement.Where); err != nil {
		return nil, err
	}

	records, err := tableOp.Records()
	if err != nil {
		return nil, err
	}
	matched, err := engine.filter(&tableOp.Table, records, statement.Where)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(matched))
	for i, record := range matched {
		ids[i] = record.ID
	}
	if err := tableOp.Delete(ids); err != nil {
		return nil, err
	}

	return &CommitResult{
		Revision:         tableOp.Revision(),
		RecordsDeleted:   len(ids),
		ExecutionTimeSec: time.Since(startTime).Seconds(),
	}, nil
}

func (engine *Engine) executeCreateTableStatement(statement sql.CreateTableStatement) (*CommitResult, error) {
	startTime := time.Now()

	if statement.IfNotExists {
		if _, err := engine.store.GetTable(statement.Table); err == nil {
			return &CommitResult{
				Revision:         op.Revision(engine.store),
				ExecutionTimeSec: time.Since(startTime).Seconds(),
			}, nil
		}
	}

	seen := make(map[string]bool, len(statement.Columns))
	for _, column := range statement.Columns {
		if seen[column.Name] {
			return nil, fmt.Errorf("%w: %s.%s", ErrColumnExists, statement.Table, column.Name)
		}
		seen[column.Name] = true
	}

	table := core.Table{
		Name:       statement.Table,
		Columns:    statement.Columns,
		Schemaless: statement.Schemaless,
	}
	tableOp, err := op.CreateTable(table, engine.store)
	if err != nil {
		return nil, err
	}

	return &CommitResult{
		Revision:         tableOp.Revision(),
		TablesCreated:    1,
		ExecutionTimeSec: time.Since(startTime).Seconds(),
	}, nil
}

func (engine *Engine) executeDropTableStatement(statement sql.DropTableStatement) (*CommitResult, error) {
	startTime := time.Now()

	tableOp, err := op.GetTable(statement.Table, engine.store)
	if err != nil {
		if statement.IfExists && errors.Is(err, ErrTableNotFound) {
			return &CommitResult{
				Revision:         op.Revision(engine.store),
				ExecutionTimeSec: time.Since(startTime).Seconds(),
			}, nil
		}
		return nil, err
	}

	if err := tableOp.DropTable(); err != nil {
		return nil, err
	}

	return &CommitResult{
		Revision:         tableOp.Revision(),
		TablesDeleted:    1,
		ExecutionTimeSec: time.Since(startTime).Seconds(),
	}, nil
}

func (engine *Engine) executeAlterTableStatement(statement sql.AlterTableStatement) (*CommitResult, error) {
	startTime := time.Now()

	tableOp, err := op.GetTable(statement.Table, engine.store)
	if err != nil {
		return nil, err
	}

	switch statement.Action {
	case sql.AlterRenameTable:
		err = tableOp.Rename(statement.NewName)
	case sql.AlterAddColumn:
		if statement.Column.NotNull || statement.Column.PrimaryKey {
			count, countErr := tableOp.Count()
			if countErr != nil {
				return nil, countErr
			}
			if count > 0 {
				return nil, fmt.Errorf("%w: cannot add NOT NULL column %s to a table with rows", ErrConstraint, statement.Column.Name)
			}
		}
		err = tableOp.AddColumn(statement.Column)
	case sql.AlterDropColumn:
		err = tableOp.DropColumn(statement.ColumnName)
	default:
		err = fmt.Errorf("%w: ALTER TABLE action %d", ErrUnsupported, statement.Action)
	}
	if err != nil {
		return nil, err
	}

	return &CommitResult{
		Revision:         tableOp.Revision(),
		TablesAltered:    1,
		ExecutionTimeSec: time.Since(startTime).Seconds(),
	}, nil
}

func (engine *Engine) executeShowTablesStatement() (*TablesResult, error) {
	names, err := op.TableNames(engine.store)
	if err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}
	return &TablesResult{Tables: names}, nil
}

func (engine *Engine) executeShowColumnsStatement(statement sql.ShowColumnsStatement) (*ColumnsResult, error) {
	table, err := engine.store.GetTable(statement.Table)
	if err != nil {
		return nil, err
	}

	columns := make([]ColumnInfo, len(table.Columns))
	for i, column := range table.Columns {
		columns[i] = ColumnInfo{Name: column.Name, Type: column.Type.String()}
	}
	return &ColumnsResult{Columns: columns}, nil
}
