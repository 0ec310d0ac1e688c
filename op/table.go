package op

import (
	"fmt"

	"github.com/nickyhof/RouteDB/core"
)

type TableOp struct {
	Table core.Table
	Store Store
}

func CreateTable(table core.Table, store Store) (*TableOp, error) {
	if err := store.CreateTable(table); err != nil {
		return nil, err
	}

	return &TableOp{
		Table: table,
		Store: store,
	}, nil
}

func GetTable(tableName string, store Store) (*TableOp, error) {
	table, err := store.GetTable(tableName)
	if err != nil {
		return nil, err
	}

	return &TableOp{
		Table: table,
		Store: store,
	}, nil
}

func (op *TableOp) PrimaryKey() []string {
	return op.Table.PrimaryKey()
}

func (op *TableOp) DropTable() error {
	return op.Store.DropTable(op.Table.Name)
}

func (op *TableOp) Records() ([]core.Record, error) {
	return op.Store.Scan(op.Table.Name)
}

func (op *TableOp) Count() (int, error) {
	records, err := op.Records()
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

func (op *TableOp) Insert(rows []map[string]any) ([]int64, error) {
	return op.Store.Insert(op.Table.Name, rows)
}

func (op *TableOp) Put(records []core.Record) error {
	if len(records) == 0 {
		return nil
	}
	return op.Store.Update(op.Table.Name, records)
}

func (op *TableOp) Delete(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return op.Store.Delete(op.Table.Name, ids)
}

func (op *TableOp) Rename(to string) error {
	if err := op.Store.RenameTable(op.Table.Name, to); err != nil {
		return err
	}
	op.Table.Name = to
	return nil
}

func (op *TableOp) AddColumn(column core.Column) error {
	if op.Table.ColumnIndex(column.Name) >= 0 {
		return fmt.Errorf("%w: %s.%s", core.ErrColumnExists, op.Table.Name, column.Name)
	}

	table := op.Table
	table.Columns = append(append([]core.Column{}, op.Table.Columns...), column)
	if err := op.Store.PutTable(table); err != nil {
		return err
	}
	op.Table = table
	return nil
}

// DropColumn removes a column from the schema and strips its values from
// every record so a later column of the same name starts out NULL.
func (op *TableOp) DropColumn(name string) error {
	index := op.Table.ColumnIndex(name)
	if index < 0 {
		return fmt.Errorf("%w: %s.%s", core.ErrColumnNotFound, op.Table.Name, name)
	}

	records, err := op.Records()
	if err != nil {
		return err
	}
	var changed []core.Record
	for _, record := range records {
		if _, ok := record.Values[name]; ok {
			updated := record.Clone()
			delete(updated.Values, name)
			changed = append(changed, updated)
		}
	}
	if err := op.Put(changed); err != nil {
		return err
	}

	table := op.Table
	table.Columns = append(append([]core.Column{}, op.Table.Columns[:index]...), op.Table.Columns[index+1:]...)
	if err := op.Store.PutTable(table); err != nil {
		return err
	}
	op.Table = table
	return nil
}

// Learn adds untyped columns for names a schemaless table has not seen
// yet. Tables with a declared schema reject unknown names instead.
func (op *TableOp) Learn(columns []string) error {
	var missing []string
	for _, column := range columns {
		if op.Table.ColumnIndex(column) < 0 {
			missing = append(missing, column)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	if !op.Table.Schemaless {
		return fmt.Errorf("%w: %s.%s", core.ErrColumnNotFound, op.Table.Name, missing[0])
	}

	table := op.Table
	table.Columns = append([]core.Column{}, op.Table.Columns...)
	for _, column := range missing {
		table.Columns = append(table.Columns, core.Column{Name: column, Type: core.AnyType})
	}
	if err := op.Store.PutTable(table); err != nil {
		return err
	}
	op.Table = table
	return nil
}

// Revision names the store revision after the last write, if the store
// is versioned.
func (op *TableOp) Revision() string {
	return Revision(op.Store)
}
