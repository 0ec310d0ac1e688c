package ps

import (
	"encoding/json"
	"fmt"
	"path"
	"strconv"

	"github.com/go-git/go-git/v6/plumbing/filemode"
	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/nickyhof/RouteDB/core"
)

const tablesDir = "tables"

// tableFile is the schema blob of a table.
type tableFile struct {
	Table  core.Table `json:"table"`
	NextID int64      `json:"nextId"`
}

func tablePath(name string) string {
	return path.Join(tablesDir, name)
}

func schemaPath(name string) string {
	return path.Join(tablesDir, name, "schema.json")
}

func rowsPath(name string) string {
	return path.Join(tablesDir, name, "rows")
}

func rowPath(name string, id int64) string {
	return path.Join(rowsPath(name), fmt.Sprintf("%020d", id))
}

func (p *Persistence) readTableFile(name string) (tableFile, error) {
	data, err := p.ReadFileDirect(schemaPath(name))
	if err != nil {
		return tableFile{}, fmt.Errorf("%w: %s", core.ErrTableNotFound, name)
	}

	var file tableFile
	if err := json.Unmarshal(data, &file); err != nil {
		return tableFile{}, fmt.Errorf("failed to unmarshal table %s: %w", name, err)
	}
	return file, nil
}

func (p *Persistence) writeTableFile(tb *TransactionBuilder, file tableFile) error {
	data, err := json.Marshal(file)
	if err != nil {
		return fmt.Errorf("failed to marshal table: %w", err)
	}
	return tb.AddWrite(schemaPath(file.Table.Name), data)
}

func (p *Persistence) tableExists(name string) bool {
	_, err := p.ReadFileDirect(schemaPath(name))
	return err == nil
}

func (p *Persistence) CreateTable(table core.Table) error {
	if err := p.ensureInitialized(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.tableExists(table.Name) {
		return fmt.Errorf("%w: %s", core.ErrTableExists, table.Name)
	}

	tb, err := p.BeginTransaction()
	if err != nil {
		return err
	}
	if err := p.writeTableFile(tb, tableFile{Table: table, NextID: 1}); err != nil {
		return err
	}
	_, err = tb.Commit(fmt.Sprintf("Creating table %s", table.Name))
	return err
}

func (p *Persistence) GetTable(name string) (core.Table, error) {
	if err := p.ensureInitialized(); err != nil {
		return core.Table{}, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	file, err := p.readTableFile(name)
	if err != nil {
		return core.Table{}, err
	}
	return file.Table, nil
}

func (p *Persistence) PutTable(table core.Table) error {
	if err := p.ensureInitialized(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	file, err := p.readTableFile(table.Name)
	if err != nil {
		return err
	}
	file.Table = table

	tb, err := p.BeginTransaction()
	if err != nil {
		return err
	}
	if err := p.writeTableFile(tb, file); err != nil {
		return err
	}
	_, err = tb.Commit(fmt.Sprintf("Altering table %s", table.Name))
	return err
}

// RenameTable moves a table directory in a single commit.
func (p *Persistence) RenameTable(from, to string) error {
	if err := p.ensureInitialized(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	file, err := p.readTableFile(from)
	if err != nil {
		return err
	}
	if p.tableExists(to) {
		return fmt.Errorf("%w: %s", core.ErrTableExists, to)
	}

	tree, err := p.headTree()
	if err != nil {
		return err
	}

	tb, err := p.BeginTransaction()
	if err != nil {
		return err
	}
	if rows, err := tree.Tree(rowsPath(from)); err == nil {
		for _, entry := range rows.Entries {
			blob, err := rowBlob(rows, entry)
			if err != nil {
				return err
			}
			if err := tb.AddWrite(path.Join(rowsPath(to), entry.Name), blob); err != nil {
				return err
			}
		}
	}
	file.Table.Name = to
	if err := p.writeTableFile(tb, file); err != nil {
		return err
	}
	if err := tb.AddDelete(tablePath(from)); err != nil {
		return err
	}
	_, err = tb.Commit(fmt.Sprintf("Renaming table %s to %s", from, to))
	return err
}

func (p *Persistence) DropTable(name string) error {
	if err := p.ensureInitialized(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.tableExists(name) {
		return fmt.Errorf("%w: %s", core.ErrTableNotFound, name)
	}

	tb, err := p.BeginTransaction()
	if err != nil {
		return err
	}
	if err := tb.AddDelete(tablePath(name)); err != nil {
		return err
	}
	_, err = tb.Commit(fmt.Sprintf("Dropping table %s", name))
	return err
}

func (p *Persistence) ListTables() ([]string, error) {
	if err := p.ensureInitialized(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	entries, err := p.ListEntriesDirect(tablesDir)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir {
			names = append(names, entry.Name)
		}
	}
	return names, nil
}

// Scan reads every record of a table. Row file names are zero-padded ids,
// so tree order is id order.
func (p *Persistence) Scan(table string) ([]core.Record, error) {
	if err := p.ensureInitialized(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.tableExists(table) {
		return nil, fmt.Errorf("%w: %s", core.ErrTableNotFound, table)
	}

	tree, err := p.headTree()
	if err != nil {
		return nil, err
	}
	rows, err := tree.Tree(rowsPath(table))
	if err != nil {
		return []core.Record{}, nil
	}

	records := make([]core.Record, 0, len(rows.Entries))
	for _, entry := range rows.Entries {
		id, err := strconv.ParseInt(entry.Name, 10, 64)
		if err != nil {
			continue
		}
		data, err := rowBlob(rows, entry)
		if err != nil {
			return nil, err
		}
		values, err := decodeValues(data)
		if err != nil {
			return nil, err
		}
		records = append(records, core.Record{ID: id, Values: values})
	}
	return records, nil
}

func rowBlob(tree *object.Tree, entry object.TreeEntry) ([]byte, error) {
	if entry.Mode == filemode.Dir {
		return nil, fmt.Errorf("unexpected directory %s", entry.Name)
	}
	file, err := tree.TreeEntryFile(&entry)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", entry.Name, err)
	}
	content, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("failed to read contents: %w", err)
	}
	return []byte(content), nil
}

// Insert writes all rows in one commit and returns their ids.
func (p *Persistence) Insert(table string, rows []map[string]any) ([]int64, error) {
	if err := p.ensureInitialized(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	file, err := p.readTableFile(table)
	if err != nil {
		return nil, err
	}

	tb, err := p.BeginTransaction()
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		data, err := encodeValues(row)
		if err != nil {
			tb.Rollback()
			return nil, err
		}
		id := file.NextID
		file.NextID++
		if err := tb.AddWrite(rowPath(table, id), data); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := p.writeTableFile(tb, file); err != nil {
		return nil, err
	}
	if _, err := tb.Commit(fmt.Sprintf("Inserting %d record(s) into %s", len(rows), table)); err != nil {
		return nil, err
	}
	return ids, nil
}

func (p *Persistence) Update(table string, records []core.Record) error {
	if err := p.ensureInitialized(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.tableExists(table) {
		return fmt.Errorf("%w: %s", core.ErrTableNotFound, table)
	}

	tb, err := p.BeginTransaction()
	if err != nil {
		return err
	}
	for _, record := range records {
		data, err := encodeValues(record.Values)
		if err != nil {
			tb.Rollback()
			return err
		}
		if err := tb.AddWrite(rowPath(table, record.ID), data); err != nil {
			return err
		}
	}
	if tb.OperationCount() == 0 {
		tb.Rollback()
		return nil
	}
	_, err = tb.Commit(fmt.Sprintf("Updating %d record(s) in %s", len(records), table))
	return err
}

func (p *Persistence) Delete(table string, ids []int64) error {
	if err := p.ensureInitialized(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.tableExists(table) {
		return fmt.Errorf("%w: %s", core.ErrTableNotFound, table)
	}

	tb, err := p.BeginTransaction()
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := tb.AddDelete(rowPath(table, id)); err != nil {
			return err
		}
	}
	if tb.OperationCount() == 0 {
		tb.Rollback()
		return nil
	}
	_, err = tb.Commit(fmt.Sprintf("Deleting %d record(s) from %s", len(ids), table))
	return err
}
