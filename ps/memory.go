package ps

import (
	"fmt"
	"sort"
	"sync"

	"github.com/nickyhof/RouteDB/core"
)

type memoryTable struct {
	table   core.Table
	records []core.Record
	nextID  int64
}

// MemoryStore keeps tables in process memory. Records keep insertion
// order and are copied on the way in and out.
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[string]*memoryTable
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[string]*memoryTable)}
}

func (s *MemoryStore) lookup(name string) (*memoryTable, error) {
	t, ok := s.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrTableNotFound, name)
	}
	return t, nil
}

func (s *MemoryStore) CreateTable(table core.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tables[table.Name]; ok {
		return fmt.Errorf("%w: %s", core.ErrTableExists, table.Name)
	}
	table.Columns = append([]core.Column{}, table.Columns...)
	s.tables[table.Name] = &memoryTable{table: table, nextID: 1}
	return nil
}

func (s *MemoryStore) GetTable(name string) (core.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, err := s.lookup(name)
	if err != nil {
		return core.Table{}, err
	}
	table := t.table
	table.Columns = append([]core.Column{}, t.table.Columns...)
	return table, nil
}

func (s *MemoryStore) PutTable(table core.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.lookup(table.Name)
	if err != nil {
		return err
	}
	table.Columns = append([]core.Column{}, table.Columns...)
	t.table = table
	return nil
}

func (s *MemoryStore) RenameTable(from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.lookup(from)
	if err != nil {
		return err
	}
	if _, ok := s.tables[to]; ok {
		return fmt.Errorf("%w: %s", core.ErrTableExists, to)
	}
	delete(s.tables, from)
	t.table.Name = to
	s.tables[to] = t
	return nil
}

func (s *MemoryStore) DropTable(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.lookup(name); err != nil {
		return err
	}
	delete(s.tables, name)
	return nil
}

func (s *MemoryStore) ListTables() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *MemoryStore) Scan(table string) ([]core.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, err := s.lookup(table)
	if err != nil {
		return nil, err
	}
	records := make([]core.Record, len(t.records))
	for i, record := range t.records {
		records[i] = record.Clone()
	}
	return records, nil
}

func (s *MemoryStore) Insert(table string, rows []map[string]any) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.lookup(table)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		record := core.Record{ID: t.nextID, Values: row}.Clone()
		t.nextID++
		t.records = append(t.records, record)
		ids = append(ids, record.ID)
	}
	return ids, nil
}

func (s *MemoryStore) Update(table string, records []core.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.lookup(table)
	if err != nil {
		return err
	}
	byID := make(map[int64]core.Record, len(records))
	for _, record := range records {
		byID[record.ID] = record
	}
	for i, existing := range t.records {
		if updated, ok := byID[existing.ID]; ok {
			t.records[i] = updated.Clone()
		}
	}
	return nil
}

func (s *MemoryStore) Delete(table string, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.lookup(table)
	if err != nil {
		return err
	}
	doomed := make(map[int64]bool, len(ids))
	for _, id := range ids {
		doomed[id] = true
	}
	kept := t.records[:0]
	for _, record := range t.records {
		if !doomed[record.ID] {
			kept = append(kept, record)
		}
	}
	t.records = kept
	return nil
}
