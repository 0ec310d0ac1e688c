package ps

import (
	"errors"
	"testing"

	"github.com/nickyhof/RouteDB/core"
)

func usersTable() core.Table {
	return core.Table{
		Name: "users",
		Columns: []core.Column{
			{Name: "id", Type: core.IntType, PrimaryKey: true},
			{Name: "name", Type: core.StringType},
			{Name: "score", Type: core.FloatType},
		},
	}
}

func TestNewMemoryPersistence(t *testing.T) {
	persistence, err := NewMemoryPersistence()
	if err != nil {
		t.Fatalf("Failed to create memory persistence: %v", err)
	}
	if !persistence.IsInitialized() {
		t.Error("Expected persistence to be initialized")
	}
	if persistence.Head() != "" {
		t.Error("Expected empty head before the first write")
	}
}

func TestPersistenceNotInitialized(t *testing.T) {
	var persistence *Persistence

	if persistence.IsInitialized() {
		t.Error("Expected nil persistence to not be initialized")
	}
	if err := persistence.CreateTable(usersTable()); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Expected ErrNotInitialized, got %v", err)
	}
}

func TestCreateAndGetTable(t *testing.T) {
	persistence, _ := NewMemoryPersistence()

	if err := persistence.CreateTable(usersTable()); err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}

	table, err := persistence.GetTable("users")
	if err != nil {
		t.Fatalf("Failed to get table: %v", err)
	}
	if len(table.Columns) != 3 || !table.Columns[0].PrimaryKey {
		t.Errorf("Unexpected schema %+v", table)
	}

	if err := persistence.CreateTable(usersTable()); !errors.Is(err, core.ErrTableExists) {
		t.Errorf("Expected ErrTableExists, got %v", err)
	}
	if _, err := persistence.GetTable("missing"); !errors.Is(err, core.ErrTableNotFound) {
		t.Errorf("Expected ErrTableNotFound, got %v", err)
	}
}

func TestInsertAndScanKeepsKinds(t *testing.T) {
	persistence, _ := NewMemoryPersistence()
	persistence.CreateTable(usersTable())

	ids, err := persistence.Insert("users", []map[string]any{
		{"id": int64(1), "name": "alice", "score": 2.0},
		{"id": int64(2), "name": nil, "score": 0.5},
	})
	if err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Fatalf("Unexpected ids %v", ids)
	}

	records, err := persistence.Scan("users")
	if err != nil {
		t.Fatalf("Failed to scan: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	if _, ok := records[0].Values["id"].(int64); !ok {
		t.Errorf("Expected int64 id, got %T", records[0].Values["id"])
	}
	if score, ok := records[0].Values["score"].(float64); !ok || score != 2.0 {
		t.Errorf("Expected float64 2.0, got %T %v", records[0].Values["score"], records[0].Values["score"])
	}
	if value, ok := records[1].Values["name"]; !ok || value != nil {
		t.Errorf("Expected explicit NULL name, got %v", value)
	}
}

func TestScanOrderFollowsIds(t *testing.T) {
	persistence, _ := NewMemoryPersistence()
	persistence.CreateTable(core.Table{Name: "t", Schemaless: true})

	for i := 0; i < 12; i++ {
		if _, err := persistence.Insert("t", []map[string]any{{"n": int64(i)}}); err != nil {
			t.Fatalf("Failed to insert: %v", err)
		}
	}

	records, _ := persistence.Scan("t")
	for i, record := range records {
		if record.Values["n"] != int64(i) {
			t.Fatalf("Record %d out of order: %v", i, record.Values)
		}
	}
}

func TestUpdateAndDeleteRecords(t *testing.T) {
	persistence, _ := NewMemoryPersistence()
	persistence.CreateTable(usersTable())
	ids, _ := persistence.Insert("users", []map[string]any{
		{"id": int64(1), "name": "alice"},
		{"id": int64(2), "name": "bob"},
	})

	err := persistence.Update("users", []core.Record{{ID: ids[0], Values: map[string]any{"id": int64(1), "name": "carol"}}})
	if err != nil {
		t.Fatalf("Failed to update: %v", err)
	}
	if err := persistence.Delete("users", ids[1:]); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}

	records, _ := persistence.Scan("users")
	if len(records) != 1 || records[0].Values["name"] != "carol" {
		t.Errorf("Unexpected records %v", records)
	}
}

func TestRenameAndDropTable(t *testing.T) {
	persistence, _ := NewMemoryPersistence()
	persistence.CreateTable(usersTable())
	persistence.Insert("users", []map[string]any{{"id": int64(7)}})

	if err := persistence.RenameTable("users", "people"); err != nil {
		t.Fatalf("Failed to rename: %v", err)
	}
	if _, err := persistence.GetTable("users"); !errors.Is(err, core.ErrTableNotFound) {
		t.Errorf("Expected old name to be gone, got %v", err)
	}
	table, err := persistence.GetTable("people")
	if err != nil || table.Name != "people" {
		t.Fatalf("Expected renamed table, got %+v, %v", table, err)
	}
	records, _ := persistence.Scan("people")
	if len(records) != 1 || records[0].Values["id"] != int64(7) {
		t.Errorf("Expected rows to move with the table, got %v", records)
	}

	if err := persistence.DropTable("people"); err != nil {
		t.Fatalf("Failed to drop: %v", err)
	}
	names, _ := persistence.ListTables()
	if len(names) != 0 {
		t.Errorf("Expected no tables, got %v", names)
	}
	if err := persistence.DropTable("people"); !errors.Is(err, core.ErrTableNotFound) {
		t.Errorf("Expected ErrTableNotFound, got %v", err)
	}
}

func TestEveryWriteIsACommit(t *testing.T) {
	persistence, _ := NewMemoryPersistence()
	persistence.SetIdentity(core.Identity{Name: "tester", Email: "tester@example.com"})

	persistence.CreateTable(usersTable())
	persistence.Insert("users", []map[string]any{{"id": int64(1)}, {"id": int64(2)}})

	history, err := persistence.History(0)
	if err != nil {
		t.Fatalf("Failed to read history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("Expected 2 commits, got %d", len(history))
	}
	if history[0].Author != "tester <tester@example.com>" {
		t.Errorf("Unexpected author %q", history[0].Author)
	}

	limited, _ := persistence.History(1)
	if len(limited) != 1 {
		t.Errorf("Expected 1 commit with limit, got %d", len(limited))
	}
}

func TestFilePersistenceReopen(t *testing.T) {
	dir := t.TempDir()

	persistence, err := NewFilePersistence(dir)
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}
	persistence.CreateTable(usersTable())
	persistence.Insert("users", []map[string]any{{"id": int64(1), "name": "alice"}})

	reopened, err := NewFilePersistence(dir)
	if err != nil {
		t.Fatalf("Failed to reopen: %v", err)
	}
	names, _ := reopened.ListTables()
	if len(names) != 1 || names[0] != "users" {
		t.Fatalf("Expected users after reopen, got %v", names)
	}
	records, _ := reopened.Scan("users")
	if len(records) != 1 || records[0].Values["name"] != "alice" {
		t.Errorf("Unexpected records after reopen %v", records)
	}
}
