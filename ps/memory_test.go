package ps

import (
	"errors"
	"testing"

	"github.com/nickyhof/RouteDB/core"
)

func TestMemoryStoreInsertionOrder(t *testing.T) {
	store := NewMemoryStore()
	store.CreateTable(core.Table{Name: "t", Schemaless: true})

	store.Insert("t", []map[string]any{{"n": int64(3)}, {"n": int64(1)}})
	store.Insert("t", []map[string]any{{"n": int64(2)}})

	records, err := store.Scan("t")
	if err != nil {
		t.Fatalf("Failed to scan: %v", err)
	}
	got := []any{records[0].Values["n"], records[1].Values["n"], records[2].Values["n"]}
	want := []any{int64(3), int64(1), int64(2)}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, got)
		}
	}
}

func TestMemoryStoreCopiesRecords(t *testing.T) {
	store := NewMemoryStore()
	store.CreateTable(core.Table{Name: "t", Schemaless: true})

	row := map[string]any{"n": int64(1)}
	store.Insert("t", []map[string]any{row})
	row["n"] = int64(99)

	records, _ := store.Scan("t")
	records[0].Values["n"] = int64(42)

	again, _ := store.Scan("t")
	if again[0].Values["n"] != int64(1) {
		t.Errorf("Expected stored value to be isolated, got %v", again[0].Values["n"])
	}
}

func TestMemoryStoreErrors(t *testing.T) {
	store := NewMemoryStore()
	store.CreateTable(core.Table{Name: "a"})
	store.CreateTable(core.Table{Name: "b"})

	if err := store.CreateTable(core.Table{Name: "a"}); !errors.Is(err, core.ErrTableExists) {
		t.Errorf("Expected ErrTableExists, got %v", err)
	}
	if err := store.RenameTable("a", "b"); !errors.Is(err, core.ErrTableExists) {
		t.Errorf("Expected ErrTableExists on rename, got %v", err)
	}
	if _, err := store.Scan("zzz"); !errors.Is(err, core.ErrTableNotFound) {
		t.Errorf("Expected ErrTableNotFound, got %v", err)
	}

	names, _ := store.ListTables()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("Expected sorted names, got %v", names)
	}
}

func TestSharedStoreIsProcessWide(t *testing.T) {
	t.Cleanup(func() { ReleaseShared("shared-test") })

	first := Shared("shared-test")
	first.CreateTable(core.Table{Name: "t"})

	second := Shared("shared-test")
	if second != first {
		t.Fatal("Expected the same store for the same name")
	}
	if _, err := second.GetTable("t"); err != nil {
		t.Errorf("Expected table to be visible through the second handle: %v", err)
	}

	ReleaseShared("shared-test")
	if Shared("shared-test") == first {
		t.Error("Expected a fresh store after release")
	}
}
