package sql

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"empty", "", []string{}},
		{"whitespace only", "  \n\t ", []string{}},
		{"single without semicolon", "SELECT 1", []string{"SELECT 1"}},
		{
			"two statements",
			"CREATE TABLE Foo (id INTEGER); CREATE TABLE Bar;",
			[]string{"CREATE TABLE Foo (id INTEGER)", "CREATE TABLE Bar"},
		},
		{"empty segments", ";;SELECT 1;; ;", []string{"SELECT 1"}},
		{
			"semicolon in string",
			"INSERT INTO t VALUES ('a;b'); SELECT 1",
			[]string{"INSERT INTO t VALUES ('a;b')", "SELECT 1"},
		},
		{
			"escaped quote",
			"INSERT INTO t VALUES ('it''s;'); SELECT 2",
			[]string{"INSERT INTO t VALUES ('it''s;')", "SELECT 2"},
		},
		{
			"semicolon in quoted identifier",
			`SELECT "a;b" FROM t; SELECT 3`,
			[]string{`SELECT "a;b" FROM t`, "SELECT 3"},
		},
		{
			"comments",
			"SELECT 1; -- drop; this\nSELECT 2 /* ; */ ; /* only a comment */",
			[]string{"SELECT 1", "SELECT 2"},
		},
		{
			"arithmetic operators survive",
			"SELECT 4 - 2 / 1; SELECT 1",
			[]string{"SELECT 4 - 2 / 1", "SELECT 1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			statements, err := Split(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, statements)
		})
	}
}

func TestSplitUnterminatedString(t *testing.T) {
	_, err := Split("SELECT 'abc; SELECT 1")
	assert.Error(t, err)
}

func TestSplitRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 8).Draw(rt, "n")
		statements := make([]string, n)
		for i := range statements {
			literal := rapid.StringMatching(`[a-z ;]{0,8}`).Draw(rt, "literal")
			statements[i] = "SELECT '" + literal + "'"
		}

		got, err := Split(strings.Join(statements, ";\n"))
		if err != nil {
			rt.Fatalf("split failed: %v", err)
		}
		if len(got) != n {
			rt.Fatalf("expected %d statements, got %d: %v", n, len(got), got)
		}
		for i := range statements {
			if got[i] != statements[i] {
				rt.Fatalf("statement %d: expected %q, got %q", i, statements[i], got[i])
			}
		}
	})
}
