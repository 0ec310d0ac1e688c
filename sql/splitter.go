package sql

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// splitLexer recognises only what matters for finding statement
// boundaries: quoted runs and comments, which may contain semicolons,
// and the semicolons themselves.
var splitLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `--[^\n]*|/\*(?s:.*?)\*/`},
	{Name: "String", Pattern: `'(?:[^']|'')*'`},
	{Name: "QuotedIdent", Pattern: "\"(?:[^\"]|\"\")*\"|`[^`]*`"},
	{Name: "Semicolon", Pattern: `;`},
	{Name: "Text", Pattern: "[^;'\"`\\-/]+|[-/]"},
})

var (
	commentToken   = splitLexer.Symbols()["Comment"]
	semicolonToken = splitLexer.Symbols()["Semicolon"]
)

// Split decomposes a batch into its statements, in order. Semicolons
// inside strings, quoted identifiers and comments do not end a
// statement; comments are dropped and empty statements skipped.
func Split(text string) ([]string, error) {
	lex, err := splitLexer.LexString("", text)
	if err != nil {
		return nil, err
	}

	statements := []string{}
	var current strings.Builder
	flush := func() {
		if statement := strings.TrimSpace(current.String()); statement != "" {
			statements = append(statements, statement)
		}
		current.Reset()
	}

	for {
		token, err := lex.Next()
		if err != nil {
			return nil, fmt.Errorf("split: %w", err)
		}
		if token.EOF() {
			break
		}

		switch token.Type {
		case semicolonToken:
			flush()
		case commentToken:
			current.WriteByte(' ')
		default:
			current.WriteString(token.Value)
		}
	}
	flush()

	return statements, nil
}
