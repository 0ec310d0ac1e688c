package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/nickyhof/RouteDB"
	"github.com/nickyhof/RouteDB/router"
)

const maxHistory = 1000

// CLI holds the interactive shell state
type CLI struct {
	instance    *RouteDB.Instance
	out         io.Writer
	history     []string
	historyFile string
}

func NewCLI(instance *RouteDB.Instance, out io.Writer) *CLI {
	return &CLI{
		instance:    instance,
		out:         out,
		history:     make([]string, 0),
		historyFile: getHistoryPath(),
	}
}

func printBanner(w io.Writer) {
	fmt.Fprintln(w)
	bannerWidth := 39 // inner width of the banner box
	versionLine := fmt.Sprintf("RouteDB v%s", Version)
	padding := bannerWidth - len(versionLine) - 2
	if padding < 0 {
		padding = 0
	}
	leftPad := padding / 2
	rightPad := padding - leftPad

	fmt.Fprintf(w, "%s%s╔═══════════════════════════════════════╗%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Fprintf(w, "%s%s║ %*s%s%*s ║%s\n", BoldColor, PromptColor, leftPad, "", versionLine, rightPad, "", ResetColor)
	fmt.Fprintf(w, "%s%s║   SQL across pluggable engines        ║%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Fprintf(w, "%s%s╚═══════════════════════════════════════╝%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Type .help for commands, .quit to exit")
	fmt.Fprintln(w)
}

// Run reads statements until EOF or .quit. Input is accumulated until a
// line ends with a semicolon, then the whole buffer runs as one batch.
func (cli *CLI) Run(ctx context.Context) error {
	cli.loadHistory()
	defer cli.saveHistory()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          cli.prompt(false),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
		Stdout:          cli.out,
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	for _, entry := range cli.history {
		_ = rl.SaveHistory(entry)
	}

	var buffer strings.Builder
	for {
		rl.SetPrompt(cli.prompt(buffer.Len() > 0))
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if buffer.Len() == 0 && len(line) == 0 {
				break
			}
			buffer.Reset()
			continue
		} else if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		if strings.TrimSpace(line) == "" {
			continue
		}

		if buffer.Len() == 0 && strings.HasPrefix(strings.TrimSpace(line), ".") {
			if quit := cli.handleCommand(ctx, line); quit {
				return nil
			}
			continue
		}

		buffer.WriteString(line)
		text := strings.TrimSpace(buffer.String())
		if !strings.HasSuffix(text, ";") {
			buffer.WriteString("\n")
			continue
		}
		buffer.Reset()

		cli.addToHistory(text)
		cli.Execute(ctx, text)
	}

	fmt.Fprintf(cli.out, "\n%sGoodbye!%s\n", SuccessColor, ResetColor)
	return nil
}

func (cli *CLI) prompt(multiLine bool) string {
	if multiLine {
		return fmt.Sprintf("%s   ...>%s ", PromptColor, ResetColor)
	}
	return fmt.Sprintf("%sroutedb>%s ", PromptColor, ResetColor)
}

// Execute runs one batch and prints each payload or the error.
func (cli *CLI) Execute(ctx context.Context, text string) {
	payloads, err := cli.instance.Query(ctx, text)
	if err != nil {
		cli.printError(err)
		return
	}
	for _, payload := range payloads {
		renderPayload(cli.out, payload)
	}
}

func (cli *CLI) printError(err error) {
	fmt.Fprintf(cli.out, "%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)

	var queryErr *router.QueryError
	if errors.As(err, &queryErr) && queryErr.Statement != "" {
		fmt.Fprintf(cli.out, "%s  at: %s%s\n", ErrorColor, truncate(queryErr.Statement, 60), ResetColor)
	}
}

// handleCommand runs a dot command and reports whether the shell should exit.
func (cli *CLI) handleCommand(ctx context.Context, input string) bool {
	parts := strings.Fields(strings.TrimSpace(input))
	if len(parts) == 0 {
		return false
	}

	switch strings.ToLower(parts[0]) {
	case ".quit", ".exit", ".q":
		fmt.Fprintf(cli.out, "%sGoodbye!%s\n", SuccessColor, ResetColor)
		return true

	case ".help", ".h", ".?":
		cli.printHelp()

	case ".tables":
		cli.showTables()

	case ".engines":
		cli.showEngines()

	case ".default":
		if len(parts) < 2 {
			fmt.Fprintf(cli.out, "%s✗ Usage: .default <engine>%s\n", ErrorColor, ResetColor)
			break
		}
		if err := cli.instance.SetDefaultEngine(parts[1]); err != nil {
			cli.printError(err)
			break
		}
		fmt.Fprintf(cli.out, "%s✓ Default engine: %s%s\n", SuccessColor, parts[1], ResetColor)

	case ".clear", ".cls":
		fmt.Fprint(cli.out, "\033[H\033[2J")

	case ".history":
		cli.printHistory()

	case ".version":
		fmt.Fprintf(cli.out, "RouteDB version %s\n", Version)

	case ".import":
		if len(parts) < 2 {
			fmt.Fprintf(cli.out, "%s✗ Usage: .import <location>%s\n", ErrorColor, ResetColor)
			break
		}
		if err := runScript(ctx, cli.instance, parts[1], runOptions{}, cli.out); err != nil {
			var queryErr *router.QueryError
			if !errors.As(err, &queryErr) {
				cli.printError(err)
			}
		}

	default:
		fmt.Fprintf(cli.out, "%s✗ Unknown command: %s (type .help for commands)%s\n", ErrorColor, parts[0], ResetColor)
	}
	return false
}

func (cli *CLI) printHelp() {
	w := cli.out
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s%sSpecial Commands:%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Fprintln(w, "  .help, .h           Show this help message")
	fmt.Fprintln(w, "  .quit, .exit        Exit the shell")
	fmt.Fprintln(w, "  .tables             List known tables and their engines")
	fmt.Fprintln(w, "  .engines            List registered engines")
	fmt.Fprintln(w, "  .default <engine>   Route new tables to another engine")
	fmt.Fprintln(w, "  .import <location>  Run a SQL script (path, http(s)://, s3://)")
	fmt.Fprintln(w, "  .history            Show command history")
	fmt.Fprintln(w, "  .clear              Clear the screen")
	fmt.Fprintln(w, "  .version            Show version info")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s%sSQL Commands:%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Fprintln(w, "  CREATE TABLE <table> (<column> <type>, ...) [ENGINE = <engine>];")
	fmt.Fprintln(w, "  DROP TABLE [IF EXISTS] <table>;")
	fmt.Fprintln(w, "  ALTER TABLE <table> RENAME TO <name>;")
	fmt.Fprintln(w, "  INSERT INTO <table> [(<cols>)] VALUES (<vals>), ...;")
	fmt.Fprintln(w, "  SELECT <cols> FROM <table> [WHERE ...] [ORDER BY ...] [LIMIT n];")
	fmt.Fprintln(w, "  UPDATE <table> SET <col> = <val> [WHERE ...];")
	fmt.Fprintln(w, "  DELETE FROM <table> [WHERE ...];")
	fmt.Fprintln(w, "  SHOW TABLES; SHOW COLUMNS FROM <table>; SHOW VERSION;")
	fmt.Fprintln(w)
}

func (cli *CLI) showTables() {
	tables := cli.instance.Router().Tables()
	if len(tables) == 0 {
		fmt.Fprintln(cli.out, "No tables")
		return
	}

	table := NewTable(cli.out)
	table.Header([]string{"table", "engine"})
	for _, name := range tables {
		owner, _ := cli.instance.Router().Owner(name)
		table.Row([]string{name, owner})
	}
	table.Render()
}

func (cli *CLI) showEngines() {
	engines := cli.instance.Router().Engines()
	if len(engines) == 0 {
		fmt.Fprintln(cli.out, "No engines loaded")
		return
	}
	for _, name := range engines {
		fmt.Fprintf(cli.out, "  %s\n", name)
	}
}

func (cli *CLI) addToHistory(cmd string) {
	// Don't add duplicates of the last command
	if len(cli.history) > 0 && cli.history[len(cli.history)-1] == cmd {
		return
	}
	cli.history = append(cli.history, cmd)

	if len(cli.history) > maxHistory {
		cli.history = cli.history[len(cli.history)-maxHistory:]
	}
}

func (cli *CLI) printHistory() {
	if len(cli.history) == 0 {
		fmt.Fprintln(cli.out, "No command history")
		return
	}

	start := 0
	if len(cli.history) > 20 {
		start = len(cli.history) - 20
	}
	for i := start; i < len(cli.history); i++ {
		fmt.Fprintf(cli.out, "  %3d  %s\n", i+1, strings.ReplaceAll(cli.history[i], "\n", " "))
	}
}

func getHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".routedb_history")
}

// History entries are stored one per line; multi-line statements are
// folded onto a single line.
func (cli *CLI) loadHistory() {
	if cli.historyFile == "" {
		return
	}

	file, err := os.Open(cli.historyFile)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		cli.addToHistory(scanner.Text())
	}
}

func (cli *CLI) saveHistory() {
	if cli.historyFile == "" {
		return
	}

	file, err := os.Create(cli.historyFile)
	if err != nil {
		return
	}
	defer file.Close()

	for _, entry := range cli.history {
		_, _ = file.WriteString(strings.ReplaceAll(entry, "\n", " ") + "\n")
	}
}
