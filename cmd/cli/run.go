package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nickyhof/RouteDB"
	"github.com/nickyhof/RouteDB/router"
	"github.com/nickyhof/RouteDB/script"
	"github.com/nickyhof/RouteDB/sql"
)

type runOptions struct {
	export string
	s3     script.S3Options
}

func newRunCommand() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run <location>",
		Short: "Run a SQL script as one batch",
		Long: `Run a SQL script as one batch. The location may be a local path,
a file://, http(s):// or s3:// URL. The batch stops at the first failing
statement; earlier statements stay applied.`,
		Example: `  routedb run schema.sql
  routedb run s3://bucket/seed.sql --export results.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			instance, err := openInstance(cmd.Context())
			if err != nil {
				return err
			}
			defer instance.Close()
			return runScript(cmd.Context(), instance, args[0], opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.export, "export", "", "write the payloads as JSON to this location")
	cmd.Flags().StringVar(&opts.s3.Region, "s3-region", "", "region for s3:// locations")
	cmd.Flags().StringVar(&opts.s3.Endpoint, "s3-endpoint", "", "custom endpoint for S3-compatible storage")
	cmd.Flags().StringVar(&opts.s3.AccessKey, "s3-access-key", "", "access key for s3:// locations")
	cmd.Flags().StringVar(&opts.s3.SecretKey, "s3-secret-key", "", "secret key for s3:// locations")
	return cmd
}

// runScript executes a script location and prints one line per statement.
func runScript(ctx context.Context, instance *RouteDB.Instance, location string, opts runOptions, out io.Writer) error {
	text, err := script.Load(ctx, location, &opts.s3)
	if err != nil {
		return err
	}

	statements, err := sql.Split(text)
	if err != nil {
		return err
	}

	payloads, err := instance.Query(ctx, text)
	if err != nil {
		fmt.Fprintf(out, "%s✗ %v%s\n", ErrorColor, err, ResetColor)
		return err
	}

	for i, payload := range payloads {
		fmt.Fprintf(out, "%s[%d] ✓ %s%s%s\n", SuccessColor, i+1, truncate(statements[i], 50), summary(payload), ResetColor)
	}
	fmt.Fprintf(out, "\n%s✓ %d statement(s) executed%s\n", SuccessColor, len(payloads), ResetColor)

	if opts.export != "" {
		if err := script.Export(ctx, opts.export, payloads, &opts.s3); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s✓ Exported to %s%s\n", SuccessColor, opts.export, ResetColor)
	}
	return nil
}

// summary gives the compact detail shown after a statement
func summary(payload router.Payload) string {
	switch p := payload.(type) {
	case router.Insert:
		return fmt.Sprintf(" (%d inserted)", p.Affected)
	case router.Update:
		return fmt.Sprintf(" (%d updated)", p.Affected)
	case router.Delete:
		return fmt.Sprintf(" (%d deleted)", p.Affected)
	case router.Select:
		return fmt.Sprintf(" (%d rows)", len(p.Rows))
	case router.ShowTables:
		return fmt.Sprintf(" (%d tables)", len(p.Tables))
	default:
		return ""
	}
}

// truncate shortens a string to max length with ellipsis
func truncate(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
