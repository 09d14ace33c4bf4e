package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/gregkdunn/flipper-mcp/internal/app"
	"github.com/gregkdunn/flipper-mcp/internal/config"
	"github.com/gregkdunn/flipper-mcp/internal/flipper"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	// Version is injected at build time
	Version = "dev"
	// Build is injected at build time
	Build = "unknown"
	// ProgramName is injected at build time
	ProgramName = "flipper-mcp"
)

func main() {
	runMain(os.Args, os.Exit)
}

func runMain(args []string, exit func(int)) {
	if err := Execute(Version, Build, ProgramName, args[1:]); err != nil {
		exit(1)
	}
}

// Execute is the entry point for the CLI, extracted for testing
func Execute(version, build, programName string, args []string) error {
	rootCmd := &cobra.Command{
		Use:     programName,
		Short:   "Flipper flag scanner MCP server",
		Long:    "Detects feature flag (flipper) usage in source text and diffs, and synthesizes flag review artifacts",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithFlags(cmd.Flags(), version)
		},
	}

	rootCmd.SetVersionTemplate(`{{.Version}}
`)

	app.RegisterFlags(rootCmd.Flags())
	rootCmd.AddCommand(newScanCommand())
	rootCmd.SetArgs(args)

	return rootCmd.Execute()
}

// newScanCommand builds the one-shot scan subcommand: read a unified diff
// from a file or stdin, print the flag report sections and exit.
func newScanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [diff-file]",
		Short: "Analyze a unified diff for feature flag usage",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var diff []byte
			var err error
			if len(args) == 1 {
				diff, err = os.ReadFile(args[0])
			} else {
				diff, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("failed to read diff: %w", err)
			}
			return runScan(cmd.Context(), cmd.OutOrStdout(), string(diff))
		},
	}
	return cmd
}

// runScan runs the diff pipeline once, without index or watcher.
func runScan(ctx context.Context, out io.Writer, diff string) error {
	settings, err := config.LoadSettings()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	svc, err := flipper.NewService(&settings.Scanner)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	if ctx == nil {
		ctx = context.Background()
	}
	result := svc.AnalyzeDiff(ctx, diff)

	fmt.Fprintln(out, result.Summary)
	if result.QASection != "" {
		fmt.Fprintln(out)
		fmt.Fprint(out, result.QASection)
		fmt.Fprintln(out)
		fmt.Fprint(out, result.DetailsSection)
	}
	return nil
}

func runWithFlags(flags *pflag.FlagSet, version string) error {
	return app.RunWithDeps(context.Background(), app.DefaultRunParams(), flags, version)
}
