package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jward/typegrid"
	"github.com/jward/typegrid/internal/xlsx"
)

var (
	flagSheet      string
	flagDB         string
	flagOut        string
	flagHooks      []string
	flagSubProcess []string
	flagBasicTypes []string
)

var compileCmd = &cobra.Command{
	Use:   "compile <workbook.xlsx>",
	Short: "Compile a workbook into pages",
	Long:  "Builds the tree rooted at the root grid, flattens it into pages, and optionally saves the result to a database or exports the pages to a workbook.",
	Args:  cobra.ExactArgs(1),
	RunE:  runCompile,
}

func init() {
	compileCmd.Flags().StringVar(&flagSheet, "sheet", "", "root grid (default from config)")
	compileCmd.Flags().StringVar(&flagDB, "db", "", "save the compilation to this SQLite database")
	compileCmd.Flags().StringVar(&flagOut, "out", "", "export pages to this .xlsx file")
	compileCmd.Flags().StringArrayVar(&flagHooks, "hook", nil, "hook script as name=path (repeatable)")
	compileCmd.Flags().StringArrayVar(&flagSubProcess, "sub-process", nil, "sub-process identifier (repeatable, adds to config)")
	compileCmd.Flags().StringArrayVar(&flagBasicTypes, "basic-type", nil, "basic type name (repeatable, replaces config)")
}

func runCompile(cmd *cobra.Command, args []string) error {
	opts, err := compileOptions()
	if err != nil {
		return outputError(cmd, "compile", err)
	}

	wb, err := xlsx.Open(args[0])
	if err != nil {
		return outputError(cmd, "compile", err)
	}
	defer wb.Close()

	c, err := typegrid.New(opts...)
	if err != nil {
		return outputError(cmd, "compile", err)
	}
	defer c.Close()

	res, err := c.Compile(cmd.Context(), wb, rootSheet())
	if err != nil {
		return outputError(cmd, "compile", err)
	}

	if flagOut != "" {
		if err := xlsx.WritePages(flagOut, res.Pages.Pages()); err != nil {
			return outputError(cmd, "compile", err)
		}
	}

	summary := CLICompileSummary{
		CompilationID: res.CompilationID,
		Sheet:         res.Document.Sheet,
		Description:   res.Document.Description,
		Version:       res.Document.Version,
		NodeCount:     res.Document.CountNodes(),
		Output:        flagOut,
	}
	for _, p := range res.Pages.Pages() {
		summary.Pages = append(summary.Pages, CLIPage{Name: p.Name, ColumnCount: len(p.Columns)})
	}
	for _, d := range res.Diagnostics {
		summary.Diagnostics = append(summary.Diagnostics, CLIDiagnostic{Hook: d.Hook, Message: d.Message})
	}
	return outputResult(cmd, CLIResult{Command: "compile", Results: summary})
}

// compileOptions merges the configuration with command-line overrides.
func compileOptions() ([]typegrid.Option, error) {
	opts := cfg.Options()
	if len(flagSubProcess) > 0 {
		opts = append(opts, typegrid.WithSubProcesses(slices.Concat(cfg.SubProcesses, flagSubProcess)...))
	}
	if len(flagBasicTypes) > 0 {
		opts = append(opts, typegrid.WithBasicTypes(flagBasicTypes...))
	}
	if flagDB != "" {
		opts = append(opts, typegrid.WithDatabase(flagDB))
	}
	for _, h := range flagHooks {
		name, path, ok := strings.Cut(h, "=")
		if !ok || name == "" || path == "" {
			return nil, fmt.Errorf("invalid --hook %q: want name=path", h)
		}
		opts = append(opts, typegrid.WithHook(name, path))
	}
	return opts, nil
}

// rootSheet returns the --sheet flag or the configured root grid.
func rootSheet() string {
	if flagSheet != "" {
		return flagSheet
	}
	return cfg.RootSheet
}
