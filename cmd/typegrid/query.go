package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jward/typegrid"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query stored compilations",
	Long:  "Read pages and columns back from a database written by 'typegrid compile --db'.",
}

func init() {
	queryCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path")
	queryCmd.PersistentFlags().Int64Var(&flagCompilation, "compilation", 0, "compilation ID (default: latest)")
	_ = queryCmd.MarkPersistentFlagRequired("db")

	queryCmd.AddCommand(pagesCmd)
	queryCmd.AddCommand(columnsCmd)
	queryCmd.AddCommand(referencingCmd)
}

var pagesCmd = &cobra.Command{
	Use:   "pages",
	Short: "List the pages of a compilation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, id, err := openCompilation()
		if err != nil {
			return outputError(cmd, "pages", err)
		}
		defer s.Close()

		pages, err := s.PagesByCompilation(id)
		if err != nil {
			return outputError(cmd, "pages", err)
		}
		results := make([]CLIPage, 0, len(pages))
		for _, p := range pages {
			results = append(results, CLIPage{Name: p.Name, ColumnCount: p.ColumnCount})
		}
		return outputResult(cmd, CLIResult{Command: "pages", Results: results})
	},
}

var columnsCmd = &cobra.Command{
	Use:   "columns <page>",
	Short: "List the columns of one page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, id, err := openCompilation()
		if err != nil {
			return outputError(cmd, "columns", err)
		}
		defer s.Close()

		page, err := s.PageByName(id, args[0])
		if err != nil {
			return outputError(cmd, "columns", err)
		}
		if page == nil {
			names, _ := pageNames(s, id)
			return outputError(cmd, "columns", fmt.Errorf("page %q not found%s", args[0], similar(typegrid.SuggestSheets(args[0], names))))
		}
		results := make([]CLIColumn, 0, len(page.Columns))
		for _, c := range page.Columns {
			results = append(results, CLIColumn{
				TagName:     c.TagName,
				DataType:    c.DataType,
				Description: c.Description,
				Labels:      typegrid.LabelStrings(c.AncestorLabels),
			})
		}
		return outputResult(cmd, CLIResult{Command: "columns", Results: results})
	},
}

var referencingCmd = &cobra.Command{
	Use:   "referencing <page>",
	Short: "List the pages with a column typed as the given page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, id, err := openCompilation()
		if err != nil {
			return outputError(cmd, "referencing", err)
		}
		defer s.Close()

		names, err := s.PagesReferencing(id, args[0])
		if err != nil {
			return outputError(cmd, "referencing", err)
		}
		if names == nil {
			names = []string{}
		}
		return outputResult(cmd, CLIResult{Command: "referencing", Results: names})
	},
}

// --- Helpers ---

// openStore opens the database named by --db, which must exist.
func openStore() (*typegrid.Store, error) {
	if _, err := os.Stat(flagDB); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: %s (run 'typegrid compile --db' first)", flagDB)
	}
	return typegrid.OpenStore(flagDB)
}

// resolveCompilation returns --compilation, or the latest compilation.
func resolveCompilation(s *typegrid.Store) (int64, error) {
	if flagCompilation != 0 {
		c, err := s.CompilationByID(flagCompilation)
		if err != nil {
			return 0, err
		}
		if c == nil {
			return 0, fmt.Errorf("compilation %d not found", flagCompilation)
		}
		return c.ID, nil
	}
	c, err := s.LatestCompilation()
	if err != nil {
		return 0, err
	}
	if c == nil {
		return 0, fmt.Errorf("no compilations in %s", flagDB)
	}
	return c.ID, nil
}

func openCompilation() (*typegrid.Store, int64, error) {
	s, err := openStore()
	if err != nil {
		return nil, 0, err
	}
	id, err := resolveCompilation(s)
	if err != nil {
		s.Close()
		return nil, 0, err
	}
	return s, id, nil
}

func pageNames(s *typegrid.Store, id int64) ([]string, error) {
	pages, err := s.PagesByCompilation(id)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(pages))
	for _, p := range pages {
		names = append(names, p.Name)
	}
	return names, nil
}

func similar(names []string) string {
	if len(names) == 0 {
		return ""
	}
	return fmt.Sprintf(" (similar pages: %q)", names)
}

// outputResult writes a CLIResult in the selected format.
func outputResult(cmd *cobra.Command, result CLIResult) error {
	w := cmd.OutOrStdout()
	if flagFormat == "text" {
		return outputResultText(w, result)
	}
	return writeJSON(w, result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(cmd *cobra.Command, command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err)
		return err
	}
	_ = writeJSON(cmd.OutOrStdout(), CLIResult{Command: command, Error: err.Error()})
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
