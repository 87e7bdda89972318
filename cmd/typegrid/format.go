package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/xlab/treeprint"

	"github.com/jward/typegrid"
)

// formatCompileText formats a compile summary as readable text.
func formatCompileText(w io.Writer, s CLICompileSummary) {
	fmt.Fprintf(w, "Sheet: %s\n", s.Sheet)
	if s.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", s.Description)
	}
	if s.Version != "" {
		fmt.Fprintf(w, "Version: %s\n", s.Version)
	}
	fmt.Fprintf(w, "Nodes: %d\n", s.NodeCount)
	if s.CompilationID != 0 {
		fmt.Fprintf(w, "Compilation: %d\n", s.CompilationID)
	}
	fmt.Fprintln(w)
	formatPagesText(w, s.Pages)

	if len(s.Diagnostics) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Diagnostics:")
		for _, d := range s.Diagnostics {
			fmt.Fprintf(w, "  [%s] %s\n", d.Hook, d.Message)
		}
	}
	if s.Output != "" {
		fmt.Fprintf(w, "\nWrote %s\n", s.Output)
	}
}

// formatPagesText formats CLIPage results as aligned columns.
func formatPagesText(w io.Writer, pages []CLIPage) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PAGE\tCOLUMNS")
	for _, p := range pages {
		fmt.Fprintf(tw, "%s\t%d\n", p.Name, p.ColumnCount)
	}
	tw.Flush()
}

// formatColumnsText formats CLIColumn results as aligned columns.
func formatColumnsText(w io.Writer, cols []CLIColumn) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LEVELS\tTAG\tTYPE\tDESCRIPTION")
	for _, c := range cols {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", strings.Join(c.Labels, " / "), c.TagName, c.DataType, c.Description)
	}
	tw.Flush()
}

// formatTreeText renders a document as an indented tree.
func formatTreeText(w io.Writer, doc *typegrid.Document) {
	tree := treeprint.NewWithRoot(doc.Sheet)
	for _, n := range doc.Nodes {
		addTreeNode(tree, n)
	}
	fmt.Fprint(w, tree.String())
}

func addTreeNode(parent treeprint.Tree, n *typegrid.Node) {
	label := n.Name
	if t := n.Type.String(); t != "" {
		label = fmt.Sprintf("%s: %s", n.Name, t)
	}
	if n.Description != "" {
		label = fmt.Sprintf("%s (%s)", label, n.Description)
	}
	if n.IsLeaf() {
		parent.AddNode(label)
		return
	}
	branch := parent.AddBranch(label)
	for _, c := range n.Children {
		addTreeNode(branch, c)
	}
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type.
func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case CLICompileSummary:
		formatCompileText(w, v)
	case []CLIPage:
		formatPagesText(w, v)
	case []CLIColumn:
		formatColumnsText(w, v)
	case *typegrid.Document:
		formatTreeText(w, v)
	case []string:
		for _, s := range v {
			fmt.Fprintln(w, s)
		}
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
