package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jward/typegrid"
	"github.com/jward/typegrid/internal/xlsx"
)

var flagCompilation int64

var treeCmd = &cobra.Command{
	Use:   "tree [workbook.xlsx]",
	Short: "Show the configuration tree",
	Long:  "Builds and prints the tree rooted at the root grid. Without a workbook, prints a stored compilation from --db.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTree,
}

func init() {
	treeCmd.Flags().StringVar(&flagSheet, "sheet", "", "root grid (default from config)")
	treeCmd.Flags().StringVar(&flagDB, "db", "", "read a stored compilation from this database")
	treeCmd.Flags().Int64Var(&flagCompilation, "compilation", 0, "stored compilation ID (default: latest)")
}

func runTree(cmd *cobra.Command, args []string) error {
	var doc *typegrid.Document
	var err error
	if len(args) == 1 {
		doc, err = buildTree(cmd, args[0])
	} else {
		doc, err = loadTree()
	}
	if err != nil {
		return outputError(cmd, "tree", err)
	}
	return outputResult(cmd, CLIResult{Command: "tree", Results: doc})
}

func buildTree(cmd *cobra.Command, path string) (*typegrid.Document, error) {
	wb, err := xlsx.Open(path)
	if err != nil {
		return nil, err
	}
	defer wb.Close()
	b := typegrid.NewBuilder(wb, cfg.SubProcesses, cfg.BasicTypes, cfg.Layout)
	return b.Build(cmd.Context(), rootSheet())
}

func loadTree() (*typegrid.Document, error) {
	if flagDB == "" {
		return nil, fmt.Errorf("tree needs a workbook argument or --db")
	}
	s, err := openStore()
	if err != nil {
		return nil, err
	}
	defer s.Close()
	id, err := resolveCompilation(s)
	if err != nil {
		return nil, err
	}
	return typegrid.LoadDocument(s, id)
}
