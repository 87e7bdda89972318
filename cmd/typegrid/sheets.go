package main

import (
	"github.com/spf13/cobra"

	"github.com/jward/typegrid"
	"github.com/jward/typegrid/internal/xlsx"
)

var flagLike string

var sheetsCmd = &cobra.Command{
	Use:   "sheets <workbook.xlsx>",
	Short: "List the grids of a workbook",
	Long:  "Lists sheet names in workbook order. With --like, lists only sheets similar to the given name, closest first.",
	Args:  cobra.ExactArgs(1),
	RunE:  runSheets,
}

func init() {
	sheetsCmd.Flags().StringVar(&flagLike, "like", "", "list sheets similar to this name")
}

func runSheets(cmd *cobra.Command, args []string) error {
	wb, err := xlsx.Open(args[0])
	if err != nil {
		return outputError(cmd, "sheets", err)
	}
	defer wb.Close()

	names := wb.SheetNames()
	if flagLike != "" {
		names = typegrid.SuggestSheets(flagLike, names)
	}
	if names == nil {
		names = []string{}
	}
	return outputResult(cmd, CLIResult{Command: "sheets", Results: names})
}
