package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/techpathlabs/milestonedesk/config"
	"github.com/techpathlabs/milestonedesk/export"
	"github.com/techpathlabs/milestonedesk/parser"
)

func parseCmd() *cobra.Command {
	var asCSV bool
	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Extract milestones from a local CSV or HTML file",
		Long: `Runs the same CSV and HTML table extraction the engine applies in
local mode and prints the rows. Files that are neither CSV nor HTML are
sniffed by content.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			p := &parser.Parser{}
			items := p.ParseFile(filepath.Base(args[0]), content)
			if len(items) == 0 {
				return fmt.Errorf("no milestones found in %s", args[0])
			}

			out := cmd.OutOrStdout()
			if asCSV {
				fmt.Fprintln(out, export.GenerateCSV(items, config.ModeLocal))
				return nil
			}

			tw := table.NewWriter()
			tw.SetOutputMirror(out)
			tw.AppendHeader(table.Row{"#", "Deadline", "Task", "Document Reference", "Context", "Status"})
			for i, m := range items {
				tw.AppendRow(table.Row{i + 1, m.DeadlineDate, m.Name, m.DocumentRef, m.Context, m.Status})
			}
			tw.AppendFooter(table.Row{"", "", "", "", "Total", len(items)})
			tw.Render()
			return nil
		},
	}
	cmd.Flags().BoolVar(&asCSV, "csv", false, "print the export CSV instead of a table")
	return cmd
}
