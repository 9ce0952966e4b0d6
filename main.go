package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "milestonedesk",
	Short: "Milestone dashboard backend",
	Long: `milestonedesk hosts the milestone dashboard sync engine.

Each dashboard session gets its own engine that polls the document
listing, relays chat and uploads to the remote agent, and keeps an
execution log and CSV exports.`,
	SilenceUsage: true,
}

func main() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(parseCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
