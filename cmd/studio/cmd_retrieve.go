package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"brandstudio/internal/retrieval"
)

var retrieveTopK int

// retrieveCmd queries the guideline index from the command line.
var retrieveCmd = &cobra.Command{
	Use:   "retrieve <query>",
	Short: "Query the guideline index",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		retriever, err := loadRetriever()
		if err != nil {
			return err
		}
		if retriever == nil {
			return fmt.Errorf("no guideline index found, run 'studio index build' first")
		}

		query := strings.Join(args, " ")
		snippets, err := retriever.Retrieve(cmd.Context(), query, retrieveTopK)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), retrieval.FormatSnippets(snippets))
		return nil
	},
}

func init() {
	retrieveCmd.Flags().IntVarP(&retrieveTopK, "top-k", "k", 0, "number of snippets (default from config)")
}
