package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var validateJSON bool

// validateCmd checks text against the brand rules without generating
// anything. Text comes from arguments or stdin.
var validateCmd = &cobra.Command{
	Use:   "validate [text]",
	Short: "Validate text against the brand knowledge base",
	RunE: func(cmd *cobra.Command, args []string) error {
		var text string
		if len(args) > 0 {
			text = strings.Join(args, " ")
		} else {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("failed to read stdin: %w", err)
			}
			text = string(data)
		}

		v, _ := newKBValidator()
		result := v.Validate(text)

		out := cmd.OutOrStdout()
		if validateJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}

		if result.IsValid {
			fmt.Fprintln(out, "APPROVED")
		} else {
			fmt.Fprintln(out, "REJECTED")
		}
		for _, v := range result.Violations {
			fmt.Fprintf(out, "  violation: %s\n", v)
		}
		for _, w := range result.Warnings {
			fmt.Fprintf(out, "  note: %s\n", w)
		}
		fmt.Fprintf(out, "  tone: %s\n", result.DetectedTone)
		return nil
	},
}

func init() {
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "emit the full result as JSON")
}
