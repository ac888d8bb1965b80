package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"brandstudio/internal/orchestrate"
	"brandstudio/internal/regen"
	"brandstudio/internal/store"
)

var (
	campaignBrand     string
	campaignObjective string
	campaignAudience  string
	campaignAttempts  int
	campaignNoStore   bool
)

// campaignCmd groups campaign subcommands.
var campaignCmd = &cobra.Command{
	Use:   "campaign",
	Short: "Run and inspect campaigns",
}

var campaignRunCmd = &cobra.Command{
	Use:   "run <name>",
	Short: "Run the full pipeline for one campaign",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if campaignBrand == "" {
			return fmt.Errorf("--brand is required")
		}

		var st *store.Store
		campaignID := ""
		if !campaignNoStore {
			var err error
			st, err = store.Open(cfg.Store.DatabasePath)
			if err != nil {
				return fmt.Errorf("failed to open campaign store: %w", err)
			}
			defer st.Close()

			c, err := st.CreateCampaign(cmd.Context(), name, campaignBrand, campaignObjective, campaignAudience)
			if err != nil {
				return err
			}
			campaignID = c.ID
		}

		v, loader := newKBValidator()

		retriever, err := loadRetriever()
		if err != nil {
			return err
		}

		gen, err := newGenerator()
		if err != nil {
			return fmt.Errorf("failed to create generator: %w", err)
		}

		attempts := campaignAttempts
		if attempts <= 0 {
			attempts = cfg.Regeneration.MaxAttempts
		}

		o := orchestrate.New(retriever, gen, v, regen.NewControllerFromKB(loader), st)
		result, err := o.Run(cmd.Context(), campaignID, regen.Inputs{
			CampaignName: name,
			Brand:        campaignBrand,
			Objective:    campaignObjective,
			Audience:     campaignAudience,
		}, attempts)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Status: %s (attempts: %d)\n\n", result.Status, result.Attempts)
		fmt.Fprintln(out, result.Content)
		if len(result.Validation.Violations) > 0 {
			fmt.Fprintln(out, "\nOutstanding violations:")
			for _, viol := range result.Validation.Violations {
				fmt.Fprintf(out, "  - %s\n", viol)
			}
		}
		return nil
	},
}

var campaignListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored campaigns",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cfg.Store.DatabasePath)
		if err != nil {
			return fmt.Errorf("failed to open campaign store: %w", err)
		}
		defer st.Close()

		campaigns, err := st.ListCampaigns(cmd.Context())
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(campaigns)
	},
}

func init() {
	campaignRunCmd.Flags().StringVar(&campaignBrand, "brand", "", "brand name (required)")
	campaignRunCmd.Flags().StringVar(&campaignObjective, "objective", "", "campaign objective")
	campaignRunCmd.Flags().StringVar(&campaignAudience, "audience", "", "target audience")
	campaignRunCmd.Flags().IntVar(&campaignAttempts, "max-attempts", 0, "regeneration attempts (default from config)")
	campaignRunCmd.Flags().BoolVar(&campaignNoStore, "no-store", false, "skip persisting the run")

	campaignCmd.AddCommand(campaignRunCmd)
	campaignCmd.AddCommand(campaignListCmd)
}
