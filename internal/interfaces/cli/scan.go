package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	riskTypes "github.com/granite-grc/granite/pkg/types/risk"
)

func newScanCommand(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "scan <risk-id>",
		Short: "Run a similarity scan against the register",
		Long:  "Starts an on-demand similarity scan for a stored risk, polls its progress, and prints the ranked matches.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			c := opts.newClient()
			scanID, err := c.StartScan(ctx, args[0], limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			lastPct := -1
			final, err := c.WaitForScan(ctx, scanID, 0, func(s riskTypes.ScanStatusDTO) {
				if !opts.jsonOutput && s.Progress.Percentage != lastPct {
					printf(out, "\rscanning... %3d%%", s.Progress.Percentage)
					lastPct = s.Progress.Percentage
				}
			})
			if err != nil {
				return err
			}
			if !opts.jsonOutput {
				printf(out, "\n")
			}

			if final.State == "FAILED" {
				return fmt.Errorf("scan failed: %s", final.Error)
			}
			if opts.jsonOutput {
				return printJSON(out, final)
			}

			if len(final.SimilarRisks) == 0 {
				printf(out, "no similar risks found\n")
				return nil
			}
			for _, m := range final.SimilarRisks {
				printf(out, "%6.2f  %s  %s\n", m.Score, m.Risk.ID, m.Risk.Title)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum matches to return (0 uses the server default)")
	return cmd
}

func newCheckCommand(opts *rootOptions) *cobra.Command {
	var req riskTypes.CheckSimilarityRequest

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Pre-save duplicate check for unsaved risk text",
		Long:  "Checks draft risk text against the register and prints likely duplicates. An empty result means no strong matches.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			matches, err := opts.newClient().CheckSimilarity(ctx, req)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), riskTypes.SimilarRisksResponse{SimilarRisks: matches})
			}

			out := cmd.OutOrStdout()
			if len(matches) == 0 {
				printf(out, "no likely duplicates\n")
				return nil
			}
			for _, m := range matches {
				printf(out, "%6.2f  %s  %s\n", m.Score, m.Risk.ID, m.Risk.Title)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Title, "title", "", "draft risk title")
	cmd.Flags().StringVar(&req.ThreatDescription, "threat", "", "draft threat description")
	cmd.Flags().StringVar(&req.Description, "description", "", "draft risk description")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}
