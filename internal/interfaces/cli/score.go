package cli

import (
	"context"

	"github.com/spf13/cobra"
)

func newScoreCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "score <risk-id>",
		Short: "Show the derived scoring of a stored risk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			dto, err := opts.newClient().Score(ctx, args[0])
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), dto)
			}

			out := cmd.OutOrStdout()
			printf(out, "risk:       %d\n", dto.Risk)
			printf(out, "riskScore:  %d (%s)\n", dto.RiskScore, dto.Level)
			if dto.MitigatedRiskScore != nil && dto.MitigatedLevel != nil {
				printf(out, "mitigated:  %d (%s)\n", *dto.MitigatedRiskScore, *dto.MitigatedLevel)
			} else {
				printf(out, "mitigated:  not assessed\n")
			}
			return nil
		},
	}
}

func newComplianceCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "compliance <risk-id>",
		Short: "Show the compliance findings of a stored risk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			dto, err := opts.newClient().Compliance(ctx, args[0])
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), dto)
			}

			out := cmd.OutOrStdout()
			printf(out, "%s initial treatment:  %s", severityGlyph(dto.InitialTreatmentFinding.Severity), dto.InitialTreatmentFinding.Severity)
			if dto.InitialTreatmentFinding.Reason != "" {
				printf(out, " (%s)", dto.InitialTreatmentFinding.Reason)
			}
			printf(out, "\n")

			printf(out, "%s residual treatment: %s", severityGlyph(dto.ResidualTreatmentFinding.Severity), dto.ResidualTreatmentFinding.Severity)
			if dto.ResidualTreatmentFinding.Reason != "" {
				printf(out, " (%s)", dto.ResidualTreatmentFinding.Reason)
			}
			printf(out, "\n")
			return nil
		},
	}
}
