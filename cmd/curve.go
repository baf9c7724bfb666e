package cmd

import (
	"fmt"

	"github.com/bnema/memsim/internal/domain"
	"github.com/bnema/memsim/internal/formula"
	"github.com/spf13/cobra"
)

func newCurveCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "curve",
		Short: "Inspect or replace the price formula",
	}

	cmd.AddCommand(
		newCurveShowCmd(app),
		newCurveValidateCmd(app),
		newCurveSetCmd(app),
	)

	return cmd
}

func newCurveShowCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the active price formula",
		RunE: func(cmd *cobra.Command, _ []string) error {
			overview, err := app.service.Overview(cmd.Context(), "")
			if err != nil {
				return err
			}

			state := "locked"
			if overview.CurveUnlocked {
				state = "editable"
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", overview.Formula, state)
			return err
		},
	}
}

func newCurveValidateCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <formula>",
		Short: "Check a formula without applying it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.service.ValidateFormula(args[0]); err != nil {
				return err
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "ok: price at tvl %d is well defined\n", formula.ValidationTVL)
			return err
		},
	}
}

func newCurveSetCmd(app *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "set <formula>",
		Short: "Replace the price formula and recalculate every position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			update, err := app.service.UpdateCurve(cmd.Context(), args[0], force)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if _, err := fmt.Fprintf(out, "formula: %s -> %s\n", update.Previous, update.Formula); err != nil {
				return err
			}
			for _, result := range update.Results {
				if _, err := fmt.Fprintf(out, "memory %s: %d users recalculated, supply %.4f tokens\n",
					result.Memory.ID, len(result.Users), result.Memory.TotalMemoryTokens); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Replace the formula even after players have joined")

	return cmd
}

func newPriceCmd(app *app) *cobra.Command {
	var memoryID string

	cmd := &cobra.Command{
		Use:   "price",
		Short: "Print the current memory-token price",
		RunE: func(cmd *cobra.Command, _ []string) error {
			price, err := app.service.Price(cmd.Context(), domain.MemoryID(memoryID))
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%.6f\n", price)
			return err
		},
	}

	cmd.Flags().StringVar(&memoryID, "memory", string(domain.SeedMemoryID), "Memory ID")

	return cmd
}

func newMintCmd(app *app) *cobra.Command {
	var (
		memoryID string
		amount   float64
	)

	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Preview how many tokens staking an amount would mint now",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tokens, err := app.service.PreviewMint(cmd.Context(), domain.MemoryID(memoryID), amount)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%.6f\n", tokens)
			return err
		},
	}

	cmd.Flags().StringVar(&memoryID, "memory", string(domain.SeedMemoryID), "Memory ID")
	cmd.Flags().Float64Var(&amount, "amount", 0, "ATTN amount")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}
