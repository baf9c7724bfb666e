package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/bnema/memsim/internal/domain"
	"github.com/spf13/cobra"
)

func newMemoryCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Manage memories",
	}

	cmd.AddCommand(
		newMemoryCreateCmd(app),
		newMemoryListCmd(app),
	)

	return cmd
}

func newMemoryCreateCmd(app *app) *cobra.Command {
	var creator string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create an empty memory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			memory, err := app.service.CreateMemory(cmd.Context(), args[0], domain.Address(creator))
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", memory.ID, memory.Name)
			return err
		},
	}

	cmd.Flags().StringVar(&creator, "creator", "", "Creator address (defaults to the first creator)")

	return cmd
}

func newMemoryListCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List memories with vault balances",
		RunE: func(cmd *cobra.Command, _ []string) error {
			snapshot, err := app.service.Snapshot(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tNAME\tCREATOR\tPRINCIPLE\tREVENUE\tCREATOR VAULT\tSUPPLY")
			for _, memory := range snapshot.Memories {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%.2f\t%.2f\t%.4f\n",
					memory.ID, memory.Name, memory.Creator,
					memory.PrincipleVault, memory.RevenueVault, memory.CreatorVault, memory.TotalMemoryTokens)
			}
			return w.Flush()
		},
	}
}

func newResetCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Discard the saved simulation and start from the seed state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := app.service.Reset(cmd.Context()); err != nil {
				return err
			}

			_, err := fmt.Fprintln(cmd.OutOrStdout(), "simulation reset")
			return err
		},
	}
}
