package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/bnema/memsim/internal/application"
	"github.com/bnema/memsim/internal/domain"
	"github.com/spf13/cobra"
)

func newUserCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage simulated users",
	}

	cmd.AddCommand(
		newUserAddCmd(app),
		newUserListCmd(app),
	)

	return cmd
}

func newUserAddCmd(app *app) *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:   "add <address>",
		Short: "Add a user with the starting ATTN balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := domain.ParseRole(role)
			if err != nil {
				return err
			}

			user, err := app.service.AddUser(cmd.Context(), domain.Address(args[0]), parsed)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "added %s (%s) with %.2f ATTN\n", user.Address, user.Role, user.AttnBalance)
			return err
		},
	}

	cmd.Flags().StringVar(&role, "role", string(domain.RoleStaker), "Role: staker, advertiser or creator")

	return cmd
}

func newUserListCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users and balances",
		RunE: func(cmd *cobra.Command, _ []string) error {
			snapshot, err := app.service.Snapshot(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ADDRESS\tROLE\tATTN\tPOSITIONS")
			for _, user := range snapshot.Users {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%.2f\t%d\n", user.Address, user.Role, user.AttnBalance, len(user.StakePositions))
			}
			return w.Flush()
		},
	}
}

func newJoinCmd(app *app) *cobra.Command {
	var (
		memoryID string
		role     string
		kind     string
		amount   float64
	)

	cmd := &cobra.Command{
		Use:   "join",
		Short: "Add an auto-named staker or advertiser and deposit straight away",
		RunE: func(cmd *cobra.Command, _ []string) error {
			parsedRole, err := domain.ParseRole(role)
			if err != nil {
				return err
			}
			parsedKind, err := application.ParseAdvertiserKind(kind)
			if err != nil {
				return err
			}

			result, err := app.service.Join(cmd.Context(), application.JoinCommand{
				MemoryID: domain.MemoryID(memoryID),
				Role:     parsedRole,
				Kind:     parsedKind,
				Amount:   amount,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case amount == 0:
				_, err = fmt.Fprintf(out, "%s joined as %s\n", result.User.Address, result.User.Role)
			case parsedRole == domain.RoleStaker:
				_, err = fmt.Fprintf(out, "%s joined and staked %.2f ATTN: minted %.4f tokens\n", result.User.Address, amount, result.Minted)
			default:
				_, err = fmt.Fprintf(out, "%s joined and boosted %.2f ATTN\n", result.User.Address, amount)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&memoryID, "memory", "", "Memory ID (defaults to the first memory)")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleStaker), "Role: staker or advertiser")
	cmd.Flags().StringVar(&kind, "kind", "", "Advertiser kind: advertiser, airdrop or external-revenue")
	cmd.Flags().Float64Var(&amount, "amount", 0, "ATTN to stake or boost on joining")

	return cmd
}
