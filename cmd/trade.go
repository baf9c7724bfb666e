package cmd

import (
	"fmt"

	"github.com/bnema/memsim/internal/domain"
	"github.com/spf13/cobra"
)

type tradeFlags struct {
	memoryID string
	user     string
	amount   float64
}

func (f *tradeFlags) register(cmd *cobra.Command, withAmount bool) {
	cmd.Flags().StringVar(&f.memoryID, "memory", string(domain.SeedMemoryID), "Memory ID")
	cmd.Flags().StringVar(&f.user, "user", "", "User address")
	_ = cmd.MarkFlagRequired("user")
	if withAmount {
		cmd.Flags().Float64Var(&f.amount, "amount", 0, "ATTN amount")
		_ = cmd.MarkFlagRequired("amount")
	}
}

func newStakeCmd(app *app) *cobra.Command {
	var flags tradeFlags

	cmd := &cobra.Command{
		Use:   "stake",
		Short: "Stake ATTN into a memory and mint memory tokens",
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := app.service.Stake(cmd.Context(), domain.MemoryID(flags.memoryID), domain.Address(flags.user), flags.amount)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s staked %.2f ATTN on memory %s: minted %.4f tokens (balance %.2f ATTN)\n",
				result.User.Address, flags.amount, result.Memory.ID, result.Minted, result.User.AttnBalance)
			return err
		},
	}
	flags.register(cmd, true)

	return cmd
}

func newBoostCmd(app *app) *cobra.Command {
	var flags tradeFlags

	cmd := &cobra.Command{
		Use:   "boost",
		Short: "Add ATTN to a memory's revenue without minting tokens",
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := app.service.Boost(cmd.Context(), domain.MemoryID(flags.memoryID), domain.Address(flags.user), flags.amount)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s boosted memory %s with %.2f ATTN: revenue +%.2f, creator +%.2f\n",
				result.User.Address, result.Memory.ID, flags.amount, result.Split.Revenue, result.Split.Creator)
			return err
		},
	}
	flags.register(cmd, true)

	return cmd
}

func newRedeemCmd(app *app) *cobra.Command {
	var flags tradeFlags

	cmd := &cobra.Command{
		Use:   "redeem",
		Short: "Redeem every stake position a user holds on a memory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := app.service.RedeemPosition(cmd.Context(), domain.MemoryID(flags.memoryID), domain.Address(flags.user))
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s redeemed %.4f tokens for %.2f ATTN (principle %.2f, revenue %.2f)\n",
				result.User.Address, result.Tokens, result.Redemption.Total(), result.Redemption.Principle, result.Redemption.Revenue)
			return err
		},
	}
	flags.register(cmd, false)

	return cmd
}

func newRedeemCreatorCmd(app *app) *cobra.Command {
	var flags tradeFlags

	cmd := &cobra.Command{
		Use:   "redeem-creator",
		Short: "Pay the creator vault out to the memory's creator",
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := app.service.RedeemCreatorEarnings(cmd.Context(), domain.MemoryID(flags.memoryID), domain.Address(flags.user))
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s collected %.2f ATTN from memory %s\n", result.User.Address, result.Amount, result.Memory.ID)
			return err
		},
	}
	flags.register(cmd, false)

	return cmd
}
