package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "memsim",
		Short:         "Memory token economy simulator",
		Long:          "memsim simulates a bonding-curve token economy: users stake ATTN into memories to mint memory tokens, boost revenue, and redeem positions while the price formula is swapped and every position recalculated.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newStatusCmd(app),
		newUserCmd(app),
		newJoinCmd(app),
		newStakeCmd(app),
		newBoostCmd(app),
		newRedeemCmd(app),
		newRedeemCreatorCmd(app),
		newCurveCmd(app),
		newPriceCmd(app),
		newMintCmd(app),
		newMemoryCmd(app),
		newRunCmd(app),
		newResetCmd(app),
	)

	return rootCmd
}
