package cmd

import (
	"encoding/json"
	"fmt"

	statusadapter "github.com/bnema/memsim/internal/adapters/render/status"
	"github.com/bnema/memsim/internal/application"
	"github.com/bnema/memsim/internal/domain"
	"github.com/spf13/cobra"
)

func newStatusCmd(app *app) *cobra.Command {
	var (
		memoryID string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show a memory's vaults, price and player chart",
		RunE: func(cmd *cobra.Command, _ []string) error {
			overview, err := app.service.Overview(cmd.Context(), domain.MemoryID(memoryID))
			if err != nil {
				return err
			}

			return writeOverview(cmd, app, overview, asJSON)
		},
	}

	cmd.Flags().StringVar(&memoryID, "memory", "", "Memory ID (defaults to the first memory)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of the rendered chart")

	return cmd
}

func writeOverview(cmd *cobra.Command, app *app, overview application.Overview, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(overview)
	}

	rendered, err := app.statusRenderer(overview, statusadapter.RenderOptions{Now: app.now()})
	if err != nil {
		return fmt.Errorf("render status: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}
