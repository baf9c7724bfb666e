package cmd

import (
	"encoding/json"
	"fmt"
	"runtime"

	tomlrepo "github.com/bnema/memsim/internal/adapters/repo/toml"
	"github.com/bnema/memsim/internal/formula"
	"github.com/bnema/memsim/internal/version"
	"github.com/spf13/cobra"
)

type versionInfo struct {
	Version        string `json:"version"`
	Go             string `json:"go"`
	SchemaVersion  int    `json:"schema_version"`
	DefaultFormula string `json:"default_formula"`
}

func newVersionCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !asJSON {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), version.Version)
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(versionInfo{
				Version:        version.Version,
				Go:             runtime.Version(),
				SchemaVersion:  tomlrepo.SchemaVersion,
				DefaultFormula: formula.DefaultFormula,
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print build and file format details as JSON")

	return cmd
}
