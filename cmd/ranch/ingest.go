package main

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var ingestRoot string

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load water quality exports from a directory tree",
	Long:  "Walks a <year>/<month>/ directory tree of CSV, Excel, HTML and JSON exports and inserts every valid observation.",
	RunE: func(cmd *cobra.Command, args []string) error {
		root := ingestRoot
		if root == "" {
			root = cfg.Ingest.Root
		}
		if root == "" {
			return eris.New("no ingest root: pass --root or set ingest.root")
		}

		env, err := openStore()
		if err != nil {
			return err
		}
		defer env.Close()

		report, err := env.pipeline().Run(cmd.Context(), root)
		if err != nil {
			return eris.Wrapf(err, "ingest %s", root)
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestRoot, "root", "", "root directory of the exports (default from config)")
	rootCmd.AddCommand(ingestCmd)
}
