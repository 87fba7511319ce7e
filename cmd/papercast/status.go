package main

import (
	"github.com/spf13/cobra"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status [run-id]",
	Short: "Show run status",
	Long: `Show the status record of one run, or list recent runs.

Examples:
  papercast status                 # 20 most recent runs
  papercast status 0b6f...         # one run
  papercast status --limit 5 -o json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return withApp(ctx, func(a *app) error {
			if len(args) == 1 {
				rs, err := a.recorder.Get(ctx, args[0])
				if err != nil {
					return err
				}
				return Output(rs)
			}
			runs, err := a.store.List(ctx, statusLimit)
			if err != nil {
				return err
			}
			return Output(runs)
		})
	},
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 20, "number of runs to list")

	rootCmd.AddCommand(statusCmd)
}
