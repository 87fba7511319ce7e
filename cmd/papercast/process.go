package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/jackzampolin/papercast/internal/pipeline"
)

var (
	processMethod string
	processQuiet  bool
)

var processCmd = &cobra.Command{
	Use:   "process <file.pdf | url>",
	Short: "Narrate one paper",
	Long: `Run the full pipeline on a local PDF or a URL.

A URL may point at the PDF itself or at a landing page that links to it.
The run is recorded in the status store and its artifacts are written to
the configured storage root.

Examples:
  papercast process paper.pdf
  papercast process https://arxiv.org/abs/1706.03762 --method abstract
  papercast process paper.pdf -o json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		in, err := inputFor(args[0])
		if err != nil {
			return err
		}
		in.Method = processMethod

		return withApp(ctx, func(a *app) error {
			runner, err := a.Runner(ctx)
			if err != nil {
				return err
			}
			if !processQuiet {
				bar := newStepBar()
				runner.OnProgress = func(p pipeline.Progress) {
					bar.Describe(p.Step)
					_ = bar.Set(p.Index)
				}
				defer bar.Finish()
			}
			out, err := runner.Run(ctx, in)
			if err != nil {
				return err
			}
			return Output(out)
		})
	},
}

func inputFor(arg string) (pipeline.Input, error) {
	if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
		return pipeline.Input{URL: arg}, nil
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return pipeline.Input{}, fmt.Errorf("read input: %w", err)
	}
	return pipeline.Input{Data: data, Name: filepath.Base(arg)}, nil
}

func newStepBar() *progressbar.ProgressBar {
	return progressbar.NewOptions(len(pipeline.Steps()),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionClearOnFinish(),
	)
}

func init() {
	processCmd.Flags().StringVar(&processMethod, "method", "", "summarization method: full or abstract (default from config)")
	processCmd.Flags().BoolVarP(&processQuiet, "quiet", "q", false, "hide the progress bar")

	rootCmd.AddCommand(processCmd)
}
