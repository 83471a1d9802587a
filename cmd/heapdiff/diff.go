package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/five82/heapdiff/internal/analysis"
	"github.com/five82/heapdiff/internal/app"
	"github.com/five82/heapdiff/internal/census"
	"github.com/five82/heapdiff/internal/report"
)

type diffFlags struct {
	breakdown string
	inverted  bool
	filter    string
	depth     int
	noColor   bool
}

func newDiffCmd(flags *globalFlags) *cobra.Command {
	var opts diffFlags

	cmd := &cobra.Command{
		Use:   "diff FIRST SECOND",
		Short: "Print the delta census between two snapshots",
		Long: `Print what changed between two heap snapshots.

  Values are SECOND minus FIRST. Paths are sent to the configured worker when worker_addr is set and read directly otherwise.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			breakdown, err := census.ParseBreakdown(opts.breakdown)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(*flags)
			if err != nil {
				return err
			}
			log := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)

			var worker analysis.Analyzer
			paths := args
			if cfg.RemoteWorker() {
				if worker, err = app.NewWorker(cfg, log); err != nil {
					return err
				}
			} else {
				worker = analysis.NewLocal("", log)
				if paths, err = absPaths(args); err != nil {
					return err
				}
			}

			delta, err := worker.TakeCensusDiff(cmd.Context(), paths[0], paths[1],
				census.BreakdownSpec{Breakdown: breakdown},
				census.TreeOptions{Inverted: opts.inverted, Filter: strings.TrimSpace(opts.filter)},
			)
			if err != nil {
				return fmt.Errorf("diff: %w", err)
			}

			return report.Write(cmd.OutOrStdout(), delta, report.Options{
				MaxDepth: opts.depth,
				NoColor:  opts.noColor,
				Title:    fmt.Sprintf("%s → %s (%s)", filepath.Base(args[0]), filepath.Base(args[1]), census.Display{Breakdown: breakdown, Inverted: opts.inverted}),
			})
		},
	}

	cmd.Flags().StringVarP(&opts.breakdown, "breakdown", "b", string(census.DefaultDisplay().Breakdown), "census breakdown: "+breakdownNames())
	cmd.Flags().BoolVarP(&opts.inverted, "inverted", "i", false, "invert the tree")
	cmd.Flags().StringVarP(&opts.filter, "filter", "f", "", "only include buckets matching this string")
	cmd.Flags().IntVar(&opts.depth, "depth", 0, "maximum tree depth to print (0 prints everything)")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	return cmd
}

func absPaths(paths []string) ([]string, error) {
	out := make([]string, len(paths))
	for i, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", p, err)
		}
		out[i] = abs
	}
	return out, nil
}

func breakdownNames() string {
	names := make([]string, 0, len(census.Breakdowns()))
	for _, b := range census.Breakdowns() {
		names = append(names, string(b))
	}
	return strings.Join(names, ", ")
}
