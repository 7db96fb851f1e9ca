package cmd

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"cth/internal/config"
	"cth/internal/logfields"
	"cth/internal/metrics"
	"cth/internal/pipeline"
	"cth/internal/watch"
)

var (
	buildClean       bool
	buildOverwrite   config.Overwrite
	buildWatch       bool
	buildMetricsFile string
)

var buildCmd = &cobra.Command{
	Use:   "build [dataFile]",
	Short: "Generate the site into dist/",
	Long: `Builds every CSV file under csv/, or only csv/<dataFile>.csv when a name
is given. Existing artifacts are kept unless --overwrite names their
category: page, item, image or all.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := pipeline.Options{
			Root:      projectDir,
			Clean:     buildClean,
			Overwrite: buildOverwrite,
			Logger:    logger,
		}
		if len(args) == 1 {
			opts.Selector = args[0]
		}

		var prom *metrics.PrometheusRecorder
		if buildMetricsFile != "" {
			prom = metrics.NewPrometheusRecorder(prometheus.NewRegistry())
			opts.Recorder = prom
		}

		build := func(ctx context.Context) error {
			_, err := pipeline.Run(ctx, opts)
			if prom != nil {
				if werr := prom.WriteTextfile(buildMetricsFile); werr != nil {
					logger.Warn("could not write metrics file", logfields.Path(buildMetricsFile), logfields.Error(werr))
				}
			}
			// Only the first build of a watch session cleans dist/.
			opts.Clean = false
			return err
		}

		if !buildWatch {
			if err := build(cmd.Context()); err != nil {
				return fmt.Errorf("build failed: %w", err)
			}
			return nil
		}
		return watch.Run(cmd.Context(), watch.Options{
			Root:   projectDir,
			Build:  build,
			Logger: logger,
		})
	},
}

func init() {
	buildCmd.Flags().BoolVar(&buildClean, "clean", false, "empty dist/ before building")
	buildCmd.Flags().Var(&buildOverwrite, "overwrite", "regenerate existing artifacts of a category")
	buildCmd.Flags().BoolVar(&buildWatch, "watch", false, "rebuild when project files change")
	buildCmd.Flags().StringVar(&buildMetricsFile, "metrics-file", "", "write Prometheus text-format build metrics to this path")

	rootCmd.AddCommand(buildCmd)
}
