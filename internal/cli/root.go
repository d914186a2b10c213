package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rkanno/arxiv-daily/internal/config"
	"github.com/rkanno/arxiv-daily/internal/fetcher"
	"github.com/rkanno/arxiv-daily/internal/logging"
	"github.com/rkanno/arxiv-daily/internal/publisher"
	"github.com/rkanno/arxiv-daily/internal/retry"
	"github.com/rkanno/arxiv-daily/internal/runner"
	"github.com/rkanno/arxiv-daily/internal/seen"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "arxiv-daily",
	Short: "arxiv-daily - keyword-filtered daily arXiv digests as static markdown",
	Long: `arxiv-daily fetches recent papers from the arXiv API, sorts them into
configured topic buckets via keyword rules, ranks them, and writes static
markdown pages: one page per topic, a dated digest, and a README index.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("arxiv-daily v0.2.1")
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		fmt.Sprintf("config file (default: $%s or %s)", config.EnvConfigPath, config.DefaultPath))

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)
}

func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if v := os.Getenv(config.EnvConfigPath); v != "" {
		return v
	}
	return config.DefaultPath
}

// buildRunner wires the whole application from configuration.
func buildRunner() (*config.Config, *runner.Runner, error) {
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, nil, err
	}

	logger := logging.New(cfg.LogLevel)

	f := fetcher.NewArxivFetcher(
		fetcher.WithRetry(retry.Config{
			Attempts:  cfg.FetchAttempts,
			BaseDelay: 1 * time.Second,
		}),
	)

	store := seen.NewFileStore(cfg.StatePath)

	var pubs []publisher.Publisher
	for _, name := range cfg.Publishers {
		switch name {
		case "files":
			pubs = append(pubs, publisher.NewFilesPublisher(cfg.Output))
		case "stdout":
			pubs = append(pubs, publisher.NewStdoutPublisher())
		}
	}

	r := runner.New(cfg, f, store, pubs, logger.With().Str("component", "runner").Logger())
	return cfg, r, nil
}
