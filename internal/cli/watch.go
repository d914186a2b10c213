package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the pipeline on the configured cron schedule",
	Long: `Keep the process alive and execute the pipeline on the schedule from
the config file (default "0 8 * * *"). With run_on_start, one run happens
immediately. SIGINT/SIGTERM shut the scheduler down gracefully.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, r, err := buildRunner()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		if cfg.RunOnStart {
			if err := r.Run(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "initial run failed: %v\n", err)
			}
		}

		c := cron.New()
		_, err = c.AddFunc(cfg.Schedule, func() {
			if err := r.Run(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "scheduled run failed: %v\n", err)
			}
		})
		if err != nil {
			return fmt.Errorf("invalid schedule %q: %w", cfg.Schedule, err)
		}
		c.Start()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		cancel()
		<-c.Stop().Done()
		return nil
	},
}
