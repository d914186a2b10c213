package cli

import (
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the pipeline once and exit",
	Long: `Fetch, filter, score and publish a single digest. Per-topic fetch
failures are logged and skipped; configuration and output errors exit
non-zero.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, r, err := buildRunner()
		if err != nil {
			return err
		}
		return r.Run(cmd.Context())
	},
}
