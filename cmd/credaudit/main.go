// Command credaudit reviews a password-manager CSV export: it checks every
// selected password against the breach corpus with k-anonymity lookups,
// optionally probes the sites, and re-exports the result.
package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/ericfisherdev/credreview/internal/config"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	verbose bool
	envFile string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "credaudit",
		Short:        "Audit a password-manager export for breached passwords and dead sites",
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return config.LoadDotEnv(opts.envFile)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file with CREDREVIEW_* settings")

	root.AddCommand(newCheckCmd(opts, stdout, stderr))
	return root
}

// newLogger routes slog through a charmbracelet/log handler on w.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	handler := log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: true,
		Prefix:          "credaudit",
	})
	return slog.New(handler)
}
