package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GlobalFlags holds the persistent CLI flags.
type GlobalFlags struct {
	ConfigPath string
	EnvFile    string
	Once       bool
	Test       bool
}

func buildRoot() *cobra.Command {
	var gf GlobalFlags

	root := &cobra.Command{
		Use:           "groovewatch",
		Short:         "Music listening watchdog",
		Long:          "groovewatch periodically collects listening data, keeps a deduplicated rolling history, and publishes dashboard views to a tabular sink.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch {
			case gf.Test:
				return runTest(&gf)
			case gf.Once:
				return runOnce(&gf)
			default:
				return runDaemon(&gf)
			}
		},
	}
	root.PersistentFlags().StringVar(&gf.ConfigPath, "config", "", "path to TOML config (optional)")
	root.PersistentFlags().StringVar(&gf.EnvFile, "env-file", ".env", "dotenv file with credentials")
	root.Flags().BoolVar(&gf.Once, "once", false, "run a single collection and exit")
	root.Flags().BoolVar(&gf.Test, "test", false, "run one full cycle against the local fixture and exit")

	root.AddCommand(newOnceCmd(&gf))
	root.AddCommand(newTestCmd(&gf))
	return root
}

func newOnceCmd(gf *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Run a single collection and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOnce(gf)
		},
	}
}

func newTestCmd(gf *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Run one full cycle against the local fixture and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTest(gf)
		},
	}
}
