// Command payrollrisk reviews payroll snapshots from the command line.
//
//	payrollrisk review --baseline prior.csv --current this.csv --tier pro
//	payrollrisk review --snapshot run.yaml --xlsx review.xlsx
//	payrollrisk rules --tier starter
package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/liamcoop/payrollrisk/internal/config"
	"github.com/liamcoop/payrollrisk/internal/logger"
)

// errBlocked makes the process exit with code 2 when --fail-on-blocked is set.
var errBlocked = errors.New("review blocked")

func newRootCmd(cfg *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "payrollrisk",
		Short:         "Detect and classify risky changes between two payroll runs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newReviewCmd(cfg), newRulesCmd(cfg))
	return root
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", "error", err)
	}
	// stdout carries command output
	logger.Setup("text")
	if level, err := logger.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	if err := newRootCmd(cfg).Execute(); err != nil {
		if errors.Is(err, errBlocked) {
			os.Exit(2)
		}
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}
