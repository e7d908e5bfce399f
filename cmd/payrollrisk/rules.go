package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/liamcoop/payrollrisk/classify"
	"github.com/liamcoop/payrollrisk/internal/config"
	"github.com/liamcoop/payrollrisk/rules"
)

func newRulesCmd(cfg *config.Config) *cobra.Command {
	var tier, format string
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the rules evaluated for a tier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRules(cmd.OutOrStdout(), cfg, tier, format)
		},
	}
	cmd.Flags().StringVar(&tier, "tier", "", "subscription tier (default from DEFAULT_TIER)")
	cmd.Flags().StringVar(&format, "format", "text", "output format: text or json")
	return cmd
}

func runRules(out io.Writer, cfg *config.Config, rawTier, format string) error {
	tier, err := resolveTier(rawTier, cfg.DefaultTier)
	if err != nil {
		return err
	}
	engine, err := rules.NewDefaultEngine()
	if err != nil {
		return err
	}
	eligible := engine.Eligible(tier)

	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(eligible)
	case "text":
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSEVERITY\tSECTION\tMIN TIER\tNAME")
		for _, r := range eligible {
			section := classify.SectionFor(rules.Judgement{RuleID: r.ID, IsBlocker: r.Severity.IsBlocker()})
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Severity, section, r.MinTier, r.Name)
		}
		return tw.Flush()
	}
	return fmt.Errorf("unknown format %q (use text or json)", format)
}
