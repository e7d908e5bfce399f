package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/liamcoop/payrollrisk/classify"
	"github.com/liamcoop/payrollrisk/internal/config"
	"github.com/liamcoop/payrollrisk/internal/logger"
	"github.com/liamcoop/payrollrisk/payroll"
	"github.com/liamcoop/payrollrisk/report"
	"github.com/liamcoop/payrollrisk/review"
	"github.com/liamcoop/payrollrisk/rules"
	"github.com/liamcoop/payrollrisk/snapshot"
	"github.com/liamcoop/payrollrisk/store"
	"github.com/liamcoop/payrollrisk/tiers"
	"github.com/liamcoop/payrollrisk/verdict"
)

const localTenant = "local"

type reviewOptions struct {
	snapshots     []string
	baseline      string
	current       string
	tier          string
	format        string
	xlsx          string
	failOnBlocked bool
}

func newReviewCmd(cfg *config.Config) *cobra.Command {
	opts := &reviewOptions{}
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Compare a baseline run with a current run",
		Long: `Computes deltas, evaluates the rule library for the chosen tier and prints
the sectioned findings and verdict. Inputs are either one or more snapshot
files holding both runs (json, yaml or xlsx with baseline/current sheets) or
a --baseline/--current pair (json, yaml, csv or xlsx).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReview(cmd.Context(), cmd.OutOrStdout(), cfg, opts)
		},
	}

	f := cmd.Flags()
	f.StringArrayVar(&opts.snapshots, "snapshot", nil, "snapshot file with both runs (repeatable)")
	f.StringVar(&opts.baseline, "baseline", "", "baseline run file")
	f.StringVar(&opts.current, "current", "", "current run file")
	f.StringVar(&opts.tier, "tier", "", "subscription tier: starter, pro or enterprise (default from DEFAULT_TIER)")
	f.StringVar(&opts.format, "format", "text", "output format: text or json")
	f.StringVar(&opts.xlsx, "xlsx", "", "write the review workbook to this path (single input only)")
	f.BoolVar(&opts.failOnBlocked, "fail-on-blocked", false, "exit with status 2 when any review is blocked")
	cmd.MarkFlagsRequiredTogether("baseline", "current")
	cmd.MarkFlagsMutuallyExclusive("snapshot", "baseline")
	return cmd
}

type input struct {
	name string
	data payroll.Dataset
}

func (o *reviewOptions) inputs() ([]input, error) {
	if o.baseline != "" {
		data, err := snapshot.LoadPair(o.baseline, o.current)
		if err != nil {
			return nil, err
		}
		return []input{{name: filepath.Base(o.current), data: data}}, nil
	}
	if len(o.snapshots) == 0 {
		return nil, fmt.Errorf("either --snapshot or --baseline and --current is required")
	}
	out := make([]input, 0, len(o.snapshots))
	for _, path := range o.snapshots {
		data, err := snapshot.Load(path)
		if err != nil {
			return nil, err
		}
		out = append(out, input{name: filepath.Base(path), data: data})
	}
	return out, nil
}

func resolveTier(raw string, fallback tiers.Tier) (tiers.Tier, error) {
	if raw == "" {
		return fallback, nil
	}
	return tiers.Parse(raw)
}

func runReview(ctx context.Context, out io.Writer, cfg *config.Config, opts *reviewOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.format != "text" && opts.format != "json" {
		return fmt.Errorf("unknown format %q (use text or json)", opts.format)
	}
	tier, err := resolveTier(opts.tier, cfg.DefaultTier)
	if err != nil {
		return err
	}
	inputs, err := opts.inputs()
	if err != nil {
		return err
	}
	if opts.xlsx != "" && len(inputs) != 1 {
		return fmt.Errorf("--xlsx needs exactly one input, got %d", len(inputs))
	}

	engine, err := rules.NewDefaultEngine()
	if err != nil {
		return err
	}
	svc := review.NewService(engine, store.NewInMemoryStore(), review.WithConcurrency(cfg.ProcessConcurrency))

	ids := make([]string, len(inputs))
	for i, in := range inputs {
		sess, err := svc.Create(ctx, localTenant, tier, in.data)
		if err != nil {
			return err
		}
		ids[i] = sess.ID
	}
	results, err := svc.ProcessAll(ctx, ids)
	if err != nil {
		return err
	}
	logger.Debug("reviews processed", "inputs", len(inputs), "tier", tier)

	if opts.xlsx != "" {
		if err := writeWorkbook(ctx, svc, results[0], opts.xlsx); err != nil {
			return err
		}
	}

	if opts.format == "json" {
		err = writeJSON(out, inputs, results)
	} else {
		err = writeText(out, inputs, results)
	}
	if err != nil {
		return err
	}

	if opts.failOnBlocked {
		for _, res := range results {
			if res.Verdict.Status == verdict.Blocked {
				return errBlocked
			}
		}
	}
	return nil
}

func writeWorkbook(ctx context.Context, svc *review.Service, res *review.Result, path string) error {
	deltas, err := svc.Deltas(ctx, res.Session.ID)
	if err != nil {
		return err
	}
	f, err := report.Build(res, deltas)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

type namedResult struct {
	Input string `json:"input"`
	*review.Result
}

func writeJSON(out io.Writer, inputs []input, results []*review.Result) error {
	named := make([]namedResult, len(results))
	for i, res := range results {
		named[i] = namedResult{Input: inputs[i].name, Result: res}
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(named)
}

func writeText(out io.Writer, inputs []input, results []*review.Result) error {
	var b strings.Builder
	for i, res := range results {
		v := res.Verdict
		fmt.Fprintf(&b, "%s: %s (tier %s)\n", inputs[i].name, v.Status, res.Session.Tier)
		fmt.Fprintf(&b, "  blockers %d, reviews %d, info %d\n", v.BlockersCount, v.ReviewsCount, v.InfoCount)
		if res.Volatility.Changes > 0 {
			fmt.Fprintf(&b, "  changes %d, median %.1f%%, p90 %.1f%%, max %.1f%%\n",
				res.Volatility.Changes, res.Volatility.MedianPercent, res.Volatility.P90Percent, res.Volatility.MaxPercent)
		}
		for _, section := range classify.All() {
			js := res.Sections.Get(section)
			if len(js) == 0 || section == classify.Noise {
				continue
			}
			fmt.Fprintf(&b, "  %s (%d)\n", report.SheetName(section), len(js))
			for _, j := range js {
				fmt.Fprintf(&b, "    %s %-8s %-14s %s\n", j.RuleID, j.EmployeeID, payroll.Label(j.Delta.Metric), j.Reasoning)
			}
		}
	}
	_, err := io.WriteString(out, b.String())
	return err
}
