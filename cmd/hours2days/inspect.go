package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/couchcryptid/hours2days/internal/adapter/localfs"
	"github.com/couchcryptid/hours2days/internal/adapter/sqlite"
	"github.com/couchcryptid/hours2days/internal/domain"
	"github.com/couchcryptid/hours2days/internal/observability"
	"github.com/couchcryptid/hours2days/internal/pipeline"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "List and classify the current year's directory without changing anything",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := observability.NewLogger(cfg, nil)
		store := localfs.New(cfg.WorkDir, logger)
		ctrl := newController(cfg, store, logger, observability.NewMetrics())

		plan, skipped, err := ctrl.Plan(cmd.Context())
		if err != nil {
			return err
		}
		return writePlan(cmd.OutOrStdout(), plan, skipped)
	},
}

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show recent runs, or the stored report of one run",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.HistoryDB == "" {
			return fmt.Errorf("HISTORY_DB is not set")
		}
		h, err := sqlite.Open(cfg.HistoryDB)
		if err != nil {
			return err
		}
		defer h.Close()

		if len(args) == 1 {
			report, err := h.Report(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}

		runs, err := h.Recent(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		return writeHistory(cmd.OutOrStdout(), runs)
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "number of runs to show")
}

func writePlan(w io.Writer, plan []pipeline.PlannedGroup, skipped int) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "GROUP\tFAMILY\tPARTS\tVERDICT\tACTION")
	for _, p := range plan {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", p.Group.Key, p.Group.Type, len(p.Group.Entries), p.Verdict, action(p))
	}
	fmt.Fprintf(tw, "\n%d groups, %d skipped names\n", len(plan), skipped)
	return tw.Flush()
}

func action(p pipeline.PlannedGroup) string {
	var steps []string
	if p.Verdict == domain.Complete {
		steps = append(steps, "merge", "upload")
	}
	if p.Retention.ArchiveLocal {
		steps = append(steps, "archive")
	}
	if p.Retention.DeleteRemote {
		steps = append(steps, fmt.Sprintf("delete %d remote", len(p.Retention.RemoteNames)))
	}
	if len(steps) == 0 {
		return "wait"
	}
	return strings.Join(steps, ", ")
}

func writeHistory(w io.Writer, runs []sqlite.Run) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tDAY\tMERGED\tUPLOADED\tUNFINISHED\tFAILURES\tDISK")
	for _, r := range runs {
		disk := "-"
		if r.DiskUsedPercent.Valid {
			disk = fmt.Sprintf("%.0f%%", r.DiskUsedPercent.Float64)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d/%03d\t%d\t%d\t%d\t%d\t%s\n",
			r.RunID, humanize.Time(r.StartedAt), r.Year, r.DayOfYear,
			r.Merged, r.Uploaded, r.Unfinished, r.UploadFailures+r.Failures, disk)
	}
	return tw.Flush()
}
