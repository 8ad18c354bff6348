package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/couchcryptid/hours2days/internal/domain"
	"github.com/dustin/go-humanize"
)

// SummarySubject is the subject line of a run summary.
func SummarySubject(r *domain.RunReport) string {
	return fmt.Sprintf("hours2days warning: %d unfinished, %d upload failures, %d failures",
		len(r.Unfinished), r.UploadFailures, len(r.Failures))
}

// DiskSubject is the subject line of a disk warning.
func DiskSubject(r *domain.RunReport) string {
	return fmt.Sprintf("hours2days disk usage warning: %.0f%%", r.Disk.UsedPercent)
}

// RenderSummary formats the report as plain text.
func RenderSummary(r *domain.RunReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Run %s for day %03d of %d finished %s.\n",
		r.RunID, r.DayOfYear, r.Year, r.FinishedAt.UTC().Format(time.DateTime+" MST"))

	if len(r.Unfinished) > 0 {
		b.WriteString("\nUnfinished days (archived locally, removed from the server):\n")
		for _, u := range r.Unfinished {
			fmt.Fprintf(&b, "  %s  %-12s %2d/%d parts\n", u.Key, u.Type, u.Parts, domain.HoursPerDay)
		}
	}
	if r.UploadFailures > 0 {
		fmt.Fprintf(&b, "\nUpload failures: %d (daily files kept in saveddays/)\n", r.UploadFailures)
	}
	if len(r.Failures) > 0 {
		b.WriteString("\nFailed groups:\n")
		for _, f := range r.Failures {
			fmt.Fprintf(&b, "  %-7s %s  %-12s %s\n", f.Stage, f.Key, f.Type, f.Error)
		}
	}

	b.WriteString("\nMerged:")
	for i, t := range domain.Families {
		sep := ","
		if i == 0 {
			sep = ""
		}
		fmt.Fprintf(&b, "%s %s %s", sep, t, humanize.Comma(int64(r.Family(t).Merged)))
	}
	b.WriteString("\n")

	if r.Skipped > 0 {
		fmt.Fprintf(&b, "Skipped remote files: %s\n", humanize.Comma(int64(r.Skipped)))
	}
	if r.Disk != nil {
		fmt.Fprintf(&b, "Disk: %s\n", diskLine(r.Disk))
	}
	return b.String()
}

// RenderDisk formats a disk warning.
func RenderDisk(r *domain.RunReport, threshold float64) string {
	return fmt.Sprintf("Disk usage is at or above the %.0f%% threshold.\n%s\n", threshold, diskLine(r.Disk))
}

func diskLine(d *domain.DiskUsage) string {
	return fmt.Sprintf("%.1f%% used (%s of %s) on %s",
		d.UsedPercent, humanize.Bytes(d.Used), humanize.Bytes(d.Total), d.Path)
}
