package output

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// PrettyFormatter renders a styled report for terminals: a header box with
// both roots, the missing paths, and a footer with humanized counts.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Result) error {
	w.WriteString(f.formatHeader(r))
	w.WriteString("\n")
	w.WriteString(f.formatPaths(r))
	w.WriteString(f.formatFooter(r))
	w.WriteString("\n")
	return nil
}

func (f *PrettyFormatter) formatHeader(r *Result) string {
	lines := []string{
		fmt.Sprintf("%s %s", LabelStyle.Render("Source:"), ValueStyle.Render(r.Source)),
		fmt.Sprintf("%s %s", LabelStyle.Render("Target:"), ValueStyle.Render(r.Target)),
	}

	scanned := fmt.Sprintf("%s source, %s target entries in %s",
		humanize.Comma(int64(r.Stats.SourceEntries)),
		humanize.Comma(int64(r.Stats.TargetEntries)),
		formatDuration(r.Stats.Duration()))
	lines = append(lines, fmt.Sprintf("%s %s", LabelStyle.Render("Indexed:"), ValueStyle.Render(scanned)))

	return HeaderBox.Render(strings.Join(lines, "\n"))
}

func (f *PrettyFormatter) formatPaths(r *Result) string {
	if len(r.Paths) == 0 {
		return SuccessStyle.Render("  Every source path exists in the target") + "\n"
	}

	var sb strings.Builder
	for _, p := range r.Paths {
		sb.WriteString("  ")
		sb.WriteString(PathStyle.Render(p))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (f *PrettyFormatter) formatFooter(r *Result) string {
	parts := []string{
		fmt.Sprintf("%s %s", LabelStyle.Render("Missing:"), CountStyle.Render(humanize.Comma(int64(len(r.Paths))))),
	}

	if r.Stats.Excluded > 0 {
		parts = append(parts, fmt.Sprintf("%s %s",
			LabelStyle.Render("Excluded:"), ValueStyle.Render(humanize.Comma(r.Stats.Excluded))))
	}
	if r.Stats.Skipped > 0 {
		parts = append(parts, WarningStyle.Render(
			fmt.Sprintf("%s unreadable %s skipped",
				humanize.Comma(r.Stats.Skipped), plural(r.Stats.Skipped, "entry", "entries"))))
	}

	parts = append(parts, MutedStyle.Render("Use -o paths for unformatted output"))

	return FooterBox.Render(strings.Join(parts, "  "))
}

func plural(n int64, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// formatDuration formats a duration in a human-friendly way.
func formatDuration(d time.Duration) string {
	sec := d.Seconds()
	if sec < 1 {
		return fmt.Sprintf("%.0fms", sec*1000)
	}
	if sec < 60 {
		return fmt.Sprintf("%.1fs", sec)
	}
	minutes := int(sec) / 60
	seconds := int(sec) % 60
	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

var _ Formatter = (*PrettyFormatter)(nil)
