package components

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/dustin/go-humanize"

	"github.com/j-veylop/bidmanager-cli/internal/report"
	"github.com/j-veylop/bidmanager-cli/internal/ui/styles"
)

// unknownStep is how many bytes must arrive between redraws when the total
// size is unknown.
const unknownStep = 1 << 20

// DownloadProgress draws a single-line progress bar for report transfers.
type DownloadProgress struct {
	out      io.Writer
	bar      progress.Model
	label    string
	lastPct  int
	lastSize int64
	drawn    bool
}

// NewDownloadProgress creates a progress bar writing to out.
func NewDownloadProgress(out io.Writer, label string, width int) *DownloadProgress {
	if width < 10 {
		width = 10
	}
	return &DownloadProgress{
		out: out,
		bar: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(width),
			progress.WithoutPercentage(),
		),
		label:   label,
		lastPct: -1,
	}
}

// Update redraws the bar when progress moved by at least one percent.
// It has the report.ProgressFunc signature.
func (p *DownloadProgress) Update(ev report.ProgressEvent) {
	if ev.Total > 0 {
		pct := int(ev.Written * 100 / ev.Total)
		if pct == p.lastPct {
			return
		}
		p.lastPct = pct
	} else {
		if p.drawn && ev.Written-p.lastSize < unknownStep {
			return
		}
		p.lastSize = ev.Written
	}

	p.drawn = true
	_, _ = fmt.Fprint(p.out, "\r"+p.Render(ev.Written, ev.Total))
}

// Render returns the bar for written out of total bytes. A non-positive
// total renders only the byte count.
func (p *DownloadProgress) Render(written, total int64) string {
	var b strings.Builder
	if p.label != "" {
		b.WriteString(styles.ProgressLabelStyle.Render(p.label))
		b.WriteString(" ")
	}

	if total <= 0 {
		b.WriteString(humanize.IBytes(uint64(max(written, 0))))
		return b.String()
	}

	ratio := float64(written) / float64(total)
	ratio = min(max(ratio, 0), 1)
	b.WriteString(p.bar.ViewAs(ratio))
	b.WriteString(styles.ProgressPercentStyle.Render(fmt.Sprintf("%d%%", int(ratio*100))))
	b.WriteString(" ")
	b.WriteString(fmt.Sprintf("%s / %s", humanize.IBytes(uint64(max(written, 0))), humanize.IBytes(uint64(total))))
	return b.String()
}

// Finish ends the progress line.
func (p *DownloadProgress) Finish() {
	if p.drawn {
		_, _ = fmt.Fprintln(p.out)
		p.drawn = false
	}
}
