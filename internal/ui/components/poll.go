package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"

	"github.com/j-veylop/bidmanager-cli/internal/report"
	"github.com/j-veylop/bidmanager-cli/internal/ui/styles"
)

// PollLine renders one waiting line per poll, advancing a spinner frame on
// each attempt.
func PollLine(ev report.PollEvent) string {
	frames := spinner.Dot.Frames
	frame := styles.FocusedStyle.Render(frames[(ev.Attempt-1+len(frames))%len(frames)])
	return fmt.Sprintf("%s Query %d still running at %s (attempt %d, waited %s)",
		frame, ev.QueryID, ev.At.UTC().Format(time.RFC1123Z), ev.Attempt, ev.Waited.Round(time.Second))
}
