package components

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"

	"github.com/j-veylop/bidmanager-cli/internal/models"
	"github.com/j-veylop/bidmanager-cli/internal/ui/styles"
)

const historyPathWidth = 40

// RenderHistory renders ledger rows as a table, newest first.
func RenderHistory(activities []models.Activity) string {
	if len(activities) == 0 {
		return styles.HelpStyle.Render("No activity recorded.")
	}

	cell := func(s string, w int) string {
		return styles.TableCellStyle.Width(w + 2).Render(s)
	}

	header := lipgloss.JoinHorizontal(lipgloss.Top,
		cell("When", 19), cell("Action", 14), cell("Query", 14),
		cell("Size", 10), cell("Took", 8), cell("Result", historyPathWidth))
	rows := []string{styles.TableHeaderStyle.Render(header)}

	for _, a := range activities {
		query := ""
		if a.QueryID != 0 {
			query = strconv.FormatInt(a.QueryID, 10)
		}
		size := ""
		if a.Bytes > 0 {
			size = humanize.IBytes(uint64(a.Bytes))
		}

		result := a.Path
		if a.Failed() {
			result = a.Error
		}
		result = styles.StatusStyle(a.Failed()).Render(ansi.Truncate(result, historyPathWidth, ellipsis))

		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top,
			cell(a.Timestamp.Local().Format(time.DateTime), 19),
			cell(a.Action, 14),
			cell(query, 14),
			cell(size, 10),
			cell((time.Duration(a.DurationMs)*time.Millisecond).Round(time.Millisecond).String(), 8),
			cell(result, historyPathWidth),
		))
	}

	return strings.Join(rows, "\n")
}

// RenderHistorySummary is a one-line summary of the ledger rows.
func RenderHistorySummary(activities []models.Activity) string {
	var downloads, failures int
	var total int64
	for _, a := range activities {
		if a.Failed() {
			failures++
			continue
		}
		if a.Action == models.ActionDownload || a.Action == models.ActionLineItems {
			downloads++
			total += a.Bytes
		}
	}
	return fmt.Sprintf("%d entries, %d downloads (%s), %d failed",
		len(activities), downloads, humanize.IBytes(uint64(total)), failures)
}
