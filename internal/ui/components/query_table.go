package components

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"

	"github.com/j-veylop/bidmanager-cli/internal/dbm"
	"github.com/j-veylop/bidmanager-cli/internal/ui/styles"
)

const (
	minTitleWidth = 10
	stateWidth    = 8
	lastRunWidth  = 16
	ellipsis      = "…"
)

// RenderQueryTable renders queries as a styled table no wider than width.
func RenderQueryTable(queries []dbm.Query, width int) string {
	if len(queries) == 0 {
		return styles.HelpStyle.Render("No queries exist.")
	}

	idWidth := len("Id")
	for _, q := range queries {
		idWidth = max(idWidth, len(strconv.FormatInt(q.ID(), 10)))
	}
	titleWidth := max(width-idWidth-stateWidth-lastRunWidth-8, minTitleWidth)

	cell := func(s string, w int) string {
		return styles.TableCellStyle.Width(w + 2).Render(s)
	}

	header := lipgloss.JoinHorizontal(lipgloss.Top,
		cell("Id", idWidth), cell("Name", titleWidth), cell("State", stateWidth), cell("Last run", lastRunWidth))

	rows := []string{styles.TableHeaderStyle.Render(header)}
	for _, q := range queries {
		title, state, lastRun := "", "", "never"
		if q.Metadata != nil {
			title = ansi.Truncate(q.Metadata.Title, titleWidth, ellipsis)
			state = "done"
			if q.Metadata.Running {
				state = styles.WarningTextStyle.Render("running")
			}
			if q.Metadata.HasReport() {
				lastRun = humanize.Time(q.Metadata.LatestReportRunTime())
			}
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top,
			cell(strconv.FormatInt(q.ID(), 10), idWidth),
			cell(title, titleWidth),
			cell(state, stateWidth),
			cell(lastRun, lastRunWidth),
		))
	}

	return strings.Join(rows, "\n")
}

// QueryTableWriter returns a query list printer for the report runner.
func QueryTableWriter(width int) func(io.Writer, []dbm.Query) error {
	return func(w io.Writer, queries []dbm.Query) error {
		_, err := fmt.Fprintln(w, RenderQueryTable(queries, width))
		return err
	}
}
