// Package main is the entry point of get-latest-report. It lists saved
// queries, or waits for one to finish and downloads its latest report when
// the report is recent enough, starting a new run otherwise.
package main

import (
	"os"

	"github.com/j-veylop/bidmanager-cli/internal/cli"
)

func main() {
	rt := cli.DefaultRuntime()
	os.Exit(cli.Execute(cli.NewGetLatestReportCommand(rt), rt))
}
