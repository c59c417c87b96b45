// Package main downloads Bid Manager line items to a CSV file.
package main

import (
	"os"

	"github.com/j-veylop/bidmanager-cli/internal/cli"
)

func main() {
	rt := cli.DefaultRuntime()
	os.Exit(cli.Execute(cli.NewDownloadLineItemsCommand(rt), rt))
}
