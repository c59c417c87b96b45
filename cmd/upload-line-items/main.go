// Package main uploads a line item CSV to Bid Manager, as a dry run by default.
package main

import (
	"os"

	"github.com/j-veylop/bidmanager-cli/internal/cli"
)

func main() {
	rt := cli.DefaultRuntime()
	os.Exit(cli.Execute(cli.NewUploadLineItemsCommand(rt), rt))
}
