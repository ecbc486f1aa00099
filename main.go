package main

import (
	"os"

	"report-tables/cli"
)

func main() {
	os.Exit(cli.Execute())
}
