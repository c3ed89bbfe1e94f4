package main

import (
	"fmt"
	"os"

	"github.com/xab-mack/smartaudit/internal/app"
	"github.com/xab-mack/smartaudit/internal/cli"
)

func main() {
	if err := app.BuildRoot().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(cli.ExitCode(err))
	}
}
