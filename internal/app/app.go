package app

import (
	"github.com/spf13/cobra"

	"github.com/xab-mack/smartaudit/internal/cli"
)

func BuildRoot() *cobra.Command {
	root := &cobra.Command{
		Use:           "smartaudit",
		Short:         "Static security analysis and scoring for Solidity contracts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cli.AddCommands(root)
	return root
}
