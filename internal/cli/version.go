package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mpostma/toolgate/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the toolgate version",
		Run: func(cmd *cobra.Command, args []string) {
			if version.Commit != "" {
				fmt.Printf("toolgate %s (%s)\n", version.Version, version.Commit)
				return
			}
			fmt.Printf("toolgate %s\n", version.Version)
		},
	}
}
