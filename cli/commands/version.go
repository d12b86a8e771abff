package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/quarry/cli/internal/update"
	"github.com/satishbabariya/quarry/cli/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE:  runVersion,
}

var versionCheck bool

func init() {
	versionCmd.Flags().BoolVar(&versionCheck, "check", false, "Check whether a newer release exists")

	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, args []string) error {
	info := version.Get()
	fmt.Println(info.FullString())

	if versionCheck {
		fmt.Println()
		return update.CheckForUpdates(info.Version)
	}
	return nil
}
