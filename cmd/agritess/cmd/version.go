package cmd

import (
	"fmt"

	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/version"
	"github.com/spf13/cobra"
)

// versionCmd represents the version command.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		ver, commit, date := version.Info()
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "agritess %s\n", ver)
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", commit)
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
