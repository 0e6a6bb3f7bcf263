package cmd

import (
	"fmt"

	"github.com/endorses/stringmatch/internal/pkg/version"
	"github.com/spf13/cobra"
	"golang.org/x/sys/cpu"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and build information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, version.GetFullVersion())

		verbose, _ := cmd.Flags().GetBool("verbose")
		if verbose {
			fmt.Fprintf(out, "cpu: avx2=%t sse4.2=%t\n", cpu.X86.HasAVX2, cpu.X86.HasSSE42)
		}
	},
}

func init() {
	versionCmd.Flags().BoolP("verbose", "v", false, "also print detected CPU features")
}
