package commands

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:   "tonearm",
	Short: "Local-first audio recognize-and-recall service",
	Long: `tonearm stores audio recordings with their metadata and answers
"what recording does this clip come from?" queries against an acoustic
fingerprint index, entirely on the local machine.

The index lives in memory and is rebuilt from the recording store on
every start, so the store is the single source of truth.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
