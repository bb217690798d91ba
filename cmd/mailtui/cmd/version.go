package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/wesm/mailtui/internal/himalaya"
)

// Set at build time via -ldflags "-X github.com/wesm/mailtui/cmd/mailtui/cmd.Version=...".
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show mailtui and himalaya versions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "mailtui %s (commit %s, built %s, %s/%s)\n",
			Version, Commit, BuildDate, runtime.GOOS, runtime.GOARCH)

		opts := []himalaya.Option{}
		if runner != nil {
			opts = append(opts, himalaya.WithRunner(runner))
		}
		client := himalaya.New(himalaya.Options{Binary: binFlag}, opts...)
		v, err := client.Version(cmd.Context())
		if err != nil {
			fmt.Fprintf(out, "%s: unavailable (%s)\n", client.Binary(), himalaya.DiagnosticOf(err))
			return nil
		}
		fmt.Fprintf(out, "%s %s\n", client.Binary(), v)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
