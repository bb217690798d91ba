package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/wesm/mailtui/internal/himalaya"
)

var foldersJSON bool

type folderInfo struct {
	Name   string `json:"name"`
	Desc   string `json:"desc,omitempty"`
	Unread *int   `json:"unread,omitempty"`
}

var foldersCmd = &cobra.Command{
	Use:   "folders",
	Short: "List the folders of an account",
	Long: `List the folders of the configured (or --account) himalaya account.

Examples:
  mailtui folders
  mailtui folders --account work --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		folders, err := newClient().ListFolders(cmd.Context())
		if err != nil {
			return fmt.Errorf("list folders: %w", err)
		}

		if foldersJSON {
			out := make([]folderInfo, len(folders))
			for i, f := range folders {
				out[i] = folderInfo{Name: f.Name, Desc: f.Desc, Unread: f.Unread}
			}
			return writeJSON(cmd.OutOrStdout(), out)
		}
		if len(folders) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No folders found.")
			return nil
		}
		outputFoldersTable(cmd.OutOrStdout(), folders)
		return nil
	},
}

func outputFoldersTable(out io.Writer, folders []himalaya.Folder) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tUNREAD\tDESCRIPTION")
	fmt.Fprintln(w, "────\t──────\t───────────")
	for _, f := range folders {
		unread := "-"
		if f.Unread != nil {
			unread = fmt.Sprintf("%d", *f.Unread)
		}
		desc := f.Desc
		if desc == "" {
			desc = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", f.Name, unread, desc)
	}
	_ = w.Flush()

	fmt.Fprintf(out, "\n%d folder(s)\n", len(folders))
}

func init() {
	foldersCmd.Flags().BoolVar(&foldersJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(foldersCmd)
}
