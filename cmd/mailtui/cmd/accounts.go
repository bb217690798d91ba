package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/wesm/mailtui/internal/config"
	"github.com/wesm/mailtui/internal/himalaya"
)

var (
	accountsJSON  bool
	accountsCheck bool
)

// probeLimit bounds concurrent himalaya processes during --check.
const probeLimit = 4

// accountInfo is one row of the accounts listing.
type accountInfo struct {
	Name    string `json:"name"`
	Default bool   `json:"default"`
	Sender  string `json:"sender,omitempty"`
	Status  string `json:"status,omitempty"`
	Folders int    `json:"folders,omitempty"`
	Error   string `json:"error,omitempty"`
}

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List himalaya accounts",
	Long: `List the accounts defined in the himalaya configuration files.

With --check, each account is probed by listing its folders.

Examples:
  mailtui accounts
  mailtui accounts --check
  mailtui accounts --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		locator := config.NewHimalayaLocator(logger.Logger)
		names, def, source := locator.ListAccounts()
		if len(names) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No accounts found. Configure himalaya first (see himalaya account configure).")
			return nil
		}
		logger.Debug("accounts listed", "count", len(names), "file", source)

		accounts := make([]accountInfo, len(names))
		for i, name := range names {
			sender, _, _ := locator.ResolveSender(name)
			accounts[i] = accountInfo{Name: name, Default: name == def, Sender: sender}
		}

		if accountsCheck {
			if err := probeAccounts(cmd.Context(), newClient(), accounts); err != nil {
				return err
			}
		}

		if accountsJSON {
			return writeJSON(cmd.OutOrStdout(), accounts)
		}
		outputAccountsTable(cmd.OutOrStdout(), accounts, accountsCheck)
		return nil
	},
}

// probeAccounts lists the folders of every account in parallel and records
// the outcome on each row. A failing account does not stop the others.
func probeAccounts(ctx context.Context, client *himalaya.Client, accounts []accountInfo) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(probeLimit)
	for i := range accounts {
		acc := &accounts[i]
		g.Go(func() error {
			folders, err := client.WithAccount(acc.Name).ListFolders(gctx)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				acc.Status = "error"
				acc.Error = himalaya.DiagnosticOf(err)
				logger.Debug("account probe failed", "account", acc.Name, "error", err)
				return nil
			}
			acc.Status = "ok"
			acc.Folders = len(folders)
			return nil
		})
	}
	return g.Wait()
}

func outputAccountsTable(out io.Writer, accounts []accountInfo, checked bool) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if checked {
		fmt.Fprintln(w, "NAME\tDEFAULT\tSENDER\tSTATUS\tFOLDERS")
		fmt.Fprintln(w, "────\t───────\t──────\t──────\t───────")
	} else {
		fmt.Fprintln(w, "NAME\tDEFAULT\tSENDER")
		fmt.Fprintln(w, "────\t───────\t──────")
	}

	for _, acc := range accounts {
		def := ""
		if acc.Default {
			def = "yes"
		}
		sender := acc.Sender
		if sender == "" {
			sender = "-"
		}
		if !checked {
			fmt.Fprintf(w, "%s\t%s\t%s\n", acc.Name, def, sender)
			continue
		}
		status := acc.Status
		if acc.Error != "" {
			status = "error: " + acc.Error
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", acc.Name, def, sender, status, acc.Folders)
	}
	_ = w.Flush()

	fmt.Fprintf(out, "\n%d account(s)\n", len(accounts))
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	accountsCmd.Flags().BoolVar(&accountsJSON, "json", false, "output as JSON")
	accountsCmd.Flags().BoolVar(&accountsCheck, "check", false, "probe each account by listing its folders")
	rootCmd.AddCommand(accountsCmd)
}

