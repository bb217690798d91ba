package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/wesm/mailtui/internal/himalaya"
)

var (
	envelopesPage int
	envelopesJSON bool
)

const subjectWidth = 50

type envelopeInfo struct {
	ID            string     `json:"id"`
	From          string     `json:"from"`
	Subject       string     `json:"subject"`
	Date          *time.Time `json:"date,omitempty"`
	RawDate       string     `json:"raw_date,omitempty"`
	Seen          bool       `json:"seen"`
	Flagged       bool       `json:"flagged"`
	Answered      bool       `json:"answered"`
	HasAttachment bool       `json:"has_attachment"`
}

var envelopesCmd = &cobra.Command{
	Use:   "envelopes",
	Short: "Print one page of a folder",
	Long: `Print one page of envelopes from the configured folder.
Pages are numbered from 1.

Examples:
  mailtui envelopes
  mailtui envelopes --folder Archive --page 3 --page-size 50`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if envelopesPage < 1 {
			return fmt.Errorf("--page must be at least 1, got %d", envelopesPage)
		}
		folder := cfg.Himalaya.Folder
		envs, err := newClient().ListEnvelopes(cmd.Context(), folder, envelopesPage-1, cfg.Himalaya.PageSize)
		if err != nil {
			return fmt.Errorf("list envelopes: %w", err)
		}

		if envelopesJSON {
			out := make([]envelopeInfo, len(envs))
			for i, e := range envs {
				out[i] = envelopeInfo{
					ID: e.ID, From: e.From, Subject: e.Subject, RawDate: e.RawDate,
					Seen: e.Seen, Flagged: e.Flagged, Answered: e.Answered, HasAttachment: e.HasAttachment,
				}
				if !e.Date.IsZero() {
					d := e.Date
					out[i].Date = &d
				}
			}
			return writeJSON(cmd.OutOrStdout(), out)
		}
		if len(envs) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No messages on page %d of %s.\n", envelopesPage, folder)
			return nil
		}
		outputEnvelopesTable(cmd.OutOrStdout(), envs)
		return nil
	},
}

func outputEnvelopesTable(out io.Writer, envs []himalaya.Envelope) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tFLAGS\tFROM\tSUBJECT\tDATE")
	fmt.Fprintln(w, "──\t─────\t────\t───────\t────")
	for _, e := range envs {
		date := e.RawDate
		if !e.Date.IsZero() {
			date = e.Date.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			e.ID, envelopeFlags(e), e.From, runewidth.Truncate(e.Subject, subjectWidth, "..."), date)
	}
	_ = w.Flush()

	fmt.Fprintf(out, "\n%d message(s)\n", len(envs))
}

// envelopeFlags renders the flag glyphs himalaya uses in its own tables.
func envelopeFlags(e himalaya.Envelope) string {
	var b strings.Builder
	if !e.Seen {
		b.WriteByte('*')
	}
	if e.Flagged {
		b.WriteByte('!')
	}
	if e.Answered {
		b.WriteByte('R')
	}
	if e.HasAttachment {
		b.WriteByte('@')
	}
	if b.Len() == 0 {
		return "-"
	}
	return b.String()
}

func init() {
	envelopesCmd.Flags().IntVar(&envelopesPage, "page", 1, "page number, starting at 1")
	envelopesCmd.Flags().BoolVar(&envelopesJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(envelopesCmd)
}
