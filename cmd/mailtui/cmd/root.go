package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/wesm/mailtui/internal/config"
	"github.com/wesm/mailtui/internal/debuglog"
	"github.com/wesm/mailtui/internal/himalaya"
	"github.com/wesm/mailtui/internal/tui"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  = debuglog.Discard()

	binFlag      string
	accountFlag  string
	folderFlag   string
	pageSizeFlag int
	noMarkSeen   bool
	senderFlag   string
	debugFlag    bool
	debugLogFlag string
)

// runner replaces the subprocess runner in tests.
var runner himalaya.Runner

var rootCmd = &cobra.Command{
	Use:   "mailtui",
	Short: "Terminal email client on top of himalaya",
	Long: `mailtui is a keyboard-driven terminal email client. Every mail
operation is delegated to the himalaya CLI, which must be installed and
configured with at least one account.

Examples:
  mailtui
  mailtui --account work --folder Archive
  mailtui --no-mark-seen --page-size 50`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		applyFlags(cmd, cfg)
		if cfg.Himalaya.PageSize < 1 {
			return fmt.Errorf("--page-size must be at least 1, got %d", cfg.Himalaya.PageSize)
		}

		logger, err = debuglog.Open(cfg.Debug.LogPath, cfg.Debug.Enabled)
		if err != nil {
			return err
		}
		logger.Debug("startup",
			"config", cfg.Path,
			"binary", cfg.Himalaya.Binary,
			"account", cfg.Himalaya.Account,
			"folder", cfg.Himalaya.Folder,
			"page_size", cfg.Himalaya.PageSize,
			"mark_seen", cfg.Himalaya.MarkSeen)
		return nil
	},
	RunE: runSession,
}

// applyFlags overrides config values with the flags set on the command line.
func applyFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("bin") {
		c.Himalaya.Binary = binFlag
	}
	if flags.Changed("account") {
		c.Himalaya.Account = accountFlag
	}
	if flags.Changed("folder") {
		c.Himalaya.Folder = folderFlag
	}
	if flags.Changed("page-size") {
		c.Himalaya.PageSize = pageSizeFlag
	}
	if noMarkSeen {
		c.Himalaya.MarkSeen = false
	}
	if flags.Changed("sender") {
		c.Himalaya.Sender = senderFlag
	}
	if debugFlag {
		c.Debug.Enabled = true
	}
	if flags.Changed("debug-log") {
		c.Debug.Enabled = true
		c.Debug.LogPath = debugLogFlag
	}
}

// newClient builds a client for the configured program and account.
func newClient() *himalaya.Client {
	opts := []himalaya.Option{himalaya.WithLogger(logger.Logger)}
	if runner != nil {
		opts = append(opts, himalaya.WithRunner(runner))
	}
	return himalaya.New(himalaya.Options{
		Binary:  cfg.Himalaya.Binary,
		Account: cfg.Himalaya.Account,
	}, opts...)
}

// checkProgram verifies the mail program runs and returns its version.
func checkProgram(ctx context.Context, client *himalaya.Client) (string, error) {
	version, err := client.Version(ctx)
	if err != nil {
		if himalaya.KindOf(err) == himalaya.KindInvocationFailed {
			return "", fmt.Errorf("%s not found or not executable (install himalaya or pass --bin): %w", client.Binary(), err)
		}
		return "", fmt.Errorf("check %s: %w", client.Binary(), err)
	}
	logger.Debug("mail program found", "binary", client.Binary(), "version", version)
	return version, nil
}

func runSession(cmd *cobra.Command, args []string) error {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return errors.New("mailtui needs an interactive terminal; use the accounts, folders or envelopes commands for scripted output")
	}

	ctx := cmd.Context()
	client := newClient()
	if _, err := checkProgram(ctx, client); err != nil {
		return err
	}

	locator := config.NewHimalayaLocator(logger.Logger)
	sender := cfg.Himalaya.Sender
	if sender == "" {
		var path string
		sender, _, path = locator.ResolveSender(cfg.Himalaya.Account)
		logger.Debug("sender resolved", "sender", sender, "file", path)
	}

	model := tui.New(client, tui.Options{
		Folder:   cfg.Himalaya.Folder,
		PageSize: cfg.Himalaya.PageSize,
		MarkSeen: cfg.Himalaya.MarkSeen,
		Sender:   sender,
		Version:  Version,
		Context:  ctx,
		Logger:   logger.Logger,
		Connect: func(account string) tui.MailClient {
			return client.WithAccount(account)
		},
		Accounts: func() ([]string, string) {
			names, def, _ := locator.ListAccounts()
			return names, def
		},
		ResolveSender: func(account string) string {
			s, _, _ := locator.ResolveSender(account)
			return s
		},
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}

// Execute runs the root command with a background context.
// Prefer ExecuteContext for signal-aware execution.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with the given context,
// enabling graceful shutdown when the context is cancelled.
func ExecuteContext(ctx context.Context) error {
	defer func() { _ = logger.Close() }()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ~/.config/mailtui/config.toml)")
	flags.StringVar(&binFlag, "bin", config.DefaultBinary, "himalaya executable to run")
	flags.StringVarP(&accountFlag, "account", "a", "", "himalaya account (default: the account marked default)")
	flags.StringVarP(&folderFlag, "folder", "f", config.DefaultFolder, "folder to open")
	flags.IntVar(&pageSizeFlag, "page-size", config.DefaultPageSize, "envelopes per page")
	flags.BoolVar(&noMarkSeen, "no-mark-seen", false, "open messages without marking them read")
	flags.StringVar(&senderFlag, "sender", "", `From address for outgoing mail, e.g. "Name <me@example.com>"`)
	flags.BoolVar(&debugFlag, "debug", false, "write a debug log")
	flags.StringVar(&debugLogFlag, "debug-log", "", "debug log path (implies --debug)")
}
