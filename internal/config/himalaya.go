package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// HimalayaAccount is one [accounts.<name>] table of a himalaya config.
type HimalayaAccount struct {
	Name        string
	Email       string
	DisplayName string
	Default     bool
}

// Sender returns "Display Name <email>", the bare email, or "".
func (a HimalayaAccount) Sender() string {
	if a.Email == "" {
		return ""
	}
	if a.DisplayName == "" {
		return a.Email
	}
	return a.DisplayName + " <" + a.Email + ">"
}

// HimalayaFile is a parsed himalaya config document. Accounts keep the
// order in which they appear in the file.
type HimalayaFile struct {
	Path     string
	Accounts []HimalayaAccount
}

// Account returns the named account.
func (f *HimalayaFile) Account(name string) (HimalayaAccount, bool) {
	for _, a := range f.Accounts {
		if a.Name == name {
			return a, true
		}
	}
	return HimalayaAccount{}, false
}

// DefaultAccount returns the first account marked default, or the only
// account when the file defines exactly one.
func (f *HimalayaFile) DefaultAccount() (HimalayaAccount, bool) {
	for _, a := range f.Accounts {
		if a.Default {
			return a, true
		}
	}
	if len(f.Accounts) == 1 {
		return f.Accounts[0], true
	}
	return HimalayaAccount{}, false
}

// HimalayaConfigPaths returns the himalaya config search path in order:
// each entry of HIMALAYA_CONFIG (colon-separated), the XDG location,
// ~/.himalaya/config.toml and ~/.himalayarc. Duplicates are removed.
func HimalayaConfigPaths() []string {
	var paths []string
	if env := strings.TrimSpace(os.Getenv("HIMALAYA_CONFIG")); env != "" {
		for _, p := range strings.Split(env, ":") {
			if p = strings.TrimSpace(p); p != "" {
				paths = append(paths, absPath(expandPath(p)))
			}
		}
	}

	home, _ := os.UserHomeDir()
	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		paths = append(paths, filepath.Join(absPath(expandPath(xdg)), "himalaya", "config.toml"))
	} else {
		paths = append(paths, filepath.Join(home, ".config", "himalaya", "config.toml"))
	}
	paths = append(paths,
		filepath.Join(home, ".himalaya", "config.toml"),
		filepath.Join(home, ".himalayarc"),
	)

	seen := make(map[string]bool, len(paths))
	unique := paths[:0]
	for _, p := range paths {
		if !seen[p] {
			seen[p] = true
			unique = append(unique, p)
		}
	}
	return unique
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// ReadHimalayaFile parses one himalaya config document. Account tables
// that are not tables, and fields of the wrong type, are ignored.
func ReadHimalayaFile(path string) (*HimalayaFile, error) {
	var raw map[string]any
	md, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return nil, fmt.Errorf("decode himalaya config %s: %w", path, err)
	}

	f := &HimalayaFile{Path: path}
	accounts, _ := raw["accounts"].(map[string]any)
	if accounts == nil {
		return f, nil
	}

	seen := make(map[string]bool, len(accounts))
	for _, key := range md.Keys() {
		if len(key) != 2 || key[0] != "accounts" || seen[key[1]] {
			continue
		}
		seen[key[1]] = true
		table, ok := accounts[key[1]].(map[string]any)
		if !ok {
			continue
		}
		acct := HimalayaAccount{Name: strings.TrimSpace(key[1])}
		if acct.Name == "" {
			continue
		}
		acct.Email, _ = table["email"].(string)
		acct.Email = strings.TrimSpace(acct.Email)
		acct.DisplayName, _ = table["display-name"].(string)
		acct.DisplayName = strings.TrimSpace(acct.DisplayName)
		acct.Default, _ = table["default"].(bool)
		f.Accounts = append(f.Accounts, acct)
	}
	return f, nil
}

// HimalayaLocator reads himalaya config files from a search path.
type HimalayaLocator struct {
	Paths  []string
	Logger *slog.Logger
}

// NewHimalayaLocator returns a locator over HimalayaConfigPaths.
func NewHimalayaLocator(logger *slog.Logger) *HimalayaLocator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &HimalayaLocator{Paths: HimalayaConfigPaths(), Logger: logger}
}

// files yields each readable config file with an accounts table.
// Unparseable files are logged and skipped.
func (l *HimalayaLocator) files() []*HimalayaFile {
	var files []*HimalayaFile
	for _, path := range l.Paths {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				l.Logger.Warn("cannot stat himalaya config", "path", path, "err", err)
			}
			continue
		}
		f, err := ReadHimalayaFile(path)
		if err != nil {
			l.Logger.Warn("cannot parse himalaya config", "path", path, "err", err)
			continue
		}
		if len(f.Accounts) == 0 {
			continue
		}
		files = append(files, f)
	}
	return files
}

// ResolveSender finds the From address for account. With an account
// name, its email is used, or the name itself when it is an address.
// Without one, the default account of the first file that has one is
// used. It returns the sender, the account it belongs to, and the file it
// came from; all empty when nothing matches.
func (l *HimalayaLocator) ResolveSender(account string) (sender, resolved, path string) {
	account = strings.TrimSpace(account)
	for _, f := range l.files() {
		if account != "" {
			if a, ok := f.Account(account); ok && a.Email != "" {
				return a.Sender(), account, f.Path
			}
			if strings.Contains(account, "@") {
				return account, account, f.Path
			}
			continue
		}

		a, ok := f.DefaultAccount()
		if !ok {
			continue
		}
		if a.Email != "" {
			return a.Sender(), a.Name, f.Path
		}
		if strings.Contains(a.Name, "@") {
			return a.Name, a.Name, f.Path
		}
	}
	return "", "", ""
}

// ListAccounts returns every account name across the search path,
// deduplicated case-insensitively in file order, the first account marked
// default, and the first file that defined accounts.
func (l *HimalayaLocator) ListAccounts() (names []string, defaultAccount, source string) {
	seen := make(map[string]bool)
	for _, f := range l.files() {
		if source == "" {
			source = f.Path
		}
		for _, a := range f.Accounts {
			key := strings.ToLower(a.Name)
			if seen[key] {
				continue
			}
			seen[key] = true
			names = append(names, a.Name)
			if defaultAccount == "" && a.Default {
				defaultAccount = a.Name
			}
		}
	}
	return names, defaultAccount, source
}
