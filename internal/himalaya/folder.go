package himalaya

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
)

// Folder is one mailbox folder.
type Folder struct {
	Name   string
	Desc   string
	Unread *int // nil when the program does not report it
}

const opListFolders = "list folders"

// InboxName is the folder every account is guaranteed to have.
const InboxName = "INBOX"

// ListFolders returns the account's folders, INBOX first.
func (c *Client) ListFolders(ctx context.Context) ([]Folder, error) {
	args := []string{"folder", "list"}

	folders, err := runAttempts(ctx, c.logger, opListFolders, []attempt[[]Folder]{
		{
			name: "json",
			run: func(ctx context.Context) ([]Folder, error) {
				res, err := c.run(ctx, request{op: opListFolders, args: args, json: true})
				if err != nil {
					return nil, err
				}
				folders, err := parseFoldersJSON(res.stdout)
				if err != nil {
					return nil, err
				}
				if len(folders) == 0 {
					return nil, parseError(opListFolders, "json", errors.New("no folders in output"), res.stdout)
				}
				return folders, nil
			},
		},
		{
			name: "text",
			when: retryAsText,
			run: func(ctx context.Context) ([]Folder, error) {
				res, err := c.run(ctx, request{op: opListFolders, args: args})
				if err != nil {
					return nil, err
				}
				return parseFoldersText(res.stdout), nil
			},
		},
	})
	if err != nil {
		return nil, err
	}
	return normalizeFolders(folders), nil
}

func parseFoldersJSON(out string) ([]Folder, error) {
	items, err := unwrapArray(out, "folders", "data")
	if err != nil {
		return nil, parseError(opListFolders, "json", err, out)
	}

	var folders []Folder
	for _, item := range items {
		if name := jsonString(item); name != "" {
			folders = append(folders, Folder{Name: name})
			continue
		}

		var obj map[string]json.RawMessage
		if json.Unmarshal(item, &obj) != nil {
			continue
		}
		name := firstJSONString(obj, "name", "folder", "path", "id")
		if name == "" {
			continue
		}
		f := Folder{Name: name, Desc: firstJSONString(obj, "desc", "description")}
		for _, key := range []string{"unread", "unseen"} {
			var n int
			if raw, ok := obj[key]; ok && json.Unmarshal(raw, &n) == nil {
				f.Unread = &n
				break
			}
		}
		folders = append(folders, f)
	}
	return folders, nil
}

func firstJSONString(obj map[string]json.RawMessage, keys ...string) string {
	for _, k := range keys {
		if s := jsonString(obj[k]); s != "" {
			return s
		}
		var n json.Number
		if raw, ok := obj[k]; ok && json.Unmarshal(raw, &n) == nil {
			return n.String()
		}
	}
	return ""
}

var folderHeaderNames = map[string]bool{
	"name":        true,
	"desc":        true,
	"description": true,
	"folder":      true,
	"folders":     true,
}

// parseFoldersText reads one folder per line from a table or a plain list.
func parseFoldersText(out string) []Folder {
	var folders []Folder
	for _, line := range strings.Split(out, "\n") {
		clean := strings.TrimSpace(line)
		if clean == "" || strings.ContainsAny(clean[:1], "+-=") || isSeparatorLine(clean) {
			continue
		}
		lower := strings.ToLower(clean)
		if strings.HasPrefix(lower, "warn ") || strings.HasPrefix(lower, "error:") {
			continue
		}

		var cells []string
		if hasCellDelimiter(clean) {
			for _, c := range splitDelimited(clean) {
				if c != "" {
					cells = append(cells, c)
				}
			}
		} else {
			cells = multiSpaceRe.Split(clean, 2)
		}
		if len(cells) == 0 {
			continue
		}

		name := strings.TrimSpace(cells[0])
		if name == "" || folderHeaderNames[strings.ToLower(name)] {
			continue
		}
		f := Folder{Name: name}
		if len(cells) > 1 {
			f.Desc = strings.TrimSpace(cells[1])
		}
		folders = append(folders, f)
	}
	return folders
}

// normalizeFolders trims names, drops case-insensitive duplicates, adds
// INBOX when missing, and sorts INBOX first then by name.
func normalizeFolders(folders []Folder) []Folder {
	seen := make(map[string]bool, len(folders))
	unique := make([]Folder, 0, len(folders)+1)
	hasInbox := false
	for _, f := range folders {
		f.Name = strings.TrimSpace(f.Name)
		f.Desc = strings.TrimSpace(f.Desc)
		key := strings.ToLower(f.Name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		if strings.EqualFold(f.Name, InboxName) {
			hasInbox = true
		}
		unique = append(unique, f)
	}
	if !hasInbox {
		unique = append(unique, Folder{Name: InboxName, Desc: "Inbox"})
	}

	sort.SliceStable(unique, func(i, j int) bool {
		ii := strings.EqualFold(unique[i].Name, InboxName)
		jj := strings.EqualFold(unique[j].Name, InboxName)
		if ii != jj {
			return ii
		}
		return strings.ToLower(unique[i].Name) < strings.ToLower(unique[j].Name)
	})
	return unique
}
