package toolloop

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/libra-vcs/libra/internal/vcserrors"
)

const (
	readFileSchema = `{"type":"object","properties":{"path":{"type":"string"},"offset":{"type":"integer"},"length":{"type":"integer"}},"required":["path"]}`
	listDirSchema  = `{"type":"object","properties":{"path":{"type":"string"},"depth":{"type":"integer"}},"required":["path"]}`
	grepSchema     = `{"type":"object","properties":{"pattern":{"type":"string"},"path":{"type":"string"},"regex":{"type":"boolean"},"max_matches":{"type":"integer"}},"required":["pattern"]}`
)

type readFileArgs struct {
	Path   string `json:"path"`
	Offset int    `json:"offset"`
	Length int    `json:"length"`
}

type readFileResult struct {
	Contents string `json:"contents"`
	Offset   int    `json:"offset"`
	Length   int    `json:"length"`
}

// RegisterReadFile adds the read_file built-in.
func RegisterReadFile(r *ToolRegistry) {
	r.Register(ToolHandler{
		Definition: ToolDefinition{
			Name:        "read_file",
			Description: "Read UTF-8 or byte contents from a file in the sandboxed working directory.",
			Parameters:  json.RawMessage(readFileSchema),
		},
		Kind:     ToolKindFunction,
		PathArgs: []string{"path"},
		Call: func(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
			var args readFileArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, vcserrors.Wrap(vcserrors.KindValidation, "read_file arguments", err)
			}
			data, err := os.ReadFile(args.Path)
			if err != nil {
				return nil, vcserrors.Wrap(vcserrors.KindValidation, fmt.Sprintf("read %s", args.Path), err)
			}
			start := args.Offset
			if start < 0 || start > len(data) {
				start = 0
			}
			end := len(data)
			if args.Length > 0 && start+args.Length < end {
				end = start + args.Length
			}
			return json.Marshal(readFileResult{
				Contents: string(data[start:end]),
				Offset:   start,
				Length:   end - start,
			})
		},
	})
}

type listDirArgs struct {
	Path  string `json:"path"`
	Depth int    `json:"depth"`
}

type dirEntryResult struct {
	Path  string `json:"path"`
	IsDir bool   `json:"is_dir"`
}

// RegisterListDir adds the list_dir built-in.
func RegisterListDir(r *ToolRegistry) {
	r.Register(ToolHandler{
		Definition: ToolDefinition{
			Name:        "list_dir",
			Description: "Enumerate directory entries with their types, sorted.",
			Parameters:  json.RawMessage(listDirSchema),
		},
		Kind:     ToolKindFunction,
		PathArgs: []string{"path"},
		Call: func(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
			var args listDirArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, vcserrors.Wrap(vcserrors.KindValidation, "list_dir arguments", err)
			}
			depth := args.Depth
			if depth <= 0 {
				depth = 1
			}

			var entries []dirEntryResult
			err := filepath.WalkDir(args.Path, func(p string, d os.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if p == args.Path {
					return nil
				}
				rel, relErr := filepath.Rel(args.Path, p)
				if relErr != nil {
					return relErr
				}
				if strings.Count(rel, string(filepath.Separator))+1 > depth {
					if d.IsDir() {
						return filepath.SkipDir
					}
					return nil
				}
				entries = append(entries, dirEntryResult{Path: p, IsDir: d.IsDir()})
				return nil
			})
			if err != nil {
				return nil, vcserrors.Wrap(vcserrors.KindValidation, fmt.Sprintf("list_dir %s", args.Path), err)
			}
			sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
			return json.Marshal(entries)
		},
	})
}

type grepArgs struct {
	Pattern    string `json:"pattern"`
	Path       string `json:"path"`
	Regex      bool   `json:"regex"`
	MaxMatches int    `json:"max_matches"`
}

type grepMatch struct {
	Path   string `json:"path"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
	Text   string `json:"text"`
}

// RegisterGrepFiles adds the grep_files built-in: literal or regex search
// over files under Path (or the registry's working directory if omitted).
func RegisterGrepFiles(r *ToolRegistry) {
	r.Register(ToolHandler{
		Definition: ToolDefinition{
			Name:        "grep_files",
			Description: "Search files for a literal or regular-expression pattern.",
			Parameters:  json.RawMessage(grepSchema),
		},
		Kind:     ToolKindFunction,
		PathArgs: []string{"path"},
		Call: func(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
			var args grepArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, vcserrors.Wrap(vcserrors.KindValidation, "grep_files arguments", err)
			}
			root := args.Path
			if root == "" {
				root = r.WorkingDir
			}

			var matcher func(string) []int // returns [col] of each match start, or nil
			if args.Regex {
				re, err := regexp.Compile(args.Pattern)
				if err != nil {
					return nil, vcserrors.Wrap(vcserrors.KindValidation, "grep_files pattern", err)
				}
				matcher = func(line string) []int {
					idx := re.FindAllStringIndex(line, -1)
					cols := make([]int, 0, len(idx))
					for _, m := range idx {
						cols = append(cols, m[0])
					}
					return cols
				}
			} else {
				matcher = func(line string) []int {
					var cols []int
					for i := 0; i+len(args.Pattern) <= len(line); i++ {
						if line[i:i+len(args.Pattern)] == args.Pattern {
							cols = append(cols, i)
						}
					}
					return cols
				}
			}

			maxMatches := args.MaxMatches
			var matches []grepMatch

			err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if d.IsDir() || (maxMatches > 0 && len(matches) >= maxMatches) {
					return nil
				}
				f, openErr := os.Open(p)
				if openErr != nil {
					return nil // unreadable file, skip
				}
				defer f.Close()

				scanner := bufio.NewScanner(f)
				lineNo := 0
				for scanner.Scan() {
					lineNo++
					line := scanner.Text()
					for _, col := range matcher(line) {
						matches = append(matches, grepMatch{Path: p, Line: lineNo, Column: col, Text: line})
						if maxMatches > 0 && len(matches) >= maxMatches {
							break
						}
					}
					if maxMatches > 0 && len(matches) >= maxMatches {
						break
					}
				}
				return nil
			})
			if err != nil {
				return nil, vcserrors.Wrap(vcserrors.KindValidation, fmt.Sprintf("grep_files %s", root), err)
			}
			return json.Marshal(matches)
		},
	})
}
