package toolloop

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/libra-vcs/libra/internal/vcserrors"
)

// PatchOpKind discriminates one file operation within a patch.
type PatchOpKind string

const (
	PatchOpAdd    PatchOpKind = "add"
	PatchOpUpdate PatchOpKind = "update"
	PatchOpDelete PatchOpKind = "delete"
)

// Hunk is one `@@` section of an Update File block: the lines that must be
// found in the file (context + removed) and the lines that replace them
// (context + added), in their original relative order.
type Hunk struct {
	ContextHeader string
	SearchLines   []string
	ReplaceLines  []string
}

// PatchOp is one `*** Add/Update/Delete File` block.
type PatchOp struct {
	Kind     PatchOpKind
	Path     string
	NewPath  string // set when an Update block carries "*** Move to:"
	AddLines []string
	Hunks    []Hunk
}

// ParsePatch parses the "*** Begin Patch" envelope grammar: Add File,
// Update File (with optional Move to and one or more @@ hunks), and
// Delete File blocks, terminated by "*** End Patch".
func ParsePatch(text string) ([]PatchOp, error) {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "*** Begin Patch" {
		return nil, vcserrors.New(vcserrors.KindValidation, "patch must start with '*** Begin Patch'")
	}

	var ops []PatchOp
	i := 1
	for i < len(lines) {
		line := lines[i]
		switch {
		case strings.TrimSpace(line) == "*** End Patch":
			return ops, nil

		case strings.HasPrefix(line, "*** Add File: "):
			path := strings.TrimPrefix(line, "*** Add File: ")
			i++
			var add []string
			for i < len(lines) && !strings.HasPrefix(lines[i], "*** ") {
				if !strings.HasPrefix(lines[i], "+") {
					return nil, vcserrors.New(vcserrors.KindValidation, fmt.Sprintf("Add File %s: expected '+' prefixed line, got %q", path, lines[i]))
				}
				add = append(add, strings.TrimPrefix(lines[i], "+"))
				i++
			}
			ops = append(ops, PatchOp{Kind: PatchOpAdd, Path: path, AddLines: add})

		case strings.HasPrefix(line, "*** Delete File: "):
			path := strings.TrimPrefix(line, "*** Delete File: ")
			ops = append(ops, PatchOp{Kind: PatchOpDelete, Path: path})
			i++

		case strings.HasPrefix(line, "*** Update File: "):
			path := strings.TrimPrefix(line, "*** Update File: ")
			i++
			var newPath string
			if i < len(lines) && strings.HasPrefix(lines[i], "*** Move to: ") {
				newPath = strings.TrimPrefix(lines[i], "*** Move to: ")
				i++
			}
			var hunks []Hunk
			for i < len(lines) && strings.HasPrefix(lines[i], "@@") {
				header := strings.TrimSpace(strings.TrimPrefix(lines[i], "@@"))
				i++
				var search, replace []string
				for i < len(lines) && !strings.HasPrefix(lines[i], "*** ") && !strings.HasPrefix(lines[i], "@@") {
					diffLine := lines[i]
					if diffLine == "" {
						search = append(search, "")
						replace = append(replace, "")
						i++
						continue
					}
					switch diffLine[0] {
					case ' ':
						text := diffLine[1:]
						search = append(search, text)
						replace = append(replace, text)
					case '-':
						search = append(search, diffLine[1:])
					case '+':
						replace = append(replace, diffLine[1:])
					default:
						return nil, vcserrors.New(vcserrors.KindValidation, fmt.Sprintf("Update File %s: malformed diff line %q", path, diffLine))
					}
					i++
				}
				hunks = append(hunks, Hunk{ContextHeader: header, SearchLines: search, ReplaceLines: replace})
			}
			ops = append(ops, PatchOp{Kind: PatchOpUpdate, Path: path, NewPath: newPath, Hunks: hunks})

		default:
			return nil, vcserrors.New(vcserrors.KindValidation, fmt.Sprintf("unexpected patch line %q", line))
		}
	}
	return nil, vcserrors.New(vcserrors.KindValidation, "patch missing '*** End Patch'")
}

// FileDiff summarizes the effect of one patch operation on one file.
type FileDiff struct {
	Path         string `json:"path"`
	NewPath      string `json:"new_path,omitempty"`
	LinesAdded   int    `json:"lines_added"`
	LinesRemoved int    `json:"lines_removed"`
}

// ApplyResult is apply_patch's tool result.
type ApplyResult struct {
	AffectedPaths []string   `json:"affected_paths"`
	Diffs         []FileDiff `json:"diffs"`
}

type stagedFile struct {
	finalPath string
	content   []byte
	isDelete  bool
}

// resolvePath makes path absolute against workDir (if relative) and
// validates it lies under workDir.
func resolvePath(workDir, path string) (string, error) {
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(workDir, abs)
	}
	cleaned := filepath.Clean(abs)
	root := filepath.Clean(workDir)
	if cleaned != root && !strings.HasPrefix(cleaned, root+string(filepath.Separator)) {
		return "", vcserrors.PathOutsideWorkingDir(path)
	}
	return cleaned, nil
}

// ApplyPatch parses and applies patchText under workDir. Every operation
// is staged in memory first; only after every op (and every hunk within
// every Update op) succeeds are any files actually written, deleted, or
// renamed on disk; a partial failure writes nothing.
func ApplyPatch(workDir, patchText string) (ApplyResult, error) {
	ops, err := ParsePatch(patchText)
	if err != nil {
		return ApplyResult{}, err
	}

	var staged []stagedFile
	var diffs []FileDiff

	for opIndex, op := range ops {
		switch op.Kind {
		case PatchOpAdd:
			abs, err := resolvePath(workDir, op.Path)
			if err != nil {
				return ApplyResult{}, err
			}
			if _, statErr := os.Stat(abs); statErr == nil {
				return ApplyResult{}, vcserrors.New(vcserrors.KindValidation, fmt.Sprintf("Add File %s: already exists", op.Path))
			}
			content := []byte(strings.Join(op.AddLines, "\n"))
			if len(op.AddLines) > 0 {
				content = append(content, '\n')
			}
			staged = append(staged, stagedFile{finalPath: abs, content: content})
			diffs = append(diffs, FileDiff{Path: op.Path, LinesAdded: len(op.AddLines)})

		case PatchOpDelete:
			abs, err := resolvePath(workDir, op.Path)
			if err != nil {
				return ApplyResult{}, err
			}
			existing, readErr := os.ReadFile(abs)
			if readErr != nil {
				return ApplyResult{}, vcserrors.Wrap(vcserrors.KindValidation, fmt.Sprintf("Delete File %s: does not exist", op.Path), readErr)
			}
			staged = append(staged, stagedFile{finalPath: abs, isDelete: true})
			diffs = append(diffs, FileDiff{Path: op.Path, LinesRemoved: len(strings.Split(string(existing), "\n"))})

		case PatchOpUpdate:
			abs, err := resolvePath(workDir, op.Path)
			if err != nil {
				return ApplyResult{}, err
			}
			original, readErr := os.ReadFile(abs)
			if readErr != nil {
				return ApplyResult{}, vcserrors.Wrap(vcserrors.KindValidation, fmt.Sprintf("Update File %s: cannot read", op.Path), readErr)
			}
			fileLines := strings.Split(string(original), "\n")

			added, removed := 0, 0
			for hunkIdx, hunk := range op.Hunks {
				start, _ := seekSequence(fileLines, hunk.SearchLines)
				if start < 0 {
					return ApplyResult{}, vcserrors.HunkNotFound(op.Path, hunkIdx)
				}
				fileLines = append(fileLines[:start], append(append([]string{}, hunk.ReplaceLines...), fileLines[start+len(hunk.SearchLines):]...)...)
				added += len(hunk.ReplaceLines)
				removed += len(hunk.SearchLines)
			}

			finalAbs := abs
			if op.NewPath != "" {
				finalAbs, err = resolvePath(workDir, op.NewPath)
				if err != nil {
					return ApplyResult{}, err
				}
			}

			content := []byte(strings.Join(fileLines, "\n"))
			staged = append(staged, stagedFile{finalPath: finalAbs, content: content})
			if finalAbs != abs {
				staged = append(staged, stagedFile{finalPath: abs, isDelete: true})
			}
			diffs = append(diffs, FileDiff{Path: op.Path, NewPath: op.NewPath, LinesAdded: added, LinesRemoved: removed})

		default:
			return ApplyResult{}, vcserrors.New(vcserrors.KindValidation, fmt.Sprintf("patch op %d: unknown kind %q", opIndex, op.Kind))
		}
	}

	affected := make([]string, 0, len(staged))
	for _, sf := range staged {
		if sf.isDelete {
			if err := os.Remove(sf.finalPath); err != nil && !os.IsNotExist(err) {
				return ApplyResult{}, vcserrors.Wrap(vcserrors.KindValidation, fmt.Sprintf("removing %s", sf.finalPath), err)
			}
		} else {
			if err := os.MkdirAll(filepath.Dir(sf.finalPath), 0o755); err != nil {
				return ApplyResult{}, vcserrors.Wrap(vcserrors.KindValidation, fmt.Sprintf("creating directory for %s", sf.finalPath), err)
			}
			if err := os.WriteFile(sf.finalPath, sf.content, 0o644); err != nil {
				return ApplyResult{}, vcserrors.Wrap(vcserrors.KindValidation, fmt.Sprintf("writing %s", sf.finalPath), err)
			}
		}
		affected = append(affected, sf.finalPath)
	}

	return ApplyResult{AffectedPaths: affected, Diffs: diffs}, nil
}

const applyPatchSchema = `{"type":"object","properties":{"patch":{"type":"string"}},"required":["patch"]}`

type applyPatchArgs struct {
	Patch string `json:"patch"`
}

// RegisterApplyPatch adds the apply_patch built-in. Sandboxing happens
// inside ApplyPatch itself (via resolvePath) rather than through the
// registry's generic PathArgs check, since the tool's only JSON field is
// the multi-line patch text, not a path.
func RegisterApplyPatch(r *ToolRegistry) {
	r.Register(ToolHandler{
		Definition: ToolDefinition{
			Name:        "apply_patch",
			Description: "Apply a patch (Add/Update/Delete/Move File blocks) to files in the sandbox.",
			Parameters:  json.RawMessage(applyPatchSchema),
		},
		Kind: ToolKindFunction,
		Call: func(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
			var args applyPatchArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, vcserrors.Wrap(vcserrors.KindValidation, "apply_patch arguments", err)
			}
			result, err := ApplyPatch(r.WorkingDir, args.Patch)
			if err != nil {
				return nil, err
			}
			return json.Marshal(result)
		},
	})
}
