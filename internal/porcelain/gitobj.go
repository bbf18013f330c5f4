// Package porcelain is the minimal, testable driver around the core:
// Init/Commit/Checkout/Switch/Clone/Remote/Log. It carries no
// argument-parsing surface of its own — cmd/libra is the only caller —
// and reproduces none of git's porcelain option matrix, just enough
// semantics to exercise the core end-to-end.
//
// gitobj.go encodes the Commit/Tree/Blob shapes on top of the raw
// (hash, payload, kind) triples the object store holds. Trees use a
// readable "<mode> <id> <name>" line format (distinct from real git's
// binary tree entries); ids are computed as H(kind, payload) over the
// bytes actually stored.
package porcelain

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/libra-vcs/libra/internal/objstore"
	"github.com/libra-vcs/libra/internal/vcserrors"
)

// Mode is a tree entry's file mode.
type Mode string

const (
	ModeFile       Mode = "file"
	ModeExecutable Mode = "executable"
	ModeSymlink    Mode = "symlink"
	ModeTree       Mode = "tree"
	ModeSubmodule  Mode = "submodule"
)

// TreeEntry is one (mode, name, id) triple of a Tree object.
type TreeEntry struct {
	Mode Mode
	Name string
	ID   objstore.ID
}

// EncodeTree serializes entries sorted by name, one "<mode> <id> <name>\n"
// line per entry, sorted by name.
func EncodeTree(entries []TreeEntry) []byte {
	sorted := append([]TreeEntry{}, entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var buf bytes.Buffer
	for _, e := range sorted {
		fmt.Fprintf(&buf, "%s %s %s\n", e.Mode, e.ID, e.Name)
	}
	return buf.Bytes()
}

// DecodeTree reverses EncodeTree.
func DecodeTree(payload []byte) ([]TreeEntry, error) {
	var entries []TreeEntry
	for _, line := range strings.Split(strings.TrimRight(string(payload), "\n"), "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, " ", 3)
		if len(parts) != 3 {
			return nil, vcserrors.New(vcserrors.KindCorruptObject, fmt.Sprintf("malformed tree line %q", line))
		}
		entries = append(entries, TreeEntry{Mode: Mode(parts[0]), ID: objstore.ID(parts[1]), Name: parts[2]})
	}
	return entries, nil
}

// Actor is a commit's author or committer.
type Actor struct {
	Name  string
	Email string
	When  time.Time
}

func (a Actor) encode() string {
	return fmt.Sprintf("%s <%s> %d", a.Name, a.Email, a.When.Unix())
}

func decodeActor(s string) (Actor, error) {
	open := strings.LastIndex(s, "<")
	close := strings.LastIndex(s, ">")
	if open < 0 || close < open {
		return Actor{}, vcserrors.New(vcserrors.KindCorruptObject, fmt.Sprintf("malformed actor line %q", s))
	}
	name := strings.TrimSpace(s[:open])
	email := s[open+1 : close]
	rest := strings.TrimSpace(s[close+1:])
	unix, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return Actor{}, vcserrors.Wrap(vcserrors.KindCorruptObject, fmt.Sprintf("malformed actor timestamp %q", rest), err)
	}
	return Actor{Name: name, Email: email, When: time.Unix(unix, 0).UTC()}, nil
}

// Commit is a parsed Commit object: one tree, N parents,
// author/committer actors, and a message that MAY embed a single gpgsig
// block terminated by a blank line.
type Commit struct {
	Tree      objstore.ID
	Parents   []objstore.ID
	Author    Actor
	Committer Actor
	Message   string
	GpgSig    string
}

// EncodeCommit serializes a Commit the way Git frames one: a header block
// (tree, zero or more parent lines, author, committer, optionally gpgsig)
// followed by a blank line and the free-text message.
func EncodeCommit(c Commit) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "tree %s\n", c.Tree)
	for _, p := range c.Parents {
		fmt.Fprintf(&buf, "parent %s\n", p)
	}
	fmt.Fprintf(&buf, "author %s\n", c.Author.encode())
	fmt.Fprintf(&buf, "committer %s\n", c.Committer.encode())
	if c.GpgSig != "" {
		buf.WriteString("gpgsig ")
		buf.WriteString(strings.ReplaceAll(c.GpgSig, "\n", "\n "))
		buf.WriteString("\n")
	}
	buf.WriteString("\n")
	buf.WriteString(c.Message)
	return buf.Bytes()
}

// DecodeCommit reverses EncodeCommit.
func DecodeCommit(payload []byte) (Commit, error) {
	text := string(payload)
	headerEnd := strings.Index(text, "\n\n")
	if headerEnd < 0 {
		return Commit{}, vcserrors.New(vcserrors.KindCorruptObject, "malformed commit: missing header/body separator")
	}
	header, body := text[:headerEnd], text[headerEnd+2:]

	var c Commit
	c.Message = body
	lines := strings.Split(header, "\n")
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		switch {
		case strings.HasPrefix(line, "tree "):
			c.Tree = objstore.ID(strings.TrimPrefix(line, "tree "))
		case strings.HasPrefix(line, "parent "):
			c.Parents = append(c.Parents, objstore.ID(strings.TrimPrefix(line, "parent ")))
		case strings.HasPrefix(line, "author "):
			a, err := decodeActor(strings.TrimPrefix(line, "author "))
			if err != nil {
				return Commit{}, err
			}
			c.Author = a
		case strings.HasPrefix(line, "committer "):
			a, err := decodeActor(strings.TrimPrefix(line, "committer "))
			if err != nil {
				return Commit{}, err
			}
			c.Committer = a
		case strings.HasPrefix(line, "gpgsig "):
			var sigLines []string
			sigLines = append(sigLines, strings.TrimPrefix(line, "gpgsig "))
			for i+1 < len(lines) && strings.HasPrefix(lines[i+1], " ") {
				i++
				sigLines = append(sigLines, strings.TrimPrefix(lines[i], " "))
			}
			c.GpgSig = strings.Join(sigLines, "\n")
		}
	}
	if c.Tree == "" {
		return Commit{}, vcserrors.New(vcserrors.KindCorruptObject, "malformed commit: missing tree")
	}
	return c, nil
}

// zeroHash is the all-zero oid used as reflog's old_oid on the first
// commit of a branch (no prior commit exists).
func zeroHash(kind objstore.HashKind) string {
	return strings.Repeat("0", kind.HexLen())
}
