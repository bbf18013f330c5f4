package main

import (
	"fmt"
	"os"

	"github.com/libra-vcs/libra/internal/objstore"
	"github.com/libra-vcs/libra/internal/porcelain"
	"github.com/libra-vcs/libra/internal/repostate"
	"github.com/libra-vcs/libra/internal/ui"
)

// newOutput builds a ui.Output honoring the global format/no-color flags.
func newOutput() *ui.Output {
	out := ui.NewOutput(os.Stdout)
	if format != "" {
		out.SetFormat(ui.OutputFormat(format))
	}
	if noColor {
		out.SetColorEnabled(false)
	}
	return out
}

// hashKindFromString parses the repostate-persisted hash kind label.
func hashKindFromString(s string) (objstore.HashKind, error) {
	switch s {
	case "", "sha1":
		return objstore.HashSHA1, nil
	case "sha256":
		return objstore.HashSHA256, nil
	default:
		return 0, fmt.Errorf("unknown hash kind %q", s)
	}
}

func hashKindString(k objstore.HashKind) string {
	if k == objstore.HashSHA256 {
		return "sha256"
	}
	return "sha1"
}

// openRepository opens the repository rooted at the current working
// directory, looking up its hash kind from the host-wide repostate
// tracking file (populated by `libra init`/`libra clone`).
func openRepository() (*porcelain.Repository, error) {
	workDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}

	stateMgr, err := repostate.NewManager("")
	if err != nil {
		return nil, fmt.Errorf("open repository state: %w", err)
	}
	entry, err := stateMgr.Get(workDir)
	if err != nil {
		return nil, fmt.Errorf("%s is not a libra repository: %w", workDir, err)
	}

	hashKind, err := hashKindFromString(entry.HashKind)
	if err != nil {
		return nil, err
	}

	return porcelain.Open(workDir, hashKind)
}

// defaultActor builds an Actor from the LIBRA_AUTHOR_NAME/LIBRA_AUTHOR_EMAIL
// environment variables, falling back to placeholders a real deployment
// would instead source from repoconfig.
func defaultActor() porcelain.Actor {
	name := os.Getenv("LIBRA_AUTHOR_NAME")
	if name == "" {
		name = "libra"
	}
	email := os.Getenv("LIBRA_AUTHOR_EMAIL")
	if email == "" {
		email = "libra@localhost"
	}
	return porcelain.Actor{Name: name, Email: email}
}
