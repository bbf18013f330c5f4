package porcelain

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/libra-vcs/libra/internal/constants"
	"github.com/libra-vcs/libra/internal/objstore"
	"github.com/libra-vcs/libra/internal/refdb"
)

// Repository wires together the object store, the reference database and
// the hash kind chosen at init time: a single struct owning its storage
// handles rather than reaching for process-wide state.
type Repository struct {
	Store      objstore.Store
	DB         *refdb.DB
	HashKind   objstore.HashKind
	WorkDir    string
	StorageDir string
}

// storageLayout returns the .libra directory's internal paths.
func storageLayout(storageDir string) (objectsDir, dbPath, headPath string) {
	return filepath.Join(storageDir, constants.ObjectsDirName),
		filepath.Join(storageDir, constants.LibraDBFileName),
		filepath.Join(storageDir, constants.HeadFileName)
}

// Init creates a new repository rooted at workDir: a .libra storage
// directory with an empty object store, an opened reference database, and
// HEAD symbolically pointing at the default branch (no commit yet).
func Init(workDir string, hashKind objstore.HashKind) (*Repository, error) {
	storageDir := filepath.Join(workDir, constants.DefaultStorageDirName)
	objectsDir, dbPath, _ := storageLayout(storageDir)

	store, err := objstore.NewFileStore(objectsDir)
	if err != nil {
		return nil, fmt.Errorf("init object store: %w", err)
	}

	db, err := refdb.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("init reference database: %w", err)
	}

	head := refdb.Head{Symbolic: true, Branch: constants.DefaultBranch}
	if err := refdb.HeadUpdate(db, head, nil); err != nil {
		db.Close()
		return nil, fmt.Errorf("set initial HEAD: %w", err)
	}

	return &Repository{Store: store, DB: db, HashKind: hashKind, WorkDir: workDir, StorageDir: storageDir}, nil
}

// Open reopens an existing repository rooted at workDir. hashKind must
// match the one the repository was Init'd with — libra doesn't persist it
// itself; that is left to the caller/config layer.
func Open(workDir string, hashKind objstore.HashKind) (*Repository, error) {
	storageDir := filepath.Join(workDir, constants.DefaultStorageDirName)
	objectsDir, dbPath, _ := storageLayout(storageDir)

	if _, err := os.Stat(storageDir); err != nil {
		return nil, fmt.Errorf("open repository at %s: %w", workDir, err)
	}

	store, err := objstore.NewFileStore(objectsDir)
	if err != nil {
		return nil, fmt.Errorf("open object store: %w", err)
	}

	db, err := refdb.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open reference database: %w", err)
	}

	return &Repository{Store: store, DB: db, HashKind: hashKind, WorkDir: workDir, StorageDir: storageDir}, nil
}

// Close releases the reference database handle.
func (r *Repository) Close() error {
	return r.DB.Close()
}
