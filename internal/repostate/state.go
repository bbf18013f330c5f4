// Package repostate tracks per-repository on-disk metadata the reference
// database doesn't own: which storage directory backs which working tree,
// and the last-known remote sync status shown by the porcelain layer.
// State lives in a single YAML file guarded by a read-write mutex.
package repostate

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultStateFile = "repos.yaml"

// Manager handles the repostate file.
type Manager struct {
	stateFile string
	mu        sync.RWMutex
}

// State is the entire state file: one Repository entry per working tree
// this host has initialized or cloned.
type State struct {
	Repositories map[string]*Repository `yaml:"repositories"`
}

// Repository is a single working tree's bookkeeping.
type Repository struct {
	WorkDir    string    `yaml:"work_dir"`
	StorageDir string    `yaml:"storage_dir"`
	HashKind   string    `yaml:"hash_kind"`
	Created    time.Time `yaml:"created"`
	Remote     *Remote   `yaml:"remote,omitempty"`
}

// Remote is the last-observed sync status against a configured remote,
// recorded by `libra clone` and updated through UpdateRemoteStatus.
type Remote struct {
	Name       string    `yaml:"name"`
	URL        string    `yaml:"url"`
	SyncStatus string    `yaml:"sync_status"` // "synced", "ahead", "behind", "diverged", "unknown"
	LastSync   time.Time `yaml:"last_sync,omitempty"`
	LastError  string    `yaml:"last_error,omitempty"`
}

// NewManager creates a state manager rooted at stateDir (typically the
// user's libra home, not a single repository's storage directory — one
// repos.yaml tracks every repository this host knows about).
func NewManager(stateDir string) (*Manager, error) {
	if stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		stateDir = filepath.Join(home, ".libra")
	}

	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	return &Manager{stateFile: filepath.Join(stateDir, defaultStateFile)}, nil
}

// Load loads the state from file, returning an empty state if none exists yet.
func (m *Manager) Load() (*State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, err := os.Stat(m.stateFile); os.IsNotExist(err) {
		return &State{Repositories: make(map[string]*Repository)}, nil
	}

	data, err := os.ReadFile(m.stateFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var state State
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	if state.Repositories == nil {
		state.Repositories = make(map[string]*Repository)
	}
	return &state, nil
}

// Save persists state to file.
func (m *Manager) Save(state *State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	return os.WriteFile(m.stateFile, data, 0o644)
}

// Put registers or updates a repository's bookkeeping, keyed by its
// working-directory path.
func (m *Manager) Put(workDir string, repo *Repository) error {
	state, err := m.Load()
	if err != nil {
		return err
	}
	state.Repositories[workDir] = repo
	return m.Save(state)
}

// Get retrieves a repository's bookkeeping.
func (m *Manager) Get(workDir string) (*Repository, error) {
	state, err := m.Load()
	if err != nil {
		return nil, err
	}
	repo, ok := state.Repositories[workDir]
	if !ok {
		return nil, fmt.Errorf("repository %s not tracked in state", workDir)
	}
	return repo, nil
}

// List returns every tracked repository.
func (m *Manager) List() (map[string]*Repository, error) {
	state, err := m.Load()
	if err != nil {
		return nil, err
	}
	return state.Repositories, nil
}

// Delete removes a repository's bookkeeping.
func (m *Manager) Delete(workDir string) error {
	state, err := m.Load()
	if err != nil {
		return err
	}
	delete(state.Repositories, workDir)
	return m.Save(state)
}

// UpdateRemoteStatus records the outcome of the most recent remote
// interaction (fetch/pull/push) driven by the porcelain layer.
func (m *Manager) UpdateRemoteStatus(workDir, syncStatus, lastError string) error {
	state, err := m.Load()
	if err != nil {
		return err
	}
	repo, ok := state.Repositories[workDir]
	if !ok {
		return fmt.Errorf("repository %s not tracked in state", workDir)
	}
	if repo.Remote == nil {
		repo.Remote = &Remote{}
	}
	repo.Remote.SyncStatus = syncStatus
	repo.Remote.LastSync = time.Now()
	repo.Remote.LastError = lastError
	return m.Save(state)
}
