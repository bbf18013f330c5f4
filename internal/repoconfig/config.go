// Package repoconfig is the typed accessor in front of the reference
// database's config table: try the live source first, fall back to a
// local cache, covering the libra.db config table and the remote
// object-storage credentials.
package repoconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/libra-vcs/libra/internal/refdb"
)

const (
	defaultCacheTTL = 24 * time.Hour
	configCacheFile = "config-cache.json"
)

// Manager loads repository configuration from the reference database's
// config table, caching the last-known-good snapshot so a locked or
// momentarily unavailable database doesn't block read-mostly callers
// (status display, storage threshold lookups) that can tolerate staleness.
type Manager struct {
	db       *refdb.DB
	cacheDir string
	cacheTTL time.Duration
}

// Snapshot is the cached subset of config: remote URLs and the storage
// threshold, the values read most often outside a ref-mutating operation.
type Snapshot struct {
	Remotes   map[string][]string `json:"remotes"`
	Threshold int64               `json:"threshold_bytes"`
}

type cachedSnapshot struct {
	Snapshot  Snapshot  `json:"snapshot"`
	FetchedAt time.Time `json:"fetched_at"`
}

// NewManager creates a config manager backed by db, caching to cacheDir
// (typically "<storage>/").
func NewManager(db *refdb.DB, cacheDir string) (*Manager, error) {
	if cacheDir == "" {
		return nil, fmt.Errorf("repoconfig: cacheDir is required")
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("create config cache dir: %w", err)
	}
	return &Manager{db: db, cacheDir: cacheDir, cacheTTL: defaultCacheTTL}, nil
}

// GetSnapshot reads the live config table when db is available, caching
// the result; falls back to the last cached snapshot on failure, reporting
// whether the returned snapshot came from cache.
func (m *Manager) GetSnapshot() (Snapshot, bool, error) {
	if m.db != nil {
		snap, err := m.loadLive()
		if err == nil {
			_ = m.cacheSnapshot(snap)
			return snap, false, nil
		}
	}

	cached, err := m.loadCache()
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("config table unavailable and no valid cache: %w", err)
	}

	age := time.Since(cached.FetchedAt)
	if age > m.cacheTTL {
		return cached.Snapshot, true, fmt.Errorf("cached config is stale (%s old, TTL is %s)", age, m.cacheTTL)
	}
	return cached.Snapshot, true, nil
}

func (m *Manager) loadLive() (Snapshot, error) {
	remotes := map[string][]string{}
	rows, err := m.db.Query(`SELECT name, value FROM config WHERE configuration = 'remote' AND key = 'url' AND name IS NOT NULL`)
	if err != nil {
		return Snapshot{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var name, url string
		if err := rows.Scan(&name, &url); err != nil {
			return Snapshot{}, err
		}
		remotes[name] = append(remotes[name], url)
	}
	thresholdStr, ok, err := refdb.ConfigGet(m.db, "libra", nil, "storage.threshold")
	if err != nil {
		return Snapshot{}, err
	}
	var threshold int64
	if ok {
		fmt.Sscanf(thresholdStr, "%d", &threshold)
	}
	return Snapshot{
		Remotes:   remotes,
		Threshold: threshold,
	}, nil
}

func (m *Manager) cacheSnapshot(snap Snapshot) error {
	cached := cachedSnapshot{Snapshot: snap, FetchedAt: time.Now()}
	data, err := json.MarshalIndent(cached, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config cache: %w", err)
	}
	return os.WriteFile(filepath.Join(m.cacheDir, configCacheFile), data, 0o644)
}

func (m *Manager) loadCache() (cachedSnapshot, error) {
	data, err := os.ReadFile(filepath.Join(m.cacheDir, configCacheFile))
	if err != nil {
		return cachedSnapshot{}, fmt.Errorf("read config cache: %w", err)
	}
	var cached cachedSnapshot
	if err := json.Unmarshal(data, &cached); err != nil {
		return cachedSnapshot{}, fmt.Errorf("unmarshal config cache: %w", err)
	}
	return cached, nil
}

// CacheAge reports how old the cached snapshot is, or 0 if there is none.
func (m *Manager) CacheAge() time.Duration {
	cached, err := m.loadCache()
	if err != nil {
		return 0
	}
	return time.Since(cached.FetchedAt)
}
