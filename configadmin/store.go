package configadmin

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Snapshot is a Record's persisted form. Property values are flattened to
// strings: the store only needs to survive a restart of this process, and
// every Value already round-trips through AsString for filter matching,
// so a typed on-disk representation would buy nothing a human editing the
// YAML file wouldn't immediately break anyway.
type Snapshot struct {
	PID        string            `yaml:"pid"`
	FactoryPID string            `yaml:"factory_pid,omitempty"`
	Location   string            `yaml:"location,omitempty"`
	Properties map[string]string `yaml:"properties"`
}

// Store persists configuration Records across restarts, standing in for
// ctkConfigurationStore.
type Store interface {
	// Load returns every previously persisted Snapshot, keyed by PID.
	Load() (map[string]Snapshot, error)
	// Save persists snap under pid, creating or overwriting its file.
	Save(pid string, snap Snapshot) error
	// Delete removes any persisted state for pid. Deleting an
	// already-absent pid is not an error.
	Delete(pid string) error
}

// NopStore is a Store that persists nothing, for embedders that only
// need in-process configuration (e.g. tests, or a framework instance
// that is deliberately stateless across restarts).
type NopStore struct{}

func (NopStore) Load() (map[string]Snapshot, error)    { return map[string]Snapshot{}, nil }
func (NopStore) Save(string, Snapshot) error            { return nil }
func (NopStore) Delete(string) error                    { return nil }

// FileStore persists one YAML file per PID under a directory, grounded on
// ctkConfigurationStore's one-file-per-PID "<pid>.pid" layout (store/
// directory, PID_EXT suffix) adapted to YAML instead of QDataStream.
type FileStore struct {
	dir    string
	logger *slog.Logger
	mu     sync.Mutex
}

// NewFileStore creates a FileStore rooted at dir, creating dir if it does
// not already exist.
func NewFileStore(dir string, logger *slog.Logger) (*FileStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir, logger: logger}, nil
}

const pidFileExt = ".yaml"

func (s *FileStore) path(pid string) string {
	return filepath.Join(s.dir, sanitizePID(pid)+pidFileExt)
}

// sanitizePID keeps a PID's path-unsafe characters (notably "/" and the
// platform path separator) out of the filename.
func sanitizePID(pid string) string {
	return strings.NewReplacer("/", "_", string(os.PathSeparator), "_").Replace(pid)
}

// Load scans the store directory for persisted PID files. A file that
// fails to parse is logged and removed rather than aborting the whole
// load, matching ctkConfigurationStore's constructor, which deletes and
// skips any corrupt "*.pid" file it finds.
func (s *FileStore) Load() (map[string]Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	out := make(map[string]Snapshot)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), pidFileExt) {
			continue
		}
		full := filepath.Join(s.dir, entry.Name())
		data, err := os.ReadFile(full)
		if err != nil {
			s.logger.Warn("configadmin: failed to read configuration file, removing", "file", full, "error", err)
			_ = os.Remove(full)
			continue
		}
		var snap Snapshot
		if err := yaml.Unmarshal(data, &snap); err != nil || snap.PID == "" {
			s.logger.Warn("configadmin: corrupt configuration file, removing", "file", full, "error", err)
			_ = os.Remove(full)
			continue
		}
		out[snap.PID] = snap
	}
	return out, nil
}

// Save writes snap to its PID's file, overwriting any previous contents.
func (s *FileStore) Save(pid string, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := yaml.Marshal(snap)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path(pid), data, 0o644)
}

// Delete removes pid's persisted file, if any.
func (s *FileStore) Delete(pid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(pid))
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}
