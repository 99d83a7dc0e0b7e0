package paradigm

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// ErrParadigmNotFound is returned when an identifier has no registered
// specification.
var ErrParadigmNotFound = errors.New("paradigm not found")

// manifestFile is the optional annotation-to-path mapping resolved per
// the Open Question decision recorded in DESIGN.md: short annotations
// like "{%(composition)}" map to a long paradigm identifier file.
type manifestFile struct {
	Paradigms map[string]string `yaml:"paradigms"`
}

// Registry loads paradigm JSON specifications from a directory and
// serves them by identifier. Once Watch is started, it reloads the specs
// when the directory changes on disk.
type Registry struct {
	mu        sync.RWMutex
	dir       string
	specs     map[string]*Spec
	shortcuts map[string]string
	watcher   *fsnotify.Watcher
}

// NewRegistry loads every *.json paradigm spec file under dir and, if
// present, registry.yaml mapping short annotations to identifiers.
func NewRegistry(dir string) (*Registry, error) {
	r := &Registry{dir: dir}
	if err := r.reload(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) reload() error {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("paradigm registry: reading %q: %w", r.dir, err)
	}

	specs := make(map[string]*Spec)
	shortcuts := make(map[string]string)

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(r.dir, e.Name())
		switch filepath.Ext(e.Name()) {
		case ".json":
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("paradigm registry: reading %q: %w", path, err)
			}
			var spec Spec
			if err := json.Unmarshal(data, &spec); err != nil {
				return fmt.Errorf("paradigm registry: parsing %q: %w", path, err)
			}
			if spec.ParadigmID == "" {
				return fmt.Errorf("paradigm registry: %q missing paradigm_id", path)
			}
			specs[spec.ParadigmID] = &spec
		case ".yaml", ".yml":
			if e.Name() != "registry.yaml" && e.Name() != "registry.yml" {
				continue
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("paradigm registry: reading %q: %w", path, err)
			}
			var manifest manifestFile
			if err := yaml.Unmarshal(data, &manifest); err != nil {
				return fmt.Errorf("paradigm registry: parsing %q: %w", path, err)
			}
			for shortcut, id := range manifest.Paradigms {
				shortcuts[shortcut] = id
			}
		}
	}

	r.mu.Lock()
	r.specs = specs
	r.shortcuts = shortcuts
	r.mu.Unlock()
	return nil
}

// Resolve returns the specification for identifier, following the
// registry.yaml shortcut mapping first if identifier names a short
// annotation.
func (r *Registry) Resolve(identifier string) (*Spec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if long, ok := r.shortcuts[identifier]; ok {
		identifier = long
	}
	spec, ok := r.specs[identifier]
	if !ok {
		return nil, fmt.Errorf("paradigm %q: %w", identifier, ErrParadigmNotFound)
	}
	return spec, nil
}

// Signature returns a stable hash of every loaded paradigm's identifier
// and content, used as part of a checkpoint's environment signature
// (§4.10) so OVERWRITE reconciliation can detect a registry that has
// drifted since the snapshot was taken.
func (r *Registry) Signature() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.specs))
	for id := range r.specs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	h := sha256.New()
	for _, id := range ids {
		raw, _ := json.Marshal(r.specs[id])
		h.Write([]byte(id))
		h.Write(raw)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Watch starts an fsnotify watch on the registry directory, reloading
// the cache on any write/create/remove/rename event. The returned
// function stops the watch. Errors encountered during a background
// reload are logged, not returned, since Watch runs detached from the
// caller's error path.
func (r *Registry) Watch() (stop func(), err error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("paradigm registry: starting watcher: %w", err)
	}
	if err := w.Add(r.dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("paradigm registry: watching %q: %w", r.dir, err)
	}
	r.watcher = w

	done := make(chan struct{})
	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
					if err := r.reload(); err != nil {
						slog.Error("paradigm registry reload failed", "error", err)
					}
				}
			case werr, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Error("paradigm registry watch error", "error", werr)
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		w.Close()
	}, nil
}
