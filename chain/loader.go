package chain

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ErrNotFound is returned by loaders for unknown chain names.
var ErrNotFound = errors.New("chain not found")

// Loader loads chain definitions by name.
type Loader interface {
	Load(name string) (*Definition, error)
}

// Lister is implemented by loaders that can enumerate their chains.
type Lister interface {
	List() ([]string, error)
}

// FileLoader loads definitions from YAML files on disk.
type FileLoader struct {
	dirs []string
}

// NewFileLoader creates a loader that searches dirs, including their
// subdirectories, for {name}.yaml and {name}.yml.
func NewFileLoader(dirs ...string) *FileLoader {
	return &FileLoader{dirs: dirs}
}

// Load searches for a definition file by name. A file found by name must
// also declare that name. A directory that cannot be read fails the load
// instead of hiding the definition.
func (l *FileLoader) Load(name string) (*Definition, error) {
	for _, dir := range l.dirs {
		var found string
		err := walkDefinitions(dir, func(path, base string) bool {
			if base == name {
				found = path
				return false
			}
			return true
		})
		if err != nil {
			return nil, fmt.Errorf("chain: searching %s: %w", dir, err)
		}
		if found == "" {
			continue
		}
		def, err := LoadFile(found)
		if err != nil {
			return nil, err
		}
		if def.Name == "" {
			def.Name = name
		}
		if def.Name != name {
			return nil, fmt.Errorf("chain: %s declares name %q, expected %q", found, def.Name, name)
		}
		return def, nil
	}
	return nil, fmt.Errorf("%w: %q in %v", ErrNotFound, name, l.dirs)
}

// List returns the sorted names of every definition file in the loader's
// directories.
func (l *FileLoader) List() ([]string, error) {
	seen := map[string]bool{}
	for _, dir := range l.dirs {
		err := walkDefinitions(dir, func(_, name string) bool {
			seen[name] = true
			return true
		})
		if err != nil {
			return nil, fmt.Errorf("chain: listing %s: %w", dir, err)
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// walkDefinitions calls fn with the path and chain name of every definition
// file below dir until fn returns false. A missing dir is empty.
func walkDefinitions(dir string, fn func(path, name string) bool) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		if name, ok := definitionName(path); ok && !fn(path, name) {
			return fs.SkipAll
		}
		return nil
	})
}

func definitionName(path string) (string, bool) {
	base := filepath.Base(path)
	for _, ext := range []string{".yaml", ".yml"} {
		if name, ok := strings.CutSuffix(base, ext); ok && name != "" {
			return name, true
		}
	}
	return "", false
}

// LoadFile reads and parses a single definition file.
func LoadFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("chain: reading %s: %w", path, err)
	}
	def, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("chain: %s: %w", path, err)
	}
	return def, nil
}

// MapLoader serves definitions from memory. It is safe for concurrent use.
type MapLoader struct {
	mu   sync.RWMutex
	defs map[string]*Definition
}

// NewMapLoader creates a loader holding defs, keyed by their names.
func NewMapLoader(defs ...*Definition) *MapLoader {
	l := &MapLoader{defs: make(map[string]*Definition, len(defs))}
	for _, d := range defs {
		l.Add(d)
	}
	return l
}

// Add stores def under its name.
func (l *MapLoader) Add(def *Definition) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.defs[def.Name] = def
}

// Load implements Loader.
func (l *MapLoader) Load(name string) (*Definition, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	def, ok := l.defs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return def, nil
}

// List implements Lister.
func (l *MapLoader) List() ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.defs))
	for name := range l.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
