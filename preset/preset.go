// Package preset provides file-backed preset store. Every preset set is
// kept in its own YAML file under directory of the chain:
//
//	<dir>/<chain>/<preset>.yaml
package preset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pipelined/rack"
)

const ext = ".yaml"

// ErrInvalidName is returned when chain or preset name can't be used as
// file name.
var ErrInvalidName = errors.New("invalid name")

// FileStore keeps preset sets in YAML files.
type FileStore struct {
	dir string
}

var _ rack.PresetStore = (*FileStore)(nil)

// NewFileStore returns store in provided directory. Directory is created
// on first save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Dir returns root directory of the store.
func (s *FileStore) Dir() string {
	return s.dir
}

// Load reads preset set of the chain. Error matches rack.ErrNotFound if
// file doesn't exist.
func (s *FileStore) Load(chain, preset string) (rack.PresetSet, error) {
	path, err := s.path(chain, preset)
	if err != nil {
		return rack.PresetSet{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return rack.PresetSet{}, fmt.Errorf("preset %q of chain %q: %w", preset, chain, rack.ErrNotFound)
		}
		return rack.PresetSet{}, err
	}
	var set rack.PresetSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return rack.PresetSet{}, fmt.Errorf("decode %s: %w", path, err)
	}
	// file name is the identity of preset
	set.Name = preset
	if set.Units == nil {
		set.Units = make(map[string]map[string]float64)
	}
	return set, nil
}

// Save writes preset set of the chain. Existing file is replaced.
func (s *FileStore) Save(chain string, set rack.PresetSet) error {
	path, err := s.path(chain, set.Name)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(set)
	if err != nil {
		return fmt.Errorf("encode preset %q: %w", set.Name, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	// write to temporary file first, so interrupted save doesn't
	// corrupt existing preset
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// List returns sorted names of chain presets.
func (s *FileStore) List(chain string) ([]string, error) {
	if err := validName(chain); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(s.dir, chain))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ext {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ext))
	}
	sort.Strings(names)
	return names, nil
}

func (s *FileStore) path(chain, preset string) (string, error) {
	if err := validName(chain); err != nil {
		return "", err
	}
	if err := validName(preset); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, chain, preset+ext), nil
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
