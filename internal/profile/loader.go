// Package profile reads and writes settings profiles as standalone YAML or
// TOML files, used to move profiles between machines and the database.
package profile

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/tturner/smiteclick/internal/settings"
)

// DefaultProfilesDir is the default directory for profile files.
const DefaultProfilesDir = "profiles"

// Extensions recognized as profile files.
var Extensions = []string{".yaml", ".yml", ".toml"}

var ErrNoName = errors.New("profile has no name")

// File is the on-disk form of a profile.
type File struct {
	Name        string          `yaml:"name" toml:"name"`
	Description string          `yaml:"description,omitempty" toml:"description,omitempty"`
	Settings    settings.Record `yaml:"settings" toml:"settings"`
}

// Info summarizes a profile file for listings.
type Info struct {
	Name string
	Path string
	Keys int
}

// FromSettings builds a file holding every field of s.
func FromSettings(name string, s settings.Settings) *File {
	return &File{Name: name, Settings: s.Record()}
}

// Validate checks the name and that every recognized key holds a legal value.
// Unrecognized keys are allowed so files from newer versions still load.
func (f *File) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return ErrNoName
	}
	s := settings.Defaults()
	for _, name := range f.Settings.SortedKeys() {
		k, err := settings.ParseKey(name)
		if err != nil {
			continue
		}
		if s, err = s.Apply(k, f.Settings[name]); err != nil {
			return err
		}
	}
	return nil
}

// Unknown lists setting keys the current version does not recognize.
func (f *File) Unknown() []string {
	var out []string
	for _, name := range f.Settings.SortedKeys() {
		if _, err := settings.ParseKey(name); err != nil {
			out = append(out, name)
		}
	}
	return out
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

func hasProfileExt(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Parse decodes a profile. path only selects the format.
func Parse(data []byte, path string) (*File, error) {
	var f File
	if isTOML(path) {
		if err := toml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse profile TOML: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse profile YAML: %w", err)
		}
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("validate profile: %w", err)
	}
	return &f, nil
}

// Marshal encodes f in the format implied by path.
func Marshal(f *File, path string) ([]byte, error) {
	if isTOML(path) {
		return toml.Marshal(f)
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// LoadProfile reads and parses a profile file.
func LoadProfile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile file: %w", err)
	}
	return Parse(data, path)
}

// SaveProfile writes f to path, creating the directory if needed.
func SaveProfile(path string, f *File) error {
	if err := f.Validate(); err != nil {
		return fmt.Errorf("validate profile before save: %w", err)
	}
	data, err := Marshal(f, path)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create profile directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write profile file: %w", err)
	}
	return nil
}

// FileName turns a display name into a safe base file name.
func FileName(name string) string {
	var b strings.Builder
	lastSep := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSep = false
		case !lastSep && b.Len() > 0:
			b.WriteByte('_')
			lastSep = true
		}
	}
	out := strings.TrimSuffix(b.String(), "_")
	if out == "" {
		return "profile"
	}
	return out
}

// LoadProfileByNameFromDir finds a profile in dir by file name first, then
// by the name field (case-insensitive).
func LoadProfileByNameFromDir(name, dir string) (*File, error) {
	base := name
	if hasProfileExt(base) {
		base = strings.TrimSuffix(base, filepath.Ext(base))
	}
	for _, ext := range Extensions {
		path := filepath.Join(dir, base+ext)
		if _, err := os.Stat(path); err == nil {
			return LoadProfile(path)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read profiles directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !hasProfileExt(entry.Name()) {
			continue
		}
		f, err := LoadProfile(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		if strings.EqualFold(f.Name, name) {
			return f, nil
		}
	}
	return nil, fmt.Errorf("profile %q not found in %s", name, dir)
}

// ListProfiles returns every loadable profile in dir sorted by name. A
// missing directory is an empty list.
func ListProfiles(dir string) ([]Info, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read profiles directory: %w", err)
	}

	var out []Info
	for _, entry := range entries {
		if entry.IsDir() || !hasProfileExt(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		f, err := LoadProfile(path)
		if err != nil {
			continue
		}
		out = append(out, Info{Name: f.Name, Path: path, Keys: len(f.Settings)})
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}
