package theme

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// LoadUserThemes reads every *.yaml and *.yml file directly inside dir.
// A missing directory yields no themes.
func LoadUserThemes(dir string) (map[string]Theme, error) {
	themes := make(map[string]Theme)
	if dir == "" {
		return themes, nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return themes, nil
		}
		return nil, fmt.Errorf("stat theme dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("theme dir %s is not a directory", dir)
	}

	matches, err := doublestar.Glob(os.DirFS(dir), "*.{yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("glob themes: %w", err)
	}
	sort.Strings(matches)

	for _, rel := range matches {
		path := filepath.Join(dir, rel)
		t, err := loadThemeFile(path)
		if err != nil {
			return nil, err
		}
		themes[t.Name] = t
	}
	return themes, nil
}

func loadThemeFile(path string) (Theme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Theme{}, fmt.Errorf("read theme %s: %w", path, err)
	}
	var t Theme
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Theme{}, fmt.Errorf("parse theme %s: %w", path, err)
	}
	if t.Name == "" {
		return Theme{}, fmt.Errorf("invalid theme file %s. A name is required.", path)
	}
	if t.Primary == "" {
		return Theme{}, fmt.Errorf("invalid theme file %s. A primary colour is required.", path)
	}
	return t, nil
}

// LoadRegistry builds a registry from the builtins and the themes in dir.
func LoadRegistry(dir string) (*Registry, error) {
	user, err := LoadUserThemes(dir)
	if err != nil {
		return nil, err
	}
	return NewRegistry(user), nil
}
