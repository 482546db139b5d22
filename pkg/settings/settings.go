// Package settings persists the user's preferences between runs. The
// settings object is loaded once at startup, passed explicitly into whatever
// needs it, and written back only on an explicit save.
package settings

import (
	"encoding/json"
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"

	"github.com/modpack-run/modsync/pkg/errors"
)

// SettingsPath is the default path to the modsync settings file.
const SettingsPath = "~/.config/modsync/config.json"

// Themes the presentation layer understands. The CLI only stores the
// preference; rendering is up to the front-end consuming it.
const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// Settings contains the user's persisted preferences.
type Settings struct {
	// ModFolder is the local directory that's kept in sync with the remote
	// reference set.
	ModFolder string `json:"mod_folder"`

	// RemoveOld enables deletion of local files that the manifest no longer
	// references.
	RemoveOld bool `json:"remove_old"`

	Theme string `json:"theme"`
}

// Mocked out for unit testing.
var fs = afero.NewOsFs()
var homedirExpand = homedir.Expand

// Default returns the settings used when no settings file exists yet.
func Default() Settings {
	return Settings{
		ModFolder: "",
		RemoveOld: true,
		Theme:     ThemeDark,
	}
}

// Load reads the settings from disk. A missing settings file isn't an error:
// it just means the defaults.
func Load() (Settings, error) {
	path, err := Path()
	if err != nil {
		return Settings{}, errors.WithContext(err, "expand settings path")
	}

	exists, err := afero.Exists(fs, path)
	if err != nil {
		return Settings{}, errors.WithContext(err, "stat")
	}
	if !exists {
		return Default(), nil
	}

	contents, err := afero.ReadFile(fs, path)
	if err != nil {
		return Settings{}, errors.WithContext(err, "read")
	}

	s := Default()
	if err := json.Unmarshal(contents, &s); err != nil {
		return Settings{}, errors.WithContext(err, "parse")
	}

	if s.Theme != ThemeDark && s.Theme != ThemeLight {
		s.Theme = ThemeDark
	}
	return s, nil
}

// Save writes the settings to disk, creating the settings directory if
// needed.
func (s Settings) Save() error {
	path, err := Path()
	if err != nil {
		return errors.WithContext(err, "expand settings path")
	}

	contents, err := json.MarshalIndent(s, "", "    ")
	if err != nil {
		return errors.WithContext(err, "marshal")
	}

	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.WithContext(err, "create settings dir")
	}

	if err := afero.WriteFile(fs, path, contents, 0644); err != nil {
		return errors.WithContext(err, "write")
	}
	return nil
}

// Path returns the expanded path to the settings file.
func Path() (string, error) {
	return homedirExpand(SettingsPath)
}
