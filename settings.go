package cfddns

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/ini.v1"
)

// ErrSetupRequired is returned when an operation needs settings that have not been set up yet.
var ErrSetupRequired = errors.New("setup required")

// Settings holds the three persisted values. An empty string means unset.
type Settings struct {
	Token    string
	ZoneID   string
	RecordID string
}

// Complete reports whether every field is set.
func (s Settings) Complete() bool {
	return s.Token != "" && s.ZoneID != "" && s.RecordID != ""
}

// HasZone reports whether the token and zone are set.
func (s Settings) HasZone() bool {
	return s.Token != "" && s.ZoneID != ""
}

const (
	settingsSection = "cloudflare"
	keyToken        = "api_token"
	keyZoneID       = "zone_id"
	keyRecordID     = "default_record_id"
)

// FileStore persists Settings to an INI file readable only by its owner.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultSettingsPath returns settings.ini inside the user's configuration directory.
func DefaultSettingsPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("unable to locate user config directory: %w", err)
	}
	return filepath.Join(dir, "cfddns", "settings.ini"), nil
}

func (st *FileStore) Path() string { return st.path }

// Load reads the settings file. A missing file yields empty settings.
func (st *FileStore) Load() (Settings, error) {
	if _, err := os.Stat(st.path); errors.Is(err, os.ErrNotExist) {
		return Settings{}, nil
	}
	if err := verifyPermissions(st.path); err != nil {
		return Settings{}, err
	}
	cfg, err := ini.Load(st.path)
	if err != nil {
		return Settings{}, fmt.Errorf("error reading settings from \"%s\": %w", st.path, err)
	}
	sec := cfg.Section(settingsSection)
	return Settings{
		Token:    sec.Key(keyToken).String(),
		ZoneID:   sec.Key(keyZoneID).String(),
		RecordID: sec.Key(keyRecordID).String(),
	}, nil
}

// Save replaces the settings file atomically.
func (st *FileStore) Save(s Settings) error {
	cfg := ini.Empty()
	sec := cfg.Section(settingsSection)
	sec.Key(keyToken).SetValue(s.Token)
	sec.Key(keyZoneID).SetValue(s.ZoneID)
	sec.Key(keyRecordID).SetValue(s.RecordID)

	dir := filepath.Dir(st.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("unable to create \"%s\": %w", dir, err)
	}
	f, err := os.CreateTemp(dir, ".settings-*.ini")
	if err != nil {
		return fmt.Errorf("unable to create temporary settings file: %w", err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if err := f.Chmod(0600); err != nil && runtime.GOOS != "windows" {
		f.Close()
		return fmt.Errorf("unable to set permissions on \"%s\": %w", tmp, err)
	}
	if _, err := cfg.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("error writing settings: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("error writing settings: %w", err)
	}
	if err := os.Rename(tmp, st.path); err != nil {
		return fmt.Errorf("unable to replace \"%s\": %w", st.path, err)
	}
	return nil
}

// Reset clears all three fields.
func (st *FileStore) Reset() error {
	return st.Save(Settings{})
}

func verifyPermissions(path string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("error checking settings file permissions: %w", err)
	}

	perms := info.Mode().Perm()
	// Error messages will state that we want 0600,
	// but we'll also accept 0400 which is even more restricted.
	if perms != 0600 && perms != 0400 {
		return fmt.Errorf("invalid permissions for \"%s\": %w", path, permissionError(perms))
	}
	return nil
}

type permissionError fs.FileMode

func (pe permissionError) Error() string {
	return fmt.Sprintf("expected file permissions \"-rw-------\"; found \"%s\"", fs.FileMode(pe))
}
