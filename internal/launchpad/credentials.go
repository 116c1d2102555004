package launchpad

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/ini.v1"
)

const (
	credentialsFile    = "auth.txt"
	credentialsSection = "1"
)

// DefaultCacheDir returns the per-user cache directory for stored credentials.
func DefaultCacheDir(user string) string {
	return filepath.Join(os.TempDir(), user, ".cache", ".launchpadlib")
}

// CredentialStore persists Credentials as an INI file inside Dir.
type CredentialStore struct {
	Dir string
}

// Path returns the credential file location.
func (s CredentialStore) Path() string {
	return filepath.Join(s.Dir, credentialsFile)
}

// Load reads stored credentials.
func (s CredentialStore) Load() (Credentials, error) {
	f, err := ini.Load(s.Path())
	if err != nil {
		return Credentials{}, fmt.Errorf("load credentials: %w", err)
	}
	sec, err := f.GetSection(credentialsSection)
	if err != nil {
		return Credentials{}, fmt.Errorf("load credentials: %w", err)
	}
	return Credentials{
		ConsumerKey:    sec.Key("consumer_key").String(),
		ConsumerSecret: sec.Key("consumer_secret").String(),
		AccessToken:    sec.Key("access_token").String(),
		AccessSecret:   sec.Key("access_secret").String(),
	}, nil
}

// Save writes c, creating Dir if needed. The file is only readable by the owner.
func (s CredentialStore) Save(c Credentials) error {
	if err := os.MkdirAll(s.Dir, 0o700); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	f := ini.Empty()
	sec, err := f.NewSection(credentialsSection)
	if err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	for k, v := range map[string]string{
		"consumer_key":    c.ConsumerKey,
		"consumer_secret": c.ConsumerSecret,
		"access_token":    c.AccessToken,
		"access_secret":   c.AccessSecret,
	} {
		if _, err := sec.NewKey(k, v); err != nil {
			return fmt.Errorf("save credentials: %w", err)
		}
	}

	if err := f.SaveTo(s.Path()); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	return os.Chmod(s.Path(), 0o600)
}

// Remove deletes the credential file. A missing file is not an error.
func (s CredentialStore) Remove() error {
	err := os.Remove(s.Path())
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
