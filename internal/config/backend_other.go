//go:build !darwin

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
)

func secretHint(account string) string {
	return fmt.Sprintf(" or %s (%q -> %q)", secretsFilePath(), secretService, account)
}

func newPlatformBackend() Backend { return &fileBackend{path: configFilePath()} }

func newSecretStore() SecretStore {
	return &fileSecrets{path: secretsFilePath(), service: secretService}
}

func xdgDir(env string, fallback ...string) string {
	if dir := os.Getenv(env); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(append([]string{home}, fallback...)...)
}

func configFilePath() string {
	return filepath.Join(xdgDir("XDG_CONFIG_HOME", ".config"), "plugvox", "config.json")
}

func secretsFilePath() string {
	return filepath.Join(xdgDir("XDG_DATA_HOME", ".local", "share"), "plugvox", "secrets.json")
}

// readJSON decodes path into v. A missing file leaves v untouched.
func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// fileBackend stores settings as a flat JSON object. Hand-edited files may
// hold numbers or booleans; they are read back in their JSON spelling.
type fileBackend struct {
	path string
}

func (b *fileBackend) read() (map[string]any, error) {
	data := map[string]any{}
	if err := readJSON(b.path, &data); err != nil {
		return nil, err
	}
	return data, nil
}

func (b *fileBackend) Lookup(key string) (string, bool, error) {
	data, err := b.read()
	if err != nil {
		return "", false, err
	}
	v, ok := data[key]
	if !ok || v == nil {
		return "", false, nil
	}
	switch val := v.(type) {
	case string:
		return val, true, nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true, nil
	case bool:
		return strconv.FormatBool(val), true, nil
	default:
		return "", true, fmt.Errorf("%s: unsupported value %v in %s", key, v, b.path)
	}
}

func (b *fileBackend) Store(key, value string) error {
	data, err := b.read()
	if err != nil {
		return err
	}
	data[key] = value
	return writeJSON(b.path, data)
}

// fileSecrets keeps secrets in a 0600 JSON file keyed by service then account.
type fileSecrets struct {
	path    string
	service string
}

func (f *fileSecrets) Secret(account string) (string, error) {
	var all map[string]map[string]string
	if err := readJSON(f.path, &all); err != nil {
		return "", err
	}
	v, ok := all[f.service][account]
	if !ok {
		return "", fmt.Errorf("secret %s/%s not found in %s", f.service, account, f.path)
	}
	return v, nil
}

func (f *fileSecrets) StoreSecret(account, value string) error {
	all := map[string]map[string]string{}
	if err := readJSON(f.path, &all); err != nil {
		return err
	}
	if all[f.service] == nil {
		all[f.service] = map[string]string{}
	}
	all[f.service][account] = value
	return writeJSON(f.path, all)
}
