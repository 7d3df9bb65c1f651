//go:build darwin

package config

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

const defaultsDomain = "com.plugvox.app"

func secretHint(account string) string {
	return fmt.Sprintf(" or macOS Keychain (service: %s, account: %s)", secretService, account)
}

func newPlatformBackend() Backend { return defaultsBackend{domain: defaultsDomain} }

func newSecretStore() SecretStore { return keychainStore{service: secretService} }

// defaultsBackend reads and writes UserDefaults through the defaults CLI.
type defaultsBackend struct {
	domain string
}

func (b defaultsBackend) Lookup(key string) (string, bool, error) {
	out, err := exec.Command("defaults", "read", b.domain, key).CombinedOutput()
	s := strings.TrimSpace(string(out))
	if err != nil {
		// defaults exits 1 for a missing domain or key.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return "", false, nil
		}
		return "", false, fmt.Errorf("defaults read %s %s: %w: %s", b.domain, key, err, s)
	}
	return s, true, nil
}

func (b defaultsBackend) Store(key, value string) error {
	out, err := exec.Command("defaults", "write", b.domain, key, "-string", value).CombinedOutput()
	if err != nil {
		return fmt.Errorf("defaults write %s %s: %w: %s", b.domain, key, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// keychainStore keeps secrets as generic passwords in the login keychain.
type keychainStore struct {
	service string
}

func (k keychainStore) Secret(account string) (string, error) {
	out, err := exec.Command("security", "find-generic-password", "-s", k.service, "-a", account, "-w").Output()
	if err != nil {
		return "", fmt.Errorf("keychain %s/%s: %w", k.service, account, err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (k keychainStore) StoreSecret(account, value string) error {
	// -U updates an existing item in place.
	cmd := exec.Command("security", "add-generic-password", "-U", "-s", k.service, "-a", account, "-w", value)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("keychain %s/%s: %w: %s", k.service, account, err, strings.TrimSpace(string(out)))
	}
	return nil
}
