//go:build !darwin

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plugvox", "config.json")
	b := &fileBackend{path: path}

	if _, ok, err := b.Lookup("server.port"); err != nil || ok {
		t.Fatalf("Lookup on missing file = ok %v, err %v", ok, err)
	}

	if err := b.Store("devices.default_name", "Desk Lamp"); err != nil {
		t.Fatalf("Store: %v", err)
	}
	v, ok, err := b.Lookup("devices.default_name")
	if err != nil || !ok || v != "Desk Lamp" {
		t.Fatalf("Lookup = %q, %v, %v", v, ok, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("config file mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestFileBackend_HandEditedValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"server.port": 8080, "log.level": "debug", "weird": [1]}`), 0o600); err != nil {
		t.Fatal(err)
	}
	b := &fileBackend{path: path}

	if v, _, err := b.Lookup("server.port"); err != nil || v != "8080" {
		t.Errorf("server.port = %q, %v", v, err)
	}
	if v, _, err := b.Lookup("log.level"); err != nil || v != "debug" {
		t.Errorf("log.level = %q, %v", v, err)
	}
	if _, _, err := b.Lookup("weird"); err == nil {
		t.Error("expected error for array value")
	}

	cfg, err := loadWith(b, memSecrets{})
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
}

func TestFileBackend_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{not json`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := (&fileBackend{path: path}).Lookup("server.port"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestFileSecrets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "share", "secrets.json")
	st := &fileSecrets{path: path, service: secretService}

	if _, err := st.Secret("cloud_password"); err == nil {
		t.Fatal("expected error for missing secret")
	}
	if err := st.StoreSecret("cloud_password", "hunter2"); err != nil {
		t.Fatalf("StoreSecret: %v", err)
	}
	if err := st.StoreSecret("openai_api_key", "sk-test"); err != nil {
		t.Fatalf("StoreSecret: %v", err)
	}

	other := &fileSecrets{path: path, service: secretService}
	if v, err := other.Secret("cloud_password"); err != nil || v != "hunter2" {
		t.Errorf("cloud_password = %q, %v", v, err)
	}
	if v, err := other.Secret("openai_api_key"); err != nil || v != "sk-test" {
		t.Errorf("openai_api_key = %q, %v", v, err)
	}
}
