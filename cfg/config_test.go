package cfg

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidate_DefaultConfig(t *testing.T) {
	original := Config
	defer func() { Config = original }()

	Config = Default()

	err := Validate()
	if err != nil {
		t.Errorf("Expected no error for default config, got: %v", err)
	}
}

func TestValidate_InvalidAdminPort(t *testing.T) {
	original := Config
	defer func() { Config = original }()

	tests := []int{-1, 0, 70000}

	for _, port := range tests {
		Config = Default()
		Config.Admin.Port = port

		err := Validate()
		if err == nil {
			t.Errorf("Expected error for invalid admin port %d", port)
		}
	}
}

func TestValidate_AdminPortIgnoredWhenDisabled(t *testing.T) {
	original := Config
	defer func() { Config = original }()

	Config = Default()
	Config.Admin.Enabled = false
	Config.Admin.Port = 0

	if err := Validate(); err != nil {
		t.Errorf("Expected no error with admin disabled, got: %v", err)
	}
}

func TestValidate_Folders(t *testing.T) {
	original := Config
	defer func() { Config = original }()

	Config = Default()
	Config.Journal.Folders = []FolderConfiguration{
		{ID: "INBOX", Owner: "alice"},
		{ID: "Sent", Owner: "alice", ModifyIndex: 42},
	}
	if err := Validate(); err != nil {
		t.Errorf("Expected no error for distinct folders, got: %v", err)
	}

	Config.Journal.Folders = append(Config.Journal.Folders, FolderConfiguration{ID: "INBOX"})
	if err := Validate(); err == nil {
		t.Error("Expected error for duplicate folder id")
	}

	Config.Journal.Folders = []FolderConfiguration{{ID: ""}}
	if err := Validate(); err == nil {
		t.Error("Expected error for empty folder id")
	}
}

func TestValidate_InvalidLoggingFormat(t *testing.T) {
	original := Config
	defer func() { Config = original }()

	Config = Default()
	Config.Logging.Format = "xml"

	if err := Validate(); err == nil {
		t.Error("Expected error for invalid logging format")
	}
}

func TestValidate_InvalidKeyCacheSize(t *testing.T) {
	original := Config
	defer func() { Config = original }()

	Config = Default()
	Config.Notify.KeyCacheSize = -5

	if err := Validate(); err == nil {
		t.Error("Expected error for negative key cache size")
	}
}

func TestLoad_NonExistentFile(t *testing.T) {
	original := Config
	defer func() { Config = original }()

	Config = Default()

	err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Errorf("Expected no error for missing file, got: %v", err)
	}

	if Config.Admin.Port != 8090 {
		t.Errorf("Expected default admin port 8090, got %d", Config.Admin.Port)
	}
}

func TestLoad_FromFile(t *testing.T) {
	original := Config
	defer func() { Config = original }()

	Config = Default()

	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
instance_name = "mail-1"

[[journal.folders]]
id = "INBOX"
owner = "alice"

[[journal.folders]]
id = "Archive"
owner = "alice"
modify_index = 120

[notify]
key_cache_size = 64

[logging]
format = "json"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if err := Load(path); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if Config.InstanceName != "mail-1" {
		t.Errorf("Expected instance name mail-1, got %s", Config.InstanceName)
	}
	if len(Config.Journal.Folders) != 2 {
		t.Fatalf("Expected 2 folders, got %d", len(Config.Journal.Folders))
	}
	if Config.Journal.Folders[1].ModifyIndex != 120 {
		t.Errorf("Expected modify index 120, got %d", Config.Journal.Folders[1].ModifyIndex)
	}
	if Config.Notify.KeyCacheSize != 64 {
		t.Errorf("Expected key cache size 64, got %d", Config.Notify.KeyCacheSize)
	}
	if Config.Logging.Format != "json" {
		t.Errorf("Expected json logging, got %s", Config.Logging.Format)
	}
	// Untouched sections keep their defaults
	if !Config.Prometheus.Enabled {
		t.Error("Expected prometheus to stay enabled")
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	original := Config
	defer func() { Config = original }()

	Config = Default()

	path := filepath.Join(t.TempDir(), "broken.toml")
	if err := os.WriteFile(path, []byte("[journal\nfolders = "), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if err := Load(path); err == nil {
		t.Error("Expected decode error for malformed file")
	}
}

func TestLoad_CLIOverrides(t *testing.T) {
	original := Config
	defer func() { Config = original }()

	*AdminPortFlag = 9999
	*VerboseFlag = true

	defer func() {
		*AdminPortFlag = 0
		*VerboseFlag = false
	}()

	Config = Default()
	Config.Notify.KeyCacheSize = 0

	err := Load("")
	if err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}

	if Config.Admin.Port != 9999 {
		t.Errorf("Expected admin port 9999, got %d", Config.Admin.Port)
	}

	if !Config.Logging.Verbose {
		t.Error("Expected verbose logging from CLI override")
	}

	if Config.Notify.KeyCacheSize != DefaultKeyCacheSize {
		t.Errorf("Expected key cache size %d, got %d", DefaultKeyCacheSize, Config.Notify.KeyCacheSize)
	}
}

func BenchmarkValidate(b *testing.B) {
	original := Config
	defer func() { Config = original }()

	Config = Default()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Validate()
	}
}
