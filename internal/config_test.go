package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/atelier/pkg/config"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should pass: %v", err)
	}
}

func TestProjectConfig_CreateRequiresNames(t *testing.T) {
	cfg := ProjectConfig{Path: "./site", CreateIfMissing: true}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("create_if_missing without name should fail")
	}
	if !strings.Contains(err.Error(), "name") || !strings.Contains(err.Error(), "client") {
		t.Errorf("unexpected error: %v", err)
	}

	cfg.Name, cfg.Client = "Site", "Client"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("complete project config should pass: %v", err)
	}
}

func TestProjectConfig_PathRequired(t *testing.T) {
	cfg := ProjectConfig{}
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty path should fail validation")
	}
}

func TestCatalogConfig_RejectsBlankDependency(t *testing.T) {
	cfg := CatalogConfig{AllowedDependencies: []string{"clsx", ""}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("blank allow-list entry should fail")
	}
}

func TestAutosaveConfig_RejectsZeroDelay(t *testing.T) {
	cfg := AutosaveConfig{}
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero delay should fail")
	}
}

func TestFullConfig_SectionErrorsSurface(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.SQLite.Path = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch sqlite error")
	}
}

func TestLoad_YAMLWithEnv(t *testing.T) {
	t.Setenv("ATELIER_TEST_PROJECT", "/tmp/acme-site")
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `app:
  log_level: debug
  http:
    port: 9090
project:
  path: ${ATELIER_TEST_PROJECT}
catalog:
  allowed_dependencies: [clsx, react]
  debounce: 120ms
autosave:
  delay: 2s
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.HTTP.Port != 9090 {
		t.Errorf("port = %d", cfg.App.HTTP.Port)
	}
	if cfg.Project.Path != "/tmp/acme-site" {
		t.Errorf("project path = %q", cfg.Project.Path)
	}
	if len(cfg.Catalog.AllowedDependencies) != 2 {
		t.Errorf("allowed = %v", cfg.Catalog.AllowedDependencies)
	}
	if cfg.Catalog.Debounce != 120*time.Millisecond {
		t.Errorf("debounce = %v", cfg.Catalog.Debounce)
	}
	if cfg.Autosave.Delay != 2*time.Second {
		t.Errorf("delay = %v", cfg.Autosave.Delay)
	}
	if cfg.SQLite.Path != ":memory:" {
		t.Errorf("sqlite default lost: %q", cfg.SQLite.Path)
	}
}
