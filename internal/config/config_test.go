package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissing(t *testing.T) {
	cfg := Load(t.TempDir())
	if !cfg.EffectiveIncremental() {
		t.Error("default incremental should be true")
	}
	if cfg.EffectiveLanguage() != "python" {
		t.Errorf("default language: got %s", cfg.EffectiveLanguage())
	}
	if cfg.EffectiveMaxInheritanceDepth() != 10 {
		t.Errorf("default depth: got %d", cfg.EffectiveMaxInheritanceDepth())
	}
	if cfg.EffectiveWorkers() < 1 {
		t.Errorf("default workers: got %d", cfg.EffectiveWorkers())
	}
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	content := `index:
  include:
    - "src/**"
  exclude:
    - "*_test.py"
  workers: 2
  incremental: false
validate:
  language: typescript
  max_inheritance_depth: 4
`
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := Load(dir)
	if cfg.EffectiveWorkers() != 2 {
		t.Errorf("workers: got %d", cfg.EffectiveWorkers())
	}
	if cfg.EffectiveIncremental() {
		t.Error("incremental should be false")
	}
	if cfg.EffectiveLanguage() != "typescript" {
		t.Errorf("language: got %s", cfg.EffectiveLanguage())
	}
	if cfg.EffectiveMaxInheritanceDepth() != 4 {
		t.Errorf("depth: got %d", cfg.EffectiveMaxInheritanceDepth())
	}
	if len(cfg.Index.IncludeGlobs) != 1 || len(cfg.Index.ExcludeGlobs) != 1 {
		t.Errorf("globs: %+v", cfg.Index)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("index: [not a map"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := Load(dir)
	if !cfg.EffectiveIncremental() {
		t.Error("invalid YAML should fall back to defaults")
	}
}
