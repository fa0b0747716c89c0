package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Policy != "strict" {
		t.Errorf("expected default policy strict, got %s", cfg.Policy)
	}
	if cfg.Watch.GetDebounceDelay() != 500*time.Millisecond {
		t.Errorf("expected default debounce 500ms, got %s", cfg.Watch.GetDebounceDelay())
	}
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.Layers = []LayerRef{
			{Name: "core", Path: "tokens/core.yaml"},
			{Name: "org", Path: "tokens/org.yaml"},
		}
		cfg.Base = "base.potx"
		cfg.Output = "out.potx"
		return cfg
	}

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "unknown policy",
			modify:  func(c *Config) { c.Policy = "lenient" },
			wantErr: true,
		},
		{
			name:    "best-effort policy accepted",
			modify:  func(c *Config) { c.Policy = "best-effort" },
			wantErr: false,
		},
		{
			name:    "layer without name",
			modify:  func(c *Config) { c.Layers[0].Name = "" },
			wantErr: true,
		},
		{
			name:    "layer without path",
			modify:  func(c *Config) { c.Layers[1].Path = "" },
			wantErr: true,
		},
		{
			name:    "duplicate layer name",
			modify:  func(c *Config) { c.Layers[1].Name = "core" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateForBuild(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Layers = []LayerRef{{Name: "core", Path: "core.yaml"}}
	cfg.Base = "base.potx"

	if err := cfg.ValidateForBuild(); err == nil {
		t.Error("expected error for missing output")
	}

	cfg.Output = "out.potx"
	if err := cfg.ValidateForBuild(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	cfg.Layers = nil
	if err := cfg.ValidateForBuild(); err == nil {
		t.Error("expected error for empty layer list")
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "brandforge.yaml")

	content := `
layers:
  - name: core
    path: tokens/core.yaml
  - name: org
    path: tokens/org.yaml
patches:
  - patches/theme.yaml
base: templates/base.potx
output: dist/branded.potx
policy: best-effort
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if len(cfg.Layers) != 2 {
		t.Fatalf("expected 2 layers, got %d", len(cfg.Layers))
	}
	if cfg.Layers[0].Name != "core" || cfg.Layers[1].Name != "org" {
		t.Errorf("layer order not preserved: %+v", cfg.Layers)
	}
	if cfg.Policy != "best-effort" {
		t.Errorf("expected policy best-effort, got %s", cfg.Policy)
	}
	if cfg.Base != "templates/base.potx" {
		t.Errorf("unexpected base: %s", cfg.Base)
	}
}

func TestMerge(t *testing.T) {
	base := DefaultConfig()
	base.Base = "original.potx"

	other := &Config{Policy: "best-effort", Output: "out.potx"}
	base.Merge(other)

	if base.Policy != "best-effort" {
		t.Errorf("expected merged policy best-effort, got %s", base.Policy)
	}
	if base.Base != "original.potx" {
		t.Errorf("zero-value field must not override, got %s", base.Base)
	}
	if base.Output != "out.potx" {
		t.Errorf("expected merged output, got %s", base.Output)
	}
}

func TestResolveRelativeTo(t *testing.T) {
	cfg := &Config{
		Layers:  []LayerRef{{Name: "core", Path: "tokens/core.yaml"}},
		Patches: []string{"patches/theme.yaml"},
		Base:    "/abs/base.potx",
		Output:  "dist/out.potx",
	}
	cfg.resolveRelativeTo("/project")

	if cfg.Layers[0].Path != filepath.Join("/project", "tokens/core.yaml") {
		t.Errorf("layer path not rebased: %s", cfg.Layers[0].Path)
	}
	if cfg.Base != "/abs/base.potx" {
		t.Errorf("absolute path must not be rebased: %s", cfg.Base)
	}
	if cfg.Output != filepath.Join("/project", "dist/out.potx") {
		t.Errorf("output not rebased: %s", cfg.Output)
	}
}
