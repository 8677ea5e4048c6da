package rfsconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEmptyPathReturnsDefault(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("cfg = %+v, want %+v", cfg, Default())
	}
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rfsd.yaml")
	yaml := "addr: \":9000\"\nroot: /srv/export\nlevel: debug\n"
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":9000" || cfg.Root != "/srv/export" || cfg.Level != "debug" {
		t.Fatalf("cfg = %+v", cfg)
	}
	// unset fields retain the default.
	if cfg.AdminSocket != Default().AdminSocket {
		t.Fatalf("AdminSocket = %q, want default preserved", cfg.AdminSocket)
	}
}

func TestOverrideOnlySetFlags(t *testing.T) {
	base := Default()
	flagSet := map[string]bool{"addr": true}
	got := Override(base, ":1234", "ignored-root", "ignored-level", "", "", "", flagSet)

	if got.Addr != ":1234" {
		t.Fatalf("Addr = %q, want :1234", got.Addr)
	}
	if got.Root != base.Root {
		t.Fatalf("Root = %q, want unchanged %q", got.Root, base.Root)
	}
}
