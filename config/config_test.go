package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFromViperDefaultsAndEnv(t *testing.T) {
	t.Setenv("DISCORD_GUILD_IDS", "111, 222,,333")
	t.Setenv("REVIEW_TASK_TIMEOUT", "45s")
	t.Setenv("PILLOW_PUBLIC_BASE_URL", "https://pillows.example.test/")

	v, err := newViper(t.TempDir())
	if err != nil {
		t.Fatalf("newViper: %v", err)
	}
	cfg := fromViper(v)

	if got := cfg.DiscordGuildIDs; len(got) != 3 || got[0] != "111" || got[2] != "333" {
		t.Fatalf("guild ids: %q", got)
	}
	if cfg.ReviewTaskTimeout != 45*time.Second || cfg.ReviewClaimTTL != time.Minute {
		t.Fatalf("durations: %v %v", cfg.ReviewTaskTimeout, cfg.ReviewClaimTTL)
	}
	if cfg.PillowPublicBaseURL != "https://pillows.example.test" {
		t.Fatalf("base url: %q", cfg.PillowPublicBaseURL)
	}
	if cfg.MaxUploadMB != 10 || cfg.DBDriver != "sqlite" || cfg.StorageMode != "gcs" {
		t.Fatalf("defaults: %+v", cfg)
	}
}

func TestConfigFileBelowEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := "app:\n  port: \"9000\"\n  allowed_origins: [\"https://a.test\", \"https://b.test\"]\nstorage:\n  mode: memory\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("OBJECT_STORAGE_MODE", "GCS_EMULATOR")

	v, err := newViper(dir)
	if err != nil {
		t.Fatalf("newViper: %v", err)
	}
	cfg := fromViper(v)
	if cfg.AppPort != "9000" {
		t.Fatalf("port from file: %q", cfg.AppPort)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.test" {
		t.Fatalf("origins: %q", cfg.AllowedOrigins)
	}
	if cfg.StorageMode != "gcs_emulator" {
		t.Fatalf("env must override file: %q", cfg.StorageMode)
	}
}
