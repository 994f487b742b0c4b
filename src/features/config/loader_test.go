package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_CreatesDefaultWhenMissing(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "config.yaml")

	manager, err := Load(path)
	if err != nil {
		t.Fatalf("expected default config creation, got %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected config file to be written: %v", err)
	}
	cfg := manager.Get()
	if cfg.Downloader.AudioFormat != "mp3" {
		t.Errorf("expected default audio format mp3, got %s", cfg.Downloader.AudioFormat)
	}
	if cfg.Server.Port != 3636 {
		t.Errorf("expected default port 3636, got %d", cfg.Server.Port)
	}
}

func TestLoad_AppliesDefaultsToSparseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "musicPath: " + filepath.Join(dir, "music") + "\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	manager, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	cfg := manager.Get()
	if cfg.Downloader.AudioFormat != "mp3" {
		t.Errorf("expected default audio format, got %q", cfg.Downloader.AudioFormat)
	}
	if cfg.Logger.Level != "info" {
		t.Errorf("expected default log level, got %q", cfg.Logger.Level)
	}
	if cfg.MusicBrainz.UserAgent == "" {
		t.Error("expected default user agent")
	}
}

func TestLoad_RejectsInvalidAudioFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "musicPath: " + filepath.Join(dir, "music") + "\ndownloader:\n  audio_format: ogg\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for unsupported audio format")
	}
}

func TestLoad_EnvOverridesSecrets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "musicPath: " + filepath.Join(dir, "music") + "\nsubsonic:\n  password: from-file\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SUBSONIC_PASSWORD", "from-env")

	manager, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := manager.Get().Subsonic.Password; got != "from-env" {
		t.Errorf("expected env override, got %q", got)
	}
}

func TestGetYAML_RedactsSecrets(t *testing.T) {
	manager := NewManager(&Config{
		MusicPath: "/music",
		Telegram:  Telegram{Token: "secret-token"},
		Subsonic:  Subsonic{Password: "secret-pass"},
	})

	yaml := manager.GetYAML()
	for _, secret := range []string{"secret-token", "secret-pass"} {
		if strings.Contains(yaml, secret) {
			t.Errorf("expected %q to be redacted from config dump", secret)
		}
	}
	if !strings.Contains(yaml, "<redacted>") {
		t.Error("expected redaction marker in config dump")
	}
}
