package config

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestInstanceDefaults(t *testing.T) {
	c := Instance()

	if c.Downloader.KillGrace != DefaultKillGrace {
		t.Errorf("expected kill grace %v, got %v", DefaultKillGrace, c.Downloader.KillGrace)
	}
	if c.Paths.DownloaderPath != "yt-dlp" {
		t.Errorf("expected downloader path yt-dlp, got %q", c.Paths.DownloaderPath)
	}
	if Instance() != c {
		t.Error("Instance should always return the same pointer")
	}
}

func TestDumpMasksSecrets(t *testing.T) {
	c := Config{
		Authentication: AuthConfig{
			RequireAuth: true,
			Username:    "admin",
			Password:    "hunter2",
			JWTSecret:   "s3cr3t",
		},
		Downloader: DownloaderConfig{KillGrace: time.Second},
	}

	var buf bytes.Buffer
	if err := c.Dump(&buf); err != nil {
		t.Fatalf("dump failed: %v", err)
	}

	out := buf.String()
	if strings.Contains(out, "hunter2") || strings.Contains(out, "s3cr3t") {
		t.Errorf("secrets leaked in dump:\n%s", out)
	}

	var back Config
	if err := yaml.Unmarshal(buf.Bytes(), &back); err != nil {
		t.Fatalf("dump is not valid yaml: %v", err)
	}
	if back.Authentication.Username != "admin" {
		t.Errorf("expected username admin, got %q", back.Authentication.Username)
	}
	if c.Authentication.Password != "hunter2" {
		t.Error("dump must not modify the receiver")
	}
}

func TestStorePaths(t *testing.T) {
	c := Config{Paths: PathsConfig{LocalDatabasePath: "/var/lib/ytr"}}

	if got := c.SessionDBPath(); got != "/var/lib/ytr/session.db" {
		t.Errorf("unexpected session db path %q", got)
	}
	if got := c.ArchiveDBPath(); got != "/var/lib/ytr/archive.db" {
		t.Errorf("unexpected archive db path %q", got)
	}
}
