package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	partychat "github.com/partychat/partychat-go"
)

func TestSetConfigValue(t *testing.T) {
	cfg := &Config{}
	for key, value := range map[string]string{
		"default.server_url": "http://localhost:5000",
		"default.username":   "alice",
		"storage.backend":    "pebble",
		"storage.path":       "/tmp/pc",
	} {
		if err := setConfigValue(cfg, key, value); err != nil {
			t.Fatalf("set %s: %v", key, err)
		}
	}
	want := &Config{
		Default: ConfigDefault{ServerURL: "http://localhost:5000", Username: "alice"},
		Storage: ConfigStorage{Backend: "pebble", Path: "/tmp/pc"},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}

	for _, bad := range [][2]string{
		{"username", "x"},
		{"default.nope", "x"},
		{"storage.backend", "redis"},
		{"cloud.region", "x"},
	} {
		if err := setConfigValue(cfg, bad[0], bad[1]); err == nil {
			t.Errorf("set %s=%s: expected error", bad[0], bad[1])
		}
	}
}

func TestLoadConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("PARTYCHAT_HOME", home)

	saved := &Config{Default: ConfigDefault{ServerURL: "http://chat.local", Username: "alice", Env: "local"}}
	if err := saveConfig(saved); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(home, "config.toml")); err != nil {
		t.Fatal(err)
	}

	t.Setenv("PARTYCHAT_USERNAME", "bob")
	t.Setenv("PARTYCHAT_STORAGE_BACKEND", "memory")
	cfg, err := loadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Default.Username != "bob" || cfg.Storage.Backend != "memory" || cfg.Default.ServerURL != "http://chat.local" {
		t.Fatalf("loaded %+v", cfg)
	}

	onDisk, err := readConfigFile()
	if err != nil {
		t.Fatal(err)
	}
	if onDisk.Default.Username != "alice" {
		t.Fatal("environment overrides must not reach the file view")
	}

	t.Run("invalid override", func(t *testing.T) {
		t.Setenv("PARTYCHAT_STORAGE_BACKEND", "redis")
		if _, err := loadConfig(); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestOpenStorage(t *testing.T) {
	t.Setenv("PARTYCHAT_HOME", t.TempDir())

	for _, backend := range []string{"memory", "file", "pebble", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			s, closer, err := openStorage(&Config{Storage: ConfigStorage{Backend: backend}})
			if err != nil {
				t.Fatal(err)
			}
			defer closer.Close()

			p := partychat.NewPersister(s, "alice", nil)
			p.PersistThreads([]partychat.DMThread{{ConversationID: "7", Username: "bob"}})
			if got := p.HydrateThreads(); len(got) != 1 || got[0].Username != "bob" {
				t.Fatalf("HydrateThreads = %+v", got)
			}
		})
	}

	if _, _, err := openStorage(&Config{Storage: ConfigStorage{Backend: "redis"}}); err == nil {
		t.Fatal("unknown backend should fail")
	}
}

func TestParseLevel(t *testing.T) {
	if parseLevel("DEBUG").String() != "DEBUG" || parseLevel("").String() != "INFO" || parseLevel("warning").String() != "WARN" {
		t.Fatal("parseLevel mapping")
	}
}
