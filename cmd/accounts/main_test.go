package main

import (
	"testing"

	apiclient "github.com/splax/accounts/pkg/api/client"
)

func TestSplitList(t *testing.T) {
	got := splitList(" go, sql ,,docker ")
	want := []string{"go", "sql", "docker"}
	if len(got) != len(want) {
		t.Fatalf("unexpected list %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("item %d = %q, want %q", i, got[i], want[i])
		}
	}
	if empty := splitList(""); empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", empty)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("load default config: %v", err)
	}
	if cfg.APIBaseURL != apiclient.DefaultBaseURL || cfg.Token != "" {
		t.Fatalf("unexpected default config %+v", cfg)
	}

	cfg.Token = "tok"
	cfg.APIBaseURL = "http://accounts.internal:5000"
	if err := saveConfig(cfg); err != nil {
		t.Fatalf("save config: %v", err)
	}
	loaded, err := loadConfig()
	if err != nil {
		t.Fatalf("reload config: %v", err)
	}
	if loaded != cfg {
		t.Fatalf("config mismatch: %+v != %+v", loaded, cfg)
	}
}

func TestRequireToken(t *testing.T) {
	if _, err := requireToken(cliConfig{}); err == nil {
		t.Fatal("expected error without token")
	}
	if token, err := requireToken(cliConfig{Token: " tok "}); err != nil || token != "tok" {
		t.Fatalf("unexpected result %q %v", token, err)
	}
}
