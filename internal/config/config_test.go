package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kailas-cloud/ratewatch/internal/domain"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("no-such-env", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GitHub.APIURL != DefaultAPIURL {
		t.Errorf("APIURL = %q", cfg.GitHub.APIURL)
	}
	if cfg.GitHub.GraphQLURL != DefaultGraphQLURL {
		t.Errorf("GraphQLURL = %q", cfg.GitHub.GraphQLURL)
	}
	if cfg.GitHub.TimeoutSec != 10 {
		t.Errorf("TimeoutSec = %d, want 10", cfg.GitHub.TimeoutSec)
	}
	if cfg.GitHub.MaxConcurrency != 10 {
		t.Errorf("MaxConcurrency = %d, want 10", cfg.GitHub.MaxConcurrency)
	}
	if cfg.Watch.IntervalSec != 60 {
		t.Errorf("IntervalSec = %d, want 60", cfg.Watch.IntervalSec)
	}
	if cfg.HTTP.Port != 0 {
		t.Errorf("Port = %d, want 0 (disabled)", cfg.HTTP.Port)
	}
	if cfg.Logging.Level != DefaultLogLevel {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, DefaultLogLevel)
	}
}

func TestLoad_EnvFileResolvedFromWorkingDir(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	// config/example.yaml ships in the repository but not in this directory.
	cfg, err := Load("example", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Accounts) != 0 {
		t.Fatalf("Accounts = %d, want 0: lookup must not leave the working directory", len(cfg.Accounts))
	}

	if err := os.Mkdir(filepath.Join(dir, "config"), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, filepath.Join(dir, "config"), "staging.yaml", "watch:\n  interval_sec: 15\n")

	cfg, err = Load("staging", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Watch.IntervalSec != 15 {
		t.Errorf("IntervalSec = %d, want 15", cfg.Watch.IntervalSec)
	}
}

func TestLoad_YAMLWithEnvExpansion(t *testing.T) {
	t.Setenv("RW_TEST_TOKEN", "ghp_from_env")
	dir := t.TempDir()
	path := writeFile(t, dir, "ratewatch.yaml", `
http:
  port: 9090
github:
  timeout_sec: 3
watch:
  interval_sec: ${RW_TEST_INTERVAL:-15}
accounts:
  - name: ci
    token: ${RW_TEST_TOKEN}
  - name: bot
    app_id: "123"
    installation_id: "456"
    private_key_path: /keys/bot.pem
`)

	cfg, err := Load("local", path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("Port = %d", cfg.HTTP.Port)
	}
	if cfg.GitHub.TimeoutSec != 3 {
		t.Errorf("TimeoutSec = %d", cfg.GitHub.TimeoutSec)
	}
	if cfg.Watch.IntervalSec != 15 {
		t.Errorf("IntervalSec = %d, want default from expansion", cfg.Watch.IntervalSec)
	}
	if len(cfg.Accounts) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(cfg.Accounts))
	}
	if cfg.Accounts[0].Token != "ghp_from_env" {
		t.Errorf("token = %q", cfg.Accounts[0].Token)
	}
	if cfg.Accounts[1].InstallationID != "456" {
		t.Errorf("installation_id = %q", cfg.Accounts[1].InstallationID)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("local", filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := Config{HTTP: HTTPConfig{Port: 70000}}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_InvalidAPIURL(t *testing.T) {
	cfg := Config{GitHub: GitHubConfig{APIURL: "api.github.com"}}
	cfg.ApplyDefaults()

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid api url")
	}
	expected := `github.api_url must be an http(s) URL, got "api.github.com"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("RW_SET", "value")

	tests := []struct {
		in   string
		want string
	}{
		{"${RW_SET}", "value"},
		{"${RW_UNSET_VAR:-fallback}", "fallback"},
		{"${RW_SET:-fallback}", "value"},
		{"${RW_UNSET_VAR}", ""},
		{"plain", "plain"},
	}
	for _, tc := range tests {
		if got := string(expandEnvVars([]byte(tc.in))); got != tc.want {
			t.Errorf("expandEnvVars(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestLoadAccounts_Inline(t *testing.T) {
	cfg := Config{Inline: &AccountConfig{Token: "ghp_x"}}

	accounts, err := LoadAccounts(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(accounts) != 1 || accounts[0].Name() != DefaultAccountName {
		t.Fatalf("unexpected accounts: %+v", accounts)
	}
}

func TestLoadAccounts_NoCredentials(t *testing.T) {
	_, err := LoadAccounts(Config{Inline: &AccountConfig{}})
	if !errors.Is(err, domain.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestLoadAccounts_Contradictory(t *testing.T) {
	cfg := Config{Accounts: []AccountConfig{
		{Name: "both", Token: "t", AppID: "1", PrivateKeyPath: "/k"},
	}}
	if _, err := LoadAccounts(cfg); !errors.Is(err, domain.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestLoadAccounts_AppWithoutKey(t *testing.T) {
	cfg := Config{Accounts: []AccountConfig{{Name: "bot", AppID: "1"}}}
	if _, err := LoadAccounts(cfg); !errors.Is(err, domain.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestLoadAccounts_MissingName(t *testing.T) {
	cfg := Config{Accounts: []AccountConfig{{Token: "t"}}}
	if _, err := LoadAccounts(cfg); !errors.Is(err, domain.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestLoadAccounts_Duplicate(t *testing.T) {
	cfg := Config{Accounts: []AccountConfig{
		{Name: "a", Token: "t1"},
		{Name: "a", Token: "t2"},
	}}
	if _, err := LoadAccounts(cfg); !errors.Is(err, domain.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestLoadAccounts_Directory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "alpha.json", `{"app_id": "11", "installation_id": "22", "private_key_path": "/k/alpha.pem"}`)
	writeFile(t, dir, "beta.json", `{"name": "beta-renamed", "token": "ghp_beta"}`)
	writeFile(t, dir, "notes.txt", `ignored`)

	accounts, err := LoadAccounts(Config{AccountsDir: dir})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(accounts))
	}
	if accounts[0].Name() != "alpha" {
		t.Errorf("expected stem name alpha, got %q", accounts[0].Name())
	}
	id, ok := accounts[0].Identity()
	if !ok || id.AppID != "11" || id.InstallationID != "22" {
		t.Errorf("unexpected identity: %+v", id)
	}
	if accounts[1].Name() != "beta-renamed" {
		t.Errorf("expected explicit name, got %q", accounts[1].Name())
	}
}

func TestLoadAccounts_DirectoryBadJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.json", `{`)

	if _, err := LoadAccounts(Config{AccountsDir: dir}); !errors.Is(err, domain.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestLoadAccounts_MissingDirectory(t *testing.T) {
	_, err := LoadAccounts(Config{AccountsDir: filepath.Join(t.TempDir(), "nope")})
	if !errors.Is(err, domain.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestInlineFromEnv(t *testing.T) {
	t.Setenv(EnvToken, "")
	t.Setenv(EnvAppID, "42")
	t.Setenv(EnvInstallationID, "7")
	t.Setenv(EnvPrivateKeyPath, "/env/key.pem")

	got := InlineFromEnv(AccountConfig{PrivateKeyPath: "/flag/key.pem"})
	if got.AppID != "42" || got.InstallationID != "7" {
		t.Errorf("env values not applied: %+v", got)
	}
	if got.PrivateKeyPath != "/flag/key.pem" {
		t.Errorf("flag must win over env, got %q", got.PrivateKeyPath)
	}
}
