package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kailas-cloud/ratewatch/internal/domain"
)

// DefaultAccountName names the inline credential when none is given.
const DefaultAccountName = "default"

// Environment variables read for the inline credential.
const (
	EnvToken          = "GITHUB_TOKEN"
	EnvAppID          = "GITHUB_APP_ID"
	EnvInstallationID = "GITHUB_APP_INSTALLATION_ID"
	EnvPrivateKeyPath = "GITHUB_APP_PRIVATE_KEY_PATH"
)

// InlineFromEnv fills empty fields of flags from the GITHUB_* environment variables.
func InlineFromEnv(flags AccountConfig) AccountConfig {
	if flags.Token == "" {
		flags.Token = os.Getenv(EnvToken)
	}
	if flags.AppID == "" {
		flags.AppID = os.Getenv(EnvAppID)
	}
	if flags.InstallationID == "" {
		flags.InstallationID = os.Getenv(EnvInstallationID)
	}
	if flags.PrivateKeyPath == "" {
		flags.PrivateKeyPath = os.Getenv(EnvPrivateKeyPath)
	}
	return flags
}

// LoadAccounts builds the account set from the inline credential, the accounts
// list and the accounts directory. Any problem is reported as domain.ErrConfig.
func LoadAccounts(cfg Config) ([]domain.Account, error) {
	var blocks []AccountConfig

	if cfg.Inline != nil && !cfg.Inline.IsZero() {
		inline := *cfg.Inline
		if inline.Name == "" {
			inline.Name = DefaultAccountName
		}
		blocks = append(blocks, inline)
	}

	for i, a := range cfg.Accounts {
		if a.Name == "" {
			return nil, fmt.Errorf("accounts[%d]: name is required: %w", i, domain.ErrConfig)
		}
		blocks = append(blocks, a)
	}

	if cfg.AccountsDir != "" {
		fromDir, err := readAccountsDir(cfg.AccountsDir)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, fromDir...)
	}

	if len(blocks) == 0 {
		return nil, fmt.Errorf("no credentials: provide %s or both %s and %s: %w",
			EnvToken, EnvAppID, EnvPrivateKeyPath, domain.ErrConfig)
	}

	seen := make(map[string]struct{}, len(blocks))
	accounts := make([]domain.Account, 0, len(blocks))
	for _, b := range blocks {
		if _, dup := seen[b.Name]; dup {
			return nil, fmt.Errorf("duplicate account name %q: %w", b.Name, domain.ErrConfig)
		}
		seen[b.Name] = struct{}{}

		acc, err := toAccount(b)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acc)
	}
	return accounts, nil
}

func toAccount(b AccountConfig) (domain.Account, error) {
	hasApp := b.AppID != "" || b.PrivateKeyPath != "" || b.InstallationID != ""
	switch {
	case b.Token != "" && hasApp:
		return domain.Account{}, fmt.Errorf("account %q: token and app credentials are mutually exclusive: %w",
			b.Name, domain.ErrConfig)
	case b.Token != "":
		return domain.NewStaticAccount(b.Name, b.Token)
	default:
		return domain.NewAppAccount(b.Name, domain.SigningIdentity{
			AppID:          b.AppID,
			InstallationID: b.InstallationID,
			PrivateKeyPath: b.PrivateKeyPath,
		})
	}
}

// readAccountsDir reads one JSON credential block per *.json file. The file
// stem is the account name unless the file sets one.
func readAccountsDir(dir string) ([]AccountConfig, error) {
	entries, err := os.ReadDir(filepath.Clean(dir))
	if err != nil {
		return nil, fmt.Errorf("read accounts dir %s: %v: %w", dir, err, domain.ErrConfig)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	blocks := make([]AccountConfig, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read account file %s: %v: %w", path, err, domain.ErrConfig)
		}

		var b AccountConfig
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, fmt.Errorf("parse account file %s: %v: %w", path, err, domain.ErrConfig)
		}
		if b.Name == "" {
			b.Name = strings.TrimSuffix(name, filepath.Ext(name))
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}
