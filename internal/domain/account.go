package domain

import (
	"fmt"
	"time"
)

// SigningIdentity is a GitHub App identity used to mint assertions.
type SigningIdentity struct {
	AppID          string
	InstallationID string // optional; empty means app-level JWT only
	PrivateKeyPath string
}

// Account is one configured credential set. Exactly one of a static token or
// a signing identity is set. Immutable once constructed.
type Account struct {
	name     string
	token    string
	identity *SigningIdentity
}

// NewStaticAccount creates an account authenticated with a static token.
func NewStaticAccount(name, token string) (Account, error) {
	if name == "" {
		return Account{}, fmt.Errorf("account name is required: %w", ErrConfig)
	}
	if token == "" {
		return Account{}, fmt.Errorf("account %q: token is empty: %w", name, ErrConfig)
	}
	return Account{name: name, token: token}, nil
}

// NewAppAccount creates an account authenticated as a GitHub App.
func NewAppAccount(name string, id SigningIdentity) (Account, error) {
	if name == "" {
		return Account{}, fmt.Errorf("account name is required: %w", ErrConfig)
	}
	if id.AppID == "" || id.PrivateKeyPath == "" {
		return Account{}, fmt.Errorf("account %q: app_id and private_key_path are required: %w", name, ErrConfig)
	}
	return Account{name: name, identity: &id}, nil
}

// Name returns the unique account name.
func (a Account) Name() string { return a.name }

// StaticToken returns the static token and whether the account uses one.
func (a Account) StaticToken() (string, bool) { return a.token, a.token != "" }

// Identity returns the signing identity and whether the account uses one.
func (a Account) Identity() (SigningIdentity, bool) {
	if a.identity == nil {
		return SigningIdentity{}, false
	}
	return *a.identity, true
}

// Info returns the labeling metadata for the account.
func (a Account) Info() AccountInfo {
	info := AccountInfo{Name: a.name}
	if a.identity != nil {
		info.AppID = a.identity.AppID
		info.InstallationID = a.identity.InstallationID
	}
	return info
}

// AccountInfo carries account metadata for downstream labeling.
type AccountInfo struct {
	Name           string `json:"-"`
	AppID          string `json:"app_id,omitempty"`
	InstallationID string `json:"installation_id,omitempty"`
}

// AccessToken is a minted credential with an absolute expiry.
type AccessToken struct {
	Value     string
	ExpiresAt time.Time
}

// ValidAt reports whether the token is still usable at now with the given safety margin.
func (t AccessToken) ValidAt(now time.Time, margin time.Duration) bool {
	return t.Value != "" && t.ExpiresAt.After(now.Add(margin))
}
