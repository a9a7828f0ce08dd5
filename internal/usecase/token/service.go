package token

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ratewatch/internal/domain"
	logpkg "github.com/kailas-cloud/ratewatch/internal/logger"
	"github.com/kailas-cloud/ratewatch/internal/metrics"
)

const (
	// RefreshMargin is how long before expiry a cached token is replaced.
	RefreshMargin = 5 * time.Minute
	// AssertionTTL is the lifetime of a minted app JWT.
	AssertionTTL = 600 * time.Second
	// InstallationTokenTTL is the lifetime recorded for exchanged tokens.
	InstallationTokenTTL = time.Hour
)

// Minter produces access tokens for accounts, refreshing installation tokens
// that are within RefreshMargin of expiry.
type Minter struct {
	now    func() time.Time
	logger *zap.Logger
}

// New creates a Minter.
func New(logger *zap.Logger) *Minter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Minter{now: time.Now, logger: logger}
}

// WithClock replaces the time source.
func (m *Minter) WithClock(now func() time.Time) *Minter {
	if now != nil {
		m.now = now
	}
	return m
}

// AccessToken returns a bearer credential for the handle's account.
//
// Static tokens are returned as is. App accounts get the cached installation
// token while it is valid beyond RefreshMargin; otherwise a fresh JWT is signed
// and, when an installation id is configured, exchanged. A failed exchange
// degrades to the raw JWT, which is not cached.
func (m *Minter) AccessToken(ctx context.Context, h *Handle) (string, error) {
	if tok, ok := h.account.StaticToken(); ok {
		return tok, nil
	}
	id, ok := h.account.Identity()
	if !ok {
		return "", fmt.Errorf("account %q has no credentials: %w", h.account.Name(), domain.ErrConfig)
	}

	log := logpkg.FromContextOr(ctx, m.logger).With(zap.String("account", h.account.Name()))

	h.mu.Lock()
	defer h.mu.Unlock()

	now := m.now()
	if h.cached.ValidAt(now, RefreshMargin) {
		return h.cached.Value, nil
	}

	assertion, err := m.mintAssertion(id, now)
	if err != nil {
		metrics.TokenMintsTotal.WithLabelValues(metrics.MintError).Inc()
		return "", err
	}

	if id.InstallationID == "" {
		metrics.TokenMintsTotal.WithLabelValues(metrics.MintJWT).Inc()
		return assertion, nil
	}

	installed, err := m.exchange(ctx, h, assertion, id.InstallationID)
	if err != nil {
		log.Warn("Failed to get installation token, using JWT",
			zap.String("installation_id", id.InstallationID),
			zap.Error(err),
		)
		metrics.TokenMintsTotal.WithLabelValues(metrics.MintFallback).Inc()
		return assertion, nil
	}

	h.cached = domain.AccessToken{Value: installed, ExpiresAt: now.Add(InstallationTokenTTL)}
	metrics.TokenMintsTotal.WithLabelValues(metrics.MintExchanged).Inc()
	log.Debug("Installation token refreshed", zap.Time("expires_at", h.cached.ExpiresAt))
	return installed, nil
}

func (m *Minter) exchange(ctx context.Context, h *Handle, assertion, installationID string) (string, error) {
	if h.exchanger == nil {
		return "", errors.New("no token exchanger configured")
	}
	tok, err := h.exchanger.InstallationToken(ctx, assertion, installationID)
	if err != nil {
		return "", fmt.Errorf("exchange installation token: %w", err)
	}
	return tok, nil
}

func (m *Minter) mintAssertion(id domain.SigningIdentity, now time.Time) (string, error) {
	key, err := loadPrivateKey(id.PrivateKeyPath)
	if err != nil {
		return "", err
	}
	signed, err := SignAssertion(key, id.AppID, now)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// SignAssertion signs {iat, exp: iat+AssertionTTL, iss: appID} with RS256.
func SignAssertion(key *rsa.PrivateKey, appID string, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(AssertionTTL)),
		Issuer:    appID,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign app jwt: %v: %w", err, domain.ErrAuth)
	}
	return signed, nil
}

// loadPrivateKey reads a PEM-encoded RSA key. It runs on every mint so that
// rotated key files are picked up.
func loadPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read private key: %v: %w", err, domain.ErrAuth)
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(data)
	if err != nil {
		return nil, fmt.Errorf("parse private key %s: %v: %w", path, err, domain.ErrAuth)
	}
	return key, nil
}
