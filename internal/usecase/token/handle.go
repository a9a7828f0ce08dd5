package token

import (
	"sync"

	"github.com/kailas-cloud/ratewatch/internal/domain"
)

// Handle is the per-account runtime state: the immutable account, the
// exchanger bound to the account's own API client, and the cached token.
// The cache is mutated only by Minter.AccessToken under mu.
type Handle struct {
	account   domain.Account
	exchanger Exchanger

	mu     sync.Mutex
	cached domain.AccessToken
}

// NewHandle creates a handle for acc. exchanger may be nil for static-token accounts.
func NewHandle(acc domain.Account, exchanger Exchanger) *Handle {
	return &Handle{account: acc, exchanger: exchanger}
}

// Account returns the account the handle belongs to.
func (h *Handle) Account() domain.Account { return h.account }
