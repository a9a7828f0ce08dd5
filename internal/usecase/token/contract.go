package token

import "context"

// Exchanger trades an app JWT for an installation access token.
type Exchanger interface {
	InstallationToken(ctx context.Context, jwt, installationID string) (string, error)
}
