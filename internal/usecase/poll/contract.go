package poll

import (
	"context"
	"io"

	"github.com/kailas-cloud/ratewatch/internal/domain"
)

// Checker runs one poll cycle across all accounts.
type Checker interface {
	CheckAll(ctx context.Context) domain.Results
}

// Renderer writes one cycle's results.
type Renderer interface {
	Render(w io.Writer, results domain.Results) error
}
