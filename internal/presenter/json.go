package presenter

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/kailas-cloud/ratewatch/internal/domain"
)

// Document is the JSON snapshot of one poll cycle.
type Document struct {
	Timestamp string                     `json:"timestamp"`
	Accounts  map[string]AccountDocument `json:"accounts"`
}

// AccountDocument holds one account's raw quota objects, or an error in place of each.
type AccountDocument struct {
	AppID          string `json:"app_id,omitempty"`
	InstallationID string `json:"installation_id,omitempty"`
	REST           any    `json:"rest_api"`
	GraphQL        any    `json:"graphql"`
}

type errorDocument struct {
	Error string `json:"error"`
}

// JSON renders results as an indented JSON document.
type JSON struct {
	now func() time.Time
}

// NewJSON creates a JSON presenter.
func NewJSON() *JSON {
	return &JSON{now: time.Now}
}

// WithClock overrides the timestamp source.
func (j *JSON) WithClock(now func() time.Time) *JSON {
	j.now = now
	return j
}

// Build converts results into a Document.
func (j *JSON) Build(results domain.Results) Document {
	doc := Document{
		Timestamp: j.now().UTC().Format(time.RFC3339),
		Accounts:  make(map[string]AccountDocument, len(results)),
	}
	for name, snap := range results {
		acc := AccountDocument{
			AppID:          snap.Account.AppID,
			InstallationID: snap.Account.InstallationID,
		}
		if v, ok := snap.REST.Value(); ok {
			acc.REST = v
		} else {
			acc.REST = errorDocument{Error: errorText(snap.REST.Err())}
		}
		if v, ok := snap.GraphQL.Value(); ok {
			acc.GraphQL = v
		} else {
			acc.GraphQL = errorDocument{Error: errorText(snap.GraphQL.Err())}
		}
		doc.Accounts[name] = acc
	}
	return doc
}

// Render writes the document followed by a newline.
func (j *JSON) Render(w io.Writer, results domain.Results) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(j.Build(results)); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

func errorText(err error) string {
	if err == nil {
		return domain.ErrInternal.Error()
	}
	return err.Error()
}
