// Package presenter renders poll results as console text, JSON, or Prometheus metrics.
package presenter

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/kailas-cloud/ratewatch/internal/domain"
)

const (
	ruleWidth  = 80
	timeLayout = "2006-01-02 15:04:05 UTC"
)

// Text renders results as human-readable blocks, one per account.
type Text struct {
	now     func() time.Time
	graphql bool
}

// NewText creates a text presenter that includes the GraphQL section.
func NewText() *Text {
	return &Text{now: time.Now, graphql: true}
}

// WithClock overrides the render time source.
func (t *Text) WithClock(now func() time.Time) *Text {
	t.now = now
	return t
}

// WithoutGraphQL omits the GraphQL section.
func (t *Text) WithoutGraphQL() *Text {
	t.graphql = false
	return t
}

// Render writes every account in name order.
func (t *Text) Render(w io.Writer, results domain.Results) error {
	now := t.now().UTC()
	bw := bufio.NewWriter(w)
	for _, name := range results.Names() {
		t.renderAccount(bw, name, results[name], now)
	}
	return bw.Flush()
}

func (t *Text) renderAccount(w io.Writer, name string, snap domain.Snapshot, now time.Time) {
	rule := strings.Repeat("=", ruleWidth)

	fmt.Fprintf(w, "\n%s\n", rule)
	fmt.Fprintf(w, "GitHub API Rate Limit Status - %s - %s\n", accountTitle(name, snap.Account), now.Format(timeLayout))
	fmt.Fprintf(w, "%s\n\n", rule)

	if limits, ok := snap.REST.Value(); ok {
		renderResources(w, limits, now)
	} else {
		fmt.Fprintf(w, "Error checking rate limits: %v\n\n", snap.REST.Err())
	}

	if !t.graphql {
		return
	}

	fmt.Fprintf(w, "%s\nGraphQL API Rate Limit\n%s\n\n", rule, rule)
	gql, ok := snap.GraphQL.Value()
	if !ok {
		fmt.Fprintf(w, "Error checking GraphQL rate limits: %v\n\n", snap.GraphQL.Err())
		return
	}
	fmt.Fprintf(w, "Status:          %s\n", domain.Classify(gql.Remaining, gql.Limit))
	fmt.Fprintf(w, "Limit:           %6d\n", gql.Limit)
	fmt.Fprintf(w, "Used:            %6d\n", gql.Used)
	fmt.Fprintf(w, "Remaining:       %6d (%5.1f%%)\n", gql.Remaining, domain.RemainingPercent(gql.Remaining, gql.Limit))
	fmt.Fprintf(w, "Last Query Cost: %d\n", gql.Cost)
	fmt.Fprintf(w, "Node Count:      %d\n", gql.NodeCount)
	fmt.Fprintf(w, "Resets at:       %s\n\n", gql.ResetAt)
}

func renderResources(w io.Writer, limits domain.RateLimits, now time.Time) {
	names := make([]string, 0, len(limits.Resources))
	for name := range limits.Resources {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		rl := limits.Resources[name]
		fmt.Fprintf(w, "%-20s %s\n", strings.ToUpper(name), domain.Classify(rl.Remaining, rl.Limit))
		fmt.Fprintf(w, "  Limit:     %6d\n", rl.Limit)
		fmt.Fprintf(w, "  Used:      %6d (%5.1f%%)\n", rl.Used, domain.UsedPercent(rl.Used, rl.Limit))
		fmt.Fprintf(w, "  Remaining: %6d (%5.1f%%)\n", rl.Remaining, domain.RemainingPercent(rl.Remaining, rl.Limit))
		fmt.Fprintf(w, "  Resets at: %s\n\n", FormatReset(rl.Reset, now))
	}
}

func accountTitle(name string, info domain.AccountInfo) string {
	if info.AppID == "" {
		return name
	}
	if info.InstallationID == "" {
		return fmt.Sprintf("%s (app %s)", name, info.AppID)
	}
	return fmt.Sprintf("%s (app %s, installation %s)", name, info.AppID, info.InstallationID)
}

// FormatReset renders an epoch reset instant relative to now. Past instants
// produce negative minutes; seconds are always taken modulo 60 toward the floor.
func FormatReset(reset int64, now time.Time) string {
	at := time.Unix(reset, 0).UTC()
	delta := at.Sub(now).Seconds()

	minutes := int(delta / 60)
	rem := math.Mod(delta, 60)
	if rem < 0 {
		rem += 60
	}
	return fmt.Sprintf("%s (in %dm %ds remaining)", at.Format(timeLayout), minutes, int(rem))
}
