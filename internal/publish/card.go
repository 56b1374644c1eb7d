package publish

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"garden-volume-watch/internal/domain"
)

// CardRenderer writes one markdown card per outcome into Dir.
type CardRenderer struct {
	Dir string
}

// NewCardRenderer creates a renderer that writes into dir.
func NewCardRenderer(dir string) *CardRenderer {
	return &CardRenderer{Dir: dir}
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// Render writes <order id>.md and returns its path. Existing cards are overwritten.
func (r *CardRenderer) Render(ctx context.Context, o *domain.NormalizedOutcome) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if o == nil || o.OrderID == "" {
		return "", fmt.Errorf("render card: missing order id")
	}
	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create card dir: %w", err)
	}

	path := filepath.Join(r.Dir, unsafeFileChars.ReplaceAllString(o.OrderID, "_")+".md")
	if err := os.WriteFile(path, []byte(RenderCard(o)), 0o644); err != nil {
		return "", fmt.Errorf("write card: %w", err)
	}
	return path, nil
}

// RenderCard renders an outcome as a Markdown card.
func RenderCard(o *domain.NormalizedOutcome) string {
	var sb strings.Builder

	src, dst := FormatChainName(o.SourceChain), FormatChainName(o.DestinationChain)

	sb.WriteString(fmt.Sprintf("# %s → %s\n\n", src, dst))
	sb.WriteString(fmt.Sprintf("**%s** swapped on Garden\n\n", FormatCurrency(o.VolumeUSD)))
	sb.WriteString(fmt.Sprintf("Order: `%s`\n\n", o.OrderID))
	if !o.CreatedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("Created: %s\n\n", o.CreatedAt.UTC().Format(time.RFC3339)))
	}

	sb.WriteString("## Swap\n\n")
	sb.WriteString("| Leg | Chain | Asset | Amount |\n")
	sb.WriteString("|-----|-------|-------|--------|\n")
	sb.WriteString(fmt.Sprintf("| Source | %s | %s | %s |\n", src, o.SourceAsset, formatQuantity(o.SourceAmount)))
	sb.WriteString(fmt.Sprintf("| Destination | %s | %s | %s |\n", dst, o.DestinationAsset, formatQuantity(o.DestinationAmount)))
	sb.WriteString("\n")

	sb.WriteString("## Garden vs Others\n\n")
	if o.CompetitorMaxFeeDisplay == "" && o.CompetitorMaxTimeDisplay == "" {
		sb.WriteString("No competitor quotes available.\n")
		return sb.String()
	}
	sb.WriteString("| Metric | Others (max) | Saved |\n")
	sb.WriteString("|--------|--------------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Fee | %s | %s |\n", o.CompetitorMaxFeeDisplay, FormatCurrency(o.FeeSavedUSD)))
	sb.WriteString(fmt.Sprintf("| Time | %s | %s |\n", o.CompetitorMaxTimeDisplay, o.TimeSavedDisplay))
	sb.WriteString("\n")

	return sb.String()
}

func formatQuantity(q float64) string {
	s := fmt.Sprintf("%.8f", q)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// Verify interface compliance
var _ Renderer = (*CardRenderer)(nil)
