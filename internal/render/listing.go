package render

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/lithammer/dedent"
	"github.com/raine/reseller-assistant/internal/llm"
)

// MaxCitations is how many sources the front-ends show.
const MaxCitations = 3

// Strategy selects which price and description variant is shown.
type Strategy string

const (
	Standard  Strategy = "standard"
	QuickSell Strategy = "quick"
)

// ParseStrategy maps user input to a Strategy, defaulting to Standard.
func ParseStrategy(s string) Strategy {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "quick", "quick_sell", "quicksell":
		return QuickSell
	default:
		return Standard
	}
}

// Title is the heading shown above the listing for the strategy.
func (s Strategy) Title() string {
	if s == QuickSell {
		return "Quick Sell Listing"
	}
	return "Standard Listing"
}

// PriceFor returns the list price for the strategy.
func PriceFor(l *llm.ListingRecord, s Strategy) string {
	if s == QuickSell {
		return l.QuickSellPrice
	}
	return l.SuggestedListPrice
}

// DescriptionFor returns the description variant for the strategy.
func DescriptionFor(l *llm.ListingRecord, s Strategy) string {
	if s == QuickSell {
		return l.DescriptionQuickSell
	}
	return l.Description
}

// IsNoStock reports whether a stock label means the marketplace has no matching items.
func IsNoStock(status string) bool {
	return strings.Contains(strings.ToLower(status), "no stock")
}

// StockRow is one marketplace line of the availability panel.
type StockRow struct {
	Label   string `json:"label"`
	Status  string `json:"status"`
	NoStock bool   `json:"no_stock"`
}

// StockRows returns the availability rows in display order.
func StockRows(l *llm.ListingRecord) []StockRow {
	rows := []StockRow{
		{Label: "eBay AU", Status: l.MarketStockStatus.Ebay},
		{Label: "Gumtree AU", Status: l.MarketStockStatus.Gumtree},
		{Label: "Cash Converters", Status: l.MarketStockStatus.CashConverters},
	}
	for i := range rows {
		rows[i].NoStock = IsNoStock(rows[i].Status)
	}
	return rows
}

// TopCitations returns at most n citations, in response order.
func TopCitations(citations []llm.Citation, n int) []llm.Citation {
	if len(citations) <= n {
		return citations
	}
	return citations[:n]
}

// CitationHost returns the hostname of a citation URI, or "Reference" when it has none.
func CitationHost(c llm.Citation) string {
	if c.URI == "" {
		return "Reference"
	}
	u, err := url.Parse(c.URI)
	if err != nil || u.Hostname() == "" {
		return "Reference"
	}
	return u.Hostname()
}

// KeywordLine joins keywords into a single copyable line.
func KeywordLine(keywords []string) string {
	return strings.Join(keywords, ", ")
}

const listingTextTemplate = `
	%s
	%s

	Price: %s (new: %s)
	Market range: %s
	Category: %s

	Market availability:
	%s

	%s

	Keywords: %s
`

// ListingText renders a plain-text listing for chat and terminal output.
func ListingText(l *llm.ListingRecord, citations []llm.Citation, s Strategy, location string) string {
	var stock strings.Builder
	for i, row := range StockRows(l) {
		if i > 0 {
			stock.WriteString("\n")
		}
		mark := "✅"
		if row.NoStock {
			mark = "❌"
		}
		fmt.Fprintf(&stock, "%s %s: %s", mark, row.Label, row.Status)
	}

	text := fmt.Sprintf(strings.TrimSpace(dedent.Dedent(listingTextTemplate)),
		s.Title(),
		l.SuggestedTitle,
		PriceFor(l, s),
		l.NewPrice,
		l.EstimatedPriceRange,
		l.CategorySuggestion,
		stock.String(),
		DescriptionFor(l, s),
		KeywordLine(l.Keywords),
	)

	var sb strings.Builder
	sb.WriteString(text)

	if top := TopCitations(citations, MaxCitations); len(top) > 0 {
		sb.WriteString("\n\nSources:")
		for _, c := range top {
			title := c.Title
			if title == "" {
				title = CitationHost(c)
			}
			if c.URI != "" {
				fmt.Fprintf(&sb, "\n- %s (%s)", title, c.URI)
			} else {
				fmt.Fprintf(&sb, "\n- %s", title)
			}
		}
	}

	if location != "" {
		fmt.Fprintf(&sb, "\n\nTailored for %s", location)
	}

	return sb.String()
}
