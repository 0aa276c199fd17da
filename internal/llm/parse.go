package llm

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// ExtractJSONObject slices the text from the first '{' to the last '}' inclusive.
// Wrapper text around the object is tolerated; braces inside that wrapper text are not.
func ExtractJSONObject(text string) (string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return "", newError(KindMalformedResponse, NoJSONObjectMessage,
			fmt.Errorf("no JSON object found in response: %q", truncate(text, 200)))
	}
	return text[start : end+1], nil
}

// ParseListing recovers a ListingRecord from raw model output.
// The object is trusted as-is: missing fields stay empty and a field with an
// unexpected type is left at its zero value rather than rejecting the record.
func ParseListing(text string) (*ListingRecord, error) {
	jsonStr, err := ExtractJSONObject(text)
	if err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(jsonStr), &fields); err != nil {
		log.Error().Err(err).Str("json", truncate(jsonStr, 500)).Msg("failed to parse listing json")
		return nil, newError(KindMalformedResponse, MalformedDataMessage,
			fmt.Errorf("failed to parse response JSON: %w", err))
	}

	listing := &ListingRecord{Raw: json.RawMessage(jsonStr)}
	targets := map[string]any{
		"unclear_message":        &listing.UnclearMessage,
		"suggested_title":        &listing.SuggestedTitle,
		"estimated_price_range":  &listing.EstimatedPriceRange,
		"suggested_list_price":   &listing.SuggestedListPrice,
		"quick_sell_price":       &listing.QuickSellPrice,
		"new_price":              &listing.NewPrice,
		"market_stock_status":    &listing.MarketStockStatus,
		"description":            &listing.Description,
		"description_quick_sell": &listing.DescriptionQuickSell,
		"keywords":               &listing.Keywords,
		"category_suggestion":    &listing.CategorySuggestion,
		"comparable_items":       &listing.ComparableItems,
	}
	for name, target := range targets {
		raw, ok := fields[name]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, target); err != nil {
			log.Warn().Err(err).Str("field", name).Msg("ignoring listing field with unexpected type")
		}
	}
	if raw, ok := fields["is_unclear"]; ok {
		listing.IsUnclear = truthy(raw)
	}

	return listing, nil
}

// truthy reports whether a JSON value counts as set.
// Strings go through strconv.ParseBool first; any other non-empty string is true.
func truthy(raw json.RawMessage) bool {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		s := strings.TrimSpace(t)
		if b, err := strconv.ParseBool(s); err == nil {
			return b
		}
		return s != ""
	case float64:
		return t != 0
	case nil:
		return false
	default:
		return true
	}
}

// CitationsFromResponse collects the web grounding sources of the first candidate.
// Chunks without a web reference are skipped; order is preserved.
func CitationsFromResponse(resp *genai.GenerateContentResponse) []Citation {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return nil
	}
	meta := resp.Candidates[0].GroundingMetadata
	if meta == nil {
		return nil
	}

	var citations []Citation
	for _, chunk := range meta.GroundingChunks {
		if chunk == nil || chunk.Web == nil {
			continue
		}
		citations = append(citations, Citation{Title: chunk.Web.Title, URI: chunk.Web.URI})
	}
	return citations
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
