package llm

import (
	"context"
	"encoding/json"
	"strings"
)

// AnalysisRequest is one photo plus the location the listing is aimed at.
type AnalysisRequest struct {
	Image    []byte // Raw image bytes, already stripped of any transport envelope
	MIMEType string // e.g. "image/jpeg"
	Location string // Suburb or area used to scope the market research
}

// Validate checks the preconditions of a request before it reaches the model.
func (r AnalysisRequest) Validate() error {
	switch {
	case len(r.Image) == 0:
		return newError(KindInvalidRequest, "No image provided. Please choose a photo of the item.", nil)
	case r.MIMEType == "":
		return newError(KindInvalidRequest, "The image type could not be determined.", nil)
	case strings.TrimSpace(r.Location) == "":
		return newError(KindInvalidRequest, "Please enter your suburb or area.", nil)
	}
	return nil
}

// MarketStockStatus holds the stock label reported for each secondary marketplace.
// Values are kept exactly as the model returned them.
type MarketStockStatus struct {
	Ebay           string `json:"ebay"`
	Gumtree        string `json:"gumtree"`
	CashConverters string `json:"cash_converters"`
}

// ListingRecord is the structured listing draft recovered from the model response.
// When IsUnclear is set, only UnclearMessage is meaningful.
type ListingRecord struct {
	IsUnclear            bool              `json:"is_unclear"`
	UnclearMessage       string            `json:"unclear_message,omitempty"`
	SuggestedTitle       string            `json:"suggested_title"`
	EstimatedPriceRange  string            `json:"estimated_price_range"`
	SuggestedListPrice   string            `json:"suggested_list_price"`
	QuickSellPrice       string            `json:"quick_sell_price"`
	NewPrice             string            `json:"new_price"`
	MarketStockStatus    MarketStockStatus `json:"market_stock_status"`
	Description          string            `json:"description"`
	DescriptionQuickSell string            `json:"description_quick_sell"`
	Keywords             []string          `json:"keywords"`
	CategorySuggestion   string            `json:"category_suggestion"`
	ComparableItems      []string          `json:"comparable_items"`

	// Raw is the JSON object exactly as sliced out of the response text.
	Raw json.RawMessage `json:"-"`
}

// Citation is a web source the model used to ground its answer.
// Either field may be empty when the service omitted it.
type Citation struct {
	Title string `json:"title,omitempty"`
	URI   string `json:"uri,omitempty"`
}

// ProgressFunc receives human-readable status updates for an in-flight request.
type ProgressFunc func(status string)

// Usage contains token usage and cost information.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
	CostUSD      float64
}

// RawResponse is what the model returned before interpretation.
type RawResponse struct {
	Text      string
	Citations []Citation
	Usage     Usage
}

// AnalysisResult contains the interpreted listing, its citations and usage information.
type AnalysisResult struct {
	Listing   *ListingRecord
	Citations []Citation
	Usage     Usage
}

// Analyzer turns a photo and a location into a listing draft.
type Analyzer interface {
	// Analyze issues exactly one model call and interprets its response.
	// onProgress may be nil.
	Analyze(ctx context.Context, req AnalysisRequest, onProgress ProgressFunc) (*AnalysisResult, error)
}
