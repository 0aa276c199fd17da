package llm

import (
	"errors"
	"testing"

	"github.com/lithammer/dedent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    string
		wantErr bool
	}{
		{name: "pure object", text: `{"a":1}`, want: `{"a":1}`},
		{name: "wrapped in prose", text: `Sure! {"a":1} Hope that helps.`, want: `{"a":1}`},
		{name: "markdown fence", text: "```json\n{\"a\":{\"b\":2}}\n```", want: `{"a":{"b":2}}`},
		{name: "no braces", text: "I cannot process this.", wantErr: true},
		{name: "only opening brace", text: `{"a":1`, wantErr: true},
		{name: "only closing brace", text: `"a":1}`, wantErr: true},
		{name: "closing before opening", text: `} oops {`, wantErr: true},
		{name: "empty", text: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSONObject(tt.text)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrMalformedResponse))
				assert.Equal(t, NoJSONObjectMessage, err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseListing_WrappedObject(t *testing.T) {
	listing, err := ParseListing(`Sure! {"is_unclear": false, "suggested_title": "iPhone 11", "keywords": ["iphone", "apple"]} Let me know.`)
	require.NoError(t, err)

	assert.False(t, listing.IsUnclear)
	assert.Equal(t, "iPhone 11", listing.SuggestedTitle)
	assert.Equal(t, []string{"iphone", "apple"}, listing.Keywords)
	assert.JSONEq(t, `{"is_unclear": false, "suggested_title": "iPhone 11", "keywords": ["iphone", "apple"]}`, string(listing.Raw))
}

func TestParseListing_FullRecord(t *testing.T) {
	text := dedent.Dedent(`
		Here is the research you asked for:
		{
		  "is_unclear": false,
		  "unclear_message": "",
		  "suggested_title": "Ryobi 18V One+ Drill Driver - Great Condition",
		  "estimated_price_range": "$40 - $70 AUD",
		  "suggested_list_price": "$65 AUD",
		  "quick_sell_price": "$45 AUD",
		  "new_price": "$99 AUD (Retail Price)",
		  "market_stock_status": {
		    "ebay": "No Stock",
		    "gumtree": "In Stock",
		    "cash_converters": "No Stock"
		  },
		  "description": "Handy drill. Cash only & will only meet in a public place.",
		  "description_quick_sell": "Priced to sell quickly! Cash only & will only meet in a public place.",
		  "keywords": ["ryobi", "drill", "one+", "18v", "cordless"],
		  "category_suggestion": "Tools & DIY",
		  "comparable_items": ["Ozito 18V drill", "Makita DHP482"]
		}
	`)

	listing, err := ParseListing(text)
	require.NoError(t, err)

	assert.Equal(t, "Ryobi 18V One+ Drill Driver - Great Condition", listing.SuggestedTitle)
	assert.Equal(t, "$40 - $70 AUD", listing.EstimatedPriceRange)
	assert.Equal(t, "$65 AUD", listing.SuggestedListPrice)
	assert.Equal(t, "$45 AUD", listing.QuickSellPrice)
	assert.Equal(t, "$99 AUD (Retail Price)", listing.NewPrice)
	assert.Equal(t, MarketStockStatus{Ebay: "No Stock", Gumtree: "In Stock", CashConverters: "No Stock"}, listing.MarketStockStatus)
	assert.Len(t, listing.Keywords, 5)
	assert.Equal(t, "Tools & DIY", listing.CategorySuggestion)
	assert.Equal(t, []string{"Ozito 18V drill", "Makita DHP482"}, listing.ComparableItems)
}

func TestParseListing_StockStatusKeptVerbatim(t *testing.T) {
	listing, err := ParseListing(`{"market_stock_status": {"ebay": "no STOCK ", "gumtree": "Recent Sales", "cash_converters": "In Stock"}}`)
	require.NoError(t, err)

	assert.Equal(t, "no STOCK ", listing.MarketStockStatus.Ebay)
	assert.Equal(t, "Recent Sales", listing.MarketStockStatus.Gumtree)
	assert.Equal(t, "In Stock", listing.MarketStockStatus.CashConverters)
}

func TestParseListing_Unclear(t *testing.T) {
	listing, err := ParseListing(`{"is_unclear": true, "unclear_message": "Photo too dark"}`)
	require.NoError(t, err)

	assert.True(t, listing.IsUnclear)
	assert.Equal(t, "Photo too dark", listing.UnclearMessage)
	assert.Empty(t, listing.SuggestedTitle)
}

func TestParseListing_UnclearFlagTypes(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{raw: `true`, want: true},
		{raw: `false`, want: false},
		{raw: `"true"`, want: true},
		{raw: `"TRUE"`, want: true},
		{raw: `"false"`, want: false},
		{raw: `"yes"`, want: true},
		{raw: `""`, want: false},
		{raw: `1`, want: true},
		{raw: `0`, want: false},
		{raw: `null`, want: false},
		{raw: `{}`, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			listing, err := ParseListing(`{"is_unclear": ` + tt.raw + `, "unclear_message": "Photo too dark"}`)
			require.NoError(t, err)
			assert.Equal(t, tt.want, listing.IsUnclear)
		})
	}
}

func TestParseListing_NoJSON(t *testing.T) {
	listing, err := ParseListing("I cannot process this.")
	assert.Nil(t, listing)
	assert.True(t, errors.Is(err, ErrMalformedResponse))
	assert.Equal(t, KindMalformedResponse, KindOf(err))
}

func TestParseListing_InvalidJSON(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "truncated", text: `{"suggested_title": "iPhone 11", "keywords": ["a", "b"}`},
		{name: "trailing comma", text: `{"suggested_title": "iPhone 11",}`},
		{name: "stray brace in wrapper text", text: `{"suggested_title": "iPhone 11"} see {note}`},
		{name: "two objects", text: `{"a": 1} and {"b": 2}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			listing, err := ParseListing(tt.text)
			assert.Nil(t, listing)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedResponse))
			assert.Equal(t, MalformedDataMessage, err.Error())
		})
	}
}

func TestParseListing_MistypedFieldLeftEmpty(t *testing.T) {
	listing, err := ParseListing(`{"suggested_title": "Desk lamp", "keywords": "lamp, desk", "comparable_items": 3}`)
	require.NoError(t, err)

	assert.Equal(t, "Desk lamp", listing.SuggestedTitle)
	assert.Nil(t, listing.Keywords)
	assert.Nil(t, listing.ComparableItems)
}

func TestCitationsFromResponse(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			GroundingMetadata: &genai.GroundingMetadata{
				GroundingChunks: []*genai.GroundingChunk{
					{Web: &genai.GroundingChunkWeb{Title: "eBay AU", URI: "https://ebay.com.au/a"}},
					{RetrievedContext: &genai.GroundingChunkRetrievedContext{}},
					{Web: &genai.GroundingChunkWeb{URI: "https://gumtree.com.au/b"}},
					nil,
					{Web: &genai.GroundingChunkWeb{Title: "eBay AU", URI: "https://ebay.com.au/a"}},
				},
			},
		}},
	}

	got := CitationsFromResponse(resp)

	assert.Equal(t, []Citation{
		{Title: "eBay AU", URI: "https://ebay.com.au/a"},
		{URI: "https://gumtree.com.au/b"},
		{Title: "eBay AU", URI: "https://ebay.com.au/a"},
	}, got)
}

func TestCitationsFromResponse_NoMetadata(t *testing.T) {
	assert.Empty(t, CitationsFromResponse(nil))
	assert.Empty(t, CitationsFromResponse(&genai.GenerateContentResponse{}))
	assert.Empty(t, CitationsFromResponse(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{}},
	}))
}
