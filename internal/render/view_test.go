package render

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/raine/reseller-assistant/internal/assistant"
	"github.com/raine/reseller-assistant/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewView_Succeeded(t *testing.T) {
	snap := assistant.Snapshot{
		State:    assistant.Succeeded,
		Listing:  drillListing(),
		Location: "Richmond",
		DraftID:  "draft-1",
		Citations: []llm.Citation{
			{Title: "a", URI: "https://a.example/1"},
			{Title: "b", URI: "https://b.example/2"},
			{Title: "c", URI: "https://c.example/3"},
			{Title: "d", URI: "https://d.example/4"},
		},
	}

	v := NewView(snap)

	assert.Equal(t, "succeeded", v.State)
	assert.Nil(t, v.Error)
	require.NotNil(t, v.Listing)
	assert.Equal(t, "ryobi, drill, 18v", v.Listing.KeywordLine)
	assert.Len(t, v.Listing.StockRows, 3)
	assert.Len(t, v.Citations, MaxCitations)
	assert.Equal(t, "a.example", v.Citations[0].Host)
	assert.Equal(t, "draft-1", v.DraftID)
}

func TestNewView_ListingFieldsFlattenedInJSON(t *testing.T) {
	v := NewView(assistant.Snapshot{State: assistant.Succeeded, Listing: drillListing()})

	data, err := json.Marshal(v)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	listing := doc["listing"].(map[string]any)
	assert.Equal(t, "Ryobi 18V One+ Drill Driver", listing["suggested_title"])
	assert.Equal(t, "$45 AUD", listing["quick_sell_price"])
	assert.Contains(t, listing, "stock_rows")
}

func TestNewView_UnclearNeverRendersListing(t *testing.T) {
	snap := assistant.Snapshot{
		State:      assistant.NeedsClearerPhoto,
		ErrMessage: "Please retake the photo in better light.",
		Listing:    drillListing(),
		Citations:  []llm.Citation{{Title: "a"}},
	}

	v := NewView(snap)

	assert.Equal(t, "needs_clearer_photo", v.State)
	assert.Nil(t, v.Listing)
	assert.Empty(t, v.Citations)
	require.NotNil(t, v.Error)
	assert.Equal(t, "unclear_image", v.Error.Kind)
	assert.Equal(t, "Please retake the photo in better light.", v.Error.Message)
}

func TestNewView_Failed(t *testing.T) {
	snap := assistant.Snapshot{
		State:      assistant.Failed,
		Err:        llm.ErrMissingCredential,
		ErrMessage: llm.MissingCredentialMessage,
	}

	v := NewView(snap)

	require.NotNil(t, v.Error)
	assert.Equal(t, "missing_credential", v.Error.Kind)
	assert.Equal(t, llm.MissingCredentialMessage, v.Error.Message)
	assert.Nil(t, v.Listing)
}

func TestNewView_FailedWithPlainError(t *testing.T) {
	v := NewView(assistant.Snapshot{State: assistant.Failed, Err: errors.New("boom"), ErrMessage: "boom"})
	assert.Equal(t, "unknown", v.Error.Kind)
}

func TestNewView_InFlightShowsProgress(t *testing.T) {
	v := NewView(assistant.Snapshot{State: assistant.InFlight, Progress: "Checking image quality and researching Carlton market...", Location: "Carlton"})

	assert.Equal(t, "in_flight", v.State)
	assert.Equal(t, "Checking image quality and researching Carlton market...", v.Progress)
	assert.Equal(t, "Carlton", v.Location)
	assert.Nil(t, v.Listing)
}
