package render

import (
	"github.com/raine/reseller-assistant/internal/assistant"
	"github.com/raine/reseller-assistant/internal/llm"
)

// View is the JSON document the browser page renders.
type View struct {
	State     string     `json:"state"`
	Progress  string     `json:"progress,omitempty"`
	Location  string     `json:"location"`
	Error     *ViewError `json:"error,omitempty"`
	Listing   *Listing   `json:"listing,omitempty"`
	Citations []Source   `json:"citations,omitempty"`
	DraftID   string     `json:"draft_id,omitempty"`
}

// ViewError is the message shown in the "action required" panel.
type ViewError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Listing is the listing record plus values derived for display.
type Listing struct {
	*llm.ListingRecord
	StockRows   []StockRow `json:"stock_rows"`
	KeywordLine string     `json:"keyword_line"`
}

// Source is a citation with its display host.
type Source struct {
	Title string `json:"title"`
	URI   string `json:"uri,omitempty"`
	Host  string `json:"host"`
}

// NewView builds the view for a session snapshot.
// The listing is only included when the analysis succeeded.
func NewView(snap assistant.Snapshot) View {
	v := View{
		State:    snap.State.String(),
		Location: snap.Location,
	}

	switch snap.State {
	case assistant.InFlight:
		v.Progress = snap.Progress
	case assistant.Failed:
		v.Error = &ViewError{Kind: llm.KindOf(snap.Err).String(), Message: snap.ErrMessage}
	case assistant.NeedsClearerPhoto:
		v.Error = &ViewError{Kind: "unclear_image", Message: snap.ErrMessage}
	case assistant.Succeeded:
		if snap.Listing != nil {
			v.Listing = NewListing(snap.Listing)
			v.Citations = Sources(TopCitations(snap.Citations, MaxCitations))
			v.DraftID = snap.DraftID
		}
	}

	return v
}

// NewListing wraps a record with its derived display fields.
func NewListing(l *llm.ListingRecord) *Listing {
	return &Listing{
		ListingRecord: l,
		StockRows:     StockRows(l),
		KeywordLine:   KeywordLine(l.Keywords),
	}
}

// Sources converts citations for display.
func Sources(citations []llm.Citation) []Source {
	out := make([]Source, 0, len(citations))
	for _, c := range citations {
		out = append(out, Source{Title: c.Title, URI: c.URI, Host: CitationHost(c)})
	}
	return out
}
