package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/raine/reseller-assistant/internal/assistant"
	"github.com/raine/reseller-assistant/internal/llm"
	"github.com/raine/reseller-assistant/internal/render"
	"github.com/raine/reseller-assistant/internal/storage"
	"github.com/rs/zerolog/log"
)

const (
	defaultDraftLimit = 20
	maxDraftLimit     = 100

	// multipartOverhead leaves room for the location field and part headers.
	multipartOverhead = 64 << 10
)

func (s *Server) session(c *gin.Context) *assistant.Session {
	return s.sessions.Get(c.GetString(sessionKey))
}

func errorJSON(c *gin.Context, status int, kind, message string) {
	c.JSON(status, gin.H{"error": render.ViewError{Kind: kind, Message: message}})
}

// analyze handles POST /api/analyze with a multipart "image" file and "location" field.
func (s *Server) analyze(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxUploadBytes+multipartOverhead)

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			errorJSON(c, http.StatusRequestEntityTooLarge, "too_large", tooLargeMessage(s.opts.MaxUploadBytes))
			return
		}
		errorJSON(c, http.StatusBadRequest, llm.KindInvalidRequest.String(), "No image provided. Please choose a photo of the item.")
		return
	}
	defer file.Close()

	if header.Size > s.opts.MaxUploadBytes {
		errorJSON(c, http.StatusRequestEntityTooLarge, "too_large", tooLargeMessage(s.opts.MaxUploadBytes))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		log.Error().Err(err).Msg("failed to read upload")
		errorJSON(c, http.StatusBadRequest, llm.KindInvalidRequest.String(), "The photo could not be read. Please try again.")
		return
	}

	mimeType := llm.DetectMIMEType(header.Header.Get("Content-Type"), data)
	if !llm.IsImage(mimeType) {
		errorJSON(c, http.StatusBadRequest, llm.KindInvalidRequest.String(), "The file is not an image. Please choose a photo.")
		return
	}

	req := llm.AnalysisRequest{
		Image:    data,
		MIMEType: mimeType,
		Location: strings.TrimSpace(c.PostForm("location")),
	}
	if err := req.Validate(); err != nil {
		errorJSON(c, http.StatusBadRequest, llm.KindOf(err).String(), err.Error())
		return
	}

	// A dropped connection must not abort a model call that is already issued;
	// the page picks the result up by polling /api/session.
	ctx := context.WithoutCancel(c.Request.Context())

	session := s.session(c)
	snap, err := s.svc.Run(ctx, session, req, storage.SourceWeb)
	if errors.Is(err, assistant.ErrBusy) {
		c.JSON(http.StatusConflict, render.NewView(snap))
		return
	}

	c.JSON(statusFor(snap), render.NewView(snap))
}

func tooLargeMessage(limit int64) string {
	return fmt.Sprintf("The photo is too large. The maximum size is %d MB.", limit>>20)
}

// statusFor maps a resolved snapshot to the HTTP status of the analyze response.
func statusFor(snap assistant.Snapshot) int {
	if snap.State != assistant.Failed {
		return http.StatusOK
	}
	switch llm.KindOf(snap.Err) {
	case llm.KindMissingCredential:
		return http.StatusServiceUnavailable
	case llm.KindTransport:
		return http.StatusBadGateway
	case llm.KindMalformedResponse:
		return http.StatusUnprocessableEntity
	case llm.KindInvalidRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) getSession(c *gin.Context) {
	sid := c.GetString(sessionKey)
	session, ok := s.sessions.Lookup(sid)
	if !ok {
		c.JSON(http.StatusOK, render.NewView(assistant.Snapshot{State: assistant.Idle, Location: s.opts.DefaultLocation}))
		return
	}
	c.JSON(http.StatusOK, render.NewView(session.Snapshot()))
}

func (s *Server) resetSession(c *gin.Context) {
	session := s.session(c)
	if err := session.Reset(); err != nil {
		c.JSON(http.StatusConflict, render.NewView(session.Snapshot()))
		return
	}
	c.JSON(http.StatusOK, render.NewView(session.Snapshot()))
}

type draftSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Price     string    `json:"price"`
	Location  string    `json:"location"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

type draftDetail struct {
	ID        string          `json:"id"`
	Location  string          `json:"location"`
	CreatedAt time.Time       `json:"created_at"`
	Listing   *render.Listing `json:"listing"`
	Citations []render.Source `json:"citations"`
	Text      string          `json:"text"`
}

func (s *Server) listDrafts(c *gin.Context) {
	limit := defaultDraftLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			errorJSON(c, http.StatusBadRequest, llm.KindInvalidRequest.String(), "limit must be a positive number")
			return
		}
		limit = min(n, maxDraftLimit)
	}

	drafts, err := s.drafts.ListDrafts(c.GetString(sessionKey), limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to list drafts")
		errorJSON(c, http.StatusInternalServerError, "storage", "Could not load your drafts.")
		return
	}

	out := make([]draftSummary, 0, len(drafts))
	for _, d := range drafts {
		out = append(out, draftSummary{
			ID:        d.ID,
			Title:     d.Listing.SuggestedTitle,
			Price:     d.Listing.SuggestedListPrice,
			Location:  d.Location,
			Source:    d.Source,
			CreatedAt: d.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"drafts": out})
}

// ownDraft loads a draft of the calling session, writing the error response when it can't.
func (s *Server) ownDraft(c *gin.Context) (*storage.Draft, bool) {
	draft, err := s.drafts.GetDraft(c.Param("id"))
	if err != nil {
		log.Error().Err(err).Str("id", c.Param("id")).Msg("failed to get draft")
		errorJSON(c, http.StatusInternalServerError, "storage", "Could not load the draft.")
		return nil, false
	}
	if draft == nil || draft.Owner != c.GetString(sessionKey) {
		errorJSON(c, http.StatusNotFound, "not_found", "Draft not found.")
		return nil, false
	}
	return draft, true
}

func (s *Server) getDraft(c *gin.Context) {
	draft, ok := s.ownDraft(c)
	if !ok {
		return
	}

	strategy := render.ParseStrategy(c.Query("strategy"))
	c.JSON(http.StatusOK, draftDetail{
		ID:        draft.ID,
		Location:  draft.Location,
		CreatedAt: draft.CreatedAt,
		Listing:   render.NewListing(draft.Listing),
		Citations: render.Sources(render.TopCitations(draft.Citations, render.MaxCitations)),
		Text:      render.ListingText(draft.Listing, draft.Citations, strategy, draft.Location),
	})
}

func (s *Server) deleteDraft(c *gin.Context) {
	draft, ok := s.ownDraft(c)
	if !ok {
		return
	}
	if err := s.drafts.DeleteDraft(draft.ID); err != nil {
		log.Error().Err(err).Str("id", draft.ID).Msg("failed to delete draft")
		errorJSON(c, http.StatusInternalServerError, "storage", "Could not delete the draft.")
		return
	}
	c.Status(http.StatusNoContent)
}
