package assistant

import (
	"context"

	"github.com/raine/reseller-assistant/internal/llm"
	"github.com/raine/reseller-assistant/internal/storage"
	"github.com/rs/zerolog/log"
)

// DraftStore persists successful analyses.
type DraftStore interface {
	SaveDraft(draft *storage.Draft) error
}

// Service drives submissions through the analyzer and records their outcome.
type Service struct {
	analyzer llm.Analyzer
	drafts   DraftStore
}

// NewService creates a Service. drafts may be nil to disable history.
func NewService(analyzer llm.Analyzer, drafts DraftStore) *Service {
	return &Service{analyzer: analyzer, drafts: drafts}
}

// RunOption customizes a single submission.
type RunOption func(*runOptions)

type runOptions struct {
	onProgress llm.ProgressFunc
}

// WithProgress forwards status updates to fn in addition to the session.
func WithProgress(fn llm.ProgressFunc) RunOption {
	return func(o *runOptions) {
		o.onProgress = fn
	}
}

// Run submits req on session and blocks until the analysis resolves.
// The returned error is ErrBusy when the session already has an analysis in
// flight; analysis failures are reported through the snapshot instead.
func (svc *Service) Run(ctx context.Context, session *Session, req llm.AnalysisRequest, source string, opts ...RunOption) (Snapshot, error) {
	if err := session.Submit(req.Location); err != nil {
		return session.Snapshot(), err
	}
	return svc.analyze(ctx, session, req, source, opts), nil
}

// Start submits req on session and resolves it in the background, calling
// done with the final snapshot. Returns ErrBusy without calling done when an
// analysis is already in flight.
func (svc *Service) Start(ctx context.Context, session *Session, req llm.AnalysisRequest, source string, done func(Snapshot), opts ...RunOption) error {
	if err := session.Submit(req.Location); err != nil {
		return err
	}
	go func() {
		done(svc.analyze(ctx, session, req, source, opts))
	}()
	return nil
}

func (svc *Service) analyze(ctx context.Context, session *Session, req llm.AnalysisRequest, source string, opts []RunOption) Snapshot {
	var o runOptions
	for _, opt := range opts {
		opt(&o)
	}

	log.Info().
		Str("session", session.ID()).
		Str("source", source).
		Str("location", req.Location).
		Int("imageBytes", len(req.Image)).
		Msg("analysis submitted")

	onProgress := func(status string) {
		session.SetProgress(status)
		if o.onProgress != nil {
			o.onProgress(status)
		}
	}

	result, err := svc.analyzer.Analyze(ctx, req, onProgress)

	var draftID string
	if err == nil && result != nil && result.Listing != nil && !result.Listing.IsUnclear {
		draftID = svc.saveDraft(session.ID(), source, req.Location, result)
	}

	snap := session.resolve(result, err, draftID)

	event := log.Info()
	if snap.State == Failed {
		event = log.Warn().Err(snap.Err).Str("kind", llm.KindOf(snap.Err).String())
	}
	event.
		Str("session", session.ID()).
		Str("state", snap.State.String()).
		Str("draftID", snap.DraftID).
		Msg("analysis resolved")

	return snap
}

// saveDraft stores the result and returns the draft ID, or "" when it could not be saved.
func (svc *Service) saveDraft(owner, source, location string, result *llm.AnalysisResult) string {
	if svc.drafts == nil {
		return ""
	}
	draft := &storage.Draft{
		Source:    source,
		Owner:     owner,
		Location:  location,
		Listing:   result.Listing,
		Citations: result.Citations,
	}
	if err := svc.drafts.SaveDraft(draft); err != nil {
		log.Error().Err(err).Str("owner", owner).Msg("failed to save draft")
		return ""
	}
	return draft.ID
}
