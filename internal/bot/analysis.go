package bot

import (
	"context"
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/raine/reseller-assistant/internal/assistant"
	"github.com/raine/reseller-assistant/internal/llm"
	"github.com/raine/reseller-assistant/internal/render"
	"github.com/raine/reseller-assistant/internal/storage"
	"github.com/rs/zerolog/log"
)

// handlePhoto downloads the photo and starts an analysis in the background.
// The caption, when present, overrides the user's location for this photo.
// Called from session worker - no locking needed.
func (b *Bot) handlePhoto(ctx context.Context, session *UserSession, message *tgbotapi.Message) {
	as := b.assistantSession(session)
	if as.Snapshot().State == assistant.InFlight {
		session.reply(MsgAnalysisInProgress)
		return
	}

	location := strings.TrimSpace(message.Caption)
	if location == "" {
		location = b.savedLocation(session.userId)
	}

	photo := largestPhoto(message.Photo)
	data, err := downloadFileID(b.tg.GetFileDirectURL, photo.FileID)
	if err != nil {
		session.replyWithError(err)
		return
	}

	mimeType := llm.DetectMIMEType("", data)
	if !llm.IsImage(mimeType) {
		session.reply(MsgNotAnImage)
		return
	}

	req := llm.AnalysisRequest{Image: data, MIMEType: mimeType, Location: location}
	if err := req.Validate(); err != nil {
		session.reply(MsgAnalysisFailed, escapeMarkdown(err.Error()))
		return
	}

	session.startTyping(session.ctx)
	onProgress := func(status string) {
		session.Send(SessionMessage{Type: msgAnalysisProgress, Ctx: ctx, Text: status})
	}
	done := func(snap assistant.Snapshot) {
		session.Send(SessionMessage{Type: msgAnalysisComplete, Ctx: ctx, Snapshot: &snap})
	}

	err = b.svc.Start(ctx, as, req, storage.SourceTelegram, done, assistant.WithProgress(onProgress))
	if errors.Is(err, assistant.ErrBusy) {
		session.stopTypingIndicator()
		session.reply(MsgAnalysisInProgress)
	}
}

// handleAnalysisComplete replies with the outcome of a finished analysis.
// Called from session worker - no locking needed.
func (b *Bot) handleAnalysisComplete(session *UserSession, snap *assistant.Snapshot) {
	session.stopTypingIndicator()

	switch snap.State {
	case assistant.Succeeded:
		msg := tgbotapi.NewMessage(session.userId, render.ListingText(snap.Listing, snap.Citations, render.Standard, snap.Location))
		msg.DisableWebPagePreview = true
		msg.ReplyMarkup = strategyKeyboard(render.Standard, snap.DraftID)
		session.replyWithMessage(msg)
	case assistant.NeedsClearerPhoto:
		session.reply(MsgUnclearPhoto, escapeMarkdown(snap.ErrMessage))
	case assistant.Failed:
		session.reply(MsgAnalysisFailed, escapeMarkdown(snap.ErrMessage))
	default:
		log.Warn().Int64("userId", session.userId).Str("state", snap.State.String()).Msg("unexpected analysis state")
	}
}

// handleStrategyCallback re-renders a listing message with the chosen pricing strategy.
// Called from session worker - no locking needed.
func (b *Bot) handleStrategyCallback(session *UserSession, query *tgbotapi.CallbackQuery) {
	strategy, draftID, ok := parseStrategyCallback(query.Data)
	if !ok || query.Message == nil || query.Message.Chat == nil {
		return
	}

	listing, citations, location, found := b.listingFor(session, draftID)
	if !found {
		session.reply(MsgListingNotFound)
		return
	}

	edit := tgbotapi.NewEditMessageText(query.Message.Chat.ID, query.Message.MessageID,
		render.ListingText(listing, citations, strategy, location))
	edit.DisableWebPagePreview = true
	keyboard := strategyKeyboard(strategy, draftID)
	edit.ReplyMarkup = &keyboard
	if _, err := b.tg.Request(edit); err != nil {
		// Telegram rejects edits that leave the message unchanged
		log.Debug().Err(err).Str("draftID", draftID).Msg("failed to edit listing message")
	}
}

// listingFor loads the listing behind a strategy button. Saved drafts are
// looked up by ID; without one the user's last result is used.
func (b *Bot) listingFor(session *UserSession, draftID string) (*llm.ListingRecord, []llm.Citation, string, bool) {
	if draftID != "" {
		draft, err := b.store.GetDraft(draftID)
		if err != nil {
			log.Error().Err(err).Str("draftID", draftID).Msg("failed to get draft")
			return nil, nil, "", false
		}
		if draft == nil || draft.Owner != session.ownerID() {
			return nil, nil, "", false
		}
		return draft.Listing, draft.Citations, draft.Location, true
	}

	snap := b.assistantSession(session).Snapshot()
	if snap.State != assistant.Succeeded || snap.Listing == nil {
		return nil, nil, "", false
	}
	return snap.Listing, snap.Citations, snap.Location, true
}
