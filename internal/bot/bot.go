package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/raine/reseller-assistant/internal/assistant"
	"github.com/raine/reseller-assistant/internal/storage"
	"github.com/rs/zerolog/log"
)

const historyLimit = 5

// BotAPI defines the interface for Telegram bot API operations.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Bot is the main Telegram bot handler.
type Bot struct {
	tg              BotAPI
	state           *BotState
	store           storage.Store
	svc             *assistant.Service
	sessions        *assistant.Registry
	adminID         int64
	defaultLocation string
}

// NewBot creates a new Bot instance. sessions holds the analysis state of
// each user, keyed by Telegram user ID.
func NewBot(tg BotAPI, store storage.Store, svc *assistant.Service, sessions *assistant.Registry, adminID int64, defaultLocation string) *Bot {
	bot := &Bot{
		tg:              tg,
		store:           store,
		svc:             svc,
		sessions:        sessions,
		adminID:         adminID,
		defaultLocation: defaultLocation,
	}
	bot.state = bot.NewBotState()
	return bot
}

// Shutdown stops all session workers.
func (b *Bot) Shutdown() {
	b.state.Shutdown()
}

// HandleUpdate is the main message router.
// It dispatches messages to the appropriate session worker for sequential processing.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	b.dispatchUpdate(ctx, update, false)
}

// handleUpdateSync is like HandleUpdate but waits for message processing to complete.
// Used in tests where we need synchronous behavior.
func (b *Bot) handleUpdateSync(ctx context.Context, update tgbotapi.Update) {
	b.dispatchUpdate(ctx, update, true)
}

// dispatchUpdate routes updates to the appropriate session worker.
// If sync is true, it waits for message processing to complete.
func (b *Bot) dispatchUpdate(ctx context.Context, update tgbotapi.Update, sync bool) {
	var userId int64

	switch {
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
		userId = update.CallbackQuery.From.ID
	case update.Message != nil && update.Message.From != nil:
		userId = update.Message.From.ID
	default:
		return
	}

	// Check if user is allowed (admin always allowed)
	// MUST be before getUserSession to prevent memory exhaustion from random user IDs
	if userId != b.adminID {
		allowed, err := b.store.IsUserAllowed(userId)
		if err != nil {
			log.Error().Err(err).Int64("user_id", userId).Msg("whitelist check failed")
			return // Fail closed
		}
		if !allowed {
			log.Debug().Int64("user_id", userId).Msg("dropping update from unknown user")
			return
		}
	}

	session := b.state.getUserSession(userId)

	send := func(msg SessionMessage) {
		if sync {
			session.SendSync(msg)
		} else {
			session.Send(msg)
		}
	}

	if update.CallbackQuery != nil {
		send(SessionMessage{
			Type:          msgCallback,
			Ctx:           ctx,
			CallbackQuery: update.CallbackQuery,
		})
		return
	}

	log.Info().
		Int64("userId", userId).
		Str("text", update.Message.Text).
		Str("caption", update.Message.Caption).
		Int("photos", len(update.Message.Photo)).
		Msg("got message")

	if len(update.Message.Photo) > 0 {
		send(SessionMessage{Type: msgPhoto, Ctx: ctx, Message: update.Message})
	} else {
		send(SessionMessage{Type: msgText, Ctx: ctx, Message: update.Message})
	}
}

// HandleSessionMessage implements MessageHandler interface.
// This is called by the session worker goroutine for sequential processing.
func (b *Bot) HandleSessionMessage(ctx context.Context, session *UserSession, msg SessionMessage) {
	switch msg.Type {
	case msgCallback:
		b.handleCallbackQuery(ctx, session, msg.CallbackQuery)
	case msgPhoto:
		b.handlePhoto(ctx, session, msg.Message)
	case msgText:
		b.handleCommand(ctx, session, msg.Message)
	case msgAnalysisProgress:
		session.reply(MsgAnalysisProgress, escapeMarkdown(msg.Text))
	case msgAnalysisComplete:
		b.handleAnalysisComplete(session, msg.Snapshot)
	}
}

// assistantSession returns the analysis state of the user.
func (b *Bot) assistantSession(session *UserSession) *assistant.Session {
	return b.sessions.Get(session.ownerID())
}

// handleCommand processes bot commands.
// Called from session worker - no locking needed.
func (b *Bot) handleCommand(ctx context.Context, session *UserSession, message *tgbotapi.Message) {
	command, args := parseCommand(message.Text)
	argsStr := strings.Join(args, " ")
	switch command {
	case "/start":
		session.reply(MsgStartPrompt, escapeMarkdown(b.savedLocation(session.userId)))
	case "/location":
		b.handleLocationCommand(session, argsStr)
	case "/history":
		b.handleHistoryCommand(session)
	case "/reset":
		if err := b.assistantSession(session).Reset(); errors.Is(err, assistant.ErrBusy) {
			session.reply(MsgAnalysisInProgress)
			return
		}
		session.reply(MsgResetDone)
	case "/admin":
		b.handleAdminCommand(session, argsStr)
	case "/version":
		session.reply(MsgVersionInfo, Version, BuildTime)
	default:
		session.reply(MsgSendPhoto)
	}
}

// handleCallbackQuery handles inline keyboard button presses.
// Called from session worker - no locking needed.
func (b *Bot) handleCallbackQuery(ctx context.Context, session *UserSession, query *tgbotapi.CallbackQuery) {
	// Answer the callback to remove the loading state
	callback := tgbotapi.NewCallback(query.ID, "")
	if _, err := b.tg.Request(callback); err != nil {
		log.Debug().Err(err).Msg("failed to answer callback")
	}

	if strings.HasPrefix(query.Data, strategyCallbackPrefix) {
		b.handleStrategyCallback(session, query)
	}
}

// savedLocation returns the user's location, falling back to the default.
func (b *Bot) savedLocation(userId int64) string {
	location, err := b.store.GetLocation(userId)
	if err != nil {
		log.Warn().Err(err).Int64("userId", userId).Msg("failed to get saved location")
	}
	if location == "" {
		return b.defaultLocation
	}
	return location
}

// handleLocationCommand handles /location - view or set the user's suburb.
func (b *Bot) handleLocationCommand(session *UserSession, args string) {
	location := strings.TrimSpace(args)
	if location == "" {
		saved, err := b.store.GetLocation(session.userId)
		if err != nil {
			session.replyWithError(err)
			return
		}
		if saved == "" {
			session.reply(MsgLocationDefault, escapeMarkdown(b.defaultLocation))
			return
		}
		session.reply(MsgLocationCurrent, escapeMarkdown(saved))
		return
	}

	if err := b.store.SetLocation(session.userId, location); err != nil {
		session.replyWithError(err)
		return
	}
	session.reply(MsgLocationUpdated, escapeMarkdown(location))
}

// handleHistoryCommand handles /history - list the user's latest drafts.
func (b *Bot) handleHistoryCommand(session *UserSession) {
	drafts, err := b.store.ListDrafts(session.ownerID(), historyLimit)
	if err != nil {
		session.replyWithError(err)
		return
	}
	if len(drafts) == 0 {
		session.reply(MsgHistoryEmpty)
		return
	}

	var sb strings.Builder
	sb.WriteString(MsgHistoryHeader)
	for _, d := range drafts {
		sb.WriteString(formatReplyText(MsgHistoryLine,
			escapeMarkdown(d.Listing.SuggestedTitle),
			escapeMarkdown(d.Listing.SuggestedListPrice),
			escapeMarkdown(d.Location),
			d.CreatedAt.Format("2006-01-02")) + "\n")
	}
	session._reply(sb.String())
}

// handleAdminCommand handles /admin command with subcommands.
// Only the admin user can use this command (defense in depth check).
func (b *Bot) handleAdminCommand(session *UserSession, args string) {
	if session.userId != b.adminID {
		return // Silent drop for non-admin users
	}

	parts := strings.Fields(args)
	if len(parts) == 0 {
		session.reply(MsgAdminUsage)
		return
	}

	switch parts[0] {
	case "users":
		if len(parts) < 2 {
			session.reply(MsgAdminUsage)
			return
		}
		b.handleAdminUsersCommand(session, parts[1], parts[2:])
	default:
		session.reply(MsgAdminUsage)
	}
}

// handleAdminUsersCommand handles /admin users subcommands.
func (b *Bot) handleAdminUsersCommand(session *UserSession, action string, args []string) {
	switch action {
	case "add":
		if len(args) < 1 {
			session.reply(MsgAdminUserAddUsage)
			return
		}
		userID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			session.reply(MsgAdminUserInvalidID)
			return
		}
		if err := b.store.AddAllowedUser(userID, session.userId); err != nil {
			session.replyWithError(err)
			return
		}
		session.reply(MsgAdminUserAdded, userID)

	case "remove":
		if len(args) < 1 {
			session.reply(MsgAdminUserRemoveUsage)
			return
		}
		userID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			session.reply(MsgAdminUserInvalidID)
			return
		}
		if err := b.store.RemoveAllowedUser(userID); err != nil {
			session.replyWithError(err)
			return
		}
		session.reply(MsgAdminUserRemoved, userID)

	case "list":
		users, err := b.store.GetAllowedUsers()
		if err != nil {
			session.replyWithError(err)
			return
		}
		if len(users) == 0 {
			session.reply(MsgAdminNoUsers)
			return
		}
		var sb strings.Builder
		sb.WriteString(MsgAdminAllowedUsers)
		for _, u := range users {
			sb.WriteString(formatReplyText(MsgAdminUserLine, u.TelegramID, u.AddedAt.Format("2006-01-02")) + "\n")
		}
		session._reply(sb.String())

	default:
		session.reply(MsgAdminUsage)
	}
}
