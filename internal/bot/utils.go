package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/lithammer/dedent"
	"github.com/raine/reseller-assistant/internal/render"
)

// Set at build time with -ldflags "-X".
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const strategyCallbackPrefix = "strategy:"

func formatReplyText(text string, a ...any) string {
	return fmt.Sprintf(strings.TrimSpace(dedent.Dedent(text)), a...)
}

func parseCommand(s string) (string, []string) {
	parts := strings.Fields(s)
	if len(parts) == 0 {
		return "", nil
	}
	// Commands sent from group chats carry the bot name, e.g. /start@my_bot
	command, _, _ := strings.Cut(parts[0], "@")
	return command, parts[1:]
}

// largestPhoto returns the highest resolution size Telegram offers for a photo.
func largestPhoto(sizes []tgbotapi.PhotoSize) tgbotapi.PhotoSize {
	var best tgbotapi.PhotoSize
	for _, size := range sizes {
		if size.Width*size.Height >= best.Width*best.Height {
			best = size
		}
	}
	return best
}

// strategyCallbackData encodes a strategy button. draftID may be empty when
// the draft could not be saved.
func strategyCallbackData(s render.Strategy, draftID string) string {
	return strategyCallbackPrefix + string(s) + ":" + draftID
}

func parseStrategyCallback(data string) (render.Strategy, string, bool) {
	rest, ok := strings.CutPrefix(data, strategyCallbackPrefix)
	if !ok {
		return "", "", false
	}
	strategy, draftID, ok := strings.Cut(rest, ":")
	if !ok {
		return "", "", false
	}
	return render.ParseStrategy(strategy), draftID, true
}

func strategyKeyboard(active render.Strategy, draftID string) tgbotapi.InlineKeyboardMarkup {
	button := func(label string, s render.Strategy) tgbotapi.InlineKeyboardButton {
		if s == active {
			label = fmt.Sprintf(BtnActiveFmt, label)
		}
		return tgbotapi.NewInlineKeyboardButtonData(label, strategyCallbackData(s, draftID))
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			button(BtnStandard, render.Standard),
			button(BtnQuickSell, render.QuickSell),
		),
	)
}
