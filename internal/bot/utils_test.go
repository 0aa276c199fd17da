package bot

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/raine/reseller-assistant/internal/render"
	"github.com/stretchr/testify/assert"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in      string
		command string
		args    []string
	}{
		{"/location St Kilda", "/location", []string{"St", "Kilda"}},
		{"/start@reseller_bot", "/start", []string{}},
		{"  /history  ", "/history", []string{}},
		{"", "", nil},
	}
	for _, tt := range tests {
		command, args := parseCommand(tt.in)
		assert.Equal(t, tt.command, command, tt.in)
		assert.Equal(t, tt.args, args, tt.in)
	}
}

func TestLargestPhoto(t *testing.T) {
	photo := largestPhoto([]tgbotapi.PhotoSize{
		{FileID: "a", Width: 90, Height: 90},
		{FileID: "b", Width: 800, Height: 600},
		{FileID: "c", Width: 320, Height: 320},
	})
	assert.Equal(t, "b", photo.FileID)
	assert.Empty(t, largestPhoto(nil).FileID)
}

func TestStrategyCallbackData(t *testing.T) {
	data := strategyCallbackData(render.QuickSell, "0b7f8a8e-5d1c-4d59-8c3e-2f0e6a7b9c10")
	assert.LessOrEqual(t, len(data), 64)

	strategy, draftID, ok := parseStrategyCallback(data)
	assert.True(t, ok)
	assert.Equal(t, render.QuickSell, strategy)
	assert.Equal(t, "0b7f8a8e-5d1c-4d59-8c3e-2f0e6a7b9c10", draftID)

	strategy, draftID, ok = parseStrategyCallback("strategy:standard:")
	assert.True(t, ok)
	assert.Equal(t, render.Standard, strategy)
	assert.Empty(t, draftID)

	_, _, ok = parseStrategyCallback("watch:1")
	assert.False(t, ok)
	_, _, ok = parseStrategyCallback("strategy:quick")
	assert.False(t, ok)
}

func TestStrategyKeyboard_MarksActive(t *testing.T) {
	row := strategyKeyboard(render.QuickSell, "id").InlineKeyboard[0]
	assert.Equal(t, "Standard", row[0].Text)
	assert.Equal(t, "✓ Quick sell", row[1].Text)
	assert.Equal(t, "strategy:standard:id", *row[0].CallbackData)
}

func TestEscapeMarkdown(t *testing.T) {
	assert.Equal(t, `API\_KEY \*bold\* \[link]`, escapeMarkdown("API_KEY *bold* [link]"))
	assert.Equal(t, "\\`code\\`", escapeMarkdown("`code`"))
}
