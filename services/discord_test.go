package services

import (
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragwizard/models"
	"ragwizard/utils"
)

func newTestDiscord() *DiscordService {
	return NewDiscordService(newFakeBackend(), "", "!chat ", "default-bot", utils.NewNopLogger())
}

func TestDiscordService_DisabledWithoutToken(t *testing.T) {
	d := newTestDiscord()

	assert.False(t, d.IsEnabled())
	assert.Error(t, d.Start())
	assert.NoError(t, d.Stop())
	assert.Equal(t, "disabled", d.GetStatus()["status"])
}

func TestDiscordService_ParseCommand(t *testing.T) {
	d := newTestDiscord()

	tests := []struct {
		content string
		ok      bool
		want    DiscordCommand
	}{
		{"hello there", false, DiscordCommand{}},
		{"!chat ", true, DiscordCommand{Kind: "empty"}},
		{"!chat which", true, DiscordCommand{Kind: "which"}},
		{"!chat use bot-7", true, DiscordCommand{Kind: "use", Argument: "bot-7"}},
		{"!chat what is the refund policy?", true, DiscordCommand{Kind: "ask", Argument: "what is the refund policy?"}},
	}

	for _, tt := range tests {
		got, ok := d.ParseCommand(tt.content)
		assert.Equal(t, tt.ok, ok, tt.content)
		assert.Equal(t, tt.want, got, tt.content)
	}
}

func TestDiscordService_ChannelBindings(t *testing.T) {
	d := newTestDiscord()

	assert.Equal(t, "default-bot", d.ChatbotFor("chan-1"))
	d.Bind("chan-1", "bot-7")
	assert.Equal(t, "bot-7", d.ChatbotFor("chan-1"))
	assert.Equal(t, "default-bot", d.ChatbotFor("chan-2"))
}

func TestDiscordService_FilterHistory(t *testing.T) {
	d := newTestDiscord()

	messages := []*discordgo.Message{
		{Content: "newest message with enough text"},
		{Content: "!chat ignored command"},
		{Content: "short"},
		{Content: "oldest message with enough text"},
	}

	filtered := d.filterHistory(messages)

	require.Len(t, filtered, 2)
	assert.Equal(t, "oldest message with enough text", filtered[0].Content)
	assert.Equal(t, "newest message with enough text", filtered[1].Content)
}

func TestDiscordService_ConvertHistory(t *testing.T) {
	d := newTestDiscord()

	history := d.convertDiscordMessagesToChatHistory([]*discordgo.Message{
		{Content: "what about refunds?", Author: &discordgo.User{Username: "alex"}},
		{Content: "Refunds take 5 days.", Author: &discordgo.User{Username: "wizard", Bot: true}},
		{Content: "orphan"},
	})

	assert.Equal(t, []models.ChatMessage{
		{Role: models.RoleUser, Content: "alex: what about refunds?"},
		{Role: models.RoleAssistant, Content: "Refunds take 5 days."},
	}, history)
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitMessage("short", 10))

	long := strings.Repeat("word ", 100)
	chunks := splitMessage(long, 42)
	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 42)
	}
	assert.Equal(t, strings.Join(strings.Fields(long), " "), strings.Join(strings.Fields(strings.Join(chunks, " ")), " "))

	unbroken := strings.Repeat("x", 25)
	assert.Equal(t, []string{strings.Repeat("x", 10), strings.Repeat("x", 10), strings.Repeat("x", 5)}, splitMessage(unbroken, 10))
}
