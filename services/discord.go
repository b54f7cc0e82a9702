package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"ragwizard/models"
	"ragwizard/utils"
)

// ChatbotQuerier is the backend call the Discord relay needs
type ChatbotQuerier interface {
	Query(ctx context.Context, chatbotID, question string, history []models.ChatMessage) (string, error)
}

// DiscordService relays channel messages to a deployed chatbot so it can be
// tried out from Discord once the wizard has finished.
type DiscordService struct {
	session       *discordgo.Session
	querier       ChatbotQuerier
	commandPrefix string
	defaultBot    string
	enabled       bool
	startTime     time.Time
	logger        utils.Logger

	mu       sync.RWMutex
	bindings map[string]string // channel id -> chatbot id
}

// DiscordCommand is a parsed prefix command
type DiscordCommand struct {
	Kind     string // "ask", "use", "which" or "empty"
	Argument string
}

// NewDiscordService creates the relay. It stays disabled without a token.
func NewDiscordService(querier ChatbotQuerier, token, commandPrefix, defaultChatbotID string, logger utils.Logger) *DiscordService {
	if commandPrefix == "" {
		commandPrefix = "!chat "
	}

	service := &DiscordService{
		querier:       querier,
		commandPrefix: commandPrefix,
		defaultBot:    defaultChatbotID,
		startTime:     time.Now(),
		logger:        logger,
		bindings:      make(map[string]string),
	}

	if token == "" {
		logger.Info("Discord", "Discord relay disabled: DISCORD_BOT_TOKEN not set", nil)
		return service
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		logger.Error("Discord", "Error creating Discord session", map[string]interface{}{"error": err})
		return service
	}

	service.session = session

	session.AddHandler(func(s *discordgo.Session, event *discordgo.Ready) {
		logger.Info("Discord", "Bot is online", map[string]interface{}{
			"username": event.User.Username,
			"guilds":   len(event.Guilds),
		})
	})
	session.AddHandler(service.messageCreate)
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent

	service.enabled = true
	return service
}

// Start opens the gateway connection
func (d *DiscordService) Start() error {
	if !d.enabled {
		return fmt.Errorf("discord relay not enabled (missing bot token)")
	}

	if err := d.session.Open(); err != nil {
		return fmt.Errorf("error opening Discord connection: %w", err)
	}

	d.logger.Info("Discord", "Discord relay started", map[string]interface{}{"prefix": d.commandPrefix})
	return nil
}

// Stop closes the gateway connection
func (d *DiscordService) Stop() error {
	if d.session != nil {
		return d.session.Close()
	}
	return nil
}

// IsEnabled returns whether a bot token was configured
func (d *DiscordService) IsEnabled() bool {
	return d.enabled
}

// Bind points a channel at a chatbot
func (d *DiscordService) Bind(channelID, chatbotID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bindings[channelID] = chatbotID
}

// ChatbotFor returns the chatbot bound to a channel, or the default one
func (d *DiscordService) ChatbotFor(channelID string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if id, ok := d.bindings[channelID]; ok {
		return id
	}
	return d.defaultBot
}

// ParseCommand extracts a command from content, reporting false when the
// message is not addressed to the relay.
func (d *DiscordService) ParseCommand(content string) (DiscordCommand, bool) {
	if !strings.HasPrefix(content, d.commandPrefix) {
		return DiscordCommand{}, false
	}

	rest := strings.TrimSpace(content[len(d.commandPrefix):])
	switch {
	case rest == "":
		return DiscordCommand{Kind: "empty"}, true
	case rest == "which":
		return DiscordCommand{Kind: "which"}, true
	case strings.HasPrefix(rest, "use "):
		return DiscordCommand{Kind: "use", Argument: strings.TrimSpace(rest[len("use "):])}, true
	}
	return DiscordCommand{Kind: "ask", Argument: rest}, true
}

// messageCreate handles incoming Discord messages
func (d *DiscordService) messageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author.Bot {
		return
	}

	cmd, ok := d.ParseCommand(m.Content)
	if !ok {
		return
	}

	switch cmd.Kind {
	case "empty":
		d.sendMessage(s, m.ChannelID, fmt.Sprintf("Please provide a message after `%s`", strings.TrimSpace(d.commandPrefix)))
		return
	case "use":
		if cmd.Argument == "" {
			d.sendMessage(s, m.ChannelID, "Please provide a chatbot id")
			return
		}
		d.Bind(m.ChannelID, cmd.Argument)
		d.sendMessage(s, m.ChannelID, fmt.Sprintf("This channel now talks to chatbot `%s`", cmd.Argument))
		return
	case "which":
		if id := d.ChatbotFor(m.ChannelID); id != "" {
			d.sendMessage(s, m.ChannelID, fmt.Sprintf("This channel talks to chatbot `%s`", id))
		} else {
			d.sendMessage(s, m.ChannelID, "No chatbot selected for this channel")
		}
		return
	}

	chatbotID := d.ChatbotFor(m.ChannelID)
	if chatbotID == "" {
		d.sendMessage(s, m.ChannelID, fmt.Sprintf("No chatbot selected. Use `%suse <chatbot id>` first", d.commandPrefix))
		return
	}

	s.ChannelTyping(m.ChannelID)

	var history []models.ChatMessage
	recent, err := d.getRecentChannelMessages(s, m.ChannelID, 10)
	if err != nil {
		d.logger.Warn("Discord", "Failed to get recent messages for context", map[string]interface{}{"error": err.Error()})
	} else {
		history = d.convertDiscordMessagesToChatHistory(recent)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	answer, err := d.querier.Query(ctx, chatbotID, cmd.Argument, history)
	if err != nil {
		d.sendMessage(s, m.ChannelID, "⚠️ "+UserMessage(err, "Failed to get response"))
		return
	}
	d.sendMessage(s, m.ChannelID, answer)

	d.logger.Info("Discord", "Relayed question", map[string]interface{}{
		"chatbot_id": chatbotID,
		"channel_id": m.ChannelID,
		"user":       m.Author.Username,
	})
}

// getRecentChannelMessages fetches recent channel messages, oldest first,
// without relay commands or very short chatter.
func (d *DiscordService) getRecentChannelMessages(s *discordgo.Session, channelID string, limit int) ([]*discordgo.Message, error) {
	messages, err := s.ChannelMessages(channelID, limit, "", "", "")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch channel messages: %w", err)
	}
	return d.filterHistory(messages), nil
}

func (d *DiscordService) filterHistory(messages []*discordgo.Message) []*discordgo.Message {
	var filtered []*discordgo.Message
	for _, msg := range messages {
		if strings.HasPrefix(msg.Content, d.commandPrefix) {
			continue
		}
		if len(strings.TrimSpace(msg.Content)) < 10 {
			continue
		}
		filtered = append(filtered, msg)
	}

	// Discord returns newest first
	for i, j := 0, len(filtered)-1; i < j; i, j = i+1, j-1 {
		filtered[i], filtered[j] = filtered[j], filtered[i]
	}
	return filtered
}

// convertDiscordMessagesToChatHistory maps bot messages to the assistant role
func (d *DiscordService) convertDiscordMessagesToChatHistory(messages []*discordgo.Message) []models.ChatMessage {
	var chatHistory []models.ChatMessage

	for _, msg := range messages {
		if msg.Author == nil {
			continue
		}
		role := models.RoleUser
		content := fmt.Sprintf("%s: %s", msg.Author.Username, msg.Content)
		if msg.Author.Bot {
			role = models.RoleAssistant
			content = msg.Content
		}

		chatHistory = append(chatHistory, models.ChatMessage{Role: role, Content: content})
	}

	return chatHistory
}

// sendMessage sends a message to Discord, splitting at the 2000 character limit
func (d *DiscordService) sendMessage(s *discordgo.Session, channelID, message string) {
	if len(message) <= 2000 {
		if _, err := s.ChannelMessageSend(channelID, message); err != nil {
			d.logger.Warn("Discord", "Error sending message", map[string]interface{}{"error": err.Error()})
		}
		return
	}

	chunks := splitMessage(message, 1900)
	for i, chunk := range chunks {
		if i > 0 {
			chunk = fmt.Sprintf("...continued:\n%s", chunk)
		}
		if i < len(chunks)-1 {
			chunk = chunk + "\n..."
		}

		if _, err := s.ChannelMessageSend(channelID, chunk); err != nil {
			d.logger.Warn("Discord", "Error sending message chunk", map[string]interface{}{"error": err.Error()})
		}

		// rate limit
		time.Sleep(200 * time.Millisecond)
	}
}

// splitMessage splits a message into chunks respecting word boundaries
func splitMessage(message string, maxLength int) []string {
	if len(message) <= maxLength {
		return []string{message}
	}

	var chunks []string
	for len(message) > maxLength {
		splitIndex := maxLength
		if spaceIndex := strings.LastIndex(message[:maxLength], " "); spaceIndex > maxLength/2 {
			splitIndex = spaceIndex
		}

		chunks = append(chunks, message[:splitIndex])
		message = strings.TrimPrefix(message[splitIndex:], " ")
	}

	if len(message) > 0 {
		chunks = append(chunks, message)
	}

	return chunks
}

// GetStatus returns the current status of the relay
func (d *DiscordService) GetStatus() map[string]interface{} {
	status := map[string]interface{}{
		"enabled":         d.enabled,
		"command_prefix":  d.commandPrefix,
		"default_chatbot": d.defaultBot,
		"uptime":          time.Since(d.startTime).String(),
	}

	d.mu.RLock()
	status["bound_channels"] = len(d.bindings)
	d.mu.RUnlock()

	switch {
	case d.enabled && d.session != nil && d.session.State != nil && d.session.State.User != nil:
		status["status"] = "connected"
		status["user"] = d.session.State.User.Username
	case d.enabled:
		status["status"] = "initialized_not_started"
	default:
		status["status"] = "disabled"
	}

	return status
}
