package discord

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
)

// historyPageSize is the largest page Discord returns for channel history.
const historyPageSize = 100

// deleteTimeout bounds a scheduled delete that runs detached from any request context.
const deleteTimeout = 15 * time.Second

// ChatAPI defines the platform operations the bot workflow consumes.
// This allows for easier mocking in tests.
type ChatAPI interface {
	FetchHistory(ctx context.Context, channelID string, limit int) ([]Message, error)
	SendMessage(ctx context.Context, channelID, content string) (MessageHandle, error)
	SendEmbed(ctx context.Context, channelID string, embed Embed) (MessageHandle, error)
	Reply(ctx context.Context, to MessageHandle, content string, deleteAfter time.Duration) (MessageHandle, error)
	EditMessage(ctx context.Context, h MessageHandle, content string, deleteAfter time.Duration) error
	DeleteMessage(ctx context.Context, h MessageHandle) error
	AddReaction(ctx context.Context, h MessageHandle, emoji string) error
	IsAdministrator(ctx context.Context, channelID, userID string) (bool, error)
	GuildName(ctx context.Context, guildID string) (string, error)
	ChannelName(ctx context.Context, channelID string) (string, error)
	Latency() time.Duration
}

// Client implements ChatAPI over a discordgo session.
type Client struct {
	session Session
	logger  *slog.Logger
}

var _ ChatAPI = (*Client)(nil)

// NewClient creates a new Client.
func NewClient(session Session, logger *slog.Logger) *Client {
	return &Client{
		session: session,
		logger:  logger.With("component", "discord_client"),
	}
}

// FetchHistory returns up to limit messages of the channel, newest first.
// Discord caps a page at 100 messages, so larger limits are paged through
// with the "before" cursor until limit is reached or history runs out.
func (c *Client) FetchHistory(ctx context.Context, channelID string, limit int) ([]Message, error) {
	start := time.Now()
	var (
		history []Message
		before  string
		err     error
	)
	defer func() { recordRequest("fetch_history", time.Since(start).Seconds(), err) }()

	for len(history) < limit {
		pageSize := min(historyPageSize, limit-len(history))

		var page []*discordgo.Message
		page, err = c.session.ChannelMessages(channelID, pageSize, before, "", "", discordgo.WithContext(ctx))
		if err != nil {
			err = fmt.Errorf("failed to fetch channel history: %w", err)
			return nil, err
		}
		for _, m := range page {
			history = append(history, messageFromDiscord(m))
		}
		if len(page) < pageSize {
			break
		}
		before = page[len(page)-1].ID
	}

	c.logger.Debug("fetched channel history", "channel_id", channelID, "limit", limit, "count", len(history))
	return history, nil
}

// SendMessage posts a plain text message.
func (c *Client) SendMessage(ctx context.Context, channelID, content string) (MessageHandle, error) {
	start := time.Now()
	m, err := c.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	recordRequest("send_message", time.Since(start).Seconds(), err)
	if err != nil {
		return MessageHandle{}, fmt.Errorf("failed to send message: %w", err)
	}
	return MessageHandle{ChannelID: m.ChannelID, MessageID: m.ID}, nil
}

// SendEmbed posts an embed.
func (c *Client) SendEmbed(ctx context.Context, channelID string, embed Embed) (MessageHandle, error) {
	start := time.Now()
	m, err := c.session.ChannelMessageSendEmbed(channelID, embed.toDiscord(), discordgo.WithContext(ctx))
	recordRequest("send_embed", time.Since(start).Seconds(), err)
	if err != nil {
		return MessageHandle{}, fmt.Errorf("failed to send embed: %w", err)
	}
	return MessageHandle{ChannelID: m.ChannelID, MessageID: m.ID}, nil
}

// Reply answers a message. A positive deleteAfter removes the reply later.
func (c *Client) Reply(ctx context.Context, to MessageHandle, content string, deleteAfter time.Duration) (MessageHandle, error) {
	ref := &discordgo.MessageReference{
		MessageID: to.MessageID,
		ChannelID: to.ChannelID,
	}

	start := time.Now()
	m, err := c.session.ChannelMessageSendReply(to.ChannelID, content, ref, discordgo.WithContext(ctx))
	recordRequest("reply", time.Since(start).Seconds(), err)
	if err != nil {
		return MessageHandle{}, fmt.Errorf("failed to send reply: %w", err)
	}

	h := MessageHandle{ChannelID: m.ChannelID, MessageID: m.ID}
	c.scheduleDelete(h, deleteAfter)
	return h, nil
}

// EditMessage replaces the content of a message. A positive deleteAfter
// removes the message later.
func (c *Client) EditMessage(ctx context.Context, h MessageHandle, content string, deleteAfter time.Duration) error {
	start := time.Now()
	_, err := c.session.ChannelMessageEdit(h.ChannelID, h.MessageID, content, discordgo.WithContext(ctx))
	recordRequest("edit_message", time.Since(start).Seconds(), err)
	if err != nil {
		return fmt.Errorf("failed to edit message: %w", err)
	}
	c.scheduleDelete(h, deleteAfter)
	return nil
}

// DeleteMessage removes a message.
func (c *Client) DeleteMessage(ctx context.Context, h MessageHandle) error {
	start := time.Now()
	err := c.session.ChannelMessageDelete(h.ChannelID, h.MessageID, discordgo.WithContext(ctx))
	recordRequest("delete_message", time.Since(start).Seconds(), err)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

// AddReaction reacts to a message with a unicode emoji.
func (c *Client) AddReaction(ctx context.Context, h MessageHandle, emoji string) error {
	start := time.Now()
	err := c.session.MessageReactionAdd(h.ChannelID, h.MessageID, emoji, discordgo.WithContext(ctx))
	recordRequest("add_reaction", time.Since(start).Seconds(), err)
	if err != nil {
		return fmt.Errorf("failed to add reaction %s: %w", emoji, err)
	}
	return nil
}

// IsAdministrator reports whether the user holds the Administrator
// permission in the channel.
func (c *Client) IsAdministrator(ctx context.Context, channelID, userID string) (bool, error) {
	start := time.Now()
	perms, err := c.session.UserChannelPermissions(userID, channelID, discordgo.WithContext(ctx))
	recordRequest("permissions", time.Since(start).Seconds(), err)
	if err != nil {
		return false, fmt.Errorf("failed to resolve permissions: %w", err)
	}
	return perms&discordgo.PermissionAdministrator != 0, nil
}

// GuildName returns the display name of a guild.
func (c *Client) GuildName(ctx context.Context, guildID string) (string, error) {
	if guildID == "" {
		return "", nil
	}
	start := time.Now()
	g, err := c.session.Guild(guildID, discordgo.WithContext(ctx))
	recordRequest("guild", time.Since(start).Seconds(), err)
	if err != nil {
		return "", fmt.Errorf("failed to get guild: %w", err)
	}
	return g.Name, nil
}

// ChannelName returns the name of a channel. DM channels have no name.
func (c *Client) ChannelName(ctx context.Context, channelID string) (string, error) {
	start := time.Now()
	ch, err := c.session.Channel(channelID, discordgo.WithContext(ctx))
	recordRequest("channel", time.Since(start).Seconds(), err)
	if err != nil {
		return "", fmt.Errorf("failed to get channel: %w", err)
	}
	return ch.Name, nil
}

// Latency returns the gateway heartbeat round trip.
func (c *Client) Latency() time.Duration {
	return c.session.HeartbeatLatency()
}

func (c *Client) scheduleDelete(h MessageHandle, after time.Duration) {
	if after <= 0 {
		return
	}
	time.AfterFunc(after, func() {
		ctx, cancel := context.WithTimeout(context.Background(), deleteTimeout)
		defer cancel()
		if err := c.DeleteMessage(ctx, h); err != nil {
			c.logger.Warn("scheduled delete failed", "channel_id", h.ChannelID, "message_id", h.MessageID, "error", err)
		}
	})
}
