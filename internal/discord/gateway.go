package discord

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// Intents requested on identify. MessageContent is privileged and must be
// enabled for the application in the developer portal.
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsGuildMessageReactions |
	discordgo.IntentsDirectMessages |
	discordgo.IntentsMessageContent

// MessageHandler receives every message created in a visible channel.
type MessageHandler func(Message)

// Gateway owns the discordgo session: open, ready, dispatch, close.
type Gateway struct {
	session *discordgo.Session
	client  *Client
	hub     *ReactionHub
	logger  *slog.Logger

	mu        sync.RWMutex
	onMessage MessageHandler
	selfID    string
}

// NewGateway creates a session for the bot token. The connection is not
// opened until Open.
func NewGateway(token string, logger *slog.Logger) (*Gateway, error) {
	if token == "" {
		return nil, fmt.Errorf("discord token is empty")
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = Intents

	g := &Gateway{
		session: session,
		client:  NewClient(session, logger),
		hub:     NewReactionHub(logger),
		logger:  logger.With("component", "gateway"),
	}

	session.AddHandler(g.handleReady)
	session.AddHandler(g.handleDisconnect)
	session.AddHandler(g.handleMessageCreate)
	session.AddHandler(g.handleReactionAdd)

	return g, nil
}

// Client returns the REST client bound to this session.
func (g *Gateway) Client() *Client {
	return g.client
}

// Reactions returns the hub reaction events are routed through.
func (g *Gateway) Reactions() *ReactionHub {
	return g.hub
}

// OnMessage sets the handler for created messages. Call before Open.
func (g *Gateway) OnMessage(h MessageHandler) {
	g.mu.Lock()
	g.onMessage = h
	g.mu.Unlock()
}

// Open connects to the gateway.
func (g *Gateway) Open() error {
	if err := g.session.Open(); err != nil {
		return fmt.Errorf("failed to open gateway: %w", err)
	}
	return nil
}

// Close disconnects from the gateway.
func (g *Gateway) Close() error {
	setGatewayConnected(false)
	if err := g.session.Close(); err != nil {
		return fmt.Errorf("failed to close gateway: %w", err)
	}
	g.logger.Info("gateway closed")
	return nil
}

// SelfID returns the bot user ID once the session is ready.
func (g *Gateway) SelfID() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.selfID
}

func (g *Gateway) handleReady(_ *discordgo.Session, r *discordgo.Ready) {
	g.mu.Lock()
	g.selfID = r.User.ID
	g.mu.Unlock()

	setGatewayConnected(true)
	g.logger.Info("bot is alive", "user", r.User.String(), "guilds", len(r.Guilds))
}

func (g *Gateway) handleDisconnect(_ *discordgo.Session, _ *discordgo.Disconnect) {
	setGatewayConnected(false)
	g.logger.Warn("gateway disconnected")
}

func (g *Gateway) handleMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Message == nil {
		return
	}
	recordEvent(eventMessageCreate)

	g.mu.RLock()
	h := g.onMessage
	self := g.selfID
	g.mu.RUnlock()

	if h == nil || (m.Author != nil && m.Author.ID == self) {
		return
	}
	h(messageFromDiscord(m.Message))
}

func (g *Gateway) handleReactionAdd(_ *discordgo.Session, r *discordgo.MessageReactionAdd) {
	if r.MessageReaction == nil {
		return
	}
	recordEvent(eventReactionAdd)
	g.hub.Dispatch(ReactionEvent{
		ChannelID: r.ChannelID,
		MessageID: r.MessageID,
		UserID:    r.UserID,
		Emoji:     r.Emoji.Name,
	})
}
