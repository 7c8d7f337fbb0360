package discord

import (
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/runixer/mediagrab/internal/media"
)

// User is the author of a message.
type User struct {
	ID   string
	Name string // username, or username#discriminator for legacy accounts
	Bot  bool
}

// Attachment is a file attached to a message.
type Attachment struct {
	ID       string
	Filename string
	URL      string
	Size     int64
}

// Message is an incoming or historical channel message.
type Message struct {
	ID          string
	ChannelID   string
	GuildID     string
	Content     string
	Author      User
	Timestamp   time.Time
	Attachments []Attachment
}

// MessageHandle identifies a message the bot can edit, delete or react to.
type MessageHandle struct {
	ChannelID string
	MessageID string
}

// ReactionEvent is a MESSAGE_REACTION_ADD gateway event.
type ReactionEvent struct {
	ChannelID string
	MessageID string
	UserID    string
	Emoji     string
}

// EmbedField is a single name/value row of an embed.
type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

// Embed is a rich report message.
type Embed struct {
	Title  string
	Color  int
	Fields []EmbedField
}

func (e Embed) toDiscord() *discordgo.MessageEmbed {
	out := &discordgo.MessageEmbed{
		Title: e.Title,
		Color: e.Color,
	}
	for _, f := range e.Fields {
		out.Fields = append(out.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: f.Inline,
		})
	}
	return out
}

func messageFromDiscord(m *discordgo.Message) Message {
	msg := Message{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
		Content:   m.Content,
		Timestamp: m.Timestamp,
	}
	if m.Author != nil {
		msg.Author = User{
			ID:   m.Author.ID,
			Name: m.Author.String(),
			Bot:  m.Author.Bot,
		}
	}
	for _, a := range m.Attachments {
		if a == nil {
			continue
		}
		msg.Attachments = append(msg.Attachments, Attachment{
			ID:       a.ID,
			Filename: a.Filename,
			URL:      a.URL,
			Size:     int64(a.Size),
		})
	}
	return msg
}

// ToMedia converts channel history into the scanner's message model.
func ToMedia(history []Message) []media.Message {
	out := make([]media.Message, 0, len(history))
	for _, m := range history {
		mm := media.Message{
			ID:          m.ID,
			Author:      m.Author.Name,
			AuthorIsBot: m.Author.Bot,
			Timestamp:   m.Timestamp,
		}
		for _, a := range m.Attachments {
			mm.Attachments = append(mm.Attachments, media.Attachment{
				URL:       a.URL,
				Size:      a.Size,
				Timestamp: m.Timestamp,
				Author:    m.Author.Name,
			})
		}
		out = append(out, mm)
	}
	return out
}
