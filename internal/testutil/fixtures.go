package testutil

import (
	"fmt"
	"time"

	"github.com/runixer/mediagrab/internal/discord"
	"github.com/runixer/mediagrab/internal/storage"
)

// Fixture IDs shared by bot tests.
const (
	TestGuildID   = "g-100"
	TestChannelID = "c-200"
	TestAdminID   = "u-admin"
	TestUserID    = "u-user"
	TestBotID     = "u-bot"
)

var fixtureEpoch = time.Date(2024, 5, 17, 14, 30, 0, 0, time.UTC)

// TestAttachment returns an attachment served from the Discord CDN.
func TestAttachment(name string, size int64) discord.Attachment {
	return discord.Attachment{
		ID:       "a-" + name,
		Filename: name,
		URL:      fmt.Sprintf("https://cdn.discordapp.com/attachments/%s/%s?ex=65f&is=65e&hm=abc", TestChannelID, name),
		Size:     size,
	}
}

// TestMessage returns a guild message by a human author.
func TestMessage(id string, atts ...discord.Attachment) discord.Message {
	return discord.Message{
		ID:          id,
		ChannelID:   TestChannelID,
		GuildID:     TestGuildID,
		Author:      discord.User{ID: TestUserID, Name: "alice"},
		Timestamp:   fixtureEpoch,
		Attachments: atts,
	}
}

// TestCommand returns a command message sent by userID.
func TestCommand(userID, content string) discord.Message {
	return discord.Message{
		ID:        "cmd-1",
		ChannelID: TestChannelID,
		GuildID:   TestGuildID,
		Content:   content,
		Author:    discord.User{ID: userID, Name: "admin"},
		Timestamp: fixtureEpoch,
	}
}

// TestHistory returns newest-first history with two images, a video and a
// text file.
func TestHistory() []discord.Message {
	return []discord.Message{
		TestMessage("m4", TestAttachment("notes.txt", 1024)),
		TestMessage("m3", TestAttachment("clip.mp4", 10*1024*1024)),
		TestMessage("m2"),
		TestMessage("m1", TestAttachment("cat.png", 2*1024*1024), TestAttachment("dog.jpg", 512*1024)),
	}
}

// TestDownloadRecord returns a journal entry finished at finished.
func TestDownloadRecord(id string, finished time.Time) storage.DownloadRecord {
	return storage.DownloadRecord{
		ID:          id,
		GuildID:     TestGuildID,
		GuildName:   "Test Guild",
		ChannelID:   TestChannelID,
		ChannelName: "general",
		RequesterID: TestAdminID,
		Option:      "Images",
		Folder:      "downloads/Test_Guild_general_2024-05-17_14-30-00",
		Succeeded:   2,
		Bytes:       2_621_440,
		StartedAt:   finished.Add(-5 * time.Second),
		FinishedAt:  finished,
	}
}
