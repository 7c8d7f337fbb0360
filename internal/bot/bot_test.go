package bot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/runixer/mediagrab/internal/config"
	"github.com/runixer/mediagrab/internal/discord"
	"github.com/runixer/mediagrab/internal/download"
	"github.com/runixer/mediagrab/internal/storage"
	"github.com/runixer/mediagrab/internal/testutil"
)

var (
	promptHandle = discord.MessageHandle{ChannelID: testutil.TestChannelID, MessageID: "prompt-1"}
	reportHandle = discord.MessageHandle{ChannelID: testutil.TestChannelID, MessageID: "report-1"}
	commandRef   = discord.MessageHandle{ChannelID: testutil.TestChannelID, MessageID: "cmd-1"}
)

const fullOptionsText = "__**Download Options**__\n[1] Images\n[2] Videos\n[3] Others\n[4] All"

type fixture struct {
	api       *testutil.MockChatAPI
	reactions *testutil.FakeReactions
	fetcher   *testutil.MockFetcher
	cfg       *config.Config
	bot       *Bot
}

func newFixture(t *testing.T, journal storage.DownloadRecorder) *fixture {
	t.Helper()
	cfg := testutil.TestConfig(t)
	cfg.Bot.SelectionTimeout = "2s"

	f := &fixture{
		api:       new(testutil.MockChatAPI),
		reactions: testutil.NewFakeReactions(),
		fetcher:   new(testutil.MockFetcher),
		cfg:       cfg,
	}
	logger := testutil.TestLogger()
	executor := download.NewExecutor(f.fetcher, 1, time.Millisecond, logger)
	f.bot = NewBot(logger, f.api, f.reactions, executor, download.NewNamer(cfg.Downloads.Root), journal, testutil.TestTranslator(t), cfg)
	return f
}

// expectScan sets up everything up to a published prompt.
func (f *fixture) expectScan(history []discord.Message) {
	f.api.On("IsAdministrator", mock.Anything, testutil.TestChannelID, testutil.TestAdminID).Return(true, nil)
	f.api.On("FetchHistory", mock.Anything, testutil.TestChannelID, 5).Return(history, nil)
	f.api.On("SendEmbed", mock.Anything, testutil.TestChannelID, mock.AnythingOfType("discord.Embed")).Return(reportHandle, nil)
	f.api.On("SendMessage", mock.Anything, testutil.TestChannelID, fullOptionsText).Return(promptHandle, nil)
	f.api.On("AddReaction", mock.Anything, promptHandle, mock.Anything).Return(nil)
}

func (f *fixture) expectNames() {
	f.api.On("GuildName", mock.Anything, testutil.TestGuildID).Return("Test Guild", nil)
	f.api.On("ChannelName", mock.Anything, testutil.TestChannelID).Return("general", nil)
}

// runAsync starts a command and returns a channel closed when it finishes.
func (f *fixture) runAsync(msg discord.Message) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.bot.HandleMessage(context.Background(), msg)
	}()
	return done
}

func waitSubscribed(t *testing.T, r *testutil.FakeReactions) string {
	t.Helper()
	select {
	case id := <-r.Subscribed():
		return id
	case <-time.After(2 * time.Second):
		t.Fatal("no prompt was published")
		return ""
	}
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("command did not finish")
	}
}

func onlyFolder(t *testing.T, root string) string {
	t.Helper()
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Len(t, entries, 1, "expected exactly one download folder")
	return filepath.Join(root, entries[0].Name())
}

func selector(userID, emoji string) discord.ReactionEvent {
	return discord.ReactionEvent{
		ChannelID: promptHandle.ChannelID,
		MessageID: promptHandle.MessageID,
		UserID:    userID,
		Emoji:     emoji,
	}
}

func TestScan_DownloadsSelectedCategory(t *testing.T) {
	journal := new(testutil.MockJournal)
	f := newFixture(t, journal)
	f.expectScan(testutil.TestHistory())
	f.expectNames()

	f.api.On("EditMessage", mock.Anything, promptHandle, "Downloading Images...", time.Duration(0)).Return(nil).Once()
	f.api.On("EditMessage", mock.Anything, promptHandle, "Download Completed.", 10*time.Second).Return(nil).Once()
	f.fetcher.On("Fetch", mock.Anything, testutil.TestAttachment("cat.png", 0).URL, mock.Anything).Return("cat", nil)
	f.fetcher.On("Fetch", mock.Anything, testutil.TestAttachment("dog.jpg", 0).URL, mock.Anything).Return("dog", nil)
	journal.On("RecordDownload", mock.Anything, mock.MatchedBy(func(rec storage.DownloadRecord) bool {
		return rec.Option == "Images" &&
			rec.Succeeded == 2 && rec.Failed == 0 && rec.Bytes == 6 &&
			rec.GuildName == "Test Guild" && rec.ChannelName == "general" &&
			rec.RequesterID == testutil.TestAdminID && rec.ID != ""
	})).Return(nil).Once()

	done := f.runAsync(testutil.TestCommand(testutil.TestAdminID, ">scan"))
	waitSubscribed(t, f.reactions)

	// Someone else picking a selector changes nothing.
	f.reactions.Emit(selector(testutil.TestUserID, "2️⃣"))
	f.reactions.Emit(selector(testutil.TestAdminID, "1️⃣"))
	waitDone(t, done)

	folder := onlyFolder(t, f.cfg.Downloads.Root)
	testutil.AssertFileCount(t, folder, 2)
	testutil.AssertNoPartialFiles(t, folder)
	f.fetcher.AssertNumberOfCalls(t, "Fetch", 2)
	f.api.AssertExpectations(t)
	journal.AssertExpectations(t)
}

func TestScan_ReportEmbed(t *testing.T) {
	f := newFixture(t, nil)
	f.expectScan(testutil.TestHistory())
	f.api.On("DeleteMessage", mock.Anything, promptHandle).Return(nil)
	f.cfg.Bot.SelectionTimeout = "10ms"

	f.bot.HandleMessage(context.Background(), testutil.TestCommand(testutil.TestAdminID, ">info"))

	var embed discord.Embed
	for _, call := range f.api.Calls {
		if call.Method == "SendEmbed" {
			embed = call.Arguments.Get(2).(discord.Embed)
		}
	}
	assert.Equal(t, "Report", embed.Title)
	assert.Contains(t, reportColors, embed.Color)
	require.Len(t, embed.Fields, 5)
	assert.Equal(t, "4 messages found.", embed.Fields[0].Value)
	assert.Equal(t, "2 images found. (Size: 2.5mb)", embed.Fields[1].Value)
	assert.Equal(t, "1 videos found. (Size: 10.0mb)", embed.Fields[2].Value)
	assert.Equal(t, "Others", embed.Fields[3].Name)
	assert.Equal(t, "Total Size of Medias", embed.Fields[4].Name)
}

func TestScan_PartialFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.expectScan(testutil.TestHistory())
	f.expectNames()

	f.api.On("EditMessage", mock.Anything, promptHandle, "Downloading Images...", time.Duration(0)).Return(nil).Once()
	f.api.On("EditMessage", mock.Anything, promptHandle, "Download finished, 1 file(s) failed.", 10*time.Second).Return(nil).Once()
	f.fetcher.On("Fetch", mock.Anything, testutil.TestAttachment("cat.png", 0).URL, mock.Anything).Return(nil, errors.New("connection reset"))
	f.fetcher.On("Fetch", mock.Anything, testutil.TestAttachment("dog.jpg", 0).URL, mock.Anything).Return("dog", nil)

	done := f.runAsync(testutil.TestCommand(testutil.TestAdminID, ">scan"))
	waitSubscribed(t, f.reactions)
	f.reactions.Emit(selector(testutil.TestAdminID, "1️⃣"))
	waitDone(t, done)

	folder := onlyFolder(t, f.cfg.Downloads.Root)
	testutil.AssertFileCount(t, folder, 1)
	testutil.AssertNoPartialFiles(t, folder)
	f.api.AssertExpectations(t)
}

func TestScan_NothingSaved(t *testing.T) {
	f := newFixture(t, nil)
	f.expectScan(testutil.TestHistory())
	f.expectNames()

	f.api.On("EditMessage", mock.Anything, promptHandle, "Downloading Videos...", time.Duration(0)).Return(nil).Once()
	f.api.On("EditMessage", mock.Anything, promptHandle, "Something went wrong!", 10*time.Second).Return(nil).Once()
	f.fetcher.On("Fetch", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("status code 404"))

	done := f.runAsync(testutil.TestCommand(testutil.TestAdminID, ">scan"))
	waitSubscribed(t, f.reactions)
	f.reactions.Emit(selector(testutil.TestAdminID, "2️⃣"))
	waitDone(t, done)

	f.api.AssertExpectations(t)
}

func TestScan_TimeoutDownloadsNothing(t *testing.T) {
	f := newFixture(t, nil)
	f.cfg.Bot.SelectionTimeout = "50ms"
	f.expectScan(testutil.TestHistory())
	f.api.On("DeleteMessage", mock.Anything, promptHandle).Return(nil).Once()

	f.bot.HandleMessage(context.Background(), testutil.TestCommand(testutil.TestAdminID, ">scan"))

	entries, err := os.ReadDir(f.cfg.Downloads.Root)
	require.NoError(t, err)
	assert.Empty(t, entries)
	f.fetcher.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything, mock.Anything)
	f.api.AssertNotCalled(t, "EditMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.api.AssertExpectations(t)
}

func TestScan_NoAttachmentsNoPrompt(t *testing.T) {
	f := newFixture(t, nil)
	history := []discord.Message{testutil.TestMessage("m1"), testutil.TestMessage("m2")}
	f.api.On("IsAdministrator", mock.Anything, testutil.TestChannelID, testutil.TestAdminID).Return(true, nil)
	f.api.On("FetchHistory", mock.Anything, testutil.TestChannelID, 5).Return(history, nil)
	f.api.On("SendEmbed", mock.Anything, testutil.TestChannelID, mock.Anything).Return(reportHandle, nil)

	f.bot.HandleMessage(context.Background(), testutil.TestCommand(testutil.TestAdminID, ">scan"))

	f.api.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything)
	f.api.AssertExpectations(t)
}

func TestScan_LimitArgument(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
	}{
		{"default", ">scan", 5},
		{"explicit", ">scan 20", 20},
		{"not a number", ">scan many", 5},
		{"negative", ">scan -3", 5},
		{"clamped", ">scan 99999", 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			f.api.On("IsAdministrator", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
			f.api.On("FetchHistory", mock.Anything, testutil.TestChannelID, tt.want).Return([]discord.Message{}, nil).Once()
			f.api.On("SendEmbed", mock.Anything, mock.Anything, mock.Anything).Return(reportHandle, nil)

			f.bot.HandleMessage(context.Background(), testutil.TestCommand(testutil.TestAdminID, tt.content))
			f.api.AssertExpectations(t)
		})
	}
}

func TestScan_Unauthorized(t *testing.T) {
	f := newFixture(t, nil)
	f.api.On("IsAdministrator", mock.Anything, testutil.TestChannelID, testutil.TestUserID).Return(false, nil)
	f.api.On("Reply", mock.Anything, commandRef, "This is admin only command.", 10*time.Second).Return(discord.MessageHandle{}, nil).Once()

	f.bot.HandleMessage(context.Background(), testutil.TestCommand(testutil.TestUserID, ">scan"))

	f.api.AssertNotCalled(t, "FetchHistory", mock.Anything, mock.Anything, mock.Anything)
	f.api.AssertExpectations(t)
}

func TestScan_PermissionCheckErrorDenies(t *testing.T) {
	f := newFixture(t, nil)
	f.api.On("IsAdministrator", mock.Anything, mock.Anything, mock.Anything).Return(false, errors.New("unknown member"))
	f.api.On("Reply", mock.Anything, commandRef, "This is admin only command.", 10*time.Second).Return(discord.MessageHandle{}, nil).Once()

	f.bot.HandleMessage(context.Background(), testutil.TestCommand(testutil.TestAdminID, ">info"))

	f.api.AssertNotCalled(t, "FetchHistory", mock.Anything, mock.Anything, mock.Anything)
	f.api.AssertExpectations(t)
}

func TestScan_HistoryFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.api.On("IsAdministrator", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	f.api.On("FetchHistory", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("missing access"))
	f.api.On("Reply", mock.Anything, commandRef, "Something went wrong!", 10*time.Second).Return(discord.MessageHandle{}, nil).Once()

	f.bot.HandleMessage(context.Background(), testutil.TestCommand(testutil.TestAdminID, ">scan"))

	f.api.AssertNotCalled(t, "SendEmbed", mock.Anything, mock.Anything, mock.Anything)
	f.api.AssertExpectations(t)
}

func TestScan_ConcurrentPromptsDoNotCrossResolve(t *testing.T) {
	f := newFixture(t, nil)
	other := discord.MessageHandle{ChannelID: testutil.TestChannelID, MessageID: "prompt-2"}
	const secondAdmin = "u-admin-2"

	f.cfg.Bot.SelectionTimeout = "300ms"
	f.api.On("IsAdministrator", mock.Anything, testutil.TestChannelID, mock.Anything).Return(true, nil)
	f.api.On("FetchHistory", mock.Anything, testutil.TestChannelID, 5).Return(testutil.TestHistory(), nil)
	f.api.On("SendEmbed", mock.Anything, testutil.TestChannelID, mock.Anything).Return(reportHandle, nil)
	f.api.On("SendMessage", mock.Anything, testutil.TestChannelID, fullOptionsText).Return(promptHandle, nil).Once()
	f.api.On("SendMessage", mock.Anything, testutil.TestChannelID, fullOptionsText).Return(other, nil).Once()
	f.api.On("AddReaction", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.api.On("EditMessage", mock.Anything, mock.Anything, "Downloading Others...", time.Duration(0)).Return(nil).Once()
	f.api.On("EditMessage", mock.Anything, mock.Anything, "Download Completed.", 10*time.Second).Return(nil).Once()
	f.api.On("DeleteMessage", mock.Anything, mock.Anything).Return(nil).Once()
	f.expectNames()
	f.fetcher.On("Fetch", mock.Anything, testutil.TestAttachment("notes.txt", 0).URL, mock.Anything).Return("notes", nil).Once()

	first := f.runAsync(testutil.TestCommand(testutil.TestAdminID, ">scan"))
	second := f.runAsync(testutil.TestCommand(secondAdmin, ">scan"))
	ids := []string{waitSubscribed(t, f.reactions), waitSubscribed(t, f.reactions)}
	assert.ElementsMatch(t, []string{promptHandle.MessageID, other.MessageID}, ids)

	// The first admin reacts on both prompts; only their own resolves.
	for _, id := range ids {
		f.reactions.Emit(discord.ReactionEvent{
			ChannelID: testutil.TestChannelID,
			MessageID: id,
			UserID:    testutil.TestAdminID,
			Emoji:     "3️⃣",
		})
	}
	waitDone(t, first)
	waitDone(t, second)

	f.api.AssertExpectations(t)
	f.fetcher.AssertExpectations(t)
}

func TestPing(t *testing.T) {
	f := newFixture(t, nil)
	f.api.On("Latency").Return(42*time.Millisecond + 300*time.Microsecond)
	f.api.On("SendMessage", mock.Anything, testutil.TestChannelID, "Latency: 42ms").Return(discord.MessageHandle{}, nil).Once()

	f.bot.HandleMessage(context.Background(), testutil.TestCommand(testutil.TestUserID, ">ping"))
	f.api.AssertExpectations(t)
}

func TestHandleMessage_Ignored(t *testing.T) {
	tests := []struct {
		name string
		msg  discord.Message
	}{
		{"no prefix", testutil.TestCommand(testutil.TestAdminID, "scan")},
		{"unknown command", testutil.TestCommand(testutil.TestAdminID, ">dance")},
		{"prefix only", testutil.TestCommand(testutil.TestAdminID, ">")},
		{"bot author", func() discord.Message {
			m := testutil.TestCommand(testutil.TestBotID, ">scan")
			m.Author.Bot = true
			return m
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			// Any call on the mock would panic: no expectations are set.
			f.bot.HandleMessage(context.Background(), tt.msg)
			assert.Empty(t, f.api.Calls)
		})
	}
}

func TestStop_SupersedesPendingPrompt(t *testing.T) {
	f := newFixture(t, nil)
	f.cfg.Bot.SelectionTimeout = "1m"
	f.expectScan(testutil.TestHistory())
	f.api.On("DeleteMessage", mock.Anything, promptHandle).Return(nil).Once()

	f.bot.HandleMessageAsync(testutil.TestCommand(testutil.TestAdminID, ">scan"))
	waitSubscribed(t, f.reactions)

	stopped := make(chan struct{})
	go func() {
		f.bot.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
	f.api.AssertExpectations(t)

	// Messages after Stop are dropped.
	f.bot.HandleMessageAsync(testutil.TestCommand(testutil.TestAdminID, ">ping"))
	f.api.AssertNotCalled(t, "Latency")
}

func TestHandleMessageAsync_RecoversPanic(t *testing.T) {
	f := newFixture(t, nil)
	logs := testutil.NewLogCapture()
	f.bot.logger = logs.Logger()

	// No expectation for Latency: the mock panics inside the handler.
	f.bot.HandleMessageAsync(testutil.TestCommand(testutil.TestUserID, ">ping"))
	f.bot.Stop()

	testutil.AssertLogContains(t, logs.Entries(), "ERROR", "panic in message handler")
}
