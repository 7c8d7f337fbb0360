// Package testutil provides centralized test mocks, fixtures, and helpers.
// All test files should import mocks from here instead of defining their own.
package testutil

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/runixer/mediagrab/internal/discord"
	"github.com/runixer/mediagrab/internal/storage"
)

// MockChatAPI implements discord.ChatAPI for tests.
type MockChatAPI struct {
	mock.Mock
}

var _ discord.ChatAPI = (*MockChatAPI)(nil)

func (m *MockChatAPI) FetchHistory(ctx context.Context, channelID string, limit int) ([]discord.Message, error) {
	args := m.Called(ctx, channelID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]discord.Message), args.Error(1)
}

func (m *MockChatAPI) SendMessage(ctx context.Context, channelID, content string) (discord.MessageHandle, error) {
	args := m.Called(ctx, channelID, content)
	return args.Get(0).(discord.MessageHandle), args.Error(1)
}

func (m *MockChatAPI) SendEmbed(ctx context.Context, channelID string, embed discord.Embed) (discord.MessageHandle, error) {
	args := m.Called(ctx, channelID, embed)
	return args.Get(0).(discord.MessageHandle), args.Error(1)
}

func (m *MockChatAPI) Reply(ctx context.Context, to discord.MessageHandle, content string, deleteAfter time.Duration) (discord.MessageHandle, error) {
	args := m.Called(ctx, to, content, deleteAfter)
	return args.Get(0).(discord.MessageHandle), args.Error(1)
}

func (m *MockChatAPI) EditMessage(ctx context.Context, h discord.MessageHandle, content string, deleteAfter time.Duration) error {
	args := m.Called(ctx, h, content, deleteAfter)
	return args.Error(0)
}

func (m *MockChatAPI) DeleteMessage(ctx context.Context, h discord.MessageHandle) error {
	args := m.Called(ctx, h)
	return args.Error(0)
}

func (m *MockChatAPI) AddReaction(ctx context.Context, h discord.MessageHandle, emoji string) error {
	args := m.Called(ctx, h, emoji)
	return args.Error(0)
}

func (m *MockChatAPI) IsAdministrator(ctx context.Context, channelID, userID string) (bool, error) {
	args := m.Called(ctx, channelID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockChatAPI) GuildName(ctx context.Context, guildID string) (string, error) {
	args := m.Called(ctx, guildID)
	return args.String(0), args.Error(1)
}

func (m *MockChatAPI) ChannelName(ctx context.Context, channelID string) (string, error) {
	args := m.Called(ctx, channelID)
	return args.String(0), args.Error(1)
}

func (m *MockChatAPI) Latency() time.Duration {
	args := m.Called()
	return args.Get(0).(time.Duration)
}

// MockFetcher implements download.Fetcher for tests.
// The first return value is written to w when it is a string or []byte.
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Fetch(ctx context.Context, url string, w io.Writer) (int64, error) {
	args := m.Called(ctx, url, w)
	var body []byte
	switch v := args.Get(0).(type) {
	case string:
		body = []byte(v)
	case []byte:
		body = v
	}
	if err := args.Error(1); err != nil {
		return 0, err
	}
	n, err := w.Write(body)
	return int64(n), err
}

// MockJournal implements storage.DownloadRecorder and storage.DownloadReader.
type MockJournal struct {
	mock.Mock
}

var (
	_ storage.DownloadRecorder = (*MockJournal)(nil)
	_ storage.DownloadReader   = (*MockJournal)(nil)
)

func (m *MockJournal) RecordDownload(ctx context.Context, rec storage.DownloadRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockJournal) RecentDownloads(ctx context.Context, filter storage.DownloadFilter) ([]storage.DownloadRecord, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storage.DownloadRecord), args.Error(1)
}

func (m *MockJournal) DownloadSummary(ctx context.Context, since time.Time) (storage.Summary, error) {
	args := m.Called(ctx, since)
	return args.Get(0).(storage.Summary), args.Error(1)
}

// FakeReactions is an in-memory reaction source. Unlike the gateway hub it
// records every subscription so tests can wait for a prompt to listen.
type FakeReactions struct {
	mu         sync.Mutex
	subs       map[string]chan discord.ReactionEvent
	subscribed chan string
	cancelled  []string
}

// NewFakeReactions creates an empty FakeReactions.
func NewFakeReactions() *FakeReactions {
	return &FakeReactions{
		subs:       make(map[string]chan discord.ReactionEvent),
		subscribed: make(chan string, 16),
	}
}

func (f *FakeReactions) Subscribe(messageID string) (<-chan discord.ReactionEvent, func()) {
	ch := make(chan discord.ReactionEvent, 16)
	f.mu.Lock()
	f.subs[messageID] = ch
	f.mu.Unlock()
	f.subscribed <- messageID

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			delete(f.subs, messageID)
			f.cancelled = append(f.cancelled, messageID)
		})
	}
}

// Subscribed returns the channel of subscribed message IDs.
func (f *FakeReactions) Subscribed() <-chan string {
	return f.subscribed
}

// Emit delivers ev to the subscriber of ev.MessageID. Returns false when
// nobody listens.
func (f *FakeReactions) Emit(ev discord.ReactionEvent) bool {
	f.mu.Lock()
	ch, ok := f.subs[ev.MessageID]
	f.mu.Unlock()
	if !ok {
		return false
	}
	ch <- ev
	return true
}

// Cancelled returns message IDs whose subscription was released.
func (f *FakeReactions) Cancelled() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.cancelled...)
}
