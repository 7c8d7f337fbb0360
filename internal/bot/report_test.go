package bot

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/runixer/mediagrab/internal/download"
	"github.com/runixer/mediagrab/internal/media"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name    string
		content string
		prefix  string
		command string
		args    []string
		ok      bool
	}{
		{"ping", ">ping", ">", "ping", []string{}, true},
		{"args", ">scan 10", ">", "scan", []string{"10"}, true},
		{"case folded", ">INFO  3 ", ">", "info", []string{"3"}, true},
		{"space after prefix", "> scan", ">", "scan", []string{}, true},
		{"multi char prefix", "!!scan", "!!", "scan", []string{}, true},
		{"no prefix", "scan", ">", "", nil, false},
		{"empty", ">", ">", "", nil, false},
		{"empty prefix", "scan", "", "", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			command, args, ok := parseCommand(tt.content, tt.prefix)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.command, command)
			if tt.ok {
				assert.Equal(t, tt.args, args)
			}
		})
	}
}

func TestFormatMB(t *testing.T) {
	assert.Equal(t, "0.0", formatMB(0))
	assert.Equal(t, "2.0", formatMB(2*1024*1024))
	assert.Equal(t, "2.5", formatMB(2*1024*1024+512*1024))
	assert.Equal(t, "0.001", formatMB(1024))
}

func TestOptionsText(t *testing.T) {
	b := newFixture(t, nil).bot

	result := media.Scan([]media.Message{{
		ID:          "m1",
		Attachments: []media.Attachment{{URL: "https://cdn.example/a.png", Size: 10}},
	}}, 5, true)
	opts := media.BuildOptions(result)

	assert.Equal(t, "__**Download Options**__\n[1] Images", b.optionsText(opts))
}

func TestReportEmbed_EmptyFilesAreCounted(t *testing.T) {
	b := newFixture(t, nil).bot

	result := media.Scan([]media.Message{{
		ID:          "m1",
		Attachments: []media.Attachment{{URL: "https://cdn.example/empty.png", Size: 0}},
	}}, 5, true)

	embed := b.reportEmbed(result)
	assert.Equal(t, "1 images found. (Size: 0.0mb)", embed.Fields[1].Value)
	assert.Equal(t, "No video found.", embed.Fields[2].Value)
	assert.Equal(t, "No other file found.", embed.Fields[3].Value)

	// Nothing to download, so still no option for it.
	assert.Empty(t, media.BuildOptions(result))
}

func TestStatusText(t *testing.T) {
	b := newFixture(t, nil).bot

	tests := []struct {
		name    string
		buckets []download.BucketReport
		want    string
	}{
		{"all saved", []download.BucketReport{{Succeeded: 3}}, "Download Completed."},
		{"some failed", []download.BucketReport{{Succeeded: 2}, {Failed: 1}}, "Download finished, 1 file(s) failed."},
		{"nothing saved", []download.BucketReport{{Failed: 2}}, "Something went wrong!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, b.statusText(&download.Report{Buckets: tt.buckets}))
		})
	}
}

func TestStatusText_Russian(t *testing.T) {
	b := newFixture(t, nil).bot
	b.cfg.Bot.Language = "ru"

	got := b.statusText(&download.Report{Buckets: []download.BucketReport{{Succeeded: 1}}})
	assert.NotEqual(t, "Download Completed.", got)
	assert.NotEmpty(t, got)
}

func TestProgressThrottle(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	p := newProgressThrottle(time.Second, clock)

	assert.False(t, p.allow(), "first update waits a full interval")

	now = now.Add(999 * time.Millisecond)
	assert.False(t, p.allow())

	now = now.Add(time.Millisecond)
	assert.True(t, p.allow())
	assert.False(t, p.allow())

	now = now.Add(5 * time.Second)
	assert.True(t, p.allow())
}

func TestRecordCommandMetric(t *testing.T) {
	counter := commandsTotal.WithLabelValues("ping", "ok")
	before := testutil.ToFloat64(counter)

	recordCommand("ping", "ok")

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestRecordScanMetric(t *testing.T) {
	images := scannedAttachments.WithLabelValues("image")
	before := testutil.ToFloat64(images)

	recordScan(10, map[string]int{"image": 3, "video": 0})

	assert.Equal(t, before+3, testutil.ToFloat64(images))
}
