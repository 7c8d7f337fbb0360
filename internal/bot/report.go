package bot

import (
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/runixer/mediagrab/internal/discord"
	"github.com/runixer/mediagrab/internal/download"
	"github.com/runixer/mediagrab/internal/media"
)

// reportColors is the palette a report embed picks its colour from.
var reportColors = []int{0xFF0000, 0xFFEE00, 0x40FF00, 0x00BBFF, 0xFF00BB}

// categoryKeys maps a category to its report translation prefix.
var categoryKeys = map[media.Category]string{
	media.CategoryImage: "report.images",
	media.CategoryVideo: "report.videos",
	media.CategoryOther: "report.others",
}

func (b *Bot) reportEmbed(result *media.ScanResult) discord.Embed {
	embed := discord.Embed{
		Title: b.t("report.title"),
		Color: reportColors[rand.Intn(len(reportColors))],
		Fields: []discord.EmbedField{{
			Name:  b.t("report.messages"),
			Value: b.t("report.messages_value", result.MessagesScanned),
		}},
	}

	for _, c := range media.Categories {
		bucket := result.Bucket(c)
		key := categoryKeys[c]
		value := b.t(key + "_none")
		if bucket.Len() > 0 {
			value = b.t(key+"_value", bucket.Len(), formatMB(bucket.TotalBytes))
		}
		embed.Fields = append(embed.Fields, discord.EmbedField{Name: b.t(key), Value: value})
	}

	embed.Fields = append(embed.Fields, discord.EmbedField{
		Name:  b.t("report.total"),
		Value: b.t("report.total_value", formatMB(result.TotalBytes())),
	})
	return embed
}

func (b *Bot) optionLabel(opt media.Option) string {
	return b.t("options." + string(opt.Label))
}

func (b *Bot) optionsText(options []media.Option) string {
	var sb strings.Builder
	sb.WriteString(b.t("options.header"))
	for i, opt := range options {
		sb.WriteByte('\n')
		sb.WriteString(b.t("options.line", i+1, b.optionLabel(opt)))
	}
	return sb.String()
}

func (b *Bot) statusText(report *download.Report) string {
	switch {
	case report.Failed() == 0:
		return b.t("download.completed")
	case report.Succeeded() == 0:
		return b.t("download.failed")
	default:
		return b.t("download.partial", report.Failed())
	}
}

// formatMB renders bytes as megabytes the way the report always has:
// "2.0", "10.5", "0.001".
func formatMB(bytes int64) string {
	s := strconv.FormatFloat(media.BytesToMB(bytes), 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func formatInt(n int64) string {
	return strconv.FormatInt(n, 10)
}

// progressThrottle lets at most one status edit through per interval,
// counted from its creation.
type progressThrottle struct {
	interval time.Duration
	last     time.Time
	now      func() time.Time
}

func newProgressThrottle(interval time.Duration, now func() time.Time) *progressThrottle {
	return &progressThrottle{interval: interval, last: now(), now: now}
}

func (p *progressThrottle) allow() bool {
	t := p.now()
	if t.Sub(p.last) < p.interval {
		return false
	}
	p.last = t
	return true
}
