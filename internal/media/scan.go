package media

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultScanLimit is the history depth used when none is given.
const DefaultScanLimit = 5

// ParseLimit reads the optional history depth from command arguments.
// Anything that is not a positive integer yields def; values above max are
// clamped when max is positive.
func ParseLimit(args []string, def, max int) int {
	limit := def
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil && n > 0 && isDigits(args[0]) {
			limit = n
		}
	}
	if max > 0 && limit > max {
		limit = max
	}
	return limit
}

func isDigits(s string) bool {
	return s != "" && strings.Trim(s, "0123456789") == ""
}

// Scan walks at most limit messages (newest first) and sorts every
// attachment into its category bucket. Bot-authored messages are skipped
// when excludeBots is set.
func Scan(history []Message, limit int, excludeBots bool) *ScanResult {
	result := newScanResult()
	if limit < 0 {
		limit = 0
	}
	if len(history) > limit {
		history = history[:limit]
	}
	result.MessagesScanned = len(history)

	seq := 1
	for _, msg := range history {
		if len(msg.Attachments) == 0 {
			continue
		}
		if excludeBots && msg.AuthorIsBot {
			continue
		}
		for _, att := range msg.Attachments {
			bucket := result.Bucket(Classify(att.URL))
			bucket.Items = append(bucket.Items, Item{
				Sequence:   seq,
				Attachment: att,
				FileName:   FileName(seq, att),
			})
			bucket.TotalBytes += att.Size
			seq++
		}
	}
	return result
}

// FileName builds the destination name {seq}_{timestamp}_{author}.{ext}.
func FileName(seq int, att Attachment) string {
	return fmt.Sprintf("%04d_%s_%s.%s", seq, FormatTimestamp(att.Timestamp), Sanitize(att.Author), Extension(att.URL))
}
