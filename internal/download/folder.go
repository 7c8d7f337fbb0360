package download

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/runixer/mediagrab/internal/media"
)

const (
	fallbackServer  = "Server"
	fallbackChannel = "Channel"
)

// Namer derives and creates batch folders under a downloads root.
type Namer struct {
	root string
	now  func() time.Time
}

// NewNamer creates a Namer rooted at root.
func NewNamer(root string) *Namer {
	return &Namer{root: root, now: time.Now}
}

// Name returns {root}/{server}_{channel}_{timestamp} for the given moment.
// Names are sanitized; an empty result falls back to Server or Channel.
func (n *Namer) Name(server, channel string, at time.Time) string {
	s := media.Sanitize(server)
	if s == "" {
		s = fallbackServer
	}
	c := media.Sanitize(channel)
	if c == "" {
		c = fallbackChannel
	}
	return filepath.Join(n.root, fmt.Sprintf("%s_%s_%s", s, c, media.FormatTimestamp(at)))
}

// Create makes the folder for the current second. Creating the same folder
// twice is not an error: both batches share it and file names stay unique
// through their sequence numbers.
func (n *Namer) Create(server, channel string) (string, error) {
	dir := n.Name(server, channel, n.now())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create download folder: %w", err)
	}
	return dir, nil
}
