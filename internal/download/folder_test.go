package download

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamer_Name(t *testing.T) {
	n := NewNamer("downloads")
	at := time.Date(2024, 2, 29, 23, 59, 1, 0, time.UTC)

	assert.Equal(t, filepath.Join("downloads", "MyServer_general-chat_2024-02-29_23-59-01"), n.Name("My Server!", "general-chat", at))
	assert.Equal(t, filepath.Join("downloads", "Server_Channel_2024-02-29_23-59-01"), n.Name("", "🎉🎉", at))
	assert.Equal(t, filepath.Join("downloads", "Cafe_....etc_2024-02-29_23-59-01"), n.Name("Café", "../../etc", at))
}

func TestNamer_CreateSameSecondIsIdempotent(t *testing.T) {
	root := t.TempDir()
	n := NewNamer(root)
	fixed := time.Date(2024, 2, 29, 23, 59, 1, 0, time.UTC)
	n.now = func() time.Time { return fixed }

	first, err := n.Create("Guild", "media")
	require.NoError(t, err)
	second, err := n.Create("Guild", "media")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	info, err := os.Stat(first)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNamer_CreateFailsUnderFile(t *testing.T) {
	root := t.TempDir()
	blocker := filepath.Join(root, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := NewNamer(blocker).Create("g", "c")
	assert.Error(t, err)
}
