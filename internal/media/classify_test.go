package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		url  string
		want Category
	}{
		{"https://cdn.discordapp.com/attachments/1/2/cat.jpg", CategoryImage},
		{"https://cdn.discordapp.com/attachments/1/2/cat.JPEG", CategoryImage},
		{"https://cdn.discordapp.com/attachments/1/2/cat.Png", CategoryImage},
		{"https://cdn.discordapp.com/attachments/1/2/clip.mp4", CategoryVideo},
		{"https://cdn.discordapp.com/attachments/1/2/clip.AVI", CategoryVideo},
		{"https://cdn.discordapp.com/attachments/1/2/clip.mov", CategoryVideo},
		{"https://cdn.discordapp.com/attachments/1/2/notes.pdf", CategoryOther},
		{"https://cdn.discordapp.com/attachments/1/2/archive", CategoryOther},
		{"https://cdn.discordapp.com/attachments/1/2/photo.png.mp4", CategoryVideo},
		{"https://cdn.discordapp.com/attachments/1/2/clip.mp4.txt", CategoryOther},
		{"https://cdn.discordapp.com/attachments/1/2/jpg", CategoryOther},
		{"https://cdn.discordapp.com/attachments/1/2/cat.png?ex=65&is=66&hm=abc", CategoryImage},
		{"https://cdn.discordapp.com/attachments/1/2/clip.mov#t=10", CategoryVideo},
		{"https://example.com/download?file=cat.png", CategoryOther},
		{"", CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.url))
		})
	}
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "png", Extension("https://cdn.example.com/a/b/Cat.PNG?ex=1"))
	assert.Equal(t, "gz", Extension("https://cdn.example.com/backup.tar.gz"))
	assert.Equal(t, "bin", Extension("https://cdn.example.com/README"))
	assert.Equal(t, "bin", Extension(""))
}

func TestCategoryString(t *testing.T) {
	assert.Equal(t, "image", CategoryImage.String())
	assert.Equal(t, "video", CategoryVideo.String())
	assert.Equal(t, "other", CategoryOther.String())
}
