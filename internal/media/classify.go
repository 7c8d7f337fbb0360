package media

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

var (
	imagePattern = regexp.MustCompile(`(?i)\.(jpg|jpeg|png)$`)
	videoPattern = regexp.MustCompile(`(?i)\.(mp4|avi|mov)$`)
)

// Classify returns the category of the attachment behind rawURL.
// Only the trailing extension of the URL path counts; query and fragment
// are ignored so signed CDN links classify the same as bare ones.
func Classify(rawURL string) Category {
	p := urlPath(rawURL)
	switch {
	case imagePattern.MatchString(p):
		return CategoryImage
	case videoPattern.MatchString(p):
		return CategoryVideo
	default:
		return CategoryOther
	}
}

// Extension returns the lower-cased path extension of rawURL without the dot,
// or "bin" when the path has none.
func Extension(rawURL string) string {
	ext := strings.TrimPrefix(path.Ext(urlPath(rawURL)), ".")
	ext = Sanitize(strings.ToLower(ext))
	if ext == "" {
		return "bin"
	}
	return ext
}

func urlPath(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		return u.Path
	}
	// Not a parseable URL: strip anything after ? or # by hand.
	if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}
