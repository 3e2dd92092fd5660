package retrieval

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	reNoiseWords = regexp.MustCompile(`(?i)\s+(official video|lyrics|audio|video)\b`)
	reBrackets   = regexp.MustCompile(`[\[\](){}]`)
	reBadChars   = regexp.MustCompile(`[\\/:*?"<>|]`)
	reWhitespace = regexp.MustCompile(`\s+`)
)

// SanitizeFilename turns a media title into a display name safe for any
// filesystem: promo noise words and brackets are stripped, OS-illegal
// characters replaced, whitespace collapsed.
func SanitizeFilename(name string) string {
	name = reNoiseWords.ReplaceAllString(name, "")
	name = reBrackets.ReplaceAllString(name, "")
	name = reBadChars.ReplaceAllString(name, "_")
	name = reWhitespace.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}

// trimExt returns the file name without directory or extension, used as a
// title fallback.
func trimExt(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
