package retrieval

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mramrohaleem/telegram-bot/internal/domain"
)

// rawFormat is the neutral shape format simplification works on, so the
// rules stay testable without a yt-dlp invocation.
type rawFormat struct {
	ID     string
	VCodec string
	ACodec string
	Height float64
	ABR    float64
}

// qualityPatterns map the quality keywords callers may pass to PickFormat.
var qualityPatterns = map[string]*regexp.Regexp{
	"1080p":    regexp.MustCompile(`1080`),
	"720p":     regexp.MustCompile(`720`),
	"480p":     regexp.MustCompile(`480`),
	"audio128": regexp.MustCompile(`audio`),
	"audio192": regexp.MustCompile(`audio`),
}

// SimplifyFormats reduces yt-dlp's format zoo to user-presentable options.
// Video formats with a known height become "Video <height>p", audio formats
// "Audio <abr> kbps" or plain "Audio"; duplicates by format id and by label
// are dropped, keeping the first.
func SimplifyFormats(formats []rawFormat) []domain.FormatOption {
	var options []domain.FormatOption
	seen := make(map[string]struct{})

	for _, f := range formats {
		if f.ID == "" {
			continue
		}
		if _, dup := seen[f.ID]; dup {
			continue
		}
		seen[f.ID] = struct{}{}

		switch {
		case f.VCodec != "none" && f.Height > 0:
			options = append(options, domain.FormatOption{
				FormatID: f.ID,
				Label:    fmt.Sprintf("Video %dp", int(f.Height)),
			})
		case f.ACodec != "" && f.ACodec != "none" && f.ABR > 0:
			options = append(options, domain.FormatOption{
				FormatID: f.ID,
				Label:    fmt.Sprintf("Audio %d kbps", int(f.ABR)),
				IsAudio:  true,
			})
		case f.ACodec != "" && f.ACodec != "none" && f.VCodec == "":
			options = append(options, domain.FormatOption{
				FormatID: f.ID,
				Label:    "Audio",
				IsAudio:  true,
			})
		}
	}

	unique := options[:0]
	seenLabel := make(map[string]struct{})
	for _, o := range options {
		if _, dup := seenLabel[o.Label]; dup {
			continue
		}
		seenLabel[o.Label] = struct{}{}
		unique = append(unique, o)
	}
	return unique
}

// PickFormat selects the option matching a quality keyword, falling back to
// the first available option when the keyword is unknown or nothing matches.
func PickFormat(meta domain.MediaMetadata, quality string) (domain.FormatOption, bool) {
	if len(meta.Formats) == 0 {
		return domain.FormatOption{}, false
	}
	if quality == "" {
		return meta.Formats[0], true
	}

	pattern, ok := qualityPatterns[strings.ToLower(quality)]
	if !ok {
		return meta.Formats[0], true
	}

	for _, option := range meta.Formats {
		if pattern.MatchString(strings.ToLower(option.Label)) || pattern.MatchString(strings.ToLower(option.FormatID)) {
			return option, true
		}
	}
	return meta.Formats[0], true
}
