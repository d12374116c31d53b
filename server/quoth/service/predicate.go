package service

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/keeeal/quoth/server/quoth/domain"
)

// Predicate decides whether a snapshot is eligible for sampling. The set of
// predicates is closed: callers compose the named ones with All instead of
// injecting arbitrary logic.
type Predicate func(domain.Message) bool

func All(preds ...Predicate) Predicate {
	return func(msg domain.Message) bool {
		for _, pred := range preds {
			if pred != nil && !pred(msg) {
				return false
			}
		}
		return true
	}
}

func NotBot() Predicate {
	return func(msg domain.Message) bool {
		return !msg.Author.Bot
	}
}

// NotAuthor rejects messages written by any of the named authors.
func NotAuthor(names ...string) Predicate {
	banned := make(map[string]struct{}, len(names))
	for _, name := range names {
		banned[strings.ToLower(strings.TrimSpace(name))] = struct{}{}
	}
	return func(msg domain.Message) bool {
		_, ok := banned[strings.ToLower(msg.Author.Name)]
		return !ok
	}
}

// HasText matches messages whose content contains substr, case-insensitive.
// An empty substr matches any non-blank content.
func HasText(substr string) Predicate {
	substr = strings.ToLower(substr)
	return func(msg domain.Message) bool {
		text := strings.TrimSpace(msg.Content)
		if substr == "" {
			return text != ""
		}
		return strings.Contains(strings.ToLower(text), substr)
	}
}

func HasImage() Predicate {
	return func(msg domain.Message) bool {
		for _, att := range msg.Attachments {
			if isImage(att.Filename) {
				return true
			}
		}
		return false
	}
}

func HasVideo() Predicate {
	return func(msg domain.Message) bool {
		for _, att := range msg.Attachments {
			if isVideo(att.Filename) {
				return true
			}
		}
		return false
	}
}

// HasTag matches messages mentioning userID; a zero userID matches any
// message with at least one mention.
func HasTag(userID int64) Predicate {
	return func(msg domain.Message) bool {
		if userID == 0 {
			return len(msg.Mentions) > 0
		}
		for _, id := range msg.Mentions {
			if id == userID {
				return true
			}
		}
		return false
	}
}

func OnDay(day time.Weekday) Predicate {
	return func(msg domain.Message) bool {
		return msg.CreatedAt.Weekday() == day
	}
}

func OnYear(year int) Predicate {
	return func(msg domain.Message) bool {
		return msg.CreatedAt.Year() == year
	}
}

// HasURL matches messages containing a URL; with a substring it must appear
// in one of the URLs, compared case-insensitively against the URL with
// punctuation stripped, so "youtubecom" and "youtube" both match a youtube
// link.
func HasURL(substr string) Predicate {
	substr = strings.ToLower(substr)
	return func(msg domain.Message) bool {
		for _, url := range findURLs(msg.Content) {
			if substr == "" || strings.Contains(strings.ToLower(alphanumeric(url)), substr) {
				return true
			}
		}
		return false
	}
}

func alphanumeric(text string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, text)
}

var urlPattern = regexp.MustCompile(`https?://\S+`)

func findURLs(text string) []string {
	return urlPattern.FindAllString(text, -1)
}

var imageExtensions = map[string]struct{}{
	".bmp": {}, ".gif": {}, ".jpeg": {}, ".jpg": {}, ".png": {}, ".webp": {},
}

var videoExtensions = map[string]struct{}{
	".avi": {}, ".mkv": {}, ".mov": {}, ".mp4": {}, ".webm": {},
}

func isImage(name string) bool {
	_, ok := imageExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

func isVideo(name string) bool {
	_, ok := videoExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}
