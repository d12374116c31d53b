package service

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/keeeal/quoth/server/quoth/domain"
)

const descriptionLimit = 128

// RenderReply builds the outgoing quoted-message view of a snapshot. A
// message that carries only an embed is quoted through the embed's
// description; the first attachment becomes the image.
func RenderReply(msg domain.Message) domain.Reply {
	description := msg.Content
	if description == "" && len(msg.Embeds) > 0 {
		description = msg.Embeds[0].Description
	}

	reply := domain.Reply{
		Description:   description,
		AuthorName:    authorName(msg.Author),
		AuthorIconURL: msg.Author.AvatarURL,
		AuthorURL:     msg.JumpURL,
		Timestamp:     msg.CreatedAt,
	}
	if len(msg.Attachments) > 0 {
		reply.ImageURL = msg.Attachments[0].URL
	}
	return reply
}

func authorName(author domain.Author) string {
	if author.DisplayName != "" {
		return author.DisplayName
	}
	return author.Name
}

// MediaPostedPayload is fanned out whenever a message is quoted, tagged so
// downstream consumers can route on what kind of media was surfaced.
type MediaPostedPayload struct {
	EventType   string   `json:"eventType"`
	Tags        []string `json:"tags"`
	URI         string   `json:"uri"`
	ChannelID   string   `json:"channelId"`
	MessageID   string   `json:"messageId"`
	Description string   `json:"description"`
}

// MediaPosted describes a quoth selection: origin is the archived message
// that was chosen, quoth the reply message that was sent for it.
func MediaPosted(origin, quoth domain.Message) MediaPostedPayload {
	description := strings.ReplaceAll(RenderReply(origin).Description, "```", "`​`​`")
	if description == "" && len(origin.Attachments) > 0 {
		switch {
		case HasImage()(origin):
			description = "Image"
		case HasVideo()(origin):
			description = "Video"
		}
	}

	tags := map[string]struct{}{"quoth": {}}
	if HasImage()(origin) {
		addTags(tags, "pic", "picture", "image", "photo")
	}
	if HasVideo()(origin) {
		addTags(tags, "vid", "video", "movie")
	}
	for _, url := range findURLs(description) {
		addTags(tags, "url", "link", "website")
		flat := strings.ReplaceAll(strings.ToLower(url), ".", "")
		for _, site := range []string{"youtube", "imgur", "reddit", "github", "spotify"} {
			if strings.Contains(flat, site) {
				tags[site] = struct{}{}
			}
		}
		if isImage(url) {
			addTags(tags, "pic", "picture", "image", "photo")
		}
		if isVideo(url) {
			addTags(tags, "vid", "video", "movie")
		}
	}
	if origin.Pinned {
		tags["pin"] = struct{}{}
	}
	if origin.Author.Bot {
		tags["bot"] = struct{}{}
	}
	singulars := make([]string, 0, len(tags))
	for tag := range tags {
		singulars = append(singulars, tag)
	}
	for _, tag := range singulars {
		tags[tag+"s"] = struct{}{}
	}
	tags[origin.Author.Name] = struct{}{}
	tags[strconv.FormatInt(origin.ChannelID, 10)] = struct{}{}
	tags[strconv.Itoa(origin.CreatedAt.Year())] = struct{}{}

	sorted := make([]string, 0, len(tags))
	for tag := range tags {
		sorted = append(sorted, tag)
	}
	sort.Strings(sorted)

	return MediaPostedPayload{
		EventType:   "media_posted",
		Tags:        sorted,
		URI:         origin.JumpURL,
		ChannelID:   strconv.FormatInt(quoth.ChannelID, 10),
		MessageID:   strconv.FormatInt(quoth.ID, 10),
		Description: fmt.Sprintf("%s: %q", origin.Author.Name, truncate(description, descriptionLimit)),
	}
}

func addTags(tags map[string]struct{}, names ...string) {
	for _, name := range names {
		tags[name] = struct{}{}
	}
}

// truncate flattens newlines to spaces and caps the line at limit runes.
func truncate(text string, limit int) string {
	line := strings.ReplaceAll(text, "\n", " ")
	runes := []rune(line)
	if len(runes) <= limit {
		return line
	}
	return string(runes[:limit-3]) + "..."
}
