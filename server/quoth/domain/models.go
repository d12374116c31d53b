package domain

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

type MessageType string

const (
	MessageTypeNormal MessageType = "normal"
	MessageTypeReply  MessageType = "reply"
	MessageTypeOther  MessageType = "other"
)

type ChannelKind string

const (
	ChannelKindText   ChannelKind = "text"
	ChannelKindThread ChannelKind = "thread"
)

type Guild struct {
	ID   int64  `json:"id,string"`
	Name string `json:"name"`
}

type Channel struct {
	ID      int64       `json:"id,string"`
	GuildID int64       `json:"guild_id,string"`
	Name    string      `json:"name"`
	Kind    ChannelKind `json:"kind"`
}

type Author struct {
	ID          int64  `json:"id,string"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
	Bot         bool   `json:"bot"`
}

type Attachment struct {
	ID          int64  `json:"id,string"`
	Filename    string `json:"filename"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
}

// EmbedPreview is the slice of a platform embed the archive cares about:
// enough to stand in for text content when a message carries only an embed.
type EmbedPreview struct {
	Description string `json:"description"`
}

// Message is a snapshot of a platform message, carrying enough to render a
// quoted reply without re-fetching the original.
type Message struct {
	ID          int64          `json:"id,string"`
	ChannelID   int64          `json:"channel_id,string"`
	GuildID     int64          `json:"guild_id,string"`
	Type        MessageType    `json:"type"`
	Content     string         `json:"content"`
	Author      Author         `json:"author"`
	Attachments []Attachment   `json:"attachments,omitempty"`
	Embeds      []EmbedPreview `json:"embeds,omitempty"`
	Mentions    []int64        `json:"mentions,omitempty"`
	Pinned      bool           `json:"pinned"`
	CreatedAt   time.Time      `json:"created_at"`
	JumpURL     string         `json:"jump_url"`
}

// MessageRecord is the durable row: identity plus an optional embedding.
// The embedding is fixed for the lifetime of the record; attachment-only
// messages are stored with a nil embedding.
type MessageRecord struct {
	MessageID int64
	ChannelID int64
	GuildID   int64
	Embedding *pgvector.Vector
}

func NewRecord(msg Message, embedding []float32) MessageRecord {
	record := MessageRecord{
		MessageID: msg.ID,
		ChannelID: msg.ChannelID,
		GuildID:   msg.GuildID,
	}
	if embedding != nil {
		v := pgvector.NewVector(embedding)
		record.Embedding = &v
	}
	return record
}

type ReactionEvent struct {
	GuildID   int64  `json:"guild_id,string"`
	ChannelID int64  `json:"channel_id,string"`
	MessageID int64  `json:"message_id,string"`
	Emoji     string `json:"emoji"`
}

// Reply is an outgoing quoted message, rendered from a snapshot.
type Reply struct {
	Description   string    `json:"description"`
	AuthorName    string    `json:"author_name"`
	AuthorIconURL string    `json:"author_icon_url,omitempty"`
	AuthorURL     string    `json:"author_url,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	ImageURL      string    `json:"image_url,omitempty"`
	Content       string    `json:"content,omitempty"`
}
