package service

import (
	"context"

	"github.com/keeeal/quoth/server/quoth/domain"
)

// Embedder produces a fixed-dimension embedding for a text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// MessageStore is the durable archive the ingestion path writes through and
// the query paths read from.
type MessageStore interface {
	Exists(ctx context.Context, messageID int64) (bool, error)
	Insert(ctx context.Context, record domain.MessageRecord) error
	RandomMessage(ctx context.Context, guildID int64) (domain.MessageRecord, error)
	ClosestMessage(ctx context.Context, embedding []float32, guildID int64) (domain.MessageRecord, error)
	Embedding(ctx context.Context, messageID int64) ([]float32, error)
	Count(ctx context.Context, guildID int64) (int64, error)
}

// ChatClient is the platform collaborator: it owns the chat session and is
// the only way to resolve a record back into a full message snapshot.
type ChatClient interface {
	FetchMessage(ctx context.Context, channelID, messageID int64) (domain.Message, error)
	GuildChannels(ctx context.Context, guildID int64) ([]domain.Channel, error)
	History(ctx context.Context, channelID int64, fn func(domain.Message) error) error
	Send(ctx context.Context, channelID int64, reply domain.Reply) (domain.Message, error)
	React(ctx context.Context, channelID, messageID int64, emoji string) error
}

type EventPublisher interface {
	Publish(ctx context.Context, key string, payload any) error
}
