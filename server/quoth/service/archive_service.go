package service

import (
	"context"
	"errors"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/keeeal/quoth/server/common/log"
	"github.com/keeeal/quoth/server/quoth/domain"
)

// ArchiveService drives ingestion into the durable store and serves the two
// retrieval paths. Backfill and live ingestion share one entry point,
// AddMessage, so the skip rules apply identically on both.
type ArchiveService struct {
	store         MessageStore
	embedder      Embedder
	queryEmbedder Embedder
	chat          ChatClient
	mq            EventPublisher    // optional
	mirror        *AttachmentMirror // optional
}

func NewArchiveService(store MessageStore, embedder Embedder, chat ChatClient, mq EventPublisher, mirror *AttachmentMirror) *ArchiveService {
	return &ArchiveService{
		store:         store,
		embedder:      embedder,
		queryEmbedder: embedder,
		chat:          chat,
		mq:            mq,
		mirror:        mirror,
	}
}

// UseQueryEmbedder swaps the embedder used for query texts, typically for a
// cached wrapper. Ingestion keeps the plain embedder: message texts are
// embedded once by construction, so caching them buys nothing.
func (s *ArchiveService) UseQueryEmbedder(embedder Embedder) {
	s.queryEmbedder = embedder
}

// messageContent is the text a message is archived and embedded under:
// its content, or the first embed's description when the content is empty.
func messageContent(msg domain.Message) string {
	if msg.Content != "" {
		return msg.Content
	}
	if len(msg.Embeds) > 0 {
		return msg.Embeds[0].Description
	}
	return ""
}

// AddMessage archives one message. Bot messages, non-standard message types,
// empty messages and already-archived ids are skipped silently. Attachment-only
// messages are stored without an embedding.
func (s *ArchiveService) AddMessage(ctx context.Context, msg domain.Message) error {
	if msg.Author.Bot {
		return nil
	}
	if msg.Type != domain.MessageTypeNormal && msg.Type != domain.MessageTypeReply {
		return nil
	}
	content := messageContent(msg)
	if content == "" && len(msg.Attachments) == 0 {
		return nil
	}
	exists, err := s.store.Exists(ctx, msg.ID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	var embedding []float32
	if content != "" {
		embedding, err = s.embedder.Embed(ctx, content)
		if err != nil {
			return err
		}
	}
	if err := s.store.Insert(ctx, domain.NewRecord(msg, embedding)); err != nil {
		return err
	}

	if s.mq != nil {
		event := map[string]any{
			"event":      "message.archived",
			"message_id": strconv.FormatInt(msg.ID, 10),
			"channel_id": strconv.FormatInt(msg.ChannelID, 10),
			"guild_id":   strconv.FormatInt(msg.GuildID, 10),
		}
		if err := s.mq.Publish(ctx, "message.archived", event); err != nil {
			log.Warnf("publish message.archived for %d: %v", msg.ID, err)
		}
	}
	if s.mirror != nil && len(msg.Attachments) > 0 {
		if err := s.mirror.Mirror(ctx, msg); err != nil {
			log.Warnf("mirror attachments for message %d: %v", msg.ID, err)
		}
	}
	return nil
}

// BackfillChannel streams a channel's full history through AddMessage. A
// forbidden channel is logged and skipped; it never aborts the caller.
func (s *ArchiveService) BackfillChannel(ctx context.Context, ch domain.Channel) error {
	err := s.chat.History(ctx, ch.ID, func(msg domain.Message) error {
		return s.AddMessage(ctx, msg)
	})
	if errors.Is(err, domain.ErrChannelForbidden) {
		log.Warnf("channel forbidden: %s", ch.Name)
		return nil
	}
	if err != nil {
		return err
	}
	log.Infof("added channel: %s", ch.Name)
	return nil
}

// BackfillGuild backfills every text channel and thread of a guild
// concurrently.
func (s *ArchiveService) BackfillGuild(ctx context.Context, guild domain.Guild) error {
	channels, err := s.chat.GuildChannels(ctx, guild.ID)
	if err != nil {
		return err
	}
	g, ctx := errgroup.WithContext(ctx)
	for _, ch := range channels {
		g.Go(func() error {
			return s.BackfillChannel(ctx, ch)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	log.Infof("added guild: %s", guild.Name)
	return nil
}

// RandomMessage picks one archived record uniformly at random for a guild
// and resolves it back into a full snapshot.
func (s *ArchiveService) RandomMessage(ctx context.Context, guildID int64) (domain.Message, error) {
	record, err := s.store.RandomMessage(ctx, guildID)
	if err != nil {
		return domain.Message{}, err
	}
	return s.chat.FetchMessage(ctx, record.ChannelID, record.MessageID)
}

// queryEmbedding reads through: the stored embedding when present, else one
// computed from the live text. Computed values are not written back; a stored
// embedding is fixed for the lifetime of its record.
func (s *ArchiveService) queryEmbedding(ctx context.Context, msg domain.Message) ([]float32, error) {
	stored, err := s.store.Embedding(ctx, msg.ID)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		return stored, nil
	}
	return s.queryEmbedder.Embed(ctx, messageContent(msg))
}

// ClosestMessage finds the archived message semantically closest to origin
// within origin's guild.
func (s *ArchiveService) ClosestMessage(ctx context.Context, origin domain.Message) (domain.Message, error) {
	embedding, err := s.queryEmbedding(ctx, origin)
	if err != nil {
		return domain.Message{}, err
	}
	record, err := s.store.ClosestMessage(ctx, embedding, origin.GuildID)
	if err != nil {
		return domain.Message{}, err
	}
	return s.chat.FetchMessage(ctx, record.ChannelID, record.MessageID)
}

// ClosestToText serves ad-hoc query texts, e.g. from the HTTP API.
func (s *ArchiveService) ClosestToText(ctx context.Context, guildID int64, text string) (domain.Message, error) {
	embedding, err := s.queryEmbedder.Embed(ctx, text)
	if err != nil {
		return domain.Message{}, err
	}
	record, err := s.store.ClosestMessage(ctx, embedding, guildID)
	if err != nil {
		return domain.Message{}, err
	}
	return s.chat.FetchMessage(ctx, record.ChannelID, record.MessageID)
}

func (s *ArchiveService) Count(ctx context.Context, guildID int64) (int64, error) {
	return s.store.Count(ctx, guildID)
}
