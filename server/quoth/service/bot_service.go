package service

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/keeeal/quoth/server/common/log"
	"github.com/keeeal/quoth/server/quoth/domain"
)

type BotConfig struct {
	QuothEmoji   string
	ClosestEmoji string
	ReactEmoji   string
	Banlist      []string
}

// BotService is the inbound event surface. The platform adapter forwards its
// events here; live and backfill ingestion funnel into the same add path.
// Exactly one of archive (durable store) or index (in-memory variant) backs
// the service.
type BotService struct {
	archive *ArchiveService
	index   *MemoryIndex
	chat    ChatClient
	cfg     BotConfig
	mq      EventPublisher // optional
	hub     *Hub           // optional
}

func NewBotService(archive *ArchiveService, index *MemoryIndex, chat ChatClient, cfg BotConfig, mq EventPublisher, hub *Hub) *BotService {
	return &BotService{archive: archive, index: index, chat: chat, cfg: cfg, mq: mq, hub: hub}
}

// OnReady backfills every known guild concurrently.
func (b *BotService) OnReady(ctx context.Context, guilds []domain.Guild) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, guild := range guilds {
		g.Go(func() error {
			return b.OnGuildJoin(ctx, guild)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	log.Infof("finished initial download")
	return nil
}

func (b *BotService) OnGuildJoin(ctx context.Context, guild domain.Guild) error {
	if b.index != nil {
		return b.backfillGuildMemory(ctx, guild)
	}
	return b.archive.BackfillGuild(ctx, guild)
}

func (b *BotService) backfillGuildMemory(ctx context.Context, guild domain.Guild) error {
	channels, err := b.chat.GuildChannels(ctx, guild.ID)
	if err != nil {
		return err
	}
	g, ctx := errgroup.WithContext(ctx)
	for _, ch := range channels {
		g.Go(func() error {
			err := b.chat.History(ctx, ch.ID, func(msg domain.Message) error {
				b.addToIndex(msg)
				return nil
			})
			if errors.Is(err, domain.ErrChannelForbidden) {
				log.Warnf("channel forbidden: %s", ch.Name)
				return nil
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	log.Infof("added guild: %s", guild.Name)
	return nil
}

func (b *BotService) addToIndex(msg domain.Message) {
	if msg.Type != domain.MessageTypeNormal && msg.Type != domain.MessageTypeReply {
		return
	}
	b.index.Add(msg)
}

// OnMessage ingests one live message through the same path backfill uses,
// and reacts to messages that spell out "quoth".
func (b *BotService) OnMessage(ctx context.Context, msg domain.Message) error {
	if b.cfg.ReactEmoji != "" && !msg.Author.Bot && WantsReaction(msg.Content) {
		if err := b.chat.React(ctx, msg.ChannelID, msg.ID, b.cfg.ReactEmoji); err != nil {
			log.Warnf("react to message %d: %v", msg.ID, err)
		}
	}
	if b.index != nil {
		b.addToIndex(msg)
		return nil
	}
	return b.archive.AddMessage(ctx, msg)
}

// OnReactionAdd serves the two retrieval operations: the quoth emoji quotes
// a random archived message, the closest emoji quotes the semantically
// nearest one. A NotFound outcome is answered in-channel, not raised.
func (b *BotService) OnReactionAdd(ctx context.Context, event domain.ReactionEvent) error {
	if event.Emoji != b.cfg.QuothEmoji && event.Emoji != b.cfg.ClosestEmoji {
		return nil
	}

	origin, err := b.chat.FetchMessage(ctx, event.ChannelID, event.MessageID)
	if err != nil {
		return err
	}

	chosen, err := b.pick(ctx, event.Emoji, origin)
	if isNotFound(err) {
		_, sendErr := b.chat.Send(ctx, event.ChannelID, domain.Reply{Content: err.Error()})
		return sendErr
	}
	if err != nil {
		return err
	}

	sent, err := b.chat.Send(ctx, event.ChannelID, RenderReply(chosen))
	if err != nil {
		return err
	}
	b.notify(ctx, chosen, sent)
	return nil
}

func (b *BotService) pick(ctx context.Context, emoji string, origin domain.Message) (domain.Message, error) {
	if b.index != nil {
		pred := All(NotBot(), NotAuthor(b.cfg.Banlist...))
		return b.index.RandomMessage(origin.GuildID, pred)
	}
	if emoji == b.cfg.ClosestEmoji && b.cfg.ClosestEmoji != b.cfg.QuothEmoji {
		return b.archive.ClosestMessage(ctx, origin)
	}
	return b.archive.RandomMessage(ctx, origin.GuildID)
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrGuildNotArchived) ||
		errors.Is(err, domain.ErrNoEligibleMessages)
}

func (b *BotService) notify(ctx context.Context, origin, quoth domain.Message) {
	payload := MediaPosted(origin, quoth)
	if b.mq != nil {
		if err := b.mq.Publish(ctx, "quoth.selected", payload); err != nil {
			log.Warnf("publish quoth.selected for %d: %v", origin.ID, err)
		}
	}
	if b.hub != nil {
		b.hub.Broadcast(payload)
	}
}

// WantsReaction reports whether content spells out "quoth" once every letter
// outside the word is dropped.
func WantsReaction(content string) bool {
	var kept strings.Builder
	for _, r := range strings.ToLower(content) {
		if strings.ContainsRune("quoth", r) {
			kept.WriteRune(r)
		}
	}
	return strings.Contains(kept.String(), "quoth")
}
