package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keeeal/quoth/server/quoth/domain"
)

func TestWantsReaction(t *testing.T) {
	cases := []struct {
		content string
		want    bool
	}{
		{"quoth", true},
		{"QUOTH", true},
		{"quite a lot of that here", false},
		{"quote him", true},
		{"", false},
		{"qoth", false},
		{"xqxuxoxtxhx", true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, WantsReaction(tc.content), "content %q", tc.content)
	}
}

func memoryBot(chat *fakeChat, banlist ...string) (*BotService, *MemoryIndex) {
	index := NewMemoryIndex()
	cfg := BotConfig{QuothEmoji: "🐦", ClosestEmoji: "🔍", ReactEmoji: "🤔", Banlist: banlist}
	return NewBotService(nil, index, chat, cfg, nil, nil), index
}

func TestOnMessageAddsToIndex(t *testing.T) {
	chat := newFakeChat()
	bot, index := memoryBot(chat)

	require.NoError(t, bot.OnMessage(context.Background(), archived(1, "hello")))
	assert.Equal(t, int64(1), index.Count(3))
}

func TestOnMessageSkipsNonStandardTypes(t *testing.T) {
	chat := newFakeChat()
	bot, index := memoryBot(chat)

	msg := archived(1, "pin notice")
	msg.Type = domain.MessageTypeOther
	require.NoError(t, bot.OnMessage(context.Background(), msg))
	assert.Equal(t, int64(0), index.Count(3))
}

func TestOnMessageReactsToQuothSpelling(t *testing.T) {
	chat := newFakeChat()
	bot, _ := memoryBot(chat)

	require.NoError(t, bot.OnMessage(context.Background(), archived(1, "quoth the raven")))
	assert.Equal(t, []string{"🤔"}, chat.reactions)
}

func TestOnMessageNeverReactsToBots(t *testing.T) {
	chat := newFakeChat()
	bot, _ := memoryBot(chat)

	msg := archived(1, "quoth")
	msg.Author.Bot = true
	require.NoError(t, bot.OnMessage(context.Background(), msg))
	assert.Empty(t, chat.reactions)
}

func TestOnReactionAddIgnoresOtherEmoji(t *testing.T) {
	chat := newFakeChat()
	bot, _ := memoryBot(chat)

	err := bot.OnReactionAdd(context.Background(), domain.ReactionEvent{
		GuildID: 3, ChannelID: 20, MessageID: 1, Emoji: "👍",
	})
	require.NoError(t, err)
	assert.Empty(t, chat.sent)
}

func TestOnReactionAddQuotesRandomMessage(t *testing.T) {
	chat := newFakeChat()
	origin := archived(1, "please quote something")
	chat.messages[1] = origin
	bot, index := memoryBot(chat)
	index.Add(archived(2, "a memorable line"))

	err := bot.OnReactionAdd(context.Background(), domain.ReactionEvent{
		GuildID: 3, ChannelID: 20, MessageID: 1, Emoji: "🐦",
	})
	require.NoError(t, err)
	require.Len(t, chat.sent, 1)
	assert.Equal(t, "a memorable line", chat.sent[0].Description)
	assert.Equal(t, "alice", chat.sent[0].AuthorName)
}

func TestOnReactionAddAnswersEmptyGuildInChannel(t *testing.T) {
	chat := newFakeChat()
	chat.messages[1] = archived(1, "anything yet?")
	bot, _ := memoryBot(chat)

	err := bot.OnReactionAdd(context.Background(), domain.ReactionEvent{
		GuildID: 3, ChannelID: 20, MessageID: 1, Emoji: "🐦",
	})
	require.NoError(t, err)
	require.Len(t, chat.sent, 1)
	assert.Empty(t, chat.sent[0].Description)
	assert.Contains(t, chat.sent[0].Content, "guild 3")
}

func TestOnReactionAddSkipsBannedAuthors(t *testing.T) {
	chat := newFakeChat()
	chat.messages[1] = archived(1, "origin")
	bot, index := memoryBot(chat, "alice")
	index.Add(archived(2, "alice said this"))

	err := bot.OnReactionAdd(context.Background(), domain.ReactionEvent{
		GuildID: 3, ChannelID: 20, MessageID: 1, Emoji: "🐦",
	})
	require.NoError(t, err)
	require.Len(t, chat.sent, 1)
	assert.Contains(t, chat.sent[0].Content, "guild 3")
}

func TestOnReactionAddClosestUsesArchive(t *testing.T) {
	svc, chat, _ := closestFixture(t)
	cfg := BotConfig{QuothEmoji: "🐦", ClosestEmoji: "🔍"}
	bot := NewBotService(svc, nil, chat, cfg, nil, nil)

	origin := archived(99, "a cat sitting")
	chat.messages[99] = origin

	err := bot.OnReactionAdd(context.Background(), domain.ReactionEvent{
		GuildID: 3, ChannelID: 20, MessageID: 99, Emoji: "🔍",
	})
	require.NoError(t, err)
	require.Len(t, chat.sent, 1)
	assert.Equal(t, "a cat sitting", chat.sent[0].Description)
}

func TestOnReactionAddNotifiesSubscribers(t *testing.T) {
	chat := newFakeChat()
	chat.messages[1] = archived(1, "origin")
	index := NewMemoryIndex()
	index.Add(archived(2, "worth repeating"))
	pub := &countingPublisher{}
	cfg := BotConfig{QuothEmoji: "🐦"}
	bot := NewBotService(nil, index, chat, cfg, pub, nil)

	err := bot.OnReactionAdd(context.Background(), domain.ReactionEvent{
		GuildID: 3, ChannelID: 20, MessageID: 1, Emoji: "🐦",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"quoth.selected"}, pub.keys)
}

func TestOnGuildJoinBackfillsMemory(t *testing.T) {
	chat := newFakeChat()
	chat.channels = []domain.Channel{
		{ID: 20, GuildID: 3, Name: "general"},
		{ID: 21, GuildID: 3, Name: "private"},
	}
	chat.histories[20] = []domain.Message{archived(1, "one"), archived(2, "two")}
	chat.forbidden[21] = true
	bot, index := memoryBot(chat)

	require.NoError(t, bot.OnGuildJoin(context.Background(), domain.Guild{ID: 3, Name: "testers"}))
	assert.Equal(t, int64(2), index.Count(3))
}

func TestOnReadyBackfillsAllGuilds(t *testing.T) {
	chat := newFakeChat()
	chat.channels = []domain.Channel{{ID: 20, GuildID: 3, Name: "general"}}
	chat.histories[20] = []domain.Message{archived(1, "one")}
	bot, index := memoryBot(chat)

	guilds := []domain.Guild{{ID: 3, Name: "testers"}}
	require.NoError(t, bot.OnReady(context.Background(), guilds))
	assert.Equal(t, int64(1), index.Count(3))
}
