package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	commonauth "github.com/keeeal/quoth/server/common/auth"
	"github.com/keeeal/quoth/server/quoth/domain"
	"github.com/keeeal/quoth/server/quoth/service"
)

type stubChat struct{}

func (stubChat) FetchMessage(ctx context.Context, channelID, messageID int64) (domain.Message, error) {
	return domain.Message{}, fmt.Errorf("message %d: %w", messageID, domain.ErrNotFound)
}

func (stubChat) GuildChannels(ctx context.Context, guildID int64) ([]domain.Channel, error) {
	return nil, nil
}

func (stubChat) History(ctx context.Context, channelID int64, fn func(domain.Message) error) error {
	return nil
}

func (stubChat) Send(ctx context.Context, channelID int64, reply domain.Reply) (domain.Message, error) {
	return domain.Message{}, nil
}

func (stubChat) React(ctx context.Context, channelID, messageID int64, emoji string) error {
	return nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *service.MemoryIndex, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	auth := commonauth.NewService("test-secret", 60, string(hash))

	index := service.NewMemoryIndex()
	hub := service.NewHub()
	bot := service.NewBotService(nil, index, stubChat{}, service.BotConfig{QuothEmoji: "🐦"}, nil, hub)
	h := NewHandler(nil, index, bot, hub, auth, nil)

	r := gin.New()
	h.RegisterRoutes(r)

	token, err := auth.GenerateToken("admin", "admin")
	require.NoError(t, err)
	return r, index, token
}

func doRequest(r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func indexed(id int64, content string) domain.Message {
	return domain.Message{
		ID:        id,
		ChannelID: 20,
		GuildID:   3,
		Type:      domain.MessageTypeNormal,
		Content:   content,
		Author:    domain.Author{ID: 7, Name: "alice"},
		CreatedAt: time.Date(2022, time.May, 5, 10, 0, 0, 0, time.UTC),
	}
}

func TestHealth(t *testing.T) {
	r, _, _ := newTestRouter(t)
	w := doRequest(r, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLogin(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w := doRequest(r, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(r, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"password": "hunter2"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "admin", resp.Role)
}

func TestRandomRequiresToken(t *testing.T) {
	r, _, _ := newTestRouter(t)
	w := doRequest(r, http.MethodGet, "/api/v1/guilds/3/random", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRandomUnknownGuild(t *testing.T) {
	r, _, token := newTestRouter(t)
	w := doRequest(r, http.MethodGet, "/api/v1/guilds/3/random", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRandomReturnsMessage(t *testing.T) {
	r, index, token := newTestRouter(t)
	index.Add(indexed(1, "hello there"))

	w := doRequest(r, http.MethodGet, "/api/v1/guilds/3/random", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var msg domain.Message
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msg))
	assert.Equal(t, "hello there", msg.Content)
}

func TestRandomAppliesTextFilter(t *testing.T) {
	r, index, token := newTestRouter(t)
	index.Add(indexed(1, "cats are great"))
	index.Add(indexed(2, "dogs are great"))

	for i := 0; i < 20; i++ {
		w := doRequest(r, http.MethodGet, "/api/v1/guilds/3/random?text=cats", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var msg domain.Message
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msg))
		assert.Equal(t, int64(1), msg.ID)
	}
}

func TestRandomExcludesAuthors(t *testing.T) {
	r, index, token := newTestRouter(t)
	index.Add(indexed(1, "from alice"))
	bobMsg := indexed(2, "from bob")
	bobMsg.Author = domain.Author{ID: 8, Name: "bob"}
	index.Add(bobMsg)

	for i := 0; i < 20; i++ {
		w := doRequest(r, http.MethodGet, "/api/v1/guilds/3/random?author_not=alice", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var msg domain.Message
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msg))
		assert.Equal(t, int64(2), msg.ID)
	}
}

func TestRandomRejectsBadGuildID(t *testing.T) {
	r, _, token := newTestRouter(t)
	w := doRequest(r, http.MethodGet, "/api/v1/guilds/abc/random", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRandomRejectsBadDay(t *testing.T) {
	r, index, token := newTestRouter(t)
	index.Add(indexed(1, "hello"))

	w := doRequest(r, http.MethodGet, "/api/v1/guilds/3/random?day=someday", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCount(t *testing.T) {
	r, index, token := newTestRouter(t)
	index.Add(indexed(1, "one"))
	index.Add(indexed(2, "two"))

	w := doRequest(r, http.MethodGet, "/api/v1/guilds/3/count", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp CountResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(2), resp.Count)
}

func TestClosestUnavailableInMemoryMode(t *testing.T) {
	r, _, token := newTestRouter(t)
	w := doRequest(r, http.MethodPost, "/api/v1/guilds/3/closest", token, map[string]string{"text": "anything"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMessageEventIngests(t *testing.T) {
	r, index, token := newTestRouter(t)

	w := doRequest(r, http.MethodPost, "/api/v1/events/messages", token, indexed(1, "live message"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), index.Count(3))
}

func TestGuildJoinAccepted(t *testing.T) {
	r, _, token := newTestRouter(t)

	w := doRequest(r, http.MethodPost, "/api/v1/events/guild-join", token, domain.Guild{ID: 3, Name: "testers"})
	assert.Equal(t, http.StatusAccepted, w.Code)
}
