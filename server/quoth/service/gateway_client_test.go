package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keeeal/quoth/server/quoth/domain"
)

func newTestGateway(t *testing.T, handler http.Handler) *GatewayClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewGatewayClient(server.URL)
}

func TestGatewayFetchMessage(t *testing.T) {
	client := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/channels/20/messages/100", r.URL.Path)
		_ = json.NewEncoder(w).Encode(domain.Message{ID: 100, ChannelID: 20, Content: "hi"})
	}))

	msg, err := client.FetchMessage(context.Background(), 20, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(100), msg.ID)
	assert.Equal(t, "hi", msg.Content)
}

func TestGatewayStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusForbidden, domain.ErrChannelForbidden},
		{http.StatusNotFound, domain.ErrNotFound},
		{http.StatusUnprocessableEntity, domain.ErrNotMessageable},
	}
	for _, tc := range cases {
		client := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))
		_, err := client.FetchMessage(context.Background(), 20, 100)
		assert.ErrorIs(t, err, tc.want, "status %d", tc.status)
	}
}

func TestGatewayHistoryPaginates(t *testing.T) {
	pages := map[string]historyPage{
		"": {
			Messages:   []domain.Message{{ID: 1}, {ID: 2}},
			NextCursor: "abc",
		},
		"abc": {
			Messages: []domain.Message{{ID: 3}},
		},
	}
	var requests int
	client := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		assert.Equal(t, "/api/v1/channels/20/history", r.URL.Path)
		_ = json.NewEncoder(w).Encode(pages[r.URL.Query().Get("cursor")])
	}))

	var seen []int64
	err := client.History(context.Background(), 20, func(msg domain.Message) error {
		seen = append(seen, msg.ID)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, seen)
	assert.Equal(t, 2, requests)
}

func TestGatewayHistoryStopsOnCallbackError(t *testing.T) {
	client := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(historyPage{
			Messages:   []domain.Message{{ID: 1}, {ID: 2}},
			NextCursor: "more",
		})
	}))

	var seen int
	err := client.History(context.Background(), 20, func(msg domain.Message) error {
		seen++
		return context.Canceled
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, seen)
}

func TestGatewaySend(t *testing.T) {
	client := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/channels/20/messages", r.URL.Path)
		var reply domain.Reply
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reply))
		assert.Equal(t, "a quote", reply.Description)
		_ = json.NewEncoder(w).Encode(domain.Message{ID: 500, ChannelID: 20})
	}))

	sent, err := client.Send(context.Background(), 20, domain.Reply{Description: "a quote"})
	require.NoError(t, err)
	assert.Equal(t, int64(500), sent.ID)
}

func TestGatewayReact(t *testing.T) {
	client := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/channels/20/messages/100/reactions", r.URL.Path)
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "🤔", payload["emoji"])
		_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	}))

	require.NoError(t, client.React(context.Background(), 20, 100, "🤔"))
}
