package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/keeeal/quoth/server/quoth/domain"
)

// GatewayClient implements ChatClient against the chat-platform gateway
// sidecar, which owns the actual platform session and exposes fetch, send,
// reactions and history over HTTP.
type GatewayClient struct {
	endpoint string
	client   *http.Client
}

func NewGatewayClient(endpoint string) *GatewayClient {
	return &GatewayClient{
		endpoint: strings.TrimRight(strings.TrimSpace(endpoint), "/"),
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

func (g *GatewayClient) FetchMessage(ctx context.Context, channelID, messageID int64) (domain.Message, error) {
	var msg domain.Message
	err := g.get(ctx, fmt.Sprintf("/api/v1/channels/%d/messages/%d", channelID, messageID), &msg)
	return msg, err
}

func (g *GatewayClient) GuildChannels(ctx context.Context, guildID int64) ([]domain.Channel, error) {
	var channels []domain.Channel
	err := g.get(ctx, fmt.Sprintf("/api/v1/guilds/%d/channels", guildID), &channels)
	return channels, err
}

type historyPage struct {
	Messages   []domain.Message `json:"messages"`
	NextCursor string           `json:"next_cursor"`
}

// History streams a channel's full history, oldest page first, calling fn
// for every message. A non-nil error from fn stops the stream.
func (g *GatewayClient) History(ctx context.Context, channelID int64, fn func(domain.Message) error) error {
	cursor := ""
	for {
		path := fmt.Sprintf("/api/v1/channels/%d/history?limit=200", channelID)
		if cursor != "" {
			path += "&cursor=" + url.QueryEscape(cursor)
		}
		var page historyPage
		if err := g.get(ctx, path, &page); err != nil {
			return err
		}
		for _, msg := range page.Messages {
			if err := fn(msg); err != nil {
				return err
			}
		}
		if page.NextCursor == "" {
			return nil
		}
		cursor = page.NextCursor
	}
}

func (g *GatewayClient) Send(ctx context.Context, channelID int64, reply domain.Reply) (domain.Message, error) {
	var sent domain.Message
	err := g.post(ctx, fmt.Sprintf("/api/v1/channels/%d/messages", channelID), reply, &sent)
	return sent, err
}

func (g *GatewayClient) React(ctx context.Context, channelID, messageID int64, emoji string) error {
	payload := map[string]any{"emoji": emoji}
	var resp map[string]any
	return g.post(ctx, fmt.Sprintf("/api/v1/channels/%d/messages/%d/reactions", channelID, messageID), payload, &resp)
}

func (g *GatewayClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+path, nil)
	if err != nil {
		return err
	}
	return g.do(req, out)
}

func (g *GatewayClient) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return g.do(req, out)
}

func (g *GatewayClient) do(req *http.Request, out any) error {
	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("gateway %s: %w", req.URL.Path, domain.ErrChannelForbidden)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("gateway %s: %w", req.URL.Path, domain.ErrNotFound)
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return fmt.Errorf("gateway %s: %w", req.URL.Path, domain.ErrNotMessageable)
	case resp.StatusCode >= 300:
		return fmt.Errorf("gateway status %d on %s", resp.StatusCode, req.URL.Path)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
