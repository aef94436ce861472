// Package voice 提供了与会话式语音服务商（ElevenLabs 兼容）交互的客户端。
package voice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"neomate-go/internal/config"
	"neomate-go/pkg/log"
)

// Client 是语音服务商 REST 接口的客户端。
// API key 由服务端持有，客户端拿到的只是带签名的一次性连接地址。
type Client struct {
	cfg    config.VoiceConfig
	client *http.Client
}

// NewClient 创建一个新的语音服务客户端实例。
func NewClient(cfg config.VoiceConfig) *Client {
	return &Client{
		cfg:    cfg,
		client: &http.Client{},
	}
}

type signedURLResponse struct {
	SignedURL string `json:"signed_url"`
}

// SignedURL 为指定 agent 换取一个带签名、限时、一次性的 WebSocket 连接地址。
func (c *Client) SignedURL(ctx context.Context, agentID string) (string, error) {
	if agentID == "" {
		return "", errors.New("agent id is required")
	}

	endpoint := fmt.Sprintf("%s/v1/convai/conversation/get-signed-url?agent_id=%s",
		c.cfg.BaseURL, url.QueryEscape(agentID))

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create signed url request: %w", err)
	}
	req.Header.Set("xi-api-key", c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		log.Errorf("[VoiceClient] 调用签名地址接口失败, error: %v", err)
		return "", fmt.Errorf("failed to call voice api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Errorf("[VoiceClient] 签名地址接口返回非 200 状态码: %s", resp.Status)
		return "", fmt.Errorf("voice api returned non-200 status: %s", resp.Status)
	}

	var body signedURLResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode signed url response: %w", err)
	}
	if body.SignedURL == "" {
		return "", errors.New("voice api returned empty signed url")
	}

	return body.SignedURL, nil
}
