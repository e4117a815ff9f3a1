package voice

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const defaultBaseURL = "https://api.elevenlabs.io"

// Client calls the ElevenLabs conversational API to obtain short-lived
// signed conversation URLs for the configured agent.
type Client struct {
	agentID    string
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

type signedURLResponse struct {
	SignedURL string `json:"signed_url"`
	Detail    *struct {
		Message string `json:"message"`
	} `json:"detail"`
}

func NewClient(agentID, apiKey string) *Client {
	return &Client{
		agentID: agentID,
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Configured reports whether both the agent id and the API key are set.
func (c *Client) Configured() bool {
	return c.agentID != "" && c.apiKey != ""
}

func (c *Client) AgentID() string {
	return c.agentID
}

func (c *Client) SignedURL(ctx context.Context) (string, error) {
	endpoint := fmt.Sprintf("%s/v1/convai/conversation/get_signed_url?agent_id=%s", c.baseURL, url.QueryEscape(c.agentID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build signed url request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("signed url request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read signed url response: %w", err)
	}

	var parsed signedURLResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode signed url response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if parsed.Detail != nil && parsed.Detail.Message != "" {
			return "", fmt.Errorf("signed url request failed: %s", parsed.Detail.Message)
		}
		return "", fmt.Errorf("signed url request failed with status %d", resp.StatusCode)
	}

	if parsed.SignedURL == "" {
		return "", fmt.Errorf("signed url response missing signed_url")
	}

	return parsed.SignedURL, nil
}
