package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Atharva-Kanherkar/attentive/internal/model"
)

// Defaults for Config.
const (
	DefaultBaseURL     = "https://openrouter.ai/api/v1"
	DefaultVisionModel = "openai/gpt-4o-mini"
	DefaultChatModel   = "deepseek/deepseek-chat"
	DefaultTimeout     = 60 * time.Second
)

// Config configures the OpenRouter client.
type Config struct {
	APIKey      string
	BaseURL     string
	VisionModel string
	ChatModel   string
	Timeout     time.Duration
}

// Client is an OpenRouter API client.
type Client struct {
	apiKey      string
	baseURL     string
	visionModel string
	chatModel   string
	httpClient  *http.Client

	mu      sync.RWMutex
	enabled bool
}

// NewClient creates a client. It stays disabled until Init succeeds.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.VisionModel == "" {
		cfg.VisionModel = DefaultVisionModel
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = DefaultChatModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		apiKey:      strings.TrimSpace(cfg.APIKey),
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		visionModel: cfg.VisionModel,
		chatModel:   cfg.ChatModel,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
	}
}

// Init enables the client when an API key is configured.
func (c *Client) Init() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = c.apiKey != ""
	if c.enabled {
		log.Printf("[ai] Enabled (vision: %s, chat: %s)", c.visionModel, c.chatModel)
	} else {
		log.Printf("[ai] No API key configured, analysis disabled")
	}
	return c.enabled
}

// Enabled reports whether Init succeeded.
func (c *Client) Enabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabled
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

const analyzePrompt = `You are scoring a user's productivity from a screenshot of their desktop.
Context:
%s
Respond with a single JSON object and nothing else:
{
  "productivity_score": number from 0 (distracted) to 10 (deep focused work),
  "activity_type": "reading|coding|writing|research|communication|entertainment|other",
  "applications": ["visible applications, most prominent first"],
  "focus_quality": "excellent|good|fair|poor",
  "confidence_score": number from 0 to 1,
  "raw_analysis": "one or two sentences describing what the user is doing",
  "categories": ["broad categories"],
  "tags": ["short tags"]
}
Omit a score if you cannot judge it.`

// Analyze scores one screenshot.
func (c *Client) Analyze(ctx context.Context, image []byte, cc CaptureContext) (*model.AnalysisResult, error) {
	if !c.Enabled() {
		return nil, ErrUnavailable
	}
	if len(image) == 0 {
		return nil, fmt.Errorf("empty capture")
	}

	prompt := fmt.Sprintf(analyzePrompt, describeContext(cc))
	content, err := c.complete(ctx, chatRequest{
		Model: c.visionModel,
		Messages: []chatMessage{{
			Role: "user",
			Content: []map[string]any{
				{"type": "text", "text": prompt},
				{"type": "image_url", "image_url": map[string]string{
					"url": "data:" + http.DetectContentType(image) + ";base64," + base64.StdEncoding.EncodeToString(image),
				}},
			},
		}},
		MaxTokens:   600,
		Temperature: 0.2,
	})
	if err != nil {
		return nil, err
	}
	return ParseAnalysis(content)
}

const reportPrompt = `Below are AI scorings of a user's desktop over the last %s, oldest first.
%s
Find work patterns (deep focus, fragmentation, task switches, distractions) and give
personalised recommendations. Be specific: mention applications, times and activities.
Respond with a single JSON object and nothing else:
{
  "summary": "two or three sentences",
  "patterns": [{"type": "focus|distraction|routine|anomaly", "title": "max 50 chars", "body": "max 150 chars", "severity": "info|warning"}],
  "recommendations": ["actionable suggestion"]
}`

// Report asks the chat model for patterns and recommendations over analyses.
func (c *Client) Report(ctx context.Context, analyses []model.Analysis, tf model.Timeframe) (*Report, error) {
	if !c.Enabled() {
		return nil, ErrUnavailable
	}
	content, err := c.complete(ctx, chatRequest{
		Model:       c.chatModel,
		Messages:    []chatMessage{{Role: "user", Content: fmt.Sprintf(reportPrompt, tf, describeAnalyses(analyses))}},
		MaxTokens:   800,
		Temperature: 0.3,
	})
	if err != nil {
		return nil, err
	}
	return ParseReport(content)
}

func (c *Client) complete(ctx context.Context, req chatRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("HTTP-Referer", "https://github.com/Atharva-Kanherkar/attentive")
	httpReq.Header.Set("X-Title", "Attentive")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
		}
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if chatResp.Error != nil {
		return "", fmt.Errorf("API error: %s", chatResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error (status %d)", resp.StatusCode)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return chatResp.Choices[0].Message.Content, nil
}

func describeContext(cc CaptureContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "time: %s\n", cc.Timestamp.Format(time.RFC3339))
	if cc.ActiveApp != "" {
		fmt.Fprintf(&b, "active application: %s\n", cc.ActiveApp)
	}
	if cc.WindowTitle != "" {
		fmt.Fprintf(&b, "window title: %s\n", cc.WindowTitle)
	}
	if cc.SessionTitle != "" {
		fmt.Fprintf(&b, "currently reading: %s\n", cc.SessionTitle)
	}
	return b.String()
}

func describeAnalyses(analyses []model.Analysis) string {
	var b strings.Builder
	for _, a := range analyses {
		score := "?"
		if a.ProductivityScore != nil {
			score = fmt.Sprintf("%.1f", *a.ProductivityScore)
		}
		fmt.Fprintf(&b, "- %s score=%s focus=%s activity=%s apps=%s: %s\n",
			a.Timestamp.Format("2006-01-02 15:04"), score, a.FocusQuality, a.ActivityType,
			strings.Join(a.Applications, ","), a.RawAnalysis)
	}
	return b.String()
}
