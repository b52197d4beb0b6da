package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/reviewer-backend/internal/domain"
	"github.com/yungbote/reviewer-backend/internal/observability"
	"github.com/yungbote/reviewer-backend/internal/platform/httpx"
	"github.com/yungbote/reviewer-backend/internal/platform/logger"
)

// Client is the subset of the OpenAI API the reviewer uses.
type Client interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Complete(ctx context.Context, prompt string, opts domain.GenerateOptions) (string, error)
}

type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	EmbedModel string
	Timeout    time.Duration
	MaxRetries int
	// BaseBackoff is the first retry delay; it doubles per attempt.
	BaseBackoff time.Duration
	HTTPClient  *http.Client
}

type client struct {
	log         *logger.Logger
	baseURL     string
	apiKey      string
	model       string
	embedModel  string
	httpClient  *http.Client
	maxRetries  int
	baseBackoff time.Duration
}

func NewClient(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-4o-mini"
	}
	embedModel := strings.TrimSpace(cfg.EmbedModel)
	if embedModel == "" {
		embedModel = "text-embedding-3-small"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	backoff := cfg.BaseBackoff
	if backoff <= 0 {
		backoff = time.Second
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	return &client{
		log:         log.With("service", "OpenAIClient"),
		baseURL:     baseURL,
		apiKey:      strings.TrimSpace(cfg.APIKey),
		model:       model,
		embedModel:  embedModel,
		httpClient:  hc,
		maxRetries:  maxRetries,
		baseBackoff: backoff,
	}, nil
}

type openAIHTTPError struct {
	StatusCode int
	Body       string
	resp       *http.Response
}

func (e *openAIHTTPError) Error() string {
	return fmt.Sprintf("openai http %d: %s", e.StatusCode, e.Body)
}

func (e *openAIHTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func (c *client) doOnce(ctx context.Context, method, path, model string, body any) (raw []byte, err error) {
	start := time.Now()
	var status string
	defer func() {
		if metrics := observability.Current(); metrics != nil {
			if status == "" {
				status = "error"
				if errors.Is(err, context.DeadlineExceeded) {
					status = "timeout"
				}
			}
			metrics.ObserveLLMRequest(model, path, status, time.Since(start))
		}
	}()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	status = strconv.Itoa(resp.StatusCode)
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return raw, &openAIHTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw)), resp: resp}
	}
	return raw, nil
}

func (c *client) do(ctx context.Context, method, path, model string, body any, out any) error {
	backoff := c.baseBackoff
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		raw, err := c.doOnce(ctx, method, path, model, body)
		if err == nil {
			if out == nil {
				return nil
			}
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("openai decode error: %w", uErr)
			}
			return nil
		}
		if !httpx.IsRetryableError(err) || attempt == c.maxRetries {
			return err
		}

		var httpErr *openAIHTTPError
		var resp *http.Response
		if errors.As(err, &httpErr) {
			resp = httpErr.resp
		}
		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))

		c.log.Warn("OpenAI request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		if sErr := httpx.Sleep(ctx, sleepFor); sErr != nil {
			return err
		}
		backoff *= 2
	}
	return fmt.Errorf("unreachable retry loop")
}

// -------------------- Embeddings --------------------

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

func (c *client) Embed(ctx context.Context, text string) ([]float32, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		s = " "
	}
	var resp embeddingsResponse
	if err := c.do(ctx, http.MethodPost, "/v1/embeddings", c.embedModel, embeddingsRequest{Model: c.embedModel, Input: []string{s}}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("openai embeddings: empty response for model %s", c.embedModel)
	}
	vec := make([]float32, len(resp.Data[0].Embedding))
	for i, f := range resp.Data[0].Embedding {
		vec[i] = float32(f)
	}
	return vec, nil
}

// -------------------- Chat completions --------------------

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *client) Complete(ctx context.Context, prompt string, opts domain.GenerateOptions) (string, error) {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = c.model
	}
	msgs := make([]chatMessage, 0, 2)
	if sys := strings.TrimSpace(opts.System); sys != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: sys})
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: prompt})

	temp := opts.Temperature
	req := chatRequest{Model: model, Messages: msgs, Temperature: &temp}

	var resp chatResponse
	err := c.do(ctx, http.MethodPost, "/v1/chat/completions", model, req, &resp)
	if err != nil && isUnsupportedTemperature(err) {
		// Some reasoning models only accept the default temperature.
		c.log.Debug("Model rejected temperature, retrying without it", "model", model)
		req.Temperature = nil
		err = c.do(ctx, http.MethodPost, "/v1/chat/completions", model, req, &resp)
	}
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai chat: no choices in response")
	}
	msg := resp.Choices[0].Message
	if msg.Refusal != "" {
		return "", fmt.Errorf("model refused: %s", msg.Refusal)
	}
	text := strings.TrimSpace(msg.Content)
	if text == "" {
		return "", fmt.Errorf("openai chat: empty completion")
	}
	return text, nil
}

func isUnsupportedTemperature(err error) bool {
	var httpErr *openAIHTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusBadRequest {
		return false
	}
	msg := strings.ToLower(httpErr.Body)
	if !strings.Contains(msg, "temperature") {
		return false
	}
	for _, needle := range []string{"unsupported", "not supported", "does not support", "only the default", "unknown parameter"} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}
