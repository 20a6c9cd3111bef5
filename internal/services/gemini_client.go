package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/noodl-labs/kodo-backend/internal/logger"
	"github.com/noodl-labs/kodo-backend/internal/utils"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

type GeminiClient struct {
	apiKey      string
	baseURL     string
	textModel   string
	imageModel  string
	embedModel  string
	temperature float64
	maxRetries  int
	backoff     time.Duration
	httpClient  *http.Client
	log         *logger.Logger
}

type GeminiOption func(*GeminiClient)

func WithGeminiBaseURL(u string) GeminiOption {
	return func(c *GeminiClient) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithGeminiHTTPClient(h *http.Client) GeminiOption {
	return func(c *GeminiClient) { c.httpClient = h }
}

func NewGeminiClient(baseLog *logger.Logger, opts ...GeminiOption) (*GeminiClient, error) {
	log := baseLog.With("service", "GeminiClient")
	apiKey := utils.GetEnv("GEMINI_API_KEY", "", log)
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is not set")
	}
	c := &GeminiClient{
		apiKey:      apiKey,
		baseURL:     defaultGeminiBaseURL,
		textModel:   utils.GetEnv("GEMINI_MODEL_TEXT", "gemini-2.0-flash", log),
		imageModel:  utils.GetEnv("GEMINI_MODEL_IMAGE", "gemini-2.0-flash-exp-image-generation", log),
		embedModel:  utils.GetEnv("GEMINI_MODEL_EMBED", "text-embedding-004", log),
		temperature: utils.GetEnvAsFloat("GEMINI_TEMPERATURE", 0.7, log),
		maxRetries:  utils.GetEnvAsInt("GEMINI_MAX_RETRIES", 3, log),
		backoff:     time.Duration(utils.GetEnvAsInt("GEMINI_RETRY_BACKOFF_MS", 2000, log)) * time.Millisecond,
		httpClient:  &http.Client{Timeout: 120 * time.Second},
		log:         log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerateRequest struct {
	Contents         []geminiContent  `json:"contents"`
	GenerationConfig *geminiGenConfig `json:"generationConfig,omitempty"`
}

type geminiGenConfig struct {
	Temperature        float64  `json:"temperature,omitempty"`
	ResponseMimeType   string   `json:"responseMimeType,omitempty"`
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type geminiGenerateResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

type geminiEmbedRequest struct {
	Content geminiContent `json:"content"`
}

type geminiEmbedResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

func (c *GeminiClient) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	url := fmt.Sprintf("%s/%s?key=%s", c.baseURL, path, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gemini api status %d: %s", resp.StatusCode, truncateForLog(string(raw), 300))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// GenerateJSON asks the text model for a JSON object and retries with a
// linear backoff when the model answers with prose or malformed JSON.
func (c *GeminiClient) GenerateJSON(ctx context.Context, prompt string) (map[string]any, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt-1) * c.backoff):
			}
		}
		text, err := c.generateText(ctx, prompt)
		if err != nil {
			lastErr = err
			c.log.Warn("Text generation attempt failed", "attempt", attempt, "error", err)
			continue
		}
		cleaned := stripCodeFences(text)
		var parsed map[string]any
		if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
			lastErr = fmt.Errorf("model returned non-JSON content: %w", err)
			c.log.Warn("Model output was not parseable JSON", "attempt", attempt, "error", err)
			continue
		}
		return parsed, nil
	}
	return nil, fmt.Errorf("generate json after %d attempts: %w", c.maxRetries, lastErr)
}

func (c *GeminiClient) generateText(ctx context.Context, prompt string) (string, error) {
	reqBody := geminiGenerateRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: &geminiGenConfig{
			Temperature:      c.temperature,
			ResponseMimeType: "application/json",
		},
	}
	var resp geminiGenerateResponse
	path := fmt.Sprintf("models/%s:generateContent", c.textModel)
	if err := c.post(ctx, path, reqBody, &resp); err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("empty completion")
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}

// Embed returns the embedding vector for text. No retry: the duplicate check
// that calls this is fail-open, so a transient error just skips the check.
func (c *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	reqBody := geminiEmbedRequest{
		Content: geminiContent{Parts: []geminiPart{{Text: text}}},
	}
	var resp geminiEmbedResponse
	path := fmt.Sprintf("models/%s:embedContent", c.embedModel)
	if err := c.post(ctx, path, reqBody, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embedding.Values) == 0 {
		return nil, errors.New("empty embedding")
	}
	return resp.Embedding.Values, nil
}

// GenerateImage returns raw PNG bytes from the image model, or an error the
// caller treats as a signal to fall back to locally rendered art.
func (c *GeminiClient) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	reqBody := geminiGenerateRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: &geminiGenConfig{
			ResponseModalities: []string{"IMAGE", "TEXT"},
		},
	}
	var resp geminiGenerateResponse
	path := fmt.Sprintf("models/%s:generateContent", c.imageModel)
	if err := c.post(ctx, path, reqBody, &resp); err != nil {
		return nil, err
	}
	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && part.InlineData.Data != "" {
				raw, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
				if err != nil {
					return nil, fmt.Errorf("decode image data: %w", err)
				}
				return raw, nil
			}
		}
	}
	return nil, errors.New("no image in completion")
}

// stripCodeFences removes a leading ```json / ``` wrapper that models add
// despite the JSON response mime type.
func stripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func truncateForLog(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
