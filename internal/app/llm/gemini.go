package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"dietitian/internal/pkg/logx"
)

const (
	defaultBaseURL    = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel      = "gemini-1.5-flash"
	defaultEmbedModel = "text-embedding-004"

	// generationTemperature applies to every generateContent call.
	generationTemperature = 0.7

	maxRetries     = 3
	requestTimeout = 90 * time.Second
)

type geminiClient struct {
	baseURL    string
	apiKey     string
	model      string
	embedModel string
	httpClient *http.Client
	maxRetries int
	log        zerolog.Logger
}

func newGeminiClient(cfg Config) *geminiClient {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	embedModel := cfg.EmbedModel
	if embedModel == "" {
		embedModel = defaultEmbedModel
	}

	return &geminiClient{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		model:      model,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: requestTimeout},
		maxRetries: maxRetries,
		log:        logx.Logger().With().Str("component", "GeminiClient").Logger(),
	}
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generationConfig struct {
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

type batchEmbedRequest struct {
	Requests []embedContentRequest `json:"requests"`
}

type embedContentRequest struct {
	Model   string  `json:"model"`
	Content content `json:"content"`
}

type batchEmbedResponse struct {
	Embeddings []struct {
		Values []float32 `json:"values"`
	} `json:"embeddings"`
}

// apiError carries the status and body of a failed Gemini call so the retry
// loop can classify it.
type apiError struct {
	StatusCode int
	Body       string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("gemini http %d: %s", e.StatusCode, e.Body)
}

func (c *geminiClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	req := generateRequest{
		Contents:         []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: &generationConfig{Temperature: generationTemperature},
	}

	var resp generateResponse
	if err := c.do(ctx, c.model+":generateContent", req, &resp); err != nil {
		return "", err
	}
	return firstCandidateText(resp)
}

func (c *geminiClient) AnalyzeImage(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	if len(image) == 0 {
		return "", errors.New("image bytes required")
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	req := generateRequest{
		Contents: []content{{Parts: []part{
			{InlineData: &inlineData{
				MimeType: mimeType,
				Data:     base64.StdEncoding.EncodeToString(image),
			}},
			{Text: prompt},
		}}},
		GenerationConfig: &generationConfig{Temperature: generationTemperature},
	}

	var resp generateResponse
	if err := c.do(ctx, c.model+":generateContent", req, &resp); err != nil {
		return "", err
	}
	return firstCandidateText(resp)
}

func (c *geminiClient) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	requests := make([]embedContentRequest, len(texts))
	for i, text := range texts {
		// The API rejects empty content, so blank inputs become a space.
		if strings.TrimSpace(text) == "" {
			text = " "
		}
		requests[i] = embedContentRequest{
			Model:   "models/" + c.embedModel,
			Content: content{Parts: []part{{Text: text}}},
		}
	}

	var resp batchEmbedResponse
	if err := c.do(ctx, c.embedModel+":batchEmbedContents", batchEmbedRequest{Requests: requests}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini returned %d embeddings for %d texts", len(resp.Embeddings), len(texts))
	}

	out := make([][]float32, len(texts))
	for i, e := range resp.Embeddings {
		out[i] = e.Values
	}
	return out, nil
}

// do posts body to the model endpoint and decodes the JSON response into
// out, retrying transient failures with exponential backoff.
func (c *geminiClient) do(ctx context.Context, endpoint string, body, out any) error {
	backoff := time.Second

	for attempt := 0; ; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		raw, err := c.doOnce(ctx, endpoint, body)
		if err == nil {
			if out == nil {
				return nil
			}
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("failed to decode gemini response: %w", uErr)
			}
			return nil
		}

		if attempt == c.maxRetries || !isRetryable(err) {
			return err
		}

		c.log.Warn().
			Str("endpoint", endpoint).
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Err(err).
			Msg("Gemini request retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

func (c *geminiClient) doOnce(ctx context.Context, endpoint string, body any) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("failed to encode gemini request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s?key=%s", c.baseURL, endpoint, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		return nil, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &apiError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return raw, nil
}

// isRetryable reports whether the request is worth repeating: rate limits,
// server errors, and network timeouts qualify; client errors do not.
func isRetryable(err error) bool {
	var httpErr *apiError
	if errors.As(err, &httpErr) {
		code := httpErr.StatusCode
		return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || (code >= 500 && code <= 599)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

func firstCandidateText(resp generateResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", errors.New("no candidates in response")
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", errors.New("empty candidate text")
	}
	return text, nil
}
