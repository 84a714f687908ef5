package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultOllamaURL is the address of a local Ollama server.
const DefaultOllamaURL = "http://localhost:11434"

const (
	defaultOllamaModel = "llama3.1:8b"
	// An enrichment prompt carries up to 6000 characters of article text;
	// Ollama's default 2048-token window would silently cut it.
	defaultOllamaNumCtx = 8192
	// Keeps the model loaded between the articles of one run.
	defaultOllamaKeepAlive = 10 * time.Minute
)

var ollamaModels = []string{
	"llama3.1:8b",
	"llama3.3:70b",
	"qwen2.5:7b",
	"qwen2.5:14b",
	"mistral:7b",
	"gemma2:9b",
}

// OllamaProvider implements LLMProvider for a local Ollama server.
type OllamaProvider struct {
	baseURL   string
	model     string
	numCtx    int
	keepAlive time.Duration
	client    *http.Client
}

// OllamaOption configures the Ollama provider.
type OllamaOption func(*OllamaProvider)

// WithOllamaModel sets the default model.
func WithOllamaModel(model string) OllamaOption {
	return func(p *OllamaProvider) { p.model = model }
}

// NewOllamaProvider creates an Ollama provider.
// baseURL is the Ollama server URL (e.g., "http://localhost:11434").
func NewOllamaProvider(baseURL string, opts ...OllamaOption) (*OllamaProvider, error) {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	p := &OllamaProvider{
		baseURL:   strings.TrimRight(baseURL, "/"),
		model:     defaultOllamaModel,
		numCtx:    defaultOllamaNumCtx,
		keepAlive: defaultOllamaKeepAlive,
		client:    &http.Client{Timeout: 300 * time.Second}, // local models load slowly
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *OllamaProvider) Name() string     { return ProviderOllama }
func (p *OllamaProvider) Models() []string { return ollamaModels }

// Ping checks that the server answers and that the configured model has
// been pulled; a missing model is ErrInvalidModel.
func (p *OllamaProvider) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderDown, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrProviderDown, resp.StatusCode)
	}

	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return fmt.Errorf("ollama: decode tags: %w", err)
	}
	want := withDefaultTag(p.model)
	for _, m := range tags.Models {
		if withDefaultTag(m.Name) == want {
			return nil
		}
	}
	return fmt.Errorf("%w: %s is not pulled (ollama pull %s)", ErrInvalidModel, p.model, p.model)
}

// Chat sends a non-streaming request to /api/chat.
func (p *OllamaProvider) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error) {
	start := time.Now()
	model := p.model
	if opts != nil && opts.Model != "" {
		model = opts.Model
	}

	data, err := json.Marshal(p.buildRequest(messages, model, opts))
	if err != nil {
		return nil, fmt.Errorf("ollama: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderDown, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ollamaError(resp)
	}

	var result ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("ollama: decode response: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("ollama: %s", result.Error)
	}

	r := &Response{
		Content:  result.Message.Content,
		Model:    result.Model,
		Provider: ProviderOllama,
		Latency:  time.Since(start),
		Usage: Usage{
			PromptTokens:     result.PromptEvalCount,
			CompletionTokens: result.EvalCount,
			TotalTokens:      result.PromptEvalCount + result.EvalCount,
		},
		FinishReason: FinishStop,
	}
	if r.Model == "" {
		r.Model = model
	}
	if result.DoneReason == "length" {
		r.FinishReason = FinishLength
	}
	return r, nil
}

// ── Wire Types ──

type ollamaChatRequest struct {
	Model     string          `json:"model"`
	Messages  []ollamaMessage `json:"messages"`
	Stream    bool            `json:"stream"`
	Format    string          `json:"format,omitempty"`
	KeepAlive string          `json:"keep_alive,omitempty"`
	Options   ollamaOptions   `json:"options"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	NumCtx      int      `json:"num_ctx,omitempty"`
	Temperature float64  `json:"temperature,omitempty"`
	NumPredict  int      `json:"num_predict,omitempty"`
	TopP        float64  `json:"top_p,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

type ollamaChatResponse struct {
	Model           string        `json:"model"`
	Message         ollamaMessage `json:"message"`
	Done            bool          `json:"done"`
	DoneReason      string        `json:"done_reason"`
	PromptEvalCount int           `json:"prompt_eval_count"`
	EvalCount       int           `json:"eval_count"`
	Error           string        `json:"error"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// ── Helpers ──

func (p *OllamaProvider) buildRequest(messages []Message, model string, opts *ChatOptions) ollamaChatRequest {
	r := ollamaChatRequest{
		Model:    model,
		Messages: make([]ollamaMessage, len(messages)),
		Options:  ollamaOptions{NumCtx: p.numCtx},
	}
	if p.keepAlive > 0 {
		r.KeepAlive = p.keepAlive.String()
	}
	for i, m := range messages {
		r.Messages[i] = ollamaMessage{Role: string(m.Role), Content: m.Content}
	}
	if opts == nil {
		return r
	}
	if opts.JSON {
		r.Format = "json"
	}
	r.Options.Temperature = opts.Temperature
	r.Options.NumPredict = opts.MaxTokens
	r.Options.TopP = opts.TopP
	r.Options.Stop = opts.Stop
	return r
}

// ollamaError maps an error response ({"error": "..."}) to a sentinel.
func ollamaError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var body struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		msg = body.Error
	}

	switch {
	case resp.StatusCode == http.StatusNotFound || strings.Contains(msg, "not found"):
		return fmt.Errorf("%w: %s", ErrInvalidModel, msg)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: HTTP %d: %s", ErrProviderDown, resp.StatusCode, msg)
	}
	return fmt.Errorf("ollama: HTTP %d: %s", resp.StatusCode, msg)
}

// withDefaultTag completes a bare model name with Ollama's implicit tag.
func withDefaultTag(name string) string {
	if strings.Contains(name, ":") {
		return name
	}
	return name + ":latest"
}
