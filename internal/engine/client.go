package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/CreamyCappuccino/mlxlm/internal/chat"
	"github.com/CreamyCappuccino/mlxlm/pkg/api"
)

// Client is an HTTP client for communicating with a model-server subprocess.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new Client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
	}
}

// Completion sends a non-streaming text completion request.
func (c *Client) Completion(ctx context.Context, req *api.CompletionRequest) (*api.CompletionResponse, error) {
	req.Stream = false

	resp, err := c.post(ctx, "/v1/completions", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readError(resp)
	}

	var result api.CompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &result, nil
}

// StreamCompletion sends a streaming text completion request and returns a
// channel of parsed SSE events. The channel closes when the stream ends.
func (c *Client) StreamCompletion(ctx context.Context, req *api.CompletionRequest) (<-chan StreamEvent, error) {
	req.Stream = true

	resp, err := c.post(ctx, "/v1/completions", req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, readError(resp)
	}

	events := make(chan StreamEvent)
	go func() {
		// Closing the body unblocks the parser's read when the caller
		// cancels mid-stream.
		defer resp.Body.Close()
		defer close(events)
		for ev := range ParseSSEStream(ctx, resp.Body) {
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return events, nil
}

// CountTokens tokenizes text with the loaded model's tokenizer and returns
// the token count.
func (c *Client) CountTokens(ctx context.Context, text string) (int, error) {
	resp, err := c.post(ctx, "/tokenize", &api.TokenizeRequest{Content: text})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, readError(resp)
	}

	var result api.TokenizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}
	return len(result.Tokens), nil
}

// Embed returns the embedding vector for text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.post(ctx, "/v1/embeddings", &api.EmbeddingRequest{Input: text})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readError(resp)
	}

	var result api.EmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(result.Data) == 0 {
		return nil, fmt.Errorf("embedding response contained no data")
	}
	return result.Data[0].Embedding, nil
}

// ApplyTemplate asks the model server to expand its chat template over the
// message list. Servers without template support answer 404, which is
// reported as chat.ErrTemplateUnavailable so mode selection can fall back.
func (c *Client) ApplyTemplate(ctx context.Context, msgs []api.Message, addGenerationPrompt bool) (string, error) {
	req := &api.ApplyTemplateRequest{Messages: msgs, AddGenerationPrompt: addGenerationPrompt}

	resp, err := c.post(ctx, "/apply-template", req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("model server has no template endpoint: %w", chat.ErrTemplateUnavailable)
	}
	if resp.StatusCode != http.StatusOK {
		return "", readError(resp)
	}

	var result api.ApplyTemplateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if result.Prompt == "" {
		return "", fmt.Errorf("model has no chat template: %w", chat.ErrTemplateUnavailable)
	}
	return result.Prompt, nil
}

// Health returns nil if the server answers its health endpoint with 200.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	return resp, nil
}

func readError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var errResp api.ErrorResponse
	if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
		return fmt.Errorf("model server returned %d: %s", resp.StatusCode, errResp.Error.Message)
	}
	return fmt.Errorf("model server returned %d: %s", resp.StatusCode, string(body))
}
