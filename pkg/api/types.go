package api

// Message represents a chat message in wire format.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest matches the OpenAI text completions request schema.
// The prompt is pre-rendered by the caller, so the model server performs
// no template expansion of its own.
type CompletionRequest struct {
	Model       string   `json:"model"`
	Prompt      string   `json:"prompt"`
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Stream      bool     `json:"stream,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

// CompletionResponse matches the OpenAI text completions response schema.
type CompletionResponse struct {
	ID      string             `json:"id"`
	Object  string             `json:"object"`
	Created int64              `json:"created"`
	Model   string             `json:"model"`
	Choices []CompletionChoice `json:"choices"`
	Usage   *Usage             `json:"usage,omitempty"`
}

// CompletionChoice is a single completion choice.
type CompletionChoice struct {
	Index        int    `json:"index"`
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason"`
}

// CompletionChunk is a streaming SSE chunk for text completions.
type CompletionChunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []ChunkChoice `json:"choices"`
}

// ChunkChoice is a single choice within a streaming chunk. Text carries
// the incremental fragment.
type ChunkChoice struct {
	Index        int     `json:"index"`
	Text         string  `json:"text"`
	FinishReason *string `json:"finish_reason"`
}

// Usage contains token usage information.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ApplyTemplateRequest asks the model server to expand its chat template
// over a message list.
type ApplyTemplateRequest struct {
	Messages            []Message `json:"messages"`
	AddGenerationPrompt bool      `json:"add_generation_prompt"`
}

// ApplyTemplateResponse carries the rendered prompt.
type ApplyTemplateResponse struct {
	Prompt string `json:"prompt"`
}

// TokenizeRequest is the request for POST /tokenize.
type TokenizeRequest struct {
	Content string `json:"content"`
}

// TokenizeResponse is the response for POST /tokenize.
type TokenizeResponse struct {
	Tokens []int `json:"tokens"`
}

// EmbeddingRequest is the request for POST /v1/embeddings.
type EmbeddingRequest struct {
	Input string `json:"input"`
	Model string `json:"model"`
}

// EmbeddingResponse is the response for POST /v1/embeddings.
type EmbeddingResponse struct {
	Data []EmbeddingData `json:"data"`
}

// EmbeddingData contains a single embedding vector.
type EmbeddingData struct {
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
}
