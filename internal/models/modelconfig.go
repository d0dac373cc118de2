package models

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ModelConfig is the parsed config.json of a cached model. Nested text_config
// sections (multimodal checkpoints) are flattened into the top level.
type ModelConfig map[string]any

// LoadModelConfig reads config.json from the newest snapshot of a cached
// model. Returns an empty config when none can be read.
func (s *Store) LoadModelConfig(cacheKey string) ModelConfig {
	snap, err := s.SnapshotDir(cacheKey)
	if err != nil {
		return ModelConfig{}
	}
	data, err := os.ReadFile(filepath.Join(snap, "config.json"))
	if err != nil {
		return ModelConfig{}
	}
	var cfg ModelConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return ModelConfig{}
	}
	return cfg.Flatten()
}

// Flatten merges a nested text_config into the top level, inner keys winning.
func (c ModelConfig) Flatten() ModelConfig {
	text, ok := c["text_config"].(map[string]any)
	if !ok {
		return c
	}
	out := make(ModelConfig, len(c)+len(text))
	for k, v := range c {
		out[k] = v
	}
	for k, v := range text {
		out[k] = v
	}
	return out
}

// ModelType extracts the model family tag (e.g. "gpt_oss", "llama").
func (c ModelConfig) ModelType() string {
	for _, key := range []string{"model_type", "model_architecture"} {
		if v, ok := c[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.ToLower(strings.TrimSpace(v))
		}
	}
	if arch, ok := c["architectures"].([]any); ok && len(arch) > 0 {
		if v, ok := arch[0].(string); ok {
			return strings.ToLower(strings.TrimSpace(v))
		}
	}
	return ""
}

// Int returns the first present key as an int.
func (c ModelConfig) Int(keys ...string) int {
	for _, key := range keys {
		if v, ok := c[key].(float64); ok {
			return int(v)
		}
	}
	return 0
}

// String returns the first present key as a string, or "Unknown".
func (c ModelConfig) String(keys ...string) string {
	for _, key := range keys {
		switch v := c[key].(type) {
		case string:
			return v
		case float64:
			return fmt.Sprintf("%v", v)
		case []any:
			if len(v) > 0 {
				if s, ok := v[0].(string); ok {
					return s
				}
			}
		}
	}
	return "Unknown"
}

// Precision reports the quantization dtype, or "" when the config carries
// no quantization information.
func (c ModelConfig) Precision() string {
	quant, ok := c["quantization_config"].(map[string]any)
	if !ok {
		return ""
	}
	dtype, _ := quant["dtype"].(string)
	return dtype
}

// NeedsHarmony reports whether the model family uses the harmony chat format.
func (c ModelConfig) NeedsHarmony() bool {
	return strings.Contains(c.ModelType(), "gpt_oss")
}

// EstimateKVBytes estimates KV cache memory for a context of ctxTokens.
// dtypeBytes is bytes per cached value (1=int8, 2=float16, 4=float32).
func EstimateKVBytes(layers, hiddenSize, ctxTokens, dtypeBytes int) int64 {
	if layers <= 0 || hiddenSize <= 0 || ctxTokens <= 0 {
		return 0
	}
	perTokenPerLayer := int64(2) * int64(hiddenSize) * int64(dtypeBytes)
	return int64(layers) * int64(ctxTokens) * perTokenPerLayer
}

// HumanBytes formats a byte count for display.
func HumanBytes(n int64) string {
	units := []string{"B", "KB", "MB", "GB", "TB"}
	size := float64(n)
	for _, u := range units {
		if size < 1024.0 {
			return fmt.Sprintf("%.2f %s", size, u)
		}
		size /= 1024.0
	}
	return fmt.Sprintf("%.2f PB", size)
}
