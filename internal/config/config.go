package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Config is the persisted user configuration. Values are deep-merged over
// DefaultConfig when loading, so a config file only needs to state overrides.
type Config struct {
	Version  string         `json:"version"`
	Defaults Defaults       `json:"defaults"`
	Colors   Colors         `json:"colors"`
	Export   ExportSettings `json:"export"`
	Sessions SessionLimits  `json:"sessions"`
}

// Defaults are the per-turn generation settings used when flags are absent.
type Defaults struct {
	MaxTokens        int    `json:"max_tokens"`
	StreamMode       string `json:"stream_mode"` // all, final, off
	ChatMode         string `json:"chat_mode"`   // auto, harmony, hf, plain
	History          string `json:"history"`     // on, off
	TimeLimit        int    `json:"time_limit"`  // seconds, 0 = off
	Reasoning        string `json:"reasoning"`   // "", low, medium, high
	ShowContextStats bool   `json:"show_context_stats"`
}

// Colors are terminal color names used by the styled output.
type Colors struct {
	UserPrompt  string `json:"user_prompt"`
	ModelOutput string `json:"model_output"`
	Error       string `json:"error"`
	Success     string `json:"success"`
	Warning     string `json:"warning"`
}

// ExportSettings control session exports.
type ExportSettings struct {
	DefaultFormat    string `json:"default_format"` // md, json, txt
	IncludeTimestamp bool   `json:"include_timestamp"`
}

// SessionLimits bound session retention.
type SessionLimits struct {
	MaxEntries int `json:"max_entries"`
	MaxAgeDays int `json:"max_age_days"` // 0 = unlimited
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Version: "1.0",
		Defaults: Defaults{
			MaxTokens:  2048,
			StreamMode: "all",
			ChatMode:   "auto",
			History:    "on",
		},
		Colors: Colors{
			UserPrompt:  "15",
			ModelOutput: "255",
			Error:       "9",
			Success:     "10",
			Warning:     "11",
		},
		Export: ExportSettings{
			DefaultFormat:    "md",
			IncludeTimestamp: true,
		},
		Sessions: SessionLimits{
			MaxEntries: 50,
		},
	}
}

// Load reads the user config file and merges it over the defaults. A missing
// or unreadable file yields the defaults; the error is non-nil only for a
// present-but-corrupt file, and the defaults are still returned so callers
// can proceed.
func Load() (*Config, error) {
	return loadFrom(ConfigFile())
}

func loadFrom(path string) (*Config, error) {
	def := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return def, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return def, fmt.Errorf("parse %s: %w", path, err)
	}

	// Deep merge: re-marshal the defaults, overlay the user document, and
	// decode the result. Unknown keys in the user file are ignored.
	merged, err := mergeJSON(def, raw)
	if err != nil {
		return def, fmt.Errorf("merge %s: %w", path, err)
	}
	return merged, nil
}

func mergeJSON(def *Config, overlay map[string]json.RawMessage) (*Config, error) {
	base, err := json.Marshal(def)
	if err != nil {
		return nil, err
	}
	var baseMap map[string]json.RawMessage
	if err := json.Unmarshal(base, &baseMap); err != nil {
		return nil, err
	}

	for key, val := range overlay {
		existing, ok := baseMap[key]
		if ok && isObject(existing) && isObject(val) {
			var sub, subOverlay map[string]json.RawMessage
			if err := json.Unmarshal(existing, &sub); err != nil {
				return nil, err
			}
			if err := json.Unmarshal(val, &subOverlay); err != nil {
				return nil, err
			}
			for k, v := range subOverlay {
				sub[k] = v
			}
			mergedSub, err := json.Marshal(sub)
			if err != nil {
				return nil, err
			}
			baseMap[key] = mergedSub
			continue
		}
		baseMap[key] = val
	}

	out, err := json.Marshal(baseMap)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := json.Unmarshal(out, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func isObject(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return strings.HasPrefix(s, "{")
}

// Save writes the config to the user config file.
func (c *Config) Save() error {
	return c.saveTo(ConfigFile())
}

func (c *Config) saveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Keys returns the settable dotted keys in sorted order.
func (c *Config) Keys() []string {
	keys := make([]string, 0, len(c.fields()))
	for k := range c.fields() {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the current value of a dotted key like "defaults.max_tokens".
func (c *Config) Get(key string) (string, error) {
	f, ok := c.fields()[key]
	if !ok {
		return "", fmt.Errorf("unknown setting %q", key)
	}
	return f.get(), nil
}

// Set updates a dotted key from its string representation.
func (c *Config) Set(key, value string) error {
	f, ok := c.fields()[key]
	if !ok {
		return fmt.Errorf("unknown setting %q", key)
	}
	return f.set(value)
}

type field struct {
	get func() string
	set func(string) error
}

func (c *Config) fields() map[string]field {
	str := func(p *string, allowed ...string) field {
		return field{
			get: func() string { return *p },
			set: func(v string) error {
				if len(allowed) > 0 {
					for _, a := range allowed {
						if v == a {
							*p = v
							return nil
						}
					}
					return fmt.Errorf("invalid value %q (want one of %s)", v, strings.Join(allowed, ", "))
				}
				*p = v
				return nil
			},
		}
	}
	num := func(p *int) field {
		return field{
			get: func() string { return fmt.Sprintf("%d", *p) },
			set: func(v string) error {
				var n int
				if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
					return fmt.Errorf("invalid number %q", v)
				}
				*p = n
				return nil
			},
		}
	}
	boolean := func(p *bool) field {
		return field{
			get: func() string { return fmt.Sprintf("%t", *p) },
			set: func(v string) error {
				switch v {
				case "true", "on", "1":
					*p = true
				case "false", "off", "0":
					*p = false
				default:
					return fmt.Errorf("invalid boolean %q", v)
				}
				return nil
			},
		}
	}

	return map[string]field{
		"defaults.max_tokens":         num(&c.Defaults.MaxTokens),
		"defaults.stream_mode":        str(&c.Defaults.StreamMode, "all", "final", "off"),
		"defaults.chat_mode":          str(&c.Defaults.ChatMode, "auto", "harmony", "hf", "plain"),
		"defaults.history":            str(&c.Defaults.History, "on", "off"),
		"defaults.time_limit":         num(&c.Defaults.TimeLimit),
		"defaults.reasoning":          str(&c.Defaults.Reasoning, "", "low", "medium", "high"),
		"defaults.show_context_stats": boolean(&c.Defaults.ShowContextStats),
		"colors.user_prompt":          str(&c.Colors.UserPrompt),
		"colors.model_output":         str(&c.Colors.ModelOutput),
		"colors.error":                str(&c.Colors.Error),
		"colors.success":              str(&c.Colors.Success),
		"colors.warning":              str(&c.Colors.Warning),
		"export.default_format":       str(&c.Export.DefaultFormat, "md", "json", "txt"),
		"export.include_timestamp":    boolean(&c.Export.IncludeTimestamp),
		"sessions.max_entries":        num(&c.Sessions.MaxEntries),
		"sessions.max_age_days":       num(&c.Sessions.MaxAgeDays),
	}
}
