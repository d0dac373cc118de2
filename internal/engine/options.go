package engine

// Options configures how an engine loads and serves a model.
type Options struct {
	// Port for the model-server subprocess to listen on.
	Port int

	// Command is the server executable to spawn.
	Command string

	// ExtraArgs are appended verbatim to the server command line.
	ExtraArgs []string

	// ContextSize is the maximum context window in tokens (0 = server default).
	ContextSize int
}

// DefaultOptions returns Options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		Port:    18080,
		Command: "mlx_lm.server",
	}
}
