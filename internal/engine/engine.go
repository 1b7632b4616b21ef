package engine

import "context"

// Engine abstracts the inference backend that answers chat turns and embeds
// memories. Ollama runs locally; any OpenAI-compatible server works remotely.
type Engine interface {
	// Chat sends messages to the given model and returns the assistant's response.
	Chat(ctx context.Context, model string, messages []Message) (string, error)

	// Embed returns the embedding vector for the given text using the specified model.
	Embed(ctx context.Context, model string, text string) ([]float32, error)

	// IsRunning reports whether the inference backend is reachable.
	IsRunning(ctx context.Context) bool
}

// ModelManager is implemented by backends that install models locally.
type ModelManager interface {
	ListModels(ctx context.Context) ([]string, error)
	HasModel(ctx context.Context, name string) bool
	PullModel(ctx context.Context, name string, onProgress func(PullProgress)) error
}
