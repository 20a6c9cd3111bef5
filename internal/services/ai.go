package services

import (
	"context"
)

// AIClient is the generative surface path generation and minting depend on.
// GenerateJSON must return an already-parsed object; transport retries and
// code-fence cleanup live behind this interface so callers never see them.
type AIClient interface {
	GenerateJSON(ctx context.Context, prompt string) (map[string]any, error)
	Embed(ctx context.Context, text string) ([]float32, error)
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}
