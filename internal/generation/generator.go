// Package generation asks a chat model to answer a rendered prompt.
package generation

import "context"

// Generator produces the answer text for a prompt. Failures wrap models.ErrGeneration.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
