package gemini

import (
	"context"
	"iter"

	"github.com/fwojciec/edabot"
	"google.golang.org/genai"
)

// NewStreamFromIter exposes the iterator adapter for tests.
func NewStreamFromIter(ctx context.Context, it iter.Seq2[*genai.GenerateContentResponse, error]) edabot.Stream {
	return newStream(ctx, it)
}
