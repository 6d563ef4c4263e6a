package edabot

import (
	"context"
	"io"
	"strings"
)

// Complete drives a streaming call to the end and concatenates every text
// delta in arrival order. A stream-level failure is returned as-is; a stream
// that finishes without any text yields ErrEmptyCompletion. The returned
// Completion carries whatever text was assembled, even on error.
func Complete(ctx context.Context, p Provider, req Request) (Completion, error) {
	if err := ctx.Err(); err != nil {
		return Completion{}, err
	}

	stream, err := p.Stream(ctx, req)
	if err != nil {
		return Completion{}, err
	}
	defer stream.Close()

	var (
		buf       strings.Builder
		streamErr error
	)
	for {
		evt, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			streamErr = err
			break
		}
		if d, ok := evt.(EventTextDelta); ok {
			buf.WriteString(d.Delta)
		}
	}

	// Metadata only; the text is the accumulator's.
	c, _ := stream.Completion()
	c.Text = buf.String()

	if streamErr != nil {
		return c, streamErr
	}
	if strings.TrimSpace(c.Text) == "" {
		return c, ErrEmptyCompletion
	}
	return c, nil
}
