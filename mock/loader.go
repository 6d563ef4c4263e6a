package mock

import (
	"context"

	"github.com/fwojciec/edabot"
)

// Interface compliance check.
var _ edabot.DatasetLoader = (*DatasetLoader)(nil)

// DatasetLoader is a test double for edabot.DatasetLoader.
type DatasetLoader struct {
	LoadFn func(ctx context.Context, a edabot.Attachment) (*edabot.Dataset, error)
}

// Load delegates to LoadFn.
func (l *DatasetLoader) Load(ctx context.Context, a edabot.Attachment) (*edabot.Dataset, error) {
	return l.LoadFn(ctx, a)
}
