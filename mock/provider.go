// Package mock provides test doubles for edabot interfaces using function
// fields.
package mock

import (
	"context"

	"github.com/fwojciec/edabot"
)

// Interface compliance check.
var _ edabot.Provider = (*Provider)(nil)

// Provider is a test double for edabot.Provider.
// Set StreamFn before calling Stream.
type Provider struct {
	StreamFn func(ctx context.Context, req edabot.Request) (edabot.Stream, error)
}

// Stream delegates to StreamFn.
func (p *Provider) Stream(ctx context.Context, req edabot.Request) (edabot.Stream, error) {
	return p.StreamFn(ctx, req)
}
