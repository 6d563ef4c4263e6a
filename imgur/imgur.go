// Package imgur exports chart images to the Imgur image host.
package imgur

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/fwojciec/edabot"
)

// DefaultEndpoint is the anonymous upload endpoint.
const DefaultEndpoint = "https://api.imgur.com/3/image"

// Interface compliance check.
var _ edabot.ChartExporter = (*Client)(nil)

// Client implements [edabot.ChartExporter].
type Client struct {
	clientID string
	endpoint string
	client   *http.Client
	logger   *zap.Logger
}

// Option configures a [Client].
type Option func(*Client)

// WithEndpoint overrides the upload endpoint (used for testing).
func WithEndpoint(u string) Option {
	return func(c *Client) { c.endpoint = u }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Client authorised with the given application client id.
func New(clientID string, opts ...Option) *Client {
	c := &Client{
		clientID: clientID,
		endpoint: DefaultEndpoint,
		client:   http.DefaultClient,
		logger:   zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Export uploads png as a base64 form payload and returns data.link from the
// response. Anything other than a 200 carrying a link is an error wrapping
// edabot.ErrExport.
func (c *Client) Export(ctx context.Context, png []byte) (string, error) {
	form := url.Values{
		"image": {base64.StdEncoding.EncodeToString(png)},
		"type":  {"base64"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("imgur: %w: %w", edabot.ErrExport, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Client-ID "+c.clientID)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("imgur: %w: %w", edabot.ErrExport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("imgur: %w: %w", edabot.ErrExport, err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(body, "data.error").String()
		if msg == "" {
			msg = strings.TrimSpace(string(body))
		}
		return "", fmt.Errorf("imgur: HTTP %d: %s: %w", resp.StatusCode, msg, edabot.ErrExport)
	}

	link := gjson.GetBytes(body, "data.link").String()
	if link == "" {
		return "", fmt.Errorf("imgur: response has no link: %w", edabot.ErrExport)
	}
	c.logger.Debug("chart exported", zap.String("link", link), zap.Int("bytes", len(png)))
	return link, nil
}
