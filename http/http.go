// Package http fetches attachments over HTTP and parses them into datasets.
package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/fwojciec/edabot"
	"github.com/fwojciec/edabot/csv"
	"github.com/fwojciec/edabot/excelize"
)

// DefaultMaxBytes caps the size of a downloaded attachment.
const DefaultMaxBytes = 50 << 20

// Format identifies how an attachment body is parsed.
type Format int

const (
	FormatCSV Format = iota
	FormatTSV
	FormatXLSX
)

// formatPatterns maps lower-cased base name patterns to formats. Patterns are
// tried in order.
var formatPatterns = []struct {
	pattern string
	format  Format
}{
	{"*.xlsx", FormatXLSX},
	{"*.{tsv,tab}", FormatTSV},
	{"*.{csv,txt}", FormatCSV},
}

// Interface compliance check.
var _ edabot.DatasetLoader = (*Loader)(nil)

// Loader implements [edabot.DatasetLoader] with HTTP GET.
type Loader struct {
	client   *http.Client
	maxBytes int64
	logger   *zap.Logger
}

// Option configures a [Loader].
type Option func(*Loader)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(l *Loader) { l.client = hc }
}

// WithMaxBytes caps the attachment size.
func WithMaxBytes(n int64) Option {
	return func(l *Loader) { l.maxBytes = n }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(l *Loader) { l.logger = log }
}

// NewLoader creates a [Loader].
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		client:   http.DefaultClient,
		maxBytes: DefaultMaxBytes,
		logger:   zap.NewNop(),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Load fetches a.URL and parses the body. Any status other than 200, a body
// over the size cap, or a parse failure yields an error wrapping
// edabot.ErrNoDataset.
func (l *Loader) Load(ctx context.Context, a edabot.Attachment) (*edabot.Dataset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("http: %w: %w", edabot.ErrNoDataset, err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http: %w: %w", edabot.ErrNoDataset, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http: GET %s: status %d: %w", redact(a.URL), resp.StatusCode, edabot.ErrNoDataset)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("http: %w: %w", edabot.ErrNoDataset, err)
	}
	if int64(len(body)) > l.maxBytes {
		return nil, fmt.Errorf("http: attachment exceeds %d bytes: %w", l.maxBytes, edabot.ErrNoDataset)
	}

	format := DetectFormat(a, resp.Header.Get("Content-Type"))
	l.logger.Debug("attachment fetched",
		zap.String("name", a.Name),
		zap.Int("bytes", len(body)),
		zap.Int("format", int(format)))
	return Parse(format, body)
}

// Parse decodes body in the given format.
func Parse(format Format, body []byte) (*edabot.Dataset, error) {
	switch format {
	case FormatXLSX:
		return excelize.Parse(bytes.NewReader(body))
	case FormatTSV:
		return csv.Parse(bytes.NewReader(body), csv.Tab)
	default:
		return csv.Parse(bytes.NewReader(body), csv.Comma)
	}
}

// DetectFormat picks the parser for an attachment. The attachment name is
// matched first, then the URL path, then the content type (the declared one
// or the response header). CSV is the fallback.
func DetectFormat(a edabot.Attachment, respContentType string) Format {
	for _, name := range []string{a.Name, urlPath(a.URL)} {
		if name == "" {
			continue
		}
		name = path.Base(strings.ToLower(name))
		for _, fp := range formatPatterns {
			if ok, _ := doublestar.Match(fp.pattern, name); ok {
				return fp.format
			}
		}
	}
	for _, ct := range []string{a.ContentType, respContentType} {
		ct = strings.ToLower(ct)
		switch {
		case strings.Contains(ct, "spreadsheetml"):
			return FormatXLSX
		case strings.Contains(ct, "tab-separated"):
			return FormatTSV
		}
	}
	return FormatCSV
}

func urlPath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Path
}

// redact drops the query string, which often carries signed credentials.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	u.RawQuery = ""
	u.User = nil
	return u.String()
}
