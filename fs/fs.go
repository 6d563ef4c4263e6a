// Package fs loads datasets from the local filesystem.
package fs

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/fwojciec/edabot"
	edahttp "github.com/fwojciec/edabot/http"
)

// Interface compliance check.
var _ edabot.DatasetLoader = (*Loader)(nil)

// Loader implements [edabot.DatasetLoader] for local paths and file://
// URLs. Attachments with an http or https URL go to the fallback loader.
type Loader struct {
	fallback edabot.DatasetLoader
	maxBytes int64
}

// Option configures a [Loader].
type Option func(*Loader)

// WithFallback sets the loader used for remote attachments.
func WithFallback(l edabot.DatasetLoader) Option {
	return func(fl *Loader) { fl.fallback = l }
}

// WithMaxBytes caps the file size.
func WithMaxBytes(n int64) Option {
	return func(l *Loader) { l.maxBytes = n }
}

// NewLoader creates a [Loader].
func NewLoader(opts ...Option) *Loader {
	l := &Loader{maxBytes: edahttp.DefaultMaxBytes}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Load reads the file named by a.URL and parses it by name.
func (l *Loader) Load(ctx context.Context, a edabot.Attachment) (*edabot.Dataset, error) {
	if IsRemote(a.URL) {
		if l.fallback == nil {
			return nil, fmt.Errorf("fs: %w: no loader for remote attachment", edabot.ErrNoDataset)
		}
		return l.fallback.Load(ctx, a)
	}

	name := localPath(a.URL)
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("fs: %w: %w", edabot.ErrNoDataset, err)
	}
	defer f.Close()

	body, err := io.ReadAll(io.LimitReader(f, l.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("fs: %w: %w", edabot.ErrNoDataset, err)
	}
	if int64(len(body)) > l.maxBytes {
		return nil, fmt.Errorf("fs: %s exceeds %d bytes: %w", name, l.maxBytes, edabot.ErrNoDataset)
	}
	if a.Name == "" {
		a.Name = filepath.Base(name)
	}
	return edahttp.Parse(edahttp.DetectFormat(a, ""), body)
}

// Resolve turns a command-line argument into an attachment. Remote URLs pass
// through. Anything else is treated as a glob pattern that must match exactly
// one regular file.
func Resolve(arg string) (edabot.Attachment, error) {
	if IsRemote(arg) {
		return edabot.Attachment{URL: arg, Name: remoteName(arg)}, nil
	}
	pattern := localPath(arg)
	if !doublestar.ValidatePattern(filepath.ToSlash(pattern)) {
		return edabot.Attachment{}, fmt.Errorf("fs: invalid pattern %q", arg)
	}
	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return edabot.Attachment{}, fmt.Errorf("fs: %w", err)
	}
	switch len(matches) {
	case 0:
		return edabot.Attachment{}, fmt.Errorf("fs: %s: %w", arg, os.ErrNotExist)
	case 1:
		return edabot.Attachment{URL: matches[0], Name: filepath.Base(matches[0])}, nil
	default:
		return edabot.Attachment{}, fmt.Errorf("fs: %s matches %d files: %s", arg, len(matches), strings.Join(matches, ", "))
	}
}

// IsRemote reports whether s is an http or https URL.
func IsRemote(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func localPath(s string) string {
	if u, err := url.Parse(s); err == nil && u.Scheme == "file" {
		return filepath.FromSlash(u.Path)
	}
	return s
}

func remoteName(s string) string {
	u, err := url.Parse(s)
	if err != nil {
		return ""
	}
	name := path.Base(u.Path)
	if name == "/" || name == "." {
		return ""
	}
	return name
}
