package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/flosch/pongo2/v6"
)

const defaultHTTPTimeout = 10 * time.Second

// HTTP fetches templates with GET requests relative to a base URL.
type HTTP struct {
	base    *url.URL
	client  *http.Client
	timeout time.Duration
}

var _ pongo2.TemplateLoader = (*HTTP)(nil)

// NewHTTP expects a base URL followed by an optional timeout (a duration
// string or time.Duration) and an optional *http.Client.
func NewHTTP(args ...any) (pongo2.TemplateLoader, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%s: base URL is required", NameHTTP)
	}
	raw, ok := args[0].(string)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%s: base URL must be a non-empty string, got %T", NameHTTP, args[0])
	}
	base, err := url.ParseRequestURI(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%s: invalid base URL %q: %w", NameHTTP, raw, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("%s: unsupported scheme %q", NameHTTP, base.Scheme)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	l := &HTTP{base: base, timeout: defaultHTTPTimeout}
	for i, arg := range args[1:] {
		switch v := arg.(type) {
		case time.Duration:
			l.timeout = v
		case string:
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				return nil, fmt.Errorf("%s: argument %d: %w", NameHTTP, i+1, err)
			}
			l.timeout = d
		case *http.Client:
			l.client = v
		default:
			return nil, fmt.Errorf("%s: argument %d has unsupported type %T", NameHTTP, i+1, arg)
		}
	}

	if l.client == nil {
		l.client = &http.Client{Timeout: l.timeout}
	}
	return l, nil
}

func (l *HTTP) Abs(_, name string) string {
	return cleanName(name)
}

func (l *HTTP) Get(name string) (io.Reader, error) {
	target := l.base.ResolveReference(&url.URL{Path: strings.TrimPrefix(cleanName(name), "/")})
	data, err := fetch(context.Background(), l.client, target.String(), l.timeout)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

func fetch(ctx context.Context, client *http.Client, target string, timeout time.Duration) ([]byte, error) {
	if client == nil {
		return nil, errors.New("http loader: client is not configured")
	}

	reqCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("http loader: %s: %w", target, fs.ErrNotExist)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.New("http loader: unexpected status " + resp.Status)
	}

	return io.ReadAll(resp.Body)
}
