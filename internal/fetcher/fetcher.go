package fetcher

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/net/proxy"
)

const (
	// DefaultTimeout bounds a whole request, body included.
	DefaultTimeout = 15 * time.Second

	// DefaultUserAgent mimics a desktop browser. Some image CDNs reject
	// requests that identify as scripts.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36"

	// tempPattern names in-flight downloads inside the destination directory.
	tempPattern = ".mdmirror-*.part"
)

// Fetcher downloads images over HTTP.
// It is safe for concurrent use by multiple workers.
type Fetcher struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
	proxyURL  string
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the per-request timeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header. Empty values are ignored.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithProxy routes all requests through a SOCKS5 proxy,
// e.g. "socks5://127.0.0.1:1080". An empty string means a direct connection.
func WithProxy(proxyURL string) Option {
	return func(f *Fetcher) {
		f.proxyURL = proxyURL
	}
}

// WithHTTPClient replaces the HTTP client entirely.
// The timeout and proxy options are ignored when this is set.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

// New creates a Fetcher.
func New(opts ...Option) (*Fetcher, error) {
	f := &Fetcher{
		userAgent: DefaultUserAgent,
		timeout:   DefaultTimeout,
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.client == nil {
		transport, err := newTransport(f.proxyURL)
		if err != nil {
			return nil, err
		}
		f.client = &http.Client{
			Transport: transport,
			Timeout:   f.timeout,
		}
	}

	return f, nil
}

// newTransport builds the HTTP transport, optionally dialing through SOCKS5.
//
// Design decision: We use golang.org/x/net/proxy for the SOCKS5 dialer
// instead of the HTTP_PROXY environment variables, which do not cover SOCKS.
func newTransport(proxyURL string) (*http.Transport, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone() //nolint:forcetypeassert // DefaultTransport is always *http.Transport
	if proxyURL == "" {
		return transport, nil
	}

	u, err := url.Parse(proxyURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProxy, proxyURL)
	}
	if u.Scheme != "socks5" && u.Scheme != "socks5h" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidProxy, u.Scheme)
	}

	dialer, err := proxy.FromURL(u, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProxy, err)
	}

	transport.Proxy = nil
	if cd, ok := dialer.(proxy.ContextDialer); ok {
		transport.DialContext = cd.DialContext
	} else {
		transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
			return dialer.Dial(network, addr)
		}
	}
	return transport, nil
}

// Timeout returns the configured per-request timeout.
func (f *Fetcher) Timeout() time.Duration {
	return f.timeout
}

// Fetch downloads rawURL into destDir/name and returns the number of bytes
// written. The file only appears under its final name when the whole body
// was copied; every failure path removes the temporary file.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, destDir, name string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, &TransportError{URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, &TransportError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	tmp, err := os.CreateTemp(destDir, tempPattern)
	if err != nil {
		return 0, fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()

	n, copyErr := io.Copy(tmp, resp.Body)
	closeErr := tmp.Close()
	if copyErr != nil {
		_ = os.Remove(tmpPath)
		return 0, &TransportError{URL: rawURL, Err: copyErr}
	}
	if closeErr != nil {
		_ = os.Remove(tmpPath)
		return 0, fmt.Errorf("failed to write image: %w", closeErr)
	}

	// CreateTemp uses 0600; mirrored images are ordinary files.
	_ = os.Chmod(tmpPath, 0o644) //nolint:gosec // images are not sensitive

	if err := os.Rename(tmpPath, filepath.Join(destDir, name)); err != nil {
		_ = os.Remove(tmpPath)
		return 0, fmt.Errorf("failed to move image into place: %w", err)
	}

	return n, nil
}
