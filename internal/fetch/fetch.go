package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/html/charset"

	"github.com/hyperifyio/goingest/internal/cache"
)

// DefaultUserAgent is sent when Client.UserAgent is empty.
const DefaultUserAgent = "goingest/1.0 (+https://github.com/hyperifyio/goingest)"

// Page is a successfully fetched HTML document.
type Page struct {
	URL         string
	ContentType string
	Status      int
	// Body holds the bytes as received.
	Body []byte
	// Text is Body decoded to UTF-8 using the declared or sniffed charset.
	Text string
	// FromCache is true when the body was served from the on-disk cache.
	FromCache bool
}

// TransportError is returned for every fetch failure: bad URL, network and
// DNS errors, non-2xx statuses and rejected content types. Status is zero
// when no response was received.
type TransportError struct {
	URL    string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Client wraps http.Client with an optional on-disk cache, a redirect cap and
// an optional bounded retry on transient errors.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	// MaxAttempts includes the initial attempt. Zero means a single attempt.
	MaxAttempts int
	// PerRequestTimeout bounds each attempt.
	PerRequestTimeout time.Duration
	// Optional on-disk cache for GET bodies and validators.
	Cache *cache.HTTPCache
	// BypassCache skips conditional requests but still saves the response.
	BypassCache bool

	// RedirectMaxHops caps redirect following. Zero means 5.
	RedirectMaxHops int
	// MaxConcurrent limits in-flight requests for this client. Zero means unlimited.
	MaxConcurrent int

	limiter     chan struct{}
	limiterOnce sync.Once
}

func (c *Client) getHTTPClient() *http.Client {
	if c.HTTPClient != nil {
		// Clone to attach our redirect policy without mutating caller's client
		base := *c.HTTPClient
		base.CheckRedirect = c.checkRedirectFunc()
		return &base
	}
	return &http.Client{Timeout: c.PerRequestTimeout, CheckRedirect: c.checkRedirectFunc()}
}

// Get fetches rawURL and returns the page decoded to UTF-8.
func (c *Client) Get(ctx context.Context, rawURL string) (Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Page{}, &TransportError{URL: rawURL, Err: fmt.Errorf("parse url: %w", err)}
	}
	if !isHTTPScheme(u) {
		return Page{}, &TransportError{URL: rawURL, Err: fmt.Errorf("unsupported URL scheme: %q", u.Scheme)}
	}

	var etag, lastMod string
	if c.Cache != nil && !c.BypassCache {
		if meta, err := c.Cache.LoadMeta(ctx, rawURL); err == nil && meta != nil {
			etag = meta.ETag
			lastMod = meta.LastModified
		}
	}

	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		p, err := c.tryOnce(ctx, rawURL, etag, lastMod)
		if err == nil {
			return c.finish(ctx, p)
		}
		lastErr = err
		if !isTransient(err) || i == attempts-1 {
			break
		}
		log.Debug().Err(err).Str("url", rawURL).Int("attempt", i+1).Msg("transient fetch error; retrying")
		select {
		case <-ctx.Done():
			return Page{}, &TransportError{URL: rawURL, Err: ctx.Err()}
		case <-time.After(time.Duration(i+1) * 200 * time.Millisecond):
		}
	}
	return Page{}, lastErr
}

// finish serves 304 responses from cache, saves fresh 200s and decodes text.
func (c *Client) finish(ctx context.Context, p response) (Page, error) {
	if p.Status == http.StatusNotModified {
		if c.Cache == nil {
			return Page{}, &TransportError{URL: p.URL, Status: p.Status, Err: errors.New("not modified without cache")}
		}
		body, err := c.Cache.LoadBody(ctx, p.URL)
		if err != nil {
			return Page{}, &TransportError{URL: p.URL, Status: p.Status, Err: fmt.Errorf("load cached body: %w", err)}
		}
		if meta, err := c.Cache.LoadMeta(ctx, p.URL); err == nil && meta != nil && p.ContentType == "" {
			p.ContentType = meta.ContentType
		}
		p.Body = body
		p.FromCache = true
	} else if c.Cache != nil && p.Status == http.StatusOK {
		if err := c.Cache.Save(ctx, p.URL, p.ContentType, p.etag, p.lastModified, p.Body); err != nil {
			log.Warn().Err(err).Str("url", p.URL).Msg("cache save failed")
		}
	}
	text, err := DecodeUTF8(p.Body, p.ContentType)
	if err != nil {
		return Page{}, &TransportError{URL: p.URL, Status: p.Status, Err: fmt.Errorf("decode body: %w", err)}
	}
	p.Text = text
	return p.Page, nil
}

type response struct {
	Page
	etag         string
	lastModified string
}

func (c *Client) tryOnce(ctx context.Context, rawURL string, etag string, lastMod string) (response, error) {
	c.acquire()
	defer c.release()

	fail := func(status int, err error) (response, error) {
		return response{}, &TransportError{URL: rawURL, Status: status, Err: err}
	}

	if c.PerRequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.PerRequestTimeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fail(0, fmt.Errorf("new request: %w", err))
	}
	ua := c.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if lastMod != "" {
		req.Header.Set("If-Modified-Since", lastMod)
	}

	resp, err := c.getHTTPClient().Do(req)
	if err != nil {
		return fail(0, err)
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	if resp.StatusCode == http.StatusNotModified {
		return response{Page: Page{URL: rawURL, ContentType: contentType, Status: resp.StatusCode}}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fail(resp.StatusCode, fmt.Errorf("unexpected status: %d", resp.StatusCode))
	}
	if !isAllowedHTMLContentType(contentType) {
		return fail(resp.StatusCode, fmt.Errorf("unsupported content type: %s", contentType))
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(resp.StatusCode, fmt.Errorf("read body: %w", err))
	}
	return response{
		Page:         Page{URL: rawURL, ContentType: contentType, Status: resp.StatusCode, Body: b},
		etag:         resp.Header.Get("ETag"),
		lastModified: resp.Header.Get("Last-Modified"),
	}, nil
}

// isTransient treats 5xx responses and per-attempt deadlines as retryable.
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te.Status >= 500 && te.Status <= 599
	}
	return false
}

// DecodeUTF8 converts body to UTF-8 using the charset in contentType, a
// <meta> declaration or content sniffing, in that order.
func DecodeUTF8(body []byte, contentType string) (string, error) {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return "", err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (c *Client) checkRedirectFunc() func(req *http.Request, via []*http.Request) error {
	max := c.RedirectMaxHops
	if max <= 0 {
		max = 5
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return errors.New("too many redirects")
		}
		if req.URL == nil || !isHTTPScheme(req.URL) {
			return errors.New("redirect to unsupported scheme")
		}
		return nil
	}
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

// isAllowedHTMLContentType accepts HTML variants. Servers that omit the
// header entirely are given the benefit of the doubt.
func isAllowedHTMLContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if ct == "" {
		return true
	}
	return strings.HasPrefix(ct, "text/html") || strings.HasPrefix(ct, "application/xhtml+xml")
}

func (c *Client) acquire() {
	if c.MaxConcurrent <= 0 {
		return
	}
	c.limiterOnce.Do(func() {
		c.limiter = make(chan struct{}, c.MaxConcurrent)
	})
	c.limiter <- struct{}{}
}

func (c *Client) release() {
	if c.MaxConcurrent <= 0 || c.limiter == nil {
		return
	}
	select {
	case <-c.limiter:
	default:
	}
}
