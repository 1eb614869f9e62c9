package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/pandatools/panda-bundle/version"
)

const (
	DefaultTimeout      = 60 * time.Second
	DefaultRetryWaitMin = 500 * time.Millisecond
	DefaultRetryWaitMax = 5 * time.Second
)

// Response is the outcome of a single GET.
type Response struct {
	OK     bool
	Status int
	Body   []byte
}

// Fetcher retrieves one remote file.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Response, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, url string) (Response, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, url string) (Response, error) {
	return f(ctx, url)
}

// Options configures a Client. The zero value is usable: no retries, no
// cookie, no rate limit, DefaultTimeout.
type Options struct {
	Timeout time.Duration
	// Retries is the number of additional attempts after a transport failure
	// or a retryable status (429, 5xx).
	Retries      int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	// Cookie is sent verbatim as the Cookie header.
	Cookie string
	// Rate caps requests per second; 0 disables limiting.
	Rate   float64
	Logger zerolog.Logger
}

// Client is an HTTP client for the content service.
type Client struct {
	rc        *retryablehttp.Client
	cookie    string
	userAgent string
	limiter   *rate.Limiter
	log       zerolog.Logger
}

// NewClient creates a Client.
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.RetryWaitMin <= 0 {
		opts.RetryWaitMin = DefaultRetryWaitMin
	}
	if opts.RetryWaitMax <= 0 {
		opts.RetryWaitMax = DefaultRetryWaitMax
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient = &http.Client{Timeout: opts.Timeout}
	rc.RetryMax = max(opts.Retries, 0)
	rc.RetryWaitMin = opts.RetryWaitMin
	rc.RetryWaitMax = opts.RetryWaitMax
	rc.Logger = &retryLogger{log: opts.Logger}
	// Hand the last response back instead of an opaque "giving up" error so
	// the status stays visible to callers.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	c := &Client{
		rc:        rc,
		cookie:    opts.Cookie,
		userAgent: version.UserAgent(),
		log:       opts.Logger,
	}
	if opts.Rate > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.Rate), 1)
	}
	return c
}

// Get performs a GET request. The caller closes the response body.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}

	resp, err := c.rc.Do(req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	return resp, nil
}

// Fetch downloads url. A non-success status is reported through Response.OK,
// not as an error.
func (c *Client) Fetch(ctx context.Context, url string) (Response, error) {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{Status: resp.StatusCode}, fmt.Errorf("reading %s: %w", url, err)
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if !ok {
		c.log.Debug().Str("url", url).Int("status", resp.StatusCode).Msg("non-success status")
	}
	return Response{OK: ok, Status: resp.StatusCode, Body: body}, nil
}

// retryLogger implements the retryablehttp.LeveledLogger interface.
type retryLogger struct {
	log zerolog.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log.Error().Fields(keysAndValues).Msg(msg)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.log.Trace().Fields(keysAndValues).Msg(msg)
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.log.Warn().Fields(keysAndValues).Msg(msg)
}
