package httpclient

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
)

// Options tunes the shared resty client.
type Options struct {
	Timeout time.Duration
	// Retries is the number of extra attempts made after a transport error.
	// Responses, whatever their status, are never retried.
	Retries      int
	RetryWait    time.Duration
	RetryMaxWait time.Duration
}

const (
	defaultRetryWait    = 500 * time.Millisecond
	defaultRetryMaxWait = 5 * time.Second
)

// RestyClient adapts resty.Client to the httpclient.Client interface.
type RestyClient struct {
	client *resty.Client
}

// NewRestyClient creates a new RestyClient with the given options.
func NewRestyClient(opts Options) *RestyClient {
	return &RestyClient{client: newRestyBaseClient(opts)}
}

// NewRestyHTTPClient exposes a configured resty.Client for callers needing custom verbs.
func NewRestyHTTPClient(timeout time.Duration) *resty.Client {
	return newRestyBaseClient(Options{Timeout: timeout})
}

func newRestyBaseClient(opts Options) *resty.Client {
	c := resty.New()
	if opts.Timeout > 0 {
		c.SetTimeout(opts.Timeout)
	}
	if opts.Retries > 0 {
		wait, maxWait := opts.RetryWait, opts.RetryMaxWait
		if wait <= 0 {
			wait = defaultRetryWait
		}
		if maxWait <= 0 {
			maxWait = defaultRetryMaxWait
		}
		c.SetRetryCount(opts.Retries).
			SetRetryWaitTime(wait).
			SetRetryMaxWaitTime(maxWait).
			AddRetryCondition(func(_ *resty.Response, err error) bool {
				return err != nil
			})
	}
	return c
}

// Get performs an HTTP GET request with the client defaults and no extra headers.
func (r *RestyClient) Get(ctx context.Context, url string) (Response, error) {
	resp, err := r.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, err
	}
	return &restyResponseAdapter{resp: resp}, nil
}

// restyResponseAdapter adapts resty.Response to the httpclient.Response interface.
type restyResponseAdapter struct {
	resp *resty.Response
}

func (r *restyResponseAdapter) Body() []byte    { return r.resp.Body() }
func (r *restyResponseAdapter) StatusCode() int { return r.resp.StatusCode() }
