// Package httpclient is the fetch transport shared by the crawler and publishers.
package httpclient

import "context"

// Response exposes what the extractor needs from a fetched page.
type Response interface {
	Body() []byte
	StatusCode() int
}

// Client issues plain GET requests. Any received response, whatever its
// status, is returned without error; only transport failures are errors.
type Client interface {
	Get(ctx context.Context, url string) (Response, error)
}
