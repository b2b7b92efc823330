package publishers

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Fanout delivers one event to every publisher bound to a stage, in order.
// A failing publisher does not stop the ones after it.
type Fanout struct {
	publishers []Publisher
}

// NewFanout skips nil entries.
func NewFanout(pubs []Publisher) *Fanout {
	f := &Fanout{}
	for _, p := range pubs {
		if p != nil {
			f.publishers = append(f.publishers, p)
		}
	}
	return f
}

// Publish returns one Result per publisher and an error joining every failure.
func (f *Fanout) Publish(ctx context.Context, evt Event) ([]Result, error) {
	if f.Size() == 0 {
		return nil, nil
	}

	results := make([]Result, len(f.publishers))
	var errs []error
	for i, p := range f.publishers {
		var err error
		results[i], err = publishOne(ctx, p, evt)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", label(p), err))
		}
	}
	return results, errors.Join(errs...)
}

func publishOne(ctx context.Context, p Publisher, evt Event) (Result, error) {
	res := Result{PublisherID: p.ID(), PublisherType: p.Type()}
	msg, err := p.Publish(ctx, evt)
	if err != nil {
		res.Message = err.Error()
		return res, err
	}
	res.Success = true
	res.Message = msg
	return res, nil
}

func label(p Publisher) string {
	return fmt.Sprintf("%s publisher[%s]", p.Type(), p.ID())
}

// Size returns the number of publishers.
func (f *Fanout) Size() int {
	if f == nil {
		return 0
	}
	return len(f.publishers)
}

// Close closes every publisher that holds a client connection.
func (f *Fanout) Close() error {
	if f == nil {
		return nil
	}
	var errs []error
	for _, p := range f.publishers {
		c, ok := p.(io.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", label(p), err))
		}
	}
	return errors.Join(errs...)
}
