package publishers

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Builder creates a Publisher from a config entry.
type Builder func(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error)

// Registry maps publisher types to builders.
type Registry interface {
	Register(typ string, builder Builder)
	Build(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error)
}

type builderSet struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewRegistry returns a registry seeded with builders keyed by type.
func NewRegistry(builders map[string]Builder) Registry {
	set := &builderSet{builders: make(map[string]Builder, len(builders))}
	for typ, b := range builders {
		set.Register(typ, b)
	}
	return set
}

// Register binds typ to builder. Blank types and nil builders are ignored.
func (s *builderSet) Register(typ string, builder Builder) {
	typ = strings.ToLower(strings.TrimSpace(typ))
	if typ == "" || builder == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.builders[typ] = builder
}

// Build constructs the publisher described by cfg.
func (s *builderSet) Build(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	typ := strings.ToLower(strings.TrimSpace(cfg.Type))
	if typ == "" {
		return nil, fmt.Errorf("publisher %q has no type configured", cfg.ID)
	}

	s.mu.RLock()
	builder, ok := s.builders[typ]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("publisher %q: unknown type %q", cfg.ID, cfg.Type)
	}
	return builder(ctx, cfg, log)
}

// DefaultRegistry knows every built-in publisher type. runner backs the dvc
// and git publishers; nil means os/exec.
func DefaultRegistry(runner CommandRunner) Registry {
	return NewRegistry(map[string]Builder{
		TypeDVC:    newDVCPublisher(runner),
		TypeGit:    newGitPublisher(runner),
		TypeHTTP:   newHTTPPublisher,
		TypeSQS:    newSQSPublisher,
		TypeSNS:    newSNSPublisher,
		TypePubSub: newPubSubPublisher,
	})
}

// BuildAll constructs one publisher per config in order. On failure the
// publishers built so far are closed and nothing is returned.
func BuildAll(ctx context.Context, reg Registry, cfgs []PublisherConfig, log Logger) ([]Publisher, error) {
	if reg == nil || len(cfgs) == 0 {
		return nil, nil
	}

	pubs := make([]Publisher, 0, len(cfgs))
	for _, cfg := range cfgs {
		pub, err := reg.Build(ctx, cfg, log)
		if err != nil {
			_ = NewFanout(pubs).Close()
			return nil, fmt.Errorf("build publisher %q: %w", cfg.ID, err)
		}
		pubs = append(pubs, pub)
	}
	return pubs, nil
}
