package sources

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Package sources loads the list of homepages the pipeline scrapes.

// Source is a single homepage to fetch.
type Source struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	URL  string `json:"url" yaml:"url"`
}

type registryFile struct {
	Sources []Source `json:"sources" yaml:"sources"`
}

// Registry is an ordered, validated set of sources. Order is the file order
// and is the order sources are fetched in.
type Registry struct {
	sources []Source
	idx     map[string]Source
}

// LoadRegistry loads the sources registry from a YAML/JSON file.
func LoadRegistry(path string) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sources file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sources file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}

	parsed, err := parseRegistry(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if len(parsed.Sources) == 0 {
		return nil, errors.New("sources file contains no sources entries")
	}
	return NewRegistry(parsed.Sources...)
}

// NewRegistry validates the given sources and builds a registry from them.
func NewRegistry(list ...Source) (*Registry, error) {
	reg := &Registry{
		sources: make([]Source, 0, len(list)),
		idx:     make(map[string]Source, len(list)),
	}
	for i := range list {
		s := sanitizeSource(list[i])
		if err := validateSource(s); err != nil {
			return nil, fmt.Errorf("sources[%d]: %w", i, err)
		}
		if _, exists := reg.idx[s.ID]; exists {
			return nil, fmt.Errorf("duplicate source id %q", s.ID)
		}
		reg.sources = append(reg.sources, s)
		reg.idx[s.ID] = s
	}
	return reg, nil
}

// FromURLs builds a registry from bare URLs, deriving ids from the host name.
// Repeated hosts get a positional suffix.
func FromURLs(urls ...string) (*Registry, error) {
	list := make([]Source, 0, len(urls))
	seen := make(map[string]bool, len(urls))
	for i, raw := range urls {
		id := fmt.Sprintf("source-%d", i+1)
		if u, err := url.Parse(strings.TrimSpace(raw)); err == nil && u.Host != "" {
			id = strings.TrimPrefix(u.Hostname(), "www.")
		}
		if seen[id] {
			id = fmt.Sprintf("%s-%d", id, i+1)
		}
		seen[id] = true
		list = append(list, Source{ID: id, URL: raw})
	}
	return NewRegistry(list...)
}

func parseRegistry(data []byte, ext string) (registryFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   unmarshalFn
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		if reg, err := unmarshalRegistry(d.name, data, d.fn); err == nil {
			return reg, nil
		}
	}

	return registryFile{}, errors.New("sources file format not recognized (expected YAML or JSON)")
}

type unmarshalFn func([]byte, any) error

func unmarshalRegistry(name string, data []byte, fn unmarshalFn) (registryFile, error) {
	var reg registryFile
	if err := fn(data, &reg); err != nil {
		return registryFile{}, fmt.Errorf("decode %s sources: %w", name, err)
	}
	return reg, nil
}

func sanitizeSource(s Source) Source {
	s.ID = strings.TrimSpace(s.ID)
	s.Name = strings.TrimSpace(s.Name)
	s.URL = strings.TrimSpace(s.URL)
	if s.Name == "" {
		s.Name = s.ID
	}
	return s
}

func validateSource(s Source) error {
	if s.ID == "" {
		return errors.New("id is required")
	}
	if s.URL == "" {
		return fmt.Errorf("url is required for source %q", s.ID)
	}
	u, err := url.Parse(s.URL)
	if err != nil {
		return fmt.Errorf("parse url for source %q: %w", s.ID, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url for source %q must be http or https, got %q", s.ID, s.URL)
	}
	return nil
}

// All returns a copy of the sources in fetch order.
func (r *Registry) All() []Source {
	if r == nil || len(r.sources) == 0 {
		return nil
	}
	out := make([]Source, len(r.sources))
	copy(out, r.sources)
	return out
}

// ByID returns the source with the given id, if loaded.
func (r *Registry) ByID(id string) (Source, bool) {
	if r == nil {
		return Source{}, false
	}
	s, ok := r.idx[strings.TrimSpace(id)]
	return s, ok
}

// IDs returns the source ids in fetch order.
func (r *Registry) IDs() []string {
	if r == nil {
		return nil
	}
	ids := make([]string, 0, len(r.sources))
	for _, s := range r.sources {
		ids = append(ids, s.ID)
	}
	return ids
}
