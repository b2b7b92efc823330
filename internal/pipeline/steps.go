package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/samvad-hq/samvad-headline-pipeline/internal/crawler"
	"github.com/samvad-hq/samvad-headline-pipeline/internal/csvout"
	"github.com/samvad-hq/samvad-headline-pipeline/internal/domain"
	"github.com/samvad-hq/samvad-headline-pipeline/internal/logger"
	"github.com/samvad-hq/samvad-headline-pipeline/internal/normalize"
	"github.com/samvad-hq/samvad-headline-pipeline/pkg/publishers"
	"github.com/samvad-hq/samvad-headline-pipeline/pkg/sources"
)

// ExtractStep fetches every source in order and concatenates their records.
type ExtractStep struct {
	service *crawler.Service
	sources []sources.Source
}

// NewExtractStep builds the extract step over the given sources.
func NewExtractStep(service *crawler.Service, srcs []sources.Source) *ExtractStep {
	return &ExtractStep{service: service, sources: srcs}
}

func (s *ExtractStep) Name() string { return StepExtract }

// Run ignores its input; extraction is always the first step.
func (s *ExtractStep) Run(ctx context.Context, _ []domain.ArticleRecord) ([]domain.ArticleRecord, error) {
	if s.service == nil {
		return nil, errors.New("crawler service is nil")
	}
	return s.service.Run(ctx, s.sources)
}

// NormalizeStep cleans titles and descriptions in place.
type NormalizeStep struct{}

func (NormalizeStep) Name() string { return StepNormalize }

func (NormalizeStep) Run(_ context.Context, records []domain.ArticleRecord) ([]domain.ArticleRecord, error) {
	return normalize.Records(records), nil
}

// WriteStep persists records to the configured CSV path.
type WriteStep struct {
	path string
}

// NewWriteStep builds the write step for path.
func NewWriteStep(path string) *WriteStep {
	return &WriteStep{path: path}
}

func (s *WriteStep) Name() string { return StepWrite }

func (s *WriteStep) Run(_ context.Context, records []domain.ArticleRecord) ([]domain.ArticleRecord, error) {
	if err := csvout.Write(s.path, records); err != nil {
		return nil, err
	}
	return records, nil
}

// PublishStep hands the written file to every publisher bound to one stage.
// Any failed publisher fails the step; every outcome is still reported. A
// stage with no enabled publishers fails too.
type PublishStep struct {
	name       string
	stage      string
	fanout     *publishers.Fanout
	outputPath string
	sourceIDs  []string
	log        logger.Logger

	mu      sync.Mutex
	results []publishers.Result
}

// NewPublishStep builds a publish step for stage. The step name is derived
// from the stage so reports read publish_data_version / publish_source_control.
func NewPublishStep(stage string, fanout *publishers.Fanout, outputPath string, sourceIDs []string, log logger.Logger) *PublishStep {
	return &PublishStep{
		name:       "publish_" + stage,
		stage:      stage,
		fanout:     fanout,
		outputPath: outputPath,
		sourceIDs:  sourceIDs,
		log:        logger.Ensure(log),
	}
}

func (s *PublishStep) Name() string { return s.name }

// Results returns the publisher outcomes of the most recent Run.
func (s *PublishStep) Results() []publishers.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]publishers.Result, len(s.results))
	copy(out, s.results)
	return out
}

func (s *PublishStep) Run(ctx context.Context, records []domain.ArticleRecord) ([]domain.ArticleRecord, error) {
	s.setResults(nil)
	if s.fanout.Size() == 0 {
		s.log.ErrorObj("no publishers bound to stage", "stage", s.stage)
		return nil, fmt.Errorf("publish %s: no enabled publishers bound to stage", s.stage)
	}

	evt := publishers.NewEvent(RunIDFrom(ctx), s.stage, s.outputPath, len(records), s.sourceIDs)
	results, err := s.fanout.Publish(ctx, evt)
	s.setResults(results)
	for _, res := range results {
		s.log.InfoObj("publish result", "publish_result", map[string]any{
			"stage":          s.stage,
			"publisher_id":   res.PublisherID,
			"publisher_type": res.PublisherType,
			"success":        res.Success,
			"message":        res.Message,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("publish %s: %w", s.stage, err)
	}
	return records, nil
}

func (s *PublishStep) setResults(results []publishers.Result) {
	s.mu.Lock()
	s.results = results
	s.mu.Unlock()
}
