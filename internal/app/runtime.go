package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/samvad-hq/samvad-headline-pipeline/internal/config"
	"github.com/samvad-hq/samvad-headline-pipeline/internal/crawler"
	"github.com/samvad-hq/samvad-headline-pipeline/internal/logger"
	"github.com/samvad-hq/samvad-headline-pipeline/internal/pipeline"
	"github.com/samvad-hq/samvad-headline-pipeline/internal/storage"
	"github.com/samvad-hq/samvad-headline-pipeline/pkg/httpclient"
	"github.com/samvad-hq/samvad-headline-pipeline/pkg/publishers"
	"github.com/samvad-hq/samvad-headline-pipeline/pkg/sources"
)

// Run modes recorded in the ledger.
const (
	ModeRun     = "run"
	ModeExtract = "extract"
)

// Options customizes how the runtime is assembled. Zero values select the
// production dependencies.
type Options struct {
	// Publish builds the publisher fan-outs. Extract-only runtimes leave it off
	// so no publishers file is required.
	Publish bool
	// Sources replaces the sources file when non-empty.
	Sources []sources.Source
	// HTTPClient replaces the resty client used for fetching.
	HTTPClient httpclient.Client
	// Runner replaces the os/exec runner used by dvc and git publishers.
	// Ignored when Publishers is set.
	Runner publishers.CommandRunner
	// Publishers replaces the built-in publisher registry.
	Publishers publishers.Registry
}

// Runtime owns everything one pipeline process needs: the source list, the
// crawler, the stage fan-outs and the run ledger.
type Runtime struct {
	cfg     *config.Config
	sources []sources.Source
	service *crawler.Service
	fanouts map[string]*publishers.Fanout
	store   storage.Store
	log     logger.Logger
}

// NewRuntime builds a pipeline runtime from config files.
func NewRuntime(ctx context.Context, cfg *config.Config, log logger.Logger, opts Options) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)
	if ctx == nil {
		ctx = context.Background()
	}

	srcs := opts.Sources
	if len(srcs) == 0 {
		reg, err := sources.LoadRegistry(cfg.SourcesFile)
		if err != nil {
			return nil, fmt.Errorf("load sources registry: %w", err)
		}
		srcs = reg.All()
	}
	if len(srcs) == 0 {
		return nil, fmt.Errorf("no sources configured")
	}
	sourceIDs := make([]string, 0, len(srcs))
	for _, s := range srcs {
		sourceIDs = append(sourceIDs, s.ID)
	}
	log.InfoObj("sources registry loaded", "sources_meta", map[string]any{
		"count": len(sourceIDs),
		"ids":   sourceIDs,
	})

	client := opts.HTTPClient
	if client == nil {
		client = httpclient.NewRestyClient(httpclient.Options{
			Timeout: cfg.HTTPTimeout,
			Retries: cfg.FetchRetries,
		})
	}

	rt := &Runtime{
		cfg:     cfg,
		sources: srcs,
		service: crawler.NewService(crawler.NewScraper(client, log), log),
		fanouts: map[string]*publishers.Fanout{},
		log:     log,
	}

	if opts.Publish {
		if err := rt.buildFanouts(ctx, opts); err != nil {
			return nil, err
		}
	}

	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storage.Options{
		RunTTL:          cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	})
	if err != nil {
		rt.closeFanouts()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	rt.store = store
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"run_ttl_seconds":          int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	return rt, nil
}

func (r *Runtime) buildFanouts(ctx context.Context, opts Options) error {
	publisherReg, err := publishers.LoadRegistry(r.cfg.PublishersFile)
	if err != nil {
		return fmt.Errorf("load publishers registry: %w", err)
	}

	builders := opts.Publishers
	if builders == nil {
		builders = publishers.DefaultRegistry(opts.Runner)
	}

	for _, stage := range []string{publishers.StageDataVersion, publishers.StageSourceControl} {
		cfgs := publisherReg.ForStage(stage)
		pubs, err := publishers.BuildAll(ctx, builders, cfgs, r.log)
		if err != nil {
			r.closeFanouts()
			return fmt.Errorf("build %s publishers: %w", stage, err)
		}
		r.fanouts[stage] = publishers.NewFanout(pubs)

		summaries := make([]map[string]string, 0, len(cfgs))
		for _, c := range cfgs {
			summaries = append(summaries, map[string]string{"id": c.ID, "type": c.Type})
		}
		r.log.InfoObj("publishers bound to stage", "publishers_meta", map[string]any{
			"stage":      stage,
			"count":      len(summaries),
			"publishers": summaries,
		})
	}
	return nil
}

// RunOnce executes the full pipeline: extract, normalize, write and both
// publish stages. The report is recorded in the ledger whatever the outcome.
func (r *Runtime) RunOnce(ctx context.Context) (pipeline.RunReport, error) {
	if r == nil || r.service == nil {
		return pipeline.RunReport{}, errors.New("runtime is not initialized")
	}
	steps := append(r.extractSteps(),
		pipeline.NewPublishStep(publishers.StageDataVersion, r.fanouts[publishers.StageDataVersion], r.cfg.OutputPath, r.sourceIDs(), r.log),
		pipeline.NewPublishStep(publishers.StageSourceControl, r.fanouts[publishers.StageSourceControl], r.cfg.OutputPath, r.sourceIDs(), r.log),
	)
	return r.drive(ctx, ModeRun, steps)
}

// Extract runs only extract, normalize and write through the same driver.
func (r *Runtime) Extract(ctx context.Context) (pipeline.RunReport, error) {
	if r == nil || r.service == nil {
		return pipeline.RunReport{}, errors.New("runtime is not initialized")
	}
	return r.drive(ctx, ModeExtract, r.extractSteps())
}

// Config returns the configuration the runtime was built from.
func (r *Runtime) Config() *config.Config {
	return r.cfg
}

// History returns the most recent runs recorded in the ledger.
func (r *Runtime) History(limit int) ([]storage.RunRecord, error) {
	if r == nil || r.store == nil {
		return nil, nil
	}
	return r.store.RecentRuns(limit)
}

// Close releases publishers and the ledger.
func (r *Runtime) Close() error {
	if r == nil {
		return nil
	}
	errs := []error{r.closeFanouts()}
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close storage: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (r *Runtime) extractSteps() []pipeline.Step {
	return []pipeline.Step{
		pipeline.NewExtractStep(r.service, r.sources),
		pipeline.NormalizeStep{},
		pipeline.NewWriteStep(r.cfg.OutputPath),
	}
}

func (r *Runtime) drive(ctx context.Context, mode string, steps []pipeline.Step) (pipeline.RunReport, error) {
	report, err := pipeline.NewDriver(r.log, steps...).Run(ctx)
	report.OutputPath = r.cfg.OutputPath

	if saveErr := r.store.SaveRun(toRunRecord(report, mode)); saveErr != nil {
		r.log.ErrorObj("run ledger write failed", "error", saveErr)
	}
	return report, err
}

func (r *Runtime) sourceIDs() []string {
	ids := make([]string, 0, len(r.sources))
	for _, s := range r.sources {
		ids = append(ids, s.ID)
	}
	return ids
}

func (r *Runtime) closeFanouts() error {
	var errs []error
	for _, f := range r.fanouts {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
