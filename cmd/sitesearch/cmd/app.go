package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/Aman-CERP/sitesearch/internal/config"
	"github.com/Aman-CERP/sitesearch/internal/document"
	"github.com/Aman-CERP/sitesearch/internal/extract"
	"github.com/Aman-CERP/sitesearch/internal/fieldconfig"
	"github.com/Aman-CERP/sitesearch/internal/index"
	"github.com/Aman-CERP/sitesearch/internal/lock"
	"github.com/Aman-CERP/sitesearch/internal/record"
	"github.com/Aman-CERP/sitesearch/internal/recordstore"
	"github.com/Aman-CERP/sitesearch/internal/store"
	"github.com/Aman-CERP/sitesearch/internal/telemetry"
)

// app holds the wired components for one command invocation.
type app struct {
	cfg       *config.Config
	configs   *fieldconfig.Resolver
	records   *recordstore.Store
	engine    *store.BleveIndex
	extractor *extract.Registry
	builder   *document.Builder
	mutator   *index.Mutator
	hooks     *index.Hooks
	metrics   *telemetry.QueryMetrics
	stats     *telemetry.SQLiteMetricsStore
	logger    *slog.Logger
}

// openApp loads the configuration of the project in dir and opens the
// record store and the search index.
func openApp(dir string) (*app, error) {
	logger := slog.Default()

	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}
	if a.configs, err = cfg.FieldConfigs(nil, logger); err != nil {
		return nil, err
	}
	if a.extractor, err = newExtractor(cfg, logger); err != nil {
		return nil, err
	}

	recordsPath := cfg.Path(cfg.Records.Path)
	if err := ensureParent(recordsPath); err != nil {
		return nil, err
	}
	if a.records, err = recordstore.Open(recordsPath, recordstore.WithLogger(logger)); err != nil {
		return nil, err
	}

	indexPath := cfg.Path(cfg.Index.Path)
	if err := ensureParent(indexPath); err != nil {
		a.Close()
		return nil, err
	}
	a.engine, err = store.OpenBleve(indexPath, false,
		store.WithKeywordFields(keywordFields(a.configs)...),
		store.WithLogger(logger))
	if err != nil {
		a.Close()
		return nil, err
	}

	a.builder, err = document.NewBuilder(document.Dependencies{
		Configs:   a.configs,
		Extractor: a.extractor,
		Hierarchy: a.records,
		Logger:    logger,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	if a.mutator, err = index.NewMutator(a.engine, a.builder, logger); err != nil {
		a.Close()
		return nil, err
	}
	a.hooks = index.NewHooks(a.mutator, logger)
	return a, nil
}

// newExtractor builds the text extractor registry with the built-in
// extractors and the configured converter binaries.
func newExtractor(cfg *config.Config, logger *slog.Logger) (*extract.Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	timeout, err := cfg.ExtractTimeout()
	if err != nil {
		return nil, err
	}
	reg := extract.NewRegistry(
		extract.WithTimeout(timeout),
		extract.WithCacheSize(cfg.Extract.CacheSize),
		extract.WithLogger(logger),
	)
	conv := extract.NewConverters(extract.ConvertersConfig{
		Binaries:      cfg.Extract.Converters,
		MaxConcurrent: cfg.Extract.MaxConcurrent,
		SearchDirs:    cfg.Extract.SearchDirs,
		Logger:        logger,
	})
	if err := extract.RegisterDefaults(reg, conv); err != nil {
		return nil, err
	}
	return reg, nil
}

// coordinator returns a reindex coordinator over the configured classes.
func (a *app) coordinator() (*index.Coordinator, error) {
	classes := make([]index.ClassSpec, 0, len(a.cfg.Classes))
	for _, c := range a.cfg.Classes {
		classes = append(classes, index.ClassSpec{Name: c.Name, Filter: c.IndexFilter})
	}
	retry := a.cfg.RetryConfig()
	return index.NewCoordinator(index.CoordinatorDependencies{
		Mutator: a.mutator,
		Source:  a.records,
		Classes: classes,
		Retry:   &retry,
		Logger:  a.logger,
	})
}

// job returns a reindex job whose checkpoints live in the jobs database.
// The caller closes the returned store.
func (a *app) job() (*index.Job, *store.SQLiteJobStore, error) {
	coord, err := a.coordinator()
	if err != nil {
		return nil, nil, err
	}
	jobsPath := a.cfg.Path(a.cfg.Index.JobsPath)
	if err := ensureParent(jobsPath); err != nil {
		return nil, nil, err
	}
	jobs, err := store.OpenJobStore(jobsPath)
	if err != nil {
		return nil, nil, err
	}
	job, err := index.NewJob(index.JobDependencies{
		Coordinator: coord,
		Store:       jobs,
		Lock:        lock.New(filepath.Dir(a.cfg.Path(a.cfg.Index.Path))),
		Logger:      a.logger,
	})
	if err != nil {
		_ = jobs.Close()
		return nil, nil, err
	}
	return job, jobs, nil
}

// recordQuery adds a search to the query statistics. Statistics are best
// effort: a stats database that cannot be opened only logs a warning.
func (a *app) recordQuery(event telemetry.QueryEvent) {
	if a.metrics == nil {
		stats, err := telemetry.OpenMetricsStore(a.cfg.Path(a.cfg.Search.StatsPath))
		if err != nil {
			a.logger.Warn("stats_open_failed", slog.String("error", err.Error()))
			return
		}
		a.stats = stats
		a.metrics = telemetry.NewQueryMetrics(stats)
	}
	a.metrics.Record(event)
}

// Close flushes query statistics and releases the index and the record
// store.
func (a *app) Close() {
	if a.metrics != nil {
		if err := a.metrics.Close(); err != nil {
			a.logger.Warn("stats_flush_failed", slog.String("error", err.Error()))
		}
		_ = a.stats.Close()
	}
	if a.engine != nil {
		if err := a.engine.Close(); err != nil {
			a.logger.Warn("index_close_failed", slog.String("error", err.Error()))
		}
	}
	if a.records != nil {
		if err := a.records.Close(); err != nil {
			a.logger.Warn("records_close_failed", slog.String("error", err.Error()))
		}
	}
}

// afterWrite keeps the index in step with a record that was just written.
func (a *app) afterWrite(ctx context.Context, refs ...record.Ref) error {
	var errs []error
	for _, ref := range refs {
		rec, err := a.records.Load(ctx, ref)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := a.hooks.AfterWrite(ctx, rec); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ref, err))
		}
	}
	return errors.Join(errs...)
}

// keywordFields lists every output field configured as a keyword, so
// the index analyzes queries against them without lower-casing.
func keywordFields(r *fieldconfig.Resolver) []string {
	var names []string
	for _, class := range r.Classes() {
		cfg, _ := r.Lookup(class)
		for _, f := range cfg.Fields {
			if f.Kind == fieldconfig.Keyword && !slices.Contains(names, f.Name) {
				names = append(names, f.Name)
			}
		}
	}
	return names
}

func ensureParent(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	return nil
}
