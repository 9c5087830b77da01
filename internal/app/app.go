package app

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ibeckermayer/threadwatch/internal/analyzer"
	"github.com/ibeckermayer/threadwatch/internal/config"
	"github.com/ibeckermayer/threadwatch/internal/digest"
	"github.com/ibeckermayer/threadwatch/internal/feed"
	"github.com/ibeckermayer/threadwatch/internal/filter"
	"github.com/ibeckermayer/threadwatch/internal/metrics"
	"github.com/ibeckermayer/threadwatch/internal/scraper"
	"github.com/ibeckermayer/threadwatch/internal/store"
	"github.com/ibeckermayer/threadwatch/internal/types"
)

// Deps are the collaborators a run needs. Archive, Steps and Metrics are optional.
type Deps struct {
	Feed    feed.Client
	State   *store.StateFile
	Archive *store.Archive
	Steps   *store.StepCache
	Metrics *metrics.Metrics
	Logger  *zap.Logger
	// Now overrides the wall clock.
	Now func() time.Time
}

// App runs the monitor pipeline.
type App struct {
	config    *config.Config
	feed      feed.Client
	state     *store.StateFile
	archive   *store.Archive
	steps     *store.StepCache
	harvester *scraper.Harvester
	analyzer  *analyzer.Analyzer
	builder   *digest.Builder
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// New creates a new App instance.
func New(cfg *config.Config, d Deps) *App {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	m := d.Metrics
	if m == nil {
		m = metrics.Nop()
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}

	return &App{
		config:  cfg,
		feed:    d.Feed,
		state:   d.State,
		archive: d.Archive,
		steps:   d.Steps,
		harvester: scraper.New(d.Feed, scraper.Options{
			MaxPages: cfg.Harvest.MaxPages,
			Delay:    cfg.PageDelay(),
			Bulk:     cfg.Feed.BulkReplies,
		}, logger, m),
		analyzer: analyzer.New(cfg.Handle),
		builder: digest.New(digest.Options{
			Handle:      cfg.Handle,
			MinAgeHours: cfg.Filter.MinAgeHours,
			MaxPages:    cfg.Harvest.MaxPages,
			Delay:       cfg.PageDelay(),
			Bulk:        cfg.Feed.BulkReplies,
			Now:         now,
		}),
		metrics: m,
		logger:  logger.Named("app"),
		now:     now,
	}
}

// Result is the outcome of a run that did not fail.
type Result struct {
	RunID   string
	Reports []*digest.Report
	// Output is what goes to stdout. Empty means there was nothing to do.
	Output string
}

// compiled is a report waiting for the state write.
type compiled struct {
	post     types.Post
	record   types.ProcessingRecord
	report   *digest.Report
	analysis *analyzer.Result
}

// Execute runs the pipeline and returns the text for stdout: joined
// reports, a diagnostic, or nothing. Only cancellation is returned as an
// error.
func (a *App) Execute(ctx context.Context) (string, error) {
	res, err := a.Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		return Diagnose(a.config.Handle, err), nil
	}
	return res.Output, nil
}

// Run performs AuthCheck, TimelineFetch, Filter, per-post harvest and
// compile, then persists state. Fatal failures come back as *RunError and
// leave the processed-set untouched.
func (a *App) Run(ctx context.Context) (*Result, error) {
	runID := uuid.NewString()
	log := a.logger.With(zap.String("run_id", runID))
	start := time.Now()

	res, err := a.run(ctx, runID, log)

	a.metrics.RunDuration.Observe(time.Since(start).Seconds())
	switch {
	case err != nil:
		a.metrics.Runs.WithLabelValues(metrics.OutcomeDiagnostic).Inc()
		log.Error("run aborted", zap.Error(err))
	case len(res.Reports) == 0:
		a.metrics.Runs.WithLabelValues(metrics.OutcomeIdle).Inc()
	default:
		a.metrics.Runs.WithLabelValues(metrics.OutcomeReported).Inc()
		a.metrics.PostsReported.Add(float64(len(res.Reports)))
	}
	return res, err
}

func (a *App) run(ctx context.Context, runID string, log *zap.Logger) (*Result, error) {
	cfg := a.config

	// The processed-set is not read until identity and timeline succeed, so
	// an auth failure never touches the state file.
	if err := a.feed.CheckIdentity(ctx); err != nil {
		return nil, &RunError{Stage: StageAuth, Err: err}
	}

	posts, err := a.feed.ListRecentPosts(ctx, cfg.Handle, cfg.Filter.TimelineN)
	if err != nil {
		return nil, &RunError{Stage: StageTimeline, Err: err}
	}
	log.Info("timeline fetched", zap.Int("posts", len(posts)))
	a.cacheJSON(log, store.StepTimeline, "", posts)

	st, err := a.state.Load()
	if err != nil {
		return nil, &RunError{Stage: StageState, Err: err}
	}

	now := a.now()
	eligible := filter.Eligible(posts, st, filter.Window{
		MinAgeHours: cfg.Filter.MinAgeHours,
		MaxAgeHours: cfg.Filter.MaxAgeHours,
	}, now)
	if len(eligible) == 0 {
		log.Info("no eligible posts")
		return &Result{RunID: runID}, nil
	}

	batch := filter.Take(eligible, cfg.PostsPerRun())
	log.Info("processing posts",
		zap.Int("eligible", len(eligible)),
		zap.Int("batch", len(batch)))

	var done []compiled
	for _, post := range batch {
		c, err := a.processPost(ctx, log, post)
		if err != nil {
			return nil, err
		}
		done = append(done, *c)
	}

	for _, c := range done {
		st.Mark(c.post.ID, c.record)
	}
	if err := a.state.Save(st, a.now()); err != nil {
		return nil, &RunError{Stage: StageState, Err: err}
	}
	log.Info("state saved", zap.String("path", a.state.Path()), zap.Int("processed", len(st.Processed)))

	reports := make([]*digest.Report, len(done))
	for i, c := range done {
		reports[i] = c.report
		a.archiveReport(log, runID, c)
	}

	return &Result{
		RunID:   runID,
		Reports: reports,
		Output:  digest.Join(reports),
	}, nil
}

// processPost runs HarvestDetail, HarvestReplies, Analyze and Compile for one post.
func (a *App) processPost(ctx context.Context, log *zap.Logger, post types.Post) (*compiled, error) {
	log = log.With(zap.String("post_id", post.ID))

	detail, err := a.feed.ReadPost(ctx, post.ID)
	if err != nil {
		return nil, &RunError{Stage: StageRead, PostID: post.ID, Err: err}
	}
	if detail == nil {
		detail = &types.PostDetail{}
	}

	harvest, err := a.harvester.Harvest(ctx, post.ID)
	if err != nil {
		return nil, &RunError{Stage: StageReplies, PostID: post.ID, Err: err}
	}
	log.Info("replies harvested",
		zap.Int("fetched", harvest.Fetched()),
		zap.Int("pages", harvest.Pages),
		zap.Bool("rate_limit_note", harvest.RateLimitNote != ""))
	a.cacheJSON(log, store.StepHarvest, post.ID, harvest)

	result := a.analyzer.Analyze(harvest.Replies)
	in := digest.Input{Post: post, Detail: detail, Harvest: harvest, Analysis: result}
	report := a.builder.Build(in)
	a.cacheText(log, store.StepReport, post.ID, report.Text)

	return &compiled{
		post: post,
		record: types.ProcessingRecord{
			ProcessedAt:   a.now().UTC(),
			CreatedAt:     post.CreatedAtRaw,
			ReplyCount:    digest.AdvertisedReplies(in),
			Fetched:       harvest.Fetched(),
			URL:           report.URL,
			Views:         detail.Views,
			QuoteCount:    detail.Legacy.Quotes,
			BookmarkCount: detail.Legacy.Bookmarks,
		},
		report:   report,
		analysis: result,
	}, nil
}

// archiveReport is best effort: the processed-set is already saved.
func (a *App) archiveReport(log *zap.Logger, runID string, c compiled) {
	if a.archive == nil {
		return
	}
	err := a.archive.SaveReport(&store.ReportEntry{
		PostID:        c.post.ID,
		Handle:        a.config.Handle,
		URL:           c.record.URL,
		PostCreatedAt: c.record.CreatedAt,
		ProcessedAt:   c.record.ProcessedAt,
		RunID:         runID,
		Fetched:       c.record.Fetched,
		ReplyCount:    c.record.ReplyCount,
		Supportive:    c.analysis.Stances.Supportive,
		Skeptical:     c.analysis.Stances.Skeptical,
		Neutral:       c.analysis.Stances.Neutral,
		Report:        c.report.Text,
	})
	if err != nil {
		log.Warn("failed to archive report", zap.String("post_id", c.post.ID), zap.Error(err))
	}
}

func (a *App) cacheJSON(log *zap.Logger, step store.StepName, label string, data any) {
	if a.steps == nil {
		return
	}
	path, err := store.SaveStepOutput(a.steps, step, label, data)
	if err != nil {
		log.Warn("failed to cache step output", zap.String("step", string(step)), zap.Error(err))
		return
	}
	log.Debug("cached step output", zap.String("path", path))
}

func (a *App) cacheText(log *zap.Logger, step store.StepName, label, text string) {
	if a.steps == nil {
		return
	}
	path, err := a.steps.SaveTextOutput(step, label, text, ".txt")
	if err != nil {
		log.Warn("failed to cache step output", zap.String("step", string(step)), zap.Error(err))
		return
	}
	log.Debug("cached step output", zap.String("path", path))
}
